package commands

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/spf13/cobra"

	"tableflip.dev/wordsmith/pkg/app"
	"tableflip.dev/wordsmith/pkg/commands/options"
	"tableflip.dev/wordsmith/pkg/runner/mcp"
)

func addMCP(topLevel *cobra.Command) {
	o := &options.MCPOptions{}

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "start the Model Context Protocol server",
		Long: `Launch an MCP server that exposes conversion, usage and subscription state
to MCP clients. Conversions count against the same daily limit as the user
interface.`,
		Example: `
wordsmith mcp
wordsmith mcp --http-addr 127.0.0.1:8080
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := strings.TrimSpace(o.HTTPPath)
			if path == "" {
				path = "/mcp"
			}
			if !strings.HasPrefix(path, "/") {
				path = "/" + path
			}

			runner := mcp.Runner{
				Name:             "wordsmith",
				Version:          version,
				HTTPEndpointPath: path,
			}

			transport := strings.ToLower(strings.TrimSpace(o.Transport))
			if cmd.Flags().Changed("http-addr") && !cmd.Flags().Changed("transport") {
				transport = string(mcp.TransportHTTP)
			}
			switch transport {
			case "", string(mcp.TransportStdio):
				runner.Transport = mcp.TransportStdio
			case string(mcp.TransportHTTP):
				runner.Transport = mcp.TransportHTTP
				runner.HTTPListenAddr = o.HTTPAddr
				runner.OnHTTPListening = func(a net.Addr) {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "MCP HTTP server listening on http://%s%s\n", a, path)
				}
			default:
				return fmt.Errorf("unsupported transport %q (expected http or stdio)", o.Transport)
			}

			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				runner.Service = mcp.NewService(a)
				return runner.Do(ctx)
			})
		},
	}

	options.AddMCPArgs(cmd, o)
	topLevel.AddCommand(cmd)
}
