package options

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// MCPOptions
type MCPOptions struct {
	Transport string
	HTTPAddr  string
	HTTPPath  string
}

func AddMCPArgs(cmd *cobra.Command, o *MCPOptions) {
	fs := pflag.NewFlagSet("mcp", pflag.ContinueOnError)
	fs.StringVar(&o.Transport, "transport", "stdio",
		"Transport to use: stdio or http.")
	fs.StringVar(&o.HTTPAddr, "http-addr", "127.0.0.1:8080",
		"Listen address for the http transport (port 0 picks one).")
	fs.StringVar(&o.HTTPPath, "http-path", "/mcp",
		"HTTP endpoint path.")
	cmd.Flags().AddFlagSet(fs)
}
