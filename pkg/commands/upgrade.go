package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"tableflip.dev/wordsmith/pkg/commands/options"
	"tableflip.dev/wordsmith/pkg/update"
)

func addUpgrade(topLevel *cobra.Command) {
	var check, force bool

	cmd := &cobra.Command{
		Use:   "upgrade",
		Short: "Upgrade the wordsmith cli.",
		Long: `Look up the latest published release and install it with go install. With
--check only report whether a newer release exists.`,
		Example: `
wordsmith upgrade
wordsmith upgrade --check
`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := co.Load()
			if err != nil {
				return output.HandleError(err)
			}
			c := &update.Checker{URL: cfg.Update.URL, Current: version}
			rel, newer, err := c.Check(cmd.Context())
			if err != nil {
				return output.HandleError(err)
			}

			out := cmd.OutOrStdout()
			if check {
				if output.JSON {
					return output.Print(map[string]any{
						"current": version,
						"latest":  rel.Version,
						"newer":   newer,
					})
				}
				if newer {
					_, _ = fmt.Fprintf(out, "wordsmith %s is available (running %s)\n", rel.Version, version)
				} else {
					_, _ = fmt.Fprintf(out, "wordsmith %s is up to date (latest %s)\n", version, rel.Version)
				}
				return nil
			}

			if !newer && !force {
				_, _ = fmt.Fprintf(out, "wordsmith %s is up to date (latest %s), use --force to reinstall\n", version, rel.Version)
				return nil
			}
			line, err := c.Install(cmd.Context(), rel.Version)
			if err != nil {
				return output.HandleError(err)
			}
			_, _ = fmt.Fprintf(out, "%s\n", line)
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Only report whether a newer release exists.")
	cmd.Flags().BoolVar(&force, "force", false, "Install the latest release even when not newer.")
	options.AddOutputArg(cmd, output)

	topLevel.AddCommand(cmd)
}
