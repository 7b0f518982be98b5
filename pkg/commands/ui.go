package commands

import (
	"github.com/spf13/cobra"

	"tableflip.dev/wordsmith/pkg/runner/ui"
	"tableflip.dev/wordsmith/pkg/update"
)

func addUI(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "ui",
		Short: "open the text-based user interface",
		Example: `
wordsmith ui
`,
		ValidArgs: []string{},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, done, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer done()
			i := ui.UI{App: a}
			if cfg := a.Config(); cfg.Update.Check {
				i.Updates = &update.Checker{URL: cfg.Update.URL, Current: version}
			}
			return i.Do(cmd.Context())
		},
	}

	topLevel.AddCommand(cmd)
}
