package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"tableflip.dev/wordsmith/pkg/app"
	"tableflip.dev/wordsmith/pkg/commands/options"
	"tableflip.dev/wordsmith/pkg/runner/usage"
)

func addUsage(topLevel *cobra.Command) {
	o := &options.UsageOptions{}

	show := func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			st := a.Subscription.Status()
			s := usage.Show{
				Counter: a.Usage,
				Limit:   a.Config().GenerationLimit,
				Active:  st != nil && st.IsActive,
				Month:   o.Month,
				JSON:    output.JSON,
				Now:     time.Now,
			}
			return s.Do(ctx)
		})
	}

	cmd := &cobra.Command{
		Use:   "usage",
		Short: "show conversions per day",
		Example: `
wordsmith usage
wordsmith usage --month
`,
		RunE: show,
	}
	options.AddUsageArgs(cmd, o)
	options.AddOutputArg(cmd, output)

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "show conversions per day",
		RunE:  show,
	}
	options.AddUsageArgs(showCmd, o)
	options.AddOutputArg(showCmd, output)

	prune := &cobra.Command{
		Use:   "prune",
		Short: "drop old usage history",
		Example: `
wordsmith usage prune --keep 2w
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			keep, err := o.KeepDays()
			if err != nil {
				return output.HandleError(err)
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				p := usage.Prune{Counter: a.Usage, Keep: keep}
				return p.Do(ctx)
			})
		},
	}
	options.AddPruneArgs(prune, o)

	cmd.AddCommand(showCmd, prune)
	topLevel.AddCommand(cmd)
}
