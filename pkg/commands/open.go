package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"tableflip.dev/wordsmith/pkg/app"
	"tableflip.dev/wordsmith/pkg/payment"
)

func addOpen(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "open <url>",
		Short: "apply a payment redirect",
		Long: `Apply the URL a checkout redirected to. A payment-success URL is verified
with the payment provider and activates the plan; a payment-cancel URL
returns to the plan list.`,
		Example: `
wordsmith open 'wordsmith://payment-success?session_id=cs_test_123&plan_type=monthly'
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				r, err := a.HandleRedirect(ctx, args[0])
				if err != nil {
					return err
				}
				if r.Kind == payment.Cancel {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "payment cancelled, no charge was made")
					return nil
				}
				return printSubscription(a)
			})
		},
	}
	topLevel.AddCommand(cmd)
}
