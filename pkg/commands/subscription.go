package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"tableflip.dev/wordsmith/pkg/app"
	"tableflip.dev/wordsmith/pkg/backend"
	"tableflip.dev/wordsmith/pkg/commands/options"
	"tableflip.dev/wordsmith/pkg/printers"
	"tableflip.dev/wordsmith/pkg/snake"
	"tableflip.dev/wordsmith/pkg/subscription"
)

func addSubscription(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:     "subscription",
		Aliases: []string{"sub", "plan"},
		Short:   "show and manage the premium plan",
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "show the subscription",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				return printSubscription(a)
			})
		},
	}

	plans := &cobra.Command{
		Use:   "plans",
		Short: "list the plans for sale",
		RunE: func(cmd *cobra.Command, args []string) error {
			if output.JSON {
				return output.Print(backend.Plans())
			}
			pp := printers.PrettyPrint{}
			pp.Plans(backend.Plans())
			return nil
		},
	}

	check := &cobra.Command{
		Use:   "check",
		Short: "re-validate the plan with the billing service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Subscription.CheckValidity(ctx); err != nil {
					return err
				}
				return printSubscription(a)
			})
		},
	}

	for _, c := range []*cobra.Command{status, plans, check} {
		options.AddOutputArg(c, output)
	}
	cmd.AddCommand(status, plans, check, subscriptionPurchase(), subscriptionReset())
	topLevel.AddCommand(cmd)
}

func subscriptionPurchase() *cobra.Command {
	names := make([]string, 0, len(backend.Plans()))
	for _, p := range backend.Plans() {
		names = append(names, string(p.Type))
	}

	cmd := &cobra.Command{
		Use:       "purchase [plan]",
		Short:     "start a checkout for a plan",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: names,
		Example: `
wordsmith subscription purchase monthly
wordsmith subscription purchase
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				var plan backend.PlanType
				if len(args) == 1 {
					plan = backend.PlanType(args[0])
				} else {
					var err error
					if plan, err = selectPlan(cmd); err != nil {
						return err
					}
				}
				checkout, err := a.Purchase(ctx, plan)
				if err != nil {
					return err
				}
				if output.JSON {
					return output.Print(checkout)
				}
				out := cmd.OutOrStdout()
				_, _ = fmt.Fprintf(out, "Open this URL to pay:\n\n  %s\n\n", checkout.URL)
				_, _ = fmt.Fprintln(out, "When the checkout finishes, pass the URL it redirects to:")
				_, _ = fmt.Fprintln(out, "\n  wordsmith open '<redirect url>'")
				return nil
			})
		},
	}
	options.AddOutputArg(cmd, output)
	return cmd
}

func selectPlan(cmd *cobra.Command) (backend.PlanType, error) {
	plans := backend.Plans()
	choices := make([]snake.Choice, 0, len(plans))
	for _, p := range plans {
		choices = append(choices, snake.Choice{
			Name:  p.Name,
			Short: fmt.Sprintf("¥%d", p.PriceJPY),
			Long:  p.Description,
		})
	}
	idx, err := snake.Select(cmd, "Plan", choices, 0)
	if err != nil {
		return "", err
	}
	return plans[idx].Type, nil
}

func subscriptionReset() *cobra.Command {
	yes := false
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "go back to the free plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				ok, err := snake.Confirm(cmd, "Return to the free plan", false)
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if _, err := a.Subscription.ResetPlan(ctx); err != nil {
					return err
				}
				a.Screen.Reconcile(ctx)
				return printSubscription(a)
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation.")
	return cmd
}

func printSubscription(a *app.App) error {
	st := a.Subscription.Status()
	limit := a.Config().GenerationLimit
	if output.JSON {
		return output.Print(struct {
			Status     *backend.SubscriptionStatus `json:"status"`
			Validation subscription.Validation     `json:"validation"`
		}{st, subscription.Validate(st)})
	}
	pp := printers.PrettyPrint{}
	pp.Subscription(st, limit)
	return nil
}
