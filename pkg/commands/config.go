package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"tableflip.dev/wordsmith/pkg/commands/options"
	"tableflip.dev/wordsmith/pkg/printers"
)

func addConfig(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "inspect configuration",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "print the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := co.Load()
			if err != nil {
				return output.HandleError(err)
			}
			keys := []string{
				"file", "path", "backend", "api_url", "generation_limit", "max_length",
				"openai.api_key", "openai.model", "cognito.client_id", "cognito.region",
				"stripe.secret_key", "stripe.price_weekly", "stripe.price_monthly",
				"stripe.success_url", "stripe.cancel_url",
				"log.level", "log.format", "log.file",
				"auth_check_interval", "subscription_check_interval",
				"shortcut", "shortcut_rate", "metrics_addr",
				"update.check", "update.url",
			}
			values := map[string]string{
				"file":                        cfg.File,
				"path":                        cfg.Path,
				"backend":                     cfg.Backend,
				"api_url":                     cfg.APIURL,
				"generation_limit":            fmt.Sprint(cfg.GenerationLimit),
				"max_length":                  fmt.Sprint(cfg.MaxLength),
				"openai.api_key":              printers.Mask(cfg.OpenAI.APIKey),
				"openai.model":                cfg.OpenAI.Model,
				"cognito.client_id":           cfg.Cognito.ClientID,
				"cognito.region":              cfg.Cognito.Region,
				"stripe.secret_key":           printers.Mask(cfg.Stripe.SecretKey),
				"stripe.price_weekly":         cfg.Stripe.PriceWeekly,
				"stripe.price_monthly":        cfg.Stripe.PriceMonthly,
				"stripe.success_url":          cfg.Stripe.SuccessURL,
				"stripe.cancel_url":           cfg.Stripe.CancelURL,
				"log.level":                   cfg.Log.Level,
				"log.format":                  cfg.Log.Format,
				"log.file":                    cfg.Log.File,
				"auth_check_interval":         cfg.AuthCheckInterval.String(),
				"subscription_check_interval": cfg.SubscriptionCheckInterval.String(),
				"shortcut":                    cfg.Shortcut,
				"shortcut_rate":               cfg.ShortcutRate.String(),
				"metrics_addr":                cfg.MetricsAddr,
				"update.check":                fmt.Sprint(cfg.Update.Check),
				"update.url":                  cfg.Update.URL,
			}
			if output.JSON {
				return output.Print(values)
			}
			pp := printers.PrettyPrint{}
			pp.Settings("Config", keys, values)
			return nil
		},
	}
	options.AddOutputArg(show, output)

	cmd.AddCommand(show)
	topLevel.AddCommand(cmd)
}
