package options

import (
	"github.com/spf13/cobra"

	"tableflip.dev/wordsmith/pkg/timeutil"
)

// UsageOptions
type UsageOptions struct {
	Month bool
	Keep  string
}

func AddUsageArgs(cmd *cobra.Command, o *UsageOptions) {
	cmd.Flags().BoolVarP(&o.Month, "month", "m", false,
		"Show this month as a calendar.")
}

func AddPruneArgs(cmd *cobra.Command, o *UsageOptions) {
	cmd.Flags().StringVar(&o.Keep, "keep", timeutil.DefaultWindow,
		`History to keep in days or weeks, e.g. "30d" or "2w".`)
}

// KeepDays parses --keep.
func (o *UsageOptions) KeepDays() (int, error) {
	return timeutil.ParseDays(o.Keep)
}
