// Package options defines shared flag helpers for CLI commands.
package options

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"tableflip.dev/wordsmith/pkg/config"
)

// ConfigOptions selects where configuration is read from.
type ConfigOptions struct {
	File    string
	EnvFile string
	Verbose bool
}

// AddConfigArgs registers the config flags on every subcommand of cmd.
func AddConfigArgs(cmd *cobra.Command, o *ConfigOptions) {
	fs := pflag.NewFlagSet("config", pflag.ContinueOnError)
	fs.StringVar(&o.File, "config", "",
		"Config file (default is $HOME/.wordsmith.yaml).")
	fs.StringVar(&o.EnvFile, "env-file", ".env",
		"Dotenv file loaded before the environment is read.")
	fs.BoolVarP(&o.Verbose, "verbose", "v", false,
		"Log at debug level to stderr.")
	cmd.PersistentFlags().AddFlagSet(fs)
}

// Load reads the configuration the flags point at.
func (o *ConfigOptions) Load() (*config.Config, error) {
	cfg, err := config.Load(config.Options{File: o.File, EnvFile: o.EnvFile})
	if err != nil {
		return nil, err
	}
	if o.Verbose {
		cfg.Log.Level = "debug"
		cfg.Log.Format = "console"
	}
	return cfg, nil
}
