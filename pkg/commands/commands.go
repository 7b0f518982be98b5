package commands

import (
	"github.com/spf13/cobra"

	base "github.com/n3wscott/cli-base/pkg/commands/options"

	"tableflip.dev/wordsmith/pkg/commands/options"
)

var (
	co     = &options.ConfigOptions{}
	output = &options.OutputOptions{}
)

func New() *cobra.Command {

	cmd := &cobra.Command{
		Use:          "wordsmith",
		Short:        base.Wrap80("Rewrite text from the terminal: translate, revise, summarize and more."),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	options.AddConfigArgs(cmd, co)
	AddCommands(cmd)
	return cmd
}

func AddCommands(topLevel *cobra.Command) {
	addUI(topLevel)
	addConvert(topLevel)
	addUsage(topLevel)
	addScreen(topLevel)
	addAuth(topLevel)
	addSubscription(topLevel)
	addOpen(topLevel)
	addMCP(topLevel)
	addConfig(topLevel)
	addUpgrade(topLevel)
	addVersion(topLevel)
	addCompletions(topLevel)
}
