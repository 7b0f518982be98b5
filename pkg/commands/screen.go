package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tableflip.dev/wordsmith/pkg/app"
	"tableflip.dev/wordsmith/pkg/commands/options"
	"tableflip.dev/wordsmith/pkg/printers"
	"tableflip.dev/wordsmith/pkg/screen"
)

func addScreen(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "screen",
		Short: "inspect or change the persisted screen",
	}

	get := &cobra.Command{
		Use:   "get",
		Short: "print the current screen",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				return printScreen(a.Screen.Current())
			})
		},
	}
	names := screenNames()
	set := &cobra.Command{
		Use:       "set <screen>",
		Short:     "switch to a screen",
		Example:   "\nwordsmith screen set MAIN\n",
		Args:      cobra.ExactArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			next, ok := screen.Parse(strings.ToUpper(args[0]))
			if !ok {
				return output.HandleError(fmt.Errorf("unknown screen %q, expected one of %v", args[0], names))
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				a.Screen.Switch(next)
				return printScreen(a.Screen.Current())
			})
		},
	}
	reconcile := &cobra.Command{
		Use:   "reconcile",
		Short: "re-evaluate the screen against usage and subscription",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				return printScreen(a.Screen.Reconcile(ctx))
			})
		},
	}

	for _, c := range []*cobra.Command{get, set, reconcile} {
		options.AddOutputArg(c, output)
	}
	cmd.AddCommand(get, set, reconcile)
	topLevel.AddCommand(cmd)
}

func printScreen(t screen.Type) error {
	if output.JSON {
		return output.Print(map[string]string{"screen": t.String()})
	}
	pp := printers.PrettyPrint{}
	pp.Screen(t)
	return nil
}

func screenNames() []string {
	names := make([]string, 0, len(screen.Types()))
	for _, t := range screen.Types() {
		names = append(names, t.String())
	}
	return names
}
