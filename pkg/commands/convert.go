package commands

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"tableflip.dev/wordsmith/pkg/app"
	"tableflip.dev/wordsmith/pkg/backend"
	"tableflip.dev/wordsmith/pkg/commands/options"
	"tableflip.dev/wordsmith/pkg/runner/convert"
	"tableflip.dev/wordsmith/pkg/snake"
)

func addConvert(topLevel *cobra.Command) {
	o := &options.ConvertOptions{}
	i := &options.InteractiveOptions{}

	cmd := &cobra.Command{
		Use:   "convert [text]",
		Short: "convert text and print the result",
		Long: `Send text to the transformation backend and print the result. The text
comes from the arguments, --file, or stdin when it is piped. Free accounts
are limited per day; the count is shared with the user interface.`,
		Example: `
wordsmith convert --type translate "Good morning"
echo "draft text" | wordsmith convert -t formalize
wordsmith convert -i --file notes.txt
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readText(cmd, o.File, args)
			if err != nil {
				return output.HandleError(err)
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				def, _ := a.Usage.ConvertType(ctx)
				ct, err := o.ConvertType(def)
				if err != nil {
					return err
				}
				if i.Interactive {
					if ct, err = selectConvertType(cmd, ct); err != nil {
						return err
					}
				}
				c := convert.Convert{App: a, Text: text, Type: ct, JSON: output.JSON}
				return c.Do(ctx)
			})
		},
	}

	options.AddConvertArgs(cmd, o)
	options.InteractiveArgs(cmd, i)
	options.AddOutputArg(cmd, output)
	_ = cmd.RegisterFlagCompletionFunc("type", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return convertTypeCompletions(toComplete), cobra.ShellCompDirectiveNoFileComp
	})

	topLevel.AddCommand(cmd)
}

func readText(cmd *cobra.Command, file string, args []string) (string, error) {
	var r io.Reader
	switch {
	case file == "-":
		r = cmd.InOrStdin()
	case file != "":
		f, err := os.Open(file)
		if err != nil {
			return "", err
		}
		defer f.Close()
		r = f
	case len(args) > 0:
		return strings.Join(args, " "), nil
	case !term.IsTerminal(int(os.Stdin.Fd())):
		r = cmd.InOrStdin()
	default:
		return "", errors.New("nothing to convert, pass text, --file or pipe stdin")
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func selectConvertType(cmd *cobra.Command, current backend.ConvertType) (backend.ConvertType, error) {
	types := backend.ConvertTypes()
	choices := make([]snake.Choice, 0, len(types))
	cursor := 0
	for n, ct := range types {
		if ct == current {
			cursor = n
		}
		choices = append(choices, snake.Choice{
			Name:  string(ct),
			Short: ct.Label(),
			Long:  backend.Instruction(ct),
		})
	}
	idx, err := snake.Select(cmd, "Convert type", choices, cursor)
	if err != nil {
		return "", err
	}
	return types[idx], nil
}
