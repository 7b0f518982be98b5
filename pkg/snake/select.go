// Package snake holds the interactive prompts commands fall back to when
// arguments or flags are missing.
package snake

import (
	"fmt"
	"io"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

// Choice is one entry of a Select list.
type Choice struct {
	Name  string
	Short string
	Long  string
}

// Select asks the user to pick one of choices and returns its index.
func Select(cmd *cobra.Command, label string, choices []Choice, cursor int) (int, error) {
	if len(choices) == 0 {
		return -1, fmt.Errorf("snake: nothing to select for %q", label)
	}
	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}?",
		Active:   "➜  {{ .Name | bold }} {{ .Short | green }}",
		Inactive: "   {{ .Name }} {{ .Short | cyan }}",
		Selected: "{{ .Name | bold }}",
		Details: `
--------- Details ----------
{{ .Long }}
`,
	}

	searcher := func(input string, index int) bool {
		c := choices[index]
		name := strings.Replace(strings.ToLower(c.Name+c.Short), " ", "", -1)
		input = strings.Replace(strings.ToLower(input), " ", "", -1)

		return strings.Contains(name, input)
	}

	prompt := promptui.Select{
		HideHelp:  true,
		Label:     label,
		Items:     choices,
		Templates: templates,
		Size:      10,
		CursorPos: cursor,
		Searcher:  searcher,
		Stdin:     io.NopCloser(cmd.InOrStdin()),
		Stdout:    NopCloser(cmd.OutOrStdout()),
	}

	i, _, err := prompt.Run()
	if err != nil {
		return -1, fmt.Errorf("snake: %s: %w", label, err)
	}
	return i, nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// NopCloser wraps w for promptui, which wants an io.WriteCloser.
func NopCloser(w io.Writer) io.WriteCloser {
	return nopCloser{w}
}
