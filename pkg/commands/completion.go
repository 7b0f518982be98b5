package commands

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"tableflip.dev/wordsmith/pkg/backend"
)

func addCompletions(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "completion",
		Short: "Generates bash completion scripts",
		Long: `To load completion run

. <(wordsmith completion)

To configure your bash shell to load completions for each session add to your bashrc

# ~/.bashrc or ~/.profile
. <(wordsmith completion)
`,
		Run: func(cmd *cobra.Command, args []string) {
			_ = topLevel.GenBashCompletion(os.Stdout)
		},
	}

	topLevel.AddCommand(cmd)
}

func convertTypeCompletions(toComplete string) []string {
	var out []string
	for _, ct := range backend.ConvertTypes() {
		if strings.HasPrefix(string(ct), strings.ToLower(toComplete)) {
			out = append(out, string(ct))
		}
	}
	return out
}
