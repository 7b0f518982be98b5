package snake

import (
	"errors"
	"fmt"
	"io"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var answerTemplates = &promptui.PromptTemplates{
	Prompt:  "{{ . }} : ",
	Valid:   "{{ . | green }} : ",
	Invalid: "{{ . | red }} : ",
	Success: "{{ . | bold }} : ",
}

func asFlags(f *pflag.Flag) string {
	if f.Shorthand != "" {
		return fmt.Sprintf("--%s, -%s", f.Name, f.Shorthand)
	}
	return fmt.Sprintf("--%s", f.Name)
}

// PromptFlagString asks for the value of the string flag name when it was
// left empty. validate may be nil.
func PromptFlagString(cmd *cobra.Command, name string, validate func(string) error) error {
	f := cmd.Flags().Lookup(name)
	if f == nil {
		return fmt.Errorf("snake: unknown flag %q", name)
	}
	if f.Value.String() != "" {
		return nil
	}

	check := func(input string) error {
		if input == "" && f.DefValue == "" {
			return errors.New("empty")
		}
		if validate != nil && input != "" {
			return validate(input)
		}
		return nil
	}

	prompt := promptui.Prompt{
		Label:     fmt.Sprintf("%s (%s)", f.Usage, asFlags(f)),
		Templates: answerTemplates,
		Validate:  check,
		Stdin:     io.NopCloser(cmd.InOrStdin()),
		Stdout:    NopCloser(cmd.OutOrStdout()),
	}

	result, err := prompt.Run()
	if err != nil {
		return fmt.Errorf("snake: %s: %w", f.Name, err)
	}
	if result == "" {
		result = f.DefValue
	}
	return f.Value.Set(result)
}
