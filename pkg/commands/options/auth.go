package options

import (
	"github.com/spf13/cobra"
)

// AccountOptions holds credentials given on the command line. Anything left
// empty is prompted for.
type AccountOptions struct {
	Email         string
	Code          string
	PasswordStdin bool
}

func AddEmailArg(cmd *cobra.Command, o *AccountOptions) {
	cmd.Flags().StringVarP(&o.Email, "email", "e", "",
		"Account email.")
}

func AddPasswordStdinArg(cmd *cobra.Command, o *AccountOptions) {
	cmd.Flags().BoolVar(&o.PasswordStdin, "password-stdin", false,
		"Read the password from stdin.")
}

func AddCodeArg(cmd *cobra.Command, o *AccountOptions) {
	cmd.Flags().StringVar(&o.Code, "code", "",
		"Six digit verification code from the email.")
}
