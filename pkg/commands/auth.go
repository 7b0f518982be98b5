package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"tableflip.dev/wordsmith/pkg/app"
	"tableflip.dev/wordsmith/pkg/commands/options"
	"tableflip.dev/wordsmith/pkg/printers"
	"tableflip.dev/wordsmith/pkg/screen"
	"tableflip.dev/wordsmith/pkg/snake"
)

func addAuth(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "log in, register and manage the session",
	}

	cmd.AddCommand(
		authLogin(),
		authLogout(),
		authRegister(),
		authVerify(),
		authStatus(),
		authRefresh(),
	)
	topLevel.AddCommand(cmd)
}

func authLogin() *cobra.Command {
	o := &options.AccountOptions{}
	cmd := &cobra.Command{
		Use:   "login",
		Short: "log in with email and password",
		Example: `
wordsmith auth login --email you@example.com
echo "$PASSWORD" | wordsmith auth login -e you@example.com --password-stdin
`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return snake.PromptFlagString(cmd, "email", nil)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				password, err := readPassword(cmd, newStdin(cmd), "Password: ", o.PasswordStdin)
				if err != nil {
					return err
				}
				if err := a.Auth.Login(ctx, o.Email, password); err != nil {
					return err
				}
				a.Screen.Switch(screen.Main)
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s\n", o.Email)
				return nil
			})
		},
	}
	options.AddEmailArg(cmd, o)
	options.AddPasswordStdinArg(cmd, o)
	return cmd
}

func authLogout() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "forget the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Auth.Logout(ctx); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "logged out")
				return nil
			})
		},
	}
}

func authRegister() *cobra.Command {
	o := &options.AccountOptions{}
	cmd := &cobra.Command{
		Use:   "register",
		Short: "create an account and send a verification code",
		Example: `
wordsmith auth register --email you@example.com
`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return snake.PromptFlagString(cmd, "email", nil)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				in := newStdin(cmd)
				password, err := readPassword(cmd, in, "Password: ", o.PasswordStdin)
				if err != nil {
					return err
				}
				confirm := password
				if !o.PasswordStdin {
					if confirm, err = readPassword(cmd, in, "Confirm password: ", false); err != nil {
						return err
					}
				}
				if err := a.Auth.Register(ctx, o.Email, password, confirm); err != nil {
					return err
				}
				a.Screen.Switch(screen.EmailVerification)
				_, _ = fmt.Fprintf(cmd.OutOrStdout(),
					"verification code sent to %s, run `wordsmith auth verify` to finish\n", o.Email)
				return nil
			})
		},
	}
	options.AddEmailArg(cmd, o)
	options.AddPasswordStdinArg(cmd, o)
	return cmd
}

func authVerify() *cobra.Command {
	o := &options.AccountOptions{}
	login := false
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "confirm the pending registration",
		Example: `
wordsmith auth verify --code 123456
wordsmith auth verify --code 123456 --login
`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return snake.PromptFlagString(cmd, "code", nil)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				email, ok := a.Auth.PendingEmail()
				if !ok {
					return errors.New("no registration is waiting for verification, run `wordsmith auth register`")
				}
				if login {
					if err := a.Auth.VerifyEmailAndLogin(ctx, o.Code); err != nil {
						return err
					}
					a.Screen.Switch(screen.Main)
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "verified and logged in as %s\n", email)
					return nil
				}
				if err := a.Auth.VerifyEmail(ctx, o.Code); err != nil {
					return err
				}
				a.Screen.Switch(screen.Login)
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s verified, run `wordsmith auth login`\n", email)
				return nil
			})
		},
	}
	options.AddCodeArg(cmd, o)
	cmd.Flags().BoolVar(&login, "login", false, "Log in with the password given at registration.")
	return cmd
}

func authStatus() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "show the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				st := a.Auth.State()
				pending, _ := a.Auth.PendingEmail()
				if output.JSON {
					var expires *time.Time
					if st.Tokens != nil {
						t := st.Tokens.Expiry()
						expires = &t
					}
					return output.Print(struct {
						Authenticated bool       `json:"authenticated"`
						Email         string     `json:"email,omitempty"`
						ExpiresAt     *time.Time `json:"expires_at,omitempty"`
						Pending       string     `json:"pending_email,omitempty"`
					}{
						Authenticated: st.Authenticated,
						Email:         st.UserEmail,
						ExpiresAt:     expires,
						Pending:       pending,
					})
				}
				pp := printers.PrettyPrint{}
				pp.Auth(st, pending, time.Now())
				return nil
			})
		},
	}
	options.AddOutputArg(cmd, output)
	return cmd
}

func authRefresh() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "exchange the refresh token for a new session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Auth.Refresh(ctx); err != nil {
					return fmt.Errorf("refresh failed, you are logged out: %w", err)
				}
				st := a.Auth.State()
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "session for %s valid until %s\n",
					st.UserEmail, st.Tokens.Expiry().Local().Format(time.RFC3339))
				return nil
			})
		},
	}
}

func newStdin(cmd *cobra.Command) *bufio.Reader {
	return bufio.NewReader(cmd.InOrStdin())
}

// readPassword reads a line from in when stdin is not a terminal, and
// without echo otherwise.
func readPassword(cmd *cobra.Command, in *bufio.Reader, label string, fromStdin bool) (string, error) {
	fd := int(os.Stdin.Fd())
	if fromStdin || !term.IsTerminal(fd) {
		line, err := in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
	_, _ = fmt.Fprint(cmd.ErrOrStderr(), label)
	b, err := term.ReadPassword(fd)
	_, _ = fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", err
	}
	return string(b), nil
}
