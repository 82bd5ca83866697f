package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bnema/offline-session-cli/internal/domain"
	"github.com/spf13/cobra"
)

func newLoginCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
	}

	cmd.AddCommand(newLoginPasswordCmd(app), newLoginBrowserCmd(app))

	return cmd
}

func newLoginPasswordCmd(app *app) *cobra.Command {
	var (
		username      string
		password      string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "password",
		Short: "Sign in with a username and password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if passwordStdin {
				if password != "" {
					return errors.New("--password and --password-stdin are mutually exclusive")
				}
				read, err := readPassword(cmd.InOrStdin())
				if err != nil {
					return err
				}
				password = read
			}
			if password == "" {
				return errors.New("a password is required: use --password or --password-stdin")
			}

			err := app.sessions.Login(cmd.Context(), domain.Credentials{
				Method:   domain.LoginMethodPassword,
				Username: username,
				Password: password,
			})
			if err != nil {
				return fmt.Errorf("sign in: %w", err)
			}

			return printSignedIn(cmd, app)
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Account username or email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	_ = cmd.MarkFlagRequired("username")

	return cmd
}

func newLoginBrowserCmd(app *app) *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "browser",
		Short: "Sign in through the browser with a federated identity provider",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app.setAnnounceOutput(cmd.OutOrStdout())

			err := app.sessions.Login(cmd.Context(), domain.Credentials{
				Method:   domain.LoginMethodFederated,
				Provider: provider,
			})
			if err != nil {
				return fmt.Errorf("sign in with browser: %w", err)
			}

			return printSignedIn(cmd, app)
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "Configured provider name (empty uses the default authorization server)")

	return cmd
}

func newLogoutCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and remove the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app.sessions.Logout(cmd.Context())
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return err
		},
	}
}

func printSignedIn(cmd *cobra.Command, app *app) error {
	identity, ok := app.sessions.CurrentIdentity(cmd.Context())
	if !ok {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "Signed in")
		return err
	}

	_, err := fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s <%s>\n", identity.DisplayName, identity.Email)
	return err
}

func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password from stdin: %w", err)
	}

	return strings.TrimRight(line, "\r\n"), nil
}
