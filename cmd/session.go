package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	itemsrender "github.com/bnema/offline-session-cli/internal/adapters/render/items"
	"github.com/spf13/cobra"
)

type sessionOutput struct {
	State           string    `json:"state"`
	Authenticated   bool      `json:"authenticated"`
	Expired         bool      `json:"expired"`
	ExpiresAt       time.Time `json:"expiresAt"`
	TokenType       string    `json:"tokenType,omitempty"`
	Scopes          []string  `json:"scopes,omitempty"`
	HasRefreshToken bool      `json:"hasRefreshToken"`
}

func newSessionCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect or refresh the stored session",
	}

	cmd.AddCommand(newSessionStatusCmd(app), newSessionRefreshCmd(app))

	return cmd
}

func newSessionStatusCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the stored session without contacting the network",
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, identity, ok := app.sessions.Current(cmd.Context())
			now := app.now()

			if asJSON {
				out := sessionOutput{
					State:         string(app.sessions.State()),
					Authenticated: ok,
				}
				if ok {
					out.Expired = session.IsExpired(now)
					out.ExpiresAt = session.ExpiresAt
					out.TokenType = session.TokenType
					out.Scopes = session.Scopes
					out.HasRefreshToken = session.HasRefreshToken()
				}
				return writeJSON(cmd, out)
			}

			rendered, err := itemsrender.RenderSession(itemsrender.SessionView{
				State:      app.sessions.State(),
				Identity:   identity,
				Session:    session,
				HasSession: ok,
			}, itemsrender.RenderOptions{Now: now})
			if err != nil {
				return fmt.Errorf("render session: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")

	return cmd
}

func newSessionRefreshCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the refresh token for a new access token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := app.sessions.Refresh(cmd.Context())
			if err != nil {
				return fmt.Errorf("refresh session: %w", err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Session refreshed; expires %s\n", session.ExpiresAt.Local().Format(time.RFC3339))
			return err
		},
	}
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
