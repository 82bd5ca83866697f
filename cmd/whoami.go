package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/offline-session-cli/internal/domain"
	"github.com/spf13/cobra"
)

var errMissingRole = errors.New("signed-in user does not have the role")

type identityOutput struct {
	ID          string            `json:"id"`
	Email       string            `json:"email"`
	DisplayName string            `json:"displayName"`
	AvatarURL   string            `json:"avatarUrl,omitempty"`
	Roles       []string          `json:"roles"`
	Claims      map[string]string `json:"claims,omitempty"`
}

func newWhoamiCmd(app *app) *cobra.Command {
	var (
		asJSON bool
		role   string
	)

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user from the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			identity, ok := app.sessions.CurrentIdentity(cmd.Context())
			if !ok {
				return fmt.Errorf("%w: run `ofs login`", domain.ErrNotAuthenticated)
			}

			if role != "" && !identity.HasRole(role) {
				return fmt.Errorf("%w %q", errMissingRole, role)
			}

			if asJSON {
				return writeJSON(cmd, identityOutput{
					ID:          identity.ID,
					Email:       identity.Email,
					DisplayName: identity.DisplayName,
					AvatarURL:   identity.AvatarURL,
					Roles:       identity.Roles,
					Claims:      identity.Claims,
				})
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s <%s>\nid: %s\nroles: %s\n",
				identity.DisplayName, identity.Email, identity.ID, strings.Join(identity.Roles, ", "))
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	cmd.Flags().StringVar(&role, "role", "", "Fail unless the user has this role")

	return cmd
}
