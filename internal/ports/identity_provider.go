package ports

import (
	"context"

	"github.com/bnema/offline-session-cli/internal/domain"
)

type IdentityProvider interface {
	Login(ctx context.Context, credentials domain.Credentials) (domain.Session, error)
	Refresh(ctx context.Context, refreshToken string) (domain.Session, error)
}
