package ports

import "context"

// SecretStore holds sensitive values. Get returns domain.ErrSecretNotFound
// when the key is absent and Remove succeeds for absent keys.
type SecretStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	Remove(ctx context.Context, key string) error
}
