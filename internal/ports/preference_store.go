package ports

import "context"

// PreferenceStore holds non-sensitive settings. Get returns
// domain.ErrPreferenceNotFound when the key is absent.
type PreferenceStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	Remove(ctx context.Context, key string) error
}
