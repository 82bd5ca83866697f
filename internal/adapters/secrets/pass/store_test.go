package pass

import (
	"context"
	"errors"
	"testing"

	"github.com/bnema/offline-session-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreSetUsesPassInsertUnderPrefix(t *testing.T) {
	t.Parallel()

	called := false
	store := &Store{
		prefix: DefaultPrefix,
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			called = true
			assert.Equal(t, []string{"insert", "-m", "-f", "ofs/auth_token"}, args)
			assert.Equal(t, "at-123\n", input)
			return "", "", nil
		},
	}

	require.NoError(t, store.Set(context.Background(), "auth_token", "at-123"))
	assert.True(t, called)
}

func TestStoreGetTrimsTrailingNewline(t *testing.T) {
	t.Parallel()

	store := &Store{
		prefix: DefaultPrefix,
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			assert.Equal(t, []string{"show", "ofs/refresh_token"}, args)
			assert.Empty(t, input)
			return "rt-123\n", "", nil
		},
	}

	value, err := store.Get(context.Background(), "refresh_token")
	require.NoError(t, err)
	assert.Equal(t, "rt-123", value)
}

func TestStoreGetMapsMissingEntryToNotFound(t *testing.T) {
	t.Parallel()

	store := &Store{
		prefix: DefaultPrefix,
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			return "", "Error: ofs/auth_token is not in the password store.", errors.New("exit status 1")
		},
	}

	_, err := store.Get(context.Background(), "auth_token")
	require.ErrorIs(t, err, domain.ErrSecretNotFound)
}

func TestStoreGetReturnsClearError(t *testing.T) {
	t.Parallel()

	store := &Store{
		prefix: DefaultPrefix,
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			return "", "gpg: decryption failed: No secret key", errors.New("exit status 2")
		},
	}

	_, err := store.Get(context.Background(), "auth_token")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrSecretNotFound)
	assert.ErrorContains(t, err, "pass get")
	assert.ErrorContains(t, err, "ofs/auth_token")
	assert.ErrorContains(t, err, "No secret key")
}

func TestStoreRemoveTreatsMissingEntryAsSuccess(t *testing.T) {
	t.Parallel()

	store := &Store{
		prefix: DefaultPrefix,
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			assert.Equal(t, []string{"rm", "-f", "ofs/token_expires_at"}, args)
			return "", "Error: ofs/token_expires_at is not in the password store.", errors.New("exit status 1")
		},
	}

	require.NoError(t, store.Remove(context.Background(), "token_expires_at"))
}

func TestStoreRemovePropagatesUnavailable(t *testing.T) {
	t.Parallel()

	store := &Store{
		prefix: DefaultPrefix,
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			return "", "", ErrUnavailable
		},
	}

	err := store.Remove(context.Background(), "auth_token")
	require.ErrorIs(t, err, ErrUnavailable)
}
