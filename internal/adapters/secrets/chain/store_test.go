package chain

import (
	"context"
	"errors"
	"testing"

	passstore "github.com/bnema/offline-session-cli/internal/adapters/secrets/pass"
	"github.com/bnema/offline-session-cli/internal/domain"
	portmocks "github.com/bnema/offline-session-cli/internal/ports/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestStoreGetUsesPrimaryWhenItSucceeds(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockSecretStore(t)
	fallback := portmocks.NewMockSecretStore(t)
	store := NewStore(primary, fallback)

	primary.EXPECT().Get(mock.Anything, "auth_token").Return("from-pass", nil).Once()

	value, err := store.Get(context.Background(), "auth_token")
	require.NoError(t, err)
	assert.Equal(t, "from-pass", value)
}

func TestStoreGetFallsBackWhenPrimaryFails(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockSecretStore(t)
	fallback := portmocks.NewMockSecretStore(t)
	store := NewStore(primary, fallback)

	primary.EXPECT().Get(mock.Anything, "auth_token").Return("", passstore.ErrUnavailable).Once()
	fallback.EXPECT().Get(mock.Anything, "auth_token").Return("from-file", nil).Once()

	value, err := store.Get(context.Background(), "auth_token")
	require.NoError(t, err)
	assert.Equal(t, "from-file", value)
}

func TestStoreGetReportsNotFoundWhenNeitherBackendHasKey(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockSecretStore(t)
	fallback := portmocks.NewMockSecretStore(t)
	store := NewStore(primary, fallback)

	primary.EXPECT().Get(mock.Anything, "auth_token").Return("", domain.ErrSecretNotFound).Once()
	fallback.EXPECT().Get(mock.Anything, "auth_token").Return("", domain.ErrSecretNotFound).Once()

	_, err := store.Get(context.Background(), "auth_token")
	require.ErrorIs(t, err, domain.ErrSecretNotFound)
}

func TestStoreGetReturnsCombinedErrorWhenBothBackendsFail(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockSecretStore(t)
	fallback := portmocks.NewMockSecretStore(t)
	store := NewStore(primary, fallback)

	primary.EXPECT().Get(mock.Anything, "auth_token").Return("", errors.New("pass failed")).Once()
	fallback.EXPECT().Get(mock.Anything, "auth_token").Return("", errors.New("file failed")).Once()

	_, err := store.Get(context.Background(), "auth_token")
	require.Error(t, err)
	assert.ErrorContains(t, err, "primary backend")
	assert.ErrorContains(t, err, "fallback backend")
	assert.ErrorContains(t, err, "pass failed")
	assert.ErrorContains(t, err, "file failed")
}

func TestStoreSetFallsBackWhenPrimaryFails(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockSecretStore(t)
	fallback := portmocks.NewMockSecretStore(t)
	store := NewStore(primary, fallback)

	primary.EXPECT().Set(mock.Anything, "refresh_token", "rt").Return(errors.New("pass failed")).Once()
	fallback.EXPECT().Set(mock.Anything, "refresh_token", "rt").Return(nil).Once()

	require.NoError(t, store.Set(context.Background(), "refresh_token", "rt"))
}

func TestStoreSetDoesNotCallFallbackWhenPrimarySucceeds(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockSecretStore(t)
	fallback := portmocks.NewMockSecretStore(t)
	store := NewStore(primary, fallback)

	primary.EXPECT().Set(mock.Anything, "refresh_token", "rt").Return(nil).Once()

	require.NoError(t, store.Set(context.Background(), "refresh_token", "rt"))
}

func TestStoreRemoveTargetsBothBackends(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockSecretStore(t)
	fallback := portmocks.NewMockSecretStore(t)
	store := NewStore(primary, fallback)

	primary.EXPECT().Remove(mock.Anything, "auth_token").Return(nil).Once()
	fallback.EXPECT().Remove(mock.Anything, "auth_token").Return(nil).Once()

	require.NoError(t, store.Remove(context.Background(), "auth_token"))
}

func TestStoreRemoveIgnoresUnavailablePrimary(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockSecretStore(t)
	fallback := portmocks.NewMockSecretStore(t)
	store := NewStore(primary, fallback)

	primary.EXPECT().Remove(mock.Anything, "auth_token").Return(passstore.ErrUnavailable).Once()
	fallback.EXPECT().Remove(mock.Anything, "auth_token").Return(nil).Once()

	require.NoError(t, store.Remove(context.Background(), "auth_token"))
}

func TestStoreRemoveReportsBackendFailure(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockSecretStore(t)
	fallback := portmocks.NewMockSecretStore(t)
	store := NewStore(primary, fallback)

	primary.EXPECT().Remove(mock.Anything, "auth_token").Return(nil).Once()
	fallback.EXPECT().Remove(mock.Anything, "auth_token").Return(errors.New("read-only filesystem")).Once()

	err := store.Remove(context.Background(), "auth_token")
	require.Error(t, err)
	assert.ErrorContains(t, err, "fallback backend remove failed")
}

func TestStoreGetDoesNotFallbackOnCanceledContextError(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockSecretStore(t)
	fallback := portmocks.NewMockSecretStore(t)
	store := NewStore(primary, fallback)

	primary.EXPECT().Get(mock.Anything, "auth_token").Return("", context.Canceled).Once()

	_, err := store.Get(context.Background(), "auth_token")
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewStoreCheckedRejectsNilBackends(t *testing.T) {
	t.Parallel()

	_, err := NewStoreChecked(nil, portmocks.NewMockSecretStore(t))
	require.ErrorIs(t, err, errNilPrimaryStore)

	_, err = NewStoreChecked(portmocks.NewMockSecretStore(t), nil)
	require.ErrorIs(t, err, errNilFallbackStore)
}
