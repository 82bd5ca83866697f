package toml

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/bnema/offline-session-cli/internal/domain"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, path string) *Store {
	t.Helper()

	cfg := viper.New()
	cfg.Set(PathKey, path)
	store, err := NewStore(cfg)
	require.NoError(t, err)
	return store
}

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, filepath.Join(t.TempDir(), "preferences.toml"))

	require.NoError(t, store.Set(context.Background(), "token_type", "Bearer"))
	require.NoError(t, store.Set(context.Background(), "token_scopes", `["read","write"]`))

	got, err := store.Get(context.Background(), "token_scopes")
	require.NoError(t, err)
	assert.Equal(t, `["read","write"]`, got)
}

func TestStoreMissingKeyAndMissingFile(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, filepath.Join(t.TempDir(), "missing", "preferences.toml"))

	_, err := store.Get(context.Background(), "token_type")
	require.ErrorIs(t, err, domain.ErrPreferenceNotFound)

	require.NoError(t, store.Remove(context.Background(), "token_type"))
}

func TestStoreRemoveDeletesKey(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, filepath.Join(t.TempDir(), "preferences.toml"))
	require.NoError(t, store.Set(context.Background(), "token_type", "Bearer"))

	require.NoError(t, store.Remove(context.Background(), "token_type"))
	require.NoError(t, store.Remove(context.Background(), "token_type"))

	_, err := store.Get(context.Background(), "token_type")
	require.ErrorIs(t, err, domain.ErrPreferenceNotFound)
}

func TestStoreDefaultPathUnderHomeAndPermissions(t *testing.T) {
	homeDir := t.TempDir()
	t.Setenv("HOME", homeDir)

	store, err := NewStore(viper.New())
	require.NoError(t, err)
	require.NoError(t, store.Set(context.Background(), "token_type", "Bearer"))

	info, err := os.Stat(filepath.Join(homeDir, ".ofs", "preferences.toml"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestStoreSerializedTOMLIncludesVersion(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "preferences.toml")
	store := newTestStore(t, path)
	require.NoError(t, store.Set(context.Background(), "token_type", "Bearer"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "version = 1")
	assert.Contains(t, string(data), "[preferences]")
}

func TestStoreMalformedTOMLReturnsError(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "preferences.toml")
	require.NoError(t, os.WriteFile(path, []byte("preferences = ["), 0o600))

	_, err := newTestStore(t, path).Get(context.Background(), "token_type")
	require.Error(t, err)
	assert.ErrorContains(t, err, "decode preferences file")
}

func TestStoreFutureSchemaVersionReturnsError(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "preferences.toml")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join([]string{
		"version = 999",
		"",
		"[preferences]",
		"",
	}, "\n")), 0o600))

	_, err := newTestStore(t, path).Get(context.Background(), "token_type")
	require.Error(t, err)
	assert.ErrorContains(t, err, "unsupported preferences schema version")
}

func TestStoreCanceledContextReturnsContextError(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, filepath.Join(t.TempDir(), "preferences.toml"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Set(ctx, "token_type", "Bearer")
	require.ErrorIs(t, err, context.Canceled)
}

func TestStoreConcurrentWritesAcrossInstancesPreserveAllKeys(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "preferences.toml")
	storeA := newTestStore(t, path)
	storeB := newTestStore(t, path)

	const perStoreWrites = 50
	start := make(chan struct{})
	errCh := make(chan error, perStoreWrites*2)
	var wg sync.WaitGroup
	wg.Add(2)

	write := func(store *Store, prefix string) {
		defer wg.Done()
		<-start
		for i := 0; i < perStoreWrites; i++ {
			errCh <- store.Set(context.Background(), prefix+strconv.Itoa(i), "v")
		}
	}
	go write(storeA, "a-")
	go write(storeB, "b-")

	close(start)
	wg.Wait()
	close(errCh)

	for err := range errCh {
		require.NoError(t, err)
	}

	file, err := storeA.readSchema()
	require.NoError(t, err)
	assert.Len(t, file.Preferences, perStoreWrites*2)
}
