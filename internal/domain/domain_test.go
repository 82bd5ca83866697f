package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionIsExpiredBoundaries(t *testing.T) {
	expiresAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := Session{AccessToken: "at", ExpiresAt: expiresAt}

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{name: "well before skew", now: expiresAt.Add(-time.Hour), want: false},
		{name: "one second before skew", now: expiresAt.Add(-ExpirySkew - time.Second), want: false},
		{name: "exactly at skew", now: expiresAt.Add(-ExpirySkew), want: true},
		{name: "inside skew", now: expiresAt.Add(-time.Minute), want: true},
		{name: "past expiry", now: expiresAt.Add(time.Second), want: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, s.IsExpired(tc.now))
		})
	}
}

func TestSessionAuthorizationHeaderDefaultsToBearer(t *testing.T) {
	assert.Equal(t, "Bearer at", Session{AccessToken: "at"}.AuthorizationHeader())
	assert.Equal(t, "DPoP at", Session{AccessToken: "at", TokenType: "DPoP"}.AuthorizationHeader())
}

func TestSessionWithFallbackRefreshToken(t *testing.T) {
	previous := Session{RefreshToken: "rt-old"}

	kept := Session{AccessToken: "at2"}.WithFallbackRefreshToken(previous)
	assert.Equal(t, "rt-old", kept.RefreshToken)

	rotated := Session{AccessToken: "at2", RefreshToken: "rt-new"}.WithFallbackRefreshToken(previous)
	assert.Equal(t, "rt-new", rotated.RefreshToken)
}

func TestSessionNormalizedFillsDefaults(t *testing.T) {
	local := time.Date(2026, 3, 1, 13, 0, 0, 0, time.FixedZone("CET", 3600))

	s := Session{AccessToken: "at", ExpiresAt: local}.Normalized()

	assert.Equal(t, DefaultTokenType, s.TokenType)
	require.NotNil(t, s.Scopes)
	assert.Empty(t, s.Scopes)
	assert.Equal(t, time.UTC, s.ExpiresAt.Location())
	assert.True(t, s.ExpiresAt.Equal(local))
}

func TestIdentityHasRoleIsCaseInsensitive(t *testing.T) {
	identity := Identity{Roles: []string{"Admin", "User"}}

	assert.True(t, identity.HasRole("admin"))
	assert.True(t, identity.HasRole("USER"))
	assert.False(t, identity.HasRole("owner"))
	assert.False(t, Identity{}.HasRole("user"))
}

func TestCollectionKeyValidate(t *testing.T) {
	require.NoError(t, CollectionKey("items").Validate())
	require.NoError(t, CollectionKey("team_notes-2").Validate())

	for _, bad := range []CollectionKey{"", "items;drop", "../items", "a b"} {
		err := bad.Validate()
		require.Error(t, err, "key %q", bad)
		assert.ErrorIs(t, err, ErrInvalidCollection)
	}
}

func TestRecordValidateRequiresTitle(t *testing.T) {
	require.NoError(t, Record{Title: "Groceries"}.Validate())
	assert.ErrorIs(t, Record{Title: "  "}.Validate(), ErrValidation)
}

func TestCachedRecordConversionsPreserveOrder(t *testing.T) {
	cachedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	records := []Record{{ID: "b"}, {ID: "a"}, {ID: "c"}}

	cached := NewCachedRecords(records, cachedAt)
	require.Len(t, cached, 3)
	for _, entry := range cached {
		assert.Equal(t, cachedAt, entry.CachedAt)
	}

	assert.Equal(t, records, RecordsFromCache(cached))
}

func TestStorageErrorMatchesSentinel(t *testing.T) {
	cause := errors.New("disk full")
	err := error(&StorageError{Op: "replace", Collection: "items", Err: cause})

	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), `cache replace "items": disk full`)
}
