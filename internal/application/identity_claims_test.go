package application

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeIdentityReadsStandardClaims(t *testing.T) {
	token := fakeJWT(`{"sub":"user-42","email":"ada@example.org","name":"Ada","picture":"https://img.example.org/ada.png","roles":["Admin","Editor"],"tenant":"acme","exp":1772366400}`)

	identity := DecodeIdentity(token)

	assert.Equal(t, "user-42", identity.ID)
	assert.Equal(t, "ada@example.org", identity.Email)
	assert.Equal(t, "Ada", identity.DisplayName)
	assert.Equal(t, "https://img.example.org/ada.png", identity.AvatarURL)
	assert.Equal(t, []string{"Admin", "Editor"}, identity.Roles)
	assert.True(t, identity.HasRole("admin"))
	assert.Equal(t, "acme", identity.Claims["tenant"])
	assert.Equal(t, "1772366400", identity.Claims["exp"])
}

func TestDecodeIdentityAcceptsSingleRoleString(t *testing.T) {
	identity := DecodeIdentity(fakeJWT(`{"sub":"u1","role":"Admin","roles":["admin","Viewer"]}`))

	assert.Equal(t, []string{"Admin", "Viewer"}, identity.Roles)
}

func TestDecodeIdentityFillsDefaultsForMissingClaims(t *testing.T) {
	identity := DecodeIdentity(fakeJWT(`{"preferred_username":"ada"}`))

	_, err := uuid.Parse(identity.ID)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", identity.Email)
	assert.Equal(t, "ada", identity.DisplayName)
	assert.Empty(t, identity.Roles)
	assert.False(t, identity.HasRole("User"))
}

func TestDecodeIdentityWithoutNameClaimsUsesDemoUser(t *testing.T) {
	identity := DecodeIdentity(fakeJWT(`{"sub":"u1","email":"ada@example.org"}`))

	assert.Equal(t, "u1", identity.ID)
	assert.Equal(t, "Demo User", identity.DisplayName)
	assert.Empty(t, identity.Roles)
}

func TestDecodeIdentityOpaqueTokenYieldsPlaceholder(t *testing.T) {
	identity := DecodeIdentity("opaque-access-token")

	_, err := uuid.Parse(identity.ID)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", identity.Email)
	assert.Equal(t, "Demo User", identity.DisplayName)
	assert.Equal(t, []string{"User"}, identity.Roles)
	assert.NotNil(t, identity.Claims)
}
