package application

import (
	"encoding/json"
	"strings"

	"github.com/bnema/offline-session-cli/internal/domain"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	placeholderEmail       = "user@example.com"
	placeholderDisplayName = "Demo User"
	defaultRole            = "User"
)

// DecodeIdentity reads identity claims from an access token without
// verifying its signature. Tokens that are not JWTs produce a placeholder
// identity with the default role; decodable tokens carry only the roles
// they claim.
func DecodeIdentity(accessToken string) domain.Identity {
	token, _, err := jwtlib.NewParser().ParseUnverified(accessToken, jwtlib.MapClaims{})
	if err != nil {
		return placeholderIdentity()
	}

	claims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok {
		return placeholderIdentity()
	}

	identity := domain.Identity{
		ID:          stringClaim(claims, "sub"),
		Email:       stringClaim(claims, "email"),
		DisplayName: stringClaim(claims, "name"),
		AvatarURL:   stringClaim(claims, "picture"),
		Roles:       rolesClaim(claims),
		Claims:      flattenClaims(claims),
	}

	if identity.ID == "" {
		identity.ID = uuid.NewString()
	}
	if identity.Email == "" {
		identity.Email = placeholderEmail
	}
	if identity.DisplayName == "" {
		identity.DisplayName = firstNonEmpty(stringClaim(claims, "preferred_username"), placeholderDisplayName)
	}
	return identity
}

func placeholderIdentity() domain.Identity {
	return domain.Identity{
		ID:          uuid.NewString(),
		Email:       placeholderEmail,
		DisplayName: placeholderDisplayName,
		Roles:       []string{defaultRole},
		Claims:      map[string]string{},
	}
}

func stringClaim(claims jwtlib.MapClaims, name string) string {
	value, _ := claims[name].(string)
	return strings.TrimSpace(value)
}

func rolesClaim(claims jwtlib.MapClaims) []string {
	roles := []string{}
	for _, name := range []string{"role", "roles"} {
		switch value := claims[name].(type) {
		case string:
			for _, role := range strings.Fields(strings.ReplaceAll(value, ",", " ")) {
				roles = appendUnique(roles, role)
			}
		case []any:
			for _, entry := range value {
				if role, ok := entry.(string); ok && strings.TrimSpace(role) != "" {
					roles = appendUnique(roles, strings.TrimSpace(role))
				}
			}
		}
	}

	return roles
}

func appendUnique(roles []string, role string) []string {
	for _, existing := range roles {
		if strings.EqualFold(existing, role) {
			return roles
		}
	}

	return append(roles, role)
}

func flattenClaims(claims jwtlib.MapClaims) map[string]string {
	flat := make(map[string]string, len(claims))
	for key, raw := range claims {
		switch value := raw.(type) {
		case string:
			flat[key] = value
		case nil:
		default:
			encoded, err := json.Marshal(value)
			if err == nil {
				flat[key] = string(encoded)
			}
		}
	}

	return flat
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}

	return ""
}
