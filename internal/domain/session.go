package domain

import (
	"strings"
	"time"
)

// ExpirySkew is subtracted from ExpiresAt when deciding whether a session
// has expired.
const ExpirySkew = 5 * time.Minute

const DefaultTokenType = "Bearer"

type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	TokenType    string
	Scopes       []string
}

// IsExpired reports whether now is at or past ExpiresAt minus ExpirySkew.
func (s Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt.Add(-ExpirySkew))
}

func (s Session) HasRefreshToken() bool {
	return strings.TrimSpace(s.RefreshToken) != ""
}

func (s Session) AuthorizationHeader() string {
	tokenType := s.TokenType
	if tokenType == "" {
		tokenType = DefaultTokenType
	}

	return tokenType + " " + s.AccessToken
}

// WithFallbackRefreshToken keeps the refresh token of previous when the
// provider did not rotate it.
func (s Session) WithFallbackRefreshToken(previous Session) Session {
	if s.RefreshToken == "" {
		s.RefreshToken = previous.RefreshToken
	}

	return s
}

// Normalized fills the defaults a stored session is expected to carry.
func (s Session) Normalized() Session {
	if s.TokenType == "" {
		s.TokenType = DefaultTokenType
	}
	if s.Scopes == nil {
		s.Scopes = []string{}
	}
	s.ExpiresAt = s.ExpiresAt.UTC()

	return s
}
