package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bnema/offline-session-cli/internal/domain"
	"github.com/bnema/offline-session-cli/internal/ports"
	"github.com/rs/zerolog"
)

const (
	secretKeyAccessToken  = "auth_token"
	secretKeyRefreshToken = "refresh_token"
	secretKeyExpiresAt    = "token_expires_at"
	prefKeyTokenType      = "token_type"
	prefKeyTokenScopes    = "token_scopes"
)

// TokenRepository persists a Session across the secret store (tokens and
// expiry) and the preference store (token type and scopes).
type TokenRepository struct {
	secrets ports.SecretStore
	prefs   ports.PreferenceStore
	clock   ports.Clock
	logger  zerolog.Logger
}

func NewTokenRepository(secrets ports.SecretStore, prefs ports.PreferenceStore, clock ports.Clock, logger zerolog.Logger) *TokenRepository {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &TokenRepository{
		secrets: secrets,
		prefs:   prefs,
		clock:   clock,
		logger:  logger,
	}
}

type storedValue struct {
	store   keyValueStore
	key     string
	value   string
	present bool
}

type keyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	Remove(ctx context.Context, key string) error
}

// Save writes access token, refresh token, expiry, token type and scopes in
// that order. When any write fails the values present before the call are
// put back and the write error is returned.
func (r *TokenRepository) Save(ctx context.Context, session domain.Session) error {
	session = session.Normalized()
	if session.AccessToken == "" {
		return errors.New("save session: access token is empty")
	}

	scopes, err := json.Marshal(session.Scopes)
	if err != nil {
		return fmt.Errorf("encode token scopes: %w", err)
	}

	writes := []storedValue{
		{store: r.secrets, key: secretKeyAccessToken, value: session.AccessToken},
		{store: r.secrets, key: secretKeyRefreshToken, value: session.RefreshToken},
		{store: r.secrets, key: secretKeyExpiresAt, value: session.ExpiresAt.Format(time.RFC3339Nano)},
		{store: r.prefs, key: prefKeyTokenType, value: session.TokenType},
		{store: r.prefs, key: prefKeyTokenScopes, value: string(scopes)},
	}

	previous := make([]storedValue, 0, len(writes))
	for _, write := range writes {
		snapshot, err := r.snapshot(ctx, write.store, write.key)
		if err != nil {
			return fmt.Errorf("read previous %s: %w", write.key, err)
		}
		previous = append(previous, snapshot)
	}

	for i, write := range writes {
		if err := write.store.Set(ctx, write.key, write.value); err != nil {
			writeErr := fmt.Errorf("store %s: %w", write.key, err)
			if rollbackErr := r.restore(ctx, previous[:i+1]); rollbackErr != nil {
				return fmt.Errorf("save session and rollback: %w", errors.Join(writeErr, rollbackErr))
			}
			return fmt.Errorf("save session: %w", writeErr)
		}
	}

	return nil
}

func (r *TokenRepository) snapshot(ctx context.Context, store keyValueStore, key string) (storedValue, error) {
	value, err := store.Get(ctx, key)
	switch {
	case err == nil:
		return storedValue{store: store, key: key, value: value, present: true}, nil
	case isNotFound(err):
		return storedValue{store: store, key: key}, nil
	default:
		return storedValue{}, err
	}
}

func (r *TokenRepository) restore(ctx context.Context, values []storedValue) error {
	ctx = context.WithoutCancel(ctx)

	var rollbackErr error
	for _, value := range values {
		var err error
		if value.present {
			err = value.store.Set(ctx, value.key, value.value)
		} else {
			err = value.store.Remove(ctx, value.key)
		}
		if err != nil {
			rollbackErr = errors.Join(rollbackErr, fmt.Errorf("restore %s: %w", value.key, err))
		}
	}

	return rollbackErr
}

// Load returns the stored session. It reports false when no usable session
// is stored; missing or corrupt token type and scopes fall back to defaults.
func (r *TokenRepository) Load(ctx context.Context) (domain.Session, bool) {
	accessToken, ok := r.secret(ctx, secretKeyAccessToken)
	if !ok || accessToken == "" {
		return domain.Session{}, false
	}

	refreshToken, _ := r.secret(ctx, secretKeyRefreshToken)

	rawExpiry, ok := r.secret(ctx, secretKeyExpiresAt)
	if !ok || rawExpiry == "" {
		r.logger.Warn().Str("key", secretKeyExpiresAt).Msg("stored session has no expiry; ignoring it")
		return domain.Session{}, false
	}

	expiresAt, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(rawExpiry))
	if err != nil {
		r.logger.Warn().Err(err).Str("key", secretKeyExpiresAt).Msg("stored session expiry is corrupt; ignoring it")
		return domain.Session{}, false
	}

	session := domain.Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
		TokenType:    r.preference(ctx, prefKeyTokenType),
		Scopes:       r.scopes(ctx),
	}

	return session.Normalized(), true
}

func (r *TokenRepository) secret(ctx context.Context, key string) (string, bool) {
	value, err := r.secrets.Get(ctx, key)
	if err != nil {
		if !isNotFound(err) {
			r.logger.Warn().Err(err).Str("key", key).Msg("read stored secret")
		}
		return "", false
	}

	return value, true
}

func (r *TokenRepository) preference(ctx context.Context, key string) string {
	value, err := r.prefs.Get(ctx, key)
	if err != nil {
		if !isNotFound(err) {
			r.logger.Warn().Err(err).Str("key", key).Msg("read stored preference")
		}
		return ""
	}

	return value
}

func (r *TokenRepository) scopes(ctx context.Context) []string {
	raw := r.preference(ctx, prefKeyTokenScopes)
	if raw == "" {
		return []string{}
	}

	var scopes []string
	if err := json.Unmarshal([]byte(raw), &scopes); err != nil {
		r.logger.Warn().Err(err).Str("key", prefKeyTokenScopes).Msg("stored token scopes are corrupt; using none")
		return []string{}
	}
	if scopes == nil {
		return []string{}
	}

	return scopes
}

// Clear removes every stored session key. It keeps going past failures and
// returns them joined; callers only log the result.
func (r *TokenRepository) Clear(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)

	removals := []struct {
		store keyValueStore
		key   string
	}{
		{store: r.secrets, key: secretKeyAccessToken},
		{store: r.secrets, key: secretKeyRefreshToken},
		{store: r.secrets, key: secretKeyExpiresAt},
		{store: r.prefs, key: prefKeyTokenType},
		{store: r.prefs, key: prefKeyTokenScopes},
	}

	var clearErr error
	for _, removal := range removals {
		if err := removal.store.Remove(ctx, removal.key); err != nil {
			clearErr = errors.Join(clearErr, fmt.Errorf("remove %s: %w", removal.key, err))
		}
	}

	return clearErr
}

func (r *TokenRepository) HasValidSession(ctx context.Context) bool {
	session, ok := r.Load(ctx)
	return ok && !session.IsExpired(r.clock.Now())
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrSecretNotFound) || errors.Is(err, domain.ErrPreferenceNotFound)
}
