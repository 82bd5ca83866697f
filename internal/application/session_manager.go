package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bnema/offline-session-cli/internal/domain"
	"github.com/bnema/offline-session-cli/internal/ports"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// RefreshFailurePolicy decides what happens to the current session when the
// identity provider rejects a refresh.
type RefreshFailurePolicy int

const (
	KeepSessionOnRefreshFailure RefreshFailurePolicy = iota
	InvalidateSessionOnRefreshFailure
)

type SessionState string

const (
	SessionUnauthenticated SessionState = "unauthenticated"
	SessionAuthenticating  SessionState = "authenticating"
	SessionAuthenticated   SessionState = "authenticated"
	SessionRefreshing      SessionState = "refreshing"
)

const refreshFlightKey = "refresh"

// DefaultRefreshTimeout bounds a shared refresh once it no longer follows the
// context of the caller that started it.
const DefaultRefreshTimeout = 30 * time.Second

type SessionManagerOptions struct {
	RefreshFailurePolicy RefreshFailurePolicy
	RefreshTimeout       time.Duration
	Metrics              Metrics
}

type authSnapshot struct {
	session  domain.Session
	identity domain.Identity
}

// SessionManager owns the authenticated session of the process. Login,
// refresh and logout are serialized; concurrent refresh callers share a
// single provider call.
type SessionManager struct {
	repo     *TokenRepository
	provider ports.IdentityProvider
	clock    ports.Clock
	logger   zerolog.Logger
	policy   RefreshFailurePolicy
	timeout  time.Duration
	metrics  Metrics

	mu      sync.Mutex
	flight  singleflight.Group
	current atomic.Pointer[authSnapshot]
	busy    atomic.Value

	// signedOut stops storage restores after Logout until the next Login.
	signedOut atomic.Bool
}

func NewSessionManager(repo *TokenRepository, provider ports.IdentityProvider, clock ports.Clock, logger zerolog.Logger, opts SessionManagerOptions) *SessionManager {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if opts.Metrics == nil {
		opts.Metrics = noopMetrics{}
	}
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = DefaultRefreshTimeout
	}

	return &SessionManager{
		repo:     repo,
		provider: provider,
		clock:    clock,
		logger:   logger,
		policy:   opts.RefreshFailurePolicy,
		timeout:  opts.RefreshTimeout,
		metrics:  opts.Metrics,
	}
}

func (m *SessionManager) Login(ctx context.Context, credentials domain.Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer m.setBusy(SessionAuthenticating)()

	session, err := m.provider.Login(ctx, credentials)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		m.logger.Warn().Err(err).Str("method", string(credentials.Method)).Msg("login rejected")
		return asAuthFailure("login", err)
	}

	session = session.Normalized()
	if err := m.repo.Save(ctx, session); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}

	m.signedOut.Store(false)
	m.publish(session)
	m.logger.Info().Str("method", string(credentials.Method)).Msg("logged in")

	return nil
}

// Refresh exchanges the refresh token for a new session. Callers that
// arrive while a refresh is running wait for it and receive its result.
// The shared refresh is not canceled when one caller goes away; each caller
// stops waiting when its own ctx ends.
func (m *SessionManager) Refresh(ctx context.Context) (domain.Session, error) {
	return m.refreshShared(ctx, "")
}

// refreshShared joins or starts the shared refresh. A non-empty stale token
// names the access token the caller found expired; if the held session has
// moved on to a valid one in the meantime it is returned without calling the
// provider.
func (m *SessionManager) refreshShared(ctx context.Context, stale string) (domain.Session, error) {
	resultCh := m.flight.DoChan(refreshFlightKey, func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
		defer cancel()
		return m.refresh(flightCtx, stale)
	})

	select {
	case result := <-resultCh:
		if result.Err != nil {
			return domain.Session{}, result.Err
		}
		return result.Val.(domain.Session), nil
	case <-ctx.Done():
		return domain.Session{}, ctx.Err()
	}
}

func (m *SessionManager) refresh(ctx context.Context, stale string) (domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer m.setBusy(SessionRefreshing)()

	current, ok := m.sessionLocked(ctx)
	if !ok || !current.HasRefreshToken() {
		m.metrics.ObserveRefresh(RefreshNoRefreshToken)
		return domain.Session{}, domain.ErrNoRefreshToken
	}
	if stale != "" && current.AccessToken != stale && !current.IsExpired(m.clock.Now()) {
		return current, nil
	}

	fresh, err := m.provider.Refresh(ctx, current.RefreshToken)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.Session{}, ctxErr
		}

		m.logger.Warn().Err(err).Msg("session refresh rejected")
		if m.policy == InvalidateSessionOnRefreshFailure {
			m.current.Store(nil)
			if clearErr := m.repo.Clear(ctx); clearErr != nil {
				m.logger.Warn().Err(clearErr).Msg("clear stored session after failed refresh")
			}
			m.metrics.ObserveRefresh(RefreshSessionDiscarded)
		} else {
			m.metrics.ObserveRefresh(RefreshFailed)
		}

		return domain.Session{}, asAuthFailure("refresh", err)
	}

	fresh = fresh.WithFallbackRefreshToken(current).Normalized()
	if err := m.repo.Save(ctx, fresh); err != nil {
		m.metrics.ObserveRefresh(RefreshFailed)
		return domain.Session{}, fmt.Errorf("persist refreshed session: %w", err)
	}

	m.publish(fresh)
	m.metrics.ObserveRefresh(RefreshSucceeded)
	m.logger.Debug().Time("expires_at", fresh.ExpiresAt).Msg("session refreshed")

	return fresh, nil
}

// Logout drops the in-memory session and then clears storage. Storage
// failures are logged only.
func (m *SessionManager) Logout(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.signedOut.Store(true)
	m.current.Store(nil)
	if err := m.repo.Clear(ctx); err != nil {
		m.logger.Warn().Err(err).Msg("clear stored session on logout")
	}
}

// Restore loads the stored session into memory when none is held yet. It
// reports whether a session is held afterwards.
func (m *SessionManager) Restore(ctx context.Context) bool {
	if m.current.Load() != nil {
		return true
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.sessionLocked(ctx)
	return ok
}

// CurrentIdentity returns the identity of the held session, restoring it
// from storage when needed. It never calls the identity provider.
func (m *SessionManager) CurrentIdentity(ctx context.Context) (domain.Identity, bool) {
	_, identity, ok := m.Current(ctx)
	return identity, ok
}

// Current returns the held session together with the identity decoded from
// it, restoring from storage when needed. Both come from the same snapshot.
func (m *SessionManager) Current(ctx context.Context) (domain.Session, domain.Identity, bool) {
	if !m.Restore(ctx) {
		return domain.Session{}, domain.Identity{}, false
	}

	snapshot := m.current.Load()
	if snapshot == nil {
		return domain.Session{}, domain.Identity{}, false
	}

	return snapshot.session, snapshot.identity, true
}

// CurrentSession returns the in-memory session without touching storage.
func (m *SessionManager) CurrentSession() (domain.Session, bool) {
	snapshot := m.current.Load()
	if snapshot == nil {
		return domain.Session{}, false
	}

	return snapshot.session, true
}

// IsAuthenticated reports whether a session is held in memory. Expiry is not
// considered.
func (m *SessionManager) IsAuthenticated() bool {
	return m.current.Load() != nil
}

func (m *SessionManager) State() SessionState {
	if busy, ok := m.busy.Load().(SessionState); ok && busy != "" {
		return busy
	}
	if m.IsAuthenticated() {
		return SessionAuthenticated
	}

	return SessionUnauthenticated
}

// Authorize returns the Authorization header value for a remote call,
// refreshing first when the held session has expired.
func (m *SessionManager) Authorize(ctx context.Context) (string, error) {
	if !m.Restore(ctx) {
		return "", domain.ErrNotAuthenticated
	}

	snapshot := m.current.Load()
	if snapshot == nil {
		return "", domain.ErrNotAuthenticated
	}
	if !snapshot.session.IsExpired(m.clock.Now()) {
		return snapshot.session.AuthorizationHeader(), nil
	}

	m.logger.Debug().Time("expires_at", snapshot.session.ExpiresAt).Msg("access token expired; refreshing")
	session, err := m.refreshShared(ctx, snapshot.session.AccessToken)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("%w: %w", domain.ErrTokenExpired, err)
	}

	return session.AuthorizationHeader(), nil
}

func (m *SessionManager) sessionLocked(ctx context.Context) (domain.Session, bool) {
	if snapshot := m.current.Load(); snapshot != nil {
		return snapshot.session, true
	}
	if m.signedOut.Load() {
		return domain.Session{}, false
	}

	session, ok := m.repo.Load(ctx)
	if !ok {
		return domain.Session{}, false
	}

	m.publish(session)
	return session, true
}

func (m *SessionManager) publish(session domain.Session) {
	m.current.Store(&authSnapshot{
		session:  session,
		identity: DecodeIdentity(session.AccessToken),
	})
}

func (m *SessionManager) setBusy(state SessionState) func() {
	m.busy.Store(state)
	return func() { m.busy.Store(SessionState("")) }
}

func asAuthFailure(op string, err error) error {
	if errors.Is(err, domain.ErrAuthFailure) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return fmt.Errorf("%s: %w: %w", op, domain.ErrAuthFailure, err)
}
