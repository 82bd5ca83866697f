package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bnema/offline-session-cli/internal/domain"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// DefaultTokenLifetime applies when the token endpoint omits expires_in.
const DefaultTokenLifetime = time.Hour

var ErrUnknownProvider = errors.New("unknown identity provider")

type FederatedProvider struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

type Config struct {
	AuthURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string

	// ListenAddr is the loopback address of the browser login callback.
	ListenAddr   string
	LoginTimeout time.Duration
	Providers    map[string]FederatedProvider
}

// Provider is an OAuth 2 identity provider. Password logins use the resource
// owner password grant; federated logins run an authorization code flow with
// PKCE through the user's browser.
type Provider struct {
	cfg        Config
	httpClient *http.Client
	announce   func(authURL string)
	now        func() time.Time
	logger     zerolog.Logger
}

type Option func(*Provider)

func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = client
	}
}

// WithAnnounce sets the function that shows the authorization URL of a
// federated login to the user.
func WithAnnounce(announce func(authURL string)) Option {
	return func(p *Provider) {
		p.announce = announce
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		p.now = now
	}
}

func NewProvider(cfg Config, logger zerolog.Logger, opts ...Option) *Provider {
	if cfg.LoginTimeout <= 0 {
		cfg.LoginTimeout = 5 * time.Minute
	}

	p := &Provider{
		cfg:        cfg,
		httpClient: http.DefaultClient,
		announce:   func(string) {},
		now:        time.Now,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

func (p *Provider) Login(ctx context.Context, credentials domain.Credentials) (domain.Session, error) {
	switch credentials.Method {
	case domain.LoginMethodPassword, "":
		return p.passwordLogin(ctx, credentials)
	case domain.LoginMethodFederated:
		return p.federatedLogin(ctx, credentials.Provider)
	default:
		return domain.Session{}, fmt.Errorf("%w: unsupported login method %q", domain.ErrValidation, credentials.Method)
	}
}

func (p *Provider) passwordLogin(ctx context.Context, credentials domain.Credentials) (domain.Session, error) {
	if strings.TrimSpace(credentials.Username) == "" || credentials.Password == "" {
		return domain.Session{}, fmt.Errorf("%w: username and password are required", domain.ErrValidation)
	}

	conf := p.defaultConfig()
	token, err := conf.PasswordCredentialsToken(p.clientContext(ctx), credentials.Username, credentials.Password)
	if err != nil {
		return domain.Session{}, mapTokenError("password grant", err)
	}

	return p.toSession(token, conf.Scopes), nil
}

func (p *Provider) Refresh(ctx context.Context, refreshToken string) (domain.Session, error) {
	if refreshToken == "" {
		return domain.Session{}, domain.ErrNoRefreshToken
	}

	conf := p.defaultConfig()
	// An empty access token is never valid, so the source always hits the
	// token endpoint.
	source := conf.TokenSource(p.clientContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		return domain.Session{}, mapTokenError("refresh grant", err)
	}

	return p.toSession(token, conf.Scopes), nil
}

func (p *Provider) federatedLogin(ctx context.Context, name string) (domain.Session, error) {
	conf, err := p.federatedConfig(ctx, name)
	if err != nil {
		return domain.Session{}, err
	}

	state, err := NewState()
	if err != nil {
		return domain.Session{}, fmt.Errorf("generate oauth state: %w", err)
	}

	callback, err := StartCallbackServer(p.cfg.ListenAddr, state)
	if err != nil {
		return domain.Session{}, err
	}
	defer func() { _ = callback.Close() }()

	conf.RedirectURL = callback.RedirectURI()
	verifier := oauth2.GenerateVerifier()
	p.announce(conf.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier)))

	code, err := callback.WaitForCode(ctx, p.cfg.LoginTimeout)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.Session{}, ctxErr
		}
		return domain.Session{}, fmt.Errorf("%w: %w", domain.ErrAuthFailure, err)
	}

	token, err := conf.Exchange(p.clientContext(ctx), code, oauth2.VerifierOption(verifier))
	if err != nil {
		return domain.Session{}, mapTokenError("code exchange", err)
	}

	p.logger.Debug().Str("provider", name).Msg("federated login completed")
	return p.toSession(token, conf.Scopes), nil
}

// federatedConfig resolves a named provider through OIDC discovery. An empty
// name uses the default authorization server.
func (p *Provider) federatedConfig(ctx context.Context, name string) (*oauth2.Config, error) {
	if name == "" {
		return p.defaultConfig(), nil
	}

	federated, ok := p.cfg.Providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}

	discovered, err := oidc.NewProvider(p.clientContext(ctx), federated.Issuer)
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", name, err)
	}

	scopes := federated.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email", oidc.ScopeOfflineAccess}
	}

	return &oauth2.Config{
		ClientID:     federated.ClientID,
		ClientSecret: federated.ClientSecret,
		Endpoint:     discovered.Endpoint(),
		Scopes:       scopes,
	}, nil
}

func (p *Provider) defaultConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.cfg.ClientID,
		ClientSecret: p.cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  p.cfg.AuthURL,
			TokenURL: p.cfg.TokenURL,
		},
		Scopes: p.cfg.Scopes,
	}
}

func (p *Provider) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}

func (p *Provider) toSession(token *oauth2.Token, requested []string) domain.Session {
	expiresAt := token.Expiry
	if expiresAt.IsZero() {
		expiresAt = p.now().Add(DefaultTokenLifetime)
	}

	scopes := requested
	if granted, ok := token.Extra("scope").(string); ok && strings.TrimSpace(granted) != "" {
		scopes = strings.Fields(granted)
	}

	session := domain.Session{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    expiresAt,
		TokenType:    token.Type(),
		Scopes:       append([]string(nil), scopes...),
	}

	return session.Normalized()
}

func mapTokenError(op string, err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		reason := retrieveErr.ErrorCode
		if reason == "" {
			reason = fmt.Sprintf("status %d", retrieveErr.Response.StatusCode)
		}
		return fmt.Errorf("%s: %w: %s", op, domain.ErrAuthFailure, reason)
	}

	return fmt.Errorf("%s: %w", op, err)
}
