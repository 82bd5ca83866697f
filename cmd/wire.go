package cmd

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	authadapter "github.com/bnema/offline-session-cli/internal/adapters/auth"
	sqlitecache "github.com/bnema/offline-session-cli/internal/adapters/cache/sqlite"
	"github.com/bnema/offline-session-cli/internal/adapters/metrics/prom"
	tomlprefs "github.com/bnema/offline-session-cli/internal/adapters/prefs/toml"
	"github.com/bnema/offline-session-cli/internal/adapters/remote/rest"
	chainstore "github.com/bnema/offline-session-cli/internal/adapters/secrets/chain"
	filestore "github.com/bnema/offline-session-cli/internal/adapters/secrets/file"
	"github.com/bnema/offline-session-cli/internal/application"
	"github.com/bnema/offline-session-cli/internal/config"
	"github.com/bnema/offline-session-cli/internal/logging"
	"github.com/bnema/offline-session-cli/internal/ports"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

type app struct {
	cfg      config.Config
	logger   zerolog.Logger
	sessions *application.SessionManager
	records  *application.DataSyncCoordinator
	metrics  *prom.Metrics
	cache    *sqlitecache.Cache
	now      func() time.Time

	announceMu  sync.Mutex
	announceOut io.Writer
}

func wireApp() (*app, error) {
	cfg, err := config.Load(viper.New())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := logging.New(cfg.Log.Level, os.Stderr)

	secretStore, err := wireSecretStore(cfg.Secrets)
	if err != nil {
		return nil, err
	}

	prefsConfig := viper.New()
	prefsConfig.Set(tomlprefs.PathKey, cfg.Prefs.Path)
	prefStore, err := tomlprefs.NewStore(prefsConfig)
	if err != nil {
		return nil, fmt.Errorf("wire preference store: %w", err)
	}

	cache, err := sqlitecache.Open(cfg.Cache.Path)
	if err != nil {
		return nil, fmt.Errorf("wire record cache: %w", err)
	}

	httpClient := &http.Client{Timeout: cfg.API.Timeout}
	remote, err := rest.NewClient(cfg.API.BaseURL, httpClient, logger.With().Str("component", "remote").Logger())
	if err != nil {
		_ = cache.Close()
		return nil, fmt.Errorf("wire remote data source: %w", err)
	}

	a := &app{
		cfg:         cfg,
		logger:      logger,
		metrics:     prom.New(),
		cache:       cache,
		now:         time.Now,
		announceOut: os.Stdout,
	}

	provider := authadapter.NewProvider(authConfig(cfg.Auth), logger.With().Str("component", "auth").Logger(),
		authadapter.WithHTTPClient(httpClient),
		authadapter.WithAnnounce(a.announce),
	)

	clock := ports.SystemClock{}
	repo := application.NewTokenRepository(secretStore, prefStore, clock, logger)
	a.sessions = application.NewSessionManager(repo, provider, clock, logger.With().Str("component", "session").Logger(), application.SessionManagerOptions{
		RefreshFailurePolicy: refreshPolicy(cfg.Auth.RefreshFailurePolicy),
		RefreshTimeout:       cfg.API.Timeout,
		Metrics:              a.metrics,
	})
	a.records = application.NewDataSyncCoordinator(remote, cache, a.sessions, clock, logger.With().Str("component", "sync").Logger(), application.DataSyncOptions{
		Timeout: cfg.API.Timeout,
		Metrics: a.metrics,
	})

	return a, nil
}

func wireSecretStore(cfg config.SecretsConfig) (ports.SecretStore, error) {
	if cfg.Backend == config.SecretsBackendFile {
		return filestore.NewStore(cfg.Path), nil
	}

	store, err := chainstore.NewPassFirstWithFileFallback(cfg.PassPrefix, cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("wire secret store chain: %w", err)
	}
	return store, nil
}

func authConfig(cfg config.AuthConfig) authadapter.Config {
	providers := make(map[string]authadapter.FederatedProvider, len(cfg.Providers))
	for name, provider := range cfg.Providers {
		providers[name] = authadapter.FederatedProvider{
			Issuer:       provider.Issuer,
			ClientID:     provider.ClientID,
			ClientSecret: provider.ClientSecret,
			Scopes:       provider.Scopes,
		}
	}

	return authadapter.Config{
		AuthURL:      cfg.AuthURL,
		TokenURL:     cfg.TokenURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       cfg.Scopes,
		ListenAddr:   cfg.ListenAddr,
		LoginTimeout: cfg.LoginTimeout,
		Providers:    providers,
	}
}

func refreshPolicy(policy string) application.RefreshFailurePolicy {
	if policy == config.RefreshPolicyInvalidate {
		return application.InvalidateSessionOnRefreshFailure
	}
	return application.KeepSessionOnRefreshFailure
}

// announce prints the browser login URL to the writer of the running command.
func (a *app) announce(authURL string) {
	a.announceMu.Lock()
	defer a.announceMu.Unlock()

	_, _ = fmt.Fprintf(a.announceOut, "Open this URL to sign in:\n%s\n", authURL)
}

func (a *app) setAnnounceOutput(w io.Writer) {
	a.announceMu.Lock()
	defer a.announceMu.Unlock()

	a.announceOut = w
}

func (a *app) close() error {
	return a.cache.Close()
}
