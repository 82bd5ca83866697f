package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	configName     = "config"
	configType     = "toml"
	envPrefix      = "OFS"
	defaultDataDir = ".ofs"

	RefreshPolicyKeep       = "keep"
	RefreshPolicyInvalidate = "invalidate"

	SecretsBackendAuto = "auto"
	SecretsBackendFile = "file"
)

type Config struct {
	DataDir string        `mapstructure:"data_dir"`
	Log     LogConfig     `mapstructure:"log"`
	API     APIConfig     `mapstructure:"api"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Prefs   PrefsConfig   `mapstructure:"prefs"`
	Secrets SecretsConfig `mapstructure:"secrets"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type AuthConfig struct {
	TokenURL             string                    `mapstructure:"token_url"`
	AuthURL              string                    `mapstructure:"auth_url"`
	ClientID             string                    `mapstructure:"client_id"`
	ClientSecret         string                    `mapstructure:"client_secret"`
	Scopes               []string                  `mapstructure:"scopes"`
	ListenAddr           string                    `mapstructure:"listen_addr"`
	LoginTimeout         time.Duration             `mapstructure:"login_timeout"`
	RefreshFailurePolicy string                    `mapstructure:"refresh_failure_policy"`
	Providers            map[string]ProviderConfig `mapstructure:"providers"`
}

// ProviderConfig describes a federated OpenID Connect provider reached
// through the browser login flow.
type ProviderConfig struct {
	Issuer       string   `mapstructure:"issuer"`
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	Scopes       []string `mapstructure:"scopes"`
}

type CacheConfig struct {
	Path string `mapstructure:"path"`
}

type PrefsConfig struct {
	Path string `mapstructure:"path"`
}

type SecretsConfig struct {
	// Backend is "auto" (pass with file fallback) or "file".
	Backend    string `mapstructure:"backend"`
	Path       string `mapstructure:"path"`
	PassPrefix string `mapstructure:"pass_prefix"`
}

// Load reads config.toml from the data directory and OFS_* environment
// variables into cfg. A missing config file is not an error.
func Load(v *viper.Viper) (Config, error) {
	if v == nil {
		v = viper.New()
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("resolve home directory: %w", err)
	}
	v.SetDefault("data_dir", filepath.Join(homeDir, defaultDataDir))
	dataDir := v.GetString("data_dir")

	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath(dataDir)
	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	setDefaults(v, dataDir)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, dataDir string) {
	v.SetDefault("log.level", "warn")
	v.SetDefault("api.base_url", "https://api.example.com")
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("auth.token_url", "https://auth.example.com/oauth/token")
	v.SetDefault("auth.auth_url", "https://auth.example.com/oauth/authorize")
	v.SetDefault("auth.client_id", "ofs-cli")
	v.SetDefault("auth.client_secret", "")
	v.SetDefault("auth.scopes", []string{"openid", "profile", "email", "offline_access"})
	v.SetDefault("auth.listen_addr", "127.0.0.1:1455")
	v.SetDefault("auth.login_timeout", 5*time.Minute)
	v.SetDefault("auth.refresh_failure_policy", RefreshPolicyKeep)
	v.SetDefault("cache.path", filepath.Join(dataDir, "cache.db"))
	v.SetDefault("prefs.path", filepath.Join(dataDir, "preferences.toml"))
	v.SetDefault("secrets.path", filepath.Join(dataDir, "secrets"))
	v.SetDefault("secrets.backend", SecretsBackendAuto)
	v.SetDefault("secrets.pass_prefix", "ofs/")
}

func (c Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive, got %s", c.API.Timeout)
	}

	switch c.Auth.RefreshFailurePolicy {
	case RefreshPolicyKeep, RefreshPolicyInvalidate:
	default:
		return fmt.Errorf("auth.refresh_failure_policy must be %q or %q, got %q", RefreshPolicyKeep, RefreshPolicyInvalidate, c.Auth.RefreshFailurePolicy)
	}

	switch c.Secrets.Backend {
	case SecretsBackendAuto, SecretsBackendFile:
	default:
		return fmt.Errorf("secrets.backend must be %q or %q, got %q", SecretsBackendAuto, SecretsBackendFile, c.Secrets.Backend)
	}

	for name, provider := range c.Auth.Providers {
		if provider.Issuer == "" || provider.ClientID == "" {
			return fmt.Errorf("auth.providers.%s requires issuer and client_id", name)
		}
	}

	return nil
}
