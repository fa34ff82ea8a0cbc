package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/amiyamandal-dev/spacesfeed/internal/client"
	"github.com/amiyamandal-dev/spacesfeed/internal/feed"
	"github.com/amiyamandal-dev/spacesfeed/internal/media"
	"github.com/amiyamandal-dev/spacesfeed/internal/validator"
)

// EnvPrefix prefixes every environment override, e.g. SPACES_SERVER_PORT
const EnvPrefix = "SPACES"

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig       `mapstructure:"server"`
	Storage   StorageConfig      `mapstructure:"storage"`
	Auth      AuthConfig         `mapstructure:"auth"`
	Search    SearchConfig       `mapstructure:"search"`
	Feed      FeedConfig         `mapstructure:"feed"`
	Media     media.WarmerConfig `mapstructure:"media"`
	Client    client.Config      `mapstructure:"client"`
	Logging   LoggingConfig      `mapstructure:"logging"`
	RateLimit RateLimitConfig    `mapstructure:"rate_limit"`
	CORS      CORSConfig         `mapstructure:"cors"`
	Metrics   MetricsConfig      `mapstructure:"metrics"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	Mode            string        `mapstructure:"mode" validate:"oneof=debug release test"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"mindur=1s"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"mindur=1s"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"mindur=1s"`
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig contains BadgerDB configuration. An empty path keeps
// everything in memory.
type StorageConfig struct {
	Path       string        `mapstructure:"path"`
	GCInterval time.Duration `mapstructure:"gc_interval" validate:"mindur=1m"`
}

// AuthConfig contains authentication configuration
type AuthConfig struct {
	JWTSecret          string        `mapstructure:"jwt_secret" validate:"required,min=32"`
	JWTExpiry          time.Duration `mapstructure:"jwt_expiry" validate:"mindur=1m"`
	RefreshTokenExpiry time.Duration `mapstructure:"refresh_token_expiry" validate:"mindur=1m"`
	BcryptCost         int           `mapstructure:"bcrypt_cost" validate:"min=10,max=31"`
}

// SearchConfig contains search index configuration. An empty path keeps
// the index in memory.
type SearchConfig struct {
	IndexPath string `mapstructure:"index_path"`
}

// FeedConfig tunes the feed and search controllers
type FeedConfig struct {
	PageSize          int           `mapstructure:"page_size"`
	PrefetchAhead     int           `mapstructure:"prefetch_ahead"`
	PrefetchBehind    int           `mapstructure:"prefetch_behind"`
	LoadMoreThreshold int           `mapstructure:"load_more_threshold"`
	LoadMoreDebounce  time.Duration `mapstructure:"load_more_debounce"`
	SearchDebounce    time.Duration `mapstructure:"search_debounce"`
	FetchTimeout      time.Duration `mapstructure:"fetch_timeout"`
	MailboxSize       int           `mapstructure:"mailbox_size"`
}

// Options converts the section to controller options
func (f FeedConfig) Options() feed.Options {
	return feed.Options{
		PageSize:          f.PageSize,
		PrefetchAhead:     f.PrefetchAhead,
		PrefetchBehind:    f.PrefetchBehind,
		LoadMoreThreshold: f.LoadMoreThreshold,
		LoadMoreDebounce:  f.LoadMoreDebounce,
		SearchDebounce:    f.SearchDebounce,
		FetchTimeout:      f.FetchTimeout,
		MailboxSize:       f.MailboxSize,
	}
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json text"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gt=0"`
	Burst             int     `mapstructure:"burst" validate:"min=1"`
}

// CORSConfig contains CORS configuration
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// MetricsConfig contains Prometheus exposition configuration
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Path      string `mapstructure:"path" validate:"startswith=/"`
	Namespace string `mapstructure:"namespace" validate:"required"`
}

// NewViper returns a viper instance with the config file locations,
// defaults and environment bindings set. Callers may bind flags to it
// before passing it to Load or LoadClient.
func NewViper() *viper.Viper {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load loads the server configuration.
// Priority: flags > ENV vars > config.yaml > defaults
func Load(v *viper.Viper) (*Config, error) {
	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadClient loads the configuration used by API clients, which need no
// server secrets
func LoadClient(v *viper.Viper) (*Config, error) {
	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}

	if err := validateClient(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func decode(v *viper.Viper) (*Config, error) {
	// the config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Storage defaults
	v.SetDefault("storage.path", "./data/badger")
	v.SetDefault("storage.gc_interval", "10m")

	// Auth defaults; the secret has no usable default but must be a
	// known key for SPACES_AUTH_JWT_SECRET to apply
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_expiry", "24h")
	v.SetDefault("auth.refresh_token_expiry", "168h") // 7 days
	v.SetDefault("auth.bcrypt_cost", 12)

	// Search defaults
	v.SetDefault("search.index_path", "./data/users.bleve")

	// Feed defaults
	opts := feed.DefaultOptions()
	v.SetDefault("feed.page_size", opts.PageSize)
	v.SetDefault("feed.prefetch_ahead", opts.PrefetchAhead)
	v.SetDefault("feed.prefetch_behind", opts.PrefetchBehind)
	v.SetDefault("feed.load_more_threshold", opts.LoadMoreThreshold)
	v.SetDefault("feed.load_more_debounce", opts.LoadMoreDebounce.String())
	v.SetDefault("feed.search_debounce", opts.SearchDebounce.String())
	v.SetDefault("feed.fetch_timeout", opts.FetchTimeout.String())
	v.SetDefault("feed.mailbox_size", opts.MailboxSize)

	// Media defaults
	warm := media.DefaultWarmerConfig()
	v.SetDefault("media.cache_size", warm.CacheSize)
	v.SetDefault("media.concurrency", warm.Concurrency)
	v.SetDefault("media.timeout", warm.Timeout.String())

	// Client defaults
	v.SetDefault("client.base_url", "http://localhost:8080")
	v.SetDefault("client.timeout", "15s")
	v.SetDefault("client.retry_max", 3)
	v.SetDefault("client.retry_wait_min", "200ms")
	v.SetDefault("client.retry_wait_max", "2s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Rate limit defaults
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 20)
	v.SetDefault("rate_limit.burst", 40)

	// CORS defaults
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "spacesfeed")
}

// validate validates the server configuration
func validate(cfg *Config) error {
	sections := []interface{}{
		cfg.Server,
		cfg.Storage,
		cfg.Auth,
		cfg.Logging,
		cfg.Metrics,
	}
	if cfg.RateLimit.Enabled {
		sections = append(sections, cfg.RateLimit)
	}
	for _, section := range sections {
		if err := validator.ValidateStruct(section); err != nil {
			return err
		}
	}

	if err := cfg.Feed.Options().Validate(); err != nil {
		return fmt.Errorf("feed: %w", err)
	}

	return nil
}

// validateClient validates the sections an API client uses
func validateClient(cfg *Config) error {
	for _, section := range []interface{}{cfg.Client, cfg.Media, cfg.Logging} {
		if err := validator.ValidateStruct(section); err != nil {
			return err
		}
	}

	if err := cfg.Feed.Options().Validate(); err != nil {
		return fmt.Errorf("feed: %w", err)
	}

	return nil
}
