// Package apptest builds in-memory servers for tests.
package apptest

import (
	"context"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/amiyamandal-dev/spacesfeed/internal/app"
	"github.com/amiyamandal-dev/spacesfeed/internal/config"
	"github.com/amiyamandal-dev/spacesfeed/internal/feed"
	"github.com/amiyamandal-dev/spacesfeed/pkg/logger"
)

// Config returns an in-memory configuration for tests
func Config() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Mode: "test"},
		Auth: config.AuthConfig{
			JWTSecret:          "test-secret-that-is-at-least-32-chars",
			JWTExpiry:          time.Hour,
			RefreshTokenExpiry: 24 * time.Hour,
			BcryptCost:         bcrypt.MinCost,
		},
		Feed:    config.FeedConfig{PageSize: feed.DefaultOptions().PageSize},
		Logging: config.LoggingConfig{Level: "debug", Format: "text"},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics", Namespace: "spacesfeed"},
		CORS:    config.CORSConfig{AllowedOrigins: []string{"*"}},
	}
}

// New builds an in-memory container closed at test cleanup
func New(t testing.TB, cfg *config.Config) *app.Container {
	t.Helper()
	if cfg == nil {
		cfg = Config()
	}

	c, err := app.NewContainer(context.Background(), cfg, logger.NewNop())
	if err != nil {
		t.Fatalf("Failed to build container: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}
