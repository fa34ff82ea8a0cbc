// Package app wires the server's storage, services and HTTP router.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/amiyamandal-dev/spacesfeed/internal/api"
	"github.com/amiyamandal-dev/spacesfeed/internal/api/handlers"
	"github.com/amiyamandal-dev/spacesfeed/internal/auth"
	"github.com/amiyamandal-dev/spacesfeed/internal/config"
	"github.com/amiyamandal-dev/spacesfeed/internal/metrics"
	badgerrepo "github.com/amiyamandal-dev/spacesfeed/internal/repository/badger"
	"github.com/amiyamandal-dev/spacesfeed/internal/search"
	"github.com/amiyamandal-dev/spacesfeed/internal/service"
	"github.com/amiyamandal-dev/spacesfeed/pkg/logger"
)

// Container holds the server's dependency graph
type Container struct {
	Config  *config.Config
	Logger  *logger.Logger
	DB      *badgerrepo.DB
	Index   *search.BleveIndex
	Metrics *metrics.Collector
	JWT     *auth.JWTManager

	Users     *service.UserService
	Reactions *service.ReactionService
	Positions *service.PositionService

	engine *gin.Engine
}

// NewContainer opens storage and builds every service and handler. The
// configuration is used as given; callers validate it first.
func NewContainer(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	c := &Container{
		Config: cfg,
		Logger: log,
	}

	db, err := badgerrepo.New(cfg.Storage.Path, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	c.DB = db
	log.Info("Storage initialized", "path", cfg.Storage.Path)

	index := search.NewBleveIndex(log)
	if err := index.Open(cfg.Search.IndexPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open search index: %w", err)
	}
	c.Index = index

	userRepo := badgerrepo.NewUserRepo(db)

	c.JWT = auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry, cfg.Auth.RefreshTokenExpiry)
	c.Metrics = metrics.NewCollector(cfg.Metrics.Namespace)
	c.Users = service.NewUserService(userRepo, badgerrepo.NewFollowRepo(db), index, c.JWT, cfg.Auth.BcryptCost, log)
	c.Reactions = service.NewReactionService(badgerrepo.NewReactionRepo(db), userRepo, log)
	c.Positions = service.NewPositionService(badgerrepo.NewPositionRepo(db), log)

	// a fresh or deleted index is rebuilt from the user store
	if count, err := index.Count(); err == nil && count == 0 {
		if _, err := c.Users.ReindexAll(ctx); err != nil {
			c.Close()
			return nil, err
		}
	}

	router := api.NewRouter(
		handlers.NewAuthHandler(c.Users, log),
		handlers.NewReactionHandler(c.Reactions, c.Metrics, log),
		handlers.NewUserHandler(c.Users, c.Metrics, log),
		handlers.NewPositionHandler(c.Positions, c.Metrics, log),
		handlers.NewHealthHandler(db, index, log),
		c.JWT,
		c.Metrics,
		cfg,
		log,
	)
	c.engine = router.Setup()

	return c, nil
}

// Handler returns the HTTP handler serving the API
func (c *Container) Handler() http.Handler {
	return c.engine
}

// Close releases the index and storage
func (c *Container) Close() error {
	var errs []error
	if c.Index != nil {
		if err := c.Index.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close index: %w", err))
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close storage: %w", err))
		}
	}
	return errors.Join(errs...)
}
