package api

import (
	"github.com/gin-gonic/gin"

	"github.com/amiyamandal-dev/spacesfeed/internal/api/handlers"
	"github.com/amiyamandal-dev/spacesfeed/internal/api/middleware"
	"github.com/amiyamandal-dev/spacesfeed/internal/auth"
	"github.com/amiyamandal-dev/spacesfeed/internal/config"
	"github.com/amiyamandal-dev/spacesfeed/internal/metrics"
	"github.com/amiyamandal-dev/spacesfeed/pkg/logger"
)

// Router sets up the HTTP router with all routes and middleware
type Router struct {
	engine          *gin.Engine
	authHandler     *handlers.AuthHandler
	reactionHandler *handlers.ReactionHandler
	userHandler     *handlers.UserHandler
	positionHandler *handlers.PositionHandler
	healthHandler   *handlers.HealthHandler
	jwtManager      *auth.JWTManager
	metrics         *metrics.Collector
	cfg             *config.Config
	logger          *logger.Logger
}

// NewRouter creates a new router
func NewRouter(
	authHandler *handlers.AuthHandler,
	reactionHandler *handlers.ReactionHandler,
	userHandler *handlers.UserHandler,
	positionHandler *handlers.PositionHandler,
	healthHandler *handlers.HealthHandler,
	jwtManager *auth.JWTManager,
	collector *metrics.Collector,
	cfg *config.Config,
	logger *logger.Logger,
) *Router {
	return &Router{
		authHandler:     authHandler,
		reactionHandler: reactionHandler,
		userHandler:     userHandler,
		positionHandler: positionHandler,
		healthHandler:   healthHandler,
		jwtManager:      jwtManager,
		metrics:         collector,
		cfg:             cfg,
		logger:          logger,
	}
}

// Setup configures all routes and middleware
func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.cfg.Server.Mode)

	r.engine = gin.New()

	r.engine.Use(gin.Recovery())
	r.engine.Use(middleware.RequestIDMiddleware())
	r.engine.Use(middleware.CORSMiddleware(r.cfg.CORS.AllowedOrigins))
	r.engine.Use(middleware.LoggerMiddleware(r.logger))

	if r.cfg.Metrics.Enabled {
		r.engine.Use(middleware.MetricsMiddleware(r.metrics))
		r.engine.GET(r.cfg.Metrics.Path, gin.WrapH(r.metrics.Handler()))
	}

	// Health check endpoints (no rate limiting, no auth)
	r.engine.GET("/health", r.healthHandler.Health)
	r.engine.GET("/health/ready", r.healthHandler.Readiness)
	r.engine.GET("/health/live", r.healthHandler.Liveness)

	requireAuth := middleware.AuthMiddleware(r.jwtManager)
	optionalAuth := middleware.OptionalAuthMiddleware(r.jwtManager)

	v1 := r.engine.Group("/api/v1")
	if r.cfg.RateLimit.Enabled {
		v1.Use(middleware.RateLimitMiddleware(middleware.NewRateLimiter(
			r.cfg.RateLimit.RequestsPerSecond,
			r.cfg.RateLimit.Burst,
		)))
	}
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", r.authHandler.Register)
			authGroup.POST("/login", r.authHandler.Login)
			authGroup.POST("/refresh", r.authHandler.RefreshToken)
			authGroup.GET("/me", requireAuth, r.authHandler.GetMe)
		}

		spaces := v1.Group("/spaces/:space")
		{
			spaces.GET("/reactions", r.reactionHandler.List)
			spaces.POST("/reactions", requireAuth, r.reactionHandler.Create)
		}

		users := v1.Group("/users")
		{
			users.GET("/search", optionalAuth, r.userHandler.Search)
			users.PUT("/me", requireAuth, r.userHandler.UpdateMe)
			users.GET("/:id", optionalAuth, r.userHandler.Get)
			users.PUT("/:id/follow", requireAuth, r.userHandler.Follow)
			users.DELETE("/:id/follow", requireAuth, r.userHandler.Unfollow)
		}

		positions := v1.Group("/positions")
		positions.Use(requireAuth)
		{
			positions.GET("/:feed", r.positionHandler.Get)
			positions.PUT("/:feed", r.positionHandler.Put)
			positions.DELETE("/:feed", r.positionHandler.Delete)
		}
	}

	return r.engine
}

// GetEngine returns the Gin engine
func (r *Router) GetEngine() *gin.Engine {
	if r.engine == nil {
		return r.Setup()
	}
	return r.engine
}
