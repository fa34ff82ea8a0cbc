package handlers

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/amiyamandal-dev/spacesfeed/internal/search"
	"github.com/amiyamandal-dev/spacesfeed/pkg/logger"
)

// HealthChecker reports whether a storage backend is usable
type HealthChecker interface {
	HealthCheck() error
}

// HealthHandler handles health check requests
type HealthHandler struct {
	db          HealthChecker
	searchIndex search.Index
	logger      *logger.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db HealthChecker, searchIndex search.Index, logger *logger.Logger) *HealthHandler {
	return &HealthHandler{
		db:          db,
		searchIndex: searchIndex,
		logger:      logger.WithComponent("health-handler"),
	}
}

// Health returns basic health status
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Readiness checks if the service is ready to handle requests
func (h *HealthHandler) Readiness(c *gin.Context) {
	var (
		dbErr       error
		searchErr   error
		searchCount uint64
		wg          sync.WaitGroup
	)

	wg.Add(2)

	go func() {
		defer wg.Done()
		dbErr = h.db.HealthCheck()
	}()

	go func() {
		defer wg.Done()
		searchCount, searchErr = h.searchIndex.Count()
	}()

	wg.Wait()

	checks := map[string]interface{}{
		"database": map[string]interface{}{
			"healthy": dbErr == nil,
		},
		"search": map[string]interface{}{
			"healthy":        searchErr == nil,
			"document_count": searchCount,
		},
	}

	status := "ready"
	code := http.StatusOK
	if dbErr != nil || searchErr != nil {
		status = "not ready"
		code = http.StatusServiceUnavailable
		h.logger.Warn("Readiness check failed", "database_error", dbErr, "search_error", searchErr)
	}

	c.JSON(code, gin.H{
		"status": status,
		"checks": checks,
	})
}

// Liveness checks if the service is alive
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
