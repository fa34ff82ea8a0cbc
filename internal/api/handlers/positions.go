package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/amiyamandal-dev/spacesfeed/internal/api/middleware"
	"github.com/amiyamandal-dev/spacesfeed/internal/domain"
	"github.com/amiyamandal-dev/spacesfeed/internal/metrics"
	"github.com/amiyamandal-dev/spacesfeed/internal/service"
	"github.com/amiyamandal-dev/spacesfeed/pkg/logger"
	"github.com/amiyamandal-dev/spacesfeed/pkg/response"
)

// PositionHandler stores the authenticated user's scroll positions
type PositionHandler struct {
	positionService *service.PositionService
	metrics         *metrics.Collector
	logger          *logger.Logger
}

// NewPositionHandler creates a new position handler
func NewPositionHandler(positionService *service.PositionService, collector *metrics.Collector, logger *logger.Logger) *PositionHandler {
	return &PositionHandler{
		positionService: positionService,
		metrics:         collector,
		logger:          logger.WithComponent("position-handler"),
	}
}

// Get returns the stored position of a feed
// GET /api/v1/positions/:feed
func (h *PositionHandler) Get(c *gin.Context) {
	pos, err := h.positionService.Get(c.Request.Context(), middleware.GetUserID(c), c.Param("feed"))
	if err != nil {
		writeError(c, h.logger, err, "Failed to get position")
		return
	}

	response.Success(c, pos)
}

// Put overwrites the stored position of a feed
// PUT /api/v1/positions/:feed
func (h *PositionHandler) Put(c *gin.Context) {
	var req domain.PositionUpdateRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	pos, err := h.positionService.Save(c.Request.Context(), middleware.GetUserID(c), c.Param("feed"), *req.Index)
	if err != nil {
		writeError(c, h.logger, err, "Failed to save position")
		return
	}

	h.metrics.PositionWrites.Inc()
	response.Success(c, pos)
}

// Delete clears the stored position of a feed
// DELETE /api/v1/positions/:feed
func (h *PositionHandler) Delete(c *gin.Context) {
	if err := h.positionService.Clear(c.Request.Context(), middleware.GetUserID(c), c.Param("feed")); err != nil {
		writeError(c, h.logger, err, "Failed to clear position")
		return
	}

	response.SuccessWithMessage(c, "Position cleared", nil)
}
