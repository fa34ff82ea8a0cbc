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

// ReactionHandler serves the reactions feed of a space
type ReactionHandler struct {
	reactionService *service.ReactionService
	metrics         *metrics.Collector
	logger          *logger.Logger
}

// NewReactionHandler creates a new reaction handler
func NewReactionHandler(reactionService *service.ReactionService, collector *metrics.Collector, logger *logger.Logger) *ReactionHandler {
	return &ReactionHandler{
		reactionService: reactionService,
		metrics:         collector,
		logger:          logger.WithComponent("reaction-handler"),
	}
}

// List returns one page of a space's reactions
// GET /api/v1/spaces/:space/reactions?cursor=&limit=
func (h *ReactionHandler) List(c *gin.Context) {
	parser := NewQueryParamParser(c)
	params := parser.Cursor(service.DefaultPageSize, service.MaxPageSize)
	if err := parser.Error(); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	page, err := h.reactionService.ListPage(c.Request.Context(), c.Param("space"), params.Cursor, params.Limit)
	if err != nil {
		writeError(c, h.logger, err, "Failed to list reactions")
		return
	}

	h.metrics.ObservePage(page.HasMore)
	response.CursorPaginated(c, page.Items, page.NextCursor, page.HasMore)
}

// Create appends a reaction from the authenticated user
// POST /api/v1/spaces/:space/reactions
func (h *ReactionHandler) Create(c *gin.Context) {
	var req domain.ReactionCreateRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	reaction, err := h.reactionService.Post(c.Request.Context(), c.Param("space"), middleware.GetUserID(c), &req)
	if err != nil {
		writeError(c, h.logger, err, "Failed to post reaction")
		return
	}

	h.metrics.ReactionsPosted.Inc()
	response.Created(c, reaction)
}
