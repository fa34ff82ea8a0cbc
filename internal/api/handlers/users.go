package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/amiyamandal-dev/spacesfeed/internal/api/middleware"
	"github.com/amiyamandal-dev/spacesfeed/internal/domain"
	"github.com/amiyamandal-dev/spacesfeed/internal/metrics"
	"github.com/amiyamandal-dev/spacesfeed/internal/service"
	"github.com/amiyamandal-dev/spacesfeed/pkg/logger"
	"github.com/amiyamandal-dev/spacesfeed/pkg/response"
)

const defaultSearchLimit = 20

// UserHandler serves profiles, user search and follows
type UserHandler struct {
	userService *service.UserService
	metrics     *metrics.Collector
	logger      *logger.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *service.UserService, collector *metrics.Collector, logger *logger.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		metrics:     collector,
		logger:      logger.WithComponent("user-handler"),
	}
}

// Search finds users by keyword
// GET /api/v1/users/search?q=&limit=
func (h *UserHandler) Search(c *gin.Context) {
	parser := NewQueryParamParser(c)
	keyword := parser.String("q", "")
	limit := parser.Int("limit", defaultSearchLimit)
	if err := parser.Error(); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	users, err := h.userService.Search(c.Request.Context(), middleware.GetUserID(c), keyword, limit)
	if err != nil {
		writeError(c, h.logger, err, "Failed to search users")
		return
	}

	h.metrics.Searches.Inc()
	response.Success(c, users)
}

// Get returns a public profile
// GET /api/v1/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	profile, err := h.userService.GetProfile(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err, "Failed to get user")
		return
	}

	response.Success(c, profile)
}

// UpdateMe edits the authenticated user's profile
// PUT /api/v1/users/me
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req domain.UserUpdateRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	profile, err := h.userService.UpdateProfile(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		writeError(c, h.logger, err, "Failed to update profile")
		return
	}

	response.Success(c, profile)
}

// Follow makes the authenticated user follow :id
// PUT /api/v1/users/:id/follow
func (h *UserHandler) Follow(c *gin.Context) {
	h.setFollowing(c, true)
}

// Unfollow makes the authenticated user unfollow :id
// DELETE /api/v1/users/:id/follow
func (h *UserHandler) Unfollow(c *gin.Context) {
	h.setFollowing(c, false)
}

func (h *UserHandler) setFollowing(c *gin.Context, follow bool) {
	followeeID := c.Param("id")

	if err := h.userService.SetFollowing(c.Request.Context(), middleware.GetUserID(c), followeeID, follow); err != nil {
		writeError(c, h.logger, err, "Failed to update follow")
		return
	}

	h.metrics.ObserveFollow(follow)
	c.JSON(http.StatusOK, response.Response{
		Success: true,
		Data: gin.H{
			"user_id":      followeeID,
			"is_following": follow,
		},
	})
}
