package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/amiyamandal-dev/spacesfeed/internal/api/middleware"
	"github.com/amiyamandal-dev/spacesfeed/internal/domain"
	"github.com/amiyamandal-dev/spacesfeed/internal/service"
	"github.com/amiyamandal-dev/spacesfeed/pkg/logger"
	"github.com/amiyamandal-dev/spacesfeed/pkg/response"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	userService *service.UserService
	logger      *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(userService *service.UserService, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		logger:      logger.WithComponent("auth-handler"),
	}
}

// Register handles user registration
func (h *AuthHandler) Register(c *gin.Context) {
	var req domain.UserRegisterRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.userService.Register(c.Request.Context(), &req)
	if err != nil {
		writeError(c, h.logger, err, "Failed to register user")
		return
	}

	response.Created(c, user)
}

// Login handles user login
func (h *AuthHandler) Login(c *gin.Context) {
	var req domain.UserLoginRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	loginResp, err := h.userService.Login(c.Request.Context(), &req)
	if err != nil {
		writeError(c, h.logger, err, "Failed to login")
		return
	}

	response.Success(c, loginResp)
}

// RefreshToken handles token refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	tokens, err := h.userService.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		response.Unauthorized(c, "Invalid or expired refresh token")
		return
	}

	response.Success(c, tokens)
}

// GetMe returns the profile of the authenticated user
func (h *AuthHandler) GetMe(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	profile, err := h.userService.GetProfile(c.Request.Context(), userID, userID)
	if err != nil {
		writeError(c, h.logger, err, "Failed to get user")
		return
	}

	response.Success(c, profile)
}
