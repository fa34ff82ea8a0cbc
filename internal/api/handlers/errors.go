package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/amiyamandal-dev/spacesfeed/internal/domain"
	"github.com/amiyamandal-dev/spacesfeed/pkg/logger"
	"github.com/amiyamandal-dev/spacesfeed/pkg/response"
)

// writeError maps a service error to its HTTP response. Unknown errors are
// logged and reported as fallback with a 500.
func writeError(c *gin.Context, log *logger.Logger, err error, fallback string) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		response.BadRequest(c, ve.Message)
	case errors.Is(err, domain.ErrInvalidCursor):
		response.BadRequest(c, "Invalid cursor")
	case errors.Is(err, domain.ErrSelfFollow):
		response.BadRequest(c, "You cannot follow yourself")
	case errors.Is(err, domain.ErrInvalidInput):
		response.BadRequest(c, "Invalid input")
	case errors.Is(err, domain.ErrInvalidCredentials):
		response.Unauthorized(c, "Invalid handle or password")
	case errors.Is(err, domain.ErrInvalidToken), errors.Is(err, domain.ErrUnauthorized):
		response.Unauthorized(c, "Invalid or expired token")
	case errors.Is(err, domain.ErrUserNotFound):
		response.NotFound(c, "User not found")
	case errors.Is(err, domain.ErrPositionNotFound):
		response.NotFound(c, "No saved position")
	case errors.Is(err, domain.ErrNotFound):
		response.NotFound(c, "Resource not found")
	case errors.Is(err, domain.ErrUserAlreadyExists):
		response.Conflict(c, "Handle already taken")
	default:
		log.Error(fallback, "path", c.FullPath(), "error", err)
		response.InternalServerError(c, fallback)
	}
}
