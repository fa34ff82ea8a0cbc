package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/amiyamandal-dev/spacesfeed/internal/auth"
	"github.com/amiyamandal-dev/spacesfeed/pkg/response"
)

const (
	userIDKey = "user_id"
	handleKey = "handle"
)

// bearerToken extracts the token of a "Bearer <token>" header
func bearerToken(c *gin.Context) (string, bool) {
	parts := strings.Split(c.GetHeader("Authorization"), " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// AuthMiddleware creates JWT authentication middleware
func AuthMiddleware(jwtManager *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			response.Unauthorized(c, "Missing authorization header")
			c.Abort()
			return
		}

		token, ok := bearerToken(c)
		if !ok {
			response.Unauthorized(c, "Invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := jwtManager.ValidateToken(token)
		if err != nil {
			response.Unauthorized(c, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set(userIDKey, claims.UserID)
		c.Set(handleKey, claims.Handle)

		c.Next()
	}
}

// OptionalAuthMiddleware sets the user claims when a valid token is sent
// and lets anonymous requests through otherwise
func OptionalAuthMiddleware(jwtManager *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok {
			if claims, err := jwtManager.ValidateToken(token); err == nil {
				c.Set(userIDKey, claims.UserID)
				c.Set(handleKey, claims.Handle)
			}
		}
		c.Next()
	}
}

// GetUserID retrieves the user ID from the request context
func GetUserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// GetHandle retrieves the handle from the request context
func GetHandle(c *gin.Context) string {
	return c.GetString(handleKey)
}
