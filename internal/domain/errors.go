package domain

import (
	"errors"
	"fmt"
)

// ValidationError provides detailed validation error information
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s - %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidationError reports whether err carries a *ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

var (
	// Feed errors
	ErrFetchFailed     = errors.New("feed fetch failed")
	ErrStaleResponse   = errors.New("stale feed response")
	ErrInvalidIndex    = errors.New("invalid feed index")
	ErrInvalidCursor   = errors.New("invalid cursor")
	ErrSpaceNotFound   = errors.New("space not found")
	ErrInvalidReaction = errors.New("invalid reaction")

	// Position errors
	ErrPositionNotFound = errors.New("scroll position not found")

	// User errors
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidUser        = errors.New("invalid user")
	ErrSelfFollow         = errors.New("cannot follow yourself")

	// Auth errors
	ErrInvalidToken = errors.New("invalid token")
	ErrUnauthorized = errors.New("unauthorized")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrInvalidInput     = errors.New("invalid input")

	// General errors
	ErrInternal = errors.New("internal server error")
	ErrNotFound = errors.New("resource not found")
)
