package repository

import (
	"context"

	"github.com/amiyamandal-dev/spacesfeed/internal/domain"
)

// PositionRepository stores scroll positions per owner and feed
type PositionRepository interface {
	// Put overwrites the stored position
	Put(ctx context.Context, ownerID string, pos *domain.ScrollPosition) error

	// Get returns domain.ErrPositionNotFound when nothing is stored
	Get(ctx context.Context, ownerID, feedKey string) (*domain.ScrollPosition, error)

	// Delete removes the stored position. Missing entries are not an error.
	Delete(ctx context.Context, ownerID, feedKey string) error
}
