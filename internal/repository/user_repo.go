package repository

import (
	"context"

	"github.com/amiyamandal-dev/spacesfeed/internal/domain"
)

// UserRepository defines the interface for user persistence
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByHandle retrieves a user by handle, case-insensitively
	GetByHandle(ctx context.Context, handle string) (*domain.User, error)

	// Update updates an existing user
	Update(ctx context.Context, user *domain.User) error

	// Delete deletes a user by ID
	Delete(ctx context.Context, id string) error

	// ExistsByHandle checks if a user exists by handle
	ExistsByHandle(ctx context.Context, handle string) (bool, error)

	// List iterates every user in ID order, used to rebuild the search index
	List(ctx context.Context, fn func(*domain.User) error) error
}
