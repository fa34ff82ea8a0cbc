package repository

import (
	"context"

	"github.com/amiyamandal-dev/spacesfeed/internal/domain"
)

// ReactionRepository stores the append-only reactions feed of each space
type ReactionRepository interface {
	// Append assigns the next sequence number of the reaction's space and
	// stores it
	Append(ctx context.Context, reaction *domain.Reaction) error

	// ListAfter returns up to limit reactions with a sequence number greater
	// than afterSeq, in arrival order, and whether more follow
	ListAfter(ctx context.Context, spaceID string, afterSeq int64, limit int) ([]*domain.Reaction, bool, error)

	// Count returns the number of reactions in a space
	Count(ctx context.Context, spaceID string) (int, error)
}
