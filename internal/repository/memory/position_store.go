package memory

import (
	"context"
	"sync"

	"github.com/amiyamandal-dev/spacesfeed/internal/domain"
)

// PositionStore keeps scroll positions for the lifetime of the process
type PositionStore struct {
	mu        sync.RWMutex
	positions map[string]int
}

// NewPositionStore creates an empty store
func NewPositionStore() *PositionStore {
	return &PositionStore{positions: make(map[string]int)}
}

// Save overwrites the stored index
func (s *PositionStore) Save(ctx context.Context, feedKey string, index int) error {
	if index < 0 {
		return domain.NewValidationError("index", "index must not be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[feedKey] = index
	return nil
}

// Restore returns the stored index, if any
func (s *PositionStore) Restore(ctx context.Context, feedKey string) (int, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	index, ok := s.positions[feedKey]
	return index, ok, nil
}

// Clear removes the stored index
func (s *PositionStore) Clear(ctx context.Context, feedKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.positions, feedKey)
	return nil
}
