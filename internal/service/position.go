package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/amiyamandal-dev/spacesfeed/internal/domain"
	"github.com/amiyamandal-dev/spacesfeed/internal/feed"
	"github.com/amiyamandal-dev/spacesfeed/internal/repository"
	"github.com/amiyamandal-dev/spacesfeed/pkg/logger"
)

var feedKeyRegex = regexp.MustCompile(`^[A-Za-z0-9_.:-]{1,128}$`)

// ValidateFeedKey checks that a feed key is safe to use in a path and as a key segment
func ValidateFeedKey(feedKey string) error {
	if !feedKeyRegex.MatchString(feedKey) {
		return domain.NewValidationError("feed_key", "feed key must be 1-128 letters, digits, '.', ':', '-' or '_'")
	}
	return nil
}

// PositionService stores scroll positions per user
type PositionService struct {
	positionRepo repository.PositionRepository
	logger       *logger.Logger
}

// NewPositionService creates a new position service
func NewPositionService(positionRepo repository.PositionRepository, logger *logger.Logger) *PositionService {
	return &PositionService{
		positionRepo: positionRepo,
		logger:       logger.WithComponent("position-service"),
	}
}

// Get returns the stored position or domain.ErrPositionNotFound
func (s *PositionService) Get(ctx context.Context, ownerID, feedKey string) (*domain.ScrollPosition, error) {
	if err := ValidateFeedKey(feedKey); err != nil {
		return nil, err
	}
	return s.positionRepo.Get(ctx, ownerID, feedKey)
}

// Save overwrites the stored position
func (s *PositionService) Save(ctx context.Context, ownerID, feedKey string, index int) (*domain.ScrollPosition, error) {
	if err := ValidateFeedKey(feedKey); err != nil {
		return nil, err
	}
	pos := &domain.ScrollPosition{
		FeedKey:   feedKey,
		Index:     index,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.positionRepo.Put(ctx, ownerID, pos); err != nil {
		if domain.IsValidationError(err) {
			return nil, err
		}
		s.logger.Error("Failed to save position", "owner_id", ownerID, "feed_key", feedKey, "error", err)
		return nil, fmt.Errorf("failed to save position: %w", err)
	}
	return pos, nil
}

// Clear removes the stored position
func (s *PositionService) Clear(ctx context.Context, ownerID, feedKey string) error {
	if err := ValidateFeedKey(feedKey); err != nil {
		return err
	}
	if err := s.positionRepo.Delete(ctx, ownerID, feedKey); err != nil {
		return fmt.Errorf("failed to clear position: %w", err)
	}
	return nil
}

// StoreFor returns a feed.PositionStore bound to one owner
func (s *PositionService) StoreFor(ownerID string) feed.PositionStore {
	return &ownerPositionStore{service: s, ownerID: ownerID}
}

type ownerPositionStore struct {
	service *PositionService
	ownerID string
}

func (o *ownerPositionStore) Save(ctx context.Context, feedKey string, index int) error {
	_, err := o.service.Save(ctx, o.ownerID, feedKey, index)
	return err
}

func (o *ownerPositionStore) Restore(ctx context.Context, feedKey string) (int, bool, error) {
	pos, err := o.service.Get(ctx, o.ownerID, feedKey)
	if err != nil {
		if errors.Is(err, domain.ErrPositionNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return pos.Index, true, nil
}

func (o *ownerPositionStore) Clear(ctx context.Context, feedKey string) error {
	return o.service.Clear(ctx, o.ownerID, feedKey)
}
