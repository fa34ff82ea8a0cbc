package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/amiyamandal-dev/spacesfeed/internal/domain"
	"github.com/amiyamandal-dev/spacesfeed/internal/repository"
	"github.com/amiyamandal-dev/spacesfeed/pkg/logger"
)

const (
	// DefaultPageSize is the page size of the reactions feed
	DefaultPageSize = 8
	// MaxPageSize bounds a single page request
	MaxPageSize = 50
)

var spaceIDRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ReactionService handles the reactions feed of each space
type ReactionService struct {
	reactionRepo repository.ReactionRepository
	userRepo     repository.UserRepository
	sanitizer    *bluemonday.Policy
	logger       *logger.Logger
}

// NewReactionService creates a new reaction service
func NewReactionService(
	reactionRepo repository.ReactionRepository,
	userRepo repository.UserRepository,
	logger *logger.Logger,
) *ReactionService {
	return &ReactionService{
		reactionRepo: reactionRepo,
		userRepo:     userRepo,
		sanitizer:    bluemonday.StrictPolicy(),
		logger:       logger.WithComponent("reaction-service"),
	}
}

// ValidateSpaceID checks that a space identifier is safe to use as a key segment
func ValidateSpaceID(spaceID string) error {
	if !spaceIDRegex.MatchString(spaceID) {
		return domain.NewValidationError("space", "space id must be 1-64 letters, digits, '-' or '_'")
	}
	return nil
}

// Post appends a reaction from userID to the space
func (s *ReactionService) Post(ctx context.Context, spaceID, userID string, req *domain.ReactionCreateRequest) (*domain.Reaction, error) {
	if err := ValidateSpaceID(spaceID); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	reaction := &domain.Reaction{
		ID:        uuid.New().String(),
		SpaceID:   spaceID,
		UserID:    user.ID,
		Handle:    user.Handle,
		AvatarURL: user.AvatarURL,
		Emoji:     strings.TrimSpace(req.Emoji),
		Text:      strings.TrimSpace(s.sanitizer.Sanitize(req.Text)),
		CreatedAt: time.Now().UTC(),
	}
	if err := reaction.Validate(); err != nil {
		return nil, err
	}

	if err := s.reactionRepo.Append(ctx, reaction); err != nil {
		s.logger.Error("Failed to append reaction", "space", spaceID, "error", err)
		return nil, fmt.Errorf("failed to append reaction: %w", err)
	}

	s.logger.Debug("Reaction posted", "space", spaceID, "seq", reaction.Seq, "user_id", user.ID)
	return reaction, nil
}

// ListPage returns the page after cursor. An empty cursor starts at the
// oldest reaction. The next cursor is the sequence number of the last item.
func (s *ReactionService) ListPage(ctx context.Context, spaceID, cursor string, limit int) (*domain.Page, error) {
	if err := ValidateSpaceID(spaceID); err != nil {
		return nil, err
	}

	afterSeq, err := ParseCursor(cursor)
	if err != nil {
		return nil, err
	}

	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	reactions, hasMore, err := s.reactionRepo.ListAfter(ctx, spaceID, afterSeq, limit)
	if err != nil {
		s.logger.Error("Failed to list reactions", "space", spaceID, "cursor", cursor, "error", err)
		return nil, fmt.Errorf("failed to list reactions: %w", err)
	}

	items := make([]domain.FeedItem, 0, len(reactions))
	for _, r := range reactions {
		item, err := r.ToFeedItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	next := cursor
	if len(reactions) > 0 {
		next = FormatCursor(reactions[len(reactions)-1].Seq)
	}

	return &domain.Page{
		Items:      items,
		NextCursor: next,
		HasMore:    hasMore,
	}, nil
}

// ParseCursor decodes a reactions cursor; empty means the start of the feed
func ParseCursor(cursor string) (int64, error) {
	if cursor == "" {
		return 0, nil
	}
	seq, err := strconv.ParseInt(cursor, 10, 64)
	if err != nil || seq < 0 {
		return 0, domain.ErrInvalidCursor
	}
	return seq, nil
}

// FormatCursor encodes the sequence number of the last delivered reaction
func FormatCursor(seq int64) string {
	return strconv.FormatInt(seq, 10)
}
