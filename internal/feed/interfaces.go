package feed

import (
	"context"

	"github.com/amiyamandal-dev/spacesfeed/internal/domain"
)

// PageFetcher loads one page of a feed after cursor. An empty cursor
// requests the first page.
type PageFetcher interface {
	FetchPage(ctx context.Context, cursor string, pageSize int) (*domain.Page, error)
}

// PageFetcherFunc adapts a function to PageFetcher
type PageFetcherFunc func(ctx context.Context, cursor string, pageSize int) (*domain.Page, error)

// FetchPage calls f
func (f PageFetcherFunc) FetchPage(ctx context.Context, cursor string, pageSize int) (*domain.Page, error) {
	return f(ctx, cursor, pageSize)
}

// QueryFetcher resolves a search keyword to matching users
type QueryFetcher interface {
	FetchByQuery(ctx context.Context, keyword string) ([]domain.UserSummary, error)
}

// FollowToggler follows or unfollows a user on behalf of the viewer
type FollowToggler interface {
	SetFollowing(ctx context.Context, userID string, follow bool) error
}

// PositionStore persists the last viewed index per feed
type PositionStore interface {
	// Save overwrites the stored index unconditionally
	Save(ctx context.Context, feedKey string, index int) error

	// Restore returns the stored index, or found=false when nothing is stored
	Restore(ctx context.Context, feedKey string) (index int, found bool, err error)

	// Clear removes the stored index
	Clear(ctx context.Context, feedKey string) error
}

// Prefetcher receives a side-effect-only hint about items likely to be
// shown next. Implementations must not block.
type Prefetcher interface {
	Prefetch(items []domain.FeedItem)
}
