package search

import (
	"context"
	"strings"

	"github.com/amiyamandal-dev/spacesfeed/internal/domain"
)

// UserDocument represents a user in the search index
type UserDocument struct {
	ID          string `json:"id"`
	Handle      string `json:"handle"`
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio"`
}

// SearchQuery represents a user search
type SearchQuery struct {
	Keyword string
	Limit   int
}

// SearchResult holds matching user IDs, best match first
type SearchResult struct {
	IDs       []string
	Total     int
	QueryTime int64 // milliseconds
}

// Index defines the interface for user search indexing
type Index interface {
	// Open opens the search index; an empty path opens an in-memory index
	Open(indexPath string) error

	// Close closes the search index
	Close() error

	// IndexUser indexes or re-indexes a user
	IndexUser(ctx context.Context, user *domain.User) error

	// DeleteUser removes a user from the index
	DeleteUser(ctx context.Context, userID string) error

	// Search searches the index
	Search(ctx context.Context, query *SearchQuery) (*SearchResult, error)

	// Count returns the number of documents in the index
	Count() (uint64, error)
}

// UserToDocument converts a user to a search document. The handle is
// lowercased so prefix matching is case-insensitive.
func UserToDocument(user *domain.User) *UserDocument {
	return &UserDocument{
		ID:          user.ID,
		Handle:      strings.ToLower(user.Handle),
		DisplayName: user.DisplayName,
		Bio:         user.Bio,
	}
}
