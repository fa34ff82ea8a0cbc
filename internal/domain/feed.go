package domain

import (
	"encoding/json"
	"time"
)

// FeedItem is a single entry of a paginated feed as delivered by its source.
// Position is the arrival order key; items are never re-sorted client-side.
type FeedItem struct {
	ID       string          `json:"id"`
	Position int64           `json:"position"`
	MediaURL string          `json:"media_url,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// Page is one response of a cursor-paginated source
type Page struct {
	Items      []FeedItem `json:"items"`
	NextCursor string     `json:"next_cursor,omitempty"`
	HasMore    bool       `json:"has_more"`
}

// ScrollPosition is the last viewed index of a feed
type ScrollPosition struct {
	FeedKey   string    `json:"feed_key"`
	Index     int       `json:"index" binding:"min=0"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate validates the position fields
func (p *ScrollPosition) Validate() error {
	if p.FeedKey == "" {
		return NewValidationError("feed_key", "feed key is required")
	}
	if p.Index < 0 {
		return NewValidationError("index", "index must not be negative")
	}
	return nil
}

// PositionUpdateRequest is the body of a position write
type PositionUpdateRequest struct {
	Index *int `json:"index" binding:"required,min=0"`
}
