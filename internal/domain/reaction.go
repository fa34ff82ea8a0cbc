package domain

import (
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"
)

const (
	// MaxReactionText is the longest comment a reaction may carry
	MaxReactionText = 280
)

// Reaction is an entry in a space's reactions feed
type Reaction struct {
	ID        string    `json:"id"`
	SpaceID   string    `json:"space_id"`
	UserID    string    `json:"user_id"`
	Handle    string    `json:"handle"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Emoji     string    `json:"emoji"`
	Text      string    `json:"text,omitempty"`
	Seq       int64     `json:"seq"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate validates the reaction fields
func (r *Reaction) Validate() error {
	if r.SpaceID == "" {
		return NewValidationError("space_id", "space id is required")
	}
	if r.UserID == "" {
		return NewValidationError("user_id", "user id is required")
	}
	if r.Emoji == "" && r.Text == "" {
		return NewValidationError("emoji", "a reaction needs an emoji or text")
	}
	if utf8.RuneCountInString(r.Text) > MaxReactionText {
		return NewValidationError("text", fmt.Sprintf("text must be at most %d characters", MaxReactionText))
	}
	return nil
}

// ToFeedItem converts the reaction to its feed representation
func (r *Reaction) ToFeedItem() (FeedItem, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return FeedItem{}, fmt.Errorf("failed to encode reaction: %w", err)
	}
	return FeedItem{
		ID:       r.ID,
		Position: r.Seq,
		MediaURL: r.AvatarURL,
		Payload:  payload,
	}, nil
}

// ReactionCreateRequest represents a request to post a reaction
type ReactionCreateRequest struct {
	Emoji string `json:"emoji" binding:"max=16"`
	Text  string `json:"text" binding:"max=1024"`
}
