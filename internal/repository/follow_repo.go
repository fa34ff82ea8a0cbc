package repository

import "context"

// FollowRepository stores the follow graph
type FollowRepository interface {
	// Follow records that followerID follows followeeID. Idempotent.
	Follow(ctx context.Context, followerID, followeeID string) error

	// Unfollow removes the edge. Idempotent.
	Unfollow(ctx context.Context, followerID, followeeID string) error

	// IsFollowing reports whether the edge exists
	IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error)

	// FollowingSet returns which of candidates followerID follows
	FollowingSet(ctx context.Context, followerID string, candidates []string) (map[string]bool, error)

	// CountFollowers returns the number of followers of userID
	CountFollowers(ctx context.Context, userID string) (int, error)
}
