package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// FollowRepo implements FollowRepository using BadgerDB. Each edge is
// stored twice, once per direction, so both sides can be scanned by prefix.
type FollowRepo struct {
	db *DB
}

// NewFollowRepo creates a new BadgerDB-based follow repository
func NewFollowRepo(db *DB) *FollowRepo {
	return &FollowRepo{db: db}
}

func followingKey(followerID, followeeID string) []byte {
	return []byte(fmt.Sprintf("follow:%s:%s", followerID, followeeID))
}

func followerKey(followeeID, followerID string) []byte {
	return []byte(fmt.Sprintf("follower:%s:%s", followeeID, followerID))
}

// Follow records the edge
func (r *FollowRepo) Follow(ctx context.Context, followerID, followeeID string) error {
	return r.db.updateWithRetry(ctx, func(txn *badger.Txn) error {
		if err := txn.Set(followingKey(followerID, followeeID), nil); err != nil {
			return err
		}
		return txn.Set(followerKey(followeeID, followerID), nil)
	})
}

// Unfollow removes the edge
func (r *FollowRepo) Unfollow(ctx context.Context, followerID, followeeID string) error {
	return r.db.updateWithRetry(ctx, func(txn *badger.Txn) error {
		if err := txn.Delete(followingKey(followerID, followeeID)); err != nil {
			return err
		}
		return txn.Delete(followerKey(followeeID, followerID))
	})
}

// IsFollowing reports whether followerID follows followeeID
func (r *FollowRepo) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	err := r.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(followingKey(followerID, followeeID))
		return err
	})
	if err == nil {
		return true, nil
	}
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return false, err
}

// FollowingSet returns which of candidates followerID follows
func (r *FollowRepo) FollowingSet(ctx context.Context, followerID string, candidates []string) (map[string]bool, error) {
	set := make(map[string]bool, len(candidates))
	err := r.db.View(func(txn *badger.Txn) error {
		for _, id := range candidates {
			_, err := txn.Get(followingKey(followerID, id))
			switch {
			case err == nil:
				set[id] = true
			case errors.Is(err, badger.ErrKeyNotFound):
			default:
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return set, nil
}

// CountFollowers returns the number of followers of userID
func (r *FollowRepo) CountFollowers(ctx context.Context, userID string) (int, error) {
	count := 0
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("follower:%s:", userID))
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}
