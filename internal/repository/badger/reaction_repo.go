package badger

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/amiyamandal-dev/spacesfeed/internal/domain"
)

// ReactionRepo implements ReactionRepository using BadgerDB. Reactions of a
// space are keyed by a zero-padded sequence number so that key order is
// arrival order.
type ReactionRepo struct {
	db *DB
}

// NewReactionRepo creates a new BadgerDB-based reaction repository
func NewReactionRepo(db *DB) *ReactionRepo {
	return &ReactionRepo{db: db}
}

func reactionPrefix(spaceID string) []byte {
	return []byte(fmt.Sprintf("reaction:%s:", spaceID))
}

func reactionKey(spaceID string, seq int64) []byte {
	return []byte(fmt.Sprintf("reaction:%s:%020d", spaceID, seq))
}

func reactionSeqKey(spaceID string) []byte {
	return []byte(fmt.Sprintf("reaction-seq:%s", spaceID))
}

// Append assigns the next sequence number and stores the reaction
func (r *ReactionRepo) Append(ctx context.Context, reaction *domain.Reaction) error {
	return r.db.updateWithRetry(ctx, func(txn *badger.Txn) error {
		seqKey := reactionSeqKey(reaction.SpaceID)

		var last int64
		item, err := txn.Get(seqKey)
		switch {
		case err == nil:
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if len(val) != 8 {
				return fmt.Errorf("corrupt sequence for space %s", reaction.SpaceID)
			}
			last = int64(binary.BigEndian.Uint64(val))
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}

		reaction.Seq = last + 1

		data, err := json.Marshal(reaction)
		if err != nil {
			return err
		}
		if err := txn.Set(reactionKey(reaction.SpaceID, reaction.Seq), data); err != nil {
			return err
		}

		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(reaction.Seq))
		return txn.Set(seqKey, buf)
	})
}

// ListAfter returns up to limit reactions after afterSeq and whether more follow
func (r *ReactionRepo) ListAfter(ctx context.Context, spaceID string, afterSeq int64, limit int) ([]*domain.Reaction, bool, error) {
	if limit <= 0 {
		return nil, false, domain.NewValidationError("limit", "limit must be positive")
	}
	if afterSeq < 0 {
		return nil, false, domain.ErrInvalidCursor
	}

	var reactions []*domain.Reaction
	hasMore := false

	err := r.db.View(func(txn *badger.Txn) error {
		prefix := reactionPrefix(spaceID)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchSize = limit + 1

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(reactionKey(spaceID, afterSeq+1)); it.ValidForPrefix(prefix); it.Next() {
			if len(reactions) == limit {
				hasMore = true
				break
			}

			var reaction domain.Reaction
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &reaction)
			}); err != nil {
				return fmt.Errorf("failed to decode reaction %s: %w", it.Item().Key(), err)
			}
			reactions = append(reactions, &reaction)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return reactions, hasMore, nil
}

// Count returns the number of reactions in a space
func (r *ReactionRepo) Count(ctx context.Context, spaceID string) (int, error) {
	count := 0
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := reactionPrefix(spaceID)
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
