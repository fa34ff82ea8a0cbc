package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/amiyamandal-dev/spacesfeed/internal/domain"
)

// PositionRepo implements PositionRepository using BadgerDB
type PositionRepo struct {
	db *DB
}

// NewPositionRepo creates a new BadgerDB-based position repository
func NewPositionRepo(db *DB) *PositionRepo {
	return &PositionRepo{db: db}
}

func positionKey(ownerID, feedKey string) []byte {
	return []byte(fmt.Sprintf("position:%s:%s", ownerID, feedKey))
}

// Put overwrites the stored position
func (r *PositionRepo) Put(ctx context.Context, ownerID string, pos *domain.ScrollPosition) error {
	if err := pos.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(pos)
	if err != nil {
		return err
	}

	return r.db.updateWithRetry(ctx, func(txn *badger.Txn) error {
		return txn.Set(positionKey(ownerID, pos.FeedKey), data)
	})
}

// Get retrieves the stored position
func (r *PositionRepo) Get(ctx context.Context, ownerID, feedKey string) (*domain.ScrollPosition, error) {
	var pos domain.ScrollPosition
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(positionKey(ownerID, feedKey))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return domain.ErrPositionNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &pos)
		})
	})
	if err != nil {
		return nil, err
	}
	return &pos, nil
}

// Delete removes the stored position
func (r *PositionRepo) Delete(ctx context.Context, ownerID, feedKey string) error {
	return r.db.updateWithRetry(ctx, func(txn *badger.Txn) error {
		return txn.Delete(positionKey(ownerID, feedKey))
	})
}
