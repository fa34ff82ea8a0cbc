package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/amiyamandal-dev/spacesfeed/internal/domain"
)

const (
	userIDPrefix     = "user:id:"
	userHandlePrefix = "user:handle:"
)

// UserRepo implements UserRepository using BadgerDB
type UserRepo struct {
	db *DB
}

// storageUser is an internal struct to ensure private fields are saved to DB
// despite json:"-" tags on domain.User
type storageUser struct {
	ID           string    `json:"id"`
	Handle       string    `json:"handle"`
	DisplayName  string    `json:"display_name"`
	Bio          string    `json:"bio"`
	AvatarURL    string    `json:"avatar_url"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toStorageUser(u *domain.User) *storageUser {
	return &storageUser{
		ID:           u.ID,
		Handle:       u.Handle,
		DisplayName:  u.DisplayName,
		Bio:          u.Bio,
		AvatarURL:    u.AvatarURL,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func toDomainUser(s *storageUser) *domain.User {
	return &domain.User{
		ID:           s.ID,
		Handle:       s.Handle,
		DisplayName:  s.DisplayName,
		Bio:          s.Bio,
		AvatarURL:    s.AvatarURL,
		PasswordHash: s.PasswordHash,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

func userIDKey(id string) []byte {
	return []byte(userIDPrefix + id)
}

func userHandleKey(handle string) []byte {
	return []byte(userHandlePrefix + strings.ToLower(handle))
}

// NewUserRepo creates a new BadgerDB-based user repository
func NewUserRepo(db *DB) *UserRepo {
	return &UserRepo{db: db}
}

// Create creates a new user
func (r *UserRepo) Create(ctx context.Context, user *domain.User) error {
	return r.db.updateWithRetry(ctx, func(txn *badger.Txn) error {
		handleKey := userHandleKey(user.Handle)
		if _, err := txn.Get(handleKey); err == nil {
			return domain.ErrUserAlreadyExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		data, err := json.Marshal(toStorageUser(user))
		if err != nil {
			return err
		}

		if err := txn.Set(userIDKey(user.ID), data); err != nil {
			return err
		}
		return txn.Set(handleKey, []byte(user.ID))
	})
}

// GetByID retrieves a user by ID
func (r *UserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var sUser storageUser
	err := r.db.View(func(txn *badger.Txn) error {
		return getUser(txn, id, &sUser)
	})
	if err != nil {
		return nil, err
	}
	return toDomainUser(&sUser), nil
}

// GetByHandle retrieves a user by handle
func (r *UserRepo) GetByHandle(ctx context.Context, handle string) (*domain.User, error) {
	var sUser storageUser
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userHandleKey(handle))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return domain.ErrUserNotFound
			}
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return getUser(txn, string(id), &sUser)
	})
	if err != nil {
		return nil, err
	}
	return toDomainUser(&sUser), nil
}

// Update updates an existing user. The handle index follows a handle change.
func (r *UserRepo) Update(ctx context.Context, user *domain.User) error {
	return r.db.updateWithRetry(ctx, func(txn *badger.Txn) error {
		var existing storageUser
		if err := getUser(txn, user.ID, &existing); err != nil {
			return err
		}

		if !strings.EqualFold(existing.Handle, user.Handle) {
			newKey := userHandleKey(user.Handle)
			if _, err := txn.Get(newKey); err == nil {
				return domain.ErrUserAlreadyExists
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			if err := txn.Delete(userHandleKey(existing.Handle)); err != nil {
				return err
			}
			if err := txn.Set(newKey, []byte(user.ID)); err != nil {
				return err
			}
		}

		data, err := json.Marshal(toStorageUser(user))
		if err != nil {
			return err
		}
		return txn.Set(userIDKey(user.ID), data)
	})
}

// Delete deletes a user by ID
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	return r.db.updateWithRetry(ctx, func(txn *badger.Txn) error {
		var sUser storageUser
		if err := getUser(txn, id, &sUser); err != nil {
			return err
		}

		if err := txn.Delete(userHandleKey(sUser.Handle)); err != nil {
			return err
		}
		return txn.Delete(userIDKey(id))
	})
}

// ExistsByHandle checks if a user exists by handle
func (r *UserRepo) ExistsByHandle(ctx context.Context, handle string) (bool, error) {
	err := r.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(userHandleKey(handle))
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

// List calls fn for every stored user
func (r *UserRepo) List(ctx context.Context, fn func(*domain.User) error) error {
	return r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(userIDPrefix)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var sUser storageUser
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &sUser)
			}); err != nil {
				return fmt.Errorf("failed to decode user %s: %w", it.Item().Key(), err)
			}
			if err := fn(toDomainUser(&sUser)); err != nil {
				return err
			}
		}
		return nil
	})
}

func getUser(txn *badger.Txn, id string, out *storageUser) error {
	item, err := txn.Get(userIDKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return domain.ErrUserNotFound
		}
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
}
