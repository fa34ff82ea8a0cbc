package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/amiyamandal-dev/spacesfeed/pkg/logger"
)

// DB wraps BadgerDB for users, follows, reactions and scroll positions
type DB struct {
	*badger.DB
	logger *logger.Logger
}

// New opens a BadgerDB at dbPath. An empty path opens an in-memory store.
func New(dbPath string, log *logger.Logger) (*DB, error) {
	if log == nil {
		log = logger.NewNop()
	}
	log = log.WithComponent("badger")

	var opts badger.Options
	if dbPath == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(dbPath)
	}
	opts.Logger = &badgerLogger{log: log}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	return &DB{DB: db, logger: log}, nil
}

// Close closes the database
func (db *DB) Close() error {
	return db.DB.Close()
}

// HealthCheck checks if the database is healthy
func (db *DB) HealthCheck() error {
	if db.IsClosed() {
		return errors.New("badger db is closed")
	}
	return db.View(func(txn *badger.Txn) error {
		return nil
	})
}

// RunGC reclaims value log space every interval until ctx is done
func (db *DB) RunGC(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for {
				err := db.RunValueLogGC(0.5)
				if err != nil {
					if !errors.Is(err, badger.ErrNoRewrite) && !errors.Is(err, badger.ErrRejected) {
						db.logger.Warn("Value log GC failed", "error", err)
					}
					break
				}
			}
		}
	}
}

// updateWithRetry runs fn in a read-write transaction, retrying on
// conflicts with concurrent writers
func (db *DB) updateWithRetry(ctx context.Context, fn func(txn *badger.Txn) error) error {
	const attempts = 5

	var err error
	for i := 0; i < attempts; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

// badgerLogger routes badger's own logging through zap
type badgerLogger struct {
	log *logger.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Sugar().Errorf(format, args...)
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Sugar().Warnf(format, args...)
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Sugar().Debugf(format, args...)
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Sugar().Debugf(format, args...)
}
