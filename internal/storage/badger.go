package storage

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
)

const (
	revocationPrefix = "revoked/"

	// gcDiscardRatio is the stale fraction at which a value log file is
	// rewritten.
	gcDiscardRatio = 0.5

	// minEntryTTL keeps already-ended windows visible to IsRevoked until
	// the next purge.
	minEntryTTL = time.Second
)

// BadgerRevocationStore keeps revocations in Badger. Each entry carries a
// TTL equal to its remaining window, so Badger drops it even without Purge.
type BadgerRevocationStore struct {
	db       *badger.DB
	inMemory bool
	logger   *slog.Logger
	loop     *purgeLoop

	// size is the number of stored entries. Revoke adds new keys and
	// Purge resets it from its scan, so entries Badger expired on its own
	// stay counted until the next purge.
	size atomic.Int64
	// added counts new keys ever written; Purge uses it to keep revokes
	// that land during its scan.
	added atomic.Int64

	mu     sync.RWMutex
	closed bool
}

// NewBadgerRevocationStore opens the Badger database described by cfg.
func NewBadgerRevocationStore(cfg Config) (*BadgerRevocationStore, error) {
	if cfg.Dir == "" && !cfg.InMemory {
		return nil, fmt.Errorf("badger: dir is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := badger.DefaultOptions(cfg.Dir)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = &badgerLogger{logger: logger.With("component", "badger")}
	opts.SyncWrites = cfg.SyncWrites

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	s := &BadgerRevocationStore{
		db:       db,
		inMemory: cfg.InMemory,
		logger:   logger,
	}
	n, err := s.countEntries()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("badger: count revocations: %w", err)
	}
	s.size.Store(int64(n))

	if cfg.PurgeInterval > 0 {
		s.loop = startPurgeLoop(cfg.PurgeInterval, logger, s.purgeAndCollect)
	}

	logger.Info("badger revocation store started", "dir", cfg.Dir, "in_memory", cfg.InMemory)
	return s, nil
}

// Revoke implements RevocationStore.
func (s *BadgerRevocationStore) Revoke(_ context.Context, id string, until time.Time) error {
	if id == "" {
		return ErrEmptyID
	}
	if err := s.check(); err != nil {
		return err
	}

	key := revocationKey(id)
	created := false
	err := s.db.Update(func(txn *badger.Txn) error {
		created = false
		item, err := txn.Get(key)
		switch {
		case err == nil:
			var existing time.Time
			if err := item.Value(func(v []byte) error {
				existing, err = decodeUntil(v)
				return err
			}); err != nil {
				return err
			}
			if existing.After(until) {
				return nil
			}
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		default:
			created = true
		}

		ttl := time.Until(until)
		if ttl < minEntryTTL {
			ttl = minEntryTTL
		}
		return txn.SetEntry(badger.NewEntry(key, encodeUntil(until)).WithTTL(ttl))
	})
	if err == nil && created {
		s.added.Add(1)
		s.size.Add(1)
	}
	return err
}

// IsRevoked implements RevocationStore.
func (s *BadgerRevocationStore) IsRevoked(_ context.Context, id string, now time.Time) (bool, error) {
	if err := s.check(); err != nil {
		return false, err
	}

	var revoked bool
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(revocationKey(id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		return item.Value(func(v []byte) error {
			until, err := decodeUntil(v)
			if err != nil {
				return err
			}
			revoked = now.Before(until)
			return nil
		})
	})
	if err != nil {
		return false, fmt.Errorf("badger: lookup revocation: %w", err)
	}
	return revoked, nil
}

// Purge implements RevocationStore.
func (s *BadgerRevocationStore) Purge(_ context.Context, now time.Time) (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}

	base := s.added.Load()
	scanned := 0
	var ended [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(revocationPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			scanned++
			err := item.Value(func(v []byte) error {
				until, err := decodeUntil(v)
				if err != nil || !now.Before(until) {
					ended = append(ended, item.KeyCopy(nil))
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("badger: scan revocations: %w", err)
	}
	if len(ended) == 0 {
		s.size.Store(int64(scanned) + s.added.Load() - base)
		return 0, nil
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range ended {
		if err := wb.Delete(key); err != nil {
			return 0, fmt.Errorf("badger: delete revocation: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("badger: flush deletes: %w", err)
	}
	s.size.Store(int64(scanned-len(ended)) + s.added.Load() - base)
	return len(ended), nil
}

// purgeAndCollect purges ended entries, then reclaims value log space.
func (s *BadgerRevocationStore) purgeAndCollect(ctx context.Context, now time.Time) (int, error) {
	n, err := s.Purge(ctx, now)
	if err != nil || s.inMemory {
		return n, err
	}

	for {
		if err := s.db.RunValueLogGC(gcDiscardRatio); err != nil {
			if errors.Is(err, badger.ErrNoRewrite) {
				break
			}
			return n, fmt.Errorf("badger: gc: %w", err)
		}
	}
	return n, nil
}

// Size implements RevocationStore. It reads a counter and never touches the
// database.
func (s *BadgerRevocationStore) Size() int {
	if s.check() != nil {
		return 0
	}
	return int(s.size.Load())
}

func (s *BadgerRevocationStore) countEntries() (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(revocationPrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// Close implements RevocationStore.
func (s *BadgerRevocationStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.closed = true
	s.mu.Unlock()

	if s.loop != nil {
		s.loop.stop()
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("badger: close db: %w", err)
	}
	s.logger.Info("badger revocation store closed")
	return nil
}

func (s *BadgerRevocationStore) check() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

func revocationKey(id string) []byte {
	return []byte(revocationPrefix + id)
}

func encodeUntil(t time.Time) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(t.UnixNano()))
	return b
}

func decodeUntil(v []byte) (time.Time, error) {
	if len(v) != 8 {
		return time.Time{}, fmt.Errorf("badger: revocation value has %d bytes", len(v))
	}
	return time.Unix(0, int64(binary.BigEndian.Uint64(v))), nil
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
