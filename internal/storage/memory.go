package storage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/yndnr/fwt-go/pkg/cmap"
)

// MemoryRevocationStore keeps revocations in a sharded map.
type MemoryRevocationStore struct {
	entries *cmap.Map[time.Time]
	loop    *purgeLoop

	mu     sync.RWMutex
	closed bool
}

// NewMemoryRevocationStore creates a memory store. A positive
// purgeInterval starts the background purge loop.
func NewMemoryRevocationStore(purgeInterval time.Duration, logger *slog.Logger) *MemoryRevocationStore {
	s := &MemoryRevocationStore{
		entries: cmap.New[time.Time](),
	}
	if purgeInterval > 0 {
		if logger == nil {
			logger = slog.Default()
		}
		s.loop = startPurgeLoop(purgeInterval, logger, s.Purge)
	}
	return s
}

// Revoke implements RevocationStore.
func (s *MemoryRevocationStore) Revoke(_ context.Context, id string, until time.Time) error {
	if id == "" {
		return ErrEmptyID
	}
	if err := s.check(); err != nil {
		return err
	}

	s.entries.Upsert(id, func(existing time.Time, exists bool) time.Time {
		if exists && existing.After(until) {
			return existing
		}
		return until
	})
	return nil
}

// IsRevoked implements RevocationStore.
func (s *MemoryRevocationStore) IsRevoked(_ context.Context, id string, now time.Time) (bool, error) {
	if err := s.check(); err != nil {
		return false, err
	}
	until, ok := s.entries.Get(id)
	return ok && now.Before(until), nil
}

// Purge implements RevocationStore.
func (s *MemoryRevocationStore) Purge(_ context.Context, now time.Time) (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	return s.entries.DeleteIf(func(_ string, until time.Time) bool {
		return !now.Before(until)
	}), nil
}

// Size implements RevocationStore.
func (s *MemoryRevocationStore) Size() int {
	return s.entries.Count()
}

// Close implements RevocationStore.
func (s *MemoryRevocationStore) Close() error {
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
	s.entries.Clear()
	return nil
}

func (s *MemoryRevocationStore) check() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}
