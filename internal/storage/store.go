package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Errors.
var (
	ErrClosed  = errors.New("storage: store closed")
	ErrEmptyID = errors.New("storage: token id is empty")
)

// Backend names.
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
)

// DefaultPurgeInterval is used when Config.PurgeInterval is not positive.
const DefaultPurgeInterval = time.Minute

// RevocationStore records revoked token IDs.
//
// Implementations are safe for concurrent use.
type RevocationStore interface {
	// Revoke rejects id until the given instant. Revoking an id again keeps
	// the later of the two instants.
	Revoke(ctx context.Context, id string, until time.Time) error

	// IsRevoked reports whether id is revoked at now.
	IsRevoked(ctx context.Context, id string, now time.Time) (bool, error)

	// Purge drops entries whose window ended at or before now and returns
	// how many were dropped.
	Purge(ctx context.Context, now time.Time) (int, error)

	// Size returns the number of stored entries.
	Size() int

	// Close releases the store. Further calls return ErrClosed.
	Close() error
}

// Config configures a revocation store.
type Config struct {
	// Backend is "memory" or "badger".
	Backend string

	// Dir is the Badger data directory.
	Dir string

	// InMemory runs Badger without touching disk.
	InMemory bool

	// PurgeInterval is the interval between automatic purges.
	PurgeInterval time.Duration

	// SyncWrites fsyncs every Badger write.
	SyncWrites bool

	Logger *slog.Logger
}

// Open creates the configured store and starts its purge loop.
func Open(cfg Config) (RevocationStore, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.PurgeInterval <= 0 {
		cfg.PurgeInterval = DefaultPurgeInterval
	}

	switch strings.ToLower(cfg.Backend) {
	case "", BackendMemory:
		return NewMemoryRevocationStore(cfg.PurgeInterval, cfg.Logger), nil
	case BackendBadger:
		return NewBadgerRevocationStore(cfg)
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", cfg.Backend)
	}
}

// purgeLoop runs Purge on a ticker until stop closes.
type purgeLoop struct {
	stopCh chan struct{}
	doneCh chan struct{}
}

func startPurgeLoop(interval time.Duration, logger *slog.Logger, purge func(context.Context, time.Time) (int, error)) *purgeLoop {
	p := &purgeLoop{
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	go func() {
		defer close(p.doneCh)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), interval)
				n, err := purge(ctx, time.Now())
				cancel()
				if err != nil {
					logger.Error("revocation purge failed", "error", err)
				} else if n > 0 {
					logger.Debug("revocations purged", "count", n)
				}

			case <-p.stopCh:
				return
			}
		}
	}()

	return p
}

func (p *purgeLoop) stop() {
	close(p.stopCh)
	<-p.doneCh
}
