package interfaces

import (
	"context"
	"time"

	"github.com/newsweave-lab/clotho/pkg/domain/model"
)

type CacheRepository interface {
	// Get retrieves a cache entry by key. Returns the backend's
	// ErrNotFound when absent.
	Get(ctx context.Context, key string) (*model.CacheEntry, error)

	// Put upserts a cache entry. Writes are idempotent because entries
	// are content-addressed.
	Put(ctx context.Context, entry *model.CacheEntry) error

	// IncrementHit bumps the hit counter of an entry
	IncrementHit(ctx context.Context, key string) error

	// PruneExpired removes entries expired at the given time and
	// returns the number removed
	PruneExpired(ctx context.Context, now time.Time) (int, error)
}

type CostRepository interface {
	// Append adds a usage record to the ledger
	Append(ctx context.Context, record *model.CostRecord) error

	// ListSince retrieves records created at or after the given time
	ListSince(ctx context.Context, since time.Time) ([]*model.CostRecord, error)
}
