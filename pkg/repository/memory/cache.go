package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/newsweave-lab/clotho/pkg/domain/interfaces"
	"github.com/newsweave-lab/clotho/pkg/domain/model"
)

type cacheRepository struct {
	mu      sync.RWMutex
	entries map[string]*model.CacheEntry
}

func newCacheRepository() *cacheRepository {
	return &cacheRepository{
		entries: make(map[string]*model.CacheEntry),
	}
}

func copyCacheEntry(e *model.CacheEntry) *model.CacheEntry {
	copied := *e
	return &copied
}

func (r *cacheRepository) Get(ctx context.Context, key string) (*model.CacheEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.entries[key]
	if !exists {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "cache entry not found", goerr.V("key", key))
	}
	return copyCacheEntry(entry), nil
}

func (r *cacheRepository) Put(ctx context.Context, entry *model.CacheEntry) error {
	if entry.Key == "" {
		return goerr.New("cache key is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[entry.Key] = copyCacheEntry(entry)
	return nil
}

func (r *cacheRepository) IncrementHit(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.entries[key]
	if !exists {
		return goerr.Wrap(interfaces.ErrNotFound, "cache entry not found", goerr.V("key", key))
	}
	entry.HitCount++
	return nil
}

func (r *cacheRepository) PruneExpired(ctx context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for key, entry := range r.entries {
		if entry.Expired(now) {
			delete(r.entries, key)
			removed++
		}
	}
	return removed, nil
}

type costRepository struct {
	mu      sync.RWMutex
	records []*model.CostRecord
}

func newCostRepository() *costRepository {
	return &costRepository{}
}

func copyCostRecord(rec *model.CostRecord) *model.CostRecord {
	copied := *rec
	return &copied
}

func (r *costRepository) Append(ctx context.Context, record *model.CostRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	added := copyCostRecord(record)
	if added.ID == "" {
		added.ID = uuid.NewString()
	}
	if added.CreatedAt.IsZero() {
		added.CreatedAt = time.Now().UTC()
	}
	r.records = append(r.records, added)
	return nil
}

func (r *costRepository) ListSince(ctx context.Context, since time.Time) ([]*model.CostRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*model.CostRecord
	for _, rec := range r.records {
		if rec.CreatedAt.Before(since) {
			continue
		}
		result = append(result, copyCostRecord(rec))
	}
	return result, nil
}
