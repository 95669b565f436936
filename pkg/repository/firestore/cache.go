package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/newsweave-lab/clotho/pkg/domain/interfaces"
	"github.com/newsweave-lab/clotho/pkg/domain/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type cacheDoc struct {
	Key       string    `firestore:"key"`
	Operation string    `firestore:"operation"`
	Model     string    `firestore:"model"`
	Response  string    `firestore:"response"`
	CreatedAt time.Time `firestore:"created_at"`
	ExpiresAt time.Time `firestore:"expires_at"`
	HitCount  int       `firestore:"hit_count"`
}

type cacheRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newCacheRepository(client *firestore.Client) *cacheRepository {
	return &cacheRepository{client: client}
}

func (r *cacheRepository) collection() string {
	return collectionName(r.collectionPrefix, "extraction_cache")
}

func (r *cacheRepository) Get(ctx context.Context, key string) (*model.CacheEntry, error) {
	snapshot, err := r.client.Collection(r.collection()).Doc(key).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "cache entry not found", goerr.V("key", key))
		}
		return nil, goerr.Wrap(err, "failed to get cache entry", goerr.V("key", key))
	}

	var doc cacheDoc
	if err := snapshot.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode cache entry", goerr.V("key", key))
	}
	return &model.CacheEntry{
		Key:       doc.Key,
		Operation: doc.Operation,
		Model:     doc.Model,
		Response:  doc.Response,
		CreatedAt: doc.CreatedAt,
		ExpiresAt: doc.ExpiresAt,
		HitCount:  doc.HitCount,
	}, nil
}

func (r *cacheRepository) Put(ctx context.Context, entry *model.CacheEntry) error {
	if entry.Key == "" {
		return goerr.New("cache key is required")
	}

	doc := &cacheDoc{
		Key:       entry.Key,
		Operation: entry.Operation,
		Model:     entry.Model,
		Response:  entry.Response,
		CreatedAt: entry.CreatedAt,
		ExpiresAt: entry.ExpiresAt,
		HitCount:  entry.HitCount,
	}
	if _, err := r.client.Collection(r.collection()).Doc(entry.Key).Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to put cache entry", goerr.V("key", entry.Key))
	}
	return nil
}

func (r *cacheRepository) IncrementHit(ctx context.Context, key string) error {
	docRef := r.client.Collection(r.collection()).Doc(key)
	_, err := docRef.Update(ctx, []firestore.Update{
		{Path: "hit_count", Value: firestore.Increment(1)},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(interfaces.ErrNotFound, "cache entry not found", goerr.V("key", key))
		}
		return goerr.Wrap(err, "failed to increment hit count", goerr.V("key", key))
	}
	return nil
}

func (r *cacheRepository) PruneExpired(ctx context.Context, now time.Time) (int, error) {
	iter := r.client.Collection(r.collection()).
		Where("expires_at", "<=", now).
		Documents(ctx)
	defer iter.Stop()

	bw := r.client.BulkWriter(ctx)
	removed := 0
	for {
		snapshot, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return 0, goerr.Wrap(err, "failed to iterate expired cache entries")
		}
		if _, err := bw.Delete(snapshot.Ref); err != nil {
			return 0, goerr.Wrap(err, "failed to enqueue cache delete")
		}
		removed++
	}
	bw.End()
	return removed, nil
}

type costDoc struct {
	ID         string    `firestore:"id"`
	Operation  string    `firestore:"operation"`
	Model      string    `firestore:"model"`
	InputSize  int       `firestore:"input_size"`
	OutputSize int       `firestore:"output_size"`
	Cost       float64   `firestore:"cost"`
	CreatedAt  time.Time `firestore:"created_at"`
}

type costRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newCostRepository(client *firestore.Client) *costRepository {
	return &costRepository{client: client}
}

func (r *costRepository) collection() string {
	return collectionName(r.collectionPrefix, "cost_ledger")
}

func (r *costRepository) Append(ctx context.Context, record *model.CostRecord) error {
	id := record.ID
	if id == "" {
		id = uuid.NewString()
	}

	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	doc := &costDoc{
		ID:         id,
		Operation:  record.Operation,
		Model:      record.Model,
		InputSize:  record.InputSize,
		OutputSize: record.OutputSize,
		Cost:       record.Cost,
		CreatedAt:  createdAt,
	}
	if _, err := r.client.Collection(r.collection()).Doc(id).Create(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to append cost record", goerr.V("id", id))
	}
	return nil
}

func (r *costRepository) ListSince(ctx context.Context, since time.Time) ([]*model.CostRecord, error) {
	iter := r.client.Collection(r.collection()).
		Where("created_at", ">=", since).
		Documents(ctx)
	defer iter.Stop()

	var result []*model.CostRecord
	for {
		snapshot, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate cost records")
		}

		var doc costDoc
		if err := snapshot.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode cost record")
		}
		result = append(result, &model.CostRecord{
			ID:         doc.ID,
			Operation:  doc.Operation,
			Model:      doc.Model,
			InputSize:  doc.InputSize,
			OutputSize: doc.OutputSize,
			Cost:       doc.Cost,
			CreatedAt:  doc.CreatedAt,
		})
	}
	return result, nil
}
