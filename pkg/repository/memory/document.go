package memory

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/newsweave-lab/clotho/pkg/domain/interfaces"
	"github.com/newsweave-lab/clotho/pkg/domain/model"
)

type documentRepository struct {
	mu   sync.RWMutex
	docs map[string]*model.Document
}

func newDocumentRepository() *documentRepository {
	return &documentRepository{
		docs: make(map[string]*model.Document),
	}
}

func copyDocument(d *model.Document) *model.Document {
	copied := *d
	copied.Actors = slices.Clone(d.Actors)
	copied.Actions = slices.Clone(d.Actions)
	copied.Tensions = slices.Clone(d.Tensions)
	if d.ActorSalience != nil {
		copied.ActorSalience = maps.Clone(d.ActorSalience)
	}
	return &copied
}

func (r *documentRepository) Put(ctx context.Context, docs ...*model.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, doc := range docs {
		if doc.ID == "" {
			return goerr.New("document ID is required")
		}
		r.docs[doc.ID] = copyDocument(doc)
	}
	return nil
}

func (r *documentRepository) Get(ctx context.Context, id string) (*model.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, exists := r.docs[id]
	if !exists {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "document not found", goerr.V("id", id))
	}
	return copyDocument(doc), nil
}

func (r *documentRepository) GetByIDs(ctx context.Context, ids []string) ([]*model.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.Document, 0, len(ids))
	for _, id := range ids {
		if doc, exists := r.docs[id]; exists {
			result = append(result, copyDocument(doc))
		}
	}
	return result, nil
}

func (r *documentRepository) ListUnprocessed(ctx context.Context, limit int) ([]*model.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*model.Document
	for _, doc := range r.docs {
		if doc.ProcessedAt.IsZero() {
			result = append(result, copyDocument(doc))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].PublishedAt.Before(result[j].PublishedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *documentRepository) MarkProcessed(ctx context.Context, ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	for _, id := range ids {
		if doc, exists := r.docs[id]; exists {
			doc.ProcessedAt = now
		}
	}
	return nil
}
