package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/newsweave-lab/clotho/pkg/domain/model"
)

type mentionRepository struct {
	mu       sync.RWMutex
	mentions []*model.EntityMention
}

func newMentionRepository() *mentionRepository {
	return &mentionRepository{}
}

func copyMention(m *model.EntityMention) *model.EntityMention {
	copied := *m
	return &copied
}

func (r *mentionRepository) Add(ctx context.Context, mentions ...*model.EntityMention) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range mentions {
		added := copyMention(m)
		if added.ID == "" {
			added.ID = uuid.NewString()
		}

		// Writes with an explicit ID upsert, matching the firestore
		// backend.
		replaced := false
		for i, existing := range r.mentions {
			if existing.ID == added.ID {
				r.mentions[i] = added
				replaced = true
				break
			}
		}
		if !replaced {
			r.mentions = append(r.mentions, added)
		}
	}
	return nil
}

func (r *mentionRepository) ListSince(ctx context.Context, since time.Time) ([]*model.EntityMention, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*model.EntityMention
	for _, m := range r.mentions {
		if m.MentionedAt.Before(since) {
			continue
		}
		result = append(result, copyMention(m))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].MentionedAt.Before(result[j].MentionedAt)
	})
	return result, nil
}

func (r *mentionRepository) ListEntitySince(ctx context.Context, entity string, since time.Time) ([]*model.EntityMention, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*model.EntityMention
	for _, m := range r.mentions {
		if m.MentionedAt.Before(since) {
			continue
		}
		if !strings.EqualFold(m.Entity, entity) {
			continue
		}
		result = append(result, copyMention(m))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].MentionedAt.Before(result[j].MentionedAt)
	})
	return result, nil
}
