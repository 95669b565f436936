package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/newsweave-lab/clotho/pkg/domain/model"
	"github.com/newsweave-lab/clotho/pkg/domain/types"
)

type signalRepository struct {
	mu      sync.RWMutex
	signals map[types.Timeframe][]*model.EntitySignal
}

func newSignalRepository() *signalRepository {
	return &signalRepository{
		signals: make(map[types.Timeframe][]*model.EntitySignal),
	}
}

func copySignal(s *model.EntitySignal) *model.EntitySignal {
	copied := *s
	copied.NarrativeIDs = slices.Clone(s.NarrativeIDs)
	return &copied
}

func (r *signalRepository) Replace(ctx context.Context, timeframe types.Timeframe, signals []*model.EntitySignal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	replaced := make([]*model.EntitySignal, len(signals))
	for i, s := range signals {
		replaced[i] = copySignal(s)
	}
	r.signals[timeframe] = replaced
	return nil
}

func (r *signalRepository) List(ctx context.Context, timeframe types.Timeframe, limit int) ([]*model.EntitySignal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.signals[timeframe]
	result := make([]*model.EntitySignal, len(stored))
	for i, s := range stored {
		result[i] = copySignal(s)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Score > result[j].Score
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
