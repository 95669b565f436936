package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/newsweave-lab/clotho/pkg/domain/interfaces"
	"github.com/newsweave-lab/clotho/pkg/domain/model"
	"github.com/newsweave-lab/clotho/pkg/domain/types"
)

type narrativeRepository struct {
	mu         sync.RWMutex
	narratives map[string]*model.Narrative
	claims     map[string]string // claim key -> narrative ID
}

func newNarrativeRepository() *narrativeRepository {
	return &narrativeRepository{
		narratives: make(map[string]*model.Narrative),
		claims:     make(map[string]string),
	}
}

func copyNarrative(n *model.Narrative) *model.Narrative {
	copied := *n
	copied.Entities = slices.Clone(n.Entities)
	copied.DocumentIDs = slices.Clone(n.DocumentIDs)
	copied.Fingerprint.TopActors = slices.Clone(n.Fingerprint.TopActors)
	copied.Fingerprint.KeyActions = slices.Clone(n.Fingerprint.KeyActions)
	return &copied
}

func (r *narrativeRepository) Create(ctx context.Context, narrative *model.Narrative) (*model.Narrative, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := copyNarrative(narrative)
	if created.ID == "" {
		created.ID = uuid.NewString()
	}
	if _, exists := r.narratives[created.ID]; exists {
		return nil, goerr.New("narrative already exists", goerr.V("id", created.ID))
	}

	r.narratives[created.ID] = created
	return copyNarrative(created), nil
}

func (r *narrativeRepository) Get(ctx context.Context, id string) (*model.Narrative, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, exists := r.narratives[id]
	if !exists {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "narrative not found", goerr.V("id", id))
	}
	return copyNarrative(n), nil
}

func (r *narrativeRepository) Update(ctx context.Context, narrative *model.Narrative) (*model.Narrative, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.narratives[narrative.ID]; !exists {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "narrative not found", goerr.V("id", narrative.ID))
	}

	updated := copyNarrative(narrative)
	r.narratives[narrative.ID] = updated
	return copyNarrative(updated), nil
}

func (r *narrativeRepository) List(ctx context.Context, opts ...interfaces.ListNarrativeOption) ([]*model.Narrative, error) {
	cfg := interfaces.BuildListNarrativeConfig(opts...)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*model.Narrative
	for _, n := range r.narratives {
		if cfg.Stage() != nil && n.LifecycleStage != *cfg.Stage() {
			continue
		}
		result = append(result, copyNarrative(n))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].LastUpdated.After(result[j].LastUpdated)
	})

	if cfg.Limit() > 0 && len(result) > cfg.Limit() {
		result = result[:cfg.Limit()]
	}
	return result, nil
}

func (r *narrativeRepository) ListUpdatedSince(ctx context.Context, since time.Time, stages []types.LifecycleStage) ([]*model.Narrative, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stageSet := make(map[types.LifecycleStage]struct{}, len(stages))
	for _, s := range stages {
		stageSet[s] = struct{}{}
	}

	var result []*model.Narrative
	for _, n := range r.narratives {
		if n.LastUpdated.Before(since) {
			continue
		}
		if len(stageSet) > 0 {
			if _, ok := stageSet[n.LifecycleStage]; !ok {
				continue
			}
		}
		result = append(result, copyNarrative(n))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].LastUpdated.After(result[j].LastUpdated)
	})
	return result, nil
}

func (r *narrativeRepository) Claim(ctx context.Context, claimKey, narrativeID string) (string, error) {
	if claimKey == "" {
		return "", goerr.New("claim key is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if winner, exists := r.claims[claimKey]; exists {
		return winner, nil
	}
	r.claims[claimKey] = narrativeID
	return narrativeID, nil
}
