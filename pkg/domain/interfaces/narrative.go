package interfaces

import (
	"context"
	"time"

	"github.com/newsweave-lab/clotho/pkg/domain/model"
	"github.com/newsweave-lab/clotho/pkg/domain/types"
)

type NarrativeRepository interface {
	// Create persists a new narrative, assigning an ID if empty
	Create(ctx context.Context, narrative *model.Narrative) (*model.Narrative, error)

	// Get retrieves a narrative by ID
	Get(ctx context.Context, id string) (*model.Narrative, error)

	// Update replaces an existing narrative by ID
	Update(ctx context.Context, narrative *model.Narrative) (*model.Narrative, error)

	// List retrieves narratives with optional filters, most recently
	// updated first
	List(ctx context.Context, opts ...ListNarrativeOption) ([]*model.Narrative, error)

	// ListUpdatedSince retrieves narratives whose LastUpdated falls at
	// or after the given time, restricted to the given stages (all
	// stages when empty), most recently updated first
	ListUpdatedSince(ctx context.Context, since time.Time, stages []types.LifecycleStage) ([]*model.Narrative, error)

	// Claim atomically registers a claim key for a new narrative before
	// creation. It returns the claiming narrative ID: the given ID when
	// this caller won, or the previously registered ID when another
	// cycle already claimed the same emerging story.
	Claim(ctx context.Context, claimKey, narrativeID string) (string, error)
}

// ListNarrativeOption is a functional option for filtering narratives in List
type ListNarrativeOption func(*listNarrativeConfig)

type listNarrativeConfig struct {
	stage *types.LifecycleStage
	limit int
}

// WithStage filters narratives by lifecycle stage
func WithStage(stage types.LifecycleStage) ListNarrativeOption {
	return func(c *listNarrativeConfig) {
		c.stage = &stage
	}
}

// WithLimit caps the number of returned narratives
func WithLimit(limit int) ListNarrativeOption {
	return func(c *listNarrativeConfig) {
		c.limit = limit
	}
}

// BuildListNarrativeConfig builds a listNarrativeConfig from options
func BuildListNarrativeConfig(opts ...ListNarrativeOption) *listNarrativeConfig {
	cfg := &listNarrativeConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Stage returns the stage filter value, or nil if not set
func (c *listNarrativeConfig) Stage() *types.LifecycleStage {
	return c.stage
}

// Limit returns the limit, or 0 if unbounded
func (c *listNarrativeConfig) Limit() int {
	return c.limit
}
