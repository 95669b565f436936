package interfaces

import (
	"context"

	"github.com/newsweave-lab/clotho/pkg/domain/model"
	"github.com/newsweave-lab/clotho/pkg/domain/types"
)

type SignalRepository interface {
	// Replace swaps all signals of a timeframe with the given set.
	// Signals are recomputed wholesale each scoring cycle, so the
	// replace strategy avoids per-entity updates in loops.
	Replace(ctx context.Context, timeframe types.Timeframe, signals []*model.EntitySignal) error

	// List retrieves signals of a timeframe ordered by descending score
	List(ctx context.Context, timeframe types.Timeframe, limit int) ([]*model.EntitySignal, error)
}
