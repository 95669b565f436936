package model

import (
	"time"

	"github.com/newsweave-lab/clotho/pkg/domain/types"
)

// EntitySignal is a per-entity per-timeframe scoring record. Signals
// are recomputed wholesale on each scoring cycle; there is no partial
// mutation.
type EntitySignal struct {
	Entity        string
	EntityType    string
	Timeframe     types.Timeframe
	MentionCount  int
	Velocity      float64 // period-over-period growth ratio
	RecencyFactor float64 // fraction of mentions in the most recent 20% of the window
	Score         float64 // composite, 0..10
	NarrativeIDs  []string
	IsEmerging    bool // true iff NarrativeIDs is empty
	ComputedAt    time.Time
}
