package signal

import (
	"math"
	"strings"
	"time"

	"github.com/newsweave-lab/clotho/pkg/domain/model"
	"github.com/newsweave-lab/clotho/pkg/domain/types"
)

// Composite score weights.
const (
	weightVelocity        = 0.5
	weightSourceDiversity = 0.3
	weightRecency         = 0.2

	// recentFraction is the tail of the window counted as "recent"
	// for the recency concentration factor.
	recentFraction = 0.2

	maxScore = 10.0
)

// Config holds signal scoring parameters.
type Config struct {
	// SourceDiversityCap is the distinct source count at which the
	// diversity component saturates at 1.0.
	SourceDiversityCap int

	// Normalization divides the weighted sum before scaling to 0..10.
	Normalization float64
}

// DefaultConfig returns the standard scoring parameters.
func DefaultConfig() Config {
	return Config{
		SourceDiversityCap: 10,
		Normalization:      1.0,
	}
}

// Scorer computes per-entity multi-timeframe signals from mention
// events. Pure function of its inputs.
type Scorer struct {
	cfg Config
}

// New creates a scorer.
func New(cfg Config) *Scorer {
	if cfg.SourceDiversityCap <= 0 {
		cfg.SourceDiversityCap = DefaultConfig().SourceDiversityCap
	}
	if cfg.Normalization <= 0 {
		cfg.Normalization = DefaultConfig().Normalization
	}
	return &Scorer{cfg: cfg}
}

// Score computes the signal for one entity and timeframe. The mention
// slice must cover at least two window lengths back from now so the
// previous period is complete; older mentions are ignored.
func (s *Scorer) Score(entity, entityType string, mentions []*model.EntityMention, narrativeIDs []string, timeframe types.Timeframe, now time.Time) *model.EntitySignal {
	window := timeframe.Duration()
	currentStart := now.Add(-window)
	previousStart := now.Add(-2 * window)
	recentStart := now.Add(-time.Duration(float64(window) * recentFraction))

	current := 0
	previous := 0
	recent := 0
	sources := make(map[string]struct{})

	for _, m := range mentions {
		ts := m.MentionedAt
		if ts.After(now) || ts.Before(previousStart) {
			continue
		}
		if ts.Before(currentStart) {
			previous++
			continue
		}

		current++
		sources[strings.ToLower(m.Source)] = struct{}{}
		if !ts.Before(recentStart) {
			recent++
		}
	}

	velocity := 0.0
	if previous > 0 {
		velocity = float64(current-previous) / float64(previous)
	}

	recencyFactor := 0.0
	if current > 0 {
		recencyFactor = float64(recent) / float64(current)
	}

	diversity := float64(len(sources)) / float64(s.cfg.SourceDiversityCap)
	if diversity > 1 {
		diversity = 1
	}

	weighted := velocity*weightVelocity + diversity*weightSourceDiversity + recencyFactor*weightRecency
	score := math.Min(maxScore, weighted/s.cfg.Normalization*maxScore)
	if score < 0 {
		score = 0
	}

	return &model.EntitySignal{
		Entity:        entity,
		EntityType:    entityType,
		Timeframe:     timeframe,
		MentionCount:  current,
		Velocity:      velocity,
		RecencyFactor: recencyFactor,
		Score:         score,
		NarrativeIDs:  narrativeIDs,
		IsEmerging:    len(narrativeIDs) == 0,
		ComputedAt:    now,
	}
}
