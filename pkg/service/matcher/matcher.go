package matcher

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/newsweave-lab/clotho/pkg/domain/interfaces"
	"github.com/newsweave-lab/clotho/pkg/domain/model"
	"github.com/newsweave-lab/clotho/pkg/domain/types"
	"github.com/newsweave-lab/clotho/pkg/utils/logging"
)

// Config holds matching thresholds. The similarity threshold is
// time-adaptive per candidate: recently updated narratives match more
// permissively because an active story drifts its cast faster than a
// stale one should attract new documents.
type Config struct {
	Lookback        time.Duration // window over candidate LastUpdated
	RecentWindow    time.Duration // age under which RecentThreshold applies
	RecentThreshold float64
	StaleThreshold  float64
}

// DefaultConfig returns the standard matching thresholds.
func DefaultConfig() Config {
	return Config{
		Lookback:        14 * 24 * time.Hour,
		RecentWindow:    48 * time.Hour,
		RecentThreshold: 0.5,
		StaleThreshold:  0.6,
	}
}

// Matcher finds the existing narrative a new cluster belongs to.
type Matcher struct {
	repo  interfaces.Repository
	cfg   Config
	clock func() time.Time
}

// Option is a functional option for Matcher configuration
type Option func(*Matcher)

// WithClock injects the time source, for tests.
func WithClock(clock func() time.Time) Option {
	return func(m *Matcher) {
		m.clock = clock
	}
}

// New creates a matcher.
func New(repo interfaces.Repository, cfg Config, opts ...Option) *Matcher {
	m := &Matcher{
		repo:  repo,
		cfg:   cfg,
		clock: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Match searches active narratives updated within the lookback window
// and returns the best candidate whose similarity clears its own
// time-adaptive threshold, or nil when none does (the caller creates a
// new narrative).
func (m *Matcher) Match(ctx context.Context, fp model.Fingerprint) (*model.Narrative, error) {
	logger := logging.From(ctx)
	now := m.clock()

	candidates, err := m.repo.Narrative().ListUpdatedSince(ctx, now.Add(-m.cfg.Lookback), types.ActiveStages())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list candidate narratives")
	}

	var best *model.Narrative
	bestScore := 0.0
	for _, candidate := range candidates {
		if candidate.MergedInto != "" {
			continue
		}

		score := fp.Similarity(candidate.MatchFingerprint())

		threshold := m.cfg.StaleThreshold
		if now.Sub(candidate.LastUpdated) <= m.cfg.RecentWindow {
			threshold = m.cfg.RecentThreshold
		}

		if score < threshold {
			continue
		}
		if best == nil || score > bestScore {
			best = candidate
			bestScore = score
		}
	}

	if best != nil {
		logger.Debug("matched narrative",
			"narrative_id", best.ID,
			"title", best.Title,
			"similarity", bestScore,
		)
	}
	return best, nil
}
