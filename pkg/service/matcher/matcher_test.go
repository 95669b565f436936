package matcher_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/newsweave-lab/clotho/pkg/domain/model"
	"github.com/newsweave-lab/clotho/pkg/domain/types"
	"github.com/newsweave-lab/clotho/pkg/repository/memory"
	"github.com/newsweave-lab/clotho/pkg/service/matcher"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newMatcher(t *testing.T, narratives ...*model.Narrative) *matcher.Matcher {
	t.Helper()
	repo := memory.New()
	for _, n := range narratives {
		_, err := repo.Narrative().Create(context.Background(), n)
		gt.NoError(t, err).Required()
	}
	return matcher.New(repo, matcher.DefaultConfig(), matcher.WithClock(func() time.Time { return now }))
}

func enforcementFingerprint(actors ...string) model.Fingerprint {
	return model.Fingerprint{
		NucleusEntity: "SEC",
		TopActors:     actors,
		Timestamp:     now,
	}
}

func TestMatchTimeAdaptiveThreshold(t *testing.T) {
	// Similarity between the incoming fingerprint and the candidate is
	// 0.55: above the recent threshold (0.5), below the stale threshold (0.6).
	incoming := enforcementFingerprint("SEC", "Binance", "Coinbase")

	t.Run("matches candidate updated within 48h", func(t *testing.T) {
		m := newMatcher(t, &model.Narrative{
			ID:             "recent",
			Title:          "SEC enforcement wave",
			Fingerprint:    enforcementFingerprint("SEC", "Binance", "Kraken"),
			LifecycleStage: types.StageHot,
			LastUpdated:    now.Add(-24 * time.Hour),
		})

		got, err := m.Match(context.Background(), incoming)
		gt.NoError(t, err).Required()
		gt.Value(t, got).NotNil().Required()
		gt.Value(t, got.ID).Equal("recent")
	})

	t.Run("rejects same candidate when stale", func(t *testing.T) {
		m := newMatcher(t, &model.Narrative{
			ID:             "stale",
			Title:          "SEC enforcement wave",
			Fingerprint:    enforcementFingerprint("SEC", "Binance", "Kraken"),
			LifecycleStage: types.StageCooling,
			LastUpdated:    now.Add(-72 * time.Hour),
		})

		got, err := m.Match(context.Background(), incoming)
		gt.NoError(t, err).Required()
		gt.Value(t, got).Nil()
	})
}

func TestMatchPicksBestCandidate(t *testing.T) {
	m := newMatcher(t,
		&model.Narrative{
			ID:             "partial",
			Fingerprint:    enforcementFingerprint("SEC", "Ripple", "Kraken"),
			LifecycleStage: types.StageRising,
			LastUpdated:    now.Add(-time.Hour),
		},
		&model.Narrative{
			ID:             "exact",
			Fingerprint:    enforcementFingerprint("SEC", "Binance", "Coinbase"),
			LifecycleStage: types.StageHot,
			LastUpdated:    now.Add(-time.Hour),
		},
	)

	got, err := m.Match(context.Background(), enforcementFingerprint("SEC", "Binance", "Coinbase"))
	gt.NoError(t, err).Required()
	gt.Value(t, got).NotNil().Required()
	gt.Value(t, got.ID).Equal("exact")
}

func TestMatchIgnoresOutOfScope(t *testing.T) {
	t.Run("outside lookback window", func(t *testing.T) {
		m := newMatcher(t, &model.Narrative{
			ID:             "ancient",
			Fingerprint:    enforcementFingerprint("SEC", "Binance", "Coinbase"),
			LifecycleStage: types.StageDormant,
			LastUpdated:    now.Add(-15 * 24 * time.Hour),
		})

		got, err := m.Match(context.Background(), enforcementFingerprint("SEC", "Binance", "Coinbase"))
		gt.NoError(t, err).Required()
		gt.Value(t, got).Nil()
	})

	t.Run("absorbed narratives are skipped", func(t *testing.T) {
		m := newMatcher(t, &model.Narrative{
			ID:             "absorbed",
			Fingerprint:    enforcementFingerprint("SEC", "Binance", "Coinbase"),
			LifecycleStage: types.StageDormant,
			LastUpdated:    now.Add(-time.Hour),
			MergedInto:     "survivor",
		})

		got, err := m.Match(context.Background(), enforcementFingerprint("SEC", "Binance", "Coinbase"))
		gt.NoError(t, err).Required()
		gt.Value(t, got).Nil()
	})
}

func TestMatchCandidateStages(t *testing.T) {
	// Only emerging, rising, hot, cooling and dormant narratives are
	// match candidates. A peaked story keeps its identity: new clusters
	// around it start fresh narratives instead of piling on.
	incoming := enforcementFingerprint("SEC", "Binance", "Coinbase")

	excluded := []types.LifecycleStage{types.StageHeating, types.StageMature}
	for _, stage := range excluded {
		t.Run("skips "+stage.String(), func(t *testing.T) {
			m := newMatcher(t, &model.Narrative{
				ID:             "peaked",
				Fingerprint:    enforcementFingerprint("SEC", "Binance", "Coinbase"),
				LifecycleStage: stage,
				LastUpdated:    now.Add(-time.Hour),
			})

			got, err := m.Match(context.Background(), incoming)
			gt.NoError(t, err).Required()
			gt.Value(t, got).Nil()
		})
	}

	included := []types.LifecycleStage{
		types.StageEmerging,
		types.StageRising,
		types.StageHot,
		types.StageCooling,
		types.StageDormant,
	}
	for _, stage := range included {
		t.Run("matches "+stage.String(), func(t *testing.T) {
			m := newMatcher(t, &model.Narrative{
				ID:             "active",
				Fingerprint:    enforcementFingerprint("SEC", "Binance", "Coinbase"),
				LifecycleStage: stage,
				LastUpdated:    now.Add(-time.Hour),
			})

			got, err := m.Match(context.Background(), incoming)
			gt.NoError(t, err).Required()
			gt.Value(t, got).NotNil().Required()
			gt.Value(t, got.ID).Equal("active")
		})
	}
}

func TestMatchDormantReawakens(t *testing.T) {
	m := newMatcher(t, &model.Narrative{
		ID:             "dormant",
		Fingerprint:    enforcementFingerprint("SEC", "Binance", "Coinbase"),
		LifecycleStage: types.StageDormant,
		LastUpdated:    now.Add(-10 * 24 * time.Hour),
	})

	got, err := m.Match(context.Background(), enforcementFingerprint("SEC", "Binance", "Coinbase"))
	gt.NoError(t, err).Required()
	gt.Value(t, got).NotNil().Required()
	gt.Value(t, got.ID).Equal("dormant")
}

func TestMatchLegacyNarrative(t *testing.T) {
	// Narratives stored before fingerprinting match via reconstruction
	// from nucleus entity and entity list.
	m := newMatcher(t, &model.Narrative{
		ID:             "legacy",
		Title:          "SEC sues Binance",
		NucleusEntity:  "SEC",
		Entities:       []string{"SEC", "Binance", "Coinbase"},
		LifecycleStage: types.StageHot,
		LastUpdated:    now.Add(-time.Hour),
	})

	got, err := m.Match(context.Background(), enforcementFingerprint("SEC", "Binance", "Coinbase"))
	gt.NoError(t, err).Required()
	gt.Value(t, got).NotNil().Required()
	gt.Value(t, got.ID).Equal("legacy")
}
