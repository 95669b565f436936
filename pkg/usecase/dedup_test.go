package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/newsweave-lab/clotho/pkg/domain/model"
	"github.com/newsweave-lab/clotho/pkg/domain/types"
	"github.com/newsweave-lab/clotho/pkg/repository/memory"
	"github.com/newsweave-lab/clotho/pkg/usecase"
)

func newDedup(repo *memory.Memory) *usecase.DedupUseCase {
	uc := usecase.NewDedupUseCase(repo, usecase.DefaultDedupConfig())
	uc.SetClock(func() time.Time { return now })
	return uc
}

func seedNarrative(t *testing.T, repo *memory.Memory, id string, entities []string, docIDs []string, firstSeen time.Time) *model.Narrative {
	t.Helper()
	n := &model.Narrative{
		ID:             id,
		Title:          id,
		Entities:       entities,
		FirstSeen:      firstSeen,
		LastUpdated:    now.Add(-time.Hour),
		LifecycleStage: types.StageHot,
	}
	for _, docID := range docIDs {
		n.AddDocument(docID)
	}
	created, err := repo.Narrative().Create(context.Background(), n)
	gt.NoError(t, err).Required()
	return created
}

func TestDedupRun(t *testing.T) {
	ctx := context.Background()

	t.Run("absorbs near-identical narratives into the larger one", func(t *testing.T) {
		repo := memory.New()
		uc := newDedup(repo)

		// Entity overlap 3/4 = 0.75, above the 0.7 threshold.
		seedNarrative(t, repo, "n-big",
			[]string{"SEC", "Binance", "Bitcoin", "CFTC"},
			[]string{"d1", "d2", "d3"},
			now.Add(-5*24*time.Hour),
		)
		seedNarrative(t, repo, "n-small",
			[]string{"SEC", "Binance", "Bitcoin"},
			[]string{"d3", "d4"},
			now.Add(-7*24*time.Hour),
		)
		// Unrelated narrative stays untouched.
		seedNarrative(t, repo, "n-other",
			[]string{"Ethereum", "Vitalik Buterin"},
			[]string{"d9"},
			now.Add(-2*24*time.Hour),
		)

		report, err := uc.Run(ctx)
		gt.NoError(t, err).Required()
		gt.Value(t, report.Compared).Equal(3)
		gt.Value(t, report.Groups).Equal(1)
		gt.Value(t, report.Absorbed).Equal(1)

		survivor, err := repo.Narrative().Get(ctx, "n-big")
		gt.NoError(t, err).Required()
		gt.Value(t, survivor.DocumentCount).Equal(4) // d3 shared, not doubled
		gt.Value(t, survivor.MergedInto).Equal("")
		// Survivor takes the earliest first-seen of the group.
		gt.Value(t, survivor.FirstSeen).Equal(now.Add(-7 * 24 * time.Hour))
		gt.Value(t, survivor.LastUpdated).Equal(now)

		absorbed, err := repo.Narrative().Get(ctx, "n-small")
		gt.NoError(t, err).Required()
		gt.Value(t, absorbed.MergedInto).Equal("n-big")
		gt.Value(t, absorbed.LifecycleStage).Equal(types.StageDormant)
		// Absorbed narratives keep their documents; nothing is deleted.
		gt.Value(t, absorbed.DocumentCount).Equal(2)

		other, err := repo.Narrative().Get(ctx, "n-other")
		gt.NoError(t, err).Required()
		gt.Value(t, other.MergedInto).Equal("")
		gt.Value(t, other.LifecycleStage).Equal(types.StageHot)
	})

	t.Run("below threshold narratives stay apart", func(t *testing.T) {
		repo := memory.New()
		uc := newDedup(repo)

		// Overlap 2/4 = 0.5, below the threshold.
		seedNarrative(t, repo, "n-a", []string{"SEC", "Binance", "Coinbase"}, []string{"d1"}, now)
		seedNarrative(t, repo, "n-b", []string{"SEC", "Binance", "Kraken"}, []string{"d2"}, now)

		report, err := uc.Run(ctx)
		gt.NoError(t, err).Required()
		gt.Value(t, report.Groups).Equal(0)
		gt.Value(t, report.Absorbed).Equal(0)
	})

	t.Run("already merged narratives are not compared again", func(t *testing.T) {
		repo := memory.New()
		uc := newDedup(repo)

		seedNarrative(t, repo, "n-live", []string{"SEC", "Binance", "Bitcoin"}, []string{"d1", "d2"}, now)
		parked := seedNarrative(t, repo, "n-parked", []string{"SEC", "Binance", "Bitcoin"}, []string{"d3"}, now)
		parked.MergedInto = "n-live"
		_, err := repo.Narrative().Update(ctx, parked)
		gt.NoError(t, err).Required()

		report, err := uc.Run(ctx)
		gt.NoError(t, err).Required()
		gt.Value(t, report.Compared).Equal(1)
		gt.Value(t, report.Absorbed).Equal(0)
	})

	t.Run("stale narratives outside the window are skipped", func(t *testing.T) {
		repo := memory.New()
		uc := newDedup(repo)

		stale := seedNarrative(t, repo, "n-stale", []string{"SEC", "Binance"}, []string{"d1"}, now)
		stale.LastUpdated = now.Add(-30 * 24 * time.Hour)
		_, err := repo.Narrative().Update(ctx, stale)
		gt.NoError(t, err).Required()
		seedNarrative(t, repo, "n-fresh", []string{"SEC", "Binance"}, []string{"d2"}, now)

		report, err := uc.Run(ctx)
		gt.NoError(t, err).Required()
		gt.Value(t, report.Compared).Equal(1)
		gt.Value(t, report.Absorbed).Equal(0)
	})
}
