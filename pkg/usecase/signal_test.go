package usecase_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/newsweave-lab/clotho/pkg/domain/model"
	"github.com/newsweave-lab/clotho/pkg/domain/types"
	"github.com/newsweave-lab/clotho/pkg/repository/memory"
	"github.com/newsweave-lab/clotho/pkg/service/canonical"
	"github.com/newsweave-lab/clotho/pkg/service/signal"
	"github.com/newsweave-lab/clotho/pkg/usecase"
)

func newSignal(repo *memory.Memory) *usecase.SignalUseCase {
	uc := usecase.NewSignalUseCase(repo, canonical.New(nil), signal.DefaultConfig())
	uc.SetClock(func() time.Time { return now })
	return uc
}

func addMentions(t *testing.T, repo *memory.Memory, entity, source string, count int, at time.Time) {
	t.Helper()
	mentions := make([]*model.EntityMention, 0, count)
	for i := 0; i < count; i++ {
		mentions = append(mentions, &model.EntityMention{
			ID:          fmt.Sprintf("%s-%s-%d", entity, at.Format("20060102150405"), i),
			Entity:      entity,
			Source:      source,
			MentionedAt: at.Add(-time.Duration(i) * time.Minute),
		})
	}
	gt.NoError(t, repo.Mention().Add(context.Background(), mentions...)).Required()
}

func TestSignalRun(t *testing.T) {
	ctx := context.Background()

	t.Run("scores every timeframe", func(t *testing.T) {
		repo := memory.New()
		uc := newSignal(repo)

		addMentions(t, repo, "Solana", "coindesk", 5, now.Add(-2*time.Hour))
		addMentions(t, repo, "Bitcoin", "reuters", 2, now.Add(-3*24*time.Hour))

		gt.NoError(t, uc.Run(ctx)).Required()

		for _, tf := range types.AllTimeframes() {
			signals, err := repo.Signal().List(ctx, tf, 0)
			gt.NoError(t, err).Required()
			gt.Bool(t, len(signals) > 0).True()
		}

		// Bitcoin's mentions are outside the 24h window.
		day, err := repo.Signal().List(ctx, types.Timeframe24h, 0)
		gt.NoError(t, err).Required()
		gt.Array(t, day).Length(2).Required()
		for _, s := range day {
			if s.Entity == "Bitcoin" {
				gt.Value(t, s.MentionCount).Equal(0)
			}
			if s.Entity == "Solana" {
				gt.Value(t, s.MentionCount).Equal(5)
			}
			gt.Value(t, s.EntityType).Equal(canonical.TypeAsset)
		}
	})

	t.Run("entity types come from canonical classification", func(t *testing.T) {
		repo := memory.New()
		uc := newSignal(repo)

		addMentions(t, repo, "SEC", "reuters", 2, now.Add(-time.Hour))
		addMentions(t, repo, "MicroStrategy", "coindesk", 2, now.Add(-time.Hour))

		gt.NoError(t, uc.Run(ctx)).Required()

		signals, err := repo.Signal().List(ctx, types.Timeframe24h, 0)
		gt.NoError(t, err).Required()
		gt.Array(t, signals).Length(2).Required()
		for _, s := range signals {
			switch s.Entity {
			case "SEC":
				gt.Value(t, s.EntityType).Equal(canonical.TypeOrganization)
			case "MicroStrategy":
				gt.Value(t, s.EntityType).Equal("")
			}
		}
	})

	t.Run("mentions are grouped case-insensitively", func(t *testing.T) {
		repo := memory.New()
		uc := newSignal(repo)

		addMentions(t, repo, "SEC", "reuters", 2, now.Add(-time.Hour))
		addMentions(t, repo, "sec", "coindesk", 3, now.Add(-2*time.Hour))

		gt.NoError(t, uc.Run(ctx)).Required()

		signals, err := repo.Signal().List(ctx, types.Timeframe24h, 0)
		gt.NoError(t, err).Required()
		gt.Array(t, signals).Length(1).Required()
		gt.Value(t, signals[0].MentionCount).Equal(5)
	})

	t.Run("emergence follows active narrative membership", func(t *testing.T) {
		repo := memory.New()
		uc := newSignal(repo)

		addMentions(t, repo, "Tracked", "reuters", 3, now.Add(-time.Hour))
		addMentions(t, repo, "Orphan", "reuters", 3, now.Add(-time.Hour))
		addMentions(t, repo, "Parked", "reuters", 3, now.Add(-time.Hour))

		_, err := repo.Narrative().Create(ctx, &model.Narrative{
			ID:             "n1",
			Entities:       []string{"tracked"},
			LifecycleStage: types.StageHot,
			LastUpdated:    now,
		})
		gt.NoError(t, err).Required()
		// Dormant narratives do not count as membership.
		_, err = repo.Narrative().Create(ctx, &model.Narrative{
			ID:             "n2",
			Entities:       []string{"Parked"},
			LifecycleStage: types.StageDormant,
			LastUpdated:    now,
		})
		gt.NoError(t, err).Required()

		gt.NoError(t, uc.Run(ctx)).Required()

		signals, err := repo.Signal().List(ctx, types.Timeframe24h, 0)
		gt.NoError(t, err).Required()
		gt.Array(t, signals).Length(3).Required()
		for _, s := range signals {
			switch s.Entity {
			case "Tracked":
				gt.Bool(t, s.IsEmerging).False()
				gt.Array(t, s.NarrativeIDs).Equal([]string{"n1"})
			case "Orphan", "Parked":
				gt.Bool(t, s.IsEmerging).True()
			}
		}
	})

	t.Run("each run replaces the previous signal set", func(t *testing.T) {
		repo := memory.New()
		uc := newSignal(repo)

		gt.NoError(t, repo.Signal().Replace(ctx, types.Timeframe24h, []*model.EntitySignal{
			{Entity: "Stale", Score: 9.9, Timeframe: types.Timeframe24h},
		})).Required()

		addMentions(t, repo, "Fresh", "reuters", 2, now.Add(-time.Hour))
		gt.NoError(t, uc.Run(ctx)).Required()

		signals, err := repo.Signal().List(ctx, types.Timeframe24h, 0)
		gt.NoError(t, err).Required()
		gt.Array(t, signals).Length(1).Required()
		gt.Value(t, signals[0].Entity).Equal("Fresh")
	})
}
