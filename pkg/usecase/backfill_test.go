package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/newsweave-lab/clotho/pkg/domain/model"
	"github.com/newsweave-lab/clotho/pkg/repository/memory"
	"github.com/newsweave-lab/clotho/pkg/service/canonical"
	"github.com/newsweave-lab/clotho/pkg/usecase"
)

func TestBackfillRun(t *testing.T) {
	ctx := context.Background()

	repo := memory.New()
	uc := usecase.NewBackfillUseCase(repo, canonical.New(map[string]string{
		"secnews": "SEC",
	}))

	_, err := repo.Narrative().Create(ctx, &model.Narrative{
		ID:            "n-stale",
		Title:         "btc rally",
		NucleusEntity: "btc",
		Entities:      []string{"btc", "secnews", "Coinbase"},
		Fingerprint: model.Fingerprint{
			NucleusEntity: "btc",
			TopActors:     []string{"btc", "secnews"},
			Timestamp:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		},
	})
	gt.NoError(t, err).Required()

	_, err = repo.Narrative().Create(ctx, &model.Narrative{
		ID:            "n-clean",
		NucleusEntity: "Ethereum",
		Entities:      []string{"Ethereum"},
	})
	gt.NoError(t, err).Required()

	gt.NoError(t, repo.Mention().Add(ctx,
		&model.EntityMention{ID: "m1", Entity: "btc", MentionedAt: now.Add(-time.Hour)},
		&model.EntityMention{ID: "m2", Entity: "Coinbase", MentionedAt: now.Add(-time.Hour)},
	)).Required()

	report, err := uc.Run(ctx)
	gt.NoError(t, err).Required()
	gt.Value(t, report.Narratives).Equal(2)
	gt.Value(t, report.Updated).Equal(1)
	gt.Value(t, report.Mentions).Equal(2)
	gt.Value(t, report.MentionsUpdated).Equal(1)

	got, err := repo.Narrative().Get(ctx, "n-stale")
	gt.NoError(t, err).Required()
	gt.Value(t, got.NucleusEntity).Equal("Bitcoin")
	gt.Array(t, got.Entities).Equal([]string{"Bitcoin", "SEC", "Coinbase"})
	gt.Value(t, got.Fingerprint.NucleusEntity).Equal("Bitcoin")
	gt.Array(t, got.Fingerprint.TopActors).Equal([]string{"Bitcoin", "SEC"})

	// Mention rewrite upserts in place, no duplicate events.
	mentions, err := repo.Mention().ListEntitySince(ctx, "Bitcoin", now.Add(-24*time.Hour))
	gt.NoError(t, err).Required()
	gt.Array(t, mentions).Length(1).Required()
	gt.Value(t, mentions[0].ID).Equal("m1")

	// A second run with the same mapping is a no-op.
	report, err = uc.Run(ctx)
	gt.NoError(t, err).Required()
	gt.Value(t, report.Updated).Equal(0)
	gt.Value(t, report.MentionsUpdated).Equal(0)
}
