package usecase

import (
	"context"
	"slices"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/newsweave-lab/clotho/pkg/domain/interfaces"
	"github.com/newsweave-lab/clotho/pkg/domain/model"
	"github.com/newsweave-lab/clotho/pkg/service/canonical"
	"github.com/newsweave-lab/clotho/pkg/utils/logging"
)

// BackfillReport summarizes one canonicalization backfill.
type BackfillReport struct {
	Narratives      int
	Updated         int
	Mentions        int
	MentionsUpdated int
}

// BackfillUseCase re-canonicalizes entity names across stored
// narratives after the canonical mapping changes. New extractions pick
// mappings up immediately; this makes old records consistent with
// them.
type BackfillUseCase struct {
	repo  interfaces.Repository
	canon *canonical.Canonicalizer
}

// NewBackfillUseCase creates a BackfillUseCase.
func NewBackfillUseCase(repo interfaces.Repository, canon *canonical.Canonicalizer) *BackfillUseCase {
	return &BackfillUseCase{
		repo:  repo,
		canon: canon,
	}
}

// Run rewrites entity names on every narrative and mention event
// through the canonical mapping. Idempotent: a second run with the
// same mapping changes nothing.
func (uc *BackfillUseCase) Run(ctx context.Context) (*BackfillReport, error) {
	logger := logging.From(ctx)
	report := &BackfillReport{}

	narratives, err := uc.repo.Narrative().List(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list narratives for backfill")
	}

	for _, n := range narratives {
		report.Narratives++

		changed := false
		if canon := uc.canon.Canonical(n.NucleusEntity); canon != n.NucleusEntity {
			n.NucleusEntity = canon
			changed = true
		}
		entities := uc.canon.CanonicalAll(n.Entities)
		if !slices.Equal(entities, n.Entities) {
			n.Entities = entities
			changed = true
		}
		if canon := uc.canon.Canonical(n.Fingerprint.NucleusEntity); canon != n.Fingerprint.NucleusEntity {
			n.Fingerprint.NucleusEntity = canon
			changed = true
		}
		actors := uc.canon.CanonicalAll(n.Fingerprint.TopActors)
		if !slices.Equal(actors, n.Fingerprint.TopActors) {
			n.Fingerprint.TopActors = actors
			changed = true
		}

		if !changed {
			continue
		}
		if _, err := uc.repo.Narrative().Update(ctx, n); err != nil {
			return report, goerr.Wrap(err, "failed to update narrative", goerr.V("id", n.ID))
		}
		report.Updated++
	}

	if err := uc.backfillMentions(ctx, report); err != nil {
		return report, err
	}

	logger.Info("entity backfill finished",
		"narratives", report.Narratives,
		"updated", report.Updated,
		"mentions", report.Mentions,
		"mentions_updated", report.MentionsUpdated,
	)
	return report, nil
}

// backfillMentions rewrites the entity name on stored mention events.
// Mention IDs are stable, so re-adding a changed mention upserts in
// place.
func (uc *BackfillUseCase) backfillMentions(ctx context.Context, report *BackfillReport) error {
	mentions, err := uc.repo.Mention().ListSince(ctx, time.Time{})
	if err != nil {
		return goerr.Wrap(err, "failed to list mentions for backfill")
	}

	var changed []*model.EntityMention
	for _, m := range mentions {
		report.Mentions++
		if canon := uc.canon.Canonical(m.Entity); canon != m.Entity {
			m.Entity = canon
			changed = append(changed, m)
		}
	}
	if len(changed) == 0 {
		return nil
	}

	if err := uc.repo.Mention().Add(ctx, changed...); err != nil {
		return goerr.Wrap(err, "failed to rewrite mentions")
	}
	report.MentionsUpdated = len(changed)
	return nil
}
