package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/newsweave-lab/clotho/pkg/domain/interfaces"
	"github.com/newsweave-lab/clotho/pkg/domain/model"
	"github.com/newsweave-lab/clotho/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type narrativeDoc struct {
	ID            string   `firestore:"id"`
	Title         string   `firestore:"title"`
	Summary       string   `firestore:"summary"`
	NucleusEntity string   `firestore:"nucleus_entity"`
	Entities      []string `firestore:"entities"`
	DocumentIDs   []string `firestore:"document_ids"`
	DocumentCount int      `firestore:"document_count"`

	FingerprintNucleus   string    `firestore:"fingerprint_nucleus"`
	FingerprintActors    []string  `firestore:"fingerprint_actors"`
	FingerprintActions   []string  `firestore:"fingerprint_actions"`
	FingerprintTimestamp time.Time `firestore:"fingerprint_timestamp"`

	FirstSeen   time.Time `firestore:"first_seen"`
	LastUpdated time.Time `firestore:"last_updated"`

	Velocity         float64 `firestore:"velocity"`
	Momentum         string  `firestore:"momentum"`
	RecencyScore     float64 `firestore:"recency_score"`
	LifecycleStage   string  `firestore:"lifecycle_stage"`
	ReawakeningCount int     `firestore:"reawakening_count"`

	MergedInto string `firestore:"merged_into"`
}

func toNarrativeDoc(n *model.Narrative) *narrativeDoc {
	return &narrativeDoc{
		ID:                   n.ID,
		Title:                n.Title,
		Summary:              n.Summary,
		NucleusEntity:        n.NucleusEntity,
		Entities:             n.Entities,
		DocumentIDs:          n.DocumentIDs,
		DocumentCount:        n.DocumentCount,
		FingerprintNucleus:   n.Fingerprint.NucleusEntity,
		FingerprintActors:    n.Fingerprint.TopActors,
		FingerprintActions:   n.Fingerprint.KeyActions,
		FingerprintTimestamp: n.Fingerprint.Timestamp,
		FirstSeen:            n.FirstSeen,
		LastUpdated:          n.LastUpdated,
		Velocity:             n.Velocity,
		Momentum:             n.Momentum.String(),
		RecencyScore:         n.RecencyScore,
		LifecycleStage:       n.LifecycleStage.String(),
		ReawakeningCount:     n.ReawakeningCount,
		MergedInto:           n.MergedInto,
	}
}

func (d *narrativeDoc) toModel() *model.Narrative {
	return &model.Narrative{
		ID:            d.ID,
		Title:         d.Title,
		Summary:       d.Summary,
		NucleusEntity: d.NucleusEntity,
		Entities:      d.Entities,
		DocumentIDs:   d.DocumentIDs,
		DocumentCount: d.DocumentCount,
		Fingerprint: model.Fingerprint{
			NucleusEntity: d.FingerprintNucleus,
			TopActors:     d.FingerprintActors,
			KeyActions:    d.FingerprintActions,
			Timestamp:     d.FingerprintTimestamp,
		},
		FirstSeen:        d.FirstSeen,
		LastUpdated:      d.LastUpdated,
		Velocity:         d.Velocity,
		Momentum:         types.Momentum(d.Momentum),
		RecencyScore:     d.RecencyScore,
		LifecycleStage:   types.LifecycleStage(d.LifecycleStage),
		ReawakeningCount: d.ReawakeningCount,
		MergedInto:       d.MergedInto,
	}
}

type narrativeRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newNarrativeRepository(client *firestore.Client) *narrativeRepository {
	return &narrativeRepository{client: client}
}

func (r *narrativeRepository) collection() string {
	return collectionName(r.collectionPrefix, "narratives")
}

func (r *narrativeRepository) claimCollection() string {
	return collectionName(r.collectionPrefix, "narrative_claims")
}

func (r *narrativeRepository) Create(ctx context.Context, narrative *model.Narrative) (*model.Narrative, error) {
	created := *narrative
	if created.ID == "" {
		created.ID = uuid.NewString()
	}

	docRef := r.client.Collection(r.collection()).Doc(created.ID)
	if _, err := docRef.Create(ctx, toNarrativeDoc(&created)); err != nil {
		return nil, goerr.Wrap(err, "failed to create narrative", goerr.V("id", created.ID))
	}
	return &created, nil
}

func (r *narrativeRepository) Get(ctx context.Context, id string) (*model.Narrative, error) {
	snapshot, err := r.client.Collection(r.collection()).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "narrative not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get narrative", goerr.V("id", id))
	}

	var doc narrativeDoc
	if err := snapshot.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode narrative", goerr.V("id", id))
	}
	return doc.toModel(), nil
}

func (r *narrativeRepository) Update(ctx context.Context, narrative *model.Narrative) (*model.Narrative, error) {
	docRef := r.client.Collection(r.collection()).Doc(narrative.ID)

	if _, err := docRef.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "narrative not found", goerr.V("id", narrative.ID))
		}
		return nil, goerr.Wrap(err, "failed to get narrative", goerr.V("id", narrative.ID))
	}

	if _, err := docRef.Set(ctx, toNarrativeDoc(narrative)); err != nil {
		return nil, goerr.Wrap(err, "failed to update narrative", goerr.V("id", narrative.ID))
	}
	return narrative, nil
}

func (r *narrativeRepository) List(ctx context.Context, opts ...interfaces.ListNarrativeOption) ([]*model.Narrative, error) {
	cfg := interfaces.BuildListNarrativeConfig(opts...)

	query := r.client.Collection(r.collection()).
		OrderBy("last_updated", firestore.Desc)
	if cfg.Stage() != nil {
		query = r.client.Collection(r.collection()).
			Where("lifecycle_stage", "==", cfg.Stage().String()).
			OrderBy("last_updated", firestore.Desc)
	}
	if cfg.Limit() > 0 {
		query = query.Limit(cfg.Limit())
	}

	return r.runQuery(ctx, query)
}

func (r *narrativeRepository) ListUpdatedSince(ctx context.Context, since time.Time, stages []types.LifecycleStage) ([]*model.Narrative, error) {
	query := r.client.Collection(r.collection()).
		Where("last_updated", ">=", since).
		OrderBy("last_updated", firestore.Desc)

	narratives, err := r.runQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	if len(stages) == 0 {
		return narratives, nil
	}

	// Stage filtering happens client-side: combining an inequality on
	// last_updated with an IN clause would require a composite index
	// per stage set.
	stageSet := make(map[types.LifecycleStage]struct{}, len(stages))
	for _, s := range stages {
		stageSet[s] = struct{}{}
	}

	filtered := narratives[:0]
	for _, n := range narratives {
		if _, ok := stageSet[n.LifecycleStage]; ok {
			filtered = append(filtered, n)
		}
	}
	return filtered, nil
}

func (r *narrativeRepository) runQuery(ctx context.Context, query firestore.Query) ([]*model.Narrative, error) {
	iter := query.Documents(ctx)
	defer iter.Stop()

	var result []*model.Narrative
	for {
		snapshot, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate narratives")
		}

		var doc narrativeDoc
		if err := snapshot.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode narrative")
		}
		result = append(result, doc.toModel())
	}
	return result, nil
}

type claimDoc struct {
	Key         string    `firestore:"key"`
	NarrativeID string    `firestore:"narrative_id"`
	ClaimedAt   time.Time `firestore:"claimed_at"`
}

// Claim runs a transaction over the claim collection so that the
// search-then-create sequence of two concurrent cycles cannot both
// create a narrative for the same emerging story.
func (r *narrativeRepository) Claim(ctx context.Context, claimKey, narrativeID string) (string, error) {
	if claimKey == "" {
		return "", goerr.New("claim key is required")
	}

	claimRef := r.client.Collection(r.claimCollection()).Doc(claimKey)

	winner := narrativeID
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snapshot, err := tx.Get(claimRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return tx.Create(claimRef, &claimDoc{
					Key:         claimKey,
					NarrativeID: narrativeID,
					ClaimedAt:   time.Now().UTC(),
				})
			}
			return goerr.Wrap(err, "failed to get claim")
		}

		var doc claimDoc
		if err := snapshot.DataTo(&doc); err != nil {
			return goerr.Wrap(err, "failed to decode claim")
		}
		winner = doc.NarrativeID
		return nil
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to claim narrative", goerr.V("key", claimKey))
	}

	return winner, nil
}
