package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/newsweave-lab/clotho/pkg/domain/model"
	"github.com/newsweave-lab/clotho/pkg/domain/types"
	"google.golang.org/api/iterator"
)

type signalDoc struct {
	Entity        string    `firestore:"entity"`
	EntityType    string    `firestore:"entity_type"`
	Timeframe     string    `firestore:"timeframe"`
	MentionCount  int       `firestore:"mention_count"`
	Velocity      float64   `firestore:"velocity"`
	RecencyFactor float64   `firestore:"recency_factor"`
	Score         float64   `firestore:"score"`
	NarrativeIDs  []string  `firestore:"narrative_ids"`
	IsEmerging    bool      `firestore:"is_emerging"`
	ComputedAt    time.Time `firestore:"computed_at"`
}

type signalRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newSignalRepository(client *firestore.Client) *signalRepository {
	return &signalRepository{client: client}
}

func (r *signalRepository) collection() string {
	return collectionName(r.collectionPrefix, "entity_signals")
}

func signalDocID(timeframe types.Timeframe, entity string) string {
	return fmt.Sprintf("%s_%s", timeframe, lower(entity))
}

// Replace deletes all signals of the timeframe and writes the new set.
// Signals are recomputed wholesale each cycle, so a replace avoids
// stale entities lingering between cycles.
func (r *signalRepository) Replace(ctx context.Context, timeframe types.Timeframe, signals []*model.EntitySignal) error {
	iter := r.client.Collection(r.collection()).
		Where("timeframe", "==", timeframe.String()).
		Documents(ctx)
	defer iter.Stop()

	bw := r.client.BulkWriter(ctx)
	for {
		snapshot, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return goerr.Wrap(err, "failed to iterate signals for replace")
		}
		if _, err := bw.Delete(snapshot.Ref); err != nil {
			return goerr.Wrap(err, "failed to enqueue signal delete")
		}
	}

	for _, s := range signals {
		doc := &signalDoc{
			Entity:        s.Entity,
			EntityType:    s.EntityType,
			Timeframe:     s.Timeframe.String(),
			MentionCount:  s.MentionCount,
			Velocity:      s.Velocity,
			RecencyFactor: s.RecencyFactor,
			Score:         s.Score,
			NarrativeIDs:  s.NarrativeIDs,
			IsEmerging:    s.IsEmerging,
			ComputedAt:    s.ComputedAt,
		}
		ref := r.client.Collection(r.collection()).Doc(signalDocID(timeframe, s.Entity))
		if _, err := bw.Set(ref, doc); err != nil {
			return goerr.Wrap(err, "failed to enqueue signal write", goerr.V("entity", s.Entity))
		}
	}

	bw.End()
	return nil
}

func (r *signalRepository) List(ctx context.Context, timeframe types.Timeframe, limit int) ([]*model.EntitySignal, error) {
	query := r.client.Collection(r.collection()).
		Where("timeframe", "==", timeframe.String()).
		OrderBy("score", firestore.Desc)
	if limit > 0 {
		query = query.Limit(limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var result []*model.EntitySignal
	for {
		snapshot, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate signals")
		}

		var doc signalDoc
		if err := snapshot.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode signal")
		}
		result = append(result, &model.EntitySignal{
			Entity:        doc.Entity,
			EntityType:    doc.EntityType,
			Timeframe:     types.Timeframe(doc.Timeframe),
			MentionCount:  doc.MentionCount,
			Velocity:      doc.Velocity,
			RecencyFactor: doc.RecencyFactor,
			Score:         doc.Score,
			NarrativeIDs:  doc.NarrativeIDs,
			IsEmerging:    doc.IsEmerging,
			ComputedAt:    doc.ComputedAt,
		})
	}
	return result, nil
}
