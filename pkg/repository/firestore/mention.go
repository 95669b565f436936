package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/newsweave-lab/clotho/pkg/domain/model"
	"google.golang.org/api/iterator"
)

type mentionDoc struct {
	ID          string    `firestore:"id"`
	Entity      string    `firestore:"entity"`
	EntityLower string    `firestore:"entity_lower"`
	EntityType  string    `firestore:"entity_type"`
	DocumentID  string    `firestore:"document_id"`
	Source      string    `firestore:"source"`
	MentionedAt time.Time `firestore:"mentioned_at"`
}

type mentionRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newMentionRepository(client *firestore.Client) *mentionRepository {
	return &mentionRepository{client: client}
}

func (r *mentionRepository) collection() string {
	return collectionName(r.collectionPrefix, "entity_mentions")
}

func (r *mentionRepository) Add(ctx context.Context, mentions ...*model.EntityMention) error {
	bw := r.client.BulkWriter(ctx)

	for _, m := range mentions {
		id := m.ID
		if id == "" {
			id = uuid.NewString()
		}
		doc := &mentionDoc{
			ID:          id,
			Entity:      m.Entity,
			EntityLower: lower(m.Entity),
			EntityType:  m.EntityType,
			DocumentID:  m.DocumentID,
			Source:      m.Source,
			MentionedAt: m.MentionedAt,
		}
		if _, err := bw.Set(r.client.Collection(r.collection()).Doc(id), doc); err != nil {
			return goerr.Wrap(err, "failed to enqueue mention write", goerr.V("entity", m.Entity))
		}
	}

	bw.End()
	return nil
}

func (r *mentionRepository) ListSince(ctx context.Context, since time.Time) ([]*model.EntityMention, error) {
	query := r.client.Collection(r.collection()).
		Where("mentioned_at", ">=", since).
		OrderBy("mentioned_at", firestore.Asc)
	return r.runQuery(ctx, query)
}

func (r *mentionRepository) ListEntitySince(ctx context.Context, entity string, since time.Time) ([]*model.EntityMention, error) {
	query := r.client.Collection(r.collection()).
		Where("entity_lower", "==", lower(entity)).
		Where("mentioned_at", ">=", since).
		OrderBy("mentioned_at", firestore.Asc)
	return r.runQuery(ctx, query)
}

func (r *mentionRepository) runQuery(ctx context.Context, query firestore.Query) ([]*model.EntityMention, error) {
	iter := query.Documents(ctx)
	defer iter.Stop()

	var result []*model.EntityMention
	for {
		snapshot, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate mentions")
		}

		var doc mentionDoc
		if err := snapshot.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode mention")
		}
		result = append(result, &model.EntityMention{
			ID:          doc.ID,
			Entity:      doc.Entity,
			EntityType:  doc.EntityType,
			DocumentID:  doc.DocumentID,
			Source:      doc.Source,
			MentionedAt: doc.MentionedAt,
		})
	}
	return result, nil
}
