package firestore

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/newsweave-lab/clotho/pkg/domain/interfaces"
	"github.com/newsweave-lab/clotho/pkg/domain/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type documentDoc struct {
	ID          string    `firestore:"id"`
	Title       string    `firestore:"title"`
	Body        string    `firestore:"body"`
	Source      string    `firestore:"source"`
	URL         string    `firestore:"url"`
	PublishedAt time.Time `firestore:"published_at"`

	NucleusEntity    string         `firestore:"nucleus_entity"`
	Actors           []string       `firestore:"actors"`
	ActorSalience    map[string]int `firestore:"actor_salience"`
	Actions          []string       `firestore:"actions"`
	Tensions         []string       `firestore:"tensions"`
	NarrativeSummary string         `firestore:"narrative_summary"`
	ExtractionHash   string         `firestore:"extraction_hash"`
	ExtractedAt      time.Time      `firestore:"extracted_at"`

	ProcessedAt time.Time `firestore:"processed_at"`
}

func toDocumentDoc(d *model.Document) *documentDoc {
	return &documentDoc{
		ID:               d.ID,
		Title:            d.Title,
		Body:             d.Body,
		Source:           d.Source,
		URL:              d.URL,
		PublishedAt:      d.PublishedAt,
		NucleusEntity:    d.NucleusEntity,
		Actors:           d.Actors,
		ActorSalience:    d.ActorSalience,
		Actions:          d.Actions,
		Tensions:         d.Tensions,
		NarrativeSummary: d.NarrativeSummary,
		ExtractionHash:   d.ExtractionHash,
		ExtractedAt:      d.ExtractedAt,
		ProcessedAt:      d.ProcessedAt,
	}
}

func (d *documentDoc) toModel() *model.Document {
	return &model.Document{
		ID:               d.ID,
		Title:            d.Title,
		Body:             d.Body,
		Source:           d.Source,
		URL:              d.URL,
		PublishedAt:      d.PublishedAt,
		NucleusEntity:    d.NucleusEntity,
		Actors:           d.Actors,
		ActorSalience:    d.ActorSalience,
		Actions:          d.Actions,
		Tensions:         d.Tensions,
		NarrativeSummary: d.NarrativeSummary,
		ExtractionHash:   d.ExtractionHash,
		ExtractedAt:      d.ExtractedAt,
		ProcessedAt:      d.ProcessedAt,
	}
}

type documentRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newDocumentRepository(client *firestore.Client) *documentRepository {
	return &documentRepository{client: client}
}

func (r *documentRepository) collection() string {
	return collectionName(r.collectionPrefix, "documents")
}

func (r *documentRepository) Put(ctx context.Context, docs ...*model.Document) error {
	for _, doc := range docs {
		if doc.ID == "" {
			return goerr.New("document ID is required")
		}
		docRef := r.client.Collection(r.collection()).Doc(doc.ID)
		if _, err := docRef.Set(ctx, toDocumentDoc(doc)); err != nil {
			return goerr.Wrap(err, "failed to put document", goerr.V("id", doc.ID))
		}
	}
	return nil
}

func (r *documentRepository) Get(ctx context.Context, id string) (*model.Document, error) {
	snapshot, err := r.client.Collection(r.collection()).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "document not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get document", goerr.V("id", id))
	}

	var doc documentDoc
	if err := snapshot.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode document", goerr.V("id", id))
	}
	return doc.toModel(), nil
}

func (r *documentRepository) GetByIDs(ctx context.Context, ids []string) ([]*model.Document, error) {
	result := make([]*model.Document, 0, len(ids))
	for _, id := range ids {
		doc, err := r.Get(ctx, id)
		if err != nil {
			if errors.Is(err, interfaces.ErrNotFound) {
				continue
			}
			return nil, err
		}
		result = append(result, doc)
	}
	return result, nil
}

func (r *documentRepository) ListUnprocessed(ctx context.Context, limit int) ([]*model.Document, error) {
	query := r.client.Collection(r.collection()).
		Where("processed_at", "==", time.Time{}).
		OrderBy("published_at", firestore.Asc)
	if limit > 0 {
		query = query.Limit(limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var result []*model.Document
	for {
		snapshot, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate documents")
		}

		var doc documentDoc
		if err := snapshot.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode document")
		}
		result = append(result, doc.toModel())
	}
	return result, nil
}

func (r *documentRepository) MarkProcessed(ctx context.Context, ids []string) error {
	now := time.Now().UTC()
	for _, id := range ids {
		docRef := r.client.Collection(r.collection()).Doc(id)
		_, err := docRef.Update(ctx, []firestore.Update{
			{Path: "processed_at", Value: now},
		})
		if err != nil {
			if status.Code(err) == codes.NotFound {
				continue
			}
			return goerr.Wrap(err, "failed to mark document processed", goerr.V("id", id))
		}
	}
	return nil
}
