package firestore

import (
	"context"
	"strings"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/newsweave-lab/clotho/pkg/domain/interfaces"
)

// Firestore is the production document store backend.
type Firestore struct {
	client    *firestore.Client
	document  *documentRepository
	narrative *narrativeRepository
	mention   *mentionRepository
	signal    *signalRepository
	cache     *cacheRepository
	cost      *costRepository
}

var _ interfaces.Repository = &Firestore{}

type Option func(*Firestore)

// WithCollectionPrefix namespaces all collections, mainly for tests
// sharing one project.
func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.document.collectionPrefix = prefix
		f.narrative.collectionPrefix = prefix
		f.mention.collectionPrefix = prefix
		f.signal.collectionPrefix = prefix
		f.cache.collectionPrefix = prefix
		f.cost.collectionPrefix = prefix
	}
}

func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	var client *firestore.Client
	var err error
	if databaseID != "" {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	} else {
		client, err = firestore.NewClient(ctx, projectID)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID),
			goerr.V("databaseID", databaseID),
		)
	}

	f := &Firestore{
		client:    client,
		document:  newDocumentRepository(client),
		narrative: newNarrativeRepository(client),
		mention:   newMentionRepository(client),
		signal:    newSignalRepository(client),
		cache:     newCacheRepository(client),
		cost:      newCostRepository(client),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

func (f *Firestore) Document() interfaces.DocumentRepository {
	return f.document
}

func (f *Firestore) Narrative() interfaces.NarrativeRepository {
	return f.narrative
}

func (f *Firestore) Mention() interfaces.MentionRepository {
	return f.mention
}

func (f *Firestore) Signal() interfaces.SignalRepository {
	return f.signal
}

func (f *Firestore) Cache() interfaces.CacheRepository {
	return f.cache
}

func (f *Firestore) Cost() interfaces.CostRepository {
	return f.cost
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func collectionName(prefix, name string) string {
	if prefix != "" {
		return prefix + "_" + name
	}
	return name
}

func lower(s string) string {
	return strings.ToLower(s)
}
