package interfaces

import (
	"context"

	"github.com/newsweave-lab/clotho/pkg/domain/model"
)

type DocumentRepository interface {
	// Put upserts documents by ID. Upserts are atomic per document.
	Put(ctx context.Context, docs ...*model.Document) error

	// Get retrieves a document by ID
	Get(ctx context.Context, id string) (*model.Document, error)

	// GetByIDs retrieves multiple documents; missing IDs are skipped
	GetByIDs(ctx context.Context, ids []string) ([]*model.Document, error)

	// ListUnprocessed retrieves documents not yet consumed by a
	// clustering cycle, oldest first, up to limit
	ListUnprocessed(ctx context.Context, limit int) ([]*model.Document, error)

	// MarkProcessed stamps documents as consumed by a clustering cycle
	MarkProcessed(ctx context.Context, ids []string) error
}
