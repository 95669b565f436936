package interfaces

import (
	"context"
	"time"

	"github.com/newsweave-lab/clotho/pkg/domain/model"
)

type MentionRepository interface {
	// Add appends mention events
	Add(ctx context.Context, mentions ...*model.EntityMention) error

	// ListSince retrieves all mentions at or after the given time
	ListSince(ctx context.Context, since time.Time) ([]*model.EntityMention, error)

	// ListEntitySince retrieves mentions of one entity at or after the
	// given time
	ListEntitySince(ctx context.Context, entity string, since time.Time) ([]*model.EntityMention, error)
}
