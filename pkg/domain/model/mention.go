package model

import "time"

// EntityMention is a single observation of an entity in a document.
// Mentions are append-only events; signal scoring aggregates them.
type EntityMention struct {
	ID          string
	Entity      string
	EntityType  string
	DocumentID  string
	Source      string
	MentionedAt time.Time
}
