package model

import (
	"time"
)

// CoreActorSalience is the minimum salience for an actor to count as a
// "core actor" of a document when computing cluster link strength.
const CoreActorSalience = 4

// Document represents an ingested text unit. Extraction fields are
// populated by the extraction client and are immutable once
// ExtractionHash matches the current content.
type Document struct {
	ID          string
	Title       string
	Body        string
	Source      string
	URL         string
	PublishedAt time.Time

	// Extraction results
	NucleusEntity    string
	Actors           []string
	ActorSalience    map[string]int // actor -> 1..5
	Actions          []string
	Tensions         []string
	NarrativeSummary string
	ExtractionHash   string
	ExtractedAt      time.Time

	// ProcessedAt is set once the document has been through a
	// clustering cycle, so it is not pulled again.
	ProcessedAt time.Time
}

// Extracted reports whether the document already carries usable
// narrative elements for its current content hash.
func (d *Document) Extracted(currentHash string) bool {
	return d.ExtractionHash == currentHash &&
		d.NarrativeSummary != "" &&
		len(d.Actors) > 0
}

// Clusterable reports whether the document carries enough extracted
// structure to participate in clustering. A document missing both a
// nucleus entity and actors is skipped entirely.
func (d *Document) Clusterable() bool {
	return d.NucleusEntity != "" || len(d.Actors) > 0
}

// CoreActors returns the actors with salience >= CoreActorSalience.
func (d *Document) CoreActors() []string {
	var actors []string
	for _, a := range d.Actors {
		if d.ActorSalience[a] >= CoreActorSalience {
			actors = append(actors, a)
		}
	}
	return actors
}

// Salience returns the salience of an actor, defaulting to 1 when the
// actor is listed without an explicit salience.
func (d *Document) Salience(actor string) int {
	if s, ok := d.ActorSalience[actor]; ok {
		return s
	}
	return 1
}
