package model

import (
	"strings"
	"time"

	"github.com/newsweave-lab/clotho/pkg/domain/types"
)

// Narrative represents a tracked story. It is created when a cluster
// fails to match any existing narrative and updated (never replaced)
// when a cluster matches. Narratives are never physically deleted;
// inactive ones transition to dormant, and dedup-merged ones record
// the surviving narrative in MergedInto.
type Narrative struct {
	ID            string
	Title         string
	Summary       string
	NucleusEntity string
	Entities      []string // deduplicated union of actors across member documents
	DocumentIDs   []string // grows only
	DocumentCount int
	Fingerprint   Fingerprint

	FirstSeen   time.Time
	LastUpdated time.Time

	Velocity         float64 // documents per day over a fixed 7-day window
	Momentum         types.Momentum
	RecencyScore     float64
	LifecycleStage   types.LifecycleStage
	ReawakeningCount int

	MergedInto string // set by the dedup pass on absorbed narratives
}

// HasDocument reports whether the document is already a member.
func (n *Narrative) HasDocument(docID string) bool {
	for _, id := range n.DocumentIDs {
		if id == docID {
			return true
		}
	}
	return false
}

// AddDocument appends a document ID if not already present and keeps
// DocumentCount consistent with the ID set.
func (n *Narrative) AddDocument(docID string) {
	if n.HasDocument(docID) {
		return
	}
	n.DocumentIDs = append(n.DocumentIDs, docID)
	n.DocumentCount = len(n.DocumentIDs)
}

// AddEntities merges entity names into the narrative's entity set,
// preserving order of first appearance. Comparison is case-insensitive.
func (n *Narrative) AddEntities(entities []string) {
	seen := make(map[string]struct{}, len(n.Entities))
	for _, e := range n.Entities {
		seen[strings.ToLower(e)] = struct{}{}
	}
	for _, e := range entities {
		key := strings.ToLower(e)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		n.Entities = append(n.Entities, e)
	}
}

// MatchFingerprint returns the stored fingerprint, or reconstructs one
// from legacy fields (nucleus entity or title as nucleus, entity list
// as actors, no actions) so records stored before fingerprinting
// remain matchable.
func (n *Narrative) MatchFingerprint() Fingerprint {
	if !n.Fingerprint.IsZero() {
		return n.Fingerprint
	}

	nucleus := n.NucleusEntity
	if nucleus == "" {
		nucleus = n.Title
	}

	actors := n.Entities
	if len(actors) > FingerprintMaxActors {
		actors = actors[:FingerprintMaxActors]
	}

	return Fingerprint{
		NucleusEntity: nucleus,
		TopActors:     append([]string(nil), actors...),
		Timestamp:     n.LastUpdated,
	}
}
