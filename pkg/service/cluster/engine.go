package cluster

import (
	"context"
	"strings"

	"github.com/newsweave-lab/clotho/pkg/domain/model"
	"github.com/newsweave-lab/clotho/pkg/utils/logging"
)

// Link strength weights. Nucleus equality is the strongest signal
// (same story); core-actor overlap and shared tensions reinforce it.
const (
	weightNucleusMatch    = 1.0
	weightCoreActorsMulti = 0.7
	weightCoreActorSingle = 0.4
	weightSharedTension   = 0.3
)

// Config holds clustering thresholds.
type Config struct {
	// LinkThreshold is the minimum link strength for a document to
	// join an existing cluster.
	LinkThreshold float64

	// MinClusterSize filters out undersized clusters from the output.
	MinClusterSize int

	// ShallowMergeThreshold is the entity-set Jaccard similarity above
	// which a shallow cluster merges into a substantial one.
	ShallowMergeThreshold float64

	// UbiquitousEntities are very common nucleus entities that would
	// otherwise swallow unrelated stories.
	UbiquitousEntities []string
}

// DefaultConfig returns the standard clustering thresholds.
func DefaultConfig() Config {
	return Config{
		LinkThreshold:         0.8,
		MinClusterSize:        3,
		ShallowMergeThreshold: 0.5,
		UbiquitousEntities:    []string{"Bitcoin", "Ethereum", "Crypto", "Cryptocurrency"},
	}
}

// Cluster is a group of documents believed to describe one story.
type Cluster struct {
	Documents []*model.Document

	nucleus      string
	coreSalience map[string]int // actor (lowercased) -> max salience seen
	actorNames   map[string]string
	tensions     map[string]struct{}
}

// Nucleus returns the cluster's nucleus entity, set by its founding
// document.
func (c *Cluster) Nucleus() string {
	return c.nucleus
}

// Entities returns the deduplicated union of nucleus and actors across
// member documents, in order of first appearance.
func (c *Cluster) Entities() []string {
	seen := make(map[string]struct{})
	var entities []string
	add := func(name string) {
		if name == "" {
			return
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		entities = append(entities, name)
	}

	add(c.nucleus)
	for _, doc := range c.Documents {
		add(doc.NucleusEntity)
		for _, a := range doc.Actors {
			add(a)
		}
	}
	return entities
}

// ActorSalience returns the max salience per actor across member
// documents, keyed by the actor's first-seen spelling.
func (c *Cluster) ActorSalience() map[string]int {
	salience := make(map[string]int, len(c.coreSalience))
	for key, s := range c.coreSalience {
		salience[c.actorNames[key]] = s
	}
	return salience
}

// Actions returns the concatenated actions of member documents in
// document order, deduplicated case-insensitively.
func (c *Cluster) Actions() []string {
	seen := make(map[string]struct{})
	var actions []string
	for _, doc := range c.Documents {
		for _, a := range doc.Actions {
			key := strings.ToLower(a)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			actions = append(actions, a)
		}
	}
	return actions
}

func (c *Cluster) add(doc *model.Document) {
	c.Documents = append(c.Documents, doc)
	for _, actor := range doc.Actors {
		key := strings.ToLower(actor)
		if _, ok := c.actorNames[key]; !ok {
			c.actorNames[key] = actor
		}
		if s := doc.Salience(actor); s > c.coreSalience[key] {
			c.coreSalience[key] = s
		}
	}
	for _, tension := range doc.Tensions {
		c.tensions[strings.ToLower(tension)] = struct{}{}
	}
}

func newCluster(doc *model.Document) *Cluster {
	c := &Cluster{
		nucleus:      doc.NucleusEntity,
		coreSalience: make(map[string]int),
		actorNames:   make(map[string]string),
		tensions:     make(map[string]struct{}),
	}
	c.add(doc)
	return c
}

// Engine groups extracted documents into candidate narrative clusters.
type Engine struct {
	cfg        Config
	ubiquitous map[string]struct{}
}

// New creates a clustering engine.
func New(cfg Config) *Engine {
	ubiquitous := make(map[string]struct{}, len(cfg.UbiquitousEntities))
	for _, e := range cfg.UbiquitousEntities {
		ubiquitous[strings.ToLower(e)] = struct{}{}
	}
	return &Engine{cfg: cfg, ubiquitous: ubiquitous}
}

// Cluster assigns documents to clusters in a single greedy pass:
// clusters never re-split, and a document never moves after
// assignment. The result is deterministic for a fixed input order.
// Documents without extracted structure are skipped, never fatal.
func (e *Engine) Cluster(ctx context.Context, docs []*model.Document) []*Cluster {
	logger := logging.From(ctx)

	var clusters []*Cluster
	for _, doc := range docs {
		if !doc.Clusterable() {
			logger.Warn("skipping document without nucleus entity or actors",
				"document_id", doc.ID,
				"title", doc.Title,
			)
			continue
		}

		best := -1
		bestStrength := 0.0
		for i, c := range clusters {
			strength := e.linkStrength(doc, c)
			if strength > bestStrength {
				best = i
				bestStrength = strength
			}
		}

		if best >= 0 && bestStrength >= e.cfg.LinkThreshold {
			clusters[best].add(doc)
		} else {
			clusters = append(clusters, newCluster(doc))
		}
	}

	clusters = e.mergeShallow(ctx, clusters)

	var result []*Cluster
	for _, c := range clusters {
		if len(c.Documents) >= e.cfg.MinClusterSize {
			result = append(result, c)
		}
	}
	return result
}

// linkStrength computes the weighted multi-signal similarity between a
// document and a cluster's representative aggregate.
func (e *Engine) linkStrength(doc *model.Document, c *Cluster) float64 {
	strength := 0.0

	if doc.NucleusEntity != "" && strings.EqualFold(doc.NucleusEntity, c.nucleus) {
		strength += weightNucleusMatch
	}

	sharedCore := 0
	for _, actor := range doc.CoreActors() {
		if c.coreSalience[strings.ToLower(actor)] >= model.CoreActorSalience {
			sharedCore++
		}
	}
	switch {
	case sharedCore >= 2:
		strength += weightCoreActorsMulti
	case sharedCore == 1:
		strength += weightCoreActorSingle
	}

	for _, tension := range doc.Tensions {
		if _, ok := c.tensions[strings.ToLower(tension)]; ok {
			strength += weightSharedTension
			break
		}
	}

	return strength
}

// mergeShallow folds shallow clusters (single low-actor documents, or
// small all-ubiquitous clusters) into the best-matching substantial
// cluster by entity-set Jaccard similarity.
func (e *Engine) mergeShallow(ctx context.Context, clusters []*Cluster) []*Cluster {
	logger := logging.From(ctx)

	var substantial, shallow []*Cluster
	for _, c := range clusters {
		if e.isShallow(c) {
			shallow = append(shallow, c)
		} else {
			substantial = append(substantial, c)
		}
	}

	var unmerged []*Cluster
	for _, s := range shallow {
		var best *Cluster
		bestSim := 0.0
		for _, sub := range substantial {
			sim := model.Jaccard(s.Entities(), sub.Entities())
			if sim > bestSim {
				best = sub
				bestSim = sim
			}
		}

		if best != nil && bestSim > e.cfg.ShallowMergeThreshold {
			for _, doc := range s.Documents {
				best.add(doc)
			}
			logger.Debug("merged shallow cluster",
				"nucleus", s.Nucleus(),
				"into", best.Nucleus(),
				"similarity", bestSim,
			)
		} else {
			unmerged = append(unmerged, s)
		}
	}

	return append(substantial, unmerged...)
}

func (e *Engine) isShallow(c *Cluster) bool {
	if len(c.Documents) == 1 && len(c.coreSalience) < 3 {
		return true
	}
	if len(c.Documents) < e.cfg.MinClusterSize && e.allUbiquitous(c) {
		return true
	}
	return false
}

func (e *Engine) allUbiquitous(c *Cluster) bool {
	for _, doc := range c.Documents {
		if doc.NucleusEntity == "" {
			return false
		}
		if _, ok := e.ubiquitous[strings.ToLower(doc.NucleusEntity)]; !ok {
			return false
		}
	}
	return true
}
