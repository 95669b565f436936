package cluster_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/newsweave-lab/clotho/pkg/domain/model"
	"github.com/newsweave-lab/clotho/pkg/service/cluster"
)

func secDoc(id string, actors map[string]int, tensions ...string) *model.Document {
	names := make([]string, 0, len(actors))
	for name := range actors {
		names = append(names, name)
	}
	return &model.Document{
		ID:            id,
		Title:         fmt.Sprintf("doc %s", id),
		NucleusEntity: "SEC",
		Actors:        names,
		ActorSalience: actors,
		Tensions:      tensions,
	}
}

func TestClusterByNucleus(t *testing.T) {
	engine := cluster.New(cluster.DefaultConfig())
	ctx := context.Background()

	docs := []*model.Document{
		secDoc("a", map[string]int{"SEC": 5, "Binance": 4}),
		secDoc("b", map[string]int{"SEC": 5, "Coinbase": 4}),
		secDoc("c", map[string]int{"SEC": 5, "Kraken": 3}),
		{
			ID:            "d",
			NucleusEntity: "Tesla",
			Actors:        []string{"Tesla", "Elon Musk", "NHTSA"},
			ActorSalience: map[string]int{"Tesla": 5, "Elon Musk": 4, "NHTSA": 4},
		},
	}

	clusters := engine.Cluster(ctx, docs)

	// The lone Tesla document forms an undersized cluster and is dropped.
	gt.Array(t, clusters).Length(1).Required()
	gt.Value(t, clusters[0].Nucleus()).Equal("SEC")
	gt.Array(t, clusters[0].Documents).Length(3)
}

func TestClusterMinSizeFilter(t *testing.T) {
	engine := cluster.New(cluster.DefaultConfig())
	ctx := context.Background()

	// Two documents sharing only the ubiquitous nucleus "Bitcoin" stay
	// below the minimum cluster size and are dropped.
	docs := []*model.Document{
		{
			ID:            "a",
			NucleusEntity: "Bitcoin",
			Actors:        []string{"Bitcoin", "MicroStrategy"},
			ActorSalience: map[string]int{"Bitcoin": 5, "MicroStrategy": 4},
		},
		{
			ID:            "b",
			NucleusEntity: "Bitcoin",
			Actors:        []string{"Bitcoin", "BlackRock"},
			ActorSalience: map[string]int{"Bitcoin": 5, "BlackRock": 4},
		},
	}

	clusters := engine.Cluster(ctx, docs)
	gt.Array(t, clusters).Length(0)
}

func TestClusterSkipsUnextracted(t *testing.T) {
	engine := cluster.New(cluster.DefaultConfig())
	ctx := context.Background()

	docs := []*model.Document{
		{ID: "raw", Title: "no extraction"},
		secDoc("a", map[string]int{"SEC": 5, "Binance": 4}),
		secDoc("b", map[string]int{"SEC": 5, "Binance": 4}),
		secDoc("c", map[string]int{"SEC": 5, "Binance": 4}),
	}

	clusters := engine.Cluster(ctx, docs)
	gt.Array(t, clusters).Length(1).Required()
	gt.Array(t, clusters[0].Documents).Length(3)
}

func TestClusterDeterminism(t *testing.T) {
	engine := cluster.New(cluster.DefaultConfig())
	ctx := context.Background()

	docs := []*model.Document{
		secDoc("a", map[string]int{"SEC": 5, "Binance": 4}, "regulation"),
		secDoc("b", map[string]int{"SEC": 5, "Coinbase": 4}, "regulation"),
		secDoc("c", map[string]int{"SEC": 4, "Binance": 4}),
		secDoc("d", map[string]int{"SEC": 5, "Kraken": 2}),
	}

	first := engine.Cluster(ctx, docs)
	second := engine.Cluster(ctx, docs)

	gt.Value(t, len(first)).Equal(len(second))
	for i := range first {
		gt.Value(t, len(first[i].Documents)).Equal(len(second[i].Documents))
		for j := range first[i].Documents {
			gt.Value(t, first[i].Documents[j].ID).Equal(second[i].Documents[j].ID)
		}
	}
}

func TestClusterAggregates(t *testing.T) {
	engine := cluster.New(cluster.DefaultConfig())
	ctx := context.Background()

	docs := []*model.Document{
		{
			ID: "a", NucleusEntity: "SEC",
			Actors:        []string{"SEC", "Binance"},
			ActorSalience: map[string]int{"SEC": 4, "Binance": 4},
			Actions:       []string{"files lawsuit"},
		},
		{
			ID: "b", NucleusEntity: "SEC",
			Actors:        []string{"SEC", "Binance"},
			ActorSalience: map[string]int{"SEC": 5, "Binance": 4},
			Actions:       []string{"Files Lawsuit", "freezes assets"},
		},
		{
			ID: "c", NucleusEntity: "SEC",
			Actors:        []string{"SEC", "Coinbase"},
			ActorSalience: map[string]int{"SEC": 5, "Coinbase": 3},
		},
	}

	clusters := engine.Cluster(ctx, docs)
	gt.Array(t, clusters).Length(1).Required()

	c := clusters[0]
	gt.Value(t, c.ActorSalience()["SEC"]).Equal(5) // max across documents
	gt.Array(t, c.Actions()).Equal([]string{"files lawsuit", "freezes assets"})
	gt.Array(t, c.Entities()).Equal([]string{"SEC", "Binance", "Coinbase"})
}
