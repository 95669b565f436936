package usecase

import (
	"context"
	"sort"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/newsweave-lab/clotho/pkg/domain/interfaces"
	"github.com/newsweave-lab/clotho/pkg/domain/model"
	"github.com/newsweave-lab/clotho/pkg/domain/types"
	"github.com/newsweave-lab/clotho/pkg/utils/logging"
)

// DedupConfig holds thresholds for the periodic narrative merge pass.
type DedupConfig struct {
	// MergeThreshold is the entity-set Jaccard similarity above which
	// two narratives are considered the same story.
	MergeThreshold float64

	// Window restricts comparison to narratives updated recently; old
	// narratives have stabilized and re-comparing them every pass is
	// wasted work.
	Window time.Duration

	// MaxCompare bounds the candidate set so the pairwise comparison
	// stays tractable.
	MaxCompare int
}

// DefaultDedupConfig returns the standard dedup thresholds.
func DefaultDedupConfig() DedupConfig {
	return DedupConfig{
		MergeThreshold: 0.7,
		Window:         14 * 24 * time.Hour,
		MaxCompare:     200,
	}
}

// DedupReport summarizes one dedup pass.
type DedupReport struct {
	Compared int
	Groups   int
	Absorbed int
}

// DedupUseCase merges narratives that drifted into tracking the same
// story. Nothing is deleted: the narrative with the most documents
// survives, absorbs the others' documents and entities, and each
// absorbed narrative is parked dormant with a pointer to its survivor.
type DedupUseCase struct {
	repo  interfaces.Repository
	cfg   DedupConfig
	clock func() time.Time
}

// NewDedupUseCase creates a DedupUseCase.
func NewDedupUseCase(repo interfaces.Repository, cfg DedupConfig) *DedupUseCase {
	return &DedupUseCase{
		repo:  repo,
		cfg:   cfg,
		clock: func() time.Time { return time.Now().UTC() },
	}
}

// SetClock injects the time source, for tests.
func (uc *DedupUseCase) SetClock(clock func() time.Time) {
	uc.clock = clock
}

// Run executes one dedup pass over recently updated narratives.
func (uc *DedupUseCase) Run(ctx context.Context) (*DedupReport, error) {
	logger := logging.From(ctx)
	now := uc.clock()
	report := &DedupReport{}

	candidates, err := uc.repo.Narrative().ListUpdatedSince(ctx, now.Add(-uc.cfg.Window), nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list narratives for dedup")
	}

	var active []*model.Narrative
	for _, n := range candidates {
		if n.MergedInto != "" {
			continue
		}
		active = append(active, n)
		if len(active) >= uc.cfg.MaxCompare {
			break
		}
	}
	report.Compared = len(active)

	for _, group := range uc.groupDuplicates(active) {
		report.Groups++
		if err := uc.mergeGroup(ctx, group, now, report); err != nil {
			logger.Error("failed to merge duplicate narratives",
				"survivor", group[0].ID,
				"group_size", len(group),
				"error", err.Error(),
			)
		}
	}

	logger.Info("dedup pass finished",
		"compared", report.Compared,
		"groups", report.Groups,
		"absorbed", report.Absorbed,
	)
	return report, nil
}

// groupDuplicates partitions narratives into duplicate groups via
// union-find over pairs whose entity sets clear the merge threshold.
// Each returned group is ordered survivor first (most documents, then
// earliest FirstSeen as a stable tiebreak).
func (uc *DedupUseCase) groupDuplicates(narratives []*model.Narrative) [][]*model.Narrative {
	parent := make([]int, len(narratives))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}

	for i := 0; i < len(narratives); i++ {
		for j := i + 1; j < len(narratives); j++ {
			if model.Jaccard(narratives[i].Entities, narratives[j].Entities) > uc.cfg.MergeThreshold {
				parent[find(j)] = find(i)
			}
		}
	}

	members := make(map[int][]*model.Narrative)
	for i, n := range narratives {
		root := find(i)
		members[root] = append(members[root], n)
	}

	var groups [][]*model.Narrative
	for _, group := range members {
		if len(group) < 2 {
			continue
		}
		sort.SliceStable(group, func(a, b int) bool {
			if group[a].DocumentCount != group[b].DocumentCount {
				return group[a].DocumentCount > group[b].DocumentCount
			}
			return group[a].FirstSeen.Before(group[b].FirstSeen)
		})
		groups = append(groups, group)
	}
	sort.Slice(groups, func(a, b int) bool {
		return groups[a][0].ID < groups[b][0].ID
	})
	return groups
}

func (uc *DedupUseCase) mergeGroup(ctx context.Context, group []*model.Narrative, now time.Time, report *DedupReport) error {
	logger := logging.From(ctx)
	survivor := group[0]

	for _, absorbed := range group[1:] {
		for _, docID := range absorbed.DocumentIDs {
			survivor.AddDocument(docID)
		}
		survivor.AddEntities(absorbed.Entities)
		if absorbed.FirstSeen.Before(survivor.FirstSeen) {
			survivor.FirstSeen = absorbed.FirstSeen
		}

		absorbed.MergedInto = survivor.ID
		absorbed.LifecycleStage = types.StageDormant
		absorbed.LastUpdated = now
		if _, err := uc.repo.Narrative().Update(ctx, absorbed); err != nil {
			return goerr.Wrap(err, "failed to park absorbed narrative", goerr.V("id", absorbed.ID))
		}
		report.Absorbed++

		logger.Info("absorbed duplicate narrative",
			"absorbed", absorbed.ID,
			"absorbed_title", absorbed.Title,
			"survivor", survivor.ID,
			"survivor_title", survivor.Title,
		)
	}

	survivor.LastUpdated = now
	if _, err := uc.repo.Narrative().Update(ctx, survivor); err != nil {
		return goerr.Wrap(err, "failed to update surviving narrative", goerr.V("id", survivor.ID))
	}
	return nil
}
