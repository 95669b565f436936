package usecase

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/newsweave-lab/clotho/pkg/domain/interfaces"
	"github.com/newsweave-lab/clotho/pkg/domain/model"
	"github.com/newsweave-lab/clotho/pkg/domain/types"
	"github.com/newsweave-lab/clotho/pkg/service/canonical"
	"github.com/newsweave-lab/clotho/pkg/service/signal"
	"github.com/newsweave-lab/clotho/pkg/utils/logging"
)

// SignalUseCase recomputes per-entity signals for every timeframe from
// the mention event log. Each cycle replaces the stored signal set
// wholesale, so a crashed cycle leaves the previous consistent set in
// place.
type SignalUseCase struct {
	repo   interfaces.Repository
	scorer *signal.Scorer
	canon  *canonical.Canonicalizer
	clock  func() time.Time
}

// NewSignalUseCase creates a SignalUseCase. The canonicalizer supplies
// entity type classification for scored signals.
func NewSignalUseCase(repo interfaces.Repository, canon *canonical.Canonicalizer, cfg signal.Config) *SignalUseCase {
	return &SignalUseCase{
		repo:   repo,
		scorer: signal.New(cfg),
		canon:  canon,
		clock:  func() time.Time { return time.Now().UTC() },
	}
}

// SetClock injects the time source, for tests.
func (uc *SignalUseCase) SetClock(clock func() time.Time) {
	uc.clock = clock
}

// Run recomputes signals for all timeframes.
func (uc *SignalUseCase) Run(ctx context.Context) error {
	logger := logging.From(ctx)
	now := uc.clock()

	// One fetch covers every timeframe: the longest window needs two
	// periods of history for the velocity baseline.
	longest := types.Timeframe30d.Duration()
	mentions, err := uc.repo.Mention().ListSince(ctx, now.Add(-2*longest))
	if err != nil {
		return goerr.Wrap(err, "failed to list entity mentions")
	}
	if len(mentions) == 0 {
		logger.Info("no mentions to score")
		return nil
	}

	byEntity := groupMentions(mentions)
	membership, err := uc.narrativeMembership(ctx)
	if err != nil {
		return err
	}

	for _, timeframe := range types.AllTimeframes() {
		signals := make([]*model.EntitySignal, 0, len(byEntity))
		for _, group := range byEntity {
			narrativeIDs := membership[strings.ToLower(group.entity)]
			entityType := uc.canon.TypeOf(group.entity)
			signals = append(signals, uc.scorer.Score(group.entity, entityType, group.mentions, narrativeIDs, timeframe, now))
		}

		sort.Slice(signals, func(i, j int) bool {
			if signals[i].Score != signals[j].Score {
				return signals[i].Score > signals[j].Score
			}
			return signals[i].Entity < signals[j].Entity
		})

		if err := uc.repo.Signal().Replace(ctx, timeframe, signals); err != nil {
			return goerr.Wrap(err, "failed to replace signals", goerr.V("timeframe", timeframe))
		}
		logger.Info("signals recomputed",
			"timeframe", timeframe.String(),
			"entities", len(signals),
		)
	}
	return nil
}

type mentionGroup struct {
	entity   string
	mentions []*model.EntityMention
}

// groupMentions buckets mentions per entity, case-insensitively, keyed
// by the first-seen spelling. Output order is deterministic.
func groupMentions(mentions []*model.EntityMention) []*mentionGroup {
	byKey := make(map[string]*mentionGroup)
	var keys []string
	for _, m := range mentions {
		key := strings.ToLower(m.Entity)
		group, ok := byKey[key]
		if !ok {
			group = &mentionGroup{entity: m.Entity}
			byKey[key] = group
			keys = append(keys, key)
		}
		group.mentions = append(group.mentions, m)
	}

	sort.Strings(keys)
	groups := make([]*mentionGroup, 0, len(keys))
	for _, key := range keys {
		groups = append(groups, byKey[key])
	}
	return groups
}

// narrativeMembership maps lowercased entity names to the IDs of
// non-dormant narratives that track them. An entity with mentions but
// no membership is an emerging signal.
func (uc *SignalUseCase) narrativeMembership(ctx context.Context) (map[string][]string, error) {
	narratives, err := uc.repo.Narrative().List(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list narratives for membership")
	}

	membership := make(map[string][]string)
	for _, n := range narratives {
		if n.MergedInto != "" || n.LifecycleStage == types.StageDormant {
			continue
		}
		for _, entity := range n.Entities {
			key := strings.ToLower(entity)
			membership[key] = append(membership[key], n.ID)
		}
	}
	return membership, nil
}
