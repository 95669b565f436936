package signal_test

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/newsweave-lab/clotho/pkg/domain/model"
	"github.com/newsweave-lab/clotho/pkg/domain/types"
	"github.com/newsweave-lab/clotho/pkg/service/signal"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func mentionsAt(entity, source string, times ...time.Time) []*model.EntityMention {
	mentions := make([]*model.EntityMention, 0, len(times))
	for i, ts := range times {
		mentions = append(mentions, &model.EntityMention{
			ID:          fmt.Sprintf("%s-%d", entity, i),
			Entity:      entity,
			Source:      source,
			MentionedAt: ts,
		})
	}
	return mentions
}

func TestScoreVelocity(t *testing.T) {
	scorer := signal.New(signal.DefaultConfig())

	t.Run("period over period growth", func(t *testing.T) {
		// 5 mentions in the last 7 days, 3 in the prior 7 days:
		// velocity = (5-3)/3.
		var mentions []*model.EntityMention
		for i := 0; i < 5; i++ {
			mentions = append(mentions, mentionsAt("Solana", "coindesk", now.Add(-time.Duration(i+1)*24*time.Hour))...)
		}
		for i := 0; i < 3; i++ {
			mentions = append(mentions, mentionsAt("Solana", "reuters", now.Add(-time.Duration(i+8)*24*time.Hour))...)
		}

		got := scorer.Score("Solana", "", mentions, nil, types.Timeframe7d, now)
		gt.Value(t, got.MentionCount).Equal(5)
		gt.Bool(t, math.Abs(got.Velocity-2.0/3.0) < 1e-9).True()
	})

	t.Run("no previous period yields zero velocity", func(t *testing.T) {
		mentions := mentionsAt("Solana", "coindesk", now.Add(-time.Hour), now.Add(-2*time.Hour))
		got := scorer.Score("Solana", "", mentions, nil, types.Timeframe24h, now)
		gt.Value(t, got.Velocity).Equal(0.0)
	})
}

func TestScoreRecencyConcentration(t *testing.T) {
	scorer := signal.New(signal.DefaultConfig())

	// Timeframe 24h, recent tail is the last 4.8 hours. Two of four
	// mentions fall inside it.
	mentions := mentionsAt("Tether", "bloomberg",
		now.Add(-time.Hour),
		now.Add(-2*time.Hour),
		now.Add(-10*time.Hour),
		now.Add(-20*time.Hour),
	)

	got := scorer.Score("Tether", "", mentions, nil, types.Timeframe24h, now)
	gt.Value(t, got.MentionCount).Equal(4)
	gt.Value(t, got.RecencyFactor).Equal(0.5)
}

func TestScoreBoundsAndEmergence(t *testing.T) {
	scorer := signal.New(signal.DefaultConfig())

	t.Run("score is capped at 10", func(t *testing.T) {
		// Explosive growth: 1 prior mention, 50 current from many sources.
		var mentions []*model.EntityMention
		mentions = append(mentions, mentionsAt("X", "s0", now.Add(-30*time.Hour))...)
		for i := 0; i < 50; i++ {
			mentions = append(mentions, mentionsAt("X", fmt.Sprintf("s%d", i), now.Add(-time.Hour))...)
		}

		got := scorer.Score("X", "", mentions, nil, types.Timeframe24h, now)
		gt.Value(t, got.Score).Equal(10.0)
	})

	t.Run("declining entity never goes negative", func(t *testing.T) {
		var mentions []*model.EntityMention
		for i := 0; i < 10; i++ {
			mentions = append(mentions, mentionsAt("Y", "src", now.Add(-30*time.Hour))...)
		}

		got := scorer.Score("Y", "", mentions, nil, types.Timeframe24h, now)
		gt.Bool(t, got.Score >= 0).True()
	})

	t.Run("emergence flag follows narrative membership", func(t *testing.T) {
		mentions := mentionsAt("Z", "src", now.Add(-time.Hour))

		orphan := scorer.Score("Z", "", mentions, nil, types.Timeframe24h, now)
		gt.Bool(t, orphan.IsEmerging).True()

		tracked := scorer.Score("Z", "", mentions, []string{"n1"}, types.Timeframe24h, now)
		gt.Bool(t, tracked.IsEmerging).False()
		gt.Array(t, tracked.NarrativeIDs).Equal([]string{"n1"})
	})
}

func TestScoreIgnoresOutOfWindowMentions(t *testing.T) {
	scorer := signal.New(signal.DefaultConfig())

	mentions := append(
		mentionsAt("A", "src", now.Add(-time.Hour)),
		mentionsAt("A", "src", now.Add(-100*24*time.Hour))...,
	)

	got := scorer.Score("A", "", mentions, nil, types.Timeframe24h, now)
	gt.Value(t, got.MentionCount).Equal(1)
	gt.Value(t, got.Velocity).Equal(0.0)
}
