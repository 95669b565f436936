package lifecycle

import (
	"math"
	"sort"
	"time"

	"github.com/newsweave-lab/clotho/pkg/domain/types"
)

const (
	// velocityWindow is the fixed lookback for velocity. Velocity is
	// always documents per day over this window, never divided by the
	// observed span between oldest and newest, which would make
	// near-simultaneous bursts produce absurd values.
	velocityWindow = 7 * 24 * time.Hour
	velocityDays   = 7.0

	recencyDecayHours = 24.0

	coolingAfter = 3 * 24 * time.Hour
	dormantAfter = 7 * 24 * time.Hour

	momentumGrowthRatio  = 1.3
	momentumDeclineRatio = 0.7

	velocityMature = 5.0
	velocityHot    = 1.5
	docCountHot    = 5
	docCountRising = 4
)

// Metrics is the computed lifecycle state of a narrative.
type Metrics struct {
	Velocity     float64
	Momentum     types.Momentum
	RecencyScore float64
	Stage        types.LifecycleStage
}

// Assess computes velocity, momentum, recency score and lifecycle
// stage from the publication timestamps of a narrative's documents.
// Pure function of its inputs.
func Assess(timestamps []time.Time, now time.Time) Metrics {
	velocity := Velocity(timestamps, now)
	momentum := Momentum(timestamps)

	return Metrics{
		Velocity:     velocity,
		Momentum:     momentum,
		RecencyScore: RecencyScore(timestamps, now),
		Stage:        Stage(velocity, len(timestamps), momentum, newest(timestamps), now),
	}
}

// Velocity returns documents per day over the fixed 7-day window.
func Velocity(timestamps []time.Time, now time.Time) float64 {
	cutoff := now.Add(-velocityWindow)
	count := 0
	for _, ts := range timestamps {
		if !ts.Before(cutoff) && !ts.After(now) {
			count++
		}
	}
	return float64(count) / velocityDays
}

// Momentum splits the document timestamps into older and newer halves
// and compares their local publication rates. Fewer than 3 documents
// yields MomentumUnknown.
func Momentum(timestamps []time.Time) types.Momentum {
	if len(timestamps) < 3 {
		return types.MomentumUnknown
	}

	sorted := append([]time.Time(nil), timestamps...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	mid := len(sorted) / 2
	olderRate := localRate(sorted[:mid])
	newerRate := localRate(sorted[mid:])

	if olderRate == 0 {
		return types.MomentumStable
	}

	ratio := newerRate / olderRate
	switch {
	case ratio >= momentumGrowthRatio:
		return types.MomentumGrowing
	case ratio <= momentumDeclineRatio:
		return types.MomentumDeclining
	default:
		return types.MomentumStable
	}
}

// localRate is documents per hour within one half, with the span
// floored at one hour so bursty halves do not divide by near-zero.
func localRate(ts []time.Time) float64 {
	if len(ts) == 0 {
		return 0
	}
	span := ts[len(ts)-1].Sub(ts[0])
	if span < time.Hour {
		span = time.Hour
	}
	return float64(len(ts)) / span.Hours()
}

// RecencyScore is exp(-hoursSinceNewestDocument / 24), rounded to 3
// decimals. Returns 0 when there are no documents.
func RecencyScore(timestamps []time.Time, now time.Time) float64 {
	latest := newest(timestamps)
	if latest.IsZero() {
		return 0
	}

	hours := now.Sub(latest).Hours()
	if hours < 0 {
		hours = 0
	}
	score := math.Exp(-hours / recencyDecayHours)
	return math.Round(score*1000) / 1000
}

// Stage computes the lifecycle stage. Recency dominates activity
// level: 3 days without a new document forces cooling, 7 days forces
// dormant, overriding all other signals.
func Stage(velocity float64, docCount int, momentum types.Momentum, newestDoc time.Time, now time.Time) types.LifecycleStage {
	if !newestDoc.IsZero() {
		idle := now.Sub(newestDoc)
		if idle >= dormantAfter {
			return types.StageDormant
		}
		if idle >= coolingAfter {
			return types.StageCooling
		}
	}

	var stage types.LifecycleStage
	switch {
	case velocity >= velocityMature:
		stage = types.StageMature
	case velocity >= velocityHot || docCount >= docCountHot:
		stage = types.StageHot
	case docCount < docCountRising:
		stage = types.StageEmerging
	default:
		stage = types.StageRising
	}

	switch {
	case stage == types.StageMature && momentum == types.MomentumDeclining:
		stage = types.StageCooling
	case stage == types.StageHot && momentum == types.MomentumGrowing:
		stage = types.StageHeating
	case stage == types.StageEmerging && momentum == types.MomentumGrowing:
		stage = types.StageRising
	}

	return stage
}

func newest(timestamps []time.Time) time.Time {
	var latest time.Time
	for _, ts := range timestamps {
		if ts.After(latest) {
			latest = ts
		}
	}
	return latest
}
