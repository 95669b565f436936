package types

import "github.com/m-mizutani/goerr/v2"

// LifecycleStage represents the lifecycle stage of a narrative
type LifecycleStage string

const (
	StageEmerging LifecycleStage = "emerging"
	StageRising   LifecycleStage = "rising"
	StageHot      LifecycleStage = "hot"
	StageHeating  LifecycleStage = "heating"
	StageMature   LifecycleStage = "mature"
	StageCooling  LifecycleStage = "cooling"
	StageDormant  LifecycleStage = "dormant"
)

// AllLifecycleStages returns all valid lifecycle stages
func AllLifecycleStages() []LifecycleStage {
	return []LifecycleStage{
		StageEmerging,
		StageRising,
		StageHot,
		StageHeating,
		StageMature,
		StageCooling,
		StageDormant,
	}
}

// ActiveStages returns the stages whose narratives are candidates for
// matching. Dormant stays in the candidate set so a returning story
// reawakens its narrative instead of spawning a duplicate. Mature and
// heating narratives are excluded: a story at peak coverage attracts
// loosely related clusters, and those belong in new narratives that
// the dedup pass can merge later if they really are the same story.
func ActiveStages() []LifecycleStage {
	return []LifecycleStage{
		StageEmerging,
		StageRising,
		StageHot,
		StageCooling,
		StageDormant,
	}
}

// IsValid checks if the lifecycle stage is valid
func (s LifecycleStage) IsValid() bool {
	switch s {
	case StageEmerging,
		StageRising,
		StageHot,
		StageHeating,
		StageMature,
		StageCooling,
		StageDormant:
		return true
	default:
		return false
	}
}

// String returns the string representation of the lifecycle stage
func (s LifecycleStage) String() string {
	return string(s)
}

// ParseLifecycleStage parses a string into a LifecycleStage
func ParseLifecycleStage(s string) (LifecycleStage, error) {
	stage := LifecycleStage(s)
	if !stage.IsValid() {
		return "", goerr.New("invalid lifecycle stage", goerr.V("value", s))
	}
	return stage, nil
}
