package model

import (
	"time"

	"github.com/ares-io/ares-core/internal/ids"
)

// Outcome is the coarse pass/fail result of a Verdict (spec §3).
type Outcome string

const (
	Pass Outcome = "pass"
	Fail Outcome = "fail"
)

// SubScores carries the four component scores the Verification Coordinator
// (C8) aggregates into Verdict.Overall (spec §4.8).
type SubScores struct {
	Completion float64
	ToolUsage  float64
	Evidence   float64
	Behavior   float64
}

// Verdict is the single immutable outcome of verification for a Task (spec
// §3). Exactly one Verdict exists per terminal (Verified or Failed) task.
type Verdict struct {
	TaskID    ids.TaskId
	Outcome   Outcome
	SubScores SubScores
	Overall   float64
	// Reasons enumerates stable tags, in the stable order
	// completion, tool_usage, evidence, behavior (spec §4.8).
	Reasons    []string
	ProducedAt time.Time
}
