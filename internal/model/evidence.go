package model

import (
	"time"

	"github.com/ares-io/ares-core/internal/ids"
)

// ValidationStatus records whether the Tool-Call Validator (C5) has checked a
// ToolCallRecord, and why it failed when it did not pass.
type ValidationStatus struct {
	State  ValidationState
	Reason string // non-empty only when State == Invalid
}

// ValidationState enumerates the three states a ToolCallRecord's validation
// may be in.
type ValidationState string

const (
	Unchecked ValidationState = "unchecked"
	Valid     ValidationState = "valid"
	Invalid   ValidationState = "invalid"
)

// ToolCallRecord captures one reported tool invocation (spec §3). Validation
// is set exactly once by the Tool-Call Validator.
type ToolCallRecord struct {
	ID         ids.ToolCallId
	TaskID     ids.TaskId
	ToolName   string
	Arguments  any
	Result     any
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
	Validation ValidationStatus
}

// Artifact is a piece of evidence attached to a Task (spec §3). Artifacts are
// append-only: never mutated, never deleted while the task is not terminal.
type Artifact struct {
	ID          ids.ArtifactId
	TaskID      ids.TaskId
	Kind        string
	Payload     []byte
	Hash        string
	SubmittedAt time.Time
}

// Empty reports whether the artifact's payload carries no evidence, used by
// the Proof-of-Work Collector's "presence" sub-score (spec §4.6).
func (a Artifact) Empty() bool {
	return len(a.Payload) == 0
}
