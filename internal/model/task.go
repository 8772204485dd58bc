package model

import (
	"time"

	"github.com/ares-io/ares-core/internal/ids"
)

// TaskState is a Task's position in the state machine defined by spec §4.8.
//
//	Pending ──submit──▶ InProgress ──complete──▶ AwaitingVerification
//	                                         │
//	                                         ├─ Pass ──▶ Verified (terminal)
//	                                         └─ Fail ──▶ Failed → RolledBack (terminal)
//	                                       cancel at any non-terminal ──▶ RolledBack
type TaskState string

const (
	TaskPending              TaskState = "pending"
	TaskInProgress           TaskState = "in_progress"
	TaskAwaitingVerification TaskState = "awaiting_verification"
	TaskVerified             TaskState = "verified"
	TaskFailed               TaskState = "failed"
	TaskRolledBack           TaskState = "rolled_back"
)

// Terminal reports whether a TaskState accepts no further transitions.
func (s TaskState) Terminal() bool {
	return s == TaskVerified || s == TaskRolledBack
}

// Task is a unit of work submitted for verification, owned by one Agent
// (spec §3). State transitions only as defined by the Task state machine;
// the Task is immutable once in a terminal state.
type Task struct {
	ID          ids.TaskId
	AgentID     ids.AgentId
	Description string
	Criteria    AcceptanceCriteria
	State       TaskState
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CanTransitionTo reports whether moving from the Task's current state to
// next is a legal edge in the state machine above. Terminal states accept no
// outbound edges.
func (t Task) CanTransitionTo(next TaskState) bool {
	if t.State.Terminal() {
		return false
	}
	switch t.State {
	case TaskPending:
		return next == TaskInProgress || next == TaskRolledBack
	case TaskInProgress:
		return next == TaskAwaitingVerification || next == TaskRolledBack
	case TaskAwaitingVerification:
		return next == TaskVerified || next == TaskFailed || next == TaskRolledBack
	case TaskFailed:
		return next == TaskRolledBack
	default:
		return false
	}
}
