package model

import (
	"context"
	"time"

	"github.com/ares-io/ares-core/internal/ids"
)

// RestoreOutcome records the result of invoking a RestoreHandler for a
// Snapshot (spec §4.3/§4.9).
type RestoreOutcome string

const (
	// RestorePending means restore has not yet been attempted.
	RestorePending RestoreOutcome = "pending"
	// Restored means the handler returned Ok.
	Restored RestoreOutcome = "restored"
	// RestoreFailedOutcome means the handler returned an error or timed out.
	RestoreFailedOutcome RestoreOutcome = "restore_failed"
)

// Snapshot is an opaque pre-task state blob keyed by task, understood only
// by the RestoreHandler registered for its Scope (spec §3). Exactly one
// Snapshot may exist per task.
type Snapshot struct {
	TaskID      ids.TaskId
	Scope       string
	OpaqueState []byte
	RestoreKey  string
	CapturedAt  time.Time

	// RestoreRecord is nil until restore has been attempted at least once.
	RestoreRecord *RestoreRecord
}

// RestoreRecord is the idempotent memoized result of calling restore once
// (spec §4.3: "calling twice yields the same result").
type RestoreRecord struct {
	Outcome   RestoreOutcome
	Reason    string // populated when Outcome == RestoreFailedOutcome
	AttemptAt time.Time
}

// RestoreHandler is the external interface invoked by the Snapshot Store to
// restore a captured state (spec §4.3). Handlers are registered at startup
// keyed by scope and must be safe to call under the task lock.
type RestoreHandler func(ctx context.Context, opaqueState []byte) error
