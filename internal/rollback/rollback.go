// Package rollback implements the Rollback Coordinator (C9): on a failed
// verdict it drives restore of the task's snapshot and reports the outcome
// (spec §4.9). It does not change task state; the caller moves the task to
// RolledBack whatever the outcome.
package rollback

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/ares-io/ares-core/internal/aerrors"
	"github.com/ares-io/ares-core/internal/ids"
	"github.com/ares-io/ares-core/internal/model"
	"github.com/ares-io/ares-core/internal/store/snapshot"
	"github.com/ares-io/ares-core/internal/telemetry"
)

// Outcome is the result of driving rollback for one task.
type Outcome struct {
	TaskID      ids.TaskId
	HadSnapshot bool
	Success     bool
	Reason      string
	RestoreAt   time.Time
}

// Coordinator drives the rollback path. One circuit breaker guards each
// snapshot scope so a flapping RestoreHandler (e.g. a downed filesystem
// backend) fails fast instead of blocking every task sharing that scope.
type Coordinator struct {
	snapshots snapshot.Store
	telemetry telemetry.Set

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewCoordinator constructs a Rollback Coordinator over the given Snapshot
// Store.
func NewCoordinator(snapshots snapshot.Store, tel telemetry.Set) *Coordinator {
	return &Coordinator{
		snapshots: snapshots,
		telemetry: tel,
		breakers:  make(map[string]*gobreaker.CircuitBreaker),
	}
}

func (c *Coordinator) breakerFor(scope string) *gobreaker.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()

	if b, ok := c.breakers[scope]; ok {
		return b
	}
	b := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "rollback:" + scope,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	c.breakers[scope] = b
	return b
}

// Rollback drives the restore path for taskID and returns the outcome.
// Absence of a snapshot is not an error: the task goes directly to
// RolledBack with reason no_snapshot (spec §4.9.1).
func (c *Coordinator) Rollback(ctx context.Context, taskID ids.TaskId) Outcome {
	snap, err := c.snapshots.Get(ctx, taskID)
	if aerrors.Is(err, aerrors.NotFound) {
		return Outcome{TaskID: taskID, HadSnapshot: false, Success: false, Reason: "no_snapshot", RestoreAt: time.Now()}
	}

	breaker := c.breakerFor(snap.Scope)
	result, breakerErr := breaker.Execute(func() (any, error) {
		rec, err := c.snapshots.Restore(ctx, taskID)
		if err != nil {
			return model.RestoreRecord{}, err
		}
		if rec.Outcome == model.RestoreFailedOutcome {
			return rec, errors.New(rec.Reason)
		}
		return rec, nil
	})

	if breakerErr != nil {
		reason := breakerErr.Error()
		if errors.Is(breakerErr, gobreaker.ErrOpenState) || errors.Is(breakerErr, gobreaker.ErrTooManyRequests) {
			reason = "restore_circuit_open"
		}
		c.telemetry.Metrics.IncCounter("rollback.restore_failed", 1, "scope", snap.Scope)
		return Outcome{TaskID: taskID, HadSnapshot: true, Success: false, Reason: reason, RestoreAt: time.Now()}
	}

	rec, _ := result.(model.RestoreRecord)
	return Outcome{TaskID: taskID, HadSnapshot: true, Success: true, Reason: rec.Reason, RestoreAt: time.Now()}
}
