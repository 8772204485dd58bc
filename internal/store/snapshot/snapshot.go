// Package snapshot implements the Snapshot Store (C3): opaque pre-task state
// blobs keyed by task, restored through scope-registered RestoreHandlers.
package snapshot

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ares-io/ares-core/internal/aerrors"
	"github.com/ares-io/ares-core/internal/ids"
	"github.com/ares-io/ares-core/internal/model"
)

// ErrRestoreTimeout is the Reason recorded on a RestoreRecord when the
// RestoreHandler did not return within the store's restore deadline (spec
// §5: "Restore handlers have their own deadline... exceeding it yields
// RestoreFailed(timeout)").
var ErrRestoreTimeout = errors.New("timeout")

type (
	// Store maps TaskId to Snapshot (spec §4.3). Capture fails if a snapshot
	// already exists; Restore is idempotent, memoizing the first outcome.
	Store interface {
		// Capture records opaqueState for taskID under scope. Fails with
		// aerrors.Duplicate if a snapshot already exists for taskID.
		Capture(ctx context.Context, taskID ids.TaskId, scope string, opaqueState []byte, restoreKey string) error

		// Restore invokes the RestoreHandler registered for the snapshot's
		// scope. Calling Restore twice returns the memoized result of the
		// first attempt without invoking the handler again.
		Restore(ctx context.Context, taskID ids.TaskId) (model.RestoreRecord, error)

		// Get returns the snapshot captured for taskID.
		Get(ctx context.Context, taskID ids.TaskId) (model.Snapshot, error)

		// RegisterHandler associates a RestoreHandler with scope. Registration
		// happens at startup, before any task referencing scope is captured.
		RegisterHandler(scope string, handler model.RestoreHandler)
	}

	store struct {
		mu              sync.Mutex
		snapshots       map[ids.TaskId]*model.Snapshot
		handlers        map[string]model.RestoreHandler
		restoreDeadline time.Duration
	}
)

// DefaultRestoreDeadline is used when NewStore is called with a
// non-positive deadline.
const DefaultRestoreDeadline = 60 * time.Second

// NewStore constructs an in-process Snapshot Store. restoreDeadline bounds
// how long a RestoreHandler may run before Restore reports RestoreFailed
// with reason "timeout"; non-positive falls back to DefaultRestoreDeadline.
func NewStore(restoreDeadline time.Duration) Store {
	if restoreDeadline <= 0 {
		restoreDeadline = DefaultRestoreDeadline
	}
	return &store{
		snapshots:       make(map[ids.TaskId]*model.Snapshot),
		handlers:        make(map[string]model.RestoreHandler),
		restoreDeadline: restoreDeadline,
	}
}

func (s *store) RegisterHandler(scope string, handler model.RestoreHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[scope] = handler
}

func (s *store) Capture(_ context.Context, taskID ids.TaskId, scope string, opaqueState []byte, restoreKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.snapshots[taskID]; ok {
		return aerrors.New(aerrors.Duplicate, "snapshot already captured for task %s", taskID)
	}
	s.snapshots[taskID] = &model.Snapshot{
		TaskID:      taskID,
		Scope:       scope,
		OpaqueState: opaqueState,
		RestoreKey:  restoreKey,
		CapturedAt:  time.Now(),
	}
	return nil
}

func (s *store) Get(_ context.Context, taskID ids.TaskId) (model.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.snapshots[taskID]
	if !ok {
		return model.Snapshot{}, aerrors.New(aerrors.NotFound, "no snapshot for task %s", taskID)
	}
	return *snap, nil
}

// Restore implements Store. The handler is invoked outside the store's lock
// so a slow or blocking restore does not stall other tasks' Capture/Restore
// calls. A second caller arriving while the handler is still running invokes
// the handler as well; whichever result is recorded first is memoized and
// returned to both callers.
func (s *store) Restore(ctx context.Context, taskID ids.TaskId) (model.RestoreRecord, error) {
	s.mu.Lock()
	snap, ok := s.snapshots[taskID]
	if !ok {
		s.mu.Unlock()
		return model.RestoreRecord{}, aerrors.New(aerrors.NotFound, "no snapshot for task %s", taskID)
	}
	if snap.RestoreRecord != nil {
		rec := *snap.RestoreRecord
		s.mu.Unlock()
		return rec, nil
	}
	handler, ok := s.handlers[snap.Scope]
	if !ok {
		s.mu.Unlock()
		return model.RestoreRecord{}, aerrors.New(aerrors.IllegalState, "no restore handler registered for scope %q", snap.Scope)
	}
	opaqueState := snap.OpaqueState
	s.mu.Unlock()

	err := s.runWithDeadline(ctx, handler, opaqueState)

	s.mu.Lock()
	defer s.mu.Unlock()
	// Re-check: a concurrent Restore call may have already memoized a
	// result while the handler above was in flight.
	if snap.RestoreRecord != nil {
		return *snap.RestoreRecord, nil
	}
	rec := model.RestoreRecord{AttemptAt: time.Now()}
	if err != nil {
		rec.Outcome = model.RestoreFailedOutcome
		rec.Reason = err.Error()
	} else {
		rec.Outcome = model.Restored
	}
	snap.RestoreRecord = &rec
	return rec, nil
}

// runWithDeadline invokes handler and enforces s.restoreDeadline even if
// handler ignores ctx cancellation. The handler goroutine is leaked on
// timeout; that is the accepted cost of a hard deadline over a handler this
// store does not control.
func (s *store) runWithDeadline(ctx context.Context, handler model.RestoreHandler, opaqueState []byte) error {
	deadlineCtx, cancel := context.WithTimeout(ctx, s.restoreDeadline)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- handler(deadlineCtx, opaqueState)
	}()

	select {
	case err := <-done:
		return err
	case <-deadlineCtx.Done():
		return ErrRestoreTimeout
	}
}
