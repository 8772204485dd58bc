// Package aerrors provides the structured error taxonomy surfaced at the
// ARES API boundary (spec §7). Errors carry a stable Kind so callers can
// branch on category with errors.Is/errors.As instead of string matching,
// while still preserving the causal chain via Unwrap.
package aerrors

import (
	"errors"
	"fmt"
)

// Kind classifies a core error into one of the categories from spec §7.
// Kinds describe WHAT triggered the error, not how it propagates; the
// propagation policy lives in the callers (retry, surface, roll back).
type Kind string

const (
	// NotFound indicates an unknown id was referenced on any API.
	NotFound Kind = "not_found"
	// IllegalState indicates an operation incompatible with the current
	// task/agent state (e.g. completing an already-terminal task).
	IllegalState Kind = "illegal_state"
	// Duplicate indicates an idempotent append/capture collided with an
	// existing record. Callers should treat this as success.
	Duplicate Kind = "duplicate"
	// ValidationError indicates malformed criteria or a malformed schema at
	// creation time; the entity is never created.
	ValidationError Kind = "validation_error"
	// TransientIO indicates a momentary Evidence/Snapshot store failure that
	// was retried locally and still failed.
	TransientIO Kind = "transient_io"
	// RestoreFailed indicates a registered RestoreHandler returned an error
	// or timed out.
	RestoreFailed Kind = "restore_failed"
	// VerificationTimeout indicates the Verification Coordinator's soft
	// deadline was exceeded.
	VerificationTimeout Kind = "verification_timeout"
	// SubscriberOverflow indicates an event was dropped for a slow
	// subscriber; it never affects the publisher.
	SubscriberOverflow Kind = "subscriber_overflow"
	// Shutdown indicates the call was rejected because the core is draining
	// or has shut down.
	Shutdown Kind = "shutting_down"
)

// Error is a structured core error. Error chains are built with Wrap so that
// errors.Is/errors.As work across the API boundary, mirroring the teacher's
// toolerrors.ToolError cause-chain shape.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// New constructs an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an Error of the given kind that wraps cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped cause, enabling errors.Is/errors.As traversal.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is reports whether target is an *Error with the same Kind, so callers can
// write errors.Is(err, aerrors.New(aerrors.NotFound, "")) or, more commonly,
// use the package-level Is(err, kind) helper below.
func (e *Error) Is(target error) bool {
	var o *Error
	if !errors.As(target, &o) {
		return false
	}
	return e.Kind == o.Kind
}

// KindOf extracts the Kind of err if it is (or wraps) an *Error, and reports
// whether extraction succeeded.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Is reports whether err is (or wraps) an *Error of the given kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
