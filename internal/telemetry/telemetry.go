// Package telemetry provides the logging, tracing, and metrics interfaces
// shared by every ARES component. Implementations are swappable: the zap/otel
// adapters in this package are the defaults, but callers may supply their own.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Logger captures structured logging used throughout the core. The interface
// is intentionally small so tests can supply lightweight stubs without
// pulling in a logging backend.
type Logger interface {
	Debug(ctx context.Context, msg string, keyvals ...any)
	Info(ctx context.Context, msg string, keyvals ...any)
	Warn(ctx context.Context, msg string, keyvals ...any)
	Error(ctx context.Context, msg string, keyvals ...any)
}

// Metrics exposes counter/timer/gauge helpers for instrumenting verification,
// scoring, and enforcement.
type Metrics interface {
	IncCounter(name string, value float64, tags ...string)
	RecordTimer(name string, duration time.Duration, tags ...string)
	RecordGauge(name string, value float64, tags ...string)
}

// Tracer abstracts span creation so core code stays agnostic of the
// underlying OpenTelemetry provider.
type Tracer interface {
	Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span)
}

// Span represents an in-flight tracing span.
type Span interface {
	End(opts ...trace.SpanEndOption)
	AddEvent(name string, attrs ...any)
	SetStatus(code codes.Code, description string)
	RecordError(err error, opts ...trace.EventOption)
}

// Set bundles the three telemetry surfaces a component needs. Passing a zero
// Set is invalid; use NoopSet() for tests and contexts that do not need
// observability.
type Set struct {
	Log     Logger
	Metrics Metrics
	Tracer  Tracer
}

// NoopSet returns a Set whose members discard everything. Useful in unit
// tests and for callers that have not wired a telemetry backend yet.
func NoopSet() Set {
	return Set{Log: NoopLogger{}, Metrics: NoopMetrics{}, Tracer: NoopTracer{}}
}
