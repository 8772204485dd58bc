package telemetry

import (
	"context"

	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type (
	// ZapLogger wraps go.uber.org/zap for structured core logging.
	ZapLogger struct {
		base *zap.SugaredLogger
	}

	// OTelMetrics wraps an OpenTelemetry Meter for core instrumentation.
	OTelMetrics struct {
		meter    metric.Meter
		counters map[string]metric.Float64Counter
	}

	// OTelTracer wraps an OpenTelemetry Tracer.
	OTelTracer struct {
		tracer trace.Tracer
	}

	otelSpan struct {
		span trace.Span
	}
)

// NewZapLogger constructs a Logger backed by the given zap logger. Passing nil
// builds a production zap logger.
func NewZapLogger(base *zap.Logger) Logger {
	if base == nil {
		base, _ = zap.NewProduction()
	}
	return ZapLogger{base: base.Sugar()}
}

// NewOTelMetrics constructs a Metrics recorder backed by the global
// MeterProvider under the instrumentation name "github.com/ares-io/ares-core".
func NewOTelMetrics() Metrics {
	return &OTelMetrics{
		meter:    otel.Meter("github.com/ares-io/ares-core"),
		counters: make(map[string]metric.Float64Counter),
	}
}

// NewOTelTracer constructs a Tracer backed by the global TracerProvider.
func NewOTelTracer() Tracer {
	return OTelTracer{tracer: otel.Tracer("github.com/ares-io/ares-core")}
}

// Debug logs at debug level with structured key-values.
func (l ZapLogger) Debug(_ context.Context, msg string, keyvals ...any) { l.base.Debugw(msg, keyvals...) }

// Info logs at info level with structured key-values.
func (l ZapLogger) Info(_ context.Context, msg string, keyvals ...any) { l.base.Infow(msg, keyvals...) }

// Warn logs at warn level with structured key-values.
func (l ZapLogger) Warn(_ context.Context, msg string, keyvals ...any) { l.base.Warnw(msg, keyvals...) }

// Error logs at error level with structured key-values.
func (l ZapLogger) Error(_ context.Context, msg string, keyvals ...any) { l.base.Errorw(msg, keyvals...) }

// IncCounter increments a named counter by value, tagged with alternating
// key/value strings.
func (m *OTelMetrics) IncCounter(name string, value float64, tags ...string) {
	c, ok := m.counters[name]
	if !ok {
		var err error
		c, err = m.meter.Float64Counter(name)
		if err != nil {
			return
		}
		m.counters[name] = c
	}
	c.Add(context.Background(), value, metric.WithAttributes(attrsFromTags(tags)...))
}

// RecordTimer is a no-op placeholder for histogram recording; durations
// passed to it are discarded.
func (m *OTelMetrics) RecordTimer(string, time.Duration, ...string) {}

// RecordGauge is a no-op placeholder; see RecordTimer.
func (m *OTelMetrics) RecordGauge(string, float64, ...string) {}

// Start begins a new span named name.
func (t OTelTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name, opts...)
	return ctx, otelSpan{span: span}
}

func (s otelSpan) End(opts ...trace.SpanEndOption) { s.span.End(opts...) }
func (s otelSpan) AddEvent(name string, _ ...any)  { s.span.AddEvent(name) }
func (s otelSpan) SetStatus(code codes.Code, description string) {
	s.span.SetStatus(code, description)
}
func (s otelSpan) RecordError(err error, opts ...trace.EventOption) { s.span.RecordError(err, opts...) }

// attrsFromTags converts alternating key/value strings into OTel attributes.
// A trailing unpaired tag is dropped.
func attrsFromTags(tags []string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(tags)/2)
	for i := 0; i+1 < len(tags); i += 2 {
		attrs = append(attrs, attribute.String(tags[i], tags[i+1]))
	}
	return attrs
}
