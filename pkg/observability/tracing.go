package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name for breeze spans.
const TracerName = "github.com/otherjamesbrown/breeze-cli"

// Span attribute keys.
const (
	AttrOperation = "breeze.operation"
	AttrMeetingID = "breeze.meeting_id"
	AttrStatus    = "breeze.status"
	AttrBackend   = "breeze.storage_backend"
	AttrCount     = "breeze.meeting_count"
)

// Tracer starts spans for store operations. Without a configured
// TracerProvider the global no-op provider is used.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a Tracer from the global TracerProvider.
func NewTracer() *Tracer {
	return &Tracer{tracer: otel.Tracer(TracerName)}
}

// NewTracerWithProvider creates a Tracer from tp.
func NewTracerWithProvider(tp trace.TracerProvider) *Tracer {
	return &Tracer{tracer: tp.Tracer(TracerName)}
}

// StartOperation starts a span named "meeting.<operation>".
func (t *Tracer) StartOperation(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if t == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	attrs = append(attrs, attribute.String(AttrOperation, operation))
	return t.tracer.Start(ctx, "meeting."+operation, trace.WithAttributes(attrs...))
}

// RecordError marks span as failed.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// TraceID returns the trace id from ctx, or "" when there is no sampled span.
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}
