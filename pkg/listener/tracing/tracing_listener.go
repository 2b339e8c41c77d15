package tracing

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tigerroll/docschema/pkg/migration"
)

// InstrumentationName is the tracer name spans are recorded under.
const InstrumentationName = "github.com/tigerroll/docschema/pkg/migration"

// TracingListener wraps each step execution in a span and records sub-steps as span events.
type TracingListener struct {
	tracer trace.Tracer
	mu     sync.Mutex
	// Execution ID -> span
	spans map[string]trace.Span
}

func NewTracingListener(tp trace.TracerProvider) *TracingListener {
	return &TracingListener{
		tracer: tp.Tracer(InstrumentationName),
		spans:  make(map[string]trace.Span),
	}
}

func (l *TracingListener) BeforeMigrate(ctx context.Context, execution *migration.Execution) {
	_, span := l.tracer.Start(ctx, "migration."+execution.Direction.String(),
		trace.WithTimestamp(execution.StartTime),
		trace.WithAttributes(
			attribute.String("migration.step", execution.StepID),
			attribute.String("migration.direction", execution.Direction.String()),
			attribute.String("migration.execution_id", execution.ID),
		))
	l.mu.Lock()
	l.spans[execution.ID] = span
	l.mu.Unlock()
}

func (l *TracingListener) OnSubStep(ctx context.Context, execution *migration.Execution, result migration.SubStepResult) {
	span, ok := l.span(execution.ID)
	if !ok {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("db.mongodb.collection", result.Collection),
		attribute.String("migration.outcome", string(result.Outcome)),
		attribute.Int64("migration.duration_ms", result.Duration.Milliseconds()),
	}
	if result.Index != "" {
		attrs = append(attrs, attribute.String("db.mongodb.index", result.Index))
	}
	if result.Err != nil {
		attrs = append(attrs, attribute.String("error.message", result.Err.Error()))
	}
	span.AddEvent(string(result.Action), trace.WithAttributes(attrs...))
}

func (l *TracingListener) AfterMigrate(ctx context.Context, execution *migration.Execution) {
	l.mu.Lock()
	span, ok := l.spans[execution.ID]
	delete(l.spans, execution.ID)
	l.mu.Unlock()
	if !ok {
		return
	}

	span.SetAttributes(
		attribute.String("migration.status", execution.Status.String()),
		attribute.Int("migration.warnings", execution.Count(migration.OutcomeWarned)),
	)
	switch execution.Status {
	case migration.StatusFailed:
		span.RecordError(execution.Err)
		span.SetStatus(codes.Error, execution.Err.Error())
	default:
		span.SetStatus(codes.Ok, "")
	}

	var opts []trace.SpanEndOption
	if execution.EndTime != nil {
		opts = append(opts, trace.WithTimestamp(*execution.EndTime))
	}
	span.End(opts...)
}

func (l *TracingListener) span(id string) (trace.Span, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	span, ok := l.spans[id]
	return span, ok
}

var _ migration.Listener = (*TracingListener)(nil)
