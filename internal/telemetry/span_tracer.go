package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/chainexec/internal/engine"
)

const instrumentationName = "github.com/roach88/chainexec/internal/telemetry"

// Span event names.
const (
	EventCommand = "command"
	EventReturn  = "return"
	EventCall    = "call"
	EventError   = "error"
	EventMessage = "message"
)

// SpanTracer records the events of one invocation on an OpenTelemetry span.
// Close ends the span; the engine calls it when the invocation finishes.
type SpanTracer struct {
	span   trace.Span
	errors int
}

var _ engine.Tracer = (*SpanTracer)(nil)

// NewSpanTracer starts the invocation span from tp.
func NewSpanTracer(ctx context.Context, tp trace.TracerProvider, inv engine.Invocation) *SpanTracer {
	_, span := tp.Tracer(instrumentationName).Start(ctx, "chainexec.invocation",
		trace.WithAttributes(
			attribute.String("chainexec.invocation.id", inv.ID),
			attribute.Int64("chainexec.invocation.seq", inv.Seq),
			attribute.String("chainexec.invocation.input", inv.Input),
		),
	)
	return &SpanTracer{span: span}
}

// Observer returns an engine observer that gives every invocation its own
// span. A nil tp uses the global provider.
func Observer(tp trace.TracerProvider) engine.ObserverFactory {
	return func(ctx context.Context, inv engine.Invocation) engine.Tracer {
		p := tp
		if p == nil {
			p = otel.GetTracerProvider()
		}
		return NewSpanTracer(ctx, p, inv)
	}
}

func (t *SpanTracer) OnCommand(depth int, command string) {
	t.span.AddEvent(EventCommand, trace.WithAttributes(
		attribute.Int("depth", depth),
		attribute.String("command", command),
	))
}

func (t *SpanTracer) OnReturn(depth int, command string, result int) {
	t.span.AddEvent(EventReturn, trace.WithAttributes(
		attribute.Int("depth", depth),
		attribute.String("command", command),
		attribute.Int("result", result),
	))
}

func (t *SpanTracer) OnCall(depth int, function string, size int) {
	t.span.AddEvent(EventCall, trace.WithAttributes(
		attribute.Int("depth", depth),
		attribute.String("function", function),
		attribute.Int("size", size),
	))
}

// OnError adds an error event. The span status is set to Error with the
// first message; forked failures report here too.
func (t *SpanTracer) OnError(message string) {
	t.span.AddEvent(EventError, trace.WithAttributes(
		attribute.String("message", message),
	))
	if t.errors == 0 {
		t.span.SetStatus(codes.Error, message)
	}
	t.errors++
}

func (t *SpanTracer) OnMessage(text string) {
	t.span.AddEvent(EventMessage, trace.WithAttributes(
		attribute.String("text", text),
	))
}

// Close ends the span.
func (t *SpanTracer) Close() error {
	t.span.SetAttributes(attribute.Int("chainexec.errors", t.errors))
	t.span.End()
	return nil
}
