package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/roach88/chainexec/internal/engine"
	"github.com/roach88/chainexec/internal/telemetry"
)

func TestSetup_NoopWhenEndpointEmpty(t *testing.T) {
	shutdown, err := telemetry.Setup(context.Background(), "", "test-service")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetup_NoopShutdownIgnoresCancelledContext(t *testing.T) {
	shutdown, err := telemetry.Setup(context.Background(), "", "")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, shutdown(ctx))
}

func TestSetup_CreatesProviderWhenEndpointSet(t *testing.T) {
	// Non-routable address so no actual export happens.
	shutdown, err := telemetry.Setup(context.Background(), "http://192.0.2.1:4318", "")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func recordingEngine(t *testing.T) (*engine.Engine, *tracetest.SpanRecorder) {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	eng := engine.New(
		engine.WithObserver(telemetry.Observer(tp)),
		engine.WithIDGenerator(engine.NewFixedGenerator("inv-1", "inv-2")),
	)
	return eng, rec
}

func eventNames(span sdktrace.ReadOnlySpan) []string {
	var names []string
	for _, e := range span.Events() {
		names = append(names, e.Name)
	}
	return names
}

func attr(attrs []attribute.KeyValue, key string) attribute.Value {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value
		}
	}
	return attribute.Value{}
}

func TestObserver_OneSpanPerInvocation(t *testing.T) {
	eng, rec := recordingEngine(t)
	src := engine.NewSource("Server", nil)
	say := engine.Chain{
		Input: "say hi",
		Terminal: engine.Run{Instruction: engine.InstructionFunc(func(engine.Source) (int, error) {
			return 1, nil
		})},
	}

	_, err := eng.Execute(context.Background(), src, say)
	require.NoError(t, err)
	_, err = eng.Execute(context.Background(), src, say)
	require.NoError(t, err)

	spans := rec.Ended()
	require.Len(t, spans, 2)
	first := spans[0]
	assert.Equal(t, "chainexec.invocation", first.Name())
	assert.Equal(t, "inv-1", attr(first.Attributes(), "chainexec.invocation.id").AsString())
	assert.Equal(t, "say hi", attr(first.Attributes(), "chainexec.invocation.input").AsString())
	assert.Equal(t, int64(0), attr(first.Attributes(), "chainexec.errors").AsInt64())
	assert.Equal(t, []string{telemetry.EventCommand, telemetry.EventReturn}, eventNames(first))
	assert.Equal(t, int64(1), attr(first.Events()[1].Attributes, "result").AsInt64())
	assert.Equal(t, codes.Unset, first.Status().Code)

	assert.Equal(t, "inv-2", attr(spans[1].Attributes(), "chainexec.invocation.id").AsString())
}

func TestObserver_FailureSetsStatus(t *testing.T) {
	eng, rec := recordingEngine(t)
	test := engine.Chain{
		Input: "execute if entity @e[type=pig]",
		Terminal: engine.Test{
			Condition: engine.ConditionFunc(func(engine.Source) (engine.Outcome, error) {
				return engine.CountOutcome(0), nil
			}),
			Expect: true,
		},
	}

	_, err := eng.Execute(context.Background(), engine.NewSource("Server", nil), test)
	require.Error(t, err)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "Test failed", spans[0].Status().Description)
	assert.Contains(t, eventNames(spans[0]), telemetry.EventError)
	assert.Equal(t, int64(1), attr(spans[0].Attributes(), "chainexec.errors").AsInt64())
}

func TestSpanTracer_Events(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	defer tp.Shutdown(context.Background())

	tr := telemetry.NewSpanTracer(context.Background(), tp, engine.Invocation{ID: "x", Seq: 3, Input: "function demo:main"})
	tr.OnCall(0, "demo:main", 2)
	tr.OnCommand(1, "tellraw @a hi")
	tr.OnMessage("hi")
	tr.OnReturn(1, "tellraw @a hi", 1)
	require.Empty(t, rec.Ended())
	require.NoError(t, tr.Close())

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, []string{
		telemetry.EventCall, telemetry.EventCommand, telemetry.EventMessage, telemetry.EventReturn,
	}, eventNames(spans[0]))
	assert.Equal(t, int64(3), attr(spans[0].Attributes(), "chainexec.invocation.seq").AsInt64())
	assert.Equal(t, "demo:main", attr(spans[0].Events()[0].Attributes, "function").AsString())
	assert.Equal(t, "hi", attr(spans[0].Events()[2].Attributes, "text").AsString())
}
