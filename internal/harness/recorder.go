package harness

import (
	"context"

	"github.com/roach88/chainexec/internal/engine"
)

// observe is the engine observer: every invocation gets a recorder that
// appends to the result's trace and renders into the golden text.
func (h *Harness) observe(_ context.Context, inv engine.Invocation) engine.Tracer {
	h.result.lastInv, h.result.hasInv = inv, true
	return &recorder{h: h, text: engine.NewTextTracer(&h.rendered)}
}

func (h *Harness) lastInvocation() (engine.Invocation, bool) {
	return h.result.lastInv, h.result.hasInv
}

type recorder struct {
	h    *Harness
	text *engine.TextTracer
}

func (r *recorder) add(ev TraceEvent) {
	ev.Step = r.h.step
	r.h.result.Trace = append(r.h.result.Trace, ev)
}

func (r *recorder) OnCommand(depth int, command string) {
	r.add(TraceEvent{Type: EventCommand, Depth: depth, Text: command})
	r.text.OnCommand(depth, command)
}

func (r *recorder) OnReturn(depth int, command string, result int) {
	r.add(TraceEvent{Type: EventReturn, Depth: depth, Text: command, Value: result})
	r.text.OnReturn(depth, command, result)
}

func (r *recorder) OnCall(depth int, function string, size int) {
	r.add(TraceEvent{Type: EventCall, Depth: depth, Text: function, Value: size})
	r.text.OnCall(depth, function, size)
}

func (r *recorder) OnError(message string) {
	r.add(TraceEvent{Type: EventError, Text: message})
	r.text.OnError(message)
}

func (r *recorder) OnMessage(text string) {
	r.text.OnMessage(text)
}

// Close flushes the rendering; the engine calls it when the invocation
// ends.
func (r *recorder) Close() error {
	return r.text.Close()
}
