package engine

import (
	"fmt"

	"github.com/roach88/chainexec/internal/data"
)

// Task is a unit of work owned by a Queue and consumed exactly once.
// Implemented by RunInstruction, CallFunction, Continuation, Fallthrough
// and IsolatedCall.
type Task interface {
	execute(ctl *Control) error
}

// RunInstruction executes a leaf instruction for one source and delivers
// the outcome to the source's callback.
type RunInstruction struct {
	Instruction Instruction
	Source      Source
	Command     string
	Mods        ChainModifiers
}

func (t RunInstruction) execute(ctl *Control) error {
	result, err := t.Instruction.Execute(t.Source)
	if err != nil {
		t.Source.Callback().OnFailure()
		if ctl.frame.depth == 0 {
			ctl.q.record(false, 0)
		}
		if IsFatal(err) {
			return err
		}
		ctl.reportError(t.Source, err, t.Mods.Forked())
		return nil
	}
	t.Source.Callback().OnSuccess(result)
	if ctl.frame.depth == 0 {
		ctl.q.record(true, result)
	}
	ctl.q.events().OnReturn(ctl.frame.depth, t.Command, result)
	return nil
}

// CallFunction begins a new frame running the lines of Function with
// Source. The frame delivers returned values to Callback. With
// ReturnsToCaller a return inside the function also ends the caller's
// frame.
type CallFunction struct {
	Function        *Function
	Source          Source
	Callback        Callback
	ReturnsToCaller bool
}

func (t CallFunction) execute(ctl *Control) error {
	q := ctl.q
	depth := ctl.frame.depth
	q.events().OnCall(depth, t.Function.ID(), len(t.Function.Lines))

	newDepth := depth + 1
	control := q.controlForDepth(newDepth)
	if t.ReturnsToCaller {
		control = ctl.frame.control
	}
	frame := &Frame{depth: newDepth, returns: t.Callback, control: control}

	for _, line := range t.Function.Lines {
		ctl.queueAt(Continuation{
			Chain:    line,
			Sources:  []Source{t.Source},
			Original: t.Source,
			Announce: true,
		}, frame, ctl.region)
	}
	return nil
}

// Fallthrough fails the current frame and drops its remaining tasks. It is
// queued after return-mode calls so a caller whose callees never returned
// still ends.
type Fallthrough struct{}

func (Fallthrough) execute(ctl *Control) error {
	ctl.frame.ReturnFailure()
	ctl.frame.Discard()
	return nil
}

// IsolatedCall runs Body in a fresh frame whose returned values go to
// Callback. A fatal error inside only unwinds the tasks Body queued;
// Source receives the failure message.
type IsolatedCall struct {
	Source   Source
	Callback Callback
	Body     func(ctl *Control) error
}

func (t IsolatedCall) execute(ctl *Control) error {
	q := ctl.q
	newDepth := ctl.frame.depth + 1
	inner := &Control{
		q:      q,
		frame:  &Frame{depth: newDepth, returns: t.Callback, control: q.controlForDepth(newDepth)},
		region: ctl.region.child(t.Source),
	}
	if err := t.Body(inner); err != nil {
		q.unwind(inner.region, err)
	}
	return nil
}

// notify runs fn once its turn comes, after everything queued before it
// has drained.
type notify struct {
	fn func()
}

func (t notify) execute(*Control) error {
	t.fn()
	return nil
}

// tracedCall is a CallFunction that first writes the function id as a
// header line into the trace.
type tracedCall struct {
	call   CallFunction
	tracer *TextTracer
}

func (t tracedCall) execute(ctl *Control) error {
	t.tracer.WriteLine(t.call.Function.ID())
	return t.call.execute(ctl)
}

// callTask starts a top-level function invocation.
type callTask struct {
	programs []Program
	args     data.Compound
	source   Source
}

func (t callTask) execute(ctl *Control) error {
	return ctl.q.queueFunctions(ctl, t.programs, t.args, t.source, t.source, DefaultModifiers)
}

// Frame is one active function invocation's return channel.
type Frame struct {
	depth   int
	returns Callback
	control func()
}

// Depth is 0 for the top-level chain and grows by one per call.
func (f *Frame) Depth() int { return f.depth }

// Returns is the consumer of values returned from this frame.
func (f *Frame) Returns() Callback { return f.returns }

func (f *Frame) ReturnSuccess(result int) { f.returns.OnSuccess(result) }

func (f *Frame) ReturnFailure() { f.returns.OnFailure() }

// Discard drops every queued task of this frame and of deeper frames.
func (f *Frame) Discard() { f.control() }

func (f *Frame) String() string {
	return fmt.Sprintf("frame(depth=%d)", f.depth)
}
