package engine

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/roach88/chainexec/internal/data"
)

// Program is a named function as loaded, possibly taking macro arguments.
type Program interface {
	ID() string
	// Instantiate binds arguments and returns the runnable lines. args is
	// nil when the call passed none.
	Instantiate(args data.Compound) (*Function, error)
}

// Function is an instantiated program: its lines, ready to run.
type Function struct {
	Name  string
	Lines []Chain
}

func (f *Function) ID() string { return f.Name }

// Instantiate returns f itself; plain functions ignore arguments.
func (f *Function) Instantiate(data.Compound) (*Function, error) { return f, nil }

// FunctionResolver looks up the programs a function name or "#tag" refers
// to, in tag order.
type FunctionResolver interface {
	ResolveFunctions(name string) ([]Program, error)
}

// TraceOpener creates the output of a debug trace.
type TraceOpener interface {
	OpenTrace(name string) (io.WriteCloser, error)
}

// DirTraceOpener writes traces as files into Dir, creating it on demand.
type DirTraceOpener struct {
	Dir string
}

func (d DirTraceOpener) OpenTrace(name string) (io.WriteCloser, error) {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create trace dir: %w", err)
	}
	return os.Create(filepath.Join(d.Dir, name))
}

func arguments(src ArgumentSource, s Source) (data.Compound, error) {
	if src == nil {
		return nil, nil
	}
	return src.Arguments(s)
}

// callFunctions runs the Functions terminal for one source.
func (q *Queue) callFunctions(ctl *Control, t Functions, src Source, mods ChainModifiers) error {
	programs, err := q.engine.resolve(t.Name)
	if err != nil {
		ctl.reportError(src, err, mods.Forked())
		return nil
	}
	args, err := arguments(t.Args, src)
	if err != nil {
		ctl.reportError(src, err, mods.Forked())
		return nil
	}
	return q.queueFunctions(ctl, programs, args, src, src, mods)
}

// queueFunctions schedules a call of every program.
//
// In return mode the callees' results go straight into the caller's own
// frame and a Fallthrough follows them. Otherwise a single program reports
// to original's callback; several programs report separately when there is
// no callback, and are summed into one report when there is. The sum only
// fires if at least one program reported.
//
// The depth limit is checked before anything is queued.
func (q *Queue) queueFunctions(ctl *Control, programs []Program, args data.Compound, original, exec Source, mods ChainModifiers) error {
	if len(programs) == 0 {
		return nil
	}
	newDepth := ctl.frame.depth + 1
	if limit := q.engine.limits.MaxFunctionDepth; limit > 0 && newDepth > limit {
		return NewRecursionLimitExceeded(programs[0].ID(), limit, newDepth)
	}

	// A program that cannot be instantiated is skipped. The failure only
	// becomes the invocation's error when no program is left to run.
	functions := make([]*Function, 0, len(programs))
	var lastErr error
	for _, p := range programs {
		fn, err := p.Instantiate(args)
		if err != nil {
			lastErr = NewFunctionInstantiationFailed(p.ID(), err)
			ctl.reportRecovered(original, lastErr, mods.Forked())
			continue
		}
		functions = append(functions, fn)
	}
	if len(functions) == 0 {
		if !mods.Forked() {
			ctl.fail(asCommandError(lastErr))
		}
		return nil
	}

	callSource := exec.ClearCallback()

	if mods.IsReturn() {
		returns := original.Callback().Then(ctl.frame.Returns())
		for _, fn := range functions {
			ctl.QueueNext(CallFunction{Function: fn, Source: callSource, Callback: returns, ReturnsToCaller: true})
		}
		ctl.QueueNext(Fallthrough{})
		return nil
	}

	callback := original.Callback()
	switch {
	case len(programs) == 1:
		for _, fn := range functions {
			cb := ctl.topLevel(decorate(original, fn.ID(), callback))
			ctl.QueueNext(CallFunction{Function: fn, Source: callSource, Callback: cb})
		}
	case callback.Empty():
		for _, fn := range functions {
			cb := ctl.topLevel(decorate(original, fn.ID(), Callback{}))
			ctl.QueueNext(CallFunction{Function: fn, Source: callSource, Callback: cb})
		}
	default:
		acc := &accumulator{}
		for _, fn := range functions {
			ctl.QueueNext(CallFunction{Function: fn, Source: callSource, Callback: decorate(original, fn.ID(), NewCallback(acc))})
		}
		report := ctl.topLevel(callback)
		ctl.QueueNext(notify{fn: func() {
			if acc.any {
				report.OnSuccess(acc.sum)
			}
		}})
	}
	return nil
}

// accumulator sums the results of every program that reported.
type accumulator struct {
	any bool
	sum int
}

func (a *accumulator) OnResult(_ bool, result int) {
	a.any = true
	a.sum += result
}

func (a *accumulator) String() string { return "sum" }

// functionResultMessage tells the caller what a function returned.
type functionResultMessage struct {
	src Source
	id  string
}

func (m functionResultMessage) OnResult(_ bool, result int) {
	m.src.SendSuccess(fmt.Sprintf("Function %s returned %d", m.id, result))
}

func (m functionResultMessage) String() string { return "message(" + m.id + ")" }

func decorate(src Source, id string, cb Callback) Callback {
	if src.Silent() {
		return cb
	}
	return cb.Attach(functionResultMessage{src: src, id: id})
}

// traceFunctions runs the TraceFunctions terminal: it installs a text
// tracer for the rest of the invocation and calls the functions with
// their feedback routed into it.
func (q *Queue) traceFunctions(ctl *Control, t TraceFunctions, src Source, mods ChainModifiers) error {
	if mods.IsReturn() {
		return NewReturnRunNotAllowed()
	}
	if q.tracer != nil {
		return NewRecursiveTraceAlreadyActive()
	}

	programs, err := q.engine.resolve(t.Name)
	if err != nil {
		ctl.reportError(src, err, mods.Forked())
		return nil
	}
	if limit := q.engine.limits.MaxFunctionDepth; limit > 0 && ctl.frame.depth+1 > limit {
		return NewRecursionLimitExceeded(programs[0].ID(), limit, ctl.frame.depth+1)
	}

	name := "debug-trace-" + q.engine.now().Format("2006-01-02_15.04.05") + ".txt"
	w, err := q.engine.traces.OpenTrace(name)
	if err != nil {
		q.logger.Warn("tracing failed", "file", name, "error", err)
		src.SendFailure("Failed to trace function")
		return nil
	}
	tracer := NewTextTracer(w)
	q.tracer = tracer
	q.closers = append(q.closers, tracer)

	fnSource := src.WithOutput(tracerOutput{tracer: tracer}).WithMaximumPermission(2).ClearCallback()
	commands := 0
	for _, p := range programs {
		fn, err := p.Instantiate(nil)
		if err != nil {
			src.SendFailure(NewFunctionInstantiationFailed(p.ID(), err).Error())
			continue
		}
		ctl.QueueNext(tracedCall{
			call:   CallFunction{Function: fn, Source: fnSource},
			tracer: tracer,
		})
		commands += len(fn.Lines)
	}

	ctl.QueueNext(notify{fn: func() {
		if len(programs) == 1 {
			src.SendSuccess(fmt.Sprintf("Traced %d command(s) from function '%s' to output file %s",
				commands, programs[0].ID(), name))
			return
		}
		src.SendSuccess(fmt.Sprintf("Traced %d command(s) from %d functions to output file %s",
			commands, len(programs), name))
	}})
	return nil
}
