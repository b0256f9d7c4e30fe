package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/chainexec/internal/data"
	"github.com/roach88/chainexec/internal/geom"
)

func ctx() context.Context { return context.Background() }

type message struct {
	Text    string
	Failure bool
}

type recordingOutput struct {
	messages []message
}

func (o *recordingOutput) SendMessage(text string, failure bool) {
	o.messages = append(o.messages, message{Text: text, Failure: failure})
}

func (o *recordingOutput) failures() []string {
	var out []string
	for _, m := range o.messages {
		if m.Failure {
			out = append(out, m.Text)
		}
	}
	return out
}

func (o *recordingOutput) successes() []string {
	var out []string
	for _, m := range o.messages {
		if !m.Failure {
			out = append(out, m.Text)
		}
	}
	return out
}

func newTestSource() (Source, *recordingOutput) {
	out := &recordingOutput{}
	return NewSource("Server", out), out
}

type fakeEntity struct {
	uuid    string
	name    string
	pos     geom.Vec3
	eye     float64
	rot     geom.Rotation
	removed bool
}

func (e *fakeEntity) UUID() string            { return e.uuid }
func (e *fakeEntity) Name() string            { return e.name }
func (e *fakeEntity) Type() string            { return "minecraft:cow" }
func (e *fakeEntity) Position() geom.Vec3     { return e.pos }
func (e *fakeEntity) EyeHeight() float64      { return e.eye }
func (e *fakeEntity) Rotation() geom.Rotation { return e.rot }
func (e *fakeEntity) Dimension() string       { return DefaultDimension }
func (e *fakeEntity) Removed() bool           { return e.removed }

func cow(name string, x, y, z float64) *fakeEntity {
	return &fakeEntity{uuid: "uuid-" + name, name: name, pos: geom.Vec3{X: x, Y: y, Z: z}, eye: 1.5}
}

// asEntities forks one source per entity, like "as".
type asEntities []Entity

func (a asEntities) Expand(src Source) ([]Source, error) {
	out := make([]Source, 0, len(a))
	for _, e := range a {
		out = append(out, src.WithEntity(e))
	}
	return out, nil
}

func (asEntities) Forks() bool { return true }

// copies forks n unnamed branches.
type copies int

func (n copies) Expand(src Source) ([]Source, error) {
	out := make([]Source, 0, int(n))
	for i := 0; i < int(n); i++ {
		out = append(out, src.WithName(fmt.Sprintf("branch-%d", i)))
	}
	return out, nil
}

func (copies) Forks() bool { return true }

// atSelf moves the source to its own entity, like "at @s".
type atSelf struct{}

func (atSelf) Expand(src Source) ([]Source, error) {
	if src.Entity() == nil {
		return nil, NewEntityNotFound()
	}
	return []Source{src.At(src.Entity())}, nil
}

func (atSelf) Forks() bool { return false }

// raise offsets the position vertically, like "positioned ~ ~dy ~".
type raise float64

func (r raise) Expand(src Source) ([]Source, error) {
	return []Source{src.WithPosition(src.Position().Add(geom.Vec3{Y: float64(r)}))}, nil
}

func (raise) Forks() bool { return false }

// journal records instruction runs in order.
type journal struct {
	entries []string
}

func (j *journal) op(label string, result int) Instruction {
	return InstructionFunc(func(Source) (int, error) {
		j.entries = append(j.entries, label)
		return result, nil
	})
}

func constant(n int) Instruction {
	return InstructionFunc(func(Source) (int, error) { return n, nil })
}

func failing(msg string) Instruction {
	return InstructionFunc(func(Source) (int, error) { return 0, NewCommandFailed("%s", msg) })
}

func say(text string) Instruction {
	return InstructionFunc(func(src Source) (int, error) {
		src.SendSuccess(text)
		return 1, nil
	})
}

func outcome(o Outcome) Condition {
	return ConditionFunc(func(Source) (Outcome, error) { return o, nil })
}

func run(input string, ins Instruction, steps ...Step) Chain {
	return Chain{Input: input, Steps: steps, Terminal: Run{Instruction: ins}}
}

func line(input string, t Terminal, steps ...Step) Chain {
	return Chain{Input: input, Steps: steps, Terminal: t}
}

func fn(name string, lines ...Chain) *Function {
	return &Function{Name: name, Lines: lines}
}

type resolver map[string][]Program

func (r resolver) ResolveFunctions(name string) ([]Program, error) {
	return r[name], nil
}

func functions(fns ...*Function) resolver {
	r := resolver{}
	for _, f := range fns {
		r[f.Name] = []Program{f}
	}
	return r
}

// brokenProgram never instantiates.
type brokenProgram string

func (b brokenProgram) ID() string { return string(b) }

func (b brokenProgram) Instantiate(data.Compound) (*Function, error) {
	return nil, errors.New("missing argument x")
}

// recordingStore converts results the way store sinks do and keeps every
// written value.
type recordingStore struct {
	name   string
	binds  int
	writes []int
	order  *[]string
}

func (r *recordingStore) Bind(_ Source, raw bool) (Sink, error) {
	r.binds++
	return SinkFunc(func(success bool, result int) {
		v := result
		if !raw {
			v = 0
			if success {
				v = 1
			}
		}
		r.writes = append(r.writes, v)
		if r.order != nil {
			*r.order = append(*r.order, r.name)
		}
	}), nil
}

type recordingListener struct {
	started  []Invocation
	finished []Invocation
	results  []Result
	errs     []error
}

func (l *recordingListener) InvocationStarted(_ context.Context, inv Invocation) {
	l.started = append(l.started, inv)
}

func (l *recordingListener) InvocationFinished(_ context.Context, inv Invocation, res Result, err error) {
	l.finished = append(l.finished, inv)
	l.results = append(l.results, res)
	l.errs = append(l.errs, err)
}

type recordingTracer struct {
	events []string
}

func (t *recordingTracer) OnCommand(depth int, command string) {
	t.events = append(t.events, fmt.Sprintf("command %d %s", depth, command))
}

func (t *recordingTracer) OnReturn(depth int, command string, result int) {
	t.events = append(t.events, fmt.Sprintf("return %d %s = %d", depth, command, result))
}

func (t *recordingTracer) OnCall(depth int, function string, size int) {
	t.events = append(t.events, fmt.Sprintf("call %d %s size=%d", depth, function, size))
}

func (t *recordingTracer) OnError(msg string) {
	t.events = append(t.events, "error "+msg)
}

func (t *recordingTracer) OnMessage(text string) {
	t.events = append(t.events, "message "+text)
}

func (t *recordingTracer) errors() []string {
	var out []string
	for _, e := range t.events {
		if len(e) > 6 && e[:6] == "error " {
			out = append(out, e[6:])
		}
	}
	return out
}

func observe(t *recordingTracer) Option {
	return WithObserver(func(context.Context, Invocation) Tracer { return t })
}

type traceFile struct {
	bytes.Buffer
	closed bool
}

func (f *traceFile) Close() error {
	f.closed = true
	return nil
}

// memoryTraces keeps traces in memory by file name.
type memoryTraces map[string]*traceFile

func (m memoryTraces) OpenTrace(name string) (io.WriteCloser, error) {
	f := &traceFile{}
	m[name] = f
	return f, nil
}
