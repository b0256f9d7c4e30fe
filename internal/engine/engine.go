package engine

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/chainexec/internal/data"
)

// Default limits. They match the game's defaults for the corresponding
// rules.
const (
	DefaultMaxFunctionDepth      = 512
	DefaultMaxCommandChainLength = 65536
	DefaultMaxForkCount          = 65536
)

// Limits bound a single invocation. Zero disables a limit.
type Limits struct {
	// MaxFunctionDepth is the deepest allowed function frame.
	MaxFunctionDepth int
	// MaxCommandChainLength is the number of tasks one invocation may run.
	MaxCommandChainLength int
	// MaxForkCount is the number of contexts one fork stage may produce.
	MaxForkCount int
}

// DefaultLimits returns the default limits.
func DefaultLimits() Limits {
	return Limits{
		MaxFunctionDepth:      DefaultMaxFunctionDepth,
		MaxCommandChainLength: DefaultMaxCommandChainLength,
		MaxForkCount:          DefaultMaxForkCount,
	}
}

// Invocation identifies one top-level execution.
type Invocation struct {
	ID    string
	Seq   int64
	Input string
}

// Result is what the top-level chain reported.
type Result struct {
	// Reported is false when nothing reached the top-level callback, for
	// example when a fork matched nothing.
	Reported bool
	Success  bool
	Value    int
	// Tasks is the number of queue entries the invocation executed.
	Tasks int
}

// InvocationListener is told about every invocation. The store uses it to
// keep the invocation log.
type InvocationListener interface {
	InvocationStarted(ctx context.Context, inv Invocation)
	InvocationFinished(ctx context.Context, inv Invocation, res Result, err error)
}

// ObserverFactory creates the tracer that observes one invocation. If the
// tracer is an io.Closer it is closed when the invocation ends.
type ObserverFactory func(ctx context.Context, inv Invocation) Tracer

// Engine executes chains and functions.
//
// An Engine holds no per-invocation state: every Execute or Call builds its
// own Queue, so one Engine may serve several goroutines as long as the
// instructions and stores it drives are themselves safe.
type Engine struct {
	functions FunctionResolver
	limits    Limits
	logger    *slog.Logger
	ids       IDGenerator
	clock     *Clock
	traces    TraceOpener
	observer  ObserverFactory
	listeners []InvocationListener
	now       func() time.Time
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithFunctions sets the resolver for function names and tags.
func WithFunctions(r FunctionResolver) Option {
	return func(e *Engine) {
		e.functions = r
	}
}

// WithLimits replaces all limits.
func WithLimits(l Limits) Option {
	return func(e *Engine) {
		e.limits = l
	}
}

// WithMaxFunctionDepth sets the function recursion ceiling.
//
// Default: 512 (DefaultMaxFunctionDepth)
// Use WithMaxFunctionDepth(3) for testing the recursion guard.
func WithMaxFunctionDepth(n int) Option {
	return func(e *Engine) {
		e.limits.MaxFunctionDepth = n
	}
}

// WithMaxCommandChainLength sets the per-invocation task quota.
func WithMaxCommandChainLength(n int) Option {
	return func(e *Engine) {
		e.limits.MaxCommandChainLength = n
	}
}

// WithMaxForkCount sets the per-stage context limit.
func WithMaxForkCount(n int) Option {
	return func(e *Engine) {
		e.limits.MaxForkCount = n
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithIDGenerator sets the invocation id generator. Default: UUIDv7.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithClock sets the invocation sequence clock, e.g. one resumed from a
// store with NewClockAt.
func WithClock(c *Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithTraceOpener sets where debug traces are written. Default: the
// current directory.
func WithTraceOpener(t TraceOpener) Option {
	return func(e *Engine) {
		e.traces = t
	}
}

// WithObserver installs a tracer factory called for every invocation.
func WithObserver(f ObserverFactory) Option {
	return func(e *Engine) {
		e.observer = f
	}
}

// WithListener adds an invocation listener.
func WithListener(l InvocationListener) Option {
	return func(e *Engine) {
		e.listeners = append(e.listeners, l)
	}
}

// WithNow sets the wall clock used for trace file names.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates an Engine. Options can be passed to configure it.
func New(opts ...Option) *Engine {
	e := &Engine{
		limits: DefaultLimits(),
		logger: slog.Default(),
		ids:    UUIDv7Generator{},
		clock:  NewClock(),
		traces: DirTraceOpener{Dir: "."},
		now:    time.Now,
	}

	// Apply options
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Limits returns the configured limits.
func (e *Engine) Limits() Limits { return e.limits }

// Execute runs one chain as a top-level invocation.
//
// The returned error is the fatal error that stopped the invocation, or
// the error reported by the top-level chain when it was not forked. Errors
// inside functions and forks are reported to src and the tracer but not
// returned. Side effects of tasks that completed before an error stay
// applied.
func (e *Engine) Execute(ctx context.Context, src Source, chain Chain) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	return e.run(ctx, chain.Input, src, Continuation{
		Chain:    chain,
		Sources:  []Source{src},
		Original: src,
		Announce: true,
	})
}

// Call runs the functions name resolves to as a top-level invocation,
// with macro arguments args (may be nil).
func (e *Engine) Call(ctx context.Context, src Source, name string, args data.Compound) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	programs, err := e.resolve(name)
	if err != nil {
		return Result{}, err
	}
	return e.run(ctx, "function "+name, src, callTask{programs: programs, args: args, source: src})
}

func (e *Engine) run(ctx context.Context, input string, src Source, initial Task) (Result, error) {
	inv := Invocation{ID: e.ids.Generate(), Seq: e.clock.Next(), Input: input}
	for _, l := range e.listeners {
		l.InvocationStarted(ctx, inv)
	}
	e.logger.Debug("invocation started", "id", inv.ID, "seq", inv.Seq, "input", input)

	q := newQueue(e, inv, src)
	if e.observer != nil {
		if t := e.observer(ctx, inv); t != nil {
			q.observer = t
			if c, ok := t.(io.Closer); ok {
				q.closers = append(q.closers, c)
			}
		}
	}

	err := q.Run(initial)

	res := q.result
	res.Tasks = q.quota.Current()
	e.logger.Info("invocation finished",
		"id", inv.ID,
		"seq", inv.Seq,
		"tasks", res.Tasks,
		"reported", res.Reported,
		"success", res.Success,
		"value", res.Value,
		"error", err)
	for _, l := range e.listeners {
		l.InvocationFinished(ctx, inv, res, err)
	}
	return res, err
}

func (e *Engine) resolve(name string) ([]Program, error) {
	if e.functions == nil {
		return nil, NewNoMatchingFunctions(name)
	}
	programs, err := e.functions.ResolveFunctions(name)
	if err != nil {
		return nil, err
	}
	if len(programs) == 0 {
		return nil, NewNoMatchingFunctions(name)
	}
	return programs, nil
}
