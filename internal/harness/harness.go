package harness

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/chainexec/internal/data"
	"github.com/roach88/chainexec/internal/datapack"
	"github.com/roach88/chainexec/internal/engine"
	"github.com/roach88/chainexec/internal/sink"
	"github.com/roach88/chainexec/internal/store"
	"github.com/roach88/chainexec/internal/testutil"
	"github.com/roach88/chainexec/internal/world"
)

// traceEpoch is the wall time debug traces are stamped with.
var traceEpoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// Harness holds everything one scenario runs against.
type Harness struct {
	world    *world.World
	compiler *datapack.Compiler
	engine   *engine.Engine
	store    *store.Store
	traces   *testutil.Traces
	logger   *slog.Logger

	result   *Result
	rendered bytes.Buffer
	step     int
}

// Run executes a scenario with a background context.
func Run(s *Scenario) (*Result, error) {
	return RunContext(context.Background(), s)
}

// RunContext executes a scenario and returns the result.
//
// Each scenario runs in a fresh world, and with Persist in a fresh
// in-memory database. Invocation ids, entity UUIDs, random selection and
// trace timestamps are deterministic, so identical scenarios produce
// identical results.
//
// The returned error reports a scenario that cannot run at all: a
// datapack that does not build or a step that does not compile. Failed
// expectations are reported in Result.Errors.
func RunContext(ctx context.Context, s *Scenario) (*Result, error) {
	h, err := newHarness(s)
	if err != nil {
		return nil, err
	}
	defer h.close()

	for i, step := range s.Steps {
		h.step = i
		if err := h.runStep(ctx, step); err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	for _, msg := range h.evaluate(ctx, s.Assertions) {
		h.result.AddError(msg)
	}
	h.result.Rendered = h.rendered.String()
	return h.result, nil
}

func newHarness(s *Scenario) (*Harness, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	seed := s.Seed
	if seed == 0 {
		seed = 1
	}

	w := world.New(
		world.WithSeed(seed),
		world.WithIDs(testutil.NewSequentialIDs("uuid").Generate),
		world.WithLogger(logger),
	)
	if err := w.Apply(s.World); err != nil {
		return nil, fmt.Errorf("world: %w", err)
	}

	h := &Harness{
		world:  w,
		traces: &testutil.Traces{},
		logger: logger,
		result: NewResult(),
	}

	var backends *sink.Backends
	opts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithIDGenerator(testutil.NewSequentialIDs("inv")),
		engine.WithTraceOpener(h.traces),
		engine.WithNow(testutil.NewStepClock(traceEpoch, time.Second).Now),
		engine.WithObserver(h.observe),
		engine.WithLimits(limits(s.Limits)),
	}
	if s.Persist {
		st, err := store.Open(":memory:")
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		h.store = st
		b := store.NewBackend(st, logger)
		backends = &sink.Backends{
			Scores:   sink.ScoreTee{w, b},
			Data:     sink.DataTee{w, b},
			BossBars: sink.BossBarTee{w, b},
			Journal:  b,
			Logger:   logger,
		}
		opts = append(opts, engine.WithListener(b))
	}
	h.compiler = datapack.NewCompiler(w, backends)

	reg, err := buildPack(h.compiler, s)
	if err != nil {
		h.close()
		return nil, err
	}
	opts = append(opts, engine.WithFunctions(reg))
	h.engine = engine.New(opts...)
	return h, nil
}

func limits(l Limits) engine.Limits {
	out := engine.DefaultLimits()
	if l.MaxFunctionDepth > 0 {
		out.MaxFunctionDepth = l.MaxFunctionDepth
	}
	if l.MaxCommandChainLength > 0 {
		out.MaxCommandChainLength = l.MaxCommandChainLength
	}
	if l.MaxForkCount > 0 {
		out.MaxForkCount = l.MaxForkCount
	}
	return out
}

// buildPack loads the scenario's datapack files plus its inline file.
func buildPack(c *datapack.Compiler, s *Scenario) (*datapack.Registry, error) {
	pack := &datapack.Pack{}
	if len(s.Datapack) > 0 {
		loaded, err := datapack.Load(s.Datapack...)
		if err != nil {
			return nil, fmt.Errorf("datapack: %w", err)
		}
		pack = loaded
	}
	if s.Namespace != "" {
		pack.Files = append(pack.Files, &datapack.File{
			Path:       s.Name + " (inline)",
			Namespace:  s.Namespace,
			Functions:  s.Functions,
			Tags:       s.Tags,
			Predicates: s.Predicates,
		})
	}
	reg, err := pack.Build(c)
	if err != nil {
		return nil, fmt.Errorf("datapack: %w", err)
	}
	return reg, nil
}

func (h *Harness) close() {
	if h.store != nil {
		if err := h.store.Close(); err != nil {
			h.logger.Error("error closing store", "error", err)
		}
	}
}

// source builds the step's command source.
func (h *Harness) source(step Step, out engine.Output) (engine.Source, error) {
	if step.As == "" {
		return engine.NewSource("Server", out), nil
	}
	sel, err := world.ParseSelector(step.As)
	if err != nil {
		return engine.Source{}, err
	}
	es := sel.Select(h.world, engine.NewSource("Server", nil))
	if len(es) != 1 {
		return engine.Source{}, fmt.Errorf("as %s: matched %d entities, want 1", step.As, len(es))
	}
	return engine.SourceFor(es[0], out), nil
}

// runStep executes one step as its own invocation and validates its
// expect clause.
func (h *Harness) runStep(ctx context.Context, step Step) error {
	out := &testutil.Output{}
	src, err := h.source(step, out)
	if err != nil {
		return err
	}

	fmt.Fprintf(&h.rendered, "> %s\n", step.Input())
	h.result.hasInv = false

	var (
		res    engine.Result
		runErr error
	)
	if step.Call != "" {
		args, err := data.CompoundFromMap(step.Args)
		if err != nil {
			return fmt.Errorf("args: %w", err)
		}
		if step.Args == nil {
			args = nil
		}
		res, runErr = h.engine.Call(ctx, src, step.Call, args)
	} else {
		chain, err := h.compiler.Compile(step.Exec)
		if err != nil {
			return fmt.Errorf("compile: %w", err)
		}
		res, runErr = h.engine.Execute(ctx, src, chain)
	}

	sr := StepResult{
		Input:    step.Input(),
		Reported: res.Reported,
		Success:  res.Success,
		Value:    res.Value,
		Tasks:    res.Tasks,
		Messages: out.Messages(),
	}
	if inv, ok := h.lastInvocation(); ok {
		sr.ID, sr.Seq = inv.ID, inv.Seq
	}
	if runErr != nil {
		sr.Error = runErr.Error()
		sr.Kind = string(engine.KindOf(runErr))
	}
	h.result.Steps = append(h.result.Steps, sr)
	h.renderOutcome(sr)

	h.logger.Info("step completed",
		"step", h.step,
		"input", sr.Input,
		"success", sr.Success,
		"value", sr.Value,
		"error", sr.Error,
	)

	for _, msg := range checkExpect(h.step, sr, step.Expect) {
		h.result.AddError(msg)
	}
	return nil
}

func (h *Harness) renderOutcome(sr StepResult) {
	switch {
	case sr.Error != "":
		fmt.Fprintf(&h.rendered, "< error %s: %s tasks=%d\n", sr.Kind, sr.Error, sr.Tasks)
	case !sr.Reported:
		fmt.Fprintf(&h.rendered, "< no result tasks=%d\n", sr.Tasks)
	case sr.Success:
		fmt.Fprintf(&h.rendered, "< success value=%d tasks=%d\n", sr.Value, sr.Tasks)
	default:
		fmt.Fprintf(&h.rendered, "< failure tasks=%d\n", sr.Tasks)
	}
	for _, m := range sr.Messages {
		if m.Failure {
			fmt.Fprintf(&h.rendered, "! %s\n", m.Text)
		} else {
			fmt.Fprintf(&h.rendered, "| %s\n", m.Text)
		}
	}
}

// checkExpect compares a step's outcome with its expect clause. A step
// without one must not fail.
func checkExpect(index int, sr StepResult, exp *Expect) []string {
	var errs []string
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf("steps[%d] %q: ", index, sr.Input)+fmt.Sprintf(format, args...))
	}
	if exp == nil {
		if sr.Error != "" {
			fail("unexpected error %s: %s", sr.Kind, sr.Error)
		}
		return errs
	}

	switch {
	case exp.Error == "none" && sr.Error != "":
		fail("unexpected error %s: %s", sr.Kind, sr.Error)
	case exp.Error != "" && exp.Error != "none" && sr.Kind != exp.Error:
		fail("expected error %s, got %q", exp.Error, sr.Kind)
	}
	if exp.Success != nil && sr.Success != *exp.Success {
		fail("expected success=%t, got %t", *exp.Success, sr.Success)
	}
	if exp.Value != nil && sr.Value != *exp.Value {
		fail("expected value %d, got %d", *exp.Value, sr.Value)
	}

	next := 0
	for _, want := range exp.Messages {
		found := false
		for next < len(sr.Messages) {
			got := sr.Messages[next].Text
			next++
			if got == want {
				found = true
				break
			}
		}
		if !found {
			fail("expected message %q", want)
			break
		}
	}
	return errs
}
