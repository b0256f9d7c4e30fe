package harness

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/chainexec/internal/data"
	"github.com/roach88/chainexec/internal/datapack"
	"github.com/roach88/chainexec/internal/engine"
	"github.com/roach88/chainexec/internal/geom"
	"github.com/roach88/chainexec/internal/sink"
	"github.com/roach88/chainexec/internal/world"
)

// AssertionError describes why an assertion failed.
type AssertionError struct {
	Index    int
	Type     string
	Message  string
	Expected any
	Actual   any
}

func (e *AssertionError) Error() string {
	msg := fmt.Sprintf("assertions[%d] (%s): %s", e.Index, e.Type, e.Message)
	if e.Expected != nil || e.Actual != nil {
		msg += fmt.Sprintf(" (expected %v, got %v)", e.Expected, e.Actual)
	}
	return msg
}

// evaluate checks every assertion and returns the failure messages.
func (h *Harness) evaluate(ctx context.Context, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := h.check(ctx, a); err != nil {
			if ae, ok := err.(*AssertionError); ok {
				ae.Index, ae.Type = i, a.Type
				errs = append(errs, ae.Error())
				continue
			}
			errs = append(errs, fmt.Sprintf("assertions[%d] (%s): %v", i, a.Type, err))
		}
	}
	return errs
}

func (h *Harness) check(ctx context.Context, a Assertion) error {
	switch a.Type {
	case AssertScore:
		v, ok := h.world.Score(a.Objective, a.Holder)
		return compareScore(a, v, ok)
	case AssertStoredScore:
		v, ok, err := h.store.Score(ctx, a.Objective, a.Holder)
		if err != nil {
			return err
		}
		return compareScore(a, v, ok)
	case AssertData:
		return h.checkData(a)
	case AssertBossBar:
		return h.checkBossBar(a)
	case AssertBlock:
		got := h.world.BlockAt(engine.DefaultDimension, geom.BlockPos{X: a.Pos[0], Y: a.Pos[1], Z: a.Pos[2]})
		want := datapack.Namespaced(fmt.Sprint(a.Value))
		if got != want {
			return &AssertionError{Message: fmt.Sprintf("block at %v", a.Pos), Expected: want, Actual: got}
		}
	case AssertEntityCount:
		sel, err := world.ParseSelector(a.Selector)
		if err != nil {
			return err
		}
		want, err := intValue(a.Value)
		if err != nil {
			return err
		}
		if got := len(sel.Select(h.world, engine.NewSource("Server", nil))); got != want {
			return &AssertionError{Message: a.Selector, Expected: want, Actual: got}
		}
	case AssertMessageContains:
		for _, m := range h.result.Messages() {
			if strings.Contains(m.Text, a.Text) {
				return nil
			}
		}
		return &AssertionError{Message: fmt.Sprintf("no message contains %q", a.Text)}
	case AssertTraceContains:
		if countEvents(h.result.Trace, a) == 0 {
			return &AssertionError{Message: fmt.Sprintf("no %s event contains %q", a.Event, a.Text)}
		}
	case AssertTraceCount:
		want, err := intValue(a.Value)
		if err != nil {
			return err
		}
		if got := countEvents(h.result.Trace, a); got != want {
			return &AssertionError{Message: fmt.Sprintf("%s events containing %q", a.Event, a.Text), Expected: want, Actual: got}
		}
	case AssertStoredInvocations:
		invs, err := h.store.Invocations(ctx)
		if err != nil {
			return err
		}
		want, err := intValue(a.Value)
		if err != nil {
			return err
		}
		if len(invs) != want {
			return &AssertionError{Message: "stored invocations", Expected: want, Actual: len(invs)}
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

func compareScore(a Assertion, v int, ok bool) error {
	name := fmt.Sprintf("%s [%s]", a.Holder, a.Objective)
	if a.Absent {
		if ok {
			return &AssertionError{Message: name + " should not be set", Actual: v}
		}
		return nil
	}
	want, err := intValue(a.Value)
	if err != nil {
		return err
	}
	if !ok {
		return &AssertionError{Message: name + " is not set", Expected: want}
	}
	if v != want {
		return &AssertionError{Message: name, Expected: want, Actual: v}
	}
	return nil
}

func (h *Harness) checkData(a Assertion) error {
	ref, err := parseRef(a.Ref)
	if err != nil {
		return err
	}
	root, err := h.world.GetData(ref)
	if err != nil {
		if a.Absent {
			return nil
		}
		return err
	}
	var got data.Value = root
	if a.Path != "" {
		p, err := data.ParsePath(a.Path)
		if err != nil {
			return err
		}
		vs := p.Get(root)
		if len(vs) == 0 {
			got = nil
		} else {
			got = vs[0]
		}
	}
	if a.Absent {
		if got != nil {
			return &AssertionError{Message: a.Ref + " " + a.Path + " should not be set", Actual: data.Format(got)}
		}
		return nil
	}
	want, err := data.Parse(fmt.Sprint(a.Value))
	if err != nil {
		return fmt.Errorf("value: %w", err)
	}
	if got == nil {
		return &AssertionError{Message: a.Ref + " " + a.Path + " is not set", Expected: data.Format(want)}
	}
	if data.Format(got) != data.Format(want) {
		return &AssertionError{Message: a.Ref + " " + a.Path, Expected: data.Format(want), Actual: data.Format(got)}
	}
	return nil
}

func (h *Harness) checkBossBar(a Assertion) error {
	bar, ok := h.world.BossBar(a.ID)
	if !ok {
		return &AssertionError{Message: fmt.Sprintf("no bossbar %s", a.ID)}
	}
	if a.Value != nil {
		want, err := intValue(a.Value)
		if err != nil {
			return err
		}
		if bar.Value != want {
			return &AssertionError{Message: a.ID + " value", Expected: want, Actual: bar.Value}
		}
	}
	if a.Max != nil && bar.Max != *a.Max {
		return &AssertionError{Message: a.ID + " max", Expected: *a.Max, Actual: bar.Max}
	}
	return nil
}

// parseRef parses "storage <id>", "entity <uuid>" or "block <x> <y> <z>".
func parseRef(s string) (sink.DataRef, error) {
	fields := strings.Fields(s)
	if len(fields) < 2 {
		return sink.DataRef{}, fmt.Errorf("invalid ref %q", s)
	}
	kind, err := sink.ParseRefKind(fields[0])
	if err != nil {
		return sink.DataRef{}, err
	}
	switch kind {
	case sink.RefBlock:
		if len(fields) != 4 {
			return sink.DataRef{}, fmt.Errorf("invalid block ref %q", s)
		}
		var pos [3]int
		for i, f := range fields[1:] {
			n, err := strconv.Atoi(f)
			if err != nil {
				return sink.DataRef{}, fmt.Errorf("invalid block ref %q: %w", s, err)
			}
			pos[i] = n
		}
		return sink.DataRef{Kind: kind, Dimension: engine.DefaultDimension, Pos: geom.BlockPos{X: pos[0], Y: pos[1], Z: pos[2]}}, nil
	case sink.RefStorage:
		return sink.DataRef{Kind: kind, ID: datapack.Namespaced(fields[1])}, nil
	}
	return sink.DataRef{Kind: kind, ID: fields[1]}, nil
}

func countEvents(trace []TraceEvent, a Assertion) int {
	n := 0
	for _, ev := range trace {
		if ev.Type == a.Event && strings.Contains(ev.Text, a.Text) {
			n++
		}
	}
	return n
}

func intValue(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n == float64(int(n)) {
			return int(n), nil
		}
	case string:
		return strconv.Atoi(n)
	}
	return 0, fmt.Errorf("expected an integer value, got %v", v)
}
