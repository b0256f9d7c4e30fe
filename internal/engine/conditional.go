package engine

import "fmt"

// EvalOutcome is a conditional decision with the expectation applied.
type EvalOutcome struct {
	Pass bool
	// Count is what a passing test returns: the match count for a passing
	// countable "if", 1 otherwise.
	Count int
	// Matched is the raw match count of a countable predicate.
	Matched   int
	Countable bool
	expect    bool
}

// Evaluate decides cond for src against an already negation-resolved
// expectation. A countable predicate with zero matches is a plain miss.
func Evaluate(src Source, cond Condition, expect bool) (EvalOutcome, error) {
	o, err := cond.Evaluate(src)
	if err != nil {
		return EvalOutcome{}, err
	}

	matched := o.Matched
	if o.Countable {
		matched = o.Count > 0
	}
	out := EvalOutcome{
		Pass:      matched == expect,
		Count:     1,
		Matched:   o.Count,
		Countable: o.Countable,
		expect:    expect,
	}
	if o.Countable && expect {
		out.Count = o.Count
	}
	return out, nil
}

// Err is the error a failed unforked conditional raises. A negated
// countable test that matched reports the count.
func (o EvalOutcome) Err() *CommandError {
	if o.Countable && !o.expect {
		return NewConditionalFailedWithCount(o.Matched)
	}
	return NewConditionalFailed()
}

// PassMessage is the feedback of a passing terminal test.
func (o EvalOutcome) PassMessage() string {
	if o.Countable && o.expect {
		return fmt.Sprintf("Test passed, count: %d", o.Count)
	}
	return "Test passed"
}

// testInstruction runs a terminal conditional as a leaf.
type testInstruction struct {
	cond   Condition
	expect bool
}

func (t testInstruction) Execute(src Source) (int, error) {
	out, err := Evaluate(src, t.cond, t.expect)
	if err != nil {
		return 0, err
	}
	if !out.Pass {
		return 0, out.Err()
	}
	src.SendSuccess(out.PassMessage())
	return out.Count, nil
}

// filterConditional applies a non-terminal conditional to one source.
// Forked chains drop failing sources silently; unforked ones raise.
func filterConditional(src Source, c Conditional, mods ChainModifiers) ([]Source, error) {
	out, err := Evaluate(src, c.Condition, c.Expect)
	if err != nil {
		return nil, err
	}
	if out.Pass {
		return []Source{src}, nil
	}
	if mods.Forked() {
		return nil, nil
	}
	return nil, out.Err()
}
