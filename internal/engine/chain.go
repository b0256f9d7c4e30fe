package engine

import "github.com/roach88/chainexec/internal/data"

// Instruction is a leaf operation. It returns an integer result or fails
// with an error, preferably a *CommandError.
type Instruction interface {
	Execute(src Source) (int, error)
}

// InstructionFunc adapts a function to Instruction.
type InstructionFunc func(src Source) (int, error)

func (f InstructionFunc) Execute(src Source) (int, error) { return f(src) }

// Chain is one compiled command line: a sequence of context-transforming
// steps followed by exactly one terminal.
type Chain struct {
	// Input is the command text, used for tracing.
	Input    string
	Steps    []Step
	Terminal Terminal
}

// Step transforms the current set of sources. Implemented by Redirect,
// Conditional, StoreResult and IfFunction only.
type Step interface {
	isStep()
}

// Terminal ends a chain. Implemented by Run, Test, Functions, Return,
// ReturnFail, ReturnRun and TraceFunctions only.
type Terminal interface {
	isTerminal()
}

// Producer derives the sources of a redirect or fork.
type Producer interface {
	Expand(src Source) ([]Source, error)
	// Forks reports whether the producer multiplies contexts. Forking
	// switches the chain into forked mode and strips callbacks.
	Forks() bool
}

// Outcome is the raw result of a predicate. Countable predicates match
// when Count > 0.
type Outcome struct {
	Matched   bool
	Count     int
	Countable bool
}

// BoolOutcome is the outcome of a boolean predicate.
func BoolOutcome(matched bool) Outcome { return Outcome{Matched: matched} }

// CountOutcome is the outcome of a countable predicate.
func CountOutcome(n int) Outcome { return Outcome{Matched: n > 0, Count: n, Countable: true} }

// Condition is a predicate evaluated against a source.
type Condition interface {
	Evaluate(src Source) (Outcome, error)
}

// ConditionFunc adapts a function to Condition.
type ConditionFunc func(src Source) (Outcome, error)

func (f ConditionFunc) Evaluate(src Source) (Outcome, error) { return f(src) }

// StoreTarget builds the sink a store step attaches for one source.
type StoreTarget interface {
	Bind(src Source, raw bool) (Sink, error)
}

// ArgumentSource supplies macro arguments for a function call.
type ArgumentSource interface {
	Arguments(src Source) (data.Compound, error)
}

// Redirect replaces every source by what Producer expands it to.
type Redirect struct {
	Producer Producer
}

// Conditional keeps a source when its condition evaluates to Expect.
// "unless" is Expect=false.
type Conditional struct {
	Condition Condition
	Expect    bool
}

// StoreResult attaches a store sink to every source. With Raw the sink
// receives the result, otherwise 1 for success and 0 for failure.
type StoreResult struct {
	Target StoreTarget
	Raw    bool
}

// IfFunction keeps a source when the named functions, run in isolation
// from it, report a successful non-zero result (Expect=true) or do not
// (Expect=false).
type IfFunction struct {
	Name   string
	Args   ArgumentSource
	Expect bool
}

func (Redirect) isStep()    {}
func (Conditional) isStep() {}
func (StoreResult) isStep() {}
func (IfFunction) isStep()  {}

// Run executes a leaf instruction once per source.
type Run struct {
	Instruction Instruction
}

// Test is a conditional with nothing after it. It reports "Test passed"
// and returns the match count.
type Test struct {
	Condition Condition
	Expect    bool
}

// Functions calls every function the name resolves to.
type Functions struct {
	Name string
	Args ArgumentSource
}

// Return ends the current function with Value.
type Return struct {
	Value int
}

// ReturnFail ends the current function with a failure.
type ReturnFail struct{}

// ReturnRun ends the current function with whatever Chain reports.
type ReturnRun struct {
	Chain Chain
}

// TraceFunctions runs functions with a text tracer attached for the rest of
// the invocation.
type TraceFunctions struct {
	Name string
}

func (Run) isTerminal()            {}
func (Test) isTerminal()           {}
func (Functions) isTerminal()      {}
func (Return) isTerminal()         {}
func (ReturnFail) isTerminal()     {}
func (ReturnRun) isTerminal()      {}
func (TraceFunctions) isTerminal() {}
