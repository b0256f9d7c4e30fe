package harness

import (
	"github.com/roach88/chainexec/internal/engine"
	"github.com/roach88/chainexec/internal/testutil"
)

// TraceEvent is one tracer event of a step's invocation.
type TraceEvent struct {
	Step  int    `json:"step"`
	Type  string `json:"type"` // "command", "return", "call" or "error"
	Depth int    `json:"depth,omitempty"`
	Text  string `json:"text"`
	Value int    `json:"value,omitempty"` // return result or function size
}

// StepResult is the outcome of one step.
type StepResult struct {
	Input    string             `json:"input"`
	ID       string             `json:"id"`
	Seq      int64              `json:"seq"`
	Reported bool               `json:"reported"`
	Success  bool               `json:"success"`
	Value    int                `json:"value"`
	Tasks    int                `json:"tasks"`
	Error    string             `json:"error,omitempty"`
	Kind     string             `json:"kind,omitempty"`
	Messages []testutil.Message `json:"messages,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	Steps []StepResult `json:"steps"`

	// Trace contains every tracer event of every step, in order.
	Trace []TraceEvent `json:"trace"`

	// Rendered is the text-tracer rendering of all steps, the content of
	// golden files.
	Rendered string `json:"-"`

	// Errors lists failed expectations. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	lastInv engine.Invocation
	hasInv  bool
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepResult{},
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Messages returns the feedback of every step in order.
func (r *Result) Messages() []testutil.Message {
	var out []testutil.Message
	for _, s := range r.Steps {
		out = append(out, s.Messages...)
	}
	return out
}
