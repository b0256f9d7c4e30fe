package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/chainexec/internal/datapack"
	"github.com/roach88/chainexec/internal/world"
)

// Scenario is an executable description of a world, the datapack loaded
// into it, a sequence of commands, and what must hold afterwards.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Datapack lists datapack files or directories, relative to the
	// scenario file.
	Datapack []string `yaml:"datapack,omitempty"`

	// Namespace, Functions, Tags and Predicates form an inline datapack
	// file loaded after Datapack.
	Namespace  string                  `yaml:"namespace,omitempty"`
	Functions  []datapack.FunctionSpec `yaml:"functions,omitempty"`
	Tags       map[string][]string     `yaml:"tags,omitempty"`
	Predicates map[string]string       `yaml:"predicates,omitempty"`

	// World is the initial world state.
	World world.State `yaml:"world,omitempty"`

	// Seed makes random selection reproducible. Default 1.
	Seed uint64 `yaml:"seed,omitempty"`

	// Limits overrides engine limits; zero fields keep the defaults.
	Limits Limits `yaml:"limits,omitempty"`

	// Persist mirrors every store write into an in-memory SQLite store and
	// records the invocation log there, enabling the stored_* assertions.
	Persist bool `yaml:"persist,omitempty"`

	// Steps run in order, each as its own invocation.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final world, output and trace.
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// Dir is the directory of the scenario file.
	Dir string `yaml:"-"`
}

// Limits mirrors engine.Limits in scenario files.
type Limits struct {
	MaxFunctionDepth      int `yaml:"max_function_depth,omitempty"`
	MaxCommandChainLength int `yaml:"max_command_chain_length,omitempty"`
	MaxForkCount          int `yaml:"max_fork_count,omitempty"`
}

// Step is one top-level invocation: either a command line (Exec) or a
// function call with optional macro arguments (Call).
type Step struct {
	Exec string         `yaml:"exec,omitempty"`
	Call string         `yaml:"call,omitempty"`
	Args map[string]any `yaml:"args,omitempty"`

	// As runs the step as the named or tagged entity instead of the server.
	As string `yaml:"as,omitempty"`

	// Expect validates the invocation's outcome. Nil means it must not
	// fail.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Input is the text of the step, "function <id>" for calls.
func (s Step) Input() string {
	if s.Call != "" {
		return "function " + s.Call
	}
	return s.Exec
}

// Expect is a subset match on a step's outcome. Unset fields are not
// checked.
type Expect struct {
	Success *bool `yaml:"success,omitempty"`
	Value   *int  `yaml:"value,omitempty"`

	// Error is the expected error kind, e.g. CONDITIONAL_FAILED. "none"
	// requires success without error.
	Error string `yaml:"error,omitempty"`

	// Messages must appear, in order, among the step's feedback.
	Messages []string `yaml:"messages,omitempty"`
}

// Assertion validates the state after all steps.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// score, stored_score
	Objective string `yaml:"objective,omitempty"`
	Holder    string `yaml:"holder,omitempty"`

	// data: Ref is "storage <id>", "entity <uuid>" or "block <x> <y> <z>".
	Ref  string `yaml:"ref,omitempty"`
	Path string `yaml:"path,omitempty"`

	// bossbar
	ID string `yaml:"id,omitempty"`

	// block
	Pos [3]int `yaml:"pos,omitempty"`

	// entity_count: a selector such as @e[type=cow].
	Selector string `yaml:"selector,omitempty"`

	// message_contains, trace_contains, trace_count: Event is one of
	// command, return, call, error.
	Text  string `yaml:"text,omitempty"`
	Event string `yaml:"event,omitempty"`

	// Value is the expected value: an integer for scores, counts and boss
	// bars, a block id for block, SNBT text for data.
	Value any `yaml:"value,omitempty"`

	// Max is the expected boss bar maximum.
	Max *int `yaml:"max,omitempty"`

	// Absent inverts score, data and stored_score: nothing may be set.
	Absent bool `yaml:"absent,omitempty"`
}

// Assertion type constants.
const (
	AssertScore             = "score"
	AssertData              = "data"
	AssertBossBar           = "bossbar"
	AssertBlock             = "block"
	AssertEntityCount       = "entity_count"
	AssertMessageContains   = "message_contains"
	AssertTraceContains     = "trace_contains"
	AssertTraceCount        = "trace_count"
	AssertStoredScore       = "stored_score"
	AssertStoredInvocations = "stored_invocations"
)

// Trace event names used by trace assertions.
const (
	EventCommand = "command"
	EventReturn  = "return"
	EventCall    = "call"
	EventError   = "error"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	s, err := ParseScenario(src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.Dir = filepath.Dir(path)
	for i, p := range s.Datapack {
		if !filepath.IsAbs(p) {
			s.Datapack[i] = filepath.Join(s.Dir, p)
		}
	}
	for _, p := range s.Datapack {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("%s: datapack not found: %s", path, p)
		}
	}
	return s, nil
}

// ParseScenario parses scenario YAML. Datapack paths are left as written.
func ParseScenario(src []byte) (*Scenario, error) {
	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(src))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Functions) > 0 && s.Namespace == "" {
		return fmt.Errorf("namespace is required with inline functions")
	}

	for i, step := range s.Steps {
		switch {
		case step.Exec == "" && step.Call == "":
			return fmt.Errorf("steps[%d]: exec or call is required", i)
		case step.Exec != "" && step.Call != "":
			return fmt.Errorf("steps[%d]: exec and call are exclusive", i)
		case step.Args != nil && step.Call == "":
			return fmt.Errorf("steps[%d]: args requires call", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a, s.Persist); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, persist bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	needs := func(field, value string) error {
		if value == "" {
			return fmt.Errorf("assertions[%d]: %s is required for %s", index, field, a.Type)
		}
		return nil
	}
	needsValue := func() error {
		if a.Value == nil && !a.Absent {
			return fmt.Errorf("assertions[%d]: value is required for %s", index, a.Type)
		}
		return nil
	}

	switch a.Type {
	case AssertScore, AssertStoredScore:
		if a.Type == AssertStoredScore && !persist {
			return fmt.Errorf("assertions[%d]: %s requires persist: true", index, a.Type)
		}
		if err := needs("objective", a.Objective); err != nil {
			return err
		}
		if err := needs("holder", a.Holder); err != nil {
			return err
		}
		return needsValue()
	case AssertData:
		if err := needs("ref", a.Ref); err != nil {
			return err
		}
		return needsValue()
	case AssertBossBar:
		if err := needs("id", a.ID); err != nil {
			return err
		}
		if a.Value == nil && a.Max == nil {
			return fmt.Errorf("assertions[%d]: value or max is required for bossbar", index)
		}
	case AssertBlock:
		return needsValue()
	case AssertEntityCount:
		if err := needs("selector", a.Selector); err != nil {
			return err
		}
		return needsValue()
	case AssertMessageContains:
		return needs("text", a.Text)
	case AssertTraceContains, AssertTraceCount:
		if err := needs("event", a.Event); err != nil {
			return err
		}
		switch a.Event {
		case EventCommand, EventReturn, EventCall, EventError:
		default:
			return fmt.Errorf("assertions[%d]: unknown trace event %q", index, a.Event)
		}
		if a.Type == AssertTraceCount {
			return needsValue()
		}
	case AssertStoredInvocations:
		if !persist {
			return fmt.Errorf("assertions[%d]: %s requires persist: true", index, a.Type)
		}
		return needsValue()
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
