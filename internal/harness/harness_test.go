package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

func TestRun_CountingGolden(t *testing.T) {
	s := loadScenario(t, "counting")

	result, err := RunWithGolden(t, s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, result.Steps, 3)
	assert.Equal(t, "inv-1", result.Steps[0].ID)
	assert.Equal(t, int64(3), result.Steps[2].Seq)
	assert.Equal(t, "CONDITIONAL_FAILED", result.Steps[2].Kind)
}

func TestRun_Persisted(t *testing.T) {
	result, err := Run(loadScenario(t, "persisted"))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_Recursion(t *testing.T) {
	result, err := Run(loadScenario(t, "recursion"))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "RECURSION_LIMIT_EXCEEDED", result.Steps[0].Kind)
}

func TestRun_Deterministic(t *testing.T) {
	s := loadScenario(t, "counting")
	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	assert.Equal(t, first.Rendered, second.Rendered)
	assert.Equal(t, first.Trace, second.Trace)
	assert.Equal(t, first.Steps, second.Steps)
}

func TestRun_FailedExpectations(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: wrong
description: every expectation is off by one
world:
  objectives:
    - name: n
steps:
  - exec: "scoreboard players set #a n 3"
    expect:
      success: false
      value: 4
      messages: [nothing like this]
  - exec: execute if entity @e
assertions:
  - {type: score, objective: n, holder: "#a", value: 2}
  - {type: message_contains, text: absent text}
  - {type: trace_count, event: command, text: scoreboard, value: 5}
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, []string{
		`steps[0] "scoreboard players set #a n 3": expected success=false, got true`,
		`steps[0] "scoreboard players set #a n 3": expected value 4, got 3`,
		`steps[0] "scoreboard players set #a n 3": expected message "nothing like this"`,
		`steps[1] "execute if entity @e": unexpected error CONDITIONAL_FAILED: Test failed`,
		`assertions[0] (score): #a [n] (expected 2, got 3)`,
		`assertions[1] (message_contains): no message contains "absent text"`,
		`assertions[2] (trace_count): command events containing "scoreboard" (expected 5, got 1)`,
	}, result.Errors)
}

func TestRun_As(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: as
description: steps can run as an entity
world:
  entities:
    - {type: minecraft:player, name: Alex, pos: [0, 64, 0], tags: [hero]}
steps:
  - exec: say hello
    as: "@a[tag=hero]"
    expect: {messages: ["[Alex] hello"]}
  - exec: tag @s add seen
    as: Alex
assertions:
  - {type: entity_count, selector: "@a[tag=seen]", value: 1}
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "compile error",
			src:  "name: x\ndescription: y\nsteps:\n  - exec: frobnicate\n",
			want: "steps[0]: compile:",
		},
		{
			name: "bad inline function",
			src:  "name: x\ndescription: y\nnamespace: demo\nfunctions:\n  - id: f\n    lines: [frobnicate]\nsteps:\n  - exec: say hi\n",
			want: "datapack:",
		},
		{
			name: "as matches nothing",
			src:  "name: x\ndescription: y\nsteps:\n  - exec: say hi\n    as: Nobody\n",
			want: "matched 0 entities",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ParseScenario([]byte(tt.src))
			require.NoError(t, err)
			_, err = Run(s)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRun_ScoreboardHoldersWithoutEntities(t *testing.T) {
	// A missing objective fails the step, which the expect clause accepts.
	s, err := ParseScenario([]byte(`
name: missing_objective
description: unknown objectives fail
steps:
  - exec: "scoreboard players set #a missing 1"
    expect: {error: COMMAND_FAILED, messages: ["Unknown scoreboard objective 'missing'"]}
`))
	require.NoError(t, err)
	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}
