package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecLines(t *testing.T) {
	out, _, err := execute(t, "exec",
		"scoreboard objectives add n",
		"scoreboard players set #a n 3",
		"execute store result score #b n run scoreboard players get #a n",
		"scoreboard players get #b n",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "scoreboard objectives add n: success value=1")
	assert.Contains(t, out, "  | Created new objective [n]")
	assert.Contains(t, out, "  | Set [n] for #a to 3")
	assert.Contains(t, out, "scoreboard players get #b n: success value=3")
	assert.Contains(t, out, "  | #b has 3 [n]")
}

func TestExecContinuesAfterFailure(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "exec",
		"execute if entity @e[type=cow]",
		"say still here",
	)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Data   ExecResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Invocations, 2)
	assert.Equal(t, 1, resp.Data.Failed)

	first := resp.Data.Invocations[0]
	assert.Equal(t, "CONDITIONAL_FAILED", first.Kind)
	assert.Equal(t, "Test failed", first.Error)
	assert.True(t, first.Failed())

	second := resp.Data.Invocations[1]
	assert.True(t, second.Success)
	assert.Equal(t, []Message{{Text: "[Server] still here"}}, second.Messages)
}

func TestExecSyntaxErrorStops(t *testing.T) {
	out, _, err := execute(t, "exec", "frobnicate", "say never")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E010]: cannot execute frobnicate")
	assert.NotContains(t, out, "never")
}

func TestExecWithPack(t *testing.T) {
	pack := writeFile(t, t.TempDir(), "demo.yaml", demoPack)

	out, _, err := execute(t, "exec", "--pack", pack, "function demo:main")
	require.NoError(t, err)
	assert.Contains(t, out, "function demo:main: success value=5")
}

func TestExecPersistsWorldInDatabase(t *testing.T) {
	db := filepath.Join(t.TempDir(), "world.db")

	_, _, err := execute(t, "--db", db, "exec",
		"scoreboard objectives add n",
		"scoreboard players set #a n 3",
	)
	require.NoError(t, err)

	out, _, err := execute(t, "--db", db, "exec", "scoreboard players get #a n")
	require.NoError(t, err)
	assert.Contains(t, out, "| #a has 3 [n]")
}
