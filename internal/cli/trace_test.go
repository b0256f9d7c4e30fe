package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceFunction(t *testing.T) {
	pack := writeFile(t, t.TempDir(), "demo.yaml", demoPack)

	out, _, err := execute(t, "trace", "demo:main", "--pack", pack)
	require.NoError(t, err)
	assert.Contains(t, out, "[F] demo:main size=2")
	assert.Contains(t, out, "[C] say hi")
	assert.Contains(t, out, "[C] return 5")
	assert.Contains(t, out, "function demo:main: success value=5")
}

func TestTraceJSON(t *testing.T) {
	pack := writeFile(t, t.TempDir(), "demo.yaml", demoPack)

	out, _, err := execute(t, "--format", "json", "trace", "demo:main", "-p", pack)
	require.NoError(t, err)

	var resp struct {
		Data TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Contains(t, resp.Data.Trace, "[F] demo:main size=2")
	assert.Equal(t, 5, resp.Data.Value)
	assert.True(t, resp.Data.Success)
}

func TestTraceMissingFunction(t *testing.T) {
	pack := writeFile(t, t.TempDir(), "demo.yaml", demoPack)

	out, _, err := execute(t, "trace", "demo:nope", "--pack", pack)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "NO_MATCHING_FUNCTIONS")
}

func TestTraceArgs(t *testing.T) {
	_, _, err := executeCommand(t, NewTraceCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}
