package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMissingFunctionFlag(t *testing.T) {
	pack := writeFile(t, t.TempDir(), "demo.yaml", demoPack)

	_, _, err := executeCommand(t, NewRunCommand(&RootOptions{Format: "text"}), pack)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
	assert.Contains(t, err.Error(), "function")
}

func TestRunFunction(t *testing.T) {
	pack := writeFile(t, t.TempDir(), "demo.yaml", demoPack)

	out, _, err := execute(t, "run", pack, "--function", "demo:main")
	require.NoError(t, err)
	assert.Contains(t, out, "function demo:main: success value=5")
	assert.Contains(t, out, "  | [Server] hi")
}

func TestRunTag(t *testing.T) {
	pack := writeFile(t, t.TempDir(), "demo.yaml", demoPack)

	out, _, err := execute(t, "run", pack, "-f", "#demo:load")
	require.NoError(t, err)
	assert.Contains(t, out, "function #demo:load: success value=5")
}

func TestRunMacroArgsJSON(t *testing.T) {
	pack := writeFile(t, t.TempDir(), "demo.yaml", demoPack)

	out, _, err := execute(t, "--format", "json", "run", pack,
		"--function", "demo:greet", "--args", `{key:"a",value:1}`)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   InvocationReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "function demo:greet", resp.Data.Input)
	assert.NotEmpty(t, resp.Data.ID)
	assert.Empty(t, resp.Data.Error)
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()
	pack := writeFile(t, dir, "demo.yaml", demoPack)

	tests := []struct {
		name     string
		args     []string
		wantCode int
		want     string
	}{
		{
			name:     "unknown function",
			args:     []string{"run", pack, "--function", "demo:nope"},
			wantCode: ExitFailure,
			want:     "error NO_MATCHING_FUNCTIONS",
		},
		{
			name:     "missing datapack",
			args:     []string{"run", filepath.Join(dir, "nope"), "--function", "demo:main"},
			wantCode: ExitCommandError,
			want:     "Error [E004]: failed to load datapack",
		},
		{
			name:     "bad macro args",
			args:     []string{"run", pack, "--function", "demo:greet", "--args", "{key:"},
			wantCode: ExitCommandError,
			want:     "invalid --args",
		},
		{
			name:     "as without a match",
			args:     []string{"run", pack, "--function", "demo:main", "--as", "@e[type=cow]"},
			wantCode: ExitCommandError,
			want:     "matched 0 entities",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, GetExitCode(err))
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestRunAsEntityFromWorldFile(t *testing.T) {
	dir := t.TempDir()
	pack := writeFile(t, dir, "demo.yaml", demoPack)
	state := writeFile(t, dir, "world.yaml", `entities:
  - {type: minecraft:player, name: Alex, pos: [0, 64, 0]}
`)

	out, _, err := execute(t, "--world", state, "run", pack, "--function", "demo:main", "--as", "Alex")
	require.NoError(t, err)
	assert.Contains(t, out, "| [Alex] hi")
}

func TestRunRejectsUnknownWorldFields(t *testing.T) {
	dir := t.TempDir()
	pack := writeFile(t, dir, "demo.yaml", demoPack)
	state := writeFile(t, dir, "world.yaml", "entitys: []\n")

	out, _, err := execute(t, "--world", state, "run", pack, "--function", "demo:main")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "failed to load world")
}
