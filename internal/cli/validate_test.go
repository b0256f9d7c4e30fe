package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const brokenPack = `namespace: demo
functions:
  - id: broken
    lines:
      - frobnicate
tags:
  t: [ghost]
`

func TestValidateValidPack(t *testing.T) {
	pack := writeFile(t, t.TempDir(), "demo.yaml", demoPack)

	out, _, err := execute(t, "validate", pack)
	require.NoError(t, err)
	assert.Equal(t, "✓ 2 function(s) and 1 tag(s) in 1 file(s) valid\n", out)
}

func TestValidateJSON(t *testing.T) {
	pack := writeFile(t, t.TempDir(), "demo.yaml", demoPack)

	out, _, err := execute(t, "--format", "json", "validate", pack)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, []string{"demo:greet", "demo:main"}, resp.Data.Functions)
	assert.Equal(t, []string{"demo:load"}, resp.Data.Tags)
}

func TestValidateReportsEveryError(t *testing.T) {
	pack := writeFile(t, t.TempDir(), "broken.yaml", brokenPack)

	out, _, err := execute(t, "validate", pack)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗")
	assert.Contains(t, out, "demo:broken:1")
	assert.Contains(t, out, "unknown function demo:ghost")
}

func TestValidateBrokenJSON(t *testing.T) {
	pack := writeFile(t, t.TempDir(), "broken.yaml", brokenPack)

	out, _, err := execute(t, "--format", "json", "validate", pack)
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeBuildFailed, resp.Error.Code)
}

func TestValidateMissingPath(t *testing.T) {
	out, _, err := execute(t, "validate", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "failed to load datapack")
}

func TestSplitErrors(t *testing.T) {
	err := errors.Join(errors.New("a"), errors.Join(errors.New("b"), errors.New("c")), fmt.Errorf("d: %w", errors.New("e")))
	assert.Equal(t, []string{"a", "b", "c", "d: e"}, splitErrors(err))
	assert.Equal(t, []string{"plain"}, splitErrors(errors.New("plain")))
}
