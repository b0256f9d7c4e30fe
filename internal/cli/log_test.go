package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogRequiresDatabase(t *testing.T) {
	out, _, err := execute(t, "log")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "--db or CHAINEXEC_DB is required")
}

func TestLogListsInvocationsAndWrites(t *testing.T) {
	db := filepath.Join(t.TempDir(), "world.db")
	_, _, err := execute(t, "--db", db, "exec",
		"scoreboard objectives add n",
		"execute store result score #a n run say hi",
	)
	require.NoError(t, err)

	out, _, err := execute(t, "--db", db, "log")
	require.NoError(t, err)
	assert.Contains(t, out, "scoreboard objectives add n: success value=1")
	assert.Contains(t, out, "execute store result score #a n run say hi: success value=1")
	assert.Contains(t, out, "\n  store ")

	out, _, err = execute(t, "--db", db, "--format", "json", "log")
	require.NoError(t, err)
	var resp struct {
		Data LogResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Invocations, 2)
	assert.Empty(t, resp.Data.Invocations[0].Writes)
	require.Len(t, resp.Data.Invocations[1].Writes, 1)
	assert.Equal(t, 1, resp.Data.Invocations[1].Writes[0].Value)
	assert.True(t, resp.Data.Invocations[1].Finished)

	id := resp.Data.Invocations[1].ID
	out, _, err = execute(t, "--db", db, "log", "--id", id)
	require.NoError(t, err)
	assert.NotContains(t, out, "objectives add")

	_, _, err = execute(t, "--db", db, "log", "--id", "missing")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestLogEmptyDatabase(t *testing.T) {
	db := filepath.Join(t.TempDir(), "world.db")

	out, _, err := execute(t, "--db", db, "log")
	require.NoError(t, err)
	assert.Equal(t, "No invocations recorded.\n", out)
}
