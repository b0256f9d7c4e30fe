package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("synchronous", "1"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, s.verifyPragma("user_version", "1"))
}

func TestOpen_Tables(t *testing.T) {
	s := createTestStore(t)

	for _, table := range []string{
		"invocations", "sink_writes", "objectives", "scores", "data", "bossbars",
		"world_meta", "world_entities", "world_blocks", "world_biomes", "world_stopwatches",
	} {
		t.Run(table, func(t *testing.T) {
			var name string
			err := s.DB().QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
			require.NoError(t, err)
			assert.Equal(t, 0, countRows(t, s, table))
		})
	}

	var idx string
	err := s.DB().QueryRow(`SELECT name FROM sqlite_master WHERE type = 'index' AND name = 'idx_sink_writes_invocation'`).Scan(&idx)
	require.NoError(t, err)
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.DB().Exec(`INSERT INTO objectives (name) VALUES ('kept')`)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, 1, countRows(t, s, "objectives"))
	assert.NoError(t, s.verifyPragma("user_version", "1"))
}

func TestOpen_BadPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "x.db"))
	assert.Error(t, err)
}

func TestClose_Nil(t *testing.T) {
	assert.NoError(t, (&Store{}).Close())
}
