package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const demoPack = `namespace: demo
functions:
  - id: main
    lines:
      - say hi
      - return 5
  - id: greet
    lines:
      - "$data modify storage demo:out $(key) set value $(value)"
tags:
  load: [main]
`

// writeFile writes body to dir/name and returns the path.
func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// execute runs the root command with args and returns stdout, stderr
// and the error.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return executeCommand(t, NewRootCommand(), args...)
}

func executeCommand(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	// Keep the caller's environment from reaching a database or collector.
	t.Setenv("CHAINEXEC_DB", "")
	t.Setenv("CHAINEXEC_OTEL_ENDPOINT", "")

	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}
