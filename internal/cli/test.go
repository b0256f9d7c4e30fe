package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/chainexec/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Golden string // directory of golden traces
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	File   string   `json:"file"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenario>...",
		Short: "Run scenario files",
		Long: `Run YAML scenarios through the harness. Each scenario runs its steps in a
fresh world, checks every expect clause and assertion and, with --golden,
compares the rendered trace against <golden>/<name>.golden.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (missing paths, etc.)

Examples:
  chainexec test ./scenarios
  chainexec test ./scenarios --filter "count*"
  chainexec test ./scenarios --golden ./golden --update
  chainexec test ./scenarios/counting.yaml --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(cmd, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.Golden, "golden", "", "directory of golden traces")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern on the file name")

	return cmd
}

func runTests(cmd *cobra.Command, opts *TestOptions, paths []string) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if opts.Update && opts.Golden == "" {
		return f.Fail(ExitCommandError, ErrCodeConfig, "--update requires --golden", nil)
	}

	files, err := harness.Discover(paths...)
	if err != nil {
		var notFound *harness.ScenarioNotFoundError
		if errors.As(err, &notFound) {
			return f.Fail(ExitCommandError, ErrCodeNotFound, "scenario path not found: "+notFound.Path, nil)
		}
		return f.Fail(ExitCommandError, ErrCodeGeneric, "failed to find scenarios", err)
	}
	files, err = filterScenarios(files, opts.Filter)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, "invalid filter pattern", err)
	}

	result := TestResult{Scenarios: make([]ScenarioResult, 0, len(files)), Total: len(files)}
	w := cmd.OutOrStdout()
	if f.JSON() {
		w = io.Discard
	}
	for _, file := range files {
		sr := runScenario(cmd, opts, file)
		printScenario(w, sr)
		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if f.JSON() {
		if result.Failed > 0 {
			_ = f.Error("E_TEST_FAILED", fmt.Sprintf("%d scenario(s) failed", result.Failed), result)
		} else if err := f.Success(result); err != nil {
			return err
		}
	} else {
		printSummary(w, result)
	}
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// filterScenarios keeps files whose name without extension matches the
// glob pattern.
func filterScenarios(files []string, pattern string) ([]string, error) {
	if pattern == "" {
		return files, nil
	}
	var out []string
	for _, file := range files {
		base := filepath.Base(file)
		matched, err := filepath.Match(pattern, strings.TrimSuffix(base, filepath.Ext(base)))
		if err != nil {
			return nil, err
		}
		if matched {
			out = append(out, file)
		}
	}
	return out, nil
}

// runScenario loads, runs and checks one scenario file.
func runScenario(cmd *cobra.Command, opts *TestOptions, file string) ScenarioResult {
	sr := ScenarioResult{Name: filepath.Base(file), File: file}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("failed to load scenario: %v", err)}
		return sr
	}
	sr.Name = scenario.Name

	result, err := harness.RunContext(cmd.Context(), scenario)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("execution failed: %v", err)}
		return sr
	}
	sr.Errors = append(sr.Errors, result.Errors...)

	if opts.Golden != "" {
		path := filepath.Join(opts.Golden, scenario.Name+".golden")
		if opts.Update {
			if err := updateGoldenFile(path, result.Rendered); err != nil {
				sr.Errors = append(sr.Errors, err.Error())
			}
		} else if msg := compareWithGolden(path, result.Rendered); msg != "" {
			sr.Errors = append(sr.Errors, msg)
		}
	}
	sr.Pass = len(sr.Errors) == 0
	return sr
}

// updateGoldenFile writes the rendered trace as the golden file.
func updateGoldenFile(path, rendered string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(rendered), 0o644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// compareWithGolden returns why the rendered trace does not match the
// golden file, or "" when it does.
func compareWithGolden(path, rendered string) string {
	golden, err := os.ReadFile(path)
	if err != nil {
		return fmt.Sprintf("failed to read golden file: %v", err)
	}
	if string(golden) != rendered {
		return "trace does not match golden file " + path + " (run with --update to regenerate)"
	}
	return ""
}

func printScenario(w io.Writer, sr ScenarioResult) {
	if sr.Pass {
		fmt.Fprintf(w, "✓ %s\n", sr.Name)
		return
	}
	fmt.Fprintf(w, "✗ %s\n", sr.Name)
	for _, e := range sr.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}

func printSummary(w io.Writer, result TestResult) {
	if result.Total == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	if result.Failed == 0 {
		fmt.Fprintln(w, "✓ All scenarios passed")
	}
}
