package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/chainexec/internal/datapack"
	"github.com/roach88/chainexec/internal/world"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool     `json:"valid"`
	Files     int      `json:"files"`
	Functions []string `json:"functions"`
	Tags      []string `json:"tags"`
	Errors    []string `json:"errors,omitempty"`
}

func (r ValidationResult) String() string {
	if !r.Valid {
		var b strings.Builder
		fmt.Fprintf(&b, "✗ %d error(s)", len(r.Errors))
		for _, e := range r.Errors {
			fmt.Fprintf(&b, "\n  %s", e)
		}
		return b.String()
	}
	return fmt.Sprintf("✓ %d function(s) and %d tag(s) in %d file(s) valid", len(r.Functions), len(r.Tags), r.Files)
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <datapack>...",
		Short: "Validate datapacks without running them",
		Long: `Load datapack files, check them against the datapack schema and compile
every function line, predicate and tag. Nothing is executed.

Exit codes:
  0 - All datapacks valid
  1 - One or more lines, predicates or tags did not compile
  2 - A file is missing or does not parse`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, rootOpts, args)
		},
	}

	return cmd
}

func runValidate(cmd *cobra.Command, opts *RootOptions, paths []string) error {
	f := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	pack, err := datapack.Load(paths...)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeLoadFailed, "failed to load datapack", err)
	}
	f.VerboseLog("Found %d datapack file(s)", len(pack.Files))

	// An empty world: compiling never consults world state.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg, err := pack.Build(datapack.NewCompiler(world.New(world.WithLogger(logger)), nil))
	if err != nil {
		result := ValidationResult{Files: len(pack.Files), Errors: splitErrors(err)}
		if f.JSON() {
			_ = f.Error(ErrCodeBuildFailed, result.Errors[0], result)
		} else {
			_ = f.Success(result)
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
	}

	return f.Success(ValidationResult{
		Valid:     true,
		Files:     len(pack.Files),
		Functions: reg.Functions(),
		Tags:      reg.Tags(),
	})
}

// splitErrors flattens joined errors into their messages.
func splitErrors(err error) []string {
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return []string{err.Error()}
	}
	var out []string
	for _, e := range joined.Unwrap() {
		out = append(out, splitErrors(e)...)
	}
	return out
}
