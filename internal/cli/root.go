package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/chainexec/internal/config"
)

// RootOptions holds global flags for all commands. Zero values leave the
// environment configuration in place.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	Database     string
	World        string
	TraceDir     string
	OTelEndpoint string
	Seed         uint64

	MaxFunctionDepth      int
	MaxCommandChainLength int
	MaxForkCount          int
	MaxArea               int64
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the chainexec CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "chainexec",
		Short: "chainexec - branching command execution",
		Long: `Run datapack functions and command lines through the chain engine.

Every invocation expands into redirects, forks, conditions and store steps
over an in-memory world, optionally persisted to a sqlite database.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.Database, "db", "", "sqlite database holding the world (overrides CHAINEXEC_DB)")
	flags.StringVar(&opts.World, "world", "", "YAML world state to start from")
	flags.StringVar(&opts.TraceDir, "trace-dir", "", "directory for debug traces (overrides CHAINEXEC_TRACE_DIR)")
	flags.StringVar(&opts.OTelEndpoint, "otel-endpoint", "", "OTLP/HTTP endpoint for invocation spans (overrides CHAINEXEC_OTEL_ENDPOINT)")
	flags.Uint64Var(&opts.Seed, "seed", 0, "random seed of the world (overrides CHAINEXEC_SEED)")
	flags.IntVar(&opts.MaxFunctionDepth, "max-function-depth", 0, "deepest function frame (overrides CHAINEXEC_MAX_FUNCTION_DEPTH)")
	flags.IntVar(&opts.MaxCommandChainLength, "max-command-chain-length", 0, "tasks per invocation (overrides CHAINEXEC_MAX_COMMAND_CHAIN_LENGTH)")
	flags.IntVar(&opts.MaxForkCount, "max-fork-count", 0, "contexts per fork (overrides CHAINEXEC_MAX_FORK_COUNT)")
	flags.Int64Var(&opts.MaxArea, "max-area", 0, "largest volume compared by if blocks (overrides CHAINEXEC_MAX_AREA)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewExecCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewLogCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// Config loads the environment configuration and applies the flags set
// in opts over it.
func (opts *RootOptions) Config() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}
	if opts.TraceDir != "" {
		cfg.TraceDir = opts.TraceDir
	}
	if opts.OTelEndpoint != "" {
		cfg.OTelEndpoint = opts.OTelEndpoint
	}
	if opts.Seed != 0 {
		cfg.Seed = opts.Seed
	}
	if opts.MaxFunctionDepth > 0 {
		cfg.MaxFunctionDepth = opts.MaxFunctionDepth
	}
	if opts.MaxCommandChainLength > 0 {
		cfg.MaxCommandChainLength = opts.MaxCommandChainLength
	}
	if opts.MaxForkCount > 0 {
		cfg.MaxForkCount = opts.MaxForkCount
	}
	if opts.MaxArea > 0 {
		cfg.MaxArea = opts.MaxArea
	}
	return cfg, cfg.Validate()
}

// Logger returns a text logger on w at Debug level with --verbose and
// Info otherwise.
func (opts *RootOptions) Logger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
