package cli

import (
	"bytes"
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/chainexec/internal/engine"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Packs []string
	Args  string
	As    string
}

// TraceResult holds the rendered trace and the invocation report.
type TraceResult struct {
	InvocationReport
	Trace string `json:"trace"`
}

func (r TraceResult) String() string {
	return r.Trace + r.InvocationReport.String()
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace <function>",
		Short: "Run a function and print its execution trace",
		Long: `Run a function or #tag and render every command, return, function call
and error of the invocation as an indented trace.

Example:
  chainexec trace demo:main --pack ./packs/demo
  chainexec trace '#demo:tick' --pack ./packs --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Packs, "pack", "p", nil, "datapack file or directory (repeatable)")
	cmd.Flags().StringVar(&opts.Args, "args", "", "SNBT compound of macro arguments")
	cmd.Flags().StringVar(&opts.As, "as", "", "selector of the single entity running the function")

	return cmd
}

func runTrace(cmd *cobra.Command, opts *TraceOptions, function string) (err error) {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := cmd.Context()

	var rendered bytes.Buffer
	observer := func(context.Context, engine.Invocation) engine.Tracer {
		return engine.NewTextTracer(&rendered)
	}
	s, err := openSession(ctx, opts.RootOptions, f, opts.Packs, observer)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.close(ctx); closeErr != nil && err == nil {
			err = f.Fail(ExitCommandError, ErrCodeStore, "failed to close session", closeErr)
		}
	}()

	report, err := s.call(ctx, opts.As, function, opts.Args)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, "cannot trace "+function, err)
	}
	if err := f.Success(TraceResult{InvocationReport: report, Trace: rendered.String()}); err != nil {
		return err
	}
	if report.Failed() {
		return NewExitError(ExitFailure, fmt.Sprintf("%s: %s", function, report.Error))
	}
	return nil
}
