package cli

import (
	"github.com/spf13/cobra"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Function string
	Args     string
	As       string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <datapack>...",
		Short: "Run a datapack function",
		Long: `Load datapacks and run one function or function tag as a single
invocation.

With --db the world is loaded from the database before the run and saved
back afterwards; every store step is also journaled there.

Example:
  chainexec run ./packs/demo --function demo:main
  chainexec run ./packs/demo --function demo:greet --args '{key:"a",value:1}'
  chainexec run ./packs --function '#minecraft:load' --db ./world.db`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFunction(cmd, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.Function, "function", "f", "", "function id or #tag to run (required)")
	cmd.Flags().StringVar(&opts.Args, "args", "", "SNBT compound of macro arguments")
	cmd.Flags().StringVar(&opts.As, "as", "", "selector of the single entity running the function")
	_ = cmd.MarkFlagRequired("function")

	return cmd
}

func runFunction(cmd *cobra.Command, opts *RunOptions, packs []string) (err error) {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := cmd.Context()
	s, err := openSession(ctx, opts.RootOptions, f, packs, nil)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.close(ctx); closeErr != nil && err == nil {
			err = f.Fail(ExitCommandError, ErrCodeStore, "failed to close session", closeErr)
		}
	}()

	report, err := s.call(ctx, opts.As, opts.Function, opts.Args)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, "cannot run "+opts.Function, err)
	}
	if err := f.Success(report); err != nil {
		return err
	}
	if report.Failed() {
		return NewExitError(ExitFailure, report.Error)
	}
	return nil
}
