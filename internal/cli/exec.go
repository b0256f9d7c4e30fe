package cli

import (
	"github.com/spf13/cobra"
)

// ExecOptions holds flags for the exec command.
type ExecOptions struct {
	*RootOptions
	Packs []string
	As    string
}

// ExecResult holds one report per executed line.
type ExecResult struct {
	Invocations []InvocationReport `json:"invocations"`
	Failed      int                `json:"failed"`
}

// NewExecCommand creates the exec command.
func NewExecCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExecOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "exec <command>...",
		Short: "Execute command lines",
		Long: `Compile and execute command lines in order, each as its own invocation
against the same world. Lines that fail do not stop the ones after them;
a line that does not parse does.

Example:
  chainexec exec 'scoreboard objectives add n dummy' 'scoreboard players set #a n 3'
  chainexec exec --pack ./packs/demo 'execute store result score #r n run function demo:main'`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(cmd, opts, args)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Packs, "pack", "p", nil, "datapack file or directory (repeatable)")
	cmd.Flags().StringVar(&opts.As, "as", "", "selector of the single entity running the lines")

	return cmd
}

func runExec(cmd *cobra.Command, opts *ExecOptions, lines []string) (err error) {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := cmd.Context()
	s, err := openSession(ctx, opts.RootOptions, f, opts.Packs, nil)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.close(ctx); closeErr != nil && err == nil {
			err = f.Fail(ExitCommandError, ErrCodeStore, "failed to close session", closeErr)
		}
	}()

	result := ExecResult{Invocations: make([]InvocationReport, 0, len(lines))}
	for _, line := range lines {
		report, err := s.exec(ctx, opts.As, line)
		if err != nil {
			return f.Fail(ExitFailure, ErrCodeSyntax, "cannot execute "+line, err)
		}
		if report.Failed() {
			result.Failed++
		}
		if !f.JSON() {
			if err := f.Success(report); err != nil {
				return err
			}
		}
		result.Invocations = append(result.Invocations, report)
	}

	if f.JSON() {
		if err := f.Success(result); err != nil {
			return err
		}
	}
	if result.Failed > 0 {
		return NewExitError(ExitFailure, "one or more commands failed")
	}
	return nil
}
