package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/chainexec/internal/store"
)

// LogOptions holds flags for the log command.
type LogOptions struct {
	*RootOptions
	ID string
}

// LoggedWrite is one journaled store step.
type LoggedWrite struct {
	Target  string `json:"target"`
	Raw     bool   `json:"raw,omitempty"`
	Success bool   `json:"success"`
	Result  int    `json:"result"`
	Value   int    `json:"value"`
	Error   string `json:"error,omitempty"`
}

// LoggedInvocation is one invocation of the database log with its writes.
type LoggedInvocation struct {
	store.InvocationRecord
	Writes []LoggedWrite `json:"writes"`
}

// LogResult is the invocation log of a database.
type LogResult struct {
	Invocations []LoggedInvocation `json:"invocations"`
}

func (r LogResult) String() string {
	if len(r.Invocations) == 0 {
		return "No invocations recorded."
	}
	var b strings.Builder
	for i, inv := range r.Invocations {
		if i > 0 {
			b.WriteByte('\n')
		}
		status := "running"
		switch {
		case !inv.Finished:
		case inv.Error != "":
			status = "error: " + inv.Error
		case !inv.Reported:
			status = "no result"
		case inv.Success:
			status = fmt.Sprintf("success value=%d", inv.Value)
		default:
			status = "failure"
		}
		fmt.Fprintf(&b, "#%d %s %s: %s tasks=%d", inv.Seq, inv.ID, inv.Input, status, inv.Tasks)
		for _, w := range inv.Writes {
			fmt.Fprintf(&b, "\n  store %s <- %d", w.Target, w.Value)
			if w.Error != "" {
				fmt.Fprintf(&b, " (failed: %s)", w.Error)
			}
		}
	}
	return b.String()
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the invocation log of a database",
		Long: `List the invocations recorded in a database in sequence order, each with
the store steps it wrote.

Example:
  chainexec log --db ./world.db
  chainexec log --db ./world.db --id 0190c3d2-... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.ID, "id", "", "show only this invocation")

	return cmd
}

func runLog(cmd *cobra.Command, opts *LogOptions) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := cmd.Context()

	cfg, err := opts.Config()
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, "invalid configuration", err)
	}
	if cfg.Database == "" {
		return f.Fail(ExitCommandError, ErrCodeConfig, "--db or CHAINEXEC_DB is required", nil)
	}
	st, err := store.Open(cfg.Database)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
	}
	defer st.Close()

	records, err := st.Invocations(ctx)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, "failed to read invocations", err)
	}
	result := LogResult{Invocations: []LoggedInvocation{}}
	for _, rec := range records {
		if opts.ID != "" && rec.ID != opts.ID {
			continue
		}
		writes, err := st.Writes(ctx, rec.ID)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeStore, "failed to read writes", err)
		}
		logged := LoggedInvocation{InvocationRecord: rec, Writes: make([]LoggedWrite, 0, len(writes))}
		for _, w := range writes {
			logged.Writes = append(logged.Writes, LoggedWrite{
				Target:  w.Target,
				Raw:     w.Raw,
				Success: w.Success,
				Result:  w.Result,
				Value:   w.Value,
				Error:   w.Error,
			})
		}
		result.Invocations = append(result.Invocations, logged)
	}
	if opts.ID != "" && len(result.Invocations) == 0 {
		return f.Fail(ExitCommandError, ErrCodeNotFound, "invocation not found: "+opts.ID, nil)
	}
	return f.Success(result)
}
