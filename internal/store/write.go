package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/chainexec/internal/engine"
	"github.com/roach88/chainexec/internal/sink"
)

// WriteInvocation inserts an invocation record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
func (s *Store) WriteInvocation(ctx context.Context, inv engine.Invocation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invocations (id, seq, input)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, inv.ID, inv.Seq, inv.Input)
	if err != nil {
		return fmt.Errorf("write invocation: %w", err)
	}
	return nil
}

// FinishInvocation records what an invocation reported and the error that
// stopped it, if any. The invocation must have been written.
func (s *Store) FinishInvocation(ctx context.Context, id string, res engine.Result, runErr error) error {
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	r, err := s.db.ExecContext(ctx, `
		UPDATE invocations
		SET finished = 1, reported = ?, success = ?, value = ?, tasks = ?, error = ?
		WHERE id = ?
	`, boolInt(res.Reported), boolInt(res.Success), res.Value, res.Tasks, msg, id)
	if err != nil {
		return fmt.Errorf("finish invocation: %w", err)
	}
	if n, err := r.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish invocation: unknown invocation %s", id)
	}
	return nil
}

// WriteSinkWrite journals one sink write. An empty invocationID records a
// write made outside any invocation.
func (s *Store) WriteSinkWrite(ctx context.Context, invocationID string, seq int64, w sink.Write) error {
	var inv sql.NullString
	if invocationID != "" {
		inv = sql.NullString{String: invocationID, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sink_writes (invocation_id, seq, target, raw, success, result, value, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, inv, seq, w.Target, boolInt(w.Raw), boolInt(w.Success), w.Result, w.Value, w.Error)
	if err != nil {
		return fmt.Errorf("write sink write: %w", err)
	}
	return nil
}
