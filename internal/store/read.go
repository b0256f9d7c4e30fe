package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/chainexec/internal/data"
	"github.com/roach88/chainexec/internal/sink"
	"github.com/roach88/chainexec/internal/world"
)

// InvocationRecord is one row of the invocation log.
type InvocationRecord struct {
	ID       string `json:"id"`
	Seq      int64  `json:"seq"`
	Input    string `json:"input"`
	Finished bool   `json:"finished"`
	Reported bool   `json:"reported"`
	Success  bool   `json:"success"`
	Value    int    `json:"value"`
	Tasks    int    `json:"tasks"`
	Error    string `json:"error,omitempty"`
}

// WriteRecord is one journaled sink write.
type WriteRecord struct {
	InvocationID string `json:"invocation_id,omitempty"`
	Seq          int64  `json:"seq"`
	sink.Write
}

// Score returns a stored score.
func (s *Store) Score(ctx context.Context, objective, holder string) (int, bool, error) {
	var v int
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM scores WHERE objective = ? AND holder = ?
	`, objective, holder).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read score: %w", err)
	}
	return v, true, nil
}

// Scores returns every stored score of an objective.
func (s *Store) Scores(ctx context.Context, objective string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT holder, value FROM scores WHERE objective = ?
		ORDER BY holder COLLATE BINARY ASC
	`, objective)
	if err != nil {
		return nil, fmt.Errorf("query scores: %w", err)
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var holder string
		var v int
		if err := rows.Scan(&holder, &v); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		out[holder] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scores: %w", err)
	}
	return out, nil
}

// Data returns the stored compound of ref, empty when nothing is stored.
func (s *Store) Data(ctx context.Context, ref sink.DataRef) (data.Compound, error) {
	return readData(rowQueryer{ctx, s.db}, ref)
}

type rowQueryer struct {
	ctx context.Context
	db  *sql.DB
}

func (q rowQueryer) QueryRow(query string, args ...any) *sql.Row {
	return q.db.QueryRowContext(q.ctx, query, args...)
}

// BossBar returns a stored boss bar.
func (s *Store) BossBar(ctx context.Context, id string) (world.BossBar, bool, error) {
	b := world.BossBar{ID: id}
	err := s.db.QueryRowContext(ctx, `
		SELECT name, value, max FROM bossbars WHERE id = ?
	`, id).Scan(&b.Name, &b.Value, &b.Max)
	if errors.Is(err, sql.ErrNoRows) {
		return world.BossBar{}, false, nil
	}
	if err != nil {
		return world.BossBar{}, false, fmt.Errorf("read bossbar: %w", err)
	}
	return b, true, nil
}

// Invocations returns the invocation log.
// Ordered deterministically: ORDER BY seq ASC, id ASC COLLATE BINARY.
func (s *Store) Invocations(ctx context.Context) ([]InvocationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, input, finished, reported, success, value, tasks, error
		FROM invocations
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query invocations: %w", err)
	}
	defer rows.Close()

	invocations := []InvocationRecord{}
	for rows.Next() {
		var r InvocationRecord
		if err := rows.Scan(&r.ID, &r.Seq, &r.Input, &r.Finished, &r.Reported, &r.Success, &r.Value, &r.Tasks, &r.Error); err != nil {
			return nil, fmt.Errorf("scan invocation: %w", err)
		}
		invocations = append(invocations, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invocations: %w", err)
	}
	return invocations, nil
}

// Writes returns the journaled writes of one invocation in write order.
// An empty invocationID selects writes made outside any invocation.
func (s *Store) Writes(ctx context.Context, invocationID string) ([]WriteRecord, error) {
	query := `
		SELECT invocation_id, seq, target, raw, success, result, value, error
		FROM sink_writes
		WHERE invocation_id = ?
		ORDER BY seq ASC, id ASC
	`
	args := []any{invocationID}
	if invocationID == "" {
		query = `
			SELECT invocation_id, seq, target, raw, success, result, value, error
			FROM sink_writes
			WHERE invocation_id IS NULL
			ORDER BY id ASC
		`
		args = nil
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sink writes: %w", err)
	}
	defer rows.Close()

	writes := []WriteRecord{}
	for rows.Next() {
		var r WriteRecord
		var inv sql.NullString
		if err := rows.Scan(&inv, &r.Seq, &r.Target, &r.Raw, &r.Success, &r.Result, &r.Value, &r.Error); err != nil {
			return nil, fmt.Errorf("scan sink write: %w", err)
		}
		r.InvocationID = inv.String
		writes = append(writes, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sink writes: %w", err)
	}
	return writes, nil
}
