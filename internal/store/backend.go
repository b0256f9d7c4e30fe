package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/chainexec/internal/data"
	"github.com/roach88/chainexec/internal/engine"
	"github.com/roach88/chainexec/internal/sink"
)

// Backend is the store as seen by the engine. It implements the sink
// backends, sink.Journal and engine.InvocationListener: sink writes are
// journaled under the invocation that is running when they happen.
type Backend struct {
	store  *Store
	logger *slog.Logger

	mu       sync.Mutex
	current  string
	writeSeq int64
}

// NewBackend returns a backend over s. A nil logger means slog.Default().
func NewBackend(s *Store, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{store: s, logger: logger}
}

// SetScore upserts a score. The objective is created as dummy if the store
// does not know it yet.
func (b *Backend) SetScore(objective, holder string, value int) error {
	return b.store.withTx(context.Background(), func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO objectives (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, objective); err != nil {
			return fmt.Errorf("set score: %w", err)
		}
		_, err := tx.Exec(`
			INSERT INTO scores (objective, holder, value) VALUES (?, ?, ?)
			ON CONFLICT(objective, holder) DO UPDATE SET value = excluded.value
		`, objective, holder, value)
		if err != nil {
			return fmt.Errorf("set score: %w", err)
		}
		return nil
	})
}

// SetData writes v at path inside the stored compound of ref.
func (b *Backend) SetData(ref sink.DataRef, path data.Path, v data.Value) error {
	return b.store.withTx(context.Background(), func(tx *sql.Tx) error {
		root, err := readData(tx, ref)
		if err != nil {
			return err
		}
		if err := path.Set(root, v); err != nil {
			return err
		}
		return writeData(tx, ref, root)
	})
}

// SetBossBar sets the value or maximum of a stored boss bar, creating it
// with the defaults of a new bar when missing.
func (b *Backend) SetBossBar(id string, maximum bool, value int) error {
	query := `
		INSERT INTO bossbars (id, value) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET value = excluded.value
	`
	if maximum {
		value = max(value, 1)
		query = `
			INSERT INTO bossbars (id, max) VALUES (?, ?)
			ON CONFLICT(id) DO UPDATE SET max = excluded.max
		`
	}
	if _, err := b.store.db.Exec(query, id, value); err != nil {
		return fmt.Errorf("set bossbar: %w", err)
	}
	return nil
}

// InvocationStarted records the invocation and makes it the owner of the
// following journaled writes.
func (b *Backend) InvocationStarted(ctx context.Context, inv engine.Invocation) {
	b.mu.Lock()
	b.current, b.writeSeq = inv.ID, 0
	b.mu.Unlock()

	if err := b.store.WriteInvocation(ctx, inv); err != nil {
		b.logger.Error("record invocation failed", "id", inv.ID, "error", err)
	}
}

// InvocationFinished records the outcome of the invocation.
func (b *Backend) InvocationFinished(ctx context.Context, inv engine.Invocation, res engine.Result, err error) {
	b.mu.Lock()
	if b.current == inv.ID {
		b.current = ""
	}
	b.mu.Unlock()

	if werr := b.store.FinishInvocation(ctx, inv.ID, res, err); werr != nil {
		b.logger.Error("record invocation result failed", "id", inv.ID, "error", werr)
	}
}

// RecordWrite journals one sink write.
func (b *Backend) RecordWrite(w sink.Write) {
	b.mu.Lock()
	inv := b.current
	b.writeSeq++
	seq := b.writeSeq
	b.mu.Unlock()

	if err := b.store.WriteSinkWrite(context.Background(), inv, seq, w); err != nil {
		b.logger.Error("journal sink write failed", "target", w.Target, "error", err)
	}
}

var (
	_ sink.Scoreboard           = (*Backend)(nil)
	_ sink.DataStorage          = (*Backend)(nil)
	_ sink.BossBars             = (*Backend)(nil)
	_ sink.Journal              = (*Backend)(nil)
	_ engine.InvocationListener = (*Backend)(nil)
)

type queryer interface {
	QueryRow(query string, args ...any) *sql.Row
}

func readData(q queryer, ref sink.DataRef) (data.Compound, error) {
	var text string
	err := q.QueryRow(`SELECT value FROM data WHERE ref_key = ?`, ref.Key()).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return data.Compound{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read data %s: %w", ref, err)
	}
	return unmarshalCompound(text)
}

func writeData(tx *sql.Tx, ref sink.DataRef, c data.Compound) error {
	text, err := marshalCompound(c)
	if err != nil {
		return err
	}
	_, err = tx.Exec(`
		INSERT INTO data (ref_key, kind, ref_id, dimension, x, y, z, value)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(ref_key) DO UPDATE SET value = excluded.value
	`, ref.Key(), ref.Kind.String(), ref.ID, ref.Dimension, ref.Pos.X, ref.Pos.Y, ref.Pos.Z, text)
	if err != nil {
		return fmt.Errorf("write data %s: %w", ref, err)
	}
	return nil
}
