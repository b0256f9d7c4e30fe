package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/roach88/chainexec/internal/geom"
	"github.com/roach88/chainexec/internal/sink"
	"github.com/roach88/chainexec/internal/world"
)

const gameTimeKey = "game_time"

// SaveWorld replaces the stored world with w: entities, blocks, biomes,
// scores, storages, boss bars, stopwatches and the game clock. Data that
// sinks wrote for entities and blocks is folded into the snapshot.
func (s *Store) SaveWorld(ctx context.Context, w *world.World) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{
			"world_meta", "world_entities", "world_blocks", "world_biomes",
			"world_stopwatches", "objectives", "scores", "data", "bossbars",
		} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("save world: clear %s: %w", table, err)
			}
		}

		if _, err := tx.ExecContext(ctx, `INSERT INTO world_meta (key, value) VALUES (?, ?)`,
			gameTimeKey, strconv.FormatInt(w.GameTime(), 10)); err != nil {
			return fmt.Errorf("save world: game time: %w", err)
		}

		for i, e := range w.Entities() {
			spec, err := marshalSpec(w.Spec(e))
			if err != nil {
				return err
			}
			own, err := marshalCompound(w.OwnData(e))
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO world_entities (uuid, ord, spec, data) VALUES (?, ?, ?, ?)`,
				e.UUID(), i, spec, own); err != nil {
				return fmt.Errorf("save world: entity %s: %w", e.UUID(), err)
			}
		}

		for _, b := range w.Blocks() {
			var text sql.NullString
			if b.Data != nil {
				c, err := marshalCompound(b.Data)
				if err != nil {
					return err
				}
				text = sql.NullString{String: c, Valid: true}
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO world_blocks (dimension, x, y, z, block, data) VALUES (?, ?, ?, ?, ?, ?)`,
				b.Dimension, b.Pos.X, b.Pos.Y, b.Pos.Z, b.Block, text); err != nil {
				return fmt.Errorf("save world: block %s: %w", b.Pos, err)
			}
		}

		for _, b := range w.Biomes() {
			if _, err := tx.ExecContext(ctx, `INSERT INTO world_biomes (dimension, x, y, z, biome) VALUES (?, ?, ?, ?, ?)`,
				b.Dimension, b.Pos.X, b.Pos.Y, b.Pos.Z, b.Biome); err != nil {
				return fmt.Errorf("save world: biome %s: %w", b.Pos, err)
			}
		}

		stopwatches := w.Stopwatches()
		for _, id := range slices.Sorted(maps.Keys(stopwatches)) {
			if _, err := tx.ExecContext(ctx, `INSERT INTO world_stopwatches (id, started) VALUES (?, ?)`,
				id, stopwatches[id]); err != nil {
				return fmt.Errorf("save world: stopwatch %s: %w", id, err)
			}
		}

		for _, name := range w.Objectives() {
			criteria, _ := w.Criteria(name)
			if _, err := tx.ExecContext(ctx, `INSERT INTO objectives (name, criteria) VALUES (?, ?)`, name, criteria); err != nil {
				return fmt.Errorf("save world: objective %s: %w", name, err)
			}
			for holder, v := range w.Scores(name) {
				if _, err := tx.ExecContext(ctx, `INSERT INTO scores (objective, holder, value) VALUES (?, ?, ?)`,
					name, holder, v); err != nil {
					return fmt.Errorf("save world: score %s %s: %w", name, holder, err)
				}
			}
		}

		for _, id := range w.StorageIDs() {
			ref := sink.DataRef{Kind: sink.RefStorage, ID: id}
			c, err := w.GetData(ref)
			if err != nil {
				return err
			}
			if err := writeData(tx, ref, c); err != nil {
				return err
			}
		}

		for _, b := range w.BossBars() {
			if _, err := tx.ExecContext(ctx, `INSERT INTO bossbars (id, name, value, max) VALUES (?, ?, ?, ?)`,
				b.ID, b.Name, b.Value, b.Max); err != nil {
				return fmt.Errorf("save world: bossbar %s: %w", b.ID, err)
			}
		}
		return nil
	})
}

// LoadWorld adds the stored world to w, which is normally empty. Scores of
// objectives the store never saw are loaded into new dummy objectives, and
// data sinks wrote for entities and blocks is merged over the snapshot.
func (s *Store) LoadWorld(ctx context.Context, w *world.World) error {
	var gameTime string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM world_meta WHERE key = ?`, gameTimeKey).Scan(&gameTime)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("load world: game time: %w", err)
	default:
		t, err := strconv.ParseInt(gameTime, 10, 64)
		if err != nil {
			return fmt.Errorf("load world: game time: %w", err)
		}
		w.Advance(t)
	}

	if err := s.loadEntities(ctx, w); err != nil {
		return err
	}
	if err := s.loadBlocks(ctx, w); err != nil {
		return err
	}
	if err := s.loadScores(ctx, w); err != nil {
		return err
	}
	if err := s.loadData(ctx, w); err != nil {
		return err
	}

	state := world.State{Stopwatches: map[string]int64{}}
	err = s.each(ctx, `SELECT id, name, value, max FROM bossbars ORDER BY id`, func(rows *sql.Rows) error {
		var b world.BossBarSpec
		if err := rows.Scan(&b.ID, &b.Name, &b.Value, &b.Max); err != nil {
			return err
		}
		state.BossBars = append(state.BossBars, b)
		return nil
	})
	if err != nil {
		return fmt.Errorf("load world: bossbars: %w", err)
	}
	err = s.each(ctx, `SELECT id, started FROM world_stopwatches`, func(rows *sql.Rows) error {
		var id string
		var started int64
		if err := rows.Scan(&id, &started); err != nil {
			return err
		}
		state.Stopwatches[id] = started
		return nil
	})
	if err != nil {
		return fmt.Errorf("load world: stopwatches: %w", err)
	}
	return w.Apply(state)
}

func (s *Store) loadEntities(ctx context.Context, w *world.World) error {
	type loaded struct {
		entity *world.Entity
		links  map[string]string
	}
	var spawned []loaded
	known := map[string]bool{}

	err := s.each(ctx, `SELECT spec, data FROM world_entities ORDER BY ord`, func(rows *sql.Rows) error {
		var specText, dataText string
		if err := rows.Scan(&specText, &dataText); err != nil {
			return err
		}
		spec, err := unmarshalSpec(specText)
		if err != nil {
			return err
		}
		own, err := unmarshalCompound(dataText)
		if err != nil {
			return err
		}
		links := spec.Links
		spec.Links = nil
		e, err := w.Spawn(spec)
		if err != nil {
			return err
		}
		w.ReplaceData(e, own)
		known[e.UUID()] = true
		spawned = append(spawned, loaded{entity: e, links: links})
		return nil
	})
	if err != nil {
		return fmt.Errorf("load world: entities: %w", err)
	}

	for _, l := range spawned {
		for _, rel := range slices.Sorted(maps.Keys(l.links)) {
			target := l.links[rel]
			if !known[target] {
				continue
			}
			r, err := world.ParseRelation(rel)
			if err != nil {
				return fmt.Errorf("load world: %w", err)
			}
			if err := w.Link(l.entity, r, target); err != nil {
				return fmt.Errorf("load world: %w", err)
			}
		}
	}
	return nil
}

func (s *Store) loadBlocks(ctx context.Context, w *world.World) error {
	err := s.each(ctx, `SELECT dimension, x, y, z, block, data FROM world_blocks`, func(rows *sql.Rows) error {
		var dim, block string
		var pos geom.BlockPos
		var text sql.NullString
		if err := rows.Scan(&dim, &pos.X, &pos.Y, &pos.Z, &block, &text); err != nil {
			return err
		}
		w.SetBlock(dim, pos, block)
		if !text.Valid {
			return nil
		}
		c, err := unmarshalCompound(text.String)
		if err != nil {
			return err
		}
		return w.MergeData(sink.DataRef{Kind: sink.RefBlock, Dimension: dim, Pos: pos}, c)
	})
	if err != nil {
		return fmt.Errorf("load world: blocks: %w", err)
	}

	err = s.each(ctx, `SELECT dimension, x, y, z, biome FROM world_biomes`, func(rows *sql.Rows) error {
		var dim, biome string
		var pos geom.BlockPos
		if err := rows.Scan(&dim, &pos.X, &pos.Y, &pos.Z, &biome); err != nil {
			return err
		}
		w.SetBiome(dim, pos, biome)
		return nil
	})
	if err != nil {
		return fmt.Errorf("load world: biomes: %w", err)
	}
	return nil
}

func (s *Store) loadScores(ctx context.Context, w *world.World) error {
	err := s.each(ctx, `SELECT name, criteria FROM objectives ORDER BY name`, func(rows *sql.Rows) error {
		var name, criteria string
		if err := rows.Scan(&name, &criteria); err != nil {
			return err
		}
		if w.HasObjective(name) {
			return nil
		}
		return w.AddObjective(name, criteria)
	})
	if err != nil {
		return fmt.Errorf("load world: objectives: %w", err)
	}

	err = s.each(ctx, `SELECT objective, holder, value FROM scores`, func(rows *sql.Rows) error {
		var objective, holder string
		var v int
		if err := rows.Scan(&objective, &holder, &v); err != nil {
			return err
		}
		if !w.HasObjective(objective) {
			if err := w.AddObjective(objective, ""); err != nil {
				return err
			}
		}
		return w.SetScore(objective, holder, v)
	})
	if err != nil {
		return fmt.Errorf("load world: scores: %w", err)
	}
	return nil
}

func (s *Store) loadData(ctx context.Context, w *world.World) error {
	err := s.each(ctx, `SELECT kind, ref_id, dimension, x, y, z, value FROM data ORDER BY ref_key`, func(rows *sql.Rows) error {
		var kind, text string
		var ref sink.DataRef
		if err := rows.Scan(&kind, &ref.ID, &ref.Dimension, &ref.Pos.X, &ref.Pos.Y, &ref.Pos.Z, &text); err != nil {
			return err
		}
		k, err := sink.ParseRefKind(kind)
		if err != nil {
			return err
		}
		ref.Kind = k
		c, err := unmarshalCompound(text)
		if err != nil {
			return err
		}
		if err := w.MergeData(ref, c); err != nil && k == sink.RefStorage {
			return err
		}
		// Entity and block data whose holder is gone is dropped.
		return nil
	})
	if err != nil {
		return fmt.Errorf("load world: data: %w", err)
	}
	return nil
}

// each runs fn for every row of query.
func (s *Store) each(ctx context.Context, query string, fn func(rows *sql.Rows) error) error {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}
