package world

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/chainexec/internal/data"
	"github.com/roach88/chainexec/internal/engine"
	"github.com/roach88/chainexec/internal/geom"
	"github.com/roach88/chainexec/internal/sink"
)

// State is a declarative world description, as written in scenario files.
type State struct {
	GameTime    int64                     `yaml:"game_time,omitempty" json:"game_time,omitempty"`
	Entities    []EntitySpec              `yaml:"entities,omitempty" json:"entities,omitempty"`
	Blocks      []BlockSpec               `yaml:"blocks,omitempty" json:"blocks,omitempty"`
	Biomes      []BiomeSpec               `yaml:"biomes,omitempty" json:"biomes,omitempty"`
	Objectives  []ObjectiveSpec           `yaml:"objectives,omitempty" json:"objectives,omitempty"`
	Storage     map[string]map[string]any `yaml:"storage,omitempty" json:"storage,omitempty"`
	BossBars    []BossBarSpec             `yaml:"bossbars,omitempty" json:"bossbars,omitempty"`
	Stopwatches map[string]int64          `yaml:"stopwatches,omitempty" json:"stopwatches,omitempty"`
}

// BlockSpec places a block.
type BlockSpec struct {
	Pos       [3]int         `yaml:"pos" json:"pos"`
	Dimension string         `yaml:"dimension,omitempty" json:"dimension,omitempty"`
	Block     string         `yaml:"block" json:"block"`
	Data      map[string]any `yaml:"data,omitempty" json:"data,omitempty"`
}

// BiomeSpec sets the biome of a box.
type BiomeSpec struct {
	From      [3]int `yaml:"from" json:"from"`
	To        [3]int `yaml:"to" json:"to"`
	Dimension string `yaml:"dimension,omitempty" json:"dimension,omitempty"`
	Biome     string `yaml:"biome" json:"biome"`
}

// ObjectiveSpec creates an objective with initial scores.
type ObjectiveSpec struct {
	Name     string         `yaml:"name" json:"name"`
	Criteria string         `yaml:"criteria,omitempty" json:"criteria,omitempty"`
	Scores   map[string]int `yaml:"scores,omitempty" json:"scores,omitempty"`
}

// BossBarSpec creates a boss bar.
type BossBarSpec struct {
	ID    string `yaml:"id" json:"id"`
	Name  string `yaml:"name,omitempty" json:"name,omitempty"`
	Value int    `yaml:"value,omitempty" json:"value,omitempty"`
	Max   int    `yaml:"max,omitempty" json:"max,omitempty"`
}

func blockPos(p [3]int) geom.BlockPos { return geom.BlockPos{X: p[0], Y: p[1], Z: p[2]} }

func dimension(d string) string {
	if d == "" {
		return engine.DefaultDimension
	}
	return d
}

// Apply adds everything s describes to w. Entity links are resolved after
// every entity exists, so they may refer forward.
func (w *World) Apply(s State) error {
	w.Advance(s.GameTime)

	spawned := make([]*Entity, len(s.Entities))
	for i, spec := range s.Entities {
		e, err := w.Spawn(spec)
		if err != nil {
			return fmt.Errorf("entities[%d]: %w", i, err)
		}
		spawned[i] = e
	}
	for i, spec := range s.Entities {
		for _, name := range slices.Sorted(maps.Keys(spec.Links)) {
			rel, err := ParseRelation(name)
			if err != nil {
				return fmt.Errorf("entities[%d]: %w", i, err)
			}
			if err := w.Link(spawned[i], rel, spec.Links[name]); err != nil {
				return fmt.Errorf("entities[%d]: %w", i, err)
			}
		}
	}

	for i, b := range s.Blocks {
		dim, pos := dimension(b.Dimension), blockPos(b.Pos)
		w.SetBlock(dim, pos, b.Block)
		if b.Data != nil {
			c, err := data.CompoundFromMap(b.Data)
			if err != nil {
				return fmt.Errorf("blocks[%d]: %w", i, err)
			}
			if err := w.MergeData(sink.DataRef{Kind: sink.RefBlock, Dimension: dim, Pos: pos}, c); err != nil {
				return fmt.Errorf("blocks[%d]: %w", i, err)
			}
		}
	}

	for _, b := range s.Biomes {
		dim := dimension(b.Dimension)
		geom.BoxOf(blockPos(b.From), blockPos(b.To)).Each(func(p geom.BlockPos) {
			w.SetBiome(dim, p, b.Biome)
		})
	}

	for i, o := range s.Objectives {
		if err := w.AddObjective(o.Name, o.Criteria); err != nil {
			return fmt.Errorf("objectives[%d]: %w", i, err)
		}
		for holder, v := range o.Scores {
			if err := w.SetScore(o.Name, holder, v); err != nil {
				return fmt.Errorf("objectives[%d]: %w", i, err)
			}
		}
	}

	for _, id := range slices.Sorted(maps.Keys(s.Storage)) {
		c, err := data.CompoundFromMap(s.Storage[id])
		if err != nil {
			return fmt.Errorf("storage %s: %w", id, err)
		}
		if err := w.MergeData(sink.DataRef{Kind: sink.RefStorage, ID: id}, c); err != nil {
			return fmt.Errorf("storage %s: %w", id, err)
		}
	}

	for i, b := range s.BossBars {
		if err := w.AddBossBar(b.ID, b.Name); err != nil {
			return fmt.Errorf("bossbars[%d]: %w", i, err)
		}
		if b.Max > 0 {
			_ = w.SetBossBar(b.ID, true, b.Max)
		}
		_ = w.SetBossBar(b.ID, false, b.Value)
	}

	w.mu.Lock()
	for id, started := range s.Stopwatches {
		w.stopwatches[id] = started
	}
	w.mu.Unlock()
	return nil
}

// PlacedBlock is a non-air block with its block entity data.
type PlacedBlock struct {
	Dimension string
	Pos       geom.BlockPos
	Block     string
	Data      data.Compound
}

// Blocks returns every placed block, ordered by dimension and position.
func (w *World) Blocks() []PlacedBlock {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]PlacedBlock, 0, len(w.blocks))
	for k, b := range w.blocks {
		pb := PlacedBlock{Dimension: k.dim, Pos: k.pos, Block: b}
		if c, ok := w.blockData[k]; ok {
			pb.Data = c.Clone()
		}
		out = append(out, pb)
	}
	slices.SortFunc(out, func(a, b PlacedBlock) int {
		return comparePos(a.Dimension, a.Pos, b.Dimension, b.Pos)
	})
	return out
}

// Stopwatches returns the start tick of every stopwatch.
func (w *World) Stopwatches() map[string]int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return maps.Clone(w.stopwatches)
}

// Spec describes a live entity without its data compound, in the form
// Spawn accepts. Links name related entities by UUID.
func (w *World) Spec(e *Entity) EntitySpec {
	w.mu.RLock()
	defer w.mu.RUnlock()
	spec := EntitySpec{
		UUID:      e.id,
		Type:      e.typ,
		Name:      e.name,
		Pos:       [3]float64{e.pos.X, e.pos.Y, e.pos.Z},
		Rotation:  [2]float64{e.rot.Yaw, e.rot.Pitch},
		Dimension: e.dim,
		Tags:      e.tagsLocked(),
		Items:     slices.Clone(e.items),
	}
	for rel, id := range e.links {
		if spec.Links == nil {
			spec.Links = make(map[string]string)
		}
		spec.Links[string(rel)] = id
	}
	return spec
}

// OwnData returns a copy of the data compound of e without the identity
// fields Data adds.
func (w *World) OwnData(e *Entity) data.Compound {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return e.data.Clone()
}

// ReplaceData replaces the data compound of e.
func (w *World) ReplaceData(e *Entity, c data.Compound) {
	w.mu.Lock()
	defer w.mu.Unlock()
	e.data = c.Clone()
}

// PlacedBiome is the biome of one position.
type PlacedBiome struct {
	Dimension string
	Pos       geom.BlockPos
	Biome     string
}

// Biomes returns every explicitly set biome, ordered by dimension and
// position.
func (w *World) Biomes() []PlacedBiome {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]PlacedBiome, 0, len(w.biomes))
	for k, b := range w.biomes {
		out = append(out, PlacedBiome{Dimension: k.dim, Pos: k.pos, Biome: b})
	}
	slices.SortFunc(out, func(a, b PlacedBiome) int {
		return comparePos(a.Dimension, a.Pos, b.Dimension, b.Pos)
	})
	return out
}

// BossBars returns a copy of every boss bar, ordered by id.
func (w *World) BossBars() []BossBar {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]BossBar, 0, len(w.bossBars))
	for _, id := range slices.Sorted(maps.Keys(w.bossBars)) {
		out = append(out, *w.bossBars[id])
	}
	return out
}

// Criteria returns the criteria of an objective.
func (w *World) Criteria(objective string) (string, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	o, ok := w.objectives[objective]
	if !ok {
		return "", false
	}
	return o.Criteria, true
}

func comparePos(dimA string, a geom.BlockPos, dimB string, b geom.BlockPos) int {
	if c := strings.Compare(dimA, dimB); c != 0 {
		return c
	}
	if a.Y != b.Y {
		return a.Y - b.Y
	}
	if a.Z != b.Z {
		return a.Z - b.Z
	}
	return a.X - b.X
}
