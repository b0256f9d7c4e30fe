package world

import (
	"fmt"
	"log/slog"
	"maps"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/chainexec/internal/data"
	"github.com/roach88/chainexec/internal/engine"
	"github.com/roach88/chainexec/internal/geom"
	"github.com/roach88/chainexec/internal/sink"
)

const (
	// Air is the block of every position never set.
	Air = "minecraft:air"
	// DefaultBiome is the biome of every position never set.
	DefaultBiome = "minecraft:plains"
	// TicksPerSecond converts game time to stopwatch seconds.
	TicksPerSecond = 20
)

var defaultEyeHeights = map[string]float64{
	PlayerType:                1.62,
	"minecraft:cow":           1.3,
	"minecraft:pig":           0.765,
	"minecraft:zombie":        1.74,
	"minecraft:armor_stand":   1.7775,
	"minecraft:marker":        0,
	"minecraft:item_display":  0,
	"minecraft:block_display": 0,
}

type blockKey struct {
	dim string
	pos geom.BlockPos
}

// Objective is a scoreboard objective.
type Objective struct {
	Name     string
	Criteria string
	scores   map[string]int
}

// BossBar is a boss bar.
type BossBar struct {
	ID    string
	Name  string
	Value int
	Max   int
}

// World is an in-memory game state: entities, blocks, biomes, scores,
// data storages, boss bars, stopwatches and the game clock.
//
// All methods are safe for concurrent use.
type World struct {
	mu     sync.RWMutex
	logger *slog.Logger
	newID  func() string
	rng    *rand.Rand

	gameTime    int64
	order       []string
	entities    map[string]*Entity
	blocks      map[blockKey]string
	blockData   map[blockKey]data.Compound
	biomes      map[blockKey]string
	objectives  map[string]*Objective
	storage     map[string]data.Compound
	bossBars    map[string]*BossBar
	stopwatches map[string]int64
}

// Option configures a World.
type Option func(*World)

// WithIDs sets the UUID source of spawned entities. Default: random UUIDs.
func WithIDs(f func() string) Option {
	return func(w *World) {
		w.newID = f
	}
}

// WithSeed seeds the random source used by @r and sort=random.
func WithSeed(seed uint64) Option {
	return func(w *World) {
		w.rng = rand.New(rand.NewPCG(seed, seed))
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(w *World) {
		w.logger = l
	}
}

// New creates an empty world.
func New(opts ...Option) *World {
	w := &World{
		logger:      slog.Default(),
		newID:       uuid.NewString,
		rng:         rand.New(rand.NewPCG(0, 0)),
		entities:    make(map[string]*Entity),
		blocks:      make(map[blockKey]string),
		blockData:   make(map[blockKey]data.Compound),
		biomes:      make(map[blockKey]string),
		objectives:  make(map[string]*Objective),
		storage:     make(map[string]data.Compound),
		bossBars:    make(map[string]*BossBar),
		stopwatches: make(map[string]int64),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// EntitySpec describes an entity to spawn.
type EntitySpec struct {
	UUID      string         `yaml:"uuid,omitempty" json:"uuid,omitempty"`
	Type      string         `yaml:"type" json:"type"`
	Name      string         `yaml:"name,omitempty" json:"name,omitempty"`
	Pos       [3]float64     `yaml:"pos" json:"pos"`
	Rotation  [2]float64     `yaml:"rotation,omitempty" json:"rotation,omitempty"`
	Dimension string         `yaml:"dimension,omitempty" json:"dimension,omitempty"`
	Tags      []string       `yaml:"tags,omitempty" json:"tags,omitempty"`
	Data      map[string]any `yaml:"data,omitempty" json:"data,omitempty"`
	Items     []ItemStack    `yaml:"items,omitempty" json:"items,omitempty"`
	// Links maps relation names to the UUID or name of the related
	// entity. "vehicle" also makes this entity a passenger.
	Links map[string]string `yaml:"links,omitempty" json:"links,omitempty"`
}

// Spawn adds an entity. Links are resolved by Link; Spawn ignores them.
func (w *World) Spawn(spec EntitySpec) (*Entity, error) {
	if spec.Type == "" {
		return nil, fmt.Errorf("spawn: entity type required")
	}
	if spec.Type == PlayerType && spec.Name == "" {
		return nil, fmt.Errorf("spawn: players need a name")
	}
	d := data.Compound{}
	if spec.Data != nil {
		c, err := data.CompoundFromMap(spec.Data)
		if err != nil {
			return nil, fmt.Errorf("spawn %s: %w", spec.Type, err)
		}
		d = c
	}
	dim := spec.Dimension
	if dim == "" {
		dim = engine.DefaultDimension
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	id := spec.UUID
	if id == "" {
		id = w.newID()
	}
	if _, dup := w.entities[id]; dup {
		return nil, fmt.Errorf("spawn: duplicate uuid %s", id)
	}
	e := &Entity{
		mu:    &w.mu,
		id:    id,
		typ:   spec.Type,
		name:  spec.Name,
		pos:   geom.Vec3{X: spec.Pos[0], Y: spec.Pos[1], Z: spec.Pos[2]},
		rot:   geom.Rotation{Yaw: spec.Rotation[0], Pitch: spec.Rotation[1]},
		dim:   dim,
		eye:   defaultEyeHeights[spec.Type],
		tags:  make(map[string]struct{}),
		data:  d,
		items: slices.Clone(spec.Items),
		links: make(map[Relation]string),
	}
	for _, t := range spec.Tags {
		e.tags[t] = struct{}{}
	}
	w.entities[id] = e
	w.order = append(w.order, id)
	w.logger.Debug("entity spawned", "uuid", id, "type", spec.Type, "pos", e.pos)
	return e, nil
}

// Link connects e to the entity ref (a UUID or a name) by rel. Linking a
// vehicle also adds e to the vehicle's passengers.
func (w *World) Link(e *Entity, rel Relation, ref string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	other := w.lookupLocked(ref)
	if other == nil {
		return fmt.Errorf("link %s: no entity %q", rel, ref)
	}
	switch rel {
	case RelationPassengers:
		return w.mountLocked(other, e)
	case RelationVehicle:
		return w.mountLocked(e, other)
	}
	e.links[rel] = other.id
	return nil
}

func (w *World) mountLocked(passenger, vehicle *Entity) error {
	if passenger == vehicle {
		return fmt.Errorf("entity %s cannot ride itself", passenger.id)
	}
	if old, ok := passenger.links[RelationVehicle]; ok {
		if v := w.entities[old]; v != nil {
			v.passengers = slices.DeleteFunc(v.passengers, func(id string) bool { return id == passenger.id })
		}
	}
	passenger.links[RelationVehicle] = vehicle.id
	vehicle.passengers = append(vehicle.passengers, passenger.id)
	return nil
}

func (w *World) lookupLocked(ref string) *Entity {
	if e, ok := w.entities[ref]; ok {
		return e
	}
	for _, id := range w.order {
		if e := w.entities[id]; e.name == ref {
			return e
		}
	}
	return nil
}

// Entity returns the entity with the given UUID, removed or not.
func (w *World) Entity(id string) (*Entity, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	e, ok := w.entities[id]
	return e, ok
}

// Entities returns the live entities in spawn order.
func (w *World) Entities() []*Entity {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.liveLocked()
}

func (w *World) liveLocked() []*Entity {
	out := make([]*Entity, 0, len(w.order))
	for _, id := range w.order {
		if e := w.entities[id]; !e.removed {
			out = append(out, e)
		}
	}
	return out
}

// Related returns the entities e is linked to by rel. Removed entities and
// dangling links yield nothing.
func (w *World) Related(e *Entity, rel Relation) []*Entity {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var ids []string
	if rel == RelationPassengers {
		ids = e.passengers
	} else if id, ok := e.links[rel]; ok {
		ids = []string{id}
	}
	var out []*Entity
	for _, id := range ids {
		if o, ok := w.entities[id]; ok && !o.removed {
			out = append(out, o)
		}
	}
	return out
}

// Kill removes e. Its passengers dismount.
func (w *World) Kill(e *Entity) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if e.removed {
		return
	}
	e.removed = true
	for _, id := range e.passengers {
		if p := w.entities[id]; p != nil {
			delete(p.links, RelationVehicle)
		}
	}
	e.passengers = nil
	w.logger.Debug("entity killed", "uuid", e.id, "type", e.typ)
}

// Teleport moves e.
func (w *World) Teleport(e *Entity, pos geom.Vec3, rot geom.Rotation, dim string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	e.pos, e.rot, e.dim = pos, rot, dim
}

// SetTag adds or removes a tag and reports whether anything changed.
func (w *World) SetTag(e *Entity, tag string, present bool) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, had := e.tags[tag]
	if present {
		e.tags[tag] = struct{}{}
	} else {
		delete(e.tags, tag)
	}
	return had != present
}

// GiveItem adds count items to the first slot holding item, or a new slot.
func (w *World) GiveItem(e *Entity, item string, count int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := range e.items {
		if e.items[i].Item == item {
			e.items[i].Count += count
			return
		}
	}
	e.items = append(e.items, ItemStack{Slot: fmt.Sprintf("inventory.%d", len(e.items)), Item: item, Count: count})
}

// ClearItems removes up to max items matching item ("" = any) and returns
// how many were removed. A negative max removes all.
func (w *World) ClearItems(e *Entity, item string, max int) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	removed := 0
	kept := e.items[:0]
	for _, st := range e.items {
		if item != "" && st.Item != item {
			kept = append(kept, st)
			continue
		}
		take := st.Count
		if max >= 0 && removed+take > max {
			take = max - removed
		}
		removed += take
		if st.Count-take > 0 {
			st.Count -= take
			kept = append(kept, st)
		}
	}
	e.items = kept
	return removed
}

// BlockAt returns the block at pos.
func (w *World) BlockAt(dim string, pos geom.BlockPos) string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if b, ok := w.blocks[blockKey{dim, pos}]; ok {
		return b
	}
	return Air
}

// SetBlock places block at pos and reports whether it changed. Placing a
// different block clears the block entity data.
func (w *World) SetBlock(dim string, pos geom.BlockPos, block string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	k := blockKey{dim, pos}
	old, ok := w.blocks[k]
	if !ok {
		old = Air
	}
	if old == block {
		return false
	}
	if block == Air {
		delete(w.blocks, k)
	} else {
		w.blocks[k] = block
	}
	delete(w.blockData, k)
	return true
}

// BiomeAt returns the biome at pos.
func (w *World) BiomeAt(dim string, pos geom.BlockPos) string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if b, ok := w.biomes[blockKey{dim, pos}]; ok {
		return b
	}
	return DefaultBiome
}

// SetBiome sets the biome of pos.
func (w *World) SetBiome(dim string, pos geom.BlockPos, biome string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.biomes[blockKey{dim, pos}] = biome
}

// AddObjective creates an objective.
func (w *World) AddObjective(name, criteria string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.objectives[name]; ok {
		return fmt.Errorf("An objective already exists by that name")
	}
	if criteria == "" {
		criteria = "dummy"
	}
	w.objectives[name] = &Objective{Name: name, Criteria: criteria, scores: make(map[string]int)}
	return nil
}

// HasObjective reports whether the objective exists.
func (w *World) HasObjective(name string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.objectives[name]
	return ok
}

// Objectives returns the objective names, sorted.
func (w *World) Objectives() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return slices.Sorted(maps.Keys(w.objectives))
}

// Score returns the score of holder, if set.
func (w *World) Score(objective, holder string) (int, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	o, ok := w.objectives[objective]
	if !ok {
		return 0, false
	}
	v, ok := o.scores[holder]
	return v, ok
}

// Scores returns a copy of every score of the objective.
func (w *World) Scores(objective string) map[string]int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	o, ok := w.objectives[objective]
	if !ok {
		return nil
	}
	return maps.Clone(o.scores)
}

// SetScore sets a score. It implements sink.Scoreboard.
func (w *World) SetScore(objective, holder string, value int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	o, ok := w.objectives[objective]
	if !ok {
		return fmt.Errorf("Unknown scoreboard objective '%s'", objective)
	}
	o.scores[holder] = value
	return nil
}

// ResetScore removes a score and reports whether it existed.
func (w *World) ResetScore(objective, holder string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	o, ok := w.objectives[objective]
	if !ok {
		return false
	}
	_, had := o.scores[holder]
	delete(o.scores, holder)
	return had
}

// GetData returns a copy of the compound ref names.
func (w *World) GetData(ref sink.DataRef) (data.Compound, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	switch ref.Kind {
	case sink.RefEntity:
		e, ok := w.entities[ref.ID]
		if !ok || e.removed {
			return nil, engine.NewEntityNotFound()
		}
		return e.dataLocked(), nil
	case sink.RefBlock:
		k := blockKey{ref.Dimension, ref.Pos}
		c, ok := w.blockData[k]
		if !ok {
			if _, placed := w.blocks[k]; !placed {
				return nil, engine.NewCommandFailed("The target block is not a block entity")
			}
			return data.Compound{}, nil
		}
		return c.Clone(), nil
	case sink.RefStorage:
		return w.storage[ref.ID].Clone(), nil
	}
	return nil, fmt.Errorf("unknown data ref %v", ref)
}

// SetData writes v at path inside the compound ref names. It implements
// sink.DataStorage.
func (w *World) SetData(ref sink.DataRef, path data.Path, v data.Value) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	root, err := w.mutableLocked(ref)
	if err != nil {
		return err
	}
	return path.Set(root, v)
}

// MergeData merges the keys of c into the compound ref names.
func (w *World) MergeData(ref sink.DataRef, c data.Compound) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	root, err := w.mutableLocked(ref)
	if err != nil {
		return err
	}
	for k, v := range c {
		root[k] = data.Clone(v)
	}
	return nil
}

func (w *World) mutableLocked(ref sink.DataRef) (data.Compound, error) {
	switch ref.Kind {
	case sink.RefEntity:
		e, ok := w.entities[ref.ID]
		if !ok || e.removed {
			return nil, engine.NewEntityNotFound()
		}
		return e.data, nil
	case sink.RefBlock:
		k := blockKey{ref.Dimension, ref.Pos}
		if _, placed := w.blocks[k]; !placed {
			return nil, engine.NewCommandFailed("The target block is not a block entity")
		}
		c, ok := w.blockData[k]
		if !ok {
			c = data.Compound{}
			w.blockData[k] = c
		}
		return c, nil
	case sink.RefStorage:
		c, ok := w.storage[ref.ID]
		if !ok {
			c = data.Compound{}
			w.storage[ref.ID] = c
		}
		return c, nil
	}
	return nil, fmt.Errorf("unknown data ref %v", ref)
}

// StorageIDs returns the ids of every data storage, sorted.
func (w *World) StorageIDs() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return slices.Sorted(maps.Keys(w.storage))
}

// AddBossBar creates a boss bar with value 0 and max 100.
func (w *World) AddBossBar(id, name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.bossBars[id]; ok {
		return fmt.Errorf("A bossbar already exists with the ID '%s'", id)
	}
	w.bossBars[id] = &BossBar{ID: id, Name: name, Max: 100}
	return nil
}

// BossBar returns a copy of a boss bar.
func (w *World) BossBar(id string) (BossBar, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	b, ok := w.bossBars[id]
	if !ok {
		return BossBar{}, false
	}
	return *b, true
}

// SetBossBar sets the value or maximum of a boss bar. It implements
// sink.BossBars.
func (w *World) SetBossBar(id string, maximum bool, value int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.bossBars[id]
	if !ok {
		return fmt.Errorf("No bossbar exists with the ID '%s'", id)
	}
	if maximum {
		b.Max = max(value, 1)
	} else {
		b.Value = value
	}
	return nil
}

// GameTime is the number of ticks since the world was created.
func (w *World) GameTime() int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.gameTime
}

// Advance moves the game clock forward.
func (w *World) Advance(ticks int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.gameTime += ticks
}

// StartStopwatch creates or restarts a stopwatch at the current game time.
func (w *World) StartStopwatch(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopwatches[id] = w.gameTime
}

// Stopwatch returns the seconds elapsed on a stopwatch.
func (w *World) Stopwatch(id string) (float64, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	start, ok := w.stopwatches[id]
	if !ok {
		return 0, false
	}
	return float64(w.gameTime-start) / TicksPerSecond, true
}

// RemoveStopwatch deletes a stopwatch and reports whether it existed.
func (w *World) RemoveStopwatch(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.stopwatches[id]
	delete(w.stopwatches, id)
	return ok
}

func (w *World) shuffle(es []*Entity) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rng.Shuffle(len(es), func(i, j int) { es[i], es[j] = es[j], es[i] })
}

var (
	_ sink.Scoreboard  = (*World)(nil)
	_ sink.DataStorage = (*World)(nil)
	_ sink.BossBars    = (*World)(nil)
)
