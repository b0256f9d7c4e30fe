package world

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/roach88/chainexec/internal/data"
	"github.com/roach88/chainexec/internal/geom"
)

// PlayerType is the entity type selected by @a, @p and @r.
const PlayerType = "minecraft:player"

// Relation names an entity-to-entity link followed by "on".
type Relation string

const (
	RelationOwner      Relation = "owner"
	RelationLeasher    Relation = "leasher"
	RelationTarget     Relation = "target"
	RelationAttacker   Relation = "attacker"
	RelationVehicle    Relation = "vehicle"
	RelationController Relation = "controller"
	RelationOrigin     Relation = "origin"
	RelationPassengers Relation = "passengers"
)

var relations = []Relation{
	RelationOwner, RelationLeasher, RelationTarget, RelationAttacker,
	RelationVehicle, RelationController, RelationOrigin, RelationPassengers,
}

// ParseRelation parses a relation name.
func ParseRelation(s string) (Relation, error) {
	r := Relation(s)
	if slices.Contains(relations, r) {
		return r, nil
	}
	return "", fmt.Errorf("unknown relation %q", s)
}

// ItemStack is a stack of items held in a named slot.
type ItemStack struct {
	Slot  string `yaml:"slot" json:"slot"`
	Item  string `yaml:"item" json:"item"`
	Count int    `yaml:"count" json:"count"`
}

// Entity is an entity of the world. Its fields are changed only through
// World methods, under the world lock, and the accessors of its mutable
// state read under the same lock.
type Entity struct {
	mu      *sync.RWMutex
	id      string
	typ     string
	name    string
	pos     geom.Vec3
	rot     geom.Rotation
	dim     string
	eye     float64
	tags    map[string]struct{}
	data    data.Compound
	items   []ItemStack
	removed bool

	links      map[Relation]string
	passengers []string
}

func (e *Entity) UUID() string       { return e.id }
func (e *Entity) Type() string       { return e.typ }
func (e *Entity) EyeHeight() float64 { return e.eye }

func (e *Entity) Position() geom.Vec3 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pos
}

func (e *Entity) Rotation() geom.Rotation {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rot
}

func (e *Entity) Dimension() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dim
}

func (e *Entity) Removed() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.removed
}

// Name is the custom name, or the capitalized type path ("Cow").
func (e *Entity) Name() string {
	if e.name != "" {
		return e.name
	}
	path := e.typ
	if i := strings.IndexByte(path, ':'); i >= 0 {
		path = path[i+1:]
	}
	if path == "" {
		return ""
	}
	return strings.ToUpper(path[:1]) + strings.ReplaceAll(path[1:], "_", " ")
}

// IsPlayer reports whether e is a player.
func (e *Entity) IsPlayer() bool { return e.typ == PlayerType }

// ScoreHolder is the name scores of e are kept under: the name of a
// player, the UUID of anything else.
func (e *Entity) ScoreHolder() string {
	if e.IsPlayer() {
		return e.name
	}
	return e.id
}

// HasTag reports whether e carries tag.
func (e *Entity) HasTag(tag string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.tags[tag]
	return ok
}

// Tags returns the tags of e, sorted.
func (e *Entity) Tags() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tagsLocked()
}

func (e *Entity) tagsLocked() []string {
	out := make([]string, 0, len(e.tags))
	for t := range e.tags {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// Items returns a copy of the item stacks of e.
func (e *Entity) Items() []ItemStack {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.items)
}

// Data returns a copy of the data compound of e with its position and
// identity fields filled in.
func (e *Entity) Data() data.Compound {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dataLocked()
}

func (e *Entity) dataLocked() data.Compound {
	out := e.data.Clone()
	out["id"] = data.String(e.typ)
	out["UUID"] = data.String(e.id)
	out["Pos"] = data.List{data.Double(e.pos.X), data.Double(e.pos.Y), data.Double(e.pos.Z)}
	out["Rotation"] = data.List{data.Float(e.rot.Yaw), data.Float(e.rot.Pitch)}
	if e.name != "" {
		out["CustomName"] = data.String(e.name)
	}
	if len(e.tags) > 0 {
		tags := make(data.List, 0, len(e.tags))
		for _, t := range e.tagsLocked() {
			tags = append(tags, data.String(t))
		}
		out["Tags"] = tags
	}
	return out
}

func (e *Entity) String() string {
	return fmt.Sprintf("%s[%s] at %s", e.typ, e.Name(), e.Position())
}
