// Package redirect provides the producers of execute's context-changing
// subcommands.
//
// One-to-one producers (positioned, rotated, facing, in, anchored, align,
// summon) derive exactly one source and do not fork. Producers driven by a
// selector or an entity relation (as, at, positioned as, rotated as, facing
// entity, on) fork: they derive zero or more sources and switch the chain
// into forked mode, where the engine strips callbacks from every child.
package redirect

import (
	"fmt"
	"math"
	"strings"

	"github.com/roach88/chainexec/internal/engine"
	"github.com/roach88/chainexec/internal/geom"
	"github.com/roach88/chainexec/internal/world"
)

// each derives one source per selected entity.
func each(w *world.World, sel *world.Selector, src engine.Source, derive func(engine.Source, *world.Entity) engine.Source) []engine.Source {
	es := sel.Select(w, src)
	out := make([]engine.Source, len(es))
	for i, e := range es {
		out[i] = derive(src, e)
	}
	return out
}

// As runs as every selected entity, keeping the position.
type As struct {
	World    *world.World
	Selector *world.Selector
}

func (p As) Expand(src engine.Source) ([]engine.Source, error) {
	return each(p.World, p.Selector, src, func(s engine.Source, e *world.Entity) engine.Source {
		return s.WithEntity(e)
	}), nil
}

func (As) Forks() bool { return true }

// At moves to the position, rotation and dimension of every selected
// entity, keeping the executor.
type At struct {
	World    *world.World
	Selector *world.Selector
}

func (p At) Expand(src engine.Source) ([]engine.Source, error) {
	return each(p.World, p.Selector, src, func(s engine.Source, e *world.Entity) engine.Source {
		return s.At(e)
	}), nil
}

func (At) Forks() bool { return true }

// Positioned moves to coordinates and resets the anchor to the feet.
type Positioned struct {
	Pos geom.Coordinates
}

func (p Positioned) Expand(src engine.Source) ([]engine.Source, error) {
	return []engine.Source{src.WithPosition(world.Resolve(src, p.Pos)).WithAnchor(engine.AnchorFeet)}, nil
}

func (Positioned) Forks() bool { return false }

// PositionedAs moves to the position of every selected entity.
type PositionedAs struct {
	World    *world.World
	Selector *world.Selector
}

func (p PositionedAs) Expand(src engine.Source) ([]engine.Source, error) {
	return each(p.World, p.Selector, src, func(s engine.Source, e *world.Entity) engine.Source {
		return s.WithPosition(e.Position())
	}), nil
}

func (PositionedAs) Forks() bool { return true }

// Rotated sets the rotation, each part absolute or relative.
type Rotated struct {
	Rotation geom.RotationArg
}

func (p Rotated) Expand(src engine.Source) ([]engine.Source, error) {
	return []engine.Source{src.WithRotation(p.Rotation.Resolve(src.Rotation()))}, nil
}

func (Rotated) Forks() bool { return false }

// RotatedAs takes the rotation of every selected entity.
type RotatedAs struct {
	World    *world.World
	Selector *world.Selector
}

func (p RotatedAs) Expand(src engine.Source) ([]engine.Source, error) {
	return each(p.World, p.Selector, src, func(s engine.Source, e *world.Entity) engine.Source {
		return s.WithRotation(e.Rotation())
	}), nil
}

func (RotatedAs) Forks() bool { return true }

// Facing turns the source toward a position, measured from its anchor.
type Facing struct {
	Pos geom.Coordinates
}

func (p Facing) Expand(src engine.Source) ([]engine.Source, error) {
	target := world.Resolve(src, p.Pos)
	return []engine.Source{src.WithRotation(geom.Facing(src.AnchorPosition(), target))}, nil
}

func (Facing) Forks() bool { return false }

// FacingEntity turns the source toward the feet or eyes of every selected
// entity.
type FacingEntity struct {
	World    *world.World
	Selector *world.Selector
	Anchor   engine.Anchor
}

func (p FacingEntity) Expand(src engine.Source) ([]engine.Source, error) {
	from := src.AnchorPosition()
	return each(p.World, p.Selector, src, func(s engine.Source, e *world.Entity) engine.Source {
		target := e.Position()
		if p.Anchor == engine.AnchorEyes {
			target = target.Add(geom.Vec3{Y: e.EyeHeight()})
		}
		return s.WithRotation(geom.Facing(from, target))
	}), nil
}

func (FacingEntity) Forks() bool { return true }

// coordinateScale is how many overworld blocks one block of a dimension
// spans horizontally.
var coordinateScale = map[string]float64{
	"minecraft:the_nether": 8,
}

func scaleOf(dim string) float64 {
	if s, ok := coordinateScale[dim]; ok {
		return s
	}
	return 1
}

// In switches dimension. The horizontal position is rescaled between
// dimensions of different coordinate scale.
type In struct {
	Dimension string
}

func (p In) Expand(src engine.Source) ([]engine.Source, error) {
	pos := src.Position()
	if f := scaleOf(src.Dimension()) / scaleOf(p.Dimension); f != 1 {
		pos = geom.Vec3{X: pos.X * f, Y: pos.Y, Z: pos.Z * f}
	}
	return []engine.Source{src.WithDimension(p.Dimension).WithPosition(pos)}, nil
}

func (In) Forks() bool { return false }

// Anchored sets the anchor local coordinates and facing use.
type Anchored struct {
	Anchor engine.Anchor
}

func (p Anchored) Expand(src engine.Source) ([]engine.Source, error) {
	return []engine.Source{src.WithAnchor(p.Anchor)}, nil
}

func (Anchored) Forks() bool { return false }

// Align floors the named axes of the position ("xz", "xyz").
type Align struct {
	Axes string
}

// ParseAxes validates an axis swizzle: one to three distinct letters of
// x, y and z.
func ParseAxes(s string) (string, error) {
	if s == "" || len(s) > 3 {
		return "", fmt.Errorf("invalid swizzle %q", s)
	}
	for i, r := range s {
		if !strings.ContainsRune("xyz", r) || strings.ContainsRune(s[:i], r) {
			return "", fmt.Errorf("invalid swizzle %q", s)
		}
	}
	return s, nil
}

func (p Align) Expand(src engine.Source) ([]engine.Source, error) {
	pos := src.Position()
	if strings.ContainsRune(p.Axes, 'x') {
		pos.X = math.Floor(pos.X)
	}
	if strings.ContainsRune(p.Axes, 'y') {
		pos.Y = math.Floor(pos.Y)
	}
	if strings.ContainsRune(p.Axes, 'z') {
		pos.Z = math.Floor(pos.Z)
	}
	return []engine.Source{src.WithPosition(pos)}, nil
}

func (Align) Forks() bool { return false }

// Summon spawns an entity at the source position and runs as it.
type Summon struct {
	World *world.World
	Type  string
}

func (p Summon) Expand(src engine.Source) ([]engine.Source, error) {
	pos := src.Position()
	e, err := p.World.Spawn(world.EntitySpec{
		Type:      p.Type,
		Pos:       [3]float64{pos.X, pos.Y, pos.Z},
		Dimension: src.Dimension(),
	})
	if err != nil {
		return nil, engine.NewCommandFailed("Unable to summon entity: %v", err)
	}
	return []engine.Source{src.WithEntity(e)}, nil
}

func (Summon) Forks() bool { return false }

// On runs as the entity the executor is related to. Every relation but
// passengers yields at most one source; a missing or removed relation, or a
// source with no executor, yields none. It never fails.
type On struct {
	World    *world.World
	Relation world.Relation
}

func (p On) Expand(src engine.Source) ([]engine.Source, error) {
	self := world.Self(p.World, src)
	if self == nil {
		return nil, nil
	}
	related := p.World.Related(self, p.Relation)
	out := make([]engine.Source, len(related))
	for i, e := range related {
		out[i] = src.WithEntity(e)
	}
	return out, nil
}

func (On) Forks() bool { return true }

var (
	_ engine.Producer = As{}
	_ engine.Producer = At{}
	_ engine.Producer = Positioned{}
	_ engine.Producer = PositionedAs{}
	_ engine.Producer = Rotated{}
	_ engine.Producer = RotatedAs{}
	_ engine.Producer = Facing{}
	_ engine.Producer = FacingEntity{}
	_ engine.Producer = In{}
	_ engine.Producer = Anchored{}
	_ engine.Producer = Align{}
	_ engine.Producer = Summon{}
	_ engine.Producer = On{}
)
