package engine

import (
	"fmt"

	"github.com/roach88/chainexec/internal/geom"
)

// DefaultDimension is the dimension a fresh Source starts in.
const DefaultDimension = "minecraft:overworld"

// Anchor selects which point of the acting entity local coordinates and
// facing are measured from.
type Anchor uint8

const (
	AnchorFeet Anchor = iota
	AnchorEyes
)

func (a Anchor) String() string {
	if a == AnchorEyes {
		return "eyes"
	}
	return "feet"
}

// ParseAnchor parses "feet" or "eyes".
func ParseAnchor(s string) (Anchor, error) {
	switch s {
	case "feet":
		return AnchorFeet, nil
	case "eyes":
		return AnchorEyes, nil
	}
	return 0, fmt.Errorf("invalid anchor %q (want feet or eyes)", s)
}

// Entity is the narrow view of a world entity the engine needs.
type Entity interface {
	UUID() string
	Name() string
	Type() string
	Position() geom.Vec3
	EyeHeight() float64
	Rotation() geom.Rotation
	Dimension() string
	Removed() bool
}

// Output receives user-facing feedback from commands run by a Source.
type Output interface {
	SendMessage(text string, failure bool)
}

// DiscardOutput drops every message.
type DiscardOutput struct{}

func (DiscardOutput) SendMessage(string, bool) {}

// Source is the execution context of one step: who runs it, where, and
// where its result goes. Source is a value; every With method returns a
// modified copy and never touches the receiver.
type Source struct {
	name       string
	position   geom.Vec3
	rotation   geom.Rotation
	dimension  string
	permission int
	entity     Entity
	anchor     Anchor
	silent     bool
	callback   Callback
	output     Output
}

// NewSource returns a source at the world origin of the default dimension.
func NewSource(name string, out Output) Source {
	if out == nil {
		out = DiscardOutput{}
	}
	return Source{
		name:       name,
		dimension:  DefaultDimension,
		permission: 2,
		output:     out,
	}
}

// SourceFor returns a source acting as e, positioned and rotated like it.
func SourceFor(e Entity, out Output) Source {
	return NewSource(e.Name(), out).WithEntity(e).
		WithPosition(e.Position()).
		WithRotation(e.Rotation()).
		WithDimension(e.Dimension())
}

func (s Source) Name() string            { return s.name }
func (s Source) Position() geom.Vec3     { return s.position }
func (s Source) Rotation() geom.Rotation { return s.rotation }
func (s Source) Dimension() string       { return s.dimension }
func (s Source) Permission() int         { return s.permission }
func (s Source) Entity() Entity          { return s.entity }
func (s Source) Anchor() Anchor          { return s.anchor }
func (s Source) Silent() bool            { return s.silent }
func (s Source) Callback() Callback      { return s.callback }
func (s Source) Output() Output          { return s.output }

// BlockPosition is the block the source stands in.
func (s Source) BlockPosition() geom.BlockPos { return s.position.Block() }

// AnchorPosition is the position local coordinates are measured from: the
// source position, raised to eye height when anchored at the eyes of an
// entity.
func (s Source) AnchorPosition() geom.Vec3 {
	if s.anchor == AnchorEyes && s.entity != nil {
		return s.position.Add(geom.Vec3{Y: s.entity.EyeHeight()})
	}
	return s.position
}

func (s Source) WithName(name string) Source {
	s.name = name
	return s
}

func (s Source) WithPosition(p geom.Vec3) Source {
	s.position = p
	return s
}

func (s Source) WithRotation(r geom.Rotation) Source {
	s.rotation = r
	return s
}

func (s Source) WithDimension(d string) Source {
	s.dimension = d
	return s
}

func (s Source) WithPermission(level int) Source {
	s.permission = level
	return s
}

// WithMaximumPermission caps the permission level.
func (s Source) WithMaximumPermission(level int) Source {
	if s.permission > level {
		s.permission = level
	}
	return s
}

// WithEntity makes e the acting entity. The source takes the entity's name
// but keeps its position; use SourceFor or At for that.
func (s Source) WithEntity(e Entity) Source {
	s.entity = e
	if e != nil {
		s.name = e.Name()
	}
	return s
}

// At moves the source to the entity's position, rotation and dimension.
func (s Source) At(e Entity) Source {
	s.position = e.Position()
	s.rotation = e.Rotation()
	s.dimension = e.Dimension()
	return s
}

func (s Source) WithAnchor(a Anchor) Source {
	s.anchor = a
	return s
}

// Silenced suppresses all feedback sent through the source.
func (s Source) Silenced() Source {
	s.silent = true
	return s
}

func (s Source) WithCallback(cb Callback) Source {
	s.callback = cb
	return s
}

// ClearCallback detaches every result sink.
func (s Source) ClearCallback() Source {
	s.callback = Callback{}
	return s
}

func (s Source) WithOutput(out Output) Source {
	if out == nil {
		out = DiscardOutput{}
	}
	s.output = out
	return s
}

// SendSuccess delivers feedback unless the source is silent.
func (s Source) SendSuccess(msg string) {
	if s.silent || s.output == nil {
		return
	}
	s.output.SendMessage(msg, false)
}

// SendFailure delivers an error message unless the source is silent.
func (s Source) SendFailure(msg string) {
	if s.silent || s.output == nil {
		return
	}
	s.output.SendMessage(msg, true)
}
