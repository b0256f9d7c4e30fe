package geom

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Coord is one component of a coordinate argument. Relative components are
// offsets from the source position ("~1"); absolute ones replace it.
type Coord struct {
	Value    float64
	Relative bool
}

func (c Coord) resolve(base float64) float64 {
	if c.Relative {
		return base + c.Value
	}
	return c.Value
}

// Coordinates is a parsed position argument. Local coordinates ("^ ^ ^1")
// are offsets along the source's left, up and forward axes.
type Coordinates struct {
	X, Y, Z Coord
	Local   bool
}

// Here is "~ ~ ~".
var Here = Coordinates{X: Coord{Relative: true}, Y: Coord{Relative: true}, Z: Coord{Relative: true}}

// ParseCoordinates parses "x y z" where each part is a number, "~n" or "^n".
// Local and world components cannot be mixed.
func ParseCoordinates(s string) (Coordinates, error) {
	parts := strings.Fields(s)
	if len(parts) != 3 {
		return Coordinates{}, fmt.Errorf("coordinates %q: expected 3 components, got %d", s, len(parts))
	}

	local := 0
	for _, p := range parts {
		if strings.HasPrefix(p, "^") {
			local++
		}
	}
	if local != 0 && local != 3 {
		return Coordinates{}, fmt.Errorf("coordinates %q: cannot mix local and world coordinates", s)
	}

	var cs [3]Coord
	for i, p := range parts {
		c, err := parseCoord(p, local == 3)
		if err != nil {
			return Coordinates{}, fmt.Errorf("coordinates %q: %w", s, err)
		}
		cs[i] = c
	}
	return Coordinates{X: cs[0], Y: cs[1], Z: cs[2], Local: local == 3}, nil
}

func parseCoord(p string, local bool) (Coord, error) {
	prefix := "~"
	if local {
		prefix = "^"
	}
	rel := strings.HasPrefix(p, prefix)
	if rel {
		p = p[1:]
	}
	if p == "" {
		return Coord{Relative: rel}, nil
	}
	v, err := strconv.ParseFloat(p, 64)
	if err != nil {
		return Coord{}, fmt.Errorf("invalid number %q", p)
	}
	return Coord{Value: v, Relative: rel}, nil
}

// Resolve computes the position for a source at origin facing rot.
func (c Coordinates) Resolve(origin Vec3, rot Rotation) Vec3 {
	if !c.Local {
		return Vec3{X: c.X.resolve(origin.X), Y: c.Y.resolve(origin.Y), Z: c.Z.resolve(origin.Z)}
	}

	rad := math.Pi / 180
	f := math.Cos((rot.Yaw + 90) * rad)
	g := math.Sin((rot.Yaw + 90) * rad)
	h := math.Cos(-rot.Pitch * rad)
	i := math.Sin(-rot.Pitch * rad)
	j := math.Cos((-rot.Pitch + 90) * rad)
	k := math.Sin((-rot.Pitch + 90) * rad)

	forward := Vec3{X: f * h, Y: i, Z: g * h}
	up := Vec3{X: f * j, Y: k, Z: g * j}
	left := forward.Cross(up).Scale(-1)

	offset := forward.Scale(c.Z.Value).Add(up.Scale(c.Y.Value)).Add(left.Scale(c.X.Value))
	return origin.Add(offset)
}

// ResolveBlock resolves and floors to a block position.
func (c Coordinates) ResolveBlock(origin Vec3, rot Rotation) BlockPos {
	return c.Resolve(origin, rot).Block()
}

// RotationArg is a parsed "yaw pitch" argument; each part may be relative.
type RotationArg struct {
	Yaw, Pitch Coord
}

// ParseRotation parses "yaw pitch".
func ParseRotation(s string) (RotationArg, error) {
	parts := strings.Fields(s)
	if len(parts) != 2 {
		return RotationArg{}, fmt.Errorf("rotation %q: expected 2 components, got %d", s, len(parts))
	}
	yaw, err := parseCoord(parts[0], false)
	if err != nil {
		return RotationArg{}, fmt.Errorf("rotation %q: %w", s, err)
	}
	pitch, err := parseCoord(parts[1], false)
	if err != nil {
		return RotationArg{}, fmt.Errorf("rotation %q: %w", s, err)
	}
	return RotationArg{Yaw: yaw, Pitch: pitch}, nil
}

// Resolve applies the argument to a current rotation.
func (r RotationArg) Resolve(cur Rotation) Rotation {
	return Rotation{
		Yaw:   WrapDegrees(r.Yaw.resolve(cur.Yaw)),
		Pitch: r.Pitch.resolve(cur.Pitch),
	}
}
