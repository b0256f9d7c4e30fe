// Package geom holds the small amount of geometry the command engine needs:
// world positions, rotations, block positions, relative/local coordinate
// arguments and numeric range bounds.
package geom

import (
	"fmt"
	"math"
)

// Vec3 is an exact position in a dimension.
type Vec3 struct {
	X, Y, Z float64
}

// Add returns v offset by o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// Scale multiplies every component by f.
func (v Vec3) Scale(f float64) Vec3 {
	return Vec3{X: v.X * f, Y: v.Y * f, Z: v.Z * f}
}

// Cross returns the cross product v × o.
func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		X: v.Y*o.Z - v.Z*o.Y,
		Y: v.Z*o.X - v.X*o.Z,
		Z: v.X*o.Y - v.Y*o.X,
	}
}

// Distance is the euclidean distance between v and o.
func (v Vec3) Distance(o Vec3) float64 {
	d := v.Sub(o)
	return math.Sqrt(d.X*d.X + d.Y*d.Y + d.Z*d.Z)
}

// Block returns the block position containing v.
func (v Vec3) Block() BlockPos {
	return BlockPos{
		X: int(math.Floor(v.X)),
		Y: int(math.Floor(v.Y)),
		Z: int(math.Floor(v.Z)),
	}
}

func (v Vec3) String() string {
	return fmt.Sprintf("%g %g %g", v.X, v.Y, v.Z)
}

// BlockPos is an integer block coordinate.
type BlockPos struct {
	X, Y, Z int
}

// Center returns the position at the bottom center of the block.
func (b BlockPos) Center() Vec3 {
	return Vec3{X: float64(b.X) + 0.5, Y: float64(b.Y), Z: float64(b.Z) + 0.5}
}

// Offset returns b moved by (dx, dy, dz).
func (b BlockPos) Offset(dx, dy, dz int) BlockPos {
	return BlockPos{X: b.X + dx, Y: b.Y + dy, Z: b.Z + dz}
}

func (b BlockPos) String() string {
	return fmt.Sprintf("%d %d %d", b.X, b.Y, b.Z)
}

// Box is an inclusive block volume.
type Box struct {
	Min, Max BlockPos
}

// BoxOf builds the inclusive box spanned by two corners.
func BoxOf(a, b BlockPos) Box {
	return Box{
		Min: BlockPos{X: min(a.X, b.X), Y: min(a.Y, b.Y), Z: min(a.Z, b.Z)},
		Max: BlockPos{X: max(a.X, b.X), Y: max(a.Y, b.Y), Z: max(a.Z, b.Z)},
	}
}

// Volume is the number of blocks inside the box.
func (b Box) Volume() int64 {
	return int64(b.Max.X-b.Min.X+1) * int64(b.Max.Y-b.Min.Y+1) * int64(b.Max.Z-b.Min.Z+1)
}

// Each calls fn for every block of the box in x, then z, then y order.
func (b Box) Each(fn func(BlockPos)) {
	for y := b.Min.Y; y <= b.Max.Y; y++ {
		for z := b.Min.Z; z <= b.Max.Z; z++ {
			for x := b.Min.X; x <= b.Max.X; x++ {
				fn(BlockPos{X: x, Y: y, Z: z})
			}
		}
	}
}

// Rotation is a facing direction in degrees. Yaw 0 looks toward +Z,
// pitch -90 looks straight up.
type Rotation struct {
	Yaw, Pitch float64
}

// WrapDegrees folds a into [-180, 180).
func WrapDegrees(a float64) float64 {
	a = math.Mod(a, 360)
	if a >= 180 {
		a -= 360
	}
	if a < -180 {
		a += 360
	}
	return a
}

// Facing returns the rotation that looks from `from` toward `to`.
func Facing(from, to Vec3) Rotation {
	d := to.Sub(from)
	horizontal := math.Sqrt(d.X*d.X + d.Z*d.Z)
	pitch := WrapDegrees(-(math.Atan2(d.Y, horizontal) * 180 / math.Pi))
	yaw := WrapDegrees(math.Atan2(d.Z, d.X)*180/math.Pi - 90)
	return Rotation{Yaw: yaw, Pitch: pitch}
}
