package world

import (
	"github.com/roach88/chainexec/internal/engine"
	"github.com/roach88/chainexec/internal/geom"
)

// Resolve resolves coordinates for src. Local coordinates are measured
// from the anchor of src, world coordinates from its position.
func Resolve(src engine.Source, c geom.Coordinates) geom.Vec3 {
	origin := src.Position()
	if c.Local {
		origin = src.AnchorPosition()
	}
	return c.Resolve(origin, src.Rotation())
}

// ResolveBlock is Resolve floored to a block position.
func ResolveBlock(src engine.Source, c geom.Coordinates) geom.BlockPos {
	return Resolve(src, c).Block()
}
