package commands

import (
	"fmt"

	"github.com/roach88/chainexec/internal/engine"
	"github.com/roach88/chainexec/internal/geom"
	"github.com/roach88/chainexec/internal/world"
)

// SetBlock is "setblock <pos> <block>". Placing the block that is already
// there fails.
type SetBlock struct {
	Env   *Env
	Pos   geom.Coordinates
	Block string
}

func (c SetBlock) Execute(src engine.Source) (int, error) {
	pos := world.ResolveBlock(src, c.Pos)
	if !c.Env.World.SetBlock(src.Dimension(), pos, c.Block) {
		return 0, engine.NewCommandFailed("Could not set the block")
	}
	src.SendSuccess(fmt.Sprintf("Changed the block at %d, %d, %d", pos.X, pos.Y, pos.Z))
	return 1, nil
}

// Fill is "fill <from> <to> <block>". It returns the number of blocks that
// changed.
type Fill struct {
	Env      *Env
	From, To geom.Coordinates
	Block    string
}

func (c Fill) Execute(src engine.Source) (int, error) {
	box := geom.BoxOf(world.ResolveBlock(src, c.From), world.ResolveBlock(src, c.To))
	if v, limit := box.Volume(), c.Env.maxArea(); v > limit {
		return 0, engine.NewAreaTooLarge(limit, v)
	}
	n := 0
	box.Each(func(p geom.BlockPos) {
		if c.Env.World.SetBlock(src.Dimension(), p, c.Block) {
			n++
		}
	})
	if n == 0 {
		return 0, engine.NewCommandFailed("No blocks were filled")
	}
	src.SendSuccess(fmt.Sprintf("Successfully filled %d block(s)", n))
	return n, nil
}

// SetBiome is "fillbiome <from> <to> <biome>".
type SetBiome struct {
	Env      *Env
	From, To geom.Coordinates
	Biome    string
}

func (c SetBiome) Execute(src engine.Source) (int, error) {
	box := geom.BoxOf(world.ResolveBlock(src, c.From), world.ResolveBlock(src, c.To))
	if v, limit := box.Volume(), c.Env.maxArea(); v > limit {
		return 0, engine.NewAreaTooLarge(limit, v)
	}
	n := 0
	box.Each(func(p geom.BlockPos) {
		if c.Env.World.BiomeAt(src.Dimension(), p) != c.Biome {
			c.Env.World.SetBiome(src.Dimension(), p, c.Biome)
			n++
		}
	})
	src.SendSuccess(fmt.Sprintf("%d biome entries set between %s and %s", n, box.Min, box.Max))
	return n, nil
}
