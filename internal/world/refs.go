package world

import (
	"github.com/roach88/chainexec/internal/engine"
	"github.com/roach88/chainexec/internal/geom"
	"github.com/roach88/chainexec/internal/sink"
)

// HolderSelector resolves store score holders with a selector.
type HolderSelector struct {
	World    *World
	Selector *Selector
}

func (h HolderSelector) ResolveHolders(src engine.Source) ([]string, error) {
	return h.Selector.Holders(h.World, src), nil
}

// EntityRef names the data of the one entity a selector matches.
type EntityRef struct {
	World    *World
	Selector *Selector
}

func (r EntityRef) ResolveRef(src engine.Source) (sink.DataRef, error) {
	es := r.Selector.Select(r.World, src)
	switch len(es) {
	case 0:
		return sink.DataRef{}, engine.NewEntityNotFound()
	case 1:
		return sink.DataRef{Kind: sink.RefEntity, ID: es[0].UUID()}, nil
	}
	return sink.DataRef{}, engine.NewCommandFailed("Only one entity is allowed, but the provided selector allows more than one")
}

// BlockRef names the block entity at a position relative to the source.
type BlockRef struct {
	Pos geom.Coordinates
}

func (r BlockRef) ResolveRef(src engine.Source) (sink.DataRef, error) {
	return sink.DataRef{Kind: sink.RefBlock, Dimension: src.Dimension(), Pos: ResolveBlock(src, r.Pos)}, nil
}

// StorageRef names a data storage.
type StorageRef string

func (r StorageRef) ResolveRef(engine.Source) (sink.DataRef, error) {
	return sink.DataRef{Kind: sink.RefStorage, ID: string(r)}, nil
}

var (
	_ sink.HolderResolver = HolderSelector{}
	_ sink.RefResolver    = EntityRef{}
	_ sink.RefResolver    = BlockRef{}
	_ sink.RefResolver    = StorageRef("")
)
