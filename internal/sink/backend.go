package sink

import (
	"errors"
	"fmt"

	"github.com/roach88/chainexec/internal/data"
	"github.com/roach88/chainexec/internal/geom"
)

// Scoreboard is a score backend.
type Scoreboard interface {
	SetScore(objective, holder string, value int) error
}

// DataStorage is a structured-data backend.
type DataStorage interface {
	SetData(ref DataRef, path data.Path, v data.Value) error
}

// BossBars is a boss-bar backend. maximum selects the maximum instead of the
// value.
type BossBars interface {
	SetBossBar(id string, maximum bool, value int) error
}

// RefKind is the kind of data holder a DataRef names.
type RefKind uint8

const (
	RefEntity RefKind = iota + 1
	RefBlock
	RefStorage
)

func (k RefKind) String() string {
	switch k {
	case RefEntity:
		return "entity"
	case RefBlock:
		return "block"
	case RefStorage:
		return "storage"
	}
	return fmt.Sprintf("ref(%d)", uint8(k))
}

// ParseRefKind parses "entity", "block" or "storage".
func ParseRefKind(s string) (RefKind, error) {
	switch s {
	case "entity":
		return RefEntity, nil
	case "block":
		return RefBlock, nil
	case "storage":
		return RefStorage, nil
	}
	return 0, fmt.Errorf("unknown data holder %q (want entity, block or storage)", s)
}

// DataRef names the compound a data path applies to: an entity by UUID, a
// block entity by dimension and position, or a storage by id.
type DataRef struct {
	Kind      RefKind
	ID        string
	Dimension string
	Pos       geom.BlockPos
}

func (r DataRef) String() string {
	if r.Kind == RefBlock {
		return fmt.Sprintf("block %s %s", r.Dimension, r.Pos)
	}
	return r.Kind.String() + " " + r.ID
}

// Key is a stable string form usable as a storage key.
func (r DataRef) Key() string {
	if r.Kind == RefBlock {
		return fmt.Sprintf("block:%s:%d,%d,%d", r.Dimension, r.Pos.X, r.Pos.Y, r.Pos.Z)
	}
	return r.Kind.String() + ":" + r.ID
}

// ScoreTee writes scores to every backend in order and joins their errors.
type ScoreTee []Scoreboard

func (t ScoreTee) SetScore(objective, holder string, value int) error {
	var errs []error
	for _, b := range t {
		errs = append(errs, b.SetScore(objective, holder, value))
	}
	return errors.Join(errs...)
}

// DataTee writes data to every backend in order and joins their errors.
type DataTee []DataStorage

func (t DataTee) SetData(ref DataRef, path data.Path, v data.Value) error {
	var errs []error
	for _, b := range t {
		errs = append(errs, b.SetData(ref, path, v))
	}
	return errors.Join(errs...)
}

// BossBarTee writes boss bars to every backend in order and joins their
// errors.
type BossBarTee []BossBars

func (t BossBarTee) SetBossBar(id string, maximum bool, value int) error {
	var errs []error
	for _, b := range t {
		errs = append(errs, b.SetBossBar(id, maximum, value))
	}
	return errors.Join(errs...)
}
