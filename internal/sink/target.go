package sink

import (
	"fmt"
	"log/slog"

	"github.com/roach88/chainexec/internal/data"
	"github.com/roach88/chainexec/internal/engine"
)

// HolderResolver resolves the score holders a store writes to.
type HolderResolver interface {
	ResolveHolders(src engine.Source) ([]string, error)
}

// HolderFunc adapts a function to HolderResolver.
type HolderFunc func(src engine.Source) ([]string, error)

func (f HolderFunc) ResolveHolders(src engine.Source) ([]string, error) { return f(src) }

// RefResolver resolves the data holder a store writes to.
type RefResolver interface {
	ResolveRef(src engine.Source) (DataRef, error)
}

// RefFunc adapts a function to RefResolver.
type RefFunc func(src engine.Source) (DataRef, error)

func (f RefFunc) ResolveRef(src engine.Source) (DataRef, error) { return f(src) }

// Backends are the stores targets write through, plus the optional
// journal and logger every sink they create shares.
type Backends struct {
	Scores   Scoreboard
	Data     DataStorage
	BossBars BossBars
	Journal  Journal
	Logger   *slog.Logger
}

func (b *Backends) newSink(w Writer, raw bool) *Sink {
	var opts []Option
	if b.Journal != nil {
		opts = append(opts, WithJournal(b.Journal))
	}
	if b.Logger != nil {
		opts = append(opts, WithLogger(b.Logger))
	}
	return New(w, raw, opts...)
}

// ScoreTarget is "store ... score <holders> <objective>". Holders are
// resolved when the store step runs, not when the result arrives.
type ScoreTarget struct {
	Backends  *Backends
	Holders   HolderResolver
	Objective string
}

func (t ScoreTarget) Bind(src engine.Source, raw bool) (engine.Sink, error) {
	holders, err := t.Holders.ResolveHolders(src)
	if err != nil {
		return nil, err
	}
	if len(holders) == 0 {
		return nil, engine.NewEntityNotFound()
	}
	return t.Backends.newSink(ScoreWriter{Board: t.Backends.Scores, Objective: t.Objective, Holders: holders}, raw), nil
}

// DataTarget is "store ... entity|block|storage <ref> <path> <type> <scale>".
type DataTarget struct {
	Backends *Backends
	Ref      RefResolver
	Path     data.Path
	Type     data.Type
	Scale    float64
}

func (t DataTarget) Bind(src engine.Source, raw bool) (engine.Sink, error) {
	if !t.Type.IsNumeric() {
		return nil, engine.NewCommandFailed("Cannot store into %s", t.Type)
	}
	ref, err := t.Ref.ResolveRef(src)
	if err != nil {
		return nil, err
	}
	return t.Backends.newSink(DataWriter{
		Storage: t.Backends.Data,
		Ref:     ref,
		Path:    t.Path,
		Type:    t.Type,
		Scale:   t.Scale,
	}, raw), nil
}

// BossBarTarget is "store ... bossbar <id> value|max".
type BossBarTarget struct {
	Backends *Backends
	ID       string
	Max      bool
}

func (t BossBarTarget) Bind(_ engine.Source, raw bool) (engine.Sink, error) {
	if t.ID == "" {
		return nil, fmt.Errorf("bossbar target without id")
	}
	return t.Backends.newSink(BossBarWriter{Bars: t.Backends.BossBars, ID: t.ID, Max: t.Max}, raw), nil
}

var (
	_ engine.StoreTarget = ScoreTarget{}
	_ engine.StoreTarget = DataTarget{}
	_ engine.StoreTarget = BossBarTarget{}
)
