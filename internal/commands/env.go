package commands

import (
	"fmt"
	"log/slog"

	"github.com/roach88/chainexec/internal/engine"
	"github.com/roach88/chainexec/internal/world"
)

// DefaultMaxArea is the largest volume fill changes at once.
const DefaultMaxArea = 32768

// Env is what commands act on.
type Env struct {
	World   *world.World
	MaxArea int64
	Logger  *slog.Logger
}

// NewEnv returns an Env over w with default limits.
func NewEnv(w *world.World) *Env {
	return &Env{World: w, MaxArea: DefaultMaxArea, Logger: slog.Default()}
}

func (e *Env) maxArea() int64 {
	if e.MaxArea > 0 {
		return e.MaxArea
	}
	return DefaultMaxArea
}

// entities selects the targets of a command; none is an error.
func (e *Env) entities(sel *world.Selector, src engine.Source) ([]*world.Entity, error) {
	es := sel.Select(e.World, src)
	if len(es) == 0 {
		return nil, engine.NewEntityNotFound()
	}
	return es, nil
}

// describe names one entity, or counts several.
func describe(es []*world.Entity) string {
	if len(es) == 1 {
		return es[0].Name()
	}
	return fmt.Sprintf("%d entities", len(es))
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
