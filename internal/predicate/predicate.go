// Package predicate is the closed set of conditions execute if/unless tests.
//
// Every variant implements Predicate; the unexported marker keeps the set
// closed so the datapack compiler and the tests can switch over it
// exhaustively. Bind turns a predicate into the engine.Condition a
// Conditional step evaluates.
//
// Boolean variants report engine.BoolOutcome. Countable variants (entity,
// items, data, blocks) report engine.CountOutcome and pass when the count is
// non-zero.
package predicate

import (
	"fmt"
	"path"

	"github.com/roach88/chainexec/internal/data"
	"github.com/roach88/chainexec/internal/engine"
	"github.com/roach88/chainexec/internal/geom"
	"github.com/roach88/chainexec/internal/sink"
	"github.com/roach88/chainexec/internal/world"
)

// DefaultMaxArea is the largest volume "if blocks" compares.
const DefaultMaxArea = 32768

// Env is what predicates are evaluated against.
type Env struct {
	World *world.World
	// Named holds the predicates "if predicate <id>" refers to.
	Named map[string]Predicate
	// MaxArea bounds BlocksCompare. Zero means DefaultMaxArea.
	MaxArea int64
}

func (e *Env) maxArea() int64 {
	if e.MaxArea > 0 {
		return e.MaxArea
	}
	return DefaultMaxArea
}

// Predicate is one condition variant.
type Predicate interface {
	Evaluate(env *Env, src engine.Source) (engine.Outcome, error)
	String() string
	predicate()
}

// Bind adapts p to an engine.Condition evaluated against env.
func Bind(env *Env, p Predicate) engine.Condition {
	return condition{env: env, p: p}
}

type condition struct {
	env *Env
	p   Predicate
}

func (c condition) Evaluate(src engine.Source) (engine.Outcome, error) {
	return c.p.Evaluate(c.env, src)
}

func (c condition) String() string { return c.p.String() }

// Block tests the block at Pos: "if block ~ ~-1 ~ minecraft:stone".
type Block struct {
	Pos   geom.Coordinates
	Block string
}

func (p Block) Evaluate(env *Env, src engine.Source) (engine.Outcome, error) {
	pos := world.ResolveBlock(src, p.Pos)
	return engine.BoolOutcome(env.World.BlockAt(src.Dimension(), pos) == p.Block), nil
}

func (p Block) String() string { return "block " + p.Block }

// Biome tests the biome at Pos.
type Biome struct {
	Pos   geom.Coordinates
	Biome string
}

func (p Biome) Evaluate(env *Env, src engine.Source) (engine.Outcome, error) {
	pos := world.ResolveBlock(src, p.Pos)
	return engine.BoolOutcome(env.World.BiomeAt(src.Dimension(), pos) == p.Biome), nil
}

func (p Biome) String() string { return "biome " + p.Biome }

// Dimension tests the dimension of the source.
type Dimension struct {
	Dimension string
}

func (p Dimension) Evaluate(_ *Env, src engine.Source) (engine.Outcome, error) {
	return engine.BoolOutcome(src.Dimension() == p.Dimension), nil
}

func (p Dimension) String() string { return "dimension " + p.Dimension }

// CompareOp is a score comparison operator.
type CompareOp string

const (
	OpLess         CompareOp = "<"
	OpLessEqual    CompareOp = "<="
	OpEqual        CompareOp = "="
	OpGreaterEqual CompareOp = ">="
	OpGreater      CompareOp = ">"
)

// ParseCompareOp parses a comparison operator.
func ParseCompareOp(s string) (CompareOp, error) {
	switch op := CompareOp(s); op {
	case OpLess, OpLessEqual, OpEqual, OpGreaterEqual, OpGreater:
		return op, nil
	}
	return "", fmt.Errorf("unknown comparison %q", s)
}

func (op CompareOp) apply(a, b int) bool {
	switch op {
	case OpLess:
		return a < b
	case OpLessEqual:
		return a <= b
	case OpEqual:
		return a == b
	case OpGreaterEqual:
		return a >= b
	case OpGreater:
		return a > b
	}
	return false
}

// singleHolder resolves the one score holder sel names for src.
func singleHolder(w *world.World, sel *world.Selector, src engine.Source) (string, error) {
	holders := sel.Holders(w, src)
	switch len(holders) {
	case 0:
		return "", engine.NewEntityNotFound()
	case 1:
		return holders[0], nil
	}
	return "", engine.NewCommandFailed("Only one entity is allowed, but the provided selector allows more than one")
}

// ScoreCompare compares two scores: "if score @s a < Alex b". A missing
// score never matches.
type ScoreCompare struct {
	Target          *world.Selector
	TargetObjective string
	Op              CompareOp
	Source          *world.Selector
	SourceObjective string
}

func (p ScoreCompare) Evaluate(env *Env, src engine.Source) (engine.Outcome, error) {
	target, err := singleHolder(env.World, p.Target, src)
	if err != nil {
		return engine.Outcome{}, err
	}
	source, err := singleHolder(env.World, p.Source, src)
	if err != nil {
		return engine.Outcome{}, err
	}
	a, ok := env.World.Score(p.TargetObjective, target)
	if !ok {
		return engine.BoolOutcome(false), nil
	}
	b, ok := env.World.Score(p.SourceObjective, source)
	if !ok {
		return engine.BoolOutcome(false), nil
	}
	return engine.BoolOutcome(p.Op.apply(a, b)), nil
}

func (p ScoreCompare) String() string {
	return fmt.Sprintf("score %s %s %s %s %s", p.Target, p.TargetObjective, p.Op, p.Source, p.SourceObjective)
}

// ScoreRange tests a score against a range: "if score Alex points matches 5..".
type ScoreRange struct {
	Target    *world.Selector
	Objective string
	Range     geom.IntRange
}

func (p ScoreRange) Evaluate(env *Env, src engine.Source) (engine.Outcome, error) {
	holder, err := singleHolder(env.World, p.Target, src)
	if err != nil {
		return engine.Outcome{}, err
	}
	v, ok := env.World.Score(p.Objective, holder)
	return engine.BoolOutcome(ok && p.Range.Contains(v)), nil
}

func (p ScoreRange) String() string {
	return fmt.Sprintf("score %s %s matches %s", p.Target, p.Objective, p.Range)
}

// EntityCount counts the entities a selector matches.
type EntityCount struct {
	Selector *world.Selector
}

func (p EntityCount) Evaluate(env *Env, src engine.Source) (engine.Outcome, error) {
	return engine.CountOutcome(len(p.Selector.Select(env.World, src))), nil
}

func (p EntityCount) String() string { return "entity " + p.Selector.String() }

// ItemCount sums the items held by the selected entities in slots matching
// Slot (a glob such as "inventory.*") whose id is Item ("*" for any).
type ItemCount struct {
	Selector *world.Selector
	Slot     string
	Item     string
}

func (p ItemCount) Evaluate(env *Env, src engine.Source) (engine.Outcome, error) {
	if _, err := path.Match(p.Slot, ""); err != nil {
		return engine.Outcome{}, engine.NewCommandFailed("Invalid slot pattern %q", p.Slot)
	}
	n := 0
	for _, e := range p.Selector.Select(env.World, src) {
		for _, st := range e.Items() {
			if ok, _ := path.Match(p.Slot, st.Slot); !ok {
				continue
			}
			if p.Item != "*" && st.Item != p.Item {
				continue
			}
			n += st.Count
		}
	}
	return engine.CountOutcome(n), nil
}

func (p ItemCount) String() string {
	return fmt.Sprintf("items entity %s %s %s", p.Selector, p.Slot, p.Item)
}

// DataMatch counts the elements Path matches in the compound Ref names.
type DataMatch struct {
	Ref  sink.RefResolver
	Path data.Path
}

func (p DataMatch) Evaluate(env *Env, src engine.Source) (engine.Outcome, error) {
	ref, err := p.Ref.ResolveRef(src)
	if err != nil {
		return engine.Outcome{}, err
	}
	c, err := env.World.GetData(ref)
	if err != nil {
		return engine.Outcome{}, err
	}
	return engine.CountOutcome(len(p.Path.Get(c))), nil
}

func (p DataMatch) String() string { return "data " + p.Path.String() }

// Named evaluates the predicate registered under Name as a boolean.
type Named struct {
	Name string
}

func (p Named) Evaluate(env *Env, src engine.Source) (engine.Outcome, error) {
	inner, ok := env.Named[p.Name]
	if !ok {
		return engine.Outcome{}, engine.NewCommandFailed("Unknown predicate: %s", p.Name)
	}
	o, err := inner.Evaluate(env, src)
	if err != nil {
		return engine.Outcome{}, err
	}
	return engine.BoolOutcome(matched(o)), nil
}

func (p Named) String() string { return "predicate " + p.Name }

func matched(o engine.Outcome) bool {
	if o.Countable {
		return o.Count > 0
	}
	return o.Matched
}

// Stopwatch tests the seconds elapsed on a stopwatch.
type Stopwatch struct {
	ID    string
	Range geom.FloatRange
}

func (p Stopwatch) Evaluate(env *Env, _ engine.Source) (engine.Outcome, error) {
	secs, ok := env.World.Stopwatch(p.ID)
	if !ok {
		return engine.Outcome{}, engine.NewCommandFailed("No stopwatch exists with the ID '%s'", p.ID)
	}
	return engine.BoolOutcome(p.Range.Contains(secs)), nil
}

func (p Stopwatch) String() string { return fmt.Sprintf("stopwatch %s %s", p.ID, p.Range) }

// BlocksCompare compares the box Start..End with the box of the same size
// at Dest. It counts the compared blocks when every one matches and is zero
// otherwise. Masked ignores air in the source box.
type BlocksCompare struct {
	Start, End, Dest geom.Coordinates
	Masked           bool
}

func (p BlocksCompare) Evaluate(env *Env, src engine.Source) (engine.Outcome, error) {
	box := geom.BoxOf(world.ResolveBlock(src, p.Start), world.ResolveBlock(src, p.End))
	if v := box.Volume(); v > env.maxArea() {
		return engine.Outcome{}, engine.NewAreaTooLarge(env.maxArea(), v)
	}
	dest := world.ResolveBlock(src, p.Dest)
	dim := src.Dimension()

	count, mismatch := 0, false
	box.Each(func(pos geom.BlockPos) {
		if mismatch {
			return
		}
		block := env.World.BlockAt(dim, pos)
		if p.Masked && block == world.Air {
			return
		}
		other := dest.Offset(pos.X-box.Min.X, pos.Y-box.Min.Y, pos.Z-box.Min.Z)
		if env.World.BlockAt(dim, other) != block {
			mismatch = true
			return
		}
		count++
	})
	if mismatch {
		return engine.CountOutcome(0), nil
	}
	return engine.CountOutcome(count), nil
}

func (p BlocksCompare) String() string {
	mode := "all"
	if p.Masked {
		mode = "masked"
	}
	return "blocks " + mode
}

// Not inverts a predicate. Used by named predicate definitions.
type Not struct {
	Term Predicate
}

func (p Not) Evaluate(env *Env, src engine.Source) (engine.Outcome, error) {
	o, err := p.Term.Evaluate(env, src)
	if err != nil {
		return engine.Outcome{}, err
	}
	return engine.BoolOutcome(!matched(o)), nil
}

func (p Not) String() string { return "not " + p.Term.String() }

// AllOf matches when every term matches. Evaluation stops at the first
// miss.
type AllOf []Predicate

func (p AllOf) Evaluate(env *Env, src engine.Source) (engine.Outcome, error) {
	for _, t := range p {
		o, err := t.Evaluate(env, src)
		if err != nil {
			return engine.Outcome{}, err
		}
		if !matched(o) {
			return engine.BoolOutcome(false), nil
		}
	}
	return engine.BoolOutcome(true), nil
}

func (p AllOf) String() string { return fmt.Sprintf("all_of(%d)", len(p)) }

// AnyOf matches when some term matches.
type AnyOf []Predicate

func (p AnyOf) Evaluate(env *Env, src engine.Source) (engine.Outcome, error) {
	for _, t := range p {
		o, err := t.Evaluate(env, src)
		if err != nil {
			return engine.Outcome{}, err
		}
		if matched(o) {
			return engine.BoolOutcome(true), nil
		}
	}
	return engine.BoolOutcome(false), nil
}

func (p AnyOf) String() string { return fmt.Sprintf("any_of(%d)", len(p)) }

func (Block) predicate()         {}
func (Biome) predicate()         {}
func (Dimension) predicate()     {}
func (ScoreCompare) predicate()  {}
func (ScoreRange) predicate()    {}
func (EntityCount) predicate()   {}
func (ItemCount) predicate()     {}
func (DataMatch) predicate()     {}
func (Named) predicate()         {}
func (Stopwatch) predicate()     {}
func (BlocksCompare) predicate() {}
func (Not) predicate()           {}
func (AllOf) predicate()         {}
func (AnyOf) predicate()         {}
