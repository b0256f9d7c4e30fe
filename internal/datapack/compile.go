package datapack

import (
	"github.com/roach88/chainexec/internal/commands"
	"github.com/roach88/chainexec/internal/data"
	"github.com/roach88/chainexec/internal/engine"
	"github.com/roach88/chainexec/internal/predicate"
	"github.com/roach88/chainexec/internal/redirect"
	"github.com/roach88/chainexec/internal/sink"
	"github.com/roach88/chainexec/internal/world"
)

// Compiler turns command lines into engine chains bound to one world.
type Compiler struct {
	World      *world.World
	Commands   *commands.Env
	Predicates *predicate.Env
	Backends   *sink.Backends
}

// NewCompiler returns a compiler whose leaves act on w and whose store
// steps write through backends. A nil backends stores into w.
func NewCompiler(w *world.World, backends *sink.Backends) *Compiler {
	if backends == nil {
		backends = &sink.Backends{Scores: w, Data: w, BossBars: w}
	}
	return &Compiler{
		World:      w,
		Commands:   commands.NewEnv(w),
		Predicates: &predicate.Env{World: w, Named: map[string]predicate.Predicate{}},
		Backends:   backends,
	}
}

// Compile parses one command line. A leading "/" is ignored.
func (c *Compiler) Compile(line string) (engine.Chain, error) {
	if len(line) > 0 && line[0] == '/' {
		line = line[1:]
	}
	r, err := newReader(line)
	if err != nil {
		return engine.Chain{}, err
	}
	chain := engine.Chain{Input: line}
	if err := c.command(r, &chain); err != nil {
		return engine.Chain{}, err
	}
	return chain, nil
}

// command parses a full command into ch, appending to its steps.
func (c *Compiler) command(r *reader, ch *engine.Chain) error {
	pos := r.pos()
	switch name := r.next(); name {
	case "":
		return r.errorf("Unknown or incomplete command")
	case "execute":
		return c.execute(r, ch)
	case "function":
		t, err := c.functionCall(r)
		if err != nil {
			return err
		}
		ch.Terminal = t
	case "return":
		return c.returnCommand(r, ch)
	case "debug":
		if _, err := r.literal("function"); err != nil {
			return err
		}
		id, err := r.id("a function")
		if err != nil {
			return err
		}
		ch.Terminal = engine.TraceFunctions{Name: id}
	default:
		build, ok := leaves[name]
		if !ok {
			return &SyntaxError{Input: r.input, Pos: pos, Message: "Unknown or incomplete command"}
		}
		ins, err := build(c, r)
		if err != nil {
			return err
		}
		ch.Terminal = engine.Run{Instruction: ins}
	}
	return r.end()
}

func (c *Compiler) returnCommand(r *reader, ch *engine.Chain) error {
	switch r.peek() {
	case "fail":
		r.next()
		ch.Terminal = engine.ReturnFail{}
	case "run":
		r.next()
		inner := engine.Chain{Input: r.input[r.pos():]}
		if err := c.command(r, &inner); err != nil {
			return err
		}
		ch.Terminal = engine.ReturnRun{Chain: inner}
	default:
		n, err := r.integer("an integer")
		if err != nil {
			return err
		}
		ch.Terminal = engine.Return{Value: n}
	}
	return r.end()
}

// functionCall parses "<name> [<compound> | with <ref> [<path>]]".
func (c *Compiler) functionCall(r *reader) (engine.Functions, error) {
	id, err := r.id("a function")
	if err != nil {
		return engine.Functions{}, err
	}
	args, err := c.arguments(r)
	if err != nil {
		return engine.Functions{}, err
	}
	return engine.Functions{Name: id, Args: args}, nil
}

func (c *Compiler) arguments(r *reader) (engine.ArgumentSource, error) {
	switch w := r.peek(); {
	case w == "":
		return nil, nil
	case w[0] == '{':
		args, err := r.compound()
		if err != nil {
			return nil, err
		}
		return ConstArgs(args), nil
	case w == "with":
		r.next()
		ref, err := c.dataRef(r)
		if err != nil {
			return nil, err
		}
		a := RefArgs{World: c.World, Ref: ref}
		if !r.done() {
			p, err := r.path()
			if err != nil {
				return nil, err
			}
			a.Path = &p
		}
		return a, nil
	}
	return nil, nil
}

func (c *Compiler) execute(r *reader, ch *engine.Chain) error {
	for {
		pos := r.pos()
		sub := r.next()
		var step engine.Step
		var err error
		switch sub {
		case "":
			return r.errorf("Unknown or incomplete command")
		case "run":
			return c.command(r, ch)
		case "if", "unless":
			done, err := c.condition(r, ch, sub == "if")
			if err != nil || done {
				return err
			}
			continue
		case "store":
			step, err = c.store(r)
		default:
			var p engine.Producer
			p, err = c.producer(sub, r)
			if p == nil && err == nil {
				return &SyntaxError{Input: r.input, Pos: pos, Message: "Unknown or incomplete command"}
			}
			step = engine.Redirect{Producer: p}
		}
		if err != nil {
			return err
		}
		ch.Steps = append(ch.Steps, step)
	}
}

// producer parses a redirect or fork subcommand. It returns nil, nil for an
// unknown subcommand.
func (c *Compiler) producer(sub string, r *reader) (engine.Producer, error) {
	w := c.World
	switch sub {
	case "as", "at":
		sel, err := r.selector()
		if err != nil {
			return nil, err
		}
		if sub == "as" {
			return redirect.As{World: w, Selector: sel}, nil
		}
		return redirect.At{World: w, Selector: sel}, nil
	case "positioned":
		if r.peek() == "as" {
			r.next()
			sel, err := r.selector()
			if err != nil {
				return nil, err
			}
			return redirect.PositionedAs{World: w, Selector: sel}, nil
		}
		pos, err := r.coordinates()
		if err != nil {
			return nil, err
		}
		return redirect.Positioned{Pos: pos}, nil
	case "rotated":
		if r.peek() == "as" {
			r.next()
			sel, err := r.selector()
			if err != nil {
				return nil, err
			}
			return redirect.RotatedAs{World: w, Selector: sel}, nil
		}
		rot, err := r.rotation()
		if err != nil {
			return nil, err
		}
		return redirect.Rotated{Rotation: rot}, nil
	case "facing":
		if r.peek() == "entity" {
			r.next()
			sel, err := r.selector()
			if err != nil {
				return nil, err
			}
			anchor, err := c.anchor(r)
			if err != nil {
				return nil, err
			}
			return redirect.FacingEntity{World: w, Selector: sel, Anchor: anchor}, nil
		}
		pos, err := r.coordinates()
		if err != nil {
			return nil, err
		}
		return redirect.Facing{Pos: pos}, nil
	case "in":
		dim, err := r.id("a dimension")
		if err != nil {
			return nil, err
		}
		return redirect.In{Dimension: dim}, nil
	case "anchored":
		anchor, err := c.anchor(r)
		if err != nil {
			return nil, err
		}
		return redirect.Anchored{Anchor: anchor}, nil
	case "align":
		pos := r.pos()
		axes, err := redirect.ParseAxes(r.next())
		if err != nil {
			return nil, r.wrap(pos, err)
		}
		return redirect.Align{Axes: axes}, nil
	case "on":
		pos := r.pos()
		rel, err := world.ParseRelation(r.next())
		if err != nil {
			return nil, r.wrap(pos, err)
		}
		return redirect.On{World: w, Relation: rel}, nil
	case "summon":
		typ, err := r.id("an entity type")
		if err != nil {
			return nil, err
		}
		return redirect.Summon{World: w, Type: typ}, nil
	}
	return nil, nil
}

func (c *Compiler) anchor(r *reader) (engine.Anchor, error) {
	pos := r.pos()
	a, err := engine.ParseAnchor(r.next())
	if err != nil {
		return 0, r.wrap(pos, err)
	}
	return a, nil
}

// condition parses an if/unless subcommand. A condition that ends the line
// becomes the Test terminal and done is true.
func (c *Compiler) condition(r *reader, ch *engine.Chain, expect bool) (done bool, err error) {
	if r.peek() == "function" {
		r.next()
		id, err := r.id("a function")
		if err != nil {
			return false, err
		}
		ch.Steps = append(ch.Steps, engine.IfFunction{Name: id, Expect: expect})
		if r.done() {
			ch.Terminal = engine.Test{Condition: passed, Expect: true}
			return true, nil
		}
		return false, nil
	}

	p, err := c.predicate(r)
	if err != nil {
		return false, err
	}
	cond := predicate.Bind(c.Predicates, p)
	if r.done() {
		ch.Terminal = engine.Test{Condition: cond, Expect: expect}
		return true, nil
	}
	ch.Steps = append(ch.Steps, engine.Conditional{Condition: cond, Expect: expect})
	return false, nil
}

// passed is the test after a trailing "if function": the step already
// filtered the sources.
var passed = engine.ConditionFunc(func(engine.Source) (engine.Outcome, error) {
	return engine.BoolOutcome(true), nil
})

// CompilePredicate parses a condition as written after "if", such as
// "entity @e[type=cow]" or "score @s points matches 1..".
func (c *Compiler) CompilePredicate(text string) (predicate.Predicate, error) {
	r, err := newReader(text)
	if err != nil {
		return nil, err
	}
	p, err := c.predicate(r)
	if err != nil {
		return nil, err
	}
	if err := r.end(); err != nil {
		return nil, err
	}
	return p, nil
}

// predicate parses the condition grammar shared by if/unless and named
// predicates.
func (c *Compiler) predicate(r *reader) (predicate.Predicate, error) {
	pos := r.pos()
	switch kind := r.next(); kind {
	case "block":
		at, err := r.coordinates()
		if err != nil {
			return nil, err
		}
		block, err := r.id("a block")
		if err != nil {
			return nil, err
		}
		return predicate.Block{Pos: at, Block: block}, nil
	case "biome":
		at, err := r.coordinates()
		if err != nil {
			return nil, err
		}
		biome, err := r.id("a biome")
		if err != nil {
			return nil, err
		}
		return predicate.Biome{Pos: at, Biome: biome}, nil
	case "dimension":
		dim, err := r.id("a dimension")
		if err != nil {
			return nil, err
		}
		return predicate.Dimension{Dimension: dim}, nil
	case "entity":
		sel, err := r.selector()
		if err != nil {
			return nil, err
		}
		return predicate.EntityCount{Selector: sel}, nil
	case "score":
		return c.scorePredicate(r)
	case "items":
		if _, err := r.literal("entity"); err != nil {
			return nil, err
		}
		sel, err := r.selector()
		if err != nil {
			return nil, err
		}
		slot, err := r.word("a slot")
		if err != nil {
			return nil, err
		}
		item, err := r.word("an item")
		if err != nil {
			return nil, err
		}
		if item != "*" {
			item = Namespaced(item)
		}
		return predicate.ItemCount{Selector: sel, Slot: slot, Item: item}, nil
	case "data":
		ref, err := c.dataRef(r)
		if err != nil {
			return nil, err
		}
		p, err := r.path()
		if err != nil {
			return nil, err
		}
		return predicate.DataMatch{Ref: ref, Path: p}, nil
	case "predicate":
		id, err := r.id("a predicate")
		if err != nil {
			return nil, err
		}
		return predicate.Named{Name: id}, nil
	case "stopwatch":
		id, err := r.id("a stopwatch")
		if err != nil {
			return nil, err
		}
		rg, err := r.floatRange()
		if err != nil {
			return nil, err
		}
		return predicate.Stopwatch{ID: id, Range: rg}, nil
	case "blocks":
		start, err := r.coordinates()
		if err != nil {
			return nil, err
		}
		end, err := r.coordinates()
		if err != nil {
			return nil, err
		}
		dest, err := r.coordinates()
		if err != nil {
			return nil, err
		}
		mode, err := r.literal("all", "masked")
		if err != nil {
			return nil, err
		}
		return predicate.BlocksCompare{Start: start, End: end, Dest: dest, Masked: mode == "masked"}, nil
	}
	return nil, &SyntaxError{Input: r.input, Pos: pos, Message: "Unknown condition"}
}

func (c *Compiler) scorePredicate(r *reader) (predicate.Predicate, error) {
	target, err := r.selector()
	if err != nil {
		return nil, err
	}
	objective, err := r.word("an objective")
	if err != nil {
		return nil, err
	}
	pos := r.pos()
	op := r.next()
	if op == "matches" {
		rg, err := r.intRange()
		if err != nil {
			return nil, err
		}
		return predicate.ScoreRange{Target: target, Objective: objective, Range: rg}, nil
	}
	cmp, err := predicate.ParseCompareOp(op)
	if err != nil {
		return nil, r.wrap(pos, err)
	}
	source, err := r.selector()
	if err != nil {
		return nil, err
	}
	sourceObjective, err := r.word("an objective")
	if err != nil {
		return nil, err
	}
	return predicate.ScoreCompare{
		Target:          target,
		TargetObjective: objective,
		Op:              cmp,
		Source:          source,
		SourceObjective: sourceObjective,
	}, nil
}

// dataRef parses "entity <selector>", "block <pos>" or "storage <id>".
func (c *Compiler) dataRef(r *reader) (sink.RefResolver, error) {
	pos := r.pos()
	kind, err := sink.ParseRefKind(r.next())
	if err != nil {
		return nil, r.wrap(pos, err)
	}
	switch kind {
	case sink.RefEntity:
		sel, err := r.selector()
		if err != nil {
			return nil, err
		}
		return world.EntityRef{World: c.World, Selector: sel}, nil
	case sink.RefBlock:
		at, err := r.coordinates()
		if err != nil {
			return nil, err
		}
		return world.BlockRef{Pos: at}, nil
	default:
		id, err := r.id("a storage id")
		if err != nil {
			return nil, err
		}
		return world.StorageRef(id), nil
	}
}

// store parses "result|success <target>".
func (c *Compiler) store(r *reader) (engine.Step, error) {
	mode, err := r.literal("result", "success")
	if err != nil {
		return nil, err
	}
	raw := mode == "result"

	pos := r.pos()
	switch kind := r.next(); kind {
	case "score":
		sel, err := r.selector()
		if err != nil {
			return nil, err
		}
		objective, err := r.word("an objective")
		if err != nil {
			return nil, err
		}
		return engine.StoreResult{
			Target: sink.ScoreTarget{Backends: c.Backends, Holders: world.HolderSelector{World: c.World, Selector: sel}, Objective: objective},
			Raw:    raw,
		}, nil
	case "bossbar":
		id, err := r.id("a bossbar")
		if err != nil {
			return nil, err
		}
		field, err := r.literal("value", "max")
		if err != nil {
			return nil, err
		}
		return engine.StoreResult{Target: sink.BossBarTarget{Backends: c.Backends, ID: id, Max: field == "max"}, Raw: raw}, nil
	case "entity", "block", "storage":
		r.i--
		ref, err := c.dataRef(r)
		if err != nil {
			return nil, err
		}
		p, err := r.path()
		if err != nil {
			return nil, err
		}
		typePos := r.pos()
		typ, err := data.ParseNumericType(r.next())
		if err != nil {
			return nil, r.wrap(typePos, err)
		}
		scale, err := r.float("a scale")
		if err != nil {
			return nil, err
		}
		return engine.StoreResult{
			Target: sink.DataTarget{Backends: c.Backends, Ref: ref, Path: p, Type: typ, Scale: scale},
			Raw:    raw,
		}, nil
	}
	return nil, &SyntaxError{Input: r.input, Pos: pos, Message: "Unknown store target"}
}

// ConstArgs are macro arguments given inline.
type ConstArgs data.Compound

func (a ConstArgs) Arguments(engine.Source) (data.Compound, error) {
	return data.Compound(a).Clone(), nil
}

// RefArgs read macro arguments from stored data, optionally below Path.
type RefArgs struct {
	World *world.World
	Ref   sink.RefResolver
	Path  *data.Path
}

func (a RefArgs) Arguments(src engine.Source) (data.Compound, error) {
	ref, err := a.Ref.ResolveRef(src)
	if err != nil {
		return nil, err
	}
	root, err := a.World.GetData(ref)
	if err != nil {
		return nil, err
	}
	if a.Path == nil {
		return root, nil
	}
	matches := a.Path.Get(root)
	if len(matches) != 1 {
		return nil, engine.NewCommandFailed("Found %d elements matching %s, expected one", len(matches), a.Path)
	}
	c, ok := matches[0].(data.Compound)
	if !ok {
		return nil, engine.NewCommandFailed("Expected compound tag, got %s", matches[0].Type())
	}
	return c, nil
}
