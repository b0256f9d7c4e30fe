package datapack

import (
	"github.com/roach88/chainexec/internal/commands"
	"github.com/roach88/chainexec/internal/data"
	"github.com/roach88/chainexec/internal/engine"
	"github.com/roach88/chainexec/internal/geom"
	"github.com/roach88/chainexec/internal/world"
)

type leafBuilder func(c *Compiler, r *reader) (engine.Instruction, error)

// leaves maps a command name to the parser of its arguments.
var leaves = map[string]leafBuilder{
	"say":        say,
	"scoreboard": scoreboard,
	"data":       dataCommand,
	"setblock":   setblock,
	"fill":       fill,
	"fillbiome":  fillbiome,
	"kill":       kill,
	"summon":     summon,
	"tag":        tagCommand,
	"tp":         teleport,
	"teleport":   teleport,
	"give":       give,
	"clear":      clearItems,
	"bossbar":    bossbar,
	"time":       timeCommand,
	"stopwatch":  stopwatch,
}

func say(_ *Compiler, r *reader) (engine.Instruction, error) {
	if r.done() {
		return nil, r.errorf("Expected a message")
	}
	return commands.Say{Message: r.rest()}, nil
}

func scoreboard(c *Compiler, r *reader) (engine.Instruction, error) {
	env := c.Commands
	group, err := r.literal("objectives", "players")
	if err != nil {
		return nil, err
	}
	if group == "objectives" {
		if _, err := r.literal("add"); err != nil {
			return nil, err
		}
		name, err := r.word("an objective name")
		if err != nil {
			return nil, err
		}
		criteria := "dummy"
		if !r.done() {
			criteria = r.next()
		}
		return commands.ObjectiveAdd{Env: env, Name: name, Criteria: criteria}, nil
	}

	action, err := r.literal("set", "add", "remove", "get", "reset", "operation")
	if err != nil {
		return nil, err
	}
	targets, err := r.selector()
	if err != nil {
		return nil, err
	}
	if action == "reset" {
		objective := ""
		if !r.done() {
			objective = r.next()
		}
		return commands.ScoreReset{Env: env, Targets: targets, Objective: objective}, nil
	}
	objective, err := r.word("an objective")
	if err != nil {
		return nil, err
	}

	switch action {
	case "get":
		return commands.ScoreGet{Env: env, Target: targets, Objective: objective}, nil
	case "operation":
		pos := r.pos()
		op, err := commands.ParseScoreOp(r.next())
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
		return commands.ScoreOperation{
			Env: env, Targets: targets, TargetObjective: objective,
			Op: op, Source: source, SourceObjective: sourceObjective,
		}, nil
	}

	n, err := r.integer("an integer")
	if err != nil {
		return nil, err
	}
	switch action {
	case "set":
		return commands.ScoreSet{Env: env, Targets: targets, Objective: objective, Value: n}, nil
	case "remove":
		n = -n
	}
	return commands.ScoreAdd{Env: env, Targets: targets, Objective: objective, Delta: n}, nil
}

func dataCommand(c *Compiler, r *reader) (engine.Instruction, error) {
	env := c.Commands
	action, err := r.literal("get", "modify", "merge")
	if err != nil {
		return nil, err
	}
	ref, err := c.dataRef(r)
	if err != nil {
		return nil, err
	}

	switch action {
	case "get":
		get := commands.DataGet{Env: env, Ref: ref, Scale: 1}
		if r.done() {
			return get, nil
		}
		p, err := r.path()
		if err != nil {
			return nil, err
		}
		get.Path = &p
		if get.Scale, err = r.optionalFloat(1); err != nil {
			return nil, err
		}
		return get, nil
	case "merge":
		tag, err := r.compound()
		if err != nil {
			return nil, err
		}
		return commands.DataMerge{Env: env, Ref: ref, Compound: tag}, nil
	}

	p, err := r.path()
	if err != nil {
		return nil, err
	}
	if _, err := r.literal("set"); err != nil {
		return nil, err
	}
	from, err := r.literal("value", "from")
	if err != nil {
		return nil, err
	}
	if from == "value" {
		v, err := r.tag()
		if err != nil {
			return nil, err
		}
		return commands.DataSet{Env: env, Ref: ref, Path: p, Value: v}, nil
	}
	src, err := c.dataRef(r)
	if err != nil {
		return nil, err
	}
	srcPath, err := r.path()
	if err != nil {
		return nil, err
	}
	return commands.DataCopy{Env: env, Ref: ref, Path: p, From: src, FromPath: srcPath}, nil
}

func setblock(c *Compiler, r *reader) (engine.Instruction, error) {
	pos, err := r.coordinates()
	if err != nil {
		return nil, err
	}
	block, err := r.id("a block")
	if err != nil {
		return nil, err
	}
	return commands.SetBlock{Env: c.Commands, Pos: pos, Block: block}, nil
}

func box(r *reader) (from, to geom.Coordinates, err error) {
	if from, err = r.coordinates(); err != nil {
		return
	}
	to, err = r.coordinates()
	return
}

func fill(c *Compiler, r *reader) (engine.Instruction, error) {
	from, to, err := box(r)
	if err != nil {
		return nil, err
	}
	block, err := r.id("a block")
	if err != nil {
		return nil, err
	}
	return commands.Fill{Env: c.Commands, From: from, To: to, Block: block}, nil
}

func fillbiome(c *Compiler, r *reader) (engine.Instruction, error) {
	from, to, err := box(r)
	if err != nil {
		return nil, err
	}
	biome, err := r.id("a biome")
	if err != nil {
		return nil, err
	}
	return commands.SetBiome{Env: c.Commands, From: from, To: to, Biome: biome}, nil
}

func optionalSelector(r *reader) (*world.Selector, error) {
	if r.done() {
		return nil, nil
	}
	return r.selector()
}

func kill(c *Compiler, r *reader) (engine.Instruction, error) {
	sel, err := optionalSelector(r)
	if err != nil {
		return nil, err
	}
	return commands.Kill{Env: c.Commands, Targets: sel}, nil
}

func summon(c *Compiler, r *reader) (engine.Instruction, error) {
	typ, err := r.id("an entity type")
	if err != nil {
		return nil, err
	}
	s := commands.Summon{Env: c.Commands, Type: typ}
	if !r.done() {
		pos, err := r.coordinates()
		if err != nil {
			return nil, err
		}
		s.Pos = &pos
	}
	return s, nil
}

func tagCommand(c *Compiler, r *reader) (engine.Instruction, error) {
	sel, err := r.selector()
	if err != nil {
		return nil, err
	}
	action, err := r.literal("add", "remove")
	if err != nil {
		return nil, err
	}
	name, err := r.word("a tag name")
	if err != nil {
		return nil, err
	}
	return commands.TagAdd{Env: c.Commands, Targets: sel, Tag: name, Remove: action == "remove"}, nil
}

// teleport parses the four forms of tp: <pos>, <destination>,
// <targets> <pos> [<rotation>] and <targets> <destination>.
func teleport(c *Compiler, r *reader) (engine.Instruction, error) {
	tp := commands.Teleport{Env: c.Commands}
	if !isCoordinate(r.peek()) {
		sel, err := r.selector()
		if err != nil {
			return nil, err
		}
		if r.done() {
			tp.Destination = sel
			return tp, nil
		}
		tp.Targets = sel
		if !isCoordinate(r.peek()) {
			dest, err := r.selector()
			if err != nil {
				return nil, err
			}
			tp.Destination = dest
			return tp, nil
		}
	}
	pos, err := r.coordinates()
	if err != nil {
		return nil, err
	}
	tp.Pos = &pos
	if !r.done() && tp.Targets != nil {
		rot, err := r.rotation()
		if err != nil {
			return nil, err
		}
		tp.Rotation = &rot
	}
	return tp, nil
}

func give(c *Compiler, r *reader) (engine.Instruction, error) {
	sel, err := r.selector()
	if err != nil {
		return nil, err
	}
	item, err := r.id("an item")
	if err != nil {
		return nil, err
	}
	count := 1
	if !r.done() {
		if count, err = r.integer("a count"); err != nil {
			return nil, err
		}
	}
	return commands.Give{Env: c.Commands, Targets: sel, Item: item, Count: count}, nil
}

func clearItems(c *Compiler, r *reader) (engine.Instruction, error) {
	cl := commands.Clear{Env: c.Commands, Max: -1}
	var err error
	if cl.Targets, err = optionalSelector(r); err != nil {
		return nil, err
	}
	if !r.done() {
		cl.Item = Namespaced(r.next())
	}
	if !r.done() {
		if cl.Max, err = r.integer("a count"); err != nil {
			return nil, err
		}
	}
	return cl, nil
}

func bossbar(c *Compiler, r *reader) (engine.Instruction, error) {
	env := c.Commands
	action, err := r.literal("add", "set", "get")
	if err != nil {
		return nil, err
	}
	id, err := r.id("a bossbar")
	if err != nil {
		return nil, err
	}
	if action == "add" {
		if r.done() {
			return nil, r.errorf("Expected a name")
		}
		name := r.rest()
		if v, err := data.Parse(name); err == nil {
			if s, ok := v.(data.String); ok {
				name = string(s)
			}
		}
		return commands.BossBarAdd{Env: env, ID: id, Name: name}, nil
	}
	field, err := r.literal("value", "max")
	if err != nil {
		return nil, err
	}
	if action == "get" {
		return commands.BossBarGet{Env: env, ID: id, Max: field == "max"}, nil
	}
	n, err := r.integer("an integer")
	if err != nil {
		return nil, err
	}
	return commands.BossBarSet{Env: env, ID: id, Max: field == "max", Value: n}, nil
}

func timeCommand(c *Compiler, r *reader) (engine.Instruction, error) {
	action, err := r.literal("add", "query")
	if err != nil {
		return nil, err
	}
	if action == "query" {
		if _, err := r.literal("gametime"); err != nil {
			return nil, err
		}
		return commands.TimeQuery{Env: c.Commands}, nil
	}
	n, err := r.integer("a number of ticks")
	if err != nil {
		return nil, err
	}
	return commands.TimeAdd{Env: c.Commands, Ticks: int64(n)}, nil
}

func stopwatch(c *Compiler, r *reader) (engine.Instruction, error) {
	env := c.Commands
	action, err := r.literal("create", "restart", "query", "remove")
	if err != nil {
		return nil, err
	}
	id, err := r.id("a stopwatch")
	if err != nil {
		return nil, err
	}
	switch action {
	case "create", "restart":
		return commands.StopwatchCreate{Env: env, ID: id, Restart: action == "restart"}, nil
	case "remove":
		return commands.StopwatchRemove{Env: env, ID: id}, nil
	}
	scale, err := r.optionalFloat(1)
	if err != nil {
		return nil, err
	}
	return commands.StopwatchQuery{Env: env, ID: id, Scale: scale}, nil
}
