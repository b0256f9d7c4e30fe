package commands

import (
	"fmt"

	"github.com/roach88/chainexec/internal/engine"
	"github.com/roach88/chainexec/internal/world"
)

// ObjectiveAdd is "scoreboard objectives add <name> <criteria>".
type ObjectiveAdd struct {
	Env      *Env
	Name     string
	Criteria string
}

func (c ObjectiveAdd) Execute(src engine.Source) (int, error) {
	if err := c.Env.World.AddObjective(c.Name, c.Criteria); err != nil {
		return 0, engine.NewCommandFailed("%s", err)
	}
	src.SendSuccess(fmt.Sprintf("Created new objective [%s]", c.Name))
	return c.Env.objectiveCount(), nil
}

func (e *Env) objectiveCount() int { return len(e.World.Objectives()) }

// holders resolves score holders; an entity selector matching nothing is an
// error.
func (e *Env) holders(sel *world.Selector, src engine.Source) ([]string, error) {
	hs := sel.Holders(e.World, src)
	if len(hs) == 0 {
		return nil, engine.NewEntityNotFound()
	}
	return hs, nil
}

func (e *Env) requireObjective(name string) error {
	if !e.World.HasObjective(name) {
		return engine.NewCommandFailed("Unknown scoreboard objective '%s'", name)
	}
	return nil
}

func holderText(hs []string) string {
	if len(hs) == 1 {
		return hs[0]
	}
	return fmt.Sprintf("%d entities", len(hs))
}

// ScoreSet is "scoreboard players set <targets> <objective> <value>". It
// returns Value times the number of holders.
type ScoreSet struct {
	Env       *Env
	Targets   *world.Selector
	Objective string
	Value     int
}

func (c ScoreSet) Execute(src engine.Source) (int, error) {
	if err := c.Env.requireObjective(c.Objective); err != nil {
		return 0, err
	}
	hs, err := c.Env.holders(c.Targets, src)
	if err != nil {
		return 0, err
	}
	for _, h := range hs {
		if err := c.Env.World.SetScore(c.Objective, h, c.Value); err != nil {
			return 0, engine.NewCommandFailed("%s", err)
		}
	}
	src.SendSuccess(fmt.Sprintf("Set [%s] for %s to %d", c.Objective, holderText(hs), c.Value))
	return c.Value * len(hs), nil
}

// ScoreAdd is "scoreboard players add|remove". Remove is Add with a
// negated Delta. It returns the sum of the new scores.
type ScoreAdd struct {
	Env       *Env
	Targets   *world.Selector
	Objective string
	Delta     int
}

func (c ScoreAdd) Execute(src engine.Source) (int, error) {
	if err := c.Env.requireObjective(c.Objective); err != nil {
		return 0, err
	}
	hs, err := c.Env.holders(c.Targets, src)
	if err != nil {
		return 0, err
	}
	total, last := 0, 0
	for _, h := range hs {
		v, _ := c.Env.World.Score(c.Objective, h)
		last = v + c.Delta
		if err := c.Env.World.SetScore(c.Objective, h, last); err != nil {
			return 0, engine.NewCommandFailed("%s", err)
		}
		total += last
	}
	verb, amount, prep := "Added", c.Delta, "to"
	if c.Delta < 0 {
		verb, amount, prep = "Removed", -c.Delta, "from"
	}
	if len(hs) == 1 {
		src.SendSuccess(fmt.Sprintf("%s %d %s [%s] for %s (now %d)", verb, amount, prep, c.Objective, hs[0], last))
	} else {
		src.SendSuccess(fmt.Sprintf("%s %d %s [%s] for %d entities", verb, amount, prep, c.Objective, len(hs)))
	}
	return total, nil
}

// ScoreGet is "scoreboard players get <target> <objective>".
type ScoreGet struct {
	Env       *Env
	Target    *world.Selector
	Objective string
}

func (c ScoreGet) Execute(src engine.Source) (int, error) {
	if err := c.Env.requireObjective(c.Objective); err != nil {
		return 0, err
	}
	hs, err := c.Env.holders(c.Target, src)
	if err != nil {
		return 0, err
	}
	if len(hs) > 1 {
		return 0, engine.NewCommandFailed("Only one entity is allowed, but the provided selector allows more than one")
	}
	v, ok := c.Env.World.Score(c.Objective, hs[0])
	if !ok {
		return 0, engine.NewCommandFailed("Can't get value of %s for %s; none is set", c.Objective, hs[0])
	}
	src.SendSuccess(fmt.Sprintf("%s has %d [%s]", hs[0], v, c.Objective))
	return v, nil
}

// ScoreReset is "scoreboard players reset <targets> [<objective>]". An
// empty Objective resets every objective.
type ScoreReset struct {
	Env       *Env
	Targets   *world.Selector
	Objective string
}

func (c ScoreReset) Execute(src engine.Source) (int, error) {
	hs, err := c.Env.holders(c.Targets, src)
	if err != nil {
		return 0, err
	}
	objectives := []string{c.Objective}
	if c.Objective == "" {
		objectives = c.Env.World.Objectives()
	} else if err := c.Env.requireObjective(c.Objective); err != nil {
		return 0, err
	}
	for _, h := range hs {
		for _, o := range objectives {
			c.Env.World.ResetScore(o, h)
		}
	}
	if c.Objective == "" {
		src.SendSuccess(fmt.Sprintf("Reset all scores for %s", holderText(hs)))
	} else {
		src.SendSuccess(fmt.Sprintf("Reset [%s] for %s", c.Objective, holderText(hs)))
	}
	return len(hs), nil
}

// ScoreOp is a "scoreboard players operation" operator.
type ScoreOp string

const (
	OpAssign ScoreOp = "="
	OpAdd    ScoreOp = "+="
	OpSub    ScoreOp = "-="
	OpMul    ScoreOp = "*="
	OpDiv    ScoreOp = "/="
	OpMod    ScoreOp = "%="
	OpMin    ScoreOp = "<"
	OpMax    ScoreOp = ">"
	OpSwap   ScoreOp = "><"
)

var scoreOps = []ScoreOp{OpAssign, OpAdd, OpSub, OpMul, OpDiv, OpMod, OpMin, OpMax, OpSwap}

// ParseScoreOp parses an operation operator.
func ParseScoreOp(s string) (ScoreOp, error) {
	for _, op := range scoreOps {
		if string(op) == s {
			return op, nil
		}
	}
	return "", fmt.Errorf("invalid operation %q", s)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	return a - floorDiv(a, b)*b
}

// apply returns the new target and source values.
func (op ScoreOp) apply(a, b int) (int, int, error) {
	switch op {
	case OpAssign:
		return b, b, nil
	case OpAdd:
		return a + b, b, nil
	case OpSub:
		return a - b, b, nil
	case OpMul:
		return a * b, b, nil
	case OpDiv:
		if b == 0 {
			return 0, 0, engine.NewCommandFailed("You can't divide by zero")
		}
		return floorDiv(a, b), b, nil
	case OpMod:
		if b == 0 {
			return 0, 0, engine.NewCommandFailed("You can't divide by zero")
		}
		return floorMod(a, b), b, nil
	case OpMin:
		return min(a, b), b, nil
	case OpMax:
		return max(a, b), b, nil
	case OpSwap:
		return b, a, nil
	}
	return 0, 0, engine.NewCommandFailed("Invalid operation")
}

// ScoreOperation is "scoreboard players operation <targets> <objective>
// <op> <source> <objective>". Unset scores count as 0. It returns the sum
// of the new target scores.
type ScoreOperation struct {
	Env             *Env
	Targets         *world.Selector
	TargetObjective string
	Op              ScoreOp
	Source          *world.Selector
	SourceObjective string
}

func (c ScoreOperation) Execute(src engine.Source) (int, error) {
	for _, o := range []string{c.TargetObjective, c.SourceObjective} {
		if err := c.Env.requireObjective(o); err != nil {
			return 0, err
		}
	}
	targets, err := c.Env.holders(c.Targets, src)
	if err != nil {
		return 0, err
	}
	sources, err := c.Env.holders(c.Source, src)
	if err != nil {
		return 0, err
	}

	w := c.Env.World
	total := 0
	for _, t := range targets {
		for _, s := range sources {
			a, _ := w.Score(c.TargetObjective, t)
			b, _ := w.Score(c.SourceObjective, s)
			na, nb, err := c.Op.apply(a, b)
			if err != nil {
				return 0, err
			}
			if err := w.SetScore(c.TargetObjective, t, na); err != nil {
				return 0, engine.NewCommandFailed("%s", err)
			}
			if c.Op == OpSwap {
				if err := w.SetScore(c.SourceObjective, s, nb); err != nil {
					return 0, engine.NewCommandFailed("%s", err)
				}
			}
		}
		v, _ := w.Score(c.TargetObjective, t)
		total += v
	}
	src.SendSuccess(fmt.Sprintf("Set [%s] for %s to %d", c.TargetObjective, holderText(targets), total))
	return total, nil
}
