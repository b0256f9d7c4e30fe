package commands

import (
	"fmt"

	"github.com/roach88/chainexec/internal/engine"
	"github.com/roach88/chainexec/internal/geom"
	"github.com/roach88/chainexec/internal/world"
)

// Kill is "kill [<targets>]". A nil Targets kills the executor.
type Kill struct {
	Env     *Env
	Targets *world.Selector
}

func (c Kill) Execute(src engine.Source) (int, error) {
	es, err := c.Env.targets(c.Targets, src)
	if err != nil {
		return 0, err
	}
	for _, e := range es {
		c.Env.World.Kill(e)
	}
	src.SendSuccess(fmt.Sprintf("Killed %s", describe(es)))
	return len(es), nil
}

// targets is entities, defaulting to the executor.
func (e *Env) targets(sel *world.Selector, src engine.Source) ([]*world.Entity, error) {
	if sel != nil {
		return e.entities(sel, src)
	}
	if self := world.Self(e.World, src); self != nil {
		return []*world.Entity{self}, nil
	}
	return nil, engine.NewEntityNotFound()
}

// Summon is "summon <type> [<pos>]". A nil Pos summons at the source.
type Summon struct {
	Env  *Env
	Type string
	Pos  *geom.Coordinates
}

func (c Summon) Execute(src engine.Source) (int, error) {
	pos := src.Position()
	if c.Pos != nil {
		pos = world.Resolve(src, *c.Pos)
	}
	e, err := c.Env.World.Spawn(world.EntitySpec{
		Type:      c.Type,
		Pos:       [3]float64{pos.X, pos.Y, pos.Z},
		Dimension: src.Dimension(),
	})
	if err != nil {
		return 0, engine.NewCommandFailed("Unable to summon entity: %v", err)
	}
	src.SendSuccess(fmt.Sprintf("Summoned new %s", e.Name()))
	return 1, nil
}

// TagAdd is "tag <targets> add|remove <name>". It returns how many
// entities changed and fails when none did.
type TagAdd struct {
	Env     *Env
	Targets *world.Selector
	Tag     string
	Remove  bool
}

func (c TagAdd) Execute(src engine.Source) (int, error) {
	es, err := c.Env.entities(c.Targets, src)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range es {
		if c.Env.World.SetTag(e, c.Tag, !c.Remove) {
			n++
		}
	}
	if n == 0 {
		if c.Remove {
			return 0, engine.NewCommandFailed("No tags were removed")
		}
		return 0, engine.NewCommandFailed("No tags were added")
	}
	if c.Remove {
		src.SendSuccess(fmt.Sprintf("Removed tag '%s' from %s", c.Tag, describe(es)))
	} else {
		src.SendSuccess(fmt.Sprintf("Added tag '%s' to %s", c.Tag, describe(es)))
	}
	return n, nil
}

// Teleport is "tp [<targets>] (<pos> [<rotation>] | <destination>)".
// Exactly one of Pos and Destination is set. A nil Targets moves the
// executor.
type Teleport struct {
	Env         *Env
	Targets     *world.Selector
	Pos         *geom.Coordinates
	Rotation    *geom.RotationArg
	Destination *world.Selector
}

func (c Teleport) Execute(src engine.Source) (int, error) {
	es, err := c.Env.targets(c.Targets, src)
	if err != nil {
		return 0, err
	}

	if c.Destination != nil {
		dest := c.Destination.Select(c.Env.World, src)
		if len(dest) == 0 {
			return 0, engine.NewEntityNotFound()
		}
		if len(dest) > 1 {
			return 0, engine.NewCommandFailed("Only one entity is allowed, but the provided selector allows more than one")
		}
		d := dest[0]
		for _, e := range es {
			c.Env.World.Teleport(e, d.Position(), d.Rotation(), d.Dimension())
		}
		src.SendSuccess(fmt.Sprintf("Teleported %s to %s", describe(es), d.Name()))
		return len(es), nil
	}

	pos := world.Resolve(src, *c.Pos)
	for _, e := range es {
		rot := e.Rotation()
		if c.Rotation != nil {
			rot = c.Rotation.Resolve(src.Rotation())
		}
		c.Env.World.Teleport(e, pos, rot, src.Dimension())
	}
	src.SendSuccess(fmt.Sprintf("Teleported %s to %s", describe(es), pos))
	return len(es), nil
}

// Give is "give <targets> <item> [<count>]". It returns the number of
// players.
type Give struct {
	Env     *Env
	Targets *world.Selector
	Item    string
	Count   int
}

func (c Give) Execute(src engine.Source) (int, error) {
	es, err := c.Env.entities(c.Targets, src)
	if err != nil {
		return 0, err
	}
	count := max(c.Count, 1)
	for _, e := range es {
		c.Env.World.GiveItem(e, c.Item, count)
	}
	src.SendSuccess(fmt.Sprintf("Gave %d [%s] to %s", count, c.Item, describe(es)))
	return len(es), nil
}

// Clear is "clear [<targets>] [<item>] [<max>]". An empty Item clears any
// item; a negative Max clears everything. Max 0 only counts. It returns
// the number of items removed or counted and fails when there were none.
type Clear struct {
	Env     *Env
	Targets *world.Selector
	Item    string
	Max     int
}

func (c Clear) Execute(src engine.Source) (int, error) {
	es, err := c.Env.targets(c.Targets, src)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, e := range es {
		if c.Max == 0 {
			for _, st := range e.Items() {
				if c.Item == "" || st.Item == c.Item {
					total += st.Count
				}
			}
			continue
		}
		total += c.Env.World.ClearItems(e, c.Item, c.Max)
	}
	if total == 0 {
		return 0, engine.NewCommandFailed("No items were found on %s", describe(es))
	}
	if c.Max == 0 {
		src.SendSuccess(fmt.Sprintf("Found %d matching item(s) on %s", total, describe(es)))
	} else {
		src.SendSuccess(fmt.Sprintf("Removed %d item(s) from %s", total, describe(es)))
	}
	return total, nil
}
