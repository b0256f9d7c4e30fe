package commands

import (
	"fmt"
	"math"

	"github.com/roach88/chainexec/internal/engine"
)

// Say is "say <message>". It always succeeds with 1.
type Say struct {
	Message string
}

func (c Say) Execute(src engine.Source) (int, error) {
	src.SendSuccess(fmt.Sprintf("[%s] %s", src.Name(), c.Message))
	return 1, nil
}

// BossBarAdd is "bossbar add <id> <name>".
type BossBarAdd struct {
	Env  *Env
	ID   string
	Name string
}

func (c BossBarAdd) Execute(src engine.Source) (int, error) {
	if err := c.Env.World.AddBossBar(c.ID, c.Name); err != nil {
		return 0, engine.NewCommandFailed("%s", err)
	}
	src.SendSuccess(fmt.Sprintf("Created custom bossbar [%s]", c.Name))
	return 1, nil
}

// BossBarSet is "bossbar set <id> value|max <n>".
type BossBarSet struct {
	Env   *Env
	ID    string
	Max   bool
	Value int
}

func (c BossBarSet) Execute(src engine.Source) (int, error) {
	b, ok := c.Env.World.BossBar(c.ID)
	if !ok {
		return 0, engine.NewCommandFailed("No bossbar exists with the ID '%s'", c.ID)
	}
	cur := b.Value
	if c.Max {
		cur = b.Max
	}
	if cur == c.Value {
		if c.Max {
			return 0, engine.NewCommandFailed("Nothing changed. That's already the max of this bossbar")
		}
		return 0, engine.NewCommandFailed("Nothing changed. That's already the value of this bossbar")
	}
	if err := c.Env.World.SetBossBar(c.ID, c.Max, c.Value); err != nil {
		return 0, engine.NewCommandFailed("%s", err)
	}
	field := "value"
	if c.Max {
		field = "maximum"
	}
	src.SendSuccess(fmt.Sprintf("Custom bossbar [%s] has changed %s to %d", b.Name, field, c.Value))
	return c.Value, nil
}

// BossBarGet is "bossbar get <id> value|max".
type BossBarGet struct {
	Env *Env
	ID  string
	Max bool
}

func (c BossBarGet) Execute(src engine.Source) (int, error) {
	b, ok := c.Env.World.BossBar(c.ID)
	if !ok {
		return 0, engine.NewCommandFailed("No bossbar exists with the ID '%s'", c.ID)
	}
	if c.Max {
		src.SendSuccess(fmt.Sprintf("Custom bossbar [%s] has a maximum of %d", b.Name, b.Max))
		return b.Max, nil
	}
	src.SendSuccess(fmt.Sprintf("Custom bossbar [%s] has a value of %d", b.Name, b.Value))
	return b.Value, nil
}

// TimeAdd is "time add <ticks>". It returns the new game time.
type TimeAdd struct {
	Env   *Env
	Ticks int64
}

func (c TimeAdd) Execute(src engine.Source) (int, error) {
	c.Env.World.Advance(c.Ticks)
	t := c.Env.World.GameTime()
	src.SendSuccess(fmt.Sprintf("Set the time to %d", t))
	return int(t), nil
}

// TimeQuery is "time query gametime".
type TimeQuery struct {
	Env *Env
}

func (c TimeQuery) Execute(src engine.Source) (int, error) {
	t := c.Env.World.GameTime()
	src.SendSuccess(fmt.Sprintf("The time is %d", t))
	return int(t), nil
}

// StopwatchCreate is "stopwatch create|restart <id>". Create fails on an
// existing stopwatch, Restart on a missing one.
type StopwatchCreate struct {
	Env     *Env
	ID      string
	Restart bool
}

func (c StopwatchCreate) Execute(src engine.Source) (int, error) {
	_, exists := c.Env.World.Stopwatch(c.ID)
	switch {
	case c.Restart && !exists:
		return 0, engine.NewCommandFailed("No stopwatch exists with id %s", c.ID)
	case !c.Restart && exists:
		return 0, engine.NewCommandFailed("Stopwatch %s already exists", c.ID)
	}
	c.Env.World.StartStopwatch(c.ID)
	if c.Restart {
		src.SendSuccess(fmt.Sprintf("Restarted stopwatch %s", c.ID))
	} else {
		src.SendSuccess(fmt.Sprintf("Created stopwatch %s", c.ID))
	}
	return 1, nil
}

// StopwatchQuery is "stopwatch query <id> [<scale>]". It returns
// floor(seconds * Scale).
type StopwatchQuery struct {
	Env   *Env
	ID    string
	Scale float64
}

func (c StopwatchQuery) Execute(src engine.Source) (int, error) {
	secs, ok := c.Env.World.Stopwatch(c.ID)
	if !ok {
		return 0, engine.NewCommandFailed("No stopwatch exists with id %s", c.ID)
	}
	scale := c.Scale
	if scale == 0 {
		scale = 1
	}
	src.SendSuccess(fmt.Sprintf("Stopwatch %s has a value of %gs", c.ID, secs))
	return int(math.Floor(secs * scale)), nil
}

// StopwatchRemove is "stopwatch remove <id>".
type StopwatchRemove struct {
	Env *Env
	ID  string
}

func (c StopwatchRemove) Execute(src engine.Source) (int, error) {
	if !c.Env.World.RemoveStopwatch(c.ID) {
		return 0, engine.NewCommandFailed("No stopwatch exists with id %s", c.ID)
	}
	src.SendSuccess(fmt.Sprintf("Removed stopwatch %s", c.ID))
	return 1, nil
}

var (
	_ engine.Instruction = Say{}
	_ engine.Instruction = BossBarAdd{}
	_ engine.Instruction = BossBarSet{}
	_ engine.Instruction = BossBarGet{}
	_ engine.Instruction = TimeAdd{}
	_ engine.Instruction = TimeQuery{}
	_ engine.Instruction = StopwatchCreate{}
	_ engine.Instruction = StopwatchQuery{}
	_ engine.Instruction = StopwatchRemove{}
	_ engine.Instruction = ObjectiveAdd{}
	_ engine.Instruction = ScoreSet{}
	_ engine.Instruction = ScoreAdd{}
	_ engine.Instruction = ScoreGet{}
	_ engine.Instruction = ScoreReset{}
	_ engine.Instruction = ScoreOperation{}
	_ engine.Instruction = DataGet{}
	_ engine.Instruction = DataSet{}
	_ engine.Instruction = DataCopy{}
	_ engine.Instruction = DataMerge{}
	_ engine.Instruction = SetBlock{}
	_ engine.Instruction = Fill{}
	_ engine.Instruction = SetBiome{}
	_ engine.Instruction = Kill{}
	_ engine.Instruction = Summon{}
	_ engine.Instruction = TagAdd{}
	_ engine.Instruction = Teleport{}
	_ engine.Instruction = Give{}
	_ engine.Instruction = Clear{}
)
