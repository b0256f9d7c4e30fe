package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/chainexec/internal/data"
	"github.com/roach88/chainexec/internal/engine"
	"github.com/roach88/chainexec/internal/geom"
	"github.com/roach88/chainexec/internal/world"
)

type recorder struct {
	lines []string
}

func (r *recorder) SendMessage(text string, _ bool) { r.lines = append(r.lines, text) }

func (r *recorder) last() string {
	if len(r.lines) == 0 {
		return ""
	}
	return r.lines[len(r.lines)-1]
}

func sel(s string) *world.Selector { return world.MustParseSelector(s) }

func coords(t *testing.T, s string) geom.Coordinates {
	t.Helper()
	c, err := geom.ParseCoordinates(s)
	require.NoError(t, err)
	return c
}

// farm has two players and two cows around the origin.
func farm(t *testing.T) (*Env, engine.Source, *recorder) {
	t.Helper()
	w := world.New(world.WithSeed(11))
	require.NoError(t, w.Apply(world.State{Entities: []world.EntitySpec{
		{Type: world.PlayerType, Name: "Alex", Pos: [3]float64{1, 64, 0}},
		{Type: world.PlayerType, Name: "Steve", Pos: [3]float64{3, 64, 0}},
		{UUID: "cow-1", Type: "minecraft:cow", Pos: [3]float64{5, 64, 0}},
		{UUID: "cow-2", Type: "minecraft:cow", Pos: [3]float64{7, 64, 0}, Tags: []string{"milked"}},
	}}))
	out := &recorder{}
	return NewEnv(w), engine.NewSource("Server", out), out
}

func run(t *testing.T, in engine.Instruction, src engine.Source) int {
	t.Helper()
	n, err := in.Execute(src)
	require.NoError(t, err)
	return n
}

func failKind(t *testing.T, in engine.Instruction, src engine.Source) (engine.ErrorKind, string) {
	t.Helper()
	_, err := in.Execute(src)
	require.Error(t, err)
	return engine.KindOf(err), err.Error()
}

func TestScoreboard(t *testing.T) {
	env, src, out := farm(t)

	assert.Equal(t, 1, run(t, ObjectiveAdd{Env: env, Name: "points"}, src))
	assert.Equal(t, "Created new objective [points]", out.last())
	kind, msg := failKind(t, ObjectiveAdd{Env: env, Name: "points"}, src)
	assert.Equal(t, engine.ErrCommandFailed, kind)
	assert.Equal(t, "An objective already exists by that name", msg)

	assert.Equal(t, 10, run(t, ScoreSet{Env: env, Targets: sel("@a"), Objective: "points", Value: 5}, src))
	assert.Equal(t, "Set [points] for 2 entities to 5", out.last())

	assert.Equal(t, 3, run(t, ScoreAdd{Env: env, Targets: sel("Alex"), Objective: "points", Delta: -2}, src))
	assert.Equal(t, "Removed 2 from [points] for Alex (now 3)", out.last())

	assert.Equal(t, 3, run(t, ScoreGet{Env: env, Target: sel("Alex"), Objective: "points"}, src))
	assert.Equal(t, "Alex has 3 [points]", out.last())

	_, msg = failKind(t, ScoreGet{Env: env, Target: sel("Nobody"), Objective: "points"}, src)
	assert.Equal(t, "Can't get value of points for Nobody; none is set", msg)

	_, msg = failKind(t, ScoreGet{Env: env, Target: sel("@a"), Objective: "points"}, src)
	assert.Contains(t, msg, "Only one entity is allowed")

	_, msg = failKind(t, ScoreSet{Env: env, Targets: sel("@a"), Objective: "missing", Value: 1}, src)
	assert.Equal(t, "Unknown scoreboard objective 'missing'", msg)

	kind, _ = failKind(t, ScoreSet{Env: env, Targets: sel("@e[type=pig]"), Objective: "points", Value: 1}, src)
	assert.Equal(t, engine.ErrEntityNotFound, kind)

	assert.Equal(t, 1, run(t, ScoreReset{Env: env, Targets: sel("Steve"), Objective: "points"}, src))
	_, ok := env.World.Score("points", "Steve")
	assert.False(t, ok)
}

func TestScoreOperation(t *testing.T) {
	tests := []struct {
		op         ScoreOp
		a, b       int
		wantA      int
		wantB      int
		wantErrMsg string
	}{
		{op: OpAssign, a: 3, b: 5, wantA: 5, wantB: 5},
		{op: OpAdd, a: 3, b: 5, wantA: 8, wantB: 5},
		{op: OpSub, a: 3, b: 5, wantA: -2, wantB: 5},
		{op: OpMul, a: 3, b: 5, wantA: 15, wantB: 5},
		{op: OpDiv, a: -7, b: 2, wantA: -4, wantB: 2},
		{op: OpMod, a: -7, b: 2, wantA: 1, wantB: 2},
		{op: OpMin, a: 3, b: 5, wantA: 3, wantB: 5},
		{op: OpMax, a: 3, b: 5, wantA: 5, wantB: 5},
		{op: OpSwap, a: 3, b: 5, wantA: 5, wantB: 3},
		{op: OpDiv, a: 3, b: 0, wantErrMsg: "You can't divide by zero"},
		{op: OpMod, a: 3, b: 0, wantErrMsg: "You can't divide by zero"},
	}

	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			env, src, _ := farm(t)
			w := env.World
			require.NoError(t, w.AddObjective("a", ""))
			require.NoError(t, w.AddObjective("b", ""))
			require.NoError(t, w.SetScore("a", "Alex", tt.a))
			require.NoError(t, w.SetScore("b", "Steve", tt.b))

			op := ScoreOperation{Env: env, Targets: sel("Alex"), TargetObjective: "a", Op: tt.op, Source: sel("Steve"), SourceObjective: "b"}
			n, err := op.Execute(src)
			if tt.wantErrMsg != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantErrMsg, err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantA, n)
			gotA, _ := w.Score("a", "Alex")
			gotB, _ := w.Score("b", "Steve")
			assert.Equal(t, tt.wantA, gotA)
			assert.Equal(t, tt.wantB, gotB)
		})
	}
}

func TestParseScoreOp(t *testing.T) {
	op, err := ParseScoreOp("><")
	require.NoError(t, err)
	assert.Equal(t, OpSwap, op)

	_, err = ParseScoreOp("**=")
	assert.Error(t, err)
}

func TestData(t *testing.T) {
	env, src, out := farm(t)
	storage := world.StorageRef("test:vars")
	path := data.MustParsePath("a.b")

	assert.Equal(t, 1, run(t, DataSet{Env: env, Ref: storage, Path: path, Value: data.Double(2.75)}, src))
	assert.Equal(t, "Modified data of storage test:vars", out.last())

	assert.Equal(t, 5, run(t, DataGet{Env: env, Ref: storage, Path: &path, Scale: 2}, src))
	assert.Equal(t, 2, run(t, DataGet{Env: env, Ref: storage, Path: &path}, src), "scale defaults to 1")
	assert.Equal(t, 1, run(t, DataGet{Env: env, Ref: storage}, src), "no path counts keys")

	run(t, DataMerge{Env: env, Ref: storage, Compound: data.Compound{"name": data.String("Daisy"), "list": data.List{data.Int(1), data.Int(2)}}}, src)
	name, list := data.MustParsePath("name"), data.MustParsePath("list")
	assert.Equal(t, 5, run(t, DataGet{Env: env, Ref: storage, Path: &name}, src))
	assert.Equal(t, 2, run(t, DataGet{Env: env, Ref: storage, Path: &list}, src))

	missing := data.MustParsePath("nope")
	_, msg := failKind(t, DataGet{Env: env, Ref: storage, Path: &missing}, src)
	assert.Equal(t, "Found no elements matching nope", msg)

	alex := world.EntityRef{World: env.World, Selector: sel("Alex")}
	run(t, DataCopy{Env: env, Ref: alex, Path: data.MustParsePath("copied"), From: storage, FromPath: path}, src)
	a, _ := env.World.Entity(sel("Alex").Select(env.World, src)[0].UUID())
	assert.Equal(t, data.Double(2.75), env.World.OwnData(a)["copied"])

	block := world.BlockRef{Pos: coords(t, "0 0 0")}
	_, msg = failKind(t, DataGet{Env: env, Ref: block}, src)
	assert.Equal(t, "The target block is not a block entity", msg)
	_, msg = failKind(t, DataSet{Env: env, Ref: block, Path: path, Value: data.Int(1)}, src)
	assert.Equal(t, "The target block is not a block entity", msg)
}

func TestSetBlockAndFill(t *testing.T) {
	env, src, out := farm(t)
	src = src.WithPosition(geom.Vec3{X: 10, Y: 64, Z: 10})

	assert.Equal(t, 1, run(t, SetBlock{Env: env, Pos: coords(t, "~ ~ ~1"), Block: "minecraft:stone"}, src))
	assert.Equal(t, "Changed the block at 10, 64, 11", out.last())
	_, msg := failKind(t, SetBlock{Env: env, Pos: coords(t, "~ ~ ~1"), Block: "minecraft:stone"}, src)
	assert.Equal(t, "Could not set the block", msg)

	fill := Fill{Env: env, From: coords(t, "~ ~ ~"), To: coords(t, "~1 ~1 ~1"), Block: "minecraft:stone"}
	assert.Equal(t, 7, run(t, fill, src), "one of the eight blocks is already stone")
	assert.Equal(t, "Successfully filled 7 block(s)", out.last())
	_, msg = failKind(t, fill, src)
	assert.Equal(t, "No blocks were filled", msg)

	env.MaxArea = 4
	kind, msg := failKind(t, fill, src)
	assert.Equal(t, engine.ErrAreaTooLarge, kind)
	assert.Equal(t, "Too many blocks in the specified area (maximum 4, specified 8)", msg)
}

func TestSetBiome(t *testing.T) {
	env, src, _ := farm(t)

	assert.Equal(t, 4, run(t, SetBiome{Env: env, From: coords(t, "0 0 0"), To: coords(t, "1 0 1"), Biome: "minecraft:desert"}, src))
	assert.Equal(t, 0, run(t, SetBiome{Env: env, From: coords(t, "0 0 0"), To: coords(t, "1 0 1"), Biome: "minecraft:desert"}, src))
	assert.Equal(t, "minecraft:desert", env.World.BiomeAt(engine.DefaultDimension, geom.BlockPos{X: 1, Z: 1}))
}

func TestKillAndSummon(t *testing.T) {
	env, src, out := farm(t)

	assert.Equal(t, 2, run(t, Kill{Env: env, Targets: sel("@e[type=cow]")}, src))
	assert.Equal(t, "Killed 2 entities", out.last())
	kind, _ := failKind(t, Kill{Env: env, Targets: sel("@e[type=cow]")}, src)
	assert.Equal(t, engine.ErrEntityNotFound, kind)

	kind, _ = failKind(t, Kill{Env: env}, src)
	assert.Equal(t, engine.ErrEntityNotFound, kind, "the server has no entity to kill")

	pos := coords(t, "~ ~2 ~")
	assert.Equal(t, 1, run(t, Summon{Env: env, Type: "minecraft:pig", Pos: &pos}, src.WithPosition(geom.Vec3{X: 1})))
	assert.Equal(t, "Summoned new Pig", out.last())
	pigs := sel("@e[type=pig]").Select(env.World, src)
	require.Len(t, pigs, 1)
	assert.Equal(t, geom.Vec3{X: 1, Y: 2}, pigs[0].Position())

	_, msg := failKind(t, Summon{Env: env, Type: world.PlayerType}, src)
	assert.Contains(t, msg, "Unable to summon entity")
}

func TestTag(t *testing.T) {
	env, src, out := farm(t)

	assert.Equal(t, 1, run(t, TagAdd{Env: env, Targets: sel("@e[type=cow]"), Tag: "milked"}, src))
	assert.Equal(t, "Added tag 'milked' to 2 entities", out.last())
	_, msg := failKind(t, TagAdd{Env: env, Targets: sel("@e[type=cow]"), Tag: "milked"}, src)
	assert.Equal(t, "No tags were added", msg)

	assert.Equal(t, 2, run(t, TagAdd{Env: env, Targets: sel("@e[tag=milked]"), Tag: "milked", Remove: true}, src))
	_, msg = failKind(t, TagAdd{Env: env, Targets: sel("@e[type=cow]"), Tag: "milked", Remove: true}, src)
	assert.Equal(t, "No tags were removed", msg)
}

func TestTeleport(t *testing.T) {
	env, src, out := farm(t)
	alex := sel("Alex").Select(env.World, src)[0]

	pos := coords(t, "~ ~10 ~")
	rot, err := geom.ParseRotation("90 0")
	require.NoError(t, err)
	self := engine.SourceFor(alex, out)
	assert.Equal(t, 1, run(t, Teleport{Env: env, Pos: &pos, Rotation: &rot}, self))
	assert.Equal(t, geom.Vec3{X: 1, Y: 74}, alex.Position())
	assert.Equal(t, geom.Rotation{Yaw: 90}, alex.Rotation())

	assert.Equal(t, 2, run(t, Teleport{Env: env, Targets: sel("@e[type=cow]"), Destination: sel("Steve")}, src))
	assert.Equal(t, "Teleported 2 entities to Steve", out.last())
	for _, c := range sel("@e[type=cow]").Select(env.World, src) {
		assert.Equal(t, geom.Vec3{X: 3, Y: 64}, c.Position())
	}

	_, msg := failKind(t, Teleport{Env: env, Targets: sel("Alex"), Destination: sel("@e[type=cow]")}, src)
	assert.Contains(t, msg, "Only one entity is allowed")
}

func TestGiveAndClear(t *testing.T) {
	env, src, out := farm(t)

	assert.Equal(t, 2, run(t, Give{Env: env, Targets: sel("@a"), Item: "minecraft:apple", Count: 3}, src))
	assert.Equal(t, "Gave 3 [minecraft:apple] to 2 entities", out.last())
	run(t, Give{Env: env, Targets: sel("Alex"), Item: "minecraft:stick"}, src)

	assert.Equal(t, 4, run(t, Clear{Env: env, Targets: sel("Alex"), Max: 0}, src), "max 0 counts")
	assert.Equal(t, 2, run(t, Clear{Env: env, Targets: sel("Alex"), Item: "minecraft:apple", Max: 2}, src))
	assert.Equal(t, 2, run(t, Clear{Env: env, Targets: sel("Alex"), Max: -1}, src))
	assert.Empty(t, sel("Alex").Select(env.World, src)[0].Items())

	_, msg := failKind(t, Clear{Env: env, Targets: sel("Alex"), Max: -1}, src)
	assert.Equal(t, "No items were found on Alex", msg)
}

func TestSay(t *testing.T) {
	_, src, out := farm(t)

	assert.Equal(t, 1, run(t, Say{Message: "hello"}, src))
	assert.Equal(t, "[Server] hello", out.last())

	run(t, Say{Message: "quiet"}, src.Silenced())
	assert.Len(t, out.lines, 1, "silenced sources send nothing")
}

func TestBossBar(t *testing.T) {
	env, src, _ := farm(t)

	run(t, BossBarAdd{Env: env, ID: "test:hp", Name: "HP"}, src)
	assert.Equal(t, 100, run(t, BossBarGet{Env: env, ID: "test:hp", Max: true}, src))
	assert.Equal(t, 40, run(t, BossBarSet{Env: env, ID: "test:hp", Value: 40}, src))
	assert.Equal(t, 40, run(t, BossBarGet{Env: env, ID: "test:hp"}, src))

	_, msg := failKind(t, BossBarSet{Env: env, ID: "test:hp", Value: 40}, src)
	assert.Equal(t, "Nothing changed. That's already the value of this bossbar", msg)
	_, msg = failKind(t, BossBarGet{Env: env, ID: "test:none"}, src)
	assert.Equal(t, "No bossbar exists with the ID 'test:none'", msg)
}

func TestTimeAndStopwatch(t *testing.T) {
	env, src, _ := farm(t)

	assert.Equal(t, 1, run(t, StopwatchCreate{Env: env, ID: "lap"}, src))
	_, msg := failKind(t, StopwatchCreate{Env: env, ID: "lap"}, src)
	assert.Equal(t, "Stopwatch lap already exists", msg)

	assert.Equal(t, 30, run(t, TimeAdd{Env: env, Ticks: 30}, src))
	assert.Equal(t, 30, run(t, TimeQuery{Env: env}, src))
	assert.Equal(t, 1, run(t, StopwatchQuery{Env: env, ID: "lap"}, src))
	assert.Equal(t, 15, run(t, StopwatchQuery{Env: env, ID: "lap", Scale: 10}, src))

	run(t, StopwatchCreate{Env: env, ID: "lap", Restart: true}, src)
	assert.Equal(t, 0, run(t, StopwatchQuery{Env: env, ID: "lap"}, src))

	assert.Equal(t, 1, run(t, StopwatchRemove{Env: env, ID: "lap"}, src))
	_, msg = failKind(t, StopwatchRemove{Env: env, ID: "lap"}, src)
	assert.Equal(t, "No stopwatch exists with id lap", msg)
	_, msg = failKind(t, StopwatchCreate{Env: env, ID: "lap", Restart: true}, src)
	assert.Equal(t, "No stopwatch exists with id lap", msg)
}
