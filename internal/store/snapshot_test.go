package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/chainexec/internal/data"
	"github.com/roach88/chainexec/internal/engine"
	"github.com/roach88/chainexec/internal/geom"
	"github.com/roach88/chainexec/internal/sink"
	"github.com/roach88/chainexec/internal/world"
)

func sampleWorld(t *testing.T) *world.World {
	t.Helper()
	w := world.New()
	require.NoError(t, w.Apply(world.State{
		GameTime: 120,
		Entities: []world.EntitySpec{
			{UUID: "u-horse", Type: "minecraft:horse", Pos: [3]float64{2, 64, 2}, Tags: []string{"tamed"}},
			{
				UUID: "u-alex", Type: world.PlayerType, Name: "Alex",
				Pos: [3]float64{1.5, 64, -3}, Rotation: [2]float64{90, 10},
				Items: []world.ItemStack{{Slot: "mainhand", Item: "minecraft:stick", Count: 3}},
				Data:  map[string]any{"level": 4},
				Links: map[string]string{"vehicle": "u-horse"},
			},
		},
		Blocks: []world.BlockSpec{
			{Pos: [3]int{0, 63, 0}, Block: "minecraft:stone"},
			{Pos: [3]int{1, 63, 0}, Block: "minecraft:chest", Data: map[string]any{"Lock": "key"}},
		},
		Biomes:     []world.BiomeSpec{{From: [3]int{0, 0, 0}, To: [3]int{0, 0, 1}, Biome: "minecraft:desert"}},
		Objectives: []world.ObjectiveSpec{{Name: "kills", Criteria: "playerKillCount", Scores: map[string]int{"Alex": 2, "#global": 9}}},
		Storage:    map[string]map[string]any{"demo:s": {"list": []any{1, 2}, "name": "x"}},
		BossBars:   []world.BossBarSpec{{ID: "demo:hp", Name: "HP", Value: 30, Max: 50}},
	}))
	w.StartStopwatch("demo:watch")
	return w
}

func TestSnapshot_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	src := sampleWorld(t)
	require.NoError(t, s.SaveWorld(ctx, src))

	dst := world.New()
	require.NoError(t, s.LoadWorld(ctx, dst))

	assert.Equal(t, int64(120), dst.GameTime())
	require.Len(t, dst.Entities(), 2)
	for _, e := range src.Entities() {
		got, ok := dst.Entity(e.UUID())
		require.True(t, ok, e.UUID())
		assert.Equal(t, src.Spec(e), dst.Spec(got))
		assert.Equal(t, src.OwnData(e), dst.OwnData(got))
	}
	alex, _ := dst.Entity("u-alex")
	horse, _ := dst.Entity("u-horse")
	assert.Equal(t, []*world.Entity{alex}, dst.Related(horse, world.RelationPassengers))

	assert.Equal(t, src.Blocks(), dst.Blocks())
	assert.Equal(t, src.Biomes(), dst.Biomes())
	assert.Equal(t, "minecraft:desert", dst.BiomeAt(engine.DefaultDimension, geom.BlockPos{Z: 1}))

	assert.Equal(t, []string{"kills"}, dst.Objectives())
	criteria, _ := dst.Criteria("kills")
	assert.Equal(t, "playerKillCount", criteria)
	assert.Equal(t, map[string]int{"Alex": 2, "#global": 9}, dst.Scores("kills"))

	storage, err := dst.GetData(sink.DataRef{Kind: sink.RefStorage, ID: "demo:s"})
	require.NoError(t, err)
	assert.Equal(t, data.Compound{"list": data.List{data.Int(1), data.Int(2)}, "name": data.String("x")}, storage)

	assert.Equal(t, src.BossBars(), dst.BossBars())
	assert.Equal(t, map[string]int64{"demo:watch": 120}, dst.Stopwatches())
}

func TestSnapshot_SaveReplaces(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.NoError(t, s.SaveWorld(ctx, sampleWorld(t)))

	w := world.New()
	require.NoError(t, w.AddObjective("other", ""))
	require.NoError(t, s.SaveWorld(ctx, w))

	assert.Equal(t, 0, countRows(t, s, "world_entities"))
	assert.Equal(t, 0, countRows(t, s, "world_blocks"))
	assert.Equal(t, 0, countRows(t, s, "bossbars"))
	assert.Equal(t, 1, countRows(t, s, "objectives"))
}

func TestSnapshot_BackendWritesSurviveLoad(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.NoError(t, s.SaveWorld(ctx, sampleWorld(t)))

	b := NewBackend(s, nil)
	require.NoError(t, b.SetScore("deaths", "Alex", 1))
	require.NoError(t, b.SetData(sink.DataRef{Kind: sink.RefEntity, ID: "u-alex"}, data.MustParsePath("level"), data.Int(5)))
	require.NoError(t, b.SetData(sink.DataRef{Kind: sink.RefEntity, ID: "u-ghost"}, data.MustParsePath("x"), data.Int(1)))
	require.NoError(t, b.SetBossBar("demo:hp", false, 45))

	w := world.New()
	require.NoError(t, s.LoadWorld(ctx, w))

	n, ok := w.Score("deaths", "Alex")
	require.True(t, ok)
	assert.Equal(t, 1, n)

	alex, ok := w.Entity("u-alex")
	require.True(t, ok)
	assert.Equal(t, data.Int(5), w.OwnData(alex)["level"])

	bar, ok := w.BossBar("demo:hp")
	require.True(t, ok)
	assert.Equal(t, 45, bar.Value)
	assert.Equal(t, 50, bar.Max)
}

func TestSnapshot_LoadEmpty(t *testing.T) {
	s := createTestStore(t)
	w := world.New()
	require.NoError(t, s.LoadWorld(context.Background(), w))
	assert.Empty(t, w.Entities())
	assert.Zero(t, w.GameTime())
}
