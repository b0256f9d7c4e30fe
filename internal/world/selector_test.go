package world

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/chainexec/internal/engine"
	"github.com/roach88/chainexec/internal/geom"
)

func names(es []*Entity) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.Name()
	}
	return out
}

// farm spawns three players and two cows along the x axis.
func farm(t *testing.T) *World {
	t.Helper()
	w := newWorld(t)
	require.NoError(t, w.Apply(State{
		Entities: []EntitySpec{
			{Type: PlayerType, Name: "Alex", Pos: [3]float64{5, 0, 0}, Tags: []string{"red"}},
			{Type: "minecraft:cow", Name: "Daisy", Pos: [3]float64{1, 0, 0}},
			{Type: PlayerType, Name: "Steve", Pos: [3]float64{2, 0, 0}, Tags: []string{"blue"}},
			{Type: "minecraft:cow", Pos: [3]float64{9, 0, 0}, Tags: []string{"red"}},
			{Type: PlayerType, Name: "Nether", Pos: [3]float64{100, 0, 0}, Dimension: "minecraft:the_nether"},
		},
		Objectives: []ObjectiveSpec{{Name: "points", Scores: map[string]int{"Alex": 10, "Steve": 3}}},
	}))
	return w
}

func origin() engine.Source { return engine.NewSource("Server", nil) }

func TestSelect(t *testing.T) {
	w := farm(t)

	tests := []struct {
		selector string
		want     []string
	}{
		{"@e", []string{"Alex", "Daisy", "Steve", "Cow", "Nether"}},
		{"@a", []string{"Alex", "Steve", "Nether"}},
		{"@p", []string{"Steve"}},
		{"@e[type=cow]", []string{"Daisy", "Cow"}},
		{"@e[type=!minecraft:cow]", []string{"Alex", "Steve", "Nether"}},
		{"@e[tag=red]", []string{"Alex", "Cow"}},
		{"@e[tag=!red,type=cow]", []string{"Daisy"}},
		{"@e[tag=]", []string{"Daisy", "Nether"}},
		{"@e[tag=!]", []string{"Alex", "Steve", "Cow"}},
		{"@e[distance=..2]", []string{"Daisy", "Steve"}},
		{"@e[sort=nearest,limit=2]", []string{"Daisy", "Steve"}},
		{"@e[sort=furthest,limit=1,type=cow]", []string{"Cow"}},
		{"@a[scores={points=5..}]", []string{"Alex"}},
		{"@a[scores={points=..10}]", []string{"Alex", "Steve"}},
		{"@e[name=Daisy]", []string{"Daisy"}},
		{"Alex", []string{"Alex"}},
		{"Nobody", []string{}},
		{"@s", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			sel, err := ParseSelector(tt.selector)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(sel.Select(w, origin())))
		})
	}
}

func TestSelect_Self(t *testing.T) {
	w := farm(t)
	steve := MustParseSelector("Steve").Select(w, origin())[0]
	src := engine.SourceFor(steve, nil)

	assert.Equal(t, []string{"Steve"}, names(MustParseSelector("@s").Select(w, src)))
	assert.Empty(t, MustParseSelector("@s[tag=red]").Select(w, src))

	w.Kill(steve)
	assert.Empty(t, MustParseSelector("@s").Select(w, src))
}

func TestSelect_RandomIsSeeded(t *testing.T) {
	pick := func() []string {
		w := farm(t)
		var out []string
		for range 5 {
			out = append(out, names(MustParseSelector("@r").Select(w, origin()))...)
		}
		return out
	}
	first := pick()
	assert.Len(t, first, 5)
	assert.Equal(t, first, pick())
}

func TestSelect_DistanceIgnoresOtherDimensions(t *testing.T) {
	w := farm(t)
	src := origin().WithDimension("minecraft:the_nether").WithPosition(geom.Vec3{X: 90})

	assert.Equal(t, []string{"Nether"}, names(MustParseSelector("@a[distance=0..]").Select(w, src)))
	assert.Equal(t, []string{"Alex", "Steve", "Nether"}, names(MustParseSelector("@a").Select(w, src)))
}

func TestHolders(t *testing.T) {
	w := farm(t)

	assert.Equal(t, []string{"Alex", "Steve", "Nether"}, MustParseSelector("@a").Holders(w, origin()))
	assert.Equal(t, []string{"#counter"}, MustParseSelector("#counter").Holders(w, origin()))
	assert.Equal(t, []string{"e-2"}, MustParseSelector("@e[name=Daisy]").Holders(w, origin()))
	assert.Equal(t, []string{"e-2"}, MustParseSelector("e-2").Holders(w, origin()))
}

func TestParseSelector_Errors(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "empty selector"},
		{"@x", "unknown type"},
		{"@e[", "expected [arguments]"},
		{"@e[color=red]", "unknown option"},
		{"@e[limit=0]", "positive integer"},
		{"@s[limit=1]", "not allowed with @s"},
		{"@e[sort=sideways]", "unknown sort"},
		{"@e[distance=-1..]", "cannot be negative"},
		{"@e[scores={points}]", "objective=range"},
		{"@e[scores={a=1]", "unbalanced"},
		{"bad name", "invalid name"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := ParseSelector(tt.in)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestSelector_Single(t *testing.T) {
	assert.True(t, MustParseSelector("@s").Single())
	assert.True(t, MustParseSelector("@p").Single())
	assert.True(t, MustParseSelector("@e[limit=1]").Single())
	assert.True(t, MustParseSelector("Alex").Single())
	assert.False(t, MustParseSelector("@e").Single())
	assert.True(t, MustParseSelector("@a").PlayersOnly())
	assert.False(t, MustParseSelector("@e").PlayersOnly())
}

// Selection reads entity state while other goroutines move and tag the
// same entities. Run with -race.
func TestSelect_ConcurrentWithWrites(t *testing.T) {
	w := farm(t)
	sel := MustParseSelector("@e[tag=red,sort=nearest,distance=..50]")
	cows := MustParseSelector("@e[type=minecraft:cow]").Select(w, origin())
	require.Len(t, cows, 2)

	var wg sync.WaitGroup
	for i := range 4 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := range 100 {
				c := cows[j%2]
				w.Teleport(c, geom.Vec3{X: float64(i + j%10)}, geom.Rotation{}, engine.DefaultDimension)
				w.SetTag(c, "red", j%3 != 0)
			}
		}()
		go func() {
			defer wg.Done()
			for range 100 {
				for _, e := range sel.Select(w, origin()) {
					_ = e.Position()
					_ = e.Data()
					_ = e.String()
				}
			}
		}()
	}
	wg.Wait()

	for _, c := range cows {
		assert.False(t, c.Removed())
		assert.Equal(t, engine.DefaultDimension, c.Dimension())
	}
}
