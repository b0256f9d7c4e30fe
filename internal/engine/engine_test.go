package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/chainexec/internal/geom"
)

func TestExecute_RunReportsResult(t *testing.T) {
	src, out := newTestSource()
	lis := &recordingListener{}
	e := New(WithListener(lis))

	res, err := e.Execute(ctx(), src, run("data get entity @s", constant(5)))

	require.NoError(t, err)
	assert.Equal(t, Result{Reported: true, Success: true, Value: 5, Tasks: 2}, res)
	assert.Empty(t, out.messages)
	require.Len(t, lis.started, 1)
	require.Len(t, lis.results, 1)
	assert.Equal(t, res, lis.results[0])
	assert.NoError(t, lis.errs[0])
}

func TestExecute_LeafFailureRaisesOnce(t *testing.T) {
	src, out := newTestSource()
	e := New()

	res, err := e.Execute(ctx(), src, run("kill @e", failing("No entity was found")))

	require.Error(t, err)
	assert.Equal(t, ErrCommandFailed, KindOf(err))
	assert.True(t, res.Reported)
	assert.False(t, res.Success)
	assert.Equal(t, []string{"No entity was found"}, out.failures())
}

func TestExecute_CanceledContext(t *testing.T) {
	src, _ := newTestSource()
	c, cancel := context.WithCancel(ctx())
	cancel()

	_, err := New().Execute(c, src, run("say hi", constant(1)))
	assert.ErrorIs(t, err, context.Canceled)
}

// Forked conditionals that fail drop the branch without an error.
func TestConditional_ForkedFailureDropsContext(t *testing.T) {
	src, out := newTestSource()
	tr := &recordingTracer{}
	j := &journal{}
	e := New(observe(tr))

	chain := run("execute as @e[type=cow] if block ~ ~ ~ air run say hi", j.op("say", 1),
		Redirect{Producer: asEntities{cow("a", 0, 0, 0), cow("b", 1, 0, 0)}},
		Conditional{Condition: outcome(BoolOutcome(false)), Expect: true},
	)
	res, err := e.Execute(ctx(), src, chain)

	require.NoError(t, err)
	assert.False(t, res.Reported)
	assert.Empty(t, j.entries)
	assert.Empty(t, out.messages)
	assert.Empty(t, tr.errors())
}

func TestConditional_ForkedZeroCountDropsContext(t *testing.T) {
	src, _ := newTestSource()
	j := &journal{}

	chain := run("execute as @e if entity @e[tag=none] run say hi", j.op("say", 1),
		Redirect{Producer: copies(3)},
		Conditional{Condition: outcome(CountOutcome(0)), Expect: true},
	)
	_, err := New().Execute(ctx(), src, chain)

	require.NoError(t, err)
	assert.Empty(t, j.entries)
}

// An unforked conditional that fails raises exactly one error and runs
// nothing.
func TestConditional_UnforkedFailureRaises(t *testing.T) {
	src, out := newTestSource()
	j := &journal{}

	chain := run("execute if score p obj matches 5.. run say hi", j.op("say", 1),
		Conditional{Condition: outcome(BoolOutcome(false)), Expect: true},
	)
	_, err := New().Execute(ctx(), src, chain)

	require.Error(t, err)
	assert.Equal(t, ErrConditionalFailed, KindOf(err))
	assert.True(t, IsConditionalFailure(err))
	assert.Empty(t, j.entries)
	assert.Equal(t, []string{"Test failed"}, out.failures())
}

func TestConditional_UnlessCountReportsCount(t *testing.T) {
	src, out := newTestSource()

	chain := line("execute unless entity @e[type=cow]", Test{Condition: outcome(CountOutcome(3)), Expect: false})
	res, err := New().Execute(ctx(), src, chain)

	require.Error(t, err)
	var ce *CommandError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrConditionalFailedWithCount, ce.Kind)
	assert.Equal(t, 3, ce.Count)
	assert.Equal(t, []string{"Test failed, count: 3"}, out.failures())
	assert.Equal(t, Result{Reported: true, Success: false, Value: 0, Tasks: 2}, res)
}

func TestTest_CountablePassReturnsCount(t *testing.T) {
	src, out := newTestSource()

	chain := line("execute if entity @e[distance=..5]", Test{Condition: outcome(CountOutcome(4)), Expect: true})
	res, err := New().Execute(ctx(), src, chain)

	require.NoError(t, err)
	assert.Equal(t, 4, res.Value)
	assert.Equal(t, []string{"Test passed, count: 4"}, out.successes())
}

func TestTest_BooleanPassReturnsOne(t *testing.T) {
	src, out := newTestSource()

	chain := line("execute unless block ~ ~ ~ stone", Test{Condition: outcome(BoolOutcome(false)), Expect: false})
	res, err := New().Execute(ctx(), src, chain)

	require.NoError(t, err)
	assert.Equal(t, 1, res.Value)
	assert.Equal(t, []string{"Test passed"}, out.successes())
}

func TestStore_WritesOncePerRun(t *testing.T) {
	src, _ := newTestSource()
	store := &recordingStore{}
	e := New()

	chain := run("execute store result score p obj run data get entity @s", constant(7),
		StoreResult{Target: store, Raw: true},
	)

	_, err := e.Execute(ctx(), src, chain)
	require.NoError(t, err)
	assert.Equal(t, []int{7}, store.writes)

	_, err = e.Execute(ctx(), src, chain)
	require.NoError(t, err)
	assert.Equal(t, []int{7, 7}, store.writes)
}

func TestStore_SuccessWritesZeroOrOne(t *testing.T) {
	src, _ := newTestSource()
	store := &recordingStore{}
	e := New()

	_, err := e.Execute(ctx(), src, run("execute store success score p obj run data get entity @s", constant(7),
		StoreResult{Target: store, Raw: false}))
	require.NoError(t, err)

	_, err = e.Execute(ctx(), src, run("execute store success score p obj run kill @e", failing("No entity was found"),
		StoreResult{Target: store, Raw: false}))
	require.Error(t, err)

	assert.Equal(t, []int{1, 0}, store.writes)
}

// The most recently attached store observes the result first.
func TestStore_AttachOrder(t *testing.T) {
	src, _ := newTestSource()
	var order []string
	first := &recordingStore{name: "first", order: &order}
	second := &recordingStore{name: "second", order: &order}

	_, err := New().Execute(ctx(), src, run("execute store result score a obj store result score b obj run data get entity @s", constant(2),
		StoreResult{Target: first, Raw: true},
		StoreResult{Target: second, Raw: true},
	))

	require.NoError(t, err)
	assert.Equal(t, []string{"second", "first"}, order)
	assert.Equal(t, []int{2}, first.writes)
	assert.Equal(t, []int{2}, second.writes)
}

// A store attached before a fork is stripped from the branches; one after
// it is bound once per branch.
func TestFork_CallbacksAreNotShared(t *testing.T) {
	src, _ := newTestSource()
	before := &recordingStore{}
	after := &recordingStore{}

	_, err := New().Execute(ctx(), src, run("execute store result score a obj as @e store result score @s obj run data get entity @s", constant(1),
		StoreResult{Target: before, Raw: true},
		Redirect{Producer: copies(3)},
		StoreResult{Target: after, Raw: true},
	))

	require.NoError(t, err)
	assert.Empty(t, before.writes)
	assert.Equal(t, 3, after.binds)
	assert.Equal(t, []int{1, 1, 1}, after.writes)
}

func TestFork_ComposesPerEntity(t *testing.T) {
	tests := []struct {
		name     string
		entities []Entity
		want     []geom.Vec3
	}{
		{name: "none", entities: nil, want: nil},
		{name: "one", entities: []Entity{cow("a", 1, 64, 1)}, want: []geom.Vec3{{X: 1, Y: 65, Z: 1}}},
		{
			name:     "many",
			entities: []Entity{cow("a", 0, 0, 0), cow("b", 5, 10, 5), cow("c", -3, 70, 2.5)},
			want:     []geom.Vec3{{X: 0, Y: 1, Z: 0}, {X: 5, Y: 11, Z: 5}, {X: -3, Y: 71, Z: 2.5}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, _ := newTestSource()
			var placed []geom.Vec3
			setblock := InstructionFunc(func(s Source) (int, error) {
				placed = append(placed, s.Position())
				return 1, nil
			})

			_, err := New().Execute(ctx(), src, run("execute as @e[type=cow] at @s positioned ~ ~1 ~ run setblock ~ ~ ~ stone", setblock,
				Redirect{Producer: asEntities(tt.entities)},
				Redirect{Producer: atSelf{}},
				Redirect{Producer: raise(1)},
			))

			require.NoError(t, err)
			assert.Equal(t, tt.want, placed)
		})
	}
}

func TestFork_BranchFailureDoesNotAffectSiblings(t *testing.T) {
	src, out := newTestSource()
	tr := &recordingTracer{}
	var ran []string
	ins := InstructionFunc(func(s Source) (int, error) {
		ran = append(ran, s.Name())
		if s.Name() == "b" {
			return 0, NewCommandFailed("branch b failed")
		}
		return 1, nil
	})

	_, err := New(observe(tr)).Execute(ctx(), src, run("execute as @e run kill @s", ins,
		Redirect{Producer: asEntities{cow("a", 0, 0, 0), cow("b", 0, 0, 0), cow("c", 0, 0, 0)}},
	))

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ran)
	assert.Empty(t, out.failures())
	assert.Equal(t, []string{"branch b failed"}, tr.errors())
}

func TestFork_FatalErrorIsolatedToBranch(t *testing.T) {
	src, out := newTestSource()
	j := &journal{}
	loop := fn("demo:loop",
		run("say tick", j.op("tick", 1)),
		line("function demo:loop", Functions{Name: "demo:loop"}),
	)
	e := New(WithFunctions(functions(loop)), WithMaxFunctionDepth(1))

	_, err := e.Execute(ctx(), src, line("execute as @e run function demo:loop", Functions{Name: "demo:loop"},
		Redirect{Producer: copies(2)},
	))

	require.NoError(t, err)
	assert.Equal(t, []string{"tick", "tick"}, j.entries)
	assert.Equal(t, []string{
		"Function demo:loop exceeded the maximum call depth of 1",
		"Function demo:loop exceeded the maximum call depth of 1",
	}, out.failures())
}

func TestFork_LimitEndsChain(t *testing.T) {
	src, out := newTestSource()
	tr := &recordingTracer{}
	j := &journal{}

	_, err := New(WithMaxForkCount(2), observe(tr)).Execute(ctx(), src, run("execute as @e run say hi", j.op("say", 1),
		Redirect{Producer: copies(3)},
	))

	require.NoError(t, err)
	assert.Empty(t, j.entries)
	assert.Empty(t, out.failures())
	assert.Equal(t, []string{"Maximum number of contexts (2) reached"}, tr.errors())
}

func TestFunctions_RunDepthFirst(t *testing.T) {
	src, _ := newTestSource()
	j := &journal{}
	a := fn("demo:a",
		run("say a1", j.op("a1", 1)),
		line("function demo:b", Functions{Name: "demo:b"}),
		run("say a3", j.op("a3", 1)),
	)
	b := fn("demo:b",
		run("say b1", j.op("b1", 1)),
		run("say b2", j.op("b2", 1)),
	)
	e := New(WithFunctions(functions(a, b)))

	res, err := e.Call(ctx(), src, "demo:a", nil)

	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "b1", "b2", "a3"}, j.entries)
	assert.False(t, res.Reported, "a function that never returns reports nothing")
}

func TestFunctions_ReturnDiscardsRest(t *testing.T) {
	src, out := newTestSource()
	j := &journal{}
	f := fn("demo:f",
		run("say x", j.op("x", 1)),
		line("return 7", Return{Value: 7}),
		run("say never", j.op("never", 1)),
	)

	res, err := New(WithFunctions(functions(f))).Call(ctx(), src, "demo:f", nil)

	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, j.entries)
	assert.Equal(t, Result{Reported: true, Success: true, Value: 7, Tasks: 5}, res)
	assert.Equal(t, []string{"Function demo:f returned 7"}, out.successes())
}

func TestFunctions_ReturnFail(t *testing.T) {
	src, _ := newTestSource()
	f := fn("demo:f", line("return fail", ReturnFail{}))

	res, err := New(WithFunctions(functions(f))).Call(ctx(), src, "demo:f", nil)

	require.NoError(t, err)
	assert.True(t, res.Reported)
	assert.False(t, res.Success)
}

func TestFunctions_ReturnRunLeaf(t *testing.T) {
	src, _ := newTestSource()
	j := &journal{}
	g := fn("demo:g",
		line("return run data get entity @s", ReturnRun{Chain: run("data get entity @s", constant(4))}),
		run("say never", j.op("never", 1)),
	)

	res, err := New(WithFunctions(functions(g))).Call(ctx(), src, "demo:g", nil)

	require.NoError(t, err)
	assert.Empty(t, j.entries)
	assert.Equal(t, 4, res.Value)
	assert.True(t, res.Success)
}

func TestFunctions_ReturnRunFunctionPassesValueThrough(t *testing.T) {
	src, out := newTestSource()
	j := &journal{}
	outer := fn("demo:outer",
		line("return run function demo:inner", ReturnRun{Chain: line("function demo:inner", Functions{Name: "demo:inner"})}),
		run("say never", j.op("never", 1)),
	)
	inner := fn("demo:inner", line("return 9", Return{Value: 9}))

	res, err := New(WithFunctions(functions(outer, inner))).Call(ctx(), src, "demo:outer", nil)

	require.NoError(t, err)
	assert.Empty(t, j.entries)
	assert.Equal(t, 9, res.Value)
	assert.Equal(t, []string{"Function demo:outer returned 9"}, out.successes())
}

func TestFunctions_ReturnRunFallthrough(t *testing.T) {
	src, out := newTestSource()
	j := &journal{}
	outer := fn("demo:outer",
		line("return run function demo:quiet", ReturnRun{Chain: line("function demo:quiet", Functions{Name: "demo:quiet"})}),
	)
	quiet := fn("demo:quiet", run("say n", j.op("n", 1)))

	res, err := New(WithFunctions(functions(outer, quiet))).Call(ctx(), src, "demo:outer", nil)

	require.NoError(t, err)
	assert.Equal(t, []string{"n"}, j.entries)
	assert.True(t, res.Reported)
	assert.False(t, res.Success)
	assert.Equal(t, []string{"Function demo:outer returned 0"}, out.successes())
}

func TestFunctions_ReturnRunWithNoSourcesFallsThrough(t *testing.T) {
	src, _ := newTestSource()
	j := &journal{}
	f := fn("demo:f",
		line("return run execute if entity @e[tag=none] run say x", ReturnRun{
			Chain: run("execute if entity @e[tag=none] run say x", j.op("x", 1),
				Redirect{Producer: copies(1)},
				Conditional{Condition: outcome(CountOutcome(0)), Expect: true},
			),
		}),
	)

	res, err := New(WithFunctions(functions(f))).Call(ctx(), src, "demo:f", nil)

	require.NoError(t, err)
	assert.Empty(t, j.entries)
	assert.True(t, res.Reported)
	assert.False(t, res.Success)
}

// Two programs under a caller with a callback: only reporting programs are
// summed, and the callback fires once.
func TestFunctions_AggregateReportingPrograms(t *testing.T) {
	src, _ := newTestSource()
	store := &recordingStore{}
	a := fn("demo:a", line("return 3", Return{Value: 3}))
	b := fn("demo:b", run("say b", constant(1)))
	r := resolver{"#demo:all": {a, b}}

	res, err := New(WithFunctions(r)).Execute(ctx(), src, line("execute store result score p obj run function #demo:all",
		Functions{Name: "#demo:all"},
		StoreResult{Target: store, Raw: true},
	))

	require.NoError(t, err)
	assert.Equal(t, []int{3}, store.writes)
	assert.Equal(t, 3, res.Value)
}

func TestFunctions_AggregateSumsEveryReport(t *testing.T) {
	src, _ := newTestSource()
	store := &recordingStore{}
	a := fn("demo:a", line("return 3", Return{Value: 3}))
	b := fn("demo:b", line("return 4", Return{Value: 4}))
	r := resolver{"#demo:all": {a, b}}

	_, err := New(WithFunctions(r)).Execute(ctx(), src, line("execute store result score p obj run function #demo:all",
		Functions{Name: "#demo:all"},
		StoreResult{Target: store, Raw: true},
	))

	require.NoError(t, err)
	assert.Equal(t, []int{7}, store.writes)
}

func TestFunctions_AggregateWithoutReportsNeverFires(t *testing.T) {
	src, _ := newTestSource()
	store := &recordingStore{}
	a := fn("demo:a", run("say a", constant(1)))
	b := fn("demo:b", run("say b", constant(1)))
	r := resolver{"#demo:all": {a, b}}

	res, err := New(WithFunctions(r)).Execute(ctx(), src, line("execute store result score p obj run function #demo:all",
		Functions{Name: "#demo:all"},
		StoreResult{Target: store, Raw: true},
	))

	require.NoError(t, err)
	assert.Empty(t, store.writes)
	assert.False(t, res.Reported)
}

func TestFunctions_NoCallbackReportsEachProgram(t *testing.T) {
	src, out := newTestSource()
	a := fn("demo:a", line("return 3", Return{Value: 3}))
	b := fn("demo:b", line("return 4", Return{Value: 4}))
	r := resolver{"#demo:all": {a, b}}

	res, err := New(WithFunctions(r)).Call(ctx(), src, "#demo:all", nil)

	require.NoError(t, err)
	assert.Equal(t, []string{"Function demo:a returned 3", "Function demo:b returned 4"}, out.successes())
	assert.Equal(t, 4, res.Value, "last report wins")
}

func TestFunctions_SilentSourceHasNoMessages(t *testing.T) {
	src, out := newTestSource()
	f := fn("demo:f", line("return 1", Return{Value: 1}))

	res, err := New(WithFunctions(functions(f))).Call(ctx(), src.Silenced(), "demo:f", nil)

	require.NoError(t, err)
	assert.Equal(t, 1, res.Value)
	assert.Empty(t, out.messages)
}

// A self-recursive function stops at the depth limit with exactly one error.
func TestFunctions_RecursionLimit(t *testing.T) {
	src, out := newTestSource()
	j := &journal{}
	loop := fn("demo:loop",
		run("say tick", j.op("tick", 1)),
		line("function demo:loop", Functions{Name: "demo:loop"}),
	)
	lis := &recordingListener{}
	e := New(WithFunctions(functions(loop)), WithMaxFunctionDepth(3), WithListener(lis))

	_, err := e.Call(ctx(), src, "demo:loop", nil)

	require.Error(t, err)
	var ce *CommandError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrRecursionLimitExceeded, ce.Kind)
	assert.Equal(t, int64(3), ce.Limit)
	assert.Equal(t, int64(4), ce.Actual)
	assert.True(t, IsFatal(err))
	assert.Len(t, j.entries, 3)
	assert.Equal(t, []string{"Function demo:loop exceeded the maximum call depth of 3"}, out.failures())
	require.Len(t, lis.errs, 1)
	assert.Equal(t, err, lis.errs[0])
}

func TestFunctions_InstantiationFailureSkipsProgram(t *testing.T) {
	src, out := newTestSource()
	good := fn("demo:good", line("return 1", Return{Value: 1}))
	r := resolver{"#demo:all": {brokenProgram("demo:bad"), good}}

	res, err := New(WithFunctions(r)).Call(ctx(), src, "#demo:all", nil)

	require.NoError(t, err, "a skipped program does not fail the call")
	assert.Equal(t, []string{"Failed to instantiate function demo:bad: missing argument x"}, out.failures())
	assert.Equal(t, []string{"Function demo:good returned 1"}, out.successes())
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.Value)
}

func TestFunctions_InstantiationFailureOfEveryProgram(t *testing.T) {
	src, out := newTestSource()
	r := resolver{"demo:bad": {brokenProgram("demo:bad")}}

	res, err := New(WithFunctions(r)).Call(ctx(), src, "demo:bad", nil)

	require.Error(t, err)
	assert.Equal(t, ErrFunctionInstantiationFailed, KindOf(err))
	assert.False(t, res.Reported)
	assert.Equal(t, []string{"Failed to instantiate function demo:bad: missing argument x"}, out.failures())
}

func TestFunctions_NoMatchingFunctions(t *testing.T) {
	src, out := newTestSource()
	e := New(WithFunctions(resolver{}))

	_, err := e.Call(ctx(), src, "#demo:missing", nil)
	require.Error(t, err)
	assert.Equal(t, "Unknown function tag 'demo:missing'", err.Error())

	_, err = e.Execute(ctx(), src, line("function demo:missing", Functions{Name: "demo:missing"}))
	require.Error(t, err)
	assert.Equal(t, ErrNoMatchingFunctions, KindOf(err))
	assert.Equal(t, []string{"Unknown function demo:missing"}, out.failures())
}

func TestQuota_StopsInvocation(t *testing.T) {
	src, out := newTestSource()
	j := &journal{}
	f := fn("demo:f",
		run("say 1", j.op("1", 1)),
		run("say 2", j.op("2", 1)),
		run("say 3", j.op("3", 1)),
	)

	_, err := New(WithFunctions(functions(f)), WithMaxCommandChainLength(6)).Call(ctx(), src, "demo:f", nil)

	require.Error(t, err)
	assert.True(t, IsQuotaError(err))
	assert.Equal(t, []string{"1", "2"}, j.entries)
	assert.Equal(t, []string{"Command execution stopped due to limit (executed 6 commands)"}, out.failures())
}

func TestIfFunction(t *testing.T) {
	tests := []struct {
		name    string
		returns int
		expect  bool
		wantRun bool
	}{
		{name: "if passes", returns: 1, expect: true, wantRun: true},
		{name: "if fails on zero", returns: 0, expect: true, wantRun: false},
		{name: "unless passes on zero", returns: 0, expect: false, wantRun: true},
		{name: "unless fails", returns: 2, expect: false, wantRun: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, out := newTestSource()
			j := &journal{}
			check := fn("demo:check", line("return", Return{Value: tt.returns}))

			_, err := New(WithFunctions(functions(check))).Execute(ctx(), src, run("execute if function demo:check run say ok", j.op("ok", 1),
				IfFunction{Name: "demo:check", Expect: tt.expect},
			))

			if tt.wantRun {
				require.NoError(t, err)
				assert.Equal(t, []string{"ok"}, j.entries)
				assert.Empty(t, out.messages, "the probed function is silent")
				return
			}
			require.Error(t, err)
			assert.Equal(t, ErrConditionalFailed, KindOf(err))
			assert.Empty(t, j.entries)
		})
	}
}

func TestIfFunction_ForkedFiltersSilently(t *testing.T) {
	src, out := newTestSource()
	var ran []string
	ins := InstructionFunc(func(s Source) (int, error) {
		ran = append(ran, s.Name())
		return 1, nil
	})
	isB := ConditionFunc(func(s Source) (Outcome, error) { return BoolOutcome(s.Name() == "b"), nil })
	check := fn("demo:is_b", line("return run execute if entity @s[name=b]", ReturnRun{
		Chain: line("execute if entity @s[name=b]", Test{Condition: isB, Expect: true}),
	}))

	_, err := New(WithFunctions(functions(check))).Execute(ctx(), src, run("execute as @e if function demo:is_b run say", ins,
		Redirect{Producer: asEntities{cow("a", 0, 0, 0), cow("b", 0, 0, 0), cow("c", 0, 0, 0)}},
		IfFunction{Name: "demo:is_b", Expect: true},
	))

	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ran)
	assert.Empty(t, out.failures())
}

func TestObserver_ReceivesEvents(t *testing.T) {
	src, _ := newTestSource()
	tr := &recordingTracer{}
	f := fn("demo:f", run("say hi", say("hi")))

	_, err := New(WithFunctions(functions(f)), observe(tr)).Execute(ctx(), src, line("function demo:f", Functions{Name: "demo:f"}))

	require.NoError(t, err)
	assert.Equal(t, []string{
		"command 0 function demo:f",
		"call 0 demo:f size=1",
		"command 1 say hi",
		"return 1 say hi = 1",
	}, tr.events)
}
