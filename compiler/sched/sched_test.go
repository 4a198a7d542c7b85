package sched

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgpthomas/bril/compiler/dep"
	"github.com/sgpthomas/bril/compiler/ir"
)

func cnst(d ir.Ident, v int64) ir.Instr {
	return ir.Const{Dest: d, Type: "int", Value: v}
}

func op(o string, d ir.Ident, args ...ir.Ident) ir.Instr {
	return ir.Value{Op: o, Dest: d, Type: "int", Args: args}
}

func eff(o string, args ...ir.Ident) ir.Instr {
	return ir.Effect{Op: o, Args: args}
}

func guard(c ir.Ident, fail string) ir.Instr {
	return ir.Effect{Op: ir.OpGuard, Args: []ir.Ident{c}, Labels: []string{fail}}
}

func width(n int) Valid {
	return func(b []ir.Instr, x ir.Instr) bool {
		return len(b) < n
	}
}

func build(t *testing.T, trace ...ir.Instr) *dep.Graph {
	t.Helper()

	g := dep.Build(context.Background(), trace)
	g.AssignPriority(dep.Start)

	return g
}

func run(t *testing.T, g *dep.Graph, v Valid, opts ...Option) ([]ir.Group, map[dep.NodeID]int) {
	t.Helper()

	rounds := map[dep.NodeID]int{}

	opts = append(opts, OnCommit(func(r int, id dep.NodeID) {
		_, dup := rounds[id]
		require.False(t, dup, "node %d scheduled twice", id)

		rounds[id] = r
	}))

	groups, err := Schedule(context.Background(), g, v, opts...)
	require.NoError(t, err)

	return groups, rounds
}

func defs(gs ...ir.Group) (l []ir.Ident) {
	for _, g := range gs {
		for _, x := range g.Instrs {
			d, _ := x.Def()
			l = append(l, d)
		}
	}

	return l
}

func TestScheduleDependentChain(t *testing.T) {
	g := build(t,
		cnst("x", 1),
		cnst("y", 2),
		op("add", "z", "x", "y"),
	)

	groups, rounds := run(t, g, width(4))

	require.Len(t, groups, 2)
	assert.Equal(t, []ir.Ident{"x", "y"}, defs(groups[0]))
	assert.Equal(t, []ir.Ident{"z"}, defs(groups[1]))

	assert.Less(t, rounds[1], rounds[3])
	assert.Less(t, rounds[2], rounds[3])
}

func TestScheduleIndependentReaders(t *testing.T) {
	g := build(t,
		cnst("x", 5),
		op("id", "y", "x"),
		op("id", "z", "x"),
	)

	groups, _ := run(t, g, width(2))

	require.Len(t, groups, 2)
	assert.Equal(t, []ir.Ident{"x"}, defs(groups[0]))
	assert.Equal(t, []ir.Ident{"y", "z"}, defs(groups[1]))
}

func TestScheduleAntiDependence(t *testing.T) {
	g := build(t,
		cnst("x", 1),
		eff("print", "x"),
		cnst("x", 2),
	)

	groups, rounds := run(t, g, width(4))

	assert.LessOrEqual(t, rounds[2], rounds[3], "redefinition before pending use")
	assert.Equal(t, []ir.Ident{"x", "x"}, defs(groups...))

	last := groups[len(groups)-1]
	require.Len(t, last.Instrs, 1)
	assert.Equal(t, int64(2), last.Instrs[0].(ir.Const).Value)
}

func TestScheduleOnePerGroup(t *testing.T) {
	trace := []ir.Instr{
		cnst("a", 1),
		cnst("b", 2),
		op("add", "c", "a", "b"),
		op("mul", "d", "c", "c"),
		cnst("e", 3),
	}

	g := build(t, trace...)

	groups, _ := run(t, g, width(1))

	require.Len(t, groups, len(trace))

	for i, gr := range groups {
		assert.Len(t, gr.Instrs, 1, "group %d", i)
	}
}

func TestScheduleHeightFirst(t *testing.T) {
	g := build(t,
		cnst("a", 1),       // 1: height 3
		cnst("u", 9),       // 2: height 1
		op("id", "b", "a"), // 3: height 2
		op("id", "c", "b"), // 4: height 1
	)

	groups, _ := run(t, g, width(1))

	assert.Equal(t, []ir.Ident{"a", "b", "u", "c"}, defs(groups...))
}

func TestScheduleNoPriorityLast(t *testing.T) {
	g := dep.Build(context.Background(), []ir.Instr{
		cnst("a", 1),
		cnst("b", 2),
	})

	g.AssignPriority(2)

	groups, _ := run(t, g, width(1))

	assert.Equal(t, []ir.Ident{"b", "a"}, defs(groups...))
}

func TestScheduleWithoutPriorities(t *testing.T) {
	g := dep.Build(context.Background(), []ir.Instr{
		cnst("a", 1),
		cnst("b", 2),
		cnst("c", 3),
	})

	groups, _ := run(t, g, width(1))

	assert.Equal(t, []ir.Ident{"a", "b", "c"}, defs(groups...))
}

func TestScheduleEmpty(t *testing.T) {
	g := build(t)

	groups, err := Schedule(context.Background(), g, width(1))
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestScheduleGuards(t *testing.T) {
	g := build(t,
		op("lt", "c", "i", "n"),
		guard("c", "bail"),
		op("add", "i", "i", "one"),
	)

	groups, rounds := run(t, g, width(4))

	assert.Less(t, rounds[1], rounds[2])
	assert.Less(t, rounds[1], rounds[3], "anti: i is read by lt")

	var found bool

	for _, gr := range groups {
		if len(gr.Conds) == 0 {
			assert.Empty(t, gr.FailLabel)
			continue
		}

		found = true

		assert.Equal(t, []ir.Ident{"c"}, gr.Conds)
		assert.Equal(t, "bail", gr.FailLabel)
	}

	assert.True(t, found)
}

func TestScheduleNoProgress(t *testing.T) {
	g := build(t,
		cnst("a", 1),
		op("mul", "b", "a", "a"),
	)

	noMul := func(b []ir.Instr, x ir.Instr) bool {
		return ir.Op(x) != "mul"
	}

	_, err := Schedule(context.Background(), g, noMul)
	assert.ErrorIs(t, err, ErrNoProgress)
	assert.ErrorContains(t, err, "1 unscheduled: [2]")

	never := func(b []ir.Instr, x ir.Instr) bool { return false }

	_, err = Schedule(context.Background(), g, never)
	assert.ErrorIs(t, err, ErrNoProgress)
}

func TestScheduleRoundLimit(t *testing.T) {
	g := build(t,
		cnst("a", 1),
		cnst("b", 1),
		cnst("c", 1),
	)

	_, err := Schedule(context.Background(), g, width(1), MaxRounds(2))
	assert.ErrorIs(t, err, ErrRoundLimit)
	assert.ErrorContains(t, err, "1 nodes left after 2 groups")

	groups, err := Schedule(context.Background(), build(t, cnst("a", 1), cnst("b", 1), cnst("c", 1)), width(1), MaxRounds(3))
	require.NoError(t, err)
	assert.Len(t, groups, 3)
}

func TestScheduleNestedGroup(t *testing.T) {
	g := build(t,
		cnst("a", 1),
		ir.Group{Instrs: []ir.Instr{cnst("b", 2)}},
	)

	_, err := Schedule(context.Background(), g, width(4))
	assert.ErrorIs(t, err, ErrNestedGroup)
}

func TestSchedulePredicateSeesBundle(t *testing.T) {
	g := build(t,
		cnst("a", 1),
		cnst("b", 2),
		cnst("c", 3),
	)

	var seen []int

	v := func(b []ir.Instr, x ir.Instr) bool {
		seen = append(seen, len(b))

		b = append(b, x) // must not leak into the scheduler bundle

		return len(b) <= 2
	}

	groups, err := Schedule(context.Background(), g, v)
	require.NoError(t, err)

	assert.Equal(t, []ir.Ident{"a", "b", "c"}, defs(groups...))
	assert.Len(t, groups, 2)
	assert.Equal(t, []int{0, 1, 2, 0}, seen)
}

func TestScheduleRandom(t *testing.T) {
	rnd := rand.New(rand.NewSource(2))
	names := []ir.Ident{"a", "b", "c", "d", "e", "f"}

	for n := 0; n < 200; n++ {
		var trace []ir.Instr

		for i := rnd.Intn(40); i >= 0; i-- {
			d := names[rnd.Intn(len(names))]

			if rnd.Intn(3) == 0 {
				trace = append(trace, cnst(d, int64(i)))
				continue
			}

			trace = append(trace, op("add", d, names[rnd.Intn(len(names))], names[rnd.Intn(len(names))]))
		}

		g := build(t, trace...)

		groups, rounds := run(t, g, width(1+rnd.Intn(4)))

		require.Len(t, rounds, len(trace), "trace %d", n)

		var all []ir.Instr

		for _, gr := range groups {
			all = append(all, gr.Instrs...)
		}

		assert.ElementsMatch(t, trace, all, "trace %d", n)

		for _, from := range g.Nodes() {
			g.Node(from).Succs.Range(func(to dep.NodeID) bool {
				assert.LessOrEqual(t, rounds[from], rounds[to], "trace %d: %d -> %d", n, from, to)
				return true
			})
		}
	}
}
