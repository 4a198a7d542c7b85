package sched

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/sgpthomas/bril/compiler/dep"
	"github.com/sgpthomas/bril/compiler/ir"
	"github.com/sgpthomas/bril/compiler/set"
)

type (
	// Valid reports whether x may join bundle.
	// It must be deterministic and must not keep or modify bundle.
	// It is called again for every retry of the same instruction.
	Valid func(bundle []ir.Instr, x ir.Instr) bool

	Option func(*scheduler)

	scheduler struct {
		g     *dep.Graph
		valid Valid

		maxRounds int
		onCommit  func(round int, id dep.NodeID)

		ready    *worklist
		done     set.Bits[dep.NodeID]
		deferred set.Bits[dep.NodeID]

		bundle []ir.Instr
		groups []ir.Group

		round   int
		offers  int
		rejects int
	}
)

var (
	ErrNoProgress = errors.New("no progress")
	ErrRoundLimit = errors.New("round limit exceeded")
)

// MaxRounds fails the schedule with ErrRoundLimit after n bundles. 0 is no limit.
func MaxRounds(n int) Option {
	return func(s *scheduler) {
		s.maxRounds = n
	}
}

// OnCommit calls f for every instruction node placed into a bundle.
// round is the index of the Group the node ends up in.
func OnCommit(f func(round int, id dep.NodeID)) Option {
	return func(s *scheduler) {
		s.onCommit = f
	}
}

// Schedule packs the graph nodes into Groups by list scheduling.
//
// Each round pops ready nodes by priority (see AssignPriority) and offers
// them to valid. An accepted node joins the bundle and releases successors
// whose predecessors are all placed; those and the rejected nodes are retried
// in the next round. A round that places nothing means valid rejects
// every ready node even into an empty bundle, that is ErrNoProgress.
//
// valid must accept any node into an empty bundle for Schedule to place
// every node. Each node is placed exactly once.
func Schedule(ctx context.Context, g *dep.Graph, valid Valid, opts ...Option) (_ []ir.Group, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "sched: schedule", "nodes", g.Len())
	defer tr.Finish("err", &err)

	s := &scheduler{
		g:     g,
		valid: valid,
		ready: newWorklist(g, tr),
	}

	for _, o := range opts {
		o(s)
	}

	for _, id := range g.Nodes() {
		if g.Node(id).Preds.Empty() {
			s.ready.Push(id)
		}
	}

	for {
		if s.ready.Len() != 0 {
			s.offer(ctx, s.ready.Pop())

			continue
		}

		more, err := s.closeRound(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "round %d", s.round)
		}

		if !more {
			break
		}
	}

	tr.Printw("scheduled", "groups", len(s.groups), "rounds", s.round, "offers", s.offers, "rejects", s.rejects)

	if tr.If("dump_schedule") {
		for i, g := range s.groups {
			tr.Printw("group", "i", i, "group", g)
		}
	}

	return s.groups, nil
}

func (s *scheduler) offer(ctx context.Context, id dep.NodeID) {
	n := s.g.Node(id)

	s.offers++

	if !s.valid(s.bundle[:len(s.bundle):len(s.bundle)], n.Instr) {
		s.rejects++
		s.deferred.Set(id)

		tlog.SpanFromContext(ctx).V("bundle").Printw("rejected", "round", s.round, "node", id, "bundle", len(s.bundle))

		return
	}

	s.bundle = append(s.bundle, n.Instr)
	s.done.Set(id)

	if s.onCommit != nil {
		s.onCommit(s.round, id)
	}

	tlog.SpanFromContext(ctx).V("bundle").Printw("committed", "round", s.round, "node", id, "prio", n.Prio, "bundle", len(s.bundle))

	n.Succs.Range(func(succ dep.NodeID) bool {
		p := s.g.Node(succ).Preds

		if p.SubsetOf(s.done) {
			s.deferred.Set(succ)
		}

		return true
	})
}

func (s *scheduler) closeRound(ctx context.Context) (more bool, err error) {
	if len(s.bundle) == 0 {
		if s.deferred.Empty() {
			return false, nil
		}

		left := s.left()

		return false, errors.Wrap(ErrNoProgress, "%d ready nodes rejected into an empty bundle, %d unscheduled: %v", s.deferred.Size(), left.Size(), left.Slice())
	}

	g, err := Materialize(s.bundle)
	if err != nil {
		return false, errors.Wrap(err, "materialize")
	}

	s.groups = append(s.groups, g)
	s.bundle = nil
	s.round++

	tlog.SpanFromContext(ctx).V("bundle").Printw("group closed", "round", s.round-1, "group", g, "deferred", s.deferred)

	if s.deferred.Empty() {
		return false, nil
	}

	if s.maxRounds != 0 && s.round >= s.maxRounds {
		left := s.left()

		return false, errors.Wrap(ErrRoundLimit, "%d nodes left after %d groups", left.Size(), s.round)
	}

	s.deferred.Range(func(id dep.NodeID) bool {
		s.ready.Push(id)
		return true
	})

	s.deferred.Reset()

	return true, nil
}

// left is the set of instruction nodes not placed yet.
func (s *scheduler) left() set.Bits[dep.NodeID] {
	l := s.g.Start().Succs.Copy()
	l.Substract(s.done)

	return l
}
