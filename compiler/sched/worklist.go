package sched

import (
	"nikand.dev/go/heap"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/sgpthomas/bril/compiler/dep"
)

type (
	worklist struct {
		heap.Heap[dep.NodeID]

		g  *dep.Graph
		tr tlog.Span
	}
)

func newWorklist(g *dep.Graph, tr tlog.Span) *worklist {
	w := &worklist{g: g, tr: tr}
	w.Heap = heap.Heap[dep.NodeID]{Less: w.less}

	return w
}

func (w *worklist) less(d []dep.NodeID, i, j int) bool {
	return before(w.g.Node(d[i]), w.g.Node(d[j]))
}

// before is the selection order: greater height first,
// nodes without a priority after all others, then trace order.
func before(a, b *dep.Node) bool {
	if a.HasPrio != b.HasPrio {
		return a.HasPrio
	}

	if a.HasPrio && a.Prio != b.Prio {
		return a.Prio > b.Prio
	}

	return a.ID < b.ID
}

func (w *worklist) Push(id dep.NodeID) {
	w.tr.V("worklist").Printw("push", "node", id, "prio", w.g.Node(id).Prio, "len", w.Len(), "from", loc.Caller(1))

	w.Heap.Push(id)
}
