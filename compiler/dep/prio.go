package dep

// AssignPriority sets the height of id and of everything below it and returns it.
//
// An instruction without successors has height 1, any other has
// 1 + the max height of its successors. The start node gets the longest
// chain in the graph, 0 for an empty trace. Results are memoized in the
// nodes, so a full run is O(V+E) and repeated calls are free.
// It recurses along successors: stack depth is the length of the longest
// dependence chain, which is at most the trace length.
func (g *Graph) AssignPriority(id NodeID) int {
	n := &g.nodes[id]

	if n.HasPrio {
		return n.Prio
	}

	p := 0

	n.Succs.Range(func(s NodeID) bool {
		p = max(p, g.AssignPriority(s))
		return true
	})

	if id != Start {
		p++
	}

	n.Prio, n.HasPrio = p, true

	g.tr.V("prio").Printw("priority", "node", id, "prio", p)

	return p
}

// ClearPriority forgets all assigned priorities.
func (g *Graph) ClearPriority() {
	for i := range g.nodes {
		g.nodes[i].Prio, g.nodes[i].HasPrio = 0, false
	}
}
