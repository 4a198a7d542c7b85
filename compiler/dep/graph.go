package dep

import (
	"tlog.app/go/tlog"
	"tlog.app/go/tlog/tlwire"

	"github.com/sgpthomas/bril/compiler/ir"
	"github.com/sgpthomas/bril/compiler/set"
)

type (
	NodeID int

	// Kind is a bitmask of dependence kinds on one edge.
	Kind uint8

	Node struct {
		ID NodeID

		// Instr is nil for the start node.
		Instr ir.Instr

		Succs set.Bits[NodeID]
		Preds set.Bits[NodeID]

		Prio    int
		HasPrio bool
	}

	// Graph is an arena of nodes addressed by NodeID.
	// Node 0 is the start node. Its successors list every instruction node
	// but carry no ordering: instruction nodes never have it as a predecessor.
	Graph struct {
		nodes []Node
		kinds map[edge]Kind

		// span of the Build caller, later passes over the graph log into it
		tr tlog.Span
	}

	edge struct {
		from, to NodeID
	}
)

const Start NodeID = 0

const (
	KindTrue Kind = 1 << iota
	KindAnti
	KindOutput
)

func newGraph(n int) *Graph {
	g := &Graph{
		nodes: make([]Node, 1, n+1),
		kinds: make(map[edge]Kind),
	}

	g.nodes[Start] = Node{ID: Start}

	return g
}

// Len is the number of instruction nodes.
func (g *Graph) Len() int { return len(g.nodes) - 1 }

func (g *Graph) Node(id NodeID) *Node { return &g.nodes[id] }

func (g *Graph) Start() *Node { return &g.nodes[Start] }

// Nodes returns instruction nodes in trace order.
func (g *Graph) Nodes() []NodeID {
	return g.nodes[Start].Succs.Slice()
}

// Edge reports the dependence kinds between from and to.
func (g *Graph) Edge(from, to NodeID) (Kind, bool) {
	k, ok := g.kinds[edge{from, to}]

	return k, ok
}

func (g *Graph) add() NodeID {
	id := NodeID(len(g.nodes))

	g.nodes = append(g.nodes, Node{ID: id})
	g.nodes[Start].Succs.Set(id)

	return id
}

func (g *Graph) link(from, to NodeID, k Kind) {
	if from == to || from == Start {
		return
	}

	g.nodes[from].Succs.Set(to)
	g.nodes[to].Preds.Set(from)
	g.kinds[edge{from, to}] |= k
}

// Topo returns instruction nodes in a dependence respecting order.
// It returns false if some node is left out, which means a cycle.
func (g *Graph) Topo() ([]NodeID, bool) {
	wait := make([]set.Bits[NodeID], len(g.nodes))
	var q []NodeID

	for _, id := range g.Nodes() {
		wait[id] = g.nodes[id].Preds.Copy()

		if wait[id].Empty() {
			q = append(q, id)
		}
	}

	order := make([]NodeID, 0, g.Len())

	for len(q) != 0 {
		id := q[0]
		q = q[1:]

		order = append(order, id)

		g.nodes[id].Succs.Range(func(s NodeID) bool {
			wait[s].Clear(id)

			if wait[s].Empty() {
				q = append(q, s)
			}

			return true
		})
	}

	return order, len(order) == g.Len()
}

func (k Kind) String() string {
	var b []byte

	for _, x := range []struct {
		k Kind
		n string
	}{{KindTrue, "true"}, {KindAnti, "anti"}, {KindOutput, "output"}} {
		if k&x.k == 0 {
			continue
		}

		if len(b) != 0 {
			b = append(b, '|')
		}

		b = append(b, x.n...)
	}

	if len(b) == 0 {
		return "none"
	}

	return string(b)
}

func (n Node) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, -1)

	b = e.AppendKeyInt(b, "id", int(n.ID))

	if n.Instr != nil {
		b = e.AppendKeyValue(b, "op", ir.Op(n.Instr))

		if d, ok := n.Instr.Def(); ok {
			b = e.AppendKeyValue(b, "def", string(d))
		}
	}

	if n.HasPrio {
		b = e.AppendKeyInt(b, "prio", n.Prio)
	}

	b = e.AppendKey(b, "succs")
	b = n.Succs.TlogAppend(b)

	b = e.AppendKey(b, "preds")
	b = n.Preds.TlogAppend(b)

	b = e.AppendBreak(b)

	return b
}
