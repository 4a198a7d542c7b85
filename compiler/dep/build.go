package dep

import (
	"context"

	"tlog.app/go/tlog"

	"github.com/sgpthomas/bril/compiler/ir"
)

type (
	Option func(*builder)

	builder struct {
		output bool
	}
)

// OutputDeps makes Build also order each write after the previous
// write of the same name.
func OutputDeps(on bool) Option {
	return func(b *builder) {
		b.output = on
	}
}

// Build scans trace once and returns its dependence graph.
//
// A reader depends on the latest preceding writer of each argument (true edge).
// A writer depends on every reader of the name since its previous write (anti edge).
// Reads with no writer in the trace are not dependences.
// Edges always go from an earlier instruction to a later one so the graph is acyclic.
func Build(ctx context.Context, trace []ir.Instr, opts ...Option) *Graph {
	tr := tlog.SpawnFromContext(ctx, "dep: build graph", "instrs", len(trace))
	defer tr.Finish()

	var b builder

	for _, o := range opts {
		o(&b)
	}

	g := newGraph(len(trace))
	g.tr = tlog.SpanFromContext(ctx)

	writer := map[ir.Ident]NodeID{}
	readers := map[ir.Ident][]NodeID{}

	for i, x := range trace {
		id := g.add()
		g.nodes[id].Instr = x

		uses := x.Uses()

		// args see the writer before this instruction redefines anything
		for _, a := range uses {
			if w, ok := writer[a]; ok {
				g.link(w, id, KindTrue)
			}
		}

		if d, ok := x.Def(); ok {
			for _, r := range readers[d] {
				g.link(r, id, KindAnti)
			}

			if w, ok := writer[d]; ok && b.output {
				g.link(w, id, KindOutput)
			}

			writer[d] = id
			delete(readers, d)
		}

		for _, a := range uses {
			if l := readers[a]; len(l) != 0 && l[len(l)-1] == id {
				continue
			}

			readers[a] = append(readers[a], id)
		}

		tr.V("build").Printw("node", "i", i, "node", g.nodes[id])
	}

	if tr.If("dump_graph") {
		for _, id := range g.Nodes() {
			tr.Printw("graph node", "node", g.nodes[id])
		}
	}

	return g
}
