package format

import (
	"context"
	"strconv"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"

	"github.com/sgpthomas/bril/compiler/dep"
	"github.com/sgpthomas/bril/compiler/ir"
)

// Format appends the Bril text form of x to b.
func Format(ctx context.Context, b []byte, x any) ([]byte, error) {
	return format(ctx, b, x, 0)
}

func format(ctx context.Context, b []byte, x any, d int) (_ []byte, err error) {
	switch x := x.(type) {
	case *ir.Program:
		return formatProgram(ctx, b, x, d)
	case *ir.Function:
		return formatFunc(ctx, b, x, d)
	case []ir.Group:
		for _, g := range x {
			b, err = formatInstr(ctx, b, g, d)
			if err != nil {
				return nil, err
			}
		}

		return b, nil
	case ir.Instr:
		return formatInstr(ctx, b, x, d)
	case *dep.Graph:
		return formatGraph(ctx, b, x, d)
	default:
		return nil, errors.New("unsupported type: %T", x)
	}
}

func formatProgram(ctx context.Context, b []byte, p *ir.Program, d int) (_ []byte, err error) {
	for i := range p.Functions {
		if i != 0 {
			b = append(b, '\n')
		}

		b, err = formatFunc(ctx, b, &p.Functions[i], d)
		if err != nil {
			return nil, errors.Wrap(err, "func %v", p.Functions[i].Name)
		}
	}

	return b, nil
}

func formatFunc(ctx context.Context, b []byte, f *ir.Function, d int) (_ []byte, err error) {
	b = app(b, d, "@%s", f.Name)

	if len(f.Args) != 0 {
		b = append(b, '(')

		for i, a := range f.Args {
			if i != 0 {
				b = append(b, ", "...)
			}

			b = app(b, 0, "%s: %s", a.Name, a.Type)
		}

		b = append(b, ')')
	}

	if f.Type != "" {
		b = app(b, 0, ": %s", f.Type)
	}

	b = append(b, " {\n"...)

	for i, x := range f.Instrs {
		b, err = formatInstr(ctx, b, x, d+1)
		if err != nil {
			return nil, errors.Wrap(err, "instr %d", i)
		}
	}

	b = app(b, d, "}\n")

	return b, nil
}

func formatInstr(ctx context.Context, b []byte, x ir.Instr, d int) (_ []byte, err error) {
	switch x := x.(type) {
	case ir.Label:
		b = app(b, max(d-1, 0), ".%s:\n", x.Name)
	case ir.Const:
		b = app(b, d, "%s: %s = const %v;\n", x.Dest, x.Type, x.Value)
	case ir.Value:
		b = app(b, d, "%s: %s = %s", x.Dest, x.Type, x.Op)
		b = operands(b, x.Funcs, x.Args, x.Labels)
		b = append(b, ";\n"...)
	case ir.Effect:
		b = app(b, d, "%s", x.Op)
		b = operands(b, x.Funcs, x.Args, x.Labels)
		b = append(b, ";\n"...)
	case ir.Group:
		b = app(b, d, "group [")

		for i, c := range x.Conds {
			if i != 0 {
				b = append(b, ", "...)
			}

			b = append(b, c...)
		}

		b = append(b, ']')

		if x.FailLabel != "" {
			b = app(b, 0, " .%s", x.FailLabel)
		}

		b = append(b, " {\n"...)

		for i, y := range x.Instrs {
			b, err = formatInstr(ctx, b, y, d+1)
			if err != nil {
				return nil, errors.Wrap(err, "group instr %d", i)
			}
		}

		b = app(b, d, "}\n")
	default:
		return nil, errors.New("unsupported instr: %T", x)
	}

	return b, nil
}

// formatGraph prints one node per line with its height and successors.
func formatGraph(ctx context.Context, b []byte, g *dep.Graph, d int) (_ []byte, err error) {
	for _, id := range g.Nodes() {
		n := g.Node(id)

		prio := "-"
		if n.HasPrio {
			prio = strconv.Itoa(n.Prio)
		}

		b = app(b, d, "%d\th=%s\t", id, prio)

		b, err = formatInstr(ctx, b, n.Instr, 0)
		if err != nil {
			return nil, errors.Wrap(err, "node %d", id)
		}

		n.Succs.Range(func(s dep.NodeID) bool {
			k, _ := g.Edge(id, s)
			b = app(b, d+1, "-> %d %v\n", s, k)

			return true
		})
	}

	return b, nil
}

func operands(b []byte, funcs []string, args []ir.Ident, labels []string) []byte {
	for _, f := range funcs {
		b = app(b, 0, " @%s", f)
	}

	for _, a := range args {
		b = app(b, 0, " %s", a)
	}

	for _, l := range labels {
		b = app(b, 0, " .%s", l)
	}

	return b
}

func app(b []byte, d int, f string, args ...any) []byte {
	const tabs = "\t\t\t\t\t\t\t\t\t\t\t\t\t\t\t"
	b = append(b, tabs[:d]...)
	b = hfmt.Appendf(b, f, args...)
	return b
}
