package format

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgpthomas/bril/compiler/dep"
	"github.com/sgpthomas/bril/compiler/ir"
)

func TestFormatProgram(t *testing.T) {
	ctx := context.Background()

	p := &ir.Program{
		Functions: []ir.Function{{
			Name: "main",
			Args: []ir.Arg{{Name: "n", Type: "int"}},
			Instrs: []ir.Instr{
				ir.Group{
					Conds: []ir.Ident{"c", "d"},
					Instrs: []ir.Instr{
						ir.Const{Dest: "x", Type: "int", Value: int64(1)},
						ir.Value{Op: "add", Dest: "y", Type: "int", Args: []ir.Ident{"x", "n"}},
					},
					FailLabel: "bail",
				},
				ir.Group{
					Instrs: []ir.Instr{
						ir.Value{Op: "call", Dest: "z", Type: "int", Funcs: []string{"f"}, Args: []ir.Ident{"y"}},
					},
				},
				ir.Label{Name: "bail"},
				ir.Effect{Op: "print", Args: []ir.Ident{"n"}},
			},
		}},
	}

	b, err := Format(ctx, nil, p)
	require.NoError(t, err)

	assert.Equal(t, `@main(n: int) {
	group [c, d] .bail {
		x: int = const 1;
		y: int = add x n;
	}
	group [] {
		z: int = call @f y;
	}
.bail:
	print n;
}
`, string(b))
}

func TestFormatGraph(t *testing.T) {
	ctx := context.Background()

	g := dep.Build(ctx, []ir.Instr{
		ir.Const{Dest: "x", Type: "int", Value: int64(1)},
		ir.Effect{Op: "print", Args: []ir.Ident{"x"}},
		ir.Const{Dest: "x", Type: "int", Value: int64(2)},
	})

	g.AssignPriority(dep.Start)

	b, err := Format(ctx, nil, g)
	require.NoError(t, err)

	assert.Equal(t, `1	h=3	x: int = const 1;
	-> 2 true
2	h=2	print x;
	-> 3 anti
3	h=1	x: int = const 2;
`, string(b))
}

func TestFormatUnsupported(t *testing.T) {
	_, err := Format(context.Background(), nil, 42)
	assert.Error(t, err)
}
