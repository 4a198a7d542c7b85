package sched

import (
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/sgpthomas/bril/compiler/ir"
)

var (
	ErrNestedGroup       = errors.New("group inside a bundle")
	ErrFailLabelConflict = errors.New("conflicting fail labels")
)

// Materialize turns one bundle into a Group.
//
// Guards become Conds and set FailLabel. A Group carries a single fail label,
// so guards in one bundle must share it, otherwise ErrFailLabelConflict.
// Constants and value operations go to Instrs in bundle order.
// Other effects and labels are not group members and are dropped.
func Materialize(bundle []ir.Instr) (g ir.Group, err error) {
	for i, x := range bundle {
		switch x := x.(type) {
		case ir.Group:
			return ir.Group{}, errors.Wrap(ErrNestedGroup, "instr %d", i)
		case ir.Effect:
			cond, fail, ok := x.Guard()
			if !ok {
				tlog.V("dropped").Printw("effect dropped from group", "i", i, "op", x.Op, "args", x.Args)
				continue
			}

			if g.FailLabel != "" && g.FailLabel != fail {
				return ir.Group{}, errors.Wrap(ErrFailLabelConflict, "instr %d: %v and %v", i, g.FailLabel, fail)
			}

			g.Conds = append(g.Conds, cond)
			g.FailLabel = fail
		default:
			if _, ok := x.Def(); !ok {
				tlog.V("dropped").Printw("instr dropped from group", "i", i, "op", ir.Op(x), "type", tlog.NextAsType, x)
				continue
			}

			g.Instrs = append(g.Instrs, x)
		}
	}

	return g, nil
}
