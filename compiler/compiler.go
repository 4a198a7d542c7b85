package compiler

import (
	"context"
	"os"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/sgpthomas/bril/compiler/dep"
	"github.com/sgpthomas/bril/compiler/ir"
	"github.com/sgpthomas/bril/compiler/sched"
	"github.com/sgpthomas/bril/compiler/target"
)

type (
	Config struct {
		// Valid overrides Target when set.
		Valid  sched.Valid
		Target *target.Machine

		OutputDeps bool
		MaxRounds  int
	}
)

var (
	ErrLabelInTrace  = errors.New("label in trace")
	ErrEffectInTrace = errors.New("effect in trace")
	ErrNoFunc       = errors.New("no such function")
)

func ScheduleFile(ctx context.Context, name, fn string, c Config) (p *ir.Program, err error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(data), "name", name)

	p, err = ir.DecodeProgram(data)
	if err != nil {
		return nil, errors.Wrap(err, "%v", name)
	}

	err = ScheduleProgram(ctx, p, fn, c)
	if err != nil {
		return nil, errors.Wrap(err, "%v", name)
	}

	return p, nil
}

// ScheduleProgram replaces the body of function fn with its schedule.
func ScheduleProgram(ctx context.Context, p *ir.Program, fn string, c Config) error {
	f, err := Func(p, fn)
	if err != nil {
		return err
	}

	groups, err := ScheduleTrace(ctx, f.Instrs, c)
	if err != nil {
		return errors.Wrap(err, "func %v", fn)
	}

	f.Instrs = make([]ir.Instr, 0, len(groups))

	for _, g := range groups {
		f.Instrs = append(f.Instrs, g)
	}

	return nil
}

func ScheduleTrace(ctx context.Context, trace []ir.Instr, c Config) (groups []ir.Group, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "schedule trace", "instrs", len(trace))
	defer tr.Finish("err", &err)

	g, err := BuildGraph(ctx, trace, c)
	if err != nil {
		return nil, err
	}

	valid := c.Valid
	if valid == nil {
		m := c.Target
		if m == nil {
			m = target.Default()
		}

		valid = m.Valid
	}

	var opts []sched.Option

	if c.MaxRounds != 0 {
		opts = append(opts, sched.MaxRounds(c.MaxRounds))
	}

	groups, err = sched.Schedule(ctx, g, valid, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "schedule")
	}

	tr.Printw("trace scheduled", "instrs", len(trace), "groups", len(groups), "height", g.Start().Prio)

	return groups, nil
}

// BuildGraph builds the dependence graph of trace and assigns priorities.
// Labels and effects other than guards have no place in a Group,
// so a trace carrying them is rejected instead of losing them.
func BuildGraph(ctx context.Context, trace []ir.Instr, c Config) (*dep.Graph, error) {
	for i, x := range trace {
		switch x := x.(type) {
		case ir.Label:
			return nil, errors.Wrap(ErrLabelInTrace, "instr %d: .%v", i, x.Name)
		case ir.Effect:
			if _, _, ok := x.Guard(); !ok {
				return nil, errors.Wrap(ErrEffectInTrace, "instr %d: %v", i, x.Op)
			}
		}
	}

	var opts []dep.Option

	if c.OutputDeps {
		opts = append(opts, dep.OutputDeps(true))
	}

	g := dep.Build(ctx, trace, opts...)
	g.AssignPriority(dep.Start)

	return g, nil
}

func Func(p *ir.Program, name string) (*ir.Function, error) {
	for i := range p.Functions {
		if p.Functions[i].Name == name {
			return &p.Functions[i], nil
		}
	}

	return nil, errors.Wrap(ErrNoFunc, "%v", name)
}
