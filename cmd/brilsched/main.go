package main

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/sgpthomas/bril/compiler"
	"github.com/sgpthomas/bril/compiler/format"
	"github.com/sgpthomas/bril/compiler/ir"
	"github.com/sgpthomas/bril/compiler/target"
)

func main() {
	scheduleCmd := &cli.Command{
		Name:        "schedule",
		Description: "pack a straight-line function body into guarded issue groups",
		Action:      scheduleAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("func,f", "main", "function to schedule"),
			cli.NewFlag("target,t", "", "target machine yaml (default machine if empty)"),
			cli.NewFlag("format", "json", "output format: json or text"),
			cli.NewFlag("output-deps", false, "keep writes of the same name in order"),
			cli.NewFlag("max-rounds", 0, "fail after this many groups, 0 is no limit"),
		},
	}

	graphCmd := &cli.Command{
		Name:        "graph",
		Description: "print the dependence graph with instruction heights",
		Action:      graphAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("func,f", "main", "function to analyze"),
			cli.NewFlag("output-deps", false, "keep writes of the same name in order"),
		},
	}

	app := &cli.Command{
		Name:        "brilsched",
		Description: "brilsched is a trace scheduler for bril programs",
		Before:      before,
		Flags: []*cli.Flag{
			cli.NewFlag("log", "stderr", "log output file (or stderr)"),
			cli.NewFlag("verbosity,v", "", "logger verbosity topics"),
			cli.HelpFlag,
		},
		Commands: []*cli.Command{
			scheduleCmd,
			graphCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func before(c *cli.Command) error {
	var w io.Writer = os.Stderr

	if name := c.String("log"); name != "" && name != "stderr" {
		f, err := os.Create(name)
		if err != nil {
			return errors.Wrap(err, "open log file")
		}

		w = f
	}

	tlog.DefaultLogger = tlog.New(tlog.NewConsoleWriter(w, tlog.LstdFlags))

	tlog.SetVerbosity(c.String("verbosity"))

	return nil
}

func scheduleAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	p, err := readProgram(c)
	if err != nil {
		return err
	}

	m := target.Default()

	if name := c.String("target"); name != "" {
		m, err = target.Load(name)
		if err != nil {
			return errors.Wrap(err, "load target")
		}
	}

	cfg := compiler.Config{
		Target:     m,
		OutputDeps: c.Bool("output-deps"),
		MaxRounds:  c.Int("max-rounds"),
	}

	err = compiler.ScheduleProgram(ctx, p, c.String("func"), cfg)
	if err != nil {
		return errors.Wrap(err, "schedule")
	}

	switch f := c.String("format"); f {
	case "json":
		e := json.NewEncoder(os.Stdout)
		e.SetIndent("", "  ")

		err = e.Encode(p)
	case "text":
		var b []byte

		b, err = format.Format(ctx, nil, p)
		if err == nil {
			_, err = os.Stdout.Write(b)
		}
	default:
		return errors.New("unsupported format: %q", f)
	}

	if err != nil {
		return errors.Wrap(err, "write output")
	}

	return nil
}

func graphAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	p, err := readProgram(c)
	if err != nil {
		return err
	}

	f, err := compiler.Func(p, c.String("func"))
	if err != nil {
		return err
	}

	g, err := compiler.BuildGraph(ctx, f.Instrs, compiler.Config{OutputDeps: c.Bool("output-deps")})
	if err != nil {
		return errors.Wrap(err, "func %v", f.Name)
	}

	b, err := format.Format(ctx, nil, g)
	if err != nil {
		return errors.Wrap(err, "format graph")
	}

	_, err = os.Stdout.Write(b)

	return err
}

// readProgram reads the first argument, or stdin if there is none.
func readProgram(c *cli.Command) (*ir.Program, error) {
	var data []byte
	var err error

	name := "stdin"

	if len(c.Args) != 0 {
		name = c.Args[0]
		data, err = os.ReadFile(name)
	} else {
		data, err = io.ReadAll(os.Stdin)
	}

	if err != nil {
		return nil, errors.Wrap(err, "read %v", name)
	}

	p, err := ir.DecodeProgram(data)
	if err != nil {
		return nil, errors.Wrap(err, "%v", name)
	}

	return p, nil
}
