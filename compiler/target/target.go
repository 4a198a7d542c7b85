// Package target describes the issue rules of a multi-issue machine.
//
// A Machine decides whether an instruction may join a bundle. It is loaded
// from YAML on top of the defaults:
//
//	width: 4        # instructions per bundle
//	guards: 1       # guards per bundle
//	units:          # issue slots per opcode class
//	  mul: 1
//	  mem: 1
//	classes:        # opcode -> class
//	  mul: mul
//	  load: mem
package target

import (
	"os"

	"gopkg.in/yaml.v3"
	"tlog.app/go/errors"

	"github.com/sgpthomas/bril/compiler/ir"
)

type (
	Machine struct {
		Width   int               `yaml:"width"`
		Guards  int               `yaml:"guards"`
		Units   map[string]int    `yaml:"units,omitempty"`
		Classes map[string]string `yaml:"classes,omitempty"`
	}
)

var ErrBadConfig = errors.New("bad target config")

func Default() *Machine {
	return &Machine{
		Width:  4,
		Guards: 1,
		Units: map[string]int{
			"mul": 1,
			"mem": 1,
		},
		Classes: map[string]string{
			"mul":   "mul",
			"div":   "mul",
			"fmul":  "mul",
			"fdiv":  "mul",
			"load":  "mem",
			"store": "mem",
			"alloc": "mem",
			"free":  "mem",
		},
	}
}

func Load(name string) (*Machine, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read target")
	}

	m, err := Parse(data)
	if err != nil {
		return nil, errors.Wrap(err, "target %v", name)
	}

	return m, nil
}

// Parse reads YAML over Default. Maps are merged key by key.
func Parse(data []byte) (*Machine, error) {
	m := Default()

	err := yaml.Unmarshal(data, m)
	if err != nil {
		return nil, errors.Wrap(err, "decode yaml")
	}

	err = m.Validate()
	if err != nil {
		return nil, err
	}

	return m, nil
}

// Validate checks every limit admits at least one instruction,
// so an empty bundle accepts anything.
func (m *Machine) Validate() error {
	if m.Width < 1 {
		return errors.Wrap(ErrBadConfig, "width: %d", m.Width)
	}

	if m.Guards < 1 {
		return errors.Wrap(ErrBadConfig, "guards: %d", m.Guards)
	}

	for c, n := range m.Units {
		if n < 1 {
			return errors.Wrap(ErrBadConfig, "units: %v: %d", c, n)
		}
	}

	return nil
}

// Valid reports whether x may issue together with bundle.
func (m *Machine) Valid(bundle []ir.Instr, x ir.Instr) bool {
	if len(bundle) >= m.Width {
		return false
	}

	if e, ok := x.(ir.Effect); ok {
		if _, fail, ok := e.Guard(); ok && !m.guardFits(bundle, fail) {
			return false
		}
	}

	class, ok := m.Classes[ir.Op(x)]
	if !ok {
		return true
	}

	limit, ok := m.Units[class]
	if !ok {
		return true
	}

	used := 0

	for _, y := range bundle {
		if m.Classes[ir.Op(y)] == class {
			used++
		}
	}

	return used < limit
}

func (m *Machine) guardFits(bundle []ir.Instr, fail string) bool {
	n := 0

	for _, y := range bundle {
		e, ok := y.(ir.Effect)
		if !ok {
			continue
		}

		_, f, ok := e.Guard()
		if !ok {
			continue
		}

		if f != fail {
			return false
		}

		n++
	}

	return n < m.Guards
}
