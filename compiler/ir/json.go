package ir

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"tlog.app/go/errors"
)

type (
	Program struct {
		Functions []Function `json:"functions"`
	}

	Function struct {
		Name   string  `json:"name"`
		Args   []Arg   `json:"args,omitempty"`
		Type   Type    `json:"type,omitempty"`
		Instrs []Instr `json:"instrs"`
	}

	Arg struct {
		Name Ident `json:"name"`
		Type Type  `json:"type"`
	}

	jsonInstr struct {
		Label  string          `json:"label,omitempty"`
		Op     string          `json:"op,omitempty"`
		Dest   Ident           `json:"dest,omitempty"`
		Type   Type            `json:"type,omitempty"`
		Args   []Ident         `json:"args,omitempty"`
		Funcs  []string        `json:"funcs,omitempty"`
		Labels []string        `json:"labels,omitempty"`
		Value  json.RawMessage `json:"value,omitempty"`

		Conds     []Ident           `json:"conds,omitempty"`
		Instrs    []json.RawMessage `json:"instrs,omitempty"`
		FailLabel string            `json:"failLabel,omitempty"`
	}

	jsonGroup struct {
		Op        string  `json:"op"`
		Conds     []Ident `json:"conds"`
		Instrs    []Instr `json:"instrs"`
		FailLabel string  `json:"failLabel"`
	}
)

var ErrUnknownInstr = errors.New("unknown instruction")

// DecodeProgram reads a Bril program in its JSON form.
func DecodeProgram(data []byte) (*Program, error) {
	var p Program

	err := json.Unmarshal(data, &p)
	if err != nil {
		return nil, errors.Wrap(err, "decode program")
	}

	return &p, nil
}

func DecodeInstr(data []byte) (Instr, error) {
	var j jsonInstr

	err := json.Unmarshal(data, &j)
	if err != nil {
		return nil, errors.Wrap(err, "decode instr")
	}

	switch {
	case j.Op == "" && j.Label != "":
		return Label{Name: j.Label}, nil
	case j.Op == "":
		return nil, errors.Wrap(ErrUnknownInstr, "no op: %s", data)
	case j.Op == OpConst:
		v, err := decodeLiteral(j.Type, j.Value)
		if err != nil {
			return nil, errors.Wrap(err, "const %v", j.Dest)
		}

		return Const{Dest: j.Dest, Type: j.Type, Value: v}, nil
	case j.Op == OpGroup:
		g := Group{
			FailLabel: j.FailLabel,
		}

		if len(j.Conds) != 0 {
			g.Conds = j.Conds
		}

		for i, raw := range j.Instrs {
			x, err := DecodeInstr(raw)
			if err != nil {
				return nil, errors.Wrap(err, "group instr %d", i)
			}

			g.Instrs = append(g.Instrs, x)
		}

		return g, nil
	case j.Dest != "":
		return Value{Op: j.Op, Dest: j.Dest, Type: j.Type, Args: j.Args, Funcs: j.Funcs, Labels: j.Labels}, nil
	default:
		return Effect{Op: j.Op, Args: j.Args, Funcs: j.Funcs, Labels: j.Labels}, nil
	}
}

// decodeLiteral follows the declared type so that 1.0 stays a float
// after it is printed back as 1.
func decodeLiteral(tp Type, raw json.RawMessage) (any, error) {
	s := string(bytes.TrimSpace(raw))

	if s == "" {
		return nil, errors.New("no value")
	}

	switch tp {
	case "int":
		return strconv.ParseInt(s, 10, 64)
	case "float":
		return strconv.ParseFloat(s, 64)
	case "bool":
		return strconv.ParseBool(s)
	case "char":
		var c string

		err := json.Unmarshal(raw, &c)

		return c, err
	}

	switch {
	case s == "true":
		return true, nil
	case s == "false":
		return false, nil
	case s[0] == '"':
		var c string

		err := json.Unmarshal(raw, &c)

		return c, err
	case strings.ContainsAny(s, ".eE"):
		return strconv.ParseFloat(s, 64)
	default:
		return strconv.ParseInt(s, 10, 64)
	}
}

func (f *Function) UnmarshalJSON(data []byte) (err error) {
	var raw struct {
		Name   string            `json:"name"`
		Args   []Arg             `json:"args"`
		Type   Type              `json:"type"`
		Instrs []json.RawMessage `json:"instrs"`
	}

	err = json.Unmarshal(data, &raw)
	if err != nil {
		return err
	}

	*f = Function{Name: raw.Name, Args: raw.Args, Type: raw.Type}

	for i, r := range raw.Instrs {
		x, err := DecodeInstr(r)
		if err != nil {
			return errors.Wrap(err, "func %v: instr %d", raw.Name, i)
		}

		f.Instrs = append(f.Instrs, x)
	}

	return nil
}

func (x Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonInstr{Op: x.Op, Dest: x.Dest, Type: x.Type, Args: x.Args, Funcs: x.Funcs, Labels: x.Labels})
}

func (x Effect) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonInstr{Op: x.Op, Args: x.Args, Funcs: x.Funcs, Labels: x.Labels})
}

func (x Const) MarshalJSON() ([]byte, error) {
	v, err := json.Marshal(x.Value)
	if err != nil {
		return nil, errors.Wrap(err, "const %v", x.Dest)
	}

	return json.Marshal(jsonInstr{Op: OpConst, Dest: x.Dest, Type: x.Type, Value: v})
}

func (x Label) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonInstr{Label: x.Name})
}

func (x Group) MarshalJSON() ([]byte, error) {
	g := jsonGroup{
		Op:        OpGroup,
		Conds:     x.Conds,
		Instrs:    x.Instrs,
		FailLabel: x.FailLabel,
	}

	if g.Conds == nil {
		g.Conds = []Ident{}
	}

	if g.Instrs == nil {
		g.Instrs = []Instr{}
	}

	return json.Marshal(g)
}

// Pointer types are encoded as {"ptr": T} and kept as "ptr<T>".
func (t Type) MarshalJSON() ([]byte, error) {
	s := string(t)

	if strings.HasPrefix(s, "ptr<") && strings.HasSuffix(s, ">") {
		return json.Marshal(map[string]Type{"ptr": Type(s[4 : len(s)-1])})
	}

	return json.Marshal(s)
}

func (t *Type) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	if len(data) != 0 && data[0] == '"' {
		var s string

		err := json.Unmarshal(data, &s)
		if err != nil {
			return err
		}

		*t = Type(s)

		return nil
	}

	var p struct {
		Ptr *Type `json:"ptr"`
	}

	err := json.Unmarshal(data, &p)
	if err != nil {
		return errors.Wrap(err, "type")
	}

	if p.Ptr == nil {
		return errors.New("unsupported type: %s", data)
	}

	*t = "ptr<" + *p.Ptr + ">"

	return nil
}
