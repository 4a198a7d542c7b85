package ir

type (
	Ident string
	Type  string

	// Instr is one of Value, Effect, Const, Label or Group.
	Instr interface {
		Def() (Ident, bool)
		Uses() []Ident

		instr()
	}

	Value struct {
		Op     string
		Dest   Ident
		Type   Type
		Args   []Ident
		Funcs  []string
		Labels []string
	}

	Effect struct {
		Op     string
		Args   []Ident
		Funcs  []string
		Labels []string
	}

	// Const Value is int64, float64 or bool.
	Const struct {
		Dest  Ident
		Type  Type
		Value any
	}

	Label struct {
		Name string
	}

	// Group is a bundle of instructions issued together.
	// Conds are checked first as a conjunction; if any is false
	// control goes to FailLabel and none of Instrs take effect.
	Group struct {
		Conds     []Ident
		Instrs    []Instr
		FailLabel string
	}
)

const (
	OpConst = "const"
	OpGuard = "guard"
	OpGroup = "group"
)

func (x Value) Def() (Ident, bool)  { return x.Dest, true }
func (x Effect) Def() (Ident, bool) { return "", false }
func (x Const) Def() (Ident, bool)  { return x.Dest, true }
func (x Label) Def() (Ident, bool)  { return "", false }
func (x Group) Def() (Ident, bool)  { return "", false }

func (x Value) Uses() []Ident  { return x.Args }
func (x Effect) Uses() []Ident { return x.Args }
func (x Const) Uses() []Ident  { return nil }
func (x Label) Uses() []Ident  { return nil }

func (x Group) Uses() []Ident {
	l := append([]Ident{}, x.Conds...)

	for _, y := range x.Instrs {
		l = append(l, y.Uses()...)
	}

	return l
}

func (Value) instr()  {}
func (Effect) instr() {}
func (Const) instr()  {}
func (Label) instr()  {}
func (Group) instr()  {}

// Guard reports whether x is a speculation guard:
// guard cond .fail
func (x Effect) Guard() (cond Ident, fail string, ok bool) {
	if x.Op != OpGuard || len(x.Args) != 1 || len(x.Labels) != 1 {
		return "", "", false
	}

	return x.Args[0], x.Labels[0], true
}

// Op returns the opcode of any instruction.
func Op(x Instr) string {
	switch x := x.(type) {
	case Value:
		return x.Op
	case Effect:
		return x.Op
	case Const:
		return OpConst
	case Group:
		return OpGroup
	default:
		return ""
	}
}
