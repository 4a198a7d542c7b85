package ir

import "tlog.app/go/tlog/tlwire"

func (x Group) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 3)

	b = e.AppendKey(b, "conds")
	b = e.AppendArray(b, len(x.Conds))

	for _, c := range x.Conds {
		b = e.AppendString(b, string(c))
	}

	b = e.AppendKey(b, "instrs")
	b = e.AppendArray(b, len(x.Instrs))

	for _, y := range x.Instrs {
		if d, ok := y.Def(); ok {
			b = e.AppendString(b, string(d))
		} else {
			b = e.AppendString(b, Op(y))
		}
	}

	b = e.AppendKeyValue(b, "fail", x.FailLabel)

	return b
}
