package mir

// Visitor receives the parts of a Func in order: the function, its decls,
// then every block's statements followed by its terminator. Any field may be
// nil.
type Visitor struct {
	Func       func(*Func)
	Decl       func(*Decl)
	Statement  func(*Statement)
	Rval       func(*Statement, *Rval)
	Terminator func(*Terminator)
}

// Walk traverses f with v.
func Walk(f *Func, v Visitor) {
	if f == nil {
		return
	}
	if v.Func != nil {
		v.Func(f)
	}
	if v.Decl != nil {
		for i := range f.Decls {
			v.Decl(&f.Decls[i])
		}
	}
	for bi := range f.Blocks {
		b := &f.Blocks[bi]
		for si := range b.Statements {
			walkStatement(&b.Statements[si], v)
		}
		if b.Terminator != nil && v.Terminator != nil {
			v.Terminator(b.Terminator)
		}
	}
}

func walkStatement(s *Statement, v Visitor) {
	if v.Statement != nil {
		v.Statement(s)
	}
	switch s.Kind {
	case StmtAssign:
		if s.Rval != nil && v.Rval != nil {
			v.Rval(s, s.Rval)
		}
	case StmtStorageLive, StmtStorageDead, StmtOther:
	}
}

// Locals collects the distinct locals referenced by statements and
// terminators of f, in first-seen order.
func Locals(f *Func) []Local {
	seen := make(map[Local]struct{})
	var out []Local
	add := func(l Local) {
		if _, ok := seen[l]; ok {
			return
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	Walk(f, Visitor{
		Statement: func(s *Statement) {
			switch s.Kind {
			case StmtStorageLive, StmtStorageDead, StmtAssign:
				add(s.Target)
			case StmtOther:
			}
		},
		Rval: func(_ *Statement, r *Rval) {
			add(r.Target)
		},
		Terminator: func(t *Terminator) {
			switch t.Kind {
			case TermDrop, TermCall:
				add(t.Local)
			case TermOther:
			}
		},
	})
	return out
}
