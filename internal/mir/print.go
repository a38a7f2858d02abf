package mir

import (
	"fmt"
	"io"
	"strings"

	"github.com/MuntasirSZN/rustowl/internal/source"
)

// DumpFunc writes a human-readable listing of f: its decls with their range
// sets, then every block.
func DumpFunc(w io.Writer, f *Func) error {
	if w == nil || f == nil {
		return nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "fn #%d:\n", f.FnID)
	b.WriteString("  decls:\n")
	for i := range f.Decls {
		d := &f.Decls[i]
		name := d.Name
		if name == "" {
			name = "_"
		}
		flags := string(d.Kind)
		if d.Drop {
			flags += ",drop"
		}
		fmt.Fprintf(&b, "    _%d: %s [%s] name=%s\n", d.Local.ID, d.Ty, flags, name)
		writeRangeSet(&b, "lives", d.Lives)
		writeRangeSet(&b, "shared", d.SharedBorrow)
		writeRangeSet(&b, "mutable", d.MutableBorrow)
		writeRangeSet(&b, "drop", d.DropRange)
		writeRangeSet(&b, "must_live", d.MustLiveAt)
	}
	for i := range f.Blocks {
		bb := &f.Blocks[i]
		fmt.Fprintf(&b, "  bb%d:\n", i)
		for j := range bb.Statements {
			fmt.Fprintf(&b, "    %s\n", formatStatement(&bb.Statements[j]))
		}
		if bb.Terminator != nil {
			fmt.Fprintf(&b, "    %s\n", formatTerminator(bb.Terminator))
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeRangeSet(b *strings.Builder, label string, rs []source.Range) {
	if len(rs) == 0 {
		return
	}
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = r.String()
	}
	fmt.Fprintf(b, "      %s: %s\n", label, strings.Join(parts, " "))
}

func formatStatement(s *Statement) string {
	switch s.Kind {
	case StmtStorageLive:
		return fmt.Sprintf("StorageLive(_%d) %s", s.Target.ID, s.Range)
	case StmtStorageDead:
		return fmt.Sprintf("StorageDead(_%d) %s", s.Target.ID, s.Range)
	case StmtAssign:
		if s.Rval == nil {
			return fmt.Sprintf("_%d = ? %s", s.Target.ID, s.Range)
		}
		return fmt.Sprintf("_%d = %s %s", s.Target.ID, formatRval(s.Rval), s.Range)
	default:
		return fmt.Sprintf("%s %s", s.Kind, s.Range)
	}
}

func formatRval(r *Rval) string {
	switch r.Kind {
	case RvalMove:
		return fmt.Sprintf("move _%d", r.Target.ID)
	case RvalBorrow:
		ref := "&"
		if r.Mutable {
			ref = "&mut "
		}
		out := fmt.Sprintf("%s_%d", ref, r.Target.ID)
		if r.Outlive != nil {
			out += " outlive=" + r.Outlive.String()
		}
		return out
	default:
		return string(r.Kind)
	}
}

func formatTerminator(t *Terminator) string {
	switch t.Kind {
	case TermDrop:
		return fmt.Sprintf("drop(_%d) %s", t.Local.ID, t.Range)
	case TermCall:
		return fmt.Sprintf("_%d = call %s", t.Local.ID, t.Range)
	default:
		return fmt.Sprintf("%s %s", t.Kind, t.Range)
	}
}
