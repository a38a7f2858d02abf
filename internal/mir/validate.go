package mir

import (
	"errors"
	"fmt"

	"github.com/MuntasirSZN/rustowl/internal/source"
)

// Validate checks the invariants of an analyzed function: decls belong to it
// and are unique, variant kinds are known, and every range set is sorted and
// disjoint. All violations are reported together.
func Validate(f *Func) error {
	if f == nil {
		return nil
	}
	var errs []error
	if err := validateDecls(f); err != nil {
		errs = append(errs, err)
	}
	if err := validateBlocks(f); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("fn %d: %w", f.FnID, err)
	}
	return nil
}

func validateDecls(f *Func) error {
	var errs []error
	seen := make(map[uint32]struct{}, len(f.Decls))
	for i := range f.Decls {
		d := &f.Decls[i]
		if d.Local.FnID != f.FnID {
			errs = append(errs, fmt.Errorf("decl %s: belongs to fn %d", d.Local, d.Local.FnID))
		}
		if _, dup := seen[d.Local.ID]; dup {
			errs = append(errs, fmt.Errorf("decl %s: declared twice", d.Local))
		}
		seen[d.Local.ID] = struct{}{}
		switch d.Kind {
		case DeclUser:
			if d.Name == "" {
				errs = append(errs, fmt.Errorf("decl %s: user variable without a name", d.Local))
			}
		case DeclOther:
		default:
			errs = append(errs, fmt.Errorf("decl %s: unknown kind %q", d.Local, d.Kind))
		}
		for _, set := range []struct {
			name string
			rs   []source.Range
		}{
			{"lives", d.Lives},
			{"shared_borrow", d.SharedBorrow},
			{"mutable_borrow", d.MutableBorrow},
			{"drop_range", d.DropRange},
			{"must_live_at", d.MustLiveAt},
		} {
			if err := validateRangeSet(set.rs); err != nil {
				errs = append(errs, fmt.Errorf("decl %s %s: %w", d.Local, set.name, err))
			}
		}
	}
	return errors.Join(errs...)
}

// validateRangeSet checks that rs is sorted, non-empty per element and
// free of overlaps.
func validateRangeSet(rs []source.Range) error {
	for i, r := range rs {
		if r.Until <= r.From {
			return fmt.Errorf("range %d %s is empty", i, r)
		}
		if i > 0 && rs[i-1].Until > r.From {
			return fmt.Errorf("range %d %s overlaps %s", i, r, rs[i-1])
		}
	}
	return nil
}

func validateBlocks(f *Func) error {
	var errs []error
	checkLocal := func(where string, l Local) {
		if l.FnID != f.FnID {
			errs = append(errs, fmt.Errorf("%s: local %s from another function", where, l))
		}
	}
	for bi := range f.Blocks {
		b := &f.Blocks[bi]
		for si := range b.Statements {
			s := &b.Statements[si]
			where := fmt.Sprintf("bb%d[%d]", bi, si)
			switch s.Kind {
			case StmtStorageLive, StmtStorageDead:
				checkLocal(where, s.Target)
			case StmtAssign:
				checkLocal(where, s.Target)
				if s.Rval != nil {
					errs = append(errs, validateRval(where, s.Rval, checkLocal)...)
				}
			case StmtOther:
			default:
				errs = append(errs, fmt.Errorf("%s: unknown statement kind %q", where, s.Kind))
			}
		}
		if t := b.Terminator; t != nil {
			where := fmt.Sprintf("bb%d terminator", bi)
			switch t.Kind {
			case TermDrop, TermCall:
				checkLocal(where, t.Local)
			case TermOther:
			default:
				errs = append(errs, fmt.Errorf("%s: unknown terminator kind %q", where, t.Kind))
			}
		}
	}
	return errors.Join(errs...)
}

func validateRval(where string, r *Rval, checkLocal func(string, Local)) []error {
	var errs []error
	checkLocal(where, r.Target)
	switch r.Kind {
	case RvalBorrow:
	case RvalMove:
		if r.Mutable {
			errs = append(errs, fmt.Errorf("%s: move marked mutable", where))
		}
		if r.Outlive != nil {
			errs = append(errs, fmt.Errorf("%s: outlive range on a move", where))
		}
	default:
		errs = append(errs, fmt.Errorf("%s: unknown rval kind %q", where, r.Kind))
	}
	return errs
}
