package mir

import "github.com/MuntasirSZN/rustowl/internal/source"

// StatementKind selects the Statement variant.
type StatementKind string

const (
	StmtStorageLive StatementKind = "storage_live"
	StmtStorageDead StatementKind = "storage_dead"
	StmtAssign      StatementKind = "assign"
	StmtOther       StatementKind = "other"
)

// Statement is one non-terminating MIR statement.
//
// Target is set for StorageLive, StorageDead and Assign; Rval only for Assign.
type Statement struct {
	Kind   StatementKind `json:"type" yaml:"type" msgpack:"k"`
	Target Local         `json:"target_local,omitzero" yaml:"target_local,omitempty" msgpack:"t"`
	Range  source.Range  `json:"range" yaml:"range" msgpack:"r"`
	Rval   *Rval         `json:"rval,omitempty" yaml:"rval,omitempty" msgpack:"v,omitempty"`
}

// RvalKind selects the Rval variant.
type RvalKind string

const (
	RvalMove   RvalKind = "move"
	RvalBorrow RvalKind = "borrow"
)

// Rval is the right-hand side of an Assign that extraction cares about.
// Outlive is filled by analysis for borrows whose borrowed local must stay
// valid past its own liveness.
type Rval struct {
	Kind    RvalKind      `json:"type" yaml:"type" msgpack:"k"`
	Target  Local         `json:"target_local" yaml:"target_local" msgpack:"t"`
	Range   source.Range  `json:"range" yaml:"range" msgpack:"r"`
	Mutable bool          `json:"mutable,omitempty" yaml:"mutable,omitempty" msgpack:"m,omitempty"`
	Outlive *source.Range `json:"outlive,omitempty" yaml:"outlive,omitempty" msgpack:"o,omitempty"`
}

// TerminatorKind selects the Terminator variant.
type TerminatorKind string

const (
	TermDrop  TerminatorKind = "drop"
	TermCall  TerminatorKind = "call"
	TermOther TerminatorKind = "other"
)

// Terminator ends a basic block. Local is the dropped local for Drop and the
// call destination for Call. Range is the fn span for calls.
type Terminator struct {
	Kind  TerminatorKind `json:"type" yaml:"type" msgpack:"k"`
	Local Local          `json:"local,omitzero" yaml:"local,omitempty" msgpack:"l"`
	Range source.Range   `json:"range" yaml:"range" msgpack:"r"`
}

// Block is one basic block.
type Block struct {
	Statements []Statement  `json:"statements" yaml:"statements" msgpack:"s"`
	Terminator *Terminator `json:"terminator,omitempty" yaml:"terminator,omitempty" msgpack:"t,omitempty"`
}

// Terminated reports whether the block carries a terminator.
func (b *Block) Terminated() bool {
	return b != nil && b.Terminator != nil
}

// LocationRange returns the code range at statement index stmt. An index at
// or past the end of the statement list resolves to the terminator. A
// statement whose span did not lower to a valid range resolves to nothing.
func (b *Block) LocationRange(stmt int) (source.Range, bool) {
	if b == nil || stmt < 0 {
		return source.Range{}, false
	}
	var r source.Range
	switch {
	case stmt < len(b.Statements):
		r = b.Statements[stmt].Range
	case b.Terminator != nil:
		r = b.Terminator.Range
	default:
		return source.Range{}, false
	}
	if r.Until <= r.From {
		return source.Range{}, false
	}
	return r, true
}

// LocationRange resolves (block, statement) within blocks; unknown blocks
// resolve to nothing.
func LocationRange(blocks []Block, block, stmt int) (source.Range, bool) {
	if block < 0 || block >= len(blocks) {
		return source.Range{}, false
	}
	return blocks[block].LocationRange(stmt)
}
