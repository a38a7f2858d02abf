// Package mir models the parts of a compiled function body that range
// extraction reads: basic blocks of statements and terminators with their
// character ranges, and one declaration record per local.
//
// Statements, rvalues and terminators are closed tagged variants: a Kind
// field selects which payload fields are meaningful. Walk dispatches over
// them with an explicit switch.
package mir

import "fmt"

// Local identifies a variable slot of one function body.
type Local struct {
	ID   uint32 `json:"id" yaml:"id" msgpack:"id"`
	FnID uint32 `json:"fn_id" yaml:"fn_id" msgpack:"fn"`
}

// NewLocal returns the local id inside function fnID.
func NewLocal(id, fnID uint32) Local {
	return Local{ID: id, FnID: fnID}
}

func (l Local) String() string {
	return fmt.Sprintf("_%d@fn%d", l.ID, l.FnID)
}
