// Package facts holds the dataflow facts produced by the external borrow
// checking engine for one function body. The facts are computed elsewhere and
// are read-only here; lookups are bounds-checked and never panic on malformed
// indices.
package facts

// Point distinguishes the two halves of a MIR location.
type Point string

const (
	PointStart Point = "start"
	PointMid   Point = "mid"
)

// RichLocation is a resolved (block, statement, start-or-mid) position.
type RichLocation struct {
	Block     int   `json:"block"`
	Statement int   `json:"statement"`
	Point     Point `json:"point"`
}

// LocationTable maps abstract location indices to rich locations.
type LocationTable []RichLocation

// Lookup resolves an abstract location index.
func (t LocationTable) Lookup(idx uint32) (RichLocation, bool) {
	if int64(idx) >= int64(len(t)) {
		return RichLocation{}, false
	}
	return t[idx], true
}

// LocalsAt lists the locals live at one abstract location.
type LocalsAt struct {
	Location uint32   `json:"location"`
	Locals   []uint32 `json:"locals"`
}

// LoansAt lists the loans live at one abstract location.
type LoansAt struct {
	Location uint32   `json:"location"`
	Loans    []uint32 `json:"loans"`
}

// OriginsAt lists the origins (regions) live at one abstract location.
type OriginsAt struct {
	Location uint32   `json:"location"`
	Origins  []uint32 `json:"origins"`
}

// SubsetEdge records that every sub origin is contained in Sup.
type SubsetEdge struct {
	Sup  uint32   `json:"sup"`
	Subs []uint32 `json:"subs"`
}

// SubsetAt lists the subset relation that holds at one location.
type SubsetAt struct {
	Location uint32       `json:"location"`
	Edges    []SubsetEdge `json:"edges"`
}

// OriginLoans lists the loans an origin contains.
type OriginLoans struct {
	Origin uint32   `json:"origin"`
	Loans  []uint32 `json:"loans"`
}

// OriginLoansAt lists origin→loan containment at one location.
type OriginLoansAt struct {
	Location uint32        `json:"location"`
	Origins  []OriginLoans `json:"origins"`
}

// Facts is the full fact set for one body.
type Facts struct {
	VarLiveOnEntry       []LocalsAt      `json:"var_live_on_entry"`
	VarDropLiveOnEntry   []LocalsAt      `json:"var_drop_live_on_entry"`
	LoanLiveAt           []LoansAt       `json:"loan_live_at"`
	OriginLiveOnEntry    []OriginsAt     `json:"origin_live_on_entry"`
	Subset               []SubsetAt      `json:"subset"`
	OriginContainsLoanAt []OriginLoansAt `json:"origin_contains_loan_at"`
}
