package facts

// Borrow describes one loan. Borrowed is the local whose data is borrowed,
// Assigned the local that receives the reference.
type Borrow struct {
	Loan     uint32 `json:"loan"`
	Assigned uint32 `json:"assigned"`
	Borrowed uint32 `json:"borrowed"`
	Mutable  bool   `json:"mutable"`
}

// BorrowMap indexes loans of one body.
type BorrowMap struct {
	byLoan map[uint32]Borrow
}

// NewBorrowMap indexes borrows by loan. A repeated loan keeps its first entry.
func NewBorrowMap(borrows []Borrow) *BorrowMap {
	m := &BorrowMap{byLoan: make(map[uint32]Borrow, len(borrows))}
	for _, b := range borrows {
		if _, dup := m.byLoan[b.Loan]; dup {
			continue
		}
		m.byLoan[b.Loan] = b
	}
	return m
}

// Get resolves a loan.
func (m *BorrowMap) Get(loan uint32) (Borrow, bool) {
	if m == nil {
		return Borrow{}, false
	}
	b, ok := m.byLoan[loan]
	return b, ok
}

// Len returns the number of distinct loans.
func (m *BorrowMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.byLoan)
}
