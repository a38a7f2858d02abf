package source

import "fmt"

// Range is a half-open character interval [From, Until). A Range is never
// empty: NewRange refuses Until <= From.
type Range struct {
	From  Loc `json:"from" yaml:"from" msgpack:"f"`
	Until Loc `json:"until" yaml:"until" msgpack:"u"`
}

// NewRange builds [from, until). ok is false for non-positive widths.
func NewRange(from, until Loc) (Range, bool) {
	if until <= from {
		return Range{}, false
	}
	return Range{From: from, Until: until}, true
}

// MustRange is NewRange for literals known to be valid. It panics otherwise.
func MustRange(from, until Loc) Range {
	r, ok := NewRange(from, until)
	if !ok {
		panic(fmt.Sprintf("source: invalid range [%d, %d)", from, until))
	}
	return r
}

// Size returns the number of characters covered.
func (r Range) Size() uint32 {
	return uint32(r.Until - r.From)
}

func (r Range) String() string {
	return fmt.Sprintf("[%d, %d)", r.From, r.Until)
}
