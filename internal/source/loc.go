package source

import (
	"math"
	"unicode/utf8"
)

// Loc is a 0-based character offset into a source file. Carriage returns are
// not counted, so CRLF and LF variants of a file produce identical Locs.
type Loc uint32

// NewLoc converts a byte position into a character Loc. offset is subtracted
// from bytePos first (saturating at zero); it is the position of the file in
// the compiler's global source map. A position inside a multi-byte character
// resolves to that character's start.
func NewLoc(text string, bytePos, offset uint32) Loc {
	pos := bytePos - min(bytePos, offset)
	var chars uint32
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if uint32(i+size) > pos {
			break
		}
		i += size
		if r != '\r' {
			chars++
		}
	}
	return Loc(chars)
}

// charIndex maps every byte offset of content, and len(content), to the Loc
// NewLoc would return for it.
func charIndex(content []byte) []uint32 {
	idx := make([]uint32, len(content)+1)
	var n uint32
	for i := 0; i < len(content); {
		r, size := utf8.DecodeRune(content[i:])
		for j := 1; j < size; j++ {
			idx[i+j] = n
		}
		if r != '\r' {
			n++
		}
		i += size
		idx[i] = n
	}
	return idx
}

// Add moves the location by delta characters, saturating at 0 and MaxUint32.
func (l Loc) Add(delta int32) Loc {
	if delta >= 0 {
		sum := uint64(l) + uint64(delta)
		if sum > math.MaxUint32 {
			return Loc(math.MaxUint32)
		}
		return Loc(sum)
	}
	abs := uint32(-int64(delta))
	if abs > uint32(l) {
		return 0
	}
	return l - Loc(abs)
}

// Sub moves the location back by delta characters; see Add.
func (l Loc) Sub(delta int32) Loc {
	if delta < 0 {
		sum := uint64(l) + uint64(-int64(delta))
		if sum > math.MaxUint32 {
			return Loc(math.MaxUint32)
		}
		return Loc(sum)
	}
	if uint32(delta) > uint32(l) {
		return 0
	}
	return l - Loc(delta)
}
