package source

import "strings"

// IndexToLineCol converts a character Loc into a 0-based line/column pair.
// '\r' is skipped; positions past the end resolve to the end of the text.
func IndexToLineCol(text string, idx Loc) LineCol {
	target := uint32(idx)
	var pos LineCol
	var logical uint32
	for _, ch := range text {
		if ch == '\r' {
			continue
		}
		if logical == target {
			return pos
		}
		if ch == '\n' {
			pos.Line++
			pos.Col = 0
		} else {
			pos.Col++
		}
		logical++
	}
	return pos
}

// LineColToIndex converts a 0-based line/column pair back into a Loc. A column
// past the end of its line clamps to the newline; a line past the end of the
// text resolves to the end.
func LineColToIndex(text string, pos LineCol) Loc {
	var consumed uint32
	rest := text
	for line := pos.Line; line > 0; line-- {
		nl := strings.IndexByte(rest, '\n')
		if nl < 0 {
			return Loc(consumed + countChars(rest))
		}
		consumed += countChars(rest[:nl+1])
		rest = rest[nl+1:]
	}

	var col uint32
	for _, ch := range rest {
		if ch == '\r' {
			continue
		}
		if col == pos.Col || ch == '\n' {
			return Loc(consumed)
		}
		consumed++
		col++
	}
	return Loc(consumed)
}

func countChars(s string) uint32 {
	var n uint32
	for _, ch := range s {
		if ch != '\r' {
			n++
		}
	}
	return n
}
