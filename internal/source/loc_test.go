package source

import (
	"math"
	"strings"
	"testing"
)

func TestNewLocSkipsCarriageReturns(t *testing.T) {
	withCR := NewLoc("hello\r\n world", 8, 0)
	withoutCR := NewLoc("hello\n world", 7, 0)
	if withCR != withoutCR {
		t.Fatalf("CRLF loc = %d, LF loc = %d", withCR, withoutCR)
	}
}

func TestNewLocUnicode(t *testing.T) {
	text := "a🦀b" // 'a' = 1 byte, crab = 4 bytes
	cases := []struct {
		bytePos uint32
		want    Loc
	}{
		{0, 0},
		{1, 1},
		{3, 1}, // inside the crab
		{5, 2},
		{6, 3},
		{100, 3},
	}
	for _, tc := range cases {
		if got := NewLoc(text, tc.bytePos, 0); got != tc.want {
			t.Errorf("NewLoc(%d) = %d, want %d", tc.bytePos, got, tc.want)
		}
	}
}

func TestNewLocOffsetSaturates(t *testing.T) {
	if got := NewLoc("abcdef", 3, 10); got != 0 {
		t.Fatalf("NewLoc with offset past pos = %d, want 0", got)
	}
	if got := NewLoc("abcdef", 13, 10); got != 3 {
		t.Fatalf("NewLoc(13, 10) = %d, want 3", got)
	}
}

func TestLocArithmeticSaturates(t *testing.T) {
	if got := Loc(5).Add(3); got != 8 {
		t.Errorf("5+3 = %d", got)
	}
	if got := Loc(0).Add(-10); got != 0 {
		t.Errorf("0-10 = %d, want 0", got)
	}
	if got := Loc(math.MaxUint32 - 1).Add(10); got != math.MaxUint32 {
		t.Errorf("max overflow = %d", got)
	}
	if got := Loc(10).Sub(3); got != 7 {
		t.Errorf("10-3 = %d", got)
	}
	if got := Loc(10).Sub(-2); got != 12 {
		t.Errorf("10-(-2) = %d", got)
	}
	if got := Loc(0).Sub(1); got != 0 {
		t.Errorf("0-1 = %d", got)
	}
	if got := Loc(math.MaxUint32).Sub(-1); got != math.MaxUint32 {
		t.Errorf("max+1 = %d", got)
	}
	if got := Loc(1).Sub(math.MinInt32); got != Loc(1)+Loc(1<<31) {
		t.Errorf("1-minint = %d", got)
	}
}

func TestNewRangeRejectsEmpty(t *testing.T) {
	if _, ok := NewRange(5, 5); ok {
		t.Error("zero-width range accepted")
	}
	if _, ok := NewRange(10, 5); ok {
		t.Error("backwards range accepted")
	}
	r, ok := NewRange(5, 10)
	if !ok || r.Size() != 5 || r.From != 5 || r.Until != 10 {
		t.Fatalf("NewRange(5, 10) = %v, %v", r, ok)
	}
	wide, ok := NewRange(0, math.MaxUint32)
	if !ok || wide.Size() != math.MaxUint32 {
		t.Fatalf("max range = %v, %v", wide, ok)
	}
}

func TestIndexToLineCol(t *testing.T) {
	cases := []struct {
		text string
		idx  Loc
		want LineCol
	}{
		{"abc", 0, LineCol{0, 0}},
		{"abc", 3, LineCol{0, 3}},
		{"ab\ncd\nef", 2, LineCol{0, 2}},
		{"ab\ncd\nef", 3, LineCol{1, 0}},
		{"ab\ncd\nef", 7, LineCol{2, 1}},
		{"ab\ncd\nef", 8, LineCol{2, 2}},
		{"a\r\nb\r\nc", 1, LineCol{0, 1}},
		{"a\r\nb\r\nc", 2, LineCol{1, 0}},
		{"a\r\nb\r\nc", 4, LineCol{2, 0}},
	}
	for _, tc := range cases {
		if got := IndexToLineCol(tc.text, tc.idx); got != tc.want {
			t.Errorf("IndexToLineCol(%q, %d) = %+v, want %+v", tc.text, tc.idx, got, tc.want)
		}
	}
}

func TestLineColToIndex(t *testing.T) {
	cases := []struct {
		text string
		pos  LineCol
		want Loc
	}{
		{"hello\nworld\ntest", LineCol{0, 0}, 0},
		{"hello\nworld\ntest", LineCol{1, 0}, 6},
		{"hello\nworld\ntest", LineCol{2, 0}, 12},
		{"ab\ncd", LineCol{0, 9}, 2},  // clamps to newline
		{"ab\ncd", LineCol{7, 0}, 5},  // past the end
		{"a\r\nb\r\nc", LineCol{1, 1}, 3},
	}
	for _, tc := range cases {
		if got := LineColToIndex(tc.text, tc.pos); got != tc.want {
			t.Errorf("LineColToIndex(%q, %+v) = %d, want %d", tc.text, tc.pos, got, tc.want)
		}
	}
}

func TestLineColRoundTripLFAndCRLF(t *testing.T) {
	lf := "fn main() {\n    let s = \"🦀\";\n    drop(s);\n}\n"
	crlf := strings.ReplaceAll(lf, "\n", "\r\n")
	total := Loc(countChars(lf))
	for i := Loc(0); i <= total; i++ {
		posLF := IndexToLineCol(lf, i)
		posCRLF := IndexToLineCol(crlf, i)
		if posLF != posCRLF {
			t.Fatalf("idx %d: LF %+v != CRLF %+v", i, posLF, posCRLF)
		}
		if back := LineColToIndex(lf, posLF); back != i {
			t.Fatalf("LF round trip %d -> %+v -> %d", i, posLF, back)
		}
		if back := LineColToIndex(crlf, posCRLF); back != i {
			t.Fatalf("CRLF round trip %d -> %+v -> %d", i, posCRLF, back)
		}
	}
}
