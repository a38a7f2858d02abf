// Package rangeset implements the interval algebra used by range extraction.
//
// Every function works on half-open source.Range values. Two ranges that only
// touch (a.Until == b.From) are mergeable but do not intersect; normalization
// therefore collapses adjacent ranges while intersection ignores them.
//
// Inputs are never mutated; every result is a fresh slice.
package rangeset

import (
	"slices"

	"github.com/MuntasirSZN/rustowl/internal/source"
)

// IsSuperRange reports whether r1 strictly contains r2: both bounds enclose
// r2 and at least one of them is strict. Equal ranges are not super ranges.
func IsSuperRange(r1, r2 source.Range) bool {
	return (r1.From < r2.From && r2.Until <= r1.Until) ||
		(r1.From <= r2.From && r2.Until < r1.Until)
}

// CommonRange returns the intersection of r1 and r2 when it has positive width.
func CommonRange(r1, r2 source.Range) (source.Range, bool) {
	if r2.From < r1.From {
		r1, r2 = r2, r1
	}
	if r1.Until <= r2.From {
		return source.Range{}, false
	}
	return source.NewRange(r2.From, min(r1.Until, r2.Until))
}

// CommonRanges returns every pairwise intersection within ranges, normalized.
func CommonRanges(ranges []source.Range) []source.Range {
	var common []source.Range
	for i := range ranges {
		for j := i + 1; j < len(ranges); j++ {
			if r, ok := CommonRange(ranges[i], ranges[j]); ok {
				common = append(common, r)
			}
		}
	}
	return Eliminated(common)
}

// MergeRanges returns the hull of r1 and r2 when they overlap or are adjacent.
func MergeRanges(r1, r2 source.Range) (source.Range, bool) {
	if r2.From < r1.From {
		r1, r2 = r2, r1
	}
	if r1.Until < r2.From {
		return source.Range{}, false
	}
	return source.Range{From: r1.From, Until: max(r1.Until, r2.Until)}, true
}

// Eliminated normalizes ranges into the minimal sorted list of pairwise
// disjoint, non-adjacent ranges covering the same characters.
func Eliminated(ranges []source.Range) []source.Range {
	if len(ranges) == 0 {
		return nil
	}
	sorted := slices.Clone(ranges)
	slices.SortFunc(sorted, compareRanges)

	out := make([]source.Range, 0, len(sorted))
	current := sorted[0]
	for _, r := range sorted[1:] {
		if r.From <= current.Until {
			current.Until = max(current.Until, r.Until)
			continue
		}
		out = append(out, current)
		current = r
	}
	return append(out, current)
}

// Exclude subtracts every range in excludes from every range in from. A range
// is split into at most two fragments per overlapping exclusion and disappears
// when fully covered. The result is normalized.
func Exclude(from, excludes []source.Range) []source.Range {
	work := slices.Clone(from)
	out := make([]source.Range, 0, len(work))
	for len(work) > 0 {
		r := work[len(work)-1]
		work = work[:len(work)-1]

		split := false
		for _, ex := range excludes {
			common, ok := CommonRange(r, ex)
			if !ok {
				continue
			}
			if left, ok := source.NewRange(r.From, common.From); ok {
				work = append(work, left)
			}
			if right, ok := source.NewRange(common.Until, r.Until); ok {
				work = append(work, right)
			}
			split = true
			break
		}
		if !split {
			out = append(out, r)
		}
	}
	return Eliminated(out)
}

func compareRanges(a, b source.Range) int {
	switch {
	case a.From < b.From:
		return -1
	case a.From > b.From:
		return 1
	case a.Until < b.Until:
		return -1
	case a.Until > b.Until:
		return 1
	}
	return 0
}
