// Package extract turns per-location dataflow facts into per-local character
// ranges: accurate liveness, drop liveness, shared and mutable borrow
// liveness, and must-live ranges.
//
// Malformed coordinates never panic. A location index missing from the
// location table, or a block or statement with no code range, contributes
// nothing to the output.
package extract

import (
	"cmp"
	"slices"

	"go.uber.org/zap"

	"github.com/MuntasirSZN/rustowl/internal/facts"
	"github.com/MuntasirSZN/rustowl/internal/mir"
	"github.com/MuntasirSZN/rustowl/internal/rangeset"
	"github.com/MuntasirSZN/rustowl/internal/source"
)

// RangeMap maps a local id to its normalized ranges.
type RangeMap map[uint32][]source.Range

type stmtPos struct {
	block int
	stmt  int
}

type localLive struct {
	starts []stmtPos
	mids   []stmtPos
}

func sortPositions(ps []stmtPos) {
	slices.SortFunc(ps, func(a, b stmtPos) int {
		if c := cmp.Compare(a.block, b.block); c != 0 {
			return c
		}
		return cmp.Compare(a.stmt, b.stmt)
	})
}

// GetRange pairs the start and mid points at which each local appears. Both
// lists are sorted by (block, statement); the i-th start is paired with the
// i-th mid to form [start.From, mid.Until). When the lists differ in length the
// surplus is dropped and logged at debug level.
func GetRange(entries []facts.LocalsAt, table facts.LocationTable, blocks []mir.Block, log *zap.Logger) RangeMap {
	if log == nil {
		log = zap.NewNop()
	}
	lives := make(map[uint32]*localLive)
	for _, e := range entries {
		rich, ok := table.Lookup(e.Location)
		if !ok {
			continue
		}
		pos := stmtPos{block: rich.Block, stmt: rich.Statement}
		for _, local := range e.Locals {
			live := lives[local]
			if live == nil {
				live = &localLive{}
				lives[local] = live
			}
			switch rich.Point {
			case facts.PointStart:
				live.starts = append(live.starts, pos)
			case facts.PointMid:
				live.mids = append(live.mids, pos)
			}
		}
	}

	out := make(RangeMap, len(lives))
	for local, live := range lives {
		sortPositions(live.starts)
		sortPositions(live.mids)
		n := min(len(live.starts), len(live.mids))
		if n != len(live.starts) || n != len(live.mids) {
			log.Debug("start/mid count mismatch, truncating",
				zap.Uint32("local", local),
				zap.Int("starts", len(live.starts)),
				zap.Int("mids", len(live.mids)),
				zap.Int("pairs", n))
		}
		ranges := make([]source.Range, 0, n)
		for i := range n {
			s, ok := mir.LocationRange(blocks, live.starts[i].block, live.starts[i].stmt)
			if !ok {
				continue
			}
			m, ok := mir.LocationRange(blocks, live.mids[i].block, live.mids[i].stmt)
			if !ok {
				continue
			}
			if r, ok := source.NewRange(s.From, m.Until); ok {
				ranges = append(ranges, r)
			}
		}
		out[local] = rangeset.Eliminated(ranges)
	}
	return out
}

// AccurateLive applies GetRange to the live-on-entry facts.
func AccurateLive(f *facts.Facts, table facts.LocationTable, blocks []mir.Block, log *zap.Logger) RangeMap {
	return GetRange(f.VarLiveOnEntry, table, blocks, log)
}

// DropLive applies GetRange to the drop-live-on-entry facts.
func DropLive(f *facts.Facts, table facts.LocationTable, blocks []mir.Block, log *zap.Logger) RangeMap {
	return GetRange(f.VarDropLiveOnEntry, table, blocks, log)
}

// RichLocationsToRanges resolves every location to the code range of its
// statement (or terminator) and normalizes the result.
func RichLocationsToRanges(blocks []mir.Block, locs []facts.RichLocation) []source.Range {
	ranges := make([]source.Range, 0, len(locs))
	for _, loc := range locs {
		r, ok := mir.LocationRange(blocks, loc.Block, loc.Statement)
		if !ok {
			continue
		}
		ranges = append(ranges, r)
	}
	return rangeset.Eliminated(ranges)
}

// BorrowLive collects, per borrowed local, the locations at which one of its
// loans is live, separately for shared and mutable loans.
func BorrowLive(f *facts.Facts, table facts.LocationTable, borrows *facts.BorrowMap, blocks []mir.Block) (shared, mutable RangeMap) {
	sharedLocs := make(map[uint32][]facts.RichLocation)
	mutableLocs := make(map[uint32][]facts.RichLocation)
	for _, at := range f.LoanLiveAt {
		rich, ok := table.Lookup(at.Location)
		if !ok {
			continue
		}
		for _, loan := range at.Loans {
			b, ok := borrows.Get(loan)
			if !ok {
				continue
			}
			if b.Mutable {
				mutableLocs[b.Borrowed] = append(mutableLocs[b.Borrowed], rich)
			} else {
				sharedLocs[b.Borrowed] = append(sharedLocs[b.Borrowed], rich)
			}
		}
	}
	return toRangeMap(blocks, sharedLocs), toRangeMap(blocks, mutableLocs)
}

func toRangeMap(blocks []mir.Block, locs map[uint32][]facts.RichLocation) RangeMap {
	out := make(RangeMap, len(locs))
	for local, l := range locs {
		out[local] = RichLocationsToRanges(blocks, l)
	}
	return out
}
