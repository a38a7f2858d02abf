package extract

import (
	"slices"

	"github.com/MuntasirSZN/rustowl/internal/facts"
	"github.com/MuntasirSZN/rustowl/internal/mir"
)

type locSet map[uint32]struct{}

func (s locSet) addAll(o locSet) {
	for k := range o {
		s[k] = struct{}{}
	}
}

// MustLive computes, per borrowed local, the ranges over which its data must
// stay valid.
//
// A region's own live locations come from the origin-live-on-entry facts. A
// sup region must cover every location of each region reachable from it
// through the subset relation, taken over all locations. Whenever a region
// contains a loan, the loan's borrowed local inherits that region's required
// locations.
func MustLive(f *facts.Facts, table facts.LocationTable, borrows *facts.BorrowMap, blocks []mir.Block) RangeMap {
	regionLocs := make(map[uint32]locSet)
	for _, at := range f.OriginLiveOnEntry {
		for _, region := range at.Origins {
			s := regionLocs[region]
			if s == nil {
				s = make(locSet)
				regionLocs[region] = s
			}
			s[at.Location] = struct{}{}
		}
	}

	edges := make(map[uint32]map[uint32]struct{})
	for _, at := range f.Subset {
		for _, e := range at.Edges {
			subs := edges[e.Sup]
			if subs == nil {
				subs = make(map[uint32]struct{})
				edges[e.Sup] = subs
			}
			for _, sub := range e.Subs {
				subs[sub] = struct{}{}
			}
		}
	}

	required := make(map[uint32]locSet, len(edges))
	for sup := range edges {
		locs := make(locSet)
		for _, region := range reachable(edges, sup) {
			locs.addAll(regionLocs[region])
		}
		if len(locs) > 0 {
			required[sup] = locs
		}
	}

	localLocs := make(map[uint32]locSet)
	for _, at := range f.OriginContainsLoanAt {
		for _, ol := range at.Origins {
			locs, ok := required[ol.Origin]
			if !ok {
				continue
			}
			for _, loan := range ol.Loans {
				b, ok := borrows.Get(loan)
				if !ok {
					continue
				}
				s := localLocs[b.Borrowed]
				if s == nil {
					s = make(locSet)
					localLocs[b.Borrowed] = s
				}
				s.addAll(locs)
			}
		}
	}

	out := make(RangeMap, len(localLocs))
	for local, locs := range localLocs {
		idx := make([]uint32, 0, len(locs))
		for l := range locs {
			idx = append(idx, l)
		}
		slices.Sort(idx)
		rich := make([]facts.RichLocation, 0, len(idx))
		for _, l := range idx {
			if r, ok := table.Lookup(l); ok {
				rich = append(rich, r)
			}
		}
		out[local] = RichLocationsToRanges(blocks, rich)
	}
	return out
}

// reachable returns every region reachable from start through one or more
// subset edges, excluding start itself. Cycles are tolerated.
func reachable(edges map[uint32]map[uint32]struct{}, start uint32) []uint32 {
	seen := map[uint32]bool{start: true}
	var out []uint32
	stack := []uint32{start}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for next := range edges[cur] {
			if seen[next] {
				continue
			}
			seen[next] = true
			out = append(out, next)
			stack = append(stack, next)
		}
	}
	return out
}
