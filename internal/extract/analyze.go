package extract

import (
	"go.uber.org/zap"

	"github.com/MuntasirSZN/rustowl/internal/facts"
	"github.com/MuntasirSZN/rustowl/internal/mir"
	"github.com/MuntasirSZN/rustowl/internal/rangeset"
	"github.com/MuntasirSZN/rustowl/internal/source"
)

// Sets holds every extracted range set of one body.
type Sets struct {
	Live     RangeMap
	DropLive RangeMap
	Shared   RangeMap
	Mutable  RangeMap
	MustLive RangeMap
}

// Extract runs every extractor over one body.
func Extract(body *facts.Body, blocks []mir.Block, log *zap.Logger) Sets {
	if log == nil {
		log = zap.NewNop()
	}
	borrows := facts.NewBorrowMap(body.Borrows)
	if n := borrows.Len(); n != len(body.Borrows) {
		log.Debug("repeated loans ignored", zap.Int("loans", n), zap.Int("borrows", len(body.Borrows)))
	}
	shared, mutable := BorrowLive(&body.Facts, body.Locations, borrows, blocks)
	return Sets{
		Live:     AccurateLive(&body.Facts, body.Locations, blocks, log),
		DropLive: DropLive(&body.Facts, body.Locations, blocks, log),
		Shared:   shared,
		Mutable:  mutable,
		MustLive: MustLive(&body.Facts, body.Locations, borrows, blocks),
	}
}

// Analyze lowers body and attaches the extracted range sets to every
// declaration. Borrow rvalues whose borrowed local must stay valid past its
// own liveness get Outlive set to the first such range.
func Analyze(body *facts.Body, file *source.File, log *zap.Logger) mir.Func {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.Uint32("fn_id", body.FnID))

	lowered := body.Lower(file)
	sets := Extract(body, lowered.Blocks, log)

	fn := mir.NewFunc(body.FnID, 0, len(lowered.Decls))
	fn.Blocks = lowered.Blocks
	for _, d := range lowered.Decls {
		id := d.Local.ID
		d.Lives = orEmpty(sets.Live[id])
		d.DropRange = orEmpty(sets.DropLive[id])
		d.SharedBorrow = orEmpty(sets.Shared[id])
		d.MutableBorrow = orEmpty(sets.Mutable[id])
		d.MustLiveAt = orEmpty(sets.MustLive[id])
		fn.Decls = append(fn.Decls, d)
	}

	mir.Walk(&fn, mir.Visitor{
		Rval: func(_ *mir.Statement, rv *mir.Rval) {
			if rv.Kind != mir.RvalBorrow {
				return
			}
			id := rv.Target.ID
			over := rangeset.Exclude(sets.MustLive[id], sets.Live[id])
			if len(over) == 0 {
				return
			}
			r := over[0]
			rv.Outlive = &r
		},
	})
	return fn
}

// BorrowConflicts returns the ranges where d is shared- and mutably-borrowed
// at the same time. Both inputs are already normalized, so every pairwise
// intersection crosses the two sets.
func BorrowConflicts(d *mir.Decl) []source.Range {
	if d == nil {
		return nil
	}
	all := make([]source.Range, 0, len(d.SharedBorrow)+len(d.MutableBorrow))
	all = append(all, d.SharedBorrow...)
	all = append(all, d.MutableBorrow...)
	return rangeset.CommonRanges(all)
}

func orEmpty(rs []source.Range) []source.Range {
	if rs == nil {
		return []source.Range{}
	}
	return rs
}
