// Package gc implements the stop-the-world mark-and-sweep collector
// described in spec.md §4.3: an explicit-worklist DFS mark phase over the
// series pool, rooted at the guard stacks, the manual-series list, the
// canon table, and whatever extra cells/refs a caller supplies (the
// evaluator's data stack and frame chain, global singletons).
package gc

import (
	"github.com/dustin/go-humanize"

	"ion/internal/cell"
	"ion/internal/series"
)

// Roots bundles the root sets internal/eval and internal/boot are
// responsible for supplying, the parts of spec.md §4.3's root list that
// live outside internal/series.Heap itself:
//
//   - ExtraCells: cells held outside any series; internal/eval supplies
//     the argument cells of every frame on its live frame chain.
//   - ExtraRefs: series kept alive directly; internal/eval supplies the
//     interned canon-symbol table's string series and the Lib context's
//     varlist.
type Roots struct {
	ExtraCells []*cell.Cell
	ExtraRefs  []series.Ref
}

// DefaultThreshold is the ballast budget (bytes allocated since the last
// recycle) that raises the internal recycle signal spec.md §4.3
// describes. It is deliberately small relative to a production VM's
// default so tests can observe a signal without allocating gigabytes.
const DefaultThreshold = 1 << 20

// GC owns the recycle-signal ballast counter and the GC-disable nesting
// count for one Heap. It does not own the heap itself, internal/eval
// constructs one GC alongside the Heap it collects.
type GC struct {
	heap      *series.Heap
	ballast   int64
	threshold int64
	disable   int
}

// New creates a collector over heap with the given ballast threshold; a
// threshold of 0 selects DefaultThreshold.
func New(heap *series.Heap, threshold int64) *GC {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &GC{heap: heap, threshold: threshold}
}

// NoteAlloc accumulates bytes toward the recycle threshold. Nothing in
// internal/series or internal/eval calls it, so the ballast grows only
// when a caller reports its allocations here. It never triggers a
// collection itself, per
// spec.md §4.3, the signal is only serviced "at evaluator safe points,
// not mid-allocation."
func (g *GC) NoteAlloc(bytes int64) { g.ballast += bytes }

// NeedsRecycle reports the internal recycle signal: ballast past
// threshold and collection not disabled.
func (g *GC) NeedsRecycle() bool {
	return g.disable == 0 && g.ballast >= g.threshold
}

// DisablePush / DisablePop implement spec.md §4.3's "will not run when
// disabled by user request," nestable so a native can disable collection
// across a sequence of calls without clobbering an outer disable.
func (g *GC) DisablePush()    { g.disable++ }
func (g *GC) DisablePop() {
	if g.disable > 0 {
		g.disable--
	}
}
func (g *GC) DisableCount() int { return g.disable }

// RestoreDisableCount forces the nesting count back to n, used by
// internal/trap's FAIL unwinding to restore the exact value a trap
// snapshot recorded (spec.md §8 "Trap balance").
func (g *GC) RestoreDisableCount(n int) {
	if n < 0 {
		n = 0
	}
	g.disable = n
}

// Stats summarizes one collection cycle for a recycle-cycle log line.
type Stats struct {
	Freed      int
	FreedBytes int64
	BallastWas int64
}

func (s Stats) String() string {
	return humanize.Comma(int64(s.Freed)) + " series freed, " +
		humanize.Bytes(uint64(s.FreedBytes)) + " reclaimed (ballast was " +
		humanize.Bytes(uint64(s.BallastWas)) + ")"
}

// Collect runs one full stop-the-world mark-and-sweep cycle (spec.md
// §4.3), ignoring DisableCount, callers check NeedsRecycle themselves;
// Collect always runs when asked, matching push_gc_disable only gating
// the *signal*, not a forced collection (e.g. a host's explicit recycle
// command).
func (g *GC) Collect(roots Roots) Stats {
	h := g.heap
	var work []series.Ref

	push := func(r series.Ref) {
		if r.IsZero() {
			return
		}
		n, ok := h.GetNode(r)
		if !ok || n.Marked() {
			return
		}
		n.SetMarked(true)
		work = append(work, r)
	}

	markCellValue(roots.ExtraCells, push)
	for _, r := range roots.ExtraRefs {
		push(r)
	}
	for _, r := range h.SeriesGuards() {
		push(r)
	}
	for _, r := range h.ManualRefs() {
		push(r) // manual series are an unconditional root (spec.md §4.3)
	}
	for _, c := range h.ValueGuards() {
		markCellValue([]*cell.Cell{c}, push)
	}

	for len(work) > 0 {
		r := work[len(work)-1]
		work = work[:len(work)-1]
		n, ok := h.GetNode(r)
		if !ok {
			continue
		}
		if n.IsArray() {
			cells := h.Cells(r)
			ptrs := make([]*cell.Cell, len(cells))
			for i := range cells {
				ptrs[i] = &cells[i]
			}
			markCellValue(ptrs, push)
		}
		if n.LinkIsRef() {
			push(series.RefFromBits(n.Link()))
		}
		if n.MiscIsRef() {
			push(series.RefFromBits(n.Misc()))
		}
	}

	stats := Stats{BallastWas: g.ballast}
	for i := 0; i < h.PoolLen(); i++ {
		n, ref, ok := h.NodeAt(uint32(i))
		if !ok || n.IsFree() {
			continue
		}
		if !n.IsManaged() {
			n.SetMarked(false)
			continue
		}
		if n.Marked() {
			n.SetMarked(false)
			continue
		}
		h.FreeAt(ref.Index(), ref.Gen())
		stats.Freed++
	}
	g.ballast = 0
	return stats
}

// markCellValue walks cells for the two kinds of outbound reference
// spec.md §4.3's mark phase names: "series in payload" (string, block,
// object, ...) and "binding in extra" (word kinds' cached context).
func markCellValue(cells []*cell.Cell, push func(series.Ref)) {
	for _, c := range cells {
		if c == nil {
			continue
		}
		switch c.Kind() {
		case cell.KindString, cell.KindBinary, cell.KindBlock, cell.KindGroup,
			cell.KindPath, cell.KindSetPath, cell.KindGetPath, cell.KindObject,
			cell.KindPort, cell.KindModule, cell.KindFrame, cell.KindMap:
			push(series.RefFromBits(c.Series().HandleBits))
		// KindFunction and KindError deliberately not handled here: their
		// payload is an opaque side-table id (internal/fn.Table,
		// internal/eval's error table via cell.SetFunctionID/SetErrorID),
		// not a series handle, neither is series-pool-tracked.
		case cell.KindWord, cell.KindSetWord, cell.KindGetWord, cell.KindLitWord,
			cell.KindRefinement:
			if bits, _, bound := c.BindingCache(); bound {
				push(series.RefFromBits(bits))
			}
		}
	}
}
