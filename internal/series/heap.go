package series

import (
	"fmt"

	"ion/internal/cell"
	"ion/internal/pool"
)

// MaxAllocElems bounds a single series allocation so MakeArray has a
// concrete out-of-memory case to report (spec.md §4.2) without this
// runtime actually exhausting host memory during tests.
const MaxAllocElems = 64 << 20

// ErrOutOfMemory is returned by MakeArray/ExpandTail/ExpandHead when a
// request would exceed MaxAllocElems.
var ErrOutOfMemory = fmt.Errorf("series: out of memory")

// ErrManagedFree is returned by FreeSeries when asked to free a managed
// series, spec.md §4.2: "Freeing a managed series is a programmer
// error."
var ErrManagedFree = fmt.Errorf("series: cannot free_series a managed series")

// ErrProtected is returned by any mutator touching a frozen/protected/
// held series (spec.md §7 "Protected state").
var ErrProtected = fmt.Errorf("series: locked-series (frozen, protected, or held)")

// Heap owns the node pool plus the resource-tracking state spec.md §3.4
// and §4.3 describe as roots: the manual-series list and the two guard
// stacks (series guards, value guards). One Heap corresponds to one
// evaluator instance (spec.md §9 "package as an evaluator-instance
// handle; avoid file-scope mutables").
type Heap struct {
	nodes *pool.Pool[Node]

	manualList  []Ref
	manualIndex map[uint64]int

	seriesGuards []Ref
	valueGuards  []*cell.Cell
}

// NewHeap creates an empty heap.
func NewHeap() *Heap {
	return &Heap{
		nodes:       pool.New[Node](0),
		manualIndex: make(map[uint64]int),
	}
}

// GetNode resolves a Ref to its live node.
func (h *Heap) GetNode(r Ref) (*Node, bool) {
	return h.nodes.Get(r.h)
}

func (h *Heap) mustNode(r Ref) *Node {
	n, ok := h.GetNode(r)
	if !ok {
		panic("series: use of freed or invalid Ref")
	}
	return n
}

// --- lifecycle: manual / managed / freed (spec.md §3.4) -------------

func (h *Heap) alloc(width uint8, fl Flags) Ref {
	hd, n := h.nodes.Alloc()
	n.width = width
	n.flags = fl
	ref := Ref{h: hd}
	h.manualIndex[ref.Bits()] = len(h.manualList)
	h.manualList = append(h.manualList, ref)
	return ref
}

// Manage sets the managed bit (spec.md §4.2: "Shallow, does not recurse
// into contained references"). It also removes the series from the
// manual list, since a managed series is no longer the trap snapshot's
// responsibility, it becomes the GC's.
func (h *Heap) Manage(r Ref) {
	n := h.mustNode(r)
	if n.flags&FlagManaged != 0 {
		return
	}
	n.flags |= FlagManaged
	if idx, ok := h.manualIndex[r.Bits()]; ok {
		h.manualList[idx] = Ref{}
		delete(h.manualIndex, r.Bits())
	}
}

// IsManaged reports a series' GC-ownership state.
func (h *Heap) IsManaged(r Ref) bool {
	n, ok := h.GetNode(r)
	return ok && n.flags&FlagManaged != 0
}

// FreeSeries releases a manual series' storage back to the pool. Freeing
// a managed series is rejected (spec.md §4.2).
func (h *Heap) FreeSeries(r Ref) error {
	n, ok := h.GetNode(r)
	if !ok {
		return nil // already freed; idempotent, mirrors pool.Free
	}
	if n.flags&FlagManaged != 0 {
		return ErrManagedFree
	}
	if idx, ok := h.manualIndex[r.Bits()]; ok {
		h.manualList[idx] = Ref{}
		delete(h.manualIndex, r.Bits())
	}
	h.nodes.Free(r.h)
	return nil
}

// --- manual-series-list / guard-stack snapshot & restore, for trap --

// ManualLen is the current manual-list length, used by trap.Snapshot.
func (h *Heap) ManualLen() int { return len(h.manualList) }

// ReleaseManualSince frees every still-manual series created at or after
// index `since` (spec.md §4.5 FAIL step 1), in reverse creation order.
func (h *Heap) ReleaseManualSince(since int) {
	if since > len(h.manualList) {
		since = len(h.manualList)
	}
	for i := len(h.manualList) - 1; i >= since; i-- {
		r := h.manualList[i]
		if !r.IsZero() {
			if _, ok := h.GetNode(r); ok {
				h.nodes.Free(r.h)
			}
		}
		delete(h.manualIndex, r.Bits())
	}
	h.manualList = h.manualList[:since]
}

// SeriesGuardLen / ValueGuardLen expose guard-stack depth for trap
// snapshots.
func (h *Heap) SeriesGuardLen() int { return len(h.seriesGuards) }
func (h *Heap) ValueGuardLen() int  { return len(h.valueGuards) }

// GuardPushSeries / GuardPopSeries implement the LIFO series-guard stack
// (spec.md §4.2, §8 "Guard correctness"). GuardPopSeries returns false if
// the popped element isn't the one on top, callers (and debug builds in
// the source system) treat that as an assertion failure.
func (h *Heap) GuardPushSeries(r Ref) {
	h.seriesGuards = append(h.seriesGuards, r)
}

func (h *Heap) GuardPopSeries(r Ref) bool {
	n := len(h.seriesGuards)
	if n == 0 || h.seriesGuards[n-1] != r {
		return false
	}
	h.seriesGuards = h.seriesGuards[:n-1]
	return true
}

func (h *Heap) GuardPushValue(c *cell.Cell) {
	h.valueGuards = append(h.valueGuards, c)
}

func (h *Heap) GuardPopValue(c *cell.Cell) bool {
	n := len(h.valueGuards)
	if n == 0 || h.valueGuards[n-1] != c {
		return false
	}
	h.valueGuards = h.valueGuards[:n-1]
	return true
}

// TruncateGuardsTo force-unwinds both guard stacks to the given depths,
// used by trap.Fail (spec.md §4.5 step 2) rather than the strict
// LIFO-assert pop used in the non-failing path.
func (h *Heap) TruncateGuardsTo(seriesDepth, valueDepth int) {
	if seriesDepth < len(h.seriesGuards) {
		h.seriesGuards = h.seriesGuards[:seriesDepth]
	}
	if valueDepth < len(h.valueGuards) {
		h.valueGuards = h.valueGuards[:valueDepth]
	}
}

// --- roots for internal/gc -------------------------------------------

// SeriesGuards / ValueGuards / ManualRefs expose the root sets
// internal/gc's mark phase walks (spec.md §4.3).
func (h *Heap) SeriesGuards() []Ref { return h.seriesGuards }
func (h *Heap) ValueGuards() []*cell.Cell { return h.valueGuards }
func (h *Heap) ManualRefs() []Ref {
	out := make([]Ref, 0, len(h.manualList))
	for _, r := range h.manualList {
		if !r.IsZero() {
			out = append(out, r)
		}
	}
	return out
}

// PoolLen / NodeAt / FreeAt expose the raw pool for internal/gc's sweep
// phase, which must walk every slot (live or free) to apply mark-bit
// sweeping (spec.md §4.3).
func (h *Heap) PoolLen() int { return h.nodes.Len() }

func (h *Heap) NodeAt(idx uint32) (n *Node, ref Ref, ok bool) {
	e, gen, ok := h.nodes.At(idx)
	if !ok {
		return nil, Ref{}, false
	}
	return e, Ref{h: pool.FromBits(uint64(idx) | uint64(gen)<<32)}, true
}

func (h *Heap) FreeAt(idx uint32, gen uint32) {
	r := Ref{h: pool.FromBits(uint64(idx) | uint64(gen)<<32)}
	if idx2, ok := h.manualIndex[r.Bits()]; ok {
		h.manualList[idx2] = Ref{}
		delete(h.manualIndex, r.Bits())
	}
	h.nodes.FreeAt(idx, gen)
}

// Stats surfaces pool occupancy for recycle diagnostics.
func (h *Heap) Stats() pool.Stats { return h.nodes.Stats() }
