package series

import "ion/internal/pool"

// Ref addresses one series node. It wraps pool.Handle rather than a bare
// Go pointer so that a cell can carry it as two plain uint64 words
// (internal/cell.SeriesRef) without ever aliasing Go-GC'd memory directly
//, the whole point of routing every series through internal/pool.
type Ref struct {
	h pool.Handle
}

// Bits packs Ref into the single uint64 a cell payload word stores.
func (r Ref) Bits() uint64 { return r.h.Bits() }

// RefFromBits reconstructs a Ref from a cell payload word.
func RefFromBits(bits uint64) Ref { return Ref{h: pool.FromBits(bits)} }

// IsZero reports the "no series" ref, used as a BLANK!/unset payload.
func (r Ref) IsZero() bool { return r.h == pool.Handle{} }

// Index exposes the raw slot index, for the GC sweep which walks the
// pool by index.
func (r Ref) Index() uint32 { return r.h.Index() }

// Gen exposes the handle generation, so the GC sweep (which walks by raw
// index via Heap.NodeAt) can hand the matching generation back to
// Heap.FreeAt.
func (r Ref) Gen() uint32 { return r.h.Gen() }
