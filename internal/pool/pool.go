// Package pool implements the fixed-size node pool allocator described in
// spec.md §4.1. Every series node handed to the rest of the runtime comes
// from here; nothing in the runtime keeps a bare Go pointer to a node
// across a safe point. Instead, callers hold a Handle, an (index,
// generation) pair, the same shape as a slot-cache handle, so a
// use-after-free, or a stale reference from before a GC sweep reused the
// slot, fails a generation check instead of silently reading freed memory.
package pool

import "github.com/dustin/go-humanize"

// Slot is the contract a pooled element must satisfy so the pool can
// thread its freelist through the element itself, exactly as spec.md §4.1
// describes: "a singly-linked freelist threaded through the node's first
// word." NextFree/SetNextFree store a 1-based index (0 meaning "end of
// list"), matching the convention Pool itself uses for freeHead.
type Slot interface {
	// Reset zeroes the element down to its free-state representation.
	// After Reset, IsFree must report true.
	Reset()
	// IsFree reports whether the element's width/kind marks it free.
	IsFree() bool
	// NextFree reads the freelist-next link stored in the element's first
	// word (only meaningful while IsFree is true). 0 means end of list.
	NextFree() uint32
	// SetNextFree writes the freelist-next link into the element's first
	// word.
	SetNextFree(nextPlusOne uint32)
}

// Handle addresses one element in a Pool. The zero Handle never denotes a
// live allocation (generation 0 is never issued to a real allocation).
type Handle struct {
	index uint32
	gen   uint32
}

// Valid reports whether h could plausibly address a live element (it does
// not by itself prove the element is still live; call Pool.Get for that).
func (h Handle) Valid() bool { return h.gen != 0 }

// Index returns the raw slot index, for routines (like the GC sweep) that
// need to walk every slot in a pool regardless of handle validity.
func (h Handle) Index() uint32 { return h.index }

// Gen returns the handle's generation, for callers (internal/series.Ref)
// that need to serialize a handle into a cell's uint64 payload word.
func (h Handle) Gen() uint32 { return h.gen }

// Bits packs the handle into a single uint64: low 32 bits index, high 32
// bits generation.
func (h Handle) Bits() uint64 { return uint64(h.index) | uint64(h.gen)<<32 }

// FromBits reconstructs a Handle from the encoding Bits produces.
func FromBits(bits uint64) Handle {
	return Handle{index: uint32(bits), gen: uint32(bits >> 32)}
}

type entry[T Slot] struct {
	val T
	gen uint32
}

// Pool is a size-classed arena: one Pool per element type, O(1) alloc and
// free via a freelist threaded through T itself (spec.md §4.1). The GC
// sweep (internal/gc) walks slots by index via At/FreeAt to distinguish
// free vs. live nodes by T.IsFree, exactly as spec.md's pool contract
// requires.
type Pool[T Slot] struct {
	slots     []entry[T]
	freeHead  uint32 // 1-based index of the first free slot; 0 = empty
	freeCount int
	nextGen   uint32
	bytesLive int64
	elemSize  int64
}

// New creates an empty pool. elemSize is used only for diagnostics
// (pool-growth log lines); it plays no role in allocation correctness.
func New[T Slot](elemSize int64) *Pool[T] {
	return &Pool[T]{nextGen: 1, elemSize: elemSize}
}

// Alloc returns a handle to a zeroed element, drawing from the freelist
// before growing the backing slice.
func (p *Pool[T]) Alloc() (Handle, *T) {
	if p.freeHead != 0 {
		idx := p.freeHead - 1
		e := &p.slots[idx]
		p.freeHead = e.val.NextFree()
		p.freeCount--

		e.val.Reset()
		e.gen = p.nextGen
		p.nextGen++
		p.bytesLive += p.elemSize
		return Handle{index: idx, gen: e.gen}, &e.val
	}

	idx := uint32(len(p.slots))
	var zero T
	zero.Reset()
	p.slots = append(p.slots, entry[T]{val: zero, gen: p.nextGen})
	p.bytesLive += p.elemSize
	h := Handle{index: idx, gen: p.nextGen}
	p.nextGen++
	return h, &p.slots[idx].val
}

// Get resolves a handle to its live element, or ok=false if the handle is
// stale (freed, or from a different generation now occupying the slot).
func (p *Pool[T]) Get(h Handle) (*T, bool) {
	if h.index >= uint32(len(p.slots)) {
		return nil, false
	}
	e := &p.slots[h.index]
	if e.gen != h.gen || e.val.IsFree() {
		return nil, false
	}
	return &e.val, true
}

// Free returns an element to the pool. Freeing an already-free or
// out-of-range handle is a no-op, spec.md permits free_series only on
// manual series, so the caller (internal/series) is responsible for not
// double-freeing; Free itself stays defensive so that responsibility
// doesn't turn into freelist corruption if it's ever violated.
func (p *Pool[T]) Free(h Handle) {
	if h.index >= uint32(len(p.slots)) {
		return
	}
	e := &p.slots[h.index]
	if e.gen != h.gen || e.val.IsFree() {
		return
	}
	e.val.Reset()
	e.val.SetNextFree(p.freeHead)
	p.freeHead = h.index + 1
	p.freeCount++
	p.bytesLive -= p.elemSize
}

// Len returns the number of slots ever grown into, live or free, the
// range the GC sweep must walk.
func (p *Pool[T]) Len() int { return len(p.slots) }

// At returns the element at a raw slot index regardless of liveness, for
// the GC sweep (which must inspect every slot to find unmarked live ones)
// and for enumeration. ok is false only for an out-of-range index.
func (p *Pool[T]) At(idx uint32) (elem *T, gen uint32, ok bool) {
	if idx >= uint32(len(p.slots)) {
		return nil, 0, false
	}
	e := &p.slots[idx]
	return &e.val, e.gen, true
}

// FreeAt frees by raw slot index with the generation the sweep observed,
// used by the GC sweep phase which walks by index rather than by Handle.
func (p *Pool[T]) FreeAt(idx uint32, gen uint32) {
	p.Free(Handle{index: idx, gen: gen})
}

// Stats summarizes pool occupancy for diagnostics.
type Stats struct {
	Slots     int
	Free      int
	Live      int
	BytesLive int64
}

func (p *Pool[T]) Stats() Stats {
	return Stats{
		Slots:     len(p.slots),
		Free:      p.freeCount,
		Live:      len(p.slots) - p.freeCount,
		BytesLive: p.bytesLive,
	}
}

// String renders a human-readable occupancy line, e.g. for a recycle-cycle
// log ("4.1 kB live across 128 slots, 32 free").
func (s Stats) String() string {
	return humanize.Bytes(uint64(s.BytesLive)) + " live across " +
		humanize.Comma(int64(s.Live)) + " slots, " +
		humanize.Comma(int64(s.Free)) + " free"
}
