// Package ctx implements the context representation spec.md §3.3
// describes for objects, frames, errors, ports and modules: a pair of
// arrays, the varlist and (reachable via the varlist's link word) the
// keylist, both of length N+1 with a canon cell at index 0 and 1-based
// external indexing for the remaining N slots.
package ctx

import (
	"fmt"

	"ion/internal/cell"
	"ion/internal/series"
)

// ErrInaccessible is returned by any operation against a context whose
// owning frame has exited (spec.md §3.4: "any word bound to them yields
// an error on lookup rather than crashing").
var ErrInaccessible = fmt.Errorf("ctx: context is inaccessible")

// ErrNoSuchWord is returned when a word's spelling does not name any
// slot in a context's keylist.
var ErrNoSuchWord = fmt.Errorf("ctx: word is not a member of this context")

// ErrIndexRange is returned by Get/Set for an out-of-range 1-based index.
var ErrIndexRange = fmt.Errorf("ctx: index out of range")

// Ref addresses one context by its varlist series.
type Ref struct {
	Varlist series.Ref
}

// New builds a context sharing an existing keylist (spec.md §3.2 "shared
// keylist", multiple instances of the same object/frame shape may share
// one keylist array until one of them needs to add a key, at which point
// Extend clones it). selfKind is the Kind stamped into index 0's
// self-referencing cell (object!, frame!, error!, port!, module!).
func New(h *series.Heap, keylist series.Ref, selfKind cell.Kind) (Ref, error) {
	n := h.Len(keylist)
	if n < 1 {
		return Ref{}, fmt.Errorf("ctx: keylist must have at least the canon slot")
	}
	varlist, err := h.MakeArray(n, series.RoleVarlist)
	if err != nil {
		return Ref{}, err
	}
	if err := h.ExpandTail(varlist, n); err != nil {
		return Ref{}, err
	}
	vn, _ := h.GetNode(varlist)
	vn.SetLink(keylist.Bits())

	h.CellAt(varlist, 0).SetSeries(selfKind, cell.SeriesRef{HandleBits: varlist.Bits()})
	return Ref{Varlist: varlist}, nil
}

// NewKeylist allocates a fresh, unshared keylist with capacity key slots
// plus the canon slot at index 0.
func NewKeylist(h *series.Heap, capacity int) (series.Ref, error) {
	kl, err := h.MakeArray(capacity+1, series.RoleKeylist)
	if err != nil {
		return series.Ref{}, err
	}
	if err := h.ExpandTail(kl, 1); err != nil { // canon slot
		return series.Ref{}, err
	}
	return kl, nil
}

// Keylist resolves a context's keylist via its varlist's link word.
func Keylist(h *series.Heap, c Ref) series.Ref {
	n, ok := h.GetNode(c.Varlist)
	if !ok {
		return series.Ref{}
	}
	return series.RefFromBits(n.Link())
}

// Len returns the visible slot count N (varlist length minus the canon
// slot).
func Len(h *series.Heap, c Ref) int {
	n := h.Len(c.Varlist)
	if n == 0 {
		return 0
	}
	return n - 1
}

// IsAccessible reports whether c's owning frame (if any) is still live.
func IsAccessible(h *series.Heap, c Ref) bool {
	n, ok := h.GetNode(c.Varlist)
	return ok && !n.IsInaccessible()
}

// MarkInaccessible transitions a stack-allocated context after its frame
// exits (spec.md §3.4).
func MarkInaccessible(h *series.Heap, c Ref) {
	if n, ok := h.GetNode(c.Varlist); ok {
		n.MarkInaccessible()
	}
}

// MarkOnStack flags a context as chunk-stack-resident (spec.md §3.4); it
// becomes inaccessible, rather than collected, once its frame exits.
func MarkOnStack(h *series.Heap, c Ref) {
	if n, ok := h.GetNode(c.Varlist); ok {
		n.SetContextOnStack()
	}
}

// Get returns the variable cell at 1-based external index i.
func Get(h *series.Heap, c Ref, i int) (*cell.Cell, error) {
	if !IsAccessible(h, c) {
		return nil, ErrInaccessible
	}
	v := h.CellAt(c.Varlist, i)
	if v == nil {
		return nil, ErrIndexRange
	}
	return v, nil
}

// KeySymbol returns the interned symbol id stored at 1-based external
// index i of c's keylist, or 0 if out of range.
func KeySymbol(h *series.Heap, c Ref, i int) series.SymbolID {
	kc := h.CellAt(Keylist(h, c), i)
	if kc == nil {
		return 0
	}
	return series.SymbolID(kc.SymbolID())
}

// Find does a linear scan of c's keylist for symbolID, returning the
// 1-based external index and true on success. Keylists are short enough
// in practice (object field counts, function arities) that this matches
// the source lineage's own approach of a small linear scan before
// falling back to a hash lookup for very large objects, the hash path
// is not implemented here since spec.md's testable properties never
// exercise context sizes where it would matter.
func Find(h *series.Heap, c Ref, symbolID series.SymbolID) (int, bool) {
	kl := Keylist(h, c)
	n := h.Len(kl)
	for i := 1; i < n; i++ {
		if KeySymbol(h, c, i) == symbolID {
			return i, true
		}
	}
	return 0, false
}

// Extend appends a new key+slot pair to c, cloning the keylist first if
// it is currently shared (spec.md §3.2: "any mutator... must clone
// before writing"). Returns the new slot's 1-based external index.
func Extend(h *series.Heap, c Ref, symbolID series.SymbolID) (int, error) {
	kl := Keylist(h, c)
	kn, ok := h.GetNode(kl)
	if !ok {
		return 0, ErrInaccessible
	}
	if kn.IsSharedKeylist() {
		cloned, err := cloneKeylist(h, kl)
		if err != nil {
			return 0, err
		}
		kl = cloned
		vn, _ := h.GetNode(c.Varlist)
		vn.SetLink(kl.Bits())
	}
	keyCell := cell.Cell{}
	keyCell.SetWord(cell.KindWord, uint32(symbolID))
	if err := h.Append(kl, &keyCell); err != nil {
		return 0, err
	}
	blank := cell.Cell{}
	blank.Reset()
	if err := h.Append(c.Varlist, &blank); err != nil {
		return 0, err
	}
	return h.Len(c.Varlist) - 1, nil
}

func cloneKeylist(h *series.Heap, kl series.Ref) (series.Ref, error) {
	n := h.Len(kl)
	fresh, err := h.MakeArray(n, series.RoleKeylist)
	if err != nil {
		return series.Ref{}, err
	}
	if err := h.ExpandTail(fresh, n); err != nil {
		return series.Ref{}, err
	}
	for i := 0; i < n; i++ {
		h.CellAt(fresh, i).Assign(h.CellAt(kl, i))
	}
	return fresh, nil
}

// ShareKeylist marks kl as shared, so the next Extend against any
// context referencing it clones rather than mutating in place. New does
// not call it: a caller that builds a second context over an existing
// keylist marks the keylist shared itself.
func ShareKeylist(h *series.Heap, kl series.Ref) {
	if n, ok := h.GetNode(kl); ok {
		n.SetSharedKeylist(true)
	}
}

// Resolve follows a word cell's binding cache to its variable, re-
// binding by spelling on a stale cache (spec.md §4.4 item 1: "On
// mismatch (stale cache after keylist mutation) the word re-binds by
// spelling").
func Resolve(h *series.Heap, word *cell.Cell) (*cell.Cell, error) {
	bits, index, bound := word.BindingCache()
	if !bound {
		return nil, ErrNoSuchWord
	}
	c := Ref{Varlist: series.RefFromBits(bits)}
	if !IsAccessible(h, c) {
		return nil, ErrInaccessible
	}
	if KeySymbol(h, c, int(index)) == series.SymbolID(word.SymbolID()) {
		v := h.CellAt(c.Varlist, int(index))
		if v != nil {
			return v, nil
		}
	}
	newIndex, ok := Find(h, c, series.SymbolID(word.SymbolID()))
	if !ok {
		return nil, ErrNoSuchWord
	}
	word.SetBindingCache(bits, int32(newIndex))
	return h.CellAt(c.Varlist, newIndex), nil
}

// Bind sets word's binding cache to point at symbolID's slot in c,
// failing if c has no such member (spec.md §4.6's "Context API... bind").
func Bind(h *series.Heap, c Ref, word *cell.Cell) error {
	idx, ok := Find(h, c, series.SymbolID(word.SymbolID()))
	if !ok {
		return ErrNoSuchWord
	}
	word.SetBindingCache(c.Varlist.Bits(), int32(idx))
	return nil
}
