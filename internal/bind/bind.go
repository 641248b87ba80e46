// Package bind implements the word/context binding cache spec.md §4.6
// describes, plus the sparse per-symbol table a wholesale bind walk uses
// so it need not re-scan a context's keylist for every word it touches.
package bind

import (
	"ion/internal/cell"
	"ion/internal/ctx"
	"ion/internal/series"
)

// Mode is the bind-mode mask spec.md §4.6/§6's Context API accepts:
// DEEP recurses into nested blocks/groups, FUNC also binds SET-WORD!s
// that would otherwise be left unbound (e.g. a function body's locals).
type Mode uint8

const (
	ModeDeep Mode = 1 << iota
	ModeFunc
)

// Table is the sparse per-symbol slot spec.md §4.6 describes: "stored in
// each interned symbol's node" in the source lineage; Ion keeps the same
// sparse-map shape but owns it per bind operation rather than embedding
// a slot in every canon entry, since Go gives us a map instead of a
// fixed symbol-node layout. The runtime asserts emptiness at safe points
// by simply discarding the Table, nothing retains it across a do_next
// boundary.
type Table struct {
	index map[series.SymbolID]int32
}

// NewTable creates an empty binding table.
func NewTable() *Table { return &Table{index: make(map[series.SymbolID]int32)} }

// Set records symbolID's target index for this walk.
func (t *Table) Set(symbolID series.SymbolID, index int32) { t.index[symbolID] = index }

// Get returns symbolID's recorded index, if any.
func (t *Table) Get(symbolID series.SymbolID) (int32, bool) {
	v, ok := t.index[symbolID]
	return v, ok
}

// Clear empties the table (spec.md §4.6: "zero them after").
func (t *Table) Clear() { t.index = make(map[series.SymbolID]int32) }

// Empty reports whether the table currently holds no entries, the
// condition spec.md §4.6 says the runtime asserts at safe points.
func (t *Table) Empty() bool { return len(t.index) == 0 }

var wordKinds = map[cell.Kind]bool{
	cell.KindWord:       true,
	cell.KindSetWord:    true,
	cell.KindGetWord:    true,
	cell.KindLitWord:    true,
	cell.KindRefinement: true,
}

// Deep walks block (and, under ModeDeep, every nested block/group)
// rebinding every word cell whose symbol appears in c's keylist to point
// at c, using table to cache each symbol's resolved index across the
// walk's lifetime so repeated occurrences of the same word cost one map
// lookup instead of a fresh linear keylist scan (spec.md §4.6 "Binding
// tables for wholesale binding operations").
func Deep(h *series.Heap, c ctx.Ref, block series.Ref, mode Mode, table *Table) {
	n := h.Len(block)
	for i := 0; i < n; i++ {
		cl := h.CellAt(block, i)
		if cl == nil {
			continue
		}
		k := cl.Kind()
		if wordKinds[k] {
			bindWord(h, c, cl, k, mode, table)
			continue
		}
		if mode&ModeDeep != 0 && (k == cell.KindBlock || k == cell.KindGroup) {
			nested := series.RefFromBits(cl.Series().HandleBits)
			Deep(h, c, nested, mode, table)
			continue
		}
		if k == cell.KindPath || k == cell.KindGetPath || k == cell.KindSetPath {
			// A path's own series is never walked as a block (its
			// trailing segments are field/index selectors picked by
			// spelling or position, not variable references), but its
			// leading segment is evaluated as an ordinary word
			// (internal/eval.evalPath resolves it through ctx.Resolve),
			// so it needs the same binding cache every other word cell
			// gets.
			nested := series.RefFromBits(cl.Series().HandleBits)
			if h.Len(nested) > 0 {
				head := h.CellAt(nested, 0)
				if head != nil && wordKinds[head.Kind()] {
					bindWord(h, c, head, head.Kind(), mode, table)
				}
			}
		}
	}
}

// bindWord resolves cl's symbol against c (extending c under ModeFunc for
// an unbound set-word) and stamps the binding cache, the per-cell step
// Deep performs for every word-kind cell it walks.
func bindWord(h *series.Heap, c ctx.Ref, cl *cell.Cell, k cell.Kind, mode Mode, table *Table) {
	symbolID := series.SymbolID(cl.SymbolID())
	idx, ok := table.Get(symbolID)
	if !ok {
		found, has := ctx.Find(h, c, symbolID)
		switch {
		case has:
			idx = int32(found)
		case mode&ModeFunc != 0 && k == cell.KindSetWord:
			// ModeFunc additionally binds a set-word not yet a member of
			// c, the function-body-local case, where the frame context
			// grows to hold it (spec.md §4.6's BIND-mode "FUNC").
			newIdx, err := ctx.Extend(h, c, symbolID)
			if err != nil {
				return
			}
			idx = int32(newIdx)
		default:
			return // not a member of c; leave unbound for an outer bind to try
		}
		table.Set(symbolID, idx)
	}
	cl.SetBindingCache(c.Varlist.Bits(), idx)
}
