package bind

import (
	"testing"

	"ion/internal/cell"
	"ion/internal/ctx"
	"ion/internal/series"
)

func buildBlockWithWord(t *testing.T, h *series.Heap, syms *series.Symbols, spelling string) series.Ref {
	t.Helper()
	blk, err := h.MakeArray(1, series.RoleGeneric)
	if err != nil {
		t.Fatalf("MakeArray: %v", err)
	}
	if err := h.ExpandTail(blk, 1); err != nil {
		t.Fatal(err)
	}
	h.CellAt(blk, 0).SetWord(cell.KindWord, uint32(syms.Intern(spelling)))
	return blk
}

func TestDeepBindsMemberWord(t *testing.T) {
	h := series.NewHeap()
	syms := series.NewSymbols(h)
	kl, _ := ctx.NewKeylist(h, 0)
	c, err := ctx.New(h, kl, cell.KindObject)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ctx.Extend(h, c, syms.Intern("x")); err != nil {
		t.Fatal(err)
	}

	blk := buildBlockWithWord(t, h, syms, "x")
	Deep(h, c, blk, 0, NewTable())

	word := h.CellAt(blk, 0)
	bits, idx, bound := word.BindingCache()
	if !bound || bits != c.Varlist.Bits() || idx != 1 {
		t.Fatalf("word not bound correctly: bits=%d idx=%d bound=%v", bits, idx, bound)
	}
}

func TestDeepLeavesNonMemberUnbound(t *testing.T) {
	h := series.NewHeap()
	syms := series.NewSymbols(h)
	kl, _ := ctx.NewKeylist(h, 0)
	c, _ := ctx.New(h, kl, cell.KindObject)

	blk := buildBlockWithWord(t, h, syms, "y")
	Deep(h, c, blk, 0, NewTable())

	word := h.CellAt(blk, 0)
	if _, _, bound := word.BindingCache(); bound {
		t.Fatalf("non-member word was bound")
	}
}

func TestModeFuncExtendsContextForSetWord(t *testing.T) {
	h := series.NewHeap()
	syms := series.NewSymbols(h)
	kl, _ := ctx.NewKeylist(h, 0)
	c, _ := ctx.New(h, kl, cell.KindObject)

	blk, _ := h.MakeArray(1, series.RoleGeneric)
	h.ExpandTail(blk, 1)
	h.CellAt(blk, 0).SetWord(cell.KindSetWord, uint32(syms.Intern("local")))

	Deep(h, c, blk, ModeFunc, NewTable())

	if ctx.Len(h, c) != 1 {
		t.Fatalf("ModeFunc did not extend context for a new set-word local")
	}
	word := h.CellAt(blk, 0)
	if _, _, bound := word.BindingCache(); !bound {
		t.Fatalf("set-word local was not bound after extension")
	}
}

func TestDeepRecursesIntoNestedBlocks(t *testing.T) {
	h := series.NewHeap()
	syms := series.NewSymbols(h)
	kl, _ := ctx.NewKeylist(h, 0)
	c, _ := ctx.New(h, kl, cell.KindObject)
	ctx.Extend(h, c, syms.Intern("x"))

	inner := buildBlockWithWord(t, h, syms, "x")
	outer, _ := h.MakeArray(1, series.RoleGeneric)
	h.ExpandTail(outer, 1)
	h.CellAt(outer, 0).SetSeries(cell.KindBlock, cell.SeriesRef{HandleBits: inner.Bits()})

	Deep(h, c, outer, ModeDeep, NewTable())

	word := h.CellAt(inner, 0)
	if _, _, bound := word.BindingCache(); !bound {
		t.Fatalf("nested word was not bound under ModeDeep")
	}
}

func TestDeepBindsPathHeadButNotTrailingSegments(t *testing.T) {
	h := series.NewHeap()
	syms := series.NewSymbols(h)
	kl, _ := ctx.NewKeylist(h, 0)
	c, _ := ctx.New(h, kl, cell.KindObject)
	ctx.Extend(h, c, syms.Intern("o"))

	path, _ := h.MakeArray(2, series.RoleGeneric)
	h.ExpandTail(path, 2)
	h.CellAt(path, 0).SetWord(cell.KindWord, uint32(syms.Intern("o")))
	h.CellAt(path, 1).SetWord(cell.KindWord, uint32(syms.Intern("x")))

	outer, _ := h.MakeArray(1, series.RoleGeneric)
	h.ExpandTail(outer, 1)
	h.CellAt(outer, 0).SetSeries(cell.KindPath, cell.SeriesRef{HandleBits: path.Bits()})

	Deep(h, c, outer, ModeDeep, NewTable())

	head := h.CellAt(path, 0)
	if bits, idx, bound := head.BindingCache(); !bound || bits != c.Varlist.Bits() || idx != 1 {
		t.Fatalf("path head not bound correctly: bits=%d idx=%d bound=%v", bits, idx, bound)
	}
	tail := h.CellAt(path, 1)
	if _, _, bound := tail.BindingCache(); bound {
		t.Fatalf("trailing path segment was bound, want it left as a bare selector")
	}
}

func TestTableClearEmpty(t *testing.T) {
	tbl := NewTable()
	tbl.Set(1, 5)
	if tbl.Empty() {
		t.Fatalf("table with an entry reported Empty")
	}
	tbl.Clear()
	if !tbl.Empty() {
		t.Fatalf("table did not report Empty after Clear")
	}
}
