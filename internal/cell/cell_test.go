package cell

import (
	"testing"
	"unsafe"
)

func TestCellSizeStability(t *testing.T) {
	word := unsafe.Sizeof(uintptr(0))
	if unsafe.Sizeof(Cell{}) != SizeWords*word {
		t.Fatalf("sizeof(Cell) = %d, want %d words (%d bytes)", unsafe.Sizeof(Cell{}), SizeWords, SizeWords*word)
	}
}

func TestEndlikeHeaderInvariant(t *testing.T) {
	var c Cell
	c.WriteEndlike()
	if !c.IsEndlike() {
		t.Fatal("WriteEndlike must produce an endlike header")
	}
	if c.Header().Has(FlagCellBit) {
		t.Fatal("endlike header must have the cell bit clear")
	}

	var v Cell
	v.SetInteger(9)
	if v.IsEndlike() {
		t.Fatal("an ordinary value cell must not read as endlike")
	}
}

func TestTruthyFastPath(t *testing.T) {
	var blank Cell
	blank.SetBlank()
	if blank.Truthy() {
		t.Fatal("blank! must be falsey")
	}

	var f Cell
	f.SetLogic(false)
	if f.Truthy() {
		t.Fatal("logic! false must be falsey")
	}

	var tr Cell
	tr.SetLogic(true)
	if !tr.Truthy() {
		t.Fatal("logic! true must be truthy")
	}

	var i Cell
	i.SetInteger(0)
	if !i.Truthy() {
		t.Fatal("integer! 0 is truthy in this lineage, only blank and false are conditionally false")
	}
}

func TestAssignPreservesCellOwnedBits(t *testing.T) {
	var dst Cell
	dst.SetInteger(1)
	dst.header = dst.header.Set(FlagManaged).Set(FlagStackLifetime)

	var src Cell
	src.SetDecimal(3.5)
	src.header = src.header.Set(FlagEnfix).Set(FlagUnevaluated).Set(FlagProtected)

	dst.Assign(&src)

	if dst.Kind() != KindDecimal || dst.Decimal() != 3.5 {
		t.Fatalf("Assign must copy the payload/kind, got kind=%v", dst.Kind())
	}
	if !dst.header.Has(FlagManaged) || !dst.header.Has(FlagStackLifetime) {
		t.Fatal("Assign must preserve destination's cell-owned bits")
	}
	if dst.header.Has(FlagEnfix) || dst.header.Has(FlagUnevaluated) || dst.header.Has(FlagProtected) {
		t.Fatal("Assign must not propagate enfix/unevaluated/protected from source")
	}
}

func TestWordBindingCacheRoundtrip(t *testing.T) {
	var w Cell
	w.SetWord(KindWord, 42)
	if w.SymbolID() != 42 {
		t.Fatalf("symbol id round-trip: got %d", w.SymbolID())
	}
	w.SetBindingCache(0xCAFEBABE, 7)
	bits, idx, bound := w.BindingCache()
	if !bound || bits != 0xCAFEBABE || idx != 7 {
		t.Fatalf("binding cache round-trip failed: bits=%x idx=%d bound=%v", bits, idx, bound)
	}
}

func TestKindByteBounds(t *testing.T) {
	if KindMax > 63 {
		t.Fatalf("KindMax must stay <= 63 per spec, got %d", KindMax)
	}
}
