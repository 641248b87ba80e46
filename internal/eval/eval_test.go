package eval

import (
	"testing"

	"ion/internal/bind"
	"ion/internal/cell"
	"ion/internal/ctx"
	"ion/internal/fn"
	"ion/internal/series"
)

func wordCell(ev *Evaluator, name string) cell.Cell {
	c := cell.Cell{}
	c.SetWord(cell.KindWord, uint32(ev.Syms.Intern(name)))
	return c
}

func setWordCell(ev *Evaluator, name string) cell.Cell {
	c := cell.Cell{}
	c.SetWord(cell.KindSetWord, uint32(ev.Syms.Intern(name)))
	return c
}

func refinementCell(ev *Evaluator, name string) cell.Cell {
	c := cell.Cell{}
	c.SetWord(cell.KindRefinement, uint32(ev.Syms.Intern(name)))
	return c
}

func intCell(v int64) cell.Cell {
	c := cell.Cell{}
	c.SetInteger(v)
	return c
}

func blankCell() cell.Cell {
	c := cell.Cell{}
	c.SetBlank()
	return c
}

func blockLiteral(inner series.Ref) cell.Cell {
	c := cell.Cell{}
	c.SetSeries(cell.KindBlock, cell.SeriesRef{HandleBits: inner.Bits()})
	return c
}

func buildBlock(t *testing.T, ev *Evaluator, cells ...cell.Cell) series.Ref {
	t.Helper()
	r, err := ev.Heap.MakeArray(len(cells), series.RoleGeneric)
	if err != nil {
		t.Fatalf("MakeArray: %v", err)
	}
	for i := range cells {
		if err := ev.Heap.Append(r, &cells[i]); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	return r
}

func TestArithmeticEnfixChainsLeftToRight(t *testing.T) {
	ev := Bootstrap()
	block := buildBlock(t, ev,
		intCell(1), wordCell(ev, "+"), intCell(2), wordCell(ev, "+"), intCell(3))
	bind.Deep(ev.Heap, ev.Lib, block, bind.ModeDeep, bind.NewTable())

	var out cell.Cell
	if err := ev.Run(block, &out); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Integer() != 6 {
		t.Fatalf("result = %d, want 6", out.Integer())
	}
}

func TestDivideByZeroProducesZeroDivideError(t *testing.T) {
	ev := Bootstrap()
	block := buildBlock(t, ev, intCell(10), wordCell(ev, "/"), intCell(0))
	bind.Deep(ev.Heap, ev.Lib, block, bind.ModeDeep, bind.NewTable())

	var out cell.Cell
	err := ev.Run(block, &out)
	if err == nil {
		t.Fatalf("Run succeeded, want zero-divide error")
	}
	if ev.Traps.Depth() != 0 {
		t.Fatalf("trap depth after Run = %d, want 0 (trap balance)", ev.Traps.Depth())
	}
}

func TestSetWordAssignsThroughBinding(t *testing.T) {
	ev := Bootstrap()
	kl, _ := ctx.NewKeylist(ev.Heap, 1)
	user, err := ctx.New(ev.Heap, kl, cell.KindObject)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ctx.Extend(ev.Heap, user, ev.Syms.Intern("x")); err != nil {
		t.Fatal(err)
	}

	block := buildBlock(t, ev, setWordCell(ev, "x"), intCell(42))
	bind.Deep(ev.Heap, user, block, bind.ModeDeep, bind.NewTable())

	var out cell.Cell
	if err := ev.Run(block, &out); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Integer() != 42 {
		t.Fatalf("set-word result = %d, want 42", out.Integer())
	}
	got, err := ctx.Get(ev.Heap, user, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got.Integer() != 42 {
		t.Fatalf("x = %d, want 42", got.Integer())
	}
}

// registerMaybe installs a two-argument test native exercising refinement
// fulfillment/revocation: "maybe" with a /flag refinement guarding a
// normal "val" argument.
func registerMaybe(ev *Evaluator) {
	v := fn.New("maybe", []fn.Param{
		{Symbol: ev.Syms.Intern("flag"), Class: fn.ClassRefinement},
		{Symbol: ev.Syms.Intern("val"), Class: fn.ClassNormal},
	}, func(args fn.Args, out *cell.Cell) error {
		val := args.Arg(1)
		if val.Kind() == cell.KindBlank {
			out.SetLogic(false)
		} else {
			out.Assign(val)
		}
		return nil
	})
	registerNative(ev, "maybe", v)
}

func TestRefinementRevokedWithoutMatchingToken(t *testing.T) {
	ev := Bootstrap()
	registerMaybe(ev)
	block := buildBlock(t, ev, wordCell(ev, "maybe"))
	bind.Deep(ev.Heap, ev.Lib, block, bind.ModeDeep, bind.NewTable())

	var out cell.Cell
	if err := ev.Run(block, &out); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Truthy() {
		t.Fatalf("maybe without /flag = truthy, want revoked (false)")
	}
}

func TestRefinementFulfillsItsArgumentWhenMatched(t *testing.T) {
	ev := Bootstrap()
	registerMaybe(ev)
	block := buildBlock(t, ev, wordCell(ev, "maybe"), refinementCell(ev, "flag"), intCell(9))
	bind.Deep(ev.Heap, ev.Lib, block, bind.ModeDeep, bind.NewTable())

	var out cell.Cell
	if err := ev.Run(block, &out); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Integer() != 9 {
		t.Fatalf("maybe/flag 9 = %d, want 9", out.Integer())
	}
}

func TestThrowCaughtByUnnamedCatch(t *testing.T) {
	ev := Bootstrap()
	inner := buildBlock(t, ev, wordCell(ev, "throw"), blankCell(), intCell(99))
	outer := buildBlock(t, ev, wordCell(ev, "catch"), blankCell(), blockLiteral(inner))
	bind.Deep(ev.Heap, ev.Lib, outer, bind.ModeDeep, bind.NewTable())

	var out cell.Cell
	if err := ev.Run(outer, &out); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Integer() != 99 {
		t.Fatalf("catch result = %d, want 99", out.Integer())
	}
	if ev.Traps.IsThrown() {
		t.Fatalf("IsThrown still true after catch")
	}
}

func TestUnhandledThrowSurfacesAsNoCatchError(t *testing.T) {
	ev := Bootstrap()
	block := buildBlock(t, ev, wordCell(ev, "throw"), blankCell(), intCell(1))
	bind.Deep(ev.Heap, ev.Lib, block, bind.ModeDeep, bind.NewTable())

	var out cell.Cell
	err := ev.Run(block, &out)
	if err == nil {
		t.Fatalf("Run succeeded, want no-catch-for-throw error")
	}
}

func TestTrapCatchesZeroDivideAsErrorValue(t *testing.T) {
	ev := Bootstrap()
	inner := buildBlock(t, ev, intCell(10), wordCell(ev, "/"), intCell(0))
	outer := buildBlock(t, ev, wordCell(ev, "trap"), blockLiteral(inner))
	bind.Deep(ev.Heap, ev.Lib, outer, bind.ModeDeep, bind.NewTable())

	var out cell.Cell
	if err := ev.Run(outer, &out); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Kind() != cell.KindError {
		t.Fatalf("trap result kind = %v, want error!", out.Kind())
	}
	got, ok := ev.Errors.Get(out.ErrorID())
	if !ok || got.Code != "zero-divide" {
		t.Fatalf("trapped error = %+v, want zero-divide", got)
	}
	if ev.Traps.Depth() != 0 {
		t.Fatalf("trap depth after trap-catch = %d, want 0", ev.Traps.Depth())
	}
}
