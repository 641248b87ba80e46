package boot

import (
	"testing"

	"ion/internal/bind"
	"ion/internal/cell"
	"ion/internal/series"
)

func TestLoaderParsesArithmeticEnfixChain(t *testing.T) {
	img := Default()
	ev := NewEvaluator(img)

	loader := NewLoader(ev.Heap, ev.Syms, "1 + 2 + 3")
	block, err := loader.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	bind.Deep(ev.Heap, ev.Lib, block, bind.ModeDeep, bind.NewTable())

	var out cell.Cell
	if err := ev.Run(block, &out); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Integer() != 6 {
		t.Fatalf("result = %d, want 6", out.Integer())
	}
}

func TestLoaderParsesNestedBlockAndSetWord(t *testing.T) {
	img := Default()
	ev := NewEvaluator(img)

	loader := NewLoader(ev.Heap, ev.Syms, "[x: 10 y: 20]")
	block, err := loader.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ev.Heap.Len(block) != 1 {
		t.Fatalf("outer block length = %d, want 1 (one nested block! value)", ev.Heap.Len(block))
	}
	nested := ev.Heap.CellAt(block, 0)
	if nested.Kind() != cell.KindBlock {
		t.Fatalf("outer[0].Kind() = %v, want block!", nested.Kind())
	}
}

func TestLoaderParsesStringLiteralWithEscapes(t *testing.T) {
	img := Default()
	ev := NewEvaluator(img)
	loader := NewLoader(ev.Heap, ev.Syms, `"say \"hi\" with a \\ backslash"`)
	block, err := loader.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ev.Heap.Len(block) != 1 {
		t.Fatalf("block length = %d, want 1", ev.Heap.Len(block))
	}
	c := ev.Heap.CellAt(block, 0)
	if c.Kind() != cell.KindString {
		t.Fatalf("cell kind = %v, want string!", c.Kind())
	}
	ref := series.RefFromBits(c.Series().HandleBits)
	got := string(ev.Heap.Bytes(ref))
	want := `say "hi" with a \ backslash`
	if got != want {
		t.Fatalf("string contents = %q, want %q", got, want)
	}
}

func TestLoaderRejectsUnterminatedString(t *testing.T) {
	img := Default()
	ev := NewEvaluator(img)
	if _, err := NewLoader(ev.Heap, ev.Syms, `"unterminated`).Load(); err == nil {
		t.Fatalf("Load succeeded on an unterminated string, want an error")
	}
}

func TestLoaderRejectsUnterminatedBlock(t *testing.T) {
	img := Default()
	ev := NewEvaluator(img)
	if _, err := NewLoader(ev.Heap, ev.Syms, "[1 2").Load(); err == nil {
		t.Fatalf("Load succeeded on an unterminated block, want an error")
	}
}

func TestLoaderParsesBlankAndRefinement(t *testing.T) {
	img := Default()
	ev := NewEvaluator(img)
	loader := NewLoader(ev.Heap, ev.Syms, "maybe /flag _")
	block, err := loader.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ev.Heap.Len(block) != 3 {
		t.Fatalf("block length = %d, want 3", ev.Heap.Len(block))
	}
	if ev.Heap.CellAt(block, 1).Kind() != cell.KindRefinement {
		t.Fatalf("cell 1 kind = %v, want refinement!", ev.Heap.CellAt(block, 1).Kind())
	}
	if ev.Heap.CellAt(block, 2).Kind() != cell.KindBlank {
		t.Fatalf("cell 2 kind = %v, want blank!", ev.Heap.CellAt(block, 2).Kind())
	}
}
