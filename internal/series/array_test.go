package series

import "testing"

func TestMakeArrayEmbeddedThenPromote(t *testing.T) {
	h := NewHeap()
	r, err := h.MakeArray(0, RoleGeneric)
	if err != nil {
		t.Fatalf("MakeArray: %v", err)
	}
	if h.Len(r) != 0 {
		t.Fatalf("fresh array length = %d, want 0", h.Len(r))
	}
	if err := h.ExpandTail(r, 1); err != nil {
		t.Fatalf("ExpandTail 1: %v", err)
	}
	if h.Len(r) != 1 {
		t.Fatalf("length after first expand = %d, want 1", h.Len(r))
	}
	if err := h.ExpandTail(r, 5); err != nil {
		t.Fatalf("ExpandTail 5: %v", err)
	}
	if h.Len(r) != 6 {
		t.Fatalf("length after promote = %d, want 6", h.Len(r))
	}
	term := h.TerminatorAt(r)
	if term == nil || !term.IsEndlike() {
		t.Fatalf("terminator missing or not endlike after promotion")
	}
}

func TestExpandTailReterminates(t *testing.T) {
	h := NewHeap()
	r, _ := h.MakeArray(0, RoleGeneric)
	for i := 0; i < 10; i++ {
		if err := h.ExpandTail(r, 1); err != nil {
			t.Fatalf("expand %d: %v", i, err)
		}
		term := h.TerminatorAt(r)
		if term == nil {
			continue // length-1 embedded-only case has no physical terminator slot
		}
		if !term.IsEndlike() {
			t.Fatalf("iteration %d: terminator not endlike", i)
		}
	}
}

func TestExpandHeadThenTakeHeadRoundtrips(t *testing.T) {
	h := NewHeap()
	r, _ := h.MakeArray(4, RoleGeneric)
	if err := h.ExpandTail(r, 4); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 4; i++ {
		h.CellAt(r, i).SetInteger(int64(i))
	}
	if err := h.ExpandHead(r, 2); err != nil {
		t.Fatalf("ExpandHead: %v", err)
	}
	if h.Len(r) != 6 {
		t.Fatalf("length after ExpandHead = %d, want 6", h.Len(r))
	}
	if got := h.CellAt(r, 5); got == nil {
		t.Fatalf("expected element at shifted index 5")
	}
	if err := h.TakeHead(r, 2); err != nil {
		t.Fatalf("TakeHead: %v", err)
	}
	if h.Len(r) != 4 {
		t.Fatalf("length after TakeHead = %d, want 4", h.Len(r))
	}
}

func TestExpandHeadForcesReallocPastBias(t *testing.T) {
	h := NewHeap()
	r, _ := h.MakeArray(1, RoleGeneric)
	if err := h.ExpandTail(r, 1); err != nil {
		t.Fatal(err)
	}
	// Push the head out far enough to exhaust bias slack repeatedly; the
	// MaxBias ceiling must never be exceeded by ExpandHead's reallocations.
	for i := 0; i < 10; i++ {
		if err := h.ExpandHead(r, 1); err != nil {
			t.Fatalf("ExpandHead iter %d: %v", i, err)
		}
	}
	if h.Len(r) != 11 {
		t.Fatalf("length = %d, want 11", h.Len(r))
	}
}

func TestProtectedArrayRejectsMutation(t *testing.T) {
	h := NewHeap()
	r, _ := h.MakeArray(0, RoleGeneric)
	n := h.mustNode(r)
	n.MarkProtected()
	if err := h.ExpandTail(r, 1); err != ErrProtected {
		t.Fatalf("ExpandTail on protected array = %v, want ErrProtected", err)
	}
}

func TestMakeArrayRejectsOversizeCapacity(t *testing.T) {
	h := NewHeap()
	if _, err := h.MakeArray(MaxAllocElems+1, RoleGeneric); err != ErrOutOfMemory {
		t.Fatalf("MakeArray oversize = %v, want ErrOutOfMemory", err)
	}
}
