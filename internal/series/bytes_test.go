package series

import "testing"

func TestAppendBytesGrowsAndReads(t *testing.T) {
	h := NewHeap()
	r, err := h.MakeString(0)
	if err != nil {
		t.Fatalf("MakeString: %v", err)
	}
	if err := h.AppendBytes(r, []byte("hello")); err != nil {
		t.Fatalf("AppendBytes: %v", err)
	}
	if err := h.AppendBytes(r, []byte(" world")); err != nil {
		t.Fatalf("AppendBytes: %v", err)
	}
	if got := string(h.Bytes(r)); got != "hello world" {
		t.Fatalf("Bytes = %q, want %q", got, "hello world")
	}
}

func TestTakeBytesHeadShrinksFromFront(t *testing.T) {
	h := NewHeap()
	r, _ := h.MakeBinary(0)
	if err := h.AppendBytes(r, []byte{1, 2, 3, 4, 5}); err != nil {
		t.Fatal(err)
	}
	if err := h.TakeBytesHead(r, 2); err != nil {
		t.Fatalf("TakeBytesHead: %v", err)
	}
	got := h.Bytes(r)
	want := []byte{3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestProtectedBinaryRejectsAppend(t *testing.T) {
	h := NewHeap()
	r, _ := h.MakeBinary(0)
	h.mustNode(r).MarkFrozen()
	if err := h.AppendBytes(r, []byte{1}); err != ErrProtected {
		t.Fatalf("AppendBytes on frozen binary = %v, want ErrProtected", err)
	}
}
