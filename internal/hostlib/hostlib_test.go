package hostlib

import (
	"testing"
	"time"
)

func TestRecordingTableCapturesPrintAndPanic(t *testing.T) {
	clock := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	rec := NewRecording(clock)
	tbl := rec.Table()

	tbl.Print("hello")
	tbl.Panic(42)

	if len(rec.Printed) != 1 || rec.Printed[0] != "hello" {
		t.Fatalf("Printed = %v, want [\"hello\"]", rec.Printed)
	}
	if len(rec.Panics) != 1 || rec.Panics[0] != 42 {
		t.Fatalf("Panics = %v, want [42]", rec.Panics)
	}
	if !tbl.Now().Equal(clock) {
		t.Fatalf("Now() = %v, want %v", tbl.Now(), clock)
	}
}

func TestDefaultTableAllocatesRequestedLength(t *testing.T) {
	tbl := Default()
	buf := tbl.AllocOSString(16)
	if len(buf) != 16 {
		t.Fatalf("len(buf) = %d, want 16", len(buf))
	}
}
