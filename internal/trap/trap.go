// Package trap implements the non-local control flows spec.md §4.5
// describes: FAIL (unwinding, via a trap snapshot/restore stack) and
// THROW/CATCH (cooperative, via a single stashed payload slot), plus the
// halt signal's "haltable vs. unhaltable trap" distinction.
package trap

import (
	"ion/internal/cell"
	"ion/internal/errkind"
	"ion/internal/gc"
	"ion/internal/series"
)

// Snapshot is what a trap records at push_trap time: the manual-series
// count, the series and value guard depths, and the GC-disable counter,
// all of which FAIL restores. Custom holds whatever extra depths the
// caller passed to PushTrap; Fail hands it back in the Snapshot, and
// this package does not restore it.
type Snapshot struct {
	Manual       int
	SeriesGuards int
	ValueGuards  int
	GCDisable    int
	Custom       map[string]int
}

type frameEntry struct {
	snap     Snapshot
	haltable bool
}

// Stack is one evaluator instance's trap stack plus its single
// thrown-value slot (spec.md's TG_Thrown_Arg).
type Stack struct {
	heap  *series.Heap
	gcRef *gc.GC
	traps []frameEntry

	thrownActive bool
	thrownLabel  cell.Cell
	thrownValue  cell.Cell
}

// NewStack creates a trap stack over heap/gc, both owned by the caller
// (internal/eval).
func NewStack(heap *series.Heap, g *gc.GC) *Stack {
	return &Stack{heap: heap, gcRef: g}
}

// PushTrap installs a new trap (spec.md's push_trap / push_unhaltable_trap:
// haltable=true is push_trap, false is push_unhaltable_trap). custom is
// stored unchanged in the Snapshot and returned by Fail; restoring any
// depths it carries is left to the caller.
func (s *Stack) PushTrap(haltable bool, custom map[string]int) {
	s.traps = append(s.traps, frameEntry{
		snap: Snapshot{
			Manual:       s.heap.ManualLen(),
			SeriesGuards: s.heap.SeriesGuardLen(),
			ValueGuards:  s.heap.ValueGuardLen(),
			GCDisable:    s.gcRef.DisableCount(),
			Custom:       custom,
		},
		haltable: haltable,
	})
}

// DropTrap removes the innermost trap without restoring anything, the
// normal, non-failing exit from a TRY-like construct. Panics if no trap
// is installed: a programmer error symmetric with push_trap/drop_trap
// lexical nesting.
func (s *Stack) DropTrap() {
	if len(s.traps) == 0 {
		panic("trap: drop_trap with no trap installed")
	}
	s.traps = s.traps[:len(s.traps)-1]
}

// Depth is the current trap-stack height, for tests asserting trap
// balance.
func (s *Stack) Depth() int { return len(s.traps) }

// Fail unwinds to the nearest trap that will stop it: for an ordinary
// FAIL (isHalt=false) that's simply the innermost trap; for a halt
// signal, unhaltable traps let it pass through silently (popped without
// stopping) and only a haltable trap stops it. Returns the
// snapshot to restore and ok=false if no trap intercepted, the caller
// must then invoke the host panic callback and exit.
func (s *Stack) Fail(isHalt bool) (Snapshot, bool) {
	for len(s.traps) > 0 {
		top := s.traps[len(s.traps)-1]
		s.traps = s.traps[:len(s.traps)-1]
		if isHalt && !top.haltable {
			continue
		}
		s.restore(top.snap)
		return top.snap, true
	}
	return Snapshot{}, false
}

func (s *Stack) restore(snap Snapshot) {
	s.heap.ReleaseManualSince(snap.Manual)
	s.heap.TruncateGuardsTo(snap.SeriesGuards, snap.ValueGuards)
	s.gcRef.RestoreDisableCount(snap.GCDisable)
}

// --- THROW / CATCH ----------------------------------------------------

// Throw stashes label/payload and marks the thrown slot active. The
// evaluator's do_next sets the thrown bit on its output cell and leaves
// the actual values here per spec.md's TG_Thrown_Arg description,
// decoupling the "is this return thrown" bit (carried on the output
// cell) from the payload itself, which would not otherwise fit in one
// cell's normal payload alongside a label.
func (s *Stack) Throw(label, payload *cell.Cell) {
	s.thrownActive = true
	s.thrownLabel = *label
	s.thrownValue = *payload
}

// IsThrown reports whether a throw is in flight.
func (s *Stack) IsThrown() bool { return s.thrownActive }

// Catch clears the thrown state and returns the payload if the pending
// throw matches: an unnamed catch (name == nil) catches anything; a
// named catch only catches a throw whose label has the same symbol id.
func (s *Stack) Catch(name *cell.Cell) (cell.Cell, bool) {
	if !s.thrownActive {
		return cell.Cell{}, false
	}
	if name != nil {
		if name.Kind() != s.thrownLabel.Kind() || name.SymbolID() != s.thrownLabel.SymbolID() {
			return cell.Cell{}, false
		}
	}
	payload := s.thrownValue
	s.thrownActive = false
	s.thrownLabel = cell.Cell{}
	s.thrownValue = cell.Cell{}
	return payload, true
}

// NoCatch converts an unhandled throw reaching an evaluator boundary
// into the "no catch for throw" fail spec.md §4.5 names, clearing the
// thrown slot in the process.
func (s *Stack) NoCatch() *errkind.Error {
	label := s.thrownLabel
	s.thrownActive = false
	name := "unnamed"
	if label.Kind() == cell.KindWord {
		name = "word"
	}
	return errkind.NoCatchForThrow(name)
}
