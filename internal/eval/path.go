package eval

import (
	"ion/internal/cell"
	"ion/internal/ctx"
	"ion/internal/errkind"
	"ion/internal/series"
)

// evalPath implements the reduced path-dispatch scope this evaluator
// supports: a chain of object-field picks and/or block-index picks,
// ending either in a plain read (path!/get-path!) or an assignment
// (set-path!). The full path-dispatch machinery (the source lineage's
// PE_OK/PE_SET_IF_END/PE_USE_STORE/PE_NONE step results threading
// through arbitrary datatype-defined path handlers) is out of scope.
// No testable property exercises anything beyond these two base types,
// so only they are wired (see DESIGN.md's path-dispatch entry).
func (ev *Evaluator) evalPath(pathCell *cell.Cell, src series.Ref, idx int, out *cell.Cell) int {
	pathRef := series.RefFromBits(pathCell.Series().HandleBits)
	n := ev.Heap.Len(pathRef)
	if n == 0 {
		ev.fail(errkind.New(errkind.KindScript, "bad-path", "path has no segments"))
	}

	first := ev.Heap.CellAt(pathRef, 0)
	var cur cell.Cell
	switch first.Kind() {
	case cell.KindWord:
		v, err := ctx.Resolve(ev.Heap, first)
		if err != nil {
			ev.fail(errkind.WordNotBound(ev.spelling(first)).WithWhere("path"))
		}
		cur.Assign(v)
	default:
		cur.Assign(first)
	}

	// field/ownerRef hold the last-segment's settable location and its
	// owning series (for the protection check), if the path bottoms out
	// on an object field or block slot (set-path's target).
	var field *cell.Cell
	var ownerRef series.Ref

	for i := 1; i < n; i++ {
		seg := ev.Heap.CellAt(pathRef, i)
		field = nil
		switch cur.Kind() {
		case cell.KindObject, cell.KindError, cell.KindPort, cell.KindModule, cell.KindFrame:
			if seg.Kind() != cell.KindWord {
				ev.fail(errkind.New(errkind.KindScript, "bad-path-pick", "object path segment must be a word"))
			}
			ownerRef = series.RefFromBits(cur.Series().HandleBits)
			objCtx := ctx.Ref{Varlist: ownerRef}
			symID, ok := ev.Syms.Lookup(ev.spelling(seg))
			if !ok {
				ev.fail(errkind.New(errkind.KindScript, "no-such-field", "no such field: "+ev.spelling(seg)))
			}
			slot, ok := ctx.Find(ev.Heap, objCtx, symID)
			if !ok {
				ev.fail(errkind.New(errkind.KindScript, "no-such-field", "no such field: "+ev.spelling(seg)))
			}
			fc, err := ctx.Get(ev.Heap, objCtx, slot)
			if err != nil {
				ev.fail(errkind.New(errkind.KindScript, "inaccessible", err.Error()))
			}
			field = fc
			cur.Assign(fc)

		case cell.KindBlock:
			if seg.Kind() != cell.KindInteger {
				ev.fail(errkind.New(errkind.KindScript, "bad-path-pick", "block path segment must be an integer"))
			}
			ownerRef = series.RefFromBits(cur.Series().HandleBits)
			pos := int(seg.Integer()) - 1
			ec := ev.Heap.CellAt(ownerRef, pos)
			if ec == nil {
				ev.fail(errkind.IndexOutOfRange().WithWhere("path"))
			}
			field = ec
			cur.Assign(ec)

		default:
			ev.fail(errkind.New(errkind.KindScript, "bad-path-base", "value does not support path picking"))
		}
	}

	if pathCell.Kind() == cell.KindSetPath {
		next := ev.step(src, idx, out, true)
		if next == ThrownFlag {
			return int(ThrownFlag)
		}
		if field == nil {
			ev.fail(errkind.New(errkind.KindScript, "bad-path", "set-path has no settable target"))
		}
		if n, ok := ev.Heap.GetNode(ownerRef); ok && n.IsProtected() {
			ev.fail(errkind.ProtectedWord().WithWhere("set-path"))
		}
		field.Assign(out)
		return int(next)
	}

	out.Assign(&cur)
	return idx
}
