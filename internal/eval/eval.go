package eval

import (
	"ion/internal/cell"
	"ion/internal/ctx"
	"ion/internal/errkind"
	"ion/internal/fn"
	"ion/internal/gc"
	"ion/internal/series"
	"ion/internal/trap"
)

// ErrorTable is the side table error! cells reference by id
// (cell.SetErrorID/ErrorID), the same pattern fn.Table uses for
// function! cells, an *errkind.Error carries Go strings that do not
// fit a four-word cell, so its identity lives here instead of in the
// series pool (see the doc comment on cell.SetErrorID).
type ErrorTable struct {
	values []*errkind.Error
}

func NewErrorTable() *ErrorTable { return &ErrorTable{} }

func (t *ErrorTable) Register(e *errkind.Error) uint32 {
	t.values = append(t.values, e)
	return uint32(len(t.values))
}

func (t *ErrorTable) Get(id uint32) (*errkind.Error, bool) {
	if id == 0 || int(id) > len(t.values) {
		return nil, false
	}
	return t.values[id-1], true
}

// Evaluator is one interpreter instance: the heap/symbol table/function
// table/trap stack it owns, plus the root library context natives bind
// against (spec.md §9 "package as an evaluator-instance handle; avoid
// file-scope mutables", every mutable table here is a field, never a
// package-level var).
type Evaluator struct {
	Heap   *series.Heap
	Syms   *series.Symbols
	Funcs  *fn.Table
	Errors *ErrorTable
	Traps  *trap.Stack
	GC     *gc.GC
	Lib    ctx.Ref
	Trace  Trace

	frames *Frame // current frame chain, for GC roots and diagnostics
}

// New builds an evaluator instance over a fresh heap/symbol table/GC.
// Lib is left zero-valued; Bootstrap constructs and assigns the root
// library context before registering the natives into it.
func New() *Evaluator {
	h := series.NewHeap()
	g := gc.New(h, 0)
	return &Evaluator{
		Heap:   h,
		Syms:   series.NewSymbols(h),
		Funcs:  fn.NewTable(),
		Errors: NewErrorTable(),
		GC:     g,
		Traps:  trap.NewStack(h, g),
	}
}

// failSignal is the panic value FAIL raises (spec.md §4.5's longjmp-to-
// trap model, expressed with Go's native unwinding mechanism instead of
// setjmp/longjmp): it carries straight up the Go call stack, over any
// number of intermediate DoNext/Apply/fulfillArgs frames, to the nearest
// protectedRun.
type failSignal struct {
	err    *errkind.Error
	isHalt bool
}

// fail raises a FAIL, immediately transferring control to the nearest
// enclosing protectedRun (a native `trap` call, or the top-level runner)
// exactly as spec.md §4.5 describes for push_trap/longjmp. It never
// returns.
func (ev *Evaluator) fail(err *errkind.Error) {
	if ev.Trace != nil {
		ev.Trace.OnError(ev, ev.frames, err)
	}
	panic(failSignal{err: err})
}

// Roots returns the GC root set this evaluator instance is responsible
// for beyond what internal/series.Heap already tracks: the canon table's
// string series, the Lib context's varlist, and the argument cells of
// every frame on the live frame chain.
func (ev *Evaluator) Roots() gc.Roots {
	r := gc.Roots{}
	for _, ref := range ev.Syms.Roots() {
		r.ExtraRefs = append(r.ExtraRefs, ref)
	}
	if !ev.Lib.Varlist.IsZero() {
		r.ExtraRefs = append(r.ExtraRefs, ev.Lib.Varlist)
	}
	for fr := ev.frames; fr != nil; fr = fr.Prior {
		for i := range fr.Args {
			r.ExtraCells = append(r.ExtraCells, &fr.Args[i])
		}
	}
	return r
}

// maybeRecycle services the GC signal at this safe point (spec.md §4.3:
// serviced at evaluator safe points, never mid-allocation).
func (ev *Evaluator) maybeRecycle() {
	if ev.GC.NeedsRecycle() {
		ev.GC.Collect(ev.Roots())
	}
}

// protectedRun is the one place a trap is actually installed and
// unwound: PushTrap before body runs, and on a panic(failSignal), Fail
// restores the snapshot and reports whether this is the trap that
// stopped it. A normal (non-panicking) return drops the trap without
// restoring anything, matching spec.md's "drop_trap on the success
// path, longjmp to it on failure."
func protectedRun(ev *Evaluator, haltable bool, body func() error) (result error, failed *errkind.Error) {
	ev.Traps.PushTrap(haltable, nil)
	defer func() {
		r := recover()
		if r == nil {
			ev.Traps.DropTrap()
			return
		}
		fs, ok := r.(failSignal)
		if !ok {
			panic(r) // not a FAIL; a real bug, let it surface
		}
		if _, caught := ev.Traps.Fail(fs.isHalt); !caught {
			panic(r) // no trap actually intercepted it; keep unwinding
		}
		failed = fs.err
	}()
	result = body()
	return
}

// DoArray runs every step of src in turn, leaving the final step's
// result in out (spec.md §4.4's do_array: "repeated do_next until
// END_FLAG or THROWN_FLAG"). A FAIL raised anywhere underneath
// propagates past DoArray itself, callers that need to intercept it
// use protectedRun (the native `trap` dispatcher does; the top-level
// Run wraps the whole program the same way).
func (ev *Evaluator) DoArray(src series.Ref, out *cell.Cell) {
	idx := 0
	for {
		next := ev.step(src, idx, out, false)
		switch next {
		case EndFlag, ThrownFlag:
			return
		default:
			idx = int(next)
		}
	}
}

// Run is the top-level entry point: it wraps one DoArray in a trap so
// an unhandled FAIL anywhere in src becomes a returned Go error instead
// of an uncaught panic (spec.md §4.5's last-resort "exit to host"
// path).
func (ev *Evaluator) Run(src series.Ref, out *cell.Cell) error {
	_, failed := protectedRun(ev, true, func() error {
		ev.DoArray(src, out)
		return nil
	})
	if failed != nil {
		return failed
	}
	if ev.Traps.IsThrown() {
		err := ev.Traps.NoCatch()
		return err
	}
	return nil
}

// step evaluates exactly one expression starting at index idx of src
// into out, returning the next index (or EndFlag/ThrownFlag). It is the
// core of do_next: literal self-evaluation, word/get-word/set-word/
// lit-word dispatch, block/group handling, path dispatch, function call
// with argument fulfillment, and single-step enfix lookahead.
func (ev *Evaluator) step(src series.Ref, idx int, out *cell.Cell, noLookahead bool) Indexor {
	n := ev.Heap.Len(src)
	if idx >= n {
		return EndFlag
	}
	c := ev.Heap.CellAt(src, idx)
	idx++

	if ev.Trace != nil {
		ev.Trace.OnStep(ev, ev.frames)
	}

	switch c.Kind() {
	case cell.KindWord:
		v, err := ctx.Resolve(ev.Heap, c)
		if err != nil {
			ev.fail(errkind.WordNotBound(ev.spelling(c)).WithWhere("evaluate word"))
		}
		if v.Kind() == cell.KindFunction {
			idx = ev.applyCall(v, c, src, idx, out)
		} else {
			out.Assign(v)
		}

	case cell.KindGetWord:
		v, err := ctx.Resolve(ev.Heap, c)
		if err != nil {
			ev.fail(errkind.WordNotBound(ev.spelling(c)).WithWhere("evaluate get-word"))
		}
		out.Assign(v) // GET-WORD! never triggers a call, even on a function! value

	case cell.KindSetWord:
		next := ev.step(src, idx, out, true)
		if next == ThrownFlag {
			return ThrownFlag
		}
		idx = int(next)
		target, err := ctx.Resolve(ev.Heap, c)
		if err != nil {
			ev.fail(errkind.WordNotBound(ev.spelling(c)).WithWhere("evaluate set-word"))
		}
		if ev.isBindingProtected(c) {
			ev.fail(errkind.LockedSeries().WithWhere("set-word"))
		}
		target.Assign(out)

	case cell.KindLitWord:
		out.SetWord(cell.KindWord, c.SymbolID())

	case cell.KindBlock:
		out.SetSeries(cell.KindBlock, c.Series()) // blocks are self-evaluating

	case cell.KindGroup:
		ref := series.RefFromBits(c.Series().HandleBits)
		ev.DoArray(ref, out)
		if ev.Traps.IsThrown() {
			return ThrownFlag
		}

	case cell.KindPath, cell.KindGetPath, cell.KindSetPath:
		idx = ev.evalPath(c, src, idx, out)
		if idx == int(ThrownFlag) {
			return ThrownFlag
		}

	default:
		out.Assign(c) // self-evaluating literal (integer, decimal, string, ...)
	}

	ev.maybeRecycle()

	if !noLookahead && idx >= 0 {
		return ev.lookahead(src, idx, out)
	}
	return Indexor(idx)
}

// lookahead implements spec.md §4.4's enfix step: if the next source
// cell is a word bound to an enfix function, apply it with the value
// just computed as its first (already-evaluated) argument, looping so a
// chain of enfix operators (1 + 2 + 3) associates left to right.
func (ev *Evaluator) lookahead(src series.Ref, idx int, out *cell.Cell) Indexor {
	for {
		n := ev.Heap.Len(src)
		if idx >= n {
			return Indexor(idx)
		}
		peek := ev.Heap.CellAt(src, idx)
		if peek.Kind() != cell.KindWord {
			return Indexor(idx)
		}
		v, err := ctx.Resolve(ev.Heap, peek)
		if err != nil || v.Kind() != cell.KindFunction {
			return Indexor(idx)
		}
		fv, ok := ev.Funcs.Get(fn.ID(v.FunctionID()))
		if !ok || !fv.Enfix {
			return Indexor(idx)
		}
		idx++
		left := *out
		idx = ev.applyEnfix(fv, peek, &left, src, idx, out)
		if idx == int(ThrownFlag) {
			return ThrownFlag
		}
	}
}

func (ev *Evaluator) spelling(word *cell.Cell) string {
	if s := ev.Syms.Spelling(series.SymbolID(word.SymbolID())); s != "" {
		return s
	}
	return "?"
}

// isBindingProtected reports whether word's bound context's varlist is
// frozen or protected (spec.md §7 "Protected state": a set-word targeting
// a protected object field fails rather than writing through).
func (ev *Evaluator) isBindingProtected(word *cell.Cell) bool {
	bits, _, bound := word.BindingCache()
	if !bound {
		return false
	}
	n, ok := ev.Heap.GetNode(series.RefFromBits(bits))
	return ok && n.IsProtected()
}
