package eval

import (
	"ion/internal/cell"
	"ion/internal/ctx"
	"ion/internal/errkind"
	"ion/internal/fn"
	"ion/internal/series"
)

// registerArith registers the four arithmetic operators as enfix natives, the
// same way the source lineage's bootstrap makes + - * / lookback
// (spec.md §4.4's enfix examples are all built around infix math).
// Division by zero produces errkind.ZeroDivide rather than a Go panic
// or an infinity/NaN result (spec.md §4.5's canonical math error).
func registerArith(ev *Evaluator) {
	binOp := func(name string, apply func(a, b int64) int64, divCheck bool) *fn.Value {
		return fn.New(name, []fn.Param{
			{Symbol: ev.Syms.Intern("value1"), Class: fn.ClassNormal},
			{Symbol: ev.Syms.Intern("value2"), Class: fn.ClassNormal},
		}, func(args fn.Args, out *cell.Cell) error {
			a := args.Arg(0)
			b := args.Arg(1)
			if a.Kind() != cell.KindInteger || b.Kind() != cell.KindInteger {
				ev.fail(errkind.ArgType(name, "value2", b.Kind().String()).WithWhere(name))
			}
			if divCheck && b.Integer() == 0 {
				ev.fail(errkind.ZeroDivide().WithWhere(name))
			}
			out.SetInteger(apply(a.Integer(), b.Integer()))
			return nil
		})
	}

	plus := binOp("+", func(a, b int64) int64 { return a + b }, false)
	minus := binOp("-", func(a, b int64) int64 { return a - b }, false)
	times := binOp("*", func(a, b int64) int64 { return a * b }, false)
	div := binOp("/", func(a, b int64) int64 { return a / b }, true)

	plus.Enfix, minus.Enfix, times.Enfix, div.Enfix = true, true, true, true

	registerNative(ev, "+", plus)
	registerNative(ev, "-", minus)
	registerNative(ev, "*", times)
	registerNative(ev, "/", div)
}

// registerTrap wires the native `trap` dispatcher: it runs its block
// argument under a fresh haltable trap (internal/trap's push_trap) and,
// on a FAIL anywhere inside, reifies the *errkind.Error as an error!
// cell instead of letting the panic continue past trap itself, the
// one place outside Run that installs a trap (spec.md §4.5/§6 TRAP).
func registerTrap(ev *Evaluator) {
	v := fn.New("trap", []fn.Param{
		{Symbol: ev.Syms.Intern("body"), Class: fn.ClassNormal},
	}, func(args fn.Args, out *cell.Cell) error {
		body := args.Arg(0)
		if body.Kind() != cell.KindBlock {
			ev.fail(errkind.ArgType("trap", "body", body.Kind().String()))
		}
		ref := series.RefFromBits(body.Series().HandleBits)
		_, failed := protectedRun(ev, true, func() error {
			ev.DoArray(ref, out)
			return nil
		})
		if failed != nil {
			id := ev.Errors.Register(failed)
			out.SetErrorID(id)
		}
		return nil
	})
	registerNative(ev, "trap", v)
}

// registerThrow wires THROW: 'name is a literal (unevaluated) word or
// blank for an unnamed throw, value is evaluated normally. Throw never
// panics, it stashes state on ev.Traps and returns normally, letting
// the thrown-flag sentinel unwind the do-loop cooperatively (spec.md
// §4.5's distinction between THROW and FAIL).
func registerThrow(ev *Evaluator) {
	v := fn.New("throw", []fn.Param{
		{Symbol: ev.Syms.Intern("name"), Class: fn.ClassHardQuote},
		{Symbol: ev.Syms.Intern("value"), Class: fn.ClassNormal},
	}, func(args fn.Args, out *cell.Cell) error {
		name := args.Arg(0)
		value := args.Arg(1)
		ev.Traps.Throw(name, value)
		out.Assign(value)
		out.MarkThrown()
		return nil
	})
	registerNative(ev, "throw", v)
}

// registerCatch wires CATCH: 'name names which throw to intercept
// (blank catches any), body is the block to run. If the pending throw
// after running body doesn't match name, the thrown state is left
// active for an outer catch, matching trap.Stack.Catch's semantics.
func registerCatch(ev *Evaluator) {
	v := fn.New("catch", []fn.Param{
		{Symbol: ev.Syms.Intern("name"), Class: fn.ClassHardQuote},
		{Symbol: ev.Syms.Intern("body"), Class: fn.ClassNormal},
	}, func(args fn.Args, out *cell.Cell) error {
		name := args.Arg(0)
		body := args.Arg(1)
		if body.Kind() != cell.KindBlock {
			ev.fail(errkind.ArgType("catch", "body", body.Kind().String()))
		}
		ref := series.RefFromBits(body.Series().HandleBits)
		var tmp cell.Cell
		ev.DoArray(ref, &tmp)
		if !ev.Traps.IsThrown() {
			out.Assign(&tmp)
			return nil
		}
		var matchName *cell.Cell
		if name.Kind() == cell.KindWord {
			matchName = name
		}
		payload, ok := ev.Traps.Catch(matchName)
		if !ok {
			return nil // leave thrown state active for an outer catch
		}
		out.Assign(&payload)
		return nil
	})
	registerNative(ev, "catch", v)
}

// registerNative registers v in ev.Funcs and binds name to a function!
// cell in ev.Lib, extending Lib's keylist if name is not already a
// member (spec.md §9's bootstrap: natives are ordinary Lib members,
// indistinguishable from user-defined functions once bound).
func registerNative(ev *Evaluator, name string, v *fn.Value) {
	id := ev.Funcs.Register(v)
	fc := cell.Cell{}
	fc.SetFunctionID(uint32(id))

	symID := ev.Syms.Intern(name)
	slot, ok := ctx.Find(ev.Heap, ev.Lib, symID)
	if !ok {
		var err error
		slot, err = ctx.Extend(ev.Heap, ev.Lib, symID)
		if err != nil {
			panic(err) // boot-time failure, not a runtime evaluator condition
		}
	}
	target, err := ctx.Get(ev.Heap, ev.Lib, slot)
	if err != nil {
		panic(err)
	}
	target.Assign(&fc)
}

// Bootstrap builds a fresh Lib context and registers every native this
// evaluator instance ships with. Returns the evaluator ready to Run.
func Bootstrap() *Evaluator {
	ev := New()

	kl, err := ctx.NewKeylist(ev.Heap, 8)
	if err != nil {
		panic(err)
	}
	lib, err := ctx.New(ev.Heap, kl, cell.KindObject)
	if err != nil {
		panic(err)
	}
	ev.Heap.Manage(kl)
	ev.Heap.Manage(lib.Varlist)
	ev.Lib = lib

	registerArith(ev)
	registerTrap(ev)
	registerThrow(ev)
	registerCatch(ev)
	return ev
}
