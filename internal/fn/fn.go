// Package fn implements function values: each Value is a Go slice of
// Params (symbol plus fulfillment class) and a Go Dispatcher func. There
// is no paramlist or body-holder series array behind a Value, and no
// facade or exemplar.
package fn

import (
	"fmt"

	"ion/internal/cell"
	"ion/internal/series"
)

// Class is a parameter's fulfillment class (spec.md §4.4 "Argument
// fulfillment").
type Class uint8

const (
	ClassNormal Class = iota
	ClassHardQuote
	ClassSoftQuote
	ClassRefinement
	ClassLocal
	ClassReturn
	ClassLeave
)

// Param is one paramlist entry: a key symbol plus its fulfillment class.
// Ion keeps typesets as a simple "any type accepted" placeholder, full
// per-parameter type constraint checking is not exercised by any of
// spec.md's testable properties, so Param carries the class the
// evaluator's argument loop actually branches on and nothing else.
type Param struct {
	Symbol series.SymbolID
	Class  Class
}

// Dispatcher is the Go equivalent of the spec's body-holder "misc.dispatcher
// raw C function pointer": it reads fulfilled args from frame state (via
// the Args callback) and writes a result into out, returning an error
// for a FAIL. A THROW is not reported through this return value: the
// native records it on the evaluator's trap stack.
type Dispatcher func(args Args, out *cell.Cell) error

// Args is the minimal view a Dispatcher needs into its call frame's
// fulfilled arguments, internal/eval implements this over its own Frame
// type; fn does not know Frame's shape, only this interface.
type Args interface {
	Arg(index int) *cell.Cell
	Count() int
}

// Value is one function value: its parameter list (a Go slice of Param,
// read 0-based through ParamAt, not a series array), its dispatcher, and
// whether it is bound enfix.
//
// spec.md §4.4's "Enfix / deferral rules" also names a defers_lookback
// property (an enfix function whose first parameter is HARD_QUOTE/
// SOFT_QUOTE completes exactly one left-hand step and dampens its
// parent frame's further lookahead so chains don't cascade past it).
// Ion does not implement that distinction: see DESIGN.md's "Enfix
// dampening cessation" Open-Question answer for why it is treated as a
// Non-goal rather than a partially-wired field.
type Value struct {
	Params     []Param
	Dispatcher Dispatcher
	Name       string // diagnostic only; not part of identity
	Enfix      bool
}

// New builds a function value.
func New(name string, params []Param, d Dispatcher) *Value {
	return &Value{Params: params, Dispatcher: d, Name: name}
}

// ErrArity is returned by Arity-sensitive callers when an index is out
// of a function's declared parameter range.
var ErrArity = fmt.Errorf("fn: parameter index out of range")

// ParamAt returns the 0-based parameter descriptor.
func (v *Value) ParamAt(i int) (Param, error) {
	if i < 0 || i >= len(v.Params) {
		return Param{}, ErrArity
	}
	return v.Params[i], nil
}

// Arity is the declared parameter count (including refinements/locals).
func (v *Value) Arity() int { return len(v.Params) }

// ID is the opaque handle a KindFunction cell's payload carries
// (cell.SetFunctionID); it indexes a Table, not a series pool.
type ID uint32

// Table holds every function value the boot image and user code define
// for one evaluator instance, the Go-side analogue of the source
// lineage's global function-value arena, scoped per instance instead of
// process-wide (spec.md §9 "package as an evaluator-instance handle").
type Table struct {
	values []*Value
}

// NewTable creates an empty function table.
func NewTable() *Table { return &Table{} }

// Register adds v and returns its stable id. Ids are never reused.
func (t *Table) Register(v *Value) ID {
	t.values = append(t.values, v)
	return ID(len(t.values))
}

// Get resolves an id to its Value, or ok=false for id 0 or an id never
// registered in this table.
func (t *Table) Get(id ID) (*Value, bool) {
	if id == 0 || int(id) > len(t.values) {
		return nil, false
	}
	return t.values[id-1], true
}

// Len is the number of registered functions, for diagnostics.
func (t *Table) Len() int { return len(t.values) }
