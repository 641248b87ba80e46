// Package errkind implements the error taxonomy spec.md §4.5/§7
// describes: every FAIL produces "a standard layout (id, code, message,
// where, near, args)". It is a direct, fluent-builder adaptation of the
// teacher's internal/errors.SentraError, same With*-chain shape and
// Error() rendering, generalized from "syntax/runtime/type/reference"
// source-file errors to the spec's own kind taxonomy (math, script,
// user, internal) and its where/near/args error-context fields instead
// of a file/line/column source location.
package errkind

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Kind is the top-level taxonomy spec.md §4.5 names in its "Error
// kinds" sketch: math errors (zero divide, overflow), script errors
// (bad argument, word not bound, protected), user errors (an explicit
// FAIL message), and internal errors (no catch for throw, invalid cell
// access, invariant violations a debug build would also assert).
type Kind string

const (
	KindMath     Kind = "math-error"
	KindScript   Kind = "script-error"
	KindUser     Kind = "user-error"
	KindInternal Kind = "internal-error"
)

// Error is one error context's Go-side representation, the in-memory
// shape an internal/trap FAIL carries. internal/eval keeps it in its
// ErrorTable, and error! cells refer to it by id.
type Error struct {
	ID      string // correlation id (github.com/google/uuid), stable across With* calls
	Kind    Kind
	Code    string // short machine-stable name: "zero-divide", "no-catch-for-throw"
	Message string
	Where   string   // function/frame label the error surfaced from
	Near    string   // a short rendering of the source position, if any
	Args    []string // formatted argument values for message interpolation
}

// New creates an error with a fresh correlation id.
func New(kind Kind, code, message string) *Error {
	return &Error{ID: uuid.NewString(), Kind: kind, Code: code, Message: message}
}

// Error implements the error interface, mirroring the teacher's
// SentraError.Error() layout (kind: message, then where/near context).
func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s: %s", e.Kind, e.Message))
	if e.Where != "" {
		sb.WriteString(fmt.Sprintf("\n  at %s", e.Where))
	}
	if e.Near != "" {
		sb.WriteString(fmt.Sprintf("\n  near: %s", e.Near))
	}
	if len(e.Args) > 0 {
		sb.WriteString(fmt.Sprintf("\n  args: %s", strings.Join(e.Args, ", ")))
	}
	return sb.String()
}

// WithWhere / WithNear / WithArgs are fluent builders, matching the
// teacher's WithSource/WithStack/AddStackFrame chain shape.
func (e *Error) WithWhere(where string) *Error {
	e.Where = where
	return e
}

func (e *Error) WithNear(near string) *Error {
	e.Near = near
	return e
}

func (e *Error) WithArgs(args ...string) *Error {
	e.Args = append(e.Args, args...)
	return e
}

// --- canned constructors for the error.kinds spec.md §4.5/§8 name directly ---

func ZeroDivide() *Error {
	return New(KindMath, "zero-divide", "attempt to divide by zero")
}

func NoCatchForThrow(label string) *Error {
	return New(KindInternal, "no-catch-for-throw", fmt.Sprintf("no catch for throw %q", label))
}

func InvalidCellAccess() *Error {
	return New(KindInternal, "invalid-cell-access", "attempt to read a freed or out-of-range cell")
}

func ArgType(funcName, paramName, gotKind string) *Error {
	return New(KindScript, "expect-arg",
		fmt.Sprintf("%s does not allow %s for its %s argument", funcName, gotKind, paramName))
}

func WordNotBound(spelling string) *Error {
	return New(KindScript, "not-bound", fmt.Sprintf("%s has no value", spelling))
}

func LockedSeries() *Error {
	return New(KindScript, "locked-series", "attempt to modify a protected or frozen series")
}

// ProtectedWord is LockedSeries's path-assignment sibling: spec.md §8
// scenario 6 names "protected-word" specifically for a set-path write
// through a protected object, distinct from scenario 5's "locked-series"
// (appending into a frozen block). Same underlying mechanism (a node's
// protected bit), different code because the two scenarios name
// different strings verbatim.
func ProtectedWord() *Error {
	return New(KindScript, "protected-word", "attempt to set a protected word")
}

func IndexOutOfRange() *Error {
	return New(KindScript, "out-of-range", "index out of range")
}

func OutOfMemory() *Error {
	return New(KindInternal, "out-of-memory", "not enough memory")
}

func BadRefines(funcName string) *Error {
	return New(KindScript, "bad-refines",
		fmt.Sprintf("%s: refinement arguments passed without their refinement", funcName))
}

func UserFail(message string) *Error {
	return New(KindUser, "user", message)
}
