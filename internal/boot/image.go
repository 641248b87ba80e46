// Package boot assembles the boot image spec.md §6.6 names: the canon
// symbol list, built-in context shapes, native dispatcher table, and
// error templates an evaluator instance starts from. spec.md treats all
// of this as produced by external tooling and out of scope for the core
// to *build*. Image is the consumer side: an in-memory structure an
// evaluator instance is initialized from, built fresh here since no
// teacher package ships anything resembling it (the teacher bakes its
// standard library into the binary rather than data-driving it).
package boot

import (
	"fmt"

	"ion/internal/errkind"
	"ion/internal/eval"
)

// ErrorTemplate is one entry of the boot image's error-template table
// (spec.md §6.6): a stable code plus the kind/message an instantiation
// starts from, before WithWhere/WithNear/WithArgs add call-site context.
type ErrorTemplate struct {
	Kind    errkind.Kind
	Code    string
	Message string
}

// Image is the in-memory boot image: the canon word list every fresh
// evaluator instance interns up front (spec.md §3.1's "interned
// canon-symbol table... mutated only by word creation and GC sweep"),
// plus the named error templates a host can instantiate by code instead
// of constructing an *errkind.Error by hand.
type Image struct {
	Name      string
	CanonWords []string
	Templates []ErrorTemplate
}

// canonWords lists every spelling Ion's own natives and core control
// words reference by name, interned eagerly so no script-supplied word
// ever has to pay the interning cost for a word the core already knows
// about. Mirrors spec.md §9's "global root cells... Blank, True/False
// singletons" list, generalized to every word builtins.go binds plus the
// handful spec.md's control flow names explicitly (if/either/while are
// named in spec.md §1's scope note as dialect-level, so they are not
// interned here, only the words Ion's own natives and data model use).
var canonWords = []string{
	"blank", "true", "false", "none",
	"+", "-", "*", "/",
	"trap", "throw", "catch",
	"value1", "value2", "name", "value", "body", "flag",
	"self",
}

// defaultTemplates mirrors errkind's canned constructors (spec.md §4.5's
// worked error examples) as boot-image data, so a host can look one up
// by code ("zero-divide") without importing errkind's constructor names
// directly.
var defaultTemplates = []ErrorTemplate{
	{errkind.KindMath, "zero-divide", "attempt to divide by zero"},
	{errkind.KindInternal, "no-catch-for-throw", "no catch for this throw"},
	{errkind.KindInternal, "invalid-cell-access", "attempt to read a freed or out-of-range cell"},
	{errkind.KindScript, "expect-arg", "argument does not match the expected type"},
	{errkind.KindScript, "not-bound", "word has no value"},
	{errkind.KindScript, "locked-series", "attempt to modify a protected or frozen series"},
	{errkind.KindScript, "protected-word", "attempt to set a protected word"},
	{errkind.KindScript, "out-of-range", "index out of range"},
	{errkind.KindInternal, "out-of-memory", "not enough memory"},
	{errkind.KindScript, "bad-refines", "refinement arguments passed without their refinement"},
}

// Default returns the boot image a standalone Ion process starts from.
func Default() *Image {
	return &Image{Name: "default", CanonWords: append([]string(nil), canonWords...), Templates: append([]ErrorTemplate(nil), defaultTemplates...)}
}

// Template looks up one named error template.
func (img *Image) Template(code string) (ErrorTemplate, bool) {
	for _, t := range img.Templates {
		if t.Code == code {
			return t, true
		}
	}
	return ErrorTemplate{}, false
}

// NewEvaluator builds a fresh evaluator instance from img: it runs
// eval.Bootstrap (natives + Lib context) and then interns every canon
// word the image lists, so a word lookup against one of them never pays
// the first-use interning cost mid-script.
func NewEvaluator(img *Image) *eval.Evaluator {
	ev := eval.Bootstrap()
	for _, w := range img.CanonWords {
		ev.Syms.Intern(w)
	}
	return ev
}

// Instantiate registers a copy of the named template as a live
// *errkind.Error in ev's error table, returning the id a KindError cell
// can carry (cell.SetErrorID), the boot-image analogue of spec.md §6.6's
// "error templates" feeding a MAKE ERROR! style constructor.
func (img *Image) Instantiate(ev *eval.Evaluator, code string, where string) (uint32, error) {
	t, ok := img.Template(code)
	if !ok {
		return 0, fmt.Errorf("boot: no error template named %q", code)
	}
	e := errkind.New(t.Kind, t.Code, t.Message).WithWhere(where)
	return ev.Errors.Register(e), nil
}
