// Package hostlib implements the host callback table spec.md §6.5
// describes: the handful of operations the evaluator core needs from its
// embedding host (print a value, allocate an OS-string buffer, read the
// clock, halt the process) expressed as a struct of function fields
// rather than package-level globals. internal/eval does not import this
// package: an evaluator instance neither takes nor calls a Table.
// Grounded on the
// teacher's pattern of passing a *debugger.DebugHook / *module.ModuleLoader
// into the VM/loader rather than having the VM call package functions
// directly.
package hostlib

import (
	"fmt"
	"os"
	"time"
)

// Table is the full host callback surface. Every field is a plain Go
// function value, so a test can substitute one without needing an
// interface or a mock framework.
type Table struct {
	Print         func(s string)
	AllocOSString func(n int) []byte
	Now           func() time.Time
	Panic         func(code int)
}

// Default returns the table a standalone CLI/REPL process constructs:
// Print writes to stdout, AllocOSString is a plain make([]byte, n), Now
// is the real wall clock, and Panic calls os.Exit.
func Default() *Table {
	return &Table{
		Print:         func(s string) { fmt.Print(s) },
		AllocOSString: func(n int) []byte { return make([]byte, n) },
		Now:           time.Now,
		Panic:         os.Exit,
	}
}

// Recording is a test-only Table implementation that captures every call
// instead of touching the real process, the same role the teacher's
// test-double DebugHook implementations play against EnhancedVM.
type Recording struct {
	Printed []string
	Panics  []int
	clock   time.Time
}

// NewRecording builds a Recording table pinned to a fixed clock value so
// tests stay deterministic (spec.md's standing rule against Date.now()-
// shaped nondeterminism in test fixtures applies here too).
func NewRecording(clock time.Time) *Recording {
	return &Recording{clock: clock}
}

func (r *Recording) Table() *Table {
	return &Table{
		Print:         func(s string) { r.Printed = append(r.Printed, s) },
		AllocOSString: func(n int) []byte { return make([]byte, n) },
		Now:           func() time.Time { return r.clock },
		Panic:         func(code int) { r.Panics = append(r.Panics, code) },
	}
}
