// Package replshell implements the interactive read-eval-print loop,
// grounded on the teacher's internal/repl/repl.go: a bufio.Scanner over
// stdin, one persistent interpreter instance reused across lines, a
// literal "exit" sentinel to quit. Ion's loop replaces the teacher's
// lexer->parser->compiler->VM pipeline with internal/boot.Loader feeding
// internal/eval.Evaluator directly, since scanning/parsing the full
// dialect grammar is out of scope (SPEC_FULL §1).
package replshell

import (
	"bufio"
	"fmt"
	"io"

	"ion/internal/boot"
	"ion/internal/bind"
	"ion/internal/cell"
	"ion/internal/eval"
)

// Shell is one REPL session: the evaluator instance lines are run
// against, and the streams it reads from / writes to.
type Shell struct {
	ev  *eval.Evaluator
	in  *bufio.Scanner
	out io.Writer
}

// New builds a shell over img's evaluator instance, reading lines from
// in and writing prompts/results to out.
func New(img *boot.Image, in io.Reader, out io.Writer) *Shell {
	return &Shell{ev: boot.NewEvaluator(img), in: bufio.NewScanner(in), out: out}
}

// Run drives the loop until "exit" is entered or the input stream ends.
func (s *Shell) Run() {
	fmt.Fprintln(s.out, "Ion REPL | type 'exit' to quit")
	for {
		fmt.Fprint(s.out, ">> ")
		if !s.in.Scan() {
			return
		}
		line := s.in.Text()
		if line == "exit" {
			return
		}
		if line == "" {
			continue
		}
		s.evalLine(line)
	}
}

func (s *Shell) evalLine(line string) {
	loader := boot.NewLoader(s.ev.Heap, s.ev.Syms, line)
	block, err := loader.Load()
	if err != nil {
		fmt.Fprintf(s.out, "** syntax error: %v\n", err)
		return
	}
	bind.Deep(s.ev.Heap, s.ev.Lib, block, bind.ModeDeep, bind.NewTable())

	var result cell.Cell
	if err := s.ev.Run(block, &result); err != nil {
		fmt.Fprintf(s.out, "** %v\n", err)
		return
	}
	printResult(s.out, &result)
}

func printResult(out io.Writer, c *cell.Cell) {
	switch c.Kind() {
	case cell.KindInteger:
		fmt.Fprintln(out, c.Integer())
	case cell.KindDecimal:
		fmt.Fprintln(out, c.Decimal())
	case cell.KindLogic:
		fmt.Fprintln(out, c.Logic())
	case cell.KindBlank:
		fmt.Fprintln(out, "_")
	case cell.KindError:
		fmt.Fprintf(out, "** error! id=%d\n", c.ErrorID())
	default:
		fmt.Fprintf(out, "== %s\n", c.Kind())
	}
}
