// cmd/ion/main.go
package main

import (
	"fmt"
	"log"
	"os"

	"ion/internal/bind"
	"ion/internal/boot"
	"ion/internal/cell"
	"ion/internal/replshell"
)

const version = "0.1.0"

// commandAliases mirrors the teacher's cmd/sentra/main.go short-form
// dispatch table, narrowed to the commands Ion actually has.
var commandAliases = map[string]string{
	"r": "run",
	"i": "repl",
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		showUsage()
		return
	}

	cmd := args[0]
	if alias, ok := commandAliases[cmd]; ok {
		cmd = alias
	}

	switch cmd {
	case "--help", "-h", "help":
		showUsage()
	case "--version", "-v", "version":
		fmt.Println("ion", version)
	case "repl":
		replshell.New(boot.Default(), os.Stdin, os.Stdout).Run()
	case "run":
		if len(args) < 2 {
			log.Fatal("usage: ion run <file>")
		}
		if err := runFile(args[1]); err != nil {
			log.Fatalf("error: %v", err)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		showUsage()
		os.Exit(1)
	}
}

func runFile(path string) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read file: %w", err)
	}

	img := boot.Default()
	ev := boot.NewEvaluator(img)

	loader := boot.NewLoader(ev.Heap, ev.Syms, string(source))
	block, err := loader.Load()
	if err != nil {
		return fmt.Errorf("syntax error: %w", err)
	}
	bind.Deep(ev.Heap, ev.Lib, block, bind.ModeDeep, bind.NewTable())

	var out cell.Cell
	if err := ev.Run(block, &out); err != nil {
		return err
	}
	return nil
}

func showUsage() {
	fmt.Println(`ion - a small homoiconic interpreter

Usage:
  ion run <file>     run a source file
  ion repl           start an interactive session
  ion version        print the version
  ion help           show this message

Aliases: r=run, i=repl`)
}
