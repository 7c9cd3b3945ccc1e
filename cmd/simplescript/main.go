/*
File    : simplescript/cmd/simplescript/main.go
Author  : Akash Maji
Contact : akashmaji(@iisc.ac.in)
*/

// Package main is the entry point for the SimpleScript interpreter.
// Unlike the teacher's REPL-first `go-mix/main.go`, SS's Non-goals
// (spec.md §1) exclude a REPL/debugger, so the CLI keeps only the
// positional-filename invocation spec.md §6 requires, built on cobra
// instead of the teacher's hand-rolled os.Args switch.
package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/akashmaji946/simplescript/compiler"
	"github.com/akashmaji946/simplescript/lexer"
	"github.com/akashmaji946/simplescript/run"
)

// VERSION is the current SimpleScript release.
var VERSION = "v1.0.0"

// AUTHOR mirrors the teacher's author attribution.
var AUTHOR = "akashmaji(@iisc.ac.in)"

// LICENSE is the software license.
var LICENSE = "MIT"

var (
	redColor    = color.New(color.FgRed)
	yellowColor = color.New(color.FgYellow)
	cyanColor   = color.New(color.FgCyan)
)

var (
	flagVerbose bool
	flagBackend string
	flagVersion bool
)

func main() {
	root := &cobra.Command{
		Use:   "simplescript [file]",
		Short: "SimpleScript - a small constants-only scripting language",
		Long: "SimpleScript executes a source file with either the tree-walking\n" +
			"interpreter or the bytecode compiler+VM (spec.md §4.6/§4.7).",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE:         runRoot,
	}
	root.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "dump token stream and chunk disassembly (debug only, unstable)")
	root.Flags().StringVar(&flagBackend, "backend", "tree", "execution backend: tree or bytecode")
	root.Flags().BoolVar(&flagVersion, "version", false, "print version information")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runRoot(cmd *cobra.Command, args []string) error {
	if flagVersion {
		showVersion()
		return nil
	}
	if len(args) == 0 {
		return cmd.Help()
	}

	if flagVerbose {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}

	var backend run.Backend
	switch flagBackend {
	case "tree":
		backend = run.Tree
	case "bytecode":
		backend = run.Bytecode
	default:
		redColor.Fprintf(os.Stderr, "[USAGE ERROR] unknown backend '%s', want 'tree' or 'bytecode'\n", flagBackend)
		os.Exit(1)
	}

	return runFile(args[0], backend)
}

func showVersion() {
	cyanColor.Println("SimpleScript - a small constants-only scripting language")
	cyanColor.Printf("Version: %s\n", VERSION)
	cyanColor.Printf("License: %s\n", LICENSE)
	cyanColor.Printf("Author : %s\n", AUTHOR)
}

// runFile reads and executes a SimpleScript source file (spec.md §6).
// Exit 0 on success, non-zero on any scanner, parser, resolver,
// type-check, compile, or runtime error.
func runFile(fileName string, backend run.Backend) error {
	source, err := os.ReadFile(fileName)
	if err != nil {
		redColor.Fprintf(os.Stderr, "[FILE ERROR] could not read file '%s': %v\n", fileName, err)
		os.Exit(1)
	}

	if flagVerbose {
		dumpVerbose(fileName, string(source), backend)
	}

	if err := run.Source(backend, string(source), os.Stdout); err != nil {
		redColor.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
	return nil
}

// dumpVerbose prints the token stream and, for the bytecode backend,
// the compiled chunk's disassembly, gated behind --verbose the way
// the teacher gated its commented-out printAST call (spec.md §6's
// "verbose mode, debug builds only, not a stable interface").
func dumpVerbose(fileName, source string, backend run.Backend) {
	sc := lexer.NewScanner(source)
	tokens, err := sc.ScanTokens()
	if err != nil {
		logrus.Debugf("scan error during verbose dump: %v", err)
		return
	}
	logrus.Debugln("== tokens ==")
	for _, tok := range tokens {
		logrus.Debugln(tok.String())
	}

	if backend != run.Bytecode {
		return
	}
	chunk, err := compiler.Compile(tokens)
	if err != nil {
		logrus.Debugf("compile error during verbose dump: %v", err)
		return
	}
	logrus.Debugln(chunk.Disassemble(fileName))
}
