/*
File    : simplescript/function/function.go
Author  : Akash Maji
Contact : akashmaji(@iisc.ac.in)
*/

// Package function defines the user-defined closure value and the
// native-function wrapper used for the `clock` builtin, grounded on
// original_source/ri/src/value/function.rs and
// original_source/ri/src/callables/native/clock/default.rs: a closure
// captures a strong reference to its definition-time Scope, and native
// callables are a distinct implementation of the same Callable
// interface (spec.md §4.5).
package function

import (
	"fmt"

	"github.com/akashmaji946/simplescript/objects"
	"github.com/akashmaji946/simplescript/parser"
	"github.com/akashmaji946/simplescript/scope"
)

// Function is a user-defined closure: its declaration AST plus the
// Scope active when it was declared.
type Function struct {
	Name   string
	Params []string
	Body   *parser.BlockStmt
	Scope  *scope.Scope
}

func (f *Function) Type() objects.SSType { return objects.FuncType }

func (f *Function) String() string {
	name := f.Name
	if name == "" {
		name = "anonymous"
	}
	return fmt.Sprintf("<func %s/%d>", name, len(f.Params))
}

func (f *Function) Arity() int { return len(f.Params) }

var _ objects.Callable = (*Function)(nil)

// NativeFn is the signature of a builtin implementation.
type NativeFn func(args []objects.Value) (objects.Value, error)

// Native wraps a builtin function (only `clock` in SimpleScript,
// spec.md §4.5/§6) behind the same Callable interface as a user
// Function, so the interpreter's Call handling needs no special case.
type Native struct {
	Name string
	Arg  int
	Fn   NativeFn
}

func (n *Native) Type() objects.SSType { return objects.FuncType }
func (n *Native) String() string       { return fmt.Sprintf("<native %s/%d>", n.Name, n.Arg) }
func (n *Native) Arity() int           { return n.Arg }

var _ objects.Callable = (*Native)(nil)
