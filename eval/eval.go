/*
File    : simplescript/eval/eval.go
Author  : Akash Maji
Contact : akashmaji(@iisc.ac.in)
*/

// Package eval implements the tree-walking evaluator described in
// spec.md §4.5: it executes statements sequentially over a mutably-
// swapped Scope reference, using the resolver's scope-distance
// annotations for identifier reads and a Return sentinel to unwind
// nested blocks up to the enclosing call frame.
package eval

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/akashmaji946/simplescript/function"
	"github.com/akashmaji946/simplescript/lexer"
	"github.com/akashmaji946/simplescript/objects"
	"github.com/akashmaji946/simplescript/parser"
	"github.com/akashmaji946/simplescript/scope"
	"github.com/akashmaji946/simplescript/sserr"
)

// RuntimeError is raised for any condition the resolver/type checker
// did not (or, defensively, could not) rule out ahead of time, per
// spec.md §7's RuntimeError taxonomy.
type RuntimeError struct {
	Line    int
	Message string
}

func (e *RuntimeError) Error() string {
	return sserr.Format("Runtime", e.Line, e.Message)
}

// Interpreter walks a resolved AST, evaluating it against a chain of
// Scopes rooted at globals.
type Interpreter struct {
	globals *scope.Scope
	env     *scope.Scope
	writer  io.Writer
}

// NewInterpreter returns an Interpreter with the `clock` prelude
// installed in the global scope (spec.md §4.5).
func NewInterpreter() *Interpreter {
	globals := scope.New(nil)
	_ = globals.Define("clock", &function.Native{
		Name: "clock",
		Arg:  0,
		Fn: func(args []objects.Value) (objects.Value, error) {
			return &objects.Number{Value: float64(time.Now().UnixMilli())}, nil
		},
	})
	return &Interpreter{globals: globals, env: globals, writer: os.Stdout}
}

// SetWriter redirects `print` output; tests use this to capture output
// for the tree-walker/VM equivalence property (spec.md §8).
func (i *Interpreter) SetWriter(w io.Writer) { i.writer = w }

// Run executes a resolved, type-checked program to completion or to
// the first runtime error.
func (i *Interpreter) Run(stmts []parser.Stmt) error {
	for _, stmt := range stmts {
		if _, err := i.exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// exec evaluates one statement. It returns a non-nil *objects.Return
// only when a Return statement fires directly, or when one bubbles up
// unresolved from a nested block — exec never unwraps it; only
// callFunction does, at the call boundary (spec.md §4.5).
func (i *Interpreter) exec(stmt parser.Stmt) (*objects.Return, error) {
	switch s := stmt.(type) {
	case *parser.ExprStmt:
		_, err := i.eval(s.Expression)
		return nil, err
	case *parser.IgnoreStmt:
		_, err := i.eval(s.Expression)
		return nil, err
	case *parser.PrintStmt:
		v, err := i.eval(s.Expression)
		if err != nil {
			return nil, err
		}
		fmt.Fprintln(i.writer, display(v))
		return nil, nil
	case *parser.ConstStmt:
		v, err := i.eval(s.Initializer)
		if err != nil {
			return nil, err
		}
		if err := i.env.Define(s.Name.Lexeme, v); err != nil {
			return nil, &RuntimeError{Line: s.Name.Line, Message: err.Error()}
		}
		return nil, nil
	case *parser.BlockStmt:
		return i.execBlock(s, scope.New(i.env))
	case *parser.IfStmt:
		return i.execIf(s)
	case *parser.WhileStmt:
		return i.execWhile(s)
	case *parser.FuncStmt:
		fn := i.makeFunction(s)
		if s.Name.Type != "" {
			if err := i.env.Define(s.Name.Lexeme, fn); err != nil {
				return nil, &RuntimeError{Line: s.Name.Line, Message: err.Error()}
			}
		}
		return nil, nil
	case *parser.ReturnStmt:
		v, err := i.eval(s.Value)
		if err != nil {
			return nil, err
		}
		return &objects.Return{Value: v}, nil
	default:
		return nil, &RuntimeError{Message: fmt.Sprintf("internal: unknown statement %T", stmt)}
	}
}

// display renders a Value the way `print` shows it: strings quoted
// with '…' (spec.md §8 scenario 2), everything else via Value.String.
func display(v objects.Value) string {
	if s, ok := v.(*objects.String); ok {
		return s.Quoted()
	}
	if arr, ok := v.(*objects.Array); ok {
		return arr.String()
	}
	return v.String()
}

// execBlock runs stmts in scope env, restoring the interpreter's
// previous env on every exit path (including errors), per spec.md
// §4.5.
func (i *Interpreter) execBlock(block *parser.BlockStmt, env *scope.Scope) (*objects.Return, error) {
	prev := i.env
	i.env = env
	defer func() { i.env = prev }()

	for _, stmt := range block.Statements {
		ret, err := i.exec(stmt)
		if err != nil {
			return nil, err
		}
		if ret != nil {
			return ret, nil
		}
	}
	return nil, nil
}

func (i *Interpreter) execIf(s *parser.IfStmt) (*objects.Return, error) {
	condVal, err := i.eval(s.Condition)
	if err != nil {
		return nil, err
	}
	cond, ok := objects.AsBool(condVal)
	if !ok {
		return nil, &RuntimeError{Line: s.Line, Message: "if condition must be Bool"}
	}
	if cond {
		return i.exec(s.Then)
	}
	if s.Else != nil {
		return i.exec(s.Else)
	}
	return nil, nil
}

func (i *Interpreter) execWhile(s *parser.WhileStmt) (*objects.Return, error) {
	for {
		condVal, err := i.eval(s.Condition)
		if err != nil {
			return nil, err
		}
		cond, ok := objects.AsBool(condVal)
		if !ok {
			return nil, &RuntimeError{Line: s.Line, Message: "while condition must be Bool"}
		}
		if !cond {
			return nil, nil
		}
		ret, err := i.exec(s.Body)
		if err != nil {
			return nil, err
		}
		if ret != nil {
			return ret, nil
		}
	}
}

// makeFunction captures the interpreter's current scope as the
// closure environment (spec.md §4.5). Recursion works because, for a
// named declaration, the caller (exec) defines the function's own
// binding into this same scope right after makeFunction returns — the
// Scope is a pointer, so the closure observes the mutation.
func (i *Interpreter) makeFunction(decl *parser.FuncStmt) *function.Function {
	params := make([]string, len(decl.Params))
	for idx, p := range decl.Params {
		params[idx] = p.Lexeme
	}
	return &function.Function{
		Name:   decl.Name.Lexeme,
		Params: params,
		Body:   decl.Body,
		Scope:  i.env,
	}
}

func (i *Interpreter) eval(expr parser.Expr) (objects.Value, error) {
	switch e := expr.(type) {
	case *parser.LiteralExpr:
		return literalValue(e), nil
	case *parser.GroupingExpr:
		return i.eval(e.Inner)
	case *parser.UnaryExpr:
		return i.evalUnary(e)
	case *parser.BinaryExpr:
		return i.evalBinary(e)
	case *parser.LogicalExpr:
		return i.evalLogical(e)
	case *parser.IdentifierExpr:
		v, err := i.env.GetAt(e.Distance, e.Name.Lexeme)
		if err != nil {
			return nil, &RuntimeError{Line: e.Name.Line, Message: err.Error()}
		}
		return v, nil
	case *parser.CallExpr:
		return i.evalCall(e)
	case *parser.AnonymousFuncExpr:
		return i.makeFunction(e.Decl), nil
	case *parser.ArrayExpr:
		return i.evalArray(e)
	case *parser.ArrayAccessExpr:
		return i.evalArrayAccess(e)
	default:
		return nil, &RuntimeError{Message: fmt.Sprintf("internal: unknown expression %T", expr)}
	}
}

func literalValue(lit *parser.LiteralExpr) objects.Value {
	switch lit.Value.Kind {
	case lexer.LiteralNumber:
		return &objects.Number{Value: lit.Value.Num}
	case lexer.LiteralString:
		return &objects.String{Value: lit.Value.Str}
	case lexer.LiteralBool:
		return &objects.Bool{Value: lit.Value.Bool}
	default:
		return &objects.Null{}
	}
}

func (i *Interpreter) evalUnary(e *parser.UnaryExpr) (objects.Value, error) {
	v, err := i.eval(e.Operand)
	if err != nil {
		return nil, err
	}
	switch e.Op.Type {
	case lexer.BANG:
		b, ok := v.(*objects.Bool)
		if !ok {
			return nil, &RuntimeError{Line: e.Op.Line, Message: "'!' requires a Bool operand"}
		}
		return &objects.Bool{Value: !b.Value}, nil
	case lexer.MINUS:
		n, ok := v.(*objects.Number)
		if !ok {
			return nil, &RuntimeError{Line: e.Op.Line, Message: "unary '-' requires a Number operand"}
		}
		return &objects.Number{Value: -n.Value}, nil
	default:
		return nil, &RuntimeError{Message: "internal: bad unary operator"}
	}
}

func (i *Interpreter) evalBinary(e *parser.BinaryExpr) (objects.Value, error) {
	left, err := i.eval(e.Left)
	if err != nil {
		return nil, err
	}
	right, err := i.eval(e.Right)
	if err != nil {
		return nil, err
	}
	line := e.Op.Line
	switch e.Op.Type {
	case lexer.PLUS:
		if ln, ok := left.(*objects.Number); ok {
			if rn, ok := right.(*objects.Number); ok {
				return &objects.Number{Value: ln.Value + rn.Value}, nil
			}
		}
		if ls, ok := left.(*objects.String); ok {
			if rs, ok := right.(*objects.String); ok {
				return &objects.String{Value: ls.Value + rs.Value}, nil
			}
		}
		return nil, &RuntimeError{Line: line, Message: fmt.Sprintf("'+' type error: %s + %s", left.Type(), right.Type())}
	case lexer.MINUS, lexer.STAR, lexer.SLASH:
		ln, lok := left.(*objects.Number)
		rn, rok := right.(*objects.Number)
		if !lok || !rok {
			return nil, &RuntimeError{Line: line, Message: fmt.Sprintf("'%s' type error: %s, %s", e.Op.Type, left.Type(), right.Type())}
		}
		switch e.Op.Type {
		case lexer.MINUS:
			return &objects.Number{Value: ln.Value - rn.Value}, nil
		case lexer.STAR:
			return &objects.Number{Value: ln.Value * rn.Value}, nil
		default:
			return &objects.Number{Value: ln.Value / rn.Value}, nil
		}
	case lexer.EQUAL_EQUAL:
		return &objects.Bool{Value: objects.Equal(left, right)}, nil
	case lexer.BANG_EQUAL:
		return &objects.Bool{Value: !objects.Equal(left, right)}, nil
	case lexer.LESS, lexer.LESS_EQUAL, lexer.GREATER, lexer.GREATER_EQUAL:
		ln, lok := left.(*objects.Number)
		rn, rok := right.(*objects.Number)
		if !lok || !rok {
			return nil, &RuntimeError{Line: line, Message: "comparison requires Number operands"}
		}
		switch e.Op.Type {
		case lexer.LESS:
			return &objects.Bool{Value: ln.Value < rn.Value}, nil
		case lexer.LESS_EQUAL:
			return &objects.Bool{Value: ln.Value <= rn.Value}, nil
		case lexer.GREATER:
			return &objects.Bool{Value: ln.Value > rn.Value}, nil
		default:
			return &objects.Bool{Value: ln.Value >= rn.Value}, nil
		}
	default:
		return nil, &RuntimeError{Message: "internal: bad binary operator"}
	}
}

// evalLogical implements short-circuiting `and`/`or`: the right
// operand is not evaluated unless the left one requires it (spec.md
// §4.5/§8).
func (i *Interpreter) evalLogical(e *parser.LogicalExpr) (objects.Value, error) {
	leftVal, err := i.eval(e.Left)
	if err != nil {
		return nil, err
	}
	left, ok := objects.AsBool(leftVal)
	if !ok {
		return nil, &RuntimeError{Line: e.Op.Line, Message: fmt.Sprintf("'%s' requires Bool operands", e.Op.Type)}
	}
	if e.Op.Type == lexer.OR && left {
		return leftVal, nil
	}
	if e.Op.Type == lexer.AND && !left {
		return leftVal, nil
	}
	rightVal, err := i.eval(e.Right)
	if err != nil {
		return nil, err
	}
	if _, ok := objects.AsBool(rightVal); !ok {
		return nil, &RuntimeError{Line: e.Op.Line, Message: fmt.Sprintf("'%s' requires Bool operands", e.Op.Type)}
	}
	return rightVal, nil
}

func (i *Interpreter) evalArray(e *parser.ArrayExpr) (objects.Value, error) {
	elems := make([]objects.Value, len(e.Elements))
	for idx, el := range e.Elements {
		v, err := i.eval(el)
		if err != nil {
			return nil, err
		}
		elems[idx] = v
	}
	return &objects.Array{Elements: elems}, nil
}

func (i *Interpreter) evalArrayAccess(e *parser.ArrayAccessExpr) (objects.Value, error) {
	arrVal, err := i.eval(e.Array)
	if err != nil {
		return nil, err
	}
	arr, ok := arrVal.(*objects.Array)
	if !ok {
		return nil, &RuntimeError{Message: "indexing target must be an Array"}
	}
	idxVal, err := i.eval(e.Index)
	if err != nil {
		return nil, err
	}
	idxNum, ok := idxVal.(*objects.Number)
	if !ok {
		return nil, &RuntimeError{Message: "array index must be a Number"}
	}
	idx := int(idxNum.Value)
	if idx < 0 || idx >= len(arr.Elements) {
		return nil, &RuntimeError{Message: fmt.Sprintf("ArrayOutOfBounds: index %d, length %d", idx, len(arr.Elements))}
	}
	return arr.Elements[idx], nil
}

// evalCall evaluates the callee and each argument left-to-right before
// dispatch (spec.md §5), then invokes the resulting Callable.
func (i *Interpreter) evalCall(e *parser.CallExpr) (objects.Value, error) {
	calleeVal, err := i.eval(e.Callee)
	if err != nil {
		return nil, err
	}
	callee, ok := calleeVal.(objects.Callable)
	if !ok {
		return nil, &RuntimeError{Line: e.RightParen.Line, Message: fmt.Sprintf("call on non-callable value of type %s", calleeVal.Type())}
	}

	args := make([]objects.Value, len(e.Args))
	for idx, a := range e.Args {
		v, err := i.eval(a)
		if err != nil {
			return nil, err
		}
		args[idx] = v
	}

	if callee.Arity() != len(args) {
		return nil, &RuntimeError{Line: e.RightParen.Line, Message: fmt.Sprintf("expected %d arguments, got %d", callee.Arity(), len(args))}
	}

	switch fn := callee.(type) {
	case *function.Function:
		return i.callFunction(fn, args)
	case *function.Native:
		return fn.Fn(args)
	default:
		return nil, &RuntimeError{Message: "internal: unknown callable kind"}
	}
}

// callFunction constructs a child scope of the closure's captured
// scope (not the caller's — spec.md §4.5), binds parameters
// positionally, interprets the body, and unwraps the Return sentinel
// at this call boundary. A body that completes without an explicit
// return yields Null.
func (i *Interpreter) callFunction(fn *function.Function, args []objects.Value) (objects.Value, error) {
	callScope := scope.New(fn.Scope)
	for idx, param := range fn.Params {
		if err := callScope.Define(param, args[idx]); err != nil {
			return nil, &RuntimeError{Message: err.Error()}
		}
	}
	ret, err := i.execBlock(fn.Body, callScope)
	if err != nil {
		return nil, err
	}
	if ret != nil {
		return ret.Value, nil
	}
	return &objects.Null{}, nil
}
