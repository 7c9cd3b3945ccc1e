/*
File    : simplescript/typecheck/typecheck.go
Author  : Akash Maji
Contact : akashmaji(@iisc.ac.in)
*/

// Package typecheck implements the deferred (lazy) type-inference pass
// described in spec.md §4.4. Function parameters are typed Lazy at
// definition time and resolved to concrete types at each call site;
// recursive re-entry is broken by remembering the function identity
// currently being checked and returning Lazy for any nested call to
// it, per spec.md §4.4/§9.
package typecheck

import (
	"fmt"

	"github.com/akashmaji946/simplescript/lexer"
	"github.com/akashmaji946/simplescript/parser"
	"github.com/akashmaji946/simplescript/sserr"
)

// Kind enumerates the shapes a Type can take.
type Kind int

const (
	KindNumber Kind = iota
	KindString
	KindBool
	KindNull
	KindArray
	KindFunc
	KindLazy
)

// Type is a SimpleScript static type. Lazy compares equal to every
// other Type (see Equals), giving parametric-polymorphism-by-use
// without annotations.
type Type struct {
	Kind    Kind
	Elem    *Type     // only meaningful for KindArray
	Arity   int        // only meaningful for KindFunc
	FuncDec *parser.FuncStmt // only meaningful for KindFunc
	Closure *table           // only meaningful for KindFunc: type table at the definition site
}

var (
	Number = Type{Kind: KindNumber}
	Str    = Type{Kind: KindString}
	Bool   = Type{Kind: KindBool}
	Null   = Type{Kind: KindNull}
	Lazy   = Type{Kind: KindLazy}
)

func Array(elem Type) Type { return Type{Kind: KindArray, Elem: &elem} }

func Func(arity int, decl *parser.FuncStmt) Type {
	return Type{Kind: KindFunc, Arity: arity, FuncDec: decl}
}

// Equals reports type equality under the Lazy sentinel rule: Lazy
// equals anything, and anything equals Lazy.
func (t Type) Equals(other Type) bool {
	if t.Kind == KindLazy || other.Kind == KindLazy {
		return true
	}
	if t.Kind != other.Kind {
		return false
	}
	if t.Kind == KindArray {
		return t.Elem.Equals(*other.Elem)
	}
	return true
}

func (t Type) String() string {
	switch t.Kind {
	case KindNumber:
		return "Number"
	case KindString:
		return "String"
	case KindBool:
		return "Bool"
	case KindNull:
		return "Null"
	case KindArray:
		return fmt.Sprintf("Array(%s)", t.Elem)
	case KindFunc:
		return fmt.Sprintf("Func/%d", t.Arity)
	case KindLazy:
		return "Lazy"
	default:
		return "?"
	}
}

// ErrorKind mirrors spec.md §7's TypeError taxonomy.
type ErrorKind int

const (
	ErrUnusedValue ErrorKind = iota
	ErrUndefinedIdentifier
	ErrIdentifierAlreadyUsed
	ErrReturnOutsideFunction
	ErrTypeMismatch
	ErrInternal
)

// Error is a single type-checking failure.
type Error struct {
	Kind    ErrorKind
	Line    int
	Message string
}

func (e *Error) Error() string {
	return sserr.Format("Type", e.Line, e.Message)
}

// table is a nested scope of name -> Type, mirroring the Environment
// chain structurally (spec.md §4.4's "type table").
type table struct {
	vars   map[string]Type
	parent *table
}

func newTable(parent *table) *table {
	return &table{vars: map[string]Type{}, parent: parent}
}

func (t *table) define(name string, typ Type) { t.vars[name] = typ }

func (t *table) lookup(name string) (Type, bool) {
	for cur := t; cur != nil; cur = cur.parent {
		if typ, ok := cur.vars[name]; ok {
			return typ, true
		}
	}
	return Type{}, false
}

// inProgress tracks, by FuncStmt identity, that a function body is
// currently being type-checked, so a nested recursive call returns
// Lazy instead of re-entering (spec.md §4.4/§9).
type Checker struct {
	current    *table
	inProgress map[*parser.FuncStmt]bool
	inFunction bool
}

// NewChecker returns a Checker with the global type table seeded the
// way resolver.globalNames/eval's globals/run's runBytecode globals
// map seed "clock" (spec.md §5's Native builtin), so clock() calls
// reach checkCall's native-builtin branch instead of failing earlier
// as an undefined identifier.
func NewChecker() *Checker {
	c := &Checker{
		current:    newTable(nil),
		inProgress: map[*parser.FuncStmt]bool{},
	}
	c.current.define("clock", Func(0, nil))
	return c
}

// Check walks a top-level program, type-checking every statement.
func (c *Checker) Check(stmts []parser.Stmt) error {
	return c.checkStmts(stmts)
}

func (c *Checker) checkStmts(stmts []parser.Stmt) error {
	for _, stmt := range stmts {
		if err := c.checkStmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (c *Checker) checkStmt(stmt parser.Stmt) error {
	switch s := stmt.(type) {
	case *parser.ExprStmt:
		typ, err := c.checkExpr(s.Expression)
		if err != nil {
			return err
		}
		if typ.Kind != KindNull && typ.Kind != KindFunc {
			return &Error{Kind: ErrUnusedValue, Message: fmt.Sprintf("unused value of type %s", typ)}
		}
		return nil
	case *parser.IgnoreStmt:
		_, err := c.checkExpr(s.Expression)
		return err
	case *parser.PrintStmt:
		_, err := c.checkExpr(s.Expression)
		return err
	case *parser.ConstStmt:
		typ, err := c.checkExpr(s.Initializer)
		if err != nil {
			return err
		}
		c.current.define(s.Name.Lexeme, typ)
		return nil
	case *parser.BlockStmt:
		prev := c.current
		c.current = newTable(prev)
		err := c.checkStmts(s.Statements)
		c.current = prev
		return err
	case *parser.IfStmt:
		condType, err := c.checkExpr(s.Condition)
		if err != nil {
			return err
		}
		if !condType.Equals(Bool) {
			return &Error{Kind: ErrTypeMismatch, Line: s.Line, Message: "if condition must be Bool"}
		}
		if err := c.checkStmt(s.Then); err != nil {
			return err
		}
		if s.Else != nil {
			return c.checkStmt(s.Else)
		}
		return nil
	case *parser.WhileStmt:
		condType, err := c.checkExpr(s.Condition)
		if err != nil {
			return err
		}
		if !condType.Equals(Bool) {
			return &Error{Kind: ErrTypeMismatch, Line: s.Line, Message: "while condition must be Bool"}
		}
		return c.checkStmt(s.Body)
	case *parser.FuncStmt:
		if s.Name.Type != "" {
			fn := Func(len(s.Params), s)
			fn.Closure = c.current
			c.current.define(s.Name.Lexeme, fn)
		}
		return nil // body is checked lazily, at each call site (spec.md §4.4)
	case *parser.ReturnStmt:
		if !c.inFunction {
			return &Error{Kind: ErrReturnOutsideFunction, Line: s.Line, Message: "return used outside a function"}
		}
		_, err := c.checkExpr(s.Value)
		return err
	default:
		return &Error{Kind: ErrInternal, Message: fmt.Sprintf("TESTING: unknown statement %T", stmt)}
	}
}

func (c *Checker) checkExpr(expr parser.Expr) (Type, error) {
	switch e := expr.(type) {
	case *parser.LiteralExpr:
		return literalType(e), nil
	case *parser.GroupingExpr:
		return c.checkExpr(e.Inner)
	case *parser.UnaryExpr:
		return c.checkUnary(e)
	case *parser.BinaryExpr:
		return c.checkBinary(e)
	case *parser.LogicalExpr:
		return c.checkLogical(e)
	case *parser.IdentifierExpr:
		typ, ok := c.current.lookup(e.Name.Lexeme)
		if !ok {
			return Type{}, &Error{Kind: ErrUndefinedIdentifier, Line: e.Name.Line, Message: fmt.Sprintf("undefined identifier '%s'", e.Name.Lexeme)}
		}
		return typ, nil
	case *parser.CallExpr:
		return c.checkCall(e)
	case *parser.AnonymousFuncExpr:
		fn := Func(len(e.Decl.Params), e.Decl)
		fn.Closure = c.current
		return fn, nil
	case *parser.ArrayExpr:
		return c.checkArrayLiteral(e)
	case *parser.ArrayAccessExpr:
		return c.checkArrayAccess(e)
	default:
		return Type{}, &Error{Kind: ErrInternal, Message: fmt.Sprintf("TESTING: unknown expression %T", expr)}
	}
}

func literalType(lit *parser.LiteralExpr) Type {
	switch lit.Value.Kind {
	case lexer.LiteralNumber:
		return Number
	case lexer.LiteralString:
		return Str
	case lexer.LiteralBool:
		return Bool
	default:
		return Null
	}
}

func (c *Checker) checkUnary(e *parser.UnaryExpr) (Type, error) {
	operand, err := c.checkExpr(e.Operand)
	if err != nil {
		return Type{}, err
	}
	switch e.Op.Type {
	case "!":
		if !operand.Equals(Bool) {
			return Type{}, &Error{Kind: ErrTypeMismatch, Message: "'!' requires a Bool operand"}
		}
		return Bool, nil
	case "-":
		if !operand.Equals(Number) {
			return Type{}, &Error{Kind: ErrTypeMismatch, Message: "unary '-' requires a Number operand"}
		}
		return Number, nil
	default:
		return Type{}, &Error{Kind: ErrInternal, Message: "TESTING: bad unary operator"}
	}
}

func (c *Checker) checkBinary(e *parser.BinaryExpr) (Type, error) {
	left, err := c.checkExpr(e.Left)
	if err != nil {
		return Type{}, err
	}
	right, err := c.checkExpr(e.Right)
	if err != nil {
		return Type{}, err
	}
	switch e.Op.Type {
	case "+":
		if left.Equals(Number) && right.Equals(Number) {
			return Number, nil
		}
		if left.Equals(Str) && right.Equals(Str) {
			return Str, nil
		}
		return Type{}, &Error{Kind: ErrTypeMismatch, Message: "'+' requires (Number,Number) or (String,String)"}
	case "-", "*", "/":
		if !left.Equals(Number) || !right.Equals(Number) {
			return Type{}, &Error{Kind: ErrTypeMismatch, Message: fmt.Sprintf("'%s' requires Number operands", e.Op.Type)}
		}
		return Number, nil
	case "==", "!=":
		if !left.Equals(right) {
			return Type{}, &Error{Kind: ErrTypeMismatch, Message: "equality requires operands of the same type"}
		}
		return Bool, nil
	case "<", "<=", ">", ">=":
		if !left.Equals(Number) || !right.Equals(Number) {
			return Type{}, &Error{Kind: ErrTypeMismatch, Message: "comparison requires Number operands"}
		}
		return Bool, nil
	default:
		return Type{}, &Error{Kind: ErrInternal, Message: "TESTING: bad binary operator"}
	}
}

func (c *Checker) checkLogical(e *parser.LogicalExpr) (Type, error) {
	left, err := c.checkExpr(e.Left)
	if err != nil {
		return Type{}, err
	}
	right, err := c.checkExpr(e.Right)
	if err != nil {
		return Type{}, err
	}
	if !left.Equals(Bool) || !right.Equals(Bool) {
		return Type{}, &Error{Kind: ErrTypeMismatch, Message: fmt.Sprintf("'%s' requires Bool operands", e.Op.Type)}
	}
	return Bool, nil
}

func (c *Checker) checkArrayLiteral(e *parser.ArrayExpr) (Type, error) {
	if len(e.Elements) == 0 {
		return Array(Lazy), nil
	}
	first, err := c.checkExpr(e.Elements[0])
	if err != nil {
		return Type{}, err
	}
	for _, elem := range e.Elements[1:] {
		t, err := c.checkExpr(elem)
		if err != nil {
			return Type{}, err
		}
		if !t.Equals(first) {
			return Type{}, &Error{Kind: ErrTypeMismatch, Line: e.Token.Line, Message: "array elements must share a single type"}
		}
	}
	return Array(first), nil
}

func (c *Checker) checkArrayAccess(e *parser.ArrayAccessExpr) (Type, error) {
	arrType, err := c.checkExpr(e.Array)
	if err != nil {
		return Type{}, err
	}
	idxType, err := c.checkExpr(e.Index)
	if err != nil {
		return Type{}, err
	}
	if !idxType.Equals(Number) {
		return Type{}, &Error{Kind: ErrTypeMismatch, Message: "array index must be a Number"}
	}
	if arrType.Kind != KindArray {
		return Type{}, &Error{Kind: ErrTypeMismatch, Message: "indexing target must be an Array"}
	}
	return *arrType.Elem, nil
}

// checkCall re-enters the callee's body with each parameter's Lazy
// type replaced by the corresponding argument's concrete type, in a
// child of the type table that was active where the callee was defined.
// Recursion is broken by the inProgress set: a nested call to the
// function currently being checked returns Lazy without re-entry,
// per spec.md §4.4.
func (c *Checker) checkCall(e *parser.CallExpr) (Type, error) {
	calleeType, err := c.checkExpr(e.Callee)
	if err != nil {
		return Type{}, err
	}
	var argTypes []Type
	for _, arg := range e.Args {
		t, err := c.checkExpr(arg)
		if err != nil {
			return Type{}, err
		}
		argTypes = append(argTypes, t)
	}

	if calleeType.Kind != KindFunc {
		return Type{}, &Error{Line: e.RightParen.Line, Kind: ErrTypeMismatch, Message: "callee must be a function"}
	}
	if calleeType.Arity != len(argTypes) {
		return Type{}, &Error{Line: e.RightParen.Line, Kind: ErrTypeMismatch, Message: fmt.Sprintf("expected %d arguments, got %d", calleeType.Arity, len(argTypes))}
	}

	decl := calleeType.FuncDec
	if decl == nil {
		// native builtins (e.g. clock) have no body to re-check
		return Number, nil
	}
	if c.inProgress[decl] {
		return Lazy, nil
	}

	prev := c.current
	parent := prev
	if calleeType.Closure != nil {
		parent = calleeType.Closure
	}
	c.current = newTable(parent)
	for i, param := range decl.Params {
		c.current.define(param.Lexeme, argTypes[i])
	}
	prevInFunction := c.inFunction
	c.inFunction = true
	c.inProgress[decl] = true

	retType, err := c.checkFunctionBody(decl)

	c.inProgress[decl] = false
	c.inFunction = prevInFunction
	c.current = prev
	return retType, err
}

// checkFunctionBody type-checks a function body and reconciles the
// types of every return statement reached directly in it: all must
// agree (spec.md §4.4's "return types across branches ... must
// match").
func (c *Checker) checkFunctionBody(decl *parser.FuncStmt) (Type, error) {
	var retType *Type
	var walk func(stmts []parser.Stmt) error
	walk = func(stmts []parser.Stmt) error {
		for _, stmt := range stmts {
			switch s := stmt.(type) {
			case *parser.ReturnStmt:
				t, err := c.checkExpr(s.Value)
				if err != nil {
					return err
				}
				if retType == nil {
					retType = &t
				} else if !retType.Equals(t) {
					return &Error{Kind: ErrTypeMismatch, Line: s.Line, Message: "return types must match across all returns"}
				}
			case *parser.IfStmt:
				if _, err := c.checkExpr(s.Condition); err != nil {
					return err
				}
				if err := walkBranch(walk, s.Then); err != nil {
					return err
				}
				if s.Else != nil {
					if err := walkBranch(walk, s.Else); err != nil {
						return err
					}
				}
			case *parser.BlockStmt:
				prev := c.current
				c.current = newTable(prev)
				err := walk(s.Statements)
				c.current = prev
				if err != nil {
					return err
				}
			default:
				if err := c.checkStmt(stmt); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk(decl.Body.Statements); err != nil {
		return Type{}, err
	}
	if retType == nil {
		return Null, nil
	}
	return *retType, nil
}

func walkBranch(walk func([]parser.Stmt) error, stmt parser.Stmt) error {
	if block, ok := stmt.(*parser.BlockStmt); ok {
		return walk(block.Statements)
	}
	return walk([]parser.Stmt{stmt})
}
