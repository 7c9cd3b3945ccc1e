/*
File    : simplescript/resolver/resolver.go
Author  : Akash Maji
Contact : akashmaji(@iisc.ac.in)
*/

// Package resolver performs the static scope-analysis pass described
// in spec.md §4.3: it binds each identifier use to a scope distance,
// rejects illegal redeclarations, and flags unreachable code after a
// return. It fails fast on the first error (spec.md §7), unlike the
// scanner and parser.
package resolver

import (
	"fmt"

	"github.com/akashmaji946/simplescript/parser"
	"github.com/akashmaji946/simplescript/sserr"
)

// ErrorKind distinguishes resolver failure modes, mirroring spec.md §7's
// ResolvingError taxonomy.
type ErrorKind int

const (
	ErrUndefinedIdentifier ErrorKind = iota
	ErrIdentifierAlreadyUsed
	ErrIdentifierReserved // redeclaring a name pre-populated in the global scope
	ErrReturnOutsideFunction
	ErrUnreachableCode
	ErrInternal
)

// Error is a single resolver failure.
type Error struct {
	Kind    ErrorKind
	Line    int
	Message string
}

func (e *Error) Error() string {
	return sserr.Format("Resolving", e.Line, e.Message)
}

// scope maps a name to whether its initializer has finished resolving
// (declare(name) inserts false; define(name) flips it true).
type scope map[string]bool

// Resolver walks an already-parsed program exactly once, annotating
// every parser.IdentifierExpr in place with its scope distance.
type Resolver struct {
	scopes     []scope
	inFunction bool
}

// globalNames pre-populates the outermost scope with built-in names,
// per spec.md §4.3 ("globals are pre-populated with built-in names").
var globalNames = []string{"clock"}

// NewResolver returns a Resolver with the global scope pre-populated.
func NewResolver() *Resolver {
	r := &Resolver{}
	global := scope{}
	for _, name := range globalNames {
		global[name] = true
	}
	r.scopes = []scope{global}
	return r
}

// Resolve walks stmts in program order, resolving every identifier use
// and checking reachability. It returns the first error encountered.
func (r *Resolver) Resolve(stmts []parser.Stmt) error {
	return r.resolveStmts(stmts)
}

func (r *Resolver) pushScope() { r.scopes = append(r.scopes, scope{}) }

func (r *Resolver) popScope() { r.scopes = r.scopes[:len(r.scopes)-1] }

func (r *Resolver) current() scope { return r.scopes[len(r.scopes)-1] }

// declare inserts name into the current scope as not-yet-initialized.
// Redeclaring a name already present in the same scope is an error;
// redeclaring one of the pre-populated global names is a distinct
// error kind (spec.md §7).
func (r *Resolver) declare(name string, line int) error {
	cur := r.current()
	if _, exists := cur[name]; exists {
		reserved := false
		for _, g := range globalNames {
			if g == name {
				reserved = true
			}
		}
		if len(r.scopes) == 1 && reserved {
			return &Error{Kind: ErrIdentifierReserved, Line: line, Message: fmt.Sprintf("'%s' is a reserved global identifier", name)}
		}
		return &Error{Kind: ErrIdentifierAlreadyUsed, Line: line, Message: fmt.Sprintf("'%s' is already declared in this scope", name)}
	}
	cur[name] = false
	return nil
}

func (r *Resolver) define(name string) {
	r.current()[name] = true
}

// resolveLocal searches scopes from innermost outward, returning the
// distance (0 = innermost) at which name is bound.
func (r *Resolver) resolveLocal(name string) (int, bool) {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if _, ok := r.scopes[i][name]; ok {
			return len(r.scopes) - 1 - i, true
		}
	}
	return 0, false
}

func (r *Resolver) resolveStmts(stmts []parser.Stmt) error {
	for i, stmt := range stmts {
		if err := r.resolveStmt(stmt); err != nil {
			return err
		}
		if _, isReturn := stmt.(*parser.ReturnStmt); isReturn && i+1 < len(stmts) {
			return &Error{
				Kind:    ErrUnreachableCode,
				Line:    lineOf(stmts[i+1]),
				Message: "unreachable code after return",
			}
		}
	}
	return nil
}

func lineOf(stmt parser.Stmt) int {
	switch s := stmt.(type) {
	case *parser.PrintStmt:
		return s.Line
	case *parser.IfStmt:
		return s.Line
	case *parser.WhileStmt:
		return s.Line
	case *parser.ReturnStmt:
		return s.Line
	}
	return 0
}

func (r *Resolver) resolveStmt(stmt parser.Stmt) error {
	switch s := stmt.(type) {
	case *parser.ExprStmt:
		return r.resolveExpr(s.Expression)
	case *parser.IgnoreStmt:
		return r.resolveExpr(s.Expression)
	case *parser.PrintStmt:
		return r.resolveExpr(s.Expression)
	case *parser.ConstStmt:
		if err := r.declare(s.Name.Lexeme, s.Name.Line); err != nil {
			return err
		}
		if err := r.resolveExpr(s.Initializer); err != nil {
			return err
		}
		r.define(s.Name.Lexeme)
		return nil
	case *parser.BlockStmt:
		r.pushScope()
		err := r.resolveStmts(s.Statements)
		r.popScope()
		return err
	case *parser.IfStmt:
		if err := r.resolveExpr(s.Condition); err != nil {
			return err
		}
		if err := r.resolveStmt(s.Then); err != nil {
			return err
		}
		if s.Else != nil {
			return r.resolveStmt(s.Else)
		}
		return nil
	case *parser.WhileStmt:
		if err := r.resolveExpr(s.Condition); err != nil {
			return err
		}
		return r.resolveStmt(s.Body)
	case *parser.FuncStmt:
		if s.Name.Type != "" {
			if err := r.declare(s.Name.Lexeme, s.Name.Line); err != nil {
				return err
			}
			r.define(s.Name.Lexeme)
		}
		return r.resolveFunction(s)
	case *parser.ReturnStmt:
		if !r.inFunction {
			return &Error{Kind: ErrReturnOutsideFunction, Line: s.Line, Message: "return used outside a function"}
		}
		return r.resolveExpr(s.Value)
	default:
		return &Error{Kind: ErrInternal, Message: fmt.Sprintf("unknown statement type %T", stmt)}
	}
}

// resolveFunction enters a fresh parameter scope, resolves the body,
// and restores the previous inFunction flag on exit, per spec.md §4.3.
func (r *Resolver) resolveFunction(decl *parser.FuncStmt) error {
	prevInFunction := r.inFunction
	r.inFunction = true
	r.pushScope()
	for _, param := range decl.Params {
		if err := r.declare(param.Lexeme, param.Line); err != nil {
			r.popScope()
			r.inFunction = prevInFunction
			return err
		}
		r.define(param.Lexeme)
	}
	err := r.resolveStmts(decl.Body.Statements)
	r.popScope()
	r.inFunction = prevInFunction
	return err
}

func (r *Resolver) resolveExpr(expr parser.Expr) error {
	switch e := expr.(type) {
	case *parser.LiteralExpr:
		return nil
	case *parser.GroupingExpr:
		return r.resolveExpr(e.Inner)
	case *parser.UnaryExpr:
		return r.resolveExpr(e.Operand)
	case *parser.BinaryExpr:
		if err := r.resolveExpr(e.Left); err != nil {
			return err
		}
		return r.resolveExpr(e.Right)
	case *parser.LogicalExpr:
		if err := r.resolveExpr(e.Left); err != nil {
			return err
		}
		return r.resolveExpr(e.Right)
	case *parser.IdentifierExpr:
		dist, ok := r.resolveLocal(e.Name.Lexeme)
		if !ok {
			return &Error{Kind: ErrUndefinedIdentifier, Line: e.Name.Line, Message: fmt.Sprintf("undefined identifier '%s'", e.Name.Lexeme)}
		}
		e.Distance = dist
		return nil
	case *parser.CallExpr:
		if err := r.resolveExpr(e.Callee); err != nil {
			return err
		}
		for _, arg := range e.Args {
			if err := r.resolveExpr(arg); err != nil {
				return err
			}
		}
		return nil
	case *parser.AnonymousFuncExpr:
		return r.resolveFunction(e.Decl)
	case *parser.ArrayExpr:
		for _, elem := range e.Elements {
			if err := r.resolveExpr(elem); err != nil {
				return err
			}
		}
		return nil
	case *parser.ArrayAccessExpr:
		if err := r.resolveExpr(e.Array); err != nil {
			return err
		}
		return r.resolveExpr(e.Index)
	default:
		return &Error{Kind: ErrInternal, Message: fmt.Sprintf("unknown expression type %T", expr)}
	}
}
