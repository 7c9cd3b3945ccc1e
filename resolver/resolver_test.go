/*
File    : simplescript/resolver/resolver_test.go
Author  : Akash Maji
Contact : akashmaji(@iisc.ac.in)
*/
package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akashmaji946/simplescript/lexer"
	"github.com/akashmaji946/simplescript/parser"
)

func mustParse(t *testing.T, src string) []parser.Stmt {
	t.Helper()
	sc := lexer.NewScanner(src)
	toks, err := sc.ScanTokens()
	require.NoError(t, err)
	p := parser.NewParser(toks)
	stmts, err := p.Parse()
	require.NoError(t, err)
	return stmts
}

func TestResolve_DistanceAnnotation(t *testing.T) {
	stmts := mustParse(t, `const a = 1; { const b = a; print b; }`)
	require.NoError(t, NewResolver().Resolve(stmts))

	block := stmts[1].(*parser.BlockStmt)
	initRef := block.Statements[0].(*parser.ConstStmt).Initializer.(*parser.IdentifierExpr)
	assert.Equal(t, 1, initRef.Distance)

	printRef := block.Statements[1].(*parser.PrintStmt).Expression.(*parser.IdentifierExpr)
	assert.Equal(t, 0, printRef.Distance)
}

func TestResolve_UndefinedIdentifier(t *testing.T) {
	stmts := mustParse(t, `print a;`)
	err := NewResolver().Resolve(stmts)
	require.Error(t, err)
	assert.Equal(t, ErrUndefinedIdentifier, err.(*Error).Kind)
}

func TestResolve_RedeclarationInSameScope(t *testing.T) {
	stmts := mustParse(t, `const a = 1; const a = 2;`)
	err := NewResolver().Resolve(stmts)
	require.Error(t, err)
	assert.Equal(t, ErrIdentifierAlreadyUsed, err.(*Error).Kind)
}

func TestResolve_ShadowingInNestedScopeAllowed(t *testing.T) {
	stmts := mustParse(t, `const a = 1; { const a = 2; print a; }`)
	assert.NoError(t, NewResolver().Resolve(stmts))
}

func TestResolve_ReservedGlobalRedeclaration(t *testing.T) {
	stmts := mustParse(t, `const clock = 1;`)
	err := NewResolver().Resolve(stmts)
	require.Error(t, err)
	assert.Equal(t, ErrIdentifierReserved, err.(*Error).Kind)
}

func TestResolve_ReturnOutsideFunction(t *testing.T) {
	stmts := mustParse(t, `return 1;`)
	err := NewResolver().Resolve(stmts)
	require.Error(t, err)
	assert.Equal(t, ErrReturnOutsideFunction, err.(*Error).Kind)
}

func TestResolve_UnreachableCodeAfterReturn(t *testing.T) {
	stmts := mustParse(t, `function f() { return 1; print 2; }`)
	err := NewResolver().Resolve(stmts)
	require.Error(t, err)
	assert.Equal(t, ErrUnreachableCode, err.(*Error).Kind)
}

func TestResolve_RecursiveFunctionSeesOwnName(t *testing.T) {
	stmts := mustParse(t, `function fact(n) { if (n == 0) return 1; return n * fact(n - 1); }`)
	assert.NoError(t, NewResolver().Resolve(stmts))
}
