/*
File    : simplescript/parser/parser_test.go
Author  : Akash Maji
Contact : akashmaji(@iisc.ac.in)
*/
package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akashmaji946/simplescript/lexer"
)

func parse(t *testing.T, src string) []Stmt {
	t.Helper()
	sc := lexer.NewScanner(src)
	toks, err := sc.ScanTokens()
	require.NoError(t, err)
	p := NewParser(toks)
	stmts, err := p.Parse()
	require.NoError(t, err)
	return stmts
}

func TestParse_ConstAndPrint(t *testing.T) {
	stmts := parse(t, `const a = 1 + 2 * 3; print a;`)
	require.Len(t, stmts, 2)
	c, ok := stmts[0].(*ConstStmt)
	require.True(t, ok)
	assert.Equal(t, "a", c.Name.Lexeme)
	bin, ok := c.Initializer.(*BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, lexer.PLUS, bin.Op.Type)
}

func TestParse_ArrowFunctionDesugarsToBlockReturn(t *testing.T) {
	stmts := parse(t, `const add = (x, y) => x + y;`)
	c := stmts[0].(*ConstStmt)
	fn, ok := c.Initializer.(*AnonymousFuncExpr)
	require.True(t, ok)
	assert.Len(t, fn.Decl.Params, 2)
	require.Len(t, fn.Decl.Body.Statements, 1)
	_, ok = fn.Decl.Body.Statements[0].(*ReturnStmt)
	assert.True(t, ok)
}

func TestParse_GroupingIsNotConfusedWithArrow(t *testing.T) {
	stmts := parse(t, `const a = (1 + 2) * 3;`)
	c := stmts[0].(*ConstStmt)
	bin, ok := c.Initializer.(*BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, lexer.STAR, bin.Op.Type)
	_, ok = bin.Left.(*GroupingExpr)
	assert.True(t, ok)
}

func TestParse_ArrayLiteralAndAccess(t *testing.T) {
	stmts := parse(t, `const xs = [1,2,3]; print xs[1];`)
	arr, ok := stmts[0].(*ConstStmt).Initializer.(*ArrayExpr)
	require.True(t, ok)
	assert.Len(t, arr.Elements, 3)

	printStmt := stmts[1].(*PrintStmt)
	access, ok := printStmt.Expression.(*ArrayAccessExpr)
	require.True(t, ok)
	_, ok = access.Array.(*IdentifierExpr)
	assert.True(t, ok)
}

func TestParse_FunctionDeclAndCall(t *testing.T) {
	stmts := parse(t, `function fact(n) { if (n == 0) return 1; return n * fact(n - 1); } print fact(5);`)
	require.Len(t, stmts, 2)
	fn, ok := stmts[0].(*FuncStmt)
	require.True(t, ok)
	assert.Equal(t, "fact", fn.Name.Lexeme)
	assert.Len(t, fn.Params, 1)
	require.Len(t, fn.Body.Statements, 2)

	call, ok := stmts[1].(*PrintStmt).Expression.(*CallExpr)
	require.True(t, ok)
	assert.Len(t, call.Args, 1)
}

func TestParse_AssignmentIsRejected(t *testing.T) {
	sc := lexer.NewScanner(`const i = 0; i = 1;`)
	toks, err := sc.ScanTokens()
	require.NoError(t, err)
	p := NewParser(toks)
	_, err = p.Parse()
	require.Error(t, err)
}

func TestParse_SynchronizeCollectsMultipleErrors(t *testing.T) {
	sc := lexer.NewScanner(`const = 1; const b = ; print b;`)
	toks, err := sc.ScanTokens()
	require.NoError(t, err)
	p := NewParser(toks)
	_, err = p.Parse()
	require.Error(t, err)
}
