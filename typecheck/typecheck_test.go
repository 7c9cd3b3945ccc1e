/*
File    : simplescript/typecheck/typecheck_test.go
Author  : Akash Maji
Contact : akashmaji(@iisc.ac.in)
*/
package typecheck

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

func TestCheck_ArithmeticAndComparison(t *testing.T) {
	stmts := mustParse(t, `ignore 1 + 2 * 3; ignore 1 < 2;`)
	assert.NoError(t, NewChecker().Check(stmts))
}

func TestCheck_StringConcatenation(t *testing.T) {
	stmts := mustParse(t, `ignore "foo" + "bar";`)
	assert.NoError(t, NewChecker().Check(stmts))
}

func TestCheck_MismatchedArithmeticIsRejected(t *testing.T) {
	stmts := mustParse(t, `ignore "foo" - 1;`)
	err := NewChecker().Check(stmts)
	require.Error(t, err)
	assert.Equal(t, ErrTypeMismatch, err.(*Error).Kind)
}

func TestCheck_UnusedValueIsReported(t *testing.T) {
	stmts := mustParse(t, `1 + 2;`)
	err := NewChecker().Check(stmts)
	require.Error(t, err)
	assert.Equal(t, ErrUnusedValue, err.(*Error).Kind)
}

func TestCheck_IgnoreBypassesUnusedValueCheck(t *testing.T) {
	stmts := mustParse(t, `ignore 1 + 2;`)
	assert.NoError(t, NewChecker().Check(stmts))
}

func TestCheck_HomogeneousArrayLiteral(t *testing.T) {
	stmts := mustParse(t, `ignore [1, 2, 3];`)
	assert.NoError(t, NewChecker().Check(stmts))
}

func TestCheck_HeterogeneousArrayLiteralRejected(t *testing.T) {
	stmts := mustParse(t, `ignore [1, "two"];`)
	err := NewChecker().Check(stmts)
	require.Error(t, err)
	assert.Equal(t, ErrTypeMismatch, err.(*Error).Kind)
}

func TestCheck_LazyParametersResolvedPerCallSite(t *testing.T) {
	stmts := mustParse(t, `
		function identity(x) { return x; }
		ignore identity(1) + 1;
		ignore identity("a") + "b";
	`)
	assert.NoError(t, NewChecker().Check(stmts))
}

func TestCheck_RecursiveCallBreaksViaLazy(t *testing.T) {
	stmts := mustParse(t, `
		function fact(n) { if (n == 0) return 1; return n * fact(n - 1); }
		ignore fact(5);
	`)
	assert.NoError(t, NewChecker().Check(stmts))
}

func TestCheck_ArgumentCountMismatch(t *testing.T) {
	stmts := mustParse(t, `
		function add(a, b) { return a + b; }
		ignore add(1);
	`)
	err := NewChecker().Check(stmts)
	require.Error(t, err)
	assert.Equal(t, ErrTypeMismatch, err.(*Error).Kind)
}
