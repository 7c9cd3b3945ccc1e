/*
File    : simplescript/eval/eval_test.go
Author  : Akash Maji
Contact : akashmaji(@iisc.ac.in)
*/
package eval

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akashmaji946/simplescript/lexer"
	"github.com/akashmaji946/simplescript/parser"
	"github.com/akashmaji946/simplescript/resolver"
)

func run(t *testing.T, src string) (string, error) {
	t.Helper()
	sc := lexer.NewScanner(src)
	toks, err := sc.ScanTokens()
	require.NoError(t, err)
	p := parser.NewParser(toks)
	stmts, err := p.Parse()
	require.NoError(t, err)
	require.NoError(t, resolver.NewResolver().Resolve(stmts))

	var buf bytes.Buffer
	interp := NewInterpreter()
	interp.SetWriter(&buf)
	err = interp.Run(stmts)
	return strings.TrimRight(buf.String(), "\n"), err
}

func TestEval_ArithmeticPrecedence(t *testing.T) {
	out, err := run(t, `print 1 + 2 * 3;`)
	require.NoError(t, err)
	assert.Equal(t, "7", out)
}

func TestEval_StringConcatenationIsQuoted(t *testing.T) {
	out, err := run(t, `const a = "foo"; const b = "bar"; print a + b;`)
	require.NoError(t, err)
	assert.Equal(t, "'foobar'", out)
}

func TestEval_RecursiveFactorial(t *testing.T) {
	out, err := run(t, `function fact(n) { if (n == 0) return 1; return n * fact(n - 1); } print fact(5);`)
	require.NoError(t, err)
	assert.Equal(t, "120", out)
}

func TestEval_ArrowFunctionClosure(t *testing.T) {
	out, err := run(t, `const add = (x, y) => x + y; print add(3, 4);`)
	require.NoError(t, err)
	assert.Equal(t, "7", out)
}

func TestEval_ArrayIndexing(t *testing.T) {
	out, err := run(t, `const xs = [1,2,3]; print xs[1];`)
	require.NoError(t, err)
	assert.Equal(t, "2", out)
}

func TestEval_RecursionInsteadOfMutationCountdown(t *testing.T) {
	out, err := run(t, `function count(n){ if (n==0) return 0; print n; return count(n-1);} count(3);`)
	require.NoError(t, err)
	assert.Equal(t, "3\n2\n1", out)
}

func TestEval_ClosureCapturesDefinitionScope(t *testing.T) {
	out, err := run(t, `
		function makeAdder(x) {
			return (y) => x + y;
		}
		const add5 = makeAdder(5);
		print add5(10);
	`)
	require.NoError(t, err)
	assert.Equal(t, "15", out)
}

func TestEval_ShortCircuitAnd(t *testing.T) {
	out, err := run(t, `
		function boom() { print "evaluated"; return true; }
		print false and boom();
	`)
	require.NoError(t, err)
	assert.Equal(t, "false", out)
}

func TestEval_ShortCircuitOr(t *testing.T) {
	out, err := run(t, `
		function boom() { print "evaluated"; return true; }
		print true or boom();
	`)
	require.NoError(t, err)
	assert.Equal(t, "true", out)
}

func TestEval_ArrayOutOfBounds(t *testing.T) {
	_, err := run(t, `const xs = [1,2]; print xs[5];`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ArrayOutOfBounds")
}

func TestEval_CallOnNonCallable(t *testing.T) {
	_, err := run(t, `const x = 1; print x();`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-callable")
}

func TestEval_ClockHasZeroArity(t *testing.T) {
	out, err := run(t, `print clock() >= 0;`)
	require.NoError(t, err)
	assert.Equal(t, "true", out)
}
