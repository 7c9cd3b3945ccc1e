/*
File    : simplescript/vm/vm_test.go
Author  : Akash Maji
Contact : akashmaji(@iisc.ac.in)
*/
package vm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akashmaji946/simplescript/compiler"
	"github.com/akashmaji946/simplescript/lexer"
	"github.com/akashmaji946/simplescript/objects"
)

func run(t *testing.T, src string) (string, error) {
	t.Helper()
	sc := lexer.NewScanner(src)
	toks, err := sc.ScanTokens()
	require.NoError(t, err)
	chunk, err := compiler.Compile(toks)
	require.NoError(t, err)

	var out []string
	globals := map[string]objects.Value{
		"clock": &objects.Native{
			Name: "clock", Arg: 0,
			Fn: func(args []objects.Value) (objects.Value, error) {
				return &objects.Number{Value: 0}, nil
			},
		},
	}
	machine := New(chunk, globals, func(line string) { out = append(out, line) })
	_, err = machine.Run()
	return strings.Join(out, "\n"), err
}

func TestVM_ArithmeticPrecedence(t *testing.T) {
	out, err := run(t, `print 1 + 2 * 3;`)
	require.NoError(t, err)
	assert.Equal(t, "7", out)
}

func TestVM_StringConcatenationIsQuoted(t *testing.T) {
	out, err := run(t, `const a = "foo"; const b = "bar"; print a + b;`)
	require.NoError(t, err)
	assert.Equal(t, "'foobar'", out)
}

func TestVM_RecursiveFactorial(t *testing.T) {
	out, err := run(t, `function fact(n) { if (n == 0) return 1; return n * fact(n - 1); } print fact(5);`)
	require.NoError(t, err)
	assert.Equal(t, "120", out)
}

func TestVM_ArrowFunctionClosure(t *testing.T) {
	out, err := run(t, `const add = (x, y) => x + y; print add(3, 4);`)
	require.NoError(t, err)
	assert.Equal(t, "7", out)
}

func TestVM_ClosureCapturesOuterLocal(t *testing.T) {
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

func TestVM_RecursionInsteadOfMutationCountdown(t *testing.T) {
	out, err := run(t, `function count(n){ if (n==0) return 0; print n; return count(n-1);} count(3);`)
	require.NoError(t, err)
	assert.Equal(t, "3\n2\n1", out)
}

func TestVM_ArrayIndexing(t *testing.T) {
	out, err := run(t, `const xs = [1,2,3]; print xs[1];`)
	require.NoError(t, err)
	assert.Equal(t, "2", out)
}

func TestVM_ArrayOutOfBounds(t *testing.T) {
	_, err := run(t, `const xs = [1,2]; print xs[5];`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ArrayOutOfBounds")
}

func TestVM_ShortCircuitAnd(t *testing.T) {
	out, err := run(t, `
		function boom() { print "evaluated"; return true; }
		print false and boom();
	`)
	require.NoError(t, err)
	assert.Equal(t, "false", out)
}

func TestVM_ShortCircuitOr(t *testing.T) {
	out, err := run(t, `
		function boom() { print "evaluated"; return true; }
		print true or boom();
	`)
	require.NoError(t, err)
	assert.Equal(t, "true", out)
}

func TestVM_CallOnNonCallable(t *testing.T) {
	_, err := run(t, `const x = 1; print x();`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-callable")
}

func TestVM_ArgumentCountMismatch(t *testing.T) {
	_, err := run(t, `function f(a, b) { return a; } f(1);`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 2 arguments")
}

func TestVM_MultipleNestedBlocksPopLocalsCorrectly(t *testing.T) {
	out, err := run(t, `
		function f() {
			const a = 1;
			{
				const b = 2;
				{
					const c = 3;
					return a + b + c;
				}
			}
		}
		print f();
	`)
	require.NoError(t, err)
	assert.Equal(t, "6", out)
}
