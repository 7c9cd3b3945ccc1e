/*
File    : simplescript/run/run_test.go
Author  : Akash Maji
Contact : akashmaji(@iisc.ac.in)
*/
package run

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bothBackends runs src through both the tree-walking interpreter and
// the bytecode VM and returns each one's print output, asserting
// neither one errored.
func bothBackends(t *testing.T, src string) (tree string, bytecode string) {
	t.Helper()
	var treeBuf, vmBuf bytes.Buffer
	require.NoError(t, Source(Tree, src, &treeBuf))
	require.NoError(t, Source(Bytecode, src, &vmBuf))
	return treeBuf.String(), vmBuf.String()
}

// TestEquivalence_* cover spec.md §8's testable property: for any
// program whose evaluation terminates without I/O beyond print and
// clock, both back ends produce the same sequence of print outputs.

func TestEquivalence_ArithmeticAndPrecedence(t *testing.T) {
	tree, bytecode := bothBackends(t, `print 1 + 2 * 3 - (4 / 2);`)
	assert.Equal(t, tree, bytecode)
}

func TestEquivalence_StringConcatenation(t *testing.T) {
	tree, bytecode := bothBackends(t, `const a = "foo"; const b = "bar"; print a + b;`)
	assert.Equal(t, tree, bytecode)
}

func TestEquivalence_RecursiveFactorial(t *testing.T) {
	tree, bytecode := bothBackends(t, `
		function fact(n) {
			if (n == 0) return 1;
			return n * fact(n - 1);
		}
		print fact(6);
	`)
	assert.Equal(t, tree, bytecode)
	assert.Equal(t, "720\n", tree)
}

func TestEquivalence_ClosureCapturesOuterLocal(t *testing.T) {
	tree, bytecode := bothBackends(t, `
		function makeAdder(x) {
			return (y) => x + y;
		}
		const add5 = makeAdder(5);
		print add5(10);
	`)
	assert.Equal(t, tree, bytecode)
}

func TestEquivalence_RecursionInsteadOfMutation(t *testing.T) {
	tree, bytecode := bothBackends(t, `
		function count(n) {
			if (n == 0) return 0;
			print n;
			return count(n - 1);
		}
		ignore count(4);
	`)
	assert.Equal(t, tree, bytecode)
}

func TestEquivalence_ShortCircuitAndOr(t *testing.T) {
	tree, bytecode := bothBackends(t, `
		function boomTrue() { print "boom"; return true; }
		print false and boomTrue();
		print true or boomTrue();
	`)
	assert.Equal(t, tree, bytecode)
	assert.NotContains(t, tree, "boom")
}

func TestEquivalence_ArraysAndIndexing(t *testing.T) {
	tree, bytecode := bothBackends(t, `
		const xs = [10, 20, 30];
		print xs[0];
		print xs[2];
	`)
	assert.Equal(t, tree, bytecode)
}

func TestEquivalence_NestedBlockScoping(t *testing.T) {
	tree, bytecode := bothBackends(t, `
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
	assert.Equal(t, tree, bytecode)
}

func TestEquivalence_Clock(t *testing.T) {
	tree, bytecode := bothBackends(t, `print clock() >= 0;`)
	assert.Equal(t, tree, bytecode)
	assert.Equal(t, "true\n", tree)
}

func TestEquivalence_RuntimeErrorsMatchShape(t *testing.T) {
	src := `const xs = [1, 2]; print xs[5];`
	var treeBuf, vmBuf bytes.Buffer
	treeErr := Source(Tree, src, &treeBuf)
	vmErr := Source(Bytecode, src, &vmBuf)
	require.Error(t, treeErr)
	require.Error(t, vmErr)
	assert.Contains(t, treeErr.Error(), "ArrayOutOfBounds")
	assert.Contains(t, vmErr.Error(), "ArrayOutOfBounds")
}
