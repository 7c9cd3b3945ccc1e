/*
File    : simplescript/lexer/lexer_test.go
Author  : Akash Maji
Contact : akashmaji(@iisc.ac.in)
*/
package lexer

import (
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scanCase struct {
	Input    string
	Expected []TokenType
}

func TestScanTokens_Punctuation(t *testing.T) {
	tests := []scanCase{
		{
			Input:    `1 + 2 * 3;`,
			Expected: []TokenType{NUMBER, PLUS, NUMBER, STAR, NUMBER, SEMICOLON, EOF},
		},
		{
			Input:    `const a = "foo"; print a;`,
			Expected: []TokenType{CONST, IDENTIFIER, EQUAL, STRING, SEMICOLON, PRINT, IDENTIFIER, SEMICOLON, EOF},
		},
		{
			Input:    `(x, y) => x + y`,
			Expected: []TokenType{LEFT_PAREN, IDENTIFIER, COMMA, IDENTIFIER, RIGHT_PAREN, ARROW, IDENTIFIER, PLUS, IDENTIFIER, EOF},
		},
		{
			Input:    `[1,2,3][1]`,
			Expected: []TokenType{LEFT_BRACKET, NUMBER, COMMA, NUMBER, COMMA, NUMBER, RIGHT_BRACKET, LEFT_BRACKET, NUMBER, RIGHT_BRACKET, EOF},
		},
		{
			Input:    `!= == => < <= > >=`,
			Expected: []TokenType{BANG_EQUAL, EQUAL_EQUAL, ARROW, LESS, LESS_EQUAL, GREATER, GREATER_EQUAL, EOF},
		},
	}

	for _, tc := range tests {
		sc := NewScanner(tc.Input)
		toks, err := sc.ScanTokens()
		require.NoError(t, err)
		got := make([]TokenType, len(toks))
		for i, tok := range toks {
			got[i] = tok.Type
		}
		assert.Equal(t, tc.Expected, got)
	}
}

func TestScanTokens_CommentsAndLines(t *testing.T) {
	src := "const a = 1; // trailing comment\n/* block\ncomment */ const b = 2;"
	sc := NewScanner(src)
	toks, err := sc.ScanTokens()
	require.NoError(t, err)

	var bLine int
	for i, tok := range toks {
		if tok.Type == IDENTIFIER && tok.Lexeme == "b" {
			bLine = toks[i].Line
		}
	}
	assert.Equal(t, 3, bLine)
}

func TestScanTokens_UnterminatedStringCollectsError(t *testing.T) {
	sc := NewScanner(`const a = "unterminated`)
	_, err := sc.ScanTokens()
	require.Error(t, err)
}

func TestScanTokens_CollectsMultipleErrors(t *testing.T) {
	sc := NewScanner("const a = @; const b = $;")
	_, err := sc.ScanTokens()
	require.Error(t, err)
	merr, ok := err.(*multierror.Error)
	require.True(t, ok)
	assert.Len(t, merr.Errors, 2)
}
