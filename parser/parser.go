/*
File    : simplescript/parser/parser.go
Author  : Akash Maji
Contact : akashmaji(@iisc.ac.in)
*/
package parser

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/akashmaji946/simplescript/lexer"
	"github.com/akashmaji946/simplescript/sserr"
)

// Error is a single parsing failure, tagged with its source line.
type Error struct {
	Line    int
	Message string
}

func (e *Error) Error() string {
	return sserr.Format("Parsing", e.Line, e.Message)
}

// Parser is a recursive-descent parser with Pratt-style precedence
// climbing for expressions, per spec.md §4.2. It consumes a pre-
// scanned token slice and does not own a Scanner.
type Parser struct {
	tokens  []lexer.Token
	current int
	errors  *multierror.Error
}

// NewParser builds a Parser over an already-scanned token stream.
func NewParser(tokens []lexer.Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse parses the whole token stream into a program (a slice of top-
// level declarations), collecting every ParsingError it encounters
// along the way via synchronize-and-continue, per spec.md §4.2/§7.
func (p *Parser) Parse() ([]Stmt, error) {
	var stmts []Stmt
	for !p.atEnd() {
		stmt, err := p.declaration()
		if err != nil {
			p.errors = multierror.Append(p.errors, err)
			p.synchronize()
			continue
		}
		stmts = append(stmts, stmt)
	}
	if p.errors != nil {
		return stmts, p.errors.ErrorOrNil()
	}
	return stmts, nil
}

// --- token stream helpers ---

func (p *Parser) peek() lexer.Token { return p.tokens[p.current] }

func (p *Parser) previous() lexer.Token { return p.tokens[p.current-1] }

func (p *Parser) atEnd() bool { return p.peek().Type == lexer.EOF }

func (p *Parser) advance() lexer.Token {
	if !p.atEnd() {
		p.current++
	}
	return p.previous()
}

func (p *Parser) check(t lexer.TokenType) bool {
	if p.atEnd() {
		return false
	}
	return p.peek().Type == t
}

func (p *Parser) matchAny(types ...lexer.TokenType) bool {
	for _, t := range types {
		if p.check(t) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *Parser) consume(t lexer.TokenType, message string) (lexer.Token, error) {
	if p.check(t) {
		return p.advance(), nil
	}
	return lexer.Token{}, &Error{Line: p.peek().Line, Message: message}
}

// synchronize advances past tokens until it consumes a semicolon or
// reaches a declaration keyword, so that one bad statement does not
// poison the rest of the parse, per spec.md §4.2.
func (p *Parser) synchronize() {
	p.advance()
	for !p.atEnd() {
		if p.previous().Type == lexer.SEMICOLON {
			return
		}
		switch p.peek().Type {
		case lexer.FUNCTION, lexer.CONST, lexer.IF, lexer.PRINT, lexer.WHILE, lexer.RETURN:
			return
		}
		p.advance()
	}
}

// --- declarations & statements ---

func (p *Parser) declaration() (Stmt, error) {
	if p.matchAny(lexer.CONST) {
		return p.constDecl()
	}
	if p.matchAny(lexer.FUNCTION) {
		return p.funcDecl()
	}
	return p.statement()
}

func (p *Parser) constDecl() (Stmt, error) {
	name, err := p.consume(lexer.IDENTIFIER, "expected identifier after 'const'")
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.EQUAL, "expected '=' after const name"); err != nil {
		return nil, err
	}
	init, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.SEMICOLON, "expected ';' after const declaration"); err != nil {
		return nil, err
	}
	return &ConstStmt{Name: name, Initializer: init}, nil
}

func (p *Parser) funcDecl() (Stmt, error) {
	name, err := p.consume(lexer.IDENTIFIER, "expected function name")
	if err != nil {
		return nil, err
	}
	params, err := p.paramList()
	if err != nil {
		return nil, err
	}
	body, err := p.blockStatement()
	if err != nil {
		return nil, err
	}
	return &FuncStmt{Name: name, Params: params, Body: body}, nil
}

// paramList parses `( IDENT (, IDENT)* )?` after the opening paren has
// not yet been consumed.
func (p *Parser) paramList() ([]lexer.Token, error) {
	if _, err := p.consume(lexer.LEFT_PAREN, "expected '(' before parameter list"); err != nil {
		return nil, err
	}
	var params []lexer.Token
	if !p.check(lexer.RIGHT_PAREN) {
		for {
			if len(params) >= 255 {
				return nil, &Error{Line: p.peek().Line, Message: "too many parameters"}
			}
			ident, err := p.consume(lexer.IDENTIFIER, "expected parameter name")
			if err != nil {
				return nil, err
			}
			params = append(params, ident)
			if !p.matchAny(lexer.COMMA) {
				break
			}
		}
	}
	if _, err := p.consume(lexer.RIGHT_PAREN, "expected ')' after parameters"); err != nil {
		return nil, err
	}
	return params, nil
}

func (p *Parser) statement() (Stmt, error) {
	switch {
	case p.matchAny(lexer.PRINT):
		return p.printStatement()
	case p.matchAny(lexer.IF):
		return p.ifStatement()
	case p.matchAny(lexer.WHILE):
		return p.whileStatement()
	case p.matchAny(lexer.RETURN):
		return p.returnStatement()
	case p.matchAny(lexer.IGNORE):
		return p.ignoreStatement()
	case p.check(lexer.LEFT_BRACE):
		p.advance()
		return p.finishBlock()
	default:
		return p.expressionStatement()
	}
}

func (p *Parser) printStatement() (Stmt, error) {
	line := p.previous().Line
	expr, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.SEMICOLON, "expected ';' after print statement"); err != nil {
		return nil, err
	}
	return &PrintStmt{Expression: expr, Line: line}, nil
}

func (p *Parser) ignoreStatement() (Stmt, error) {
	expr, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.SEMICOLON, "expected ';' after ignore statement"); err != nil {
		return nil, err
	}
	return &IgnoreStmt{Expression: expr}, nil
}

func (p *Parser) expressionStatement() (Stmt, error) {
	expr, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.SEMICOLON, "expected ';' after expression"); err != nil {
		return nil, err
	}
	return &ExprStmt{Expression: expr}, nil
}

func (p *Parser) ifStatement() (Stmt, error) {
	line := p.previous().Line
	if _, err := p.consume(lexer.LEFT_PAREN, "expected '(' after 'if'"); err != nil {
		return nil, err
	}
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.RIGHT_PAREN, "expected ')' after if condition"); err != nil {
		return nil, err
	}
	thenStmt, err := p.statement()
	if err != nil {
		return nil, err
	}
	var elseStmt Stmt
	if p.matchAny(lexer.ELSE) {
		elseStmt, err = p.statement()
		if err != nil {
			return nil, err
		}
	}
	return &IfStmt{Condition: cond, Then: thenStmt, Else: elseStmt, Line: line}, nil
}

func (p *Parser) whileStatement() (Stmt, error) {
	line := p.previous().Line
	if _, err := p.consume(lexer.LEFT_PAREN, "expected '(' after 'while'"); err != nil {
		return nil, err
	}
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.RIGHT_PAREN, "expected ')' after while condition"); err != nil {
		return nil, err
	}
	body, err := p.statement()
	if err != nil {
		return nil, err
	}
	return &WhileStmt{Condition: cond, Body: body, Line: line}, nil
}

func (p *Parser) returnStatement() (Stmt, error) {
	line := p.previous().Line
	var value Expr = &LiteralExpr{Value: lexer.NullLiteral()}
	if !p.check(lexer.SEMICOLON) {
		var err error
		value, err = p.expression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.consume(lexer.SEMICOLON, "expected ';' after return value"); err != nil {
		return nil, err
	}
	return &ReturnStmt{Value: value, Line: line}, nil
}

func (p *Parser) blockStatement() (*BlockStmt, error) {
	if _, err := p.consume(lexer.LEFT_BRACE, "expected '{' to begin block"); err != nil {
		return nil, err
	}
	return p.finishBlock()
}

func (p *Parser) finishBlock() (*BlockStmt, error) {
	var stmts []Stmt
	for !p.check(lexer.RIGHT_BRACE) && !p.atEnd() {
		stmt, err := p.declaration()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	closing, err := p.consume(lexer.RIGHT_BRACE, "expected '}' after block")
	if err != nil {
		return nil, err
	}
	return &BlockStmt{Statements: stmts, ClosingLine: closing.Line}, nil
}

// --- expressions: precedence climb ---
//
// expression   := logical_or                (assignment unimplemented: '=' in
//                                              expression position is an error)
// logical_or   := logical_and ('or' logical_and)*
// logical_and  := equality ('and' equality)*
// equality     := comparison (('!='|'==') comparison)*
// comparison   := term (('>'|'>='|'<'|'<=') term)*
// term         := factor (('+'|'-') factor)*
// factor       := unary (('*'|'/') unary)*
// unary        := ('!'|'-') unary | call
// call         := primary (('(' args? ')') | ('[' expression ']'))*
// primary      := IDENT | literals | 'function' ... | arrow-fn | grouping | array

func (p *Parser) expression() (Expr, error) {
	expr, err := p.or()
	if err != nil {
		return nil, err
	}
	if p.check(lexer.EQUAL) {
		eq := p.peek()
		return nil, &Error{Line: eq.Line, Message: "invalid assignment target: SimpleScript has no mutable variables"}
	}
	return expr, nil
}

func (p *Parser) or() (Expr, error) {
	expr, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.matchAny(lexer.OR) {
		op := p.previous()
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		expr = &LogicalExpr{Left: expr, Op: op, Right: right}
	}
	return expr, nil
}

func (p *Parser) and() (Expr, error) {
	expr, err := p.equality()
	if err != nil {
		return nil, err
	}
	for p.matchAny(lexer.AND) {
		op := p.previous()
		right, err := p.equality()
		if err != nil {
			return nil, err
		}
		expr = &LogicalExpr{Left: expr, Op: op, Right: right}
	}
	return expr, nil
}

func (p *Parser) equality() (Expr, error) {
	expr, err := p.comparison()
	if err != nil {
		return nil, err
	}
	for p.matchAny(lexer.BANG_EQUAL, lexer.EQUAL_EQUAL) {
		op := p.previous()
		right, err := p.comparison()
		if err != nil {
			return nil, err
		}
		expr = &BinaryExpr{Left: expr, Op: op, Right: right}
	}
	return expr, nil
}

func (p *Parser) comparison() (Expr, error) {
	expr, err := p.term()
	if err != nil {
		return nil, err
	}
	for p.matchAny(lexer.GREATER, lexer.GREATER_EQUAL, lexer.LESS, lexer.LESS_EQUAL) {
		op := p.previous()
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		expr = &BinaryExpr{Left: expr, Op: op, Right: right}
	}
	return expr, nil
}

func (p *Parser) term() (Expr, error) {
	expr, err := p.factor()
	if err != nil {
		return nil, err
	}
	for p.matchAny(lexer.PLUS, lexer.MINUS) {
		op := p.previous()
		right, err := p.factor()
		if err != nil {
			return nil, err
		}
		expr = &BinaryExpr{Left: expr, Op: op, Right: right}
	}
	return expr, nil
}

func (p *Parser) factor() (Expr, error) {
	expr, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.matchAny(lexer.STAR, lexer.SLASH) {
		op := p.previous()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		expr = &BinaryExpr{Left: expr, Op: op, Right: right}
	}
	return expr, nil
}

func (p *Parser) unary() (Expr, error) {
	if p.matchAny(lexer.BANG, lexer.MINUS) {
		op := p.previous()
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: op, Operand: operand}, nil
	}
	return p.call()
}

func (p *Parser) call() (Expr, error) {
	expr, err := p.primary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.matchAny(lexer.LEFT_PAREN):
			expr, err = p.finishCall(expr)
			if err != nil {
				return nil, err
			}
		case p.matchAny(lexer.LEFT_BRACKET):
			idx, err := p.expression()
			if err != nil {
				return nil, err
			}
			if _, err := p.consume(lexer.RIGHT_BRACKET, "expected ']' after index"); err != nil {
				return nil, err
			}
			expr = &ArrayAccessExpr{Array: expr, Index: idx}
		default:
			return expr, nil
		}
	}
}

func (p *Parser) finishCall(callee Expr) (Expr, error) {
	var args []Expr
	if !p.check(lexer.RIGHT_PAREN) {
		for {
			if len(args) >= 255 {
				return nil, &Error{Line: p.peek().Line, Message: "too many arguments"}
			}
			arg, err := p.expression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if !p.matchAny(lexer.COMMA) {
				break
			}
		}
	}
	rparen, err := p.consume(lexer.RIGHT_PAREN, "expected ')' after arguments")
	if err != nil {
		return nil, err
	}
	return &CallExpr{Callee: callee, Args: args, RightParen: rparen}, nil
}

func (p *Parser) primary() (Expr, error) {
	switch {
	case p.matchAny(lexer.TRUE):
		return &LiteralExpr{Value: lexer.BoolLiteral(true)}, nil
	case p.matchAny(lexer.FALSE):
		return &LiteralExpr{Value: lexer.BoolLiteral(false)}, nil
	case p.matchAny(lexer.NULL):
		return &LiteralExpr{Value: lexer.NullLiteral()}, nil
	case p.matchAny(lexer.NUMBER, lexer.STRING):
		return &LiteralExpr{Value: p.previous().Literal}, nil
	case p.matchAny(lexer.FUNCTION):
		return p.anonymousFunction()
	case p.matchAny(lexer.LEFT_BRACKET):
		return p.arrayLiteral()
	case p.matchAny(lexer.IDENTIFIER):
		return &IdentifierExpr{Name: p.previous(), Distance: -1}, nil
	case p.check(lexer.LEFT_PAREN):
		return p.groupingOrArrow()
	}
	return nil, &Error{Line: p.peek().Line, Message: fmt.Sprintf("unexpected token '%s'", p.peek())}
}

func (p *Parser) anonymousFunction() (Expr, error) {
	params, err := p.paramList()
	if err != nil {
		return nil, err
	}
	body, err := p.blockStatement()
	if err != nil {
		return nil, err
	}
	return &AnonymousFuncExpr{Decl: &FuncStmt{Params: params, Body: body}}, nil
}

func (p *Parser) arrayLiteral() (Expr, error) {
	token := p.previous()
	var elems []Expr
	if !p.check(lexer.RIGHT_BRACKET) {
		for {
			elem, err := p.expression()
			if err != nil {
				return nil, err
			}
			elems = append(elems, elem)
			if !p.matchAny(lexer.COMMA) {
				break
			}
		}
	}
	if _, err := p.consume(lexer.RIGHT_BRACKET, "expected ']' after array elements"); err != nil {
		return nil, err
	}
	return &ArrayExpr{Token: token, Elements: elems}, nil
}

// groupingOrArrow disambiguates `(expr)` from `(params) => expr` via a
// tentative parse: try a parameter list, and only commit to the arrow
// interpretation if '=>' follows. Otherwise roll current back to the
// opening paren and parse a grouping, per spec.md §4.2/§9.
func (p *Parser) groupingOrArrow() (Expr, error) {
	checkpoint := p.current

	if params, ok := p.tryParamList(); ok {
		if p.matchAny(lexer.ARROW) {
			bodyExpr, err := p.expression()
			if err != nil {
				return nil, err
			}
			body := &BlockStmt{Statements: []Stmt{&ReturnStmt{Value: bodyExpr, Line: p.previous().Line}}}
			return &AnonymousFuncExpr{Decl: &FuncStmt{Params: params, Body: body}}, nil
		}
	}

	p.current = checkpoint
	if _, err := p.consume(lexer.LEFT_PAREN, "expected '('"); err != nil {
		return nil, err
	}
	inner, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.RIGHT_PAREN, "expected ')' after expression"); err != nil {
		return nil, err
	}
	return &GroupingExpr{Inner: inner}, nil
}

// tryParamList attempts to parse `( IDENT (, IDENT)* )` starting at
// the current position. On any mismatch it leaves p.current
// unspecified (the caller must roll back via checkpoint) and reports
// ok=false rather than pushing a parser error.
func (p *Parser) tryParamList() (params []lexer.Token, ok bool) {
	if !p.check(lexer.LEFT_PAREN) {
		return nil, false
	}
	p.advance()
	if p.check(lexer.RIGHT_PAREN) {
		p.advance()
		return nil, true
	}
	for {
		if !p.check(lexer.IDENTIFIER) {
			return nil, false
		}
		params = append(params, p.advance())
		if p.matchAny(lexer.COMMA) {
			continue
		}
		break
	}
	if !p.check(lexer.RIGHT_PAREN) {
		return nil, false
	}
	p.advance()
	return params, true
}
