/*
File    : simplescript/compiler/compiler.go
Author  : Akash Maji
Contact : akashmaji(@iisc.ac.in)
*/

package compiler

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/akashmaji946/simplescript/lexer"
	"github.com/akashmaji946/simplescript/objects"
	"github.com/akashmaji946/simplescript/sserr"
)

// Error is a compile-time diagnostic (spec.md §7's CompileError).
type Error struct {
	Line    int
	Message string
}

func (e *Error) Error() string {
	return sserr.Format("Compile", e.Line, e.Message)
}

type local struct {
	name  string
	depth int
}

// funcCompiler tracks the locals and captured upvalues of one
// function body being compiled, mirroring the nested-Compiler-with-
// enclosing-pointer shape of the Go VM compiler in the example pack,
// adapted to emit function bodies inline into a single shared Chunk
// the way original_source/rvm/src/compiler/compiler.rs does (a
// CONSTANT(Fn(ip)) plus a skip-JUMP, not a separate chunk per
// function).
type funcCompiler struct {
	enclosing  *funcCompiler
	locals     []local
	upvalues   []UpvalueRef
	scopeDepth int
	// inFunction is false only for the implicit top-level script scope,
	// mirroring golox's FScript/FFun distinction for rejecting a
	// top-level `return`.
	inFunction bool
	// selfName, when non-empty, is the name of the function currently
	// being compiled. A reference to it inside its own body resolves
	// to GET_SELF rather than an upvalue: capturing the enclosing
	// slot as an upvalue at CLOSURE-creation time would read that
	// slot before the closure being built is itself stored there,
	// breaking direct recursion for named local functions.
	selfName string
}

func newFuncCompiler(enclosing *funcCompiler) *funcCompiler {
	return &funcCompiler{enclosing: enclosing}
}

func (fc *funcCompiler) findLocal(name string) int {
	for i := len(fc.locals) - 1; i >= 0; i-- {
		if fc.locals[i].name == name {
			return i
		}
	}
	return -1
}

func (fc *funcCompiler) addUpvalue(index int, isLocal bool) int {
	for i, u := range fc.upvalues {
		if u.Index == index && u.IsLocal == isLocal {
			return i
		}
	}
	fc.upvalues = append(fc.upvalues, UpvalueRef{Index: index, IsLocal: isLocal})
	return len(fc.upvalues) - 1
}

// resolveUpvalue looks for name in every enclosing function scope,
// threading an upvalue descriptor through each intervening function
// so a deeply nested closure can reach a grandparent's local. Capture
// is by value at CLOSURE-creation time: SimpleScript has no mutable
// bindings (spec.md §2), so this is observationally identical to
// capture-by-reference without clox's open/closed-upvalue machinery.
func resolveUpvalue(fc *funcCompiler, name string) int {
	if fc.enclosing == nil {
		return -1
	}
	if slot := fc.enclosing.findLocal(name); slot != -1 {
		return fc.addUpvalue(slot, true)
	}
	if up := resolveUpvalue(fc.enclosing, name); up != -1 {
		return fc.addUpvalue(up, false)
	}
	return -1
}

// Compiler turns a token stream directly into a Chunk, without ever
// building an AST (spec.md §4.6).
type Compiler struct {
	tokens  []lexer.Token
	current int
	chunk   *Chunk
	fc      *funcCompiler
	errors  *multierror.Error
}

// NewCompiler returns a Compiler over an already-scanned token
// stream (the scanner is shared with the tree-walking front end per
// spec.md §9's "shared scanner module" design note).
func NewCompiler(tokens []lexer.Token) *Compiler {
	return &Compiler{
		tokens: tokens,
		chunk:  NewChunk(),
		fc:     newFuncCompiler(nil),
	}
}

// Compile compiles the whole token stream and returns the resulting
// Chunk. Like the scanner/parser, it accumulates every diagnostic it
// can rather than stopping at the first (spec.md §7).
func Compile(tokens []lexer.Token) (*Chunk, error) {
	c := NewCompiler(tokens)
	for !c.check(lexer.EOF) {
		c.declaration()
	}
	return c.chunk, c.errors.ErrorOrNil()
}

/* ---- token-stream helpers ---- */

func (c *Compiler) peek() lexer.Token     { return c.tokens[c.current] }
func (c *Compiler) previous() lexer.Token { return c.tokens[c.current-1] }
func (c *Compiler) check(t lexer.TokenType) bool {
	return c.peek().Type == t
}
func (c *Compiler) advance() lexer.Token {
	if c.peek().Type != lexer.EOF {
		c.current++
	}
	return c.previous()
}
func (c *Compiler) match(t lexer.TokenType) bool {
	if !c.check(t) {
		return false
	}
	c.advance()
	return true
}
func (c *Compiler) consume(t lexer.TokenType, msg string) lexer.Token {
	if c.check(t) {
		return c.advance()
	}
	c.errorAt(c.peek(), msg)
	return c.peek()
}
func (c *Compiler) errorAt(tok lexer.Token, msg string) {
	c.errors = multierror.Append(c.errors, &Error{Line: tok.Line, Message: msg})
}

/* ---- emission helpers ---- */

func (c *Compiler) emit(op Op) int { return c.chunk.Write(op, c.previous().Line) }

func (c *Compiler) emitJump(kind OpKind) int { return c.emit(Op{Kind: kind}) }

// patchJump back-patches the jump at index `at` (returned by an
// earlier emitJump) to land on the instruction about to be emitted
// next. The VM executes `ip += offset` while `ip` still equals `at`
// (vm/vm.go's dispatch loop only advances ip past a jump
// instruction for non-jumping opcodes), so offset is simply the
// distance from `at` to the landing index.
func (c *Compiler) patchJump(at int) {
	c.chunk.Codes[at].Int = c.chunk.Len() - at
}

// emitLoop emits an unconditional backward jump from the instruction
// about to be written to `start`. The VM executes `ip -= offset`
// while `ip` still equals the LOOP instruction's own index, so offset
// is that index minus `start`.
func (c *Compiler) emitLoop(start int) {
	here := c.emit(Op{Kind: OpLoop})
	c.chunk.Codes[here].Int = here - start
}

/* ---- scopes ---- */

func (c *Compiler) beginScope() { c.fc.scopeDepth++ }

func (c *Compiler) endScope() {
	c.fc.scopeDepth--
	n := 0
	for len(c.fc.locals) > 0 && c.fc.locals[len(c.fc.locals)-1].depth > c.fc.scopeDepth {
		c.fc.locals = c.fc.locals[:len(c.fc.locals)-1]
		n++
	}
	switch {
	case n == 1:
		c.emit(Op{Kind: OpPop})
	case n > 1:
		c.emit(Op{Kind: OpPopN, Int: n})
	}
}

// uninitialized marks a local whose initializer is still being
// compiled, so a reference to its own name inside that initializer is
// rejected rather than silently reading an unrelated stack slot
// (golox's `Uninit` depth sentinel for the same hazard).
const uninitialized = -1

func (c *Compiler) declareVariable(name string) {
	if c.fc.scopeDepth == 0 {
		return
	}
	for i := len(c.fc.locals) - 1; i >= 0; i-- {
		if c.fc.locals[i].depth != uninitialized && c.fc.locals[i].depth < c.fc.scopeDepth {
			break
		}
		if c.fc.locals[i].name == name {
			c.errorAt(c.previous(), fmt.Sprintf("'%s' is already defined in this scope", name))
		}
	}
	c.fc.locals = append(c.fc.locals, local{name: name, depth: uninitialized})
}

// markInitialized makes the most recently declared local resolvable,
// once its initializer (or, for params/function names, immediately)
// is no longer being compiled.
func (c *Compiler) markInitialized() {
	if c.fc.scopeDepth == 0 || len(c.fc.locals) == 0 {
		return
	}
	c.fc.locals[len(c.fc.locals)-1].depth = c.fc.scopeDepth
}

func (c *Compiler) defineVariable(name string) {
	if c.fc.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emit(Op{Kind: OpDefineGlobal, Name: name})
}

/* ---- declarations & statements ---- */

func (c *Compiler) declaration() {
	switch {
	case c.match(lexer.CONST):
		c.constDecl()
	case c.match(lexer.FUNCTION):
		c.funcDecl()
	default:
		c.statement()
	}
}

func (c *Compiler) constDecl() {
	c.consume(lexer.IDENTIFIER, "expect identifier after 'const'")
	name := c.previous().Lexeme
	c.declareVariable(name)

	if c.match(lexer.EQUAL) {
		c.expression()
	} else {
		c.emit(Op{Kind: OpConstant, Value: &objects.Null{}})
	}
	c.consume(lexer.SEMICOLON, "expect ';' after const declaration")
	c.defineVariable(name)
}

func (c *Compiler) funcDecl() {
	c.consume(lexer.IDENTIFIER, "expect function name")
	name := c.previous().Lexeme
	c.declareVariable(name)
	// Make the name visible inside its own body immediately, so a
	// local function can recurse (golox's markInit, applied before the
	// body is compiled).
	c.markInitialized()
	entryIP, arity, upvalues := c.compileFunctionBody(name)
	c.emit(Op{Kind: OpClosure, Name: name, EntryIP: entryIP, Arity: arity, Upvalues: upvalues})
	c.defineVariable(name)
}

// compileFunctionBody compiles a parameter list and `{ ... }` body as
// its own function scope, inlined into the shared chunk behind a
// skip-jump, per spec.md §4.6's "Functions" paragraph. name is empty
// for an anonymous `function (...) { ... }` literal; arrow functions
// are compiled by arrowFunctionBody instead.
func (c *Compiler) compileFunctionBody(name string) (entryIP, arity int, upvalues []UpvalueRef) {
	skip := c.emitJump(OpJump)

	c.fc = newFuncCompiler(c.fc)
	c.fc.scopeDepth++
	c.fc.inFunction = true
	c.fc.selfName = name

	entryIP = c.chunk.Len()

	c.consume(lexer.LEFT_PAREN, "expect '(' after function name")
	if !c.check(lexer.RIGHT_PAREN) {
		for {
			c.consume(lexer.IDENTIFIER, "expect parameter name")
			c.declareVariable(c.previous().Lexeme)
			c.markInitialized()
			arity++
			if !c.match(lexer.COMMA) {
				break
			}
		}
	}
	c.consume(lexer.RIGHT_PAREN, "expect ')' after parameters")
	c.consume(lexer.LEFT_BRACE, "expect '{' before function body")

	for !c.check(lexer.RIGHT_BRACE) && !c.check(lexer.EOF) {
		c.declaration()
	}
	c.consume(lexer.RIGHT_BRACE, "expect '}' after function body")

	c.emit(Op{Kind: OpConstant, Value: &objects.Null{}})
	c.emit(Op{Kind: OpReturn})

	upvalues = c.fc.upvalues
	c.fc = c.fc.enclosing

	c.patchJump(skip)
	return
}

func (c *Compiler) statement() {
	switch {
	case c.match(lexer.PRINT):
		c.printStatement()
	case c.match(lexer.IGNORE):
		c.ignoreStatement()
	case c.match(lexer.LEFT_BRACE):
		c.beginScope()
		c.block()
		c.endScope()
	case c.match(lexer.IF):
		c.ifStatement()
	case c.match(lexer.WHILE):
		c.whileStatement()
	case c.match(lexer.RETURN):
		c.returnStatement()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) block() {
	for !c.check(lexer.RIGHT_BRACE) && !c.check(lexer.EOF) {
		c.declaration()
	}
	c.consume(lexer.RIGHT_BRACE, "expect '}' after block")
}

func (c *Compiler) printStatement() {
	c.expression()
	c.consume(lexer.SEMICOLON, "expect ';' after print statement")
	c.emit(Op{Kind: OpPrint})
}

func (c *Compiler) ignoreStatement() {
	c.expression()
	c.consume(lexer.SEMICOLON, "expect ';' after ignore statement")
	c.emit(Op{Kind: OpPop})
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(lexer.SEMICOLON, "expect ';' after expression")
	c.emit(Op{Kind: OpPop})
}

func (c *Compiler) returnStatement() {
	if !c.fc.inFunction {
		c.errorAt(c.previous(), "'return' outside of a function")
	}
	if c.check(lexer.SEMICOLON) {
		c.emit(Op{Kind: OpConstant, Value: &objects.Null{}})
	} else {
		c.expression()
	}
	c.consume(lexer.SEMICOLON, "expect ';' after return statement")
	c.emit(Op{Kind: OpReturn})
}

func (c *Compiler) ifStatement() {
	c.consume(lexer.LEFT_PAREN, "expect '(' after 'if'")
	c.expression()
	c.consume(lexer.RIGHT_PAREN, "expect ')' after condition")
	c.emit(Op{Kind: OpTypeCheckBool})

	thenJump := c.emitJump(OpJumpIfFalse)
	c.emit(Op{Kind: OpPop})
	c.statement()

	elseJump := c.emitJump(OpJump)
	c.patchJump(thenJump)
	c.emit(Op{Kind: OpPop})

	if c.match(lexer.ELSE) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) whileStatement() {
	loopStart := c.chunk.Len()

	c.consume(lexer.LEFT_PAREN, "expect '(' after 'while'")
	c.expression()
	c.consume(lexer.RIGHT_PAREN, "expect ')' after condition")
	c.emit(Op{Kind: OpTypeCheckBool})

	exitJump := c.emitJump(OpJumpIfFalse)
	c.emit(Op{Kind: OpPop})
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emit(Op{Kind: OpPop})
}

/* ---- expressions (precedence climb, spec.md §4.2/§4.6) ---- */

type precedence int

const (
	precNone precedence = iota
	precOr
	precAnd
	precEquality
	precComparison
	precTerm
	precFactor
	precUnary
	precCall
	precPrimary
)

func (c *Compiler) expression() { c.parsePrecedence(precOr) }

func (c *Compiler) parsePrecedence(prec precedence) {
	c.advance()
	if !c.prefix(c.previous().Type) {
		c.errorAt(c.previous(), "expect expression")
		return
	}
	for prec <= precedenceOf(c.peek().Type) {
		c.advance()
		c.infix(c.previous().Type)
	}
}

func precedenceOf(t lexer.TokenType) precedence {
	switch t {
	case lexer.OR:
		return precOr
	case lexer.AND:
		return precAnd
	case lexer.EQUAL_EQUAL, lexer.BANG_EQUAL:
		return precEquality
	case lexer.LESS, lexer.LESS_EQUAL, lexer.GREATER, lexer.GREATER_EQUAL:
		return precComparison
	case lexer.PLUS, lexer.MINUS:
		return precTerm
	case lexer.STAR, lexer.SLASH:
		return precFactor
	case lexer.LEFT_PAREN, lexer.LEFT_BRACKET:
		return precCall
	default:
		return precNone
	}
}

func (c *Compiler) prefix(t lexer.TokenType) bool {
	switch t {
	case lexer.NUMBER:
		c.number()
	case lexer.STRING:
		c.string()
	case lexer.TRUE:
		c.emit(Op{Kind: OpConstant, Value: &objects.Bool{Value: true}})
	case lexer.FALSE:
		c.emit(Op{Kind: OpConstant, Value: &objects.Bool{Value: false}})
	case lexer.NULL:
		c.emit(Op{Kind: OpConstant, Value: &objects.Null{}})
	case lexer.BANG, lexer.MINUS:
		c.unary(t)
	case lexer.LEFT_PAREN:
		c.groupingOrArrow()
	case lexer.LEFT_BRACKET:
		c.arrayLiteral()
	case lexer.IDENTIFIER:
		c.identifier()
	case lexer.FUNCTION:
		c.functionExpr()
	default:
		return false
	}
	return true
}

func (c *Compiler) infix(t lexer.TokenType) {
	switch t {
	case lexer.PLUS:
		c.binary(OpAdd, precTerm)
	case lexer.MINUS:
		c.binary(OpSubtract, precTerm)
	case lexer.STAR:
		c.binary(OpMultiply, precFactor)
	case lexer.SLASH:
		c.binary(OpDivide, precFactor)
	case lexer.EQUAL_EQUAL:
		c.binary(OpEqual, precEquality)
	case lexer.BANG_EQUAL:
		c.binary(OpNotEqual, precEquality)
	case lexer.GREATER:
		c.binary(OpGreater, precComparison)
	case lexer.GREATER_EQUAL:
		c.binary(OpGreaterEqual, precComparison)
	case lexer.LESS:
		c.binary(OpLess, precComparison)
	case lexer.LESS_EQUAL:
		c.binary(OpLessEqual, precComparison)
	case lexer.AND:
		c.and_()
	case lexer.OR:
		c.or_()
	case lexer.LEFT_PAREN:
		c.call()
	case lexer.LEFT_BRACKET:
		c.index_()
	}
}

func (c *Compiler) number() {
	c.emit(Op{Kind: OpConstant, Value: &objects.Number{Value: c.previous().Literal.Num}})
}

func (c *Compiler) string() {
	c.emit(Op{Kind: OpConstant, Value: &objects.String{Value: c.previous().Literal.Str}})
}

func (c *Compiler) unary(op lexer.TokenType) {
	c.parsePrecedence(precUnary)
	if op == lexer.BANG {
		c.emit(Op{Kind: OpNot})
	} else {
		c.emit(Op{Kind: OpNegate})
	}
}

func (c *Compiler) binary(kind OpKind, prec precedence) {
	c.parsePrecedence(prec + 1)
	c.emit(Op{Kind: kind})
}

func (c *Compiler) and_() {
	endJump := c.emitJump(OpJumpIfFalse)
	c.emit(Op{Kind: OpPop})
	c.parsePrecedence(precAnd)
	c.patchJump(endJump)
	c.emit(Op{Kind: OpTypeCheckBool})
}

func (c *Compiler) or_() {
	elseJump := c.emitJump(OpJumpIfFalse)
	endJump := c.emitJump(OpJump)
	c.patchJump(elseJump)
	c.emit(Op{Kind: OpPop})
	c.parsePrecedence(precOr)
	c.patchJump(endJump)
	c.emit(Op{Kind: OpTypeCheckBool})
}

func (c *Compiler) groupingOrArrow() {
	checkpoint := c.current
	if params, ok := c.tryParamList(); ok && c.check(lexer.ARROW) {
		c.advance() // consume '=>'
		entryIP, arity, upvalues := c.arrowFunctionBody(params)
		c.emit(Op{Kind: OpClosure, EntryIP: entryIP, Arity: arity, Upvalues: upvalues})
		return
	}
	c.current = checkpoint
	c.expression()
	c.consume(lexer.RIGHT_PAREN, "expect ')' after expression")
}

// tryParamList tentatively parses `a, b, c)` as a parameter list
// (the opening '(' is already consumed by groupingOrArrow's caller,
// the Pratt loop's prefix dispatch) without emitting anything, so
// groupingOrArrow can roll back to a plain grouping when no `=>`
// follows (spec.md §4.2's grammar note on arrow-function
// disambiguation).
func (c *Compiler) tryParamList() ([]string, bool) {
	var params []string
	if !c.check(lexer.RIGHT_PAREN) {
		for {
			if !c.check(lexer.IDENTIFIER) {
				return nil, false
			}
			params = append(params, c.advance().Lexeme)
			if !c.match(lexer.COMMA) {
				break
			}
		}
	}
	if !c.match(lexer.RIGHT_PAREN) {
		return nil, false
	}
	return params, true
}

func (c *Compiler) arrowFunctionBody(params []string) (entryIP, arity int, upvalues []UpvalueRef) {
	skip := c.emitJump(OpJump)

	c.fc = newFuncCompiler(c.fc)
	c.fc.scopeDepth++
	c.fc.inFunction = true
	entryIP = c.chunk.Len()

	for _, p := range params {
		c.fc.locals = append(c.fc.locals, local{name: p, depth: c.fc.scopeDepth})
	}
	arity = len(params)

	c.expression()
	c.emit(Op{Kind: OpReturn})

	upvalues = c.fc.upvalues
	c.fc = c.fc.enclosing

	c.patchJump(skip)
	return
}

func (c *Compiler) functionExpr() {
	entryIP, arity, upvalues := c.compileFunctionBody("")
	c.emit(Op{Kind: OpClosure, EntryIP: entryIP, Arity: arity, Upvalues: upvalues})
}

func (c *Compiler) arrayLiteral() {
	n := 0
	if !c.check(lexer.RIGHT_BRACKET) {
		for {
			c.expression()
			n++
			if !c.match(lexer.COMMA) {
				break
			}
		}
	}
	c.consume(lexer.RIGHT_BRACKET, "expect ']' after array elements")
	c.emit(Op{Kind: OpArray, Int: n})
}

func (c *Compiler) identifier() {
	name := c.previous().Lexeme
	// A local (e.g. a parameter named the same as the enclosing
	// function) shadows the function's own name, matching the
	// resolver's scoping: resolveFunction declares the function name
	// in the outer scope, then pushes a new scope for params, so
	// `function f(f) { return f; }` must read the parameter, not
	// recurse into the closure.
	if slot := c.fc.findLocal(name); slot != -1 {
		if c.fc.locals[slot].depth == uninitialized {
			c.errorAt(c.previous(), fmt.Sprintf("can't read local variable '%s' in its own initializer", name))
		}
		c.emit(Op{Kind: OpGetLocal, Int: slot})
		return
	}
	if c.fc.selfName != "" && name == c.fc.selfName {
		c.emit(Op{Kind: OpGetSelf})
		return
	}
	if slot := resolveUpvalue(c.fc, name); slot != -1 {
		c.emit(Op{Kind: OpGetUpvalue, Int: slot})
		return
	}
	c.emit(Op{Kind: OpGetGlobal, Name: name})
}

func (c *Compiler) call() {
	argCount := 0
	if !c.check(lexer.RIGHT_PAREN) {
		for {
			c.expression()
			argCount++
			if !c.match(lexer.COMMA) {
				break
			}
		}
	}
	c.consume(lexer.RIGHT_PAREN, "expect ')' after arguments")
	c.emit(Op{Kind: OpCall, Int: argCount})
}

func (c *Compiler) index_() {
	c.expression()
	c.consume(lexer.RIGHT_BRACKET, "expect ']' after index")
	c.emit(Op{Kind: OpIndex})
}
