package compiler

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Parser: Recursive descent parser for minilang
// ---------------------------------------------------------------------------

// MaxArgs is the largest number of call arguments or function parameters.
const MaxArgs = 255

// Parser turns a token sequence into a Program.
type Parser struct {
	tokens  []Token
	current int
	errors  []*Error
}

// parseBailout unwinds the parser to the enclosing top-level declaration.
type parseBailout struct{}

// NewParser creates a parser over tokens. Error tokens are skipped and a
// trailing EOF is supplied if missing.
func NewParser(tokens []Token) *Parser {
	toks := make([]Token, 0, len(tokens)+1)
	for _, tok := range tokens {
		if tok.Type == TokenError {
			continue
		}
		toks = append(toks, tok)
		if tok.Type == TokenEOF {
			break
		}
	}
	if len(toks) == 0 || toks[len(toks)-1].Type != TokenEOF {
		var pos Position
		if len(toks) > 0 {
			pos = tokenEnd(toks[len(toks)-1])
		} else {
			pos = Position{Line: 1, Column: 1}
		}
		toks = append(toks, Token{Type: TokenEOF, Pos: pos})
	}
	return &Parser{tokens: toks}
}

// Parse parses tokens into a Program. The program holds every statement that
// parsed cleanly; errors holds one entry per failed top-level declaration, in
// source order.
func Parse(tokens []Token) (*Program, []*Error) {
	p := NewParser(tokens)
	prog := p.ParseProgram()
	return prog, p.Errors()
}

// Errors returns accumulated parse errors.
func (p *Parser) Errors() []*Error {
	return p.errors
}

// ---------------------------------------------------------------------------
// Token cursor
// ---------------------------------------------------------------------------

func (p *Parser) peek() Token {
	return p.tokens[p.current]
}

func (p *Parser) previous() Token {
	return p.tokens[p.current-1]
}

func (p *Parser) isAtEnd() bool {
	return p.peek().Type == TokenEOF
}

func (p *Parser) advance() Token {
	if !p.isAtEnd() {
		p.current++
	}
	return p.previous()
}

func (p *Parser) check(t TokenType) bool {
	if p.isAtEnd() {
		return false
	}
	return p.peek().Type == t
}

// match consumes the current token if it has one of the given types.
func (p *Parser) match(types ...TokenType) bool {
	for _, t := range types {
		if p.check(t) {
			p.advance()
			return true
		}
	}
	return false
}

// expect consumes a token of type t or bails out with msg.
func (p *Parser) expect(t TokenType, msg string) Token {
	if p.check(t) {
		return p.advance()
	}
	p.fail(p.peek(), msg)
	return Token{}
}

// errorf records a parse error at tok.
func (p *Parser) errorf(tok Token, format string, args ...any) {
	p.errors = append(p.errors, &Error{
		Kind:    ParseError,
		Line:    tok.Pos.Line,
		Column:  tok.Pos.Column,
		Message: fmt.Sprintf(format, args...),
	})
}

// fail records a parse error at tok and abandons the current declaration.
func (p *Parser) fail(tok Token, msg string) {
	p.errorf(tok, "%s", msg)
	panic(parseBailout{})
}

// synchronize skips tokens until a likely declaration boundary: just after
// a ';' or just before a statement keyword.
func (p *Parser) synchronize() {
	p.advance()

	for !p.isAtEnd() {
		if p.previous().Type == TokenSemicolon {
			return
		}
		switch p.peek().Type {
		case TokenFn, TokenLet, TokenIf, TokenWhile, TokenReturn, TokenPrint:
			return
		}
		p.advance()
	}
}

// ---------------------------------------------------------------------------
// Top-level parsing
// ---------------------------------------------------------------------------

// ParseProgram parses declarations until EOF, recovering after each error.
func (p *Parser) ParseProgram() *Program {
	prog := &Program{}
	for !p.isAtEnd() {
		if stmt := p.topLevel(); stmt != nil {
			prog.Statements = append(prog.Statements, stmt)
		}
	}
	return prog
}

// ParseExpression parses a single expression that must cover every
// remaining token. It returns nil after recording an error.
func (p *Parser) ParseExpression() (expr Expr) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(parseBailout); !ok {
				panic(r)
			}
			expr = nil
		}
	}()
	expr = p.expression()
	if !p.isAtEnd() {
		p.fail(p.peek(), "expected end of expression")
	}
	return expr
}

// topLevel parses one declaration, converting a bailout into a recorded
// error followed by resynchronization.
func (p *Parser) topLevel() (stmt Stmt) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(parseBailout); !ok {
				panic(r)
			}
			p.synchronize()
			stmt = nil
		}
	}()
	return p.declaration()
}

// ---------------------------------------------------------------------------
// Declarations and statements
// ---------------------------------------------------------------------------

func (p *Parser) declaration() Stmt {
	if p.match(TokenLet) {
		return p.letDeclaration()
	}
	if p.match(TokenFn) {
		return p.functionDeclaration()
	}
	return p.statement()
}

func (p *Parser) letDeclaration() Stmt {
	start := p.previous().Pos
	name := p.expect(TokenIdentifier, "expected variable name after 'let'")

	var init Expr
	if p.match(TokenEqual) {
		init = p.expression()
	}

	p.expect(TokenSemicolon, "expected ';' after variable declaration")
	return &LetStmt{SpanVal: p.spanFrom(start), Name: name.Lexeme, Init: init}
}

func (p *Parser) functionDeclaration() Stmt {
	start := p.previous().Pos
	name := p.expect(TokenIdentifier, "expected function name after 'fn'")
	p.expect(TokenLParen, "expected '(' after function name")

	var params []string
	if !p.check(TokenRParen) {
		for {
			if len(params) >= MaxArgs {
				p.fail(p.peek(), "can't have more than 255 parameters")
			}
			param := p.expect(TokenIdentifier, "expected parameter name")
			params = append(params, param.Lexeme)
			if !p.match(TokenComma) {
				break
			}
		}
	}

	p.expect(TokenRParen, "expected ')' after parameters")
	p.expect(TokenLBrace, "expected '{' before function body")

	var body []Stmt
	for !p.check(TokenRBrace) && !p.isAtEnd() {
		if stmt := p.declaration(); stmt != nil {
			body = append(body, stmt)
		}
	}

	p.expect(TokenRBrace, "expected '}' after function body")
	return &FunctionStmt{SpanVal: p.spanFrom(start), Name: name.Lexeme, Params: params, Body: body}
}

func (p *Parser) statement() Stmt {
	switch {
	case p.match(TokenIf):
		return p.ifStatement()
	case p.match(TokenWhile):
		return p.whileStatement()
	case p.match(TokenReturn):
		return p.returnStatement()
	case p.match(TokenPrint):
		return p.printStatement()
	case p.match(TokenLBrace):
		return p.blockStatement()
	}
	return p.expressionStatement()
}

func (p *Parser) ifStatement() Stmt {
	start := p.previous().Pos
	p.expect(TokenLParen, "expected '(' after 'if'")
	cond := p.expression()
	p.expect(TokenRParen, "expected ')' after if condition")

	then := p.statement()
	var els Stmt
	if p.match(TokenElse) {
		els = p.statement()
	}

	return &IfStmt{SpanVal: p.spanFrom(start), Cond: cond, Then: then, Else: els}
}

func (p *Parser) whileStatement() Stmt {
	start := p.previous().Pos
	p.expect(TokenLParen, "expected '(' after 'while'")
	cond := p.expression()
	p.expect(TokenRParen, "expected ')' after while condition")

	body := p.statement()
	return &WhileStmt{SpanVal: p.spanFrom(start), Cond: cond, Body: body}
}

func (p *Parser) returnStatement() Stmt {
	start := p.previous().Pos

	var value Expr
	if !p.check(TokenSemicolon) {
		value = p.expression()
	}

	p.expect(TokenSemicolon, "expected ';' after return value")
	return &ReturnStmt{SpanVal: p.spanFrom(start), Value: value}
}

func (p *Parser) printStatement() Stmt {
	start := p.previous().Pos
	expr := p.expression()
	p.expect(TokenSemicolon, "expected ';' after value")
	return &PrintStmt{SpanVal: p.spanFrom(start), Expr: expr}
}

func (p *Parser) blockStatement() Stmt {
	start := p.previous().Pos

	var stmts []Stmt
	for !p.check(TokenRBrace) && !p.isAtEnd() {
		if stmt := p.declaration(); stmt != nil {
			stmts = append(stmts, stmt)
		}
	}

	p.expect(TokenRBrace, "expected '}' after block")
	return &BlockStmt{SpanVal: p.spanFrom(start), Statements: stmts}
}

func (p *Parser) expressionStatement() Stmt {
	start := p.peek().Pos
	expr := p.expression()
	p.expect(TokenSemicolon, "expected ';' after expression")
	return &ExprStmt{SpanVal: p.spanFrom(start), Expr: expr}
}

// ---------------------------------------------------------------------------
// Expressions, lowest precedence first
// ---------------------------------------------------------------------------

func (p *Parser) expression() Expr {
	return p.assignment()
}

// assignment is right-associative and only accepts a bare variable target.
func (p *Parser) assignment() Expr {
	expr := p.logicalOr()

	if p.match(TokenEqual) {
		equals := p.previous()
		value := p.assignment()

		if v, ok := expr.(*Variable); ok {
			return &Assign{
				SpanVal: Span{Start: v.SpanVal.Start, End: value.Span().End},
				Name:    v.Name,
				Value:   value,
			}
		}
		p.fail(equals, "invalid assignment target")
	}

	return expr
}

// binary parses one left-associative precedence tier.
func (p *Parser) binary(next func() Expr, ops ...TokenType) Expr {
	expr := next()
	for p.match(ops...) {
		op := p.previous()
		right := next()
		expr = &Binary{
			SpanVal: Span{Start: expr.Span().Start, End: right.Span().End},
			Left:    expr,
			Op:      op,
			Right:   right,
		}
	}
	return expr
}

func (p *Parser) logicalOr() Expr {
	return p.binary(p.logicalAnd, TokenOr)
}

func (p *Parser) logicalAnd() Expr {
	return p.binary(p.equality, TokenAnd)
}

func (p *Parser) equality() Expr {
	return p.binary(p.comparison, TokenBangEqual, TokenEqualEqual)
}

func (p *Parser) comparison() Expr {
	return p.binary(p.term, TokenGreater, TokenGreaterEqual, TokenLess, TokenLessEqual)
}

func (p *Parser) term() Expr {
	return p.binary(p.factor, TokenMinus, TokenPlus)
}

func (p *Parser) factor() Expr {
	return p.binary(p.unary, TokenSlash, TokenStar, TokenPercent)
}

func (p *Parser) unary() Expr {
	if p.match(TokenBang, TokenMinus) {
		op := p.previous()
		operand := p.unary()
		return &Unary{
			SpanVal: Span{Start: op.Pos, End: operand.Span().End},
			Op:      op,
			Operand: operand,
		}
	}
	return p.call()
}

func (p *Parser) call() Expr {
	expr := p.primary()
	for p.match(TokenLParen) {
		expr = p.finishCall(expr)
	}
	return expr
}

func (p *Parser) finishCall(callee Expr) Expr {
	var args []Expr
	if !p.check(TokenRParen) {
		for {
			if len(args) >= MaxArgs {
				p.fail(p.peek(), "can't have more than 255 arguments")
			}
			args = append(args, p.expression())
			if !p.match(TokenComma) {
				break
			}
		}
	}

	paren := p.expect(TokenRParen, "expected ')' after arguments")
	return &Call{
		SpanVal: Span{Start: callee.Span().Start, End: tokenEnd(paren)},
		Callee:  callee,
		Args:    args,
	}
}

func (p *Parser) primary() Expr {
	tok := p.peek()
	switch {
	case p.match(TokenFalse):
		return &Literal{SpanVal: tokenSpan(tok), Kind: LiteralBool, Bool: false}
	case p.match(TokenTrue):
		return &Literal{SpanVal: tokenSpan(tok), Kind: LiteralBool, Bool: true}
	case p.match(TokenNumber):
		f, _ := tok.Value.(float64)
		return &Literal{SpanVal: tokenSpan(tok), Kind: LiteralNumber, Number: f}
	case p.match(TokenString):
		s, _ := tok.Value.(string)
		return &Literal{SpanVal: tokenSpan(tok), Kind: LiteralString, Text: s}
	case p.match(TokenLParen):
		inner := p.expression()
		p.expect(TokenRParen, "expected ')' after expression")
		return &Grouping{SpanVal: p.spanFrom(tok.Pos), Inner: inner}
	case p.match(TokenIdentifier):
		return &Variable{SpanVal: tokenSpan(tok), Name: tok.Lexeme}
	}

	p.fail(tok, "expected expression")
	return nil
}

// ---------------------------------------------------------------------------
// Span helpers
// ---------------------------------------------------------------------------

// MakeSpan creates a span from start to end positions.
func MakeSpan(start, end Position) Span {
	return Span{Start: start, End: end}
}

// spanFrom returns the span from start to the end of the last consumed token.
func (p *Parser) spanFrom(start Position) Span {
	return MakeSpan(start, tokenEnd(p.previous()))
}

func tokenSpan(tok Token) Span {
	return MakeSpan(tok.Pos, tokenEnd(tok))
}

// tokenEnd returns the position just past tok.
func tokenEnd(tok Token) Position {
	end := tok.Pos
	end.Offset += len(tok.Lexeme)
	if nl := strings.LastIndexByte(tok.Lexeme, '\n'); nl >= 0 {
		end.Line += strings.Count(tok.Lexeme, "\n")
		end.Column = len(tok.Lexeme) - nl
	} else {
		end.Column += len(tok.Lexeme)
	}
	return end
}
