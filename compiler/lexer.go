package compiler

import (
	"fmt"
	"strconv"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Dialects
// ---------------------------------------------------------------------------

// Dialect selects which operator spellings the lexer accepts.
type Dialect int

const (
	// DialectReference rejects bare '!', '&&' and '||'. The parser's unary
	// not and logical operators are unreachable from source in this dialect.
	DialectReference Dialect = iota

	// DialectExtended also scans '!' as BANG, '&&' as AND and '||' as OR.
	DialectExtended
)

func (d Dialect) String() string {
	switch d {
	case DialectReference:
		return "reference"
	case DialectExtended:
		return "extended"
	}
	return fmt.Sprintf("Dialect(%d)", int(d))
}

// ParseDialect converts a dialect name into a Dialect. The empty string
// selects the reference dialect.
func ParseDialect(name string) (Dialect, error) {
	switch name {
	case "", "reference":
		return DialectReference, nil
	case "extended":
		return DialectExtended, nil
	}
	return DialectReference, fmt.Errorf("unknown dialect %q", name)
}

// LexerOptions configures a Lexer.
type LexerOptions struct {
	Dialect Dialect
}

// ---------------------------------------------------------------------------
// Lexer: Tokenizer for minilang source
// ---------------------------------------------------------------------------

// Lexer tokenizes minilang source code.
type Lexer struct {
	input     string
	pos       int  // current position in input
	readPos   int  // reading position (after current char)
	ch        rune // current character
	line      int  // current line (1-based)
	lineStart int  // offset of current line start
	opts      LexerOptions
}

// NewLexer creates a new lexer for the given input using the reference
// dialect.
func NewLexer(input string) *Lexer {
	return NewLexerWithOptions(input, LexerOptions{})
}

// NewLexerWithOptions creates a new lexer for the given input.
func NewLexerWithOptions(input string, opts LexerOptions) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		opts:  opts,
	}
	l.readChar()
	return l
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.ch == '\n' && l.readPos > 0 {
		l.line++
		l.lineStart = l.readPos
	}
	if l.readPos >= len(l.input) {
		l.ch = 0 // EOF
		l.pos = len(l.input)
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	l.ch = r
	l.pos = l.readPos
	l.readPos += size
}

// peekChar returns the next character without consuming it.
func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

func (l *Lexer) atEnd() bool {
	return l.pos >= len(l.input)
}

// position returns the position of the current character.
func (l *Lexer) position() Position {
	return Position{
		Offset: l.pos,
		Line:   l.line,
		Column: l.pos - l.lineStart + 1,
	}
}

func (l *Lexer) token(typ TokenType, pos Position) Token {
	return Token{Type: typ, Lexeme: l.input[pos.Offset:l.pos], Pos: pos}
}

func (l *Lexer) errorToken(pos Position, format string, args ...any) Token {
	return Token{Type: TokenError, Lexeme: fmt.Sprintf(format, args...), Pos: pos}
}

// single consumes the current character and returns a token of type typ.
func (l *Lexer) single(typ TokenType, pos Position) Token {
	l.readChar()
	return l.token(typ, pos)
}

// pair consumes the current character and, when the next one is second,
// that one too. It returns twoType or oneType accordingly.
func (l *Lexer) pair(second rune, twoType, oneType TokenType, pos Position) Token {
	l.readChar()
	if l.ch == second {
		l.readChar()
		return l.token(twoType, pos)
	}
	return l.token(oneType, pos)
}

// NextToken returns the next token. Malformed input produces a TokenError
// whose Lexeme holds the message; scanning can continue after it. Once the
// input is exhausted every call returns TokenEOF.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	pos := l.position()

	if l.atEnd() {
		return Token{Type: TokenEOF, Pos: pos}
	}

	switch c := l.ch; {
	case c == '(':
		return l.single(TokenLParen, pos)
	case c == ')':
		return l.single(TokenRParen, pos)
	case c == '{':
		return l.single(TokenLBrace, pos)
	case c == '}':
		return l.single(TokenRBrace, pos)
	case c == ',':
		return l.single(TokenComma, pos)
	case c == ';':
		return l.single(TokenSemicolon, pos)
	case c == '+':
		return l.single(TokenPlus, pos)
	case c == '-':
		return l.single(TokenMinus, pos)
	case c == '*':
		return l.single(TokenStar, pos)
	case c == '/':
		return l.single(TokenSlash, pos)
	case c == '%':
		return l.single(TokenPercent, pos)

	case c == '=':
		return l.pair('=', TokenEqualEqual, TokenEqual, pos)
	case c == '<':
		return l.pair('=', TokenLessEqual, TokenLess, pos)
	case c == '>':
		return l.pair('=', TokenGreaterEqual, TokenGreater, pos)

	case c == '!':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return l.token(TokenBangEqual, pos)
		}
		if l.opts.Dialect == DialectExtended {
			return l.token(TokenBang, pos)
		}
		return l.errorToken(pos, "unexpected '!' without '='")

	case c == '&' || c == '|':
		l.readChar()
		if l.opts.Dialect == DialectExtended && l.ch == c {
			l.readChar()
			if c == '&' {
				return l.token(TokenAnd, pos)
			}
			return l.token(TokenOr, pos)
		}
		return l.errorToken(pos, "unexpected character: %c", c)

	case c == '"':
		return l.readString(pos)

	case isDigit(c):
		return l.readNumber(pos)

	case isLetter(c):
		return l.readIdentifierOrKeyword(pos)
	}

	c := l.ch
	l.readChar()
	return l.errorToken(pos, "unexpected character: %c", c)
}

// skipWhitespaceAndComments skips blanks and any number of // line comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
			l.readChar()
		}

		if l.ch == '/' && l.peekChar() == '/' {
			for l.ch != '\n' && !l.atEnd() {
				l.readChar()
			}
			continue
		}

		break
	}
}

// readString scans a double-quoted string. There are no escape sequences and
// the string may span lines.
func (l *Lexer) readString(pos Position) Token {
	l.readChar() // consume opening "
	start := l.pos

	for l.ch != '"' && !l.atEnd() {
		l.readChar()
	}

	if l.atEnd() {
		return l.errorToken(pos, "unterminated string")
	}

	text := l.input[start:l.pos]
	l.readChar() // consume closing "

	tok := l.token(TokenString, pos)
	tok.Value = text
	return tok
}

// readNumber scans digits with an optional fractional part. A '.' is only
// part of the number when a digit follows it.
func (l *Lexer) readNumber(pos Position) Token {
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar() // consume .
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	tok := l.token(TokenNumber, pos)
	f, err := strconv.ParseFloat(tok.Lexeme, 64)
	if err != nil {
		return l.errorToken(pos, "invalid number %q", tok.Lexeme)
	}
	tok.Value = f
	return tok
}

func (l *Lexer) readIdentifierOrKeyword(pos Position) Token {
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}

	tok := l.token(TokenIdentifier, pos)
	if typ, ok := keywords[tok.Lexeme]; ok {
		tok.Type = typ
		switch typ {
		case TokenTrue:
			tok.Value = true
		case TokenFalse:
			tok.Value = false
		}
	}
	return tok
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_'
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// Tokenize scans the whole input with the reference dialect.
func Tokenize(input string) []Token {
	return NewLexer(input).Tokenize()
}

// Tokenize scans the remaining input. Error tokens are dropped; the result
// always ends with exactly one TokenEOF.
func (l *Lexer) Tokenize() []Token {
	var tokens []Token
	for {
		tok := l.NextToken()
		if tok.Type == TokenError {
			continue
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens
		}
	}
}
