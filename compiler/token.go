package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token types for the minilang lexer
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Literals
	TokenNumber     // 42, 3.14
	TokenString     // "hello"
	TokenIdentifier // foo, _bar1

	// Keywords
	TokenLet
	TokenFn
	TokenIf
	TokenElse
	TokenWhile
	TokenReturn
	TokenTrue
	TokenFalse
	TokenPrint

	// Operators
	TokenPlus         // +
	TokenMinus        // -
	TokenStar         // *
	TokenSlash        // /
	TokenPercent      // %
	TokenAnd          // &&
	TokenOr           // ||
	TokenBang         // !
	TokenEqualEqual   // ==
	TokenBangEqual    // !=
	TokenLess         // <
	TokenLessEqual    // <=
	TokenGreater      // >
	TokenGreaterEqual // >=
	TokenEqual        // =

	// Delimiters
	TokenLParen    // (
	TokenRParen    // )
	TokenLBrace    // {
	TokenRBrace    // }
	TokenComma     // ,
	TokenSemicolon // ;
)

var tokenNames = map[TokenType]string{
	TokenEOF:          "EOF",
	TokenError:        "ERROR",
	TokenNumber:       "NUMBER",
	TokenString:       "STRING",
	TokenIdentifier:   "IDENTIFIER",
	TokenLet:          "let",
	TokenFn:           "fn",
	TokenIf:           "if",
	TokenElse:         "else",
	TokenWhile:        "while",
	TokenReturn:       "return",
	TokenTrue:         "true",
	TokenFalse:        "false",
	TokenPrint:        "print",
	TokenPlus:         "+",
	TokenMinus:        "-",
	TokenStar:         "*",
	TokenSlash:        "/",
	TokenPercent:      "%",
	TokenAnd:          "&&",
	TokenOr:           "||",
	TokenBang:         "!",
	TokenEqualEqual:   "==",
	TokenBangEqual:    "!=",
	TokenLess:         "<",
	TokenLessEqual:    "<=",
	TokenGreater:      ">",
	TokenGreaterEqual: ">=",
	TokenEqual:        "=",
	TokenLParen:       "(",
	TokenRParen:       ")",
	TokenLBrace:       "{",
	TokenRBrace:       "}",
	TokenComma:        ",",
	TokenSemicolon:    ";",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// Token represents a lexical token.
type Token struct {
	Type   TokenType
	Lexeme string   // the raw text; the message for TokenError
	Pos    Position // start position
	Value  any      // float64 for numbers, string for strings, bool for true/false
}

func (t Token) String() string {
	switch t.Type {
	case TokenEOF:
		return "EOF"
	case TokenError:
		return fmt.Sprintf("ERROR(%s)", t.Lexeme)
	}
	if len(t.Lexeme) > 20 {
		return fmt.Sprintf("%s(%q...)", t.Type, t.Lexeme[:20])
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Lexeme)
}

// Reserved words mapped to their token types.
var keywords = map[string]TokenType{
	"let":    TokenLet,
	"fn":     TokenFn,
	"if":     TokenIf,
	"else":   TokenElse,
	"while":  TokenWhile,
	"return": TokenReturn,
	"true":   TokenTrue,
	"false":  TokenFalse,
	"print":  TokenPrint,
}

// IsKeyword reports whether name is a reserved word.
func IsKeyword(name string) bool {
	_, ok := keywords[name]
	return ok
}
