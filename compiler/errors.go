package compiler

import "fmt"

// ErrorKind classifies a compile-time diagnostic.
type ErrorKind int

const (
	LexError     ErrorKind = iota // malformed character sequence
	ParseError                    // grammar violation
	CompileError                  // generator-level violation
)

func (k ErrorKind) String() string {
	switch k {
	case LexError:
		return "lex error"
	case ParseError:
		return "parse error"
	case CompileError:
		return "compile error"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is a positioned diagnostic produced by the lexer, parser or
// generator.
type Error struct {
	Kind    ErrorKind
	Line    int
	Column  int // 0 when only the line is known
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}
