package compiler

import (
	"github.com/chazu/minilang/vm"
)

// Options configures the lexer and generator for one compilation.
type Options struct {
	// Dialect selects the accepted operator spellings.
	Dialect Dialect

	// PopBranchCondition discards the condition value on both edges of every
	// if/while branch. When false the condition stays on the operand stack,
	// matching the historical code shape.
	PopBranchCondition bool
}

// LexerOptions returns the lexer settings carried by o.
func (o Options) LexerOptions() LexerOptions {
	return LexerOptions{Dialect: o.Dialect}
}

// Compile turns source into a chunk. It stops at the first lex error before
// parsing begins, reports only the first parse error, and reports the error
// that aborted generation. The returned error is always a *Error.
func Compile(source string, opts Options) (*vm.Chunk, error) {
	tokens, err := scanAll(source, opts)
	if err != nil {
		return nil, err
	}

	prog, errs := Parse(tokens)
	if len(errs) > 0 {
		return nil, errs[0]
	}

	return Generate(prog, opts)
}

// CompileExpr compiles a single expression, such as "1 + 2", to a chunk
// that evaluates it and returns. Errors are reported as by Compile.
func CompileExpr(source string, opts Options) (*vm.Chunk, error) {
	tokens, err := scanAll(source, opts)
	if err != nil {
		return nil, err
	}

	p := NewParser(tokens)
	expr := p.ParseExpression()
	if errs := p.Errors(); len(errs) > 0 {
		return nil, errs[0]
	}

	g := NewGenerator(opts)
	chunk := g.GenerateExpr(expr)
	if g.HadError() {
		return nil, g.Err()
	}
	return chunk, nil
}

// scanAll lexes source up to EOF, stopping at the first lex error.
func scanAll(source string, opts Options) ([]Token, error) {
	lexer := NewLexerWithOptions(source, opts.LexerOptions())

	var tokens []Token
	for {
		tok := lexer.NextToken()
		if tok.Type == TokenError {
			return nil, &Error{
				Kind:    LexError,
				Line:    tok.Pos.Line,
				Column:  tok.Pos.Column,
				Message: tok.Lexeme,
			}
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens, nil
		}
	}
}

// Generate compiles an already parsed program.
func Generate(prog *Program, opts Options) (*vm.Chunk, error) {
	g := NewGenerator(opts)
	chunk := g.Generate(prog)
	if g.HadError() {
		return nil, g.Err()
	}
	return chunk, nil
}

// Diagnostics returns every problem found in source: all lex errors, all
// parse errors and, when the source parsed cleanly, the generator error.
// Generation is skipped when lexing or parsing failed.
func Diagnostics(source string, opts Options) []*Error {
	lexer := NewLexerWithOptions(source, opts.LexerOptions())

	var diags []*Error
	var tokens []Token
	for {
		tok := lexer.NextToken()
		if tok.Type == TokenError {
			diags = append(diags, &Error{
				Kind:    LexError,
				Line:    tok.Pos.Line,
				Column:  tok.Pos.Column,
				Message: tok.Lexeme,
			})
			continue
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			break
		}
	}

	prog, errs := Parse(tokens)
	diags = append(diags, errs...)
	if len(diags) > 0 {
		return diags
	}

	g := NewGenerator(opts)
	g.Generate(prog)
	if g.err != nil {
		diags = append(diags, g.err)
	}
	return diags
}

// ParseSource lexes and parses source, dropping lex errors. It is used by
// tools that want a tree even for imperfect input.
func ParseSource(source string, opts Options) (*Program, []*Error) {
	return Parse(NewLexerWithOptions(source, opts.LexerOptions()).Tokenize())
}
