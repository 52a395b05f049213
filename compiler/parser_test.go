package compiler

import (
	"fmt"
	"strings"
	"testing"
)

func parseExtended(t *testing.T, src string) (*Program, []*Error) {
	t.Helper()
	return ParseSource(src, Options{Dialect: DialectExtended})
}

func TestParsePrecedence(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1 + 2 * 3;", "(expr (+ 1 (* 2 3)))"},
		{"1 - 2 - 3;", "(expr (- (- 1 2) 3))"},
		{"8 / 4 % 3;", "(expr (% (/ 8 4) 3))"},
		{"(1 + 2) * 3;", "(expr (* (group (+ 1 2)) 3))"},
		{"-1 + 2;", "(expr (+ (- 1) 2))"},
		{"--1;", "(expr (- (- 1)))"},
		{"!!true;", "(expr (! (! true)))"},
		{"1 < 2 == 3 > 4;", "(expr (== (< 1 2) (> 3 4)))"},
		{"a || b && c;", "(expr (|| a (&& b c)))"},
		{"a && b || c && d;", "(expr (|| (&& a b) (&& c d)))"},
		{"a == b != c;", "(expr (!= (== a b) c))"},
		{"1 + 2 <= 3 - 4;", "(expr (<= (+ 1 2) (- 3 4)))"},
		{"a = b = 3;", "(expr (= a (= b 3)))"},
		{"a = 1 + 2;", "(expr (= a (+ 1 2)))"},
		{"f(1, 2)(3);", "(expr (call (call f 1 2) 3))"},
		{"-f(x);", "(expr (- (call f x)))"},
		{"\"s\";", `(expr "s")`},
	}

	for _, tc := range tests {
		prog, errs := parseExtended(t, tc.input)
		if len(errs) > 0 {
			t.Errorf("Parse(%q) errors: %v", tc.input, errs)
			continue
		}
		if len(prog.Statements) != 1 {
			t.Errorf("Parse(%q): %d statements, want 1", tc.input, len(prog.Statements))
			continue
		}
		if got := Sprint(prog.Statements[0]); got != tc.want {
			t.Errorf("Parse(%q) = %s, want %s", tc.input, got, tc.want)
		}
	}
}

func TestParseStatements(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"let x;", "(let x)"},
		{"let x = 1;", "(let x 1)"},
		{"print x;", "(print x)"},
		{"return;", "(return)"},
		{"return 1;", "(return 1)"},
		{"{ }", "(block)"},
		{"{ let a = 1; print a; }", "(block (let a 1) (print a))"},
		{"if (x) print 1;", "(if x (print 1))"},
		{"if (x) print 1; else print 2;", "(if x (print 1) (print 2))"},
		{"if (a) if (b) print 1; else print 2;", "(if a (if b (print 1) (print 2)))"},
		{"while (x) { print x; }", "(while x (block (print x)))"},
		{"fn f() { }", "(fn f ())"},
		{"fn add(a, b) { return a + b; }", "(fn add (a b) (return (+ a b)))"},
	}

	for _, tc := range tests {
		prog, errs := parseExtended(t, tc.input)
		if len(errs) > 0 {
			t.Errorf("Parse(%q) errors: %v", tc.input, errs)
			continue
		}
		if len(prog.Statements) != 1 {
			t.Errorf("Parse(%q): %d statements, want 1", tc.input, len(prog.Statements))
			continue
		}
		if got := Sprint(prog.Statements[0]); got != tc.want {
			t.Errorf("Parse(%q) = %s, want %s", tc.input, got, tc.want)
		}
	}
}

func TestParseLiterals(t *testing.T) {
	prog, errs := ParseSource(`print 2.5; print "hi"; print false;`, Options{})
	if len(errs) > 0 {
		t.Fatalf("errors: %v", errs)
	}

	lit := prog.Statements[0].(*PrintStmt).Expr.(*Literal)
	if lit.Kind != LiteralNumber || lit.Number != 2.5 {
		t.Errorf("number literal = %+v", lit)
	}
	lit = prog.Statements[1].(*PrintStmt).Expr.(*Literal)
	if lit.Kind != LiteralString || lit.Text != "hi" {
		t.Errorf("string literal = %+v", lit)
	}
	lit = prog.Statements[2].(*PrintStmt).Expr.(*Literal)
	if lit.Kind != LiteralBool || lit.Bool {
		t.Errorf("bool literal = %+v", lit)
	}
}

func TestParseSpans(t *testing.T) {
	prog, _ := ParseSource("print 1;\n  let abc = 2;", Options{})
	if len(prog.Statements) != 2 {
		t.Fatalf("got %d statements", len(prog.Statements))
	}
	let := prog.Statements[1].(*LetStmt)
	span := let.Span()
	if span.Start.Line != 2 || span.Start.Column != 3 {
		t.Errorf("let starts at %d:%d, want 2:3", span.Start.Line, span.Start.Column)
	}
	if span.End.Column != 15 {
		t.Errorf("let ends at column %d, want 15", span.End.Column)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input string
		msg   string
		line  int
	}{
		{"print 1", "expected ';' after value", 1},
		{"let = 1;", "expected variable name after 'let'", 1},
		{"let x = 1", "expected ';' after variable declaration", 1},
		{"1 = 2;", "invalid assignment target", 1},
		{"(a) = 2;", "invalid assignment target", 1},
		{"a + b = 2;", "invalid assignment target", 1},
		{"if x print 1;", "expected '(' after 'if'", 1},
		{"while (x print 1;", "expected ')' after while condition", 1},
		{"{ print 1;", "expected '}' after block", 1},
		{"fn (a) {}", "expected function name after 'fn'", 1},
		{"fn f(a b) {}", "expected ')' after parameters", 1},
		{"fn f(1) {}", "expected parameter name", 1},
		{"f(1;", "expected ')' after arguments", 1},
		{"(1;", "expected ')' after expression", 1},
		{"\n\n;", "expected expression", 3},
	}

	for _, tc := range tests {
		_, errs := parseExtended(t, tc.input)
		if len(errs) == 0 {
			t.Errorf("Parse(%q): expected error", tc.input)
			continue
		}
		if errs[0].Message != tc.msg {
			t.Errorf("Parse(%q) error = %q, want %q", tc.input, errs[0].Message, tc.msg)
		}
		if errs[0].Line != tc.line {
			t.Errorf("Parse(%q) line = %d, want %d", tc.input, errs[0].Line, tc.line)
		}
		if errs[0].Kind != ParseError {
			t.Errorf("Parse(%q) kind = %v, want parse error", tc.input, errs[0].Kind)
		}
	}
}

func TestParseAssignmentTargetColumn(t *testing.T) {
	_, errs := ParseSource("1 = 2;", Options{})
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1", len(errs))
	}
	if errs[0].Column != 3 {
		t.Errorf("column = %d, want 3 (the '=' token)", errs[0].Column)
	}
}

func TestParseRecovery(t *testing.T) {
	prog, errs := ParseSource("print ;  print 2;", Options{})
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1: %v", len(errs), errs)
	}
	if len(prog.Statements) != 1 {
		t.Fatalf("got %d statements, want 1", len(prog.Statements))
	}
	if got := Sprint(prog.Statements[0]); got != "(print 2)" {
		t.Errorf("statement = %s, want (print 2)", got)
	}
}

func TestParseRecoveryMultipleErrors(t *testing.T) {
	src := `print 1 +;
let y = ;
print 3;
let = 4;
print 5;`
	prog, errs := ParseSource(src, Options{})
	if len(errs) != 3 {
		t.Fatalf("got %d errors, want 3: %v", len(errs), errs)
	}
	for i := 1; i < len(errs); i++ {
		if errs[i].Line < errs[i-1].Line {
			t.Errorf("errors out of order: %v", errs)
		}
	}
	var printed []string
	for _, s := range prog.Statements {
		printed = append(printed, Sprint(s))
	}
	if got := strings.Join(printed, " "); !strings.Contains(got, "(print 5)") {
		t.Errorf("statements = %s, want (print 5) to survive", got)
	}
}

func TestParseErrorInsideBlockDropsDeclaration(t *testing.T) {
	prog, errs := ParseSource("{ print 1; print ; } print 2;", Options{})
	if len(errs) == 0 {
		t.Fatal("expected an error")
	}
	for _, s := range prog.Statements {
		if _, ok := s.(*BlockStmt); ok {
			t.Errorf("block with an error should be dropped, got %s", Sprint(s))
		}
	}
}

func TestParseTooManyArguments(t *testing.T) {
	args := make([]string, 256)
	for i := range args {
		args[i] = "1"
	}
	_, errs := ParseSource("f("+strings.Join(args, ",")+");", Options{})
	if len(errs) == 0 {
		t.Fatal("expected error for 256 arguments")
	}
	if errs[0].Message != "can't have more than 255 arguments" {
		t.Errorf("error = %q", errs[0].Message)
	}

	_, errs = ParseSource("f("+strings.Join(args[:255], ",")+");", Options{})
	if len(errs) != 0 {
		t.Errorf("255 arguments should parse, got %v", errs)
	}
}

func TestParseTooManyParameters(t *testing.T) {
	params := make([]string, 256)
	for i := range params {
		params[i] = fmt.Sprintf("p%d", i)
	}
	_, errs := ParseSource("fn f("+strings.Join(params, ",")+") {}", Options{})
	if len(errs) == 0 || errs[0].Message != "can't have more than 255 parameters" {
		t.Errorf("errors = %v, want parameter limit error", errs)
	}
}

func TestParseEmpty(t *testing.T) {
	for _, src := range []string{"", "   ", "// only a comment"} {
		prog, errs := ParseSource(src, Options{})
		if len(errs) != 0 || len(prog.Statements) != 0 {
			t.Errorf("Parse(%q) = %d statements, %v", src, len(prog.Statements), errs)
		}
	}
}

func TestParseMissingEOF(t *testing.T) {
	toks := Tokenize("print 1;")
	prog, errs := Parse(toks[:len(toks)-1])
	if len(errs) != 0 || len(prog.Statements) != 1 {
		t.Errorf("got %d statements, %v", len(prog.Statements), errs)
	}

	prog, errs = Parse(nil)
	if len(errs) != 0 || len(prog.Statements) != 0 {
		t.Errorf("Parse(nil) = %d statements, %v", len(prog.Statements), errs)
	}
}
