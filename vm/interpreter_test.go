package vm

import (
	"bytes"
	"strings"
	"sync"
	"testing"
)

// chunkBuilder assembles small chunks by hand, all on line 1.
type chunkBuilder struct {
	c *Chunk
}

func newChunkBuilder() *chunkBuilder {
	return &chunkBuilder{c: NewChunk()}
}

func (b *chunkBuilder) num(f float64) *chunkBuilder {
	b.c.WriteConstant(FromFloat64(f), 1)
	return b
}

func (b *chunkBuilder) str(s string) *chunkBuilder {
	b.c.WriteConstant(FromString(s), 1)
	return b
}

func (b *chunkBuilder) op(op Opcode) *chunkBuilder {
	b.c.Write(op, 0, 1)
	return b
}

func (b *chunkBuilder) opn(op Opcode, operand uint8) *chunkBuilder {
	b.c.Write(op, operand, 1)
	return b
}

func run(t *testing.T, c *Chunk) (InterpretResult, string, *VM) {
	t.Helper()
	var out bytes.Buffer
	m := NewVM()
	m.SetOutput(&out)
	res := m.Interpret(c)
	return res, out.String(), m
}

// ---------------------------------------------------------------------------
// Basic execution tests
// ---------------------------------------------------------------------------

func TestInterpretPrintLiterals(t *testing.T) {
	c := newChunkBuilder().
		op(OpNil).op(OpPrint).
		op(OpTrue).op(OpPrint).
		op(OpFalse).op(OpPrint).
		num(42).op(OpPrint).
		str("hi").op(OpPrint).
		op(OpReturn).c

	res, out, _ := run(t, c)
	if res != InterpretOK {
		t.Fatalf("result = %v, want ok", res)
	}
	want := "nil\ntrue\nfalse\n42\nhi\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestInterpretArithmetic(t *testing.T) {
	tests := []struct {
		name string
		a, b float64
		op   Opcode
		want string
	}{
		{"add", 1, 2, OpAdd, "3"},
		{"subtract", 5, 7, OpSubtract, "-2"},
		{"multiply", 2, 3.5, OpMultiply, "7"},
		{"divide", 10, 4, OpDivide, "2.5"},
		{"modulo", 7, 3, OpModulo, "1"},
		{"modulo negative", -7, 3, OpModulo, "-1"},
		{"modulo fraction", 5.5, 2, OpModulo, "1.5"},
		{"less", 1, 2, OpLess, "true"},
		{"less equal", 2, 2, OpLessEqual, "true"},
		{"greater", 1, 2, OpGreater, "false"},
		{"greater equal", 3, 3, OpGreaterEqual, "true"},
		{"equal", 3, 3, OpEqual, "true"},
		{"not equal", 3, 4, OpNotEqual, "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newChunkBuilder().num(tt.a).num(tt.b).op(tt.op).op(OpPrint).c
			res, out, m := run(t, c)
			if res != InterpretOK {
				t.Fatalf("result = %v (%s), want ok", res, m.LastError())
			}
			if got := strings.TrimSpace(out); got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInterpretConcat(t *testing.T) {
	c := newChunkBuilder().str("a").str("b").op(OpAdd).op(OpPrint).c
	_, out, _ := run(t, c)
	if out != "ab\n" {
		t.Errorf("output = %q, want %q", out, "ab\n")
	}
}

func TestInterpretLogical(t *testing.T) {
	tests := []struct {
		name string
		c    *Chunk
		want string
	}{
		{"not zero", newChunkBuilder().num(0).op(OpNot).op(OpPrint).c, "true"},
		{"not string", newChunkBuilder().str("").op(OpNot).op(OpPrint).c, "false"},
		{"and", newChunkBuilder().num(1).op(OpNil).op(OpAnd).op(OpPrint).c, "false"},
		{"or", newChunkBuilder().op(OpNil).str("x").op(OpOr).op(OpPrint).c, "true"},
		{"negate", newChunkBuilder().num(4).op(OpNegate).op(OpPrint).c, "-4"},
		{"cross-type equal", newChunkBuilder().num(0).op(OpFalse).op(OpEqual).op(OpPrint).c, "false"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, out, m := run(t, tt.c)
			if res != InterpretOK {
				t.Fatalf("result = %v (%s), want ok", res, m.LastError())
			}
			if got := strings.TrimSpace(out); got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Runtime error tests
// ---------------------------------------------------------------------------

func TestInterpretRuntimeErrors(t *testing.T) {
	tests := []struct {
		name string
		c    *Chunk
		msg  string
	}{
		{"add mixed", newChunkBuilder().str("a").num(1).op(OpAdd).c, "operands must be two numbers or two strings"},
		{"subtract strings", newChunkBuilder().str("a").str("b").op(OpSubtract).c, "operands must be numbers"},
		{"less bool", newChunkBuilder().op(OpTrue).num(1).op(OpLess).c, "operands must be numbers"},
		{"divide by zero", newChunkBuilder().num(1).num(0).op(OpDivide).c, "division by zero"},
		{"modulo by zero", newChunkBuilder().num(1).num(0).op(OpModulo).c, "modulo by zero"},
		{"negate string", newChunkBuilder().str("a").op(OpNegate).c, "operand must be a number"},
		{"underflow", newChunkBuilder().op(OpPop).c, "stack underflow"},
		{"get local", newChunkBuilder().opn(OpGetLocal, 0).c, "local variables are not supported at run time"},
		{"set global", newChunkBuilder().op(OpNil).opn(OpSetGlobal, 0).c, "global variables are not supported"},
		{"call", newChunkBuilder().op(OpNil).opn(OpCall, 0).c, "function calls are not supported"},
		{"unknown opcode", newChunkBuilder().op(Opcode(200)).c, "unknown opcode 200"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, _, m := run(t, tt.c)
			if res != InterpretRuntimeError {
				t.Fatalf("result = %v, want runtime error", res)
			}
			if m.LastError() != tt.msg {
				t.Errorf("LastError() = %q, want %q", m.LastError(), tt.msg)
			}
			rerr, ok := m.Err().(*RuntimeError)
			if !ok {
				t.Fatalf("Err() = %T, want *RuntimeError", m.Err())
			}
			if rerr.Line != 1 {
				t.Errorf("Line = %d, want 1", rerr.Line)
			}
		})
	}
}

func TestInterpretErrorStopsExecution(t *testing.T) {
	c := newChunkBuilder().
		num(1).op(OpPrint).
		num(1).num(0).op(OpDivide).
		num(2).op(OpPrint).c

	res, out, _ := run(t, c)
	if res != InterpretRuntimeError {
		t.Fatalf("result = %v, want runtime error", res)
	}
	if out != "1\n" {
		t.Errorf("output = %q, want only the output before the error", out)
	}
}

// ---------------------------------------------------------------------------
// Control flow tests
// ---------------------------------------------------------------------------

func TestInterpretReturnStops(t *testing.T) {
	c := newChunkBuilder().num(1).op(OpPrint).op(OpReturn).num(2).op(OpPrint).c
	_, out, _ := run(t, c)
	if out != "1\n" {
		t.Errorf("output = %q, want %q", out, "1\n")
	}
}

func TestInterpretImplicitReturn(t *testing.T) {
	res, _, _ := run(t, newChunkBuilder().num(1).c)
	if res != InterpretOK {
		t.Errorf("result = %v, want ok", res)
	}
	res, _, _ = run(t, NewChunk())
	if res != InterpretOK {
		t.Errorf("empty chunk result = %v, want ok", res)
	}
}

func TestInterpretJumpIfFalsePeeks(t *testing.T) {
	// FALSE; JUMP_IF_FALSE +1; NIL; PRINT  -> prints the condition
	c := newChunkBuilder().
		op(OpFalse).
		opn(OpJumpIfFalse, 1).
		op(OpNil).
		op(OpPrint).c

	_, out, m := run(t, c)
	if out != "false\n" {
		t.Errorf("output = %q, want %q", out, "false\n")
	}
	if m.StackDepth() != 0 {
		t.Errorf("StackDepth() = %d, want 0", m.StackDepth())
	}
}

func TestInterpretJumpSkips(t *testing.T) {
	c := newChunkBuilder().
		opn(OpJump, 2).
		num(1).op(OpPrint).
		num(2).op(OpPrint).c

	_, out, _ := run(t, c)
	if out != "2\n" {
		t.Errorf("output = %q, want %q", out, "2\n")
	}
}

func TestInterpretLoop(t *testing.T) {
	// 0: CONSTANT "x"   1: PRINT   2: TRUE   3: JUMP_IF_FALSE +3
	// 4: POP            5: FALSE   6: LOOP 4 (-> 3)
	// The second pass finds FALSE on the stack and exits.
	c := newChunkBuilder().
		str("x").op(OpPrint).
		op(OpTrue).
		opn(OpJumpIfFalse, 3).
		op(OpPop).
		op(OpFalse).
		opn(OpLoop, 4).c

	res, out, m := run(t, c)
	if res != InterpretOK {
		t.Fatalf("result = %v (%s), want ok", res, m.LastError())
	}
	if out != "x\n" {
		t.Errorf("output = %q, want %q", out, "x\n")
	}
}

func TestInterpretLoopOutOfRange(t *testing.T) {
	c := newChunkBuilder().opn(OpLoop, 10).c
	res, _, m := run(t, c)
	if res != InterpretRuntimeError {
		t.Fatalf("result = %v, want runtime error", res)
	}
	if m.LastError() != "loop target out of range" {
		t.Errorf("LastError() = %q", m.LastError())
	}
}

// ---------------------------------------------------------------------------
// Reuse and concurrency
// ---------------------------------------------------------------------------

func TestInterpretResetsBetweenRuns(t *testing.T) {
	bad := newChunkBuilder().op(OpPop).c
	good := newChunkBuilder().num(1).op(OpPrint).c

	var out bytes.Buffer
	m := NewVM()
	m.SetOutput(&out)

	if res := m.Interpret(bad); res != InterpretRuntimeError {
		t.Fatalf("first run = %v, want runtime error", res)
	}
	if res := m.Interpret(good); res != InterpretOK {
		t.Fatalf("second run = %v, want ok", res)
	}
	if m.Err() != nil {
		t.Errorf("Err() = %v after successful run", m.Err())
	}
	if out.String() != "1\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestInterpretSameChunkTwice(t *testing.T) {
	c := newChunkBuilder().num(1).num(2).op(OpAdd).op(OpPrint).c
	before := Disassemble(c, "c")

	_, first, _ := run(t, c)
	_, second, _ := run(t, c)
	if first != second {
		t.Errorf("runs differ: %q vs %q", first, second)
	}
	if after := Disassemble(c, "c"); after != before {
		t.Error("chunk was modified by interpretation")
	}
}

func TestInterpretConcurrentVMs(t *testing.T) {
	c := newChunkBuilder().str("a").str("b").op(OpAdd).op(OpPrint).c

	var wg sync.WaitGroup
	outs := make([]string, 8)
	for i := range outs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var buf bytes.Buffer
			m := NewVM()
			m.SetOutput(&buf)
			m.Interpret(c)
			outs[i] = buf.String()
		}(i)
	}
	wg.Wait()

	for i, out := range outs {
		if out != "ab\n" {
			t.Errorf("vm %d output = %q, want %q", i, out, "ab\n")
		}
	}
}

func TestInterpretNilChunk(t *testing.T) {
	m := NewVM()
	if res := m.Interpret(nil); res != InterpretRuntimeError {
		t.Errorf("result = %v, want runtime error", res)
	}
}
