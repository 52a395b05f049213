package vm

import (
	"io"
	"testing"
)

// =============================================================================
// Benchmark Helpers
// =============================================================================

// benchmarkVM creates a fresh VM that discards PRINT output
func benchmarkVM() *VM {
	vm := NewVM()
	vm.SetOutput(io.Discard)
	return vm
}

func runBenchmark(b *testing.B, c *Chunk) {
	b.Helper()
	vm := benchmarkVM()
	if res := vm.Interpret(c); res != InterpretOK {
		b.Fatalf("result = %v (%s)", res, vm.LastError())
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		vm.Interpret(c)
	}
}

// =============================================================================
// Interpreter Dispatch Overhead
// =============================================================================

// BenchmarkOpNil measures the cost of pushing and popping nil
func BenchmarkOpNil(b *testing.B) {
	cb := newChunkBuilder()
	for i := 0; i < 100; i++ {
		cb.op(OpNil).op(OpPop)
	}
	runBenchmark(b, cb.op(OpReturn).c)
}

// BenchmarkOpConstant measures the cost of loading a constant
func BenchmarkOpConstant(b *testing.B) {
	cb := newChunkBuilder()
	for i := 0; i < 100; i++ {
		cb.num(42).op(OpPop)
	}
	runBenchmark(b, cb.op(OpReturn).c)
}

// =============================================================================
// Arithmetic and Comparison
// =============================================================================

// BenchmarkArithmetic measures a chain of numeric operations
func BenchmarkArithmetic(b *testing.B) {
	cb := newChunkBuilder().num(1)
	for i := 0; i < 50; i++ {
		cb.num(3).op(OpAdd).num(2).op(OpMultiply).num(7).op(OpModulo)
	}
	runBenchmark(b, cb.op(OpPop).op(OpReturn).c)
}

// BenchmarkComparison measures comparison plus NOT lowering
func BenchmarkComparison(b *testing.B) {
	cb := newChunkBuilder()
	for i := 0; i < 100; i++ {
		cb.num(1).num(2).op(OpGreater).op(OpNot).op(OpPop)
	}
	runBenchmark(b, cb.op(OpReturn).c)
}

// BenchmarkStringConcat measures string concatenation
func BenchmarkStringConcat(b *testing.B) {
	cb := newChunkBuilder().str("")
	for i := 0; i < 50; i++ {
		cb.str("ab").op(OpAdd)
	}
	runBenchmark(b, cb.op(OpPop).op(OpReturn).c)
}

// =============================================================================
// Control Flow
// =============================================================================

// BenchmarkJumps measures taken and untaken conditional jumps
func BenchmarkJumps(b *testing.B) {
	cb := newChunkBuilder()
	for i := 0; i < 50; i++ {
		// FALSE; JIF +1 skips the NIL; POP the condition
		cb.op(OpFalse).opn(OpJumpIfFalse, 1).op(OpNil).op(OpPop)
		cb.op(OpTrue).opn(OpJumpIfFalse, 1).op(OpNil).op(OpPop).op(OpPop)
	}
	runBenchmark(b, cb.op(OpReturn).c)
}

// BenchmarkPrint measures PRINT formatting into a discarded writer
func BenchmarkPrint(b *testing.B) {
	cb := newChunkBuilder()
	for i := 0; i < 100; i++ {
		cb.num(float64(i) + 0.5).op(OpPrint)
	}
	runBenchmark(b, cb.op(OpReturn).c)
}

// =============================================================================
// Disassembly
// =============================================================================

// BenchmarkDisassemble measures rendering a chunk listing
func BenchmarkDisassemble(b *testing.B) {
	cb := newChunkBuilder()
	for i := 0; i < 100; i++ {
		cb.num(float64(i)).op(OpPrint)
	}
	c := cb.op(OpReturn).c

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Disassemble(c, "bench")
	}
}
