package vm

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/tliron/commonlog"
)

// ---------------------------------------------------------------------------
// Results and errors
// ---------------------------------------------------------------------------

// InterpretResult is the outcome of a single Interpret call.
type InterpretResult int

const (
	InterpretOK InterpretResult = iota
	InterpretCompileError
	InterpretRuntimeError
)

func (r InterpretResult) String() string {
	switch r {
	case InterpretOK:
		return "ok"
	case InterpretCompileError:
		return "compile error"
	case InterpretRuntimeError:
		return "runtime error"
	}
	return fmt.Sprintf("InterpretResult(%d)", int(r))
}

// RuntimeError is the first error raised while executing a chunk.
type RuntimeError struct {
	Line    int    // source line of the failing instruction, 0 if unknown
	Message string // human-readable description
}

func (e *RuntimeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// ---------------------------------------------------------------------------
// VM: Bytecode execution engine
// ---------------------------------------------------------------------------

// VM executes a Chunk against a single operand stack. A VM may be reused for
// many Interpret calls; each call starts from an empty stack. A VM is not
// safe for concurrent use, but any number of VMs can share one Chunk.
type VM struct {
	chunk *Chunk
	ip    int // next instruction
	pc    int // instruction being executed
	stack []Value

	out   io.Writer
	err   *RuntimeError
	trace bool
	log   commonlog.Logger
}

// NewVM creates a VM that prints to standard output.
func NewVM() *VM {
	return &VM{
		stack: make([]Value, 0, 256),
		out:   os.Stdout,
		log:   commonlog.GetLogger("minilang.vm"),
	}
}

// SetOutput redirects PRINT output. A nil writer discards output.
func (vm *VM) SetOutput(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	vm.out = w
}

// SetTrace enables per-instruction debug logging. Trace lines are only
// produced when the "minilang.vm" logger allows the debug level.
func (vm *VM) SetTrace(on bool) {
	vm.trace = on
}

// Err returns the error recorded by the last Interpret call, or nil.
func (vm *VM) Err() error {
	if vm.err == nil {
		return nil
	}
	return vm.err
}

// LastError returns the message of the last runtime error, or "".
func (vm *VM) LastError() string {
	if vm.err == nil {
		return ""
	}
	return vm.err.Message
}

// ---------------------------------------------------------------------------
// Stack operations
// ---------------------------------------------------------------------------

func (vm *VM) push(v Value) {
	vm.stack = append(vm.stack, v)
}

// pop removes the top of the stack. An empty stack records a runtime error
// and yields nil so the current instruction can finish.
func (vm *VM) pop() Value {
	n := len(vm.stack)
	if n == 0 {
		vm.fail("stack underflow")
		return Nil
	}
	v := vm.stack[n-1]
	vm.stack = vm.stack[:n-1]
	return v
}

func (vm *VM) peek() Value {
	n := len(vm.stack)
	if n == 0 {
		vm.fail("stack underflow")
		return Nil
	}
	return vm.stack[n-1]
}

// StackDepth returns the number of values currently on the operand stack.
func (vm *VM) StackDepth() int {
	return len(vm.stack)
}

// Top returns the value left on top of the operand stack, and false when the
// stack is empty.
func (vm *VM) Top() (Value, bool) {
	if len(vm.stack) == 0 {
		return Nil, false
	}
	return vm.stack[len(vm.stack)-1], true
}

// fail records the first runtime error of the current run.
func (vm *VM) fail(format string, args ...any) {
	if vm.err != nil {
		return
	}
	vm.err = &RuntimeError{
		Line:    vm.chunk.Line(vm.pc),
		Message: fmt.Sprintf(format, args...),
	}
}

// ---------------------------------------------------------------------------
// Execution
// ---------------------------------------------------------------------------

// Interpret runs chunk from its first instruction until RETURN, the end of
// the code, or the first runtime error. The chunk is never modified.
func (vm *VM) Interpret(chunk *Chunk) InterpretResult {
	if chunk == nil {
		vm.err = &RuntimeError{Message: "no chunk to interpret"}
		return InterpretRuntimeError
	}
	vm.chunk = chunk
	vm.ip = 0
	vm.pc = 0
	vm.stack = vm.stack[:0]
	vm.err = nil

	tracing := vm.trace && vm.log.AllowLevel(commonlog.Debug)

	for vm.ip < len(chunk.Code) {
		if tracing {
			vm.log.Debugf("%v %s", vm.stack, DisassembleInstruction(chunk, vm.ip))
		}

		vm.pc = vm.ip
		in := chunk.Code[vm.ip]
		vm.ip++

		if done := vm.step(in); done {
			break
		}
		if vm.err != nil {
			return InterpretRuntimeError
		}
	}

	if vm.err != nil {
		return InterpretRuntimeError
	}
	return InterpretOK
}

// step executes one instruction. It reports true when execution should stop.
func (vm *VM) step(in Instruction) bool {
	switch in.Op {
	// --- Constants ---
	case OpConstant:
		vm.push(in.Constant)

	case OpNil:
		vm.push(Nil)

	case OpTrue:
		vm.push(True)

	case OpFalse:
		vm.push(False)

	// --- Arithmetic ---
	case OpAdd:
		b, a := vm.pop(), vm.pop()
		switch {
		case a.IsNumber() && b.IsNumber():
			vm.push(FromFloat64(a.n + b.n))
		case a.IsString() && b.IsString():
			vm.push(FromString(a.s + b.s))
		default:
			vm.fail("operands must be two numbers or two strings")
		}

	case OpSubtract, OpMultiply, OpDivide, OpModulo:
		b, a := vm.pop(), vm.pop()
		if !a.IsNumber() || !b.IsNumber() {
			vm.fail("operands must be numbers")
			return false
		}
		vm.arithmetic(in.Op, a.n, b.n)

	case OpNegate:
		a := vm.pop()
		if !a.IsNumber() {
			vm.fail("operand must be a number")
			return false
		}
		vm.push(FromFloat64(-a.n))

	// --- Comparison ---
	case OpEqual:
		b, a := vm.pop(), vm.pop()
		vm.push(FromBool(a.Equal(b)))

	case OpNotEqual:
		b, a := vm.pop(), vm.pop()
		vm.push(FromBool(!a.Equal(b)))

	case OpLess, OpLessEqual, OpGreater, OpGreaterEqual:
		b, a := vm.pop(), vm.pop()
		if !a.IsNumber() || !b.IsNumber() {
			vm.fail("operands must be numbers")
			return false
		}
		vm.push(FromBool(compare(in.Op, a.n, b.n)))

	// --- Logical ---
	case OpNot:
		vm.push(FromBool(vm.pop().IsFalsey()))

	case OpAnd:
		b, a := vm.pop(), vm.pop()
		vm.push(FromBool(!a.IsFalsey() && !b.IsFalsey()))

	case OpOr:
		b, a := vm.pop(), vm.pop()
		vm.push(FromBool(!a.IsFalsey() || !b.IsFalsey()))

	// --- Variables ---
	case OpGetLocal, OpSetLocal:
		vm.fail("local variables are not supported at run time")

	case OpGetGlobal, OpSetGlobal:
		vm.fail("global variables are not supported")

	// --- Stack ---
	case OpPop:
		vm.pop()

	// --- Control flow ---
	case OpJump:
		vm.ip += int(in.Operand)

	case OpJumpIfFalse:
		if vm.peek().IsFalsey() {
			vm.ip += int(in.Operand)
		}

	case OpLoop:
		vm.ip -= int(in.Operand)
		if vm.ip < 0 {
			vm.fail("loop target out of range")
		}

	case OpCall:
		vm.fail("function calls are not supported")

	case OpReturn:
		return true

	// --- Built-in ---
	case OpPrint:
		v := vm.pop()
		if vm.err != nil {
			return false
		}
		if _, err := fmt.Fprintln(vm.out, v.String()); err != nil {
			vm.fail("print: %v", err)
		}

	default:
		vm.fail("unknown opcode %d", byte(in.Op))
	}
	return false
}

func (vm *VM) arithmetic(op Opcode, a, b float64) {
	switch op {
	case OpSubtract:
		vm.push(FromFloat64(a - b))
	case OpMultiply:
		vm.push(FromFloat64(a * b))
	case OpDivide:
		if b == 0 {
			vm.fail("division by zero")
			return
		}
		vm.push(FromFloat64(a / b))
	case OpModulo:
		if b == 0 {
			vm.fail("modulo by zero")
			return
		}
		vm.push(FromFloat64(math.Mod(a, b)))
	}
}

func compare(op Opcode, a, b float64) bool {
	switch op {
	case OpLess:
		return a < b
	case OpLessEqual:
		return a <= b
	case OpGreater:
		return a > b
	default:
		return a >= b
	}
}
