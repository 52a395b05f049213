package vm

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Opcode definitions
// ---------------------------------------------------------------------------

// Opcode selects the operation an Instruction performs.
type Opcode byte

// Constants and literals
const (
	OpConstant Opcode = iota // push inline constant (8-bit pool index)
	OpNil                    // push nil
	OpTrue                   // push true
	OpFalse                  // push false

	// Arithmetic
	OpAdd      // pop b, a; push a + b (numbers or strings)
	OpSubtract // pop b, a; push a - b
	OpMultiply // pop b, a; push a * b
	OpDivide   // pop b, a; push a / b
	OpModulo   // pop b, a; push fmod(a, b)
	OpNegate   // pop a; push -a

	// Comparison
	OpEqual
	OpNotEqual
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual

	// Logical
	OpNot
	OpAnd
	OpOr

	// Variables
	OpGetLocal  // push local (8-bit slot)
	OpSetLocal  // store top into local (8-bit slot)
	OpGetGlobal // push global (8-bit constant index)
	OpSetGlobal // store top into global (8-bit constant index)

	// Stack
	OpPop

	// Control flow
	OpJump        // ip += operand
	OpJumpIfFalse // peek; ip += operand if falsey
	OpLoop        // ip -= operand
	OpCall        // call with 8-bit argc
	OpReturn

	// Built-in
	OpPrint
)

// ---------------------------------------------------------------------------
// Opcode metadata
// ---------------------------------------------------------------------------

// OperandKind describes how an instruction's 8-bit operand is interpreted.
type OperandKind uint8

const (
	OperandNone     OperandKind = iota // operand unused
	OperandConstant                    // constant pool index
	OperandSlot                        // local slot index
	OperandJump                        // forward distance
	OperandLoop                        // backward distance
	OperandArgc                        // argument count
)

// OpcodeInfo holds metadata about an opcode.
type OpcodeInfo struct {
	Name        string      // human-readable name
	Operand     OperandKind // meaning of the operand byte
	StackEffect int         // net effect on stack (-1 = variable for CALL)
}

// opcodeTable maps opcodes to their metadata.
var opcodeTable = map[Opcode]OpcodeInfo{
	OpConstant: {"CONSTANT", OperandConstant, 1},
	OpNil:      {"NIL", OperandNone, 1},
	OpTrue:     {"TRUE", OperandNone, 1},
	OpFalse:    {"FALSE", OperandNone, 1},

	OpAdd:      {"ADD", OperandNone, -1},
	OpSubtract: {"SUBTRACT", OperandNone, -1},
	OpMultiply: {"MULTIPLY", OperandNone, -1},
	OpDivide:   {"DIVIDE", OperandNone, -1},
	OpModulo:   {"MODULO", OperandNone, -1},
	OpNegate:   {"NEGATE", OperandNone, 0},

	OpEqual:        {"EQUAL", OperandNone, -1},
	OpNotEqual:     {"NOT_EQUAL", OperandNone, -1},
	OpLess:         {"LESS", OperandNone, -1},
	OpLessEqual:    {"LESS_EQUAL", OperandNone, -1},
	OpGreater:      {"GREATER", OperandNone, -1},
	OpGreaterEqual: {"GREATER_EQUAL", OperandNone, -1},

	OpNot: {"NOT", OperandNone, 0},
	OpAnd: {"AND", OperandNone, -1},
	OpOr:  {"OR", OperandNone, -1},

	OpGetLocal:  {"GET_LOCAL", OperandSlot, 1},
	OpSetLocal:  {"SET_LOCAL", OperandSlot, 0},
	OpGetGlobal: {"GET_GLOBAL", OperandConstant, 1},
	OpSetGlobal: {"SET_GLOBAL", OperandConstant, 0},

	OpPop: {"POP", OperandNone, -1},

	OpJump:        {"JUMP", OperandJump, 0},
	OpJumpIfFalse: {"JUMP_IF_FALSE", OperandJump, 0}, // peeks, does not pop
	OpLoop:        {"LOOP", OperandLoop, 0},
	OpCall:        {"CALL", OperandArgc, -1},
	OpReturn:      {"RETURN", OperandNone, 0},

	OpPrint: {"PRINT", OperandNone, -1},
}

// Info returns the metadata for an opcode.
func (op Opcode) Info() OpcodeInfo {
	if info, ok := opcodeTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN_%02X", byte(op))}
}

// Valid reports whether op belongs to the instruction set.
func (op Opcode) Valid() bool {
	_, ok := opcodeTable[op]
	return ok
}

// Name returns the human-readable name for an opcode.
func (op Opcode) Name() string {
	return op.Info().Name
}

// String implements the Stringer interface.
func (op Opcode) String() string {
	return op.Name()
}

// ---------------------------------------------------------------------------
// Instructions and chunks
// ---------------------------------------------------------------------------

// MaxOperand is the largest value an instruction operand can carry.
const MaxOperand = 255

// MaxConstants is the number of entries a chunk's constant pool can address.
const MaxConstants = MaxOperand + 1

// Instruction is a single decoded bytecode instruction. CONSTANT instructions
// carry their literal inline in Constant so the VM never consults the pool.
type Instruction struct {
	Op       Opcode
	Operand  uint8
	Constant Value
}

// Chunk is a unit of generated bytecode: the instruction sequence, a parallel
// table of source lines and the constant pool. A chunk is not modified once
// the generator returns it and may be interpreted any number of times,
// concurrently, by independent VMs.
type Chunk struct {
	Code      []Instruction
	Lines     []int
	Constants []Value
}

// NewChunk creates an empty chunk.
func NewChunk() *Chunk {
	return &Chunk{
		Code:  make([]Instruction, 0, 64),
		Lines: make([]int, 0, 64),
	}
}

// Len returns the number of instructions.
func (c *Chunk) Len() int {
	return len(c.Code)
}

// Write appends an instruction and its source line. It returns the position
// of the new instruction.
func (c *Chunk) Write(op Opcode, operand uint8, line int) int {
	c.Code = append(c.Code, Instruction{Op: op, Operand: operand})
	c.Lines = append(c.Lines, line)
	return len(c.Code) - 1
}

// AddConstant appends v to the constant pool and returns its index.
func (c *Chunk) AddConstant(v Value) int {
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

// WriteConstant adds v to the pool and emits a CONSTANT instruction that
// carries it inline. It fails once the pool outgrows the 8-bit operand.
func (c *Chunk) WriteConstant(v Value, line int) (int, error) {
	if len(c.Constants) >= MaxConstants {
		return -1, fmt.Errorf("too many constants in one chunk")
	}
	idx := c.AddConstant(v)
	c.Code = append(c.Code, Instruction{Op: OpConstant, Operand: uint8(idx), Constant: v})
	c.Lines = append(c.Lines, line)
	return len(c.Code) - 1, nil
}

// Patch overwrites the operand of the instruction at pos.
func (c *Chunk) Patch(pos int, operand uint8) {
	c.Code[pos].Operand = operand
}

// Line returns the source line recorded for the instruction at pos, or 0.
func (c *Chunk) Line(pos int) int {
	if pos < 0 || pos >= len(c.Lines) {
		return 0
	}
	return c.Lines[pos]
}

// ---------------------------------------------------------------------------
// Disassembly
// ---------------------------------------------------------------------------

// DisassembleInstruction renders the instruction at pos.
func DisassembleInstruction(c *Chunk, pos int) string {
	in := c.Code[pos]
	info := in.Op.Info()

	line := "   |"
	if pos == 0 || c.Line(pos) != c.Line(pos-1) {
		line = fmt.Sprintf("%4d", c.Line(pos))
	}

	switch info.Operand {
	case OperandConstant:
		if in.Op == OpConstant {
			return fmt.Sprintf("%04d %s  %-14s %3d '%s'", pos, line, info.Name, in.Operand, in.Constant)
		}
		return fmt.Sprintf("%04d %s  %-14s %3d", pos, line, info.Name, in.Operand)
	case OperandSlot, OperandArgc:
		return fmt.Sprintf("%04d %s  %-14s %3d", pos, line, info.Name, in.Operand)
	case OperandJump:
		target := pos + 1 + int(in.Operand)
		return fmt.Sprintf("%04d %s  %-14s %3d (-> %04d)", pos, line, info.Name, in.Operand, target)
	case OperandLoop:
		target := pos + 1 - int(in.Operand)
		return fmt.Sprintf("%04d %s  %-14s %3d (-> %04d)", pos, line, info.Name, in.Operand, target)
	default:
		return fmt.Sprintf("%04d %s  %s", pos, line, info.Name)
	}
}

// Disassemble returns a full listing of the chunk under a header.
func Disassemble(c *Chunk, name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "== %s ==\n", name)
	for pos := range c.Code {
		b.WriteString(DisassembleInstruction(c, pos))
		b.WriteByte('\n')
	}
	return b.String()
}
