package compiler

import (
	"fmt"

	"github.com/chazu/minilang/vm"
)

// ---------------------------------------------------------------------------
// Codegen: Compile AST to bytecode
// ---------------------------------------------------------------------------

// GeneratorVersion identifies the code shapes this generator emits. Bump it
// whenever the emitted bytecode for some source changes, so that persisted
// chunks built by an older generator are not reused.
const GeneratorVersion = 1

// Generator compiles a Program into a single bytecode chunk in one pass. A
// Generator is single-use: create a new one for each compilation unit.
type Generator struct {
	opts  Options
	chunk *vm.Chunk
	scope *scope
	line  int // source line attached to emitted instructions
	err   *Error
}

// genBailout unwinds the generator after the first error.
type genBailout struct{}

// NewGenerator creates a generator.
func NewGenerator(opts Options) *Generator {
	return &Generator{
		opts:  opts,
		chunk: vm.NewChunk(),
		scope: newScope(),
		line:  1,
	}
}

// Err returns the error that stopped generation, or nil.
func (g *Generator) Err() error {
	if g.err == nil {
		return nil
	}
	return g.err
}

// HadError reports whether generation failed.
func (g *Generator) HadError() bool {
	return g.err != nil
}

// errorf records the generation error and abandons the chunk.
func (g *Generator) errorf(format string, args ...any) {
	g.err = &Error{
		Kind:    CompileError,
		Line:    g.line,
		Message: fmt.Sprintf(format, args...),
	}
	panic(genBailout{})
}

// Generate compiles prog. The program runs inside an outer scope whose
// locals are popped before the final RETURN. When generation fails the
// partially built chunk is returned and Err reports why.
func (g *Generator) Generate(prog *Program) (chunk *vm.Chunk) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(genBailout); !ok {
				panic(r)
			}
			chunk = g.chunk
		}
	}()

	g.beginScope()
	for _, stmt := range prog.Statements {
		g.compileStmt(stmt)
	}
	g.endScope()
	g.emit(vm.OpReturn)
	return g.chunk
}

// GenerateExpr compiles a single expression inside an outer scope and
// returns. The expression's value is left on the stack.
func (g *Generator) GenerateExpr(expr Expr) (chunk *vm.Chunk) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(genBailout); !ok {
				panic(r)
			}
			chunk = g.chunk
		}
	}()

	g.beginScope()
	g.compileExpr(expr)
	g.endScope()
	g.emit(vm.OpReturn)
	return g.chunk
}

// ---------------------------------------------------------------------------
// Emission helpers
// ---------------------------------------------------------------------------

func (g *Generator) emit(op vm.Opcode) int {
	return g.chunk.Write(op, 0, g.line)
}

func (g *Generator) emitOperand(op vm.Opcode, operand int) int {
	return g.chunk.Write(op, uint8(operand), g.line)
}

func (g *Generator) emitConstant(v vm.Value) {
	if _, err := g.chunk.WriteConstant(v, g.line); err != nil {
		g.errorf("%v", err)
	}
}

// emitJump writes a jump with a placeholder operand and returns its position.
func (g *Generator) emitJump(op vm.Opcode) int {
	return g.emitOperand(op, vm.MaxOperand)
}

// patchJump points the jump at pos to the next instruction to be emitted.
func (g *Generator) patchJump(pos int) {
	dist := g.chunk.Len() - (pos + 1)
	if dist > vm.MaxOperand {
		g.errorf("jump too far")
	}
	g.chunk.Patch(pos, uint8(dist))
}

// emitLoop writes a backward jump to loopStart. Without PopBranchCondition
// the distance is measured from the LOOP instruction itself, so execution
// resumes one instruction past loopStart.
func (g *Generator) emitLoop(loopStart int) {
	dist := g.chunk.Len() - loopStart
	if g.opts.PopBranchCondition {
		dist++
	}
	if dist > vm.MaxOperand {
		g.errorf("loop body too large")
	}
	g.emitOperand(vm.OpLoop, dist)
}

// at sets the source line for subsequent instructions to n's line.
func (g *Generator) at(n Node) {
	if line := n.Span().Start.Line; line > 0 {
		g.line = line
	}
}

// ---------------------------------------------------------------------------
// Scopes
// ---------------------------------------------------------------------------

func (g *Generator) beginScope() {
	g.scope.begin()
}

func (g *Generator) endScope() {
	for n := g.scope.end(); n > 0; n-- {
		g.emit(vm.OpPop)
	}
}

// declare introduces a local in the current block.
func (g *Generator) declare(name string) {
	if g.scope.depth == 0 {
		return
	}
	if g.scope.declaredHere(name) {
		g.errorf("variable '%s' already declared in this scope", name)
	}
	if len(g.scope.locals) >= MaxLocals {
		g.errorf("too many local variables")
	}
	g.scope.add(name)
}

func (g *Generator) resolve(name string) int {
	slot := g.scope.resolve(name)
	if slot < 0 {
		g.errorf("undefined variable: %s", name)
	}
	return slot
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (g *Generator) compileStmt(stmt Stmt) {
	if stmt == nil {
		return
	}
	g.at(stmt)

	switch s := stmt.(type) {
	case *ExprStmt:
		g.compileExpr(s.Expr)
		g.emit(vm.OpPop)

	case *LetStmt:
		// Declared before the initializer runs, so the initializer can
		// see the new name.
		g.declare(s.Name)
		if s.Init != nil {
			g.compileExpr(s.Init)
		} else {
			g.emit(vm.OpNil)
		}

	case *FunctionStmt:
		// Function bodies are not compiled; the name is bound to nil.
		g.declare(s.Name)
		g.emit(vm.OpNil)

	case *IfStmt:
		g.compileIf(s)

	case *WhileStmt:
		g.compileWhile(s)

	case *ReturnStmt:
		if s.Value != nil {
			g.compileExpr(s.Value)
		} else {
			g.emit(vm.OpNil)
		}
		g.at(s)
		g.emit(vm.OpReturn)

	case *PrintStmt:
		g.compileExpr(s.Expr)
		g.at(s)
		g.emit(vm.OpPrint)

	case *BlockStmt:
		g.beginScope()
		for _, inner := range s.Statements {
			g.compileStmt(inner)
		}
		g.endScope()

	default:
		g.errorf("unsupported statement %T", stmt)
	}
}

func (g *Generator) compileIf(s *IfStmt) {
	g.compileExpr(s.Cond)
	g.at(s)
	thenJump := g.emitJump(vm.OpJumpIfFalse)
	if g.opts.PopBranchCondition {
		g.emit(vm.OpPop)
	}

	g.compileStmt(s.Then)
	g.at(s)
	elseJump := g.emitJump(vm.OpJump)

	g.patchJump(thenJump)
	if g.opts.PopBranchCondition {
		g.emit(vm.OpPop)
	}

	if s.Else != nil {
		g.compileStmt(s.Else)
	}

	g.patchJump(elseJump)
}

func (g *Generator) compileWhile(s *WhileStmt) {
	loopStart := g.chunk.Len()

	g.compileExpr(s.Cond)
	g.at(s)
	exitJump := g.emitJump(vm.OpJumpIfFalse)
	if g.opts.PopBranchCondition {
		g.emit(vm.OpPop)
	}

	g.compileStmt(s.Body)
	g.at(s)
	g.emitLoop(loopStart)

	g.patchJump(exitJump)
	if g.opts.PopBranchCondition {
		g.emit(vm.OpPop)
	}
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (g *Generator) compileExpr(expr Expr) {
	if expr == nil {
		g.emit(vm.OpNil)
		return
	}
	g.at(expr)

	switch e := expr.(type) {
	case *Literal:
		switch e.Kind {
		case LiteralNumber:
			g.emitConstant(vm.FromFloat64(e.Number))
		case LiteralString:
			g.emitConstant(vm.FromString(e.Text))
		case LiteralBool:
			if e.Bool {
				g.emit(vm.OpTrue)
			} else {
				g.emit(vm.OpFalse)
			}
		default:
			g.emit(vm.OpNil)
		}

	case *Grouping:
		g.compileExpr(e.Inner)

	case *Variable:
		slot := g.resolve(e.Name)
		g.emitOperand(vm.OpGetLocal, slot)

	case *Assign:
		g.compileExpr(e.Value)
		g.at(e)
		slot := g.resolve(e.Name)
		g.emitOperand(vm.OpSetLocal, slot)

	case *Unary:
		g.compileExpr(e.Operand)
		g.line = e.Op.Pos.Line
		switch e.Op.Type {
		case TokenMinus:
			g.emit(vm.OpNegate)
		case TokenBang:
			g.emit(vm.OpNot)
		default:
			g.errorf("unknown unary operator: %s", e.Op.Lexeme)
		}

	case *Binary:
		g.compileBinary(e)

	case *Call:
		g.compileExpr(e.Callee)
		for _, arg := range e.Args {
			g.compileExpr(arg)
		}
		if len(e.Args) > vm.MaxOperand {
			g.errorf("can't have more than 255 arguments")
		}
		g.at(e)
		g.emitOperand(vm.OpCall, len(e.Args))

	default:
		g.errorf("unsupported expression %T", expr)
	}
}

// compileBinary evaluates both operands, left first. There is no
// short-circuit: && and || always evaluate their right operand.
func (g *Generator) compileBinary(e *Binary) {
	g.compileExpr(e.Left)
	g.compileExpr(e.Right)
	g.line = e.Op.Pos.Line

	switch e.Op.Type {
	case TokenPlus:
		g.emit(vm.OpAdd)
	case TokenMinus:
		g.emit(vm.OpSubtract)
	case TokenStar:
		g.emit(vm.OpMultiply)
	case TokenSlash:
		g.emit(vm.OpDivide)
	case TokenPercent:
		g.emit(vm.OpModulo)

	case TokenEqualEqual:
		g.emit(vm.OpEqual)
	case TokenBangEqual:
		g.emit(vm.OpEqual)
		g.emit(vm.OpNot)
	case TokenLess:
		g.emit(vm.OpLess)
	case TokenLessEqual:
		g.emit(vm.OpGreater)
		g.emit(vm.OpNot)
	case TokenGreater:
		g.emit(vm.OpGreater)
	case TokenGreaterEqual:
		g.emit(vm.OpLess)
		g.emit(vm.OpNot)

	case TokenAnd:
		g.emit(vm.OpAnd)
	case TokenOr:
		g.emit(vm.OpOr)

	default:
		g.errorf("unknown binary operator: %s", e.Op.Lexeme)
	}
}
