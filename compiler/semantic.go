package compiler

import (
	"fmt"
)

// ---------------------------------------------------------------------------
// Semantic Analyzer: advisory checks over a parsed program
// ---------------------------------------------------------------------------

// Warning is a non-fatal finding from the semantic analyzer. Warnings never
// stop compilation.
type Warning struct {
	Line    int
	Column  int
	Message string
}

func (w *Warning) String() string {
	return fmt.Sprintf("warning: line %d, column %d: %s", w.Line, w.Column, w.Message)
}

// SemanticAnalyzer walks a program and reports code that compiles but is
// suspicious: unused or shadowing declarations, unreachable statements,
// unresolved names inside function bodies, and operations the VM rejects
// at run time.
type SemanticAnalyzer struct {
	warnings []*Warning

	// Scope tracking; the innermost frame is last.
	frames []*scopeFrame

	// fnDepth > 0 while analyzing a function body, which is never compiled.
	fnDepth int
}

// scopeFrame is one lexical scope. bindings keeps declaration order so
// unused-variable warnings come out in source order.
type scopeFrame struct {
	names    map[string]*binding
	bindings []*binding
}

type binding struct {
	name  string
	decl  Node
	isLet bool
	used  bool
}

// NewSemanticAnalyzer creates a new semantic analyzer.
func NewSemanticAnalyzer() *SemanticAnalyzer {
	return &SemanticAnalyzer{}
}

// Warnings returns accumulated warnings in the order they were found.
func (s *SemanticAnalyzer) Warnings() []*Warning {
	return s.warnings
}

// warnAt records a warning at the start of node.
func (s *SemanticAnalyzer) warnAt(node Node, format string, args ...interface{}) {
	pos := node.Span().Start
	s.warnings = append(s.warnings, &Warning{
		Line:    pos.Line,
		Column:  pos.Column,
		Message: fmt.Sprintf(format, args...),
	})
}

// AnalyzeProgram analyzes every top-level statement. The program body is
// one scope, as it is for the code generator.
func (s *SemanticAnalyzer) AnalyzeProgram(prog *Program) {
	s.pushFrame()
	s.analyzeStatements(prog.Statements)
	s.popFrame()
}

// ---------------------------------------------------------------------------
// Scopes
// ---------------------------------------------------------------------------

func (s *SemanticAnalyzer) pushFrame() {
	s.frames = append(s.frames, &scopeFrame{names: make(map[string]*binding)})
}

func (s *SemanticAnalyzer) popFrame() {
	top := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	for _, b := range top.bindings {
		if b.isLet && !b.used {
			s.warnAt(b.decl, "variable '%s' is declared but never used", b.name)
		}
	}
}

func (s *SemanticAnalyzer) declare(name string, decl Node, isLet bool) {
	top := s.frames[len(s.frames)-1]
	if _, dup := top.names[name]; dup {
		// Redeclaration in the same scope is a compile error, reported by
		// the code generator.
		return
	}
	if isLet && s.lookup(name) != nil {
		s.warnAt(decl, "declaration of '%s' shadows an outer declaration", name)
	}
	b := &binding{name: name, decl: decl, isLet: isLet}
	top.names[name] = b
	top.bindings = append(top.bindings, b)
}

func (s *SemanticAnalyzer) lookup(name string) *binding {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if b, ok := s.frames[i].names[name]; ok {
			return b
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// analyzeStatements analyzes a list of statements.
func (s *SemanticAnalyzer) analyzeStatements(stmts []Stmt) {
	for _, stmt := range stmts {
		s.analyzeStmt(stmt)
	}
	s.checkUnreachableCode(stmts)
}

// analyzeStmt analyzes a single statement.
func (s *SemanticAnalyzer) analyzeStmt(stmt Stmt) {
	switch st := stmt.(type) {
	case *ExprStmt:
		s.analyzeExpr(st.Expr)
	case *PrintStmt:
		s.analyzeExpr(st.Expr)
	case *ReturnStmt:
		if st.Value != nil {
			s.analyzeExpr(st.Value)
		}
	case *LetStmt:
		// The name is in scope while its initializer runs.
		s.declare(st.Name, st, true)
		if st.Init != nil {
			s.analyzeExpr(st.Init)
		}
	case *FunctionStmt:
		s.declare(st.Name, st, false)
		s.analyzeFunction(st)
	case *BlockStmt:
		s.pushFrame()
		s.analyzeStatements(st.Statements)
		s.popFrame()
	case *IfStmt:
		s.analyzeExpr(st.Cond)
		s.analyzeStmt(st.Then)
		if st.Else != nil {
			s.analyzeStmt(st.Else)
		}
	case *WhileStmt:
		s.analyzeExpr(st.Cond)
		s.analyzeStmt(st.Body)
	}
}

// analyzeFunction analyzes a function body in its own scope. Bodies are
// parsed and declared but never compiled, so name resolution errors inside
// them surface only here.
func (s *SemanticAnalyzer) analyzeFunction(fn *FunctionStmt) {
	s.fnDepth++
	s.pushFrame()
	for _, p := range fn.Params {
		s.declare(p, fn, false)
	}
	s.analyzeStatements(fn.Body)
	s.popFrame()
	s.fnDepth--
}

// checkUnreachableCode checks for code after a return statement.
func (s *SemanticAnalyzer) checkUnreachableCode(stmts []Stmt) {
	for i, stmt := range stmts {
		if _, isReturn := stmt.(*ReturnStmt); isReturn && i < len(stmts)-1 {
			s.warnAt(stmts[i+1], "unreachable code after return")
			return // Only warn once
		}
	}
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// analyzeExpr analyzes an expression.
func (s *SemanticAnalyzer) analyzeExpr(expr Expr) {
	switch e := expr.(type) {
	case *Variable:
		if s.use(e, e.Name) && s.fnDepth == 0 {
			s.warnAt(e, "reading '%s' fails at run time: local variables are not supported", e.Name)
		}
	case *Assign:
		s.analyzeExpr(e.Value)
		if s.lookup(e.Name) == nil {
			s.undefined(e, e.Name)
		} else if s.fnDepth == 0 {
			s.warnAt(e, "assigning '%s' fails at run time: local variables are not supported", e.Name)
		}
	case *Call:
		if v, ok := e.Callee.(*Variable); ok {
			if s.use(v, v.Name) && s.fnDepth == 0 {
				s.warnAt(e, "call to '%s' fails at run time: function calls are not supported", v.Name)
			}
		} else {
			s.analyzeExpr(e.Callee)
			if s.fnDepth == 0 {
				s.warnAt(e, "call fails at run time: function calls are not supported")
			}
		}
		for _, arg := range e.Args {
			s.analyzeExpr(arg)
		}
	case *Binary:
		s.analyzeExpr(e.Left)
		s.analyzeExpr(e.Right)
	case *Unary:
		s.analyzeExpr(e.Operand)
	case *Grouping:
		s.analyzeExpr(e.Inner)
	case *Literal:
		// OK
	}
}

// use marks name as read and reports whether it resolved.
func (s *SemanticAnalyzer) use(node Node, name string) bool {
	b := s.lookup(name)
	if b == nil {
		s.undefined(node, name)
		return false
	}
	b.used = true
	return true
}

// undefined reports an unresolved name inside a function body. Outside
// function bodies the code generator rejects it as a compile error.
func (s *SemanticAnalyzer) undefined(node Node, name string) {
	if s.fnDepth > 0 {
		s.warnAt(node, "variable '%s' may be undefined", name)
	}
}

// ---------------------------------------------------------------------------
// Integration with the compile entry points
// ---------------------------------------------------------------------------

// Analyze runs semantic analysis on a program and returns its warnings.
func Analyze(prog *Program) []*Warning {
	analyzer := NewSemanticAnalyzer()
	analyzer.AnalyzeProgram(prog)
	return analyzer.Warnings()
}

// Lint parses source and returns the analyzer's warnings. Declarations
// that fail to parse are skipped.
func Lint(source string, opts Options) []*Warning {
	prog, _ := ParseSource(source, opts)
	return Analyze(prog)
}
