package compiler

// ---------------------------------------------------------------------------
// AST: Abstract Syntax Tree for minilang
// ---------------------------------------------------------------------------

// Position represents a source location.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

// Span represents a range in source code.
type Span struct {
	Start Position
	End   Position
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Span() Span
	node() // marker method
}

// ---------------------------------------------------------------------------
// Expression nodes
// ---------------------------------------------------------------------------

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	expr() // marker method
}

// LiteralKind tags the variant held by a Literal.
type LiteralKind int

const (
	LiteralNil LiteralKind = iota
	LiteralNumber
	LiteralString
	LiteralBool
)

// Literal represents a number, string, boolean or absent literal.
type Literal struct {
	SpanVal Span
	Kind    LiteralKind
	Number  float64
	Text    string
	Bool    bool
}

func (n *Literal) Span() Span { return n.SpanVal }
func (n *Literal) node()      {}
func (n *Literal) expr()      {}

// Binary represents an infix operation (left op right).
type Binary struct {
	SpanVal Span
	Left    Expr
	Op      Token
	Right   Expr
}

func (n *Binary) Span() Span { return n.SpanVal }
func (n *Binary) node()      {}
func (n *Binary) expr()      {}

// Unary represents a prefix operation (-x, !x).
type Unary struct {
	SpanVal Span
	Op      Token
	Operand Expr
}

func (n *Unary) Span() Span { return n.SpanVal }
func (n *Unary) node()      {}
func (n *Unary) expr()      {}

// Variable represents a variable reference.
type Variable struct {
	SpanVal Span
	Name    string
}

func (n *Variable) Span() Span { return n.SpanVal }
func (n *Variable) node()      {}
func (n *Variable) expr()      {}

// Assign represents a variable assignment (x = expr).
type Assign struct {
	SpanVal Span
	Name    string
	Value   Expr
}

func (n *Assign) Span() Span { return n.SpanVal }
func (n *Assign) node()      {}
func (n *Assign) expr()      {}

// Call represents a call expression (callee(args...)).
type Call struct {
	SpanVal Span
	Callee  Expr
	Args    []Expr
}

func (n *Call) Span() Span { return n.SpanVal }
func (n *Call) node()      {}
func (n *Call) expr()      {}

// Grouping represents a parenthesized expression.
type Grouping struct {
	SpanVal Span
	Inner   Expr
}

func (n *Grouping) Span() Span { return n.SpanVal }
func (n *Grouping) node()      {}
func (n *Grouping) expr()      {}

// ---------------------------------------------------------------------------
// Statement nodes
// ---------------------------------------------------------------------------

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmt() // marker method
}

// ExprStmt represents an expression evaluated for its effect.
type ExprStmt struct {
	SpanVal Span
	Expr    Expr
}

func (s *ExprStmt) Span() Span { return s.SpanVal }
func (s *ExprStmt) node()      {}
func (s *ExprStmt) stmt()      {}

// LetStmt declares a variable with an optional initializer.
type LetStmt struct {
	SpanVal Span
	Name    string
	Init    Expr // nil if absent
}

func (s *LetStmt) Span() Span { return s.SpanVal }
func (s *LetStmt) node()      {}
func (s *LetStmt) stmt()      {}

// FunctionStmt declares a named function.
type FunctionStmt struct {
	SpanVal Span
	Name    string
	Params  []string
	Body    []Stmt
}

func (s *FunctionStmt) Span() Span { return s.SpanVal }
func (s *FunctionStmt) node()      {}
func (s *FunctionStmt) stmt()      {}

// IfStmt represents a conditional with an optional else branch.
type IfStmt struct {
	SpanVal Span
	Cond    Expr
	Then    Stmt
	Else    Stmt // nil if absent
}

func (s *IfStmt) Span() Span { return s.SpanVal }
func (s *IfStmt) node()      {}
func (s *IfStmt) stmt()      {}

// WhileStmt represents a pre-tested loop.
type WhileStmt struct {
	SpanVal Span
	Cond    Expr
	Body    Stmt
}

func (s *WhileStmt) Span() Span { return s.SpanVal }
func (s *WhileStmt) node()      {}
func (s *WhileStmt) stmt()      {}

// ReturnStmt returns an optional value.
type ReturnStmt struct {
	SpanVal Span
	Value   Expr // nil if absent
}

func (s *ReturnStmt) Span() Span { return s.SpanVal }
func (s *ReturnStmt) node()      {}
func (s *ReturnStmt) stmt()      {}

// PrintStmt writes the value of an expression.
type PrintStmt struct {
	SpanVal Span
	Expr    Expr
}

func (s *PrintStmt) Span() Span { return s.SpanVal }
func (s *PrintStmt) node()      {}
func (s *PrintStmt) stmt()      {}

// BlockStmt is a braced statement list that opens a new scope.
type BlockStmt struct {
	SpanVal    Span
	Statements []Stmt
}

func (s *BlockStmt) Span() Span { return s.SpanVal }
func (s *BlockStmt) node()      {}
func (s *BlockStmt) stmt()      {}

// ---------------------------------------------------------------------------
// Top-level
// ---------------------------------------------------------------------------

// Program is the root of a parsed source file.
type Program struct {
	Statements []Stmt
}
