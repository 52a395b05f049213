package compiler

import (
	"fmt"
	"strings"

	"github.com/chazu/minilang/vm"
)

// Sprint renders a node (or a whole Program) as an S-expression. It is meant
// for debugging and tests; the format is not stable.
func Sprint(n any) string {
	var b strings.Builder
	writeNode(&b, n)
	return b.String()
}

func writeNode(b *strings.Builder, n any) {
	switch n := n.(type) {
	case nil:
		b.WriteString("<nil>")

	case *Program:
		b.WriteString("(program")
		writeStmts(b, n.Statements)
		b.WriteByte(')')

	// Expressions
	case *Literal:
		switch n.Kind {
		case LiteralNumber:
			b.WriteString(vm.FormatNumber(n.Number))
		case LiteralString:
			fmt.Fprintf(b, "%q", n.Text)
		case LiteralBool:
			fmt.Fprintf(b, "%t", n.Bool)
		default:
			b.WriteString("nil")
		}
	case *Variable:
		b.WriteString(n.Name)
	case *Assign:
		fmt.Fprintf(b, "(= %s ", n.Name)
		writeNode(b, n.Value)
		b.WriteByte(')')
	case *Binary:
		fmt.Fprintf(b, "(%s ", n.Op.Lexeme)
		writeNode(b, n.Left)
		b.WriteByte(' ')
		writeNode(b, n.Right)
		b.WriteByte(')')
	case *Unary:
		fmt.Fprintf(b, "(%s ", n.Op.Lexeme)
		writeNode(b, n.Operand)
		b.WriteByte(')')
	case *Grouping:
		b.WriteString("(group ")
		writeNode(b, n.Inner)
		b.WriteByte(')')
	case *Call:
		b.WriteString("(call ")
		writeNode(b, n.Callee)
		for _, arg := range n.Args {
			b.WriteByte(' ')
			writeNode(b, arg)
		}
		b.WriteByte(')')

	// Statements
	case *ExprStmt:
		b.WriteString("(expr ")
		writeNode(b, n.Expr)
		b.WriteByte(')')
	case *PrintStmt:
		b.WriteString("(print ")
		writeNode(b, n.Expr)
		b.WriteByte(')')
	case *LetStmt:
		fmt.Fprintf(b, "(let %s", n.Name)
		if n.Init != nil {
			b.WriteByte(' ')
			writeNode(b, n.Init)
		}
		b.WriteByte(')')
	case *FunctionStmt:
		fmt.Fprintf(b, "(fn %s (%s)", n.Name, strings.Join(n.Params, " "))
		writeStmts(b, n.Body)
		b.WriteByte(')')
	case *IfStmt:
		b.WriteString("(if ")
		writeNode(b, n.Cond)
		b.WriteByte(' ')
		writeNode(b, n.Then)
		if n.Else != nil {
			b.WriteByte(' ')
			writeNode(b, n.Else)
		}
		b.WriteByte(')')
	case *WhileStmt:
		b.WriteString("(while ")
		writeNode(b, n.Cond)
		b.WriteByte(' ')
		writeNode(b, n.Body)
		b.WriteByte(')')
	case *ReturnStmt:
		b.WriteString("(return")
		if n.Value != nil {
			b.WriteByte(' ')
			writeNode(b, n.Value)
		}
		b.WriteByte(')')
	case *BlockStmt:
		b.WriteString("(block")
		writeStmts(b, n.Statements)
		b.WriteByte(')')

	default:
		fmt.Fprintf(b, "<%T>", n)
	}
}

func writeStmts(b *strings.Builder, stmts []Stmt) {
	for _, s := range stmts {
		b.WriteByte(' ')
		writeNode(b, s)
	}
}
