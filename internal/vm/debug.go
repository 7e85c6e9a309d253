package vm

import (
	"fmt"
	"strings"

	"goif/internal/ast"
	"goif/internal/loader"
	"goif/internal/value"
)

// traceStatement reproduces the original interpreter's debug line
// (`<line> <restored source>`), extended with the file's display name and a
// per-run trace id so interleaved output from piped test harnesses can be
// told apart.
func (e *Evaluator) traceStatement(file *loader.File, stmt ast.Stmt) {
	fmt.Fprintf(e.Trace, "[%s] %s:%d %s\n", e.traceID, file.DisplayName, e.CurLn, e.renderStmt(stmt))
}

// traceStore reproduces the original's "Storing <value> into <var>."
// announcement on an INTO assignment.
func (e *Evaluator) traceStore(name string, v value.Value) {
	if !e.Debug {
		return
	}
	fmt.Fprintf(e.Trace, "[%s] storing %s into %s.\n", e.traceID, v.GoString(), name)
}

func (e *Evaluator) renderStmt(stmt ast.Stmt) string {
	switch s := stmt.(type) {
	case *ast.GoStmt:
		return "GO " + renderRef(s.Target)
	case *ast.GoIfStmt:
		return "GOIF " + renderRef(s.Target) + " " + renderExpr(s.Cond)
	case *ast.JumpStmt:
		var sb strings.Builder
		sb.WriteString("JUMP " + renderRef(s.Target) + " (" + renderExprList(s.Args) + ")")
		for _, h := range s.Handlers {
			sb.WriteString(" HANDLE " + h.Exception + " " + renderRef(h.Target))
		}
		return sb.String()
	case *ast.ThrowStmt:
		return "THROW " + s.Exception
	case *ast.ReturnStmt:
		return "RETURN (" + renderExprList(s.Rets) + ")"
	case *ast.AssignStmt:
		return renderExpr(s.Value) + " INTO " + s.Target.Name
	default:
		return fmt.Sprintf("%T", stmt)
	}
}

func renderExprList(exprs []ast.Expr) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = renderExpr(e)
	}
	return strings.Join(parts, ", ")
}

func renderRef(ref ast.LineRef) string {
	prefix := ""
	if ref.Alias != "" {
		prefix = ref.Alias + ":"
	}
	switch ref.Kind {
	case ast.RefAbsolute:
		return fmt.Sprintf("%s^%d", prefix, ref.N)
	case ast.RefRelative:
		if ref.N >= 0 {
			return fmt.Sprintf("%s~+%d", prefix, ref.N)
		}
		return fmt.Sprintf("%s~%d", prefix, ref.N)
	default:
		return prefix + ref.Label
	}
}

func renderExpr(expr ast.Expr) string {
	switch n := expr.(type) {
	case *ast.Literal:
		return n.Value.GoString()
	case *ast.EmptyLiteral:
		return "@"
	case *ast.StringSigil:
		return fmt.Sprintf("\"<%d>\"", n.Key)
	case *ast.Var:
		return n.Name
	case *ast.Unset:
		return "@" + n.Name
	case *ast.Unary:
		return string(n.Op) + renderExpr(n.Operand)
	case *ast.Binary:
		return renderExpr(n.Left) + " " + string(n.Op) + " " + renderExpr(n.Right)
	case *ast.TernaryExpr:
		return renderExpr(n.Cond) + " ? " + renderExpr(n.IfTrue) + " : " + renderExpr(n.IfFalse)
	default:
		return fmt.Sprintf("%T", expr)
	}
}
