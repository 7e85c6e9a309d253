package ast

// RefKind tags which of the three LineRef target forms is in use.
type RefKind int

const (
	RefAbsolute RefKind = iota // ^N
	RefRelative                // ~±N (same file only)
	RefLabel                   // a label name
)

// LineRef is the operand of GO/GOIF/JUMP/HANDLE: an optional file alias
// qualifier plus a target that is either an absolute line number, a line
// number relative to the current line, or a label name. Resolution against
// (cur_fid, cur_ln, alias_table) happens at use time in internal/loader
// (compile-time validation) and internal/vm (runtime jump).
type LineRef struct {
	Alias string // "" if unqualified (target resolves in the current file)
	Kind  RefKind
	N     int64  // valid when Kind is RefAbsolute or RefRelative
	Label string // valid when Kind is RefLabel
}

// Stmt is one parsed, executable GOIF statement. Labels, LOAD declarations,
// comments and blank lines never become a Stmt — they are consumed by the
// loader before parsing (spec.md §4.3).
type Stmt interface {
	stmtNode()
}

// GoStmt: `GO target` — unconditional jump, no frame manipulation.
type GoStmt struct {
	Target LineRef
}

func (*GoStmt) stmtNode() {}

// GoIfStmt: `GOIF target expr` — conditional jump.
type GoIfStmt struct {
	Target LineRef
	Cond   Expr
}

func (*GoIfStmt) stmtNode() {}

// Handler is one `HANDLE name target` clause attached to a JUMP.
type Handler struct {
	Exception string
	Target    LineRef
}

// JumpStmt: `JUMP target (args...) HANDLE e1 l1 HANDLE e2 l2 …`. An empty
// Args (whether written `()` or omitted) triggers argument-forwarding: the
// caller's ARG1..ARGN are inherited and every other variable is dropped
// (spec.md §4.4's "JUMP" step 5).
type JumpStmt struct {
	Target   LineRef
	Args     []Expr
	Handlers []Handler
}

func (*JumpStmt) stmtNode() {}

// ThrowStmt: `THROW name`.
type ThrowStmt struct {
	Exception string
}

func (*ThrowStmt) stmtNode() {}

// ReturnStmt: `RETURN (rets...)`. An empty Rets copies any RET\d+-named
// variable in the callee's namespace across to the caller; a non-empty
// Rets binds RET1..RETM exactly (spec.md §4.4's "RETURN" step 3).
type ReturnStmt struct {
	Rets []Expr
}

func (*ReturnStmt) stmtNode() {}

// AssignTarget is either a named variable, STDOUT, STDERR, or STDIN (the
// last of which is always a runtime error as an assignment target).
type AssignTarget struct {
	Name string
}

// AssignStmt: `expr INTO target`. When Value is an *EmptyLiteral (the bare
// `@` form), the evaluator removes Target from the namespace instead of
// assigning.
type AssignStmt struct {
	Value  Expr
	Target AssignTarget
}

func (*AssignStmt) stmtNode() {}
