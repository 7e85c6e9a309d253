// Package vm is the GOIF evaluator: the program-counter step loop, the
// call stack, the variable namespace, and per-statement dispatch for
// GO/GOIF/JUMP/RETURN/THROW/INTO (spec.md §4.4).
package vm

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"goif/internal/ast"
	goiferrors "goif/internal/errors"
	"goif/internal/loader"
	"goif/internal/value"
)

// MaxCallStackDepth is the 255-frame limit spec.md §3 imposes unless the
// unsafe-jump flag is set.
const MaxCallStackDepth = 255

var (
	argPattern = regexp.MustCompile(`^ARG\d+$`)
	retPattern = regexp.MustCompile(`^RET\d+$`)
)

// Site is a resolved (fid, line) pair — the compiled form of an ast.LineRef
// once alias, label, and relative-offset resolution have all happened.
type Site struct {
	Fid  int
	Line int
}

// Frame is one call-stack entry, pushed by JUMP and popped by RETURN or by
// an exception unwinding through it.
type Frame struct {
	ReturnFid int
	ReturnLn  int // the JUMP statement's own line, not one past it
	SavedVars map[string]value.Value
	Handlers  map[string]Site
}

// Evaluator holds all of GOIF's mutable runtime state: the program
// counter, the active namespace, and the call stack.
type Evaluator struct {
	Program *loader.Program

	CurFid int
	CurLn  int
	Vars   map[string]value.Value
	Stack  []Frame

	UnsafeJump bool

	Debug   bool
	Trace   io.Writer
	traceID uuid.UUID

	Stdin  *bufio.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// New prepares an evaluator over a loaded Program. stdout/stderr default
// to whatever the caller supplies — cmd/goif wires os.Stdout/os.Stderr,
// tests wire bytes.Buffers.
func New(prog *loader.Program, stdin io.Reader, stdout, stderr io.Writer) *Evaluator {
	return &Evaluator{
		Program: prog,
		Vars:    map[string]value.Value{},
		Stdin:   bufio.NewReader(stdin),
		Stdout:  stdout,
		Stderr:  stderr,
		traceID: uuid.New(),
		Trace:   stderr,
	}
}

// Run binds args as ARG1..ARGN, starts the PC at the root file's MAIN
// label, and executes until the call stack empties at top level or a
// fatal/uncaught error occurs.
func (e *Evaluator) Run(args []string) error {
	for i, a := range args {
		e.Vars[fmt.Sprintf("ARG%d", i+1)] = value.NewString(a)
	}
	root := e.Program.Files[loader.RootFid]
	e.CurFid = loader.RootFid
	e.CurLn = root.Labels["MAIN"]
	return e.run()
}

func (e *Evaluator) run() error {
	for {
		file := e.Program.Files[e.CurFid]
		if e.CurLn > file.MaxLine {
			if len(e.Stack) == 0 {
				return nil
			}
			if err := e.dispatchReturn(&ast.ReturnStmt{}); err != nil {
				return err
			}
			continue
		}
		stmt, ok := file.Lines[e.CurLn]
		if !ok {
			e.CurLn++
			continue
		}
		if e.Debug {
			e.traceStatement(file, stmt)
		}
		if err := e.dispatch(stmt, file); err != nil {
			return err
		}
	}
}

func (e *Evaluator) dispatch(stmt ast.Stmt, file *loader.File) error {
	switch s := stmt.(type) {
	case *ast.GoStmt:
		fid, line, err := e.resolveLineRef(s.Target, file)
		if err != nil {
			return err
		}
		e.CurFid, e.CurLn = fid, line
		return nil
	case *ast.GoIfStmt:
		cond, err := e.evalExpr(s.Cond, file)
		if err != nil {
			return e.propagate(err)
		}
		if cond.Kind != value.Bool {
			return goiferrors.NewRuntimeError(file.DisplayName, e.CurLn, "GOIF expression does not evaluate to a boolean")
		}
		if cond.B {
			fid, line, err := e.resolveLineRef(s.Target, file)
			if err != nil {
				return err
			}
			e.CurFid, e.CurLn = fid, line
		} else {
			e.CurLn++
		}
		return nil
	case *ast.JumpStmt:
		return e.dispatchJump(s, file)
	case *ast.ThrowStmt:
		return e.dispatchThrow(s, file)
	case *ast.ReturnStmt:
		return e.dispatchReturn(s)
	case *ast.AssignStmt:
		return e.dispatchAssign(s, file)
	default:
		return goiferrors.NewRuntimeError(file.DisplayName, e.CurLn, "unknown statement type %T", stmt)
	}
}

func (e *Evaluator) dispatchJump(j *ast.JumpStmt, file *loader.File) error {
	if len(e.Stack) >= MaxCallStackDepth && !e.UnsafeJump {
		return goiferrors.NewRuntimeError(file.DisplayName, e.CurLn, "call stack overflow (%d frames)", MaxCallStackDepth)
	}

	argVals := make([]value.Value, len(j.Args))
	for i, a := range j.Args {
		v, err := e.evalExpr(a, file)
		if err != nil {
			return e.propagate(err)
		}
		argVals[i] = v
	}

	handlers := map[string]Site{}
	for _, h := range j.Handlers {
		fid, line, err := e.resolveLineRef(h.Target, file)
		if err != nil {
			return err
		}
		handlers[h.Exception] = Site{Fid: fid, Line: line}
	}

	targetFid, targetLine, err := e.resolveLineRef(j.Target, file)
	if err != nil {
		return err
	}

	e.Stack = append(e.Stack, Frame{
		ReturnFid: e.CurFid,
		ReturnLn:  e.CurLn,
		SavedVars: cloneVars(e.Vars),
		Handlers:  handlers,
	})

	if len(j.Args) == 0 {
		forwarded := map[string]value.Value{}
		for k, v := range e.Vars {
			if argPattern.MatchString(k) {
				forwarded[k] = v
			}
		}
		e.Vars = forwarded
	} else {
		newVars := map[string]value.Value{}
		for i, v := range argVals {
			newVars[fmt.Sprintf("ARG%d", i+1)] = v
		}
		e.Vars = newVars
	}

	e.CurFid, e.CurLn = targetFid, targetLine
	return nil
}

func (e *Evaluator) dispatchReturn(r *ast.ReturnStmt) error {
	file := e.Program.Files[e.CurFid]
	retVals := make([]value.Value, len(r.Rets))
	for i, expr := range r.Rets {
		v, err := e.evalExpr(expr, file)
		if err != nil {
			return e.propagate(err)
		}
		retVals[i] = v
	}

	if len(e.Stack) == 0 {
		e.CurLn = file.MaxLine + 1
		return nil
	}

	frame := e.Stack[len(e.Stack)-1]
	e.Stack = e.Stack[:len(e.Stack)-1]
	vars := frame.SavedVars

	if len(r.Rets) == 0 {
		for k, v := range e.Vars {
			if retPattern.MatchString(k) {
				vars[k] = v
			}
		}
	} else {
		for i, v := range retVals {
			vars[fmt.Sprintf("RET%d", i+1)] = v
		}
	}

	e.Vars = vars
	e.CurFid = frame.ReturnFid
	e.CurLn = frame.ReturnLn + 1
	return nil
}

func (e *Evaluator) dispatchThrow(t *ast.ThrowStmt, file *loader.File) error {
	if t.Exception == "ERROR" {
		return goiferrors.NewRuntimeError(file.DisplayName, e.CurLn, "critical ERROR raised")
	}
	return e.unwind(t.Exception, e.CurFid, e.CurLn)
}

func (e *Evaluator) dispatchAssign(a *ast.AssignStmt, file *loader.File) error {
	val, err := e.evalExpr(a.Value, file)
	if err != nil {
		return e.propagate(err)
	}

	switch a.Target.Name {
	case "STDOUT":
		fmt.Fprint(e.Stdout, val.Render())
	case "STDERR":
		fmt.Fprint(e.Stderr, val.Render())
	case "STDIN":
		return goiferrors.NewRuntimeError(file.DisplayName, e.CurLn, "you cannot write to STDIN")
	default:
		if val.Kind == value.Empty {
			delete(e.Vars, a.Target.Name)
		} else {
			e.Vars[a.Target.Name] = val
		}
		e.traceStore(a.Target.Name, val)
	}
	e.CurLn++
	return nil
}

// propagate turns a catchable *goiferrors.Exception into a stack unwind;
// any other error (a *goiferrors.GOIFError) is fatal and passed straight
// through.
func (e *Evaluator) propagate(err error) error {
	if exc, ok := err.(*goiferrors.Exception); ok {
		return e.unwind(exc.Name, e.CurFid, e.CurLn)
	}
	return err
}

// unwind implements THROW's stack-popping search for a matching HANDLE
// (spec.md §4.4 "THROW"), building the JUMP-site chain reported if no
// frame catches it.
func (e *Evaluator) unwind(name string, atFid, atLn int) error {
	exc := goiferrors.NewException(name)
	for {
		if len(e.Stack) == 0 {
			return &goiferrors.Uncaught{Exc: exc, Line: atLn, File: e.Program.Files[atFid].DisplayName}
		}
		frame := e.Stack[len(e.Stack)-1]
		e.Stack = e.Stack[:len(e.Stack)-1]
		if site, ok := frame.Handlers[name]; ok {
			e.Vars = frame.SavedVars
			e.CurFid = site.Fid
			e.CurLn = site.Line
			return nil
		}
		exc = exc.WithSite(frame.ReturnLn, e.Program.Files[frame.ReturnFid].DisplayName)
	}
}

// resolveLineRef resolves a LineRef against the evaluator's current PC and
// curFile's alias table (spec.md §4.4 and Design Notes §9).
func (e *Evaluator) resolveLineRef(ref ast.LineRef, curFile *loader.File) (int, int, error) {
	fid := curFile.Fid
	if ref.Alias != "" {
		var ok bool
		fid, ok = curFile.AliasTable[ref.Alias]
		if !ok {
			return 0, 0, goiferrors.NewRuntimeError(curFile.DisplayName, e.CurLn, "unknown file alias '%s'", ref.Alias)
		}
	}
	targetFile, ok := e.Program.Files[fid]
	if !ok {
		return 0, 0, goiferrors.NewRuntimeError(curFile.DisplayName, e.CurLn, "reference to an unloaded file (fid %d)", fid)
	}
	switch ref.Kind {
	case ast.RefAbsolute:
		return fid, int(ref.N), nil
	case ast.RefRelative:
		return fid, e.CurLn + int(ref.N), nil
	case ast.RefLabel:
		line, ok := targetFile.Labels[ref.Label]
		if !ok {
			return 0, 0, goiferrors.NewRuntimeError(curFile.DisplayName, e.CurLn, "undefined label '%s'", ref.Label)
		}
		return fid, line, nil
	}
	return 0, 0, goiferrors.NewRuntimeError(curFile.DisplayName, e.CurLn, "malformed line reference")
}

// evalExpr walks an expression tree, resolving Var reads, string sigils,
// and operator application against the active namespace. Its error return
// is either a *goiferrors.Exception (catchable — OP_FAIL, or propagated
// from a nested evaluation) or a *goiferrors.GOIFError (fatal).
func (e *Evaluator) evalExpr(expr ast.Expr, file *loader.File) (value.Value, error) {
	switch n := expr.(type) {
	case *ast.Literal:
		return n.Value, nil
	case *ast.EmptyLiteral:
		return value.EmptyValue, nil
	case *ast.StringSigil:
		s, ok := e.Program.Strings.Lookup(n.Key)
		if !ok {
			return value.Value{}, goiferrors.NewRuntimeError(file.DisplayName, e.CurLn, "unresolvable string sigil %d", n.Key)
		}
		return value.NewString(s), nil
	case *ast.Var:
		return e.readVar(n.Name, file)
	case *ast.Unset:
		_, present := e.Vars[n.Name]
		return value.NewBool(!present), nil
	case *ast.Unary:
		operand, err := e.evalExpr(n.Operand, file)
		if err != nil {
			return value.Value{}, err
		}
		if n.Op == value.OpNeg {
			return value.UnaryMinus(file.DisplayName, e.CurLn, operand)
		}
		return value.LogicalNot(file.DisplayName, e.CurLn, operand)
	case *ast.Binary:
		left, err := e.evalExpr(n.Left, file)
		if err != nil {
			return value.Value{}, err
		}
		right, err := e.evalExpr(n.Right, file)
		if err != nil {
			return value.Value{}, err
		}
		return value.Binary(file.DisplayName, e.CurLn, n.Op, left, right)
	case *ast.TernaryExpr:
		cond, err := e.evalExpr(n.Cond, file)
		if err != nil {
			return value.Value{}, err
		}
		if cond.Kind != value.Bool {
			return value.Value{}, goiferrors.NewRuntimeError(file.DisplayName, e.CurLn, "ternary condition must be a boolean")
		}
		if cond.B {
			return e.evalExpr(n.IfTrue, file)
		}
		return e.evalExpr(n.IfFalse, file)
	default:
		return value.Value{}, goiferrors.NewRuntimeError(file.DisplayName, e.CurLn, "unknown expression type %T", expr)
	}
}

func (e *Evaluator) readVar(name string, file *loader.File) (value.Value, error) {
	switch name {
	case "STDIN":
		line, err := e.Stdin.ReadString('\n')
		if err != nil && line == "" {
			return value.Value{}, goiferrors.NewRuntimeError(file.DisplayName, e.CurLn, "STDIN closed")
		}
		return value.NewString(strings.TrimRight(line, "\n")), nil
	case "STDOUT", "STDERR":
		return value.Value{}, goiferrors.NewRuntimeError(file.DisplayName, e.CurLn, "you cannot read from %s", name)
	}
	if v, ok := e.Vars[name]; ok {
		return v, nil
	}
	return value.Value{}, goiferrors.NewRuntimeError(file.DisplayName, e.CurLn, "unknown variable %s", name)
}

// EvalLine executes one REPL-typed statement against the live namespace,
// without storing it into any file's line table. The PC is parked one past
// the root file's last line for the duration (spec.md §6 "Interactive
// mode"), then the step loop drains until it halts or blocks again — this
// lets a JUMP typed at the prompt run to completion, including any RETURN
// back to top level, before control returns to the REPL.
func (e *Evaluator) EvalLine(stmt ast.Stmt) error {
	root := e.Program.Files[loader.RootFid]
	e.CurFid = loader.RootFid
	e.CurLn = root.MaxLine + 1
	if err := e.dispatch(stmt, root); err != nil {
		return err
	}
	if e.CurFid == loader.RootFid && e.CurLn > root.MaxLine && len(e.Stack) == 0 {
		return nil
	}
	return e.run()
}

func cloneVars(vars map[string]value.Value) map[string]value.Value {
	out := make(map[string]value.Value, len(vars))
	for k, v := range vars {
		out[k] = v
	}
	return out
}
