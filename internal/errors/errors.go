// internal/errors/errors.go
//
// Package errors implements GOIF's three disjoint error kinds: compile
// errors, runtime errors (both fatal) and user exceptions (catchable).
package errors

import (
	"fmt"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// ErrorType distinguishes the two fatal error kinds from each other for
// callers that need to report them differently (compile errors abort
// before any statement runs; runtime errors abort mid-run with a PC).
type ErrorType string

const (
	CompileError ErrorType = "CompileError"
	RuntimeError ErrorType = "RuntimeError"
)

// SourceLocation pinpoints a fatal error to a loaded file and line.
type SourceLocation struct {
	File string
	Line int
}

// GOIFError is a fatal, non-recoverable error. Both compile and runtime
// errors terminate the interpreter with a diagnostic of this shape.
type GOIFError struct {
	Type     ErrorType
	Message  string
	Location SourceLocation
	// cause chains github.com/pkg/errors context so CLI reporting can show
	// *why* a lower-level failure surfaced, not just that it did.
	cause error
}

func (e *GOIFError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)
	if e.Location.File != "" || e.Location.Line != 0 {
		sb.WriteString(fmt.Sprintf(" (line %d, file '%s')", e.Location.Line, e.Location.File))
	}
	return sb.String()
}

func (e *GOIFError) Cause() error { return e.cause }

// Unwind renders the message the CLI prints to stderr: "Error: <msg>
// (line N, file 'F')".
func (e *GOIFError) Unwind() string {
	return "Error: " + e.Error()
}

// NewCompileError builds a fatal compile-time error at the given location.
func NewCompileError(file string, line int, format string, args ...interface{}) *GOIFError {
	msg := fmt.Sprintf(format, args...)
	return &GOIFError{
		Type:     CompileError,
		Message:  msg,
		Location: SourceLocation{File: file, Line: line},
		cause:    pkgerrors.New(msg),
	}
}

// NewRuntimeError builds a fatal runtime error at the given program counter.
func NewRuntimeError(file string, line int, format string, args ...interface{}) *GOIFError {
	msg := fmt.Sprintf(format, args...)
	return &GOIFError{
		Type:     RuntimeError,
		Message:  msg,
		Location: SourceLocation{File: file, Line: line},
		cause:    pkgerrors.New(msg),
	}
}

// Wrap lifts a lower-level Go error (e.g. an I/O failure loading a LOADed
// file) into a fatal compile error, preserving the original as the cause.
func Wrap(err error, file string, line int, msg string) *GOIFError {
	return &GOIFError{
		Type:     CompileError,
		Message:  msg + ": " + err.Error(),
		Location: SourceLocation{File: file, Line: line},
		cause:    pkgerrors.WithStack(err),
	}
}

// JumpSite records one unwound JUMP frame for an uncaught-exception report.
type JumpSite struct {
	Line int
	File string
}

// Exception is the catchable channel: a named token raised by THROW or by
// an operator condition (OP_FAIL). It is an ordinary error value the
// evaluator's unwind loop inspects — never a Go panic.
type Exception struct {
	Name  string
	Chain []JumpSite
}

func NewException(name string) *Exception {
	return &Exception{Name: name}
}

func (e *Exception) Error() string {
	return fmt.Sprintf("exception '%s'", e.Name)
}

// WithSite appends a JUMP site to the unwind chain, in the order the
// evaluator discovers them while popping frames looking for a handler.
func (e *Exception) WithSite(line int, file string) *Exception {
	e.Chain = append(e.Chain, JumpSite{Line: line, File: file})
	return e
}

// Uncaught renders the report described in spec.md §7: "Uncaught exception
// '<NAME>' (line N, file 'F') from JUMP (line …) from JUMP (line …) …".
func (e *Exception) Uncaught(line int, file string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Uncaught exception '%s' (line %d, file '%s')", e.Name, line, file))
	for _, site := range e.Chain {
		sb.WriteString(fmt.Sprintf(" from JUMP (line %d, file '%s')", site.Line, site.File))
	}
	return sb.String()
}

// OpFail is the standard catchable exception raised on arithmetic
// zero-divisor and out-of-range string index.
const OpFail = "OP_FAIL"

// NewOpFail is a convenience constructor for the one exception the
// operator layer raises on its own.
func NewOpFail() *Exception {
	return NewException(OpFail)
}

// Uncaught is returned by the evaluator when an Exception unwinds past the
// bottom of the call stack with no HANDLE matching it anywhere. Unlike
// GOIFError, its Error() rendering is the "Uncaught exception '<NAME>' ..."
// shape from spec.md §7, not the "Error: <msg>" shape — the CLI tells the
// two apart when choosing what to print to stderr.
type Uncaught struct {
	Exc  *Exception
	Line int
	File string
}

func (u *Uncaught) Error() string { return u.Exc.Uncaught(u.Line, u.File) }
