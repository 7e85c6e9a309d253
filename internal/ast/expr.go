// Package ast defines the GOIF statement and expression trees produced by
// internal/parser and walked by internal/vm.
package ast

import "goif/internal/value"

// Expr is a node in the expression tree. Unlike the teacher's expression
// AST (internal/parser.Expr in sentra), GOIF has exactly the operator set
// in spec.md §4.1, so the tree is a small closed set of node kinds rather
// than an open visitor hierarchy.
type Expr interface {
	exprNode()
}

// Literal is an already-typed constant: an integer or a boolean. String
// literals are never built as a Literal; they stay in sigil form, see
// StringSigil.
type Literal struct {
	Value value.Value
}

func (*Literal) exprNode() {}

// StringSigil is a string literal still in its `"<n>"` sigil form. The
// parser always produces this node for a string; internal/vm looks the key
// up in the program's string table when the expression is evaluated.
type StringSigil struct {
	Key int
}

func (*StringSigil) exprNode() {}

// Var reads a named variable (including the pseudo-variables STDIN,
// STDOUT, STDERR, which the evaluator special-cases).
type Var struct {
	Name string
}

func (*Var) exprNode() {}

// Unset is the `@IDENT` atom: true iff IDENT is not present in the active
// namespace.
type Unset struct {
	Name string
}

func (*Unset) exprNode() {}

// EmptyLiteral is the bare `@` that may only appear as the RHS of an INTO
// statement, meaning "unset the target variable" (value.EmptyValue).
type EmptyLiteral struct{}

func (*EmptyLiteral) exprNode() {}

// Unary is a prefix operator: '-' (negation) or '!' (logical not).
type Unary struct {
	Op      value.Op
	Operand Expr
}

func (*Unary) exprNode() {}

// Binary is an infix operator from spec.md §4.1's binary row.
type Binary struct {
	Op          value.Op
	Left, Right Expr
}

func (*Binary) exprNode() {}

// TernaryExpr is `cond ? ifTrue : ifFalse`.
type TernaryExpr struct {
	Cond, IfTrue, IfFalse Expr
}

func (*TernaryExpr) exprNode() {}
