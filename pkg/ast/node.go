// Package ast defines the input statement/expression/type-expression tree
// handed to the core by the (out of scope) parser, per §1 and §6 of the
// specification: "The parser supplies an immutable statement tree whose
// nodes include exact source ranges... The tree is never mutated by the
// core; reduced expressions are new values."
//
// The shape follows the teacher's pkg/corset/ast: one marker interface per
// sum type (Expression, TypeExpression, Statement), one exported struct per
// variant, dispatch by type switch rather than a visitor object.
package ast

import "github.com/wiz-lang/wiz/pkg/source"

// Node is implemented by every AST element and exposes its source range.
type Node interface {
	Location() source.Location
}

// base is embedded by every concrete node to provide Location() for free.
type base struct {
	loc source.Location
}

// Location implements Node.
func (b base) Location() source.Location { return b.loc }

// NewBase constructs the embeddable location-bearing base for a node.
func NewBase(loc source.Location) base {
	return base{loc}
}
