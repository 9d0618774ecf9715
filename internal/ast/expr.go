// Package ast holds the tagged-variant AST types produced by
// internal/parser and consumed by internal/typecheck, internal/compiler
// and internal/rewriter: patterns, construct/add/delete specs, views,
// queries, and top-level commands.
package ast

import "github.com/ritamzico/viewgraph/internal/graph"

// Expr is a WHERE-clause / property-predicate expression: Ref(var,key),
// Lit(value), or BinOp(op, left, right).
type Expr interface {
	isExpr()
}

// Ref references a pattern variable's property, e.g. a.age.
type Ref struct {
	Var string
	Key string
}

func (Ref) isExpr() {}

// Lit is a literal string or numeric-looking value.
type Lit struct {
	Value string
}

func (Lit) isExpr() {}

// BinOp is a binary comparison between two sub-expressions.
type BinOp struct {
	Op    graph.CompareOp
	Left  Expr
	Right Expr
}

func (BinOp) isExpr() {}

// And is a conjunction of WHERE-clause comparisons: a.age > "25" AND
// b.age < "40". Kept distinct from BinOp (whose Op is a
// graph.CompareOp, a value comparison) since conjunction is a
// structural, not a value, operator.
type And struct {
	Left  Expr
	Right Expr
}

func (And) isExpr() {}
