// Package typecheck implements the Type Checker & Pruner: for each
// pattern edge with a label constraint, it resolves the edge label's
// schema endpoints and propagates node-label constraints across the
// pattern by fixed point, detecting statically unsatisfiable patterns.
//
// The fixed-point loop repeatedly walks the pattern, narrowing a
// per-variable label-constraint set until nothing changes in a pass.
package typecheck

import (
	"fmt"

	"github.com/ritamzico/viewgraph/internal/ast"
	"github.com/ritamzico/viewgraph/internal/graph"
)

// Error is a TypeError.
type Error struct {
	Message string
}

func (e Error) Error() string { return fmt.Sprintf("type error: %s", e.Message) }

// Policy controls what happens to a statically unsatisfiable pattern:
// with both options off, unsatisfiable patterns are emitted as-is (and
// will simply produce no tuples at evaluation time).
type Policy struct {
	TypeCheck   bool // fail with Error
	PruneQuery  bool // silently drop unsatisfiable branches
}

// Check resolves label constraints across pat by fixed point against
// schema and reports whether pat is satisfiable. A node label the
// schema does not declare leaves that node's variable with no
// satisfiable label, and so does an undeclared edge label for the
// edge's source variable. When an inconsistency is found, Check's
// behavior depends on Policy:
// TypeCheck takes precedence over PruneQuery. satisfiable is false
// only when PruneQuery is on and TypeCheck is off
// and the pattern should be silently dropped.
func Check(pat ast.Pattern, schema *graph.Schema, policy Policy) (satisfiable bool, err error) {
	constraints := make(map[string]map[graph.Label]struct{})
	set := func(v string, labels ...graph.Label) {
		s, ok := constraints[v]
		if !ok {
			s = make(map[graph.Label]struct{})
			constraints[v] = s
		}
		for _, l := range labels {
			s[l] = struct{}{}
		}
	}
	for _, n := range pat.Nodes {
		if n.Label != "" {
			set(n.Var, graph.Label(n.Label))
			if !schema.HasNode(graph.Label(n.Label)) {
				constraints[n.Var] = map[graph.Label]struct{}{} // no node can carry an undeclared label
			}
		} else if _, ok := constraints[n.Var]; !ok {
			constraints[n.Var] = nil // unconstrained, distinct from "empty intersection"
		}
	}

	// Fixed-point propagation: each labelled edge constrains its
	// endpoints' label sets to {endpoints(label)}, intersected with
	// whatever is already known about that variable.
	changed := true
	for changed {
		changed = false
		for _, e := range pat.Edges {
			if e.Label == "" {
				continue
			}
			ends, lerr := schema.Endpoints(graph.Label(e.Label))
			if lerr != nil {
				constraints[e.Src] = map[graph.Label]struct{}{} // no edge can carry an undeclared label
				continue
			}
			if narrow(constraints, e.Src, ends.Src) {
				changed = true
			}
			if narrow(constraints, e.Dst, ends.Dst) {
				changed = true
			}
		}
	}

	for v, s := range constraints {
		if s != nil && len(s) == 0 {
			msg := fmt.Sprintf("pattern variable %q has no satisfiable label after constraint propagation", v)
			switch {
			case policy.TypeCheck:
				return false, Error{Message: msg}
			case policy.PruneQuery:
				return false, nil
			default:
				return true, nil // emit as-is; no pruning/typecheck policy requested
			}
		}
	}
	return true, nil
}

// narrow intersects the known label set for v with {label}, treating
// an unconstrained (nil) set as "everything" on first narrowing.
// Returns true if the set actually changed.
func narrow(constraints map[string]map[graph.Label]struct{}, v string, label graph.Label) bool {
	cur, ok := constraints[v]
	if !ok || cur == nil {
		constraints[v] = map[graph.Label]struct{}{label: {}}
		return true
	}
	if _, ok := cur[label]; ok && len(cur) == 1 {
		return false
	}
	if _, ok := cur[label]; ok {
		constraints[v] = map[graph.Label]struct{}{label: {}}
		return true
	}
	// label not in cur: intersection becomes empty.
	if len(cur) == 0 {
		return false
	}
	constraints[v] = map[graph.Label]struct{}{}
	return true
}
