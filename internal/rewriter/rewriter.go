// Package rewriter implements the Query Rewriter: turning a
// MATCH...FROM v...RETURN query into a goal predicate Ans and the
// rules that bind it, recursing through virtual/materialized/hybrid
// sources and view-on-view chains.
//
// The query object is turned into something an evaluator can execute
// by composing smaller pieces, one per source kind — here the
// composition is over Rule IR.
package rewriter

import (
	"fmt"

	"github.com/ritamzico/viewgraph/internal/ast"
	"github.com/ritamzico/viewgraph/internal/rule"
)

// Error is an UnknownView or a CyclicViewDependency, the latter surfaced here because view-on-view
// recursion is discovered while walking the catalog during rewriting
// (the program assembler re-confirms it structurally over the
// assembled predicate graph).
type Error struct {
	Kind    string
	Message string
}

func (e Error) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Message) }

// ViewLookup resolves a view by name to its kind, source, and compiled
// rules, as already compiled when the view was created. Implemented by the catalog (C8's
// caller), kept as an interface here so the rewriter has no dependency
// on catalog's session/locking concerns.
type ViewLookup interface {
	Kind(name string) (ast.ViewKind, bool)
	Rules(name string) ([]rule.Rule, error)
	// Source returns the name view was declared ON — "g" for the base
	// graph, another view's name otherwise. Used to walk the
	// view-on-view chain: a view's own compiled rules reference its
	// source's predicate family (N_<source>, E_<source>), so that
	// source's rules must be included in the same program too, however
	// deep the chain goes.
	Source(name string) (string, bool)
}

const AnsPred = "Ans"

// Rewrite produces the goal predicate and the full rule set needed to
// evaluate q: the base predicates are always implicit (the backend
// supplies them as extensional facts); every view transitively
// reachable from q.From has its compiled rules included.
func Rewrite(q ast.Query, lookup ViewLookup) (goalPred string, rules []rule.Rule, err error) {
	visited := make(map[string]struct{})
	if q.From != "g" {
		if err := collect(q.From, lookup, visited, &rules); err != nil {
			return "", nil, err
		}
	}

	goalArgs := make([]rule.Term, 0, len(q.Return))
	for _, v := range q.Return {
		goalArgs = append(goalArgs, rule.Var(v))
	}

	body, tcRules, err := goalBody(q)
	if err != nil {
		return "", nil, err
	}
	rules = append(rules, tcRules...)

	goalRule := rule.Rule{
		Head:       rule.Atom{Pred: AnsPred, Args: goalArgs},
		Body:       body,
		Provenance: "query",
	}
	return AnsPred, append(rules, goalRule), nil
}

// collect walks the view-dependency chain from name, compiling each
// view's rules into out exactly once and detecting cycles before they
// cause non-termination.
func collect(name string, lookup ViewLookup, inProgress map[string]struct{}, out *[]rule.Rule) error {
	if _, cyc := inProgress[name]; cyc {
		return Error{Kind: "CyclicViewDependency", Message: fmt.Sprintf("view %q is defined, directly or indirectly, in terms of itself", name)}
	}
	inProgress[name] = struct{}{}
	defer delete(inProgress, name)

	kind, ok := lookup.Kind(name)
	if !ok {
		return Error{Kind: "UnknownView", Message: fmt.Sprintf("view %q does not exist", name)}
	}

	rules, err := lookup.Rules(name)
	if err != nil {
		return err
	}

	// Whatever name's own kind is, its compiled rules reference its
	// source's predicate family in their bodies, so that source must be
	// walked too before name's rules mean anything — unless the source
	// is the base graph, which the backend supplies extensionally.
	if src, ok := lookup.Source(name); ok && src != "g" {
		if err := collect(src, lookup, inProgress, out); err != nil {
			return err
		}
	}

	switch kind {
	case ast.Materialized:
		// Materialized source: the backend already holds N_v/E_v as
		// extensional facts from a prior refresh, so these rules are
		// only needed to let the Program Assembler and a fresh
		// Materialize call recompute them on demand; evaluation against
		// an up-to-date backend would succeed even without them, but
		// including them keeps this program self-sufficient.
		*out = append(*out, rules...)
		return nil
	case ast.Hybrid:
		// Hybrid: include both mat- and virt-tagged rules; the tagging
		// alone is all the special handling hybrid assembly needs.
		*out = append(*out, rules...)
		return nil
	default: // Virtual
		*out = append(*out, rules...)
		return nil
	}
}

// goalBody lowers the query's own MATCH/WHERE into body literals over
// the query's source predicate family, the same way compiler.Compile
// lowers a rule block's MATCH — duplicated narrowly here rather than
// imported, since the query goal has no CONSTRUCT/ADD/DELETE/SET and
// pulling in the compiler package for one code path would invert the
// dependency direction (compiler depends on ast+rule+skolem only). A
// starred edge in the query's own MATCH needs its TC_<label>_<var>
// predicate actually defined, not just referenced — query-level star
// edges never go through the view compiler, so the same base/inductive
// rule pair compiler.transitiveClosureRules emits for a view's starred
// edge is built again here, scoped to this one query.
func goalBody(q ast.Query) ([]rule.BodyElem, []rule.Rule, error) {
	srcN, srcE := predFamily(q.From)
	var body []rule.BodyElem
	var tcRules []rule.Rule
	labelArg := func(label string, n int) rule.Term {
		if label == "" {
			return rule.Var(fmt.Sprintf("$qlabel%d", n))
		}
		return rule.Const(label)
	}
	for i, n := range q.Match.Nodes {
		body = append(body, rule.Atom{Pred: srcN, Args: []rule.Term{rule.Var(n.Var), labelArg(n.Label, i)}})
	}
	for i, e := range q.Match.Edges {
		if e.Star {
			tcPred := rule.TCPred(e.Label, e.Var)
			body = append(body, rule.Atom{Pred: tcPred, Args: []rule.Term{rule.Var(e.Src), rule.Var(e.Dst)}})
			tcRules = append(tcRules, queryTransitiveClosureRules(tcPred, srcE, e.Label)...)
			continue
		}
		body = append(body, rule.Atom{Pred: srcE, Args: []rule.Term{rule.Var(e.Var), rule.Var(e.Src), rule.Var(e.Dst), labelArg(e.Label, i+1000)}})
	}
	where, err := lowerWhere(q.Where)
	if err != nil {
		return nil, nil, err
	}
	body = append(body, where...)
	return body, tcRules, nil
}

// queryTransitiveClosureRules mirrors compiler.transitiveClosureRules:
// a base case closing over one labelled edge, and an inductive case
// extending an existing TC fact by one more edge.
func queryTransitiveClosureRules(tcPred, edgePred, label string) []rule.Rule {
	x, y, z := rule.Var("$tcx"), rule.Var("$tcy"), rule.Var("$tcz")
	idIgnore := rule.Var("$tcid")
	return []rule.Rule{
		{
			Head: rule.Atom{Pred: tcPred, Args: []rule.Term{x, y}},
			Body: []rule.BodyElem{
				rule.Atom{Pred: edgePred, Args: []rule.Term{idIgnore, x, y, rule.Const(label)}},
			},
			Provenance:      "query",
			Materialization: rule.TagVirt,
		},
		{
			Head: rule.Atom{Pred: tcPred, Args: []rule.Term{x, z}},
			Body: []rule.BodyElem{
				rule.Atom{Pred: tcPred, Args: []rule.Term{x, y}},
				rule.Atom{Pred: edgePred, Args: []rule.Term{idIgnore, y, z, rule.Const(label)}},
			},
			Provenance:      "query",
			Materialization: rule.TagVirt,
		},
	}
}

func predFamily(source string) (nPred, ePred string) {
	if source == "g" {
		return rule.BaseN, rule.BaseE
	}
	return rule.ViewPred("N", source), rule.ViewPred("E", source)
}

func lowerWhere(e ast.Expr) ([]rule.BodyElem, error) {
	if e == nil {
		return nil, nil
	}
	switch n := e.(type) {
	case ast.And:
		left, err := lowerWhere(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := lowerWhere(n.Right)
		if err != nil {
			return nil, err
		}
		return append(left, right...), nil
	case ast.BinOp:
		left, err := lowerOperand(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := lowerOperand(n.Right)
		if err != nil {
			return nil, err
		}
		return []rule.BodyElem{rule.Compare{Op: n.Op, Left: left, Right: right}}, nil
	}
	return nil, fmt.Errorf("rewriter: unsupported WHERE expression %T", e)
}

func lowerOperand(e ast.Expr) (rule.Term, error) {
	switch n := e.(type) {
	case ast.Ref:
		return rule.Var(n.Var + "." + n.Key), nil
	case ast.Lit:
		return rule.Const(n.Value), nil
	}
	return nil, fmt.Errorf("rewriter: unsupported operand %T", e)
}
