// Package compiler implements the View Compiler: compiling one view
// into a set of Datalog rules with heads in N_v/E_v (no NP_v/EP_v
// property rules are emitted), via a
// seven-step lowering pass (ground set, default MAP, CONSTRUCT, ADD,
// DELETE, UNION, path regex). It is a one-shot AST-to-domain-object
// pass with no shared mutable state beyond what's threaded through its
// arguments.
package compiler

import (
	"fmt"
	"sort"

	"github.com/ritamzico/viewgraph/internal/ast"
	"github.com/ritamzico/viewgraph/internal/rule"
	"github.com/ritamzico/viewgraph/internal/skolem"
)

// freshNames gives fresh variable names to unconstrained pattern
// positions (a node/edge with no label) so every generated atom keeps
// a fixed arity. Scoped per Compile call.
type freshNames struct{ n int }

func (f *freshNames) next(prefix string) rule.Var {
	f.n++
	return rule.Var(fmt.Sprintf("$%s%d", prefix, f.n))
}

// srcPred resolves a MATCH/CONSTRUCT source's predicate family name:
// the base graph "g" uses the bare N/E/NP/EP predicates, any other
// source is a view and uses the per-view family.
func srcPred(kind, source string) string {
	if source == "g" {
		switch kind {
		case "N":
			return rule.BaseN
		case "E":
			return rule.BaseE
		case "NP":
			return rule.BaseNP
		case "EP":
			return rule.BaseEP
		}
	}
	return rule.ViewPred(kind, source)
}

// Compile lowers view v into its Datalog rules. reg is not consulted
// here: CONSTRUCT/ADD elements that need Skolemization get a builtin
// Skolem body atom, and their ids are minted at evaluation time.
func Compile(v ast.View, reg *skolem.Registry) ([]rule.Rule, error) {
	var out []rule.Rule
	arities := make(map[string]int)

	for idx, rb := range v.Rules {
		rules, err := compileRuleBlock(v.Name, v.Source, idx, rb, reg, arities)
		if err != nil {
			return nil, err
		}
		out = append(out, rules...)
	}
	return out, nil
}

func compileRuleBlock(viewName, source string, ruleIdx int, rb ast.RuleBlock, reg *skolem.Registry, arities map[string]int) ([]rule.Rule, error) {
	fresh := &freshNames{}
	var body []rule.BodyElem
	var extra []rule.Rule // auxiliary TC rules emitted by starred edges

	matchVars := make(map[string]struct{})
	for _, vname := range rb.Match.Vars() {
		matchVars[vname] = struct{}{}
	}

	// Step 1: ground set — one atom per pattern node/edge.
	for _, n := range rb.Match.Nodes {
		labelTerm := labelTermFor(n.Label, fresh)
		body = append(body, rule.Atom{Pred: srcPred("N", source), Args: []rule.Term{rule.Var(n.Var), labelTerm}})
	}
	for _, e := range rb.Match.Edges {
		if e.Star {
			tcPred := rule.TCPred(e.Label, e.Var)
			body = append(body, rule.Atom{Pred: tcPred, Args: []rule.Term{rule.Var(e.Src), rule.Var(e.Dst)}})
			extra = append(extra, transitiveClosureRules(tcPred, srcPred("E", source), e.Label, viewName)...)
			continue
		}
		labelTerm := labelTermFor(e.Label, fresh)
		body = append(body, rule.Atom{
			Pred: srcPred("E", source),
			Args: []rule.Term{rule.Var(e.Var), rule.Var(e.Src), rule.Var(e.Dst), labelTerm},
		})
	}

	// WHERE comparisons (possibly a conjunction).
	cmps, err := lowerWhere(rb.Where)
	if err != nil {
		return nil, err
	}
	for _, c := range cmps {
		body = append(body, c)
	}

	// Skolem SET clauses become builtin body atoms binding their
	// target var, so CONSTRUCT/ADD below can reference that var like
	// any MATCH-bound one.
	setVars := make(map[string]struct{})
	for _, s := range rb.Sets {
		if err := checkArity(arities, s.FnName, len(s.Args)); err != nil {
			return nil, err
		}
		args := make([]rule.Term, 0, len(s.Args)+1)
		for _, a := range s.Args {
			args = append(args, rule.Var(a))
		}
		args = append(args, rule.Var(s.Var))
		body = append(body, rule.Atom{Pred: rule.SkolemPred(s.FnName), Args: args})
		setVars[s.Var] = struct{}{}
	}

	deleted := make(map[string]struct{})
	for _, d := range rb.Deletes {
		deleted[d.TargetVar] = struct{}{}
	}
	mapped := make(map[string]string) // from -> to
	for _, m := range rb.Mappings {
		mapped[m.From] = m.To
	}
	constructedNodes := make(map[string]string) // var -> label
	constructedEdges := make(map[string]ast.ConstructEdge)
	for _, cn := range rb.ConstructNodes {
		constructedNodes[cn.Var] = cn.Label
	}
	for _, ce := range rb.ConstructEdges {
		constructedEdges[ce.Var] = ce
	}

	var headRules []rule.Rule

	// Step 2+3: default MAP (identity carry-through) overridden by
	// CONSTRUCT, suppressed by DELETE.
	for _, n := range rb.Match.Nodes {
		if _, gone := deleted[n.Var]; gone {
			continue
		}
		idTerm := rule.Var(n.Var)
		if to, ok := mapped[n.Var]; ok {
			idTerm = rule.Var(to)
		}
		label := n.Label
		if l, ok := constructedNodes[n.Var]; ok {
			label = l
		}
		headRules = append(headRules, rule.Rule{
			Head:            rule.Atom{Pred: rule.ViewPred("N", viewName), Args: []rule.Term{idTerm, rule.Const(label)}},
			Body:            append([]rule.BodyElem{}, body...),
			Provenance:      viewName,
			Materialization: materializationTag(rb),
		})
	}
	for _, e := range rb.Match.Edges {
		if e.Star {
			continue // a starred edge matches a path: no single edge id is bound to carry through
		}
		if _, gone := deleted[e.Var]; gone {
			continue
		}
		idTerm := rule.Var(e.Var)
		if to, ok := mapped[e.Var]; ok {
			idTerm = rule.Var(to)
		}
		label := e.Label
		if ce, ok := constructedEdges[e.Var]; ok {
			label = ce.Label
		}
		headRules = append(headRules, rule.Rule{
			Head:            rule.Atom{Pred: rule.ViewPred("E", viewName), Args: []rule.Term{idTerm, rule.Var(e.Src), rule.Var(e.Dst), rule.Const(label)}},
			Body:            append([]rule.BodyElem{}, body...),
			Provenance:      viewName,
			Materialization: materializationTag(rb),
		})
	}

	// CONSTRUCT elements whose var is not MATCH-bound need Skolemizing
	// (step 3's "if not bound, require SET SK(...) or synthesize").
	for v, label := range constructedNodes {
		if _, bound := matchVars[v]; bound {
			continue // already handled via default-MAP-with-override above
		}
		idTerm, newBody, err := resolveUnboundVar(v, ruleIdx, rb.Match.Vars(), setVars, arities)
		if err != nil {
			return nil, err
		}
		headRules = append(headRules, rule.Rule{
			Head:       rule.Atom{Pred: rule.ViewPred("N", viewName), Args: []rule.Term{idTerm, rule.Const(label)}},
			Body:       append(append([]rule.BodyElem{}, body...), newBody...),
			Provenance: viewName,
		})
	}
	for v, ce := range constructedEdges {
		if _, bound := matchVars[v]; bound {
			continue
		}
		idTerm, newBody, err := resolveUnboundVar(v, ruleIdx, rb.Match.Vars(), setVars, arities)
		if err != nil {
			return nil, err
		}
		headRules = append(headRules, rule.Rule{
			Head:       rule.Atom{Pred: rule.ViewPred("E", viewName), Args: []rule.Term{idTerm, rule.Var(ce.Src), rule.Var(ce.Dst), rule.Const(ce.Label)}},
			Body:       append(append([]rule.BodyElem{}, body...), newBody...),
			Provenance: viewName,
		})
	}

	// Step 4: ADD — always Skolemized, never MATCH-bound.
	for _, an := range rb.AddNodes {
		idTerm, newBody, err := resolveUnboundVar(an.Var, ruleIdx, rb.Match.Vars(), setVars, arities)
		if err != nil {
			return nil, err
		}
		headRules = append(headRules, rule.Rule{
			Head:       rule.Atom{Pred: rule.ViewPred("N", viewName), Args: []rule.Term{idTerm, rule.Const(an.Label)}},
			Body:       append(append([]rule.BodyElem{}, body...), newBody...),
			Provenance: viewName,
		})
	}
	for _, ae := range rb.AddEdges {
		idTerm, newBody, err := resolveUnboundVar(ae.Var, ruleIdx, rb.Match.Vars(), setVars, arities)
		if err != nil {
			return nil, err
		}
		headRules = append(headRules, rule.Rule{
			Head:       rule.Atom{Pred: rule.ViewPred("E", viewName), Args: []rule.Term{idTerm, rule.Var(ae.Src), rule.Var(ae.Dst), rule.Const(ae.Label)}},
			Body:       append(append([]rule.BodyElem{}, body...), newBody...),
			Provenance: viewName,
		})
	}

	if err := checkSafety(headRules); err != nil {
		return nil, err
	}

	return append(extra, headRules...), nil
}

func materializationTag(rb ast.RuleBlock) string {
	// Whole-rule tagging: a rule block with any explicit construction
	// is treated as a derived (virt-eligible) rule; a pure selection
	// (no CONSTRUCT/ADD) just carries facts through. Either way the
	// tag only matters to hybrid assembly; the view compiler itself
	// always emits complete rules regardless of tag.
	if len(rb.ConstructNodes) == 0 && len(rb.ConstructEdges) == 0 && len(rb.AddNodes) == 0 && len(rb.AddEdges) == 0 {
		return rule.TagMat
	}
	return rule.TagVirt
}

func labelTermFor(label string, fresh *freshNames) rule.Term {
	if label == "" {
		return fresh.next("label")
	}
	return rule.Const(label)
}

func lowerWhere(e ast.Expr) ([]rule.Compare, error) {
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
		return []rule.Compare{{Op: n.Op, Left: left, Right: right}}, nil
	}
	return nil, fmt.Errorf("compiler: unsupported WHERE expression %T", e)
}

func lowerOperand(e ast.Expr) (rule.Term, error) {
	switch n := e.(type) {
	case ast.Ref:
		// a.key lowers to the dotted variable "a.key"; no body atom
		// binds it. The backend resolves such a variable at evaluation
		// time by looking the property up in the NP/EP relation. Here we
		// only need a stable variable name to carry the value through
		// the comparison.
		return rule.Var(n.Var + "." + n.Key), nil
	case ast.Lit:
		return rule.Const(n.Value), nil
	}
	return nil, fmt.Errorf("compiler: unsupported operand %T", e)
}

// resolveUnboundVar produces the id term and any extra body atoms
// needed to bind a CONSTRUCT/ADD variable that MATCH never bound:
// either an explicit "SET v = SK(...)" already lowered into body
// (setVars), or a synthesized Skolem function over every MATCH-bound
// variable, named "__auto_<ruleIdx>_<var>".
func resolveUnboundVar(v string, ruleIdx int, matchVars []string, setVars map[string]struct{}, arities map[string]int) (rule.Term, []rule.BodyElem, error) {
	if _, ok := setVars[v]; ok {
		return rule.Var(v), nil, nil
	}
	fnName := fmt.Sprintf("__auto_%d_%s", ruleIdx, v)
	args := append([]string(nil), matchVars...)
	sort.Strings(args)
	if err := checkArity(arities, fnName, len(args)); err != nil {
		return nil, nil, err
	}
	terms := make([]rule.Term, 0, len(args)+1)
	for _, a := range args {
		terms = append(terms, rule.Var(a))
	}
	terms = append(terms, rule.Var(v))
	return rule.Var(v), []rule.BodyElem{rule.Atom{Pred: rule.SkolemPred(fnName), Args: terms}}, nil
}

func checkArity(arities map[string]int, fnName string, arity int) error {
	if want, ok := arities[fnName]; ok {
		if want != arity {
			return errSkolemArityMismatch(fnName, want, arity)
		}
		return nil
	}
	arities[fnName] = arity
	return nil
}

// checkSafety enforces the safety invariant: every head variable must
// appear positively in the body.
func checkSafety(rules []rule.Rule) error {
	for _, r := range rules {
		bound := make(map[string]struct{})
		for _, b := range r.Body {
			if a, ok := b.(rule.Atom); ok {
				for _, t := range a.Args {
					if vr, ok := t.(rule.Var); ok {
						bound[string(vr)] = struct{}{}
					}
				}
			}
		}
		for _, t := range r.Head.Args {
			vr, ok := t.(rule.Var)
			if !ok {
				continue
			}
			if _, ok := bound[string(vr)]; !ok {
				return errUnsafeRule(fmt.Sprintf("head variable %q of %s is not bound in the rule body", vr, r.Head.Pred))
			}
		}
	}
	return nil
}

// transitiveClosureRules builds the recursive pair for a Kleene-star
// edge pattern: the base case closes over a single labelled edge; the
// inductive case extends an existing TC fact by one more edge.
func transitiveClosureRules(tcPred, edgePred, label, viewName string) []rule.Rule {
	x, y, z := rule.Var("$tcx"), rule.Var("$tcy"), rule.Var("$tcz")
	idIgnore := rule.Var("$tcid")
	return []rule.Rule{
		{
			Head: rule.Atom{Pred: tcPred, Args: []rule.Term{x, y}},
			Body: []rule.BodyElem{
				rule.Atom{Pred: edgePred, Args: []rule.Term{idIgnore, x, y, rule.Const(label)}},
			},
			Provenance:      viewName,
			Materialization: rule.TagVirt,
		},
		{
			Head: rule.Atom{Pred: tcPred, Args: []rule.Term{x, z}},
			Body: []rule.BodyElem{
				rule.Atom{Pred: tcPred, Args: []rule.Term{x, y}},
				rule.Atom{Pred: edgePred, Args: []rule.Term{idIgnore, y, z, rule.Const(label)}},
			},
			Provenance:      viewName,
			Materialization: rule.TagVirt,
		},
	}
}
