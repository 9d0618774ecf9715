// Package assembler implements the Program Assembler: builds the
// predicate dependency graph for a rule set, computes strongly
// connected components with Tarjan's algorithm, checks stratified
// negation, and emits the final rule.Program in SCC-topological order.
//
// The dependency graph is an arena of predicate nodes indexed by name,
// with edges as index pairs — the same adjacency-list shape used
// elsewhere in this repo for node/edge graphs, generalized here from
// entity ids to predicate names.
package assembler

import (
	"fmt"
	"sort"

	"github.com/ritamzico/viewgraph/internal/rule"
)

// Error is either an UnstratifiedNegation or a CyclicViewDependency,
// whichever the assembler detects.
type Error struct {
	Kind    string
	Message string
}

func (e Error) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Message) }

// Assemble builds the dependency graph over predicates (edge q -> p if
// a rule's head is q and p appears, positively or negated, in its
// body), computes SCCs, checks each is negation-free, and returns the
// rules re-ordered so that every predicate's defining rules appear
// after the predicates they depend on (except within a single
// recursive SCC, which is emitted together).
func Assemble(rules []rule.Rule) (*rule.Program, error) {
	g := buildGraph(rules)
	sccs := tarjanSCC(g)

	for _, scc := range sccs {
		if len(scc) == 1 && !g.hasSelfLoop(scc[0]) {
			continue // trivial SCC, nothing to check
		}
		if sccHasNegation(scc, g) {
			return nil, Error{Kind: "UnstratifiedNegation", Message: fmt.Sprintf(
				"predicates %v form a cycle that includes a negated dependency", scc)}
		}
		if sccIsDefinitionalViewCycle(scc, rules) {
			return nil, Error{Kind: "CyclicViewDependency", Message: fmt.Sprintf(
				"views are mutually defined in terms of each other through %v with no Kleene-star recursion to justify the cycle", scc)}
		}
	}

	// Tarjan's algorithm, run over the "head depends on body predicate"
	// edges below, finishes a predicate's SCC only once everything it
	// depends on has already finished — so the result list comes out
	// exactly in evaluation order (dependencies before dependents)
	// with no reversal needed.
	ordered := orderRules(rules, sccs)

	strata := make([][]string, 0, len(sccs))
	strata = append(strata, sccs...)

	return &rule.Program{Rules: ordered, Strata: strata}, nil
}

type graph struct {
	nodes map[string]struct{}
	edges map[string]map[string]struct{} // p -> set of q such that p depends on q (p's rule body uses q)
	neg   map[string]map[string]struct{} // p -> q where the dependency is through negation
}

func buildGraph(rules []rule.Rule) *graph {
	g := &graph{
		nodes: make(map[string]struct{}),
		edges: make(map[string]map[string]struct{}),
		neg:   make(map[string]map[string]struct{}),
	}
	addNode := func(p string) {
		g.nodes[p] = struct{}{}
		if _, ok := g.edges[p]; !ok {
			g.edges[p] = make(map[string]struct{})
		}
		if _, ok := g.neg[p]; !ok {
			g.neg[p] = make(map[string]struct{})
		}
	}
	addEdge := func(from, to string, negated bool) {
		addNode(from)
		addNode(to)
		g.edges[from][to] = struct{}{}
		if negated {
			g.neg[from][to] = struct{}{}
		}
	}
	for _, r := range rules {
		head := r.Head.Pred
		addNode(head)
		for _, b := range r.Body {
			switch lit := b.(type) {
			case rule.Atom:
				if _, ok := rule.IsBuiltinSkolem(lit.Pred); ok {
					continue // builtins are not relations the assembler tracks
				}
				addEdge(head, lit.Pred, false)
			case rule.Neg:
				addEdge(head, lit.Atom.Pred, true)
			}
		}
	}
	return g
}

func (g *graph) hasSelfLoop(p string) bool {
	_, ok := g.edges[p][p]
	return ok
}

// tarjanSCC returns strongly connected components in evaluation order:
// since a component only finishes once every predicate it depends on
// has already finished, a component earlier in the result is a
// dependency of components that appear at or after it, never the
// other way around. Node iteration is sorted so output is
// deterministic across runs with the same input, rather than varying
// with Go's randomized map iteration order.
func tarjanSCC(g *graph) [][]string {
	index := 0
	indices := make(map[string]int)
	lowlink := make(map[string]int)
	onStack := make(map[string]bool)
	var stack []string
	var result [][]string

	nodeNames := make([]string, 0, len(g.nodes))
	for n := range g.nodes {
		nodeNames = append(nodeNames, n)
	}
	sort.Strings(nodeNames)

	var strongconnect func(v string)
	strongconnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		successors := make([]string, 0, len(g.edges[v]))
		for w := range g.edges[v] {
			successors = append(successors, w)
		}
		sort.Strings(successors)

		for _, w := range successors {
			if _, seen := indices[w]; !seen {
				strongconnect(w)
				if lowlink[w] < lowlink[v] {
					lowlink[v] = lowlink[w]
				}
			} else if onStack[w] {
				if indices[w] < lowlink[v] {
					lowlink[v] = indices[w]
				}
			}
		}

		if lowlink[v] == indices[v] {
			var comp []string
			for {
				n := len(stack) - 1
				w := stack[n]
				stack = stack[:n]
				onStack[w] = false
				comp = append(comp, w)
				if w == v {
					break
				}
			}
			sort.Strings(comp)
			result = append(result, comp)
		}
	}

	for _, n := range nodeNames {
		if _, seen := indices[n]; !seen {
			strongconnect(n)
		}
	}
	return result
}

func sccHasNegation(scc []string, g *graph) bool {
	members := make(map[string]struct{}, len(scc))
	for _, n := range scc {
		members[n] = struct{}{}
	}
	for _, p := range scc {
		for q := range g.neg[p] {
			if _, inSCC := members[q]; inSCC {
				return true
			}
		}
	}
	return false
}

// sccIsDefinitionalViewCycle distinguishes a legal recursive SCC (one
// whose only cyclic edges run through a TC_<label>_<var> predicate —
// positive recursion through Kleene-star predicates is the only legal
// form of recursion) from an illegal one (view rules mutually
// referencing each other with no Kleene-star predicate anywhere in the
// component).
func sccIsDefinitionalViewCycle(scc []string, rules []rule.Rule) bool {
	if len(scc) < 2 {
		return false // a single self-referential predicate is always a TC predicate in this IR
	}
	for _, p := range scc {
		if _, ok := isTCPredicate(p); ok {
			return false
		}
	}
	return true
}

func isTCPredicate(p string) (string, bool) {
	if len(p) > 3 && p[:3] == "TC_" {
		return p, true
	}
	return "", false
}

// orderRules emits rules grouped by the stratum (SCC) their head
// predicate belongs to, in strata order, and stable within a stratum
// by original input order.
func orderRules(rules []rule.Rule, strata [][]string) []rule.Rule {
	stratumOf := make(map[string]int)
	for i, s := range strata {
		for _, p := range s {
			stratumOf[p] = i
		}
	}
	ordered := append([]rule.Rule(nil), rules...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return stratumOf[ordered[i].Head.Pred] < stratumOf[ordered[j].Head.Pred]
	})
	return ordered
}
