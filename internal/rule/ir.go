// Package rule is the normalized Rule IR: the backend-independent
// Datalog program the core compiles views and queries down to.
// Term/Atom/Rule are string-keyed rather than pointer-identity
// variables, matching the string-keyed variables the pattern language
// itself produces.
package rule

import (
	"fmt"
	"strings"

	"github.com/ritamzico/viewgraph/internal/graph"
)

// Base predicate names, over the base graph g.
const (
	BaseN  = "N"
	BaseE  = "E"
	BaseNP = "NP"
	BaseEP = "EP"
)

// ViewPred names a per-view predicate: N_v, E_v, NP_v, EP_v.
func ViewPred(kind, view string) string {
	return kind + "_" + view
}

// TCPred names the auxiliary transitive-closure predicate for a
// starred pattern edge: TC_<label>_<edgeVar>.
func TCPred(label, edgeVar string) string {
	return fmt.Sprintf("TC_%s_%s", label, edgeVar)
}

// BuiltinSkolemPrefix tags a predicate as a built-in function
// application rather than a stored or derived relation: a rule body
// atom SkolemPred(fn)(arg1, ..., argN, out) asks the evaluator to bind
// out to registry.Intern(fn, [arg1..argN]) for each binding of the
// preceding args, rather than looking up stored facts. This is how the
// view compiler lowers "SET v = SK(fn, args...)" into the pure Datalog
// IR without smuggling function terms into Atom itself. The program
// assembler must recognize this prefix and exclude such predicates
// from dependency-graph/stratification analysis — they have no
// defining Rule and are never recursive.
const BuiltinSkolemPrefix = "__skolem$"

func SkolemPred(fnName string) string {
	return BuiltinSkolemPrefix + fnName
}

// IsBuiltinSkolem reports whether pred names a Skolem builtin, and if
// so, the function name that was encoded into it.
func IsBuiltinSkolem(pred string) (fnName string, ok bool) {
	if !strings.HasPrefix(pred, BuiltinSkolemPrefix) {
		return "", false
	}
	return strings.TrimPrefix(pred, BuiltinSkolemPrefix), true
}

// Term is a rule argument: a Var (bound by unification with the body)
// or a Const (a literal id/label/value).
type Term interface {
	isTerm()
	String() string
}

type Var string

func (Var) isTerm()          {}
func (v Var) String() string { return string(v) }

type Const string

func (Const) isTerm()          {}
func (c Const) String() string { return string(c) }

// Atom is Pred(args...), e.g. N(x, "Person") or E_Derived(y, a, b, "Derived").
type Atom struct {
	Pred string
	Args []Term
}

func (a Atom) String() string {
	parts := make([]string, len(a.Args))
	for i, t := range a.Args {
		parts[i] = t.String()
	}
	return fmt.Sprintf("%s(%s)", a.Pred, strings.Join(parts, ", "))
}

// Neg wraps an Atom used as a negated body literal, NOT Pred(args...).
// Unused by the view compiler itself (view rules have no negation),
// but part of the IR so the assembler's stratification check and a
// future negated WHERE extension have somewhere to live.
type Neg struct {
	Atom Atom
}

func (n Neg) String() string { return "!" + n.Atom.String() }

// Compare is a body comparison literal produced from a rule's WHERE
// clause, e.g. a.age > "25" lowered to Compare{>, Var("a.age"), Const("25")}.
type Compare struct {
	Op    graph.CompareOp
	Left  Term
	Right Term
}

func (c Compare) String() string {
	return fmt.Sprintf("%s %s %s", c.Left, c.Op, c.Right)
}

// BodyElem is one rule-body literal: a positive Atom, a Neg, or a
// Compare.
type BodyElem interface {
	String() string
}

// Rule is one normalized Datalog rule: Head :- Body. Provenance names
// the view (or "query") the rule was compiled from, for diagnostics
// (the `program` command).
type Rule struct {
	Head       Atom
	Body       []BodyElem
	Provenance string
	// Materialization tags this rule mat (always stored) or virt
	// (recomputed at query time); used by hybrid view assembly.
	Materialization string
}

const (
	TagMat  = "mat"
	TagVirt = "virt"
)

func (r Rule) String() string {
	parts := make([]string, len(r.Body))
	for i, b := range r.Body {
		parts[i] = b.String()
	}
	return fmt.Sprintf("%s :- %s", r.Head, strings.Join(parts, ", "))
}

// Program is an ordered, stratified set of rules ready for a Backend
// Adapter.
type Program struct {
	Rules  []Rule          // in stratum-topological order
	Strata [][]string      // Strata[i] = predicates in stratum i
}

// PredicatesOf groups the program's rules by head predicate: each
// predicate with at least one rule maps to its rules, in program order.
func (p Program) PredicatesOf() map[string][]Rule {
	out := make(map[string][]Rule)
	for _, r := range p.Rules {
		out[r.Head.Pred] = append(out[r.Head.Pred], r)
	}
	return out
}
