package ast

// ViewKind is one of Virtual, Materialized, Hybrid.
type ViewKind int

const (
	Virtual ViewKind = iota
	Materialized
	Hybrid
)

func (k ViewKind) String() string {
	switch k {
	case Virtual:
		return "virtual"
	case Materialized:
		return "materialized"
	case Hybrid:
		return "hybrid"
	default:
		return "unknown"
	}
}

// Mapping is an explicit "MAP from TO" override of the default
// identity carry-through a rule block gives every MATCH-bound
// variable.
type Mapping struct {
	From string
	To   string
}

// ConstructNode is one CONSTRUCT node term: (var:newLabel).
type ConstructNode struct {
	Var   string
	Label string
}

// ConstructEdge is one CONSTRUCT edge term: (src)-[var:newLabel]->(dst).
type ConstructEdge struct {
	Var   string
	Src   string
	Dst   string
	Label string
}

// AddNode is an ADD node term — like ConstructNode but never bound by
// MATCH, so it must be Skolemized.
type AddNode struct {
	Var   string
	Label string
}

// AddEdge is an ADD edge term.
type AddEdge struct {
	Var   string
	Src   string
	Dst   string
	Label string
}

// DeleteSpec suppresses the default-MAP output fact for TargetVar. The
// variable remains usable elsewhere in the rule body.
type DeleteSpec struct {
	TargetVar string
}

// SkolemSet is a "SET var = SK(fn, args...)" clause, explicitly naming
// the Skolem function used to mint var's identity.
type SkolemSet struct {
	Var    string
	FnName string
	Args   []string
}

// RuleBlock is one MATCH...CONSTRUCT...ADD...DELETE...SET block; a view
// may UNION several of these.
type RuleBlock struct {
	Match          Pattern
	Where          Expr
	Mappings       []Mapping
	ConstructNodes []ConstructNode
	ConstructEdges []ConstructEdge
	AddNodes       []AddNode
	AddEdges       []AddEdge
	Deletes        []DeleteSpec
	Sets           []SkolemSet
}

// View is a named derived graph: CREATE (kind) VIEW name ON source
// [WITH DEFAULT MAP] (ruleBlock (UNION ruleBlock)*).
//
// DefaultMap records whether the optional "WITH DEFAULT MAP" clause
// was written, but the compiler's identity carry-through (every
// MATCH-bound variable not DELETEd or MAPped produces an output fact)
// always applies regardless of this flag — the clause is accepted as
// an explicit-but-redundant way of spelling out behavior the view
// compiler already gives every rule block. Kept on the AST so a
// round-tripped view definition preserves exactly what was written.
type View struct {
	Name       string
	Kind       ViewKind
	Source     string
	DefaultMap bool
	Rules      []RuleBlock
}
