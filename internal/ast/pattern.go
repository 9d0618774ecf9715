package ast

// PatternNode is one pattern-node term, e.g. (a:Person) or (b). Var
// names the local pattern variable; Label is empty when unconstrained.
type PatternNode struct {
	Var   string
	Label string
}

// PatternEdge is one pattern-edge term, e.g. (a)-[x:Knows]->(b) or, with
// Star set, (a)-[x:Knows*]->(b) (transitive closure).
type PatternEdge struct {
	Var    string
	Src    string // source pattern-node var
	Dst    string // destination pattern-node var
	Label  string
	Star   bool
}

// Pattern is a connected multigraph of pattern nodes and edges, each
// carrying a local variable and an optional label constraint. Pattern
// terms carry no property constraints; property conditions are
// expressed in WHERE.
type Pattern struct {
	Nodes []PatternNode
	Edges []PatternEdge
}

// Vars returns every pattern variable bound by MATCH (nodes and edges).
func (p Pattern) Vars() []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(v string) {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	for _, n := range p.Nodes {
		add(n.Var)
	}
	for _, e := range p.Edges {
		add(e.Var)
	}
	return out
}

// NodeLabel returns the label constraint for a pattern variable, if any.
func (p Pattern) NodeLabel(v string) (string, bool) {
	for _, n := range p.Nodes {
		if n.Var == v {
			return n.Label, n.Label != ""
		}
	}
	return "", false
}
