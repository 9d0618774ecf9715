package typecheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritamzico/viewgraph/internal/ast"
	"github.com/ritamzico/viewgraph/internal/graph"
)

func knowsSchema(t *testing.T) *graph.Schema {
	t.Helper()
	s := graph.NewSchema()
	require.NoError(t, s.AddNodeLabel("Person"))
	require.NoError(t, s.AddNodeLabel("Company"))
	require.NoError(t, s.AddEdgeLabel("Knows", "Person", "Person"))
	return s
}

func TestCheck_SatisfiablePattern(t *testing.T) {
	pat := ast.Pattern{
		Nodes: []ast.PatternNode{{Var: "a", Label: "Person"}, {Var: "b", Label: "Person"}},
		Edges: []ast.PatternEdge{{Var: "x", Src: "a", Dst: "b", Label: "Knows"}},
	}
	ok, err := Check(pat, knowsSchema(t), Policy{})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheck_UnsatisfiableEmitsAsIsByDefault(t *testing.T) {
	pat := ast.Pattern{
		Nodes: []ast.PatternNode{{Var: "a", Label: "Company"}, {Var: "b", Label: "Person"}},
		Edges: []ast.PatternEdge{{Var: "x", Src: "a", Dst: "b", Label: "Knows"}},
	}
	ok, err := Check(pat, knowsSchema(t), Policy{})
	require.NoError(t, err)
	assert.True(t, ok, "with both options off, unsatisfiable patterns are emitted as-is")
}

func TestCheck_TypeCheckFailsOnUnsatisfiable(t *testing.T) {
	pat := ast.Pattern{
		Nodes: []ast.PatternNode{{Var: "a", Label: "Company"}, {Var: "b", Label: "Person"}},
		Edges: []ast.PatternEdge{{Var: "x", Src: "a", Dst: "b", Label: "Knows"}},
	}
	_, err := Check(pat, knowsSchema(t), Policy{TypeCheck: true})
	require.Error(t, err)
	var te Error
	require.ErrorAs(t, err, &te)
}

func TestCheck_PruneQueryDropsSilently(t *testing.T) {
	pat := ast.Pattern{
		Nodes: []ast.PatternNode{{Var: "a", Label: "Company"}, {Var: "b", Label: "Person"}},
		Edges: []ast.PatternEdge{{Var: "x", Src: "a", Dst: "b", Label: "Knows"}},
	}
	ok, err := Check(pat, knowsSchema(t), Policy{PruneQuery: true})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheck_TypeCheckPrecedesPruning(t *testing.T) {
	pat := ast.Pattern{
		Nodes: []ast.PatternNode{{Var: "a", Label: "Company"}, {Var: "b", Label: "Person"}},
		Edges: []ast.PatternEdge{{Var: "x", Src: "a", Dst: "b", Label: "Knows"}},
	}
	_, err := Check(pat, knowsSchema(t), Policy{TypeCheck: true, PruneQuery: true})
	require.Error(t, err, "TypeError takes precedence over pruning per spec.md's tie-break rule")
}
