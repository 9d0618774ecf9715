package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritamzico/viewgraph/internal/ast"
	"github.com/ritamzico/viewgraph/internal/rule"
	"github.com/ritamzico/viewgraph/internal/skolem"
)

func TestCompile_SelectionView(t *testing.T) {
	v := ast.View{
		Name:   "F",
		Kind:   ast.Virtual,
		Source: "g",
		Rules: []ast.RuleBlock{{
			Match: ast.Pattern{
				Nodes: []ast.PatternNode{{Var: "a", Label: "Person"}, {Var: "b", Label: "Person"}},
				Edges: []ast.PatternEdge{{Var: "x", Src: "a", Dst: "b", Label: "Knows"}},
			},
		}},
	}
	rules, err := Compile(v, skolem.New())
	require.NoError(t, err)

	var nHeads, eHeads int
	for _, r := range rules {
		switch r.Head.Pred {
		case "N_F":
			nHeads++
		case "E_F":
			eHeads++
		}
	}
	assert.Equal(t, 2, nHeads)
	assert.Equal(t, 1, eHeads)
}

func TestCompile_ConstructWithSkolem(t *testing.T) {
	v := ast.View{
		Name:   "D",
		Kind:   ast.Virtual,
		Source: "g",
		Rules: []ast.RuleBlock{{
			Match: ast.Pattern{
				Nodes: []ast.PatternNode{{Var: "a", Label: "Person"}, {Var: "b", Label: "Person"}},
				Edges: []ast.PatternEdge{{Var: "x", Src: "a", Dst: "b", Label: "Knows"}},
			},
			ConstructEdges: []ast.ConstructEdge{{Var: "y", Src: "a", Dst: "b", Label: "Derived"}},
			Sets:           []ast.SkolemSet{{Var: "y", FnName: "d", Args: []string{"x"}}},
		}},
	}
	rules, err := Compile(v, skolem.New())
	require.NoError(t, err)

	found := false
	for _, r := range rules {
		if r.Head.Pred == "E_D" {
			if c, ok := r.Head.Args[0].(rule.Var); ok && c == rule.Var("y") {
				found = true
				hasSkolemAtom := false
				for _, b := range r.Body {
					if a, ok := b.(rule.Atom); ok {
						if _, ok := rule.IsBuiltinSkolem(a.Pred); ok {
							hasSkolemAtom = true
						}
					}
				}
				assert.True(t, hasSkolemAtom, "derived edge rule should bind y via a Skolem builtin atom")
			}
		}
	}
	assert.True(t, found)
}

func TestCompile_StarPatternEmitsTransitiveClosureRules(t *testing.T) {
	v := ast.View{
		Name:   "Reach",
		Kind:   ast.Virtual,
		Source: "g",
		Rules: []ast.RuleBlock{{
			Match: ast.Pattern{
				Nodes: []ast.PatternNode{{Var: "a", Label: "Person"}, {Var: "b", Label: "Person"}},
				Edges: []ast.PatternEdge{{Var: "x", Src: "a", Dst: "b", Label: "Knows", Star: true}},
			},
		}},
	}
	rules, err := Compile(v, skolem.New())
	require.NoError(t, err)

	tcPred := rule.TCPred("Knows", "x")
	var tcRuleCount int
	for _, r := range rules {
		if r.Head.Pred == tcPred {
			tcRuleCount++
		}
	}
	assert.Equal(t, 2, tcRuleCount, "base case + inductive case")
}

func TestCompile_DeleteSuppressesDefaultMap(t *testing.T) {
	v := ast.View{
		Name:   "NoA",
		Kind:   ast.Virtual,
		Source: "g",
		Rules: []ast.RuleBlock{{
			Match: ast.Pattern{
				Nodes: []ast.PatternNode{{Var: "a", Label: "Person"}, {Var: "b", Label: "Person"}},
				Edges: []ast.PatternEdge{{Var: "x", Src: "a", Dst: "b", Label: "Knows"}},
			},
			Deletes: []ast.DeleteSpec{{TargetVar: "a"}},
		}},
	}
	rules, err := Compile(v, skolem.New())
	require.NoError(t, err)

	for _, r := range rules {
		if r.Head.Pred == "N_NoA" {
			idv, ok := r.Head.Args[0].(rule.Var)
			require.True(t, ok)
			assert.NotEqual(t, rule.Var("a"), idv)
		}
	}
}

func TestCompile_SkolemArityMismatchRejected(t *testing.T) {
	v := ast.View{
		Name:   "Bad",
		Kind:   ast.Virtual,
		Source: "g",
		Rules: []ast.RuleBlock{
			{
				Match:          ast.Pattern{Nodes: []ast.PatternNode{{Var: "a", Label: "Person"}}},
				ConstructNodes: []ast.ConstructNode{{Var: "y1", Label: "Shadow"}},
				Sets:           []ast.SkolemSet{{Var: "y1", FnName: "mk", Args: []string{"a"}}},
			},
			{
				Match:          ast.Pattern{Nodes: []ast.PatternNode{{Var: "a", Label: "Person"}, {Var: "b", Label: "Person"}}},
				ConstructNodes: []ast.ConstructNode{{Var: "y2", Label: "Shadow"}},
				Sets:           []ast.SkolemSet{{Var: "y2", FnName: "mk", Args: []string{"a", "b"}}},
			},
		},
	}
	_, err := Compile(v, skolem.New())
	require.Error(t, err)
	var ce Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "SkolemArityMismatch", ce.Kind)
}
