package assembler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritamzico/viewgraph/internal/rule"
)

func TestAssemble_LinearDependencyOrder(t *testing.T) {
	rules := []rule.Rule{
		{Head: rule.Atom{Pred: "N_B"}, Body: []rule.BodyElem{rule.Atom{Pred: "N_A"}}},
		{Head: rule.Atom{Pred: "N_A"}, Body: []rule.BodyElem{rule.Atom{Pred: "N"}}},
	}
	prog, err := Assemble(rules)
	require.NoError(t, err)

	posOf := make(map[string]int)
	for i, r := range prog.Rules {
		posOf[r.Head.Pred] = i
	}
	assert.Less(t, posOf["N_A"], posOf["N_B"], "N_A must be assembled before N_B, which depends on it")
}

func TestAssemble_StarRecursionAllowed(t *testing.T) {
	rules := []rule.Rule{
		{Head: rule.Atom{Pred: "TC_Knows_x"}, Body: []rule.BodyElem{rule.Atom{Pred: "E"}}},
		{Head: rule.Atom{Pred: "TC_Knows_x"}, Body: []rule.BodyElem{rule.Atom{Pred: "TC_Knows_x"}, rule.Atom{Pred: "E"}}},
	}
	_, err := Assemble(rules)
	require.NoError(t, err, "positive recursion through a TC predicate is the only legal recursion")
}

func TestAssemble_NonStarCycleRejected(t *testing.T) {
	rules := []rule.Rule{
		{Head: rule.Atom{Pred: "N_A"}, Body: []rule.BodyElem{rule.Atom{Pred: "N_B"}}},
		{Head: rule.Atom{Pred: "N_B"}, Body: []rule.BodyElem{rule.Atom{Pred: "N_A"}}},
	}
	_, err := Assemble(rules)
	require.Error(t, err)
	var ae Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "CyclicViewDependency", ae.Kind)
}

func TestAssemble_NegationInCycleRejected(t *testing.T) {
	rules := []rule.Rule{
		{Head: rule.Atom{Pred: "TC_Knows_x"}, Body: []rule.BodyElem{rule.Atom{Pred: "E"}}},
		{Head: rule.Atom{Pred: "TC_Knows_x"}, Body: []rule.BodyElem{rule.Neg{Atom: rule.Atom{Pred: "TC_Knows_x"}}}},
	}
	_, err := Assemble(rules)
	require.Error(t, err)
	var ae Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "UnstratifiedNegation", ae.Kind)
}

func TestAssemble_BuiltinSkolemAtomsIgnoredByGraph(t *testing.T) {
	rules := []rule.Rule{
		{Head: rule.Atom{Pred: "N_D"}, Body: []rule.BodyElem{
			rule.Atom{Pred: "N"},
			rule.Atom{Pred: rule.SkolemPred("d"), Args: []rule.Term{rule.Var("x"), rule.Var("y")}},
		}},
	}
	prog, err := Assemble(rules)
	require.NoError(t, err)
	require.Len(t, prog.Rules, 1)
}
