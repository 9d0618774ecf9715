package backend

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritamzico/viewgraph/internal/graph"
	"github.com/ritamzico/viewgraph/internal/rule"
	"github.com/ritamzico/viewgraph/internal/skolem"
)

func sortedTuples(ts []Tuple) []Tuple {
	out := append([]Tuple(nil), ts...)
	sort.Slice(out, func(i, j int) bool { return tupleKey(out[i]) < tupleKey(out[j]) })
	return out
}

func seedPersonGraph(t *testing.T, h Handle, b Backend) {
	t.Helper()
	require.NoError(t, b.InsertFacts(h, rule.BaseN, []Tuple{
		{"1", "Person"}, {"2", "Person"}, {"3", "Person"},
	}))
	require.NoError(t, b.InsertFacts(h, rule.BaseE, []Tuple{
		{"10", "1", "2", "Knows"},
		{"11", "2", "3", "Knows"},
	}))
	require.NoError(t, b.InsertFacts(h, rule.BaseNP, []Tuple{
		{"1", "age", "30"},
		{"2", "age", "17"},
		{"3", "age", "40"},
	}))
}

// TestMemoryBackend_BasicSelection exercises a virtual-view-style
// program that selects adult Persons via a WHERE age comparison,
// spec.md §8's "Basic selection" scenario.
func TestMemoryBackend_BasicSelection(t *testing.T) {
	reg := skolem.New()
	b := NewMemoryBackend(reg)
	h, err := b.Open(Config{})
	require.NoError(t, err)
	seedPersonGraph(t, h, b)

	prog := &rule.Program{
		Rules: []rule.Rule{
			{
				Head: rule.Atom{Pred: "N_Adults", Args: []rule.Term{rule.Var("x"), rule.Const("Person")}},
				Body: []rule.BodyElem{
					rule.Atom{Pred: rule.BaseN, Args: []rule.Term{rule.Var("x"), rule.Const("Person")}},
					rule.Compare{Op: graph.OpGreaterEq, Left: rule.Var("x.age"), Right: rule.Const("18")},
				},
			},
		},
		Strata: [][]string{{"N_Adults"}},
	}

	it, err := b.Evaluate(context.Background(), h, prog, "N_Adults")
	require.NoError(t, err)
	var got []Tuple
	for {
		tup, ok, err := it.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, tup)
	}
	assert.Equal(t, []Tuple{{"1", "Person"}, {"3", "Person"}}, sortedTuples(got))
}

// TestMemoryBackend_SkolemTransformIsDeterministic exercises a
// CONSTRUCT-style rule that mints a synthetic node via a Skolem
// function, confirming re-evaluating the same program from scratch
// produces the same id (spec.md §4.4's determinism requirement).
func TestMemoryBackend_SkolemTransformIsDeterministic(t *testing.T) {
	prog := &rule.Program{
		Rules: []rule.Rule{
			{
				Head: rule.Atom{Pred: "N_Pair", Args: []rule.Term{rule.Var("z"), rule.Const("Pair")}},
				Body: []rule.BodyElem{
					rule.Atom{Pred: rule.BaseE, Args: []rule.Term{rule.Var("e"), rule.Var("x"), rule.Var("y"), rule.Const("Knows")}},
					rule.Atom{Pred: rule.SkolemPred("pairOf"), Args: []rule.Term{rule.Var("x"), rule.Var("y"), rule.Var("z")}},
				},
			},
		},
		Strata: [][]string{{"N_Pair"}},
	}

	run := func() []Tuple {
		reg := skolem.New()
		b := NewMemoryBackend(reg)
		h, err := b.Open(Config{})
		require.NoError(t, err)
		seedPersonGraph(t, h, b)
		it, err := b.Evaluate(context.Background(), h, prog, "N_Pair")
		require.NoError(t, err)
		var out []Tuple
		for {
			tup, ok, err := it.Next(context.Background())
			require.NoError(t, err)
			if !ok {
				break
			}
			out = append(out, tup)
		}
		return sortedTuples(out)
	}

	first := run()
	second := run()
	require.Len(t, first, 2)
	assert.Equal(t, first, second)
}

// TestMemoryBackend_TransitiveClosure exercises the auxiliary
// TC_<label>_<var> rules the View Compiler emits for a starred Knows*
// pattern (spec.md §4.8).
func TestMemoryBackend_TransitiveClosure(t *testing.T) {
	reg := skolem.New()
	b := NewMemoryBackend(reg)
	h, err := b.Open(Config{})
	require.NoError(t, err)
	seedPersonGraph(t, h, b)

	tc := "TC_Knows_e"
	prog := &rule.Program{
		Rules: []rule.Rule{
			{
				Head: rule.Atom{Pred: tc, Args: []rule.Term{rule.Var("a"), rule.Var("b")}},
				Body: []rule.BodyElem{
					rule.Atom{Pred: rule.BaseE, Args: []rule.Term{rule.Var("_e"), rule.Var("a"), rule.Var("b"), rule.Const("Knows")}},
				},
			},
			{
				Head: rule.Atom{Pred: tc, Args: []rule.Term{rule.Var("a"), rule.Var("c")}},
				Body: []rule.BodyElem{
					rule.Atom{Pred: tc, Args: []rule.Term{rule.Var("a"), rule.Var("b")}},
					rule.Atom{Pred: rule.BaseE, Args: []rule.Term{rule.Var("_e2"), rule.Var("b"), rule.Var("c"), rule.Const("Knows")}},
				},
			},
		},
		Strata: [][]string{{tc}},
	}

	it, err := b.Evaluate(context.Background(), h, prog, tc)
	require.NoError(t, err)
	var got []Tuple
	for {
		tup, ok, err := it.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, tup)
	}
	assert.Equal(t, []Tuple{{"1", "2"}, {"1", "3"}, {"2", "3"}}, sortedTuples(got))
}

// TestMemoryBackend_ViewOnView chains a second view's rules over the
// first view's derived N_Adults predicate, confirming the evaluator
// does not require a view's source to be the base graph.
func TestMemoryBackend_ViewOnView(t *testing.T) {
	reg := skolem.New()
	b := NewMemoryBackend(reg)
	h, err := b.Open(Config{})
	require.NoError(t, err)
	seedPersonGraph(t, h, b)

	prog := &rule.Program{
		Rules: []rule.Rule{
			{
				Head: rule.Atom{Pred: "N_Adults", Args: []rule.Term{rule.Var("x"), rule.Const("Person")}},
				Body: []rule.BodyElem{
					rule.Atom{Pred: rule.BaseN, Args: []rule.Term{rule.Var("x"), rule.Const("Person")}},
					rule.Compare{Op: graph.OpGreaterEq, Left: rule.Var("x.age"), Right: rule.Const("18")},
				},
			},
			{
				Head: rule.Atom{Pred: "N_OldAdults", Args: []rule.Term{rule.Var("x"), rule.Const("Person")}},
				Body: []rule.BodyElem{
					rule.Atom{Pred: "N_Adults", Args: []rule.Term{rule.Var("x"), rule.Const("Person")}},
					rule.Compare{Op: graph.OpGreaterEq, Left: rule.Var("x.age"), Right: rule.Const("35")},
				},
			},
		},
		Strata: [][]string{{"N_Adults"}, {"N_OldAdults"}},
	}

	it, err := b.Evaluate(context.Background(), h, prog, "N_OldAdults")
	require.NoError(t, err)
	var got []Tuple
	for {
		tup, ok, err := it.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, tup)
	}
	assert.Equal(t, []Tuple{{"3", "Person"}}, sortedTuples(got))
}

// TestMemoryBackend_CancelledContext exercises the cooperative
// cancellation spec.md §5 requires between stratum fixpoint steps.
func TestMemoryBackend_CancelledContext(t *testing.T) {
	reg := skolem.New()
	b := NewMemoryBackend(reg)
	h, err := b.Open(Config{})
	require.NoError(t, err)
	seedPersonGraph(t, h, b)

	prog := &rule.Program{
		Rules: []rule.Rule{
			{
				Head: rule.Atom{Pred: "N_All", Args: []rule.Term{rule.Var("x"), rule.Var("l")}},
				Body: []rule.BodyElem{rule.Atom{Pred: rule.BaseN, Args: []rule.Term{rule.Var("x"), rule.Var("l")}}},
			},
		},
		Strata: [][]string{{"N_All"}},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = b.Evaluate(ctx, h, prog, "N_All")
	require.Error(t, err)
	var backendErr Error
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, "Cancelled", backendErr.Kind)
}

func TestBadgerBackend_PersistsAcrossReopen(t *testing.T) {
	reg := skolem.New()
	b := NewBadgerBackend(reg)
	cfg := Config{"data_dir": t.TempDir()}

	h, err := b.Open(cfg)
	require.NoError(t, err)
	seedPersonGraph(t, h, b)

	prog := &rule.Program{
		Rules: []rule.Rule{
			{
				Head: rule.Atom{Pred: "N_Adults", Args: []rule.Term{rule.Var("x"), rule.Const("Person")}},
				Body: []rule.BodyElem{
					rule.Atom{Pred: rule.BaseN, Args: []rule.Term{rule.Var("x"), rule.Const("Person")}},
					rule.Compare{Op: graph.OpGreaterEq, Left: rule.Var("x.age"), Right: rule.Const("18")},
				},
			},
		},
		Strata: [][]string{{"N_Adults"}},
	}
	require.NoError(t, b.Materialize(context.Background(), h, prog, "N_Adults"))
	require.NoError(t, b.Close(h))

	// Reopen against the same data_dir with no InsertFacts/Materialize
	// calls: loadAll must repopulate N_Adults purely from what Badger
	// persisted, confirming materialized facts survive past the
	// handle's lifetime per spec.md §6's "Persisted state".
	h2, err := b.Open(cfg)
	require.NoError(t, err)
	defer b.Close(h2)

	bh2, err := asBadgerHandle(h2)
	require.NoError(t, err)
	assert.Equal(t, []Tuple{{"1", "Person"}, {"3", "Person"}}, sortedTuples(bh2.mem.rel.all("N_Adults")))
}
