package skolem

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ritamzico/viewgraph/internal/graph"
)

func TestIntern_Deterministic(t *testing.T) {
	r := New()
	id1 := r.Intern("personKey", []string{"42", "Person"})
	id2 := r.Intern("personKey", []string{"42", "Person"})
	assert.Equal(t, id1, id2)
}

func TestIntern_DistinctArgsDistinctIDs(t *testing.T) {
	r := New()
	id1 := r.Intern("personKey", []string{"42"})
	id2 := r.Intern("personKey", []string{"43"})
	assert.NotEqual(t, id1, id2)
}

func TestIntern_ReservedIDSpace(t *testing.T) {
	r := New()
	id := r.Intern("f", []string{"x"})
	assert.True(t, graph.IsSkolemID(id))
}

func TestIntern_FreshRegistrySameResult(t *testing.T) {
	r1 := New()
	r2 := New()
	id1 := r1.Intern("companyOf", []string{"acme", "2024"})
	id2 := r2.Intern("companyOf", []string{"acme", "2024"})
	assert.Equal(t, id1, id2, "Skolem ids must not depend on registry instance or call order")
}

func TestLookup_RoundTrips(t *testing.T) {
	r := New()
	id := r.Intern("pairKey", []string{"a", "b"})
	fn, args, ok := r.Lookup(id)
	assert.True(t, ok)
	assert.Equal(t, "pairKey", fn)
	assert.Equal(t, []string{"a", "b"}, args)
}

func TestSnapshot_SortedByID(t *testing.T) {
	r := New()
	r.Intern("f", []string{"1"})
	r.Intern("f", []string{"2"})
	r.Intern("f", []string{"3"})
	snap := r.Snapshot()
	assert.Len(t, snap, 3)
	for i := 1; i < len(snap); i++ {
		assert.Less(t, snap[i-1].ID, snap[i].ID)
	}
}
