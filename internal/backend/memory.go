package backend

import (
	"context"
	"fmt"

	"github.com/ritamzico/viewgraph/internal/graph"
	"github.com/ritamzico/viewgraph/internal/rule"
	"github.com/ritamzico/viewgraph/internal/skolem"
)

// MemoryBackend is the reference in-process Backend Adapter: a
// naive-iteration Datalog evaluator over in-memory relations, driven
// stratum by stratum using the stratification the program assembler
// already computed.
type MemoryBackend struct {
	Registry *skolem.Registry
}

func NewMemoryBackend(reg *skolem.Registry) *MemoryBackend {
	return &MemoryBackend{Registry: reg}
}

type memHandle struct {
	rel    *relations
	schema *graph.Schema
}

func (*memHandle) isHandle() {}

func (b *MemoryBackend) Open(cfg Config) (Handle, error) {
	return &memHandle{rel: newRelations()}, nil
}

func (b *MemoryBackend) Close(h Handle) error {
	mh, err := asMemHandle(h)
	if err != nil {
		return err
	}
	mh.rel = nil
	return nil
}

func (b *MemoryBackend) ApplySchema(h Handle, schema *graph.Schema) error {
	mh, err := asMemHandle(h)
	if err != nil {
		return err
	}
	mh.schema = schema
	return nil
}

func (b *MemoryBackend) InsertFacts(h Handle, relName string, rows []Tuple) error {
	mh, err := asMemHandle(h)
	if err != nil {
		return err
	}
	for _, row := range rows {
		mh.rel.add(relName, row)
	}
	return nil
}

func (b *MemoryBackend) Materialize(ctx context.Context, h Handle, prog *rule.Program, predicate string) error {
	mh, err := asMemHandle(h)
	if err != nil {
		return err
	}
	// Materializing a predicate just means running the program to
	// fixpoint and leaving its derived facts in mh.rel — there is no
	// separate "goal" wrapper rule for a materialize request the way
	// evaluate needs Ans, since the predicate itself is already a
	// concrete, named relation (N_v, E_v, ...).
	withGoal := &rule.Program{Rules: prog.Rules, Strata: prog.Strata}
	if _, err := evalProgram(ctx, withGoal, mh.rel, b.Registry); err != nil {
		return err
	}
	if len(mh.rel.all(predicate)) == 0 && !hasRuleFor(prog, predicate) {
		return errBackend("materialize: predicate %q has no defining rule in the given program", predicate)
	}
	return nil
}

func (b *MemoryBackend) Evaluate(ctx context.Context, h Handle, prog *rule.Program, goalPredicate string) (TupleIterator, error) {
	mh, err := asMemHandle(h)
	if err != nil {
		return nil, err
	}
	tuples, err := evalProgram(ctx, prog, mh.rel, b.Registry)
	if err != nil {
		return nil, err
	}
	if goalPredicate != "Ans" {
		tuples = mh.rel.all(goalPredicate)
	}
	return &sliceIterator{tuples: tuples}, nil
}

func hasRuleFor(prog *rule.Program, pred string) bool {
	for _, r := range prog.Rules {
		if r.Head.Pred == pred {
			return true
		}
	}
	return false
}

func asMemHandle(h Handle) (*memHandle, error) {
	mh, ok := h.(*memHandle)
	if !ok {
		return nil, errBackend("handle is not a MemoryBackend handle")
	}
	if mh.rel == nil {
		return nil, errBackend("handle is closed")
	}
	return mh, nil
}

type sliceIterator struct {
	tuples []Tuple
	pos    int
}

func (it *sliceIterator) Next(ctx context.Context) (Tuple, bool, error) {
	select {
	case <-ctx.Done():
		return nil, false, errCancelled
	default:
	}
	if it.pos >= len(it.tuples) {
		return nil, false, nil
	}
	t := it.tuples[it.pos]
	it.pos++
	return t, true, nil
}

func (it *sliceIterator) Close() error { return nil }

var _ fmt.Stringer = (*memHandle)(nil)

func (mh *memHandle) String() string { return "MemoryBackend handle" }
