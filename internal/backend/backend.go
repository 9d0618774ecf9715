// Package backend implements the Backend Adapter: a small, flat
// capability interface (open/close/applySchema/insertFacts/materialize/
// evaluate) any storage engine can implement, plus two concrete
// adapters — MemoryBackend, a naive-iteration Datalog evaluator, and
// BadgerBackend, which persists materialized-view facts to an embedded
// LSM KV store and runs the same in-memory evaluator (evalProgram)
// over the facts it loads from it.
package backend

import (
	"context"
	"fmt"

	"github.com/ritamzico/viewgraph/internal/graph"
	"github.com/ritamzico/viewgraph/internal/rule"
)

// Tuple is one output row: string-typed, matching the engine's value
// model throughout.
type Tuple []string

// Config is the open() argument: a flat key/value map, matching the
// engine's own config file shape rather than introducing a second
// configuration schema just for backends.
type Config map[string]string

// Handle is an opaque per-connection backend resource, scoped to the
// session or graph that opened it — released on end of session or on
// any unrecoverable backend error.
type Handle interface {
	isHandle()
}

// TupleIterator is the pull-based streaming iterator evaluate returns:
// the caller drains it with periodic cancellation checks rather than
// receiving a fully materialized slice.
type TupleIterator interface {
	Next(ctx context.Context) (Tuple, bool, error)
	Close() error
}

// Backend is the adapter interface. Semantics required of every
// implementation: set semantics (no duplicate facts), stratified-
// negation evaluation equivalent to standard Datalog semantics, and
// deterministic tie-breaking (not necessarily stable order) per
// (backend, program).
type Backend interface {
	Open(cfg Config) (Handle, error)
	Close(h Handle) error
	ApplySchema(h Handle, schema *graph.Schema) error
	InsertFacts(h Handle, relName string, rows []Tuple) error
	Materialize(ctx context.Context, h Handle, prog *rule.Program, predicate string) error
	Evaluate(ctx context.Context, h Handle, prog *rule.Program, goalPredicate string) (TupleIterator, error)
}

// Error is either a BackendError or a Cancelled.
type Error struct {
	Kind    string
	Message string
}

func (e Error) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Message) }

func errBackend(format string, args ...any) error {
	return Error{Kind: "BackendError", Message: fmt.Sprintf(format, args...)}
}

var errCancelled = Error{Kind: "Cancelled", Message: "evaluation cancelled"}
