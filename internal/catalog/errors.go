// Package catalog is the Session/Graph facade: it owns the per-graph
// Schema Registry, Skolem Registry, and view catalog, and dispatches
// parsed Statements/Queries against them. The view-dependency cycle
// check that must fire at CREATE VIEW time (not just when a query
// walks the chain) lives here, since only the catalog has a
// synchronous view of every view defined so far.
//
// A Session owns one or more Graphs; each Graph owns its own
// registries, with no process-wide singletons except the backend
// driver table. Writes are serialized by a single exclusive lock
// covering a whole command; readers (query) take a shared lock.
package catalog

import "fmt"

// Error is the catalog's typed error, using the same Kind/Message
// convention as the rest of the tree (graph.Error, parser.ParseError,
// compiler.Error, assembler.Error, rewriter.Error): UnknownGraph,
// UnknownView, CyclicViewDependency (eager check at CREATE VIEW time),
// SchemaConflict (a graph or view name already in use), BackendError.
type Error struct {
	Kind    string
	Message string
}

func (e Error) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Message) }

func errUnknownGraph(name string) error {
	return Error{Kind: "UnknownGraph", Message: fmt.Sprintf("no graph named %q", name)}
}

func errUnknownView(name string) error {
	return Error{Kind: "UnknownView", Message: fmt.Sprintf("no view named %q", name)}
}

func errCyclicView(name string) error {
	return Error{Kind: "CyclicViewDependency", Message: fmt.Sprintf(
		"view %q is defined, directly or indirectly, in terms of itself", name)}
}

func errNoActiveGraph() error {
	return Error{Kind: "UnknownGraph", Message: "no active graph (use 'use <name>' first)"}
}

func errNoBackend() error {
	return Error{Kind: "BackendError", Message: "not connected to a backend (use 'connect <backend>' first)"}
}
