package catalog

import (
	"sort"

	"github.com/ritamzico/viewgraph/internal/ast"
	"github.com/ritamzico/viewgraph/internal/backend"
	"github.com/ritamzico/viewgraph/internal/compiler"
	"github.com/ritamzico/viewgraph/internal/graph"
	"github.com/ritamzico/viewgraph/internal/result"
	"github.com/ritamzico/viewgraph/internal/rule"
	"github.com/ritamzico/viewgraph/internal/skolem"
	"github.com/ritamzico/viewgraph/internal/typecheck"
)

// viewEntry is one catalog slot: the view's surface definition plus its
// compiled rules, cached at CREATE VIEW time. A view is immutable once
// created, so there is nothing to invalidate here beyond DROP.
type viewEntry struct {
	view  ast.View
	rules []rule.Rule
}

// Graph is one property graph owned by a Session: its Schema Registry,
// base Store, Skolem Registry, and view catalog. Each graph's registries
// are its own — nothing here is shared process-wide across graphs.
type Graph struct {
	Name   string
	Schema *graph.Schema
	Store  *graph.Store
	Skolem *skolem.Registry

	views []string // creation order, for listing
	byName map[string]*viewEntry

	// Dirty is set on every base-graph mutation (insert) and whenever
	// EnsureBackend opens and reseeds a backend; a query clears it after
	// refreshing the materialized/hybrid views. Session consults it to decide whether a materialized source needs a
	// refresh before a query runs.
	Dirty bool

	// backendKind/Backend/Handle are this graph's own Backend Adapter
	// connection. Each graph's facts live under relation names with no
	// graph qualifier, so sharing one backend handle across graphs
	// would let their facts collide. Opened lazily by Session on first
	// use after `connect`, closed when the graph is dropped or the
	// session disconnects.
	backendKind string
	Backend     backend.Backend
	Handle      backend.Handle
}

// NewGraph creates an empty graph with a fresh schema, store, and
// Skolem registry.
func NewGraph(name string) *Graph {
	schema := graph.NewSchema()
	return &Graph{
		Name:   name,
		Schema: schema,
		Store:  graph.NewStore(schema),
		Skolem: skolem.New(),
		byName: make(map[string]*viewEntry),
	}
}

// wouldCycle reports whether creating a view named newName with source
// src would close a definitional cycle through the views already in
// the catalog. The cycle must be rejected at CREATE VIEW time, not only
// when a query later walks the chain. Forward references to a
// not-yet-created view are allowed (the source simply doesn't resolve
// until something defines it) — only a chain that loops back to
// newName itself is rejected.
func (g *Graph) wouldCycle(newName, src string) bool {
	visited := make(map[string]struct{})
	cur := src
	for {
		if cur == "g" || cur == "" {
			return false
		}
		if cur == newName {
			return true
		}
		if _, seen := visited[cur]; seen {
			return false // a pre-existing cycle elsewhere isn't this call's concern
		}
		visited[cur] = struct{}{}
		entry, ok := g.byName[cur]
		if !ok {
			return false
		}
		cur = entry.view.Source
	}
}

// CreateView compiles v's rule blocks (pruning or rejecting
// statically-unsatisfiable ones per policy) and adds it to the catalog
// atomically: either the view is fully compiled and registered, or the
// catalog is left unchanged.
func (g *Graph) CreateView(v ast.View, policy typecheck.Policy) error {
	if _, exists := g.byName[v.Name]; exists {
		return Error{Kind: "SchemaConflict", Message: "view " + v.Name + " already exists"}
	}
	if g.wouldCycle(v.Name, v.Source) {
		return errCyclicView(v.Name)
	}

	pruned := v
	pruned.Rules = nil
	for _, rb := range v.Rules {
		sat, err := typecheck.Check(rb.Match, g.Schema, policy)
		if err != nil {
			return err
		}
		if !sat {
			continue // prunequery=on: silently drop this unsatisfiable branch
		}
		pruned.Rules = append(pruned.Rules, rb)
	}

	rules, err := compiler.Compile(pruned, g.Skolem)
	if err != nil {
		return err
	}

	g.byName[v.Name] = &viewEntry{view: pruned, rules: rules}
	g.views = append(g.views, v.Name)
	return nil
}

// DropView removes name and cascades to every view transitively
// defined on it, so a dependent view is never left pointing at a
// source that no longer exists.
func (g *Graph) DropView(name string) error {
	if _, ok := g.byName[name]; !ok {
		return errUnknownView(name)
	}
	toDrop := map[string]struct{}{name: {}}
	changed := true
	for changed {
		changed = false
		for n, e := range g.byName {
			if _, gone := toDrop[n]; gone {
				continue
			}
			if _, sourceGone := toDrop[e.view.Source]; sourceGone {
				toDrop[n] = struct{}{}
				changed = true
			}
		}
	}
	for n := range toDrop {
		delete(g.byName, n)
	}
	kept := g.views[:0:0]
	for _, n := range g.views {
		if _, gone := toDrop[n]; !gone {
			kept = append(kept, n)
		}
	}
	g.views = kept
	return nil
}

// Kind implements rewriter.ViewLookup.
func (g *Graph) Kind(name string) (ast.ViewKind, bool) {
	e, ok := g.byName[name]
	if !ok {
		return 0, false
	}
	return e.view.Kind, true
}

// Rules implements rewriter.ViewLookup: the view is already compiled
// (at CREATE VIEW time), so this is a cache lookup, never a fresh
// compile.
func (g *Graph) Rules(name string) ([]rule.Rule, error) {
	e, ok := g.byName[name]
	if !ok {
		return nil, errUnknownView(name)
	}
	return e.rules, nil
}

// Source implements rewriter.ViewLookup.
func (g *Graph) Source(name string) (string, bool) {
	e, ok := g.byName[name]
	if !ok {
		return "", false
	}
	return e.view.Source, true
}

// HasView reports whether name is a live view in this catalog.
func (g *Graph) HasView(name string) bool {
	_, ok := g.byName[name]
	return ok
}

// ViewNames returns every view name in creation order.
func (g *Graph) ViewNames() []string {
	out := make([]string, len(g.views))
	copy(out, g.views)
	return out
}

// ViewSummaries builds the `views` introspection result.
func (g *Graph) ViewSummaries() []result.ViewSummary {
	out := make([]result.ViewSummary, 0, len(g.views))
	for _, n := range g.views {
		e := g.byName[n]
		out = append(out, result.ViewSummary{
			Name:      n,
			Kind:      e.view.Kind.String(),
			Source:    e.view.Source,
			RuleCount: len(e.rules),
		})
	}
	return out
}

// MaterializedOrHybrid returns the names of every view whose kind
// requires a backing materialization.
func (g *Graph) MaterializedOrHybrid() []string {
	var out []string
	for _, n := range g.views {
		k := g.byName[n].view.Kind
		if k == ast.Materialized || k == ast.Hybrid {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

// AllRules concatenates every compiled view's rules, for the `program`
// introspection command.
func (g *Graph) AllRules() []rule.Rule {
	var out []rule.Rule
	for _, n := range g.views {
		out = append(out, g.byName[n].rules...)
	}
	return out
}

// TransitiveRules returns name's own compiled rules plus every rule of
// every view it (transitively) sources from, in dependency order — the
// same inclusion the query rewriter performs when it expands a view
// reference, reused here for materializing a view directly.
func (g *Graph) TransitiveRules(name string) ([]rule.Rule, error) {
	seen := make(map[string]struct{})
	var out []rule.Rule
	var walk func(string) error
	walk = func(n string) error {
		if _, ok := seen[n]; ok {
			return nil
		}
		seen[n] = struct{}{}
		e, ok := g.byName[n]
		if !ok {
			return errUnknownView(n)
		}
		if e.view.Source != "g" {
			if err := walk(e.view.Source); err != nil {
				return err
			}
		}
		out = append(out, e.rules...)
		return nil
	}
	if err := walk(name); err != nil {
		return nil, err
	}
	return out, nil
}

// EnsureBackend lazily opens this graph's own backend handle of kind
// (default "memory" when empty), applying the current schema. A
// no-op if already open with the same kind. Opening a fresh handle —
// whether because none was open yet, or because kind differs from the
// one already in use — reseeds the base N/E/NP/EP facts already held
// in g.Store, so switching backend mid-session (or reconnecting after
// a disconnect) doesn't silently lose rows a query would otherwise
// expect to see.
func (g *Graph) EnsureBackend(kind string) error {
	if kind == "" {
		kind = "memory"
	}
	if g.Handle != nil && g.backendKind == kind {
		return nil
	}
	if g.Handle != nil {
		_ = g.Backend.Close(g.Handle)
	}
	switch kind {
	case "badger":
		g.Backend = backend.NewBadgerBackend(g.Skolem)
	case "memory":
		g.Backend = backend.NewMemoryBackend(g.Skolem)
	default:
		return Error{Kind: "BackendError", Message: "unknown backend platform " + kind}
	}
	h, err := g.Backend.Open(backend.Config{"graph": g.Name})
	if err != nil {
		return err
	}
	if err := g.Backend.ApplySchema(h, g.Schema); err != nil {
		return err
	}
	if err := g.reseed(h); err != nil {
		return err
	}
	g.Handle = h
	g.backendKind = kind
	// A fresh handle has only the reseeded base facts, not any
	// materialized/hybrid view's output — force the next query to
	// refresh them rather than reading an empty N_v/E_v relation.
	g.Dirty = true
	return nil
}

// reseed pushes every base fact already held in g.Store into the
// freshly opened handle h, so a just-opened backend (first connect,
// reconnect, or a kind switch) starts with the same extensional facts
// as every other backend this graph has ever used.
func (g *Graph) reseed(h backend.Handle) error {
	var nRows, eRows, npRows, epRows []backend.Tuple
	for _, n := range g.Store.Nodes() {
		nRows = append(nRows, backend.Tuple{idStr(uint64(n.ID)), string(n.Label)})
		for k, v := range n.Props {
			npRows = append(npRows, backend.Tuple{idStr(uint64(n.ID)), k, string(v)})
		}
	}
	for _, e := range g.Store.Edges() {
		eRows = append(eRows, backend.Tuple{idStr(uint64(e.ID)), idStr(uint64(e.Src)), idStr(uint64(e.Dst)), string(e.Label)})
		for k, v := range e.Props {
			epRows = append(epRows, backend.Tuple{idStr(uint64(e.ID)), k, string(v)})
		}
	}
	if len(nRows) > 0 {
		if err := g.Backend.InsertFacts(h, rule.BaseN, nRows); err != nil {
			return err
		}
	}
	if len(eRows) > 0 {
		if err := g.Backend.InsertFacts(h, rule.BaseE, eRows); err != nil {
			return err
		}
	}
	if len(npRows) > 0 {
		if err := g.Backend.InsertFacts(h, rule.BaseNP, npRows); err != nil {
			return err
		}
	}
	if len(epRows) > 0 {
		if err := g.Backend.InsertFacts(h, rule.BaseEP, epRows); err != nil {
			return err
		}
	}
	return nil
}

// Close releases this graph's backend handle, if any.
func (g *Graph) Close() error {
	if g.Handle == nil {
		return nil
	}
	err := g.Backend.Close(g.Handle)
	g.Handle = nil
	return err
}
