package catalog

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/ritamzico/viewgraph/internal/assembler"
	"github.com/ritamzico/viewgraph/internal/ast"
	"github.com/ritamzico/viewgraph/internal/backend"
	"github.com/ritamzico/viewgraph/internal/config"
	"github.com/ritamzico/viewgraph/internal/csvio"
	gr "github.com/ritamzico/viewgraph/internal/graph"
	"github.com/ritamzico/viewgraph/internal/result"
	"github.com/ritamzico/viewgraph/internal/rewriter"
	"github.com/ritamzico/viewgraph/internal/rule"
	"github.com/ritamzico/viewgraph/internal/typecheck"
)

// Session is the process-wide entry point a CLI or embedder drives: it
// owns every loaded Graph, the active one, the connected backend kind,
// and the session's option set. All mutating commands hold an
// exclusive lock for the whole command; queries hold a shared lock, so
// queries may run concurrently with each other but never alongside a
// mutation.
type Session struct {
	mu sync.RWMutex

	cfg     *config.Config
	graphs  map[string]*Graph
	active  string
	backend string // "" until `connect`
}

// NewSession builds a Session from a parsed config file, defaulting
// the backend kind every graph lazily opens to cfg's
// `platform` value. The `workspace` key names the graph a caller
// should `create graph`/`use` on startup; applying it is left to the
// caller (cmd/cli) since no graph named by it necessarily exists yet.
func NewSession(cfg *config.Config) *Session {
	if cfg == nil {
		cfg = config.New()
	}
	return &Session{
		cfg:     cfg,
		graphs:  make(map[string]*Graph),
		backend: cfg.String(config.KeyPlatform, "memory"),
	}
}

func (s *Session) policy() typecheck.Policy {
	return typecheck.Policy{
		TypeCheck:  s.cfg.Bool(config.KeyTypecheck, false),
		PruneQuery: s.cfg.Bool(config.KeyPrunequery, false),
	}
}

// Execute runs one parsed Statement against session state, choosing
// exclusive or shared locking by statement kind.
func (s *Session) Execute(ctx context.Context, stmt ast.Statement) (result.Result, error) {
	if qs, ok := stmt.(ast.QueryStmt); ok {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return s.runQuery(ctx, qs.Query)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dispatch(ctx, stmt)
}

func (s *Session) dispatch(ctx context.Context, stmt ast.Statement) (result.Result, error) {
	switch st := stmt.(type) {
	case ast.ConnectStmt:
		s.backend = st.Backend
		return result.Ack("connected to backend %q", st.Backend), nil

	case ast.DisconnectStmt:
		for _, g := range s.graphs {
			_ = g.Close()
		}
		s.backend = ""
		return result.Ack("disconnected"), nil

	case ast.CreateGraphStmt:
		if _, exists := s.graphs[st.Name]; exists {
			return nil, Error{Kind: "SchemaConflict", Message: "graph " + st.Name + " already exists"}
		}
		s.graphs[st.Name] = NewGraph(st.Name)
		if s.active == "" {
			s.active = st.Name
		}
		return result.Ack("created graph %q", st.Name), nil

	case ast.DropGraphStmt:
		g, ok := s.graphs[st.Name]
		if !ok {
			return nil, errUnknownGraph(st.Name)
		}
		// Dropping a graph drops every view defined on it, transitively
		// — trivially true here since the view catalog is owned by the
		// Graph itself and is discarded whole.
		_ = g.Close()
		delete(s.graphs, st.Name)
		if s.active == st.Name {
			s.active = ""
		}
		return result.Ack("dropped graph %q", st.Name), nil

	case ast.UseStmt:
		if _, ok := s.graphs[st.Name]; !ok {
			return nil, errUnknownGraph(st.Name)
		}
		s.active = st.Name
		return result.Ack("active graph set to %q", st.Name), nil

	case ast.ListStmt:
		names := make([]string, 0, len(s.graphs))
		for n := range s.graphs {
			names = append(names, n)
		}
		return result.ListResult{Names: names, Active: s.active}, nil

	case ast.SchemaStmt:
		g, err := s.activeGraph()
		if err != nil {
			return nil, err
		}
		return schemaResult(g), nil

	case ast.ViewsStmt:
		g, err := s.activeGraph()
		if err != nil {
			return nil, err
		}
		return result.ViewsResult{Views: g.ViewSummaries()}, nil

	case ast.ProgramStmt:
		g, err := s.activeGraph()
		if err != nil {
			return nil, err
		}
		return programResult(g)

	case ast.EgdsStmt:
		g, err := s.activeGraph()
		if err != nil {
			return nil, err
		}
		return s.egds(ctx, g)

	case ast.QuitStmt:
		return result.Ack("bye"), nil

	case ast.CreateNodeLabelStmt:
		g, err := s.activeGraph()
		if err != nil {
			return nil, err
		}
		if err := g.Schema.AddNodeLabel(gr.Label(st.Label)); err != nil {
			return nil, err
		}
		return result.Ack("created node label %q", st.Label), nil

	case ast.CreateEdgeLabelStmt:
		g, err := s.activeGraph()
		if err != nil {
			return nil, err
		}
		if err := g.Schema.AddEdgeLabel(gr.Label(st.Label), gr.Label(st.Src), gr.Label(st.Dst)); err != nil {
			return nil, err
		}
		return result.Ack("created edge label %q(%s -> %s)", st.Label, st.Src, st.Dst), nil

	case ast.InsertNodeStmt:
		g, err := s.activeGraph()
		if err != nil {
			return nil, err
		}
		if err := s.insertNode(g, st.ID, st.Label); err != nil {
			return nil, err
		}
		return result.Ack("inserted N(%d, %q)", st.ID, st.Label), nil

	case ast.InsertEdgeStmt:
		g, err := s.activeGraph()
		if err != nil {
			return nil, err
		}
		if err := s.insertEdge(g, st.ID, st.Src, st.Dst, st.Label); err != nil {
			return nil, err
		}
		return result.Ack("inserted E(%d, %d, %d, %q)", st.ID, st.Src, st.Dst, st.Label), nil

	case ast.InsertNodePropStmt:
		g, err := s.activeGraph()
		if err != nil {
			return nil, err
		}
		if err := s.insertNodeProp(g, st.ID, st.Key, st.Value); err != nil {
			return nil, err
		}
		return result.Ack("inserted NP(%d, %q, %q)", st.ID, st.Key, st.Value), nil

	case ast.InsertEdgePropStmt:
		g, err := s.activeGraph()
		if err != nil {
			return nil, err
		}
		if err := s.insertEdgeProp(g, st.ID, st.Key, st.Value); err != nil {
			return nil, err
		}
		return result.Ack("inserted EP(%d, %q, %q)", st.ID, st.Key, st.Value), nil

	case ast.ImportStmt:
		g, err := s.activeGraph()
		if err != nil {
			return nil, err
		}
		n, err := s.importCSV(g, st.Relation, st.Path)
		if err != nil {
			return nil, err
		}
		return result.Ack("imported %d row(s) into %s from %q", n, st.Relation, st.Path), nil

	case ast.CreateViewStmt:
		g, err := s.activeGraph()
		if err != nil {
			return nil, err
		}
		if err := g.CreateView(st.View, s.policy()); err != nil {
			return nil, err
		}
		if st.View.Kind == ast.Materialized || st.View.Kind == ast.Hybrid {
			if err := s.refreshView(ctx, g, st.View.Name); err != nil {
				return nil, err
			}
		}
		return result.Ack("created %s view %q on %q", st.View.Kind, st.View.Name, st.View.Source), nil

	case ast.DropViewStmt:
		g, err := s.activeGraph()
		if err != nil {
			return nil, err
		}
		if err := g.DropView(st.Name); err != nil {
			return nil, err
		}
		return result.Ack("dropped view %q", st.Name), nil

	case ast.OptionStmt:
		s.cfg.Set(st.Name, boolStr(st.On))
		return result.Ack("option %s set to %v", st.Name, st.On), nil

	default:
		return nil, fmt.Errorf("catalog: unsupported statement %T", stmt)
	}
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func (s *Session) activeGraph() (*Graph, error) {
	if s.active == "" {
		return nil, errNoActiveGraph()
	}
	g, ok := s.graphs[s.active]
	if !ok {
		return nil, errNoActiveGraph()
	}
	return g, nil
}

func (s *Session) insertNode(g *Graph, id uint64, label string) error {
	if err := g.Store.AddNode(gr.NodeID(id), gr.Label(label)); err != nil {
		return err
	}
	g.Dirty = true
	return s.pushFact(g, rule.BaseN, backend.Tuple{idStr(id), label})
}

func (s *Session) insertEdge(g *Graph, id, src, dst uint64, label string) error {
	if err := g.Store.AddEdge(gr.EdgeID(id), gr.NodeID(src), gr.NodeID(dst), gr.Label(label)); err != nil {
		return err
	}
	g.Dirty = true
	return s.pushFact(g, rule.BaseE, backend.Tuple{idStr(id), idStr(src), idStr(dst), label})
}

func (s *Session) insertNodeProp(g *Graph, id uint64, key, val string) error {
	if err := g.Store.SetNodeProp(gr.NodeID(id), key, gr.Value(val)); err != nil {
		return err
	}
	g.Dirty = true
	return s.pushFact(g, rule.BaseNP, backend.Tuple{idStr(id), key, val})
}

func (s *Session) insertEdgeProp(g *Graph, id uint64, key, val string) error {
	if err := g.Store.SetEdgeProp(gr.EdgeID(id), key, gr.Value(val)); err != nil {
		return err
	}
	g.Dirty = true
	return s.pushFact(g, rule.BaseEP, backend.Tuple{idStr(id), key, val})
}

func (s *Session) pushFact(g *Graph, relName string, t backend.Tuple) error {
	if err := g.EnsureBackend(s.backend); err != nil {
		return err
	}
	return g.Backend.InsertFacts(g.Handle, relName, []backend.Tuple{t})
}

func idStr(id uint64) string { return fmt.Sprintf("%d", id) }

func (s *Session) importCSV(g *Graph, relName, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("import: %w", err)
	}
	defer f.Close()

	switch csvio.Relation(relName) {
	case csvio.RelN:
		rows, err := csvio.ReadNodes(f)
		if err != nil {
			return 0, err
		}
		for _, r := range rows {
			if err := s.insertNode(g, r.ID, r.Label); err != nil {
				return 0, err
			}
		}
		return len(rows), nil
	case csvio.RelE:
		rows, err := csvio.ReadEdges(f)
		if err != nil {
			return 0, err
		}
		for _, r := range rows {
			if err := s.insertEdge(g, r.ID, r.Src, r.Dst, r.Label); err != nil {
				return 0, err
			}
		}
		return len(rows), nil
	case csvio.RelNP:
		rows, err := csvio.ReadProps(f)
		if err != nil {
			return 0, err
		}
		for _, r := range rows {
			if err := s.insertNodeProp(g, r.ID, r.Key, r.Value); err != nil {
				return 0, err
			}
		}
		return len(rows), nil
	case csvio.RelEP:
		rows, err := csvio.ReadProps(f)
		if err != nil {
			return 0, err
		}
		for _, r := range rows {
			if err := s.insertEdgeProp(g, r.ID, r.Key, r.Value); err != nil {
				return 0, err
			}
		}
		return len(rows), nil
	default:
		return 0, fmt.Errorf("import: unknown relation %q", relName)
	}
}

// refreshView (re)materializes one view's N_v/E_v predicates into the
// graph's backend. There is no standalone REFRESH verb in the
// grammar, so "explicit refresh" means CREATE VIEW itself and any
// later query against a dirty materialized/hybrid source.
func (s *Session) refreshView(ctx context.Context, g *Graph, name string) error {
	rules, err := g.TransitiveRules(name)
	if err != nil {
		return err
	}
	prog, err := assembler.Assemble(rules)
	if err != nil {
		return err
	}
	if err := g.EnsureBackend(s.backend); err != nil {
		return err
	}

	ivm := s.cfg.Bool(config.KeyIVM, false)
	preds := []string{rule.ViewPred("N", name), rule.ViewPred("E", name)}

	// Snapshot the predicate's stored contents before Materialize adds
	// to them, so an IVM delta can be computed against what changed. An
	// empty program reads the stored facts without deriving new ones.
	before := make(map[string][]backend.Tuple, len(preds))
	if ivm {
		for _, pred := range preds {
			if snap, err := evaluateSnapshot(ctx, g, &rule.Program{}, pred); err == nil {
				before[pred] = snap
			}
		}
	}

	for _, pred := range preds {
		if err := g.Backend.Materialize(ctx, g.Handle, prog, pred); err != nil {
			if hasNoRule(prog, pred) {
				continue // a view with no node (or no edge) output has nothing to materialize
			}
			return err
		}
	}

	if ivm {
		for _, pred := range preds {
			if err := recordDelta(ctx, g, prog, pred, before[pred]); err != nil {
				return err
			}
		}
	}
	return nil
}

func hasNoRule(prog *rule.Program, pred string) bool {
	for _, r := range prog.Rules {
		if r.Head.Pred == pred {
			return false
		}
	}
	return true
}

// recordDelta is the §9/§12 "concretely scoped down" IVM option: it
// still fully recomputes (no true incremental maintenance is claimed),
// but additionally snapshots which tuples are new since the previous
// refresh into a `_delta` predicate, by diffing the freshly
// materialized contents of pred against what before held beforehand.
func recordDelta(ctx context.Context, g *Graph, prog *rule.Program, pred string, before []backend.Tuple) error {
	beforeSet := make(map[string]struct{}, len(before))
	for _, t := range before {
		beforeSet[tupleKey(t)] = struct{}{}
	}
	after, err := evaluateSnapshot(ctx, g, prog, pred)
	if err != nil {
		return nil // nothing materialized for this predicate, nothing to diff
	}
	var delta []backend.Tuple
	for _, t := range after {
		if _, seen := beforeSet[tupleKey(t)]; !seen {
			delta = append(delta, t)
		}
	}
	if len(delta) == 0 {
		return nil
	}
	return g.Backend.InsertFacts(g.Handle, pred+"_delta", delta)
}

func evaluateSnapshot(ctx context.Context, g *Graph, prog *rule.Program, pred string) ([]backend.Tuple, error) {
	it, err := g.Backend.Evaluate(ctx, g.Handle, prog, pred)
	if err != nil {
		return nil, err
	}
	defer it.Close()
	var out []backend.Tuple
	for {
		t, ok, err := it.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		out = append(out, t)
	}
	return out, nil
}

func tupleKey(t backend.Tuple) string {
	return fmt.Sprintf("%v", []string(t))
}

// runQuery executes a MATCH...FROM...RETURN query: it refreshes any
// dirty materialized/hybrid source, typechecks/prunes
// the query's own pattern, rewrites into a goal rule, assembles a
// stratified program, and evaluates it against the active graph's
// backend.
func (s *Session) runQuery(ctx context.Context, q ast.Query) (result.Result, error) {
	g, err := s.activeGraph()
	if err != nil {
		return nil, err
	}
	if q.From != "g" && !g.HasView(q.From) {
		return nil, errUnknownView(q.From)
	}
	if q.From != "g" && g.Dirty {
		for _, name := range g.MaterializedOrHybrid() {
			if err := s.refreshView(ctx, g, name); err != nil {
				return nil, err
			}
		}
		g.Dirty = false
	}

	policy := s.policy()
	sat, err := typecheck.Check(q.Match, g.Schema, policy)
	if err != nil {
		return nil, err
	}
	if !sat {
		// prunequery=on, typecheck=off: the pattern is provably empty;
		// return zero rows without ever touching the backend. Pruning
		// only removes provably empty branches, so an empty result here
		// is still correct.
		return result.TupleResult{Vars: q.Return}, nil
	}

	goalPred, allRules, err := rewriter.Rewrite(q, g)
	if err != nil {
		return nil, err
	}

	prog, err := assembler.Assemble(dedupeRules(allRules))
	if err != nil {
		return nil, err
	}

	if err := g.EnsureBackend(s.backend); err != nil {
		return nil, err
	}

	it, err := g.Backend.Evaluate(ctx, g.Handle, prog, goalPred)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var rows [][]string
	for {
		select {
		case <-ctx.Done():
			return nil, backend.Error{Kind: "Cancelled", Message: "query cancelled"}
		default:
		}
		t, ok, err := it.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		rows = append(rows, []string(t))
	}
	return result.TupleResult{Vars: q.Return, Rows: rows}, nil
}

// dedupeRules drops exact duplicate rules (same rule text and same
// provenance) from the rewritten rule set, keeping the first of each.
func dedupeRules(rules []rule.Rule) []rule.Rule {
	seen := make(map[string]struct{}, len(rules))
	out := make([]rule.Rule, 0, len(rules))
	for _, r := range rules {
		k := r.String() + "|" + r.Provenance
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}

func schemaResult(g *Graph) result.SchemaResult {
	nodeLabels := make([]string, 0)
	for _, l := range g.Schema.NodeLabels() {
		nodeLabels = append(nodeLabels, string(l))
	}
	sort.Strings(nodeLabels)

	edges := g.Schema.EdgeLabels()
	edgeLabels := make([]result.SchemaEdgeLabel, 0, len(edges))
	for l, ep := range edges {
		edgeLabels = append(edgeLabels, result.SchemaEdgeLabel{Label: string(l), Src: string(ep.Src), Dst: string(ep.Dst)})
	}
	sort.Slice(edgeLabels, func(i, j int) bool { return edgeLabels[i].Label < edgeLabels[j].Label })

	return result.SchemaResult{NodeLabels: nodeLabels, EdgeLabels: edgeLabels}
}

func programResult(g *Graph) (result.ProgramResult, error) {
	prog, err := assembler.Assemble(g.AllRules())
	if err != nil {
		return result.ProgramResult{}, err
	}
	byStratumPreds := prog.Strata
	rulesByPred := prog.PredicatesOf()

	strata := make([]result.ProgramStratum, 0, len(byStratumPreds))
	for i, preds := range byStratumPreds {
		sorted := append([]string(nil), preds...)
		sort.Strings(sorted)
		var ruleStrs []string
		for _, p := range sorted {
			for _, r := range rulesByPred[p] {
				ruleStrs = append(ruleStrs, r.String())
			}
		}
		strata = append(strata, result.ProgramStratum{Index: i, Predicates: sorted, Rules: ruleStrs})
	}
	return result.ProgramResult{Strata: strata}, nil
}

// egds implements the §9/§12 informational EGD surfacing: for every
// view in the catalog, evaluate its N_v/E_v predicates and report any
// Skolem-minted id whose output tuples disagree across bindings — a
// candidate functional-dependency violation. Never enforced.
func (s *Session) egds(ctx context.Context, g *Graph) (result.EgdsResult, error) {
	var violations []result.EgdViolation
	for _, name := range g.ViewNames() {
		rules, err := g.TransitiveRules(name)
		if err != nil {
			continue
		}
		prog, err := assembler.Assemble(rules)
		if err != nil {
			continue
		}
		if err := g.EnsureBackend(s.backend); err != nil {
			return result.EgdsResult{}, err
		}
		for _, kind := range []string{"N", "E"} {
			pred := rule.ViewPred(kind, name)
			tuples, err := evaluateSnapshot(ctx, g, prog, pred)
			if err != nil {
				continue
			}
			violations = append(violations, findEgdViolations(g, name, tuples)...)
		}
	}
	return result.EgdsResult{Violations: violations}, nil
}

func findEgdViolations(g *Graph, viewName string, tuples []backend.Tuple) []result.EgdViolation {
	byID := make(map[string]map[string]struct{})
	for _, t := range tuples {
		if len(t) == 0 {
			continue
		}
		id, err := parseID(t[0])
		if err != nil || !gr.IsSkolemID(id) {
			continue
		}
		rest := fmt.Sprintf("%v", []string(t)[1:])
		set, ok := byID[t[0]]
		if !ok {
			set = make(map[string]struct{})
			byID[t[0]] = set
		}
		set[rest] = struct{}{}
	}
	var out []result.EgdViolation
	for id, outputs := range byID {
		if len(outputs) <= 1 {
			continue
		}
		fn, args, ok := g.Skolem.Lookup(mustParseID(id))
		if !ok {
			continue
		}
		var distinct []string
		for o := range outputs {
			distinct = append(distinct, o)
		}
		sort.Strings(distinct)
		out = append(out, result.EgdViolation{View: viewName, FnName: fn, ArgTuple: args, OutputsSet: distinct})
	}
	return out
}

func parseID(s string) (uint64, error) {
	var id uint64
	_, err := fmt.Sscanf(s, "%d", &id)
	return id, err
}

func mustParseID(s string) uint64 {
	id, _ := parseID(s)
	return id
}

// BackendConnected reports whether the session has a backend kind set:
// NewSession sets one from the `platform` config value, `disconnect`
// clears it, and `connect` sets it again.
func (s *Session) BackendConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.backend != ""
}

// ConfigBool reads a session option, as last set by a config file or
// an `option` command, so a caller like cmd/cli can branch on `answer`
// without keeping its own shadow copy of state the session already
// owns.
func (s *Session) ConfigBool(key string, def bool) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Bool(key, def)
}

// ConfigString is ConfigBool's string-valued counterpart, used by
// cmd/cli to read `platform`/`workspace` without duplicating config's
// own parsing.
func (s *Session) ConfigString(key, def string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.String(key, def)
}
