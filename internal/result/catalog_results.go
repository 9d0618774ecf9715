package result

import (
	"fmt"
	"sort"
	"strings"
)

// ListResult answers `list` (graph names in the session).
type ListResult struct {
	Names  []string
	Active string
}

func (r ListResult) Kind() Kind { return ListResultKind }

func (r ListResult) String() string {
	if len(r.Names) == 0 {
		return "(no graphs)"
	}
	names := append([]string(nil), r.Names...)
	sort.Strings(names)
	var b strings.Builder
	for i, n := range names {
		marker := " "
		if n == r.Active {
			marker = "*"
		}
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s %s", marker, n)
	}
	return b.String()
}

// SchemaResult answers `schema`: node labels, edge labels, and endpoint
// typing for the active graph.
type SchemaResult struct {
	NodeLabels []string
	EdgeLabels []SchemaEdgeLabel
}

type SchemaEdgeLabel struct {
	Label    string
	Src, Dst string
}

func (r SchemaResult) Kind() Kind { return SchemaResultKind }

func (r SchemaResult) String() string {
	var b strings.Builder
	b.WriteString("Node labels:")
	if len(r.NodeLabels) == 0 {
		b.WriteString(" (none)")
	}
	for _, l := range r.NodeLabels {
		fmt.Fprintf(&b, "\n  %s", l)
	}
	b.WriteString("\nEdge labels:")
	if len(r.EdgeLabels) == 0 {
		b.WriteString(" (none)")
	}
	for _, e := range r.EdgeLabels {
		fmt.Fprintf(&b, "\n  %s(%s -> %s)", e.Label, e.Src, e.Dst)
	}
	return b.String()
}

// ViewsResult answers `views`.
type ViewsResult struct {
	Views []ViewSummary
}

type ViewSummary struct {
	Name      string
	Kind      string
	Source    string
	RuleCount int
}

func (r ViewsResult) Kind() Kind { return ListResultKind }

func (r ViewsResult) String() string {
	if len(r.Views) == 0 {
		return "(no views)"
	}
	var b strings.Builder
	for i, v := range r.Views {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s (%s) on %s — %d rule(s)", v.Name, v.Kind, v.Source, v.RuleCount)
	}
	return b.String()
}

// ProgramResult answers `program`: the assembled Rule IR for the
// active graph's compiled catalog, pretty-printed.
type ProgramResult struct {
	Strata []ProgramStratum
}

type ProgramStratum struct {
	Index      int
	Predicates []string
	Rules      []string // Rule.String() already formatted by the caller
}

func (r ProgramResult) Kind() Kind { return ProgramResultKind }

func (r ProgramResult) String() string {
	if len(r.Strata) == 0 {
		return "(empty program)"
	}
	var b strings.Builder
	for _, s := range r.Strata {
		if s.Index > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "stratum %d: %s", s.Index, strings.Join(s.Predicates, ", "))
		for _, rl := range s.Rules {
			fmt.Fprintf(&b, "\n  %s", rl)
		}
	}
	return b.String()
}

// EgdsResult answers `egds`: informational-only candidate functional-
// dependency violations across Skolem-derived ids. Never enforced.
type EgdsResult struct {
	Violations []EgdViolation
}

type EgdViolation struct {
	View       string
	FnName     string
	ArgTuple   []string
	OutputsSet []string // the >1 distinct output tuples seen for this arg tuple
}

func (r EgdsResult) Kind() Kind { return EgdsResultKind }

func (r EgdsResult) String() string {
	if len(r.Violations) == 0 {
		return "(no candidate EGD violations found)"
	}
	var b strings.Builder
	for i, v := range r.Violations {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s: SK(%s, %s) resolves to %d distinct outputs: %s",
			v.View, v.FnName, strings.Join(v.ArgTuple, ","), len(v.OutputsSet), strings.Join(v.OutputsSet, " | "))
	}
	return b.String()
}
