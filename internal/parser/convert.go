package parser

import (
	"strconv"
	"strings"

	"github.com/ritamzico/viewgraph/internal/ast"
	"github.com/ritamzico/viewgraph/internal/graph"
)

// convert turns one parsed Grammar into the internal/ast.Statement it
// denotes. Exactly one field of StatementAST is populated by the
// parser's alternation; convert dispatches on whichever one it is.
func convert(g *Grammar) (ast.Statement, error) {
	s := g.Stmt
	switch {
	case s.Connect != nil:
		return ast.ConnectStmt{Backend: s.Connect.Backend}, nil
	case s.Disconnect:
		return ast.DisconnectStmt{}, nil
	case s.CreateGraph != nil:
		return ast.CreateGraphStmt{Name: s.CreateGraph.Name}, nil
	case s.DropGraph != nil:
		return ast.DropGraphStmt{Name: s.DropGraph.Name}, nil
	case s.DropView != nil:
		return ast.DropViewStmt{Name: s.DropView.Name}, nil
	case s.CreateNode != nil:
		return ast.CreateNodeLabelStmt{Label: s.CreateNode.Label}, nil
	case s.CreateEdge != nil:
		return ast.CreateEdgeLabelStmt{Label: s.CreateEdge.Label, Src: s.CreateEdge.Src, Dst: s.CreateEdge.Dst}, nil
	case s.Use != nil:
		return ast.UseStmt{Name: s.Use.Name}, nil
	case s.List:
		return ast.ListStmt{}, nil
	case s.Schema:
		return ast.SchemaStmt{}, nil
	case s.InsertN != nil:
		id, err := parseID(s.InsertN.ID)
		if err != nil {
			return nil, err
		}
		return ast.InsertNodeStmt{ID: id, Label: s.InsertN.Label}, nil
	case s.InsertE != nil:
		id, err := parseID(s.InsertE.ID)
		if err != nil {
			return nil, err
		}
		src, err := parseID(s.InsertE.Src)
		if err != nil {
			return nil, err
		}
		dst, err := parseID(s.InsertE.Dst)
		if err != nil {
			return nil, err
		}
		return ast.InsertEdgeStmt{ID: id, Src: src, Dst: dst, Label: s.InsertE.Label}, nil
	case s.InsertNP != nil:
		id, err := parseID(s.InsertNP.ID)
		if err != nil {
			return nil, err
		}
		return ast.InsertNodePropStmt{ID: id, Key: s.InsertNP.Key, Value: s.InsertNP.Value}, nil
	case s.InsertEP != nil:
		id, err := parseID(s.InsertEP.ID)
		if err != nil {
			return nil, err
		}
		return ast.InsertEdgePropStmt{ID: id, Key: s.InsertEP.Key, Value: s.InsertEP.Value}, nil
	case s.Import != nil:
		return ast.ImportStmt{Relation: s.Import.Relation, Path: s.Import.Path}, nil
	case s.CreateView != nil:
		v, err := convertView(s.CreateView)
		if err != nil {
			return nil, err
		}
		return ast.CreateViewStmt{View: v}, nil
	case s.Query != nil:
		q, err := convertQuery(s.Query)
		if err != nil {
			return nil, err
		}
		return ast.QueryStmt{Query: q}, nil
	case s.Views:
		return ast.ViewsStmt{}, nil
	case s.Program:
		return ast.ProgramStmt{}, nil
	case s.Egds:
		return ast.EgdsStmt{}, nil
	case s.Option != nil:
		return ast.OptionStmt{Name: s.Option.Name, On: strings.EqualFold(s.Option.Value, "on")}, nil
	case s.Quit:
		return ast.QuitStmt{}, nil
	}
	return nil, ParseError{Message: "empty or unrecognized command"}
}

func parseID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, ParseError{Message: "invalid numeric id: " + s}
	}
	if graph.IsSkolemID(id) {
		return 0, ParseError{Message: "user-supplied id " + s + " collides with the reserved Skolem id space"}
	}
	return id, nil
}

func convertView(v *CreateViewAST) (ast.View, error) {
	kind, err := convertKind(v.Kind)
	if err != nil {
		return ast.View{}, err
	}
	rules := make([]ast.RuleBlock, 0, len(v.Rules))
	for _, r := range v.Rules {
		rb, err := convertRuleBlock(r)
		if err != nil {
			return ast.View{}, err
		}
		rules = append(rules, rb)
	}
	return ast.View{
		Name:       v.Name,
		Kind:       kind,
		Source:     v.Source,
		DefaultMap: v.DefaultMap,
		Rules:      rules,
	}, nil
}

func convertKind(k string) (ast.ViewKind, error) {
	switch strings.ToLower(k) {
	case "virtual":
		return ast.Virtual, nil
	case "materialized":
		return ast.Materialized, nil
	case "hybrid":
		return ast.Hybrid, nil
	}
	return 0, ParseError{Message: "unknown view kind: " + k}
}

func convertRuleBlock(r RuleBlockAST) (ast.RuleBlock, error) {
	match, err := convertPattern(r.Match)
	if err != nil {
		return ast.RuleBlock{}, err
	}

	rb := ast.RuleBlock{Match: match}

	if r.Where != nil {
		where, err := convertExpr(*r.Where)
		if err != nil {
			return ast.RuleBlock{}, err
		}
		rb.Where = where
	}

	for _, m := range r.Mappings {
		rb.Mappings = append(rb.Mappings, ast.Mapping{From: m.From, To: m.To})
	}

	if r.Construct != nil {
		nodes, edges, err := convertConstruct(*r.Construct)
		if err != nil {
			return ast.RuleBlock{}, err
		}
		rb.ConstructNodes = nodes
		rb.ConstructEdges = edges
	}

	for _, a := range r.Adds {
		switch len(a.Steps) {
		case 0:
			rb.AddNodes = append(rb.AddNodes, ast.AddNode{Var: a.First.Var, Label: a.First.Label})
		case 1:
			rb.AddEdges = append(rb.AddEdges, ast.AddEdge{
				Var:   a.Steps[0].Edge.Var,
				Src:   a.First.Var,
				Dst:   a.Steps[0].Node.Var,
				Label: a.Steps[0].Edge.Label,
			})
		default:
			return ast.RuleBlock{}, ParseError{Message: "ADD supports a single node or a single edge, not a multi-hop chain"}
		}
	}

	for _, d := range r.Deletes {
		rb.Deletes = append(rb.Deletes, ast.DeleteSpec{TargetVar: d.Var})
	}

	for _, set := range r.Sets {
		rb.Sets = append(rb.Sets, ast.SkolemSet{Var: set.Var, FnName: set.FnName, Args: set.Args})
	}

	return rb, nil
}

// convertPattern walks a chain list into a flat Pattern, threading the
// previous node's variable as each subsequent edge's source.
func convertPattern(p PatternAST) (ast.Pattern, error) {
	var out ast.Pattern
	for _, chain := range p.Chains {
		out.Nodes = append(out.Nodes, ast.PatternNode{Var: chain.First.Var, Label: chain.First.Label})
		prev := chain.First.Var
		for _, step := range chain.Steps {
			out.Edges = append(out.Edges, ast.PatternEdge{
				Var:   step.Edge.Var,
				Src:   prev,
				Dst:   step.Node.Var,
				Label: step.Edge.Label,
				Star:  step.Edge.Star,
			})
			out.Nodes = append(out.Nodes, ast.PatternNode{Var: step.Node.Var, Label: step.Node.Label})
			prev = step.Node.Var
		}
	}
	return out, nil
}

func convertConstruct(p PatternAST) ([]ast.ConstructNode, []ast.ConstructEdge, error) {
	var nodes []ast.ConstructNode
	var edges []ast.ConstructEdge
	for _, chain := range p.Chains {
		nodes = append(nodes, ast.ConstructNode{Var: chain.First.Var, Label: chain.First.Label})
		prev := chain.First.Var
		for _, step := range chain.Steps {
			edges = append(edges, ast.ConstructEdge{
				Var:   step.Edge.Var,
				Src:   prev,
				Dst:   step.Node.Var,
				Label: step.Edge.Label,
			})
			nodes = append(nodes, ast.ConstructNode{Var: step.Node.Var, Label: step.Node.Label})
			prev = step.Node.Var
		}
	}
	return nodes, edges, nil
}

func convertQuery(q *QueryAST) (ast.Query, error) {
	match, err := convertPattern(q.Match)
	if err != nil {
		return ast.Query{}, err
	}
	out := ast.Query{Match: match, From: q.From, Return: q.Return}
	if q.Where != nil {
		where, err := convertExpr(*q.Where)
		if err != nil {
			return ast.Query{}, err
		}
		out.Where = where
	}
	return out, nil
}

func convertExpr(e ExprAST) (ast.Expr, error) {
	left, err := convertComparison(e.First)
	if err != nil {
		return nil, err
	}
	expr := left
	for _, c := range e.Rest {
		right, err := convertComparison(c)
		if err != nil {
			return nil, err
		}
		expr = ast.And{Left: expr, Right: right}
	}
	return expr, nil
}

func convertComparison(c ComparisonAST) (ast.Expr, error) {
	left, err := convertOperand(c.Left)
	if err != nil {
		return nil, err
	}
	right, err := convertOperand(c.Right)
	if err != nil {
		return nil, err
	}
	return ast.BinOp{Op: graph.CompareOp(c.Op), Left: left, Right: right}, nil
}

func convertOperand(o OperandAST) (ast.Expr, error) {
	switch {
	case o.Ref != nil:
		return ast.Ref{Var: o.Ref.Var, Key: o.Ref.Key}, nil
	case o.Lit != nil:
		switch {
		case o.Lit.Str != nil:
			return ast.Lit{Value: *o.Lit.Str}, nil
		case o.Lit.Num != nil:
			return ast.Lit{Value: *o.Lit.Num}, nil
		}
	}
	return nil, ParseError{Message: "malformed operand"}
}
