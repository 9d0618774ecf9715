package graph

import "testing"

func buildPersonKnowsSchema() *Schema {
	s := NewSchema()
	s.AddNodeLabel("Person")
	s.AddEdgeLabel("Knows", "Person", "Person")
	return s
}

func TestAddEdge_SchemaSoundness(t *testing.T) {
	s := NewStore(buildPersonKnowsSchema())
	if err := s.AddNode(1, "Person"); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if err := s.AddNode(2, "Person"); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if err := s.AddEdge(10, 1, 2, "Knows"); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}

	e, err := s.GetEdge(10)
	if err != nil {
		t.Fatalf("GetEdge: %v", err)
	}
	if e.Src != 1 || e.Dst != 2 {
		t.Errorf("unexpected endpoints: %+v", e)
	}
}

func TestAddEdge_RejectsEndpointLabelMismatch(t *testing.T) {
	schema := NewSchema()
	schema.AddNodeLabel("Person")
	schema.AddNodeLabel("Company")
	schema.AddEdgeLabel("Knows", "Person", "Person")

	s := NewStore(schema)
	s.AddNode(1, "Company")
	s.AddNode(2, "Person")

	err := s.AddEdge(10, 1, 2, "Knows")
	if err == nil {
		t.Fatal("expected schema conflict, got nil")
	}
	ge, ok := err.(Error)
	if !ok || ge.Kind != "SchemaConflict" {
		t.Errorf("expected SchemaConflict, got %v", err)
	}
}

func TestAddNode_UnknownLabel(t *testing.T) {
	s := NewStore(NewSchema())
	err := s.AddNode(1, "Ghost")
	if err == nil {
		t.Fatal("expected UnknownLabel error")
	}
	ge, ok := err.(Error)
	if !ok || ge.Kind != "UnknownLabel" {
		t.Errorf("expected UnknownLabel, got %v", err)
	}
}

func TestClone_Independence(t *testing.T) {
	s := NewStore(buildPersonKnowsSchema())
	s.AddNode(1, "Person")
	s.AddNode(2, "Person")
	s.AddEdge(10, 1, 2, "Knows")
	s.SetNodeProp(1, "age", "30")

	clone := s.Clone()
	clone.SetNodeProp(1, "age", "99")

	orig, _ := s.GetNode(1)
	cloned, _ := clone.GetNode(1)
	if orig.Props["age"] != "30" {
		t.Errorf("original mutated: %v", orig.Props["age"])
	}
	if cloned.Props["age"] != "99" {
		t.Errorf("clone not mutated: %v", cloned.Props["age"])
	}
}
