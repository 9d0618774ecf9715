package graph

// Endpoints is the (source, destination) node-label pair an edge label
// is typed to, declared as label(A→B).
type Endpoints struct {
	Src, Dst Label
}

// Schema is the Schema Registry: one immutable-within-a-transaction
// set of node labels, edge labels, and edge endpoint typing. Each Graph
// owns exactly one Schema — schemas are never shared across graphs.
type Schema struct {
	nodeLabels map[Label]struct{}
	edgeLabels map[Label]Endpoints
}

func NewSchema() *Schema {
	return &Schema{
		nodeLabels: make(map[Label]struct{}),
		edgeLabels: make(map[Label]Endpoints),
	}
}

// AddNodeLabel declares a node label. Idempotent: redeclaring the same
// label is not an error (unlike edge labels, a node label carries no
// endpoint data that could conflict).
func (s *Schema) AddNodeLabel(l Label) error {
	s.nodeLabels[l] = struct{}{}
	return nil
}

// AddEdgeLabel declares an edge label with its endpoint typing. Fails
// with SchemaConflict if the label already exists with different
// endpoints.
func (s *Schema) AddEdgeLabel(l Label, src, dst Label) error {
	if ep, ok := s.edgeLabels[l]; ok {
		if ep.Src != src || ep.Dst != dst {
			return ErrSchemaConflict(l, "already declared with different endpoints")
		}
		return nil
	}
	s.edgeLabels[l] = Endpoints{Src: src, Dst: dst}
	// An edge label implicitly declares its endpoint node labels if not
	// already present, so MATCH patterns can reference them.
	s.nodeLabels[src] = struct{}{}
	s.nodeLabels[dst] = struct{}{}
	return nil
}

// Endpoints looks up the (src,dst) node-label typing for an edge label.
// Fails with UnknownLabel if the edge label was never declared.
func (s *Schema) Endpoints(l Label) (Endpoints, error) {
	ep, ok := s.edgeLabels[l]
	if !ok {
		return Endpoints{}, ErrUnknownLabel(l)
	}
	return ep, nil
}

func (s *Schema) HasNode(l Label) bool {
	_, ok := s.nodeLabels[l]
	return ok
}

func (s *Schema) HasEdge(l Label) bool {
	_, ok := s.edgeLabels[l]
	return ok
}

// NodeLabels returns the declared node labels in no particular order.
func (s *Schema) NodeLabels() []Label {
	out := make([]Label, 0, len(s.nodeLabels))
	for l := range s.nodeLabels {
		out = append(out, l)
	}
	return out
}

// EdgeLabels returns the declared edge labels with their endpoint typing.
func (s *Schema) EdgeLabels() map[Label]Endpoints {
	out := make(map[Label]Endpoints, len(s.edgeLabels))
	for l, ep := range s.edgeLabels {
		out[l] = ep
	}
	return out
}
