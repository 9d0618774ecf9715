package graph

import (
	"maps"
	"slices"
)

// Node is a row of N(id, label) plus its NP(node_id, key, value) rows.
type Node struct {
	ID    NodeID
	Label Label
	Props map[string]Value
}

// Edge is a row of E(id, src, dst, label) plus its EP rows.
type Edge struct {
	ID       EdgeID
	Src, Dst NodeID
	Label    Label
	Props    map[string]Value
}

// Store holds one graph's N/E/NP/EP relations plus the adjacency
// indexes needed for pattern matching: separate out/in adjacency maps
// keyed by node, a flat edge map for O(1) lookups by id, and a Clone
// that deep-copies props but shares nothing mutable with the original.
type Store struct {
	Schema *Schema

	nodes map[NodeID]*Node
	edges map[EdgeID]*Edge
	out   map[NodeID]map[EdgeID]*Edge
	in    map[NodeID]map[EdgeID]*Edge
}

func NewStore(schema *Schema) *Store {
	return &Store{
		Schema: schema,
		nodes:  make(map[NodeID]*Node),
		edges:  make(map[EdgeID]*Edge),
		out:    make(map[NodeID]map[EdgeID]*Edge),
		in:     make(map[NodeID]map[EdgeID]*Edge),
	}
}

// AddNode inserts N(id, label). Rejects a label the schema doesn't
// declare and a duplicate id.
func (s *Store) AddNode(id NodeID, label Label) error {
	if s.ContainsNode(id) {
		return ErrNodeExists(id)
	}
	if !s.Schema.HasNode(label) {
		return ErrUnknownLabel(label)
	}
	s.nodes[id] = &Node{ID: id, Label: label, Props: make(map[string]Value)}
	s.out[id] = make(map[EdgeID]*Edge)
	s.in[id] = make(map[EdgeID]*Edge)
	return nil
}

// AddEdge inserts E(id, src, dst, label), enforcing schema soundness:
// N(src, A) and N(dst, B) must already hold where (A, B) =
// Schema.Endpoints(label).
func (s *Store) AddEdge(id EdgeID, src, dst NodeID, label Label) error {
	if s.ContainsEdge(id) {
		return ErrEdgeExists(id)
	}
	ep, err := s.Schema.Endpoints(label)
	if err != nil {
		return err
	}
	srcNode, ok := s.nodes[src]
	if !ok {
		return ErrNodeMissing(src)
	}
	dstNode, ok := s.nodes[dst]
	if !ok {
		return ErrNodeMissing(dst)
	}
	if srcNode.Label != ep.Src {
		return ErrEndpointMismatch(label, srcNode.Label, ep.Src, "source")
	}
	if dstNode.Label != ep.Dst {
		return ErrEndpointMismatch(label, dstNode.Label, ep.Dst, "destination")
	}

	e := &Edge{ID: id, Src: src, Dst: dst, Label: label, Props: make(map[string]Value)}
	s.edges[id] = e
	s.out[src][id] = e
	s.in[dst][id] = e
	return nil
}

func (s *Store) SetNodeProp(id NodeID, key string, v Value) error {
	n, ok := s.nodes[id]
	if !ok {
		return ErrNodeMissing(id)
	}
	n.Props[key] = v
	return nil
}

func (s *Store) SetEdgeProp(id EdgeID, key string, v Value) error {
	e, ok := s.edges[id]
	if !ok {
		return ErrEdgeMissing(id)
	}
	e.Props[key] = v
	return nil
}

func (s *Store) ContainsNode(id NodeID) bool {
	_, ok := s.nodes[id]
	return ok
}

func (s *Store) ContainsEdge(id EdgeID) bool {
	_, ok := s.edges[id]
	return ok
}

func (s *Store) GetNode(id NodeID) (*Node, error) {
	n, ok := s.nodes[id]
	if !ok {
		return nil, ErrNodeMissing(id)
	}
	return n, nil
}

func (s *Store) GetEdge(id EdgeID) (*Edge, error) {
	e, ok := s.edges[id]
	if !ok {
		return nil, ErrEdgeMissing(id)
	}
	return e, nil
}

func (s *Store) Nodes() []*Node {
	return slices.Collect(maps.Values(s.nodes))
}

func (s *Store) Edges() []*Edge {
	return slices.Collect(maps.Values(s.edges))
}

func (s *Store) OutgoingEdges(id NodeID) []*Edge {
	return slices.Collect(maps.Values(s.out[id]))
}

func (s *Store) IncomingEdges(id NodeID) []*Edge {
	return slices.Collect(maps.Values(s.in[id]))
}

// Clone deep-copies the store's node/edge/property data into an
// independent Store sharing the same schema.
func (s *Store) Clone() *Store {
	clone := NewStore(s.Schema)
	for id, n := range s.nodes {
		clone.nodes[id] = &Node{ID: n.ID, Label: n.Label, Props: maps.Clone(n.Props)}
		clone.out[id] = make(map[EdgeID]*Edge)
		clone.in[id] = make(map[EdgeID]*Edge)
	}
	for id, e := range s.edges {
		ce := &Edge{ID: e.ID, Src: e.Src, Dst: e.Dst, Label: e.Label, Props: maps.Clone(e.Props)}
		clone.edges[id] = ce
		clone.out[e.Src][id] = ce
		clone.in[e.Dst][id] = ce
	}
	return clone
}
