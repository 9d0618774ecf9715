package graph

import "fmt"

// Error is the graph package's typed error: a Kind/Message pair rather
// than a sentinel-error tree, so callers can switch on Kind while
// still getting a readable message.
type Error struct {
	Kind    string
	Message string
}

func (e Error) Error() string {
	return fmt.Sprintf("graph error (%v): %v", e.Kind, e.Message)
}

func ErrUnknownLabel(label Label) error {
	return Error{Kind: "UnknownLabel", Message: fmt.Sprintf("label %q is not declared in the schema", label)}
}

func ErrSchemaConflict(label Label, msg string) error {
	return Error{Kind: "SchemaConflict", Message: fmt.Sprintf("label %q: %s", label, msg)}
}

func ErrNodeExists(id NodeID) error {
	return Error{Kind: "NodeAlreadyExists", Message: fmt.Sprintf("node %d already exists", id)}
}

func ErrNodeMissing(id NodeID) error {
	return Error{Kind: "NodeDoesNotExist", Message: fmt.Sprintf("node %d does not exist", id)}
}

func ErrEdgeExists(id EdgeID) error {
	return Error{Kind: "EdgeAlreadyExists", Message: fmt.Sprintf("edge %d already exists", id)}
}

func ErrEdgeMissing(id EdgeID) error {
	return Error{Kind: "EdgeDoesNotExist", Message: fmt.Sprintf("edge %d does not exist", id)}
}

func ErrEndpointMismatch(edgeLabel Label, got Label, want Label, end string) error {
	return Error{
		Kind: "SchemaConflict",
		Message: fmt.Sprintf("edge label %q requires %s node label %q, got %q", edgeLabel, end, want, got),
	}
}
