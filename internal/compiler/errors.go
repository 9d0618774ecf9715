package compiler

import "fmt"

// Error is the compiler's typed error, using the same Kind/Message
// convention as graph.Error and parser.ParseError. Kind is one of
// UnsafeRule or SkolemArityMismatch, the two error kinds the view
// compiler itself can raise.
type Error struct {
	Kind    string
	Message string
}

func (e Error) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Message) }

func errUnsafeRule(msg string) error {
	return Error{Kind: "UnsafeRule", Message: msg}
}

func errSkolemArityMismatch(fnName string, want, got int) error {
	return Error{Kind: "SkolemArityMismatch", Message: fmt.Sprintf(
		"Skolem function %q used with arity %d elsewhere in this view, now called with arity %d", fnName, want, got)}
}
