package result

import "fmt"

// MutationResult acknowledges a command that changed catalog or graph
// state (CREATE/DROP/INSERT/IMPORT/OPTION) rather than returning rows.
type MutationResult struct {
	Message string
}

func (r MutationResult) Kind() Kind { return MutationResultKind }

func (r MutationResult) String() string { return r.Message }

func Ack(format string, args ...any) MutationResult {
	return MutationResult{Message: fmt.Sprintf(format, args...)}
}
