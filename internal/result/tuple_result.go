package result

import (
	"fmt"
	"strings"
)

// TupleResult is the answer to a MATCH...FROM...RETURN query: the
// return-variable names (for header printing) and the matching rows,
// each row ordered the same as Vars. String renders a count line
// followed by one formatted line per result.
type TupleResult struct {
	Vars []string
	Rows [][]string
}

func (r TupleResult) Kind() Kind { return TupleResultKind }

func (r TupleResult) String() string {
	if len(r.Rows) == 0 {
		return "(0 rows)"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d rows):", strings.Join(r.Vars, ", "), len(r.Rows))
	for _, row := range r.Rows {
		fmt.Fprintf(&b, "\n  (%s)", strings.Join(row, ", "))
	}
	return b.String()
}
