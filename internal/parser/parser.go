package parser

import (
	"github.com/alecthomas/participle/v2"

	"github.com/ritamzico/viewgraph/internal/ast"
)

// ParseLine parses one line of surface syntax into a Statement
// (queries come back wrapped as ast.QueryStmt).
func ParseLine(line string) (ast.Statement, error) {
	g, err := dslParser.ParseString("", line)
	if err != nil {
		pos := ""
		if pe, ok := err.(participle.Error); ok {
			pos = pe.Position().String()
		}
		return nil, ParseError{Pos: pos, Message: err.Error()}
	}
	if g.Stmt == nil {
		return nil, ParseError{Message: "empty command"}
	}
	return convert(g)
}
