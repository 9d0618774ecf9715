package ast

// Query is "MATCH pattern FROM src [WHERE expr] RETURN var,...".
type Query struct {
	Match  Pattern
	From   string
	Where  Expr
	Return []string
}
