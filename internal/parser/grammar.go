// Package parser turns one line of surface syntax into an
// internal/ast Statement or Query, using participle/v2 as its
// lexer-plus-grammar-combinator library. The token set is a
// Float/Int/String/Ident/Punct/Whitespace split, sized for the full
// view/query grammar below.
package parser

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var dslLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"`},
	{Name: "Float", Pattern: `[0-9]+\.[0-9]+`},
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Punct", Pattern: `->|<=|>=|!=|[(){}\[\]:,.=<>*-]`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
})

var dslParser = participle.MustBuild[Grammar](
	participle.Lexer(dslLexer),
	participle.Unquote("String"),
	participle.CaseInsensitive("Ident"),
	participle.Elide("Whitespace"),
	participle.UseLookahead(4),
)

// Grammar is the entry production: one statement or query per line,
// matching cmd/cli's REPL, which expects one command per input line.
type Grammar struct {
	Pos  lexer.Position
	Stmt *StatementAST `@@`
}

// StatementAST is the ordered union of every top-level command. Field
// order matters: participle tries alternatives top to bottom and
// backtracks on failure, so the longer "create graph/node/edge"
// prefixes must be tried before the bare "CREATE (kind) VIEW" form.
type StatementAST struct {
	Connect     *ConnectAST         `"connect" @@`
	Disconnect  bool                `| @"disconnect"`
	CreateGraph *NameAST            `| "create" "graph" @@`
	DropGraph   *NameAST            `| "drop" "graph" @@`
	DropView    *NameAST            `| "drop" "view" @@`
	CreateNode  *CreateNodeLabelAST `| "create" "node" @@`
	CreateEdge  *CreateEdgeLabelAST `| "create" "edge" @@`
	Use         *NameAST            `| "use" @@`
	List        bool                `| @"list"`
	Schema      bool                `| @"schema"`
	InsertN     *InsertNAST         `| "insert" "N" @@`
	InsertE     *InsertEAST         `| "insert" "E" @@`
	InsertNP    *InsertPropAST      `| "insert" "NP" @@`
	InsertEP    *InsertPropAST      `| "insert" "EP" @@`
	Import      *ImportAST          `| "import" @@`
	CreateView  *CreateViewAST      `| "create" @@`
	Query       *QueryAST           `| "match" @@`
	Views       bool                `| @"views"`
	Program     bool                `| @"program"`
	Egds        bool                `| @"egds"`
	Option      *OptionAST          `| "option" @@`
	Quit        bool                `| @("quit" | "exit")`
}

type ConnectAST struct {
	Backend string `@Ident`
}

type NameAST struct {
	Name string `@Ident`
}

type CreateNodeLabelAST struct {
	Label string `@Ident`
}

type CreateEdgeLabelAST struct {
	Label string `@Ident`
	Src   string `"(" @Ident`
	Dst   string `"->" @Ident ")"`
}

type InsertNAST struct {
	ID    string `"(" @Int`
	Label string `"," @String ")"`
}

type InsertEAST struct {
	ID    string `"(" @Int`
	Src   string `"," @Int`
	Dst   string `"," @Int`
	Label string `"," @String ")"`
}

type InsertPropAST struct {
	ID    string `"(" @Int`
	Key   string `"," @String`
	Value string `"," @String ")"`
}

type ImportAST struct {
	Relation string `@("N" | "E" | "NP" | "EP")`
	Path     string `"from" @String`
}

// CreateViewAST is "CREATE (virtual|materialized|hybrid) VIEW <name>
// ON <src> [WITH DEFAULT MAP] ( ruleBlock (UNION ruleBlock)* )".
type CreateViewAST struct {
	Kind       string         `@("virtual" | "materialized" | "hybrid")`
	Name       string         `"view" @Ident`
	Source     string         `"on" @Ident`
	DefaultMap bool           `( @("with" "default" "map") )?`
	Rules      []RuleBlockAST `"(" @@ ("union" @@)* ")"`
}

// RuleBlockAST is "match [where] [mapping*] [construct] [add*]
// [delete*] [set*]".
type RuleBlockAST struct {
	Match     PatternAST    `"match" @@`
	Where     *ExprAST      `( "where" @@ )?`
	Mappings  []MappingAST  `( "map" @@ )*`
	Construct *PatternAST   `( "construct" @@ )?`
	Adds      []ChainAST    `( "add" @@ )*`
	Deletes   []DeleteAST   `( "delete" @@ )*`
	Sets      []SetAST      `( "set" @@ )*`
}

type MappingAST struct {
	From string `@Ident`
	To   string `"->" @Ident`
}

type DeleteAST struct {
	Var string `"(" @Ident ")"`
}

// SetAST is "SET Var = SK(string, Var*)".
type SetAST struct {
	Var    string   `@Ident "="`
	FnName string   `"SK" "(" @String`
	Args   []string `( "," @Ident )* ")"`
}

// PatternAST is a comma-separated list of pattern chains, e.g.
// "(a:Person)-[x:Knows]->(b:Person), (c:Person)".
type PatternAST struct {
	Chains []ChainAST `@@ ( "," @@ )*`
}

// ChainAST is one node, or a node followed by one or more
// edge-then-node steps: (a)-[x:L]->(b)-[y:L2]->(c).
type ChainAST struct {
	First PatternNodeAST `@@`
	Steps []StepAST      `@@*`
}

type StepAST struct {
	Edge PatternEdgeAST `"-" "[" @@ "]" "->"`
	Node PatternNodeAST `@@`
}

type PatternNodeAST struct {
	Var   string `"(" @Ident`
	Label string `( ":" @Ident )? ")"`
}

type PatternEdgeAST struct {
	Var   string `@Ident`
	Label string `( ":" @Ident )?`
	Star  bool   `@"*"?`
}

// ExprAST is a WHERE clause: one or more comparisons joined by AND —
// a Datalog rule body already supports a conjunction of literals, so
// this is the natural surface-syntax match for that.
type ExprAST struct {
	First ComparisonAST   `@@`
	Rest  []ComparisonAST `( "and" @@ )*`
}

type ComparisonAST struct {
	Left  OperandAST `@@`
	Op    string     `@( "<=" | ">=" | "!=" | "<" | ">" | "=" )`
	Right OperandAST `@@`
}

type OperandAST struct {
	Ref *RefAST `@@`
	Lit *LitAST `| @@`
}

type RefAST struct {
	Var string `@Ident "."`
	Key string `@Ident`
}

type LitAST struct {
	Str *string `@String`
	Num *string `| @( Float | Int )`
}

// QueryAST is "pattern FROM Id [WHERE expr] RETURN (var),(var),..." —
// the leading "match" keyword is consumed by StatementAST before
// recursing here.
type QueryAST struct {
	Match  PatternAST `@@`
	From   string     `"from" @Ident`
	Where  *ExprAST   `( "where" @@ )?`
	Return []string   `"return" "(" @Ident ")" ( "," "(" @Ident ")" )*`
}

type OptionAST struct {
	Name  string `@Ident`
	Value string `@( "on" | "off" )`
}
