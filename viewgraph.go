// Package viewgraph is the embeddable entry point for the property-graph
// view engine: parsing one line of surface syntax and running it
// against a Session. It wires parser.ParseLine and catalog.Session
// into a single Engine surface shared by the CLI and any embedder.
package viewgraph

import (
	"context"
	"io"

	"github.com/ritamzico/viewgraph/internal/assembler"
	"github.com/ritamzico/viewgraph/internal/backend"
	"github.com/ritamzico/viewgraph/internal/catalog"
	"github.com/ritamzico/viewgraph/internal/compiler"
	"github.com/ritamzico/viewgraph/internal/config"
	"github.com/ritamzico/viewgraph/internal/graph"
	"github.com/ritamzico/viewgraph/internal/parser"
	"github.com/ritamzico/viewgraph/internal/result"
	"github.com/ritamzico/viewgraph/internal/rewriter"
	"github.com/ritamzico/viewgraph/internal/typecheck"
)

// Result and its concrete variants are re-exported under this
// package's own name, for callers that don't want to import
// internal/... directly.
type (
	Result         = result.Result
	TupleResult    = result.TupleResult
	MutationResult = result.MutationResult
	ListResult     = result.ListResult
	SchemaResult   = result.SchemaResult
	ViewsResult    = result.ViewsResult
	ProgramResult  = result.ProgramResult
	EgdsResult     = result.EgdsResult
)

// Engine couples a Session to the surface parser, so a caller never has
// to import internal/parser or internal/catalog directly.
type Engine struct {
	Session *catalog.Session
}

// New builds an Engine with default options (no config file).
func New() *Engine {
	return &Engine{Session: catalog.NewSession(config.New())}
}

// Configure builds an Engine from a parsed config file.
func Configure(r io.Reader) (*Engine, error) {
	cfg, err := config.Parse(r)
	if err != nil {
		return nil, err
	}
	return &Engine{Session: catalog.NewSession(cfg)}, nil
}

// Exec parses and runs one line of surface syntax.
func (e *Engine) Exec(ctx context.Context, line string) (Result, error) {
	stmt, err := parser.ParseLine(line)
	if err != nil {
		return nil, err
	}
	return e.Session.Execute(ctx, stmt)
}

// Exit codes returned by the CLI.
const (
	ExitOK            = 0
	ExitParseError    = 1
	ExitSchemaError   = 2
	ExitBackendError  = 3
	ExitInternalError = 4
)

// ExitCode maps an error returned by Exec to a CLI exit code. Every
// package in this module reports errors as a small typed struct
// rather than a sentinel, so this is a type switch rather than an
// errors.Is chain; within a package whose Error carries several
// Kinds, a cyclic view dependency (detected only once view
// composition is walked) escalates to the internal-error code and a
// catalog BackendError to the backend code; every other Kind stays in
// the plain user-input/schema bucket.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch e := err.(type) {
	case parser.ParseError:
		return ExitParseError
	case typecheck.Error:
		return ExitSchemaError
	case graph.Error:
		return ExitSchemaError
	case compiler.Error:
		return ExitSchemaError
	case catalog.Error:
		switch e.Kind {
		case "CyclicViewDependency":
			return ExitInternalError
		case "BackendError":
			return ExitBackendError
		default:
			return ExitSchemaError
		}
	case rewriter.Error:
		if e.Kind == "CyclicViewDependency" {
			return ExitInternalError
		}
		return ExitSchemaError
	case assembler.Error:
		return ExitInternalError
	case backend.Error:
		return ExitBackendError
	default:
		return ExitInternalError
	}
}
