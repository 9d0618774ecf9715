// Command viewgraph-cli is the process entry point for the
// property-graph view engine: a REPL, a script runner, and a version
// subcommand wrapped in a cobra.Command tree, driving a viewgraph.Engine.
//
// The read-eval-print loop itself is a plain scan-dispatch-print cycle:
// read a line, hand it to the engine, print Result.String() or an
// error. rootCmd wraps it in persistent flags and subcommands so the
// same engine backs a REPL, a one-shot script runner, and a version
// command, with RunE's returned error turned into a nonzero exit by
// cobra itself.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ritamzico/viewgraph"
	"github.com/ritamzico/viewgraph/internal/config"
)

var (
	version = "0.1.0"

	flagPlatform  string
	flagWorkspace string
	flagConfig    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "viewgraph",
		Short: "viewgraph is a property-graph view engine",
		Long: `viewgraph compiles Cypher-like MATCH/CONSTRUCT view definitions into
a backend-independent Datalog program and evaluates it against a
pluggable storage adapter (in-memory or Badger-backed).`,
	}
	rootCmd.PersistentFlags().StringVar(&flagPlatform, "platform", "", "backend adapter to connect on startup (memory|badger)")
	rootCmd.PersistentFlags().StringVar(&flagWorkspace, "workspace", "", "graph to create/use on startup")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to a spec config file (flat key = value)")

	rootCmd.AddCommand(versionCmd(), replCmd(), execCmd())

	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(viewgraph.ExitCode(err))
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("viewgraph %s\n", version)
		},
	}
}

func replCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "start an interactive session",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEngine()
			if err != nil {
				return err
			}
			runLoop(e, bufio.NewScanner(os.Stdin), os.Stdout, os.Stderr, true)
			return nil
		},
	}
}

func execCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exec <file>",
		Short: "run a script of one command per line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEngine()
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening %s: %w", args[0], err)
			}
			defer f.Close()

			code := runLoop(e, bufio.NewScanner(f), os.Stdout, os.Stderr, false)
			if code != viewgraph.ExitOK {
				os.Exit(code)
			}
			return nil
		},
	}
}

// newEngine builds the session's Engine, applying --config first (so
// --platform/--workspace can still override a loaded file) and issuing
// `connect`/`use` the same way a config file's platform/workspace keys
// would: both are startup conveniences, not separate commands, so
// cmd/cli applies them itself rather than pushing that responsibility
// into the engine.
func newEngine() (*viewgraph.Engine, error) {
	var e *viewgraph.Engine
	if flagConfig != "" {
		f, err := os.Open(flagConfig)
		if err != nil {
			return nil, fmt.Errorf("opening config %s: %w", flagConfig, err)
		}
		defer f.Close()
		parsed, err := viewgraph.Configure(f)
		if err != nil {
			return nil, err
		}
		e = parsed
	} else {
		e = viewgraph.New()
	}

	ctx := context.Background()
	platform := flagPlatform
	if platform == "" {
		platform = e.Session.ConfigString(config.KeyPlatform, "")
	}
	if platform != "" {
		if _, err := e.Exec(ctx, fmt.Sprintf("connect %s", platform)); err != nil {
			return nil, err
		}
	}

	workspace := flagWorkspace
	if workspace == "" {
		workspace = e.Session.ConfigString(config.KeyWorkspace, "")
	}
	if workspace != "" {
		if _, err := e.Exec(ctx, fmt.Sprintf("create graph %s", workspace)); err != nil {
			// already existing is fine; `use` below is what actually matters
			_ = err
		}
		if _, err := e.Exec(ctx, fmt.Sprintf("use %s", workspace)); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// runLoop scans lines from in, executing each as a command against e
// and printing results/errors to out/errOut. When interactive is true
// it prints a prompt and a banner.
// Returns the process exit code the caller should use for a
// non-interactive run (the first error's code, or ExitOK).
func runLoop(e *viewgraph.Engine, scanner *bufio.Scanner, out, errOut *os.File, interactive bool) int {
	ctx := context.Background()
	code := viewgraph.ExitOK

	if interactive {
		fmt.Fprintln(out, "viewgraph — property-graph view engine")
		fmt.Fprintln(out, `Type "quit" or "exit" to leave.`)
	}

	for {
		if interactive {
			fmt.Fprint(out, "> ")
		}
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if lower := strings.ToLower(line); lower == "quit" || lower == "exit" {
			if interactive {
				fmt.Fprintln(out, "bye")
			}
			break
		}

		res, err := e.Exec(ctx, line)
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			if ec := viewgraph.ExitCode(err); ec != viewgraph.ExitOK && code == viewgraph.ExitOK {
				code = ec
			}
			continue
		}
		printResult(e, out, res)
	}
	return code
}

// printResult honors the `answer` option (emit result tuples vs. a
// bare count) for tuple results only — every other Result kind already
// prints something more specific than a row dump.
func printResult(e *viewgraph.Engine, out *os.File, res viewgraph.Result) {
	tr, ok := res.(viewgraph.TupleResult)
	if !ok {
		fmt.Fprintln(out, res.String())
		return
	}
	if e.Session.ConfigBool(config.KeyAnswer, true) {
		fmt.Fprintln(out, tr.String())
		return
	}
	fmt.Fprintf(out, "%d rows\n", len(tr.Rows))
}
