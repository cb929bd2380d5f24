// Package main provides the chainforge CLI — the reference command-line
// entrypoint for validating, running, diagramming, and debugging plans.
//
//	chainforge validate <plan.yaml>
//	chainforge run <plan.yaml> [--tools dir] [--trace file] [--demo]
//	chainforge diagram <plan.yaml> [--format mermaid|ascii]
//	chainforge debug <plan.yaml> [--demo]
//	chainforge test <scenario.yaml...> [--tools dir] [--demo]
//	chainforge schema plan|tool
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/relaykit/chainforge/internal/clilog"
	"github.com/relaykit/chainforge/internal/examples"
	"github.com/relaykit/chainforge/internal/testkit"
	"github.com/relaykit/chainforge/pkg/debugger"
	"github.com/relaykit/chainforge/pkg/diagram"
	"github.com/relaykit/chainforge/pkg/engine"
	"github.com/relaykit/chainforge/pkg/mcpbridge"
	"github.com/relaykit/chainforge/pkg/plan"
	"github.com/relaykit/chainforge/pkg/registry"
	"github.com/relaykit/chainforge/pkg/toolspec"
	"github.com/relaykit/chainforge/pkg/trace"
	"github.com/relaykit/chainforge/pkg/validate"
)

var (
	version = "dev"
	logger  *slog.Logger
)

func main() {
	logger = clilog.New(os.Stderr, slog.LevelInfo)
	if err := rootCmd.Execute(); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "chainforge",
	Short: "A declarative tool-chain execution engine",
}

// --- shared helpers ---

// buildRegistry loads every tool/v1 document from toolsDir and registers
// each one's actions, optionally also seeding the built-in demo tools.
// stdio-transport specs register directly; mcp-transport specs dial their
// declared server and are registered through pkg/mcpbridge. The returned
// closers shut down any dialed MCP server subprocesses and must be closed
// by the caller once the registry is no longer needed.
func buildRegistry(ctx context.Context, toolsDir string, withDemoTools bool) (*registry.Registry, []io.Closer, error) {
	reg := registry.New()
	if withDemoTools {
		examples.Register(reg)
	}
	if toolsDir == "" {
		return reg, nil, nil
	}
	matches, err := filepath.Glob(filepath.Join(toolsDir, "*.tool.yaml"))
	if err != nil {
		return nil, nil, fmt.Errorf("glob tools dir: %w", err)
	}
	var closers []io.Closer
	for _, path := range matches {
		spec, err := toolspec.LoadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("load tool %s: %w", path, err)
		}
		switch spec.Meta.Transport {
		case toolspec.TransportMCP:
			cli, err := mcpbridge.RegisterDeclarativeMCPTool(ctx, reg, spec)
			if err != nil {
				closeAll(closers)
				return nil, nil, fmt.Errorf("register tool %s: %w", path, err)
			}
			closers = append(closers, cli)
		default:
			registry.RegisterSubprocessTool(reg, spec)
		}
	}
	return reg, closers, nil
}

func closeAll(closers []io.Closer) {
	for _, c := range closers {
		c.Close()
	}
}

func loadAndValidate(path string, reg *registry.Registry) (*plan.Plan, error) {
	p, err := plan.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if errs := validate.Plan(p, reg); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "  %s\n", e.Error())
		}
		return nil, fmt.Errorf("plan failed validation with %d error(s)", len(errs))
	}
	return p, nil
}

// --- validate ---

var validateCmd = &cobra.Command{
	Use:   "validate <plan.yaml>",
	Short: "Validate a plan document against its schema and the tool registry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, closers, err := buildRegistry(context.Background(), toolsDirFlag, demoFlag)
		if err != nil {
			return err
		}
		defer closeAll(closers)
		p, err := plan.LoadFile(args[0])
		if err != nil {
			return err
		}
		errs := validate.Plan(p, reg)
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "  %s\n", e.Error())
		}
		if len(errs) > 0 {
			return fmt.Errorf("validation failed with %d error(s)", len(errs))
		}
		fmt.Printf("✓ %s is valid (%d steps)\n", p.ID, len(p.Steps))
		return nil
	},
}

// --- run ---

var (
	tracePath string
)

var runCmd = &cobra.Command{
	Use:   "run <plan.yaml>",
	Short: "Validate and execute a plan, logging its events to stderr",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, closers, err := buildRegistry(context.Background(), toolsDirFlag, demoFlag)
		if err != nil {
			return err
		}
		defer closeAll(closers)
		p, err := loadAndValidate(args[0], reg)
		if err != nil {
			return err
		}

		var tw *trace.Writer
		var closer func()
		if tracePath != "" {
			w, f, err := trace.NewFileWriter(tracePath)
			if err != nil {
				return err
			}
			tw, closer = w, func() { f.Close() }
			defer closer()
		}

		ch := engine.New(p, reg).Run(context.Background())
		for ev := range ch {
			logger.Info(ev.Message, "kind", ev.Kind, "step", ev.StepID)
			if tw != nil {
				if err := tw.Record(ev); err != nil {
					logger.Warn("trace write failed", "error", err)
				}
			}
			if ev.Kind == "finish" && ev.Verdict != "success" {
				return fmt.Errorf("run finished with verdict %s", ev.Verdict)
			}
		}
		return nil
	},
}

// --- diagram ---

var diagramFormat string

var diagramCmd = &cobra.Command{
	Use:   "diagram <plan.yaml>",
	Short: "Render a plan's step graph as Mermaid or ASCII",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := plan.LoadFile(args[0])
		if err != nil {
			return err
		}
		out, err := diagram.Generate(p, diagram.Format(diagramFormat))
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}

// --- debug ---

var debugCmd = &cobra.Command{
	Use:   "debug <plan.yaml>",
	Short: "Step through a plan run interactively",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, closers, err := buildRegistry(context.Background(), toolsDirFlag, demoFlag)
		if err != nil {
			return err
		}
		defer closeAll(closers)
		p, err := loadAndValidate(args[0], reg)
		if err != nil {
			return err
		}
		return debugger.New(p).Run(context.Background(), reg)
	},
}

// --- test ---

var testCmd = &cobra.Command{
	Use:   "test <scenario.yaml...>",
	Short: "Run scenario tests: execute a plan and assert on its result",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, closers, err := buildRegistry(context.Background(), toolsDirFlag, demoFlag)
		if err != nil {
			return err
		}
		defer closeAll(closers)

		allPassed := true
		for _, path := range args {
			sc, err := testkit.LoadScenarioFile(path)
			if err != nil {
				return err
			}
			p, err := loadAndValidate(sc.Plan, reg)
			if err != nil {
				fmt.Printf("  ! %s: %s\n", sc.Name, err)
				allPassed = false
				continue
			}
			result := engine.New(p, reg).RunSync(context.Background(), true)
			results := testkit.Evaluate(&sc.Expect, result)
			printScenarioResult(sc.Name, results)
			if testkit.HasFailures(results) {
				allPassed = false
			}
		}

		if !allPassed {
			return fmt.Errorf("tests failed")
		}
		return nil
	},
}

func printScenarioResult(name string, results []testkit.AssertionResult) {
	icon := "✓"
	if testkit.HasFailures(results) {
		icon = "✗"
	}
	fmt.Printf("  %s %s\n", icon, name)
	for _, r := range results {
		if !r.Passed {
			fmt.Printf("      ✗ %s: %s\n", r.Type, r.Message)
		}
	}
}

// --- schema ---

var schemaCmd = &cobra.Command{
	Use:   "schema [plan|tool]",
	Short: "Export the JSON Schema for a plan or tool document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var data []byte
		var err error
		switch args[0] {
		case "plan":
			data, err = plan.GenerateJSONSchema()
		case "tool":
			data, err = toolspec.GenerateJSONSchema()
		default:
			return fmt.Errorf("unknown schema type %q, use 'plan' or 'tool'", args[0])
		}
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}

// --- version ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version info",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("chainforge %s\n", version)
	},
}

var (
	toolsDirFlag string
	demoFlag     bool
)

func init() {
	for _, cmd := range []*cobra.Command{validateCmd, runCmd, debugCmd, testCmd} {
		cmd.Flags().StringVar(&toolsDirFlag, "tools", "", "Directory of tool/v1 YAML documents to load")
		cmd.Flags().BoolVar(&demoFlag, "demo", false, "Also register the built-in demo tools")
	}
	runCmd.Flags().StringVar(&tracePath, "trace", "", "Append the run's event stream to an NDJSON file")
	diagramCmd.Flags().StringVar(&diagramFormat, "format", "ascii", "Diagram format: mermaid or ascii")

	rootCmd.AddCommand(validateCmd, runCmd, diagramCmd, debugCmd, testCmd, schemaCmd, versionCmd)
}
