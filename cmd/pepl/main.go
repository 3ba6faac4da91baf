// Command pepl is a thin non-interactive wrapper around the pepl-core
// library, grounded on the teacher's own cmd/wazero: compile a space to a
// wasm module, run its test blocks, or dispatch one action and print the
// resulting state (SPEC_FULL.md C.1).
//
// There is no `.pepl` source-text parser in this module (ast.Program is
// documented as already-typechecked input), so the program to act on is
// selected by name from internal/examples' registry rather than read from
// a file path.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"

	"github.com/pepl-lang/pepl-core"
	"github.com/pepl-lang/pepl-core/ast"
	"github.com/pepl-lang/pepl-core/internal/eval"
	"github.com/pepl-lang/pepl-core/internal/examples"
	"github.com/pepl-lang/pepl-core/value"
)

// projectConfig is the pepl.toml shape a project directory may carry:
// `compile` turns the gas limit and page bounds into a pepl.CompileConfig;
// the engine and credentials entries are decoded but no subcommand uses
// them (SPEC_FULL.md A.2).
type projectConfig struct {
	GasLimit    uint64            `toml:"gas_limit"`
	MinPages    uint32            `toml:"min_pages"`
	MaxPages    uint32            `toml:"max_pages"`
	Engine      string            `toml:"engine"` // "wasmtime" or "wasmer"
	Credentials map[string]string `toml:"credentials"`
}

func defaultConfig() projectConfig {
	return projectConfig{GasLimit: 1_000_000, MinPages: 16, MaxPages: 256, Engine: "wasmtime"}
}

func loadConfig(path string) (projectConfig, error) {
	cfg := defaultConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("pepl: decode %s: %w", path, err)
	}
	return cfg, nil
}

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "usage: pepl <compile|test|run> <example> [args...]")
		os.Exit(2)
	}
	cmd, name := os.Args[1], os.Args[2]

	cfg, err := loadConfig("pepl.toml")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	program, ok := examples.Registry[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "pepl: unknown example %q (known: %s)\n", name, knownNames())
		os.Exit(2)
	}

	switch cmd {
	case "compile":
		if err := runCompile(program, cfg); err != nil {
			fmt.Fprintln(os.Stderr, "pepl:", err)
			os.Exit(1)
		}
	case "test":
		if err := runTests(program); err != nil {
			fmt.Fprintln(os.Stderr, "pepl:", err)
			os.Exit(1)
		}
	case "run":
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, "usage: pepl run <example> <action> [args...]")
			os.Exit(2)
		}
		if err := runAction(program, os.Args[3], os.Args[4:]); err != nil {
			fmt.Fprintln(os.Stderr, "pepl:", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintln(os.Stderr, "pepl: unknown subcommand", cmd)
		os.Exit(2)
	}
}

func knownNames() string {
	names := make([]string, 0, len(examples.Registry))
	for n := range examples.Registry {
		names = append(names, n)
	}
	return fmt.Sprint(names)
}

func runCompile(program *ast.Program, cfg projectConfig) error {
	compileCfg := pepl.NewCompileConfig().WithGasLimit(cfg.GasLimit).WithMemoryLimits(cfg.MinPages, cfg.MaxPages)
	wasmBytes, err := pepl.Compile(program, compileCfg)
	if err != nil {
		return fmt.Errorf("compile: %w", err)
	}
	out := program.Space.Name + ".wasm"
	if err := os.WriteFile(out, wasmBytes, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	fmt.Printf("wrote %s (%d bytes)\n", out, len(wasmBytes))
	return nil
}

func runTests(program *ast.Program) error {
	summary, err := pepl.RunTests(program.Space)
	if err != nil {
		return fmt.Errorf("run tests: %w", err)
	}
	for _, c := range summary.Cases {
		status := "ok"
		if !c.Passed {
			status = "FAIL: " + c.Message
		}
		fmt.Printf("  %s ... %s\n", c.Name, status)
	}
	fmt.Printf("%d passed, %d failed\n", summary.Passed, summary.Failed)
	if summary.Failed > 0 {
		return fmt.Errorf("%d test(s) failed", summary.Failed)
	}
	return nil
}

func runAction(program *ast.Program, action string, rawArgs []string) error {
	si, err := pepl.NewSpaceInstance(program.Space, nil)
	if err != nil {
		return fmt.Errorf("new instance: %w", err)
	}
	args := make([]value.Value, 0, len(rawArgs))
	for _, a := range rawArgs {
		args = append(args, parseArg(a))
	}
	result, err := si.Dispatch(action, args)
	if err != nil {
		return fmt.Errorf("dispatch %s: %w", action, err)
	}
	printDispatchResult(action, result)
	fmt.Println(value.ToString(si.StateSnapshot()))
	return nil
}

func printDispatchResult(action string, r eval.DispatchResult) {
	if r.Committed {
		fmt.Printf("%s: committed\n", action)
		return
	}
	fmt.Printf("%s: rolled back (%s)\n", action, r.InvariantError)
}

// parseArg interprets a bare CLI token as a PEPL value: a number if it
// parses as one, otherwise a string. There is no surface syntax here for
// bool/list/record literals; actions needing those are better exercised via
// internal/parity's Scenario builders than this CLI.
func parseArg(raw string) value.Value {
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return value.NumberValue(n)
	}
	return value.StringValue(raw)
}
