// Command lua runs compiled Lua chunks on the register VM. Lexing and
// parsing Lua source are an external front-end concern: this binary's
// input is a chunk already parsed into ast.Block JSON, which an
// external tokenizer/parser can produce. That keeps the in-repo
// pipeline boundary exactly at compiler.Compile.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rvvm/luavm/ast"
	"github.com/rvvm/luavm/compiler"
	"github.com/rvvm/luavm/config"
	"github.com/rvvm/luavm/stdlib"
	"github.com/rvvm/luavm/value"
	"github.com/rvvm/luavm/vm"
	"github.com/rvvm/luavm/wiring"
)

// Exit codes, per the CLI's documented contract: 0 success, 1 runtime
// error, 2 compile error, 3 usage error.
const (
	exitOK           = 0
	exitRuntimeError = 1
	exitCompileError = 2
	exitUsageError   = 3
)

func main() {
	opts, err := parseCLI(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitUsageError)
	}

	scope := wiring.New(opts.configPaths)
	settings := config.Default
	scope.Call(func(s config.Settings) { settings = s })
	if opts.configFile != "" {
		if s, err := config.LoadOverride(opts.configFile, settings); err == nil {
			settings = s
		} else {
			fmt.Fprintln(os.Stderr, "warning: reading --config:", err)
		}
	}

	var data []byte
	source := opts.astFile
	if opts.execute != "" {
		data = []byte(opts.execute)
		source = "<execute>"
	} else {
		data, err = os.ReadFile(opts.astFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(exitUsageError)
		}
	}
	var chunk ast.Block
	if err := json.Unmarshal(data, &chunk); err != nil {
		fmt.Fprintln(os.Stderr, "error decoding ast:", err)
		os.Exit(exitUsageError)
	}

	prog, err := compiler.Compile(source, &chunk)
	if err != nil {
		fmt.Fprintln(os.Stderr, "compile error:", err)
		os.Exit(exitCompileError)
	}

	state := vm.New(prog)
	state.StepBudget = settings.StepBudget
	state.SetTracing(settings.TraceLevel != "off" || opts.trace != "none")
	stdlib.Register(state, settings.PackagePath)

	runErr := state.Run()

	if opts.trace != "none" {
		emitTrace(opts.trace, state.DrainEvents())
	}

	if runErr != nil && opts.breakOnError {
		printStack(state)
	} else if opts.stack {
		printStack(state)
	}

	if opts.printOutput && runErr == nil {
		printOutput(state.LastReturn())
	}

	if opts.repl {
		attachInspector(state)
	}

	if runErr != nil {
		fmt.Fprintln(os.Stderr, state.Traceback(runErr.Error()))
		os.Exit(exitRuntimeError)
	}
}

// emitTrace writes the requested subset of drained events as
// newline-delimited JSON, one line per event with the documented
// {tick, kind, pc, coroutine_id, payload} shape.
func emitTrace(level string, events []vm.Event) {
	enc := json.NewEncoder(os.Stdout)
	for _, ev := range events {
		if !traceLevelWants(level, ev.Kind) {
			continue
		}
		payload := ev.Label
		if ev.Detail != "" {
			payload = ev.Label + ":" + ev.Detail
		}
		if err := enc.Encode(map[string]any{
			"tick":         ev.Tick,
			"kind":         string(ev.Kind),
			"pc":           ev.PC,
			"coroutine_id": ev.Coroutine,
			"payload":      payload,
		}); err != nil {
			fmt.Fprintln(os.Stderr, "trace encode error:", err)
			return
		}
	}
}

func traceLevelWants(level string, kind vm.EventKind) bool {
	switch level {
	case "all":
		return true
	case "instructions":
		return kind == vm.EventInstruction || kind == vm.EventCall || kind == vm.EventReturn || kind == vm.EventError
	case "coroutine":
		return kind == vm.EventCoroutine || kind == vm.EventError
	default:
		return false
	}
}

// printStack dumps the call stack via state.Snapshot, the basis for
// the --stack flag and --break-on-error's on-failure dump.
func printStack(state *vm.State) {
	snap := state.Snapshot()
	fmt.Fprintf(os.Stderr, "stack (coroutine %s, pc %d):\n", snap.Coroutine, snap.PC)
	for i := len(snap.Frames) - 1; i >= 0; i-- {
		f := snap.Frames[i]
		fmt.Fprintf(os.Stderr, "  #%d %s (pc=%d)\n", i, f.Function, f.PC)
	}
}

func printOutput(results []value.Value) {
	for _, v := range results {
		fmt.Println(value.ToDisplayString(v))
	}
}
