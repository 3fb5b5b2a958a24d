package main

import "fmt"

type cliOptions struct {
	astFile      string
	execute      string // inline AST JSON from -e/--execute, instead of a file
	configFile   string
	configPaths  []string
	repl         bool
	printOutput  bool
	trace        string // "none", "instructions", "coroutine", or "all"
	stack        bool
	breakOnError bool
}

// parseCLI is a small hand-rolled parser rather than the cmds package:
// this binary has a flat flag set, not the nested subcommand tree
// cmds.Executor is built for. -e/--execute takes AST JSON inline (this
// build has no Lua source lexer/parser to hand raw Lua text to) rather
// than a path; everything else reads as one positional chunk file.
func parseCLI(args []string) (cliOptions, error) {
	var opts cliOptions
	opts.configPaths = []string{"./lua.cue"}
	opts.trace = "none"

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--config":
			i++
			if i >= len(args) {
				return opts, fmt.Errorf("--config requires a path")
			}
			opts.configFile = args[i]
		case "--defaults":
			i++
			if i >= len(args) {
				return opts, fmt.Errorf("--defaults requires a path")
			}
			opts.configPaths = []string{args[i]}
		case "--repl":
			opts.repl = true
		case "-e", "--execute":
			i++
			if i >= len(args) {
				return opts, fmt.Errorf("-e/--execute requires inline AST JSON")
			}
			opts.execute = args[i]
		case "--print-output":
			opts.printOutput = true
		case "--trace":
			i++
			if i >= len(args) {
				return opts, fmt.Errorf("--trace requires a level: none, instructions, coroutine, or all")
			}
			switch args[i] {
			case "none", "instructions", "coroutine", "all":
				opts.trace = args[i]
			default:
				return opts, fmt.Errorf("--trace: unknown level %q (want none, instructions, coroutine, or all)", args[i])
			}
		case "--stack":
			opts.stack = true
		case "--break-on-error":
			opts.breakOnError = true
		default:
			if len(args[i]) > 0 && args[i][0] == '-' {
				return opts, fmt.Errorf("unknown flag %q", args[i])
			}
			if opts.astFile != "" {
				return opts, fmt.Errorf("unexpected argument %q", args[i])
			}
			opts.astFile = args[i]
		}
	}
	if opts.astFile == "" && opts.execute == "" {
		return opts, fmt.Errorf("usage: lua [--config file.toml] [--defaults file.cue] [--repl] " +
			"[-e code.ast.json] [--print-output] [--trace level] [--stack] [--break-on-error] <chunk.ast.json>")
	}
	return opts, nil
}
