package inspect

import (
	"maps"
	"slices"

	"github.com/reusee/dscope"
	"go.starlark.net/repl"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/rvvm/luavm/logging"
	"github.com/rvvm/luavm/vm"
)

// Tap drops an interactive Starlark session in front of a live VM
// state: `snapshot()` and `events()` are bound as Starlark-callable
// globals returning the current call stack and drained trace events
// as Starlark values. This is read-only; nothing the session
// evaluates can mutate or resume the VM.
type Tap func(state *vm.State)

func (Module) Tap(logger logging.Logger) Tap {
	return func(state *vm.State) {
		logger.Info("inspector attached")
		defer logger.Info("inspector detached")

		globals := Bindings(state)
		logger.Info("inspector globals", "names", slices.Collect(maps.Keys(globals)))

		thread := &starlark.Thread{Name: "inspect"}
		repl.REPLOptions(&syntax.FileOptions{
			Set:             true,
			While:           true,
			TopLevelControl: true,
		}, thread, globals)
	}
}

// Module provides Tap to a dscope scope alongside logging.Module.
type Module struct {
	dscope.Module
}
