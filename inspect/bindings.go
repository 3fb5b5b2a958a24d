package inspect

import (
	"go.starlark.net/starlark"

	"github.com/rvvm/luavm/vm"
)

// Bindings exposes snapshot()/events()/globals() as Starlark globals
// bound to state, for a caller that wants to drive its own read-eval
// loop (cmd/lua's --repl uses this with a readline front end) rather
// than the stdin-reading loop Tap launches.
func Bindings(state *vm.State) starlark.StringDict {
	return starlark.StringDict{
		"snapshot": starlark.NewBuiltin("snapshot", func(
			thread *starlark.Thread, b *starlark.Builtin,
			args starlark.Tuple, kwargs []starlark.Tuple,
		) (starlark.Value, error) {
			return toStarlarkValue(state.Snapshot()), nil
		}),
		"events": starlark.NewBuiltin("events", func(
			thread *starlark.Thread, b *starlark.Builtin,
			args starlark.Tuple, kwargs []starlark.Tuple,
		) (starlark.Value, error) {
			return toStarlarkValue(state.DrainEvents()), nil
		}),
		"globals": starlark.NewBuiltin("globals", func(
			thread *starlark.Thread, b *starlark.Builtin,
			args starlark.Tuple, kwargs []starlark.Tuple,
		) (starlark.Value, error) {
			return toStarlarkValue(state.Globals), nil
		}),
	}
}
