// Package wiring composes the application's per-concern dscope
// modules into one struct, so cmd/lua builds a single scope and pulls
// out whatever it needs by type.
package wiring

import (
	"github.com/reusee/dscope"
	"github.com/rvvm/luavm/config"
	"github.com/rvvm/luavm/inspect"
	"github.com/rvvm/luavm/logging"
)

type Module struct {
	dscope.Module
	Config  config.Module
	Logging logging.Module
	Inspect inspect.Module
}

// New builds the root scope, seeded with the config file search
// paths the CLI resolved from flags.
func New(paths config.Paths) dscope.Scope {
	return dscope.New(
		new(Module),
		dscope.Provide(paths),
	)
}
