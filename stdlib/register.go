// Package stdlib implements the Lua standard library surface the VM
// exposes to compiled programs: the base library (print, pcall,
// type, ...) plus the string, table, math, os, io, coroutine, debug
// and package libraries, each registered as vm.ForeignFunc values on
// the VM's globals table.
package stdlib

import (
	"github.com/rvvm/luavm/value"
	"github.com/rvvm/luavm/vm"
)

// Register installs every standard library table into s.Globals,
// matching a fresh Lua interpreter's global environment. os/io are
// always the sandboxed subset (clock/time/date-like introspection and
// io.write only): this VM grants scripts no filesystem or process
// authority at all.
//
// packagePath becomes package.path; an empty string falls back to the
// same "./?.lua;./?/init.lua" default config.Default uses, so callers
// that don't have a config.Settings handy (tests, ad-hoc embedding)
// can pass "".
func Register(s *vm.State, packagePath string) {
	registerBase(s)
	registerCoroutine(s)
	registerTable(s)
	registerString(s)
	registerMath(s)
	registerOS(s)
	registerIO(s)
	registerDebug(s)
	registerPackage(s, packagePath)
}

func newLib(s *vm.State, name string) *value.Table {
	t := value.NewTable()
	s.Globals.Set(name, t)
	return t
}

func arg(args []value.Value, i int) value.Value {
	if i < 0 || i >= len(args) {
		return nil
	}
	return args[i]
}

func argString(args []value.Value, i int) (string, bool) {
	v := arg(args, i)
	return value.ToStringValue(v)
}

func argInt(args []value.Value, i int) (int64, bool) {
	return value.ToInt(arg(args, i))
}

func argTable(args []value.Value, i int) (*value.Table, bool) {
	t, ok := arg(args, i).(*value.Table)
	return t, ok
}

// firstOf returns the first value of a multi-result call, or nil.
func firstOf(vs []value.Value) value.Value {
	if len(vs) == 0 {
		return nil
	}
	return vs[0]
}
