package stdlib

import (
	"fmt"

	"github.com/rvvm/luavm/value"
	"github.com/rvvm/luavm/vm"
)

// sandboxEntry records a module-specific environment registered via
// package.sandbox: the module's loader runs with s.Globals swapped to
// env for the duration of the call, optionally seeded with a snapshot
// of the root globals first.
type sandboxEntry struct {
	env     *value.Table
	inherit bool
}

// registerPackage installs package.preload/loaded/path/searchers/sandbox
// and require(), plus the global load/loadfile/dofile names. This VM
// build never embeds a Lua lexer/parser (source tokenizing is an
// external front-end concern, wired only by the CLI at the top
// level), so load/loadfile/dofile raise rather than silently no-op:
// there is no way to turn a source string into a callable chunk from
// inside this package. The default "lua" searcher inherited from that
// same absence of a parser can never resolve a name against
// package.path; it exists so require()'s searcher-walking contract is
// uniform even though only the preload searcher and any
// script-installed searchers can actually succeed.
func registerPackage(s *vm.State, packagePath string) {
	if packagePath == "" {
		packagePath = "./?.lua;./?/init.lua"
	}
	lib := newLib(s, "package")
	preload := value.NewTable()
	loaded := value.NewTable()
	lib.Set("preload", preload)
	lib.Set("loaded", loaded)
	lib.Set("path", packagePath)
	searchers := value.NewTable()
	lib.Set("searchers", searchers)

	sandboxes := make(map[string]*sandboxEntry)

	preloadSearcher := vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		name, _ := argString(args, 0)
		if loader := preload.Get(name); loader != nil {
			return []value.Value{loader}, nil
		}
		return []value.Value{nil, fmt.Sprintf("no field package.preload[%q]", name)}, nil
	})
	luaSearcher := vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		name, _ := argString(args, 0)
		return []value.Value{nil, fmt.Sprintf("no file matching %q on package.path (no Lua source compiler in this build)", name)}, nil
	})
	searchers.Set(int64(1), preloadSearcher)
	searchers.Set(int64(2), luaSearcher)

	s.Globals.Set("require", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		name, ok := argString(args, 0)
		if !ok {
			return nil, s.Raisef("bad argument #1 to 'require' (string expected)")
		}
		if v := loaded.Get(name); v != nil {
			return []value.Value{v}, nil
		}
		loader, errs, err := findLoader(s, searchers, name)
		if err != nil {
			return nil, err
		}
		if loader == nil {
			return nil, s.Raisef("module %q not found:%s", name, errs)
		}
		callGlobals := s.Globals
		if sb, ok := sandboxes[name]; ok {
			callGlobals = sandboxedEnv(s.Globals, sb)
		}
		saved := s.Globals
		s.Globals = callGlobals
		res, err := s.CallSync(loader, []value.Value{name})
		s.Globals = saved
		if err != nil {
			return nil, err
		}
		result := firstOf(res)
		if result == nil {
			result = true
		}
		loaded.Set(name, result)
		return []value.Value{result}, nil
	}))

	lib.Set("sandbox", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		name, ok := argString(args, 0)
		if !ok {
			return nil, s.Raisef("bad argument #1 to 'sandbox' (string expected)")
		}
		env, ok := arg(args, 1).(*value.Table)
		if !ok {
			return nil, s.Raisef("bad argument #2 to 'sandbox' (table expected)")
		}
		inherit := value.Truthy(arg(args, 2))
		sandboxes[name] = &sandboxEntry{env: env, inherit: inherit}
		return nil, nil
	}))

	unsupported := func(name string) vm.ForeignFunc {
		return func(s *vm.State, args []value.Value) ([]value.Value, error) {
			return nil, s.Raisef("%s is not available: this build has no embedded Lua source compiler", name)
		}
	}
	s.Globals.Set("load", unsupported("load"))
	s.Globals.Set("loadstring", unsupported("loadstring"))
	s.Globals.Set("loadfile", unsupported("loadfile"))
	s.Globals.Set("dofile", unsupported("dofile"))
}

// findLoader walks searchers in order, calling each with name and
// stopping at the first non-nil loader. Every miss's message (the
// searcher's second return value, when present) is accumulated so the
// final "module not found" error explains every searcher it tried,
// matching require()'s contract of walking package.searchers in order.
func findLoader(s *vm.State, searchers *value.Table, name string) (value.Value, string, error) {
	var errs string
	for i := int64(1); i <= searchers.Len(); i++ {
		searcher := searchers.Get(i)
		if searcher == nil {
			continue
		}
		res, err := s.CallSync(searcher, []value.Value{name})
		if err != nil {
			return nil, "", err
		}
		if loader := firstOf(res); loader != nil {
			return loader, "", nil
		}
		if len(res) > 1 && res[1] != nil {
			errs += "\n\t" + value.ToDisplayString(res[1])
		}
	}
	return nil, errs, nil
}

// sandboxedEnv builds the globals table a sandboxed module's loader
// sees: sb.env itself, optionally seeded with a snapshot of root's
// current keys first (excluding "_G", which always refers to the
// caller's real global table, never a sandbox copy of it).
func sandboxedEnv(root *value.Table, sb *sandboxEntry) *value.Table {
	if !sb.inherit {
		return sb.env
	}
	merged := value.NewTable()
	for i, v := range root.ArrayPart() {
		merged.Set(int64(i+1), v)
	}
	for _, k := range root.HashKeys() {
		if k == "_G" {
			continue
		}
		merged.Set(k, root.Get(k))
	}
	for i, v := range sb.env.ArrayPart() {
		merged.Set(int64(i+1), v)
	}
	for _, k := range sb.env.HashKeys() {
		merged.Set(k, sb.env.Get(k))
	}
	merged.Set("_G", merged)
	return merged
}
