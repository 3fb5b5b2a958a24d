package stdlib_test

import (
	"testing"

	"github.com/rvvm/luavm/stdlib"
	"github.com/rvvm/luavm/value"
	"github.com/rvvm/luavm/vm"
)

func newState(t *testing.T) *vm.State {
	t.Helper()
	s := vm.New(nil)
	stdlib.Register(s, "")
	return s
}

func libFunc(t *testing.T, s *vm.State, lib, name string) vm.ForeignFunc {
	t.Helper()
	tbl, ok := s.Globals.Get(lib).(*value.Table)
	if !ok {
		t.Fatalf("global %q is not a table", lib)
	}
	fn, ok := tbl.Get(name).(vm.ForeignFunc)
	if !ok {
		t.Fatalf("%s.%s is not a ForeignFunc", lib, name)
	}
	return fn
}

func call(t *testing.T, s *vm.State, fn vm.ForeignFunc, args ...value.Value) []value.Value {
	t.Helper()
	results, err := fn(s, args)
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	return results
}

func TestStringUpperLowerReverse(t *testing.T) {
	s := newState(t)

	upper := libFunc(t, s, "string", "upper")
	if got := call(t, s, upper, "hello"); got[0] != "HELLO" {
		t.Errorf("upper(hello) = %v, want HELLO", got[0])
	}

	lower := libFunc(t, s, "string", "lower")
	if got := call(t, s, lower, "WORLD"); got[0] != "world" {
		t.Errorf("lower(WORLD) = %v, want world", got[0])
	}

	reverse := libFunc(t, s, "string", "reverse")
	if got := call(t, s, reverse, "abc"); got[0] != "cba" {
		t.Errorf("reverse(abc) = %v, want cba", got[0])
	}
}

func TestStringFindPlainAndPattern(t *testing.T) {
	s := newState(t)
	find := libFunc(t, s, "string", "find")

	got := call(t, s, find, "hello world", "world")
	if got[0] != int64(7) || got[1] != int64(11) {
		t.Fatalf("find(hello world, world) = %v, %v; want 7, 11", got[0], got[1])
	}

	got = call(t, s, find, "key = value", "(%a+)%s*=%s*(%a+)")
	if len(got) != 4 {
		t.Fatalf("find with captures returned %d results, want 4", len(got))
	}
	if got[2] != "key" || got[3] != "value" {
		t.Fatalf("captures = %v, %v; want key, value", got[2], got[3])
	}
}

func TestStringGsub(t *testing.T) {
	s := newState(t)
	gsub := libFunc(t, s, "string", "gsub")

	got := call(t, s, gsub, "hello world", "o", "0")
	if got[0] != "hell0 w0rld" {
		t.Errorf("gsub result = %v, want hell0 w0rld", got[0])
	}
	if got[1] != int64(2) {
		t.Errorf("gsub count = %v, want 2", got[1])
	}
}

func TestStringFormat(t *testing.T) {
	s := newState(t)
	format := libFunc(t, s, "string", "format")

	got := call(t, s, format, "%d-%s-%5.2f", int64(3), "x", 1.5)
	if got[0] != "3-x- 1.50" {
		t.Errorf("format result = %q, want %q", got[0], "3-x- 1.50")
	}
}

func TestTableInsertRemoveConcat(t *testing.T) {
	s := newState(t)
	tbl := value.NewTable()
	tbl.Append(int64(1))
	tbl.Append(int64(2))
	tbl.Append(int64(3))

	insert := libFunc(t, s, "table", "insert")
	call(t, s, insert, tbl, int64(4))
	if tbl.Len() != 4 {
		t.Fatalf("after insert, len = %d, want 4", tbl.Len())
	}

	concat := libFunc(t, s, "table", "concat")
	got := call(t, s, concat, tbl, ",")
	if got[0] != "1,2,3,4" {
		t.Errorf("concat = %v, want 1,2,3,4", got[0])
	}

	remove := libFunc(t, s, "table", "remove")
	call(t, s, remove, tbl)
	if tbl.Len() != 3 {
		t.Fatalf("after remove, len = %d, want 3", tbl.Len())
	}
}

func TestMathFloorCeilAbs(t *testing.T) {
	s := newState(t)

	floor := libFunc(t, s, "math", "floor")
	if got := call(t, s, floor, 3.7); got[0] != int64(3) {
		t.Errorf("floor(3.7) = %v, want 3", got[0])
	}

	ceil := libFunc(t, s, "math", "ceil")
	if got := call(t, s, ceil, 3.2); got[0] != int64(4) {
		t.Errorf("ceil(3.2) = %v, want 4", got[0])
	}

	abs := libFunc(t, s, "math", "abs")
	if got := call(t, s, abs, int64(-5)); got[0] != int64(5) {
		t.Errorf("abs(-5) = %v, want 5", got[0])
	}
}

func TestBaseTypeAndToString(t *testing.T) {
	s := newState(t)

	typeFn, ok := s.Globals.Get("type").(vm.ForeignFunc)
	if !ok {
		t.Fatal("global type is not a ForeignFunc")
	}
	if got := call(t, s, typeFn, int64(1)); got[0] != "number" {
		t.Errorf("type(1) = %v, want number", got[0])
	}
	if got := call(t, s, typeFn, "s"); got[0] != "string" {
		t.Errorf("type('s') = %v, want string", got[0])
	}
	if got := call(t, s, typeFn, nil); got[0] != "nil" {
		t.Errorf("type(nil) = %v, want nil", got[0])
	}

	tostringFn, ok := s.Globals.Get("tostring").(vm.ForeignFunc)
	if !ok {
		t.Fatal("global tostring is not a ForeignFunc")
	}
	if got := call(t, s, tostringFn, int64(42)); got[0] != "42" {
		t.Errorf("tostring(42) = %v, want 42", got[0])
	}
}

func TestMathPow(t *testing.T) {
	s := newState(t)
	pow := libFunc(t, s, "math", "pow")
	if got := call(t, s, pow, 2.0, 10.0); got[0] != float64(1024) {
		t.Errorf("pow(2, 10) = %v, want 1024", got[0])
	}
}

func TestRequireWalksPreloadSearcher(t *testing.T) {
	s := newState(t)
	pkg, ok := s.Globals.Get("package").(*value.Table)
	if !ok {
		t.Fatal("global package is not a table")
	}
	preload, ok := pkg.Get("preload").(*value.Table)
	if !ok {
		t.Fatal("package.preload is not a table")
	}
	preload.Set("mymod", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		return []value.Value{"loaded-mymod"}, nil
	}))

	require, ok := s.Globals.Get("require").(vm.ForeignFunc)
	if !ok {
		t.Fatal("global require is not a ForeignFunc")
	}
	got := call(t, s, require, "mymod")
	if got[0] != "loaded-mymod" {
		t.Errorf("require(mymod) = %v, want loaded-mymod", got[0])
	}

	// Second require must hit package.loaded, not re-run the loader.
	got2 := call(t, s, require, "mymod")
	if got2[0] != "loaded-mymod" {
		t.Errorf("cached require(mymod) = %v, want loaded-mymod", got2[0])
	}
}

func TestRequireWalksCustomSearcher(t *testing.T) {
	s := newState(t)
	pkg, ok := s.Globals.Get("package").(*value.Table)
	if !ok {
		t.Fatal("global package is not a table")
	}
	searchers, ok := pkg.Get("searchers").(*value.Table)
	if !ok {
		t.Fatal("package.searchers is not a table")
	}
	custom := vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		name, _ := args[0].(string)
		if name != "custom" {
			return []value.Value{nil, "not handled by custom searcher"}, nil
		}
		return []value.Value{vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
			return []value.Value{"loaded-custom"}, nil
		})}, nil
	})
	searchers.Set(searchers.Len()+1, custom)

	require, ok := s.Globals.Get("require").(vm.ForeignFunc)
	if !ok {
		t.Fatal("global require is not a ForeignFunc")
	}
	got := call(t, s, require, "custom")
	if got[0] != "loaded-custom" {
		t.Errorf("require(custom) = %v, want loaded-custom", got[0])
	}
}

func TestPackageSandboxIsolatesModuleGlobals(t *testing.T) {
	s := newState(t)
	pkg, ok := s.Globals.Get("package").(*value.Table)
	if !ok {
		t.Fatal("global package is not a table")
	}
	preload, ok := pkg.Get("preload").(*value.Table)
	if !ok {
		t.Fatal("package.preload is not a table")
	}

	var seenGlobals *value.Table
	preload.Set("sandboxed", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		seenGlobals = s.Globals
		return []value.Value{true}, nil
	}))

	sandbox, ok := pkg.Get("sandbox").(vm.ForeignFunc)
	if !ok {
		t.Fatal("package.sandbox is not a ForeignFunc")
	}
	env := value.NewTable()
	env.Set("only_here", int64(7))
	call(t, s, sandbox, "sandboxed", env, false)

	require, ok := s.Globals.Get("require").(vm.ForeignFunc)
	if !ok {
		t.Fatal("global require is not a ForeignFunc")
	}
	call(t, s, require, "sandboxed")

	if seenGlobals == nil {
		t.Fatal("sandboxed loader never ran")
	}
	if seenGlobals == s.Globals {
		t.Fatal("sandboxed loader ran against the real globals table, not its sandbox env")
	}
	if seenGlobals.Get("only_here") != int64(7) {
		t.Errorf("sandboxed loader's globals missing only_here, got %v", seenGlobals.Get("only_here"))
	}
}

func TestPcallCatchesError(t *testing.T) {
	s := newState(t)
	pcall, ok := s.Globals.Get("pcall").(vm.ForeignFunc)
	if !ok {
		t.Fatal("global pcall is not a ForeignFunc")
	}
	boom := vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		return nil, s.Raisef("boom")
	})
	got := call(t, s, pcall, boom)
	if got[0] != false {
		t.Fatalf("pcall ok = %v, want false", got[0])
	}
	if msg, ok := got[1].(string); !ok || msg == "" {
		t.Fatalf("pcall error payload = %v, want non-empty string", got[1])
	}
}
