package compiler_test

import (
	"testing"

	"github.com/rvvm/luavm/ast"
	"github.com/rvvm/luavm/compiler"
	"github.com/rvvm/luavm/stdlib"
	"github.com/rvvm/luavm/value"
	"github.com/rvvm/luavm/vm"
)

func run(t *testing.T, chunk *ast.Block) *vm.State {
	t.Helper()
	prog, err := compiler.Compile("test", chunk)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	s := vm.New(prog)
	if err := s.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	return s
}

// runWithStdlib is run, but with the standard library installed first;
// used by tests that reach for globals like setmetatable.
func runWithStdlib(t *testing.T, chunk *ast.Block) *vm.State {
	t.Helper()
	prog, err := compiler.Compile("test", chunk)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	s := vm.New(prog)
	stdlib.Register(s, "")
	if err := s.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	return s
}

func TestArithmeticAssignsGlobal(t *testing.T) {
	chunk := &ast.Block{Stats: []ast.Stat{
		&ast.AssignStat{
			Targets: []ast.Expr{&ast.NameExpr{Name: "result"}},
			Exprs: []ast.Expr{&ast.BinExpr{
				Op: "+",
				L:  &ast.IntExpr{Value: 1},
				R:  &ast.IntExpr{Value: 2},
			}},
			Line: 1,
		},
	}}
	s := run(t, chunk)
	got := s.Globals.Get("result")
	if got != int64(3) {
		t.Fatalf("result = %v (%T), want int64(3)", got, got)
	}
}

func TestLocalWhileLoop(t *testing.T) {
	// local i = 0
	// while i < 5 do i = i + 1 end
	// total = i
	chunk := &ast.Block{Stats: []ast.Stat{
		&ast.LocalStat{
			Names: []string{"i"},
			Exprs: []ast.Expr{&ast.IntExpr{Value: 0}},
			Line:  1,
		},
		&ast.WhileStat{
			Cond: &ast.BinExpr{Op: "<", L: &ast.NameExpr{Name: "i"}, R: &ast.IntExpr{Value: 5}},
			Body: &ast.Block{Stats: []ast.Stat{
				&ast.AssignStat{
					Targets: []ast.Expr{&ast.NameExpr{Name: "i"}},
					Exprs:   []ast.Expr{&ast.BinExpr{Op: "+", L: &ast.NameExpr{Name: "i"}, R: &ast.IntExpr{Value: 1}}},
				},
			}},
			Line: 2,
		},
		&ast.AssignStat{
			Targets: []ast.Expr{&ast.NameExpr{Name: "total"}},
			Exprs:   []ast.Expr{&ast.NameExpr{Name: "i"}},
		},
	}}
	s := run(t, chunk)
	if got := s.Globals.Get("total"); got != int64(5) {
		t.Fatalf("total = %v, want 5", got)
	}
}

func TestFunctionCallAndReturn(t *testing.T) {
	// local function add(a, b) return a + b end
	// sum = add(4, 9)
	add := &ast.FuncBody{
		Params: []string{"a", "b"},
		Body: &ast.Block{Stats: []ast.Stat{
			&ast.ReturnStat{Exprs: []ast.Expr{
				&ast.BinExpr{Op: "+", L: &ast.NameExpr{Name: "a"}, R: &ast.NameExpr{Name: "b"}},
			}},
		}},
	}
	chunk := &ast.Block{Stats: []ast.Stat{
		&ast.LocalFuncStat{Name: "add", Func: add},
		&ast.AssignStat{
			Targets: []ast.Expr{&ast.NameExpr{Name: "sum"}},
			Exprs: []ast.Expr{&ast.CallExpr{
				Fn:   &ast.NameExpr{Name: "add"},
				Args: []ast.Expr{&ast.IntExpr{Value: 4}, &ast.IntExpr{Value: 9}},
			}},
		},
	}}
	s := run(t, chunk)
	if got := s.Globals.Get("sum"); got != int64(13) {
		t.Fatalf("sum = %v, want 13", got)
	}
}

// TestDivisionAlwaysYieldsFloat exercises the source-level "/" operator:
// 1/2 must produce a float 0.5, never the opcode-level floored int
// quotient that "//" (IDIV) uses.
func TestDivisionAlwaysYieldsFloat(t *testing.T) {
	chunk := &ast.Block{Stats: []ast.Stat{
		&ast.AssignStat{
			Targets: []ast.Expr{&ast.NameExpr{Name: "result"}},
			Exprs: []ast.Expr{&ast.BinExpr{
				Op: "/",
				L:  &ast.IntExpr{Value: 1},
				R:  &ast.IntExpr{Value: 2},
			}},
		},
	}}
	s := run(t, chunk)
	got := s.Globals.Get("result")
	f, ok := got.(float64)
	if !ok || f != 0.5 {
		t.Fatalf("result = %v (%T), want float64(0.5)", got, got)
	}
}

// TestFloorDivisionStaysIntegerFloored confirms "//" keeps the
// opcode-level floored-integer semantics that "/" no longer carries.
func TestFloorDivisionStaysIntegerFloored(t *testing.T) {
	chunk := &ast.Block{Stats: []ast.Stat{
		&ast.AssignStat{
			Targets: []ast.Expr{&ast.NameExpr{Name: "result"}},
			Exprs: []ast.Expr{&ast.BinExpr{
				Op: "//",
				L:  &ast.IntExpr{Value: 1},
				R:  &ast.IntExpr{Value: 2},
			}},
		},
	}}
	s := run(t, chunk)
	if got := s.Globals.Get("result"); got != int64(0) {
		t.Fatalf("result = %v (%T), want int64(0)", got, got)
	}
}

// TestClosuresShareNothingAcrossCalls covers the end-to-end scenario
// of two closures minted by the same factory, each with its own cell
// for the captured local:
//
//	function mk() local x = 0 return function() x = x + 1 return x end end
//	a = mk()
//	b = mk()
//	r1, r2, r3 = a(), a(), b()
func TestClosuresShareNothingAcrossCalls(t *testing.T) {
	inc := &ast.FuncBody{Body: &ast.Block{Stats: []ast.Stat{
		&ast.AssignStat{
			Targets: []ast.Expr{&ast.NameExpr{Name: "x"}},
			Exprs:   []ast.Expr{&ast.BinExpr{Op: "+", L: &ast.NameExpr{Name: "x"}, R: &ast.IntExpr{Value: 1}}},
		},
		&ast.ReturnStat{Exprs: []ast.Expr{&ast.NameExpr{Name: "x"}}},
	}}}
	mk := &ast.FuncBody{Body: &ast.Block{Stats: []ast.Stat{
		&ast.LocalStat{Names: []string{"x"}, Exprs: []ast.Expr{&ast.IntExpr{Value: 0}}},
		&ast.ReturnStat{Exprs: []ast.Expr{&ast.FuncExpr{Body: inc}}},
	}}}
	call := func(name string) ast.Expr {
		return &ast.CallExpr{Fn: &ast.NameExpr{Name: name}}
	}
	chunk := &ast.Block{Stats: []ast.Stat{
		&ast.FuncStat{Name: &ast.FuncName{Base: "mk"}, Func: mk},
		&ast.AssignStat{
			Targets: []ast.Expr{&ast.NameExpr{Name: "a"}},
			Exprs:   []ast.Expr{call("mk")},
		},
		&ast.AssignStat{
			Targets: []ast.Expr{&ast.NameExpr{Name: "b"}},
			Exprs:   []ast.Expr{call("mk")},
		},
		&ast.AssignStat{
			Targets: []ast.Expr{
				&ast.NameExpr{Name: "r1"},
				&ast.NameExpr{Name: "r2"},
				&ast.NameExpr{Name: "r3"},
			},
			Exprs: []ast.Expr{call("a"), call("a"), call("b")},
		},
	}}
	s := run(t, chunk)
	cases := map[string]int64{"r1": 1, "r2": 2, "r3": 1}
	for name, want := range cases {
		if got := s.Globals.Get(name); got != want {
			t.Errorf("%s = %v, want %d", name, got, want)
		}
	}
}

// TestNumericForCapturesDistinctCells covers the end-to-end scenario
// where each numeric-for iteration gives closures their own cell for
// the loop variable:
//
//	t = {}
//	for i = 1, 3 do t[i] = function() return i end end
//	r1, r2, r3 = t[1](), t[2](), t[3]()
func TestNumericForCapturesDistinctCells(t *testing.T) {
	body := &ast.Block{Stats: []ast.Stat{
		&ast.AssignStat{
			Targets: []ast.Expr{&ast.IndexExpr{Obj: &ast.NameExpr{Name: "t"}, Key: &ast.NameExpr{Name: "i"}}},
			Exprs: []ast.Expr{&ast.FuncExpr{Body: &ast.FuncBody{Body: &ast.Block{Stats: []ast.Stat{
				&ast.ReturnStat{Exprs: []ast.Expr{&ast.NameExpr{Name: "i"}}},
			}}}}},
		},
	}}
	chunk := &ast.Block{Stats: []ast.Stat{
		&ast.AssignStat{
			Targets: []ast.Expr{&ast.NameExpr{Name: "t"}},
			Exprs:   []ast.Expr{&ast.TableExpr{}},
		},
		&ast.NumericForStat{
			Var:   "i",
			Start: &ast.IntExpr{Value: 1},
			Limit: &ast.IntExpr{Value: 3},
			Body:  body,
		},
		&ast.AssignStat{
			Targets: []ast.Expr{
				&ast.NameExpr{Name: "r1"},
				&ast.NameExpr{Name: "r2"},
				&ast.NameExpr{Name: "r3"},
			},
			Exprs: []ast.Expr{
				&ast.CallExpr{Fn: &ast.IndexExpr{Obj: &ast.NameExpr{Name: "t"}, Key: &ast.IntExpr{Value: 1}}},
				&ast.CallExpr{Fn: &ast.IndexExpr{Obj: &ast.NameExpr{Name: "t"}, Key: &ast.IntExpr{Value: 2}}},
				&ast.CallExpr{Fn: &ast.IndexExpr{Obj: &ast.NameExpr{Name: "t"}, Key: &ast.IntExpr{Value: 3}}},
			},
		},
	}}
	s := run(t, chunk)
	cases := map[string]int64{"r1": 1, "r2": 2, "r3": 3}
	for name, want := range cases {
		if got := s.Globals.Get(name); got != want {
			t.Errorf("%s = %v, want %d", name, got, want)
		}
	}
}

// TestGotoIntoLocalScopeRejected covers the compile-time scenario
// where a goto skips a local declaration to reach a label inside that
// local's scope: goto skip; local x = 1; ::skip:: return x.
func TestGotoIntoLocalScopeRejected(t *testing.T) {
	chunk := &ast.Block{Stats: []ast.Stat{
		&ast.GotoStat{Label: "skip", Line: 1},
		&ast.LocalStat{Names: []string{"x"}, Exprs: []ast.Expr{&ast.IntExpr{Value: 1}}, Line: 2},
		&ast.LabelStat{Name: "skip", Line: 3},
		&ast.ReturnStat{Exprs: []ast.Expr{&ast.NameExpr{Name: "x"}}, Line: 4},
	}}
	_, err := compiler.Compile("goto_scope_test", chunk)
	if err == nil {
		t.Fatal("expected a compile error for goto into local scope, got nil")
	}
}

// TestMetamethodAddDispatchesBothOperandOrders covers the end-to-end
// scenario where a table's __add metamethod handles both t+1 and 1+t.
func TestMetamethodAddDispatchesBothOperandOrders(t *testing.T) {
	addHandler := &ast.FuncBody{
		Params: []string{"a", "b"},
		Body: &ast.Block{Stats: []ast.Stat{
			&ast.ReturnStat{Exprs: []ast.Expr{&ast.IntExpr{Value: 42}}},
		}},
	}
	chunk := &ast.Block{Stats: []ast.Stat{
		&ast.AssignStat{
			Targets: []ast.Expr{&ast.NameExpr{Name: "mt"}},
			Exprs: []ast.Expr{&ast.TableExpr{Fields: []ast.TableField{
				{Key: &ast.StringExpr{Value: "__add"}, Value: &ast.FuncExpr{Body: addHandler}},
			}}},
		},
		&ast.AssignStat{
			Targets: []ast.Expr{&ast.NameExpr{Name: "t"}},
			Exprs:   []ast.Expr{&ast.TableExpr{}},
		},
		&ast.CallStat{Call: &ast.CallExpr{
			Fn:     &ast.NameExpr{Name: "setmetatable"},
			Args:   []ast.Expr{&ast.NameExpr{Name: "t"}, &ast.NameExpr{Name: "mt"}},
		}},
		&ast.AssignStat{
			Targets: []ast.Expr{&ast.NameExpr{Name: "r1"}},
			Exprs: []ast.Expr{&ast.BinExpr{
				Op: "+",
				L:  &ast.NameExpr{Name: "t"},
				R:  &ast.IntExpr{Value: 1},
			}},
		},
		&ast.AssignStat{
			Targets: []ast.Expr{&ast.NameExpr{Name: "r2"}},
			Exprs: []ast.Expr{&ast.BinExpr{
				Op: "+",
				L:  &ast.IntExpr{Value: 1},
				R:  &ast.NameExpr{Name: "t"},
			}},
		},
	}}
	s := runWithStdlib(t, chunk)
	if got := s.Globals.Get("r1"); got != int64(42) {
		t.Errorf("r1 = %v, want 42", got)
	}
	if got := s.Globals.Get("r2"); got != int64(42) {
		t.Errorf("r2 = %v, want 42", got)
	}
}

func TestTableConstructorAndIndex(t *testing.T) {
	// t = {1, 2, x = 3}
	// total = t[1] + t[2] + t.x
	chunk := &ast.Block{Stats: []ast.Stat{
		&ast.AssignStat{
			Targets: []ast.Expr{&ast.NameExpr{Name: "t"}},
			Exprs: []ast.Expr{&ast.TableExpr{Fields: []ast.TableField{
				{Value: &ast.IntExpr{Value: 1}},
				{Value: &ast.IntExpr{Value: 2}},
				{Key: &ast.StringExpr{Value: "x"}, Value: &ast.IntExpr{Value: 3}},
			}}},
		},
		&ast.AssignStat{
			Targets: []ast.Expr{&ast.NameExpr{Name: "total"}},
			Exprs: []ast.Expr{&ast.BinExpr{
				Op: "+",
				L: &ast.BinExpr{
					Op: "+",
					L:  &ast.IndexExpr{Obj: &ast.NameExpr{Name: "t"}, Key: &ast.IntExpr{Value: 1}},
					R:  &ast.IndexExpr{Obj: &ast.NameExpr{Name: "t"}, Key: &ast.IntExpr{Value: 2}},
				},
				R: &ast.IndexExpr{Obj: &ast.NameExpr{Name: "t"}, Key: &ast.StringExpr{Value: "x"}},
			}},
		},
	}}
	s := run(t, chunk)
	if got := s.Globals.Get("total"); got != int64(6) {
		t.Fatalf("total = %v, want 6", got)
	}
	tbl, ok := s.Globals.Get("t").(*value.Table)
	if !ok {
		t.Fatalf("t is not a table: %T", s.Globals.Get("t"))
	}
	if tbl.Len() != 2 {
		t.Fatalf("t array length = %d, want 2", tbl.Len())
	}
}
