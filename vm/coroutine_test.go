package vm_test

import (
	"testing"

	"github.com/rvvm/luavm/ast"
	"github.com/rvvm/luavm/compiler"
	"github.com/rvvm/luavm/stdlib"
	"github.com/rvvm/luavm/vm"
)

// coroutineProgram builds the producer-consumer end-to-end scenario:
//
//	local function gen()
//	  coroutine.yield("apple")
//	  coroutine.yield("banana")
//	  coroutine.yield("orange")
//	end
//	co = coroutine.create(gen)
//	ok1, v1 = coroutine.resume(co)
//	ok2, v2 = coroutine.resume(co)
//	ok3, v3 = coroutine.resume(co)
//	ok4, v4 = coroutine.resume(co)
//	ok5, v5 = coroutine.resume(co)
func coroutineProgram() *ast.Block {
	yield := func(s string) ast.Stat {
		return &ast.CallStat{Call: &ast.CallExpr{
			Fn:   &ast.IndexExpr{Obj: &ast.NameExpr{Name: "coroutine"}, Key: &ast.StringExpr{Value: "yield"}},
			Args: []ast.Expr{&ast.StringExpr{Value: s}},
		}}
	}
	gen := &ast.FuncBody{Body: &ast.Block{Stats: []ast.Stat{
		yield("apple"),
		yield("banana"),
		yield("orange"),
	}}}

	resume := func(target1, target2 string) ast.Stat {
		return &ast.AssignStat{
			Targets: []ast.Expr{&ast.NameExpr{Name: target1}, &ast.NameExpr{Name: target2}},
			Exprs: []ast.Expr{&ast.CallExpr{
				Fn:   &ast.IndexExpr{Obj: &ast.NameExpr{Name: "coroutine"}, Key: &ast.StringExpr{Value: "resume"}},
				Args: []ast.Expr{&ast.NameExpr{Name: "co"}},
			}},
		}
	}

	return &ast.Block{Stats: []ast.Stat{
		&ast.LocalFuncStat{Name: "gen", Func: gen},
		&ast.AssignStat{
			Targets: []ast.Expr{&ast.NameExpr{Name: "co"}},
			Exprs: []ast.Expr{&ast.CallExpr{
				Fn:   &ast.IndexExpr{Obj: &ast.NameExpr{Name: "coroutine"}, Key: &ast.StringExpr{Value: "create"}},
				Args: []ast.Expr{&ast.NameExpr{Name: "gen"}},
			}},
		},
		resume("ok1", "v1"),
		resume("ok2", "v2"),
		resume("ok3", "v3"),
		resume("ok4", "v4"),
		resume("ok5", "v5"),
	}}
}

// TestCoroutineProducerConsumer covers the five-resume producer/consumer
// sequence: three yields, a plain return (nil), then a resume against a
// dead coroutine.
func TestCoroutineProducerConsumer(t *testing.T) {
	prog, err := compiler.Compile("coroutine_test", coroutineProgram())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	s := vm.New(prog)
	stdlib.Register(s, "")
	if err := s.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}

	wantOK := map[string]any{"ok1": true, "ok2": true, "ok3": true, "ok4": true, "ok5": false}
	wantV := map[string]any{"v1": "apple", "v2": "banana", "v3": "orange", "v4": nil}
	for name, want := range wantOK {
		if got := s.Globals.Get(name); got != want {
			t.Errorf("%s = %v, want %v", name, got, want)
		}
	}
	for name, want := range wantV {
		if got := s.Globals.Get(name); got != want {
			t.Errorf("%s = %v, want %v", name, got, want)
		}
	}
	if got := s.Globals.Get("v5"); got != "cannot resume dead coroutine" {
		t.Errorf("v5 = %v, want %q", got, "cannot resume dead coroutine")
	}
}

// TestCoroutineYieldAcrossPCallForbidden covers the rule that a
// coroutine may not yield out from underneath a pcall boundary: the
// pcall reports failure instead of propagating the yield.
//
//	local function gen()
//	  ok, err = pcall(function() coroutine.yield(1) end)
//	end
//	co = coroutine.create(gen)
//	resumeOK, _ = coroutine.resume(co)
//	st = coroutine.status(co)
func TestCoroutineYieldAcrossPCallForbidden(t *testing.T) {
	inner := &ast.FuncBody{Body: &ast.Block{Stats: []ast.Stat{
		&ast.CallStat{Call: &ast.CallExpr{
			Fn:   &ast.IndexExpr{Obj: &ast.NameExpr{Name: "coroutine"}, Key: &ast.StringExpr{Value: "yield"}},
			Args: []ast.Expr{&ast.IntExpr{Value: 1}},
		}},
	}}}
	gen := &ast.FuncBody{Body: &ast.Block{Stats: []ast.Stat{
		&ast.AssignStat{
			Targets: []ast.Expr{&ast.NameExpr{Name: "ok"}, &ast.NameExpr{Name: "err"}},
			Exprs: []ast.Expr{&ast.CallExpr{
				Fn:   &ast.NameExpr{Name: "pcall"},
				Args: []ast.Expr{&ast.FuncExpr{Body: inner}},
			}},
		},
	}}}
	chunk := &ast.Block{Stats: []ast.Stat{
		&ast.LocalFuncStat{Name: "gen", Func: gen},
		&ast.AssignStat{
			Targets: []ast.Expr{&ast.NameExpr{Name: "co"}},
			Exprs: []ast.Expr{&ast.CallExpr{
				Fn:   &ast.IndexExpr{Obj: &ast.NameExpr{Name: "coroutine"}, Key: &ast.StringExpr{Value: "create"}},
				Args: []ast.Expr{&ast.NameExpr{Name: "gen"}},
			}},
		},
		&ast.AssignStat{
			Targets: []ast.Expr{&ast.NameExpr{Name: "resumeOK"}},
			Exprs: []ast.Expr{&ast.CallExpr{
				Fn:   &ast.IndexExpr{Obj: &ast.NameExpr{Name: "coroutine"}, Key: &ast.StringExpr{Value: "resume"}},
				Args: []ast.Expr{&ast.NameExpr{Name: "co"}},
			}},
		},
		&ast.AssignStat{
			Targets: []ast.Expr{&ast.NameExpr{Name: "st"}},
			Exprs: []ast.Expr{&ast.CallExpr{
				Fn:   &ast.IndexExpr{Obj: &ast.NameExpr{Name: "coroutine"}, Key: &ast.StringExpr{Value: "status"}},
				Args: []ast.Expr{&ast.NameExpr{Name: "co"}},
			}},
		},
	}}

	prog, err := compiler.Compile("coroutine_pcall_test", chunk)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	s := vm.New(prog)
	stdlib.Register(s, "")
	if err := s.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}

	if got := s.Globals.Get("resumeOK"); got != true {
		t.Fatalf("resumeOK = %v, want true (gen() itself completes normally)", got)
	}
	if got := s.Globals.Get("ok"); got != false {
		t.Errorf("ok = %v, want false (pcall around the yield must fail)", got)
	}
	msg, _ := s.Globals.Get("err").(string)
	const suffix = "attempt to yield across a C-call boundary"
	if len(msg) < len(suffix) || msg[len(msg)-len(suffix):] != suffix {
		t.Errorf("err = %q, want suffix %q", msg, suffix)
	}
	if got := s.Globals.Get("st"); got != "dead" {
		t.Errorf("st = %v, want dead", got)
	}
}
