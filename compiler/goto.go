package compiler

import (
	"fmt"

	"github.com/rvvm/luavm/ast"
)

// validateGotos walks every block in the chunk and checks that each
// goto's target label is visible from the goto's point: reachable
// without entering a block the goto sits outside of, and not jumping
// into the scope of a local declared after the goto but before the
// label (Lua forbids jumping into a local's scope).
func validateGotos(chunk *ast.Block) error {
	return checkBlockGotos(chunk, nil)
}

type labelSet struct {
	parent *labelSet
	names  map[string]bool
}

func checkBlockGotos(b *ast.Block, parent *labelSet) error {
	labels := &labelSet{parent: parent, names: make(map[string]bool)}
	labelPos := make(map[string]int)
	for i, st := range b.Stats {
		if l, ok := st.(*ast.LabelStat); ok {
			if labels.names[l.Name] {
				return fmt.Errorf("compiler: label %q defined more than once in the same block (line %d)", l.Name, l.Line)
			}
			labels.names[l.Name] = true
			labelPos[l.Name] = i
		}
	}
	for _, st := range b.Stats {
		if err := checkStatGotos(st, labels); err != nil {
			return err
		}
	}
	for i, st := range b.Stats {
		g, ok := st.(*ast.GotoStat)
		if !ok {
			continue
		}
		if !labelVisible(labels, g.Label) {
			return fmt.Errorf("compiler: no visible label %q for goto at line %d", g.Label, g.Line)
		}
		if li, ok := labelPos[g.Label]; ok && li > i {
			// Forward goto within this block: forbidden if it would
			// jump over a local declaration into that local's scope.
			for _, between := range b.Stats[i+1 : li] {
				if local, ok := between.(*ast.LocalStat); ok {
					return fmt.Errorf("compiler: goto %q at line %d jumps into the scope of local %v", g.Label, g.Line, local.Names)
				}
			}
		}
	}
	return nil
}

func labelVisible(labels *labelSet, name string) bool {
	for s := labels; s != nil; s = s.parent {
		if s.names[name] {
			return true
		}
	}
	return false
}

func checkStatGotos(st ast.Stat, labels *labelSet) error {
	switch s := st.(type) {
	case *ast.DoStat:
		return checkBlockGotos(s.Body, labels)
	case *ast.WhileStat:
		return checkBlockGotos(s.Body, labels)
	case *ast.RepeatStat:
		return checkBlockGotos(s.Body, labels)
	case *ast.IfStat:
		for _, blk := range s.Blocks {
			if err := checkBlockGotos(blk, labels); err != nil {
				return err
			}
		}
		if s.Else != nil {
			return checkBlockGotos(s.Else, labels)
		}
	case *ast.NumericForStat:
		return checkBlockGotos(s.Body, labels)
	case *ast.GenericForStat:
		return checkBlockGotos(s.Body, labels)
	case *ast.FuncStat:
		return checkBlockGotos(s.Func.Body, nil)
	case *ast.LocalFuncStat:
		return checkBlockGotos(s.Func.Body, nil)
	case *ast.LocalStat:
		return checkExprsForFuncs(s.Exprs)
	case *ast.AssignStat:
		if err := checkExprsForFuncs(s.Targets); err != nil {
			return err
		}
		return checkExprsForFuncs(s.Exprs)
	case *ast.CallStat:
		return checkExprsForFuncs([]ast.Expr{s.Call})
	case *ast.ReturnStat:
		return checkExprsForFuncs(s.Exprs)
	}
	return nil
}

// checkExprsForFuncs finds function literals nested in expressions
// (e.g. `local f = function() goto x end`) and validates their bodies
// as fresh, function-scoped goto/label universes.
func checkExprsForFuncs(exprs []ast.Expr) error {
	for _, e := range exprs {
		if err := checkExprForFuncs(e); err != nil {
			return err
		}
	}
	return nil
}

func checkExprForFuncs(e ast.Expr) error {
	switch x := e.(type) {
	case *ast.FuncExpr:
		return checkBlockGotos(x.Body.Body, nil)
	case *ast.IndexExpr:
		if err := checkExprForFuncs(x.Obj); err != nil {
			return err
		}
		return checkExprForFuncs(x.Key)
	case *ast.CallExpr:
		if err := checkExprForFuncs(x.Fn); err != nil {
			return err
		}
		return checkExprsForFuncs(x.Args)
	case *ast.TableExpr:
		for _, f := range x.Fields {
			if f.Key != nil {
				if err := checkExprForFuncs(f.Key); err != nil {
					return err
				}
			}
			if err := checkExprForFuncs(f.Value); err != nil {
				return err
			}
		}
	case *ast.BinExpr:
		if err := checkExprForFuncs(x.L); err != nil {
			return err
		}
		return checkExprForFuncs(x.R)
	case *ast.UnExpr:
		return checkExprForFuncs(x.E)
	case *ast.ParenExpr:
		return checkExprForFuncs(x.E)
	}
	return nil
}
