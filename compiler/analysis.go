package compiler

import (
	"fmt"

	"github.com/rvvm/luavm/ast"
)

// Analyzer performs a free-variable / closure-capture analysis pass:
// it walks the whole chunk once, building a FunctionInfo per function
// scope and resolving every NameExpr to a local, upvalue, or global
// reference. Codegen (compiler.go) consumes
// the resulting tables directly instead of re-deriving scoping.
type Analyzer struct {
	nextDecl declID
	decls    map[declID]*declInfo
	resolved map[*ast.NameExpr]nameRef
	// declarations that sit inside a loop body (for, while or repeat),
	// including for-loop control variables, are recorded here. Codegen
	// does not consult it: a captured local gets a fresh cell each
	// iteration because its MAKE_CELL runs on every pass.
	loopScoped map[declID]bool

	// declsByStat/declsByForVar/declsByParam let codegen recover the
	// declIDs minted for a given AST node without re-running analysis:
	// resolution is computed once here and merely looked up during
	// codegen's second walk of the same tree.
	declsByStat    map[ast.Stat][]declID // LocalStat, LocalFuncStat (len 1)
	declsByForVar  map[ast.Stat][]declID // NumericForStat (len 1), GenericForStat
	declsByParam   map[*ast.FuncBody][]declID
}

func newAnalyzer() *Analyzer {
	return &Analyzer{
		decls:         make(map[declID]*declInfo),
		resolved:      make(map[*ast.NameExpr]nameRef),
		loopScoped:    make(map[declID]bool),
		declsByStat:   make(map[ast.Stat][]declID),
		declsByForVar: make(map[ast.Stat][]declID),
		declsByParam:  make(map[*ast.FuncBody][]declID),
	}
}

// Analyze runs the analysis pass over a top-level chunk, returning the
// main FunctionInfo (vararg, no parameters) and the shared Analyzer
// state codegen will query.
func Analyze(chunk *ast.Block) (*Analyzer, *FunctionInfo, error) {
	a := newAnalyzer()
	main := &FunctionInfo{Label: "main", IsVararg: true, upvalIdx: make(map[declID]int)}
	scope := newBlockScope(nil, main)
	if err := a.analyzeBlock(main, scope, chunk, false); err != nil {
		return nil, nil, err
	}
	return a, main, nil
}

func (a *Analyzer) declare(scope *blockScope, fi *FunctionInfo, name string, line int) declID {
	id := a.nextDecl
	a.nextDecl++
	a.decls[id] = &declInfo{name: name, owner: fi}
	scope.vars[name] = id
	scope.order = append(scope.order, id)
	scope.lines[id] = line
	return id
}

func (a *Analyzer) resolveName(fi *FunctionInfo, scope *blockScope, n *ast.NameExpr) {
	for s := scope; s != nil; s = s.parent {
		id, ok := s.vars[n.Name]
		if !ok {
			continue
		}
		owner := a.decls[id].owner
		if owner == fi {
			a.resolved[n] = nameRef{kind: refLocal, decl: id}
			return
		}
		a.decls[id].captured = true
		idx := a.ensureUpvalue(fi, id)
		a.resolved[n] = nameRef{kind: refUpvalue, index: idx}
		return
	}
	a.resolved[n] = nameRef{kind: refGlobal, name: n.Name}
}

func (a *Analyzer) ensureUpvalue(fi *FunctionInfo, id declID) int {
	if idx, ok := fi.upvalIdx[id]; ok {
		return idx
	}
	owner := a.decls[id].owner
	var src upvalueSource
	if fi.Parent == owner {
		src = upvalueSource{fromParentLocal: true, parentDecl: id}
	} else {
		if fi.Parent == nil {
			panic(fmt.Sprintf("internal error: free variable %q has no enclosing function", a.decls[id].name))
		}
		parentIdx := a.ensureUpvalue(fi.Parent, id)
		src = upvalueSource{fromParentLocal: false, parentUpvalue: parentIdx}
	}
	idx := len(fi.Upvalues)
	fi.Upvalues = append(fi.Upvalues, src)
	fi.upvalIdx[id] = idx
	return idx
}

// Captured reports whether a local declaration ended up captured by
// some nested function.
func (a *Analyzer) Captured(id declID) bool { return a.decls[id].captured }

// Resolved returns the resolution computed for a NameExpr.
func (a *Analyzer) Resolved(n *ast.NameExpr) nameRef { return a.resolved[n] }

// DeclsFor returns the declIDs minted for a LocalStat or LocalFuncStat.
func (a *Analyzer) DeclsFor(st ast.Stat) []declID { return a.declsByStat[st] }

// ForVarDecls returns the declIDs minted for a for-loop's control
// variable(s) (numeric: one; generic: one per name).
func (a *Analyzer) ForVarDecls(st ast.Stat) []declID { return a.declsByForVar[st] }

// FuncInfoFor returns the FunctionInfo analysis built for a function
// literal's body, looked up by the same *ast.FuncBody codegen is
// walking.
func (a *Analyzer) FuncInfoFor(fb *ast.FuncBody) *FunctionInfo { return funcInfos[fb] }

func (a *Analyzer) analyzeBlock(fi *FunctionInfo, parent *blockScope, b *ast.Block, inLoop bool) error {
	scope := newBlockScope(parent, fi)
	for _, st := range b.Stats {
		if err := a.analyzeStat(fi, scope, st, inLoop); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) analyzeStat(fi *FunctionInfo, scope *blockScope, st ast.Stat, inLoop bool) error {
	switch s := st.(type) {
	case *ast.LocalStat:
		for _, e := range s.Exprs {
			a.analyzeExpr(fi, scope, e)
		}
		var ids []declID
		for _, name := range s.Names {
			id := a.declare(scope, fi, name, s.Line)
			if inLoop {
				a.loopScoped[id] = true
			}
			ids = append(ids, id)
		}
		a.declsByStat[s] = ids
	case *ast.AssignStat:
		for _, e := range s.Exprs {
			a.analyzeExpr(fi, scope, e)
		}
		for _, t := range s.Targets {
			a.analyzeExpr(fi, scope, t)
		}
	case *ast.CallStat:
		a.analyzeExpr(fi, scope, s.Call)
	case *ast.DoStat:
		return a.analyzeBlock(fi, scope, s.Body, inLoop)
	case *ast.WhileStat:
		a.analyzeExpr(fi, scope, s.Cond)
		return a.analyzeBlock(fi, scope, s.Body, true)
	case *ast.RepeatStat:
		// repeat's condition can see the body's locals, so analyze it
		// inside the same scope as the body rather than via
		// analyzeBlock.
		inner := newBlockScope(scope, fi)
		for _, st2 := range s.Body.Stats {
			if err := a.analyzeStat(fi, inner, st2, true); err != nil {
				return err
			}
		}
		a.analyzeExpr(fi, inner, s.Cond)
	case *ast.IfStat:
		for _, c := range s.Conds {
			a.analyzeExpr(fi, scope, c)
		}
		for _, blk := range s.Blocks {
			if err := a.analyzeBlock(fi, scope, blk, inLoop); err != nil {
				return err
			}
		}
		if s.Else != nil {
			return a.analyzeBlock(fi, scope, s.Else, inLoop)
		}
	case *ast.NumericForStat:
		a.analyzeExpr(fi, scope, s.Start)
		a.analyzeExpr(fi, scope, s.Limit)
		if s.Step != nil {
			a.analyzeExpr(fi, scope, s.Step)
		}
		inner := newBlockScope(scope, fi)
		id := a.declare(inner, fi, s.Var, s.Line)
		a.loopScoped[id] = true
		a.declsByForVar[s] = []declID{id}
		for _, st2 := range s.Body.Stats {
			if err := a.analyzeStat(fi, inner, st2, true); err != nil {
				return err
			}
		}
	case *ast.GenericForStat:
		for _, e := range s.Exprs {
			a.analyzeExpr(fi, scope, e)
		}
		inner := newBlockScope(scope, fi)
		var ids []declID
		for _, name := range s.Names {
			id := a.declare(inner, fi, name, s.Line)
			a.loopScoped[id] = true
			ids = append(ids, id)
		}
		a.declsByForVar[s] = ids
		for _, st2 := range s.Body.Stats {
			if err := a.analyzeStat(fi, inner, st2, true); err != nil {
				return err
			}
		}
	case *ast.FuncStat:
		// Only the base name participates in scope resolution (a.b.c and
		// a.b:c walk an existing table via IndexExpr semantics, which
		// codegen handles separately); this call exists to mark
		// captures/upvalue threading for the base, not to memoize a
		// reusable resolution.
		a.resolveName(fi, scope, &ast.NameExpr{Name: s.Name.Base, Line: s.Line})
		return a.analyzeFunc(fi, scope, s.Func, s.Name.Method != "")
	case *ast.LocalFuncStat:
		// Unlike LocalStat, the function's own name is in scope inside
		// its body (for recursion), so declare before analyzing the body.
		id := a.declare(scope, fi, s.Name, s.Line)
		if inLoop {
			a.loopScoped[id] = true
		}
		a.declsByStat[s] = []declID{id}
		return a.analyzeFunc(fi, scope, s.Func, false)
	case *ast.ReturnStat:
		for _, e := range s.Exprs {
			a.analyzeExpr(fi, scope, e)
		}
	case *ast.BreakStat, *ast.GotoStat, *ast.LabelStat:
		// no expressions to resolve
	default:
		return fmt.Errorf("compiler: unhandled statement type %T", st)
	}
	return nil
}

func (a *Analyzer) analyzeFunc(parent *FunctionInfo, parentScope *blockScope, fb *ast.FuncBody, isMethod bool) error {
	fi := &FunctionInfo{Parent: parent, IsVararg: fb.IsVararg, upvalIdx: make(map[declID]int)}
	scope := newBlockScope(parentScope, fi)
	if isMethod {
		id := a.declare(scope, fi, "self", fb.Line)
		fi.Params = append(fi.Params, id)
	}
	for _, p := range fb.Params {
		id := a.declare(scope, fi, p, fb.Line)
		fi.Params = append(fi.Params, id)
	}
	a.declsByParam[fb] = fi.Params
	funcInfos[fb] = fi
	return a.analyzeBlock(fi, scope, fb.Body, false)
}

func (a *Analyzer) analyzeExpr(fi *FunctionInfo, scope *blockScope, e ast.Expr) {
	switch x := e.(type) {
	case *ast.NameExpr:
		a.resolveName(fi, scope, x)
	case *ast.IndexExpr:
		a.analyzeExpr(fi, scope, x.Obj)
		a.analyzeExpr(fi, scope, x.Key)
	case *ast.CallExpr:
		a.analyzeExpr(fi, scope, x.Fn)
		for _, arg := range x.Args {
			a.analyzeExpr(fi, scope, arg)
		}
	case *ast.FuncExpr:
		_ = a.analyzeFunc(fi, scope, x.Body, false)
	case *ast.TableExpr:
		for _, f := range x.Fields {
			if f.Key != nil {
				a.analyzeExpr(fi, scope, f.Key)
			}
			a.analyzeExpr(fi, scope, f.Value)
		}
	case *ast.BinExpr:
		a.analyzeExpr(fi, scope, x.L)
		a.analyzeExpr(fi, scope, x.R)
	case *ast.UnExpr:
		a.analyzeExpr(fi, scope, x.E)
	case *ast.ParenExpr:
		a.analyzeExpr(fi, scope, x.E)
	case *ast.NilExpr, *ast.TrueExpr, *ast.FalseExpr, *ast.VarargExpr,
		*ast.IntExpr, *ast.FloatExpr, *ast.StringExpr:
		// leaves
	}
}

// funcInfos maps a parsed FuncBody to the FunctionInfo analysis built
// for it, so codegen (which walks the same AST) can find it again
// without re-running the analysis. Scoped to a single Analyze() call
// by convention: the compiler package is not used concurrently from
// multiple goroutines on overlapping ASTs.
var funcInfos = make(map[*ast.FuncBody]*FunctionInfo)
