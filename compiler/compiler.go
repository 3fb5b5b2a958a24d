// Package compiler lowers the Lua-subset AST (package ast) into the
// register-based bytecode program the VM executes (package bytecode).
// It runs in two passes: Analyze (scope.go/analysis.go) resolves every
// name to a local, upvalue, or global exactly once; Compile then walks
// the same AST again and emits instructions, consulting the analysis
// tables instead of re-deriving scope.
package compiler

import (
	"fmt"

	"github.com/rvvm/luavm/ast"
	"github.com/rvvm/luavm/bytecode"
)

// Compiler holds the state threaded through one Compile call: the
// analysis result, the program being built, and the per-function
// counters used to mint fresh temporary registers and jump labels.
type Compiler struct {
	an      *Analyzer
	prog    *bytecode.Program
	source  string
	funcSeq int
	tmpSeq  map[string]int
	lblSeq  map[string]int
	// pendingFuncs queues function bodies discovered while compiling an
	// enclosing function (via a nested FuncExpr/FuncStat); they are
	// compiled after their enclosing function so emission order never
	// has to anticipate a still-unresolved child label.
	pendingFuncs []pendingFunc
}

type pendingFunc struct {
	fi   *FunctionInfo
	body *ast.Block
}

// Compile runs the analysis pass over chunk and emits a complete
// Program with EntryLabel "main".
func Compile(source string, chunk *ast.Block) (*bytecode.Program, error) {
	if err := validateGotos(chunk); err != nil {
		return nil, err
	}
	an, main, err := Analyze(chunk)
	if err != nil {
		return nil, err
	}
	c := &Compiler{
		an:     an,
		prog:   bytecode.NewProgram(source),
		source: source,
		tmpSeq: make(map[string]int),
		lblSeq: make(map[string]int),
	}
	c.prog.EntryLabel = "main"
	main.Label = "main"
	if err := c.compileFunction(main, chunk, true); err != nil {
		return nil, err
	}
	for len(c.pendingFuncs) > 0 {
		pf := c.pendingFuncs[0]
		c.pendingFuncs = c.pendingFuncs[1:]
		if err := c.compileFunction(pf.fi, pf.body, false); err != nil {
			return nil, err
		}
	}
	if err := c.prog.ResolveLabels(); err != nil {
		return nil, err
	}
	return c.prog, nil
}

func regForDecl(id declID) string { return fmt.Sprintf("L%d", id) }

func (c *Compiler) newTemp(fi *FunctionInfo) string {
	n := c.tmpSeq[fi.Label]
	c.tmpSeq[fi.Label] = n + 1
	return fmt.Sprintf("%s_t%d", fi.Label, n)
}

func (c *Compiler) newLabel(fi *FunctionInfo, tag string) string {
	n := c.lblSeq[fi.Label]
	c.lblSeq[fi.Label] = n + 1
	return fmt.Sprintf("%s_%s%d", fi.Label, tag, n)
}

func (c *Compiler) upvalueReg(fi *FunctionInfo, idx int) string {
	return fmt.Sprintf("%s_UV%d", fi.Label, idx)
}

func (c *Compiler) emit(in bytecode.Instruction, line int) {
	in.Debug = bytecode.DebugInfo{File: c.source, Line: line}
	c.prog.Emit(in)
}

// compileFunction emits fi's prologue (label, upvalue binding,
// parameter capture) and its body. isMain additionally emits a
// trailing HALT instead of an implicit RETURN.
func (c *Compiler) compileFunction(fi *FunctionInfo, body *ast.Block, isMain bool) error {
	c.emit(bytecode.Instruction{Op: bytecode.LABEL, Label: fi.Label}, 0)

	for idx := range fi.Upvalues {
		c.emit(bytecode.Instruction{
			Op:   bytecode.BIND_UPVALUE,
			Args: []string{c.upvalueReg(fi, idx)},
			Imm:  int64(idx),
		}, 0)
	}

	for _, id := range fi.Params {
		if c.an.Captured(id) {
			tmp := c.newTemp(fi)
			c.emit(bytecode.Instruction{Op: bytecode.PARAM, Args: []string{tmp}}, 0)
			c.emit(bytecode.Instruction{Op: bytecode.MAKE_CELL, Args: []string{regForDecl(id)}}, 0)
			c.emit(bytecode.Instruction{Op: bytecode.CELL_SET, Args: []string{regForDecl(id), tmp}}, 0)
		} else {
			c.emit(bytecode.Instruction{Op: bytecode.PARAM, Args: []string{regForDecl(id)}}, 0)
		}
	}
	if fi.IsVararg {
		c.emit(bytecode.Instruction{Op: bytecode.PARAM_EXPAND, Args: []string{fi.Label + "_varargs"}}, 0)
	}

	if err := c.compileBlock(fi, body); err != nil {
		return err
	}

	if isMain {
		c.emit(bytecode.Instruction{Op: bytecode.HALT}, 0)
	} else {
		c.emit(bytecode.Instruction{Op: bytecode.RETURN_MULTI, Args: nil}, 0)
	}
	return nil
}

func (c *Compiler) compileBlock(fi *FunctionInfo, b *ast.Block) error {
	for _, st := range b.Stats {
		if err := c.compileStat(fi, st); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileStat(fi *FunctionInfo, st ast.Stat) error {
	switch s := st.(type) {
	case *ast.LocalStat:
		return c.compileLocalStat(fi, s)
	case *ast.AssignStat:
		return c.compileAssignStat(fi, s)
	case *ast.CallStat:
		_, err := c.compileCallExpr(fi, s.Call, 0)
		return err
	case *ast.DoStat:
		return c.compileBlock(fi, s.Body)
	case *ast.WhileStat:
		return c.compileWhileStat(fi, s)
	case *ast.RepeatStat:
		return c.compileRepeatStat(fi, s)
	case *ast.IfStat:
		return c.compileIfStat(fi, s)
	case *ast.NumericForStat:
		return c.compileNumericFor(fi, s)
	case *ast.GenericForStat:
		return c.compileGenericFor(fi, s)
	case *ast.FuncStat:
		return c.compileFuncStat(fi, s)
	case *ast.LocalFuncStat:
		return c.compileLocalFuncStat(fi, s)
	case *ast.ReturnStat:
		return c.compileReturnStat(fi, s)
	case *ast.BreakStat:
		lbl, ok := c.breakTarget(fi)
		if !ok {
			return fmt.Errorf("compiler: break outside a loop at line %d", s.Line)
		}
		c.emit(bytecode.Instruction{Op: bytecode.JMP, Label: lbl}, s.Line)
	case *ast.GotoStat:
		c.emit(bytecode.Instruction{Op: bytecode.JMP, Label: fi.Label + "_lbl_" + s.Label}, s.Line)
	case *ast.LabelStat:
		c.emit(bytecode.Instruction{Op: bytecode.LABEL, Label: fi.Label + "_lbl_" + s.Name}, s.Line)
	default:
		return fmt.Errorf("compiler: unhandled statement %T", st)
	}
	return nil
}

// breakStack tracks the loop-exit label active at each nesting level,
// keyed per function since break never crosses a function boundary.
var breakStacks = map[*FunctionInfo][]string{}

func (c *Compiler) pushBreak(fi *FunctionInfo, lbl string) {
	breakStacks[fi] = append(breakStacks[fi], lbl)
}

func (c *Compiler) popBreak(fi *FunctionInfo) {
	s := breakStacks[fi]
	breakStacks[fi] = s[:len(s)-1]
}

func (c *Compiler) breakTarget(fi *FunctionInfo) (string, bool) {
	s := breakStacks[fi]
	if len(s) == 0 {
		return "", false
	}
	return s[len(s)-1], true
}

func (c *Compiler) compileLocalStat(fi *FunctionInfo, s *ast.LocalStat) error {
	vals, err := c.compileExprListAligned(fi, s.Exprs, len(s.Names))
	if err != nil {
		return err
	}
	ids := c.an.DeclsFor(s)
	for i, id := range ids {
		c.bindLocal(fi, id, vals[i], s.Line)
	}
	return nil
}

// bindLocal stores val (a register name) into the register a freshly
// declared local owns, wrapping it in a cell first if analysis found
// the local captured by a nested function.
func (c *Compiler) bindLocal(fi *FunctionInfo, id declID, val string, line int) {
	if c.an.Captured(id) {
		c.emit(bytecode.Instruction{Op: bytecode.MAKE_CELL, Args: []string{regForDecl(id)}}, line)
		c.emit(bytecode.Instruction{Op: bytecode.CELL_SET, Args: []string{regForDecl(id), val}}, line)
	} else {
		c.emit(bytecode.Instruction{Op: bytecode.MOV, Args: []string{regForDecl(id), val}}, line)
	}
}
