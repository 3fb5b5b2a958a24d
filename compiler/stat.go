package compiler

import (
	"fmt"

	"github.com/rvvm/luavm/ast"
	"github.com/rvvm/luavm/bytecode"
)

func (c *Compiler) compileAssignStat(fi *FunctionInfo, s *ast.AssignStat) error {
	vals, err := c.compileExprListAligned(fi, s.Exprs, len(s.Targets))
	if err != nil {
		return err
	}
	for i, target := range s.Targets {
		if err := c.compileAssignTo(fi, target, vals[i], s.Line); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileAssignTo(fi *FunctionInfo, target ast.Expr, val string, line int) error {
	switch t := target.(type) {
	case *ast.NameExpr:
		ref := c.an.Resolved(t)
		switch ref.kind {
		case refLocal:
			if c.an.Captured(ref.decl) {
				c.emit(bytecode.Instruction{Op: bytecode.CELL_SET, Args: []string{regForDecl(ref.decl), val}}, line)
			} else {
				c.emit(bytecode.Instruction{Op: bytecode.MOV, Args: []string{regForDecl(ref.decl), val}}, line)
			}
		case refUpvalue:
			c.emit(bytecode.Instruction{Op: bytecode.CELL_SET, Args: []string{c.upvalueReg(fi, ref.index), val}}, line)
		case refGlobal:
			g := c.newTemp(fi)
			idx := c.prog.AddConstant(ref.name)
			c.emit(bytecode.Instruction{Op: bytecode.LOAD_CONST, Args: []string{g}, Const: idx}, line)
			c.emit(bytecode.Instruction{Op: bytecode.TABLE_SET, Args: []string{globalsReg, g, val}}, line)
		}
	case *ast.IndexExpr:
		objReg, err := c.compileExprToReg(fi, t.Obj)
		if err != nil {
			return err
		}
		keyReg, err := c.compileExprToReg(fi, t.Key)
		if err != nil {
			return err
		}
		c.emit(bytecode.Instruction{Op: bytecode.TABLE_SET, Args: []string{objReg, keyReg, val}}, line)
	default:
		return fmt.Errorf("compiler: invalid assignment target %T", target)
	}
	return nil
}

func (c *Compiler) compileWhileStat(fi *FunctionInfo, s *ast.WhileStat) error {
	topLbl := c.newLabel(fi, "while_top")
	endLbl := c.newLabel(fi, "while_end")
	c.emit(bytecode.Instruction{Op: bytecode.LABEL, Label: topLbl}, s.Line)
	condReg, err := c.compileExprToReg(fi, s.Cond)
	if err != nil {
		return err
	}
	c.emit(bytecode.Instruction{Op: bytecode.JZ, Args: []string{condReg}, Label: endLbl}, s.Line)
	c.pushBreak(fi, endLbl)
	if err := c.compileBlock(fi, s.Body); err != nil {
		c.popBreak(fi)
		return err
	}
	c.popBreak(fi)
	c.emit(bytecode.Instruction{Op: bytecode.JMP, Label: topLbl}, s.Line)
	c.emit(bytecode.Instruction{Op: bytecode.LABEL, Label: endLbl}, s.Line)
	return nil
}

func (c *Compiler) compileRepeatStat(fi *FunctionInfo, s *ast.RepeatStat) error {
	topLbl := c.newLabel(fi, "repeat_top")
	endLbl := c.newLabel(fi, "repeat_end")
	c.emit(bytecode.Instruction{Op: bytecode.LABEL, Label: topLbl}, s.Line)
	c.pushBreak(fi, endLbl)
	if err := c.compileBlock(fi, s.Body); err != nil {
		c.popBreak(fi)
		return err
	}
	c.popBreak(fi)
	// The until condition can see the body's locals (handled during
	// analysis by sharing the body's scope), so it is compiled after
	// the body using the same fi; no separate scope object is needed
	// here since codegen only ever consults declIDs, not blockScopes.
	condReg, err := c.compileExprToReg(fi, s.Cond)
	if err != nil {
		return err
	}
	c.emit(bytecode.Instruction{Op: bytecode.JZ, Args: []string{condReg}, Label: topLbl}, s.Line)
	c.emit(bytecode.Instruction{Op: bytecode.LABEL, Label: endLbl}, s.Line)
	return nil
}

func (c *Compiler) compileIfStat(fi *FunctionInfo, s *ast.IfStat) error {
	endLbl := c.newLabel(fi, "if_end")
	for i, cond := range s.Conds {
		nextLbl := c.newLabel(fi, "if_next")
		condReg, err := c.compileExprToReg(fi, cond)
		if err != nil {
			return err
		}
		c.emit(bytecode.Instruction{Op: bytecode.JZ, Args: []string{condReg}, Label: nextLbl}, 0)
		if err := c.compileBlock(fi, s.Blocks[i]); err != nil {
			return err
		}
		c.emit(bytecode.Instruction{Op: bytecode.JMP, Label: endLbl}, 0)
		c.emit(bytecode.Instruction{Op: bytecode.LABEL, Label: nextLbl}, 0)
	}
	if s.Else != nil {
		if err := c.compileBlock(fi, s.Else); err != nil {
			return err
		}
	}
	c.emit(bytecode.Instruction{Op: bytecode.LABEL, Label: endLbl}, 0)
	return nil
}

func (c *Compiler) compileFuncStat(fi *FunctionInfo, s *ast.FuncStat) error {
	dst := c.newTemp(fi)
	if err := c.emitClosure(fi, s.Func, dst); err != nil {
		return err
	}
	if len(s.Name.Path) == 0 && s.Name.Method == "" {
		return c.compileAssignTo(fi, &ast.NameExpr{Name: s.Name.Base, Line: s.Line}, dst, s.Line)
	}
	// function a.b.c(...) / function a.b:c(...): walk the dotted path,
	// reading each intermediate table, then TABLE_SET the final key.
	baseReg, err := c.compileExprToReg(fi, &ast.NameExpr{Name: s.Name.Base, Line: s.Line})
	if err != nil {
		return err
	}
	path := s.Name.Path
	finalKey := s.Name.Method
	if finalKey == "" {
		finalKey = path[len(path)-1]
		path = path[:len(path)-1]
	}
	obj := baseReg
	for _, seg := range path {
		keyReg := c.newTemp(fi)
		idx := c.prog.AddConstant(seg)
		c.emit(bytecode.Instruction{Op: bytecode.LOAD_CONST, Args: []string{keyReg}, Const: idx}, s.Line)
		next := c.newTemp(fi)
		c.emit(bytecode.Instruction{Op: bytecode.TABLE_GET, Args: []string{next, obj, keyReg}}, s.Line)
		obj = next
	}
	keyReg := c.newTemp(fi)
	idx := c.prog.AddConstant(finalKey)
	c.emit(bytecode.Instruction{Op: bytecode.LOAD_CONST, Args: []string{keyReg}, Const: idx}, s.Line)
	c.emit(bytecode.Instruction{Op: bytecode.TABLE_SET, Args: []string{obj, keyReg, dst}}, s.Line)
	return nil
}

func (c *Compiler) compileLocalFuncStat(fi *FunctionInfo, s *ast.LocalFuncStat) error {
	ids := c.an.DeclsFor(s)
	id := ids[0]
	// Allocate the local's storage (including its cell, if captured)
	// before compiling the body so recursive self-references resolve.
	if c.an.Captured(id) {
		c.emit(bytecode.Instruction{Op: bytecode.MAKE_CELL, Args: []string{regForDecl(id)}}, s.Line)
	}
	dst := c.newTemp(fi)
	if err := c.emitClosure(fi, s.Func, dst); err != nil {
		return err
	}
	if c.an.Captured(id) {
		c.emit(bytecode.Instruction{Op: bytecode.CELL_SET, Args: []string{regForDecl(id), dst}}, s.Line)
	} else {
		c.emit(bytecode.Instruction{Op: bytecode.MOV, Args: []string{regForDecl(id), dst}}, s.Line)
	}
	return nil
}

func (c *Compiler) compileReturnStat(fi *FunctionInfo, s *ast.ReturnStat) error {
	if len(s.Exprs) == 0 {
		c.emit(bytecode.Instruction{Op: bytecode.RETURN_MULTI, Args: nil}, s.Line)
		return nil
	}
	if len(s.Exprs) == 1 && ast.IsMultiValue(s.Exprs[0]) {
		listReg, err := c.compileMultiValueToList(fi, s.Exprs[0])
		if err != nil {
			return err
		}
		c.emit(bytecode.Instruction{Op: bytecode.RETURN_MULTI, Args: []string{listReg}}, s.Line)
		return nil
	}
	// RETURN only accumulates one value into the pending result set;
	// RETURN_MULTI is what actually hands control back to the caller,
	// so every path through this function must end with exactly one
	// RETURN_MULTI even when there is no trailing multi-value expr to
	// carry.
	for i, e := range s.Exprs {
		isLast := i == len(s.Exprs)-1
		if isLast && ast.IsMultiValue(e) {
			listReg, err := c.compileMultiValueToList(fi, e)
			if err != nil {
				return err
			}
			c.emit(bytecode.Instruction{Op: bytecode.RETURN_MULTI, Args: []string{listReg}}, s.Line)
			return nil
		}
		r, err := c.compileExprToReg(fi, e)
		if err != nil {
			return err
		}
		c.emit(bytecode.Instruction{Op: bytecode.RETURN, Args: []string{r}}, s.Line)
	}
	c.emit(bytecode.Instruction{Op: bytecode.RETURN_MULTI, Args: nil}, s.Line)
	return nil
}
