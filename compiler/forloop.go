package compiler

import (
	"github.com/rvvm/luavm/ast"
	"github.com/rvvm/luavm/bytecode"
)

// compileNumericFor lowers `for v = start, limit[, step] do body end`.
// When the control variable is captured by a closure in the body,
// analysis marks it loop-scoped: each iteration gets its own fresh
// cell, so closures created on different iterations see distinct
// variables (the classic `for i=1,3 do t[i]=function() return i end
// end` case).
func (c *Compiler) compileNumericFor(fi *FunctionInfo, s *ast.NumericForStat) error {
	startReg, err := c.compileExprToReg(fi, s.Start)
	if err != nil {
		return err
	}
	limitReg, err := c.compileExprToReg(fi, s.Limit)
	if err != nil {
		return err
	}
	var stepReg string
	if s.Step != nil {
		stepReg, err = c.compileExprToReg(fi, s.Step)
		if err != nil {
			return err
		}
	} else {
		stepReg = c.newTemp(fi)
		c.emit(bytecode.Instruction{Op: bytecode.LOAD_IMM, Args: []string{stepReg}, Imm: 1}, s.Line)
	}

	ivReg := c.newTemp(fi) // the raw numeric induction counter, separate
	// from the user-visible variable's register/cell so a captured
	// variable's per-iteration cell never interferes with the loop
	// control values.
	c.emit(bytecode.Instruction{Op: bytecode.MOV, Args: []string{ivReg, startReg}}, s.Line)

	topLbl := c.newLabel(fi, "nfor_top")
	endLbl := c.newLabel(fi, "nfor_end")
	id := c.an.ForVarDecls(s)[0]

	c.emit(bytecode.Instruction{Op: bytecode.LABEL, Label: topLbl}, s.Line)

	// loop test: (step >= 0 and iv <= limit) or (step < 0 and iv >= limit).
	// The comparison opcodes give us LT/GT/EQ; build the two-sided test
	// from those.
	zeroReg := c.newTemp(fi)
	c.emit(bytecode.Instruction{Op: bytecode.LOAD_IMM, Args: []string{zeroReg}, Imm: 0}, s.Line)
	stepNonNeg := c.newTemp(fi)
	c.emit(bytecode.Instruction{Op: bytecode.LT, Args: []string{stepNonNeg, stepReg, zeroReg}}, s.Line)
	c.emit(bytecode.Instruction{Op: bytecode.NOT, Args: []string{stepNonNeg, stepNonNeg}}, s.Line)

	descLbl := c.newLabel(fi, "nfor_desc")
	afterTestLbl := c.newLabel(fi, "nfor_after_test")
	condReg := c.newTemp(fi)

	c.emit(bytecode.Instruction{Op: bytecode.JZ, Args: []string{stepNonNeg}, Label: descLbl}, s.Line)
	gt := c.newTemp(fi)
	c.emit(bytecode.Instruction{Op: bytecode.GT, Args: []string{gt, ivReg, limitReg}}, s.Line)
	c.emit(bytecode.Instruction{Op: bytecode.NOT, Args: []string{condReg, gt}}, s.Line)
	c.emit(bytecode.Instruction{Op: bytecode.JMP, Label: afterTestLbl}, s.Line)

	c.emit(bytecode.Instruction{Op: bytecode.LABEL, Label: descLbl}, s.Line)
	lt := c.newTemp(fi)
	c.emit(bytecode.Instruction{Op: bytecode.LT, Args: []string{lt, ivReg, limitReg}}, s.Line)
	c.emit(bytecode.Instruction{Op: bytecode.NOT, Args: []string{condReg, lt}}, s.Line)

	c.emit(bytecode.Instruction{Op: bytecode.LABEL, Label: afterTestLbl}, s.Line)
	c.emit(bytecode.Instruction{Op: bytecode.JZ, Args: []string{condReg}, Label: endLbl}, s.Line)

	c.bindLocal(fi, id, ivReg, s.Line)

	c.pushBreak(fi, endLbl)
	if err := c.compileBlock(fi, s.Body); err != nil {
		c.popBreak(fi)
		return err
	}
	c.popBreak(fi)

	c.emit(bytecode.Instruction{Op: bytecode.ADD, Args: []string{ivReg, ivReg, stepReg}}, s.Line)
	c.emit(bytecode.Instruction{Op: bytecode.JMP, Label: topLbl}, s.Line)
	c.emit(bytecode.Instruction{Op: bytecode.LABEL, Label: endLbl}, s.Line)
	return nil
}

// compileGenericFor lowers `for names in exprs do body end`: exprs
// evaluate once to (iterator function, state, initial control
// variable); each iteration calls the iterator with (state, control),
// rebinds names to the results, and stops when the first result is
// nil.
func (c *Compiler) compileGenericFor(fi *FunctionInfo, s *ast.GenericForStat) error {
	vals, err := c.compileExprListAligned(fi, s.Exprs, 3)
	if err != nil {
		return err
	}
	iterFn, state, control := vals[0], vals[1], vals[2]

	topLbl := c.newLabel(fi, "gfor_top")
	endLbl := c.newLabel(fi, "gfor_end")
	ids := c.an.ForVarDecls(s)

	c.emit(bytecode.Instruction{Op: bytecode.LABEL, Label: topLbl}, s.Line)
	c.emit(bytecode.Instruction{Op: bytecode.ARG, Args: []string{state}}, s.Line)
	c.emit(bytecode.Instruction{Op: bytecode.ARG, Args: []string{control}}, s.Line)
	c.emit(bytecode.Instruction{Op: bytecode.CALL_VALUE, Args: []string{iterFn}}, s.Line)

	results := make([]string, len(ids))
	for i := range results {
		r := c.newTemp(fi)
		c.emit(bytecode.Instruction{Op: bytecode.RESULT, Args: []string{r}}, s.Line)
		results[i] = r
	}
	if len(results) == 0 {
		// `for in f() do end` with no names still must advance and test
		// the iterator; synthesize one throwaway result slot.
		r := c.newTemp(fi)
		c.emit(bytecode.Instruction{Op: bytecode.RESULT, Args: []string{r}}, s.Line)
		results = []string{r}
	}

	isNil := c.newTemp(fi)
	c.emit(bytecode.Instruction{Op: bytecode.EQ, Args: []string{isNil, results[0], c.nilReg(fi, s.Line)}}, s.Line)
	c.emit(bytecode.Instruction{Op: bytecode.JNZ, Args: []string{isNil}, Label: endLbl}, s.Line)
	c.emit(bytecode.Instruction{Op: bytecode.MOV, Args: []string{control, results[0]}}, s.Line)

	for i, id := range ids {
		if i < len(results) {
			c.bindLocal(fi, id, results[i], s.Line)
		} else {
			c.bindLocal(fi, id, c.nilReg(fi, s.Line), s.Line)
		}
	}

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
