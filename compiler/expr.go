package compiler

import (
	"fmt"

	"github.com/rvvm/luavm/ast"
	"github.com/rvvm/luavm/bytecode"
)

// compileExprToReg compiles a single-value expression and returns the
// register holding its result. Multi-value expressions (calls,
// varargs) are truncated to their first result, matching Lua's rule
// that only the last element of an expression list expands.
func (c *Compiler) compileExprToReg(fi *FunctionInfo, e ast.Expr) (string, error) {
	dst := c.newTemp(fi)
	if err := c.compileExprInto(fi, e, dst); err != nil {
		return "", err
	}
	return dst, nil
}

func (c *Compiler) nilReg(fi *FunctionInfo, line int) string {
	t := c.newTemp(fi)
	idx := c.prog.AddConstant(nil)
	c.emit(bytecode.Instruction{Op: bytecode.LOAD_CONST, Args: []string{t}, Const: idx}, line)
	return t
}

func (c *Compiler) compileExprInto(fi *FunctionInfo, e ast.Expr, dst string) error {
	switch x := e.(type) {
	case *ast.NilExpr:
		idx := c.prog.AddConstant(nil)
		c.emit(bytecode.Instruction{Op: bytecode.LOAD_CONST, Args: []string{dst}, Const: idx}, 0)
	case *ast.TrueExpr:
		c.emit(bytecode.Instruction{Op: bytecode.LOAD_IMM, Args: []string{dst}, Imm: 1}, 0)
	case *ast.FalseExpr:
		c.emit(bytecode.Instruction{Op: bytecode.LOAD_IMM, Args: []string{dst}, Imm: 0}, 0)
	case *ast.IntExpr:
		idx := c.prog.AddConstant(x.Value)
		c.emit(bytecode.Instruction{Op: bytecode.LOAD_CONST, Args: []string{dst}, Const: idx}, 0)
	case *ast.FloatExpr:
		idx := c.prog.AddConstant(x.Value)
		c.emit(bytecode.Instruction{Op: bytecode.LOAD_CONST, Args: []string{dst}, Const: idx}, 0)
	case *ast.StringExpr:
		idx := c.prog.AddConstant(x.Value)
		c.emit(bytecode.Instruction{Op: bytecode.LOAD_CONST, Args: []string{dst}, Const: idx}, 0)
	case *ast.VarargExpr:
		c.emit(bytecode.Instruction{Op: bytecode.VARARG_FIRST, Args: []string{dst, fi.Label + "_varargs"}}, x.Line)
	case *ast.NameExpr:
		return c.compileNameLoad(fi, x, dst)
	case *ast.ParenExpr:
		return c.compileExprInto(fi, x.E, dst)
	case *ast.IndexExpr:
		objReg, err := c.compileExprToReg(fi, x.Obj)
		if err != nil {
			return err
		}
		keyReg, err := c.compileExprToReg(fi, x.Key)
		if err != nil {
			return err
		}
		c.emit(bytecode.Instruction{Op: bytecode.TABLE_GET, Args: []string{dst, objReg, keyReg}}, x.Line)
	case *ast.CallExpr:
		results, err := c.compileCallExpr(fi, x, 1)
		if err != nil {
			return err
		}
		c.emit(bytecode.Instruction{Op: bytecode.MOV, Args: []string{dst, results[0]}}, x.Line)
	case *ast.FuncExpr:
		return c.compileFuncExpr(fi, x, dst)
	case *ast.TableExpr:
		return c.compileTableExpr(fi, x, dst)
	case *ast.BinExpr:
		return c.compileBinExpr(fi, x, dst)
	case *ast.UnExpr:
		return c.compileUnExpr(fi, x, dst)
	default:
		return fmt.Errorf("compiler: unhandled expression %T", e)
	}
	return nil
}

func (c *Compiler) compileNameLoad(fi *FunctionInfo, x *ast.NameExpr, dst string) error {
	ref := c.an.Resolved(x)
	switch ref.kind {
	case refLocal:
		if c.an.Captured(ref.decl) {
			c.emit(bytecode.Instruction{Op: bytecode.CELL_GET, Args: []string{dst, regForDecl(ref.decl)}}, x.Line)
		} else {
			c.emit(bytecode.Instruction{Op: bytecode.MOV, Args: []string{dst, regForDecl(ref.decl)}}, x.Line)
		}
	case refUpvalue:
		c.emit(bytecode.Instruction{Op: bytecode.CELL_GET, Args: []string{dst, c.upvalueReg(fi, ref.index)}}, x.Line)
	case refGlobal:
		g := c.newTemp(fi)
		idx := c.prog.AddConstant(ref.name)
		c.emit(bytecode.Instruction{Op: bytecode.LOAD_CONST, Args: []string{g}, Const: idx}, x.Line)
		c.emit(bytecode.Instruction{Op: bytecode.TABLE_GET, Args: []string{dst, globalsReg, g}}, x.Line)
	}
	return nil
}

// globalsReg names the register the VM's call convention reserves for
// the globals table (Lua's "_G" environment table); the VM fills it in
// every Lua frame it pushes.
const globalsReg = "_ENV"

func (c *Compiler) compileUnExpr(fi *FunctionInfo, x *ast.UnExpr, dst string) error {
	src, err := c.compileExprToReg(fi, x.E)
	if err != nil {
		return err
	}
	switch x.Op {
	case "-":
		c.emit(bytecode.Instruction{Op: bytecode.NEG, Args: []string{dst, src}}, x.Line)
	case "not":
		c.emit(bytecode.Instruction{Op: bytecode.NOT, Args: []string{dst, src}}, x.Line)
	case "#":
		c.emit(bytecode.Instruction{Op: bytecode.LEN, Args: []string{dst, src}}, x.Line)
	case "~":
		c.emit(bytecode.Instruction{Op: bytecode.NOT_BIT, Args: []string{dst, src}}, x.Line)
	default:
		return fmt.Errorf("compiler: unhandled unary operator %q", x.Op)
	}
	return nil
}

var binOpcode = map[string]bytecode.Opcode{
	"+": bytecode.ADD, "-": bytecode.SUB, "*": bytecode.MUL, "/": bytecode.DIV,
	"//": bytecode.IDIV, "%": bytecode.MOD, "^": bytecode.POW, "..": bytecode.CONCAT,
	"==": bytecode.EQ, "<": bytecode.LT, ">": bytecode.GT,
	"&": bytecode.AND_BIT, "|": bytecode.OR_BIT, "~": bytecode.XOR,
	"<<": bytecode.SHL, ">>": bytecode.SHR,
}

// floatDivOperators marks operators whose Lua semantics always produce
// a float, unlike the opcode they lower to: source "/" shares DIV with
// the opcode-level contract (which floors on two integers), so the
// compiler coerces both operands to float first. "//" keeps its
// floored-integer behavior and lowers to IDIV untouched.
var floatDivOperators = map[string]bool{"/": true}

// compileBinExpr lowers a binary operator. and/or get short-circuit
// branch sequences because Lua's `and`/`or` yield an operand's actual
// value, not a coerced boolean, unlike the AND/OR opcodes themselves.
func (c *Compiler) compileBinExpr(fi *FunctionInfo, x *ast.BinExpr, dst string) error {
	switch x.Op {
	case "and":
		return c.compileShortCircuit(fi, x, dst, true)
	case "or":
		return c.compileShortCircuit(fi, x, dst, false)
	case "~=":
		l, err := c.compileExprToReg(fi, x.L)
		if err != nil {
			return err
		}
		r, err := c.compileExprToReg(fi, x.R)
		if err != nil {
			return err
		}
		eq := c.newTemp(fi)
		c.emit(bytecode.Instruction{Op: bytecode.EQ, Args: []string{eq, l, r}}, x.Line)
		c.emit(bytecode.Instruction{Op: bytecode.NOT, Args: []string{dst, eq}}, x.Line)
		return nil
	case "<=":
		return c.compileComparisonViaSwap(fi, x, dst, bytecode.GT, true)
	case ">=":
		return c.compileComparisonViaSwap(fi, x, dst, bytecode.LT, true)
	}
	op, ok := binOpcode[x.Op]
	if !ok {
		return fmt.Errorf("compiler: unhandled binary operator %q", x.Op)
	}
	l, err := c.compileExprToReg(fi, x.L)
	if err != nil {
		return err
	}
	r, err := c.compileExprToReg(fi, x.R)
	if err != nil {
		return err
	}
	if floatDivOperators[x.Op] {
		lf, rf := c.newTemp(fi), c.newTemp(fi)
		c.emit(bytecode.Instruction{Op: bytecode.TO_FLOAT, Args: []string{lf, l}}, x.Line)
		c.emit(bytecode.Instruction{Op: bytecode.TO_FLOAT, Args: []string{rf, r}}, x.Line)
		l, r = lf, rf
	}
	c.emit(bytecode.Instruction{Op: op, Args: []string{dst, l, r}}, x.Line)
	return nil
}

// compileComparisonViaSwap implements <= and >= by negating the
// complementary strict comparison (a <= b  <=>  not (a > b) for the
// total orders the VM's Compare supports), avoiding dedicated LE/GE
// opcodes.
func (c *Compiler) compileComparisonViaSwap(fi *FunctionInfo, x *ast.BinExpr, dst string, op bytecode.Opcode, negate bool) error {
	l, err := c.compileExprToReg(fi, x.L)
	if err != nil {
		return err
	}
	r, err := c.compileExprToReg(fi, x.R)
	if err != nil {
		return err
	}
	tmp := c.newTemp(fi)
	c.emit(bytecode.Instruction{Op: op, Args: []string{tmp, l, r}}, x.Line)
	if negate {
		c.emit(bytecode.Instruction{Op: bytecode.NOT, Args: []string{dst, tmp}}, x.Line)
	} else {
		c.emit(bytecode.Instruction{Op: bytecode.MOV, Args: []string{dst, tmp}}, x.Line)
	}
	return nil
}

func (c *Compiler) compileShortCircuit(fi *FunctionInfo, x *ast.BinExpr, dst string, isAnd bool) error {
	if err := c.compileExprInto(fi, x.L, dst); err != nil {
		return err
	}
	doneLbl := c.newLabel(fi, "sc_done")
	if isAnd {
		c.emit(bytecode.Instruction{Op: bytecode.JZ, Args: []string{dst}, Label: doneLbl}, x.Line)
	} else {
		c.emit(bytecode.Instruction{Op: bytecode.JNZ, Args: []string{dst}, Label: doneLbl}, x.Line)
	}
	if err := c.compileExprInto(fi, x.R, dst); err != nil {
		return err
	}
	c.emit(bytecode.Instruction{Op: bytecode.LABEL, Label: doneLbl}, x.Line)
	return nil
}

func (c *Compiler) compileFuncExpr(fi *FunctionInfo, x *ast.FuncExpr, dst string) error {
	return c.emitClosure(fi, x.Body, dst)
}

func (c *Compiler) emitClosure(fi *FunctionInfo, fb *ast.FuncBody, dst string) error {
	childFI := c.an.FuncInfoFor(fb)
	c.funcSeq++
	childFI.Label = fmt.Sprintf("fn%d", c.funcSeq)
	if fb.Name != "" {
		childFI.Label = fmt.Sprintf("%s_%s", childFI.Label, sanitizeLabel(fb.Name))
	}

	args := []string{dst}
	for _, src := range childFI.Upvalues {
		var srcReg string
		if src.fromParentLocal {
			srcReg = regForDecl(src.parentDecl)
		} else {
			srcReg = c.upvalueReg(fi, src.parentUpvalue)
		}
		args = append(args, srcReg)
	}
	c.emit(bytecode.Instruction{Op: bytecode.CLOSURE, Args: args, Label: childFI.Label}, fb.Line)

	c.pendingFuncs = append(c.pendingFuncs, pendingFunc{fi: childFI, body: fb.Body})
	return nil
}

func sanitizeLabel(s string) string {
	b := []byte(s)
	for i, ch := range b {
		if !(ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9') {
			b[i] = '_'
		}
	}
	return string(b)
}

func (c *Compiler) compileTableExpr(fi *FunctionInfo, x *ast.TableExpr, dst string) error {
	c.emit(bytecode.Instruction{Op: bytecode.TABLE_NEW, Args: []string{dst}}, x.Line)
	arrayIdx := int64(1)
	for i, f := range x.Fields {
		isLast := i == len(x.Fields)-1
		if f.Key != nil {
			keyReg, err := c.compileExprToReg(fi, f.Key)
			if err != nil {
				return err
			}
			valReg, err := c.compileExprToReg(fi, f.Value)
			if err != nil {
				return err
			}
			c.emit(bytecode.Instruction{Op: bytecode.TABLE_SET, Args: []string{dst, keyReg, valReg}}, x.Line)
			continue
		}
		if isLast && ast.IsMultiValue(f.Value) {
			listReg, err := c.compileMultiValueToList(fi, f.Value)
			if err != nil {
				return err
			}
			c.emit(bytecode.Instruction{Op: bytecode.TABLE_EXTEND, Args: []string{dst, listReg}, Imm: arrayIdx}, x.Line)
			continue
		}
		valReg, err := c.compileExprToReg(fi, f.Value)
		if err != nil {
			return err
		}
		c.emit(bytecode.Instruction{Op: bytecode.TABLE_APPEND, Args: []string{dst, valReg}, Imm: arrayIdx}, x.Line)
		arrayIdx++
	}
	return nil
}

// compileMultiValueToList compiles a call or vararg expression to a
// register holding the full value.List of everything it returned,
// rather than truncating to the first result.
func (c *Compiler) compileMultiValueToList(fi *FunctionInfo, e ast.Expr) (string, error) {
	dst := c.newTemp(fi)
	switch x := e.(type) {
	case *ast.CallExpr:
		if err := c.emitCall(fi, x); err != nil {
			return "", err
		}
		c.emit(bytecode.Instruction{Op: bytecode.RESULT_LIST, Args: []string{dst}}, x.Line)
	case *ast.VarargExpr:
		c.emit(bytecode.Instruction{Op: bytecode.VARARG, Args: []string{dst, fi.Label + "_varargs"}}, x.Line)
	default:
		return "", fmt.Errorf("compiler: %T is not a multi-value expression", e)
	}
	return dst, nil
}

// compileExprListAligned evaluates exprs and returns exactly want
// register names, expanding the last expression if it is a call or
// vararg and padding with nil constants otherwise.
func (c *Compiler) compileExprListAligned(fi *FunctionInfo, exprs []ast.Expr, want int) ([]string, error) {
	var out []string
	for i, e := range exprs {
		isLast := i == len(exprs)-1
		if isLast && ast.IsMultiValue(e) {
			listReg, err := c.compileMultiValueToList(fi, e)
			if err != nil {
				return nil, err
			}
			remaining := want - len(out)
			if remaining < 0 {
				remaining = 0
			}
			for k := 0; k < remaining; k++ {
				r := c.newTemp(fi)
				c.emit(bytecode.Instruction{Op: bytecode.LIST_GET, Args: []string{r, listReg}, Imm: int64(k)}, 0)
				out = append(out, r)
			}
			continue
		}
		r, err := c.compileExprToReg(fi, e)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	for len(out) < want {
		out = append(out, c.nilReg(fi, 0))
	}
	return out[:want], nil
}

// compileCallExpr compiles a call and returns `want` result registers
// (pass 0 to mean "don't care", used for statement-position calls
// executed purely for side effects). Results beyond the first `want`
// are drained and discarded so they never reach a later RESULT or
// CallSync.
func (c *Compiler) compileCallExpr(fi *FunctionInfo, x *ast.CallExpr, want int) ([]string, error) {
	if err := c.emitCall(fi, x); err != nil {
		return nil, err
	}
	out := make([]string, want)
	for i := range out {
		r := c.newTemp(fi)
		c.emit(bytecode.Instruction{Op: bytecode.RESULT, Args: []string{r}}, x.Line)
		out[i] = r
	}
	c.emit(bytecode.Instruction{Op: bytecode.RESULT_LIST, Args: []string{c.newTemp(fi)}}, x.Line)
	if want == 0 {
		return nil, nil
	}
	return out, nil
}

func (c *Compiler) emitCall(fi *FunctionInfo, x *ast.CallExpr) error {
	fnReg, err := c.compileExprToReg(fi, x.Fn)
	if err != nil {
		return err
	}
	args := x.Args
	if x.Method != "" {
		// obj:method(args) calls obj.method(obj, args): fnReg currently
		// holds obj, so resolve the method from it, then thread obj as
		// an implicit first argument.
		objReg := fnReg
		methodNameIdx := c.prog.AddConstant(x.Method)
		nameReg := c.newTemp(fi)
		c.emit(bytecode.Instruction{Op: bytecode.LOAD_CONST, Args: []string{nameReg}, Const: methodNameIdx}, x.Line)
		fnReg = c.newTemp(fi)
		c.emit(bytecode.Instruction{Op: bytecode.TABLE_GET, Args: []string{fnReg, objReg, nameReg}}, x.Line)
		c.emit(bytecode.Instruction{Op: bytecode.ARG, Args: []string{objReg}}, x.Line)
	}
	for i, arg := range args {
		isLast := i == len(args)-1
		if isLast && ast.IsMultiValue(arg) {
			listReg, err := c.compileMultiValueToList(fi, arg)
			if err != nil {
				return err
			}
			c.emit(bytecode.Instruction{Op: bytecode.ARG_SPREAD, Args: []string{listReg}}, x.Line)
			continue
		}
		r, err := c.compileExprToReg(fi, arg)
		if err != nil {
			return err
		}
		c.emit(bytecode.Instruction{Op: bytecode.ARG, Args: []string{r}}, x.Line)
	}
	c.emit(bytecode.Instruction{Op: bytecode.CALL_VALUE, Args: []string{fnReg}}, x.Line)
	return nil
}
