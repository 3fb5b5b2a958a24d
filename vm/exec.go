package vm

import (
	"fmt"

	"github.com/rvvm/luavm/bytecode"
	"github.com/rvvm/luavm/value"
)

// Run executes the program from its entry label until the call stack
// drains (the main chunk returned) or an uncaught error propagates.
func (s *State) Run() error {
	if len(s.frames) == 0 {
		pc, ok := s.Program.PCFor(s.Program.EntryLabel)
		if !ok {
			return s.raisef("entry label %q not found", s.Program.EntryLabel)
		}
		f := newFrame(&value.Closure{Label: s.Program.EntryLabel})
		f.PC = pc
		s.pushFrame(f)
	}
	return s.run()
}

// run steps the currently active coroutine's frame stack until it
// drains, HALTs, or yields. A yield is not an error: it simply stops
// the loop with the coroutine left suspended for a later Resume.
func (s *State) run() error {
	for {
		f := s.frame()
		if f == nil {
			return nil
		}
		if s.StepBudget > 0 && s.steps >= s.StepBudget {
			return s.raisef("step budget of %d instructions exceeded", s.StepBudget)
		}
		if f.PC < 0 || f.PC >= len(s.Program.Code) {
			s.popFrame()
			continue
		}
		in := s.Program.Code[f.PC]
		f.PC++
		s.steps++
		s.emit(Event{Kind: EventInstruction, PC: f.PC - 1, Label: in.Op.String()})
		if err := s.exec(f, in); err != nil {
			if err == errYield {
				return nil
			}
			if lerr, ok := err.(*Err); ok {
				s.emit(Event{Kind: EventError, PC: f.PC - 1, Value: lerr.Value})
			}
			return err
		}
		if in.Op == bytecode.HALT {
			return nil
		}
	}
}

func (s *State) exec(f *Frame, in bytecode.Instruction) error {
	switch in.Op {
	case bytecode.LOAD_IMM:
		f.set(in.Reg(0), in.Imm)
	case bytecode.MOV, bytecode.VARARG:
		f.set(in.Reg(0), f.get(in.Reg(1)))
	case bytecode.LOAD_CONST:
		f.set(in.Reg(0), s.Program.Constants[in.Const])
	case bytecode.CLR:
		f.set(in.Reg(0), nil)
	case bytecode.VARARG_FIRST:
		list, _ := f.get(in.Reg(1)).(value.List)
		if len(list) > 0 {
			f.set(in.Reg(0), list[0])
		} else {
			f.set(in.Reg(0), nil)
		}

	case bytecode.ADD, bytecode.SUB, bytecode.MUL, bytecode.DIV, bytecode.IDIV, bytecode.MOD,
		bytecode.POW, bytecode.NEG, bytecode.CONCAT, bytecode.EQ, bytecode.LT, bytecode.GT,
		bytecode.AND, bytecode.OR, bytecode.NOT, bytecode.AND_BIT, bytecode.OR_BIT, bytecode.XOR,
		bytecode.NOT_BIT, bytecode.SHL, bytecode.SHR, bytecode.SAR, bytecode.CMP_IMM, bytecode.TO_FLOAT:
		return s.execArithOp(f, in)

	case bytecode.LABEL:
		// no-op at runtime; only meaningful to ResolveLabels
	case bytecode.JMP:
		return s.jumpTo(f, in.Label)
	case bytecode.JZ:
		if !value.Truthy(f.get(in.Reg(0))) {
			return s.jumpTo(f, in.Label)
		}
	case bytecode.JNZ:
		if value.Truthy(f.get(in.Reg(0))) {
			return s.jumpTo(f, in.Label)
		}
	case bytecode.JMP_REL:
		f.PC += int(in.Imm) - 1 // -1 compensates for the pre-increment in run()

	case bytecode.PARAM:
		f.set(in.Reg(0), f.nextParam())
	case bytecode.PARAM_EXPAND:
		f.set(in.Reg(0), f.remainingParams())
	case bytecode.ARG:
		s.argQ = append(s.argQ, f.get(in.Reg(0)))
	case bytecode.ARG_SPREAD:
		list, _ := f.get(in.Reg(0)).(value.List)
		s.argQ = append(s.argQ, list...)
	case bytecode.CALL:
		args := append([]value.Value(nil), s.argQ...)
		s.argQ = s.argQ[:0]
		pc, ok := s.Program.PCFor(in.Label)
		if !ok {
			return s.raisef("attempt to call undefined function %q", in.Label)
		}
		nf := newFrame(&value.Closure{Label: in.Label})
		nf.PC = pc
		nf.params = args
		s.pushFrame(nf)
	case bytecode.CALL_VALUE:
		args := append([]value.Value(nil), s.argQ...)
		s.argQ = s.argQ[:0]
		return s.doCall(f.get(in.Reg(0)), args)
	case bytecode.RETURN:
		s.resQ = append(s.resQ, f.get(in.Reg(0)))
	case bytecode.RETURN_MULTI:
		if len(in.Args) > 0 {
			list, _ := f.get(in.Reg(0)).(value.List)
			s.resQ = append(s.resQ, list...)
		}
		s.popFrame()
	case bytecode.RESULT:
		f.set(in.Reg(0), popFront(&s.resQ))
	case bytecode.RESULT_MULTI, bytecode.RESULT_LIST:
		f.set(in.Reg(0), value.List(append(value.List(nil), s.resQ...)))
		s.resQ = s.resQ[:0]

	case bytecode.MAKE_CELL, bytecode.CELL_GET, bytecode.CELL_SET, bytecode.BIND_UPVALUE, bytecode.CLOSURE:
		return s.execClosureOp(f, in)

	case bytecode.TABLE_NEW, bytecode.TABLE_SET, bytecode.TABLE_GET, bytecode.TABLE_APPEND,
		bytecode.TABLE_EXTEND, bytecode.LIST_GET, bytecode.LEN:
		return s.execTableOp(f, in)

	case bytecode.PRINT:
		s.onPrint(value.ToDisplayString(f.get(in.Reg(0))))
	case bytecode.HALT:
		// handled by the caller (run) after exec returns

	default:
		return s.raisef("internal error: opcode %s not implemented by this front-end's VM build", in.Op)
	}
	return nil
}

func (s *State) jumpTo(f *Frame, label string) error {
	pc, ok := s.Program.PCFor(label)
	if !ok {
		return s.raisef("internal error: undefined jump target %q", label)
	}
	f.PC = pc
	return nil
}

func popFront(q *[]value.Value) value.Value {
	if len(*q) == 0 {
		return nil
	}
	v := (*q)[0]
	*q = (*q)[1:]
	return v
}

// onPrint is a package-level hook (not a State field) so embedders can
// redirect output through SetPrintHook without the vm package importing
// an io.Writer concern it otherwise has no use for; by default it
// writes to standard output via fmt.Println.
var printHook = func(s string) { fmt.Println(s) }

func (s *State) onPrint(str string) { printHook(str) }

// SetPrintHook lets embedders (the CLI, tests) capture PRINT output.
func SetPrintHook(fn func(string)) { printHook = fn }

// Print writes str through the same hook PRINT instructions use, so
// stdlib's print() and the PRINT opcode share one output sink.
func (s *State) Print(str string) { s.onPrint(str) }
