package vm

import (
	"github.com/rvvm/luavm/bytecode"
	"github.com/rvvm/luavm/value"
)

func (s *State) execClosureOp(f *Frame, in bytecode.Instruction) error {
	switch in.Op {
	case bytecode.MAKE_CELL:
		f.set(in.Reg(0), value.NewCell(nil))
	case bytecode.CELL_GET:
		cell, ok := f.get(in.Reg(1)).(*value.Cell)
		if !ok {
			return s.raisef("internal error: CELL_GET target is not a cell")
		}
		f.set(in.Reg(0), cell.Get())
	case bytecode.CELL_SET:
		cell, ok := f.get(in.Reg(0)).(*value.Cell)
		if !ok {
			return s.raisef("internal error: CELL_SET target is not a cell")
		}
		cell.Set(f.get(in.Reg(1)))
	case bytecode.BIND_UPVALUE:
		idx := int(in.Imm)
		if idx < 0 || f.Closure == nil || idx >= len(f.Closure.Upvalues) {
			return s.raisef("internal error: BIND_UPVALUE index %d out of range", idx)
		}
		f.set(in.Reg(0), f.Closure.Upvalues[idx])
	case bytecode.CLOSURE:
		cl := &value.Closure{Label: in.Label}
		for _, argReg := range in.Args[1:] {
			cell, ok := f.get(argReg).(*value.Cell)
			if !ok {
				return s.raisef("internal error: CLOSURE upvalue source is not a cell")
			}
			cl.Upvalues = append(cl.Upvalues, cell)
		}
		f.set(in.Reg(0), cl)
	default:
		return s.raisef("internal error: execClosureOp called for %s", in.Op)
	}
	return nil
}
