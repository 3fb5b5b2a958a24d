package vm

import (
	"github.com/rvvm/luavm/bytecode"
	"github.com/rvvm/luavm/value"
)

var arithMeta = map[bytecode.Opcode]string{
	bytecode.ADD: "__add", bytecode.SUB: "__sub", bytecode.MUL: "__mul",
	bytecode.DIV: "__div", bytecode.IDIV: "__idiv", bytecode.MOD: "__mod",
	bytecode.POW: "__pow", bytecode.CONCAT: "__concat",
	bytecode.AND_BIT: "__band", bytecode.OR_BIT: "__bor", bytecode.XOR: "__bxor",
	bytecode.SHL: "__shl", bytecode.SHR: "__shr",
}

func (s *State) execArithOp(f *Frame, in bytecode.Instruction) error {
	switch in.Op {
	case bytecode.ADD, bytecode.SUB, bytecode.MUL, bytecode.DIV, bytecode.IDIV,
		bytecode.MOD, bytecode.POW, bytecode.CONCAT,
		bytecode.AND_BIT, bytecode.OR_BIT, bytecode.XOR, bytecode.SHL, bytecode.SHR, bytecode.SAR:
		a, b := f.get(in.Reg(1)), f.get(in.Reg(2))
		v, err := s.binArith(in.Op, a, b)
		if err != nil {
			return err
		}
		f.set(in.Reg(0), v)
	case bytecode.NEG:
		a := f.get(in.Reg(1))
		v, err := value.RawNeg(a)
		if err != nil {
			if mm := s.metamethod(a, "__unm"); mm != nil {
				res, err2 := s.CallSync(mm, []value.Value{a, a})
				if err2 != nil {
					return err2
				}
				f.set(in.Reg(0), first(res))
				return nil
			}
			return s.raise(err.Error())
		}
		f.set(in.Reg(0), v)
	case bytecode.TO_FLOAT:
		a := f.get(in.Reg(1))
		n, ok := value.ToFloat(a)
		if !ok {
			return s.raisef("attempt to perform arithmetic on a %s value", value.TypeOf(a))
		}
		f.set(in.Reg(0), n)
	case bytecode.NOT_BIT:
		a, ok := value.ToInt(f.get(in.Reg(1)))
		if !ok {
			return s.raisef("attempt to perform bitwise operation on a %s value", value.TypeOf(f.get(in.Reg(1))))
		}
		f.set(in.Reg(0), ^a)
	case bytecode.NOT:
		f.set(in.Reg(0), !value.Truthy(f.get(in.Reg(1))))
	case bytecode.EQ:
		f.set(in.Reg(0), s.valuesEqual(f.get(in.Reg(1)), f.get(in.Reg(2))))
	case bytecode.LT, bytecode.GT:
		v, err := s.compare(in.Op, f.get(in.Reg(1)), f.get(in.Reg(2)))
		if err != nil {
			return err
		}
		f.set(in.Reg(0), v)
	case bytecode.AND:
		f.set(in.Reg(0), value.Truthy(f.get(in.Reg(1))) && value.Truthy(f.get(in.Reg(2))))
	case bytecode.OR:
		f.set(in.Reg(0), value.Truthy(f.get(in.Reg(1))) || value.Truthy(f.get(in.Reg(2))))
	case bytecode.CMP_IMM:
		cmp, ok := value.Compare(f.get(in.Reg(1)), in.Imm)
		if !ok {
			return s.raisef("attempt to compare %s with number", value.TypeOf(f.get(in.Reg(1))))
		}
		f.set(in.Reg(0), int64(cmp))
	default:
		return s.raisef("internal error: execArithOp called for %s", in.Op)
	}
	return nil
}

func (s *State) binArith(op bytecode.Opcode, a, b value.Value) (value.Value, error) {
	var (
		v   value.Value
		err error
	)
	switch op {
	case bytecode.ADD:
		v, err = value.RawAdd(a, b)
	case bytecode.SUB:
		v, err = value.RawSub(a, b)
	case bytecode.MUL:
		v, err = value.RawMul(a, b)
	case bytecode.DIV:
		v, err = value.RawDiv(a, b)
	case bytecode.IDIV:
		v, err = value.RawIDiv(a, b)
	case bytecode.MOD:
		v, err = value.RawMod(a, b)
	case bytecode.POW:
		v, err = value.RawPow(a, b)
	case bytecode.CONCAT:
		if r, ok := value.RawConcat(a, b); ok {
			return r, nil
		}
		err = errConcat{a, b}
	case bytecode.AND_BIT, bytecode.OR_BIT, bytecode.XOR, bytecode.SHL, bytecode.SHR, bytecode.SAR:
		ai, aok := value.ToInt(a)
		bi, bok := value.ToInt(b)
		if !aok || !bok {
			err = errConcat{a, b}
		} else {
			switch op {
			case bytecode.AND_BIT:
				v = ai & bi
			case bytecode.OR_BIT:
				v = ai | bi
			case bytecode.XOR:
				v = ai ^ bi
			case bytecode.SHL:
				v = shiftLeft(ai, bi)
			case bytecode.SHR:
				v = shiftRight(ai, bi)
			case bytecode.SAR:
				if bi <= -64 || bi >= 64 {
					v = int64(0)
					if bi < 0 {
						v = int64(-1)
						if ai >= 0 {
							v = int64(0)
						}
					}
				} else if bi >= 0 {
					v = ai >> uint(bi)
				} else {
					v = shiftLeft(ai, -bi)
				}
			}
		}
	}
	if err == nil {
		return v, nil
	}
	if name, ok := arithMeta[op]; ok {
		if mm := s.metamethod(a, name); mm != nil {
			res, merr := s.CallSync(mm, []value.Value{a, b})
			if merr != nil {
				return nil, merr
			}
			return first(res), nil
		}
		if mm := s.metamethod(b, name); mm != nil {
			res, merr := s.CallSync(mm, []value.Value{a, b})
			if merr != nil {
				return nil, merr
			}
			return first(res), nil
		}
	}
	return nil, s.raise(err.Error())
}

// errConcat is binArith's coercion-failure error for the concat and
// bitwise operator families, so binArith has one error path
// (metamethod fallback, then raise) for every operator family.
type errConcat struct{ a, b value.Value }

func (e errConcat) Error() string {
	bad := e.a
	if _, ok := value.ToNumber(e.a); ok {
		bad = e.b
	}
	return "attempt to perform bitwise operation on a " + string(value.TypeOf(bad)) + " value"
}

func shiftLeft(a, n int64) int64 {
	if n <= -64 || n >= 64 {
		return 0
	}
	if n >= 0 {
		return a << uint(n)
	}
	return int64(uint64(a) >> uint(-n))
}

func shiftRight(a, n int64) int64 { return shiftLeft(a, -n) }

func (s *State) valuesEqual(a, b value.Value) bool {
	if value.RawEqual(a, b) {
		return true
	}
	ta, aok := a.(*value.Table)
	tb, bok := b.(*value.Table)
	if !aok || !bok {
		return false
	}
	var mm value.Value
	if ta.Metatable != nil {
		mm = ta.Metatable.Get("__eq")
	}
	if mm == nil && tb.Metatable != nil {
		mm = tb.Metatable.Get("__eq")
	}
	if mm == nil {
		return false
	}
	res, err := s.CallSync(mm, []value.Value{a, b})
	if err != nil {
		return false
	}
	return value.Truthy(first(res))
}

func (s *State) compare(op bytecode.Opcode, a, b value.Value) (value.Value, error) {
	cmp, ok := value.Compare(a, b)
	if ok {
		if op == bytecode.LT {
			return cmp < 0, nil
		}
		return cmp > 0, nil
	}
	name := "__lt"
	x, y := a, b
	if op == bytecode.GT {
		x, y = b, a
	}
	if mm := s.metamethod(x, name); mm != nil {
		res, err := s.CallSync(mm, []value.Value{x, y})
		if err != nil {
			return nil, err
		}
		return value.Truthy(first(res)), nil
	}
	if mm := s.metamethod(y, name); mm != nil {
		res, err := s.CallSync(mm, []value.Value{x, y})
		if err != nil {
			return nil, err
		}
		return value.Truthy(first(res)), nil
	}
	return nil, s.raisef("attempt to compare %s with %s", value.TypeOf(a), value.TypeOf(b))
}
