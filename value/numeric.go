package value

import (
	"fmt"
	"math"
)

// ArithError is returned by the raw numeric helpers when either
// operand is not coercible to a number, so the caller (the VM's opcode
// handler) knows to fall back to a metamethod instead of raising
// immediately.
type ArithError struct {
	Op string
	A, B Value
}

func (e *ArithError) Error() string {
	return fmt.Sprintf("attempt to perform arithmetic (%s) on a %s value", e.Op, TypeOf(pickBad(e.A, e.B)))
}

func pickBad(a, b Value) Value {
	if _, ok := ToNumber(a); !ok {
		return a
	}
	return b
}

// RawAdd, RawSub, RawMul implement ADD/SUB/MUL: integer arithmetic
// stays integer, any float operand promotes the result to float.
func RawAdd(a, b Value) (Value, error) { return arith2("add", a, b, func(x, y int64) int64 { return x + y }, func(x, y float64) float64 { return x + y }) }
func RawSub(a, b Value) (Value, error) { return arith2("sub", a, b, func(x, y int64) int64 { return x - y }, func(x, y float64) float64 { return x - y }) }
func RawMul(a, b Value) (Value, error) { return arith2("mul", a, b, func(x, y int64) int64 { return x * y }, func(x, y float64) float64 { return x * y }) }

func arith2(op string, a, b Value, intOp func(x, y int64) int64, floatOp func(x, y float64) float64) (Value, error) {
	an, aok := ToNumber(a)
	bn, bok := ToNumber(b)
	if !aok || !bok {
		return nil, &ArithError{Op: op, A: a, B: b}
	}
	ai, aIsInt := an.(int64)
	bi, bIsInt := bn.(int64)
	if aIsInt && bIsInt {
		return intOp(ai, bi), nil
	}
	af, _ := ToFloat(an)
	bf, _ := ToFloat(bn)
	return floatOp(af, bf), nil
}

// RawDiv implements the opcode-level DIV: two integers produce a
// floored integer quotient (§9 Open Questions); any float operand
// produces a float division. The Lua compiler is responsible for
// routing source-level `/` through a forced-float coercion first so
// that user-visible division always yields a float (see compiler
// package).
func RawDiv(a, b Value) (Value, error) {
	an, aok := ToNumber(a)
	bn, bok := ToNumber(b)
	if !aok || !bok {
		return nil, &ArithError{Op: "div", A: a, B: b}
	}
	ai, aIsInt := an.(int64)
	bi, bIsInt := bn.(int64)
	if aIsInt && bIsInt {
		if bi == 0 {
			return nil, fmt.Errorf("attempt to perform 'n//0'")
		}
		return floorDivInt(ai, bi), nil
	}
	af, _ := ToFloat(an)
	bf, _ := ToFloat(bn)
	return af / bf, nil
}

// RawIDiv implements IDIV (floor division): always floors, but
// promotes to float if either operand is a float (matching Lua's //).
func RawIDiv(a, b Value) (Value, error) {
	an, aok := ToNumber(a)
	bn, bok := ToNumber(b)
	if !aok || !bok {
		return nil, &ArithError{Op: "idiv", A: a, B: b}
	}
	ai, aIsInt := an.(int64)
	bi, bIsInt := bn.(int64)
	if aIsInt && bIsInt {
		if bi == 0 {
			return nil, fmt.Errorf("attempt to perform 'n//0'")
		}
		return floorDivInt(ai, bi), nil
	}
	af, _ := ToFloat(an)
	bf, _ := ToFloat(bn)
	return math.Floor(af / bf), nil
}

func floorDivInt(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// RawMod implements Lua's floored modulo: the result has the same
// sign as the divisor.
func RawMod(a, b Value) (Value, error) {
	an, aok := ToNumber(a)
	bn, bok := ToNumber(b)
	if !aok || !bok {
		return nil, &ArithError{Op: "mod", A: a, B: b}
	}
	ai, aIsInt := an.(int64)
	bi, bIsInt := bn.(int64)
	if aIsInt && bIsInt {
		if bi == 0 {
			return nil, fmt.Errorf("attempt to perform 'n%%0'")
		}
		m := ai % bi
		if m != 0 && (m < 0) != (bi < 0) {
			m += bi
		}
		return m, nil
	}
	af, _ := ToFloat(an)
	bf, _ := ToFloat(bn)
	m := math.Mod(af, bf)
	if m != 0 && (m < 0) != (bf < 0) {
		m += bf
	}
	return m, nil
}

// RawPow implements POW: Lua's ^ is always float, regardless of
// operand types.
func RawPow(a, b Value) (Value, error) {
	af, aok := numToFloat(a)
	bf, bok := numToFloat(b)
	if !aok || !bok {
		return nil, &ArithError{Op: "pow", A: a, B: b}
	}
	return math.Pow(af, bf), nil
}

func numToFloat(v Value) (float64, bool) {
	n, ok := ToNumber(v)
	if !ok {
		return 0, false
	}
	f, _ := ToFloat(n)
	return f, true
}

// RawNeg implements unary NEG.
func RawNeg(a Value) (Value, error) {
	n, ok := ToNumber(a)
	if !ok {
		return nil, &ArithError{Op: "unm", A: a, B: a}
	}
	switch x := n.(type) {
	case int64:
		return -x, nil
	case float64:
		return -x, nil
	}
	panic("unreachable")
}

// RawConcat implements CONCAT's non-metamethod path: numbers, strings,
// booleans and nil coerce to strings and are joined.
func RawConcat(a, b Value) (Value, bool) {
	as, aok := ToStringValue(a)
	bs, bok := ToStringValue(b)
	if !aok || !bok {
		return nil, false
	}
	return as + bs, true
}

// Compare implements the three-way comparison CMP_IMM uses, and is
// reused by LT's raw (non-metamethod) path.
func Compare(a, b Value) (int, bool) {
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			switch {
			case as < bs:
				return -1, true
			case as > bs:
				return 1, true
			default:
				return 0, true
			}
		}
		return 0, false
	}
	an, aok := ToNumber(a)
	bn, bok := ToNumber(b)
	if !aok || !bok {
		return 0, false
	}
	af, _ := ToFloat(an)
	bf, _ := ToFloat(bn)
	switch {
	case af < bf:
		return -1, true
	case af > bf:
		return 1, true
	default:
		return 0, true
	}
}
