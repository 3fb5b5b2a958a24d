// Package value implements the tagged value model shared by the
// bytecode VM and the Lua compiler: nil, booleans, integers, floats,
// strings, tables, cells and closures, plus the multi-return list
// carrier. Coroutines and foreign (host) callables are defined in
// package vm since they close over execution state; they are still
// ordinary Values (the model is just `any` with a closed set of
// concrete dynamic types, matched by the predicates below).
package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value is any value that can live in a register, a table slot or the
// data stack. The dynamic type is always one of: nil, bool, int64,
// float64, string, *Table, *Closure, *Cell, List, or a host-defined
// type satisfying an interface from package vm (Coroutine, Foreign).
type Value = any

// List is the carrier used when an instruction or call produces more
// than one value in a single register slot (RETURN_MULTI's trailing
// operand, VARARG, RESULT_LIST). It never nests: flattening a List of
// Lists is a compiler bug, not a runtime concern.
type List []Value

// Kind names the dynamic tag of a Value the way Lua's type() would.
type Kind string

const (
	KindNil      Kind = "nil"
	KindBoolean  Kind = "boolean"
	KindNumber   Kind = "number"
	KindString   Kind = "string"
	KindTable    Kind = "table"
	KindFunction Kind = "function"
	KindThread   Kind = "thread"
	KindCell     Kind = "cell"
	KindList     Kind = "list"
	KindOther    Kind = "userdata"
)

// kindNamer is implemented by host types defined outside this package
// (vm.Coroutine, vm.Foreign) that still need to report a Lua type name.
type kindNamer interface {
	ValueKind() Kind
}

// TypeOf reports v's Lua-visible type name.
func TypeOf(v Value) Kind {
	switch x := v.(type) {
	case nil:
		return KindNil
	case bool:
		return KindBoolean
	case int64, float64:
		return KindNumber
	case string:
		return KindString
	case *Table:
		return KindTable
	case *Closure:
		return KindFunction
	case *Cell:
		return KindCell
	case List:
		return KindList
	case kindNamer:
		return x.ValueKind()
	default:
		return KindOther
	}
}

// Truthy implements Lua truthiness: everything except nil and false is
// truthy.
func Truthy(v Value) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return true
}

// IsNil reports whether v is the Lua nil value (as opposed to a Go nil
// interface hiding inside a typed pointer, which never occurs here
// since every Value is stored as the bare dynamic type).
func IsNil(v Value) bool {
	return v == nil
}

// RawEqual implements primitive (metamethod-free) equality: identity
// for tables/closures/cells/coroutines/foreign callables, value
// equality for nil/bool/number/string. Numbers compare equal across
// int64/float64 representations when they denote the same value.
func RawEqual(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case int64:
		switch y := b.(type) {
		case int64:
			return x == y
		case float64:
			return float64(x) == y
		}
		return false
	case float64:
		switch y := b.(type) {
		case int64:
			return x == float64(y)
		case float64:
			return x == y
		}
		return false
	case string:
		y, ok := b.(string)
		return ok && x == y
	case *Table:
		y, ok := b.(*Table)
		return ok && x == y
	case *Closure:
		y, ok := b.(*Closure)
		return ok && x == y
	case *Cell:
		y, ok := b.(*Cell)
		return ok && x == y
	default:
		return a == b
	}
}

// ToNumber attempts the Lua coercion used by arithmetic opcodes:
// numbers pass through, numeric strings are parsed (integer syntax
// first, then float), everything else fails.
func ToNumber(v Value) (Value, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case float64:
		return x, true
	case string:
		s := strings.TrimSpace(x)
		if i, err := strconv.ParseInt(s, 0, 64); err == nil {
			return i, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, true
		}
		return nil, false
	default:
		return nil, false
	}
}

// ToFloat coerces a numeric Value to float64.
func ToFloat(v Value) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}

// ToInt coerces a numeric Value to int64, failing for floats that
// carry a fractional part (Lua's "number has no integer
// representation" rule).
func ToInt(v Value) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case float64:
		if math.Trunc(x) == x && !math.IsInf(x, 0) {
			return int64(x), true
		}
		return 0, false
	default:
		return 0, false
	}
}

// ToStringValue implements the coercion CONCAT uses: numbers and
// strings convert directly, booleans and nil convert per Lua's
// tostring, anything else fails (the opcode then falls back to
// __concat).
func ToStringValue(v Value) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case int64:
		return strconv.FormatInt(x, 10), true
	case float64:
		return FormatFloat(x), true
	case bool:
		if x {
			return "true", true
		}
		return "false", true
	case nil:
		return "nil", true
	default:
		return "", false
	}
}

// FormatFloat renders a float64 the way Lua's %.14g default format
// does, collapsing integral floats to "N.0" so 1.0 never prints as the
// bare integer "1".
func FormatFloat(f float64) string {
	if math.IsInf(f, 1) {
		return "inf"
	}
	if math.IsInf(f, -1) {
		return "-inf"
	}
	if math.IsNaN(f) {
		return "nan"
	}
	s := strconv.FormatFloat(f, 'g', 14, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// ToDisplayString is the general-purpose stringifier used by PRINT,
// tostring() and traceback formatting. Unlike ToStringValue it never
// fails: tables/closures/cells render as "<kind>: 0x..."-style tags.
func ToDisplayString(v Value) string {
	if s, ok := ToStringValue(v); ok {
		return s
	}
	switch x := v.(type) {
	case *Table:
		return fmt.Sprintf("table: %p", x)
	case *Closure:
		return fmt.Sprintf("function: %p", x)
	case *Cell:
		return fmt.Sprintf("cell: %p", x)
	case List:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = ToDisplayString(e)
		}
		return strings.Join(parts, ", ")
	case kindNamer:
		return fmt.Sprintf("%s: %p", x.ValueKind(), x)
	default:
		return fmt.Sprintf("%v", x)
	}
}
