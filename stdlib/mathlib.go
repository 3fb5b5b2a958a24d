package stdlib

import (
	"math"
	"math/rand"

	"github.com/rvvm/luavm/value"
	"github.com/rvvm/luavm/vm"
)

func registerMath(s *vm.State) {
	lib := newLib(s, "math")
	lib.Set("pi", math.Pi)
	lib.Set("huge", math.Inf(1))
	lib.Set("maxinteger", int64(math.MaxInt64))
	lib.Set("mininteger", int64(math.MinInt64))

	unary := func(fn func(float64) float64) vm.ForeignFunc {
		return func(s *vm.State, args []value.Value) ([]value.Value, error) {
			n, ok := value.ToFloat(arg(args, 0))
			if !ok {
				return nil, s.Raisef("bad argument #1 (number expected)")
			}
			return []value.Value{fn(n)}, nil
		}
	}
	lib.Set("sqrt", unary(math.Sqrt))
	lib.Set("sin", unary(math.Sin))
	lib.Set("cos", unary(math.Cos))
	lib.Set("tan", unary(math.Tan))
	lib.Set("asin", unary(math.Asin))
	lib.Set("acos", unary(math.Acos))
	lib.Set("atan", unary(math.Atan))
	lib.Set("exp", unary(math.Exp))
	lib.Set("rad", unary(func(d float64) float64 { return d * math.Pi / 180 }))
	lib.Set("deg", unary(func(r float64) float64 { return r * 180 / math.Pi }))

	lib.Set("log", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		x, ok := value.ToFloat(arg(args, 0))
		if !ok {
			return nil, s.Raisef("bad argument #1 to 'log' (number expected)")
		}
		if base, ok := value.ToFloat(arg(args, 1)); ok {
			return []value.Value{math.Log(x) / math.Log(base)}, nil
		}
		return []value.Value{math.Log(x)}, nil
	}))

	lib.Set("pow", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		x, xok := value.ToFloat(arg(args, 0))
		y, yok := value.ToFloat(arg(args, 1))
		if !xok || !yok {
			return nil, s.Raisef("bad argument to 'pow' (number expected)")
		}
		return []value.Value{math.Pow(x, y)}, nil
	}))

	lib.Set("abs", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		switch n := arg(args, 0).(type) {
		case int64:
			if n < 0 {
				return []value.Value{-n}, nil
			}
			return []value.Value{n}, nil
		default:
			f, ok := value.ToFloat(n)
			if !ok {
				return nil, s.Raisef("bad argument #1 to 'abs' (number expected)")
			}
			return []value.Value{math.Abs(f)}, nil
		}
	}))

	lib.Set("floor", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		if n, ok := arg(args, 0).(int64); ok {
			return []value.Value{n}, nil
		}
		f, ok := value.ToFloat(arg(args, 0))
		if !ok {
			return nil, s.Raisef("bad argument #1 to 'floor' (number expected)")
		}
		return []value.Value{int64(math.Floor(f))}, nil
	}))

	lib.Set("ceil", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		if n, ok := arg(args, 0).(int64); ok {
			return []value.Value{n}, nil
		}
		f, ok := value.ToFloat(arg(args, 0))
		if !ok {
			return nil, s.Raisef("bad argument #1 to 'ceil' (number expected)")
		}
		return []value.Value{int64(math.Ceil(f))}, nil
	}))

	lib.Set("max", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		if len(args) == 0 {
			return nil, s.Raisef("bad argument #1 to 'max' (value expected)")
		}
		best := args[0]
		for _, v := range args[1:] {
			cmp, ok := value.Compare(best, v)
			if ok && cmp < 0 {
				best = v
			}
		}
		return []value.Value{best}, nil
	}))

	lib.Set("min", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		if len(args) == 0 {
			return nil, s.Raisef("bad argument #1 to 'min' (value expected)")
		}
		best := args[0]
		for _, v := range args[1:] {
			cmp, ok := value.Compare(best, v)
			if ok && cmp > 0 {
				best = v
			}
		}
		return []value.Value{best}, nil
	}))

	lib.Set("fmod", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		a, aok := value.ToFloat(arg(args, 0))
		b, bok := value.ToFloat(arg(args, 1))
		if !aok || !bok {
			return nil, s.Raisef("bad argument to 'fmod' (number expected)")
		}
		return []value.Value{math.Mod(a, b)}, nil
	}))

	lib.Set("modf", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		f, ok := value.ToFloat(arg(args, 0))
		if !ok {
			return nil, s.Raisef("bad argument #1 to 'modf' (number expected)")
		}
		i, frac := math.Modf(f)
		return []value.Value{i, frac}, nil
	}))

	lib.Set("tointeger", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		if n, ok := value.ToInt(arg(args, 0)); ok {
			return []value.Value{n}, nil
		}
		return []value.Value{nil}, nil
	}))

	lib.Set("type", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		switch arg(args, 0).(type) {
		case int64:
			return []value.Value{"integer"}, nil
		case float64:
			return []value.Value{"float"}, nil
		default:
			return []value.Value{nil}, nil
		}
	}))

	rng := rand.New(rand.NewSource(1))
	lib.Set("randomseed", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		seed, _ := argInt(args, 0)
		rng = rand.New(rand.NewSource(seed))
		return nil, nil
	}))
	lib.Set("random", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		switch len(args) {
		case 0:
			return []value.Value{rng.Float64()}, nil
		case 1:
			m, _ := argInt(args, 0)
			if m < 1 {
				return nil, s.Raisef("bad argument #1 to 'random' (interval is empty)")
			}
			return []value.Value{int64(rng.Int63n(m)) + 1}, nil
		default:
			lo, _ := argInt(args, 0)
			hi, _ := argInt(args, 1)
			if hi < lo {
				return nil, s.Raisef("bad argument #2 to 'random' (interval is empty)")
			}
			return []value.Value{lo + int64(rng.Int63n(hi-lo+1))}, nil
		}
	}))
}
