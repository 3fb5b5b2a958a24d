package stdlib

import (
	"fmt"

	"github.com/rvvm/luavm/value"
	"github.com/rvvm/luavm/vm"
)

func registerBase(s *vm.State) {
	g := s.Globals
	g.Set("_G", g)
	g.Set("_VERSION", "Lua 5.4")

	g.Set("print", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		parts := make([]any, len(args))
		for i, a := range args {
			parts[i] = value.ToDisplayString(a)
		}
		line := ""
		for i, p := range parts {
			if i > 0 {
				line += "\t"
			}
			line += fmt.Sprint(p)
		}
		s.Print(line)
		return nil, nil
	}))

	g.Set("type", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		return []value.Value{string(value.TypeOf(arg(args, 0)))}, nil
	}))

	g.Set("tostring", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		v := arg(args, 0)
		if t, ok := v.(*value.Table); ok && t.Metatable != nil {
			if mm := t.Metatable.Get("__tostring"); mm != nil {
				res, err := s.CallSync(mm, []value.Value{v})
				if err != nil {
					return nil, err
				}
				if len(res) > 0 {
					return res[:1], nil
				}
				return []value.Value{""}, nil
			}
		}
		return []value.Value{value.ToDisplayString(v)}, nil
	}))

	g.Set("tonumber", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		if n, ok := value.ToNumber(arg(args, 0)); ok {
			return []value.Value{n}, nil
		}
		return []value.Value{nil}, nil
	}))

	g.Set("rawget", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		t, ok := argTable(args, 0)
		if !ok {
			return nil, s.Raisef("bad argument #1 to 'rawget' (table expected)")
		}
		return []value.Value{t.Get(arg(args, 1))}, nil
	}))

	g.Set("rawset", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		t, ok := argTable(args, 0)
		if !ok {
			return nil, s.Raisef("bad argument #1 to 'rawset' (table expected)")
		}
		t.Set(arg(args, 1), arg(args, 2))
		return []value.Value{t}, nil
	}))

	g.Set("rawequal", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		return []value.Value{value.RawEqual(arg(args, 0), arg(args, 1))}, nil
	}))

	g.Set("rawlen", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		switch x := arg(args, 0).(type) {
		case *value.Table:
			return []value.Value{x.Len()}, nil
		case string:
			return []value.Value{int64(len(x))}, nil
		default:
			return nil, s.Raisef("table or string expected")
		}
	}))

	g.Set("setmetatable", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		t, ok := argTable(args, 0)
		if !ok {
			return nil, s.Raisef("bad argument #1 to 'setmetatable' (table expected)")
		}
		mt, _ := arg(args, 1).(*value.Table)
		t.Metatable = mt
		return []value.Value{t}, nil
	}))

	g.Set("getmetatable", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		t, ok := argTable(args, 0)
		if !ok || t.Metatable == nil {
			return []value.Value{nil}, nil
		}
		return []value.Value{t.Metatable}, nil
	}))

	g.Set("assert", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		if !value.Truthy(arg(args, 0)) {
			msg := arg(args, 1)
			if msg == nil {
				msg = "assertion failed!"
			}
			return nil, s.Raise(msg)
		}
		return args, nil
	}))

	g.Set("error", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		v := arg(args, 0)
		level, _ := argInt(args, 1)
		if str, ok := v.(string); ok && level != 0 {
			v = fmt.Sprintf("%s: %s", s.Program.Source, str)
		}
		return nil, s.Raise(v)
	}))

	g.Set("pcall", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		if len(args) == 0 {
			return nil, s.Raisef("bad argument #1 to 'pcall' (value expected)")
		}
		ok, res := s.PCall(args[0], args[1:])
		return append([]value.Value{ok}, res...), nil
	}))

	g.Set("xpcall", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		if len(args) < 2 {
			return nil, s.Raisef("bad argument #2 to 'xpcall' (value expected)")
		}
		ok, res := s.XPCall(args[0], args[1], args[2:])
		return append([]value.Value{ok}, res...), nil
	}))

	g.Set("select", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		if str, ok := arg(args, 0).(string); ok && str == "#" {
			return []value.Value{int64(len(args) - 1)}, nil
		}
		n, ok := argInt(args, 0)
		if !ok || n < 1 {
			return nil, s.Raisef("bad argument #1 to 'select' (index out of range)")
		}
		rest := args[1:]
		if int(n) > len(rest) {
			return nil, nil
		}
		return rest[n-1:], nil
	}))

	g.Set("ipairs", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		t, ok := argTable(args, 0)
		if !ok {
			return nil, s.Raisef("bad argument #1 to 'ipairs' (table expected)")
		}
		iter := vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
			i, _ := argInt(args, 1)
			i++
			v := t.Get(i)
			if v == nil {
				return []value.Value{nil}, nil
			}
			return []value.Value{i, v}, nil
		})
		return []value.Value{iter, t, int64(0)}, nil
	}))

	g.Set("pairs", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		t, ok := argTable(args, 0)
		if !ok {
			return nil, s.Raisef("bad argument #1 to 'pairs' (table expected)")
		}
		if t.Metatable != nil {
			if mm := t.Metatable.Get("__pairs"); mm != nil {
				return s.CallSync(mm, []value.Value{t})
			}
		}
		keys := allKeys(t)
		idx := 0
		iter := vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
			if idx >= len(keys) {
				return []value.Value{nil}, nil
			}
			k := keys[idx]
			idx++
			return []value.Value{k, t.Get(k)}, nil
		})
		return []value.Value{iter, t, nil}, nil
	}))

	g.Set("next", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		t, ok := argTable(args, 0)
		if !ok {
			return nil, s.Raisef("bad argument #1 to 'next' (table expected)")
		}
		keys := allKeys(t)
		cur := arg(args, 1)
		if cur == nil {
			if len(keys) == 0 {
				return []value.Value{nil}, nil
			}
			return []value.Value{keys[0], t.Get(keys[0])}, nil
		}
		for i, k := range keys {
			if value.RawEqual(k, cur) {
				if i+1 >= len(keys) {
					return []value.Value{nil}, nil
				}
				return []value.Value{keys[i+1], t.Get(keys[i+1])}, nil
			}
		}
		return []value.Value{nil}, nil
	}))
}

// allKeys returns every key of t (array part first, in order, then
// hash keys in map-iteration order) for pairs()/next() to walk.
func allKeys(t *value.Table) []value.Value {
	var keys []value.Value
	for i := range t.ArrayPart() {
		keys = append(keys, int64(i+1))
	}
	keys = append(keys, t.HashKeys()...)
	return keys
}
