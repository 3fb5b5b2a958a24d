package vm

import (
	"github.com/rvvm/luavm/bytecode"
	"github.com/rvvm/luavm/value"
)

// maxMetaDepth bounds __index/__newindex chain-following, matching
// Lua's own protection against metatable cycles.
const maxMetaDepth = 200

func (s *State) execTableOp(f *Frame, in bytecode.Instruction) error {
	switch in.Op {
	case bytecode.TABLE_NEW:
		f.set(in.Reg(0), value.NewTable())
	case bytecode.TABLE_GET:
		v, err := s.index(f.get(in.Reg(1)), f.get(in.Reg(2)))
		if err != nil {
			return err
		}
		f.set(in.Reg(0), v)
	case bytecode.TABLE_SET:
		return s.newindex(f.get(in.Reg(0)), f.get(in.Reg(1)), f.get(in.Reg(2)))
	case bytecode.TABLE_APPEND:
		t, ok := f.get(in.Reg(0)).(*value.Table)
		if !ok {
			return s.raisef("internal error: TABLE_APPEND target is not a table")
		}
		t.Append(f.get(in.Reg(1)))
	case bytecode.TABLE_EXTEND:
		t, ok := f.get(in.Reg(0)).(*value.Table)
		if !ok {
			return s.raisef("internal error: TABLE_EXTEND target is not a table")
		}
		list, _ := f.get(in.Reg(1)).(value.List)
		t.Extend(list)
	case bytecode.LIST_GET:
		list, _ := f.get(in.Reg(1)).(value.List)
		idx := int(in.Imm)
		if idx >= 0 && idx < len(list) {
			f.set(in.Reg(0), list[idx])
		} else {
			f.set(in.Reg(0), nil)
		}
	case bytecode.LEN:
		v, err := s.length(f.get(in.Reg(1)))
		if err != nil {
			return err
		}
		f.set(in.Reg(0), v)
	default:
		return s.raisef("internal error: execTableOp called for %s", in.Op)
	}
	return nil
}

// index implements TABLE_GET's full semantics: a raw table lookup
// that falls through to __index (a table, followed recursively, or a
// function called with (table, key)) when the raw result is nil.
func (s *State) index(obj, key value.Value) (value.Value, error) {
	for depth := 0; depth < maxMetaDepth; depth++ {
		t, ok := obj.(*value.Table)
		if !ok {
			mm := s.metamethod(obj, "__index")
			if mm == nil {
				return nil, s.raisef("attempt to index a %s value", value.TypeOf(obj))
			}
			if fn, isFn := mm.(*value.Closure); isFn {
				res, err := s.CallSync(fn, []value.Value{obj, key})
				if err != nil {
					return nil, err
				}
				return first(res), nil
			}
			if fn, isFn := mm.(ForeignFunc); isFn {
				res, err := s.CallSync(fn, []value.Value{obj, key})
				if err != nil {
					return nil, err
				}
				return first(res), nil
			}
			obj = mm
			continue
		}
		v := t.Get(key)
		if v != nil || t.Metatable == nil {
			return v, nil
		}
		mm := t.Metatable.Get("__index")
		if mm == nil {
			return nil, nil
		}
		if value.TypeOf(mm) == value.KindFunction {
			res, err := s.CallSync(mm, []value.Value{obj, key})
			if err != nil {
				return nil, err
			}
			return first(res), nil
		}
		obj = mm
	}
	return nil, s.raisef("'__index' chain too long; possible loop")
}

// newindex implements TABLE_SET's full semantics, mirroring index but
// for writes: __newindex only fires when the raw key is absent.
func (s *State) newindex(obj, key, val value.Value) error {
	for depth := 0; depth < maxMetaDepth; depth++ {
		t, ok := obj.(*value.Table)
		if !ok {
			return s.raisef("attempt to index a %s value", value.TypeOf(obj))
		}
		if t.Get(key) != nil || t.Metatable == nil {
			t.Set(key, val)
			return nil
		}
		mm := t.Metatable.Get("__newindex")
		if mm == nil {
			t.Set(key, val)
			return nil
		}
		if value.TypeOf(mm) == value.KindFunction {
			_, err := s.CallSync(mm, []value.Value{obj, key, val})
			return err
		}
		obj = mm
	}
	return s.raisef("'__newindex' chain too long; possible loop")
}

func (s *State) length(v value.Value) (value.Value, error) {
	switch x := v.(type) {
	case string:
		return int64(len(x)), nil
	case *value.Table:
		if x.Metatable != nil {
			if mm := x.Metatable.Get("__len"); mm != nil {
				if fn, ok := mm.(*value.Closure); ok {
					res, err := s.CallSync(fn, []value.Value{v})
					if err != nil {
						return nil, err
					}
					return first(res), nil
				}
			}
		}
		return x.Len(), nil
	default:
		return nil, s.raisef("attempt to get length of a %s value", value.TypeOf(v))
	}
}

func (s *State) metamethod(v value.Value, name string) value.Value {
	t, ok := v.(*value.Table)
	if !ok || t.Metatable == nil {
		return nil
	}
	return t.Metatable.Get(name)
}

func first(vs []value.Value) value.Value {
	if len(vs) == 0 {
		return nil
	}
	return vs[0]
}
