package stdlib

import (
	"sort"
	"strings"

	"github.com/rvvm/luavm/value"
	"github.com/rvvm/luavm/vm"
)

func registerTable(s *vm.State) {
	lib := newLib(s, "table")

	lib.Set("insert", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		t, ok := argTable(args, 0)
		if !ok {
			return nil, s.Raisef("bad argument #1 to 'insert' (table expected)")
		}
		arr := t.ArrayPart()
		switch len(args) {
		case 2:
			t.SetArrayPart(append(arr, args[1]))
		case 3:
			pos, ok := argInt(args, 1)
			if !ok || pos < 1 || int(pos) > len(arr)+1 {
				return nil, s.Raisef("bad argument #2 to 'insert' (position out of bounds)")
			}
			i := int(pos) - 1
			arr = append(arr, nil)
			copy(arr[i+1:], arr[i:])
			arr[i] = args[2]
			t.SetArrayPart(arr)
		default:
			return nil, s.Raisef("wrong number of arguments to 'insert'")
		}
		return nil, nil
	}))

	lib.Set("remove", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		t, ok := argTable(args, 0)
		if !ok {
			return nil, s.Raisef("bad argument #1 to 'remove' (table expected)")
		}
		arr := t.ArrayPart()
		if len(arr) == 0 {
			return []value.Value{nil}, nil
		}
		pos := int64(len(arr))
		if len(args) >= 2 {
			p, ok := argInt(args, 1)
			if !ok {
				return nil, s.Raisef("bad argument #2 to 'remove' (number expected)")
			}
			pos = p
		}
		if pos < 1 || int(pos) > len(arr) {
			return []value.Value{nil}, nil
		}
		i := int(pos) - 1
		removed := arr[i]
		arr = append(arr[:i], arr[i+1:]...)
		t.SetArrayPart(arr)
		return []value.Value{removed}, nil
	}))

	lib.Set("concat", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		t, ok := argTable(args, 0)
		if !ok {
			return nil, s.Raisef("bad argument #1 to 'concat' (table expected)")
		}
		sep := ""
		if str, ok := argString(args, 1); ok {
			sep = str
		}
		arr := t.ArrayPart()
		i := int64(1)
		if n, ok := argInt(args, 2); ok {
			i = n
		}
		j := t.Len()
		if n, ok := argInt(args, 3); ok {
			j = n
		}
		var b strings.Builder
		for k := i; k <= j; k++ {
			if k != i {
				b.WriteString(sep)
			}
			if k < 1 || int(k) > len(arr) {
				return nil, s.Raisef("invalid value (nil) at index %d in table for 'concat'", k)
			}
			str, ok := value.ToStringValue(arr[k-1])
			if !ok {
				return nil, s.Raisef("invalid value (%s) at index %d in table for 'concat'", value.TypeOf(arr[k-1]), k)
			}
			b.WriteString(str)
		}
		return []value.Value{b.String()}, nil
	}))

	lib.Set("sort", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		t, ok := argTable(args, 0)
		if !ok {
			return nil, s.Raisef("bad argument #1 to 'sort' (table expected)")
		}
		cmp := arg(args, 1)
		arr := append([]value.Value(nil), t.ArrayPart()...)
		var sortErr error
		sort.SliceStable(arr, func(i, j int) bool {
			if sortErr != nil {
				return false
			}
			if cmp != nil {
				res, err := s.CallSync(cmp, []value.Value{arr[i], arr[j]})
				if err != nil {
					sortErr = err
					return false
				}
				return value.Truthy(firstOf(res))
			}
			lt, ok := value.Compare(arr[i], arr[j])
			return ok && lt < 0
		})
		if sortErr != nil {
			return nil, sortErr
		}
		t.SetArrayPart(arr)
		return nil, nil
	}))

	lib.Set("pack", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		t := value.NewTable()
		t.SetArrayPart(append([]value.Value(nil), args...))
		t.Set("n", int64(len(args)))
		return []value.Value{t}, nil
	}))

	lib.Set("unpack", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		t, ok := argTable(args, 0)
		if !ok {
			return nil, s.Raisef("bad argument #1 to 'unpack' (table expected)")
		}
		i := int64(1)
		if n, ok := argInt(args, 1); ok {
			i = n
		}
		j := t.Len()
		if n, ok := argInt(args, 2); ok {
			j = n
		}
		var out []value.Value
		for k := i; k <= j; k++ {
			out = append(out, t.Get(k))
		}
		return out, nil
	}))

	lib.Set("move", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		a1, ok := argTable(args, 0)
		if !ok {
			return nil, s.Raisef("bad argument #1 to 'move' (table expected)")
		}
		f, _ := argInt(args, 1)
		e, _ := argInt(args, 2)
		t, _ := argInt(args, 3)
		a2 := a1
		if len(args) >= 5 {
			a2, ok = argTable(args, 4)
			if !ok {
				return nil, s.Raisef("bad argument #5 to 'move' (table expected)")
			}
		}
		if e >= f {
			if t > f || a1 != a2 {
				for i := int64(0); i <= e-f; i++ {
					a2.Set(t+i, a1.Get(f+i))
				}
			} else {
				for i := e - f; i >= 0; i-- {
					a2.Set(t+i, a1.Get(f+i))
				}
			}
		}
		return []value.Value{a2}, nil
	}))

	// table.unpack is also exposed as the global unpack for 5.1-style scripts.
	s.Globals.Set("unpack", lib.Get("unpack"))
}
