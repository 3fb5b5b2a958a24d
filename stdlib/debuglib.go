package stdlib

import (
	"github.com/rvvm/luavm/value"
	"github.com/rvvm/luavm/vm"
)

func registerDebug(s *vm.State) {
	lib := newLib(s, "debug")

	lib.Set("traceback", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		msg, _ := argString(args, 0)
		return []value.Value{s.Traceback(msg)}, nil
	}))

	lib.Set("getmetatable", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		t, ok := argTable(args, 0)
		if !ok || t.Metatable == nil {
			return []value.Value{nil}, nil
		}
		return []value.Value{t.Metatable}, nil
	}))

	lib.Set("setmetatable", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		t, ok := argTable(args, 0)
		if !ok {
			return nil, s.Raisef("bad argument #1 to 'setmetatable' (table expected)")
		}
		mt, _ := arg(args, 1).(*value.Table)
		t.Metatable = mt
		return []value.Value{t}, nil
	}))
}
