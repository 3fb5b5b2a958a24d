package stdlib

import (
	"github.com/rvvm/luavm/value"
	"github.com/rvvm/luavm/vm"
)

func registerCoroutine(s *vm.State) {
	lib := newLib(s, "coroutine")

	lib.Set("create", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		cl, ok := arg(args, 0).(*value.Closure)
		if !ok {
			return nil, s.Raisef("bad argument #1 to 'create' (function expected)")
		}
		return []value.Value{s.NewCoroutine(cl)}, nil
	}))

	lib.Set("resume", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		co, ok := arg(args, 0).(*vm.Coroutine)
		if !ok {
			return nil, s.Raisef("bad argument #1 to 'resume' (coroutine expected)")
		}
		results, ok := s.Resume(co, args[1:])
		return append([]value.Value{ok}, results...), nil
	}))

	lib.Set("yield", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		return s.Yield(args)
	}))

	lib.Set("status", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		co, ok := arg(args, 0).(*vm.Coroutine)
		if !ok {
			return nil, s.Raisef("bad argument #1 to 'status' (coroutine expected)")
		}
		return []value.Value{string(co.Status())}, nil
	}))

	lib.Set("running", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		co, isMain := s.Running()
		return []value.Value{co, isMain}, nil
	}))

	lib.Set("isyieldable", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		return []value.Value{s.IsYieldable()}, nil
	}))

	lib.Set("close", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		co, ok := arg(args, 0).(*vm.Coroutine)
		if !ok {
			return nil, s.Raisef("bad argument #1 to 'close' (coroutine expected)")
		}
		if err := s.Close(co); err != nil {
			return []value.Value{false, err.Error()}, nil
		}
		return []value.Value{true}, nil
	}))

	lib.Set("wrap", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		cl, ok := arg(args, 0).(*value.Closure)
		if !ok {
			return nil, s.Raisef("bad argument #1 to 'wrap' (function expected)")
		}
		co := s.NewCoroutine(cl)
		return []value.Value{vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
			results, ok := s.Resume(co, args)
			if !ok {
				msg := "coroutine error"
				if len(results) > 0 {
					msg = value.ToDisplayString(results[0])
				}
				return nil, s.Raisef("%s", msg)
			}
			return results, nil
		})}, nil
	}))
}
