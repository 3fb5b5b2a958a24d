package vm

import "github.com/rvvm/luavm/value"

// doCall dispatches a call to whatever kind of callable fn is,
// pushing a new Lua frame (left for the run loop to step through) or
// running a ForeignFunc to completion synchronously and depositing its
// results directly into the result queue.
func (s *State) doCall(fn value.Value, args []value.Value) error {
	switch callee := fn.(type) {
	case *value.Closure:
		pc, ok := s.Program.PCFor(callee.Label)
		if !ok {
			return s.raisef("attempt to call undefined function %q", callee.Label)
		}
		f := newFrame(callee)
		f.PC = pc
		f.params = args
		s.pushFrame(f)
		return nil
	case ForeignFunc:
		return s.callForeign(callee, args)
	case *Coroutine:
		return s.raisef("attempt to call a thread value")
	default:
		return s.raisef("attempt to call a %s value", value.TypeOf(fn))
	}
}

func (s *State) callForeign(fn ForeignFunc, args []value.Value) error {
	f := &Frame{IsForeign: true}
	s.pushFrame(f)
	results, err := fn(s, args)
	s.popFrame()
	if err != nil {
		return err
	}
	s.resQ = append(s.resQ, results...)
	return nil
}

// CallSync invokes fn with args and blocks (recursing into the run
// loop if fn is a Lua closure) until it returns, handing back its
// results. Used by metamethod dispatch and stdlib functions that need
// to call back into Lua (table.sort comparators, pcall, coroutine
// bodies are driven separately via Resume).
func (s *State) CallSync(fn value.Value, args []value.Value) ([]value.Value, error) {
	base := len(s.frames)
	if err := s.doCall(fn, args); err != nil {
		return nil, err
	}
	for len(s.frames) > base {
		if s.StepBudget > 0 && s.steps >= s.StepBudget {
			return nil, s.raisef("step budget of %d instructions exceeded", s.StepBudget)
		}
		f := s.frame()
		if f.PC < 0 || f.PC >= len(s.Program.Code) {
			s.popFrame()
			continue
		}
		in := s.Program.Code[f.PC]
		f.PC++
		s.steps++
		if err := s.exec(f, in); err != nil {
			return nil, err
		}
	}
	out := append([]value.Value(nil), s.resQ...)
	s.resQ = s.resQ[:0]
	return out, nil
}

// PCall implements pcall()'s contract: never propagate a Lua error,
// report success/failure plus the resulting values instead.
func (s *State) PCall(fn value.Value, args []value.Value) (ok bool, results []value.Value) {
	savedFrames := len(s.frames)
	res, err := s.CallSync(fn, args)
	if err != nil {
		s.frames = s.frames[:savedFrames]
		if lerr, is := err.(*Err); is {
			return false, []value.Value{lerr.Value}
		}
		return false, []value.Value{err.Error()}
	}
	return true, res
}

// XPCall is PCall with a message handler invoked (with the error
// value) before the stack unwinds further than necessary for a
// traceback to still be meaningful.
func (s *State) XPCall(fn, handler value.Value, args []value.Value) (ok bool, results []value.Value) {
	savedFrames := len(s.frames)
	res, err := s.CallSync(fn, args)
	if err != nil {
		var errVal value.Value = err.Error()
		if lerr, is := err.(*Err); is {
			errVal = lerr.Value
		}
		hres, herr := s.CallSync(handler, []value.Value{errVal})
		s.frames = s.frames[:savedFrames]
		if herr != nil {
			return false, []value.Value{errVal}
		}
		return false, hres
	}
	return true, res
}

func (f *Frame) nextParam() value.Value {
	if f.paramIdx >= len(f.params) {
		return nil
	}
	v := f.params[f.paramIdx]
	f.paramIdx++
	return v
}

func (f *Frame) remainingParams() value.List {
	if f.paramIdx >= len(f.params) {
		return value.List{}
	}
	rest := append(value.List(nil), f.params[f.paramIdx:]...)
	f.paramIdx = len(f.params)
	return rest
}
