// Package vm executes the bytecode package's compiled programs: a
// register-based interpreter with an explicit frame stack (so
// coroutines can suspend and resume without relying on goroutines),
// metamethod-aware arithmetic/table/comparison dispatch, and a
// cooperative coroutine scheduler.
package vm

import (
	"fmt"

	"github.com/rvvm/luavm/bytecode"
	"github.com/rvvm/luavm/value"
)

// Frame is one call's activation record: a register file keyed by
// symbolic name rather than a fixed-size array, its program counter,
// and the vararg snapshot it captured at entry.
type Frame struct {
	Closure   *value.Closure
	Regs      map[value.Value]value.Value
	PC        int
	IsForeign bool // true for host (Go) calls; used by the yieldable-context check

	// params/paramIdx is this frame's pending-parameter queue: the
	// arguments the caller pushed via ARG/ARG_SPREAD, consumed in order
	// by this function's prologue PARAM/PARAM_EXPAND instructions.
	params   []value.Value
	paramIdx int
}

func newFrame(cl *value.Closure) *Frame {
	return &Frame{Closure: cl, Regs: make(map[value.Value]value.Value, 8)}
}

func (f *Frame) get(name string) value.Value { return f.Regs[name] }
func (f *Frame) set(name string, v value.Value) {
	if name == "" {
		return
	}
	f.Regs[name] = v
}

// ForeignFunc is a host-implemented callable (stdlib builtins). It
// receives already-evaluated arguments and returns result values or an
// error, which the VM surfaces as a raised Lua error.
type ForeignFunc func(s *State, args []value.Value) ([]value.Value, error)

// ValueKind lets a ForeignFunc satisfy value.TypeOf's kindNamer
// interface so it reports as a Lua "function".
func (ForeignFunc) ValueKind() value.Kind { return value.KindFunction }

// State is one logical Lua execution: the loaded program, the global
// table, the active coroutine's frame stack, and the step-budget/
// event bookkeeping shared across every coroutine it runs.
type State struct {
	Program *bytecode.Program
	Globals *value.Table

	frames []*Frame
	argQ   []value.Value
	resQ   []value.Value

	StepBudget int64
	steps      int64

	events []Event

	current   *Coroutine // the running coroutine; mainCoro on the main thread
	mainCoro  *Coroutine
	traceOn   bool
}

// New builds a State ready to run prog from its entry label, with an
// empty globals table the caller (stdlib.Register) populates.
func New(prog *bytecode.Program) *State {
	s := &State{
		Program: prog,
		Globals: value.NewTable(),
	}
	s.mainCoro = &Coroutine{id: "main", status: CoroRunning, state: s}
	s.current = s.mainCoro
	return s
}

func (s *State) frame() *Frame {
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1]
}

// pushFrame activates f. A Lua frame gets the globals table in its
// "_ENV" register, the register compiled code reads and writes
// globals through.
func (s *State) pushFrame(f *Frame) {
	if f.Regs != nil {
		f.Regs["_ENV"] = s.Globals
	}
	s.frames = append(s.frames, f)
}

func (s *State) popFrame() *Frame {
	n := len(s.frames)
	f := s.frames[n-1]
	s.frames = s.frames[:n-1]
	return f
}

// yieldableContext reports whether the current call chain, from the
// active resume boundary down to the top frame, contains no foreign
// (host) frame. A foreign top frame is the builtin asking (yield or
// isyieldable itself) and is not counted. A coroutine may not yield
// across a foreign call, matching Lua's own restriction on yielding
// across a C-call boundary.
func (s *State) yieldableContext() bool {
	n := len(s.frames)
	if n > 0 && s.frames[n-1].IsForeign {
		n--
	}
	for _, f := range s.frames[:n] {
		if f.IsForeign {
			return false
		}
	}
	return true
}

// Err is the error type every raised Lua error surfaces as: a Value
// payload (often a string, but any value is legal per error()) plus
// the traceback captured at the point it was raised.
type Err struct {
	Value     value.Value
	Traceback []string
}

func (e *Err) Error() string {
	return fmt.Sprintf("%s", value.ToDisplayString(e.Value))
}

func (s *State) raise(v value.Value) error {
	return &Err{Value: v, Traceback: s.traceback()}
}

func (s *State) raisef(format string, args ...any) error {
	return s.raise(fmt.Sprintf(format, args...))
}
