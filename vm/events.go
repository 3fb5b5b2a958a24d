package vm

import "github.com/rvvm/luavm/value"

// EventKind tags the trace events the VM emits as it executes, the
// basis for the CLI's --trace flag and the inspector console's live
// feed.
type EventKind string

const (
	EventInstruction EventKind = "instruction"
	EventCall        EventKind = "call"
	EventReturn      EventKind = "return"
	EventError       EventKind = "error"
	EventCoroutine   EventKind = "coroutine"
)

// Event is one entry in the VM's event stream: enough to reconstruct
// what happened at a program counter without re-running the program.
type Event struct {
	Tick      int64
	Kind      EventKind
	PC        int
	Coroutine string
	Label     string
	Detail    string
	Value     value.Value
}

func (s *State) emit(ev Event) {
	if !s.traceOn {
		return
	}
	ev.Tick = s.steps
	if s.current != nil {
		ev.Coroutine = s.current.id
	}
	s.events = append(s.events, ev)
}

// DrainEvents returns and clears the accumulated event buffer.
func (s *State) DrainEvents() []Event {
	ev := s.events
	s.events = nil
	return ev
}

// LastReturn reports the values the program's outermost chunk returned
// (or the empty slice if it fell off the end without a return
// statement). Only meaningful immediately after Run completes: a call
// made via CallSync drains the same queue for its own results.
func (s *State) LastReturn() []value.Value {
	return append([]value.Value(nil), s.resQ...)
}

// SetTracing toggles whether events (instruction steps, coroutine
// resume/yield, errors) are recorded; tracing off (the default) avoids the allocation cost of
// event collection for ordinary runs.
func (s *State) SetTracing(on bool) { s.traceOn = on }

// Snapshot is a serializable view of the VM's execution state used by
// the CLI's --stack flag and the inspector console: not a full gob
// image (registers hold live Go values, some unexported), just the
// human-facing shape.
type Snapshot struct {
	PC       int
	Frames   []FrameSnapshot
	Coroutine string
}

type FrameSnapshot struct {
	Function string
	PC       int
	Registers map[string]value.Value
}

// Snapshot captures the current call stack for display.
func (s *State) Snapshot() Snapshot {
	snap := Snapshot{Coroutine: s.current.id}
	if f := s.frame(); f != nil {
		snap.PC = f.PC
	}
	for _, f := range s.frames {
		regs := make(map[string]value.Value, len(f.Regs))
		for k, v := range f.Regs {
			if name, ok := k.(string); ok {
				regs[name] = v
			}
		}
		name := "?"
		if f.Closure != nil {
			name = f.Closure.Label
		}
		snap.Frames = append(snap.Frames, FrameSnapshot{Function: name, PC: f.PC, Registers: regs})
	}
	return snap
}
