package vm

import (
	"github.com/google/uuid"
	"github.com/rvvm/luavm/value"
)

// CoroutineStatus mirrors Lua's coroutine.status() vocabulary.
type CoroutineStatus string

const (
	CoroSuspended CoroutineStatus = "suspended"
	CoroRunning   CoroutineStatus = "running"
	CoroNormal    CoroutineStatus = "normal" // resumed another coroutine
	CoroDead      CoroutineStatus = "dead"
)

// Coroutine is a cooperatively-scheduled execution: its own frame
// stack and register state, captured and restored explicitly on
// yield/resume rather than via a goroutine, so the whole VM (including
// every live coroutine) stays snapshot-able by Snapshot/gob.
type Coroutine struct {
	id       string
	status   CoroutineStatus
	state    *State
	frames   []*Frame
	resumer  *Coroutine
	// yieldArgs/resumeArgs carry values across the suspend boundary:
	// yieldArgs is what coroutine.yield(...) passed, read back by the
	// resumer's coroutine.resume(); resumeArgs is what the next
	// coroutine.resume(co, ...) passed, read back as yield's return.
	yieldArgs  []value.Value
	resumeArgs []value.Value
	err        error
	body       *value.Closure
}

// ValueKind reports "thread", satisfying value.TypeOf's kindNamer
// hook.
func (*Coroutine) ValueKind() value.Kind { return value.KindThread }

// NewCoroutine creates a suspended coroutine that will run body when
// first resumed.
func (s *State) NewCoroutine(body *value.Closure) *Coroutine {
	return &Coroutine{
		id:     uuid.NewString(),
		status: CoroSuspended,
		state:  s,
		body:   body,
	}
}

func (c *Coroutine) Status() CoroutineStatus { return c.status }

// ID returns the coroutine's stable UUID handle, used by trace
// exports and the inspector to identify a coroutine across restarts.
func (c *Coroutine) ID() string { return c.id }

// Resume transfers control to c, running until it yields, returns, or
// errors. args become c's coroutine.yield(...)/function arguments;
// the returned values are whatever c passed to coroutine.yield or
// returned with, and ok is false if c raised an error (in which case
// the single returned value is the error payload).
func (s *State) Resume(c *Coroutine, args []value.Value) (results []value.Value, ok bool) {
	if c.status == CoroDead {
		return []value.Value{"cannot resume dead coroutine"}, false
	}
	if c.status != CoroSuspended {
		return []value.Value{"cannot resume non-suspended coroutine"}, false
	}

	prev := s.current
	prev.status = CoroNormal
	c.resumer = prev
	c.status = CoroRunning
	s.current = c
	s.emit(Event{Kind: EventCoroutine, Label: "resume", Detail: c.id})

	savedFrames := s.frames
	s.frames = c.frames

	var err error
	if c.frames == nil {
		// First resume: call the coroutine's body closure with args as
		// its parameter queue; run() below steps the new entry frame.
		err = s.doCall(c.body, args)
	} else {
		// Later resumes: args become the suspended yield call's
		// results, read by the RESULT/RESULT_LIST that follows it.
		c.resumeArgs = args
		s.resQ = append(s.resQ, args...)
	}

	if err == nil {
		err = s.run()
	}

	c.frames = s.frames
	s.frames = savedFrames
	s.current = prev
	prev.status = CoroRunning

	if err != nil {
		c.status = CoroDead
		c.err = err
		if lerr, isLua := err.(*Err); isLua {
			return []value.Value{lerr.Value}, false
		}
		return []value.Value{err.Error()}, false
	}

	if c.status == CoroRunning {
		// run() returned normally (frame stack drained): the
		// coroutine's body returned rather than yielded, leaving its
		// return values in the result queue.
		c.status = CoroDead
		out := append([]value.Value(nil), s.resQ...)
		s.resQ = s.resQ[:0]
		return out, true
	}
	// c.status was already set to CoroSuspended by opYield.
	return c.yieldArgs, true
}

// Yield suspends the currently running coroutine, as if by
// coroutine.yield(args...). The arguments of the next coroutine.resume
// call on this coroutine become the suspended yield call's results.
func (s *State) Yield(args []value.Value) ([]value.Value, error) {
	c := s.current
	if c == s.mainCoro {
		return nil, s.raisef("attempt to yield from outside a coroutine")
	}
	if !s.yieldableContext() {
		return nil, s.raisef("attempt to yield across a C-call boundary")
	}
	c.yieldArgs = args
	c.status = CoroSuspended
	s.emit(Event{Kind: EventCoroutine, Label: "yield", Detail: c.id})
	return nil, errYield
}

// errYield is a sentinel the run loop recognizes to stop executing
// without treating the suspend as an error.
var errYield = &yieldSignal{}

type yieldSignal struct{}

func (*yieldSignal) Error() string { return "coroutine yielded" }

// IsYieldable reports coroutine.isyieldable(): whether Yield could
// currently succeed.
func (s *State) IsYieldable() bool {
	return s.current != s.mainCoro && s.yieldableContext()
}

// Running returns the currently running coroutine and whether it is
// the main one, per coroutine.running().
func (s *State) Running() (*Coroutine, bool) {
	return s.current, s.current == s.mainCoro
}

// Close kills a suspended or dead coroutine, matching
// coroutine.close(). It only marks the coroutine dead; to-be-closed
// variables are not run.
func (s *State) Close(c *Coroutine) error {
	if c.status == CoroRunning || c.status == CoroNormal {
		return s.raisef("cannot close a %s coroutine", c.status)
	}
	c.status = CoroDead
	return nil
}
