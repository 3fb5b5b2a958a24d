package vm

import "github.com/rvvm/luavm/value"

// Raise is the public entry point stdlib builtins use to implement
// Lua's error(), converting a Value payload into the *Err the run
// loop and PCall/XPCall recognize.
func (s *State) Raise(v value.Value) error { return s.raise(v) }

// Raisef raises a plain string error, matching error(string.format(...)).
func (s *State) Raisef(format string, args ...any) error { return s.raisef(format, args...) }
