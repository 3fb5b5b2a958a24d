package vm

import "fmt"

// traceback renders the current frame stack Lua-style, innermost
// frame first, the format debug.traceback and uncaught-error reporting
// both build on.
func (s *State) traceback() []string {
	lines := make([]string, 0, len(s.frames)+1)
	lines = append(lines, "stack traceback:")
	for i := len(s.frames) - 1; i >= 0; i-- {
		f := s.frames[i]
		name := "?"
		if f.Closure != nil {
			name = f.Closure.Label
			if f.Closure.Name != "" {
				name = f.Closure.Name
			}
		}
		var loc string
		if pc := f.PC - 1; s.Program != nil && pc >= 0 && pc < len(s.Program.Code) {
			dbg := s.Program.Code[pc].Debug
			loc = fmt.Sprintf("%s:%d", dbg.File, dbg.Line)
		} else if s.Program != nil {
			loc = s.Program.Source
		}
		lines = append(lines, fmt.Sprintf("\t%s: in function '%s'", loc, name))
	}
	return lines
}

// Traceback renders debug.traceback()'s default output: an optional
// leading message followed by the formatted stack.
func (s *State) Traceback(message string) string {
	out := message
	for _, l := range s.traceback() {
		out += "\n" + l
	}
	return out
}
