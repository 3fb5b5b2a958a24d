package bytecode

import "fmt"

// Program is the compiled unit the VM loads: a linear instruction
// vector, a resolved label->PC table, and the constant pool LOAD_CONST
// indexes into. It is the concrete shape of compiler.Compile's return
// value.
type Program struct {
	Code      []Instruction
	Labels    map[string]int
	Constants []any
	// EntryLabel is where execution (or a coroutine's first resume)
	// begins; usually "main".
	EntryLabel string
	// Source is the chunk name used in error messages and tracebacks.
	Source string
}

// NewProgram returns an empty program ready for a compiler to append
// instructions into.
func NewProgram(source string) *Program {
	return &Program{
		Labels: make(map[string]int),
		Source: source,
	}
}

// Emit appends an instruction and returns its index.
func (p *Program) Emit(in Instruction) int {
	p.Code = append(p.Code, in)
	return len(p.Code) - 1
}

// AddConstant interns a constant value, returning its pool index.
// Constants are compared by Go equality; compound values (tables) are
// never interned this way -- the compiler only ever pools
// nil/bool/number/string literals, matching LOAD_CONST's contract
// that constants are deep-copied on load so literal aggregates stay
// independent per load.
func (p *Program) AddConstant(v any) int {
	for i, c := range p.Constants {
		if c == v {
			return i
		}
	}
	p.Constants = append(p.Constants, v)
	return len(p.Constants) - 1
}

// ResolveLabels walks the instruction stream, recording the PC of
// every LABEL marker and erroring on duplicates within the same
// program (the compiler is responsible for keeping per-function
// label namespaces distinct by qualifying them, e.g. "fn1_lbl_skip").
func (p *Program) ResolveLabels() error {
	p.Labels = make(map[string]int, 8)
	for pc, in := range p.Code {
		if in.Op != LABEL {
			continue
		}
		if _, dup := p.Labels[in.Label]; dup {
			return fmt.Errorf("duplicate label %q at pc %d", in.Label, pc)
		}
		p.Labels[in.Label] = pc
	}
	return nil
}

// PCFor resolves a label to a program counter.
func (p *Program) PCFor(label string) (int, bool) {
	pc, ok := p.Labels[label]
	return pc, ok
}
