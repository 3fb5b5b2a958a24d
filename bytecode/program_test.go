package bytecode

import "testing"

func TestResolveLabelsDetectsDuplicate(t *testing.T) {
	p := NewProgram("test")
	p.Emit(Instruction{Op: LABEL, Label: "top"})
	p.Emit(Instruction{Op: LABEL, Label: "top"})
	if err := p.ResolveLabels(); err == nil {
		t.Fatal("expected duplicate label error")
	}
}

func TestResolveLabelsAndPCFor(t *testing.T) {
	p := NewProgram("test")
	p.Emit(Instruction{Op: LOAD_IMM, Args: []string{"r0"}, Imm: 1})
	p.Emit(Instruction{Op: LABEL, Label: "skip"})
	p.Emit(Instruction{Op: HALT})
	if err := p.ResolveLabels(); err != nil {
		t.Fatal(err)
	}
	pc, ok := p.PCFor("skip")
	if !ok || pc != 1 {
		t.Errorf("PCFor(skip) = %d, %v, want 1, true", pc, ok)
	}
}

func TestAddConstantInterns(t *testing.T) {
	p := NewProgram("test")
	a := p.AddConstant(int64(42))
	b := p.AddConstant(int64(42))
	if a != b {
		t.Errorf("expected constant interning, got indexes %d and %d", a, b)
	}
}

func TestFormatInstruction(t *testing.T) {
	in := Instruction{Op: ADD, Args: []string{"r2", "r0", "r1"}}
	if got, want := FormatInstruction(in), "ADD r2 r0 r1"; got != want {
		t.Errorf("FormatInstruction = %q, want %q", got, want)
	}
}
