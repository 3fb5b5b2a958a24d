package bytecode

import (
	"fmt"
	"io"
	"strings"
)

// Disassemble writes a readable assembly-style dump of prog to w, one
// instruction per line, prefixed with its program counter.
func Disassemble(w io.Writer, prog *Program) error {
	for pc, in := range prog.Code {
		if _, err := fmt.Fprintf(w, "%4d  %s\n", pc, FormatInstruction(in)); err != nil {
			return err
		}
	}
	return nil
}

// FormatInstruction renders a single instruction the way Disassemble
// does, without requiring a Program (useful for traceback lines that
// quote the failing instruction).
func FormatInstruction(in Instruction) string {
	var b strings.Builder
	b.WriteString(in.Op.String())
	switch in.Op {
	case LABEL:
		fmt.Fprintf(&b, " %s", in.Label)
	case LOAD_IMM, CMP_IMM, JMP_REL, BIND_UPVALUE:
		writeArgs(&b, in.Args)
		fmt.Fprintf(&b, " %d", in.Imm)
	case LOAD_CONST:
		writeArgs(&b, in.Args)
		fmt.Fprintf(&b, " #%d", in.Const)
	case JMP, JZ, JNZ, CALL:
		writeArgs(&b, in.Args)
		fmt.Fprintf(&b, " %s", in.Label)
	case CLOSURE:
		writeArgs(&b, in.Args[:1])
		fmt.Fprintf(&b, " %s", in.Label)
		if len(in.Args) > 1 {
			writeArgs(&b, in.Args[1:])
		}
	default:
		writeArgs(&b, in.Args)
	}
	return b.String()
}

func writeArgs(b *strings.Builder, args []string) {
	for _, a := range args {
		fmt.Fprintf(b, " %s", a)
	}
}
