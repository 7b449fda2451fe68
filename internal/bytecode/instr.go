// Package bytecode implements purple-garden's fixed-width register-based
// instruction set, the two-pass SSA-to-bytecode compiler, the peephole
// optimiser, and the disassembler.
//
// The encoding idiom — a typed OpCode enum, a packed fixed-size instruction
// struct, and an opcode->mnemonic string table driving String() — follows
// the teacher's internal/vmregister/bytecode.go. The actual instruction set
// and its widths are spec.md §3/§4.5's, not the teacher's 32-bit iABC
// encoding: every Op here is exactly 8 bytes (OpCode + three byte-wide
// register fields + a 4-byte immediate/target lane), one 8-bit register
// field per operand, matching spec.md's Testable Property 1.
package bytecode

import "fmt"

type OpCode uint8

const (
	IAdd OpCode = iota
	ISub
	IMul
	IDiv
	OpEq
	OpLt
	OpGt
	Mov
	LoadI
	LoadG
	Jmp
	JmpF
	Call
	Ret
	Push
	Pop
	CastToBool
	CastToInt
	CastToDouble
	Nop
)

var opNames = [...]string{
	IAdd: "iadd", ISub: "isub", IMul: "imul", IDiv: "idiv",
	OpEq: "eq", OpLt: "lt", OpGt: "gt",
	Mov: "mov", LoadI: "loadi", LoadG: "loadg",
	Jmp: "jmp", JmpF: "jmpf", Call: "call", Ret: "ret",
	Push: "push", Pop: "pop",
	CastToBool: "cast.bool", CastToInt: "cast.int", CastToDouble: "cast.double",
	Nop: "nop",
}

func (op OpCode) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return fmt.Sprintf("op(%d)", op)
}

// Op is one fixed-width instruction: exactly 8 bytes as laid out by the Go
// compiler (OpCode + A + B + C pack into the same word as Imm on every
// mainstream ABI, 1+1+1+1+4 = 8, no trailing padding). Which fields are
// meaningful depends on Code; see the mnemonic table in spec.md §4.5.
type Op struct {
	Code OpCode
	A    uint8 // dst / cond / reg
	B    uint8 // lhs / src
	C    uint8 // rhs
	Imm  int32 // LoadI's value, LoadG's idx, Jmp/JmpF's target, Call's func pc
}

func (o Op) String() string {
	switch o.Code {
	case IAdd, ISub, IMul, IDiv, OpEq, OpLt, OpGt:
		return fmt.Sprintf("%s r%d, r%d, r%d", o.Code, o.A, o.B, o.C)
	case Mov, CastToBool, CastToInt, CastToDouble:
		return fmt.Sprintf("%s r%d, r%d", o.Code, o.A, o.B)
	case LoadI:
		return fmt.Sprintf("%s r%d, #%d", o.Code, o.A, o.Imm)
	case LoadG:
		return fmt.Sprintf("%s r%d, @%d", o.Code, o.A, o.Imm)
	case Jmp:
		return fmt.Sprintf("%s 0x%x", o.Code, o.Imm)
	case JmpF:
		return fmt.Sprintf("%s r%d, 0x%x", o.Code, o.A, o.Imm)
	case Call:
		return fmt.Sprintf("%s 0x%x", o.Code, o.Imm)
	case Push, Pop:
		return fmt.Sprintf("%s r%d", o.Code, o.A)
	case Ret, Nop:
		return o.Code.String()
	default:
		return fmt.Sprintf("<bad op %d>", o.Code)
	}
}
