// Package ir defines purple-garden's SSA intermediate representation:
// values, blocks, terminators, functions and constants, plus the textual
// Display form named in the external-interfaces section of the spec.
//
// Grounded on the original Rust `ir.rs`: Id is an opaque index, Instr and
// Terminator are tagged variants, Block carries block parameters instead of
// phi nodes, and Display renders exactly the `fn @f<id>(...) { ... }` form
// the original's test fixture produces.
package ir

import (
	"fmt"
	"strings"

	"purplegarden/internal/ptype"
)

// Id is an opaque 32-bit index. The same type names both value-ids and
// block-ids; the two namespaces are disjoint within one function, per
// spec.md's data model.
type Id uint32

// TypedValue pairs the id an instruction assigns with the Type it produces.
type TypedValue struct {
	Id   Id
	Type ptype.Type
}

// InstrKind tags the Instr variant.
type InstrKind uint8

const (
	IAdd InstrKind = iota
	ISub
	IMul
	IDiv
	IEq
	ILt
	IGt
	ILoadConst
	ICall
	ICast
	INoop
)

func (k InstrKind) String() string {
	switch k {
	case IAdd:
		return "add"
	case ISub:
		return "sub"
	case IMul:
		return "mul"
	case IDiv:
		return "div"
	case IEq:
		return "eq"
	case ILt:
		return "lt"
	case IGt:
		return "gt"
	case ILoadConst:
		return "loadc"
	case ICall:
		return "call"
	case ICast:
		return "cast"
	case INoop:
		return "noop"
	default:
		return "?"
	}
}

// Instr is one SSA instruction. Only the fields relevant to Kind are
// populated; this mirrors the original's tagged-union Instr enum using a
// single Go struct rather than an interface, since every variant needs at
// most a handful of fields and a sum-of-structs would cost more in casts than
// it buys in type safety here.
type Instr struct {
	Kind InstrKind
	Dst  TypedValue
	Lhs  Id // Add/Sub/Mul/Div/Eq/Lt/Gt, Cast's from-operand
	Rhs  Id // Add/Sub/Mul/Div/Eq/Lt/Gt

	Const ptype.Const // LoadConst

	CallFunc Id   // Call: callee's function Id
	CallArgs []Id // Call
	CallDst  Id   // Call: the plain (untyped) dst id, since calls may be void
}

func (i Instr) String() string {
	switch i.Kind {
	case ILoadConst:
		return fmt.Sprintf("%%v%d = %s", i.Dst.Id, i.Const)
	case ICall:
		args := make([]string, len(i.CallArgs))
		for j, a := range i.CallArgs {
			args[j] = fmt.Sprintf("%%v%d", a)
		}
		return fmt.Sprintf("%%v%d = call @f%d(%s)", i.CallDst, i.CallFunc, strings.Join(args, ", "))
	case ICast:
		return fmt.Sprintf("%%v%d = cast %%v%d -> %s", i.Dst.Id, i.Lhs, i.Dst.Type)
	case INoop:
		return "noop"
	default:
		return fmt.Sprintf("%%v%d = %s %%v%d, %%v%d", i.Dst.Id, i.Kind, i.Lhs, i.Rhs)
	}
}

// TermKind tags the Terminator variant.
type TermKind uint8

const (
	TReturn TermKind = iota
	TJump
	TBranch
)

// Edge is a jump/branch target together with the SSA values passed as the
// target block's parameters.
type Edge struct {
	Target Id
	Args   []Id
}

// Terminator is the single control-flow exit of a Block.
type Terminator struct {
	Kind TermKind

	// TReturn
	RetVal   Id
	HasRetVal bool

	// TJump
	Jump Edge

	// TBranch
	Cond    Id
	Yes, No Edge
}

func (t Terminator) String() string {
	switch t.Kind {
	case TReturn:
		if t.HasRetVal {
			return fmt.Sprintf("ret %%v%d", t.RetVal)
		}
		return "ret"
	case TJump:
		return fmt.Sprintf("jmp %s", t.Jump)
	case TBranch:
		return fmt.Sprintf("br %%v%d, %s, %s", t.Cond, t.Yes, t.No)
	default:
		return "?"
	}
}

func (e Edge) String() string {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = fmt.Sprintf("%%v%d", a)
	}
	return fmt.Sprintf("b%d(%s)", e.Target, strings.Join(args, ", "))
}

// Block is a basic block: a sequence of instructions ending in exactly one
// Terminator, plus the block parameters that replace phi functions.
type Block struct {
	Id           Id
	Params       []TypedValue
	Instructions []Instr
	Term         *Terminator
	// Tombstone marks a block skipped by the bytecode compiler; its Id stays
	// addressable so other blocks' edges can still name it before being
	// rewritten to skip over it (see internal/ir's indirect-jump pass).
	Tombstone bool
}

func (b *Block) String() string {
	var sb strings.Builder
	params := make([]string, len(b.Params))
	for i, p := range b.Params {
		params[i] = fmt.Sprintf("%%v%d:%s", p.Id, p.Type)
	}
	fmt.Fprintf(&sb, "  b%d(%s):\n", b.Id, strings.Join(params, ", "))
	for _, ins := range b.Instructions {
		fmt.Fprintf(&sb, "    %s\n", ins)
	}
	if b.Term != nil {
		fmt.Fprintf(&sb, "    %s\n", b.Term)
	}
	return sb.String()
}

// Func is one SSA function. Block 0 is always the entry block; its params
// are the function's formal parameters. The pseudo-function `entry` (Id 0)
// collects top-level statements and has no parameters.
type Func struct {
	Id     Id
	Name   string
	Ret    *ptype.Type // nil for void
	Blocks []*Block
}

func (f *Func) String() string {
	var sb strings.Builder
	entryParams := ""
	if len(f.Blocks) > 0 {
		params := make([]string, len(f.Blocks[0].Params))
		for i, p := range f.Blocks[0].Params {
			params[i] = fmt.Sprintf("%%v%d", p.Id)
		}
		entryParams = strings.Join(params, ", ")
	}
	ret := "void"
	if f.Ret != nil {
		ret = f.Ret.String()
	}
	fmt.Fprintf(&sb, "fn @f%d(%s) -> %s {\n", f.Id, entryParams, ret)
	for _, b := range f.Blocks {
		if b.Tombstone {
			continue
		}
		sb.WriteString(b.String())
	}
	sb.WriteString("}")
	return sb.String()
}

// Block looks up a block by id within this function.
func (f *Func) Block(id Id) *Block {
	for _, b := range f.Blocks {
		if b.Id == id {
			return b
		}
	}
	return nil
}
