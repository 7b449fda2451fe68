package bytecode

import (
	"fmt"
	"sort"
	"strings"
)

// Disassemble renders Program per spec.md §6's stable format: a per-function
// header (`__name: ; 0x<pc> args=<n>;size=<n>`) followed by each
// instruction, with LoadG annotated by the constant it loads and Call/Jmp
// targets resolved back to function names where possible. The args field is
// always printed as `?`: Program does not record a function's parameter
// count.
func Disassemble(p *Program) string {
	pcs := make([]int, 0, len(p.FunctionNames))
	for pc := range p.FunctionNames {
		pcs = append(pcs, pc)
	}
	sort.Ints(pcs)

	var sb strings.Builder
	for fi, start := range pcs {
		name := p.FunctionNames[start]
		end := len(p.Code)
		if fi+1 < len(pcs) {
			end = pcs[fi+1]
		}
		fmt.Fprintf(&sb, "__%s:\t\t\t; 0x%x args=?;size=%d\n", name, start, end-start)
		for pc := start; pc < end; pc++ {
			sb.WriteString(disasmOne(p, pc))
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func disasmOne(p *Program, pc int) string {
	op := p.Code[pc]
	base := fmt.Sprintf("0x%04x  %s", pc, op)
	switch op.Code {
	case LoadG:
		if int(op.Imm) < len(p.Constants) {
			return fmt.Sprintf("%s\t; %s", base, p.Constants[op.Imm])
		}
	case Call:
		if name, ok := p.FunctionNames[int(op.Imm)]; ok {
			return fmt.Sprintf("%s\t; %s", base, name)
		}
	case Jmp, JmpF:
		if name, off := resolveJumpTarget(p, int(op.Imm)); name != "" {
			return fmt.Sprintf("%s\t; %s+0x%x", base, name, off)
		}
	}
	return base
}

// resolveJumpTarget finds the function whose PC range contains target and
// returns its name plus the in-function offset, per spec.md §6's
// `<name>+0x<offset>` form.
func resolveJumpTarget(p *Program, target int) (string, int) {
	pcs := make([]int, 0, len(p.FunctionNames))
	for pc := range p.FunctionNames {
		pcs = append(pcs, pc)
	}
	sort.Ints(pcs)
	best := -1
	for _, pc := range pcs {
		if pc <= target {
			best = pc
		}
	}
	if best < 0 {
		return "", 0
	}
	return p.FunctionNames[best], target - best
}
