package vm

import (
	"purplegarden/internal/bytecode"
	"purplegarden/internal/errors"
	"purplegarden/internal/jit"
	"purplegarden/internal/ptype"
)

const registerCount = 64

// CallFrame mirrors a function invocation: only the PC to resume at on
// return, per spec.md §3 — locals live in the fixed register file, not a
// separate per-frame locals array (unlike the earlier, simpler
// original_source/src/vm/mod.rs snapshot's CallFrame{return_to, locals_base},
// which this implementation does not follow since spec.md's data model is
// authoritative).
type CallFrame struct {
	ReturnPC int
}

// Config toggles the VM's optional/reserved subsystems, surfaced by the CLI
// flags in spec.md §6.
type Config struct {
	Backtrace bool
	NoGC      bool // reserved: this implementation rides Go's GC regardless
	NoJIT     bool
}

// Promotion records that the profiler judged a function hot enough to
// warrant native compilation (spec.md §6's -N/--native path). The VM itself
// never acts on this beyond recording it — see internal/jit's package doc.
type Promotion struct {
	Function string
	Tier     jit.Tier
}

// VM executes a compiled Program against a fixed register file, a call-frame
// stack, a spill stack, the global constant pool, and an optional backtrace.
// Dispatch is a single tight loop (spec.md §4.7): fetch, switch by tag,
// advance PC by one except where Jmp/JmpF(taken)/Call/Ret sets it explicitly.
type VM struct {
	regs    [registerCount]Value
	pc      int
	code    []bytecode.Op
	globals []Value
	names   map[int]string // entry pc -> function name, for backtrace rendering

	frames []CallFrame
	spill  []Value

	backtrace        []errors.Frame
	backtraceEnabled bool

	profiler    *jit.Profiler
	jitEnabled  bool
	promotions  []Promotion
}

func New(p *bytecode.Program, cfg Config) *VM {
	globals := make([]Value, len(p.Constants))
	for i, c := range p.Constants {
		globals[i] = globalFromConst(c)
	}
	v := &VM{
		code:             p.Code,
		globals:          globals,
		names:            p.FunctionNames,
		backtraceEnabled: cfg.Backtrace,
		jitEnabled:       !cfg.NoJIT,
		profiler:         jit.NewProfiler(),
	}
	for i := range v.regs {
		v.regs[i] = Undef()
	}
	return v
}

func globalFromConst(c ptype.Const) Value {
	switch c.Kind {
	case ptype.ConstTrue:
		return BoxBool(true)
	case ptype.ConstFalse:
		return BoxBool(false)
	case ptype.ConstInt:
		return BoxInt(c.Int)
	case ptype.ConstDouble:
		return Value(c.DoubleBits)
	case ptype.ConstStr:
		return BoxCompileTimeString(c.Str)
	default:
		return Undef()
	}
}

// Registers exposes the live register file, for the -R/--registers CLI flag.
func (v *VM) Registers() [registerCount]Value { return v.regs }

// Run executes starting at entryPC until the outermost frame returns, and
// reports the final value left in r0 (Undef if the entry function is void).
func (v *VM) Run(entryPC int) (Value, error) {
	v.pc = entryPC
	for v.pc < len(v.code) {
		op := v.code[v.pc]
		v.pc++
		switch op.Code {
		case bytecode.IAdd:
			v.regs[op.A] = BoxInt(AsInt(v.regs[op.B]) + AsInt(v.regs[op.C]))
		case bytecode.ISub:
			v.regs[op.A] = BoxInt(AsInt(v.regs[op.B]) - AsInt(v.regs[op.C]))
		case bytecode.IMul:
			v.regs[op.A] = BoxInt(AsInt(v.regs[op.B]) * AsInt(v.regs[op.C]))
		case bytecode.IDiv:
			rhs := AsInt(v.regs[op.C])
			if rhs == 0 {
				return Undef(), v.anomaly(errors.DivisionByZero, "integer division by zero")
			}
			v.regs[op.A] = BoxInt(AsInt(v.regs[op.B]) / rhs)
		case bytecode.OpEq:
			v.regs[op.A] = BoxBool(Equal(v.regs[op.B], v.regs[op.C]))
		case bytecode.OpLt:
			v.regs[op.A] = BoxBool(compare(v.regs[op.B], v.regs[op.C]) < 0)
		case bytecode.OpGt:
			v.regs[op.A] = BoxBool(compare(v.regs[op.B], v.regs[op.C]) > 0)
		case bytecode.Mov:
			v.regs[op.A] = v.regs[op.B]
		case bytecode.LoadI:
			v.regs[op.A] = BoxInt(int64(op.Imm))
		case bytecode.LoadG:
			if int(op.Imm) < len(v.globals) {
				v.regs[op.A] = v.globals[op.Imm]
			}
		case bytecode.Jmp:
			v.pc = int(op.Imm)
		case bytecode.JmpF:
			if AsBool(v.regs[op.A]) {
				v.pc = int(op.Imm)
			}
		case bytecode.Call:
			callee := v.names[int(op.Imm)]
			if v.backtraceEnabled {
				v.backtrace = append(v.backtrace, errors.Frame{Function: callee, PC: v.pc - 1})
			}
			if v.jitEnabled {
				if promoted, tier := v.profiler.RecordCall(callee); promoted {
					v.promotions = append(v.promotions, Promotion{Function: callee, Tier: tier})
				}
			}
			v.frames = append(v.frames, CallFrame{ReturnPC: v.pc - 1})
			v.pc = int(op.Imm)
		case bytecode.Ret:
			if len(v.frames) == 0 {
				return v.regs[0], nil
			}
			frame := v.frames[len(v.frames)-1]
			v.frames = v.frames[:len(v.frames)-1]
			if v.backtraceEnabled && len(v.backtrace) > 0 {
				v.backtrace = v.backtrace[:len(v.backtrace)-1]
			}
			v.pc = frame.ReturnPC + 1
		case bytecode.Push:
			v.spill = append(v.spill, v.regs[op.A])
		case bytecode.Pop:
			if len(v.spill) == 0 {
				return Undef(), v.anomaly(errors.UndefinedLocal, "pop from an empty spill stack")
			}
			v.regs[op.A] = v.spill[len(v.spill)-1]
			v.spill = v.spill[:len(v.spill)-1]
		case bytecode.CastToBool:
			v.regs[op.A] = BoxBool(asCastBool(v.regs[op.B]))
		case bytecode.CastToInt:
			v.regs[op.A] = BoxInt(asCastInt(v.regs[op.B]))
		case bytecode.CastToDouble:
			v.regs[op.A] = BoxDouble(asCastDouble(v.regs[op.B]))
		case bytecode.Nop:
			// no-op
		default:
			return Undef(), v.anomaly(errors.Unimplemented, "unknown opcode")
		}
	}
	return v.regs[0], nil
}

func (v *VM) anomaly(kind errors.AnomalyKind, msg string) error {
	return errors.NewAnomaly(kind, v.pc-1, msg)
}

// Backtrace returns the recorded callee frames in call order (outermost
// first; errors.RenderBacktrace prints them innermost first), for rendering
// after an anomaly (spec.md §7); empty unless Config.Backtrace was set.
func (v *VM) Backtrace() []errors.Frame { return v.backtrace }

// Promotions returns every hot-function promotion the profiler recorded
// during this run, in the order they occurred.
func (v *VM) Promotions() []Promotion { return v.promotions }

func compare(a, b Value) int {
	if IsInt(a) && IsInt(b) {
		x, y := AsInt(a), AsInt(b)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		default:
			return 0
		}
	}
	x, y := AsDouble(a), AsDouble(b)
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}

func asCastBool(v Value) bool {
	if IsInt(v) {
		return AsInt(v) != 0
	}
	return IsBool(v) && AsBool(v)
}

func asCastInt(v Value) int64 {
	if IsDouble(v) {
		return int64(AsDouble(v))
	}
	return AsInt(v)
}

func asCastDouble(v Value) float64 {
	if IsInt(v) {
		return float64(AsInt(v))
	}
	return AsDouble(v)
}
