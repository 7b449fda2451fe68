// Package jit implements purple-garden's reserved native-compilation path,
// surfaced by the CLI's -N/--native flag (spec.md §6). No machine code is
// actually generated: the VM always interprets bytecode. What this package
// does is profile call counts the way a tiering JIT would (Profiler, whose
// promotions the VM only records), and, separately, emit a textual LLVM IR
// module covering every function via github.com/llir/llvm (Emitter, printed
// by the CLI under -N) — a stand-in for the codegen this implementation does
// not attempt, kept textual and inspectable rather than faked.
//
// Grounded on the teacher's internal/jit/jit.go (Profiler/Compiler/tiering
// shape), adapted from its scripting-language Function/Value types to
// purple-garden's internal/ir.Func and internal/ptype.Type.
package jit

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"

	pgir "purplegarden/internal/ir"
	"purplegarden/internal/ptype"
)

// Tier mirrors the teacher's CompilationTier enum: how aggressively a hot
// function has been promoted.
type Tier int

const (
	TierInterpreted Tier = iota
	TierQuickNative
	TierOptimizedNative
)

// hotThreshold/optimizedThreshold are the call counts at which a function is
// promoted, mirroring the teacher's 100/1000 thresholds.
const (
	hotThreshold       = 100
	optimizedThreshold = 1000
)

// Profiler counts calls per function name and reports tier promotions,
// exactly as the teacher's Profiler does for its own scripting language.
type Profiler struct {
	callCounts map[string]int
}

func NewProfiler() *Profiler {
	return &Profiler{callCounts: make(map[string]int)}
}

// RecordCall records one invocation of fn and reports whether this call just
// crossed a promotion threshold, and to which tier.
func (p *Profiler) RecordCall(fn string) (promoted bool, tier Tier) {
	p.callCounts[fn]++
	switch p.callCounts[fn] {
	case hotThreshold:
		return true, TierQuickNative
	case optimizedThreshold:
		return true, TierOptimizedNative
	default:
		return false, TierInterpreted
	}
}

// Calls reports the current call count for fn, for diagnostics.
func (p *Profiler) Calls(fn string) int { return p.callCounts[fn] }

// Emitter lowers purple-garden IR functions into a textual LLVM module. It
// does not attempt register allocation or instruction selection: each
// function gets its LLVM signature and a single basic block that returns a
// zero value of the return type; the purple-garden SSA body is not
// translated.
type Emitter struct {
	module *ir.Module
}

func NewEmitter() *Emitter {
	return &Emitter{module: ir.NewModule()}
}

// EmitModule translates every function (including entry) into an LLVM
// function declaration with a single basic block, and returns the module's
// textual IR — the artifact printed by -N/--native.
func (e *Emitter) EmitModule(funcs []*pgir.Func) (string, error) {
	for _, fn := range funcs {
		if err := e.emitFunc(fn); err != nil {
			return "", err
		}
	}
	return e.module.String(), nil
}

func (e *Emitter) emitFunc(fn *pgir.Func) error {
	retType := llvmType(fn.Ret)
	var params []*ir.Param
	if len(fn.Blocks) > 0 {
		for _, p := range fn.Blocks[0].Params {
			params = append(params, ir.NewParam(fmt.Sprintf("v%d", p.Id), llvmType(&p.Type)))
		}
	}
	llFn := e.module.NewFunc(sanitizeName(fn.Name), retType, params...)
	block := llFn.NewBlock("entry")

	// Flat stand-in body: no attempt to mirror control flow beyond a single
	// terminating instruction, since this emitter exists for inspection under
	// -N, not as a real compilation target.
	switch retType {
	case types.Double:
		block.NewRet(constant.NewFloat(types.Double, 0))
	case types.I1:
		block.NewRet(constant.NewBool(false))
	case types.Void:
		block.NewRet(nil)
	default:
		block.NewRet(constant.NewInt(types.I64, 0))
	}
	return nil
}

func llvmType(t *ptype.Type) types.Type {
	if t == nil {
		return types.Void
	}
	switch t.Kind {
	case ptype.Int:
		return types.I64
	case ptype.Double:
		return types.Double
	case ptype.Bool:
		return types.I1
	case ptype.Str:
		return types.I8Ptr
	case ptype.Void:
		return types.Void
	default:
		return types.I64
	}
}

func sanitizeName(name string) string {
	if name == "" {
		return "anon"
	}
	return name
}
