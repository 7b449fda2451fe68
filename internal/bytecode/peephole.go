package bytecode

// Peephole runs the sliding-window rewrites of spec.md §4.6 over code
// in-place. The stream's length is never changed — rewrites replace
// instructions with Nop so that every previously-resolved jump target stays
// valid (spec.md Testable Property 6).
//
// Grounded on original_source/src/opt/bc/mod.rs's test fixtures: self_move
// turns `Mov dst,dst` into Nop; const_binary folds a LoadImm/LoadImm/binop
// triple into a single LoadImm. const_binary is wired up but left disabled
// by default (see constBinaryFold's doc comment) — re-enabling it without a
// liveness pass leaves stale values in the two now-dead source registers,
// exactly the soundness bug spec.md §9 Open Question 3 describes.
func Peephole(code []Op, enableConstFold bool) {
	selfMove(code)
	if enableConstFold {
		for i := 0; i+2 < len(code); i++ {
			constBinaryFold(code[i : i+3])
		}
	}
}

// selfMove implements the *self-move* pattern: `Mov dst, src` with
// dst == src contributes nothing and becomes a Nop.
func selfMove(code []Op) {
	for i := range code {
		if code[i].Code == Mov && code[i].A == code[i].B {
			code[i] = Op{Code: Nop}
		}
	}
}

// constBinaryFold implements the *mov-merge*-adjacent constant-folding
// peephole the original keeps disabled: given a 3-window
// `LoadI dst,v1 ; LoadI other,v2 ; <binop> dst,dst,other`, it rewrites the
// window to `Nop ; Nop ; LoadI dst, fold(v1,v2)`.
//
// constBinaryFold is NOT part of the default optimisation pipeline (see
// Peephole's enableConstFold flag, always false on the -O1 path) because the
// two source LoadIs' destination registers are left holding stale values:
// if either register is read again beyond this window (e.g. as part of a
// different live range reusing the same physical register slot before this
// function's next Call), that read observes the pre-fold value, not Void —
// a liveness pass would need to prove the register is dead to make this
// safe, and spec.md §9 explicitly says that pass doesn't exist yet.
func constBinaryFold(window []Op) {
	if len(window) != 3 {
		return
	}
	a, b, op := window[0], window[1], window[2]
	if a.Code != LoadI || b.Code != LoadI {
		return
	}
	if op.A != a.A || op.B != a.A || op.C != b.A {
		return
	}
	var result int32
	switch op.Code {
	case IAdd:
		result = a.Imm + b.Imm
	case ISub:
		result = a.Imm - b.Imm
	case IMul:
		result = a.Imm * b.Imm
	case IDiv:
		if b.Imm == 0 {
			return
		}
		result = a.Imm / b.Imm
	default:
		return
	}
	window[0] = Op{Code: Nop}
	window[1] = Op{Code: Nop}
	window[2] = Op{Code: LoadI, A: a.A, Imm: result}
}
