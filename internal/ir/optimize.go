package ir

// IndirectJumpElision implements spec.md §4.4: for every Branch whose
// yes/no target is an empty block ending in an unconditional Jump, rewrite
// the branch edge to go straight to that Jump's target and tombstone the
// now-unreachable intermediate block. An edge whose intermediate Jump passes
// block arguments is left as it is, so Branch edges keep carrying no block
// arguments (the bytecode compiler emits no moves for them).
//
// Grounded on original_source/src/opt/ir/mod.rs's `indirect_jump` pass,
// including its precondition note: this is sound only because the
// intermediate block is never the target of a back-edge, which holds here
// since match-lowering only ever produces straight-line check_i chains.
func IndirectJumpElision(fn *Func) {
	for _, b := range fn.Blocks {
		if b.Term == nil || b.Term.Kind != TBranch {
			continue
		}
		b.Term.Yes = elideEdge(fn, b.Term.Yes)
		b.Term.No = elideEdge(fn, b.Term.No)
	}
}

func elideEdge(fn *Func, e Edge) Edge {
	target := fn.Block(e.Target)
	if target == nil || len(target.Instructions) != 0 || target.Term == nil || target.Term.Kind != TJump || len(target.Term.Jump.Args) != 0 {
		return e
	}
	target.Tombstone = true
	return target.Term.Jump
}
