package bytecode

import "testing"

// Mirrors original_source/src/opt/bc/mod.rs's `self_move` test fixture.
func TestSelfMove(t *testing.T) {
	code := []Op{
		{Code: Mov, A: 64, B: 64},
		{Code: Mov, A: 64, B: 64},
		{Code: Mov, A: 64, B: 64},
	}
	selfMove(code)
	for i, op := range code {
		if op.Code != Nop {
			t.Errorf("instr %d: expected Nop, got %v", i, op)
		}
	}
}

func TestSelfMovePreservesNonSelfMoves(t *testing.T) {
	code := []Op{{Code: Mov, A: 1, B: 2}}
	selfMove(code)
	if code[0].Code != Mov {
		t.Errorf("expected Mov r1,r2 to survive, got %v", code[0])
	}
}

// Mirrors original_source/src/opt/bc/mod.rs's `const_binary` test fixture:
// folding is disabled by default but must still behave correctly when
// explicitly exercised.
func TestConstBinaryFold(t *testing.T) {
	code := []Op{
		{Code: LoadI, A: 0, Imm: 1},
		{Code: LoadI, A: 1, Imm: 2},
		{Code: IAdd, A: 0, B: 0, C: 1},
		{Code: LoadI, A: 0, Imm: 1},
		{Code: LoadI, A: 1, Imm: 2},
		{Code: ISub, A: 0, B: 0, C: 1},
		{Code: LoadI, A: 0, Imm: 3},
		{Code: LoadI, A: 1, Imm: 5},
		{Code: IMul, A: 0, B: 0, C: 1},
		{Code: LoadI, A: 0, Imm: 64},
		{Code: LoadI, A: 1, Imm: 8},
		{Code: IDiv, A: 0, B: 0, C: 1},
	}
	for i := 0; i+3 <= len(code); i++ {
		constBinaryFold(code[i : i+3])
	}
	var folded []Op
	for _, op := range code {
		if op.Code != Nop {
			folded = append(folded, op)
		}
	}
	want := []int32{1, 2, 3, 1, 2, -1, 3, 5, 15, 64, 8, 8}
	if len(folded) != len(want) {
		t.Fatalf("expected %d surviving instructions, got %d: %v", len(want), len(folded), folded)
	}
	for i, op := range folded {
		if op.Imm != want[i] {
			t.Errorf("instr %d: expected imm %d, got %d", i, want[i], op.Imm)
		}
	}
}

func TestPeepholePreservesLength(t *testing.T) {
	code := []Op{
		{Code: Mov, A: 3, B: 3},
		{Code: LoadI, A: 0, Imm: 5},
		{Code: IAdd, A: 0, B: 0, C: 1},
	}
	before := len(code)
	Peephole(code, true)
	if len(code) != before {
		t.Fatalf("peephole changed stream length: %d -> %d", before, len(code))
	}
}
