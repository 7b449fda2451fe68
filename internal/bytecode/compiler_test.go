package bytecode_test

import (
	"testing"

	"purplegarden/internal/bytecode"
	"purplegarden/internal/ir"
	"purplegarden/internal/lexer"
	"purplegarden/internal/parser"
	"purplegarden/internal/ptype"
	"purplegarden/internal/typecheck"
)

func compileSource(t *testing.T, src string) *bytecode.Program {
	t.Helper()
	toks := lexer.NewScanner(src).ScanTokens()
	prog, err := parser.NewParser(toks).Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	types, err := typecheck.Check(prog)
	if err != nil {
		t.Fatalf("typecheck: %v", err)
	}
	funcs, err := ir.Lower(prog, types)
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	for _, fn := range funcs {
		ir.IndirectJumpElision(fn)
	}
	bc, err := bytecode.Compile(funcs)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	bytecode.Peephole(bc.Code, false)
	return bc
}

// S1 from spec.md §8: a straight-line program with no calls.
func TestCompileS1(t *testing.T) {
	bc := compileSource(t, "let x = 5 let y = 7 x + y")
	sawAdd := false
	for _, op := range bc.Code {
		if op.Code == bytecode.IAdd {
			sawAdd = true
		}
	}
	if !sawAdd {
		t.Error("expected an IAdd instruction in the compiled stream")
	}
}

// S2 from spec.md §8: a function call; disassembly should show exactly one
// Mul and one Call.
func TestCompileS2(t *testing.T) {
	bc := compileSource(t, "fn sq(n: int) int { n * n } sq(12)")
	muls, calls := 0, 0
	for _, op := range bc.Code {
		switch op.Code {
		case bytecode.IMul:
			muls++
		case bytecode.Call:
			calls++
		}
	}
	if muls != 1 || calls != 1 {
		t.Errorf("expected exactly one Mul and one Call, got %d muls, %d calls", muls, calls)
	}
	if _, ok := bc.FunctionPCs["sq"]; !ok {
		t.Error("expected function table entry for `sq`")
	}
}

// Property 2: booleans intern at indices 0 (False) and 1 (True).
func TestConstantInterningBooleanIndices(t *testing.T) {
	bc := compileSource(t, "true")
	if len(bc.Constants) < 2 {
		t.Fatalf("expected at least 2 interned constants, got %d", len(bc.Constants))
	}
	if bc.Constants[0].Kind != ptype.ConstFalse || bc.Constants[1].Kind != ptype.ConstTrue {
		t.Errorf("expected [False, True] at indices 0,1, got %v, %v", bc.Constants[0], bc.Constants[1])
	}
}

func TestDisassembleProducesOutput(t *testing.T) {
	bc := compileSource(t, "let x = 5 let y = 7 x + y")
	out := bytecode.Disassemble(bc)
	if out == "" {
		t.Fatal("expected non-empty disassembly")
	}
}
