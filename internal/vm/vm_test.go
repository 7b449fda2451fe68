package vm_test

import (
	"testing"

	"purplegarden/internal/bytecode"
	"purplegarden/internal/ir"
	"purplegarden/internal/lexer"
	"purplegarden/internal/parser"
	"purplegarden/internal/typecheck"
	"purplegarden/internal/vm"
)

func run(t *testing.T, src string, cfg vm.Config) (vm.Value, *vm.VM, error) {
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
	m := vm.New(bc, cfg)
	entry, ok := bc.FunctionPCs["entry"]
	if !ok {
		t.Fatal("missing entry function")
	}
	v, err := m.Run(entry)
	return v, m, err
}

// S1 from spec.md §8: straight-line arithmetic.
func TestS1StraightLineArithmetic(t *testing.T) {
	v, _, err := run(t, "let x = 5 let y = 7 x + y", vm.Config{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !vm.IsInt(v) || vm.AsInt(v) != 12 {
		t.Errorf("expected 12, got %v (%d)", v, vm.AsInt(v))
	}
}

// S2 from spec.md §8: a function call.
func TestS2FunctionCall(t *testing.T) {
	v, _, err := run(t, "fn sq(n: int) int { n * n } sq(12)", vm.Config{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !vm.IsInt(v) || vm.AsInt(v) != 144 {
		t.Errorf("expected 144, got %d", vm.AsInt(v))
	}
}

// S3 from spec.md §8: match with a default arm.
func TestS3MatchDefault(t *testing.T) {
	v, _, err := run(t, "let x = 3 match { x == 1 { 100 } x == 2 { 200 } { 999 } }", vm.Config{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !vm.IsInt(v) || vm.AsInt(v) != 999 {
		t.Errorf("expected default arm value 999, got %d", vm.AsInt(v))
	}
}

func TestS3MatchTakesFirstTrueArm(t *testing.T) {
	v, _, err := run(t, "let x = 2 match { x == 1 { 100 } x == 2 { 200 } { 999 } }", vm.Config{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if vm.AsInt(v) != 200 {
		t.Errorf("expected 200, got %d", vm.AsInt(v))
	}
}

// S4 from spec.md §8: integer division by zero raises a DivisionByZero
// anomaly rather than panicking the host process.
func TestS4DivisionByZeroAnomaly(t *testing.T) {
	_, _, err := run(t, "let x = 1 let y = 0 x / y", vm.Config{})
	if err == nil {
		t.Fatal("expected a division-by-zero anomaly")
	}
}

// S7 from spec.md §8: recursion through a user function, with an optional
// backtrace populated when Config.Backtrace is set.
func TestS7RecursiveCallBacktrace(t *testing.T) {
	src := "fn fact(n: int) int { match { n == 0 { 1 } { n * fact(n - 1) } } } fact(5)"
	v, m, err := run(t, src, vm.Config{Backtrace: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if vm.AsInt(v) != 120 {
		t.Errorf("expected 120, got %d", vm.AsInt(v))
	}
	if len(m.Backtrace()) != 0 {
		t.Errorf("expected an empty backtrace after a successful return, got %v", m.Backtrace())
	}
}

// Property 8: executing the same program twice yields identical results.
func TestDeterminism(t *testing.T) {
	src := "fn sq(n: int) int { n * n } sq(9)"
	v1, _, err := run(t, src, vm.Config{})
	if err != nil {
		t.Fatalf("run 1: %v", err)
	}
	v2, _, err := run(t, src, vm.Config{})
	if err != nil {
		t.Fatalf("run 2: %v", err)
	}
	if v1 != v2 {
		t.Errorf("non-deterministic result: %v vs %v", v1, v2)
	}
}

func TestBooleanComparisons(t *testing.T) {
	v, _, err := run(t, "let x = 3 let y = 4 x < y", vm.Config{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !vm.IsBool(v) || !vm.AsBool(v) {
		t.Errorf("expected true, got %v", v)
	}
}

func TestRecursiveCallsPromoteUnderProfiler(t *testing.T) {
	src := "fn fact(n: int) int { match { n == 0 { 1 } { n * fact(n - 1) } } } fact(1)"
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
	m := vm.New(bc, vm.Config{})
	entry := bc.FunctionPCs["entry"]
	for i := 0; i < 100; i++ {
		if _, err := m.Run(entry); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	if len(m.Promotions()) == 0 {
		t.Error("expected at least one hot-function promotion after 100 calls")
	}
}

func TestCastIntToDouble(t *testing.T) {
	v, _, err := run(t, "let x = 5 x as double", vm.Config{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !vm.IsDouble(v) || vm.AsDouble(v) != 5.0 {
		t.Errorf("expected 5.0, got %v", vm.AsDouble(v))
	}
}
