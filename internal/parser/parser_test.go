package parser

import (
	"testing"

	"purplegarden/internal/ast"
	"purplegarden/internal/lexer"
)

func parse(t *testing.T, src string) *ast.Program {
	t.Helper()
	toks := lexer.NewScanner(src).ScanTokens()
	prog, err := NewParser(toks).Parse()
	if err != nil {
		t.Fatalf("parse(%q): %v", src, err)
	}
	return prog
}

func TestParseLetAndBinary(t *testing.T) {
	prog := parse(t, "let x = 5 let y = 7 x + y")
	if len(prog.Nodes) != 3 {
		t.Fatalf("expected 3 top-level nodes, got %d", len(prog.Nodes))
	}
	if _, ok := prog.Nodes[0].(*ast.Let); !ok {
		t.Errorf("node 0: expected *ast.Let, got %T", prog.Nodes[0])
	}
	bin, ok := prog.Nodes[2].(*ast.Bin)
	if !ok {
		t.Fatalf("node 2: expected *ast.Bin, got %T", prog.Nodes[2])
	}
	if bin.Op != ast.Add {
		t.Errorf("expected Add, got %v", bin.Op)
	}
}

func TestParsePrecedence(t *testing.T) {
	prog := parse(t, "1 + 2 * 3")
	bin, ok := prog.Nodes[0].(*ast.Bin)
	if !ok || bin.Op != ast.Add {
		t.Fatalf("expected top-level Add, got %#v", prog.Nodes[0])
	}
	rhs, ok := bin.Rhs.(*ast.Bin)
	if !ok || rhs.Op != ast.Mul {
		t.Fatalf("expected rhs Mul, got %#v", bin.Rhs)
	}
}

func TestParseFn(t *testing.T) {
	prog := parse(t, "fn sq(n: int) int { n * n }")
	fn, ok := prog.Nodes[0].(*ast.Fn)
	if !ok {
		t.Fatalf("expected *ast.Fn, got %T", prog.Nodes[0])
	}
	if fn.Name != "sq" || len(fn.Params) != 1 || fn.Params[0].Name != "n" {
		t.Errorf("unexpected fn shape: %+v", fn)
	}
	if len(fn.Body) != 1 {
		t.Fatalf("expected 1 body node, got %d", len(fn.Body))
	}
}

func TestParseMatchRequiresDefault(t *testing.T) {
	toks := lexer.NewScanner("match { x == 0 { false } }").ScanTokens()
	if _, err := NewParser(toks).Parse(); err == nil {
		t.Fatal("expected an error for a match without a default arm")
	}
}

func TestParseMatch(t *testing.T) {
	prog := parse(t, `match { x == 0 { false } x == 1 { true } { false } }`)
	m, ok := prog.Nodes[0].(*ast.Match)
	if !ok {
		t.Fatalf("expected *ast.Match, got %T", prog.Nodes[0])
	}
	if len(m.Arms) != 2 {
		t.Fatalf("expected 2 conditional arms, got %d", len(m.Arms))
	}
	if len(m.Default) != 1 {
		t.Fatalf("expected 1 default body node, got %d", len(m.Default))
	}
}

func TestParseCast(t *testing.T) {
	prog := parse(t, "1 as double")
	c, ok := prog.Nodes[0].(*ast.Cast)
	if !ok {
		t.Fatalf("expected *ast.Cast, got %T", prog.Nodes[0])
	}
	if c.Target.Kind.String() != "double" {
		t.Errorf("expected double target, got %v", c.Target)
	}
}

func TestParseCall(t *testing.T) {
	prog := parse(t, "sq(12)")
	call, ok := prog.Nodes[0].(*ast.Call)
	if !ok {
		t.Fatalf("expected *ast.Call, got %T", prog.Nodes[0])
	}
	if call.Callee != "sq" || len(call.Args) != 1 {
		t.Errorf("unexpected call shape: %+v", call)
	}
}
