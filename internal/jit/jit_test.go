package jit_test

import (
	"strings"
	"testing"

	"purplegarden/internal/ir"
	"purplegarden/internal/jit"
	"purplegarden/internal/ptype"
)

func TestProfilerPromotesAtThresholds(t *testing.T) {
	p := jit.NewProfiler()
	var lastTier jit.Tier
	var promotions int
	for i := 0; i < 1000; i++ {
		promoted, tier := p.RecordCall("fib")
		if promoted {
			promotions++
			lastTier = tier
		}
	}
	if promotions != 2 {
		t.Fatalf("expected exactly 2 promotions (hot, optimized), got %d", promotions)
	}
	if lastTier != jit.TierOptimizedNative {
		t.Errorf("expected final promotion to TierOptimizedNative, got %v", lastTier)
	}
	if p.Calls("fib") != 1000 {
		t.Errorf("expected 1000 recorded calls, got %d", p.Calls("fib"))
	}
}

func TestEmitModuleProducesTextualIR(t *testing.T) {
	intType := ptype.IntT()
	fn := &ir.Func{
		Id:   1,
		Name: "sq",
		Ret:  &intType,
		Blocks: []*ir.Block{
			{Id: 0, Params: []ir.TypedValue{{Id: 0, Type: intType}}},
		},
	}
	e := jit.NewEmitter()
	out, err := e.EmitModule([]*ir.Func{fn})
	if err != nil {
		t.Fatalf("EmitModule: %v", err)
	}
	if !strings.Contains(out, "sq") {
		t.Errorf("expected emitted IR to reference function name, got:\n%s", out)
	}
}
