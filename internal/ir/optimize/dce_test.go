package optimize

import (
	"reflect"
	"testing"

	"github.com/gul-lang/gul-lang/internal/ir"
)

func constI(slot ir.Slot, v int64) ir.Instr {
	val := ir.IntValue(v)
	return ir.Instr{Op: ir.OpConst, Result: slot, Value: &val}
}

func single(fn *ir.Function) *ir.Module {
	return &ir.Module{Functions: []*ir.Function{fn}}
}

func ops(fn *ir.Function) []ir.Op {
	var out []ir.Op
	for _, in := range fn.Instrs {
		out = append(out, in.Op)
	}
	return out
}

func TestEliminateUnusedChain(t *testing.T) {
	// %1 and %2 only feed %3, which is unused.
	fn := &ir.Function{Name: "f", Instrs: []ir.Instr{
		constI(1, 1),
		constI(2, 2),
		{Op: ir.OpBinOp, Operator: "+", Result: 3, Args: []ir.Slot{1, 2}},
		{Op: ir.OpLoad, Result: 4, Name: "x"},
		constI(5, 7),
		{Op: ir.OpCall, Name: "print", Args: []ir.Slot{5}},
		{Op: ir.OpReturn},
	}}
	out := EliminateDeadCode(single(fn)).Functions[0]
	want := []ir.Op{ir.OpConst, ir.OpCall, ir.OpReturn}
	if got := ops(out); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if len(fn.Instrs) != 7 {
		t.Fatal("input function was modified")
	}
}

func TestKeepsSideEffects(t *testing.T) {
	fn := &ir.Function{Name: "f", Instrs: []ir.Instr{
		constI(1, 1),
		{Op: ir.OpStore, Name: "x", Args: []ir.Slot{1}},
		{Op: ir.OpCall, Result: 2, Name: "input"},
		{Op: ir.OpReturn},
	}}
	out := EliminateDeadCode(single(fn)).Functions[0]
	if len(out.Instrs) != 4 {
		t.Fatalf("expected every instruction kept, got %v", out.Instrs)
	}
}

func TestEliminateUnreachableBlocks(t *testing.T) {
	// entry -> exit; "orphan" has no predecessor.
	fn := &ir.Function{Name: "f", Instrs: []ir.Instr{
		{Op: ir.OpJump, Targets: []string{"exit"}},
		{Op: ir.OpLabel, Name: "orphan"},
		constI(1, 1),
		{Op: ir.OpCall, Name: "print", Args: []ir.Slot{1}},
		{Op: ir.OpJump, Targets: []string{"exit"}},
		{Op: ir.OpLabel, Name: "exit"},
		{Op: ir.OpReturn},
	}}
	out := EliminateDeadCode(single(fn)).Functions[0]
	for _, in := range out.Instrs {
		if in.Op == ir.OpLabel && in.Name == "orphan" || in.Op == ir.OpCall {
			t.Fatalf("unreachable block survived: %v", out.Instrs)
		}
	}
	if err := ir.VerifyFunction(out); err != nil {
		t.Fatal(err)
	}
}

func TestLoopsKeepLiveSlots(t *testing.T) {
	fn := &ir.Function{Name: "f", Instrs: []ir.Instr{
		{Op: ir.OpJump, Targets: []string{"head"}},
		{Op: ir.OpLabel, Name: "head"},
		{Op: ir.OpLoad, Result: 1, Name: "go"},
		{Op: ir.OpBranch, Args: []ir.Slot{1}, Targets: []string{"body", "exit"}},
		{Op: ir.OpLabel, Name: "body"},
		{Op: ir.OpJump, Targets: []string{"head"}},
		{Op: ir.OpLabel, Name: "exit"},
		{Op: ir.OpReturn},
	}}
	out := EliminateDeadCode(single(fn)).Functions[0]
	if !reflect.DeepEqual(out.Instrs, fn.Instrs) {
		t.Fatalf("expected no change, got %v", out.Instrs)
	}
}

func TestIdempotent(t *testing.T) {
	fn := &ir.Function{Name: "f", Instrs: []ir.Instr{
		constI(1, 1),
		{Op: ir.OpUnOp, Operator: "-", Result: 2, Args: []ir.Slot{1}},
		{Op: ir.OpBranch, Args: []ir.Slot{1}, Targets: []string{"a", "b"}},
		{Op: ir.OpLabel, Name: "a"},
		{Op: ir.OpReturn, Args: []ir.Slot{1}},
		{Op: ir.OpLabel, Name: "dead"},
		{Op: ir.OpReturn},
		{Op: ir.OpLabel, Name: "b"},
		{Op: ir.OpReturn},
	}}
	once := EliminateDeadCode(single(fn))
	twice := EliminateDeadCode(once)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("second run changed the module:\n%s\nvs\n%s", once, twice)
	}
	if len(once.Functions[0].Instrs) != 6 {
		t.Fatalf("expected 6 instructions, got:\n%s", once)
	}
}
