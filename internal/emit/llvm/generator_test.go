package llvm

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/gul-lang/gul-lang/internal/codegen"
	"github.com/gul-lang/gul-lang/internal/emit"
	"github.com/gul-lang/gul-lang/internal/ir"
	"github.com/gul-lang/gul-lang/internal/parser"
	"github.com/gul-lang/gul-lang/internal/types"
)

func lower(t *testing.T, src string) *ir.Module {
	t.Helper()
	prog, diags := parser.ParseSource([]byte(src))
	if diags.HasErrors() {
		t.Fatalf("parse failed:\n%s", diags.Error())
	}
	info, errs := types.Analyze(prog)
	if errs.HasErrors() {
		t.Fatalf("analysis failed:\n%s", errs.Error())
	}
	return codegen.Lower(prog, info)
}

func emitLLVM(t *testing.T, m *ir.Module) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	err := Emitter{}.Emit(&buf, m)
	return buf.String(), err
}

func TestIntegerFunction(t *testing.T) {
	src := `fn add(a: int, b: int) -> int:
    return a + b
let x = add(1, 2)
`
	out, err := emitLLVM(t, lower(t, src))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"@x = global i64 0",
		"define i64 @add(i64 %0, i64 %1)",
		"add i64",
		"call i64 @add(i64 1, i64 2)",
		"ret i64",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}
}

func TestIntWidensToFloat(t *testing.T) {
	src := `fn half(x: float) -> float:
    return x / 2
`
	out, err := emitLLVM(t, lower(t, src))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "sitofp i64 2 to double") || !strings.Contains(out, "fdiv double") {
		t.Fatalf("expected a widened float division:\n%s", out)
	}
}

func TestBranchesAndLoops(t *testing.T) {
	src := `fn count(n: int) -> int:
    var i = 0
    while i < n:
        if i == 3:
            break
        i += 1
    return i
`
	out, err := emitLLVM(t, lower(t, src))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"icmp slt i64", "icmp eq i64", "br i1", "alloca i64"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}
}

func TestUnsupportedConstructs(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"string", "let s = \"hi\"\n"},
		{"list", "let xs = [1, 2]\n"},
		{"async", "async fn f():\n    pass\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := emitLLVM(t, lower(t, tt.src))
			if !errors.Is(err, emit.ErrUnsupported) {
				t.Fatalf("expected ErrUnsupported, got %v", err)
			}
		})
	}
}
