package driver

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/gul-lang/gul-lang/internal/codegen"
	"github.com/gul-lang/gul-lang/internal/diag"
	"github.com/gul-lang/gul-lang/internal/ir"
)

func TestCheckReportsSemanticErrors(t *testing.T) {
	r, err := Check(context.Background(), "a.gul", []byte("print(missing)\n"))
	if err != nil {
		t.Fatal(err)
	}
	if r.Info == nil {
		t.Fatal("expected analysis to run")
	}
	if got := r.Diagnostics.WithCode(diag.CodeSemUndefinedName); len(got) != 1 {
		t.Fatalf("expected one undefined-name error, got:\n%s", r.Diagnostics.Error())
	}
	if r.Diagnostics[0].Span.Filename != "a.gul" {
		t.Fatalf("expected the filename on diagnostics, got %q", r.Diagnostics[0].Span.Filename)
	}
}

func TestCheckStopsAfterParseErrors(t *testing.T) {
	r, err := Check(context.Background(), "a.gul", []byte("let = 1\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !r.HasErrors() || r.Info != nil {
		t.Fatalf("expected parse errors and no analysis, got info=%v diags=%v", r.Info, r.Diagnostics)
	}
}

func TestBuildOptimizes(t *testing.T) {
	src := []byte(`fn f() -> int:
    let unused = 2 * 21
    return 1
let x = f()
`)
	r, err := Build(context.Background(), "a.gul", src)
	if err != nil {
		t.Fatal(err)
	}
	if r.HasErrors() || r.Module == nil {
		t.Fatalf("expected a module, got:\n%s", r.Diagnostics.Error())
	}
	if r.Module.Function(codegen.InitFunc) == nil {
		t.Fatalf("expected %s in:\n%s", codegen.InitFunc, r.Module)
	}
	for _, in := range r.Module.Function("f").Instrs {
		// Stores are kept, so the folded constant survives.
		if in.Op == ir.OpConst && in.Value.Int == 42 {
			return
		}
	}
	t.Fatalf("expected the folded constant 42 in:\n%s", r.Module)
}

func TestBuildWithoutOptimization(t *testing.T) {
	r, err := Build(context.Background(), "a.gul", []byte("let x = 2 * 21\n"), WithOptimize(false))
	if err != nil {
		t.Fatal(err)
	}
	var binops int
	for _, in := range r.Module.Function(codegen.InitFunc).Instrs {
		if in.Op == ir.OpBinOp {
			binops++
		}
	}
	if binops != 1 {
		t.Fatalf("expected the multiplication to be kept:\n%s", r.Module)
	}
}

func TestBuildSkipsLoweringOnErrors(t *testing.T) {
	r, err := Build(context.Background(), "a.gul", []byte("let x = 1\nx = 2\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !r.HasErrors() || r.Module != nil {
		t.Fatalf("expected errors and no module, got %v", r.Diagnostics)
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Build(ctx, "a.gul", []byte("let x = 1\n")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCheckFiles(t *testing.T) {
	dir := t.TempDir()
	write := func(name, src string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}
	paths := []string{
		write("ok.gul", "let x = 1\n"),
		write("bad.gul", "print(y)\n"),
		filepath.Join(dir, "missing.gul"),
		write("also_ok.gul", "fn f():\n    pass\n"),
	}

	results, err := CheckFiles(context.Background(), paths, WithWorkers(2))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected a not-exist error, got %v", err)
	}
	if len(results) != len(paths) {
		t.Fatalf("expected %d results, got %d", len(paths), len(results))
	}
	if results[0].HasErrors() || !results[1].HasErrors() || results[2] != nil || results[3].HasErrors() {
		t.Fatalf("unexpected results: %v", results)
	}
	for i, r := range results {
		if r != nil && r.Filename != paths[i] {
			t.Fatalf("result %d is for %s, want %s", i, r.Filename, paths[i])
		}
	}
}
