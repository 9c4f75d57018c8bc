package codegen

import (
	"slices"
	"strings"
	"testing"

	"github.com/gul-lang/gul-lang/internal/ir"
	"github.com/gul-lang/gul-lang/internal/parser"
	"github.com/gul-lang/gul-lang/internal/types"
)

func lower(t *testing.T, src string, opts ...Option) *ir.Module {
	t.Helper()
	prog, diags := parser.ParseSource([]byte(src))
	if diags.HasErrors() {
		t.Fatalf("parse failed:\n%s", diags.Error())
	}
	info, errs := types.Analyze(prog)
	if errs.HasErrors() {
		t.Fatalf("analysis failed:\n%s", errs.Error())
	}
	return Lower(prog, info, opts...)
}

func function(t *testing.T, m *ir.Module, name string) *ir.Function {
	t.Helper()
	fn := m.Function(name)
	if fn == nil {
		t.Fatalf("no function %q in:\n%s", name, m)
	}
	return fn
}

func callNames(fn *ir.Function) map[string]bool {
	names := make(map[string]bool)
	for _, in := range fn.Instrs {
		if in.Op == ir.OpCall {
			names[in.Name] = true
		}
	}
	return names
}

func storeNames(fn *ir.Function) []string {
	var names []string
	for _, in := range fn.Instrs {
		if in.Op == ir.OpStore {
			names = append(names, in.Name)
		}
	}
	return names
}

func TestConstantsFoldToSingleConst(t *testing.T) {
	m := lower(t, "let x = 2 + 3 * 4\n")
	fn := function(t, m, InitFunc)
	if len(fn.Instrs) != 3 {
		t.Fatalf("expected const, store, return; got:\n%s", fn)
	}
	c := fn.Instrs[0]
	if c.Op != ir.OpConst || c.Value == nil || c.Value.Int != 14 {
		t.Fatalf("expected const 14, got %s", c)
	}
	st := fn.Instrs[1]
	if st.Op != ir.OpStore || st.Name != "x" || !st.Global {
		t.Fatalf("expected a global store to x, got %s", st)
	}
	if len(m.Globals) != 1 || m.Globals[0].Name != "x" {
		t.Fatalf("expected global x, got %v", m.Globals)
	}
}

func TestFoldingDisabledKeepsOperators(t *testing.T) {
	m := lower(t, "let x = 2 + 3\n", WithFolding(false))
	fn := function(t, m, InitFunc)
	var binops int
	for _, in := range fn.Instrs {
		if in.Op == ir.OpBinOp {
			binops++
		}
	}
	if binops != 1 {
		t.Fatalf("expected one binop, got:\n%s", fn)
	}
}

func TestDivisionByZeroIsNotFolded(t *testing.T) {
	m := lower(t, "let x = 1 / 0\n")
	fn := function(t, m, InitFunc)
	if fn.Instrs[2].Op != ir.OpBinOp {
		t.Fatalf("expected the division to survive, got:\n%s", fn)
	}
}

func TestShadowedNamesAreSuffixed(t *testing.T) {
	src := `fn f():
    let x = 1
    if true:
        let x = 2
        print(x)
    print(x)
`
	fn := function(t, lower(t, src), "f")
	got := storeNames(fn)
	if len(got) != 2 || got[0] != "x" || got[1] != "x#1" {
		t.Fatalf("expected stores to x and x#1, got %v", got)
	}

	var loads []string
	for _, in := range fn.Instrs {
		if in.Op == ir.OpLoad {
			loads = append(loads, in.Name)
		}
	}
	if len(loads) != 2 || loads[0] != "x#1" || loads[1] != "x" {
		t.Fatalf("expected loads of x#1 then x, got %v", loads)
	}
}

func TestFunctionNames(t *testing.T) {
	src := `struct Point:
    x: float
    y: float
    fn norm(ref self) -> float:
        return (self.x ^ 2 + self.y ^ 2) ^ 0.5
fn outer() -> int:
    fn inner() -> int:
        return 1
    return inner()
let n = Point(3.0, 4.0).norm()
`
	m := lower(t, src)
	var names []string
	for _, fn := range m.Functions {
		names = append(names, fn.Name)
	}
	want := []string{InitFunc, "Point.norm", "outer", "outer.inner"}
	if len(names) != len(want) {
		t.Fatalf("expected functions %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected functions %v, got %v", want, names)
		}
	}

	if calls := callNames(function(t, m, "outer")); !calls["outer.inner"] {
		t.Fatalf("expected outer to call outer.inner, got %v", calls)
	}
	calls := callNames(function(t, m, InitFunc))
	if !calls["Point"] || !calls["Point.norm"] {
		t.Fatalf("expected constructor and method calls, got %v", calls)
	}
	if norm := function(t, m, "Point.norm"); len(norm.Params) != 1 || norm.Params[0].Name != "self" || norm.Return != "float" {
		t.Fatalf("unexpected method signature: %s", norm)
	}
}

// exitBlocks returns, for each block ending in an instruction accepted by
// exit, the calls the block makes.
func exitBlocks(fn *ir.Function, exit func(ir.Instr) bool) [][]string {
	var blocks [][]string
	calls := []string{}
	for _, in := range fn.Instrs {
		switch {
		case exit(in):
			blocks = append(blocks, calls)
			calls = []string{}
		case in.Op == ir.OpLabel:
			calls = []string{}
		case in.Op == ir.OpCall:
			calls = append(calls, in.Name)
		}
	}
	return blocks
}

func isReturn(in ir.Instr) bool { return in.Op == ir.OpReturn }

func jumpsTo(prefix string) func(ir.Instr) bool {
	return func(in ir.Instr) bool {
		return in.Op == ir.OpJump && strings.HasPrefix(in.Targets[0], prefix)
	}
}

func TestEarlyExitsLeaveTry(t *testing.T) {
	tests := []struct {
		name string
		body string
		exit func(ir.Instr) bool
		want []string
	}{
		{
			name: "return",
			body: "    try:\n        return 1\n    finally:\n        cleanup()\n",
			exit: isReturn,
			want: []string{"try.exit", "cleanup"},
		},
		{
			name: "break",
			body: "    loop:\n        try:\n            break\n        finally:\n            cleanup()\n",
			exit: jumpsTo("endloop."),
			want: []string{"try.exit", "cleanup"},
		},
		{
			name: "continue",
			body: "    var i = 0\n    while i < 3:\n        i += 1\n        try:\n            continue\n        finally:\n            cleanup()\n",
			exit: jumpsTo("while."),
			want: []string{"try.exit", "cleanup"},
		},
		{
			name: "return from catch",
			body: "    try:\n        throw \"x\"\n    catch err:\n        return 1\n    finally:\n        cleanup()\n",
			exit: isReturn,
			want: []string{"try.error", "cleanup"},
		},
		{
			name: "nested return",
			body: "    try:\n        try:\n            return 1\n        finally:\n            inner()\n    finally:\n        cleanup()\n",
			exit: isReturn,
			want: []string{"try.exit", "inner", "try.exit", "cleanup"},
		},
		{
			name: "break of an inner loop",
			body: "    try:\n        while true:\n            break\n    finally:\n        cleanup()\n",
			exit: jumpsTo("endwhile."),
			want: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := "fn cleanup():\n    pass\nfn inner():\n    pass\nfn f() -> int:\n" + tt.body + "    return 0\n"
			fn := function(t, lower(t, src), "f")
			got := exitBlocks(fn, tt.exit)
			found := slices.ContainsFunc(got, func(calls []string) bool {
				return slices.Equal(calls, tt.want)
			})
			if !found {
				t.Fatalf("expected an exit block calling %v, got %v in:\n%s", tt.want, got, fn)
			}
		})
	}
}

func TestReturnInFinallyWins(t *testing.T) {
	src := `fn f() -> int:
    try:
        return 1
    finally:
        return 2
`
	fn := function(t, lower(t, src), "f")
	if err := ir.VerifyFunction(fn); err != nil {
		t.Fatal(err)
	}
	if blocks := exitBlocks(fn, isReturn); len(blocks) == 0 || !slices.Equal(blocks[0], []string{"try.exit"}) {
		t.Fatalf("expected only try.exit before the first return, got %v in:\n%s", blocks, fn)
	}
	consts := make(map[ir.Slot]int64)
	for _, in := range fn.Instrs {
		switch {
		case in.Op == ir.OpConst:
			consts[in.Result] = in.Value.Int
		case in.Op == ir.OpReturn:
			if len(in.Args) != 1 || consts[in.Args[0]] != 2 {
				t.Fatalf("expected the first return to yield 2, got %s in:\n%s", in, fn)
			}
			return
		}
	}
	t.Fatalf("no return in:\n%s", fn)
}

func TestUnreachableStatementsAreSkipped(t *testing.T) {
	src := `fn f() -> int:
    return 1
    print(1)
`
	fn := function(t, lower(t, src), "f")
	if calls := callNames(fn); len(calls) != 0 {
		t.Fatalf("expected no calls, got:\n%s", fn)
	}
}

func TestImportsLowerToModulePaths(t *testing.T) {
	src := `import std.io as io, math
io.write(math.pi)
`
	m := lower(t, src)
	if len(m.Imports) != 2 || m.Imports[0] != (ir.Import{Path: "std.io", Alias: "io"}) || m.Imports[1].Alias != "math" {
		t.Fatalf("unexpected imports %v", m.Imports)
	}
	fn := function(t, m, InitFunc)
	if !callNames(fn)["io.write"] {
		t.Fatalf("expected a call to io.write, got:\n%s", fn)
	}
	var loaded bool
	for _, in := range fn.Instrs {
		if in.Op == ir.OpLoad && in.Name == "math.pi" && in.Global {
			loaded = true
		}
	}
	if !loaded {
		t.Fatalf("expected a load of @math.pi, got:\n%s", fn)
	}
}

func TestControlFlowVerifies(t *testing.T) {
	src := `var total = 0
fn classify(n: int) -> str:
    match n:
        0 => return "zero"
        x if x > 10:
            return "big"
        _ => pass
    return "other"
fn main():
    let xs = [1, 2, 3]
    for x in xs:
        if x == 2:
            continue
        total += x
    var i = 0
    while i < 10 and total > 0:
        i += 1
        if i > 5 or total == 3:
            break
    try:
        print(classify(i))
    catch err:
        print(err)
    finally:
        print("done")
    let pair = (1, "a")
    match pair:
        (n, s):
            print(s.upper())
        _ => pass
`
	m := lower(t, src)
	if err := ir.Verify(m); err != nil {
		t.Fatal(err)
	}

	main := function(t, m, "main")
	calls := callNames(main)
	for _, name := range []string{"iter", "iter.done", "iter.next", "try.enter", "try.exit", "try.error", "match.tuple", "str.upper", "classify"} {
		if !calls[name] {
			t.Errorf("expected a call to %s in:\n%s", name, main)
		}
	}

	var globalStore bool
	for _, in := range main.Instrs {
		if in.Op == ir.OpStore && in.Name == "total" && in.Global {
			globalStore = true
		}
	}
	if !globalStore {
		t.Fatalf("expected total += x to store the global, got:\n%s", main)
	}
}

func TestExternsAreRecorded(t *testing.T) {
	src := `extern rust {
    fn add(a: int, b: int) -> int { a + b }
}
let s = add(1, 2)
`
	m := lower(t, src)
	if len(m.Externs) != 1 {
		t.Fatalf("expected one extern block, got %v", m.Externs)
	}
	ext := m.Externs[0]
	if ext.Language != "rust" || len(ext.Functions) != 1 {
		t.Fatalf("unexpected extern %+v", ext)
	}
	f := ext.Functions[0]
	if f.Name != "add" || len(f.Params) != 2 || f.Return != "int" {
		t.Fatalf("unexpected extern function %+v", f)
	}
	if !callNames(function(t, m, InitFunc))["add"] {
		t.Fatal("expected a direct call to add")
	}
}
