package types

import (
	"strings"
	"testing"

	"github.com/gul-lang/gul-lang/internal/ast"
	"github.com/gul-lang/gul-lang/internal/diag"
	"github.com/gul-lang/gul-lang/internal/parser"
)

func analyze(t *testing.T, src string) (*ast.Program, *Info, diag.List) {
	t.Helper()
	prog, diags := parser.ParseSource([]byte(src))
	if diags.HasErrors() {
		t.Fatalf("parse failed:\n%s", diags.Error())
	}
	info, errs := Analyze(prog)
	return prog, info, errs
}

func assertClean(t *testing.T, errs diag.List) {
	t.Helper()
	if errs.HasErrors() {
		t.Fatalf("expected no errors, got:\n%s", errs.Error())
	}
}

func TestUseAfterMoveReportedOnce(t *testing.T) {
	src := `fn consume(x): pass
let own_val = [1, 2]
let a = own_val
let b = move a
consume(a)
`
	_, _, errs := analyze(t, src)
	if len(errs.Errors()) != 1 {
		t.Fatalf("expected exactly one error, got:\n%s", errs.Error())
	}
	d := errs.Errors()[0]
	if d.Code != diag.CodeSemUseAfterMove {
		t.Fatalf("expected %s, got %s", diag.CodeSemUseAfterMove, d.Code)
	}
	if d.Span.Line != 5 {
		t.Errorf("expected the use on line 5, got %d", d.Span.Line)
	}
	if len(d.Labels) != 2 || d.Labels[1].Span.Line != 4 {
		t.Errorf("expected a secondary label at the move on line 4, got %+v", d.Labels)
	}
}

func TestUseAfterMoveEveryUseSite(t *testing.T) {
	src := `let a = [1]
let b = move a
print(a)
print(a)
`
	_, _, errs := analyze(t, src)
	if got := len(errs.WithCode(diag.CodeSemUseAfterMove)); got != 2 {
		t.Fatalf("expected 2 use-after-move errors, got %d:\n%s", got, errs.Error())
	}
}

func TestMoveParameterConsumesArgument(t *testing.T) {
	src := `fn take(move v): pass
let xs = [1]
take(xs)
print(xs)
`
	_, _, errs := analyze(t, src)
	if got := len(errs.WithCode(diag.CodeSemUseAfterMove)); got != 1 {
		t.Fatalf("expected 1 use-after-move error, got %d:\n%s", got, errs.Error())
	}
}

func TestRefAndCopyLeaveStateAlone(t *testing.T) {
	src := `fn show(ref v): pass
let xs = [1]
show(ref xs)
let ys = copy xs
print(xs)
`
	_, _, errs := analyze(t, src)
	assertClean(t, errs)
}

func TestBranchesCheckAgainstPreBranchState(t *testing.T) {
	src := `var a = [1]
if true:
    let b = move a
else:
    print(a)
print(a)
`
	_, _, errs := analyze(t, src)
	moves := errs.WithCode(diag.CodeSemUseAfterMove)
	if len(moves) != 1 {
		t.Fatalf("expected 1 use-after-move error, got:\n%s", errs.Error())
	}
	if moves[0].Span.Line != 6 {
		t.Fatalf("expected the error after the branch, got line %d", moves[0].Span.Line)
	}
}

func TestAwaitOutsideAsync(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want int
	}{
		{"sync caller", "async fn g(): return 1\nfn f(): return await g()\n", 1},
		{"async caller", "async fn g(): return 1\nasync fn f(): return await g()\n", 0},
		{"top level", "async fn g(): return 1\nlet v = await g()\n", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, errs := analyze(t, tt.src)
			if got := len(errs.WithCode(diag.CodeSemAwaitOutsideAsync)); got != tt.want {
				t.Fatalf("expected %d await errors, got %d:\n%s", tt.want, got, errs.Error())
			}
		})
	}
}

func TestShadowingResolvesInnermost(t *testing.T) {
	src := `let x = 1
if true:
    let x = 2
    assert x == 2
assert x == 1
`
	prog, info, errs := analyze(t, src)
	assertClean(t, errs)

	outer := info.Defs[prog.Stmts[0]]
	ifStmt := prog.Stmts[1].(*ast.IfStmt)
	inner := info.Defs[ifStmt.Then.Stmts[0]]
	if outer == nil || inner == nil || outer == inner {
		t.Fatalf("expected two distinct definitions, got %v and %v", outer, inner)
	}

	useOf := func(s ast.Stmt) *Symbol {
		cond := s.(*ast.AssertStmt).Cond.(*ast.BinaryExpr)
		return info.Uses[cond.Left.(*ast.Ident)]
	}
	if got := useOf(ifStmt.Then.Stmts[1]); got != inner {
		t.Errorf("inner assert resolved to %+v", got)
	}
	if got := useOf(prog.Stmts[2]); got != outer {
		t.Errorf("outer assert resolved to %+v", got)
	}
	if outer.ScopeID != ModuleScopeID {
		t.Errorf("expected module scope, got %d", outer.ScopeID)
	}
}

func TestUnreachableCode(t *testing.T) {
	src := `fn f():
    return 1
    print(1)
    print(2)
`
	prog, info, errs := analyze(t, src)
	assertClean(t, errs)
	if got := len(errs.WithCode(diag.CodeSemUnreachableCode)); got != 1 {
		t.Fatalf("expected one unreachable warning, got %d", got)
	}
	body := prog.Stmts[0].(*ast.FnDecl).Body.Stmts
	if info.Unreachable[body[0]] || !info.Unreachable[body[1]] || !info.Unreachable[body[2]] {
		t.Fatalf("unexpected unreachable marks: %v", info.Unreachable)
	}
}

func TestDiagnosticCodes(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code diag.Code
	}{
		{"break outside loop", "break\n", diag.CodeSemBreakOutsideLoop},
		{"continue in nested fn", "while true:\n    fn f():\n        continue\n", diag.CodeSemBreakOutsideLoop},
		{"assign to let", "let x = 1\nx = 2\n", diag.CodeSemAssignImmutable},
		{"assign to const", "const x = 1\nx += 2\n", diag.CodeSemAssignImmutable},
		{"annotated mismatch", "let x: int = \"a\"\n", diag.CodeSemTypeMismatch},
		{"non-bool condition", "if 1:\n    pass\n", diag.CodeSemTypeMismatch},
		{"bad operands", "let y = 1 + \"a\"\n", diag.CodeSemTypeMismatch},
		{"not iterable", "for x in 5:\n    pass\n", diag.CodeSemTypeMismatch},
		{"return type", "fn f() -> int:\n    return \"s\"\n", diag.CodeSemTypeMismatch},
		{"too few args", "fn f(a, b):\n    pass\nf(1)\n", diag.CodeSemArityMismatch},
		{"too many args", "print(len(1, 2))\n", diag.CodeSemArityMismatch},
		{"not callable", "let n = 1\nn(2)\n", diag.CodeSemNotCallable},
		{"unknown field", "struct P:\n    x: int\nlet p = P(1)\nprint(p.y)\n", diag.CodeSemUnknownField},
		{"unknown method", "let s = \"a\"\nprint(s.reverse())\n", diag.CodeSemUnknownField},
		{"redeclared fn", "fn f():\n    pass\nfn f():\n    pass\n", diag.CodeSemRedeclared},
		{"undefined type", "let x: Foo = 1\n", diag.CodeSemUndefinedName},
		{"undefined name", "print(y)\n", diag.CodeSemUndefinedName},
		{"captured local", "fn outer():\n    let x = 41\n    fn inner() -> int:\n        return x + 1\n", diag.CodeSemCapturedLocal},
		{"captured param", "fn outer(n: int):\n    fn inner():\n        print(n)\n", diag.CodeSemCapturedLocal},
		{"assigned capture", "fn outer():\n    var x = 1\n    fn inner():\n        x = 2\n", diag.CodeSemCapturedLocal},
		{"captured block local", "if true:\n    let x = 1\n    fn f():\n        print(x)\n", diag.CodeSemCapturedLocal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, errs := analyze(t, tt.src)
			if got := len(errs.WithCode(tt.code)); got != 1 {
				t.Fatalf("expected one %s, got %d:\n%s", tt.code, got, errs.Error())
			}
		})
	}
}

func TestUndefinedNameIsPoisoned(t *testing.T) {
	src := `let count = 1
print(cout)
print(cout)
let z = cout + 1
print(z)
`
	_, _, errs := analyze(t, src)
	if len(errs.Errors()) != 1 {
		t.Fatalf("expected exactly one error, got:\n%s", errs.Error())
	}
	d := errs.Errors()[0]
	if d.Code != diag.CodeSemUndefinedName || !strings.Contains(d.Help, "`count`") {
		t.Fatalf("expected an undefined-name error suggesting count, got %+v", d)
	}
}

func TestSuggestionsSkipFailedLookups(t *testing.T) {
	tests := []struct {
		src  string
		want []string
	}{
		{"print(totl)\nprint(tota)\n", []string{"", ""}},
		{"prnt(1)\n", []string{"`print`"}},
		{"let total = missing\nprint(totl)\n", []string{"", "`total`"}},
	}
	for _, tt := range tests {
		_, _, errs := analyze(t, tt.src)
		got := errs.WithCode(diag.CodeSemUndefinedName)
		if len(got) != len(tt.want) {
			t.Fatalf("%q: expected %d undefined names, got:\n%s", tt.src, len(tt.want), errs.Error())
		}
		for i, want := range tt.want {
			if want == "" && got[i].Help != "" {
				t.Errorf("%q: unexpected suggestion %q", tt.src, got[i].Help)
			}
			if want != "" && !strings.Contains(got[i].Help, want) {
				t.Errorf("%q: expected a suggestion of %s, got %q", tt.src, want, got[i].Help)
			}
		}
	}
}

func TestFunctionsShareOnlyModuleBindings(t *testing.T) {
	src := `let base = 1
fn outer(n: int) -> int:
    @global let seen = 0
    fn inner(m: int) -> int:
        let local = m + base + seen
        return helper(local)
    fn helper(k: int) -> int:
        return k
    return inner(n)
`
	_, _, errs := analyze(t, src)
	assertClean(t, errs)
}

func TestCapturedLocalPointsAtDeclaration(t *testing.T) {
	src := "fn outer():\n    let x = 41\n    fn inner() -> int:\n        return x + 1\n"
	_, _, errs := analyze(t, src)
	got := errs.WithCode(diag.CodeSemCapturedLocal)
	if len(got) != 1 {
		t.Fatalf("expected one capture error, got:\n%s", errs.Error())
	}
	d := got[0]
	if d.Span.Line != 4 || len(d.Labels) != 2 || !d.Labels[1].Secondary || d.Labels[1].Span.Line != 2 {
		t.Fatalf("unexpected capture diagnostic %+v", d)
	}
}

func TestUnknownLanguageWarns(t *testing.T) {
	src := "extern cobol {\n    fn add(a: int, b: int) -> int\n}\nlet r = add(1, 2)\n"
	_, _, errs := analyze(t, src)
	assertClean(t, errs)
	if got := len(errs.WithCode(diag.CodeSemUnknownLanguage)); got != 1 {
		t.Fatalf("expected one unknown-language warning, got:\n%s", errs.Error())
	}
}

func TestWithLanguages(t *testing.T) {
	prog, diags := parser.ParseSource([]byte("extern cobol {\n    x\n}\n"))
	if diags.HasErrors() {
		t.Fatalf("parse failed:\n%s", diags.Error())
	}
	_, errs := Analyze(prog, WithLanguages("COBOL"))
	if len(errs) != 0 {
		t.Fatalf("expected no diagnostics, got:\n%s", errs.Error())
	}
}

func TestInferredTypes(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"1 + 2.0", "float"},
		{"7 / 2", "int"},
		{"2 ^ 3", "int"},
		{`"a" + "b"`, "str"},
		{"[1, 2.5]", "list[float]"},
		{`[1, "a"]`, "list[any]"},
		{"[]", "list[any]"},
		{`{"k": 1}`, "dict[str, int]"},
		{`(1, "a")`, "(int, str)"},
		{"{1, 2}", "set[int]"},
		{"@mean([1, 2])", "float"},
		{"@sum([1, 2])", "int"},
		{"@int(\"3\")", "int"},
		{"range(3)", "list[int]"},
		{"1 < 2 and true", "bool"},
		{"not (1 == 2)", "bool"},
		{"9.8 m/s^2", "float"},
		{`f"{1 + 1}"`, "str"},
		{`"abc".upper()`, "str"},
		{`"a b".split()`, "list[str]"},
		{`{"k": 1}.keys()`, "list[str]"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			prog, info, errs := analyze(t, "let v = "+tt.expr+"\n")
			assertClean(t, errs)
			init := prog.Stmts[0].(*ast.VarDecl).Init
			if got := info.TypeOf(init).String(); got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestStructConstructorAndMethod(t *testing.T) {
	src := `struct Point:
    x: float
    y: float
    fn norm(ref self) -> float:
        return (self.x ^ 2 + self.y ^ 2) ^ 0.5
let p = Point(3, 4.0)
let n = p.norm()
let px = p.x
`
	prog, info, errs := analyze(t, src)
	assertClean(t, errs)
	if got := info.TypeOf(prog.Stmts[2].(*ast.VarDecl).Init).String(); got != "float" {
		t.Fatalf("expected norm() to be float, got %s", got)
	}
	if _, ok := info.Structs["Point"]; !ok {
		t.Fatal("expected Point in the struct table")
	}
}

func TestIndexCallOnFunction(t *testing.T) {
	src := `fn sq(x: int) -> int:
    return x * x
let y = sq[3]
let xs = [1, 2]
let first = xs[0]
`
	prog, info, errs := analyze(t, src)
	assertClean(t, errs)
	call := prog.Stmts[1].(*ast.VarDecl).Init.(*ast.IndexExpr)
	index := prog.Stmts[3].(*ast.VarDecl).Init.(*ast.IndexExpr)
	if !info.IndexCalls[call] || info.IndexCalls[index] {
		t.Fatalf("unexpected index calls: %v", info.IndexCalls)
	}
	if got := info.TypeOf(call).String(); got != "int" {
		t.Fatalf("expected int, got %s", got)
	}
}

func TestForwardReferences(t *testing.T) {
	src := `fn main():
    let s = Stack([])
    helper(s)
fn helper(s: Stack):
    pass
struct Stack:
    items: list[int]
`
	_, _, errs := analyze(t, src)
	assertClean(t, errs)
}

func TestMatchPatternsBind(t *testing.T) {
	src := `let pair = (1, "a")
match pair:
    (n, s):
        let m = n + 1
        let u = s.upper()
    _ => pass
`
	_, _, errs := analyze(t, src)
	assertClean(t, errs)
}

func TestGlobalDeclarationsOutliveFunction(t *testing.T) {
	src := `fn init():
    @global let counter = 0
fn bump():
    print(counter)
`
	_, _, errs := analyze(t, src)
	assertClean(t, errs)
}

func TestImportsBindModules(t *testing.T) {
	src := `import std.io as io, math
io.write(math.pi)
`
	_, _, errs := analyze(t, src)
	assertClean(t, errs)
}
