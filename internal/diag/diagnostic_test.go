package diag_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/gul-lang/gul-lang/internal/diag"
)

func TestListErrIgnoresWarnings(t *testing.T) {
	var l diag.List
	l.Add(diag.Diagnostic{Severity: diag.SeverityWarning, Code: diag.CodeSemUnreachableCode, Message: "unreachable"})
	if err := l.Err(); err != nil {
		t.Fatalf("expected nil error for warnings only, got %v", err)
	}

	l.Add(diag.Diagnostic{Severity: diag.SeverityError, Code: diag.CodeSemUndefinedName, Message: "undefined: x"})
	err := l.Err()
	if err == nil {
		t.Fatalf("expected error once an error diagnostic is present")
	}
	var got diag.List
	if !errors.As(err, &got) {
		t.Fatalf("expected error to unwrap to diag.List, got %T", err)
	}
	if len(got.Errors()) != 1 || len(got.Warnings()) != 1 {
		t.Fatalf("expected 1 error and 1 warning, got %d and %d", len(got.Errors()), len(got.Warnings()))
	}
}

func TestListSortByPosition(t *testing.T) {
	l := diag.List{
		{Message: "c", Span: diag.Span{Line: 3, Column: 1}},
		{Message: "a", Span: diag.Span{Line: 1, Column: 5}},
		{Message: "b", Span: diag.Span{Line: 1, Column: 9}},
	}
	l.Sort()
	var order []string
	for _, d := range l {
		order = append(order, d.Message)
	}
	if strings.Join(order, "") != "abc" {
		t.Fatalf("expected order abc, got %v", order)
	}
}

func TestFormatterSnippet(t *testing.T) {
	var buf bytes.Buffer
	f := diag.NewFormatter(&buf)
	f.AddSource("main.gul", "let x = 1\nprint(y)\n")

	f.Format(diag.Diagnostic{
		Stage:    diag.StageSemantic,
		Severity: diag.SeverityError,
		Code:     diag.CodeSemUndefinedName,
		Message:  "undefined name `y`",
		Span:     diag.Span{Filename: "main.gul", Line: 2, Column: 7, Start: 16, End: 17},
		Help:     "did you mean `x`?",
	})

	out := buf.String()
	for _, want := range []string{
		"error[SEM_UNDEFINED_NAME]: undefined name `y`",
		"--> main.gul:2:7",
		"2 | print(y)",
		"      ^",
		"help: did you mean `x`?",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestFormatterFallsBackWithoutSource(t *testing.T) {
	var buf bytes.Buffer
	f := diag.NewFormatter(&buf)
	f.Format(diag.Diagnostic{Message: "boom", Span: diag.Span{Line: 1, Column: 1}})
	if !strings.HasPrefix(buf.String(), "error: boom\n  --> 1:1") {
		t.Fatalf("unexpected fallback output: %q", buf.String())
	}
}

func TestFormatterLabels(t *testing.T) {
	var buf bytes.Buffer
	f := diag.NewFormatter(&buf)
	f.AddSource("m.gul", "let a = [1]\nlet b = move a\nprint(a)\n")

	d := diag.Diagnostic{Code: diag.CodeSemUseAfterMove, Message: "use of moved value `a`"}.
		WithLabel(diag.Span{Filename: "m.gul", Line: 3, Column: 7, Start: 33, End: 34}, "used here").
		WithSecondary(diag.Span{Filename: "m.gul", Line: 2, Column: 9, Start: 20, End: 26}, "moved here")
	f.Format(d)

	out := buf.String()
	for _, want := range []string{
		"--> m.gul:3:7",
		"|         ~~~~~~ moved here",
		"|       ^ used here",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in:\n%s", want, out)
		}
	}
	if !d.IsError() || !strings.Contains(d.Error(), "error[SEM_USE_AFTER_MOVE]") {
		t.Fatalf("unset severity should be an error: %s", d.Error())
	}
}
