package lexer

import (
	"testing"
)

func tokenTypes(toks []Token) []TokenType {
	out := make([]TokenType, len(toks))
	for i, tok := range toks {
		out[i] = tok.Type
	}
	return out
}

func assertTypes(t *testing.T, toks []Token, want []TokenType) {
	t.Helper()
	got := tokenTypes(toks)
	if len(got) != len(want) {
		t.Fatalf("expected %d tokens %v, got %d tokens %v", len(want), want, len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("tokens[%d] - expected %q, got %q (all: %v)", i, want[i], got[i], got)
		}
	}
}

func hasErrorKind(errs []LexerError, kind LexerErrorKind) bool {
	for _, e := range errs {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

func TestTokenize_Basic(t *testing.T) {
	input := `let x = 10
if x > 5:
    print(x)
print("done")
`
	l := New([]byte(input))
	toks := l.Tokenize()
	if len(l.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", l.Errors)
	}

	assertTypes(t, toks, []TokenType{
		LET, IDENT, ASSIGN, INT, NEWLINE,
		IF, IDENT, GT, INT, COLON, NEWLINE,
		INDENT, IDENT, OPEN, IDENT, CLOSE, NEWLINE,
		DEDENT, IDENT, OPEN, STRING, CLOSE, NEWLINE,
		EOF,
	})
	if toks[20].Value != "done" {
		t.Fatalf("expected string value %q, got %q", "done", toks[20].Value)
	}
}

func TestTokenize_DedentsClosedAtEOF(t *testing.T) {
	toks, errs := Tokenize([]byte("fn f():\n    if x:\n        y"))
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	n := len(toks)
	assertTypes(t, toks[n-5:], []TokenType{IDENT, NEWLINE, DEDENT, DEDENT, EOF})
}

func TestTokenize_BadIndent(t *testing.T) {
	input := "if a:\n        b\n    c\n"
	l := New([]byte(input))
	toks := l.Tokenize()

	if len(l.Errors) != 1 || !hasErrorKind(l.Errors, ErrBadIndent) {
		t.Fatalf("expected a single BadIndent, got %v", l.Errors)
	}

	indents, dedents := 0, 0
	for _, tok := range toks {
		switch tok.Type {
		case INDENT:
			indents++
		case DEDENT:
			dedents++
		}
	}
	if indents != dedents {
		t.Fatalf("stream must stay balanced, got %d indents and %d dedents", indents, dedents)
	}
}

func TestTokenize_IndentationSuspendedInBrackets(t *testing.T) {
	input := "let xs = [1,\n    2,\n  3]\nprint(xs)\n"
	toks, errs := Tokenize([]byte(input))
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	newlines := 0
	for _, tok := range toks {
		switch tok.Type {
		case INDENT, DEDENT:
			t.Fatalf("unexpected %s inside brackets", tok.Type)
		case NEWLINE:
			newlines++
		}
	}
	if newlines != 2 {
		t.Fatalf("expected 2 newlines, got %d", newlines)
	}
}

func TestTokenize_BracketKinds(t *testing.T) {
	toks, _ := Tokenize([]byte("f(a]{}"))
	want := []BracketInfo{
		{Kind: Paren, Side: Open},
		{Kind: Bracket, Side: Close},
		{Kind: Brace, Side: Open},
		{Kind: Brace, Side: Close},
	}
	var got []BracketInfo
	for _, tok := range toks {
		if tok.Type == OPEN || tok.Type == CLOSE {
			got = append(got, tok.Bracket)
		}
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d bracket tokens, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("bracket[%d] - expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestTokenize_Numbers(t *testing.T) {
	tests := []struct {
		input string
		types []TokenType
		value string
		unit  string
	}{
		{"9.8m/s^2", []TokenType{UNIT_FLOAT}, "9.8", "m/s^2"},
		{"9.8 m/s^2", []TokenType{UNIT_FLOAT}, "9.8", "m/s^2"},
		{"5 kg", []TokenType{UNIT_FLOAT}, "5", "kg"},
		{"10ms", []TokenType{UNIT_FLOAT}, "10", "ms"},
		{"5 meters_traveled", []TokenType{INT, IDENT}, "5", ""},
		{"5 meters", []TokenType{INT, IDENT}, "5", ""},
		{"5  m", []TokenType{INT, IDENT}, "5", ""},
		{"5 and x", []TokenType{INT, AND, IDENT}, "5", ""},
		{"1_000", []TokenType{INT}, "1000", ""},
		{"0xFF", []TokenType{INT}, "0xFF", ""},
		{"2.5e3", []TokenType{FLOAT}, "2.5e3", ""},
		{"3.25", []TokenType{FLOAT}, "3.25", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			toks, errs := Tokenize([]byte(tt.input))
			if len(errs) != 0 {
				t.Fatalf("unexpected errors: %v", errs)
			}
			want := append(append([]TokenType{}, tt.types...), NEWLINE, EOF)
			assertTypes(t, toks, want)
			if toks[0].Value != tt.value {
				t.Fatalf("expected value %q, got %q", tt.value, toks[0].Value)
			}
			if toks[0].Unit != tt.unit {
				t.Fatalf("expected unit %q, got %q", tt.unit, toks[0].Unit)
			}
		})
	}
}

func TestTokenize_Comments(t *testing.T) {
	input := "x # trailing\n#[ block #[ nested ]# still ]#\ny\n"
	toks, errs := Tokenize([]byte(input))
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	assertTypes(t, toks, []TokenType{IDENT, NEWLINE, IDENT, NEWLINE, EOF})
}

func TestTokenize_UnterminatedComment(t *testing.T) {
	l := New([]byte("x\n#[ never closed\n"))
	l.Tokenize()
	if !hasErrorKind(l.Errors, ErrUnterminatedBlockComment) {
		t.Fatalf("expected unterminated comment error, got %v", l.Errors)
	}
}

func TestTokenize_Strings(t *testing.T) {
	toks, errs := Tokenize([]byte(`"a\tb\"c"`))
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if toks[0].Type != STRING || toks[0].Value != "a\tb\"c" {
		t.Fatalf("unexpected string token %+v", toks[0])
	}

	l := New([]byte(`"abc`))
	l.Tokenize()
	if !hasErrorKind(l.Errors, ErrUnterminatedString) {
		t.Fatalf("expected unterminated string error, got %v", l.Errors)
	}
}

func TestTokenize_Template(t *testing.T) {
	tests := []struct {
		input string
		body  string
	}{
		{`f"x = {x + 1}!"`, "x = {x + 1}!"},
		{`f"{d["k"]}"`, `{d["k"]}`},
		{`f"{{literal}}"`, "{{literal}}"},
	}
	for _, tt := range tests {
		toks, errs := Tokenize([]byte(tt.input))
		if len(errs) != 0 {
			t.Fatalf("%s: unexpected errors: %v", tt.input, errs)
		}
		if toks[0].Type != TEMPLATE {
			t.Fatalf("%s: expected TEMPLATE, got %s", tt.input, toks[0].Type)
		}
		if toks[0].Value != tt.body {
			t.Fatalf("%s: expected body %q, got %q", tt.input, tt.body, toks[0].Value)
		}
	}
}

func TestTokenize_ExternBlockIsOpaque(t *testing.T) {
	input := "extern rust {\n    fn add(a: int) -> int { a + b }\n}\nlet y = 1\n"
	toks, errs := Tokenize([]byte(input))
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	assertTypes(t, toks, []TokenType{
		EXTERN, IDENT, FOREIGN, NEWLINE,
		LET, IDENT, ASSIGN, INT, NEWLINE,
		EOF,
	})
	if want := "\n    fn add(a: int) -> int { a + b }\n"; toks[2].Value != want {
		t.Fatalf("expected foreign body %q, got %q", want, toks[2].Value)
	}
}

func TestTokenize_IllegalRuneContinues(t *testing.T) {
	l := New([]byte("let $x = 1"))
	toks := l.Tokenize()
	if !hasErrorKind(l.Errors, ErrIllegalRune) {
		t.Fatalf("expected illegal rune error, got %v", l.Errors)
	}
	assertTypes(t, toks, []TokenType{LET, ILLEGAL, IDENT, ASSIGN, INT, NEWLINE, EOF})
}

func TestTokenize_InvalidEncoding(t *testing.T) {
	toks, errs := Tokenize([]byte{'a', 0xff})
	if len(errs) != 1 {
		t.Fatalf("expected exactly one error, got %v", errs)
	}
	if toks[len(toks)-1].Type != EOF || len(toks) != 1 {
		t.Fatalf("expected only EOF, got %v", tokenTypes(toks))
	}
	l := New([]byte{'a', 0xff})
	if !hasErrorKind(l.Errors, ErrInvalidEncoding) {
		t.Fatalf("expected InvalidEncoding, got %v", l.Errors)
	}
}

func TestTokenize_Aliases(t *testing.T) {
	toks, _ := Tokenize([]byte("use a\nmut b\nborrow kept def"))
	assertTypes(t, toks, []TokenType{
		IMPORT, IDENT, NEWLINE,
		VAR, IDENT, NEWLINE,
		REF, COPY, FN, NEWLINE,
		EOF,
	})
	if toks[0].Raw != "use" {
		t.Fatalf("alias must keep its raw spelling, got %q", toks[0].Raw)
	}
}

func TestTokenize_Spans(t *testing.T) {
	toks, _ := Tokenize([]byte("ab = cd\nef"), WithFilename("main.gul"))
	cd := toks[2]
	if cd.Span != (Span{Filename: "main.gul", Line: 1, Column: 6, Start: 5, End: 7}) {
		t.Fatalf("unexpected span for cd: %+v", cd.Span)
	}
	ef := toks[4]
	if ef.Span != (Span{Filename: "main.gul", Line: 2, Column: 1, Start: 8, End: 10}) {
		t.Fatalf("unexpected span for ef: %+v", ef.Span)
	}
}

func TestTokenize_WithPosition(t *testing.T) {
	toks, _ := Tokenize([]byte("x+y"), WithPosition(3, 10, 40))
	y := toks[2]
	if y.Span.Line != 3 || y.Span.Column != 12 || y.Span.Start != 42 {
		t.Fatalf("unexpected shifted span %+v", y.Span)
	}
}
