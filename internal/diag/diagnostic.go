// Package diag holds the diagnostics every pipeline stage reports and
// renders them for terminals.
package diag

import "fmt"

// Stage is the pipeline phase a diagnostic comes from.
type Stage string

const (
	StageLexer    Stage = "lexer"
	StageParser   Stage = "parser"
	StageSemantic Stage = "semantic"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityNote    Severity = "note"
)

// Code is the stable machine-readable name of a diagnostic.
type Code string

// Lexer codes.
const (
	CodeLexerInvalidEncoding          Code = "LEXER_INVALID_ENCODING"
	CodeLexerBadIndent                Code = "LEXER_BAD_INDENT"
	CodeLexerUnterminatedString       Code = "LEXER_UNTERMINATED_STRING"
	CodeLexerUnterminatedBlockComment Code = "LEXER_UNTERMINATED_BLOCK_COMMENT"
	CodeLexerUnterminatedForeign      Code = "LEXER_UNTERMINATED_FOREIGN"
	CodeLexerIllegalRune              Code = "LEXER_ILLEGAL_RUNE"
)

// Parser codes.
const (
	CodeParseBracketMismatch   Code = "PARSE_BRACKET_MISMATCH"
	CodeParseUnexpectedToken   Code = "PARSE_UNEXPECTED_TOKEN"
	CodeParseNestingTooDeep    Code = "PARSE_NESTING_TOO_DEEP"
	CodeParseInvalidAnnotation Code = "PARSE_INVALID_ANNOTATION"
	CodeParseExternSignature   Code = "PARSE_EXTERN_SIGNATURE"
)

// Semantic codes.
const (
	CodeSemUndefinedName     Code = "SEM_UNDEFINED_NAME"
	CodeSemTypeMismatch      Code = "SEM_TYPE_MISMATCH"
	CodeSemArityMismatch     Code = "SEM_ARITY_MISMATCH"
	CodeSemUseAfterMove      Code = "SEM_USE_AFTER_MOVE"
	CodeSemAwaitOutsideAsync Code = "SEM_AWAIT_OUTSIDE_ASYNC"
	CodeSemUnreachableCode   Code = "SEM_UNREACHABLE_CODE"
	CodeSemAssignImmutable   Code = "SEM_ASSIGN_IMMUTABLE"
	CodeSemBreakOutsideLoop  Code = "SEM_BREAK_OUTSIDE_LOOP"
	CodeSemNotCallable       Code = "SEM_NOT_CALLABLE"
	CodeSemUnknownField      Code = "SEM_UNKNOWN_FIELD"
	CodeSemRedeclared        Code = "SEM_REDECLARED"
	CodeSemUnknownLanguage   Code = "SEM_UNKNOWN_LANGUAGE"
	CodeSemCapturedLocal     Code = "SEM_CAPTURED_LOCAL"
	CodeSemInternal          Code = "SEM_INTERNAL"
)

// Span is a source range. Line and Column are 1-based; Start and End are
// rune offsets, End exclusive.
type Span struct {
	Filename string
	Line     int
	Column   int
	Start    int
	End      int
}

func (s Span) String() string {
	if s.Filename == "" {
		return fmt.Sprintf("%d:%d", s.Line, s.Column)
	}
	return fmt.Sprintf("%s:%d:%d", s.Filename, s.Line, s.Column)
}

// Known reports whether the span points into a file.
func (s Span) Known() bool {
	return s.Line > 0 && s.Column > 0
}

// width is the number of columns to underline, at least one.
func (s Span) width() int {
	return max(1, s.End-s.Start)
}

// Label attaches text to a span of a diagnostic. Secondary labels point at
// related code rather than the offending code.
type Label struct {
	Span      Span
	Text      string
	Secondary bool
}

type Diagnostic struct {
	Stage    Stage
	Severity Severity
	Code     Code
	Message  string
	Span     Span
	Labels   []Label
	Help     string
}

// Error renders the diagnostic on one line.
func (d Diagnostic) Error() string {
	head := string(d.severity())
	if d.Code != "" {
		head += "[" + string(d.Code) + "]"
	}
	return fmt.Sprintf("%s: %s: %s", d.Span, head, d.Message)
}

// IsError reports whether the diagnostic fails the compilation. An unset
// severity counts as an error.
func (d Diagnostic) IsError() bool {
	return d.severity() == SeverityError
}

func (d Diagnostic) severity() Severity {
	if d.Severity == "" {
		return SeverityError
	}
	return d.Severity
}

// WithLabel adds a primary label.
func (d Diagnostic) WithLabel(span Span, text string) Diagnostic {
	d.Labels = append(d.Labels, Label{Span: span, Text: text})
	return d
}

// WithSecondary adds a label pointing at related code.
func (d Diagnostic) WithSecondary(span Span, text string) Diagnostic {
	d.Labels = append(d.Labels, Label{Span: span, Text: text, Secondary: true})
	return d
}

func (d Diagnostic) WithHelp(help string) Diagnostic {
	d.Help = help
	return d
}
