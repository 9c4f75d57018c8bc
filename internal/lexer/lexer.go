package lexer

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gul-lang/gul-lang/internal/diag"
)

// tabWidth is the indentation width of a tab character.
const tabWidth = 4

type LexerErrorKind int

const (
	ErrInvalidEncoding LexerErrorKind = iota
	ErrBadIndent
	ErrUnterminatedString
	ErrUnterminatedBlockComment
	ErrUnterminatedForeign
	ErrIllegalRune
)

type LexerError struct {
	Kind    LexerErrorKind
	Message string
	Span    Span
}

func (e LexerError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Span.Line, e.Span.Column, e.Message)
}

func (k LexerErrorKind) diagnosticCode() diag.Code {
	switch k {
	case ErrInvalidEncoding:
		return diag.CodeLexerInvalidEncoding
	case ErrBadIndent:
		return diag.CodeLexerBadIndent
	case ErrUnterminatedString:
		return diag.CodeLexerUnterminatedString
	case ErrUnterminatedBlockComment:
		return diag.CodeLexerUnterminatedBlockComment
	case ErrUnterminatedForeign:
		return diag.CodeLexerUnterminatedForeign
	case ErrIllegalRune:
		return diag.CodeLexerIllegalRune
	default:
		return diag.Code("LEXER_UNKNOWN_ERROR")
	}
}

// ToDiagnostic converts a lexer error into a shared diagnostic structure.
func (e LexerError) ToDiagnostic() diag.Diagnostic {
	return diag.Diagnostic{
		Stage:    diag.StageLexer,
		Severity: diag.SeverityError,
		Code:     e.Kind.diagnosticCode(),
		Message:  e.Message,
		Span: diag.Span{
			Filename: e.Span.Filename,
			Line:     e.Span.Line,
			Column:   e.Span.Column,
			Start:    e.Span.Start,
			End:      e.Span.End,
		},
	}
}

// Option configures a Lexer.
type Option func(*Lexer)

// WithFilename labels every span with name.
func WithFilename(name string) Option {
	return func(l *Lexer) {
		l.filename = name
	}
}

// WithPosition makes positions relative to an enclosing source: the first
// rune is reported at line:column and rune offset offset. Used to lex
// fragments such as template interpolations in place.
func WithPosition(line, column, offset int) Option {
	return func(l *Lexer) {
		l.line = line
		l.firstLine = line
		l.colShift = column - 1
		l.offShift = offset
	}
}

// Lexer represents the lexer state
type Lexer struct {
	input  []rune
	pos    int  // index of the current rune
	ch     rune // current rune (0 at EOF)
	line   int  // current line number (1-based)
	column int  // current column number (1-based)

	filename  string
	firstLine int
	colShift  int
	offShift  int

	indents     []int // indentation stack, bottom is always 0
	depth       int   // unmatched open brackets
	atLineStart bool
	externState int // 1 after `extern`, 2 after `extern <lang>`

	tokens []Token
	Errors []LexerError
}

// New creates a lexer over src. Invalid UTF-8 is reported by Tokenize.
func New(src []byte, opts ...Option) *Lexer {
	l := &Lexer{
		pos:       -1,
		line:      1,
		firstLine: 1,
		column:    1,
		indents:   []int{0},
	}
	for _, opt := range opts {
		opt(l)
	}
	if utf8.Valid(src) {
		l.input = []rune(string(src))
	} else {
		l.reportInvalidEncoding(src)
	}
	if len(l.input) > 0 && l.input[0] == '\uFEFF' {
		l.input = l.input[1:]
	}
	l.read()
	return l
}

// Tokenize lexes src and returns the token stream together with every
// lexer diagnostic. The stream always ends with EOF.
func Tokenize(src []byte, opts ...Option) ([]Token, diag.List) {
	l := New(src, opts...)
	toks := l.Tokenize()
	return toks, l.Diagnostics()
}

// Diagnostics converts the accumulated errors.
func (l *Lexer) Diagnostics() diag.List {
	var out diag.List
	for _, e := range l.Errors {
		out.Add(e.ToDiagnostic())
	}
	return out
}

func (l *Lexer) reportInvalidEncoding(src []byte) {
	line, col := 1, 1
	for i := 0; i < len(src); {
		r, size := utf8.DecodeRune(src[i:])
		if r == utf8.RuneError && size <= 1 {
			l.addError(ErrInvalidEncoding,
				fmt.Sprintf("invalid UTF-8 byte 0x%02x", src[i]),
				Span{Filename: l.filename, Line: line, Column: col, Start: i, End: i + 1})
			return
		}
		if r == '\n' {
			line++
			col = 1
		} else {
			col++
		}
		i += size
	}
}

func (l *Lexer) addError(kind LexerErrorKind, msg string, span Span) {
	l.Errors = append(l.Errors, LexerError{
		Kind:    kind,
		Message: msg,
		Span:    span,
	})
}

// read advances to the next rune, keeping line and column in step.
func (l *Lexer) read() {
	if l.pos >= 0 && l.pos < len(l.input) {
		if l.input[l.pos] == '\n' {
			l.line++
			l.column = 1
		} else {
			l.column++
		}
	}
	if l.pos < len(l.input) {
		l.pos++
	}
	if l.pos >= len(l.input) {
		l.ch = 0
		return
	}
	l.ch = l.input[l.pos]
}

func (l *Lexer) atEOF() bool {
	return l.pos >= len(l.input)
}

func (l *Lexer) peek() rune {
	return l.peekAt(1)
}

func (l *Lexer) peekAt(n int) rune {
	if l.pos+n >= len(l.input) {
		return 0
	}
	return l.input[l.pos+n]
}

type mark struct {
	line, column, pos int
}

func (l *Lexer) mark() mark {
	return mark{l.line, l.column, l.pos}
}

func (l *Lexer) spanFrom(m mark) Span {
	col := m.column
	if m.line == l.firstLine {
		col += l.colShift
	}
	return Span{
		Filename: l.filename,
		Line:     m.line,
		Column:   col,
		Start:    m.pos + l.offShift,
		End:      l.pos + l.offShift,
	}
}

func (l *Lexer) emit(tok Token) {
	l.tokens = append(l.tokens, tok)
	switch {
	case tok.Type == EXTERN:
		l.externState = 1
	case l.externState == 1 && (tok.Type == IDENT || tok.Type == STRING):
		l.externState = 2
	default:
		l.externState = 0
	}
}

func (l *Lexer) emitSimple(t TokenType, m mark) {
	raw := string(l.input[m.pos:l.pos])
	l.emit(Token{Type: t, Raw: raw, Value: raw, Span: l.spanFrom(m)})
}

func (l *Lexer) last() TokenType {
	if len(l.tokens) == 0 {
		return ""
	}
	return l.tokens[len(l.tokens)-1].Type
}

// Tokenize runs the lexer to completion.
func (l *Lexer) Tokenize() []Token {
	l.atLineStart = true
	for !l.atEOF() {
		if l.atLineStart {
			l.atLineStart = false
			if l.depth == 0 && l.indentLine() {
				continue
			}
		}
		l.scanToken()
	}
	l.finish()
	return l.tokens
}

// indentLine measures the leading whitespace of a logical line and emits
// INDENT/DEDENT tokens. It returns true when the line was blank or held
// only a comment, in which case the whole line has been consumed.
func (l *Lexer) indentLine() bool {
	width := 0
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' {
		switch l.ch {
		case '\t':
			width += tabWidth
		case ' ':
			width++
		}
		l.read()
	}
	if l.ch == '#' {
		l.skipComment()
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' {
			l.read()
		}
	}
	if l.atEOF() {
		return true
	}
	if l.ch == '\n' {
		l.read()
		l.atLineStart = true
		return true
	}
	l.applyIndent(width)
	return false
}

func (l *Lexer) applyIndent(width int) {
	m := l.mark()
	top := l.indents[len(l.indents)-1]
	switch {
	case width > top:
		l.indents = append(l.indents, width)
		l.emit(Token{Type: INDENT, Span: l.spanFrom(m)})
	case width < top:
		for len(l.indents) > 1 && l.indents[len(l.indents)-1] > width {
			l.indents = l.indents[:len(l.indents)-1]
			l.emit(Token{Type: DEDENT, Span: l.spanFrom(m)})
		}
		if l.indents[len(l.indents)-1] != width {
			l.addError(ErrBadIndent,
				fmt.Sprintf("unindent to column %d does not match any outer indentation level", width+1),
				l.spanFrom(m))
			// Keep the stream balanced: the line opens a level of its own.
			l.indents = append(l.indents, width)
			l.emit(Token{Type: INDENT, Span: l.spanFrom(m)})
		}
	}
}

// finish closes the last line and every open indentation level. The
// stream is balanced by construction: applyIndent pairs every level it
// opens, and here the remaining ones are closed.
func (l *Lexer) finish() {
	m := l.mark()
	if t := l.last(); t != "" && t != NEWLINE && t != DEDENT {
		l.emit(Token{Type: NEWLINE, Span: l.spanFrom(m)})
	}
	for len(l.indents) > 1 {
		l.indents = l.indents[:len(l.indents)-1]
		l.emit(Token{Type: DEDENT, Span: l.spanFrom(m)})
	}
	l.emit(Token{Type: EOF, Span: l.spanFrom(m)})
}

func (l *Lexer) scanToken() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' {
		l.read()
	}
	if l.atEOF() {
		return
	}

	m := l.mark()
	switch ch := l.ch; {
	case ch == '\n':
		l.read()
		if l.depth > 0 {
			return
		}
		if t := l.last(); t != "" && t != NEWLINE && t != INDENT && t != DEDENT {
			l.emit(Token{Type: NEWLINE, Raw: "\n", Span: l.spanFrom(m)})
		}
		l.atLineStart = true
	case ch == '#':
		l.skipComment()
	case ch == '"' || ch == '\'':
		raw, value, _ := l.readString(m, ch)
		l.emit(Token{Type: STRING, Raw: raw, Value: value, Span: l.spanFrom(m)})
	case ch == 'f' && (l.peek() == '"' || l.peek() == '\''):
		l.readTemplate(m)
	case isLetter(ch):
		ident := l.readIdentifier()
		l.emit(Token{Type: LookupIdent(ident), Raw: ident, Value: ident, Span: l.spanFrom(m)})
	case isDigit(ch):
		l.readNumber(m)
	case ch == '{' && l.externState == 2:
		l.readForeign(m)
	case ch == '(' || ch == '{' || ch == '[':
		l.read()
		l.depth++
		l.emit(Token{Type: OPEN, Raw: string(ch), Value: string(ch), Bracket: BracketInfo{Kind: bracketKind(ch), Side: Open}, Span: l.spanFrom(m)})
	case ch == ')' || ch == '}' || ch == ']':
		l.read()
		if l.depth > 0 {
			l.depth--
		}
		l.emit(Token{Type: CLOSE, Raw: string(ch), Value: string(ch), Bracket: BracketInfo{Kind: bracketKind(ch), Side: Close}, Span: l.spanFrom(m)})
	default:
		if t, ok := l.readOperator(); ok {
			l.emitSimple(t, m)
			return
		}
		l.read()
		l.addError(ErrIllegalRune, fmt.Sprintf("illegal character %q", ch), l.spanFrom(m))
		l.emitSimple(ILLEGAL, m)
	}
}

func bracketKind(ch rune) BracketKind {
	switch ch {
	case '{', '}':
		return Brace
	case '[', ']':
		return Bracket
	}
	return Paren
}

// readOperator consumes an operator or delimiter, longest match first.
func (l *Lexer) readOperator() (TokenType, bool) {
	two := string([]rune{l.ch, l.peek()})
	switch two {
	case "+=", "-=", "*=", "/=", "==", "!=", "<=", ">=", "->", "=>":
		l.read()
		l.read()
		return TokenType(two), true
	case "&&":
		l.read()
		l.read()
		return AND, true
	case "||":
		l.read()
		l.read()
		return OR, true
	}
	switch l.ch {
	case '+', '-', '*', '/', '%', '^', '!', '<', '>', '=', '.', ',', ':', ';', '@':
		t := TokenType(string(l.ch))
		l.read()
		return t, true
	}
	return "", false
}

// skipComment skips a '#' line comment or a '#[ ... ]#' block comment.
// Block comments nest.
func (l *Lexer) skipComment() {
	m := l.mark()
	if l.peek() != '[' {
		for !l.atEOF() && l.ch != '\n' {
			l.read()
		}
		return
	}

	l.read() // '#'
	l.read() // '['
	depth := 1
	for depth > 0 {
		if l.atEOF() {
			l.addError(ErrUnterminatedBlockComment, "unterminated block comment", l.spanFrom(m))
			return
		}
		switch {
		case l.ch == '#' && l.peek() == '[':
			l.read()
			l.read()
			depth++
		case l.ch == ']' && l.peek() == '#':
			l.read()
			l.read()
			depth--
		default:
			l.read()
		}
	}
}

func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) {
		l.read()
	}
	return string(l.input[start:l.pos])
}

// readNumber reads an int or float literal and an optional unit suffix.
func (l *Lexer) readNumber(m mark) {
	typ := INT
	l.read()

	if l.input[m.pos] == '0' && (l.ch == 'x' || l.ch == 'X' || l.ch == 'b' || l.ch == 'B') {
		hex := l.ch == 'x' || l.ch == 'X'
		l.read()
		for (hex && isHexDigit(l.ch)) || (!hex && (l.ch == '0' || l.ch == '1')) || l.ch == '_' {
			l.read()
		}
		raw := string(l.input[m.pos:l.pos])
		l.emit(Token{Type: INT, Raw: raw, Value: strings.ReplaceAll(raw, "_", ""), Span: l.spanFrom(m)})
		return
	}

	for isDigit(l.ch) || l.ch == '_' {
		l.read()
	}
	if l.ch == '.' && isDigit(l.peek()) {
		typ = FLOAT
		l.read()
		for isDigit(l.ch) || l.ch == '_' {
			l.read()
		}
	}
	if (l.ch == 'e' || l.ch == 'E') &&
		(isDigit(l.peek()) || ((l.peek() == '+' || l.peek() == '-') && isDigit(l.peekAt(2)))) {
		typ = FLOAT
		l.read()
		if l.ch == '+' || l.ch == '-' {
			l.read()
		}
		for isDigit(l.ch) || l.ch == '_' {
			l.read()
		}
	}

	value := strings.ReplaceAll(string(l.input[m.pos:l.pos]), "_", "")
	if unit, ok := l.readUnit(); ok {
		l.emit(Token{Type: UNIT_FLOAT, Raw: string(l.input[m.pos:l.pos]), Value: value, Unit: unit, Span: l.spanFrom(m)})
		return
	}
	l.emit(Token{Type: typ, Raw: string(l.input[m.pos:l.pos]), Value: value, Span: l.spanFrom(m)})
}

// readUnit consumes a unit suffix after a number. A suffix directly
// adjacent to the digits is always a unit. After exactly one space the word
// must look like a unit (contain '/' or '^', or be a known SI symbol) and
// must not be a keyword. A word running into identifier characters, as in
// `5 meters_traveled`, is never a unit.
func (l *Lexer) readUnit() (string, bool) {
	start, adjacent := l.pos, true
	if l.ch == ' ' {
		start, adjacent = l.pos+1, false
	}
	n := l.matchUnit(start)
	if n == 0 {
		return "", false
	}
	if end := start + n; end < len(l.input) && (isLetter(l.input[end]) || isDigit(l.input[end])) {
		return "", false
	}
	word := string(l.input[start : start+n])
	if IsKeyword(word) {
		return "", false
	}
	if !adjacent && !strings.ContainsAny(word, "/^") && !siUnits[word] {
		return "", false
	}
	for l.pos < start+n {
		l.read()
	}
	return word, true
}

// matchUnit returns the length of [a-zA-Z]+(/[a-zA-Z]+)?(\^[0-9]+)? at start.
func (l *Lexer) matchUnit(start int) int {
	at := func(i int) rune {
		if i < len(l.input) {
			return l.input[i]
		}
		return 0
	}
	i := start
	for isASCIILetter(at(i)) {
		i++
	}
	if i == start {
		return 0
	}
	if at(i) == '/' && isASCIILetter(at(i+1)) {
		i++
		for isASCIILetter(at(i)) {
			i++
		}
	}
	if at(i) == '^' && isDigit(at(i+1)) {
		i++
		for isDigit(at(i)) {
			i++
		}
	}
	return i - start
}

// readString reads a quoted string, decoding escape sequences.
func (l *Lexer) readString(m mark, quote rune) (raw string, value string, terminated bool) {
	var b strings.Builder
	l.read() // opening quote
	for {
		if l.atEOF() || l.ch == '\n' {
			l.addError(ErrUnterminatedString, "unterminated string literal", l.spanFrom(m))
			return string(l.input[m.pos:l.pos]), b.String(), false
		}
		if l.ch == quote {
			l.read()
			return string(l.input[m.pos:l.pos]), b.String(), true
		}
		if l.ch == '\\' {
			l.read()
			if l.atEOF() {
				continue
			}
			switch l.ch {
			case 'n':
				b.WriteRune('\n')
			case 't':
				b.WriteRune('\t')
			case 'r':
				b.WriteRune('\r')
			case '0':
				b.WriteRune(0)
			case '\\', '"', '\'':
				b.WriteRune(l.ch)
			default:
				b.WriteRune('\\')
				b.WriteRune(l.ch)
			}
			l.read()
			continue
		}
		b.WriteRune(l.ch)
		l.read()
	}
}

// readTemplate reads f"..." into a single TEMPLATE token whose Value is the
// undecoded body. Interpolation spans are left for the parser to re-lex.
func (l *Lexer) readTemplate(m mark) {
	l.read() // f
	quote := l.ch
	l.read()
	bodyStart := l.pos
	depth := 0
	for {
		if l.atEOF() || l.ch == '\n' {
			l.addError(ErrUnterminatedString, "unterminated template string", l.spanFrom(m))
			l.emit(Token{Type: TEMPLATE, Raw: string(l.input[m.pos:l.pos]), Value: string(l.input[bodyStart:l.pos]), Span: l.spanFrom(m)})
			return
		}
		switch {
		case l.ch == '\\':
			l.read()
			if !l.atEOF() && l.ch != '\n' {
				l.read()
			}
			continue
		case depth == 0 && l.ch == quote:
			body := string(l.input[bodyStart:l.pos])
			l.read()
			l.emit(Token{Type: TEMPLATE, Raw: string(l.input[m.pos:l.pos]), Value: body, Span: l.spanFrom(m)})
			return
		case depth == 0 && (l.ch == '{' || l.ch == '}') && l.peek() == l.ch:
			l.read()
		case l.ch == '{':
			depth++
		case l.ch == '}' && depth > 0:
			depth--
		case depth > 0 && (l.ch == '"' || l.ch == '\''):
			q := l.ch
			l.read()
			for !l.atEOF() && l.ch != '\n' && l.ch != q {
				l.read()
			}
			if l.ch != q {
				continue
			}
		}
		l.read()
	}
}

// readForeign captures the brace-delimited body of an extern block as one
// FOREIGN token. Braces inside string literals are not counted.
func (l *Lexer) readForeign(m mark) {
	l.read() // '{'
	bodyStart := l.pos
	depth := 1
	for depth > 0 {
		if l.atEOF() {
			l.addError(ErrUnterminatedForeign, "unterminated extern block", l.spanFrom(m))
			l.emit(Token{Type: FOREIGN, Raw: string(l.input[m.pos:l.pos]), Value: string(l.input[bodyStart:l.pos]), Span: l.spanFrom(m)})
			return
		}
		switch l.ch {
		case '{':
			depth++
		case '}':
			depth--
		case '"', '\'', '`':
			q := l.ch
			l.read()
			for !l.atEOF() && l.ch != q {
				if l.ch == '\\' {
					l.read()
				}
				l.read()
			}
		}
		l.read()
	}
	body := string(l.input[bodyStart : l.pos-1])
	l.emit(Token{Type: FOREIGN, Raw: string(l.input[m.pos:l.pos]), Value: body, Span: l.spanFrom(m)})
}

func isLetter(ch rune) bool {
	return unicode.IsLetter(ch) || ch == '_'
}

func isASCIILetter(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

func isHexDigit(ch rune) bool {
	return (ch >= '0' && ch <= '9') ||
		(ch >= 'a' && ch <= 'f') ||
		(ch >= 'A' && ch <= 'F')
}
