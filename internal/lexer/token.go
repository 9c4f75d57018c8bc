package lexer

import (
	"fmt"
	"sort"
)

// TokenType represents the type of a token
type TokenType string

// Span represents the source location of a token
type Span struct {
	Filename string // optional source filename for diagnostics
	Line     int    // 1-based line number
	Column   int    // 1-based column number
	Start    int    // rune offset of the first rune
	End      int    // exclusive end offset
}

// BracketKind is the glyph family of a bracket token.
type BracketKind int

const (
	Paren   BracketKind = iota // ( )
	Brace                      // { }
	Bracket                    // [ ]
)

func (k BracketKind) String() string {
	switch k {
	case Paren:
		return "paren"
	case Brace:
		return "brace"
	case Bracket:
		return "bracket"
	}
	return fmt.Sprintf("BracketKind(%d)", int(k))
}

// Open returns the opening glyph of the bracket kind.
func (k BracketKind) Open() string {
	return [...]string{"(", "{", "["}[k]
}

// Close returns the closing glyph of the bracket kind.
func (k BracketKind) Close() string {
	return [...]string{")", "}", "]"}[k]
}

// Side tells an opening bracket from a closing one.
type Side int

const (
	Open Side = iota
	Close
)

// BracketInfo is set on OPEN and CLOSE tokens only.
type BracketInfo struct {
	Kind BracketKind
	Side Side
}

// Token represents a lexical token
type Token struct {
	Type    TokenType
	Raw     string      // exact runes from source
	Value   string      // decoded value (strings unescaped, numbers without '_')
	Unit    string      // unit suffix of a UNIT_FLOAT
	Bracket BracketInfo // kind and side of OPEN/CLOSE tokens
	Span    Span
}

func (t Token) String() string {
	switch t.Type {
	case OPEN, CLOSE:
		if t.Bracket.Side == Open {
			return t.Bracket.Kind.Open()
		}
		return t.Bracket.Kind.Close()
	case NEWLINE, INDENT, DEDENT, EOF:
		return string(t.Type)
	}
	return t.Raw
}

// Token type constants
const (
	// Special tokens
	ILLEGAL TokenType = "ILLEGAL"
	EOF     TokenType = "EOF"
	NEWLINE TokenType = "NEWLINE"
	INDENT  TokenType = "INDENT"
	DEDENT  TokenType = "DEDENT"

	// Identifiers and literals
	IDENT      TokenType = "IDENT"
	INT        TokenType = "INT"
	FLOAT      TokenType = "FLOAT"
	UNIT_FLOAT TokenType = "UNIT_FLOAT" // 9.8 m/s^2
	STRING     TokenType = "STRING"
	TEMPLATE   TokenType = "TEMPLATE" // f"x = {x}"
	FOREIGN    TokenType = "FOREIGN"  // raw body of an extern block

	// Brackets; kind and side live in Token.Bracket
	OPEN  TokenType = "OPEN"
	CLOSE TokenType = "CLOSE"

	// Operators
	ASSIGN       TokenType = "="
	PLUS_ASSIGN  TokenType = "+="
	MINUS_ASSIGN TokenType = "-="
	STAR_ASSIGN  TokenType = "*="
	SLASH_ASSIGN TokenType = "/="
	PLUS         TokenType = "+"
	MINUS        TokenType = "-"
	ASTERISK     TokenType = "*"
	SLASH        TokenType = "/"
	PERCENT      TokenType = "%"
	CARET        TokenType = "^"
	BANG         TokenType = "!"
	EQ           TokenType = "=="
	NOT_EQ       TokenType = "!="
	LT           TokenType = "<"
	LE           TokenType = "<="
	GT           TokenType = ">"
	GE           TokenType = ">="
	ARROW        TokenType = "->"
	FATARROW     TokenType = "=>"

	// Delimiters
	DOT       TokenType = "."
	COMMA     TokenType = ","
	COLON     TokenType = ":"
	SEMICOLON TokenType = ";"
	AT        TokenType = "@"

	// Keywords
	LET      TokenType = "let"
	VAR      TokenType = "var"
	CONST    TokenType = "const"
	FN       TokenType = "fn"
	ASYNC    TokenType = "async"
	AWAIT    TokenType = "await"
	IF       TokenType = "if"
	ELIF     TokenType = "elif"
	ELSE     TokenType = "else"
	WHILE    TokenType = "while"
	FOR      TokenType = "for"
	IN       TokenType = "in"
	LOOP     TokenType = "loop"
	BREAK    TokenType = "break"
	CONTINUE TokenType = "continue"
	RETURN   TokenType = "return"
	TRY      TokenType = "try"
	CATCH    TokenType = "catch"
	FINALLY  TokenType = "finally"
	THROW    TokenType = "throw"
	STRUCT   TokenType = "struct"
	MATCH    TokenType = "match"
	IMPORT   TokenType = "import"
	AS       TokenType = "as"
	EXTERN   TokenType = "extern"
	OWN      TokenType = "own"
	REF      TokenType = "ref"
	COPY     TokenType = "copy"
	MOVE     TokenType = "move"
	TRUE     TokenType = "true"
	FALSE    TokenType = "false"
	AND      TokenType = "and"
	OR       TokenType = "or"
	NOT      TokenType = "not"
	ASSERT   TokenType = "assert"
	PASS     TokenType = "pass"
)

var keywords = map[string]TokenType{
	"let":      LET,
	"var":      VAR,
	"const":    CONST,
	"fn":       FN,
	"async":    ASYNC,
	"await":    AWAIT,
	"if":       IF,
	"elif":     ELIF,
	"else":     ELSE,
	"while":    WHILE,
	"for":      FOR,
	"in":       IN,
	"loop":     LOOP,
	"break":    BREAK,
	"continue": CONTINUE,
	"return":   RETURN,
	"try":      TRY,
	"catch":    CATCH,
	"finally":  FINALLY,
	"throw":    THROW,
	"struct":   STRUCT,
	"match":    MATCH,
	"import":   IMPORT,
	"as":       AS,
	"extern":   EXTERN,
	"own":      OWN,
	"ref":      REF,
	"copy":     COPY,
	"move":     MOVE,
	"true":     TRUE,
	"false":    FALSE,
	"and":      AND,
	"or":       OR,
	"not":      NOT,
	"assert":   ASSERT,
	"pass":     PASS,

	// Alternate spellings carried over from older dialects.
	"use":    IMPORT,
	"imp":    IMPORT,
	"mut":    VAR,
	"def":    FN,
	"asy":    ASYNC,
	"cs":     EXTERN,
	"borrow": REF,
	"kept":   COPY,
}

// LookupIdent returns the keyword token type for ident, or IDENT.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// IsKeyword reports whether word is reserved, including alias spellings.
func IsKeyword(word string) bool {
	_, ok := keywords[word]
	return ok
}

// Keywords returns every reserved word in sorted order.
func Keywords() []string {
	words := make([]string, 0, len(keywords))
	for w := range keywords {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

// siUnits are the unit words accepted after a single space without a '/'
// or '^' in them.
var siUnits = map[string]bool{
	"m": true, "km": true, "cm": true, "mm": true, "um": true, "nm": true,
	"s": true, "ms": true, "us": true, "ns": true, "h": true,
	"g": true, "kg": true, "mg": true,
	"N": true, "kN": true, "J": true, "kJ": true, "eV": true,
	"W": true, "kW": true, "MW": true,
	"Pa": true, "kPa": true, "bar": true,
	"Hz": true, "kHz": true, "MHz": true, "GHz": true,
	"K": true, "A": true, "mA": true, "V": true, "mV": true, "C": true,
	"mol": true, "cd": true, "L": true, "mL": true,
	"rad": true, "deg": true,
}
