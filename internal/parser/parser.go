package parser

import (
	"github.com/gul-lang/gul-lang/internal/ast"
	"github.com/gul-lang/gul-lang/internal/diag"
	"github.com/gul-lang/gul-lang/internal/lexer"
)

// DefaultMaxDepth bounds expression and block nesting.
const DefaultMaxDepth = 256

type Option func(*options)

type options struct {
	filename string
	maxDepth int
}

// WithFilename configures the parser to attribute all emitted spans to the provided filename.
func WithFilename(name string) Option {
	return func(o *options) {
		o.filename = name
	}
}

// WithMaxDepth sets the nesting limit past which NestingTooDeep is reported.
func WithMaxDepth(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxDepth = n
		}
	}
}

const (
	precLowest = iota
	precOr
	precAnd
	precNot
	precEquality
	precRelational
	precAdditive
	precMultiplicative
	precPower
	precUnary
	precPostfix
)

var precedences = map[lexer.TokenType]int{
	lexer.OR:       precOr,
	lexer.AND:      precAnd,
	lexer.EQ:       precEquality,
	lexer.NOT_EQ:   precEquality,
	lexer.LT:       precRelational,
	lexer.LE:       precRelational,
	lexer.GT:       precRelational,
	lexer.GE:       precRelational,
	lexer.PLUS:     precAdditive,
	lexer.MINUS:    precAdditive,
	lexer.ASTERISK: precMultiplicative,
	lexer.SLASH:    precMultiplicative,
	lexer.PERCENT:  precMultiplicative,
	lexer.CARET:    precPower,
	lexer.OPEN:     precPostfix,
	lexer.DOT:      precPostfix,
}

// Parser is a recursive-descent statement parser with a precedence-climbing
// expression core.
//
//   - Lookahead: curTok is the next unconsumed token, peekTok the one after.
//     peekTokenAt gives deeper lookahead. Only nextToken moves the window.
//   - Diagnostics: errors is append-only. After the first error in a
//     statement the parser bails out to the enclosing statement, which skips
//     to the next boundary at its own indentation level.
//   - Spans: node spans are composed with mergeSpan and grow monotonically.
type Parser struct {
	toks    []lexer.Token
	idx     int
	curTok  lexer.Token
	peekTok lexer.Token

	level int // INDENTs consumed minus DEDENTs consumed

	errors    []ParseError
	bailing   bool
	depth     int
	maxDepth  int
	deepError bool

	filename string
}

// New returns a parser over an already lexed token stream.
func New(toks []lexer.Token, opts ...Option) *Parser {
	cfg := options{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(&cfg)
	}

	var filtered []lexer.Token
	for _, tok := range toks {
		// Illegal runes were already reported by the lexer.
		if tok.Type != lexer.ILLEGAL {
			filtered = append(filtered, tok)
		}
	}
	if len(filtered) == 0 || filtered[len(filtered)-1].Type != lexer.EOF {
		filtered = append(filtered, lexer.Token{Type: lexer.EOF})
	}

	p := &Parser{
		toks:     filtered,
		maxDepth: cfg.maxDepth,
		filename: cfg.filename,
	}
	p.curTok = p.tokenAt(0)
	p.peekTok = p.tokenAt(1)
	return p
}

// Parse parses a token stream into a Program.
func Parse(toks []lexer.Token, opts ...Option) (*ast.Program, diag.List) {
	p := New(toks, opts...)
	prog := p.ParseProgram()
	return prog, p.Diagnostics()
}

// ParseSource lexes and parses src, returning diagnostics of both stages.
func ParseSource(src []byte, opts ...Option) (*ast.Program, diag.List) {
	cfg := options{}
	for _, opt := range opts {
		opt(&cfg)
	}
	toks, diags := lexer.Tokenize(src, lexer.WithFilename(cfg.filename))
	prog, perrs := Parse(toks, opts...)
	diags.Extend(perrs)
	return prog, diags
}

// Errors returns all recoverable parse errors that were encountered.
func (p *Parser) Errors() []ParseError {
	return p.errors
}

// Diagnostics converts the accumulated errors.
func (p *Parser) Diagnostics() diag.List {
	var out diag.List
	for _, e := range p.errors {
		out.Add(e.ToDiagnostic())
	}
	return out
}

// ParseProgram parses statements until EOF.
func (p *Parser) ParseProgram() *ast.Program {
	start := p.curTok.Span
	var stmts []ast.Stmt
	for {
		p.skipSeparators()
		if p.curTok.Type == lexer.EOF {
			break
		}
		if p.curTok.Type == lexer.DEDENT {
			// Only reachable after indentation errors; the lexer already
			// reported them.
			p.nextToken()
			continue
		}
		if stmt := p.parseStatementRecover(); stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	return ast.NewProgram(stmts, mergeSpan(start, p.curTok.Span))
}

func (p *Parser) tokenAt(i int) lexer.Token {
	if i < len(p.toks) {
		return p.toks[i]
	}
	return p.toks[len(p.toks)-1]
}

// nextToken consumes curTok and returns it.
func (p *Parser) nextToken() lexer.Token {
	tok := p.curTok
	switch tok.Type {
	case lexer.INDENT:
		p.level++
	case lexer.DEDENT:
		p.level--
	case lexer.EOF:
		return tok
	}
	p.idx++
	p.curTok = p.tokenAt(p.idx)
	p.peekTok = p.tokenAt(p.idx + 1)
	return tok
}

// prevTok returns the most recently consumed token.
func (p *Parser) prevTok() lexer.Token {
	if p.idx == 0 {
		return lexer.Token{}
	}
	return p.toks[p.idx-1]
}

// peekTokenAt returns the token n positions after curTok (0 is curTok).
func (p *Parser) peekTokenAt(n int) lexer.Token {
	return p.tokenAt(p.idx + n)
}

func (p *Parser) curIs(t lexer.TokenType) bool {
	return p.curTok.Type == t
}

// expect consumes a token of type t or bails out.
func (p *Parser) expect(t lexer.TokenType, what string) lexer.Token {
	if p.curTok.Type != t {
		p.failExpected(what)
	}
	return p.nextToken()
}

// expectOpen consumes an opening bracket of any kind.
func (p *Parser) expectOpen(what string) lexer.Token {
	if p.curTok.Type != lexer.OPEN {
		p.failExpected(what)
	}
	return p.nextToken()
}

// expectClose consumes the closing bracket matching open, reporting
// BracketMismatch when the kinds differ.
func (p *Parser) expectClose(open lexer.Token) lexer.Token {
	if p.curTok.Type == lexer.CLOSE {
		if p.curTok.Bracket.Kind != open.Bracket.Kind {
			p.failBracketMismatch(open, p.curTok)
		}
		return p.nextToken()
	}
	p.failExpected("`" + open.Bracket.Kind.Close() + "`")
	return lexer.Token{}
}

func (p *Parser) skipSeparators() {
	for p.curTok.Type == lexer.NEWLINE || p.curTok.Type == lexer.SEMICOLON {
		p.nextToken()
	}
}

// atStatementEnd reports whether curTok terminates a simple statement.
func (p *Parser) atStatementEnd() bool {
	switch p.curTok.Type {
	case lexer.NEWLINE, lexer.SEMICOLON, lexer.DEDENT, lexer.EOF:
		return true
	}
	return false
}

// endStatement consumes the terminator of a simple statement.
func (p *Parser) endStatement() {
	switch p.curTok.Type {
	case lexer.NEWLINE, lexer.SEMICOLON:
		p.nextToken()
	case lexer.DEDENT, lexer.EOF:
	default:
		p.failExpected("end of statement")
	}
}

// enter guards recursion depth; pair every call with leave.
func (p *Parser) enter() {
	p.depth++
	if p.depth > p.maxDepth {
		if !p.deepError {
			p.deepError = true
			p.addError(ErrNestingTooDeep, "nesting exceeds the maximum depth", p.curTok.Span)
		}
		p.bailing = true
		panic(bailout{})
	}
}

func (p *Parser) leave() {
	p.depth--
}

// mergeSpan assumes start precedes end and returns a span covering both.
func mergeSpan(start, end lexer.Span) lexer.Span {
	span := start
	if end.End > span.End {
		span.End = end.End
	}
	return span
}
