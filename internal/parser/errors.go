package parser

import (
	"fmt"

	"github.com/gul-lang/gul-lang/internal/ast"
	"github.com/gul-lang/gul-lang/internal/diag"
	"github.com/gul-lang/gul-lang/internal/lexer"
)

type ParseErrorKind int

const (
	ErrUnexpectedToken ParseErrorKind = iota
	ErrBracketMismatch
	ErrNestingTooDeep
	ErrInvalidAnnotation
	ErrExternSignature
)

func (k ParseErrorKind) diagnosticCode() diag.Code {
	switch k {
	case ErrBracketMismatch:
		return diag.CodeParseBracketMismatch
	case ErrNestingTooDeep:
		return diag.CodeParseNestingTooDeep
	case ErrInvalidAnnotation:
		return diag.CodeParseInvalidAnnotation
	case ErrExternSignature:
		return diag.CodeParseExternSignature
	default:
		return diag.CodeParseUnexpectedToken
	}
}

// ParseError captures a recoverable parsing error with location context.
// Expected and Found are set for ErrBracketMismatch.
type ParseError struct {
	Kind     ParseErrorKind
	Message  string
	Span     lexer.Span
	Severity diag.Severity
	Expected lexer.BracketKind
	Found    lexer.BracketKind
	Related  lexer.Span
}

func (e ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Span.Line, e.Span.Column, e.Message)
}

// ToDiagnostic converts the error into the shared diagnostic structure.
func (e ParseError) ToDiagnostic() diag.Diagnostic {
	d := diag.Diagnostic{
		Stage:    diag.StageParser,
		Severity: e.Severity,
		Code:     e.Kind.diagnosticCode(),
		Message:  e.Message,
		Span:     toDiagSpan(e.Span),
	}
	if e.Kind == ErrBracketMismatch {
		d = d.WithLabel(toDiagSpan(e.Span), "found `"+e.Found.Close()+"`").
			WithSecondary(toDiagSpan(e.Related), "opened with `"+e.Expected.Open()+"`").
			WithHelp("close the bracket with `" + e.Expected.Close() + "`")
	}
	return d
}

func toDiagSpan(s lexer.Span) diag.Span {
	return diag.Span{Filename: s.Filename, Line: s.Line, Column: s.Column, Start: s.Start, End: s.End}
}

// bailout unwinds to the nearest statement after an error was recorded.
type bailout struct{}

func (p *Parser) addError(kind ParseErrorKind, msg string, span lexer.Span) {
	p.addParseError(ParseError{Kind: kind, Message: msg, Span: span, Severity: diag.SeverityError})
}

func (p *Parser) addParseError(e ParseError) {
	if p.bailing {
		return
	}
	if e.Span.Filename == "" {
		e.Span.Filename = p.filename
	}
	if e.Related.Filename == "" && e.Related.Line > 0 {
		e.Related.Filename = p.filename
	}
	p.errors = append(p.errors, e)
}

// reportWarning records a non-fatal diagnostic without unwinding.
func (p *Parser) reportWarning(kind ParseErrorKind, msg string, span lexer.Span) {
	p.addParseError(ParseError{Kind: kind, Message: msg, Span: span, Severity: diag.SeverityWarning})
}

func (p *Parser) fail(kind ParseErrorKind, msg string, span lexer.Span) {
	p.addError(kind, msg, span)
	p.bailing = true
	panic(bailout{})
}

func (p *Parser) failExpected(what string) {
	p.fail(ErrUnexpectedToken, fmt.Sprintf("expected %s, found %s", what, describe(p.curTok)), p.curTok.Span)
}

func (p *Parser) failUnexpected(context string) {
	msg := fmt.Sprintf("unexpected %s", describe(p.curTok))
	if context != "" {
		msg += " in " + context
	}
	p.fail(ErrUnexpectedToken, msg, p.curTok.Span)
}

func (p *Parser) failBracketMismatch(open, found lexer.Token) {
	p.addParseError(ParseError{
		Kind: ErrBracketMismatch,
		Message: fmt.Sprintf("mismatched brackets: expected `%s`, found `%s`",
			open.Bracket.Kind.Close(), found.Bracket.Kind.Close()),
		Span:     found.Span,
		Severity: diag.SeverityError,
		Expected: open.Bracket.Kind,
		Found:    found.Bracket.Kind,
		Related:  open.Span,
	})
	p.bailing = true
	panic(bailout{})
}

func describe(tok lexer.Token) string {
	switch tok.Type {
	case lexer.EOF:
		return "end of file"
	case lexer.NEWLINE:
		return "newline"
	case lexer.INDENT:
		return "indent"
	case lexer.DEDENT:
		return "dedent"
	}
	return "`" + tok.String() + "`"
}

// parseStatementRecover parses one statement. On error it skips to the next
// statement boundary at the indentation level the statement started on and
// returns nil.
func (p *Parser) parseStatementRecover() (stmt ast.Stmt) {
	startLevel, startDepth, startIdx := p.level, p.depth, p.idx
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if _, ok := r.(bailout); !ok {
			panic(r)
		}
		p.bailing = false
		p.depth = startDepth
		p.recoverStatement(startLevel, startIdx)
		stmt = nil
	}()
	return p.parseStatement()
}

// recoverStatement skips tokens until a NEWLINE at level (consumed), a
// DEDENT at level (left for the enclosing block) or a DEDENT that returns to
// level (consumed).
func (p *Parser) recoverStatement(level, startIdx int) {
	if p.idx == startIdx && p.curTok.Type != lexer.EOF && p.curTok.Type != lexer.DEDENT {
		p.nextToken()
		if p.curTok.Type == lexer.NEWLINE && p.level == level {
			p.nextToken()
			return
		}
	}
	for p.curTok.Type != lexer.EOF {
		switch {
		case p.curTok.Type == lexer.NEWLINE && p.level == level:
			p.nextToken()
			return
		case p.curTok.Type == lexer.DEDENT && p.level == level:
			return
		case p.curTok.Type == lexer.DEDENT && p.level == level+1:
			p.nextToken()
			return
		}
		p.nextToken()
	}
}
