package parser

import (
	"strings"

	"github.com/gul-lang/gul-lang/internal/ast"
	"github.com/gul-lang/gul-lang/internal/lexer"
)

// parseTemplate splits an f-string body into literal parts and re-lexes
// each `{...}` span as an expression positioned inside the original file.
func (p *Parser) parseTemplate(tok lexer.Token) ast.Expr {
	body := []rune(tok.Value)
	// Body starts after the `f` and the opening quote.
	baseCol := tok.Span.Column + 2
	baseOff := tok.Span.Start + 2

	var parts []string
	var exprs []ast.Expr
	var lit strings.Builder
	for i := 0; i < len(body); i++ {
		ch := body[i]
		switch {
		case ch == '\\' && i+1 < len(body):
			i++
			lit.WriteString(unescape(body[i]))
		case (ch == '{' || ch == '}') && i+1 < len(body) && body[i+1] == ch:
			i++
			lit.WriteRune(ch)
		case ch == '{':
			end := matchingBrace(body, i)
			if end < 0 {
				p.fail(ErrUnexpectedToken, "unclosed `{` in template string", tok.Span)
			}
			parts = append(parts, lit.String())
			lit.Reset()
			exprs = append(exprs, p.parseEmbedded(string(body[i+1:end]), tok.Span.Line, baseCol+i+1, baseOff+i+1, tok.Span))
			i = end
		default:
			lit.WriteRune(ch)
		}
	}
	parts = append(parts, lit.String())
	return ast.NewTemplateLit(parts, exprs, tok.Span)
}

func unescape(ch rune) string {
	switch ch {
	case 'n':
		return "\n"
	case 't':
		return "\t"
	case 'r':
		return "\r"
	case '\\', '"', '\'':
		return string(ch)
	}
	return "\\" + string(ch)
}

func matchingBrace(body []rune, open int) int {
	depth := 0
	var quote rune
	for i := open; i < len(body); i++ {
		ch := body[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '"' || ch == '\'':
			quote = ch
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// parseEmbedded parses src as a single expression with a nested parser that
// shares this parser's depth budget. Its errors are merged into ours.
func (p *Parser) parseEmbedded(src string, line, col, off int, outer lexer.Span) ast.Expr {
	if strings.TrimSpace(src) == "" {
		p.fail(ErrUnexpectedToken, "empty expression in template string", outer)
	}
	lx := lexer.New([]byte(src), lexer.WithFilename(p.filename), lexer.WithPosition(line, col, off))
	toks := lx.Tokenize()
	for _, e := range lx.Errors {
		p.addError(ErrUnexpectedToken, e.Message, e.Span)
	}

	sub := New(toks, WithFilename(p.filename), WithMaxDepth(max(1, p.maxDepth-p.depth)))
	var expr ast.Expr
	func() {
		defer func() {
			if r := recover(); r != nil {
				if _, ok := r.(bailout); !ok {
					panic(r)
				}
			}
		}()
		expr = sub.parseExpression(precLowest)
		sub.skipSeparators()
		if !sub.curIs(lexer.EOF) {
			sub.failUnexpected("template expression")
		}
	}()
	for _, e := range sub.errors {
		p.addParseError(e)
	}
	if expr == nil || len(sub.errors) > 0 || len(lx.Errors) > 0 {
		p.bailing = true
		panic(bailout{})
	}
	return expr
}
