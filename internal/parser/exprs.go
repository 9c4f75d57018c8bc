package parser

import (
	"fmt"
	"strconv"

	"github.com/gul-lang/gul-lang/internal/ast"
	"github.com/gul-lang/gul-lang/internal/lexer"
)

// parseExpression is the precedence-climbing core: it parses a prefix
// expression, then folds in infix and postfix operators that bind tighter
// than prec.
func (p *Parser) parseExpression(prec int) ast.Expr {
	p.enter()
	defer p.leave()

	left := p.parsePrefix()
	for {
		next, ok := precedences[p.curTok.Type]
		if !ok || next <= prec {
			return left
		}
		switch p.curTok.Type {
		case lexer.OPEN:
			left = p.parsePostfixBracket(left)
		case lexer.DOT:
			left = p.parseMember(left)
		default:
			left = p.parseInfix(left, next)
		}
	}
}

func (p *Parser) parsePrefix() ast.Expr {
	tok := p.curTok
	switch tok.Type {
	case lexer.IDENT:
		p.nextToken()
		return ast.NewIdent(tok.Value, tok.Span)
	case lexer.INT:
		p.nextToken()
		v, err := parseIntLiteral(tok.Value)
		if err != nil {
			p.fail(ErrUnexpectedToken, fmt.Sprintf("integer literal %s out of range", tok.Raw), tok.Span)
		}
		return ast.NewIntLit(v, tok.Raw, tok.Span)
	case lexer.FLOAT, lexer.UNIT_FLOAT:
		p.nextToken()
		v, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			p.fail(ErrUnexpectedToken, fmt.Sprintf("invalid number %s", tok.Raw), tok.Span)
		}
		return ast.NewFloatLit(v, tok.Raw, tok.Unit, tok.Span)
	case lexer.STRING:
		p.nextToken()
		return ast.NewStringLit(tok.Value, tok.Span)
	case lexer.TEMPLATE:
		p.nextToken()
		return p.parseTemplate(tok)
	case lexer.TRUE, lexer.FALSE:
		p.nextToken()
		return ast.NewBoolLit(tok.Type == lexer.TRUE, tok.Span)
	case lexer.MINUS, lexer.BANG:
		p.nextToken()
		operand := p.parseExpression(precUnary)
		return ast.NewUnaryExpr(tok.Type, operand, mergeSpan(tok.Span, operand.Span()))
	case lexer.NOT:
		p.nextToken()
		operand := p.parseExpression(precNot)
		return ast.NewUnaryExpr(lexer.NOT, operand, mergeSpan(tok.Span, operand.Span()))
	case lexer.AWAIT:
		p.nextToken()
		value := p.parseExpression(precUnary)
		return ast.NewAwaitExpr(value, mergeSpan(tok.Span, value.Span()))
	case lexer.OWN, lexer.REF, lexer.COPY, lexer.MOVE:
		mode, _ := ast.OwnershipFromToken(tok.Type)
		p.nextToken()
		value := p.parseExpression(precUnary)
		return ast.NewOwnershipExpr(mode, value, mergeSpan(tok.Span, value.Span()))
	case lexer.AT:
		return p.parseAnnotatedExpr()
	case lexer.OPEN:
		return p.parseBracketed()
	}
	p.failExpected("expression")
	return nil
}

func (p *Parser) parseInfix(left ast.Expr, prec int) ast.Expr {
	op := p.nextToken()
	rightPrec := prec
	if op.Type == lexer.CARET {
		// right-associative
		rightPrec = prec - 1
	}
	right := p.parseExpression(rightPrec)
	return ast.NewBinaryExpr(op.Type, left, right, mergeSpan(left.Span(), right.Span()))
}

func (p *Parser) parseMember(left ast.Expr) ast.Expr {
	p.nextToken() // .
	name := p.expect(lexer.IDENT, "field name after `.`")
	field := ast.NewIdent(name.Value, name.Span)
	return ast.NewMemberExpr(left, field, mergeSpan(left.Span(), name.Span))
}

// parsePostfixBracket parses a call or index. Any bracket kind may delimit a
// call. A `[` holding exactly one element without a trailing comma is an
// index; everything else is a call.
func (p *Parser) parsePostfixBracket(left ast.Expr) ast.Expr {
	open := p.nextToken()
	args, trailing, closeTok := parseDelimited(p, open, func() ast.Expr {
		return p.parseExpression(precLowest)
	})
	span := mergeSpan(left.Span(), closeTok.Span)
	if open.Bracket.Kind == lexer.Bracket && len(args) == 1 && !trailing {
		return ast.NewIndexExpr(left, args[0], open.Bracket.Kind, span)
	}
	return ast.NewCallExpr(left, args, open.Bracket.Kind, span)
}

// parseBracketed parses a bracket in prefix position: a grouping when it
// holds one element without a comma, otherwise a collection literal whose
// kind follows from the glyph and the presence of `key: value` entries.
func (p *Parser) parseBracketed() ast.Expr {
	open := p.nextToken()
	kind := open.Bracket.Kind

	if p.curIs(lexer.CLOSE) {
		closeTok := p.expectClose(open)
		span := mergeSpan(open.Span, closeTok.Span)
		switch kind {
		case lexer.Paren:
			return ast.NewCollectionLit(ast.TupleLit, nil, nil, kind, span)
		case lexer.Brace:
			return ast.NewCollectionLit(ast.DictLit, nil, nil, kind, span)
		default:
			return ast.NewCollectionLit(ast.ListLit, nil, nil, kind, span)
		}
	}

	first := p.parseExpression(precLowest)
	if p.curIs(lexer.COLON) {
		if kind != lexer.Brace {
			p.failUnexpected("non-dict bracket")
		}
		return p.parseDictRest(open, first)
	}

	items := []ast.Expr{first}
	comma := false
	for p.curIs(lexer.COMMA) {
		comma = true
		p.nextToken()
		if p.curIs(lexer.CLOSE) {
			break
		}
		items = append(items, p.parseExpression(precLowest))
	}
	closeTok := p.expectClose(open)
	span := mergeSpan(open.Span, closeTok.Span)

	if !comma {
		return first
	}
	switch kind {
	case lexer.Paren:
		return ast.NewCollectionLit(ast.TupleLit, items, nil, kind, span)
	case lexer.Brace:
		return ast.NewCollectionLit(ast.SetLit, items, nil, kind, span)
	default:
		return ast.NewCollectionLit(ast.ListLit, items, nil, kind, span)
	}
}

func (p *Parser) parseDictRest(open lexer.Token, firstKey ast.Expr) ast.Expr {
	var entries []*ast.KeyValue
	key := firstKey
	for {
		p.expect(lexer.COLON, "`:` in dict entry")
		value := p.parseExpression(precLowest)
		entries = append(entries, ast.NewKeyValue(key, value, mergeSpan(key.Span(), value.Span())))
		if !p.curIs(lexer.COMMA) {
			break
		}
		p.nextToken()
		if p.curIs(lexer.CLOSE) {
			break
		}
		key = p.parseExpression(precLowest)
	}
	closeTok := p.expectClose(open)
	return ast.NewCollectionLit(ast.DictLit, nil, entries, open.Bracket.Kind, mergeSpan(open.Span, closeTok.Span))
}

// parseAnnotatedExpr parses @name in expression position. Type
// constructors and statistic functions take call arguments; ownership
// annotations wrap the following operand; scope annotations are only legal
// before a declaration.
func (p *Parser) parseAnnotatedExpr() ast.Expr {
	annot := p.parseAnnotation()
	switch annot.Kind {
	case ast.AnnotOwnership:
		mode := map[string]ast.Ownership{"own": ast.Own, "ref": ast.Ref, "copy": ast.Copy, "move": ast.Move}[annot.Name]
		value := p.parseExpression(precUnary)
		return ast.NewOwnershipExpr(mode, value, mergeSpan(annot.Span(), value.Span()))
	case ast.AnnotTypeCtor, ast.AnnotStat:
		if !p.curIs(lexer.OPEN) {
			p.fail(ErrInvalidAnnotation,
				fmt.Sprintf("@%s is a %s annotation and must be applied to arguments", annot.Name, annot.Kind),
				annot.Span())
		}
		open := p.nextToken()
		args, _, closeTok := parseDelimited(p, open, func() ast.Expr {
			return p.parseExpression(precLowest)
		})
		return ast.NewAnnotatedExpr(annot, args, mergeSpan(annot.Span(), closeTok.Span))
	}
	p.fail(ErrInvalidAnnotation,
		fmt.Sprintf("@%s is a %s annotation and is only allowed before a declaration", annot.Name, annot.Kind),
		annot.Span())
	return nil
}

// parseAnnotation consumes `@name` and resolves it to a tagged annotation.
func (p *Parser) parseAnnotation() *ast.Annotation {
	at := p.expect(lexer.AT, "`@`")
	nameTok := p.curTok
	name := nameTok.Raw
	switch nameTok.Type {
	case lexer.IDENT, lexer.OWN, lexer.REF, lexer.COPY, lexer.MOVE:
	default:
		p.failExpected("annotation name after `@`")
	}
	p.nextToken()
	span := mergeSpan(at.Span, nameTok.Span)
	annot, ok := ast.LookupAnnotation(name, span)
	if !ok {
		p.fail(ErrInvalidAnnotation, fmt.Sprintf("unknown annotation @%s", name), span)
	}
	return annot
}

// parseDelimited parses comma separated items up to the bracket closing
// open. It reports whether the list ended with a trailing comma.
func parseDelimited[T any](p *Parser, open lexer.Token, parseItem func() T) (items []T, trailing bool, closeTok lexer.Token) {
	for !p.curIs(lexer.CLOSE) {
		items = append(items, parseItem())
		if !p.curIs(lexer.COMMA) {
			break
		}
		p.nextToken()
		trailing = true
		if p.curIs(lexer.CLOSE) {
			break
		}
		trailing = false
	}
	closeTok = p.expectClose(open)
	return items, trailing, closeTok
}

// parseIntLiteral accepts decimal, 0x and 0b literals. A leading zero does
// not select octal.
func parseIntLiteral(s string) (int64, error) {
	if len(s) > 2 && s[0] == '0' {
		switch s[1] {
		case 'x', 'X':
			return strconv.ParseInt(s[2:], 16, 64)
		case 'b', 'B':
			return strconv.ParseInt(s[2:], 2, 64)
		}
	}
	return strconv.ParseInt(s, 10, 64)
}
