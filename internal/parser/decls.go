package parser

import (
	"strings"

	"github.com/gul-lang/gul-lang/internal/ast"
	"github.com/gul-lang/gul-lang/internal/lexer"
)

// parseFnDecl parses `[async] fn name(params) [-> type]: block`.
func (p *Parser) parseFnDecl() *ast.FnDecl {
	start := p.curTok.Span
	async := false
	if p.curIs(lexer.ASYNC) {
		async = true
		p.nextToken()
	}
	p.expect(lexer.FN, "`fn`")
	nameTok := p.expect(lexer.IDENT, "function name")

	open := p.expectOpen("parameter list")
	params, _, _ := parseDelimited(p, open, p.parseParam)

	var ret ast.TypeExpr
	if p.curIs(lexer.ARROW) {
		p.nextToken()
		ret = p.parseType()
	}
	body := p.parseBlock()
	return ast.NewFnDecl(ast.NewIdent(nameTok.Value, nameTok.Span), params, ret, body, async, mergeSpan(start, body.Span()))
}

// parseParam parses `[own|ref|copy|move] name [: type]`.
func (p *Parser) parseParam() *ast.Param {
	start := p.curTok.Span
	mode, ok := ast.OwnershipFromToken(p.curTok.Type)
	if ok {
		p.nextToken()
	}
	nameTok := p.expect(lexer.IDENT, "parameter name")
	span := mergeSpan(start, nameTok.Span)
	var typ ast.TypeExpr
	if p.curIs(lexer.COLON) {
		p.nextToken()
		typ = p.parseType()
		span = mergeSpan(span, typ.Span())
	}
	return ast.NewParam(ast.NewIdent(nameTok.Value, nameTok.Span), typ, mode, span)
}

// parseStructDecl parses a struct whose indented body holds `name: type`
// fields and method declarations.
func (p *Parser) parseStructDecl() ast.Stmt {
	tok := p.nextToken()
	nameTok := p.expect(lexer.IDENT, "struct name")
	p.expect(lexer.COLON, "`:` after struct name")
	p.expect(lexer.NEWLINE, "newline after struct header")
	if !p.curIs(lexer.INDENT) {
		p.failExpected("indented struct body")
	}
	p.nextToken()

	var fields []*ast.Field
	var methods []*ast.FnDecl
	span := mergeSpan(tok.Span, nameTok.Span)
	for {
		p.skipSeparators()
		if p.curIs(lexer.DEDENT) || p.curIs(lexer.EOF) {
			break
		}
		member := p.parseStatementRecoverWith(p.parseStructMember)
		switch m := member.(type) {
		case *ast.Field:
			fields = append(fields, m)
			span = mergeSpan(span, m.Span())
		case *ast.FnDecl:
			methods = append(methods, m)
			span = mergeSpan(span, m.Span())
		}
	}
	if p.curIs(lexer.DEDENT) {
		p.nextToken()
	}
	return ast.NewStructDecl(ast.NewIdent(nameTok.Value, nameTok.Span), fields, methods, span)
}

func (p *Parser) parseStructMember() ast.Node {
	switch p.curTok.Type {
	case lexer.FN, lexer.ASYNC:
		return p.parseFnDecl()
	case lexer.PASS:
		p.nextToken()
		p.endStatement()
		return nil
	}
	nameTok := p.expect(lexer.IDENT, "field or method")
	p.expect(lexer.COLON, "`:` after field name")
	typ := p.parseType()
	p.endStatement()
	return ast.NewField(ast.NewIdent(nameTok.Value, nameTok.Span), typ, mergeSpan(nameTok.Span, typ.Span()))
}

// parseStatementRecoverWith runs parse with statement-level recovery.
func (p *Parser) parseStatementRecoverWith(parse func() ast.Node) (n ast.Node) {
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
		n = nil
	}()
	return parse()
}

// parseImportStmt normalizes every import form to (path, alias) pairs:
//
//	import a.b
//	import a.b as c, d
//	import {a, b as c}
func (p *Parser) parseImportStmt() ast.Stmt {
	tok := p.nextToken()
	var items []*ast.ImportItem
	span := tok.Span
	if p.curIs(lexer.OPEN) {
		open := p.nextToken()
		var closeTok lexer.Token
		items, _, closeTok = parseDelimited(p, open, p.parseImportItem)
		span = mergeSpan(span, closeTok.Span)
	} else {
		for {
			item := p.parseImportItem()
			items = append(items, item)
			span = mergeSpan(span, item.Span())
			if !p.curIs(lexer.COMMA) {
				break
			}
			p.nextToken()
		}
	}
	p.endStatement()
	return ast.NewImportStmt(items, span)
}

func (p *Parser) parseImportItem() *ast.ImportItem {
	first := p.expect(lexer.IDENT, "module path")
	path := []string{first.Value}
	span := first.Span
	for p.curIs(lexer.DOT) {
		p.nextToken()
		seg := p.expect(lexer.IDENT, "module path segment")
		path = append(path, seg.Value)
		span = mergeSpan(span, seg.Span)
	}
	alias := ""
	if p.curIs(lexer.AS) {
		p.nextToken()
		a := p.expect(lexer.IDENT, "import alias")
		alias = a.Value
		span = mergeSpan(span, a.Span)
	}
	return ast.NewImportItem(strings.Join(path, "."), alias, span)
}

// parseExternBlock parses `extern <lang> { ... }`. The body arrives as one
// FOREIGN token and is never parsed by this grammar; only the declared
// signatures are extracted.
func (p *Parser) parseExternBlock() ast.Stmt {
	tok := p.nextToken()
	var lang lexer.Token
	switch p.curTok.Type {
	case lexer.IDENT, lexer.STRING:
		lang = p.nextToken()
	default:
		p.failExpected("foreign language name")
	}
	body := p.expect(lexer.FOREIGN, "`{` opening the foreign block")
	sigs := p.parseExternSignatures(body)
	p.endStatement()
	return ast.NewExternBlock(strings.ToLower(lang.Value), body.Value, sigs, mergeSpan(tok.Span, body.Span))
}

// parseType parses a type annotation: name, name[args], (T, U) or
// fn(T) -> R. Brackets of any kind may delimit arguments.
func (p *Parser) parseType() ast.TypeExpr {
	p.enter()
	defer p.leave()

	switch p.curTok.Type {
	case lexer.IDENT:
		nameTok := p.nextToken()
		span := nameTok.Span
		var args []ast.TypeExpr
		if p.curIs(lexer.OPEN) && p.curTok.Bracket.Kind == lexer.Bracket {
			open := p.nextToken()
			var closeTok lexer.Token
			args, _, closeTok = parseDelimited(p, open, p.parseType)
			span = mergeSpan(span, closeTok.Span)
		}
		return ast.NewNamedType(nameTok.Value, args, span)
	case lexer.OPEN:
		open := p.nextToken()
		elems, _, closeTok := parseDelimited(p, open, p.parseType)
		return ast.NewNamedType("tuple", elems, mergeSpan(open.Span, closeTok.Span))
	case lexer.FN:
		tok := p.nextToken()
		open := p.expectOpen("`(` after fn")
		params, _, closeTok := parseDelimited(p, open, p.parseType)
		span := mergeSpan(tok.Span, closeTok.Span)
		var ret ast.TypeExpr
		if p.curIs(lexer.ARROW) {
			p.nextToken()
			ret = p.parseType()
			span = mergeSpan(span, ret.Span())
		}
		return ast.NewFnType(params, ret, span)
	}
	p.failExpected("type")
	return nil
}

// parsePattern parses the restricted pattern grammar of match arms.
func (p *Parser) parsePattern() ast.Pattern {
	p.enter()
	defer p.leave()

	tok := p.curTok
	switch tok.Type {
	case lexer.IDENT:
		p.nextToken()
		if tok.Value == "_" {
			return ast.NewWildcardPattern(tok.Span)
		}
		return ast.NewBindingPattern(ast.NewIdent(tok.Value, tok.Span), tok.Span)
	case lexer.INT, lexer.FLOAT, lexer.UNIT_FLOAT, lexer.STRING, lexer.TRUE, lexer.FALSE, lexer.MINUS:
		value := p.parseExpression(precUnary)
		return ast.NewLiteralPattern(value, value.Span())
	case lexer.OPEN:
		open := p.nextToken()
		elems, trailing, closeTok := parseDelimited(p, open, p.parsePattern)
		span := mergeSpan(open.Span, closeTok.Span)
		switch open.Bracket.Kind {
		case lexer.Bracket:
			return ast.NewListPattern(elems, span)
		case lexer.Paren:
			if len(elems) == 1 && !trailing {
				return elems[0]
			}
			return ast.NewTuplePattern(elems, span)
		}
		p.fail(ErrUnexpectedToken, "braces cannot delimit a pattern", open.Span)
	}
	p.failExpected("pattern")
	return nil
}
