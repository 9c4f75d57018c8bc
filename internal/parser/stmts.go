package parser

import (
	"fmt"

	"github.com/gul-lang/gul-lang/internal/ast"
	"github.com/gul-lang/gul-lang/internal/lexer"
)

func (p *Parser) parseStatement() ast.Stmt {
	switch p.curTok.Type {
	case lexer.LET, lexer.VAR, lexer.CONST:
		return p.parseVarDecl(nil)
	case lexer.AT:
		if p.peekTokenAt(1).Type == lexer.IDENT && isScopeAnnotation(p.peekTokenAt(1).Raw) {
			annot := p.parseAnnotation()
			switch p.curTok.Type {
			case lexer.LET, lexer.VAR, lexer.CONST:
				return p.parseVarDecl(annot)
			}
			p.fail(ErrInvalidAnnotation,
				fmt.Sprintf("@%s must be followed by let, var or const", annot.Name), annot.Span())
		}
	case lexer.FN:
		return p.parseFnDecl()
	case lexer.ASYNC:
		if p.peekTok.Type != lexer.FN {
			p.nextToken()
			p.failExpected("`fn` after `async`")
		}
		return p.parseFnDecl()
	case lexer.STRUCT:
		return p.parseStructDecl()
	case lexer.IF:
		return p.parseIfStmt()
	case lexer.WHILE:
		return p.parseWhileStmt()
	case lexer.FOR:
		return p.parseForStmt()
	case lexer.LOOP:
		tok := p.nextToken()
		body := p.parseBlock()
		return ast.NewLoopStmt(body, mergeSpan(tok.Span, body.Span()))
	case lexer.MATCH:
		return p.parseMatchStmt()
	case lexer.TRY:
		return p.parseTryStmt()
	case lexer.IMPORT:
		return p.parseImportStmt()
	case lexer.EXTERN:
		return p.parseExternBlock()
	case lexer.RETURN:
		tok := p.nextToken()
		var value ast.Expr
		span := tok.Span
		if !p.atStatementEnd() {
			value = p.parseExpression(precLowest)
			span = mergeSpan(span, value.Span())
		}
		p.endStatement()
		return ast.NewReturnStmt(value, span)
	case lexer.THROW:
		tok := p.nextToken()
		value := p.parseExpression(precLowest)
		p.endStatement()
		return ast.NewThrowStmt(value, mergeSpan(tok.Span, value.Span()))
	case lexer.BREAK:
		tok := p.nextToken()
		p.endStatement()
		return ast.NewBreakStmt(tok.Span)
	case lexer.CONTINUE:
		tok := p.nextToken()
		p.endStatement()
		return ast.NewContinueStmt(tok.Span)
	case lexer.PASS:
		tok := p.nextToken()
		p.endStatement()
		return ast.NewPassStmt(tok.Span)
	case lexer.ASSERT:
		return p.parseAssertStmt()
	case lexer.INDENT:
		p.fail(ErrUnexpectedToken, "unexpected indent", p.curTok.Span)
	}
	return p.parseSimpleStatement()
}

func isScopeAnnotation(name string) bool {
	switch name {
	case "global", "static", "local":
		return true
	}
	return false
}

// parseSimpleStatement parses an expression statement or an assignment.
// Assignment to a plain name is recognized by peeking one token ahead;
// assignment to a member or index target is recognized after the target
// expression has been parsed.
func (p *Parser) parseSimpleStatement() ast.Stmt {
	if p.curIs(lexer.IDENT) && isAssignOp(p.peekTok.Type) {
		nameTok := p.nextToken()
		target := ast.NewIdent(nameTok.Value, nameTok.Span)
		return p.finishAssign(target)
	}

	expr := p.parseExpression(precLowest)
	if isAssignOp(p.curTok.Type) {
		switch expr.(type) {
		case *ast.Ident, *ast.MemberExpr, *ast.IndexExpr:
			return p.finishAssign(expr)
		}
		p.fail(ErrUnexpectedToken, "cannot assign to this expression", expr.Span())
	}
	p.endStatement()
	return ast.NewExprStmt(expr, expr.Span())
}

func isAssignOp(t lexer.TokenType) bool {
	switch t {
	case lexer.ASSIGN, lexer.PLUS_ASSIGN, lexer.MINUS_ASSIGN, lexer.STAR_ASSIGN, lexer.SLASH_ASSIGN:
		return true
	}
	return false
}

func (p *Parser) finishAssign(target ast.Expr) ast.Stmt {
	op := p.nextToken()
	value := p.parseExpression(precLowest)
	p.endStatement()
	return ast.NewAssignStmt(target, op.Type, value, mergeSpan(target.Span(), value.Span()))
}

// parseBlock parses `: NEWLINE INDENT stmts DEDENT`, or a single line of
// `;`-separated simple statements after the colon.
func (p *Parser) parseBlock() *ast.Block {
	colon := p.expect(lexer.COLON, "`:` before block")
	p.enter()
	defer p.leave()

	if !p.curIs(lexer.NEWLINE) {
		var stmts []ast.Stmt
		stmts = append(stmts, p.parseStatement())
		// Further statements on the same line follow a `;`.
		for p.prevTok().Type == lexer.SEMICOLON && !p.atStatementEnd() {
			stmts = append(stmts, p.parseStatement())
		}
		if p.curIs(lexer.NEWLINE) {
			p.nextToken()
		}
		return ast.NewBlock(stmts, mergeSpan(colon.Span, stmts[len(stmts)-1].Span()))
	}

	p.nextToken() // NEWLINE
	if !p.curIs(lexer.INDENT) {
		p.failExpected("indented block")
	}
	p.nextToken()

	span := colon.Span
	var stmts []ast.Stmt
	for {
		p.skipSeparators()
		if p.curIs(lexer.DEDENT) || p.curIs(lexer.EOF) {
			break
		}
		if stmt := p.parseStatementRecover(); stmt != nil {
			stmts = append(stmts, stmt)
			span = mergeSpan(span, stmt.Span())
		}
	}
	if p.curIs(lexer.DEDENT) {
		p.nextToken()
	}
	return ast.NewBlock(stmts, span)
}

func (p *Parser) parseVarDecl(scope *ast.Annotation) ast.Stmt {
	kw := p.nextToken()
	start := kw.Span
	if scope != nil {
		start = scope.Span()
	}
	nameTok := p.expect(lexer.IDENT, "variable name")
	name := ast.NewIdent(nameTok.Value, nameTok.Span)

	var typ ast.TypeExpr
	if p.curIs(lexer.COLON) {
		p.nextToken()
		typ = p.parseType()
	}

	var init ast.Expr
	span := mergeSpan(start, nameTok.Span)
	if p.curIs(lexer.ASSIGN) {
		p.nextToken()
		init = p.parseExpression(precLowest)
		span = mergeSpan(span, init.Span())
	} else if kw.Type != lexer.VAR {
		p.failExpected(fmt.Sprintf("`=` after %s %s", kw.Raw, nameTok.Value))
	} else if typ == nil {
		p.failExpected("type or initializer")
	}
	p.endStatement()

	decl := ast.NewVarDecl(name, kw.Type == lexer.VAR, kw.Type == lexer.CONST, typ, init, span)
	decl.Scope = scope
	return decl
}

func (p *Parser) parseIfStmt() ast.Stmt {
	tok := p.nextToken() // if or elif
	cond := p.parseExpression(precLowest)
	then := p.parseBlock()
	span := mergeSpan(tok.Span, then.Span())

	var els *ast.Block
	switch p.curTok.Type {
	case lexer.ELIF:
		nested := p.parseIfStmt()
		els = ast.NewBlock([]ast.Stmt{nested}, nested.Span())
	case lexer.ELSE:
		p.nextToken()
		if p.curIs(lexer.IF) {
			nested := p.parseIfStmt()
			els = ast.NewBlock([]ast.Stmt{nested}, nested.Span())
		} else {
			els = p.parseBlock()
		}
	}
	if els != nil {
		span = mergeSpan(span, els.Span())
	}
	return ast.NewIfStmt(cond, then, els, span)
}

func (p *Parser) parseWhileStmt() ast.Stmt {
	tok := p.nextToken()
	cond := p.parseExpression(precLowest)
	body := p.parseBlock()
	return ast.NewWhileStmt(cond, body, mergeSpan(tok.Span, body.Span()))
}

func (p *Parser) parseForStmt() ast.Stmt {
	tok := p.nextToken()
	nameTok := p.expect(lexer.IDENT, "loop variable")
	p.expect(lexer.IN, "`in`")
	iter := p.parseExpression(precLowest)
	body := p.parseBlock()
	return ast.NewForStmt(ast.NewIdent(nameTok.Value, nameTok.Span), iter, body, mergeSpan(tok.Span, body.Span()))
}

func (p *Parser) parseTryStmt() ast.Stmt {
	tok := p.nextToken()
	body := p.parseBlock()
	span := mergeSpan(tok.Span, body.Span())

	var catchVar *ast.Ident
	var catch, finally *ast.Block
	if p.curIs(lexer.CATCH) {
		p.nextToken()
		if p.curIs(lexer.IDENT) {
			v := p.nextToken()
			catchVar = ast.NewIdent(v.Value, v.Span)
		}
		catch = p.parseBlock()
		span = mergeSpan(span, catch.Span())
	}
	if p.curIs(lexer.FINALLY) {
		p.nextToken()
		finally = p.parseBlock()
		span = mergeSpan(span, finally.Span())
	}
	if catch == nil && finally == nil {
		p.failExpected("`catch` or `finally` after try block")
	}
	return ast.NewTryStmt(body, catchVar, catch, finally, span)
}

func (p *Parser) parseAssertStmt() ast.Stmt {
	tok := p.nextToken()
	cond := p.parseExpression(precLowest)
	span := mergeSpan(tok.Span, cond.Span())
	var msg ast.Expr
	if p.curIs(lexer.COMMA) {
		p.nextToken()
		msg = p.parseExpression(precLowest)
		span = mergeSpan(span, msg.Span())
	}
	p.endStatement()
	return ast.NewAssertStmt(cond, msg, span)
}

// parseMatchStmt parses `match subject:` followed by an indented list of
// arms. Arm order is preserved.
func (p *Parser) parseMatchStmt() ast.Stmt {
	tok := p.nextToken()
	subject := p.parseExpression(precLowest)
	p.expect(lexer.COLON, "`:` after match subject")
	p.expect(lexer.NEWLINE, "newline after `match ...:`")
	if !p.curIs(lexer.INDENT) {
		p.failExpected("indented match arms")
	}
	p.nextToken()

	span := tok.Span
	var arms []*ast.MatchArm
	for {
		p.skipSeparators()
		if p.curIs(lexer.DEDENT) || p.curIs(lexer.EOF) {
			break
		}
		if arm := p.parseMatchArmRecover(); arm != nil {
			arms = append(arms, arm)
			span = mergeSpan(span, arm.Span())
		}
	}
	if p.curIs(lexer.DEDENT) {
		p.nextToken()
	}
	return ast.NewMatchStmt(subject, arms, span)
}

func (p *Parser) parseMatchArmRecover() (arm *ast.MatchArm) {
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
		arm = nil
	}()

	pat := p.parsePattern()
	var guard ast.Expr
	if p.curIs(lexer.IF) {
		p.nextToken()
		guard = p.parseExpression(precLowest)
	}

	var body *ast.Block
	if p.curIs(lexer.FATARROW) {
		arrow := p.nextToken()
		stmt := p.parseStatement()
		body = ast.NewBlock([]ast.Stmt{stmt}, mergeSpan(arrow.Span, stmt.Span()))
	} else {
		body = p.parseBlock()
	}
	return ast.NewMatchArm(pat, guard, body, mergeSpan(pat.Span(), body.Span()))
}
