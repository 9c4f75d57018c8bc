package types

import (
	"fmt"

	"github.com/gul-lang/gul-lang/internal/ast"
	"github.com/gul-lang/gul-lang/internal/diag"
	"github.com/gul-lang/gul-lang/internal/lexer"
)

// checkStmts checks a statement list in the current scope. Statements after
// an unconditional return, break, continue or throw are still checked but
// reported once as unreachable.
func (c *Checker) checkStmts(stmts []ast.Stmt) {
	terminated, reported := false, false
	for _, stmt := range stmts {
		if terminated {
			c.info.Unreachable[stmt] = true
			if !reported {
				reported = true
				c.reportWarning(diag.CodeSemUnreachableCode, "unreachable code", stmt.Span())
			}
		}
		c.checkStmt(stmt)
		switch stmt.(type) {
		case *ast.ReturnStmt, *ast.BreakStmt, *ast.ContinueStmt, *ast.ThrowStmt:
			terminated = true
		}
	}
}

// checkBlock checks a nested block in its own scope.
func (c *Checker) checkBlock(block *ast.Block, kind ScopeKind) {
	if block == nil {
		return
	}
	c.withScope(kind, func() {
		c.collectDecls(block.Stmts)
		c.checkStmts(block.Stmts)
	})
}

func (c *Checker) checkLoopBody(block *ast.Block, bind func()) {
	c.loops++
	defer func() { c.loops-- }()
	c.withScope(ScopeLoop, func() {
		if bind != nil {
			bind()
		}
		c.collectDecls(block.Stmts)
		c.checkStmts(block.Stmts)
	})
}

func (c *Checker) checkStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.VarDecl:
		c.checkVarDecl(s)
	case *ast.FnDecl:
		c.checkFnDecl(s)
	case *ast.StructDecl:
		c.checkStructDecl(s)
	case *ast.IfStmt:
		c.checkCond(s.Cond)
		c.branches(
			func() { c.checkBlock(s.Then, ScopeBlock) },
			func() { c.checkBlock(s.Else, ScopeBlock) },
		)
	case *ast.WhileStmt:
		c.checkCond(s.Cond)
		c.checkLoopBody(s.Body, nil)
	case *ast.ForStmt:
		elem := c.elementType(c.checkExpr(s.Iter), s.Iter.Span())
		c.checkLoopBody(s.Body, func() {
			sym := c.newSymbol(s.Var.Name, SymVar, elem, s.Var)
			c.declare(c.scope, sym, s.Var)
		})
	case *ast.LoopStmt:
		c.checkLoopBody(s.Body, nil)
	case *ast.MatchStmt:
		c.checkMatch(s)
	case *ast.TryStmt:
		c.branches(
			func() { c.checkBlock(s.Body, ScopeBlock) },
			func() {
				if s.Catch == nil {
					return
				}
				c.withScope(ScopeBlock, func() {
					if s.CatchVar != nil {
						c.declare(c.scope, c.newSymbol(s.CatchVar.Name, SymVar, TypeAny, s.CatchVar), s.CatchVar)
					}
					c.collectDecls(s.Catch.Stmts)
					c.checkStmts(s.Catch.Stmts)
				})
			},
		)
		c.checkBlock(s.Finally, ScopeBlock)
	case *ast.ThrowStmt:
		c.checkExpr(s.Value)
	case *ast.ReturnStmt:
		c.checkReturn(s)
	case *ast.BreakStmt:
		if c.loops == 0 {
			c.reportError(diag.CodeSemBreakOutsideLoop, "`break` outside of a loop", s.Span())
		}
	case *ast.ContinueStmt:
		if c.loops == 0 {
			c.reportError(diag.CodeSemBreakOutsideLoop, "`continue` outside of a loop", s.Span())
		}
	case *ast.PassStmt:
	case *ast.AssertStmt:
		c.checkCond(s.Cond)
		if s.Message != nil {
			c.checkExpr(s.Message)
		}
	case *ast.AssignStmt:
		c.checkAssign(s)
	case *ast.ImportStmt:
		for _, item := range s.Items {
			sym := c.newSymbol(item.Binding(), SymImport, TypeAny, item)
			c.declare(c.scope, sym, item)
		}
	case *ast.ExternBlock:
		c.checkExtern(s)
	case *ast.ExprStmt:
		c.checkExpr(s.Expr)
	default:
		c.reportError(diag.CodeSemInternal, fmt.Sprintf("unhandled statement %T", stmt), stmt.Span())
	}
}

func (c *Checker) checkVarDecl(s *ast.VarDecl) {
	before, poisonBefore := c.errorCount(), c.poisonUses

	var declared Type
	if s.Type != nil {
		declared = c.resolveType(s.Type)
	}
	var typ Type = declared
	if s.Init != nil {
		initType := c.checkExpr(s.Init)
		if declared != nil && !AssignableTo(initType, declared) {
			c.reportMismatch(declared, initType, s.Init.Span())
		}
		if declared == nil {
			typ = initType
		}
	}
	if typ == nil {
		typ = TypeAny
	}
	if ContainsUnknown(typ) && c.errorCount() == before && c.poisonUses == poisonBefore {
		c.reportError(diag.CodeSemInternal,
			fmt.Sprintf("type of `%s` could not be inferred", s.Name.Name), s.Span())
	}
	if c.errorCount() > before && declared == nil {
		// A failed initializer poisons the binding.
		typ = TypeUnknown
	}

	sym := c.newSymbol(s.Name.Name, SymVar, typ, s)
	sym.Mutable = s.Mutable
	if own, ok := s.Init.(*ast.OwnershipExpr); ok {
		switch own.Mode {
		case ast.Ref:
			sym.State = Borrowed
		case ast.Copy:
			sym.State = Copied
		}
	}

	scope := c.scope
	if s.Scope != nil && (s.Scope.Name == "global" || s.Scope.Name == "static") {
		scope = c.GlobalScope
	}
	c.declare(scope, sym, s)
}

func (c *Checker) checkFnDecl(s *ast.FnDecl) {
	sym := c.info.Defs[s]
	if sym == nil {
		// Not collected: a redeclaration that was already reported.
		return
	}
	sig := sym.Type.(*Function)
	c.checkFnBody(s, sig, nil)
}

// checkFnBody checks a function or method body. self, when set, is bound
// to the first parameter.
func (c *Checker) checkFnBody(s *ast.FnDecl, sig *Function, self Type) {
	savedLoops := c.loops
	c.loops = 0
	c.frames = append(c.frames, frame{async: s.Async, ret: sig.Return, hasRet: s.ReturnType != nil})
	defer func() {
		c.frames = c.frames[:len(c.frames)-1]
		c.loops = savedLoops
	}()

	c.withScope(ScopeFunction, func() {
		c.currentFrame().scope = c.scope.ID
		params := s.Params
		if self != nil && len(params) > 0 && params[0].Name.Name == "self" {
			p := params[0]
			selfSym := c.newSymbol("self", SymParam, self, p)
			selfSym.State = paramState(p.Mode)
			c.declare(c.scope, selfSym, p)
			params = params[1:]
		}
		for i, p := range params {
			psym := c.newSymbol(p.Name.Name, SymParam, sig.param(i), p)
			psym.State = paramState(p.Mode)
			psym.Mutable = p.Mode == ast.Own || p.Mode == ast.Move
			c.declare(c.scope, psym, p)
		}
		c.collectDecls(s.Body.Stmts)
		c.checkStmts(s.Body.Stmts)
	})
}

func paramState(mode ast.Ownership) OwnershipState {
	switch mode {
	case ast.Ref:
		return Borrowed
	case ast.Copy:
		return Copied
	}
	return Owned
}

func (c *Checker) checkStructDecl(s *ast.StructDecl) {
	sym := c.info.Defs[s]
	if sym == nil {
		return
	}
	st := sym.Type.(*Struct)
	seen := make(map[string]bool)
	for _, f := range s.Fields {
		if seen[f.Name.Name] {
			c.reportError(diag.CodeSemRedeclared, fmt.Sprintf("duplicate field `%s`", f.Name.Name), f.Name.Span())
		}
		seen[f.Name.Name] = true
	}
	for _, m := range s.Methods {
		if seen[m.Name.Name] {
			c.reportError(diag.CodeSemRedeclared, fmt.Sprintf("`%s` is already a member of %s", m.Name.Name, st.Name), m.Name.Span())
		}
		seen[m.Name.Name] = true
		c.checkFnBody(m, st.Methods[m.Name.Name], st)
	}
}

// checkCond checks an expression used as a condition.
func (c *Checker) checkCond(e ast.Expr) {
	t := c.checkExpr(e)
	if !AssignableTo(t, TypeBool) {
		c.reportMismatch(TypeBool, t, e.Span())
	}
}

func (c *Checker) checkReturn(s *ast.ReturnStmt) {
	f := c.currentFrame()
	if s.Value == nil {
		if f != nil && f.hasRet && !isPrim(f.ret, Unit) && !isLoose(f.ret) {
			c.reportError(diag.CodeSemTypeMismatch,
				fmt.Sprintf("missing return value, expected %s", f.ret), s.Span())
		}
		return
	}
	t := c.checkExpr(s.Value)
	if f != nil && f.hasRet && !AssignableTo(t, f.ret) {
		c.reportMismatch(f.ret, t, s.Value.Span())
	}
}

func (c *Checker) checkAssign(s *ast.AssignStmt) {
	var targetType Type
	switch target := s.Target.(type) {
	case *ast.Ident:
		sym := c.scope.Lookup(target.Name)
		if sym == nil {
			c.reportUndefined(target)
			c.poison(target.Name)
			c.checkExpr(s.Value)
			return
		}
		c.info.Uses[target] = sym
		c.info.Types[target] = sym.Type
		if c.captured(sym) {
			c.reportCapture(target, sym)
		}
		if !sym.Mutable && !sym.Poisoned() {
			c.report(diag.Diagnostic{
				Code:    diag.CodeSemAssignImmutable,
				Message: fmt.Sprintf("cannot assign twice to immutable binding `%s`", target.Name),
				Span:    toDiagSpan(target.Span()),
			}.WithHelp(fmt.Sprintf("declare it with `var %s` to make it mutable", target.Name)))
		}
		targetType = sym.Type
	default:
		// Member and index targets mutate the referenced value, not the
		// binding.
		targetType = c.checkExpr(s.Target)
	}

	valueType := c.checkExpr(s.Value)
	if s.Op != lexer.ASSIGN {
		valueType = c.binaryResult(compoundOp(s.Op), targetType, valueType, s.Span())
	}
	if !AssignableTo(valueType, targetType) {
		c.reportMismatch(targetType, valueType, s.Value.Span())
	}
}

func compoundOp(op lexer.TokenType) lexer.TokenType {
	switch op {
	case lexer.PLUS_ASSIGN:
		return lexer.PLUS
	case lexer.MINUS_ASSIGN:
		return lexer.MINUS
	case lexer.STAR_ASSIGN:
		return lexer.ASTERISK
	case lexer.SLASH_ASSIGN:
		return lexer.SLASH
	}
	return op
}

func (c *Checker) checkMatch(s *ast.MatchStmt) {
	subject := c.checkExpr(s.Subject)
	arms := make([]func(), len(s.Arms))
	for i, arm := range s.Arms {
		arms[i] = func() {
			c.withScope(ScopeBlock, func() {
				c.bindPattern(arm.Pattern, subject)
				if arm.Guard != nil {
					c.checkCond(arm.Guard)
				}
				c.collectDecls(arm.Body.Stmts)
				c.checkStmts(arm.Body.Stmts)
			})
		}
	}
	c.branches(arms...)
}

// bindPattern declares the bindings of p against a value of type t.
func (c *Checker) bindPattern(p ast.Pattern, t Type) {
	switch p := p.(type) {
	case *ast.WildcardPattern:
	case *ast.BindingPattern:
		c.declare(c.scope, c.newSymbol(p.Name.Name, SymVar, t, p), p)
	case *ast.LiteralPattern:
		lt := c.checkExpr(p.Value)
		if !AssignableTo(lt, t) && !AssignableTo(t, lt) {
			c.reportMismatch(t, lt, p.Span())
		}
	case *ast.TuplePattern:
		switch tt := t.(type) {
		case *Tuple:
			if len(tt.Elems) != len(p.Elems) {
				c.reportError(diag.CodeSemTypeMismatch,
					fmt.Sprintf("pattern has %d elements, but %s has %d", len(p.Elems), t, len(tt.Elems)), p.Span())
			}
			for i, e := range p.Elems {
				var et Type = TypeUnknown
				if i < len(tt.Elems) {
					et = tt.Elems[i]
				}
				c.bindPattern(e, et)
			}
		default:
			if !isLoose(t) {
				c.reportMismatch(&Tuple{}, t, p.Span())
			}
			for _, e := range p.Elems {
				c.bindPattern(e, TypeAny)
			}
		}
	case *ast.ListPattern:
		elem := Type(TypeAny)
		switch lt := t.(type) {
		case *List:
			elem = lt.Elem
		default:
			if !isLoose(t) {
				c.reportMismatch(&List{Elem: TypeAny}, t, p.Span())
			}
		}
		for _, e := range p.Elems {
			c.bindPattern(e, elem)
		}
	}
}

func (c *Checker) checkExtern(s *ast.ExternBlock) {
	if !c.languages[s.Language] {
		c.reportWarning(diag.CodeSemUnknownLanguage,
			fmt.Sprintf("unknown foreign language %q; the block is passed through unchecked", s.Language), s.Span())
	}
	for _, sig := range s.Signatures {
		fn := c.signature(sig.Params, sig.ReturnType, false)
		if sig.ReturnType == nil {
			fn.Return = TypeUnit
		}
		c.declare(c.scope, c.newSymbol(sig.Name.Name, SymExtern, fn, sig), sig)
	}
}

// poison declares name as Unknown in the current scope so later uses are
// not reported again.
func (c *Checker) poison(name string) {
	c.scope.Insert(c.newSymbol(name, SymVar, TypeUnknown, nil))
}
