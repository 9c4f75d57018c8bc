package ast

import (
	"strings"
	"unicode"

	"github.com/gul-lang/gul-lang/internal/lexer"
)

// Print renders node as canonical source. Nested operator expressions are
// always parenthesized, so printing and re-parsing yields the same tree.
func Print(node Node) string {
	pr := &printer{}
	switch n := node.(type) {
	case *Program:
		pr.stmts(n.Stmts)
	case *Block:
		pr.stmts(n.Stmts)
	case Stmt:
		pr.stmt(n)
	case Expr:
		pr.expr(n)
	case Pattern:
		pr.pattern(n)
	case TypeExpr:
		pr.typ(n)
	}
	return pr.b.String()
}

type printer struct {
	b      strings.Builder
	indent int
}

func (pr *printer) w(parts ...string) {
	for _, s := range parts {
		pr.b.WriteString(s)
	}
}

func (pr *printer) line(parts ...string) {
	pr.b.WriteString(strings.Repeat("    ", pr.indent))
	pr.w(parts...)
}

func (pr *printer) stmts(stmts []Stmt) {
	for _, s := range stmts {
		pr.stmt(s)
	}
}

func (pr *printer) block(b *Block) {
	pr.w(":\n")
	pr.indent++
	if len(b.Stmts) == 0 {
		pr.line("pass\n")
	}
	pr.stmts(b.Stmts)
	pr.indent--
}

func (pr *printer) stmt(s Stmt) {
	switch s := s.(type) {
	case *VarDecl:
		pr.line()
		if s.Scope != nil {
			pr.w("@", s.Scope.Name, " ")
		}
		switch {
		case s.Const:
			pr.w("const ")
		case s.Mutable:
			pr.w("var ")
		default:
			pr.w("let ")
		}
		pr.w(s.Name.Name)
		if s.Type != nil {
			pr.w(": ")
			pr.typ(s.Type)
		}
		if s.Init != nil {
			pr.w(" = ")
			pr.expr(s.Init)
		}
		pr.w("\n")
	case *FnDecl:
		pr.fn(s)
	case *StructDecl:
		pr.line("struct ", s.Name.Name, ":\n")
		pr.indent++
		if len(s.Fields) == 0 && len(s.Methods) == 0 {
			pr.line("pass\n")
		}
		for _, f := range s.Fields {
			pr.line(f.Name.Name, ": ")
			pr.typ(f.Type)
			pr.w("\n")
		}
		for _, m := range s.Methods {
			pr.fn(m)
		}
		pr.indent--
	case *IfStmt:
		pr.line()
		pr.ifChain(s)
	case *WhileStmt:
		pr.line("while ")
		pr.expr(s.Cond)
		pr.block(s.Body)
	case *ForStmt:
		pr.line("for ", s.Var.Name, " in ")
		pr.expr(s.Iter)
		pr.block(s.Body)
	case *LoopStmt:
		pr.line("loop")
		pr.block(s.Body)
	case *MatchStmt:
		pr.line("match ")
		pr.expr(s.Subject)
		pr.w(":\n")
		pr.indent++
		for _, arm := range s.Arms {
			pr.line()
			pr.pattern(arm.Pattern)
			if arm.Guard != nil {
				pr.w(" if ")
				pr.expr(arm.Guard)
			}
			pr.block(arm.Body)
		}
		pr.indent--
	case *TryStmt:
		pr.line("try")
		pr.block(s.Body)
		if s.Catch != nil {
			pr.line("catch")
			if s.CatchVar != nil {
				pr.w(" ", s.CatchVar.Name)
			}
			pr.block(s.Catch)
		}
		if s.Finally != nil {
			pr.line("finally")
			pr.block(s.Finally)
		}
	case *ThrowStmt:
		pr.line("throw ")
		pr.expr(s.Value)
		pr.w("\n")
	case *ReturnStmt:
		pr.line("return")
		if s.Value != nil {
			pr.w(" ")
			pr.expr(s.Value)
		}
		pr.w("\n")
	case *BreakStmt:
		pr.line("break\n")
	case *ContinueStmt:
		pr.line("continue\n")
	case *PassStmt:
		pr.line("pass\n")
	case *AssertStmt:
		pr.line("assert ")
		pr.expr(s.Cond)
		if s.Message != nil {
			pr.w(", ")
			pr.expr(s.Message)
		}
		pr.w("\n")
	case *AssignStmt:
		pr.line()
		pr.expr(s.Target)
		pr.w(" ", string(s.Op), " ")
		pr.expr(s.Value)
		pr.w("\n")
	case *ImportStmt:
		pr.line("import ")
		for i, item := range s.Items {
			if i > 0 {
				pr.w(", ")
			}
			pr.w(item.Path)
			if item.Alias != "" {
				pr.w(" as ", item.Alias)
			}
		}
		pr.w("\n")
	case *ExternBlock:
		lang := s.Language
		if !isIdent(lang) {
			lang = Quote(lang)
		}
		pr.line("extern ", lang, " {", s.RawSource, "}\n")
	case *ExprStmt:
		pr.line()
		pr.expr(s.Expr)
		pr.w("\n")
	}
}

func (pr *printer) fn(f *FnDecl) {
	pr.line()
	if f.Async {
		pr.w("async ")
	}
	pr.w("fn ", f.Name.Name, "(")
	for i, p := range f.Params {
		if i > 0 {
			pr.w(", ")
		}
		if p.Mode != OwnNone {
			pr.w(p.Mode.String(), " ")
		}
		pr.w(p.Name.Name)
		if p.Type != nil {
			pr.w(": ")
			pr.typ(p.Type)
		}
	}
	pr.w(")")
	if f.ReturnType != nil {
		pr.w(" -> ")
		pr.typ(f.ReturnType)
	}
	pr.block(f.Body)
}

func (pr *printer) ifChain(s *IfStmt) {
	pr.w("if ")
	pr.expr(s.Cond)
	pr.block(s.Then)
	if s.Else == nil {
		return
	}
	if len(s.Else.Stmts) == 1 {
		if nested, ok := s.Else.Stmts[0].(*IfStmt); ok {
			pr.line("el")
			pr.ifChain(nested)
			return
		}
	}
	pr.line("else")
	pr.block(s.Else)
}

func (pr *printer) operand(e Expr) {
	switch e.(type) {
	case *BinaryExpr, *UnaryExpr, *AwaitExpr, *OwnershipExpr:
		pr.w("(")
		pr.expr(e)
		pr.w(")")
	default:
		pr.expr(e)
	}
}

func (pr *printer) exprList(items []Expr) {
	for i, e := range items {
		if i > 0 {
			pr.w(", ")
		}
		pr.expr(e)
	}
}

func (pr *printer) expr(e Expr) {
	switch e := e.(type) {
	case *Ident:
		pr.w(e.Name)
	case *IntLit:
		pr.w(e.Raw)
	case *FloatLit:
		pr.w(e.Raw)
	case *StringLit:
		pr.w(Quote(e.Value))
	case *BoolLit:
		if e.Value {
			pr.w("true")
		} else {
			pr.w("false")
		}
	case *TemplateLit:
		pr.w(`f"`)
		for i, part := range e.Parts {
			pr.w(escapeTemplate(part))
			if i < len(e.Exprs) {
				pr.w("{")
				pr.expr(e.Exprs[i])
				pr.w("}")
			}
		}
		pr.w(`"`)
	case *BinaryExpr:
		pr.operand(e.Left)
		pr.w(" ", string(e.Op), " ")
		pr.operand(e.Right)
	case *UnaryExpr:
		pr.w(string(e.Op))
		if e.Op == lexer.NOT {
			pr.w(" ")
		}
		pr.operand(e.Operand)
	case *CallExpr:
		pr.operand(e.Callee)
		pr.w(e.Bracket.Open())
		pr.exprList(e.Args)
		if e.Bracket == lexer.Bracket && len(e.Args) == 1 {
			// [x] alone would read back as an index
			pr.w(",")
		}
		pr.w(e.Bracket.Close())
	case *MemberExpr:
		pr.operand(e.Target)
		pr.w(".", e.Field.Name)
	case *IndexExpr:
		pr.operand(e.Target)
		pr.w("[")
		pr.expr(e.Index)
		pr.w("]")
	case *AwaitExpr:
		pr.w("await ")
		pr.operand(e.Value)
	case *OwnershipExpr:
		pr.w(e.Mode.String(), " ")
		pr.operand(e.Value)
	case *CollectionLit:
		open, close := e.Kind.glyphs()
		pr.w(open)
		if e.Kind == DictLit {
			for i, kv := range e.Entries {
				if i > 0 {
					pr.w(", ")
				}
				pr.expr(kv.Key)
				pr.w(": ")
				pr.expr(kv.Value)
			}
		} else {
			pr.exprList(e.Items)
			if len(e.Items) == 1 {
				pr.w(",")
			}
		}
		pr.w(close)
	case *AnnotatedExpr:
		pr.w("@", e.Annotation.Name, "(")
		pr.exprList(e.Args)
		pr.w(")")
	}
}

func (k CollectionKind) glyphs() (string, string) {
	switch k {
	case ListLit:
		return "[", "]"
	case TupleLit:
		return "(", ")"
	}
	return "{", "}"
}

func (pr *printer) pattern(p Pattern) {
	switch p := p.(type) {
	case *WildcardPattern:
		pr.w("_")
	case *BindingPattern:
		pr.w(p.Name.Name)
	case *LiteralPattern:
		pr.expr(p.Value)
	case *TuplePattern:
		pr.w("(")
		for i, e := range p.Elems {
			if i > 0 {
				pr.w(", ")
			}
			pr.pattern(e)
		}
		if len(p.Elems) == 1 {
			pr.w(",")
		}
		pr.w(")")
	case *ListPattern:
		pr.w("[")
		for i, e := range p.Elems {
			if i > 0 {
				pr.w(", ")
			}
			pr.pattern(e)
		}
		pr.w("]")
	}
}

func (pr *printer) typ(t TypeExpr) {
	switch t := t.(type) {
	case *NamedType:
		pr.w(t.Name)
		if len(t.Args) > 0 {
			pr.w("[")
			for i, a := range t.Args {
				if i > 0 {
					pr.w(", ")
				}
				pr.typ(a)
			}
			pr.w("]")
		}
	case *FnType:
		pr.w("fn(")
		for i, a := range t.Params {
			if i > 0 {
				pr.w(", ")
			}
			pr.typ(a)
		}
		pr.w(")")
		if t.Return != nil {
			pr.w(" -> ")
			pr.typ(t.Return)
		}
	}
}

// Quote renders s as a double-quoted literal using the escapes the lexer
// understands.
func Quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func isIdent(s string) bool {
	if s == "" || lexer.IsKeyword(s) {
		return false
	}
	for i, r := range s {
		if r != '_' && !unicode.IsLetter(r) && (i == 0 || !unicode.IsDigit(r)) {
			return false
		}
	}
	return true
}

func escapeTemplate(s string) string {
	q := Quote(s)
	q = q[1 : len(q)-1]
	q = strings.ReplaceAll(q, "{", "{{")
	return strings.ReplaceAll(q, "}", "}}")
}
