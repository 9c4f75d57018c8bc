package ast

import (
	"strings"

	"github.com/gul-lang/gul-lang/internal/lexer"
)

// VarDecl is a let, var or const binding. Scope is set for @global and
// @static declarations.
type VarDecl struct {
	node
	Name    *Ident
	Mutable bool
	Const   bool
	Type    TypeExpr
	Init    Expr
	Scope   *Annotation
}

func NewVarDecl(name *Ident, mutable, isConst bool, typ TypeExpr, init Expr, span lexer.Span) *VarDecl {
	return &VarDecl{node: node{span}, Name: name, Mutable: mutable, Const: isConst, Type: typ, Init: init}
}

// Param is a function parameter with an optional ownership mode.
type Param struct {
	node
	Name *Ident
	Type TypeExpr
	Mode Ownership
}

func NewParam(name *Ident, typ TypeExpr, mode Ownership, span lexer.Span) *Param {
	return &Param{node: node{span}, Name: name, Type: typ, Mode: mode}
}

// FnDecl represents a function declaration.
type FnDecl struct {
	node
	Name       *Ident
	Params     []*Param
	ReturnType TypeExpr
	Body       *Block
	Async      bool
}

func NewFnDecl(name *Ident, params []*Param, ret TypeExpr, body *Block, async bool, span lexer.Span) *FnDecl {
	return &FnDecl{node: node{span}, Name: name, Params: params, ReturnType: ret, Body: body, Async: async}
}

// Field is a struct field.
type Field struct {
	node
	Name *Ident
	Type TypeExpr
}

func NewField(name *Ident, typ TypeExpr, span lexer.Span) *Field {
	return &Field{node: node{span}, Name: name, Type: typ}
}

// StructDecl declares a struct with fields and methods.
type StructDecl struct {
	node
	Name    *Ident
	Fields  []*Field
	Methods []*FnDecl
}

func NewStructDecl(name *Ident, fields []*Field, methods []*FnDecl, span lexer.Span) *StructDecl {
	return &StructDecl{node: node{span}, Name: name, Fields: fields, Methods: methods}
}

// IfStmt is a conditional. An elif chain is a nested IfStmt as the only
// statement of Else.
type IfStmt struct {
	node
	Cond Expr
	Then *Block
	Else *Block
}

func NewIfStmt(cond Expr, then, els *Block, span lexer.Span) *IfStmt {
	return &IfStmt{node: node{span}, Cond: cond, Then: then, Else: els}
}

type WhileStmt struct {
	node
	Cond Expr
	Body *Block
}

func NewWhileStmt(cond Expr, body *Block, span lexer.Span) *WhileStmt {
	return &WhileStmt{node: node{span}, Cond: cond, Body: body}
}

// ForStmt is `for Var in Iter:`; Var is scoped to Body.
type ForStmt struct {
	node
	Var  *Ident
	Iter Expr
	Body *Block
}

func NewForStmt(v *Ident, iter Expr, body *Block, span lexer.Span) *ForStmt {
	return &ForStmt{node: node{span}, Var: v, Iter: iter, Body: body}
}

// LoopStmt loops until break.
type LoopStmt struct {
	node
	Body *Block
}

func NewLoopStmt(body *Block, span lexer.Span) *LoopStmt {
	return &LoopStmt{node: node{span}, Body: body}
}

// MatchArm is one `pattern [if guard]` arm.
type MatchArm struct {
	node
	Pattern Pattern
	Guard   Expr
	Body    *Block
}

func NewMatchArm(pat Pattern, guard Expr, body *Block, span lexer.Span) *MatchArm {
	return &MatchArm{node: node{span}, Pattern: pat, Guard: guard, Body: body}
}

// MatchStmt holds arms in source order; the first matching arm wins.
type MatchStmt struct {
	node
	Subject Expr
	Arms    []*MatchArm
}

func NewMatchStmt(subject Expr, arms []*MatchArm, span lexer.Span) *MatchStmt {
	return &MatchStmt{node: node{span}, Subject: subject, Arms: arms}
}

// TryStmt is try/catch/finally. Catch and Finally may be nil.
type TryStmt struct {
	node
	Body     *Block
	CatchVar *Ident
	Catch    *Block
	Finally  *Block
}

func NewTryStmt(body *Block, catchVar *Ident, catch, finally *Block, span lexer.Span) *TryStmt {
	return &TryStmt{node: node{span}, Body: body, CatchVar: catchVar, Catch: catch, Finally: finally}
}

type ThrowStmt struct {
	node
	Value Expr
}

func NewThrowStmt(value Expr, span lexer.Span) *ThrowStmt {
	return &ThrowStmt{node: node{span}, Value: value}
}

type ReturnStmt struct {
	node
	Value Expr
}

func NewReturnStmt(value Expr, span lexer.Span) *ReturnStmt {
	return &ReturnStmt{node: node{span}, Value: value}
}

type BreakStmt struct{ node }

func NewBreakStmt(span lexer.Span) *BreakStmt { return &BreakStmt{node{span}} }

type ContinueStmt struct{ node }

func NewContinueStmt(span lexer.Span) *ContinueStmt { return &ContinueStmt{node{span}} }

type PassStmt struct{ node }

func NewPassStmt(span lexer.Span) *PassStmt { return &PassStmt{node{span}} }

// AssertStmt fails at runtime when Cond is false.
type AssertStmt struct {
	node
	Cond    Expr
	Message Expr
}

func NewAssertStmt(cond, msg Expr, span lexer.Span) *AssertStmt {
	return &AssertStmt{node: node{span}, Cond: cond, Message: msg}
}

// AssignStmt is `Target Op Value` where Op is = or a compound operator.
type AssignStmt struct {
	node
	Target Expr
	Op     lexer.TokenType
	Value  Expr
}

func NewAssignStmt(target Expr, op lexer.TokenType, value Expr, span lexer.Span) *AssignStmt {
	return &AssignStmt{node: node{span}, Target: target, Op: op, Value: value}
}

// ImportItem is one normalized (path, alias) pair.
type ImportItem struct {
	node
	Path  string
	Alias string
}

func NewImportItem(path, alias string, span lexer.Span) *ImportItem {
	return &ImportItem{node: node{span}, Path: path, Alias: alias}
}

// Binding returns the name the import introduces.
func (i *ImportItem) Binding() string {
	if i.Alias != "" {
		return i.Alias
	}
	if idx := strings.LastIndexByte(i.Path, '.'); idx >= 0 {
		return i.Path[idx+1:]
	}
	return i.Path
}

// ImportStmt flattens every import form into items.
type ImportStmt struct {
	node
	Items []*ImportItem
}

func NewImportStmt(items []*ImportItem, span lexer.Span) *ImportStmt {
	return &ImportStmt{node: node{span}, Items: items}
}

// ExternSig is a foreign function signature declared inside an extern block.
type ExternSig struct {
	node
	Name       *Ident
	Params     []*Param
	ReturnType TypeExpr
}

func NewExternSig(name *Ident, params []*Param, ret TypeExpr, span lexer.Span) *ExternSig {
	return &ExternSig{node: node{span}, Name: name, Params: params, ReturnType: ret}
}

// ExternBlock is foreign code kept as opaque text plus the signatures it
// exports to this language.
type ExternBlock struct {
	node
	Language   string
	RawSource  string
	Signatures []*ExternSig
}

func NewExternBlock(lang, raw string, sigs []*ExternSig, span lexer.Span) *ExternBlock {
	return &ExternBlock{node: node{span}, Language: lang, RawSource: raw, Signatures: sigs}
}

type ExprStmt struct {
	node
	Expr Expr
}

func NewExprStmt(expr Expr, span lexer.Span) *ExprStmt {
	return &ExprStmt{node: node{span}, Expr: expr}
}

func (*VarDecl) stmtNode()      {}
func (*FnDecl) stmtNode()       {}
func (*StructDecl) stmtNode()   {}
func (*IfStmt) stmtNode()       {}
func (*WhileStmt) stmtNode()    {}
func (*ForStmt) stmtNode()      {}
func (*LoopStmt) stmtNode()     {}
func (*MatchStmt) stmtNode()    {}
func (*TryStmt) stmtNode()      {}
func (*ThrowStmt) stmtNode()    {}
func (*ReturnStmt) stmtNode()   {}
func (*BreakStmt) stmtNode()    {}
func (*ContinueStmt) stmtNode() {}
func (*PassStmt) stmtNode()     {}
func (*AssertStmt) stmtNode()   {}
func (*AssignStmt) stmtNode()   {}
func (*ImportStmt) stmtNode()   {}
func (*ExternBlock) stmtNode()  {}
func (*ExprStmt) stmtNode()     {}
