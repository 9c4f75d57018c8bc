package ast

import "github.com/gul-lang/gul-lang/internal/lexer"

// Ident is a raw name. Resolution lives in the analyzer's side tables.
type Ident struct {
	node
	Name string
}

func NewIdent(name string, span lexer.Span) *Ident {
	return &Ident{node: node{span}, Name: name}
}

// IntLit is an integer literal.
type IntLit struct {
	node
	Value int64
	Raw   string
}

func NewIntLit(value int64, raw string, span lexer.Span) *IntLit {
	return &IntLit{node: node{span}, Value: value, Raw: raw}
}

// FloatLit is a float literal; Unit is set for unit literals such as 9.8 m/s^2.
type FloatLit struct {
	node
	Value float64
	Raw   string
	Unit  string
}

func NewFloatLit(value float64, raw, unit string, span lexer.Span) *FloatLit {
	return &FloatLit{node: node{span}, Value: value, Raw: raw, Unit: unit}
}

// StringLit holds the decoded value of a string literal.
type StringLit struct {
	node
	Value string
}

func NewStringLit(value string, span lexer.Span) *StringLit {
	return &StringLit{node: node{span}, Value: value}
}

// BoolLit is true or false.
type BoolLit struct {
	node
	Value bool
}

func NewBoolLit(value bool, span lexer.Span) *BoolLit {
	return &BoolLit{node: node{span}, Value: value}
}

// TemplateLit is an f-string. Parts has exactly one more element than Exprs
// and the literal text interleaves as Parts[0] Exprs[0] Parts[1] ...
type TemplateLit struct {
	node
	Parts []string
	Exprs []Expr
}

func NewTemplateLit(parts []string, exprs []Expr, span lexer.Span) *TemplateLit {
	return &TemplateLit{node: node{span}, Parts: parts, Exprs: exprs}
}

// BinaryExpr is an infix operation.
type BinaryExpr struct {
	node
	Op    lexer.TokenType
	Left  Expr
	Right Expr
}

func NewBinaryExpr(op lexer.TokenType, left, right Expr, span lexer.Span) *BinaryExpr {
	return &BinaryExpr{node: node{span}, Op: op, Left: left, Right: right}
}

// UnaryExpr is a prefix operation: -, ! or not.
type UnaryExpr struct {
	node
	Op      lexer.TokenType
	Operand Expr
}

func NewUnaryExpr(op lexer.TokenType, operand Expr, span lexer.Span) *UnaryExpr {
	return &UnaryExpr{node: node{span}, Op: op, Operand: operand}
}

// CallExpr is a call. Bracket records which glyph pair delimited the
// arguments; it carries no meaning beyond diagnostics.
type CallExpr struct {
	node
	Callee  Expr
	Args    []Expr
	Bracket lexer.BracketKind
}

func NewCallExpr(callee Expr, args []Expr, bracket lexer.BracketKind, span lexer.Span) *CallExpr {
	return &CallExpr{node: node{span}, Callee: callee, Args: args, Bracket: bracket}
}

// MemberExpr is field or method access: Target.Field.
type MemberExpr struct {
	node
	Target Expr
	Field  *Ident
}

func NewMemberExpr(target Expr, field *Ident, span lexer.Span) *MemberExpr {
	return &MemberExpr{node: node{span}, Target: target, Field: field}
}

// IndexExpr is Target[Index].
type IndexExpr struct {
	node
	Target  Expr
	Index   Expr
	Bracket lexer.BracketKind
}

func NewIndexExpr(target, index Expr, bracket lexer.BracketKind, span lexer.Span) *IndexExpr {
	return &IndexExpr{node: node{span}, Target: target, Index: index, Bracket: bracket}
}

// AwaitExpr suspends on an async value.
type AwaitExpr struct {
	node
	Value Expr
}

func NewAwaitExpr(value Expr, span lexer.Span) *AwaitExpr {
	return &AwaitExpr{node: node{span}, Value: value}
}

// OwnershipExpr is an expression used in an explicit ownership mode, such
// as `move a` or an argument written `ref buf`.
type OwnershipExpr struct {
	node
	Mode  Ownership
	Value Expr
}

func NewOwnershipExpr(mode Ownership, value Expr, span lexer.Span) *OwnershipExpr {
	return &OwnershipExpr{node: node{span}, Mode: mode, Value: value}
}

// CollectionKind distinguishes collection literals.
type CollectionKind int

const (
	ListLit CollectionKind = iota
	SetLit
	TupleLit
	DictLit
)

func (k CollectionKind) String() string {
	return [...]string{"list", "set", "tuple", "dict"}[k]
}

// KeyValue is one dict literal entry.
type KeyValue struct {
	node
	Key   Expr
	Value Expr
}

func NewKeyValue(key, value Expr, span lexer.Span) *KeyValue {
	return &KeyValue{node: node{span}, Key: key, Value: value}
}

// CollectionLit is a list, set, tuple or dict literal. Dict literals use
// Entries, the others Items.
type CollectionLit struct {
	node
	Kind    CollectionKind
	Items   []Expr
	Entries []*KeyValue
	Bracket lexer.BracketKind
}

func NewCollectionLit(kind CollectionKind, items []Expr, entries []*KeyValue, bracket lexer.BracketKind, span lexer.Span) *CollectionLit {
	return &CollectionLit{node: node{span}, Kind: kind, Items: items, Entries: entries, Bracket: bracket}
}

// AnnotatedExpr is an annotation applied as a function: @int(x), @mean(xs).
type AnnotatedExpr struct {
	node
	Annotation *Annotation
	Args       []Expr
}

func NewAnnotatedExpr(annot *Annotation, args []Expr, span lexer.Span) *AnnotatedExpr {
	return &AnnotatedExpr{node: node{span}, Annotation: annot, Args: args}
}

func (*Ident) exprNode()         {}
func (*IntLit) exprNode()        {}
func (*FloatLit) exprNode()      {}
func (*StringLit) exprNode()     {}
func (*BoolLit) exprNode()       {}
func (*TemplateLit) exprNode()   {}
func (*BinaryExpr) exprNode()    {}
func (*UnaryExpr) exprNode()     {}
func (*CallExpr) exprNode()      {}
func (*MemberExpr) exprNode()    {}
func (*IndexExpr) exprNode()     {}
func (*AwaitExpr) exprNode()     {}
func (*OwnershipExpr) exprNode() {}
func (*CollectionLit) exprNode() {}
func (*AnnotatedExpr) exprNode() {}
