package ast

import "github.com/gul-lang/gul-lang/internal/lexer"

// WildcardPattern is `_`.
type WildcardPattern struct{ node }

func NewWildcardPattern(span lexer.Span) *WildcardPattern {
	return &WildcardPattern{node{span}}
}

// BindingPattern matches anything and binds it to Name in the arm.
type BindingPattern struct {
	node
	Name *Ident
}

func NewBindingPattern(name *Ident, span lexer.Span) *BindingPattern {
	return &BindingPattern{node: node{span}, Name: name}
}

// LiteralPattern matches by equality with a literal expression.
type LiteralPattern struct {
	node
	Value Expr
}

func NewLiteralPattern(value Expr, span lexer.Span) *LiteralPattern {
	return &LiteralPattern{node: node{span}, Value: value}
}

// TuplePattern destructures a tuple element-wise.
type TuplePattern struct {
	node
	Elems []Pattern
}

func NewTuplePattern(elems []Pattern, span lexer.Span) *TuplePattern {
	return &TuplePattern{node: node{span}, Elems: elems}
}

// ListPattern destructures a list of exactly len(Elems) elements.
type ListPattern struct {
	node
	Elems []Pattern
}

func NewListPattern(elems []Pattern, span lexer.Span) *ListPattern {
	return &ListPattern{node: node{span}, Elems: elems}
}

func (*WildcardPattern) patternNode() {}
func (*BindingPattern) patternNode()  {}
func (*LiteralPattern) patternNode()  {}
func (*TuplePattern) patternNode()    {}
func (*ListPattern) patternNode()     {}

// NamedType is a type written by name, with optional arguments:
// int, Point, list[int], dict[str, float].
type NamedType struct {
	node
	Name string
	Args []TypeExpr
}

func NewNamedType(name string, args []TypeExpr, span lexer.Span) *NamedType {
	return &NamedType{node: node{span}, Name: name, Args: args}
}

// FnType is fn(T, U) -> R.
type FnType struct {
	node
	Params []TypeExpr
	Return TypeExpr
}

func NewFnType(params []TypeExpr, ret TypeExpr, span lexer.Span) *FnType {
	return &FnType{node: node{span}, Params: params, Return: ret}
}

func (*NamedType) typeNode() {}
func (*FnType) typeNode()    {}
