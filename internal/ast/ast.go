package ast

import (
	"fmt"

	"github.com/gul-lang/gul-lang/internal/lexer"
)

// Node represents any AST node with an associated source span.
type Node interface {
	Span() lexer.Span
}

// Expr represents an expression node.
type Expr interface {
	Node
	exprNode()
}

// Stmt represents a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Pattern is a match-arm pattern.
type Pattern interface {
	Node
	patternNode()
}

// TypeExpr represents a type annotation expression.
type TypeExpr interface {
	Node
	typeNode()
}

// node carries the span shared by every concrete node.
type node struct {
	span lexer.Span
}

// Span returns the node span.
func (n *node) Span() lexer.Span { return n.span }

// SetSpan updates the node span.
func (n *node) SetSpan(span lexer.Span) { n.span = span }

// Program represents a parsed compilation unit.
type Program struct {
	node
	Stmts []Stmt
}

// NewProgram constructs a program node.
func NewProgram(stmts []Stmt, span lexer.Span) *Program {
	return &Program{node: node{span}, Stmts: stmts}
}

// Block is an indented statement list. Blocks open a lexical scope.
type Block struct {
	node
	Stmts []Stmt
}

// NewBlock constructs a block node.
func NewBlock(stmts []Stmt, span lexer.Span) *Block {
	return &Block{node: node{span}, Stmts: stmts}
}

// Ownership is the mode prefix of a parameter or argument.
type Ownership int

const (
	OwnNone Ownership = iota
	Own
	Ref
	Copy
	Move
)

func (o Ownership) String() string {
	switch o {
	case OwnNone:
		return ""
	case Own:
		return "own"
	case Ref:
		return "ref"
	case Copy:
		return "copy"
	case Move:
		return "move"
	}
	return fmt.Sprintf("Ownership(%d)", int(o))
}

// OwnershipFromToken maps own/ref/copy/move keywords to their mode.
func OwnershipFromToken(t lexer.TokenType) (Ownership, bool) {
	switch t {
	case lexer.OWN:
		return Own, true
	case lexer.REF:
		return Ref, true
	case lexer.COPY:
		return Copy, true
	case lexer.MOVE:
		return Move, true
	}
	return OwnNone, false
}

// AnnotationKind groups the `@` annotations that share one prefix.
type AnnotationKind int

const (
	AnnotScope     AnnotationKind = iota // @global @static @local
	AnnotTypeCtor                        // @int @float @str @bool @list @set @tuple @dict
	AnnotOwnership                       // @own @ref @copy @move
	AnnotStat                            // @sum @mean @median @min @max
)

func (k AnnotationKind) String() string {
	switch k {
	case AnnotScope:
		return "scope"
	case AnnotTypeCtor:
		return "type constructor"
	case AnnotOwnership:
		return "ownership"
	case AnnotStat:
		return "statistic"
	}
	return fmt.Sprintf("AnnotationKind(%d)", int(k))
}

var annotations = map[string]AnnotationKind{
	"global": AnnotScope,
	"static": AnnotScope,
	"local":  AnnotScope,
	"int":    AnnotTypeCtor,
	"float":  AnnotTypeCtor,
	"str":    AnnotTypeCtor,
	"bool":   AnnotTypeCtor,
	"list":   AnnotTypeCtor,
	"set":    AnnotTypeCtor,
	"tuple":  AnnotTypeCtor,
	"dict":   AnnotTypeCtor,
	"own":    AnnotOwnership,
	"ref":    AnnotOwnership,
	"copy":   AnnotOwnership,
	"move":   AnnotOwnership,
	"sum":    AnnotStat,
	"mean":   AnnotStat,
	"median": AnnotStat,
	"min":    AnnotStat,
	"max":    AnnotStat,
}

// Annotation is a resolved `@name` annotation.
type Annotation struct {
	node
	Kind AnnotationKind
	Name string
}

// LookupAnnotation builds the annotation for name, if name is known.
func LookupAnnotation(name string, span lexer.Span) (*Annotation, bool) {
	kind, ok := annotations[name]
	if !ok {
		return nil, false
	}
	return &Annotation{node: node{span}, Kind: kind, Name: name}, true
}
