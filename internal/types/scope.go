package types

import "github.com/gul-lang/gul-lang/internal/ast"

// SymbolKind tells what a name refers to.
type SymbolKind int

const (
	SymVar SymbolKind = iota
	SymParam
	SymFunc
	SymStruct
	SymImport
	SymExtern
	SymBuiltin
)

// OwnershipState is the ownership of a binding at the current program point.
type OwnershipState int

const (
	Owned OwnershipState = iota
	Borrowed
	Moved
	Copied
)

func (s OwnershipState) String() string {
	switch s {
	case Owned:
		return "owned"
	case Borrowed:
		return "borrowed"
	case Moved:
		return "moved"
	case Copied:
		return "copied"
	}
	return "invalid"
}

// Symbol represents a named entity in the source code.
type Symbol struct {
	ID      int
	Name    string
	Kind    SymbolKind
	Type    Type
	Mutable bool
	State   OwnershipState
	ScopeID int
	DefNode ast.Node // The AST node where this symbol is defined

	// movedAt is where the binding was consumed, for diagnostics.
	movedAt ast.Node
}

// Poisoned reports whether the symbol's declaration failed. Uses of a
// poisoned symbol are never reported again.
func (s *Symbol) Poisoned() bool {
	return isPrim(s.Type, Unknown)
}

// ScopeKind classifies the construct that opened a scope.
type ScopeKind int

const (
	ScopeGlobal ScopeKind = iota // process-wide: builtins, @global, @static
	ScopeModule
	ScopeFunction
	ScopeBlock
	ScopeLoop
)

// Well-known scope IDs.
const (
	GlobalScopeID = 0
	ModuleScopeID = 1
)

// Scope represents a lexical scope containing symbols.
type Scope struct {
	ID      int
	Kind    ScopeKind
	Parent  *Scope
	Symbols map[string]*Symbol
}

// NewScope creates a new scope with an optional parent.
func NewScope(id int, kind ScopeKind, parent *Scope) *Scope {
	return &Scope{
		ID:      id,
		Kind:    kind,
		Parent:  parent,
		Symbols: make(map[string]*Symbol),
	}
}

// Insert adds a symbol to the current scope, shadowing any earlier symbol
// of the same name.
func (s *Scope) Insert(sym *Symbol) {
	sym.ScopeID = s.ID
	s.Symbols[sym.Name] = sym
}

// LookupLocal finds a symbol declared directly in this scope.
func (s *Scope) LookupLocal(name string) *Symbol {
	return s.Symbols[name]
}

// Lookup finds a symbol in the current scope or any parent scope.
func (s *Scope) Lookup(name string) *Symbol {
	for sc := s; sc != nil; sc = sc.Parent {
		if sym, ok := sc.Symbols[name]; ok {
			return sym
		}
	}
	return nil
}

// ownershipSnapshot records the state of every symbol visible from a scope.
type ownershipSnapshot map[*Symbol]OwnershipState

func (s *Scope) snapshot() ownershipSnapshot {
	snap := make(ownershipSnapshot)
	for sc := s; sc != nil; sc = sc.Parent {
		for _, sym := range sc.Symbols {
			snap[sym] = sym.State
		}
	}
	return snap
}

func (snap ownershipSnapshot) restore() {
	for sym, state := range snap {
		sym.State = state
	}
}

// moved returns the symbols that became Moved since the snapshot.
func (snap ownershipSnapshot) moved() []*Symbol {
	var out []*Symbol
	for sym, state := range snap {
		if state != Moved && sym.State == Moved {
			out = append(out, sym)
		}
	}
	return out
}
