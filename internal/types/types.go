package types

import (
	"strings"

	"github.com/gul-lang/gul-lang/internal/ast"
)

// Type represents a type in the GUL type system.
type Type interface {
	String() string
	// IsType is a marker method to ensure type safety.
	IsType()
}

// PrimitiveKind represents the kind of a primitive type.
type PrimitiveKind string

const (
	Int     PrimitiveKind = "int"
	Float   PrimitiveKind = "float"
	Str     PrimitiveKind = "str"
	Bool    PrimitiveKind = "bool"
	Unit    PrimitiveKind = "unit"
	Any     PrimitiveKind = "any"
	Unknown PrimitiveKind = "unknown"
)

// Primitive represents a primitive type.
type Primitive struct {
	Kind PrimitiveKind
}

func (p *Primitive) String() string { return string(p.Kind) }
func (p *Primitive) IsType()        {}

// Common primitive instances. Any is the type of unannotated parameters and
// imported modules; Unknown marks a binding whose declaration failed.
var (
	TypeInt     = &Primitive{Kind: Int}
	TypeFloat   = &Primitive{Kind: Float}
	TypeStr     = &Primitive{Kind: Str}
	TypeBool    = &Primitive{Kind: Bool}
	TypeUnit    = &Primitive{Kind: Unit}
	TypeAny     = &Primitive{Kind: Any}
	TypeUnknown = &Primitive{Kind: Unknown}
)

// List is a homogeneous growable sequence.
type List struct {
	Elem Type
}

func (l *List) String() string { return "list[" + l.Elem.String() + "]" }
func (l *List) IsType()        {}

// Set is an unordered collection of distinct elements.
type Set struct {
	Elem Type
}

func (s *Set) String() string { return "set[" + s.Elem.String() + "]" }
func (s *Set) IsType()        {}

// Dict maps keys to values.
type Dict struct {
	Key   Type
	Value Type
}

func (d *Dict) String() string { return "dict[" + d.Key.String() + ", " + d.Value.String() + "]" }
func (d *Dict) IsType()        {}

// Tuple is a fixed-size heterogeneous sequence.
type Tuple struct {
	Elems []Type
}

func (t *Tuple) String() string { return "(" + joinTypes(t.Elems) + ")" }
func (t *Tuple) IsType()        {}

// Struct represents a struct type.
type Struct struct {
	Name    string
	Fields  []Field
	Methods map[string]*Function
}

type Field struct {
	Name string
	Type Type
}

func (s *Struct) String() string { return s.Name }
func (s *Struct) IsType()        {}

// Field returns the named field.
func (s *Struct) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Function represents a function type. Modes holds the ownership mode of
// each parameter. A variadic function accepts any number of arguments after
// MinParams, each checked against the last parameter type.
type Function struct {
	Params    []Type
	Modes     []ast.Ownership
	Return    Type
	Async     bool
	Variadic  bool
	MinParams int
}

func (f *Function) String() string {
	var b strings.Builder
	if f.Async {
		b.WriteString("async ")
	}
	b.WriteString("fn(")
	b.WriteString(joinTypes(f.Params))
	if f.Variadic {
		b.WriteString("...")
	}
	b.WriteString(") -> ")
	if f.Return != nil {
		b.WriteString(f.Return.String())
	} else {
		b.WriteString("unit")
	}
	return b.String()
}
func (f *Function) IsType() {}

// mode returns the ownership mode of parameter i.
func (f *Function) mode(i int) ast.Ownership {
	if i < len(f.Modes) {
		return f.Modes[i]
	}
	return ast.OwnNone
}

// param returns the declared type of argument i.
func (f *Function) param(i int) Type {
	if i < len(f.Params) {
		return f.Params[i]
	}
	if f.Variadic && len(f.Params) > 0 {
		return f.Params[len(f.Params)-1]
	}
	return TypeAny
}

func joinTypes(ts []Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}

func isPrim(t Type, kind PrimitiveKind) bool {
	p, ok := t.(*Primitive)
	return ok && p.Kind == kind
}

// IsNumeric reports whether t is int or float.
func IsNumeric(t Type) bool {
	return isPrim(t, Int) || isPrim(t, Float)
}

// isLoose reports whether t defers checking: Any accepts everything and
// Unknown has already been reported.
func isLoose(t Type) bool {
	return t == nil || isPrim(t, Any) || isPrim(t, Unknown)
}

// Identical reports whether a and b denote the same type.
func Identical(a, b Type) bool {
	switch a := a.(type) {
	case *Primitive:
		b, ok := b.(*Primitive)
		return ok && a.Kind == b.Kind
	case *List:
		b, ok := b.(*List)
		return ok && Identical(a.Elem, b.Elem)
	case *Set:
		b, ok := b.(*Set)
		return ok && Identical(a.Elem, b.Elem)
	case *Dict:
		b, ok := b.(*Dict)
		return ok && Identical(a.Key, b.Key) && Identical(a.Value, b.Value)
	case *Tuple:
		b, ok := b.(*Tuple)
		if !ok || len(a.Elems) != len(b.Elems) {
			return false
		}
		for i := range a.Elems {
			if !Identical(a.Elems[i], b.Elems[i]) {
				return false
			}
		}
		return true
	case *Struct:
		b, ok := b.(*Struct)
		return ok && a.Name == b.Name
	case *Function:
		b, ok := b.(*Function)
		if !ok || len(a.Params) != len(b.Params) || a.Async != b.Async {
			return false
		}
		for i := range a.Params {
			if !Identical(a.Params[i], b.Params[i]) {
				return false
			}
		}
		return Identical(a.Return, b.Return)
	}
	return false
}

// AssignableTo reports whether a value of type from may be stored where to
// is expected. Any and Unknown are compatible with everything, and int
// widens to float.
func AssignableTo(from, to Type) bool {
	if isLoose(from) || isLoose(to) {
		return true
	}
	if isPrim(from, Int) && isPrim(to, Float) {
		return true
	}
	switch to := to.(type) {
	case *List:
		f, ok := from.(*List)
		return ok && AssignableTo(f.Elem, to.Elem)
	case *Set:
		f, ok := from.(*Set)
		return ok && AssignableTo(f.Elem, to.Elem)
	case *Dict:
		f, ok := from.(*Dict)
		return ok && AssignableTo(f.Key, to.Key) && AssignableTo(f.Value, to.Value)
	case *Tuple:
		f, ok := from.(*Tuple)
		if !ok || len(f.Elems) != len(to.Elems) {
			return false
		}
		for i := range to.Elems {
			if !AssignableTo(f.Elems[i], to.Elems[i]) {
				return false
			}
		}
		return true
	}
	return Identical(from, to)
}

// join returns the least common type of a and b used for collection
// elements: identical types stay, mixed numbers widen to float and
// everything else falls back to Any.
func join(a, b Type) Type {
	switch {
	case a == nil || isPrim(a, Unknown):
		return b
	case b == nil || isPrim(b, Unknown):
		return a
	case Identical(a, b):
		return a
	case IsNumeric(a) && IsNumeric(b):
		return TypeFloat
	}
	return TypeAny
}

// ContainsUnknown reports whether Unknown occurs anywhere inside t.
func ContainsUnknown(t Type) bool {
	switch t := t.(type) {
	case nil:
		return false
	case *Primitive:
		return t.Kind == Unknown
	case *List:
		return ContainsUnknown(t.Elem)
	case *Set:
		return ContainsUnknown(t.Elem)
	case *Dict:
		return ContainsUnknown(t.Key) || ContainsUnknown(t.Value)
	case *Tuple:
		for _, e := range t.Elems {
			if ContainsUnknown(e) {
				return true
			}
		}
	case *Function:
		for _, p := range t.Params {
			if ContainsUnknown(p) {
				return true
			}
		}
		return ContainsUnknown(t.Return)
	}
	return false
}
