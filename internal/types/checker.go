package types

import (
	"fmt"
	"strings"

	"github.com/gul-lang/gul-lang/internal/ast"
	"github.com/gul-lang/gul-lang/internal/diag"
)

// Info holds the results of analysis as side tables keyed by AST node. The
// tree itself is never modified.
type Info struct {
	Types map[ast.Expr]Type
	Defs  map[ast.Node]*Symbol
	Uses  map[*ast.Ident]*Symbol
	// IndexCalls marks `f[x]` expressions whose target is callable; they are
	// calls delimited by square brackets, not indexing.
	IndexCalls  map[*ast.IndexExpr]bool
	Unreachable map[ast.Stmt]bool
	Structs     map[string]*Struct
}

func newInfo() *Info {
	return &Info{
		Types:       make(map[ast.Expr]Type),
		Defs:        make(map[ast.Node]*Symbol),
		Uses:        make(map[*ast.Ident]*Symbol),
		IndexCalls:  make(map[*ast.IndexExpr]bool),
		Unreachable: make(map[ast.Stmt]bool),
		Structs:     make(map[string]*Struct),
	}
}

// TypeOf returns the recorded type of e, or Unknown.
func (info *Info) TypeOf(e ast.Expr) Type {
	if t, ok := info.Types[e]; ok {
		return t
	}
	return TypeUnknown
}

type Option func(*Checker)

// WithLanguages extends the set of foreign languages accepted by extern
// blocks.
func WithLanguages(langs ...string) Option {
	return func(c *Checker) {
		for _, l := range langs {
			c.languages[strings.ToLower(l)] = true
		}
	}
}

// DefaultLanguages are the extern block languages known without
// configuration.
var DefaultLanguages = []string{"python", "rust", "c", "cpp", "js", "javascript", "typescript", "sql", "go"}

// frame is the innermost function being checked.
type frame struct {
	async  bool
	ret    Type
	hasRet bool // return type was annotated
	scope  int  // ID of the function's own scope
}

// Checker performs a single pre-order pass over a program, maintaining an
// explicit scope stack.
type Checker struct {
	GlobalScope *Scope
	ModuleScope *Scope

	info      *Info
	scope     *Scope
	frames    []frame
	loops     int
	nextScope int
	nextSym   int
	languages map[string]bool
	errors    diag.List

	// poisonUses counts resolved uses of poisoned symbols. Unknown types
	// that flow from them are not internal errors.
	poisonUses int
}

// NewChecker creates a checker whose global scope holds the builtins.
func NewChecker(opts ...Option) *Checker {
	c := &Checker{
		info:      newInfo(),
		languages: make(map[string]bool),
	}
	for _, l := range DefaultLanguages {
		c.languages[l] = true
	}
	for _, opt := range opts {
		opt(c)
	}

	c.GlobalScope = c.pushScope(ScopeGlobal)
	c.declareBuiltins()
	c.ModuleScope = c.pushScope(ScopeModule)
	return c
}

// Analyze checks prog and returns its side tables with all diagnostics.
func Analyze(prog *ast.Program, opts ...Option) (*Info, diag.List) {
	c := NewChecker(opts...)
	info := c.Check(prog)
	return info, c.Errors()
}

// Check validates the given program.
func (c *Checker) Check(prog *ast.Program) *Info {
	// Pass 1: collect top-level declarations so forward references resolve.
	c.collectDecls(prog.Stmts)

	// Pass 2: check statements in order.
	c.checkStmts(prog.Stmts)
	return c.info
}

// Errors returns every diagnostic reported so far, warnings included.
func (c *Checker) Errors() diag.List {
	return c.errors
}

// Info returns the side tables built so far.
func (c *Checker) Info() *Info {
	return c.info
}

func (c *Checker) pushScope(kind ScopeKind) *Scope {
	s := NewScope(c.nextScope, kind, c.scope)
	c.nextScope++
	c.scope = s
	return s
}

func (c *Checker) popScope() {
	c.scope = c.scope.Parent
}

// withScope runs fn inside a fresh scope of the given kind.
func (c *Checker) withScope(kind ScopeKind, fn func()) {
	c.pushScope(kind)
	defer c.popScope()
	fn()
}

func (c *Checker) newSymbol(name string, kind SymbolKind, typ Type, def ast.Node) *Symbol {
	c.nextSym++
	return &Symbol{ID: c.nextSym, Name: name, Kind: kind, Type: typ, DefNode: def}
}

// declare inserts sym into scope and records its definition.
func (c *Checker) declare(scope *Scope, sym *Symbol, def ast.Node) {
	scope.Insert(sym)
	if def != nil {
		c.info.Defs[def] = sym
	}
}

// branches checks each fn against the same ownership state. A binding moved
// in any branch stays moved afterwards.
func (c *Checker) branches(fns ...func()) {
	pre := c.scope.snapshot()
	var moved []*Symbol
	for _, fn := range fns {
		fn()
		moved = append(moved, pre.moved()...)
		pre.restore()
	}
	for _, sym := range moved {
		sym.State = Moved
	}
}

func (c *Checker) currentFrame() *frame {
	if len(c.frames) == 0 {
		return nil
	}
	return &c.frames[len(c.frames)-1]
}

func (c *Checker) inAsync() bool {
	f := c.currentFrame()
	return f != nil && f.async
}

func (c *Checker) declareBuiltins() {
	for name, fn := range builtinSignatures() {
		c.GlobalScope.Insert(c.newSymbol(name, SymBuiltin, fn, nil))
	}
}

func builtinSignatures() map[string]*Function {
	anyArg := []Type{TypeAny}
	return map[string]*Function{
		"print":   {Params: anyArg, Return: TypeUnit, Variadic: true},
		"println": {Params: anyArg, Return: TypeUnit, Variadic: true},
		"input":   {Params: []Type{TypeStr}, Return: TypeStr},
		"len":     {Params: anyArg, Return: TypeInt, MinParams: 1},
		"str":     {Params: anyArg, Return: TypeStr, MinParams: 1},
		"int":     {Params: anyArg, Return: TypeInt, MinParams: 1},
		"float":   {Params: anyArg, Return: TypeFloat, MinParams: 1},
		"bool":    {Params: anyArg, Return: TypeBool, MinParams: 1},
		"range":   {Params: []Type{TypeInt, TypeInt}, Return: &List{Elem: TypeInt}, MinParams: 1},
		"abs":     {Params: anyArg, Return: TypeAny, MinParams: 1},
		"min":     {Params: anyArg, Return: TypeAny, Variadic: true, MinParams: 1},
		"max":     {Params: anyArg, Return: TypeAny, Variadic: true, MinParams: 1},
		"sum":     {Params: anyArg, Return: TypeAny, MinParams: 1},
	}
}

// resolveType converts a type annotation. Unknown names are reported and
// poison the annotation.
func (c *Checker) resolveType(typ ast.TypeExpr) Type {
	switch t := typ.(type) {
	case nil:
		return TypeAny
	case *ast.NamedType:
		args := make([]Type, len(t.Args))
		for i, a := range t.Args {
			args[i] = c.resolveType(a)
		}
		arg := func(i int) Type {
			if i < len(args) {
				return args[i]
			}
			return TypeAny
		}
		switch t.Name {
		case "int":
			return TypeInt
		case "float":
			return TypeFloat
		case "str", "string":
			return TypeStr
		case "bool":
			return TypeBool
		case "unit", "none":
			return TypeUnit
		case "any":
			return TypeAny
		case "list":
			return &List{Elem: arg(0)}
		case "set":
			return &Set{Elem: arg(0)}
		case "dict":
			return &Dict{Key: arg(0), Value: arg(1)}
		case "tuple":
			return &Tuple{Elems: args}
		}
		if sym := c.scope.Lookup(t.Name); sym != nil && sym.Kind == SymStruct {
			return sym.Type
		}
		c.reportError(diag.CodeSemUndefinedName, fmt.Sprintf("undefined type `%s`", t.Name), t.Span())
		return TypeUnknown
	case *ast.FnType:
		fn := &Function{Return: TypeUnit}
		for _, p := range t.Params {
			fn.Params = append(fn.Params, c.resolveType(p))
		}
		fn.MinParams = len(fn.Params)
		if t.Return != nil {
			fn.Return = c.resolveType(t.Return)
		}
		return fn
	}
	return TypeUnknown
}

// signature builds the function type of a declaration. Unannotated
// parameters and return types are Any.
func (c *Checker) signature(params []*ast.Param, ret ast.TypeExpr, async bool) *Function {
	fn := &Function{Return: TypeAny, Async: async}
	for _, p := range params {
		fn.Params = append(fn.Params, c.resolveType(p.Type))
		fn.Modes = append(fn.Modes, p.Mode)
	}
	fn.MinParams = len(fn.Params)
	if ret != nil {
		fn.Return = c.resolveType(ret)
	}
	return fn
}

// collectDecls pre-declares structs and functions of a statement list.
// Struct shells are declared first so field and parameter types may refer to
// any struct of the list.
func (c *Checker) collectDecls(stmts []ast.Stmt) {
	var structs []*ast.StructDecl
	for _, stmt := range stmts {
		if d, ok := stmt.(*ast.StructDecl); ok {
			if c.redeclared(d.Name) {
				continue
			}
			st := &Struct{Name: d.Name.Name, Methods: make(map[string]*Function)}
			c.info.Structs[st.Name] = st
			c.declare(c.scope, c.newSymbol(st.Name, SymStruct, st, d), d)
			structs = append(structs, d)
		}
	}
	for _, d := range structs {
		st := c.info.Structs[d.Name.Name]
		for _, f := range d.Fields {
			st.Fields = append(st.Fields, Field{Name: f.Name.Name, Type: c.resolveType(f.Type)})
		}
		for _, m := range d.Methods {
			params := m.Params
			if len(params) > 0 && params[0].Name.Name == "self" {
				params = params[1:]
			}
			st.Methods[m.Name.Name] = c.signature(params, m.ReturnType, m.Async)
		}
	}
	for _, stmt := range stmts {
		if d, ok := stmt.(*ast.FnDecl); ok {
			if c.redeclared(d.Name) {
				continue
			}
			sig := c.signature(d.Params, d.ReturnType, d.Async)
			c.declare(c.scope, c.newSymbol(d.Name.Name, SymFunc, sig, d), d)
		}
	}
}

// redeclared reports a function or struct whose name is already taken by
// another function or struct of the same scope.
func (c *Checker) redeclared(name *ast.Ident) bool {
	prev := c.scope.LookupLocal(name.Name)
	if prev == nil || (prev.Kind != SymFunc && prev.Kind != SymStruct) {
		return false
	}
	c.report(diag.Diagnostic{
		Severity: diag.SeverityError,
		Code:     diag.CodeSemRedeclared,
		Message:  fmt.Sprintf("`%s` is already declared in this scope", name.Name),
		Span:     toDiagSpan(name.Span()),
	}.WithLabel(toDiagSpan(name.Span()), "redeclared here").
		WithSecondary(toDiagSpan(prev.DefNode.Span()), "first declared here"))
	return true
}
