package types

import (
	"fmt"

	"github.com/gul-lang/gul-lang/internal/ast"
	"github.com/gul-lang/gul-lang/internal/diag"
	"github.com/gul-lang/gul-lang/internal/lexer"
)

// checkExpr infers the type of e and records it in Info.Types.
func (c *Checker) checkExpr(e ast.Expr) Type {
	t := c.inferExpr(e)
	if t == nil {
		t = TypeUnknown
	}
	c.info.Types[e] = t
	return t
}

func (c *Checker) inferExpr(e ast.Expr) Type {
	switch e := e.(type) {
	case *ast.IntLit:
		return TypeInt
	case *ast.FloatLit:
		return TypeFloat
	case *ast.StringLit:
		return TypeStr
	case *ast.BoolLit:
		return TypeBool
	case *ast.TemplateLit:
		for _, sub := range e.Exprs {
			c.checkExpr(sub)
		}
		return TypeStr
	case *ast.Ident:
		return c.checkIdent(e)
	case *ast.OwnershipExpr:
		return c.checkOwnership(e)
	case *ast.BinaryExpr:
		l := c.checkExpr(e.Left)
		r := c.checkExpr(e.Right)
		return c.binaryResult(e.Op, l, r, e.Span())
	case *ast.UnaryExpr:
		return c.unaryResult(e.Op, c.checkExpr(e.Operand), e.Span())
	case *ast.AwaitExpr:
		if !c.inAsync() {
			c.reportError(diag.CodeSemAwaitOutsideAsync, "`await` is only allowed inside `async fn`", e.Span())
		}
		return c.checkExpr(e.Value)
	case *ast.CallExpr:
		return c.checkCall(e)
	case *ast.MemberExpr:
		return c.checkMember(e)
	case *ast.IndexExpr:
		return c.checkIndex(e)
	case *ast.CollectionLit:
		return c.checkCollection(e)
	case *ast.AnnotatedExpr:
		return c.checkAnnotated(e)
	}
	c.reportError(diag.CodeSemInternal, fmt.Sprintf("unhandled expression %T", e), e.Span())
	return TypeUnknown
}

func (c *Checker) checkIdent(id *ast.Ident) Type {
	sym := c.scope.Lookup(id.Name)
	if sym == nil {
		c.reportUndefined(id)
		c.poison(id.Name)
		return TypeUnknown
	}
	c.info.Uses[id] = sym
	if sym.Poisoned() {
		c.poisonUses++
		return TypeUnknown
	}
	if c.captured(sym) {
		c.reportCapture(id, sym)
	}
	if sym.State == Moved {
		c.reportUseAfterMove(id, sym)
	}
	return sym.Type
}

// captured reports whether sym is a variable local to code outside the
// function being checked. Functions do not close over their surroundings;
// only module-level and global bindings are shared.
func (c *Checker) captured(sym *Symbol) bool {
	f := c.currentFrame()
	if f == nil || (sym.Kind != SymVar && sym.Kind != SymParam) {
		return false
	}
	if sym.ScopeID == GlobalScopeID || sym.ScopeID == ModuleScopeID {
		return false
	}
	return sym.ScopeID < f.scope
}

// checkOwnership applies an explicit ownership mode. `move` consumes a
// binding, `ref` and `copy` leave its state alone.
func (c *Checker) checkOwnership(e *ast.OwnershipExpr) Type {
	t := c.checkExpr(e.Value)
	if e.Mode == ast.Move {
		c.consume(e.Value, e)
	}
	return t
}

// consume marks the binding named by e as moved. Other expressions are
// temporaries and have nothing to track.
func (c *Checker) consume(e ast.Expr, at ast.Node) {
	id, ok := e.(*ast.Ident)
	if !ok {
		return
	}
	sym := c.info.Uses[id]
	if sym == nil || sym.Poisoned() || sym.State == Moved {
		return
	}
	switch sym.Kind {
	case SymVar, SymParam:
		sym.State = Moved
		sym.movedAt = at
	}
}

func (c *Checker) binaryResult(op lexer.TokenType, l, r Type, span lexer.Span) Type {
	switch op {
	case lexer.AND, lexer.OR:
		if !AssignableTo(l, TypeBool) || !AssignableTo(r, TypeBool) {
			return c.badOperands(op, l, r, span)
		}
		return TypeBool
	case lexer.EQ, lexer.NOT_EQ:
		if !AssignableTo(l, r) && !AssignableTo(r, l) {
			return c.badOperands(op, l, r, span)
		}
		return TypeBool
	case lexer.LT, lexer.LE, lexer.GT, lexer.GE:
		switch {
		case isLoose(l) || isLoose(r):
		case IsNumeric(l) && IsNumeric(r):
		case isPrim(l, Str) && isPrim(r, Str):
		default:
			return c.badOperands(op, l, r, span)
		}
		return TypeBool
	}

	if isPrim(l, Unknown) || isPrim(r, Unknown) {
		return TypeUnknown
	}
	if isLoose(l) || isLoose(r) {
		return TypeAny
	}
	if IsNumeric(l) && IsNumeric(r) {
		if isPrim(l, Int) && isPrim(r, Int) {
			return TypeInt
		}
		return TypeFloat
	}
	if op == lexer.PLUS {
		if isPrim(l, Str) && isPrim(r, Str) {
			return TypeStr
		}
		if ll, ok := l.(*List); ok {
			if rl, ok := r.(*List); ok {
				return &List{Elem: join(ll.Elem, rl.Elem)}
			}
		}
	}
	return c.badOperands(op, l, r, span)
}

func (c *Checker) badOperands(op lexer.TokenType, l, r Type, span lexer.Span) Type {
	if isPrim(l, Unknown) || isPrim(r, Unknown) {
		return TypeUnknown
	}
	c.reportError(diag.CodeSemTypeMismatch,
		fmt.Sprintf("unsupported operand types for `%s`: %s and %s", op, l, r), span)
	return TypeUnknown
}

func (c *Checker) unaryResult(op lexer.TokenType, t Type, span lexer.Span) Type {
	switch op {
	case lexer.MINUS:
		if IsNumeric(t) || isLoose(t) {
			return t
		}
	case lexer.BANG, lexer.NOT:
		if AssignableTo(t, TypeBool) {
			return TypeBool
		}
	}
	if isPrim(t, Unknown) {
		return TypeUnknown
	}
	c.reportError(diag.CodeSemTypeMismatch, fmt.Sprintf("unsupported operand type for `%s`: %s", op, t), span)
	return TypeUnknown
}

// structNamed returns the struct an identifier names, if any.
func (c *Checker) structNamed(e ast.Expr) *Struct {
	id, ok := e.(*ast.Ident)
	if !ok {
		return nil
	}
	sym := c.scope.Lookup(id.Name)
	if sym == nil || sym.Kind != SymStruct {
		return nil
	}
	c.info.Uses[id] = sym
	c.info.Types[id] = sym.Type
	return sym.Type.(*Struct)
}

func (c *Checker) checkCall(e *ast.CallExpr) Type {
	if st := c.structNamed(e.Callee); st != nil {
		return c.construct(st, e.Args, e.Span())
	}
	callee := c.checkExpr(e.Callee)
	return c.applyCall(callee, e.Args, e.Span())
}

// applyCall checks args against a callee of type t and returns the result
// type.
func (c *Checker) applyCall(t Type, args []ast.Expr, span lexer.Span) Type {
	fn, ok := t.(*Function)
	if !ok {
		for _, a := range args {
			c.checkExpr(a)
		}
		if isPrim(t, Unknown) {
			return TypeUnknown
		}
		if isLoose(t) {
			return TypeAny
		}
		c.reportError(diag.CodeSemNotCallable, fmt.Sprintf("%s is not callable", t), span)
		return TypeUnknown
	}

	n := len(args)
	if n < fn.MinParams || (!fn.Variadic && n > len(fn.Params)) {
		want := fmt.Sprint(len(fn.Params))
		switch {
		case fn.Variadic:
			want = fmt.Sprintf("at least %d", fn.MinParams)
		case fn.MinParams < len(fn.Params):
			want = fmt.Sprintf("%d to %d", fn.MinParams, len(fn.Params))
		}
		c.reportError(diag.CodeSemArityMismatch,
			fmt.Sprintf("expected %s arguments, found %d", want, n), span)
	}
	for i, a := range args {
		at := c.checkExpr(a)
		if !AssignableTo(at, fn.param(i)) {
			c.reportMismatch(fn.param(i), at, a.Span())
		}
		if fn.mode(i) == ast.Move {
			c.consume(a, a)
		}
	}
	return fn.Return
}

// construct checks a struct constructor call: one argument per field, in
// declaration order.
func (c *Checker) construct(st *Struct, args []ast.Expr, span lexer.Span) Type {
	if len(args) != len(st.Fields) {
		c.reportError(diag.CodeSemArityMismatch,
			fmt.Sprintf("%s has %d fields, found %d arguments", st.Name, len(st.Fields), len(args)), span)
	}
	for i, a := range args {
		at := c.checkExpr(a)
		if i < len(st.Fields) && !AssignableTo(at, st.Fields[i].Type) {
			c.reportMismatch(st.Fields[i].Type, at, a.Span())
		}
	}
	return st
}

func (c *Checker) checkMember(e *ast.MemberExpr) Type {
	t := c.checkExpr(e.Target)
	name := e.Field.Name
	switch t := t.(type) {
	case *Struct:
		if f, ok := t.Field(name); ok {
			return f.Type
		}
		if m, ok := t.Methods[name]; ok {
			return m
		}
	default:
		if isLoose(t) {
			if isPrim(t, Unknown) {
				return TypeUnknown
			}
			return TypeAny
		}
		if m := builtinMethod(t, name); m != nil {
			return m
		}
	}
	c.reportError(diag.CodeSemUnknownField, fmt.Sprintf("%s has no field or method `%s`", t, name), e.Field.Span())
	return TypeUnknown
}

func method(ret Type, params ...Type) *Function {
	return &Function{Params: params, Return: ret, MinParams: len(params)}
}

// builtinMethod returns the methods of the builtin container and string
// types.
func builtinMethod(t Type, name string) *Function {
	switch t := t.(type) {
	case *List:
		switch name {
		case "append":
			return method(TypeUnit, t.Elem)
		case "pop":
			return method(t.Elem)
		case "len":
			return method(TypeInt)
		}
	case *Dict:
		switch name {
		case "keys":
			return method(&List{Elem: t.Key})
		case "values":
			return method(&List{Elem: t.Value})
		case "get":
			return method(t.Value, t.Key)
		}
	case *Set:
		switch name {
		case "add":
			return method(TypeUnit, t.Elem)
		case "len":
			return method(TypeInt)
		}
	case *Primitive:
		if t.Kind != Str {
			return nil
		}
		switch name {
		case "upper", "lower", "strip":
			return method(TypeStr)
		case "split":
			m := method(&List{Elem: TypeStr}, TypeStr)
			m.MinParams = 0
			return m
		case "len":
			return method(TypeInt)
		}
	}
	return nil
}

func (c *Checker) checkIndex(e *ast.IndexExpr) Type {
	if st := c.structNamed(e.Target); st != nil {
		c.info.IndexCalls[e] = true
		return c.construct(st, []ast.Expr{e.Index}, e.Span())
	}
	t := c.checkExpr(e.Target)
	if _, ok := t.(*Function); ok {
		c.info.IndexCalls[e] = true
		return c.applyCall(t, []ast.Expr{e.Index}, e.Span())
	}

	it := c.checkExpr(e.Index)
	expectInt := func() {
		if !AssignableTo(it, TypeInt) {
			c.reportMismatch(TypeInt, it, e.Index.Span())
		}
	}
	switch t := t.(type) {
	case *List:
		expectInt()
		return t.Elem
	case *Dict:
		if !AssignableTo(it, t.Key) {
			c.reportMismatch(t.Key, it, e.Index.Span())
		}
		return t.Value
	case *Tuple:
		expectInt()
		if lit, ok := e.Index.(*ast.IntLit); ok {
			if lit.Value < 0 || lit.Value >= int64(len(t.Elems)) {
				c.reportError(diag.CodeSemTypeMismatch,
					fmt.Sprintf("index %d out of range for %s", lit.Value, t), e.Index.Span())
				return TypeUnknown
			}
			return t.Elems[lit.Value]
		}
		return TypeAny
	case *Primitive:
		switch t.Kind {
		case Str:
			expectInt()
			return TypeStr
		case Any:
			return TypeAny
		case Unknown:
			return TypeUnknown
		}
	}
	c.reportError(diag.CodeSemTypeMismatch, fmt.Sprintf("%s cannot be indexed", t), e.Target.Span())
	return TypeUnknown
}

// elementType is the type produced by iterating a value of type t.
func (c *Checker) elementType(t Type, span lexer.Span) Type {
	switch t := t.(type) {
	case *List:
		return t.Elem
	case *Set:
		return t.Elem
	case *Dict:
		return t.Key
	case *Primitive:
		switch t.Kind {
		case Str:
			return TypeStr
		case Any:
			return TypeAny
		case Unknown:
			return TypeUnknown
		}
	}
	c.reportError(diag.CodeSemTypeMismatch, fmt.Sprintf("%s is not iterable", t), span)
	return TypeUnknown
}

func (c *Checker) checkCollection(e *ast.CollectionLit) Type {
	if e.Kind == ast.DictLit {
		var key, value Type
		for _, kv := range e.Entries {
			key = join(key, c.checkExpr(kv.Key))
			value = join(value, c.checkExpr(kv.Value))
		}
		return &Dict{Key: orAny(key), Value: orAny(value)}
	}

	var elem Type
	elems := make([]Type, len(e.Items))
	for i, item := range e.Items {
		elems[i] = c.checkExpr(item)
		elem = join(elem, elems[i])
	}
	switch e.Kind {
	case ast.SetLit:
		return &Set{Elem: orAny(elem)}
	case ast.TupleLit:
		return &Tuple{Elems: elems}
	}
	return &List{Elem: orAny(elem)}
}

func orAny(t Type) Type {
	if t == nil {
		return TypeAny
	}
	return t
}

// checkAnnotated types the annotation forms used as functions: type
// constructors such as @int(x) and statistics such as @mean(xs).
func (c *Checker) checkAnnotated(e *ast.AnnotatedExpr) Type {
	args := make([]Type, len(e.Args))
	for i, a := range e.Args {
		args[i] = c.checkExpr(a)
	}
	name := e.Annotation.Name

	if e.Annotation.Kind == ast.AnnotTypeCtor {
		switch name {
		case "int":
			return TypeInt
		case "float":
			return TypeFloat
		case "str":
			return TypeStr
		case "bool":
			return TypeBool
		case "list", "set":
			elem := Type(TypeAny)
			if len(args) == 1 {
				elem = c.elementType(args[0], e.Args[0].Span())
			} else if len(args) > 1 {
				elem = nil
				for _, a := range args {
					elem = join(elem, a)
				}
			}
			if name == "set" {
				return &Set{Elem: elem}
			}
			return &List{Elem: elem}
		case "tuple":
			if len(args) == 1 {
				return TypeAny
			}
			return &Tuple{Elems: args}
		case "dict":
			if len(args) == 1 {
				if d, ok := args[0].(*Dict); ok {
					return d
				}
			}
			return &Dict{Key: TypeAny, Value: TypeAny}
		}
	}

	// Statistics accept a single collection or the values themselves.
	if len(args) == 0 {
		c.reportError(diag.CodeSemArityMismatch, fmt.Sprintf("@%s expects at least 1 argument, found 0", name), e.Span())
		return TypeUnknown
	}
	var elem Type
	if len(args) == 1 {
		elem = c.elementType(args[0], e.Args[0].Span())
	} else {
		for _, a := range args {
			elem = join(elem, a)
		}
	}
	if !IsNumeric(elem) && !isLoose(elem) {
		c.reportError(diag.CodeSemTypeMismatch, fmt.Sprintf("@%s needs numbers, found %s", name, elem), e.Span())
		return TypeUnknown
	}
	switch name {
	case "mean", "median":
		return TypeFloat
	}
	return elem
}
