package codegen

import (
	"github.com/gul-lang/gul-lang/internal/ast"
	"github.com/gul-lang/gul-lang/internal/ir"
	"github.com/gul-lang/gul-lang/internal/lexer"
	"github.com/gul-lang/gul-lang/internal/types"
)

// operand is the result of lowering an expression: a slot, or a constant
// that has not been materialized yet. Deferring constants lets folding
// collapse whole constant subtrees into a single Const.
type operand struct {
	slot ir.Slot
	val  *ir.Value
	typ  string
}

func constant(v ir.Value) operand {
	return operand{val: &v, typ: string(v.Kind)}
}

// use materializes op into a slot.
func (l *Lowerer) use(op operand) ir.Slot {
	if op.val == nil {
		return op.slot
	}
	return l.emitValue(ir.Instr{Op: ir.OpConst, Value: op.val, Type: op.typ})
}

func (l *Lowerer) value(e ast.Expr) ir.Slot {
	return l.use(l.lowerExpr(e))
}

func (l *Lowerer) values(es []ast.Expr) []ir.Slot {
	slots := make([]ir.Slot, len(es))
	for i, e := range es {
		slots[i] = l.value(e)
	}
	return slots
}

func (l *Lowerer) str(s string) ir.Slot {
	return l.use(constant(ir.StrValue(s)))
}

// call emits a call of the named function or intrinsic.
func (l *Lowerer) call(name string, typ string, args ...ir.Slot) ir.Slot {
	return l.emitValue(ir.Instr{Op: ir.OpCall, Name: name, Args: args, Type: typ})
}

func (l *Lowerer) lowerExpr(e ast.Expr) operand {
	switch e := e.(type) {
	case *ast.IntLit:
		return constant(ir.IntValue(e.Value))
	case *ast.FloatLit:
		v := ir.FloatValue(e.Value)
		v.Unit = e.Unit
		return constant(v)
	case *ast.StringLit:
		return constant(ir.StrValue(e.Value))
	case *ast.BoolLit:
		return constant(ir.BoolValue(e.Value))
	case *ast.TemplateLit:
		var args []ir.Slot
		for i, part := range e.Parts {
			args = append(args, l.str(part))
			if i < len(e.Exprs) {
				args = append(args, l.value(e.Exprs[i]))
			}
		}
		return operand{slot: l.call("template", "str", args...)}
	case *ast.Ident:
		return l.lowerIdent(e)
	case *ast.BinaryExpr:
		return l.lowerBinary(e)
	case *ast.UnaryExpr:
		op := l.lowerExpr(e.Operand)
		operator := string(e.Op)
		if op.val != nil && l.fold {
			if v, ok := ir.EvalUnary(operator, *op.val); ok {
				return constant(v)
			}
		}
		slot := l.emitValue(ir.Instr{Op: ir.OpUnOp, Operator: operator, Args: []ir.Slot{l.use(op)}, Type: l.typeOf(e)})
		return operand{slot: slot}
	case *ast.AwaitExpr:
		return operand{slot: l.call("await", l.typeOf(e), l.value(e.Value))}
	case *ast.OwnershipExpr:
		if e.Mode == ast.Copy {
			return operand{slot: l.call("copy", l.typeOf(e), l.value(e.Value))}
		}
		return l.lowerExpr(e.Value)
	case *ast.CallExpr:
		return operand{slot: l.lowerCall(e.Callee, e.Args, l.typeOf(e))}
	case *ast.IndexExpr:
		if l.info.IndexCalls[e] {
			return operand{slot: l.lowerCall(e.Target, []ast.Expr{e.Index}, l.typeOf(e))}
		}
		target := l.value(e.Target)
		return operand{slot: l.call("index", l.typeOf(e), target, l.value(e.Index))}
	case *ast.MemberExpr:
		if path, ok := l.modulePath(e); ok {
			return operand{slot: l.emitValue(ir.Instr{Op: ir.OpLoad, Name: path, Global: true})}
		}
		target := l.value(e.Target)
		return operand{slot: l.call("field", l.typeOf(e), target, l.str(e.Field.Name))}
	case *ast.CollectionLit:
		return operand{slot: l.lowerCollection(e)}
	case *ast.AnnotatedExpr:
		prefix := "convert."
		if e.Annotation.Kind == ast.AnnotStat {
			prefix = "stat."
		}
		return operand{slot: l.call(prefix+e.Annotation.Name, l.typeOf(e), l.values(e.Args)...)}
	}
	panic(&ir.InternalError{Func: l.cur.fn.Name, Msg: "cannot lower expression"})
}

func (l *Lowerer) lowerIdent(id *ast.Ident) operand {
	sym := l.info.Uses[id]
	if sym == nil {
		return operand{slot: l.emitValue(ir.Instr{Op: ir.OpLoad, Name: id.Name, Global: true})}
	}
	switch sym.Kind {
	case types.SymVar, types.SymParam:
		return operand{slot: l.emitValue(ir.Instr{
			Op:     ir.OpLoad,
			Name:   l.storageOf(sym, id.Name),
			Global: isGlobal(sym),
			Type:   typeName(sym.Type),
		})}
	case types.SymFunc:
		// A function used as a value loads its code address.
		return operand{slot: l.emitValue(ir.Instr{Op: ir.OpLoad, Name: l.funcName(sym, id.Name), Global: true, Type: typeName(sym.Type)})}
	}
	return operand{slot: l.emitValue(ir.Instr{Op: ir.OpLoad, Name: id.Name, Global: true, Type: typeName(sym.Type)})}
}

func (l *Lowerer) funcName(sym *types.Symbol, name string) string {
	if n, ok := l.fnNames[sym]; ok {
		return n
	}
	return name
}

func (l *Lowerer) lowerBinary(e *ast.BinaryExpr) operand {
	if e.Op == lexer.AND || e.Op == lexer.OR {
		return l.lowerLogical(e)
	}
	left := l.lowerExpr(e.Left)
	right := l.lowerExpr(e.Right)
	operator := string(e.Op)
	if left.val != nil && right.val != nil && l.fold {
		if v, ok := ir.EvalBinary(operator, *left.val, *right.val); ok {
			return constant(v)
		}
	}
	slot := l.emitValue(ir.Instr{
		Op:       ir.OpBinOp,
		Operator: operator,
		Args:     []ir.Slot{l.use(left), l.use(right)},
		Type:     l.typeOf(e),
	})
	return operand{slot: slot}
}

// lowerLogical short-circuits `and`/`or` through a temporary variable, so
// no slot crosses the join.
func (l *Lowerer) lowerLogical(e *ast.BinaryExpr) operand {
	left := l.lowerExpr(e.Left)
	if left.val != nil && left.val.Kind == ir.KindBool && l.fold {
		// true and x == x, false or x == x; otherwise the left side decides.
		if left.val.Bool == (e.Op == lexer.AND) {
			return l.lowerExpr(e.Right)
		}
		return left
	}

	tmp := l.newLabel(string(e.Op))
	rhs, end := l.newLabel("rhs"), l.newLabel("endlogic")
	cond := l.use(left)
	l.emit(ir.Instr{Op: ir.OpStore, Name: tmp, Args: []ir.Slot{cond}})
	if e.Op == lexer.AND {
		l.branch(cond, rhs, end)
	} else {
		l.branch(cond, end, rhs)
	}
	l.label(rhs)
	l.emit(ir.Instr{Op: ir.OpStore, Name: tmp, Args: []ir.Slot{l.value(e.Right)}})
	l.jump(end)
	l.label(end)
	return operand{slot: l.emitValue(ir.Instr{Op: ir.OpLoad, Name: tmp, Type: "bool"})}
}

// modulePath resolves a member chain rooted at an import, such as
// math.pi, to a dotted name.
func (l *Lowerer) modulePath(e ast.Expr) (string, bool) {
	switch e := e.(type) {
	case *ast.Ident:
		sym := l.info.Uses[e]
		if sym != nil && sym.Kind == types.SymImport {
			return e.Name, true
		}
	case *ast.MemberExpr:
		if base, ok := l.modulePath(e.Target); ok {
			return base + "." + e.Field.Name, true
		}
	}
	return "", false
}

// lowerCall resolves the callee to a direct call where possible: named
// functions, constructors, methods and module members. Anything else is an
// indirect call through the `call` intrinsic.
func (l *Lowerer) lowerCall(callee ast.Expr, args []ast.Expr, typ string) ir.Slot {
	switch c := callee.(type) {
	case *ast.Ident:
		if sym := l.info.Uses[c]; sym != nil {
			switch sym.Kind {
			case types.SymFunc:
				return l.call(l.funcName(sym, c.Name), typ, l.callArgs(sym.Type, args)...)
			case types.SymStruct, types.SymBuiltin, types.SymExtern:
				return l.call(c.Name, typ, l.callArgs(sym.Type, args)...)
			}
		}
	case *ast.MemberExpr:
		if path, ok := l.modulePath(c); ok {
			return l.call(path, typ, l.values(args)...)
		}
		recvType := l.info.Types[c.Target]
		recv := l.value(c.Target)
		var name string
		switch t := recvType.(type) {
		case *types.Struct:
			if _, isField := t.Field(c.Field.Name); !isField {
				name = t.Name + "." + c.Field.Name
			}
		case *types.List:
			name = "list." + c.Field.Name
		case *types.Dict:
			name = "dict." + c.Field.Name
		case *types.Set:
			name = "set." + c.Field.Name
		case *types.Primitive:
			if t == types.TypeStr {
				name = "str." + c.Field.Name
			}
		}
		if name == "" {
			// Dynamic receiver or a callable field.
			fn := l.call("field", "", recv, l.str(c.Field.Name))
			return l.call("call", typ, append([]ir.Slot{fn}, l.values(args)...)...)
		}
		return l.call(name, typ, append([]ir.Slot{recv}, l.values(args)...)...)
	}
	fn := l.value(callee)
	return l.call("call", typ, append([]ir.Slot{fn}, l.values(args)...)...)
}

// callArgs lowers arguments. Arguments bound to `copy` parameters are
// copied.
func (l *Lowerer) callArgs(t types.Type, args []ast.Expr) []ir.Slot {
	sig, _ := t.(*types.Function)
	slots := make([]ir.Slot, len(args))
	for i, a := range args {
		slots[i] = l.value(a)
		if sig != nil && i < len(sig.Modes) && sig.Modes[i] == ast.Copy {
			if _, explicit := a.(*ast.OwnershipExpr); !explicit {
				slots[i] = l.call("copy", typeName(sig.Params[i]), slots[i])
			}
		}
	}
	return slots
}

func (l *Lowerer) lowerCollection(e *ast.CollectionLit) ir.Slot {
	typ := l.typeOf(e)
	if e.Kind == ast.DictLit {
		var args []ir.Slot
		for _, kv := range e.Entries {
			args = append(args, l.value(kv.Key), l.value(kv.Value))
		}
		return l.call("dict", typ, args...)
	}
	return l.call(e.Kind.String(), typ, l.values(e.Items)...)
}
