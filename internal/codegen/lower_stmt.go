package codegen

import (
	"strings"

	"github.com/gul-lang/gul-lang/internal/ast"
	"github.com/gul-lang/gul-lang/internal/ir"
	"github.com/gul-lang/gul-lang/internal/types"
)

// lowerStmts lowers a statement list. Statements the analyzer marked
// unreachable are skipped.
func (l *Lowerer) lowerStmts(stmts []ast.Stmt) {
	l.registerFuncs(stmts)
	for _, stmt := range stmts {
		if l.info.Unreachable[stmt] {
			continue
		}
		l.lowerStmt(stmt)
	}
}

func (l *Lowerer) lowerBlock(b *ast.Block) {
	if b != nil {
		l.lowerStmts(b.Stmts)
	}
}

func (l *Lowerer) lowerStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.VarDecl:
		l.lowerVarDecl(s)
	case *ast.FnDecl, *ast.StructDecl:
		// Queued by registerFuncs.
	case *ast.IfStmt:
		l.lowerIf(s)
	case *ast.WhileStmt:
		head, body, end := l.newLabel("while"), l.newLabel("body"), l.newLabel("endwhile")
		l.jump(head)
		l.label(head)
		l.branch(l.value(s.Cond), body, end)
		l.label(body)
		l.loop(head, end, s.Body)
		l.label(end)
	case *ast.LoopStmt:
		head, end := l.newLabel("loop"), l.newLabel("endloop")
		l.jump(head)
		l.label(head)
		l.loop(head, end, s.Body)
		l.label(end)
	case *ast.ForStmt:
		l.lowerFor(s)
	case *ast.MatchStmt:
		l.lowerMatch(s)
	case *ast.TryStmt:
		l.lowerTry(s)
	case *ast.ThrowStmt:
		l.call("throw", "", l.value(s.Value))
	case *ast.ReturnStmt:
		var args []ir.Slot
		if s.Value != nil {
			args = []ir.Slot{l.value(s.Value)}
		}
		l.unwind(0)
		l.emit(ir.Instr{Op: ir.OpReturn, Args: args})
	case *ast.BreakStmt:
		if n := len(l.cur.loops); n > 0 {
			l.unwind(n)
			l.jump(l.cur.loops[n-1].brk)
		}
	case *ast.ContinueStmt:
		if n := len(l.cur.loops); n > 0 {
			l.unwind(n)
			l.jump(l.cur.loops[n-1].cont)
		}
	case *ast.PassStmt:
	case *ast.AssertStmt:
		args := []ir.Slot{l.value(s.Cond)}
		if s.Message != nil {
			args = append(args, l.value(s.Message))
		}
		l.call("assert", "", args...)
	case *ast.AssignStmt:
		l.lowerAssign(s)
	case *ast.ImportStmt:
		for _, item := range s.Items {
			l.module.Imports = append(l.module.Imports, ir.Import{Path: item.Path, Alias: item.Binding()})
		}
	case *ast.ExternBlock:
		l.lowerExtern(s)
	case *ast.ExprStmt:
		// A constant expression statement has no effect.
		l.lowerExpr(s.Expr)
	default:
		panic(&ir.InternalError{Func: l.cur.fn.Name, Msg: "cannot lower statement"})
	}
}

// loop lowers a loop body that jumps back to head; break leaves to end.
func (l *Lowerer) loop(head, end string, body *ast.Block) {
	l.cur.loops = append(l.cur.loops, loopLabels{brk: end, cont: head})
	l.lowerBlock(body)
	l.cur.loops = l.cur.loops[:len(l.cur.loops)-1]
	l.jump(head)
}

func (l *Lowerer) lowerVarDecl(s *ast.VarDecl) {
	var v ir.Slot
	if s.Init != nil {
		v = l.value(s.Init)
	} else {
		v = l.use(constant(ir.UnitValue()))
	}
	sym := l.info.Defs[s]
	l.emit(ir.Instr{
		Op:     ir.OpStore,
		Name:   l.declare(sym, s.Name.Name),
		Global: isGlobal(sym),
		Args:   []ir.Slot{v},
	})
}

func (l *Lowerer) lowerIf(s *ast.IfStmt) {
	then, els, end := l.newLabel("then"), l.newLabel("else"), l.newLabel("endif")
	cond := l.value(s.Cond)
	if s.Else == nil {
		l.branch(cond, then, end)
	} else {
		l.branch(cond, then, els)
	}
	l.label(then)
	l.lowerBlock(s.Then)
	l.jump(end)
	if s.Else != nil {
		l.label(els)
		l.lowerBlock(s.Else)
		l.jump(end)
	}
	l.label(end)
}

func (l *Lowerer) lowerFor(s *ast.ForStmt) {
	head, body, end := l.newLabel("for"), l.newLabel("body"), l.newLabel("endfor")
	it := l.call("iter", "", l.value(s.Iter))
	l.jump(head)
	l.label(head)
	l.branch(l.call("iter.done", "bool", it), end, body)
	l.label(body)

	sym := l.info.Defs[s.Var]
	var elem string
	if sym != nil {
		elem = typeName(sym.Type)
	}
	l.emit(ir.Instr{
		Op:     ir.OpStore,
		Name:   l.declare(sym, s.Var.Name),
		Global: isGlobal(sym),
		Args:   []ir.Slot{l.call("iter.next", elem, it)},
	})
	l.loop(head, end, s.Body)
	l.label(end)
}

// lowerMatch tests arms in source order. A failed test jumps to the next
// arm; when no arm matches control reaches the end.
func (l *Lowerer) lowerMatch(s *ast.MatchStmt) {
	subj := l.value(s.Subject)
	end := l.newLabel("endmatch")
	for _, arm := range s.Arms {
		next := l.newLabel("arm")
		l.lowerPattern(arm.Pattern, subj, next)
		if arm.Guard != nil {
			body := l.newLabel("armbody")
			l.branch(l.value(arm.Guard), body, next)
			l.label(body)
		}
		l.lowerBlock(arm.Body)
		l.jump(end)
		l.label(next)
	}
	l.jump(end)
	l.label(end)
}

// lowerPattern emits the test of p against subj, jumping to fail on a
// mismatch and falling through with the bindings stored on success.
func (l *Lowerer) lowerPattern(p ast.Pattern, subj ir.Slot, fail string) {
	switch p := p.(type) {
	case *ast.WildcardPattern:
	case *ast.BindingPattern:
		sym := l.info.Defs[p]
		l.emit(ir.Instr{Op: ir.OpStore, Name: l.declare(sym, p.Name.Name), Args: []ir.Slot{subj}})
	case *ast.LiteralPattern:
		eq := l.emitValue(ir.Instr{Op: ir.OpBinOp, Operator: "==", Args: []ir.Slot{subj, l.value(p.Value)}, Type: "bool"})
		l.test(eq, fail)
	case *ast.TuplePattern:
		l.lowerSeqPattern("match.tuple", p.Elems, subj, fail)
	case *ast.ListPattern:
		l.lowerSeqPattern("match.list", p.Elems, subj, fail)
	}
}

func (l *Lowerer) lowerSeqPattern(check string, elems []ast.Pattern, subj ir.Slot, fail string) {
	n := l.use(constant(ir.IntValue(int64(len(elems)))))
	l.test(l.call(check, "bool", subj, n), fail)
	for i, e := range elems {
		if _, ok := e.(*ast.WildcardPattern); ok {
			continue
		}
		idx := l.use(constant(ir.IntValue(int64(i))))
		l.lowerPattern(e, l.call("index", "", subj, idx), fail)
	}
}

// test continues in a fresh block when cond holds and jumps to fail
// otherwise.
func (l *Lowerer) test(cond ir.Slot, fail string) {
	ok := l.newLabel("match")
	l.branch(cond, ok, fail)
	l.label(ok)
}

// lowerTry brackets the body with try.enter and try.exit. try.enter yields
// true on entry and false when an error unwinds to it.
func (l *Lowerer) lowerTry(s *ast.TryStmt) {
	body, catch := l.newLabel("try"), l.newLabel("catch")
	finally, end := l.newLabel("finally"), l.newLabel("endtry")

	l.branch(l.call("try.enter", "bool"), body, catch)
	l.label(body)
	l.withTry(s, false, func() { l.lowerBlock(s.Body) })
	l.call("try.exit", "")
	l.jump(finally)

	l.label(catch)
	err := l.call("try.error", "")
	if s.Catch != nil {
		if s.CatchVar != nil {
			sym := l.info.Defs[s.CatchVar]
			l.emit(ir.Instr{Op: ir.OpStore, Name: l.declare(sym, s.CatchVar.Name), Args: []ir.Slot{err}})
		}
		l.withTry(s, true, func() { l.lowerBlock(s.Catch) })
		l.jump(finally)
	} else {
		// No handler: run the cleanup, then propagate.
		l.lowerBlock(s.Finally)
		l.call("throw", "", err)
		l.jump(end)
	}

	l.label(finally)
	l.lowerBlock(s.Finally)
	l.jump(end)
	l.label(end)
}

// withTry lowers fn with s pushed on the try stack.
func (l *Lowerer) withTry(s *ast.TryStmt, handled bool, fn func()) {
	st := l.cur
	st.tries = append(st.tries, tryFrame{stmt: s, loops: len(st.loops), handled: handled})
	fn()
	st.tries = st.tries[:len(st.tries)-1]
}

// unwind leaves every try statement entered at loop depth depth or deeper,
// innermost first: the handler is removed and the finally block runs. A
// depth of zero leaves them all, as a return does.
func (l *Lowerer) unwind(depth int) {
	st := l.cur
	saved := st.tries
	defer func() { st.tries = saved }()
	for i := len(saved) - 1; i >= 0 && saved[i].loops >= depth; i-- {
		// A jump out of the finally block must not run it again.
		st.tries = saved[:i]
		if !saved[i].handled {
			l.call("try.exit", "")
		}
		l.lowerBlock(saved[i].stmt.Finally)
	}
}

func (l *Lowerer) lowerAssign(s *ast.AssignStmt) {
	compound := strings.TrimSuffix(string(s.Op), "=")

	// combine applies a compound operator to the current value.
	combine := func(cur operand) ir.Slot {
		rhs := l.lowerExpr(s.Value)
		if compound == "" {
			return l.use(rhs)
		}
		return l.emitValue(ir.Instr{Op: ir.OpBinOp, Operator: compound, Args: []ir.Slot{l.use(cur), l.use(rhs)}})
	}

	switch target := s.Target.(type) {
	case *ast.Ident:
		sym := l.info.Uses[target]
		name, global := target.Name, true
		if sym != nil {
			name, global = l.storageOf(sym, target.Name), isGlobal(sym)
		}
		var cur operand
		if compound != "" {
			cur = operand{slot: l.emitValue(ir.Instr{Op: ir.OpLoad, Name: name, Global: global})}
		}
		l.emit(ir.Instr{Op: ir.OpStore, Name: name, Global: global, Args: []ir.Slot{combine(cur)}})
	case *ast.MemberExpr:
		obj := l.value(target.Target)
		field := l.str(target.Field.Name)
		var cur operand
		if compound != "" {
			cur = operand{slot: l.call("field", "", obj, field)}
		}
		l.call("field.set", "", obj, field, combine(cur))
	case *ast.IndexExpr:
		obj := l.value(target.Target)
		idx := l.value(target.Index)
		var cur operand
		if compound != "" {
			cur = operand{slot: l.call("index", "", obj, idx)}
		}
		l.call("index.set", "", obj, idx, combine(cur))
	default:
		panic(&ir.InternalError{Func: l.cur.fn.Name, Msg: "cannot assign to expression"})
	}
}

func (l *Lowerer) lowerExtern(s *ast.ExternBlock) {
	ext := ir.Extern{Language: s.Language, Source: s.RawSource}
	for _, sig := range s.Signatures {
		f := ir.ExternFunc{Name: sig.Name.Name}
		for _, p := range sig.Params {
			f.Params = append(f.Params, p.Name.Name)
		}
		if sym := l.info.Defs[sig]; sym != nil {
			if fn, ok := sym.Type.(*types.Function); ok {
				f.Return = typeName(fn.Return)
			}
		}
		ext.Functions = append(ext.Functions, f)
	}
	l.module.Externs = append(l.module.Externs, ext)
}
