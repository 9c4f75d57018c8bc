// Package codegen lowers an analyzed AST to the flat IR.
package codegen

import (
	"fmt"

	"github.com/gul-lang/gul-lang/internal/ast"
	"github.com/gul-lang/gul-lang/internal/ir"
	"github.com/gul-lang/gul-lang/internal/types"
)

// InitFunc is the synthetic function holding top-level statements.
const InitFunc = "__init__"

type Option func(*Lowerer)

// WithFolding enables or disables constant folding. Folding is on by
// default.
func WithFolding(on bool) Option {
	return func(l *Lowerer) { l.fold = on }
}

// Lowerer converts an analyzed program to IR. The program must have passed
// analysis without errors.
type Lowerer struct {
	info   *types.Info
	module *ir.Module
	fold   bool

	// storage maps every variable to its unique storage name.
	storage map[*types.Symbol]string
	// fnNames maps function symbols to their lowered names.
	fnNames map[*types.Symbol]string
	// globalNames counts module-level declarations per source name.
	globalNames map[string]int
	registered  map[*ast.FnDecl]bool

	cur     *funcState
	pending []pendingFunc
}

// funcState is the per-function part of lowering.
type funcState struct {
	fn         *ir.Function
	slot       ir.Slot
	labels     int
	names      map[string]int
	loops      []loopLabels
	tries      []tryFrame
	terminated bool
}

type loopLabels struct {
	brk, cont string
}

// tryFrame is a try statement whose body or handler is being lowered.
// Leaving it early must run its cleanup.
type tryFrame struct {
	stmt *ast.TryStmt
	// loops is the loop depth the statement sits at.
	loops int
	// handled is set once an error reached the catch block; the handler
	// is no longer registered.
	handled bool
}

type pendingFunc struct {
	name string
	decl *ast.FnDecl
	sig  *types.Function
}

// Lower converts prog to an IR module. It panics with *ir.InternalError if
// the produced IR is malformed.
func Lower(prog *ast.Program, info *types.Info, opts ...Option) *ir.Module {
	l := &Lowerer{
		info:        info,
		module:      &ir.Module{},
		fold:        true,
		storage:     make(map[*types.Symbol]string),
		fnNames:     make(map[*types.Symbol]string),
		globalNames: make(map[string]int),
		registered:  make(map[*ast.FnDecl]bool),
	}
	for _, opt := range opts {
		opt(l)
	}

	l.lowerFunc(&ir.Function{Name: InitFunc}, func() {
		l.lowerStmts(prog.Stmts)
	})
	for len(l.pending) > 0 {
		p := l.pending[0]
		l.pending = l.pending[1:]
		l.lowerFnDecl(p.name, p.decl, p.sig)
	}

	if err := ir.Verify(l.module); err != nil {
		panic(err)
	}
	return l.module
}

// registerFuncs names the functions and methods declared in stmts and
// queues them for lowering, so calls may precede declarations. Functions
// nested in another function are qualified with its name.
func (l *Lowerer) registerFuncs(stmts []ast.Stmt) {
	prefix := ""
	if l.cur.fn.Name != InitFunc {
		prefix = l.cur.fn.Name + "."
	}
	queue := func(name string, d *ast.FnDecl, sig *types.Function) {
		if l.registered[d] {
			return
		}
		l.registered[d] = true
		l.pending = append(l.pending, pendingFunc{name: name, decl: d, sig: sig})
	}
	for _, stmt := range stmts {
		switch d := stmt.(type) {
		case *ast.FnDecl:
			if sym := l.info.Defs[d]; sym != nil {
				l.fnNames[sym] = prefix + d.Name.Name
				sig, _ := sym.Type.(*types.Function)
				queue(prefix+d.Name.Name, d, sig)
			}
		case *ast.StructDecl:
			sym := l.info.Defs[d]
			if sym == nil {
				continue
			}
			// Methods have no symbol of their own; the struct holds
			// their signatures.
			st, _ := sym.Type.(*types.Struct)
			for _, m := range d.Methods {
				var sig *types.Function
				if st != nil {
					sig = st.Methods[m.Name.Name]
				}
				queue(d.Name.Name+"."+m.Name.Name, m, sig)
			}
		}
	}
}

// lowerFunc runs body with fn as the current function and appends fn to the
// module. A missing final return is added.
func (l *Lowerer) lowerFunc(fn *ir.Function, body func()) {
	saved := l.cur
	l.cur = &funcState{fn: fn, names: make(map[string]int)}
	body()
	if !l.cur.terminated {
		l.emit(ir.Instr{Op: ir.OpReturn})
	}
	l.module.Functions = append(l.module.Functions, fn)
	l.cur = saved
}

func (l *Lowerer) lowerFnDecl(name string, d *ast.FnDecl, sig *types.Function) {
	fn := &ir.Function{Name: name, Async: d.Async}
	if sig != nil {
		fn.Return = typeName(sig.Return)
	}
	l.lowerFunc(fn, func() {
		for _, p := range d.Params {
			sym := l.info.Defs[p]
			param := ir.Param{Name: l.declare(sym, p.Name.Name)}
			if sym != nil {
				param.Type = typeName(sym.Type)
			}
			fn.Params = append(fn.Params, param)
		}
		l.lowerStmts(d.Body.Stmts)
	})
}

// emit appends an instruction. Code following a terminator starts a fresh
// block, which has no predecessor.
func (l *Lowerer) emit(in ir.Instr) {
	st := l.cur
	if st.terminated && in.Op != ir.OpLabel {
		st.fn.Instrs = append(st.fn.Instrs, ir.Instr{Op: ir.OpLabel, Name: l.newLabel("dead")})
	}
	st.fn.Instrs = append(st.fn.Instrs, in)
	st.terminated = in.Op.IsTerminator()
}

// emitValue appends an instruction that produces a new slot.
func (l *Lowerer) emitValue(in ir.Instr) ir.Slot {
	l.cur.slot++
	in.Result = l.cur.slot
	l.emit(in)
	return in.Result
}

func (l *Lowerer) newLabel(prefix string) string {
	l.cur.labels++
	return fmt.Sprintf("%s.%d", prefix, l.cur.labels)
}

func (l *Lowerer) label(name string) {
	l.emit(ir.Instr{Op: ir.OpLabel, Name: name})
}

func (l *Lowerer) jump(target string) {
	l.emit(ir.Instr{Op: ir.OpJump, Targets: []string{target}})
}

func (l *Lowerer) branch(cond ir.Slot, then, els string) {
	l.emit(ir.Instr{Op: ir.OpBranch, Args: []ir.Slot{cond}, Targets: []string{then, els}})
}

// isGlobal reports whether sym lives in module storage.
func isGlobal(sym *types.Symbol) bool {
	return sym != nil && (sym.ScopeID == types.GlobalScopeID || sym.ScopeID == types.ModuleScopeID)
}

// declare assigns a storage name to a new binding. A name declared again
// in the same function, or again at module level, is suffixed with #N.
func (l *Lowerer) declare(sym *types.Symbol, name string) string {
	if sym != nil {
		if s, ok := l.storage[sym]; ok {
			return s
		}
	}
	counts := l.cur.names
	if isGlobal(sym) {
		counts = l.globalNames
	}
	n := counts[name]
	counts[name] = n + 1
	storage := name
	if n > 0 {
		storage = fmt.Sprintf("%s#%d", name, n)
	}
	if sym != nil {
		l.storage[sym] = storage
	}
	if isGlobal(sym) {
		l.module.Globals = append(l.module.Globals, ir.Global{Name: storage, Type: typeName(sym.Type)})
	}
	return storage
}

// storageOf returns the storage name of sym, declaring it on first use.
func (l *Lowerer) storageOf(sym *types.Symbol, name string) string {
	if s, ok := l.storage[sym]; ok {
		return s
	}
	return l.declare(sym, name)
}

// typeName renders an analyzer type for the IR. Types that carry no
// information are left empty.
func typeName(t types.Type) string {
	if t == nil {
		return ""
	}
	switch t {
	case types.TypeAny, types.TypeUnknown:
		return ""
	}
	return t.String()
}

func (l *Lowerer) typeOf(e ast.Expr) string {
	return typeName(l.info.Types[e])
}
