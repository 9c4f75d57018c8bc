// Package llvm emits LLVM IR for the scalar subset of a lowered module:
// int, float and bool values, direct calls, globals and branches.
package llvm

import (
	"fmt"
	"io"

	llir "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/gul-lang/gul-lang/internal/emit"
	"github.com/gul-lang/gul-lang/internal/ir"
)

// Emitter writes LLVM assembly. The zero value is ready to use.
type Emitter struct{}

func (Emitter) Emit(w io.Writer, m *ir.Module) error {
	mod, err := Generate(m)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, mod.String())
	return err
}

// storage is an addressable variable: a global or a stack slot.
type storage struct {
	ptr  value.Value
	elem types.Type
}

type generator struct {
	module  *llir.Module
	funcs   map[string]*llir.Func
	externs map[string]*llir.Func
	globals map[string]*storage
	pow     *llir.Func

	// Per function.
	ret     types.Type
	cur     *llir.Block
	allocas *llir.Block
	blocks  map[string]*llir.Block
	locals  map[string]*storage
	slots   map[ir.Slot]value.Value
}

// Generate translates m to an LLVM module. Constructs outside the scalar
// subset fail with an error wrapping emit.ErrUnsupported.
func Generate(m *ir.Module) (*llir.Module, error) {
	g := &generator{
		module:  llir.NewModule(),
		funcs:   make(map[string]*llir.Func),
		externs: make(map[string]*llir.Func),
		globals: make(map[string]*storage),
	}

	for _, gl := range m.Globals {
		// Untyped globals take the type of their first store.
		if gl.Type == "" {
			continue
		}
		t, err := scalarType(gl.Type)
		if err != nil {
			return nil, fmt.Errorf("global %s: %w", gl.Name, err)
		}
		g.defineGlobal(gl.Name, t)
	}

	// Declare every function first; calls may precede definitions.
	for _, fn := range m.Functions {
		if fn.Async {
			return nil, unsupported("async function %s", fn.Name)
		}
		ret, err := returnType(fn.Return)
		if err != nil {
			return nil, fmt.Errorf("function %s: %w", fn.Name, err)
		}
		params := make([]*llir.Param, len(fn.Params))
		for i, p := range fn.Params {
			t, err := scalarType(p.Type)
			if err != nil {
				return nil, fmt.Errorf("function %s: parameter %s: %w", fn.Name, p.Name, err)
			}
			params[i] = llir.NewParam("", t)
		}
		g.funcs[fn.Name] = g.module.NewFunc(fn.Name, ret, params...)
	}

	for _, fn := range m.Functions {
		if err := g.function(fn); err != nil {
			return nil, fmt.Errorf("function %s: %w", fn.Name, err)
		}
	}
	return g.module, nil
}

func (g *generator) function(fn *ir.Function) error {
	f := g.funcs[fn.Name]
	g.ret = f.Sig.RetType
	g.blocks = make(map[string]*llir.Block)
	g.locals = make(map[string]*storage)
	g.slots = make(map[ir.Slot]value.Value)

	// Stack slots live in a dedicated first block.
	g.allocas = f.NewBlock("alloca")
	blocks := fn.Blocks()
	for _, b := range blocks {
		g.blocks[b.Label] = f.NewBlock(b.Label)
	}
	for i, p := range fn.Params {
		st := g.local(p.Name, f.Params[i].Typ)
		g.allocas.NewStore(f.Params[i], st.ptr)
	}
	if len(blocks) == 0 {
		g.allocas.NewRet(g.defaultReturn())
		return nil
	}
	g.allocas.NewBr(g.blocks[blocks[0].Label])

	for i, b := range blocks {
		g.cur = g.blocks[b.Label]
		for _, in := range b.Instrs {
			if err := g.instr(in); err != nil {
				return fmt.Errorf("%s: %w", in, err)
			}
		}
		if _, ok := b.Terminator(); ok {
			continue
		}
		if i+1 < len(blocks) {
			g.cur.NewBr(g.blocks[blocks[i+1].Label])
		} else {
			g.cur.NewRet(g.defaultReturn())
		}
	}
	return nil
}

func (g *generator) defaultReturn() value.Value {
	if g.ret.Equal(types.Void) {
		return nil
	}
	return zero(g.ret)
}

func (g *generator) instr(in ir.Instr) error {
	switch in.Op {
	case ir.OpConst:
		c, err := constValue(in.Value)
		if err != nil {
			return err
		}
		g.slots[in.Result] = c
	case ir.OpBinOp:
		args, err := g.operands(in.Args)
		if err != nil {
			return err
		}
		v, err := g.binop(in.Operator, args[0], args[1])
		if err != nil {
			return err
		}
		g.slots[in.Result] = v
	case ir.OpUnOp:
		x, err := g.operand(in.Args[0])
		if err != nil {
			return err
		}
		v, err := g.unop(in.Operator, x)
		if err != nil {
			return err
		}
		g.slots[in.Result] = v
	case ir.OpLoad:
		st := g.lookup(in.Name, in.Global)
		if st == nil {
			return unsupported("load of %s before any store", in.Name)
		}
		g.slots[in.Result] = g.cur.NewLoad(st.elem, st.ptr)
	case ir.OpStore:
		v, err := g.operand(in.Args[0])
		if err != nil {
			return err
		}
		st := g.lookup(in.Name, in.Global)
		switch {
		case st == nil && in.Global:
			st = g.defineGlobal(in.Name, v.Type())
		case st == nil:
			st = g.local(in.Name, v.Type())
		}
		if v, err = g.coerce(v, st.elem); err != nil {
			return fmt.Errorf("store to %s: %w", in.Name, err)
		}
		g.cur.NewStore(v, st.ptr)
	case ir.OpCall:
		return g.call(in)
	case ir.OpBranch:
		cond, err := g.operand(in.Args[0])
		if err != nil {
			return err
		}
		if !cond.Type().Equal(types.I1) {
			return unsupported("branch on %s", cond.Type())
		}
		g.cur.NewCondBr(cond, g.blocks[in.Targets[0]], g.blocks[in.Targets[1]])
	case ir.OpJump:
		g.cur.NewBr(g.blocks[in.Targets[0]])
	case ir.OpReturn:
		if g.ret.Equal(types.Void) || len(in.Args) == 0 {
			g.cur.NewRet(g.defaultReturn())
			return nil
		}
		v, err := g.operand(in.Args[0])
		if err != nil {
			return err
		}
		if v, err = g.coerce(v, g.ret); err != nil {
			return err
		}
		g.cur.NewRet(v)
	}
	return nil
}

func (g *generator) call(in ir.Instr) error {
	args, err := g.operands(in.Args)
	if err != nil {
		return err
	}
	f, ok := g.funcs[in.Name]
	if !ok {
		// Runtime functions and intrinsics are declared on first use.
		if f, err = g.external(in.Name, in.Type, args); err != nil {
			return err
		}
	}
	if len(args) != len(f.Params) {
		return unsupported("call of %s with %d arguments, want %d", in.Name, len(args), len(f.Params))
	}
	for i, p := range f.Params {
		if args[i], err = g.coerce(args[i], p.Typ); err != nil {
			return fmt.Errorf("argument %d of %s: %w", i+1, in.Name, err)
		}
	}
	call := g.cur.NewCall(f, args...)
	if !f.Sig.RetType.Equal(types.Void) {
		g.slots[in.Result] = call
	}
	return nil
}

func (g *generator) external(name, typ string, args []value.Value) (*llir.Func, error) {
	if f, ok := g.externs[name]; ok {
		return f, nil
	}
	ret, err := returnType(typ)
	if err != nil {
		return nil, fmt.Errorf("result of %s: %w", name, err)
	}
	params := make([]*llir.Param, len(args))
	for i, a := range args {
		params[i] = llir.NewParam("", a.Type())
	}
	f := g.module.NewFunc(name, ret, params...)
	g.externs[name] = f
	return f, nil
}

func (g *generator) lookup(name string, global bool) *storage {
	if global {
		return g.globals[name]
	}
	return g.locals[name]
}

func (g *generator) local(name string, t types.Type) *storage {
	a := g.allocas.NewAlloca(t)
	a.SetName(name)
	st := &storage{ptr: a, elem: t}
	g.locals[name] = st
	return st
}

func (g *generator) defineGlobal(name string, t types.Type) *storage {
	st := &storage{ptr: g.module.NewGlobalDef(name, zero(t)), elem: t}
	g.globals[name] = st
	return st
}

func (g *generator) operand(s ir.Slot) (value.Value, error) {
	v, ok := g.slots[s]
	if !ok {
		return nil, unsupported("%%%d has no scalar value", s)
	}
	return v, nil
}

func (g *generator) operands(slots []ir.Slot) ([]value.Value, error) {
	vs := make([]value.Value, len(slots))
	for i, s := range slots {
		v, err := g.operand(s)
		if err != nil {
			return nil, err
		}
		vs[i] = v
	}
	return vs, nil
}

// coerce converts v to t. Only int to float widening is implicit.
func (g *generator) coerce(v value.Value, t types.Type) (value.Value, error) {
	switch {
	case v.Type().Equal(t):
		return v, nil
	case isInt(v.Type()) && isFloat(t):
		return g.cur.NewSIToFP(v, types.Double), nil
	}
	return nil, unsupported("%s where %s is expected", v.Type(), t)
}

func unsupported(format string, args ...any) error {
	return fmt.Errorf("%w: %s", emit.ErrUnsupported, fmt.Sprintf(format, args...))
}

var (
	intPreds = map[string]enum.IPred{
		"==": enum.IPredEQ, "!=": enum.IPredNE,
		"<": enum.IPredSLT, "<=": enum.IPredSLE,
		">": enum.IPredSGT, ">=": enum.IPredSGE,
	}
	floatPreds = map[string]enum.FPred{
		"==": enum.FPredOEQ, "!=": enum.FPredUNE,
		"<": enum.FPredOLT, "<=": enum.FPredOLE,
		">": enum.FPredOGT, ">=": enum.FPredOGE,
	}
)
