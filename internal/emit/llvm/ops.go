package llvm

import (
	llir "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/gul-lang/gul-lang/internal/ir"
)

func (g *generator) binop(op string, x, y value.Value) (value.Value, error) {
	b := g.cur
	xt, yt := x.Type(), y.Type()
	switch {
	case isBool(xt) && isBool(yt):
		switch op {
		case "and":
			return b.NewAnd(x, y), nil
		case "or":
			return b.NewOr(x, y), nil
		case "==", "!=":
			return b.NewICmp(intPreds[op], x, y), nil
		}
	case isInt(xt) && isInt(yt):
		switch op {
		case "+":
			return b.NewAdd(x, y), nil
		case "-":
			return b.NewSub(x, y), nil
		case "*":
			return b.NewMul(x, y), nil
		case "/":
			return b.NewSDiv(x, y), nil
		case "%":
			return b.NewSRem(x, y), nil
		case "^":
			p := g.power(b.NewSIToFP(x, types.Double), b.NewSIToFP(y, types.Double))
			return b.NewFPToSI(p, types.I64), nil
		}
		if pred, ok := intPreds[op]; ok {
			return b.NewICmp(pred, x, y), nil
		}
	case isNumeric(xt) && isNumeric(yt):
		x, _ = g.coerce(x, types.Double)
		y, _ = g.coerce(y, types.Double)
		switch op {
		case "+":
			return b.NewFAdd(x, y), nil
		case "-":
			return b.NewFSub(x, y), nil
		case "*":
			return b.NewFMul(x, y), nil
		case "/":
			return b.NewFDiv(x, y), nil
		case "%":
			return b.NewFRem(x, y), nil
		case "^":
			return g.power(x, y), nil
		}
		if pred, ok := floatPreds[op]; ok {
			return b.NewFCmp(pred, x, y), nil
		}
	}
	return nil, unsupported("%s %s %s", xt, op, yt)
}

func (g *generator) unop(op string, x value.Value) (value.Value, error) {
	switch t := x.Type(); {
	case op == "-" && isInt(t):
		return g.cur.NewSub(constant.NewInt(types.I64, 0), x), nil
	case op == "-" && isFloat(t):
		return g.cur.NewFNeg(x), nil
	case (op == "!" || op == "not") && isBool(t):
		return g.cur.NewXor(x, constant.True), nil
	}
	return nil, unsupported("%s%s", op, x.Type())
}

// power calls the llvm.pow.f64 intrinsic, declaring it on first use.
func (g *generator) power(x, y value.Value) value.Value {
	if g.pow == nil {
		g.pow = g.module.NewFunc("llvm.pow.f64", types.Double,
			llir.NewParam("", types.Double), llir.NewParam("", types.Double))
	}
	return g.cur.NewCall(g.pow, x, y)
}

func constValue(v *ir.Value) (value.Value, error) {
	if v == nil {
		return nil, unsupported("empty constant")
	}
	switch v.Kind {
	case ir.KindInt:
		return constant.NewInt(types.I64, v.Int), nil
	case ir.KindFloat:
		return constant.NewFloat(types.Double, v.Float), nil
	case ir.KindBool:
		return constant.NewBool(v.Bool), nil
	}
	return nil, unsupported("%s constant", v.Kind)
}

func scalarType(name string) (types.Type, error) {
	switch name {
	case "int":
		return types.I64, nil
	case "float":
		return types.Double, nil
	case "bool":
		return types.I1, nil
	}
	if name == "" {
		return nil, unsupported("untyped value")
	}
	return nil, unsupported("type %s", name)
}

// returnType maps a result type; no type and unit both mean void.
func returnType(name string) (types.Type, error) {
	if name == "" || name == "unit" {
		return types.Void, nil
	}
	return scalarType(name)
}

func zero(t types.Type) constant.Constant {
	switch {
	case isFloat(t):
		return constant.NewFloat(types.Double, 0)
	case isBool(t):
		return constant.False
	}
	return constant.NewInt(types.I64, 0)
}

func isInt(t types.Type) bool     { return t.Equal(types.I64) }
func isFloat(t types.Type) bool   { return t.Equal(types.Double) }
func isBool(t types.Type) bool    { return t.Equal(types.I1) }
func isNumeric(t types.Type) bool { return isInt(t) || isFloat(t) }
