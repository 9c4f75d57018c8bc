package ir

import (
	"cmp"
	"math"
)

// EvalBinary folds a binary operator over two constants. It reports false
// when the operation is not defined for the operands or must not be folded,
// such as integer division by zero.
func EvalBinary(op string, a, b Value) (Value, bool) {
	if a.Unit != "" || b.Unit != "" {
		// Unit arithmetic is checked at runtime.
		return Value{}, false
	}
	switch {
	case a.Kind == KindInt && b.Kind == KindInt:
		return evalInt(op, a.Int, b.Int)
	case isNum(a) && isNum(b):
		return evalFloat(op, toFloat(a), toFloat(b))
	case a.Kind == KindStr && b.Kind == KindStr:
		return evalStr(op, a.Str, b.Str)
	case a.Kind == KindBool && b.Kind == KindBool:
		switch op {
		case "and":
			return BoolValue(a.Bool && b.Bool), true
		case "or":
			return BoolValue(a.Bool || b.Bool), true
		case "==":
			return BoolValue(a.Bool == b.Bool), true
		case "!=":
			return BoolValue(a.Bool != b.Bool), true
		}
	}
	return Value{}, false
}

// EvalUnary folds a prefix operator over a constant.
func EvalUnary(op string, v Value) (Value, bool) {
	switch op {
	case "-":
		switch v.Kind {
		case KindInt:
			return IntValue(-v.Int), true
		case KindFloat:
			return FloatValue(-v.Float), true
		}
	case "!", "not":
		if v.Kind == KindBool {
			return BoolValue(!v.Bool), true
		}
	}
	return Value{}, false
}

func isNum(v Value) bool { return v.Kind == KindInt || v.Kind == KindFloat }

func toFloat(v Value) float64 {
	if v.Kind == KindInt {
		return float64(v.Int)
	}
	return v.Float
}

func evalInt(op string, a, b int64) (Value, bool) {
	switch op {
	case "+":
		return IntValue(a + b), true
	case "-":
		return IntValue(a - b), true
	case "*":
		return IntValue(a * b), true
	case "/":
		if b == 0 {
			return Value{}, false
		}
		return IntValue(a / b), true
	case "%":
		if b == 0 {
			return Value{}, false
		}
		return IntValue(a % b), true
	case "^":
		if b < 0 {
			return Value{}, false
		}
		return IntValue(ipow(a, b)), true
	}
	return compare(op, cmp.Compare(a, b))
}

func ipow(base, exp int64) int64 {
	result := int64(1)
	for exp > 0 {
		if exp&1 == 1 {
			result *= base
		}
		base *= base
		exp >>= 1
	}
	return result
}

func evalFloat(op string, a, b float64) (Value, bool) {
	switch op {
	case "+":
		return FloatValue(a + b), true
	case "-":
		return FloatValue(a - b), true
	case "*":
		return FloatValue(a * b), true
	case "/":
		if b == 0 {
			return Value{}, false
		}
		return FloatValue(a / b), true
	case "%":
		if b == 0 {
			return Value{}, false
		}
		return FloatValue(math.Mod(a, b)), true
	case "^":
		return FloatValue(math.Pow(a, b)), true
	}
	if math.IsNaN(a) || math.IsNaN(b) {
		return Value{}, false
	}
	return compare(op, cmp.Compare(a, b))
}

func evalStr(op string, a, b string) (Value, bool) {
	if op == "+" {
		return StrValue(a + b), true
	}
	return compare(op, cmp.Compare(a, b))
}

func compare(op string, c int) (Value, bool) {
	switch op {
	case "==":
		return BoolValue(c == 0), true
	case "!=":
		return BoolValue(c != 0), true
	case "<":
		return BoolValue(c < 0), true
	case "<=":
		return BoolValue(c <= 0), true
	case ">":
		return BoolValue(c > 0), true
	case ">=":
		return BoolValue(c >= 0), true
	}
	return Value{}, false
}
