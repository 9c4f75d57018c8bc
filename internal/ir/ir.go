// Package ir defines the flat intermediate representation produced by
// codegen and consumed by emitters.
package ir

import "fmt"

// Op is the operation of an instruction.
type Op string

const (
	OpConst  Op = "const"
	OpBinOp  Op = "binop"
	OpUnOp   Op = "unop"
	OpCall   Op = "call"
	OpLoad   Op = "load"
	OpStore  Op = "store"
	OpBranch Op = "branch"
	OpJump   Op = "jump"
	OpLabel  Op = "label"
	OpReturn Op = "return"
)

// IsPure reports whether an instruction with this op may be removed when
// its result is unused.
func (op Op) IsPure() bool {
	switch op {
	case OpConst, OpBinOp, OpUnOp, OpLoad:
		return true
	}
	return false
}

// IsTerminator reports whether op ends a basic block.
func (op Op) IsTerminator() bool {
	return op == OpBranch || op == OpJump || op == OpReturn
}

// Kind is the kind of a constant.
type Kind string

const (
	KindInt   Kind = "int"
	KindFloat Kind = "float"
	KindStr   Kind = "str"
	KindBool  Kind = "bool"
	KindUnit  Kind = "unit"
)

// Value is a compile-time constant.
type Value struct {
	Kind  Kind    `json:"kind"`
	Int   int64   `json:"int,omitempty"`
	Float float64 `json:"float,omitempty"`
	Str   string  `json:"str,omitempty"`
	Bool  bool    `json:"bool,omitempty"`
	// Unit is the unit suffix of a unit float literal such as 9.8 m/s^2.
	Unit string `json:"unit,omitempty"`
}

func IntValue(v int64) Value     { return Value{Kind: KindInt, Int: v} }
func FloatValue(v float64) Value { return Value{Kind: KindFloat, Float: v} }
func StrValue(v string) Value    { return Value{Kind: KindStr, Str: v} }
func BoolValue(v bool) Value     { return Value{Kind: KindBool, Bool: v} }
func UnitValue() Value           { return Value{Kind: KindUnit} }

func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return fmt.Sprint(v.Int)
	case KindFloat:
		s := fmt.Sprint(v.Float)
		if v.Unit != "" {
			s += " " + v.Unit
		}
		return s
	case KindStr:
		return fmt.Sprintf("%q", v.Str)
	case KindBool:
		return fmt.Sprint(v.Bool)
	}
	return "()"
}

// Slot numbers a value produced by an instruction. Slot 0 means no result.
type Slot = int

// Instr is a single IR instruction. Which fields are meaningful depends on
// Op:
//
//	Const   Result = Value
//	BinOp   Result = Args[0] Operator Args[1]
//	UnOp    Result = Operator Args[0]
//	Call    Result = Name(Args...)        Result may be 0
//	Load    Result = Name                 Global marks module storage
//	Store   Name = Args[0]
//	Branch  if Args[0] goto Targets[0] else Targets[1]
//	Jump    goto Targets[0]
//	Label   Name:
//	Return  return Args[0], or nothing when Args is empty
type Instr struct {
	Op       Op       `json:"op"`
	Result   Slot     `json:"result,omitempty"`
	Args     []Slot   `json:"args,omitempty"`
	Value    *Value   `json:"value,omitempty"`
	Operator string   `json:"operator,omitempty"`
	Name     string   `json:"name,omitempty"`
	Targets  []string `json:"targets,omitempty"`
	Global   bool     `json:"global,omitempty"`
	// Type is the analyzer's type of the result, when known.
	Type string `json:"type,omitempty"`
}

// Param is a function parameter. Parameters are read with Load by Name.
type Param struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// Function is a flat instruction list. Labels split it into basic blocks.
type Function struct {
	Name   string  `json:"name"`
	Params []Param `json:"params,omitempty"`
	Return string  `json:"return,omitempty"`
	Async  bool    `json:"async,omitempty"`
	Instrs []Instr `json:"instrs"`
}

// Global is module-level storage.
type Global struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// Import is an imported module bound under Alias.
type Import struct {
	Path  string `json:"path"`
	Alias string `json:"alias"`
}

// ExternFunc is a foreign function callable by name.
type ExternFunc struct {
	Name   string   `json:"name"`
	Params []string `json:"params,omitempty"`
	Return string   `json:"return,omitempty"`
}

// Extern is an opaque foreign block, passed through untouched.
type Extern struct {
	Language  string       `json:"language"`
	Source    string       `json:"source"`
	Functions []ExternFunc `json:"functions,omitempty"`
}

// Module is a lowered compilation unit.
type Module struct {
	Functions []*Function `json:"functions"`
	Globals   []Global    `json:"globals,omitempty"`
	Imports   []Import    `json:"imports,omitempty"`
	Externs   []Extern    `json:"externs,omitempty"`
}

// Function returns the named function, or nil.
func (m *Module) Function(name string) *Function {
	for _, fn := range m.Functions {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}
