package ir

import (
	"fmt"
	"strings"
)

// String returns a human-readable listing of the module.
func (m *Module) String() string {
	var b strings.Builder
	for _, imp := range m.Imports {
		fmt.Fprintf(&b, "import %s as %s\n", imp.Path, imp.Alias)
	}
	for _, g := range m.Globals {
		fmt.Fprintf(&b, "global @%s%s\n", g.Name, typeSuffix(g.Type))
	}
	for _, ext := range m.Externs {
		fmt.Fprintf(&b, "extern %s {", ext.Language)
		for i, fn := range ext.Functions {
			if i > 0 {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, " %s(%s)", fn.Name, strings.Join(fn.Params, ", "))
			if fn.Return != "" {
				b.WriteString(" -> " + fn.Return)
			}
		}
		b.WriteString(" }\n")
	}
	for i, fn := range m.Functions {
		if i > 0 || b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(fn.String())
	}
	return b.String()
}

// String returns a human-readable listing of the function.
func (f *Function) String() string {
	var b strings.Builder
	if f.Async {
		b.WriteString("async ")
	}
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.Name + typeSuffix(p.Type)
	}
	fmt.Fprintf(&b, "fn %s(%s)", f.Name, strings.Join(params, ", "))
	if f.Return != "" {
		b.WriteString(" -> " + f.Return)
	}
	b.WriteString(" {\n")
	for _, in := range f.Instrs {
		if in.Op == OpLabel {
			fmt.Fprintf(&b, "%s:\n", in.Name)
			continue
		}
		b.WriteString("  ")
		b.WriteString(in.String())
		b.WriteString("\n")
	}
	b.WriteString("}\n")
	return b.String()
}

func (in Instr) String() string {
	var s string
	switch in.Op {
	case OpConst:
		v := "<nil>"
		if in.Value != nil {
			v = in.Value.String()
		}
		s = "const " + v
	case OpBinOp:
		s = fmt.Sprintf("binop %s %s", in.Operator, slots(in.Args))
	case OpUnOp:
		s = fmt.Sprintf("unop %s %s", in.Operator, slots(in.Args))
	case OpCall:
		s = fmt.Sprintf("call %s(%s)", in.Name, slots(in.Args))
	case OpLoad:
		s = "load " + storage(in)
	case OpStore:
		s = fmt.Sprintf("store %s, %s", storage(in), slots(in.Args))
	case OpBranch:
		s = fmt.Sprintf("branch %s, %s", slots(in.Args), strings.Join(in.Targets, ", "))
	case OpJump:
		s = "jump " + strings.Join(in.Targets, ", ")
	case OpLabel:
		return in.Name + ":"
	case OpReturn:
		s = strings.TrimSpace("return " + slots(in.Args))
	default:
		s = string(in.Op)
	}
	if in.Result != 0 {
		s = fmt.Sprintf("%%%d = %s", in.Result, s)
	}
	if in.Type != "" && in.Result != 0 {
		s += " : " + in.Type
	}
	return s
}

func storage(in Instr) string {
	if in.Global {
		return "@" + in.Name
	}
	return in.Name
}

func slots(args []Slot) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprintf("%%%d", a)
	}
	return strings.Join(parts, ", ")
}

func typeSuffix(t string) string {
	if t == "" {
		return ""
	}
	return ": " + t
}
