package types

import (
	"sort"
)

var builtinMethodNames = []string{"append", "pop", "len", "keys", "values", "get", "add", "upper", "lower", "strip", "split"}

// Member is a field or method reachable with `.` on a value.
type Member struct {
	Name   string
	Type   Type
	Method bool
}

// Members lists the fields and methods of t, fields first, each group
// sorted by name.
func Members(t Type) []Member {
	var fields, methods []Member
	if st, ok := t.(*Struct); ok {
		for _, f := range st.Fields {
			fields = append(fields, Member{Name: f.Name, Type: f.Type})
		}
		for name, fn := range st.Methods {
			methods = append(methods, Member{Name: name, Type: fn, Method: true})
		}
	}
	for _, name := range builtinMethodNames {
		if fn := builtinMethod(t, name); fn != nil {
			methods = append(methods, Member{Name: name, Type: fn, Method: true})
		}
	}
	byName := func(ms []Member) {
		sort.Slice(ms, func(i, j int) bool { return ms[i].Name < ms[j].Name })
	}
	byName(fields)
	byName(methods)
	return append(fields, methods...)
}

// Builtins returns the signatures of the builtin functions by name.
func Builtins() map[string]*Function {
	return builtinSignatures()
}
