package diag

import (
	"sort"
	"strings"
)

// List accumulates diagnostics from one or more stages. A List with at least
// one error-severity entry is itself usable as an error through Err.
type List []Diagnostic

// Add appends d.
func (l *List) Add(d Diagnostic) {
	*l = append(*l, d)
}

// Extend appends every diagnostic of other.
func (l *List) Extend(other List) {
	*l = append(*l, other...)
}

// HasErrors reports whether any diagnostic has error severity.
func (l List) HasErrors() bool {
	for _, d := range l {
		if d.IsError() {
			return true
		}
	}
	return false
}

// Errors returns only the error-severity diagnostics.
func (l List) Errors() List {
	var out List
	for _, d := range l {
		if d.IsError() {
			out = append(out, d)
		}
	}
	return out
}

// Warnings returns only the warning-severity diagnostics.
func (l List) Warnings() List {
	var out List
	for _, d := range l {
		if d.Severity == SeverityWarning {
			out = append(out, d)
		}
	}
	return out
}

// WithCode filters the list down to diagnostics carrying code.
func (l List) WithCode(code Code) List {
	var out List
	for _, d := range l {
		if d.Code == code {
			out = append(out, d)
		}
	}
	return out
}

// Sort orders diagnostics by file, then position. The sort is stable so
// diagnostics at the same position keep their emission order.
func (l List) Sort() {
	sort.SliceStable(l, func(i, j int) bool {
		a, b := l[i].Span, l[j].Span
		if a.Filename != b.Filename {
			return a.Filename < b.Filename
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
}

// Error joins all diagnostics, one per line.
func (l List) Error() string {
	var b strings.Builder
	for i, d := range l {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(d.Error())
	}
	return b.String()
}

// Err returns the list as an error if it holds at least one error, nil
// otherwise. Warnings alone never fail a compilation.
func (l List) Err() error {
	if !l.HasErrors() {
		return nil
	}
	return l
}
