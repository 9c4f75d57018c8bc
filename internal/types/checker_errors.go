package types

import (
	"fmt"

	"github.com/xrash/smetrics"

	"github.com/gul-lang/gul-lang/internal/ast"
	"github.com/gul-lang/gul-lang/internal/diag"
	"github.com/gul-lang/gul-lang/internal/lexer"
)

// toDiagSpan converts a lexer.Span to a diag.Span.
func toDiagSpan(span lexer.Span) diag.Span {
	return diag.Span{
		Filename: span.Filename,
		Line:     span.Line,
		Column:   span.Column,
		Start:    span.Start,
		End:      span.End,
	}
}

func (c *Checker) report(d diag.Diagnostic) {
	d.Stage = diag.StageSemantic
	if d.Severity == "" {
		d.Severity = diag.SeverityError
	}
	c.errors.Add(d)
}

func (c *Checker) reportError(code diag.Code, msg string, span lexer.Span) {
	c.report(diag.Diagnostic{Severity: diag.SeverityError, Code: code, Message: msg, Span: toDiagSpan(span)})
}

func (c *Checker) reportWarning(code diag.Code, msg string, span lexer.Span) {
	c.report(diag.Diagnostic{Severity: diag.SeverityWarning, Code: code, Message: msg, Span: toDiagSpan(span)})
}

// errorCount counts error-severity diagnostics; warnings are excluded.
func (c *Checker) errorCount() int {
	return len(c.errors.Errors())
}

func (c *Checker) reportMismatch(expected, found Type, span lexer.Span) {
	c.reportError(diag.CodeSemTypeMismatch,
		fmt.Sprintf("mismatched types: expected %s, found %s", expected, found), span)
}

func (c *Checker) reportUndefined(ident *ast.Ident) {
	d := diag.Diagnostic{
		Code:    diag.CodeSemUndefinedName,
		Message: fmt.Sprintf("undefined name `%s`", ident.Name),
		Span:    toDiagSpan(ident.Span()),
	}
	if guess := c.closestName(ident.Name); guess != "" {
		d = d.WithHelp(fmt.Sprintf("did you mean `%s`?", guess))
	}
	c.report(d)
}

func (c *Checker) reportUseAfterMove(ident *ast.Ident, sym *Symbol) {
	d := diag.Diagnostic{
		Code:    diag.CodeSemUseAfterMove,
		Message: fmt.Sprintf("use of moved value `%s`", ident.Name),
		Span:    toDiagSpan(ident.Span()),
	}.WithLabel(toDiagSpan(ident.Span()), "value used here after move")
	if sym.movedAt != nil {
		d = d.WithSecondary(toDiagSpan(sym.movedAt.Span()), "value moved here")
	}
	c.report(d.WithHelp(fmt.Sprintf("use `copy %s` or `ref %s` before the move", ident.Name, ident.Name)))
}

func (c *Checker) reportCapture(id *ast.Ident, sym *Symbol) {
	d := diag.Diagnostic{
		Code:    diag.CodeSemCapturedLocal,
		Message: fmt.Sprintf("cannot use `%s` of an enclosing scope inside a nested function", id.Name),
		Span:    toDiagSpan(id.Span()),
	}.WithLabel(toDiagSpan(id.Span()), "captured here")
	if sym.DefNode != nil {
		d = d.WithSecondary(toDiagSpan(sym.DefNode.Span()), "declared here")
	}
	c.report(d.WithHelp(fmt.Sprintf("pass `%s` as a parameter", id.Name)))
}

// closestName suggests a visible name within edit distance 2 of name.
// Names inserted only because an earlier lookup failed are skipped; a
// declared binding whose initializer failed is still offered.
func (c *Checker) closestName(name string) string {
	best, bestDist := "", 3
	for sc := c.scope; sc != nil; sc = sc.Parent {
		for candidate, sym := range sc.Symbols {
			if sym.Kind != SymBuiltin && sym.DefNode == nil {
				continue
			}
			if d := smetrics.WagnerFischer(name, candidate, 1, 1, 1); d < bestDist || (d == bestDist && candidate < best) {
				best, bestDist = candidate, d
			}
		}
	}
	if bestDist > 2 {
		return ""
	}
	return best
}
