package lsp

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gul-lang/gul-lang/internal/ast"
	"github.com/gul-lang/gul-lang/internal/driver"
	"github.com/gul-lang/gul-lang/internal/types"
)

// Hover is the reply to textDocument/hover.
type Hover struct {
	Contents MarkupContent `json:"contents"`
	Range    *Range        `json:"range,omitempty"`
}

type MarkupContent struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

func (s *Server) handleHover(raw json.RawMessage) (any, *jsonrpcError) {
	var params TextDocumentPositionParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, invalidParams(err)
	}
	doc := s.document(params.TextDocument.URI)
	if doc == nil || doc.Result.Info == nil {
		return nil, nil
	}
	h := hover(doc.Result, positionToOffset(doc.Text, params.Position))
	if h == nil {
		return nil, nil
	}
	return h, nil
}

func hover(r *driver.Result, offset int) *Hover {
	ident, member := findIdentifierAt(r.Program, offset)
	if ident == nil {
		return nil
	}

	var text string
	if sym := symbolAt(r.Info, ident); sym != nil {
		text = describe(sym)
	} else if member != nil && member.Field == ident {
		t := r.Info.TypeOf(member)
		if t == types.TypeUnknown {
			return nil
		}
		text = fmt.Sprintf("%s: %s", ident.Name, t)
		if fn, ok := t.(*types.Function); ok {
			text = signature(ident.Name, fn)
		}
	} else {
		return nil
	}

	rng := lexerRange(ident.Span())
	return &Hover{
		Contents: MarkupContent{Kind: "markdown", Value: "```gul\n" + text + "\n```"},
		Range:    &rng,
	}
}

// describe renders sym the way it would be declared.
func describe(sym *types.Symbol) string {
	switch sym.Kind {
	case types.SymFunc, types.SymExtern, types.SymBuiltin:
		if fn, ok := sym.Type.(*types.Function); ok {
			return signature(sym.Name, fn)
		}
	case types.SymStruct:
		return "struct " + sym.Name
	case types.SymImport:
		return "import " + sym.Name
	case types.SymParam:
		return fmt.Sprintf("%s: %s", sym.Name, typeString(sym.Type))
	}
	kw := "let"
	if sym.Mutable {
		kw = "var"
	}
	return fmt.Sprintf("%s %s: %s", kw, sym.Name, typeString(sym.Type))
}

func signature(name string, fn *types.Function) string {
	return strings.Replace(fn.String(), "fn(", "fn "+name+"(", 1)
}

func typeString(t types.Type) string {
	if t == nil {
		return "unknown"
	}
	return t.String()
}

// findIdentifierAt returns the innermost identifier covering offset, and the
// member expression it is the field of, if any.
func findIdentifierAt(prog *ast.Program, offset int) (*ast.Ident, *ast.MemberExpr) {
	if prog == nil {
		return nil, nil
	}
	var (
		found  *ast.Ident
		member *ast.MemberExpr
	)
	ast.Walk(prog, func(n ast.Node) bool {
		if found != nil {
			return false
		}
		span := n.Span()
		// Nodes without a span (synthesized) still need their children visited.
		if span.End > span.Start && (offset < span.Start || offset > span.End) {
			return false
		}
		switch n := n.(type) {
		case *ast.Ident:
			if offset >= span.Start && offset <= span.End {
				found = n
			}
		case *ast.MemberExpr:
			if n.Field != nil {
				fs := n.Field.Span()
				if offset >= fs.Start && offset <= fs.End {
					found, member = n.Field, n
				}
			}
		}
		return found == nil
	})
	return found, member
}

// symbolAt resolves ident as a use or as the name of a declaration.
func symbolAt(info *types.Info, ident *ast.Ident) *types.Symbol {
	if sym, ok := info.Uses[ident]; ok {
		return sym
	}
	for node, sym := range info.Defs {
		if declIdent(node) == ident {
			return sym
		}
	}
	return nil
}

// declIdent returns the identifier that names a declaration node.
func declIdent(n ast.Node) *ast.Ident {
	switch n := n.(type) {
	case *ast.VarDecl:
		return n.Name
	case *ast.FnDecl:
		return n.Name
	case *ast.StructDecl:
		return n.Name
	case *ast.Param:
		return n.Name
	case *ast.BindingPattern:
		return n.Name
	case *ast.ExternSig:
		return n.Name
	case *ast.Ident:
		return n
	}
	return nil
}
