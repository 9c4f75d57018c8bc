package lsp

import (
	"encoding/json"

	"github.com/gul-lang/gul-lang/internal/driver"
)

// Location is a range in a document.
type Location struct {
	URI   string `json:"uri"`
	Range Range  `json:"range"`
}

func (s *Server) handleDefinition(raw json.RawMessage) (any, *jsonrpcError) {
	var params TextDocumentPositionParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, invalidParams(err)
	}
	doc := s.document(params.TextDocument.URI)
	if doc == nil || doc.Result.Info == nil {
		return nil, nil
	}
	loc := definition(doc.Result, positionToOffset(doc.Text, params.Position), doc.URI)
	if loc == nil {
		return nil, nil
	}
	return loc, nil
}

// definition locates the declaration of the name at offset. Builtins and
// imported modules have no location.
func definition(r *driver.Result, offset int, uri string) *Location {
	ident, _ := findIdentifierAt(r.Program, offset)
	if ident == nil {
		return nil
	}
	sym := symbolAt(r.Info, ident)
	if sym == nil || sym.DefNode == nil {
		return nil
	}
	span := sym.DefNode.Span()
	if name := declIdent(sym.DefNode); name != nil {
		span = name.Span()
	}
	return &Location{URI: uri, Range: lexerRange(span)}
}
