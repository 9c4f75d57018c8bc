package lsp

import (
	"encoding/json"
	"sort"
	"unicode"

	"github.com/gul-lang/gul-lang/internal/ast"
	"github.com/gul-lang/gul-lang/internal/driver"
	"github.com/gul-lang/gul-lang/internal/lexer"
	"github.com/gul-lang/gul-lang/internal/types"
)

// CompletionList is the reply to textDocument/completion.
type CompletionList struct {
	IsIncomplete bool             `json:"isIncomplete"`
	Items        []CompletionItem `json:"items"`
}

type CompletionItem struct {
	Label  string `json:"label"`
	Kind   int    `json:"kind"`
	Detail string `json:"detail,omitempty"`
}

const (
	completionKindMethod   = 2
	completionKindFunction = 3
	completionKindField    = 5
	completionKindVariable = 6
	completionKindClass    = 7
	completionKindModule   = 9
	completionKindKeyword  = 14
)

func (s *Server) handleCompletion(raw json.RawMessage) (any, *jsonrpcError) {
	var params TextDocumentPositionParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, invalidParams(err)
	}
	doc := s.document(params.TextDocument.URI)
	if doc == nil {
		return CompletionList{Items: []CompletionItem{}}, nil
	}
	offset := positionToOffset(doc.Text, params.Position)
	return CompletionList{Items: complete(doc.good, []rune(doc.Text), offset)}, nil
}

// complete lists candidates at offset. After `name.` it offers the members
// of name's type; otherwise keywords, builtins and the names in scope.
// r may be nil when the document has never parsed.
func complete(r *driver.Result, text []rune, offset int) []CompletionItem {
	items := []CompletionItem{}
	if offset > len(text) {
		offset = len(text)
	}

	if target, ok := memberTarget(text, offset); ok {
		if r == nil {
			return items
		}
		sym := lookupBefore(r.Info, target, offset)
		if sym == nil {
			return items
		}
		for _, m := range types.Members(sym.Type) {
			kind := completionKindField
			if m.Method {
				kind = completionKindMethod
			}
			items = append(items, CompletionItem{Label: m.Name, Kind: kind, Detail: typeString(m.Type)})
		}
		return items
	}

	seen := make(map[string]bool)
	add := func(item CompletionItem) {
		if !seen[item.Label] {
			seen[item.Label] = true
			items = append(items, item)
		}
	}
	if r != nil {
		for _, sym := range visibleSymbols(r, offset) {
			add(CompletionItem{Label: sym.Name, Kind: symbolKind(sym), Detail: typeString(sym.Type)})
		}
	}
	for name, fn := range types.Builtins() {
		add(CompletionItem{Label: name, Kind: completionKindFunction, Detail: fn.String()})
	}
	for _, kw := range lexer.Keywords() {
		add(CompletionItem{Label: kw, Kind: completionKindKeyword})
	}
	sort.Slice(items, func(i, j int) bool {
		ki, kj := items[i].Kind == completionKindKeyword, items[j].Kind == completionKindKeyword
		if ki != kj {
			return kj
		}
		return items[i].Label < items[j].Label
	})
	return items
}

// memberTarget reports the identifier before a `.` that precedes the
// partial word ending at offset.
func memberTarget(text []rune, offset int) (string, bool) {
	i := offset
	for i > 0 && isIdentRune(text[i-1]) {
		i--
	}
	if i == 0 || text[i-1] != '.' {
		return "", false
	}
	end := i - 1
	start := end
	for start > 0 && isIdentRune(text[start-1]) {
		start--
	}
	if start == end {
		return "", false
	}
	return string(text[start:end]), true
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// lookupBefore finds the declaration of name closest before offset.
func lookupBefore(info *types.Info, name string, offset int) *types.Symbol {
	var (
		best  *types.Symbol
		start = -1
	)
	for node, sym := range info.Defs {
		at := node.Span().Start
		if sym.Name == name && at <= offset && at > start {
			best, start = sym, at
		}
	}
	return best
}

// visibleSymbols returns module-level declarations plus those of the
// innermost function around offset declared before it, innermost first.
func visibleSymbols(r *driver.Result, offset int) []*types.Symbol {
	type def struct {
		sym   *types.Symbol
		start int
	}
	fn := enclosingFunc(r.Program, offset)
	var defs []def
	for node, sym := range r.Info.Defs {
		span := node.Span()
		switch {
		case sym.ScopeID <= types.ModuleScopeID:
		case fn != nil && span.Start >= fn.Span().Start && span.End <= fn.Span().End && span.Start < offset:
		default:
			continue
		}
		defs = append(defs, def{sym, span.Start})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].start > defs[j].start })
	out := make([]*types.Symbol, len(defs))
	for i, d := range defs {
		out[i] = d.sym
	}
	return out
}

func enclosingFunc(prog *ast.Program, offset int) *ast.FnDecl {
	var fn *ast.FnDecl
	ast.Walk(prog, func(n ast.Node) bool {
		if d, ok := n.(*ast.FnDecl); ok {
			span := d.Span()
			if offset < span.Start || offset > span.End {
				return false
			}
			fn = d
		}
		return true
	})
	return fn
}

func symbolKind(sym *types.Symbol) int {
	switch sym.Kind {
	case types.SymFunc, types.SymExtern, types.SymBuiltin:
		return completionKindFunction
	case types.SymStruct:
		return completionKindClass
	case types.SymImport:
		return completionKindModule
	}
	return completionKindVariable
}
