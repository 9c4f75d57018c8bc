package parser

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	plexer "github.com/alecthomas/participle/v2/lexer"

	"github.com/gul-lang/gul-lang/internal/ast"
	"github.com/gul-lang/gul-lang/internal/lexer"
)

// Extern signatures are declared inside otherwise opaque foreign code, one
// per line, as `fn name(a: int, ref b: list[str]) -> float`. They are parsed
// with a separate participle grammar so the foreign body never reaches the
// main grammar.

var externSigLexer = plexer.MustStateful(plexer.Rules{
	"Root": {
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`, Action: nil},
		{Name: "Arrow", Pattern: `->`, Action: nil},
		{Name: "Punct", Pattern: `[(),:\[\]]`, Action: nil},
		{Name: "Whitespace", Pattern: `[ \t\r]+`, Action: nil},
	},
})

type externSigGrammar struct {
	Pos    plexer.Position
	Name   string             `parser:"\"fn\" @Ident"`
	Params []*externParamNode `parser:"\"(\" ( @@ ( \",\" @@ )* )? \")\""`
	Return *externTypeNode    `parser:"( \"->\" @@ )?"`
}

type externParamNode struct {
	Pos  plexer.Position
	Mode string          `parser:"@(\"own\" | \"ref\" | \"copy\" | \"move\")?"`
	Name string          `parser:"@Ident"`
	Type *externTypeNode `parser:"( \":\" @@ )?"`
}

type externTypeNode struct {
	Pos  plexer.Position
	Name string            `parser:"@Ident"`
	Args []*externTypeNode `parser:"( \"[\" @@ ( \",\" @@ )* \"]\" )?"`
}

var externSigParser = participle.MustBuild[externSigGrammar](
	participle.Lexer(externSigLexer),
	participle.Elide("Whitespace"),
	participle.UseLookahead(2),
)

// parseExternSignatures extracts the `fn` declaration lines of a foreign
// body. Everything after a `{` or `;` on the line is foreign code. Lines that
// start with `fn` but do not form a signature produce a warning.
func (p *Parser) parseExternSignatures(body lexer.Token) []*ast.ExternSig {
	var sigs []*ast.ExternSig
	line := body.Span.Line
	offset := body.Span.Start + 1 // past the opening brace
	col := body.Span.Column + 1

	for _, text := range strings.SplitAfter(body.Value, "\n") {
		trimmed := strings.TrimLeft(text, " \t")
		lead := len([]rune(text)) - len([]rune(trimmed))
		lineSpan := lexer.Span{
			Filename: p.filename,
			Line:     line,
			Column:   col + lead,
			Start:    offset + lead,
			End:      offset + len([]rune(strings.TrimRight(text, "\r\n"))),
		}

		if strings.HasPrefix(trimmed, "fn ") {
			decl := trimmed
			if i := strings.IndexAny(decl, "{;"); i >= 0 {
				decl = decl[:i]
			}
			decl = strings.TrimSpace(decl)
			g, err := externSigParser.ParseString("", decl)
			if err != nil {
				p.reportWarning(ErrExternSignature, "invalid extern signature: "+err.Error(), lineSpan)
			} else {
				sigs = append(sigs, externSigToAST(g, lineSpan))
			}
		}

		offset += len([]rune(text))
		line++
		col = 1
	}
	return sigs
}

func externSigToAST(g *externSigGrammar, span lexer.Span) *ast.ExternSig {
	at := func(pos plexer.Position, n int) lexer.Span {
		s := span
		s.Column += pos.Column - 1
		s.Start += pos.Offset
		s.End = s.Start + n
		return s
	}

	var params []*ast.Param
	for _, prm := range g.Params {
		mode := ast.OwnNone
		switch prm.Mode {
		case "own":
			mode = ast.Own
		case "ref":
			mode = ast.Ref
		case "copy":
			mode = ast.Copy
		case "move":
			mode = ast.Move
		}
		var typ ast.TypeExpr
		if prm.Type != nil {
			typ = externTypeToAST(prm.Type, at)
		}
		name := ast.NewIdent(prm.Name, at(prm.Pos, len(prm.Name)))
		params = append(params, ast.NewParam(name, typ, mode, name.Span()))
	}

	var ret ast.TypeExpr
	if g.Return != nil {
		ret = externTypeToAST(g.Return, at)
	}
	nameSpan := at(g.Pos, len("fn "+g.Name))
	return ast.NewExternSig(ast.NewIdent(g.Name, nameSpan), params, ret, span)
}

func externTypeToAST(t *externTypeNode, at func(plexer.Position, int) lexer.Span) ast.TypeExpr {
	var args []ast.TypeExpr
	for _, a := range t.Args {
		args = append(args, externTypeToAST(a, at))
	}
	return ast.NewNamedType(t.Name, args, at(t.Pos, len(t.Name)))
}
