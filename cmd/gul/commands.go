package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sanity-io/litter"
	cli "github.com/urfave/cli/v2"

	"github.com/gul-lang/gul-lang/internal/ast"
	"github.com/gul-lang/gul-lang/internal/diag"
	"github.com/gul-lang/gul-lang/internal/driver"
	"github.com/gul-lang/gul-lang/internal/emit"
	"github.com/gul-lang/gul-lang/internal/lexer"
	"github.com/gul-lang/gul-lang/internal/lsp"
	"github.com/gul-lang/gul-lang/internal/parser"
)

// errFailed exits with status 1 once diagnostics have been printed.
var errFailed = cli.Exit("", 1)

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "parse and analyze files, reporting diagnostics",
		ArgsUsage: "<file>...",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return cli.Exit("check: no input files", 2)
			}
			results, err := driver.CheckFiles(c.Context, c.Args().Slice(), driverOptions(c)...)
			failed := err != nil
			for _, r := range results {
				if r == nil {
					continue
				}
				report(c, r.Filename, r.Source, r.Diagnostics)
				failed = failed || r.HasErrors()
			}
			if err != nil {
				fmt.Fprintln(c.App.ErrWriter, err)
			}
			if failed {
				return errFailed
			}
			return nil
		},
	}
}

func buildCommand() *cli.Command {
	return &cli.Command{
		Name:      "build",
		Usage:     "compile a file to IR",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "emit",
				Usage: "output format: text, json or llvm",
				Value: "text",
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "write output to `PATH` instead of stdout",
			},
			&cli.BoolFlag{
				Name:  "no-opt",
				Usage: "disable constant folding and dead code elimination",
			},
		},
		Action: func(c *cli.Context) error {
			path, src, err := readSource(c)
			if err != nil {
				return err
			}
			emitter, err := emit.Lookup(c.String("emit"))
			if err != nil {
				return cli.Exit(err.Error(), 2)
			}

			opts := append(driverOptions(c), driver.WithOptimize(!c.Bool("no-opt")))
			r, err := driver.Build(c.Context, path, src, opts...)
			if err != nil {
				return err
			}
			report(c, path, src, r.Diagnostics)
			if r.HasErrors() {
				return errFailed
			}

			w := c.App.Writer
			if out := c.String("out"); out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err := emitter.Emit(w, r.Module); err != nil {
				if errors.Is(err, emit.ErrUnsupported) {
					return cli.Exit(fmt.Sprintf("%s: %v", path, err), 1)
				}
				return err
			}
			return nil
		},
	}
}

func tokensCommand() *cli.Command {
	return &cli.Command{
		Name:      "tokens",
		Usage:     "print the token stream of a file",
		ArgsUsage: "<file>",
		Action: func(c *cli.Context) error {
			path, src, err := readSource(c)
			if err != nil {
				return err
			}
			toks, diags := lexer.Tokenize(src, lexer.WithFilename(path))
			for _, tok := range toks {
				fmt.Fprintf(c.App.Writer, "%d:%d\t%s\t%s\n", tok.Span.Line, tok.Span.Column, tok.Type, tok)
			}
			report(c, path, src, diags)
			if diags.HasErrors() {
				return errFailed
			}
			return nil
		},
	}
}

// astDump prints nodes without their source positions.
var astDump = litter.Options{HidePrivateFields: true, HideZeroValues: true}

func astCommand() *cli.Command {
	return &cli.Command{
		Name:      "ast",
		Usage:     "dump the syntax tree of a file",
		ArgsUsage: "<file>",
		Action: func(c *cli.Context) error {
			prog, err := parseSource(c)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, astDump.Sdump(prog))
			return nil
		},
	}
}

func fmtCommand() *cli.Command {
	return &cli.Command{
		Name:      "fmt",
		Usage:     "print a file in canonical form",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "write",
				Aliases: []string{"w"},
				Usage:   "rewrite the file in place",
			},
		},
		Action: func(c *cli.Context) error {
			prog, err := parseSource(c)
			if err != nil {
				return err
			}
			out := ast.Print(prog)
			if c.Bool("write") {
				return os.WriteFile(c.Args().First(), []byte(out), 0o644)
			}
			_, err = io.WriteString(c.App.Writer, out)
			return err
		},
	}
}

func lspCommand(stdin io.Reader) *cli.Command {
	return &cli.Command{
		Name:  "lsp",
		Usage: "run a language server on stdin and stdout",
		Action: func(c *cli.Context) error {
			srv := lsp.NewServer(newLogger(c), driverOptions(c)...)
			if err := srv.Serve(c.Context, stdin, c.App.Writer); err != nil {
				return cli.Exit(err.Error(), 1)
			}
			return nil
		},
	}
}

// parseSource parses the single file argument, reporting diagnostics and
// failing on errors.
func parseSource(c *cli.Context) (*ast.Program, error) {
	path, src, err := readSource(c)
	if err != nil {
		return nil, err
	}
	prog, diags := parser.ParseSource(src, parser.WithFilename(path), parser.WithMaxDepth(c.Int("max-depth")))
	report(c, path, src, diags)
	if diags.HasErrors() {
		return nil, errFailed
	}
	return prog, nil
}

func readSource(c *cli.Context) (string, []byte, error) {
	if c.NArg() != 1 {
		return "", nil, cli.Exit(fmt.Sprintf("%s: expected one file, got %d", c.Command.Name, c.NArg()), 2)
	}
	path := c.Args().First()
	src, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("reading source: %w", err)
	}
	return path, src, nil
}

func report(c *cli.Context, path string, src []byte, diags diag.List) {
	if len(diags) == 0 {
		return
	}
	f := diag.NewFormatter(c.App.ErrWriter)
	f.AddSource(path, string(src))
	f.FormatAll(diags)
	fmt.Fprintln(c.App.ErrWriter)
}
