// Package driver runs the compilation pipeline over one or more source
// files: lexing and parsing, analysis, lowering and optimization.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/gul-lang/gul-lang/internal/ast"
	"github.com/gul-lang/gul-lang/internal/codegen"
	"github.com/gul-lang/gul-lang/internal/diag"
	"github.com/gul-lang/gul-lang/internal/ir"
	"github.com/gul-lang/gul-lang/internal/ir/optimize"
	"github.com/gul-lang/gul-lang/internal/parser"
	"github.com/gul-lang/gul-lang/internal/types"
)

type Option func(*config)

type config struct {
	logger    *slog.Logger
	maxDepth  int
	optimize  bool
	languages []string
	workers   int
}

func newConfig(opts []Option) *config {
	cfg := &config{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		optimize: true,
		workers:  runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithLogger sets the logger that receives stage progress. By default
// nothing is logged.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMaxDepth overrides the parser's nesting limit.
func WithMaxDepth(n int) Option {
	return func(c *config) { c.maxDepth = n }
}

// WithOptimize toggles constant folding and dead code elimination.
func WithOptimize(on bool) Option {
	return func(c *config) { c.optimize = on }
}

// WithLanguages accepts additional extern block languages.
func WithLanguages(langs ...string) Option {
	return func(c *config) { c.languages = append(c.languages, langs...) }
}

// WithWorkers bounds the number of files CheckFiles processes at once.
func WithWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.workers = n
		}
	}
}

// Result holds everything the pipeline produced for one file. Later
// stages are nil when an earlier stage reported errors.
type Result struct {
	Filename    string
	Source      []byte
	Program     *ast.Program
	Info        *types.Info
	Module      *ir.Module
	Diagnostics diag.List
}

// HasErrors reports whether any stage reported an error.
func (r *Result) HasErrors() bool {
	return r.Diagnostics.HasErrors()
}

// Check parses and analyzes src. Analysis is skipped when parsing failed.
// The returned error is non-nil only when ctx ends; diagnostics are in
// the result.
func Check(ctx context.Context, filename string, src []byte, opts ...Option) (*Result, error) {
	return check(ctx, filename, src, newConfig(opts))
}

func check(ctx context.Context, filename string, src []byte, cfg *config) (*Result, error) {
	log := cfg.logger.With("file", filename)
	r := &Result{Filename: filename, Source: src}

	if err := ctx.Err(); err != nil {
		return r, err
	}
	popts := []parser.Option{parser.WithFilename(filename)}
	if cfg.maxDepth > 0 {
		popts = append(popts, parser.WithMaxDepth(cfg.maxDepth))
	}
	start := time.Now()
	prog, diags := parser.ParseSource(src, popts...)
	r.Program = prog
	r.Diagnostics.Extend(diags)
	log.Debug("parsed", "statements", len(prog.Stmts), "diagnostics", len(diags), "elapsed", time.Since(start))
	if diags.HasErrors() {
		r.Diagnostics.Sort()
		return r, nil
	}

	if err := ctx.Err(); err != nil {
		return r, err
	}
	start = time.Now()
	info, semDiags := types.Analyze(prog, types.WithLanguages(cfg.languages...))
	r.Info = info
	r.Diagnostics.Extend(semDiags)
	r.Diagnostics.Sort()
	log.Debug("analyzed", "diagnostics", len(semDiags), "elapsed", time.Since(start))
	return r, nil
}

// Build checks src and, when it is free of errors, lowers it to IR.
// A malformed lowering is returned as *ir.InternalError.
func Build(ctx context.Context, filename string, src []byte, opts ...Option) (*Result, error) {
	cfg := newConfig(opts)
	r, err := check(ctx, filename, src, cfg)
	if err != nil || r.HasErrors() {
		return r, err
	}
	if err := ctx.Err(); err != nil {
		return r, err
	}

	log := cfg.logger.With("file", filename)
	start := time.Now()
	m, err := lower(r, cfg)
	if err != nil {
		log.Error("lowering failed", "err", err)
		return r, err
	}
	log.Debug("lowered", "functions", len(m.Functions), "elapsed", time.Since(start))

	if cfg.optimize {
		if err := ctx.Err(); err != nil {
			return r, err
		}
		m = optimize.EliminateDeadCode(m)
		log.Debug("optimized", "instructions", countInstrs(m))
	}
	r.Module = m
	return r, nil
}

// lower converts an internal error panic into an error.
func lower(r *Result, cfg *config) (m *ir.Module, err error) {
	defer func() {
		if p := recover(); p != nil {
			ie, ok := p.(*ir.InternalError)
			if !ok {
				panic(p)
			}
			err = fmt.Errorf("%s: %w", r.Filename, ie)
		}
	}()
	return codegen.Lower(r.Program, r.Info, codegen.WithFolding(cfg.optimize)), nil
}

func countInstrs(m *ir.Module) int {
	n := 0
	for _, fn := range m.Functions {
		n += len(fn.Instrs)
	}
	return n
}

// CheckFiles checks each file independently on a pool of workers. Results
// are returned in the order of paths; a file that cannot be read has a nil
// result and contributes to the joined error.
func CheckFiles(ctx context.Context, paths []string, opts ...Option) ([]*Result, error) {
	cfg := newConfig(opts)
	results := make([]*Result, len(paths))
	errs := make([]error, len(paths))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < min(cfg.workers, len(paths)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i], errs[i] = checkFile(ctx, paths[i], cfg)
			}
		}()
	}
	for i := range paths {
		select {
		case jobs <- i:
		case <-ctx.Done():
			errs[i] = ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()

	return results, errors.Join(errs...)
}

func checkFile(ctx context.Context, path string, cfg *config) (*Result, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading source: %w", err)
	}
	return check(ctx, path, src, cfg)
}
