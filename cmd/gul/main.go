package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	cli "github.com/urfave/cli/v2"

	"github.com/gul-lang/gul-lang/internal/driver"
	"github.com/gul-lang/gul-lang/internal/emit"
	"github.com/gul-lang/gul-lang/internal/emit/llvm"
	"github.com/gul-lang/gul-lang/internal/parser"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newApp(os.Stdin, os.Stdout, os.Stderr).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "gul:", err)
		stop()
		os.Exit(1)
	}
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *cli.App {
	emit.Register("llvm", llvm.Emitter{})

	return &cli.App{
		Name:      "gul",
		Usage:     "check and compile gul programs",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "log pipeline stages to stderr",
				EnvVars: []string{"GUL_VERBOSE"},
			},
			&cli.IntFlag{
				Name:    "max-depth",
				Usage:   "maximum nesting depth accepted by the parser",
				Value:   parser.DefaultMaxDepth,
				EnvVars: []string{"GUL_MAX_DEPTH"},
			},
			&cli.StringSliceFlag{
				Name:  "lang",
				Usage: "accept an additional extern block language",
			},
		},
		Commands: []*cli.Command{
			checkCommand(),
			buildCommand(),
			tokensCommand(),
			astCommand(),
			fmtCommand(),
			lspCommand(stdin),
		},
	}
}

func newLogger(c *cli.Context) *slog.Logger {
	level := slog.LevelWarn
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: level}))
}

func driverOptions(c *cli.Context) []driver.Option {
	return []driver.Option{
		driver.WithLogger(newLogger(c)),
		driver.WithMaxDepth(c.Int("max-depth")),
		driver.WithLanguages(c.StringSlice("lang")...),
	}
}
