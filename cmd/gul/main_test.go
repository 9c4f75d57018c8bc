package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	cli "github.com/urfave/cli/v2"
)

// run executes the CLI and returns stdout, stderr and the exit code.
func run(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	return runWithInput(t, "", args...)
}

func runWithInput(t *testing.T, stdin string, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := newApp(strings.NewReader(stdin), &stdout, &stderr)
	app.ExitErrHandler = func(*cli.Context, error) {}

	code := 0
	if err := app.Run(append([]string{"gul"}, args...)); err != nil {
		code = 1
		if ec, ok := err.(cli.ExitCoder); ok {
			code = ec.ExitCode()
		}
	}
	return stdout.String(), stderr.String(), code
}

func writeFile(t *testing.T, name, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCheckExitCodes(t *testing.T) {
	good := writeFile(t, "good.gul", "let x = 1\nprint(x)\n")
	bad := writeFile(t, "bad.gul", "let x = 1\nprint(y)\n")

	if _, stderr, code := run(t, "check", good); code != 0 {
		t.Fatalf("expected exit 0, got %d:\n%s", code, stderr)
	}
	_, stderr, code := run(t, "check", good, bad)
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr, "SEM_UNDEFINED_NAME") && !strings.Contains(stderr, "undefined") {
		t.Fatalf("expected the diagnostic on stderr, got:\n%s", stderr)
	}
}

func TestBuildEmitters(t *testing.T) {
	path := writeFile(t, "prog.gul", "fn add(a: int, b: int) -> int:\n    return a + b\nlet x = add(1, 2)\n")

	stdout, stderr, code := run(t, "build", path)
	if code != 0 || !strings.Contains(stdout, "fn add(a: int, b: int) -> int {") {
		t.Fatalf("text build failed (%d):\n%s\n%s", code, stdout, stderr)
	}

	stdout, _, code = run(t, "build", "--emit", "json", path)
	if code != 0 || !strings.Contains(stdout, `"name": "add"`) {
		t.Fatalf("json build failed (%d):\n%s", code, stdout)
	}

	stdout, _, code = run(t, "build", "--emit", "llvm", path)
	if code != 0 || !strings.Contains(stdout, "define i64 @add") {
		t.Fatalf("llvm build failed (%d):\n%s", code, stdout)
	}

	if _, _, code = run(t, "build", "--emit", "wasm", path); code != 2 {
		t.Fatalf("expected exit 2 for an unknown emitter, got %d", code)
	}
}

func TestBuildWritesOutputFile(t *testing.T) {
	path := writeFile(t, "prog.gul", "let x = 1\n")
	out := filepath.Join(t.TempDir(), "prog.ir")
	if _, stderr, code := run(t, "build", "-o", out, path); code != 0 {
		t.Fatalf("build failed:\n%s", stderr)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "global @x") {
		t.Fatalf("unexpected output:\n%s", data)
	}
}

func TestTokensAndAST(t *testing.T) {
	path := writeFile(t, "prog.gul", "let x = 1\n")

	stdout, _, code := run(t, "tokens", path)
	if code != 0 || !strings.Contains(stdout, "1:1") {
		t.Fatalf("tokens failed (%d):\n%s", code, stdout)
	}

	stdout, _, code = run(t, "ast", path)
	if code != 0 || !strings.Contains(stdout, "VarDecl") {
		t.Fatalf("ast failed (%d):\n%s", code, stdout)
	}
}

func TestFmt(t *testing.T) {
	path := writeFile(t, "prog.gul", "let   x=1+2\n")
	stdout, stderr, code := run(t, "fmt", path)
	if code != 0 {
		t.Fatalf("fmt failed:\n%s", stderr)
	}
	if !strings.HasPrefix(stdout, "let x = ") {
		t.Fatalf("unexpected output %q", stdout)
	}
}

func TestLSP(t *testing.T) {
	frame := func(body string) string {
		return fmt.Sprintf("Content-Length: %d\r\n\r\n%s", len(body), body)
	}
	input := frame(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`) +
		frame(`{"jsonrpc":"2.0","id":2,"method":"shutdown"}`) +
		frame(`{"jsonrpc":"2.0","method":"exit"}`)

	stdout, stderr, code := runWithInput(t, input, "lsp")
	if code != 0 {
		t.Fatalf("lsp exited %d:\n%s", code, stderr)
	}
	if !strings.Contains(stdout, `"name":"gul-lsp"`) || !strings.Contains(stdout, `"id":2,"result":null`) {
		t.Fatalf("unexpected output:\n%s", stdout)
	}

	if _, _, code := runWithInput(t, frame(`{"jsonrpc":"2.0","method":"exit"}`), "lsp"); code != 1 {
		t.Fatalf("expected exit 1 without shutdown, got %d", code)
	}
}
