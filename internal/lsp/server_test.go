package lsp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

const testURI = "file:///tmp/main.gul"

type session struct {
	in     bytes.Buffer
	nextID int
}

func (s *session) write(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	fmt.Fprintf(&s.in, "Content-Length: %d\r\n\r\n%s", len(data), data)
}

func (s *session) request(method string, params any) int {
	s.nextID++
	s.write(map[string]any{"jsonrpc": "2.0", "id": s.nextID, "method": method, "params": params})
	return s.nextID
}

func (s *session) notify(method string, params any) {
	s.write(map[string]any{"jsonrpc": "2.0", "method": method, "params": params})
}

type received struct {
	ID     *int            `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	Result json.RawMessage `json:"result"`
	Error  *jsonrpcError   `json:"error"`
}

// serve runs the session to completion and returns everything the server
// wrote.
func (s *session) serve(t *testing.T) ([]received, error) {
	t.Helper()
	var out bytes.Buffer
	err := NewServer(nil).Serve(context.Background(), &s.in, &out)

	var msgs []received
	br := bufio.NewReader(&out)
	for {
		body, rerr := readMessage(br)
		if rerr != nil {
			break
		}
		var m received
		if err := json.Unmarshal(body, &m); err != nil {
			t.Fatalf("server wrote invalid JSON %q: %v", body, err)
		}
		msgs = append(msgs, m)
	}
	return msgs, err
}

func response(t *testing.T, msgs []received, id int) received {
	t.Helper()
	for _, m := range msgs {
		if m.ID != nil && *m.ID == id {
			return m
		}
	}
	t.Fatalf("no response with id %d", id)
	return received{}
}

func position(line, char int) map[string]any {
	return map[string]any{
		"textDocument": map[string]any{"uri": testURI},
		"position":     map[string]any{"line": line, "character": char},
	}
}

func open(s *session, text string) {
	s.notify("textDocument/didOpen", map[string]any{
		"textDocument": map[string]any{"uri": testURI, "languageId": "gul", "version": 1, "text": text},
	})
}

func TestReadMessage(t *testing.T) {
	input := "content-length: 2\r\nContent-Type: application/vscode-jsonrpc\r\n\r\n{}" +
		"Content-Length: 4\r\n\r\nnull"
	br := bufio.NewReader(strings.NewReader(input))
	for _, want := range []string{"{}", "null"} {
		body, err := readMessage(br)
		if err != nil {
			t.Fatal(err)
		}
		if string(body) != want {
			t.Fatalf("expected %q, got %q", want, body)
		}
	}
	if _, err := readMessage(br); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}

	if _, err := readMessage(bufio.NewReader(strings.NewReader("Content-Length: x\r\n\r\n"))); err == nil {
		t.Fatal("expected an error for a bad length")
	}
}

func TestLifecycleAndDiagnostics(t *testing.T) {
	var s session
	initID := s.request("initialize", map[string]any{"processId": 1, "rootUri": "file:///tmp"})
	s.notify("initialized", map[string]any{})
	open(&s, "let x = 1\nprint(missing)\n")
	s.request("shutdown", nil)
	s.notify("exit", nil)

	msgs, err := s.serve(t)
	if err != nil {
		t.Fatalf("serve: %v", err)
	}

	var initResult InitializeResult
	if err := json.Unmarshal(response(t, msgs, initID).Result, &initResult); err != nil {
		t.Fatal(err)
	}
	if !initResult.Capabilities.HoverProvider || initResult.ServerInfo.Name != "gul-lsp" {
		t.Fatalf("unexpected initialize result %+v", initResult)
	}

	var diags PublishDiagnosticsParams
	for _, m := range msgs {
		if m.Method == "textDocument/publishDiagnostics" {
			if err := json.Unmarshal(m.Params, &diags); err != nil {
				t.Fatal(err)
			}
		}
	}
	if diags.URI != testURI || len(diags.Diagnostics) != 1 {
		t.Fatalf("expected one diagnostic for %s, got %+v", testURI, diags)
	}
	d := diags.Diagnostics[0]
	want := Range{Start: Position{Line: 1, Character: 6}, End: Position{Line: 1, Character: 13}}
	if d.Code != "SEM_UNDEFINED_NAME" || d.Severity != 1 || d.Range != want {
		t.Fatalf("unexpected diagnostic %+v", d)
	}
}

func TestExitWithoutShutdown(t *testing.T) {
	var s session
	s.notify("exit", nil)
	if _, err := s.serve(t); !errors.Is(err, ErrExitWithoutShutdown) {
		t.Fatalf("expected ErrExitWithoutShutdown, got %v", err)
	}
}

func TestUnknownMethod(t *testing.T) {
	var s session
	id := s.request("workspace/symbol", map[string]any{"query": "x"})
	msgs, err := s.serve(t)
	if err != nil {
		t.Fatal(err)
	}
	resp := response(t, msgs, id)
	if resp.Error == nil || resp.Error.Code != codeMethodNotFound {
		t.Fatalf("expected method not found, got %+v", resp)
	}
}

func TestHoverAndDefinitionRequests(t *testing.T) {
	var s session
	open(&s, "fn add(a: int, b: int) -> int:\n    return a + b\nlet total = add(1, 2)\n")
	hoverID := s.request("textDocument/hover", position(2, 13))
	defID := s.request("textDocument/definition", position(2, 13))
	missID := s.request("textDocument/hover", position(2, 10))

	msgs, err := s.serve(t)
	if err != nil {
		t.Fatal(err)
	}

	var h Hover
	if err := json.Unmarshal(response(t, msgs, hoverID).Result, &h); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(h.Contents.Value, "fn add(int, int) -> int") {
		t.Fatalf("unexpected hover %q", h.Contents.Value)
	}

	var loc Location
	if err := json.Unmarshal(response(t, msgs, defID).Result, &loc); err != nil {
		t.Fatal(err)
	}
	if loc.URI != testURI || loc.Range.Start != (Position{Line: 0, Character: 3}) {
		t.Fatalf("unexpected definition %+v", loc)
	}

	if got := string(response(t, msgs, missID).Result); got != "null" {
		t.Fatalf("expected a null hover on `=`, got %s", got)
	}
}

func TestCompletionSurvivesParseErrors(t *testing.T) {
	src := "struct Point:\n    x: int\n    y: int\nlet p = Point(1, 2)\n"
	var s session
	open(&s, src)
	s.notify("textDocument/didChange", map[string]any{
		"textDocument":   map[string]any{"uri": testURI, "version": 2},
		"contentChanges": []map[string]any{{"text": src + "p."}},
	})
	id := s.request("textDocument/completion", position(4, 2))

	msgs, err := s.serve(t)
	if err != nil {
		t.Fatal(err)
	}
	var list CompletionList
	if err := json.Unmarshal(response(t, msgs, id).Result, &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Items) != 2 || list.Items[0].Label != "x" || list.Items[1].Label != "y" {
		t.Fatalf("expected the fields of Point, got %+v", list.Items)
	}
}

func TestUriToPath(t *testing.T) {
	tests := []struct {
		uri, want string
	}{
		{"file:///home/me/a.gul", "/home/me/a.gul"},
		{"file:///C:/src/a%20b.gul", "C:/src/a b.gul"},
		{"untitled:1", "untitled:1"},
	}
	for _, tt := range tests {
		if got := uriToPath(tt.uri); got != tt.want {
			t.Errorf("uriToPath(%q) = %q, want %q", tt.uri, got, tt.want)
		}
	}
}

func TestPositionToOffset(t *testing.T) {
	text := "ab\nçd\n"
	tests := []struct {
		pos  Position
		want int
	}{
		{Position{0, 0}, 0},
		{Position{0, 9}, 2},
		{Position{1, 1}, 4},
		{Position{2, 0}, 6},
	}
	for _, tt := range tests {
		if got := positionToOffset(text, tt.pos); got != tt.want {
			t.Errorf("positionToOffset(%+v) = %d, want %d", tt.pos, got, tt.want)
		}
	}
}
