package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/gul-lang/gul-lang/internal/diag"
	"github.com/gul-lang/gul-lang/internal/driver"
	"github.com/gul-lang/gul-lang/internal/lexer"
)

// ErrExitWithoutShutdown is returned by Serve when the client sends exit
// before shutdown.
var ErrExitWithoutShutdown = errors.New("lsp: exit before shutdown")

// JSON-RPC error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
)

// Server answers language server requests for gul documents.
type Server struct {
	logger *slog.Logger
	opts   []driver.Option

	mu   sync.RWMutex
	docs map[string]*Document

	wmu sync.Mutex
	w   io.Writer

	shutdown bool
}

// Document is an open file and its latest analysis.
type Document struct {
	URI     string
	Text    string
	Version int
	Result  *driver.Result

	// good is the most recent result that got past parsing; completion
	// falls back to it while the user is mid-edit.
	good *driver.Result
}

// NewServer creates a server that analyzes documents with opts.
func NewServer(logger *slog.Logger, opts ...driver.Option) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		logger: logger,
		opts:   opts,
		docs:   make(map[string]*Document),
	}
}

// Serve reads framed JSON-RPC messages from r and writes replies and
// notifications to w until the client exits, r is exhausted or ctx is done.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	s.w = w
	br := bufio.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		body, err := readMessage(br)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		var msg jsonrpcMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			s.logger.Warn("malformed message", "err", err)
			s.reply(nil, nil, &jsonrpcError{Code: codeParseError, Message: err.Error()})
			continue
		}
		if msg.Method == "exit" {
			if !s.shutdown {
				return ErrExitWithoutShutdown
			}
			return nil
		}
		s.handleMessage(ctx, &msg)
	}
}

// readMessage reads one Content-Length framed body. Other headers are
// skipped.
func readMessage(br *bufio.Reader) ([]byte, error) {
	length := -1
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) && line == "" && length < 0 {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("reading header: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if length < 0 {
				continue
			}
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("malformed header %q", line)
		}
		if strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil || n < 0 {
				return nil, fmt.Errorf("invalid Content-Length %q", value)
			}
			length = n
		}
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(br, body); err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return body, nil
}

// jsonrpcMessage is an incoming request or notification, or an outgoing
// notification.
type jsonrpcMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type jsonrpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonrpcError   `json:"error,omitempty"`
}

type jsonrpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func invalidParams(err error) *jsonrpcError {
	return &jsonrpcError{Code: codeInvalidParams, Message: fmt.Sprintf("invalid params: %v", err)}
}

type handlerFunc func(s *Server, params json.RawMessage) (any, *jsonrpcError)

var requests = map[string]handlerFunc{
	"initialize":              (*Server).handleInitialize,
	"shutdown":                (*Server).handleShutdown,
	"textDocument/hover":      (*Server).handleHover,
	"textDocument/definition": (*Server).handleDefinition,
	"textDocument/completion": (*Server).handleCompletion,
}

var notifications = map[string]func(s *Server, params json.RawMessage) error{
	"textDocument/didOpen":   (*Server).handleDidOpen,
	"textDocument/didChange": (*Server).handleDidChange,
	"textDocument/didClose":  (*Server).handleDidClose,
}

func (s *Server) handleMessage(ctx context.Context, msg *jsonrpcMessage) {
	log := s.logger.With("method", msg.Method)
	if len(msg.ID) == 0 {
		if h, ok := notifications[msg.Method]; ok {
			if err := h(s, msg.Params); err != nil {
				log.Warn("notification failed", "err", err)
			}
			return
		}
		log.Debug("ignored notification")
		return
	}

	if msg.Method == "" {
		s.reply(msg.ID, nil, &jsonrpcError{Code: codeInvalidRequest, Message: "missing method"})
		return
	}
	h, ok := requests[msg.Method]
	if !ok {
		s.reply(msg.ID, nil, &jsonrpcError{Code: codeMethodNotFound, Message: "method not found: " + msg.Method})
		return
	}
	if err := ctx.Err(); err != nil {
		return
	}
	result, rpcErr := h(s, msg.Params)
	if rpcErr != nil {
		log.Debug("request failed", "code", rpcErr.Code, "err", rpcErr.Message)
	}
	s.reply(msg.ID, result, rpcErr)
}

func (s *Server) reply(id json.RawMessage, result any, rpcErr *jsonrpcError) {
	if id == nil {
		id = json.RawMessage("null")
	}
	resp := jsonrpcResponse{JSONRPC: "2.0", ID: id, Error: rpcErr}
	if rpcErr == nil {
		data, err := json.Marshal(result)
		if err != nil {
			s.logger.Error("marshalling result", "err", err)
			resp.Error = &jsonrpcError{Code: codeInvalidRequest, Message: err.Error()}
		} else {
			resp.Result = data
		}
	}
	s.send(resp)
}

func (s *Server) notify(method string, params any) {
	data, err := json.Marshal(params)
	if err != nil {
		s.logger.Error("marshalling notification", "method", method, "err", err)
		return
	}
	s.send(jsonrpcMessage{JSONRPC: "2.0", Method: method, Params: data})
}

func (s *Server) send(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("marshalling message", "err", err)
		return
	}
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if _, err := fmt.Fprintf(s.w, "Content-Length: %d\r\n\r\n%s", len(data), data); err != nil {
		s.logger.Error("writing message", "err", err)
	}
}

// InitializeParams holds the fields of the initialize request the server
// reads.
type InitializeParams struct {
	ProcessID int    `json:"processId,omitempty"`
	RootURI   string `json:"rootUri,omitempty"`
}

// InitializeResult is the reply to initialize.
type InitializeResult struct {
	Capabilities ServerCapabilities `json:"capabilities"`
	ServerInfo   ServerInfo         `json:"serverInfo"`
}

type ServerCapabilities struct {
	TextDocumentSync   int                `json:"textDocumentSync"`
	CompletionProvider *CompletionOptions `json:"completionProvider,omitempty"`
	HoverProvider      bool               `json:"hoverProvider"`
	DefinitionProvider bool               `json:"definitionProvider"`
}

type CompletionOptions struct {
	TriggerCharacters []string `json:"triggerCharacters"`
}

type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Version is reported to clients in serverInfo.
const Version = "0.1.0"

func (s *Server) handleInitialize(raw json.RawMessage) (any, *jsonrpcError) {
	var params InitializeParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, invalidParams(err)
	}
	s.logger.Info("initialize", "root", params.RootURI, "pid", params.ProcessID)
	return InitializeResult{
		Capabilities: ServerCapabilities{
			TextDocumentSync:   1, // full
			CompletionProvider: &CompletionOptions{TriggerCharacters: []string{"."}},
			HoverProvider:      true,
			DefinitionProvider: true,
		},
		ServerInfo: ServerInfo{Name: "gul-lsp", Version: Version},
	}, nil
}

func (s *Server) handleShutdown(json.RawMessage) (any, *jsonrpcError) {
	s.shutdown = true
	return nil, nil
}

type TextDocumentItem struct {
	URI        string `json:"uri"`
	LanguageID string `json:"languageId"`
	Version    int    `json:"version"`
	Text       string `json:"text"`
}

type TextDocumentIdentifier struct {
	URI string `json:"uri"`
}

type VersionedTextDocumentIdentifier struct {
	URI     string `json:"uri"`
	Version int    `json:"version"`
}

type TextDocumentContentChangeEvent struct {
	Text string `json:"text"`
}

type TextDocumentPositionParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Position     Position               `json:"position"`
}

func (s *Server) handleDidOpen(raw json.RawMessage) error {
	var params struct {
		TextDocument TextDocumentItem `json:"textDocument"`
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return err
	}
	item := params.TextDocument
	doc := &Document{URI: item.URI, Text: item.Text, Version: item.Version}
	if err := s.analyze(doc, nil); err != nil {
		return err
	}
	s.mu.Lock()
	s.docs[item.URI] = doc
	s.mu.Unlock()
	s.publishDiagnostics(doc)
	return nil
}

func (s *Server) handleDidChange(raw json.RawMessage) error {
	var params struct {
		TextDocument   VersionedTextDocumentIdentifier  `json:"textDocument"`
		ContentChanges []TextDocumentContentChangeEvent `json:"contentChanges"`
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return err
	}
	if len(params.ContentChanges) == 0 {
		return nil
	}

	s.mu.RLock()
	old, ok := s.docs[params.TextDocument.URI]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("change to unopened document %s", params.TextDocument.URI)
	}

	// Full sync: the last change carries the whole text.
	doc := &Document{
		URI:     old.URI,
		Text:    params.ContentChanges[len(params.ContentChanges)-1].Text,
		Version: params.TextDocument.Version,
	}
	if err := s.analyze(doc, old.good); err != nil {
		return err
	}
	s.mu.Lock()
	s.docs[doc.URI] = doc
	s.mu.Unlock()
	s.publishDiagnostics(doc)
	return nil
}

func (s *Server) handleDidClose(raw json.RawMessage) error {
	var params struct {
		TextDocument TextDocumentIdentifier `json:"textDocument"`
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.docs, params.TextDocument.URI)
	s.mu.Unlock()
	// Clear the client's diagnostics for the closed file.
	s.notify("textDocument/publishDiagnostics", PublishDiagnosticsParams{URI: params.TextDocument.URI, Diagnostics: []Diagnostic{}})
	return nil
}

func (s *Server) document(uri string) *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs[uri]
}

// analyze checks doc's text. prev is kept as the fallback analysis when the
// new text does not parse.
func (s *Server) analyze(doc *Document, prev *driver.Result) error {
	r, err := driver.Check(context.Background(), uriToPath(doc.URI), []byte(doc.Text), s.opts...)
	if err != nil {
		return err
	}
	doc.Result = r
	doc.good = prev
	if r.Info != nil {
		doc.good = r
	}
	s.logger.Debug("analyzed", "uri", doc.URI, "version", doc.Version, "diagnostics", len(r.Diagnostics))
	return nil
}

type PublishDiagnosticsParams struct {
	URI         string       `json:"uri"`
	Version     int          `json:"version,omitempty"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// Diagnostic is an LSP diagnostic.
type Diagnostic struct {
	Range    Range                `json:"range"`
	Severity int                  `json:"severity"`
	Code     string               `json:"code,omitempty"`
	Source   string               `json:"source"`
	Message  string               `json:"message"`
	Related  []RelatedInformation `json:"relatedInformation,omitempty"`
}

// RelatedInformation points at code involved in a diagnostic, such as the
// place a value was moved.
type RelatedInformation struct {
	Location Location `json:"location"`
	Message  string   `json:"message"`
}

type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Position is zero-based. Characters are counted in runes.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

func (s *Server) publishDiagnostics(doc *Document) {
	out := make([]Diagnostic, 0, len(doc.Result.Diagnostics))
	for _, d := range doc.Result.Diagnostics {
		msg := d.Message
		if d.Help != "" {
			msg += "\n" + d.Help
		}
		var related []RelatedInformation
		for _, l := range d.Labels {
			if l.Secondary {
				related = append(related, RelatedInformation{
					Location: Location{URI: doc.URI, Range: spanRange(l.Span.Line, l.Span.Column, l.Span.Start, l.Span.End)},
					Message:  l.Text,
				})
			}
		}
		out = append(out, Diagnostic{
			Range:    spanRange(d.Span.Line, d.Span.Column, d.Span.Start, d.Span.End),
			Severity: diagnosticSeverity(d.Severity),
			Code:     string(d.Code),
			Source:   "gul",
			Message:  msg,
			Related:  related,
		})
	}
	s.notify("textDocument/publishDiagnostics", PublishDiagnosticsParams{
		URI:         doc.URI,
		Version:     doc.Version,
		Diagnostics: out,
	})
}

func diagnosticSeverity(sev diag.Severity) int {
	switch sev {
	case diag.SeverityWarning:
		return 2
	case diag.SeverityNote:
		return 3
	default:
		return 1
	}
}

// spanRange converts a one-based line and column plus rune offsets into
// a range on a single line.
func spanRange(line, col, start, end int) Range {
	if line < 1 {
		line = 1
	}
	if col < 1 {
		col = 1
	}
	width := end - start
	if width < 0 {
		width = 0
	}
	pos := Position{Line: line - 1, Character: col - 1}
	return Range{Start: pos, End: Position{Line: pos.Line, Character: pos.Character + width}}
}

func lexerRange(span lexer.Span) Range {
	return spanRange(span.Line, span.Column, span.Start, span.End)
}

// positionToOffset returns the rune offset of pos in text, clamped to the
// end of its line.
func positionToOffset(text string, pos Position) int {
	line, col, offset := 0, 0, 0
	for _, r := range text {
		if line == pos.Line && (col == pos.Character || r == '\n') {
			return offset
		}
		if r == '\n' {
			line++
			col = 0
		} else {
			col++
		}
		offset++
	}
	return offset
}

// uriToPath converts a file:// URI to a path. Other URIs are returned
// unchanged.
func uriToPath(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" {
		return uri
	}
	path := u.Path
	// Windows drive letters come through as /C:/...
	if len(path) > 2 && path[0] == '/' && path[2] == ':' {
		path = path[1:]
	}
	return path
}
