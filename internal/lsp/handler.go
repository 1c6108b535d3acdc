package lsp

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"dbd/internal/analysis"
	"dbd/internal/ast"
	"dbd/internal/lower"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

var log = commonlog.GetLogger("dbd.lsp")

// Handler implements the language server handlers for JavaScript buffers.
// Every change re-runs the whole pipeline; diagnostics, hovers and semantic
// tokens are served from the last analysis.
type Handler struct {
	mu sync.RWMutex

	// docs maps open buffer URIs to the analysis of their last version.
	docs map[string]*analysis.Analysis
	opts lower.Options
}

// NewHandler creates a handler. hostGlobals are bound in the global scope
// of every analyzed buffer.
func NewHandler(hostGlobals ...string) *Handler {
	return &Handler{
		docs: make(map[string]*analysis.Analysis),
		opts: lower.Options{HostGlobals: hostGlobals},
	}
}

// Initialize advertises the server's capabilities
func (h *Handler) Initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Info("initialize")

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: ptrBool(true),
				Change:    ptrSyncKind(protocol.TextDocumentSyncKindFull),
			},
			HoverProvider: ptrBool(true),
			SemanticTokensProvider: &protocol.SemanticTokensOptions{
				Legend: protocol.SemanticTokensLegend{
					TokenTypes:     SemanticTokenTypes,
					TokenModifiers: SemanticTokenModifiers,
				},
				Full: ptrBool(true),
			},
		},
	}, nil
}

func (h *Handler) Initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	log.Info("initialized")
	return nil
}

func (h *Handler) Shutdown(ctx *glsp.Context) error {
	log.Info("shutdown")
	return nil
}

func (h *Handler) SetTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

// TextDocumentDidOpen analyzes the opened buffer and publishes diagnostics
func (h *Handler) TextDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	log.Debugf("opened %s", params.TextDocument.URI)
	return h.update(ctx, params.TextDocument.URI, params.TextDocument.Text)
}

// TextDocumentDidChange re-analyzes the buffer. The server asks for full
// sync, so the last change carries the whole text.
func (h *Handler) TextDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	log.Debugf("changed %s", params.TextDocument.URI)

	var text string
	found := false
	for _, change := range params.ContentChanges {
		switch c := change.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			text, found = c.Text, true
		case protocol.TextDocumentContentChangeEvent:
			text, found = c.Text, true
		}
	}
	if !found {
		return nil
	}
	return h.update(ctx, params.TextDocument.URI, text)
}

// TextDocumentDidClose forgets the buffer and clears its diagnostics
func (h *Handler) TextDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	log.Debugf("closed %s", params.TextDocument.URI)

	h.mu.Lock()
	delete(h.docs, params.TextDocument.URI)
	h.mu.Unlock()

	sendDiagnosticNotification(ctx, params.TextDocument.URI, []protocol.Diagnostic{})
	return nil
}

// TextDocumentHover shows the block under the cursor with its liveness
func (h *Handler) TextDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	a := h.lookup(params.TextDocument.URI)
	if a == nil {
		return nil, nil
	}
	pos := ast.Position{Line: int(params.Position.Line) + 1, Column: int(params.Position.Character)}
	text := hoverText(a, pos)
	if text == "" {
		return nil, nil
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{Kind: protocol.MarkupKindMarkdown, Value: text},
	}, nil
}

// TextDocumentSemanticTokensFull highlights every variable occurrence
func (h *Handler) TextDocumentSemanticTokensFull(ctx *glsp.Context, params *protocol.SemanticTokensParams) (*protocol.SemanticTokens, error) {
	a := h.lookup(params.TextDocument.URI)
	if a == nil {
		return nil, fmt.Errorf("document %s is not open", params.TextDocument.URI)
	}

	tokens := collectSemanticTokens(a)

	var data []uint32
	var prevLine, prevStart uint32

	// delta-line, delta-start encoding
	for _, token := range tokens {
		deltaLine := token.Line - prevLine
		var deltaStart uint32
		if deltaLine == 0 {
			deltaStart = token.StartChar - prevStart
		} else {
			deltaStart = token.StartChar
		}

		data = append(data, deltaLine, deltaStart, token.Length, uint32(token.TokenType), uint32(token.TokenModifiers))

		prevLine = token.Line
		prevStart = token.StartChar
	}

	return &protocol.SemanticTokens{
		Data: data,
	}, nil
}

func (h *Handler) lookup(uri protocol.DocumentUri) *analysis.Analysis {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.docs[uri]
}

func (h *Handler) update(ctx *glsp.Context, uri protocol.DocumentUri, text string) error {
	path, err := uriToPath(uri)
	if err != nil {
		return err
	}

	a, err := analysis.Run(context.Background(), path, []byte(text), h.opts)
	if err != nil {
		return fmt.Errorf("failed to analyze %s: %w", uri, err)
	}

	h.mu.Lock()
	h.docs[uri] = a
	h.mu.Unlock()

	sendDiagnosticNotification(ctx, uri, convertDiagnostics(a.Diagnostics()))
	return nil
}

// Convert URI to platform-local file path
func uriToPath(rawURI string) (string, error) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return "", fmt.Errorf("invalid URI %s: %w", rawURI, err)
	}

	path := u.Path

	// /C:/... on Windows
	if runtime.GOOS == "windows" && strings.HasPrefix(path, "/") && len(path) > 3 && path[2] == ':' {
		path = path[1:]
	}

	return filepath.FromSlash(path), nil
}

func sendDiagnosticNotification(ctx *glsp.Context, uri protocol.URI, diagnostics []protocol.Diagnostic) {
	if ctx == nil || ctx.Notify == nil {
		return
	}
	log.Debugf("publishing %d diagnostics for %s", len(diagnostics), uri)

	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

func ptrBool(b bool) *bool {
	return &b
}

func ptrSyncKind(k protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind {
	return &k
}
