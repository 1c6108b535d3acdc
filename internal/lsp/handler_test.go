package lsp_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"dbd/internal/errors"
	"dbd/internal/lsp"
)

const uri = "file:///tmp/app.js"

type recorder struct {
	published []*protocol.PublishDiagnosticsParams
}

func (r *recorder) context() *glsp.Context {
	return &glsp.Context{
		Notify: func(method string, params any) {
			if method != protocol.ServerTextDocumentPublishDiagnostics {
				return
			}
			r.published = append(r.published, params.(*protocol.PublishDiagnosticsParams))
		},
	}
}

func (r *recorder) last(t *testing.T) *protocol.PublishDiagnosticsParams {
	t.Helper()
	require.NotEmpty(t, r.published)
	return r.published[len(r.published)-1]
}

func open(t *testing.T, handler *lsp.Handler, ctx *glsp.Context, text string) {
	t.Helper()
	err := handler.TextDocumentDidOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri, LanguageID: "javascript", Version: 1, Text: text},
	})
	require.NoError(t, err)
}

func TestInitializeAdvertisesCapabilities(t *testing.T) {
	handler := lsp.NewHandler()
	result, err := handler.Initialize(&glsp.Context{}, &protocol.InitializeParams{})
	require.NoError(t, err)

	init, ok := result.(*protocol.InitializeResult)
	require.True(t, ok)
	assert.NotNil(t, init.Capabilities.HoverProvider)
	require.NotNil(t, init.Capabilities.SemanticTokensProvider)
}

func TestDiagnosticsFollowEdits(t *testing.T) {
	handler := lsp.NewHandler()
	rec := &recorder{}
	ctx := rec.context()

	open(t, handler, ctx, "let x = 1;\nx = 2;\nf(x);")
	published := rec.last(t)
	assert.Equal(t, uri, published.URI)
	require.Len(t, published.Diagnostics, 1)
	diag := published.Diagnostics[0]
	assert.Equal(t, protocol.DiagnosticSeverityWarning, *diag.Severity)
	assert.Equal(t, errors.WarningDeadStore, diag.Code.Value)
	assert.Equal(t, uint32(0), diag.Range.Start.Line)
	assert.Equal(t, uint32(4), diag.Range.Start.Character)

	err := handler.TextDocumentDidChange(ctx, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: uri},
			Version:                2,
		},
		ContentChanges: []any{protocol.TextDocumentContentChangeEventWhole{Text: "let x = ;"}},
	})
	require.NoError(t, err)
	published = rec.last(t)
	var syntax *protocol.Diagnostic
	for i, d := range published.Diagnostics {
		if d.Code.Value == errors.ErrorSyntax {
			syntax = &published.Diagnostics[i]
		}
	}
	require.NotNil(t, syntax)
	assert.Equal(t, protocol.DiagnosticSeverityError, *syntax.Severity)

	err = handler.TextDocumentDidClose(ctx, &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	})
	require.NoError(t, err)
	assert.Empty(t, rec.last(t).Diagnostics)
}

func TestHoverShowsBlockLiveness(t *testing.T) {
	handler := lsp.NewHandler()
	open(t, handler, &glsp.Context{}, "let a = 1;\nwhile (a) {\n  a = a - 1;\n}")

	hover, err := handler.TextDocumentHover(&glsp.Context{}, &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri},
			Position:     protocol.Position{Line: 2, Character: 6},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, hover)
	content, ok := hover.Contents.(protocol.MarkupContent)
	require.True(t, ok)
	assert.Contains(t, content.Value, "bb4")
	assert.Contains(t, content.Value, "live-in: a")

	hover, err = handler.TextDocumentHover(&glsp.Context{}, &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: "file:///tmp/other.js"},
		},
	})
	require.NoError(t, err)
	assert.Nil(t, hover)
}

func TestTextDocumentSemanticTokensFull(t *testing.T) {
	handler := lsp.NewHandler()
	open(t, handler, &glsp.Context{}, "let a = 1;\na = a + 1;")

	tokens, err := handler.TextDocumentSemanticTokensFull(&glsp.Context{}, &protocol.SemanticTokensParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	})
	require.NoError(t, err)
	require.NotNil(t, tokens)

	decoded, err := decodeSemanticTokens(tokens.Data)
	require.NoError(t, err)
	require.Len(t, decoded, 3)

	assertToken(t, &decoded[0], 1, 5, 1, "variable", []string{"declaration"})
	assertToken(t, &decoded[1], 2, 1, 1, "variable", []string{"modification"})
	assertToken(t, &decoded[2], 2, 5, 1, "variable", nil)
}

func TestSemanticTokensForUnknownDocument(t *testing.T) {
	handler := lsp.NewHandler()
	_, err := handler.TextDocumentSemanticTokensFull(&glsp.Context{}, &protocol.SemanticTokensParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	})
	assert.Error(t, err)
}

type DecodedToken struct {
	Index     int
	Line      uint32
	Char      uint32
	Length    uint32
	Type      string
	Modifiers []string
}

func decodeSemanticTokens(raw []uint32) ([]DecodedToken, error) {
	if len(raw)%5 != 0 {
		return nil, fmt.Errorf("raw token data length %d is not a multiple of 5", len(raw))
	}

	var (
		decoded []DecodedToken
		line    uint32
		char    uint32
	)

	for i := 0; i < len(raw); i += 5 {
		deltaLine := raw[i]
		deltaStart := raw[i+1]
		length := raw[i+2]
		tokenTypeIdx := raw[i+3]
		tokenModMask := raw[i+4]

		if deltaLine == 0 {
			char += deltaStart
		} else {
			line += deltaLine
			char = deltaStart
		}

		var modifiers []string
		for j, name := range lsp.SemanticTokenModifiers {
			if tokenModMask&(1<<j) != 0 {
				modifiers = append(modifiers, name)
			}
		}

		decoded = append(decoded, DecodedToken{
			Index:     i / 5,
			Line:      line + 1, // 1-based for readability
			Char:      char + 1,
			Length:    length,
			Type:      lsp.SemanticTokenTypes[tokenTypeIdx],
			Modifiers: modifiers,
		})
	}

	return decoded, nil
}

func assertToken(t *testing.T, token *DecodedToken, expectedLine, expectedChar, expectedLength uint32, expectedType string, expectedModifiers []string) {
	require.Equal(t, expectedLine, token.Line, "line mismatch (expected line %d)", expectedLine)
	require.Equal(t, expectedChar, token.Char, "char mismatch (expected char %d)", expectedChar)
	require.Equal(t, expectedLength, token.Length, "length mismatch")
	require.Equal(t, expectedType, token.Type, "type mismatch")
	require.ElementsMatch(t, expectedModifiers, token.Modifiers, "modifiers mismatch")
}
