// Package parser turns JavaScript source into the ESTree shaped AST that
// lowering consumes. Source files go through tree-sitter; ".json" files are
// read as ESTree documents produced by an external parser.
package parser

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dbd/internal/ast"
	"dbd/internal/errors"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("dbd.parser")

// ParseError is a syntax error reported by the front end.
type ParseError struct {
	Message  string
	Position ast.Position
	Length   int
}

func (e ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Position, e.Message)
}

// Diagnostic converts the error for the reporter and the language server.
func (e ParseError) Diagnostic() errors.CompilerError {
	return errors.SyntaxError(e.Message, e.Position, e.Length)
}

// IsSource reports whether path names a file ParseFile can read.
func IsSource(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js", ".mjs", ".cjs", ".jsx", ".json":
		return true
	}
	return false
}

// ParseFile reads and parses the file at path.
func ParseFile(ctx context.Context, path string) (*ast.Program, []ParseError, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Parse(ctx, path, source)
}

// Parse picks the front end from the extension of path: ESTree JSON for
// ".json", tree-sitter for everything else.
func Parse(ctx context.Context, path string, source []byte) (*ast.Program, []ParseError, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		program, err := ast.DecodeESTree(bytes.NewReader(source))
		return program, nil, err
	}
	return ParseSource(ctx, path, source)
}

// ParseSource parses JavaScript source. Syntax errors do not stop parsing:
// the returned program holds every statement tree-sitter could recover.
// The error result is reserved for failures of the parser itself, such as
// cancellation of ctx.
func ParseSource(ctx context.Context, path string, source []byte) (*ast.Program, []ParseError, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(javascript.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	c := &converter{source: source}
	program := c.program(root)

	var syntaxErrors []ParseError
	if root.HasError() {
		syntaxErrors = collectErrors(root, source)
		log.Debugf("%s: %d syntax errors", path, len(syntaxErrors))
	}
	return program, syntaxErrors, nil
}

// collectErrors reports the outermost ERROR nodes and every MISSING node.
func collectErrors(n *sitter.Node, source []byte) []ParseError {
	var out []ParseError
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch {
		case n.IsMissing():
			out = append(out, ParseError{
				Message:  fmt.Sprintf("missing %s", n.Type()),
				Position: position(n.StartPoint(), n.StartByte()),
				Length:   1,
			})
			return
		case n.Type() == "ERROR":
			out = append(out, ParseError{
				Message:  fmt.Sprintf("unexpected %s", excerpt(n.Content(source))),
				Position: position(n.StartPoint(), n.StartByte()),
				Length:   errorLength(n),
			})
			return
		case !n.HasError():
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			if child := n.Child(i); child != nil {
				walk(child)
			}
		}
	}
	walk(n)
	return out
}

func errorLength(n *sitter.Node) int {
	start, end := n.StartPoint(), n.EndPoint()
	if start.Row != end.Row || end.Column <= start.Column {
		return 1
	}
	return int(end.Column - start.Column)
}

// excerpt quotes the first line of text, shortened for messages.
func excerpt(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	if len(text) > 20 {
		text = text[:20] + "..."
	}
	if text == "" {
		return "end of input"
	}
	return fmt.Sprintf("%q", text)
}

func position(p sitter.Point, offset uint32) ast.Position {
	return ast.Position{Offset: int(offset), Line: int(p.Row) + 1, Column: int(p.Column)}
}
