package output

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dbd/internal/ast"
	"dbd/internal/ir"
	"dbd/internal/lower"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// function f(a) { return a; } f(1);
func sampleProgram() *ast.Program {
	return &ast.Program{Body: []ast.Statement{
		&ast.FunctionDeclaration{Function: &ast.Function{
			ID:     &ast.Identifier{Name: "f"},
			Params: []ast.Expression{&ast.Identifier{Name: "a"}},
			Body: &ast.BlockStatement{Body: []ast.Statement{
				&ast.ReturnStatement{Argument: &ast.Identifier{Name: "a"}},
			}},
		}},
		&ast.ExpressionStatement{Expression: &ast.CallExpression{
			Callee:    &ast.Identifier{Name: "f"},
			Arguments: []ast.Expression{&ast.Literal{Kind: ast.NUMBER_LITERAL, Value: "1"}},
		}},
	}}
}

func TestWriterFileNames(t *testing.T) {
	dir := t.TempDir()
	result := lower.Transpile(sampleProgram(), lower.Options{FileName: "src/app.js"})
	w := NewWriter(dir, "src/app.js")

	paths, err := w.Write(result)
	require.NoError(t, err)

	var names []string
	for _, p := range paths {
		names = append(names, filepath.Base(p))
	}
	assert.Equal(t, []string{
		"app_main.json", "app_main.ir", "app_main.metadata",
		"app_0.json", "app_0.ir", "app_0.metadata",
	}, names)
}

func TestWrittenFilesDecode(t *testing.T) {
	dir := t.TempDir()
	result := lower.Transpile(sampleProgram(), lower.Options{FileName: "app.js"})
	w := NewWriter(dir, "app.js")
	w.Liveness = true
	_, err := w.Write(result)
	require.NoError(t, err)

	main := result.Unit("main").Info

	f, err := os.Open(w.Path("main", "json"))
	require.NoError(t, err)
	defer f.Close()
	fromJSON, err := ir.ReadDocument(f)
	require.NoError(t, err)
	assert.Equal(t, ir.Print(main), ir.Print(fromJSON))

	data, err := os.ReadFile(w.Path("main", "ir"))
	require.NoError(t, err)
	fromBinary, err := ir.UnmarshalBinary(data)
	require.NoError(t, err)
	assert.Equal(t, ir.Print(main), ir.Print(fromBinary))

	metadata, err := os.ReadFile(w.Path("main", "metadata"))
	require.NoError(t, err)
	assert.Equal(t, "app.js.f\n", string(metadata))

	empty, err := os.ReadFile(w.Path("0", "metadata"))
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = os.Stat(w.Path("0", "liveness.json"))
	assert.NoError(t, err)
}

func TestPrint(t *testing.T) {
	result := lower.Transpile(sampleProgram(), lower.Options{FileName: "app.js"})

	var plain bytes.Buffer
	require.NoError(t, Print(&plain, result, false))
	assert.Contains(t, plain.String(), `function main "main" "app.js.main"`)
	assert.Contains(t, plain.String(), `function 0 "f" "app.js.f"`)
	assert.NotContains(t, plain.String(), "live-in")

	var annotated bytes.Buffer
	require.NoError(t, Print(&annotated, result, true))
	assert.Contains(t, annotated.String(), "; live-in: f")
	assert.Equal(t, 2, strings.Count("\n"+annotated.String(), "\nend\n"))
}
