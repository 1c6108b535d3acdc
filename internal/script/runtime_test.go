package script

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"dbd/internal/ast"
	"dbd/internal/lower"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// let x = 0; while (c) { x = 1; } function f(a) { return a; }
func newTestRuntime() *Runtime {
	program := &ast.Program{Body: []ast.Statement{
		&ast.VariableDeclaration{Kind: ast.LET, Declarations: []*ast.VariableDeclarator{
			{ID: &ast.Identifier{Name: "x"}, Init: &ast.Literal{Kind: ast.NUMBER_LITERAL, Value: "0"}},
		}},
		&ast.WhileStatement{
			Test: &ast.Identifier{Name: "c"},
			Body: &ast.ExpressionStatement{Expression: &ast.AssignmentExpression{
				Operator: "=",
				Left:     &ast.Identifier{Name: "x"},
				Right:    &ast.Literal{Kind: ast.NUMBER_LITERAL, Value: "1"},
			}},
		},
		&ast.FunctionDeclaration{Function: &ast.Function{
			ID:     &ast.Identifier{Name: "f"},
			Params: []ast.Expression{&ast.Identifier{Name: "a"}},
			Body: &ast.BlockStatement{Body: []ast.Statement{
				&ast.ReturnStatement{Argument: &ast.Identifier{Name: "a"}},
			}},
		}},
	}}
	return NewRuntime(lower.Transpile(program, lower.Options{FileName: "app.js"}))
}

func TestFunctionsGlobal(t *testing.T) {
	rt := newTestRuntime()
	script := `
assert(len(functions) == 2, "expected 2 functions")
main := functions[0]
assert(main["id"] == "main", "first unit is main")
f := functions[1]
assert(f["name"] == "f", "second unit is f")
assert(f["params"][0] == "@parent", "first parameter is @parent")
assert(f["params"][1] == "a", "second parameter is a")
len(main["blocks"])
`
	value, err := rt.RunSource(context.Background(), script)
	require.NoError(t, err)
	assert.EqualValues(t, 4, value)
}

func TestSuccessorsHostFunction(t *testing.T) {
	rt := newTestRuntime()
	script := `
succ := successors("main", 1)
assert(len(succ) == 2, "loop header has two successors")
assert(succ[0] == 2, "body first")
assert(succ[1] == 3, "exit second")
back := successors(functions[0], 2)
assert(back[0] == 1, "body branches back to the header")
`
	_, err := rt.RunSource(context.Background(), script)
	require.NoError(t, err)
}

func TestLivenessFields(t *testing.T) {
	rt := newTestRuntime()
	script := `
header := functions[0]["blocks"][1]
assert("c" in header["live_in"], "c is read in the header")
body := functions[0]["blocks"][2]
assert(len(body["dead_stores"]) == 1, "x = 1 is never read")
body["dead_stores"][0]
`
	value, err := rt.RunSource(context.Background(), script)
	require.NoError(t, err)
	assert.Equal(t, "x", value)
}

func TestPrintIR(t *testing.T) {
	rt := newTestRuntime()
	value, err := rt.RunSource(context.Background(), `print_ir("0")`)
	require.NoError(t, err)
	text, ok := value.(string)
	require.True(t, ok)
	assert.Contains(t, text, `function 0 "f" "app.js.f"`)
	assert.Contains(t, text, "; live-in:")
}

func TestHostFunctionErrors(t *testing.T) {
	rt := newTestRuntime()
	ctx := context.Background()

	_, err := rt.RunSource(ctx, `successors("nope", 0)`)
	assert.Error(t, err)

	_, err = rt.RunSource(ctx, `successors("main", 42)`)
	assert.Error(t, err)

	_, err = rt.RunSource(ctx, `print_ir(1)`)
	assert.Error(t, err)
}

func TestRunFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "count.risor")
	require.NoError(t, os.WriteFile(path, []byte(`len(functions)`), 0o644))

	value, err := newTestRuntime().RunFile(context.Background(), path)
	require.NoError(t, err)
	assert.EqualValues(t, 2, value)

	_, err = newTestRuntime().RunFile(context.Background(), filepath.Join(t.TempDir(), "missing.risor"))
	assert.Error(t, err)
}
