package analysis

import (
	"context"
	"testing"

	"dbd/internal/ast"
	"dbd/internal/errors"
	"dbd/internal/ir"
	"dbd/internal/lower"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, source string) *Analysis {
	t.Helper()
	a, err := Run(context.Background(), "/src/app.js", []byte(source), lower.Options{})
	require.NoError(t, err)
	return a
}

func codes(diags []errors.CompilerError) []string {
	var out []string
	for _, d := range diags {
		out = append(out, d.Code)
	}
	return out
}

func TestRunUsesBaseName(t *testing.T) {
	a := run(t, "function f() {}")
	require.False(t, a.HasErrors())
	require.Len(t, a.Result.Units, 2)
	assert.Equal(t, "app.js", a.Result.Units[0].Info.FileName)
	assert.Equal(t, "app.js.f", a.Result.Unit("0").Info.Definition.Signature)
	assert.NotNil(t, a.Table("main"))
	assert.NotNil(t, a.Table("0"))
	assert.Nil(t, a.Table("nope"))
}

func TestDeadStoreDiagnostic(t *testing.T) {
	a := run(t, "let x = 1;\nx = 2;\nf(x);")
	diags := a.Diagnostics()
	require.Equal(t, []string{errors.WarningDeadStore}, codes(diags))
	assert.Equal(t, 1, diags[0].Position.Line)
	assert.Equal(t, errors.Warning, diags[0].Level)
}

func TestSharedVariablesAreNotDeadStores(t *testing.T) {
	a := run(t, "let count = 0;\nfunction inc() { count = count + 1; }")
	assert.Empty(t, a.Diagnostics())
}

func TestSyntaxErrorsAreReported(t *testing.T) {
	a := run(t, "let x = ;")
	assert.True(t, a.HasErrors())
	diags := a.Diagnostics()
	require.NotEmpty(t, diags)
	assert.Contains(t, codes(diags), errors.ErrorSyntax)
}

func TestSkippedConstructsAreWarnings(t *testing.T) {
	a := run(t, "class A {}")
	assert.False(t, a.HasErrors())
	diags := a.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, errors.ErrorUnsupportedStatement, diags[0].Code)
	assert.Equal(t, errors.Warning, diags[0].Level)
}

func TestDiagnosticsAreOrdered(t *testing.T) {
	a := run(t, "class B {}\nlet y = 1;\ny = 2;\nclass A {}\ng(y);")
	diags := a.Diagnostics()
	require.Len(t, diags, 3)
	for i := 1; i < len(diags); i++ {
		assert.LessOrEqual(t, diags[i-1].Position.Line, diags[i].Position.Line)
	}
}

func TestFromProgram(t *testing.T) {
	program := &ast.Program{Body: []ast.Statement{
		&ast.BlockStatement{Body: []ast.Statement{&ast.EmptyStatement{}}},
	}}
	a := FromProgram(program, lower.Options{FileName: "inline.js"})
	assert.Equal(t, "inline.js", a.Path)
	assert.Len(t, a.Result.Unit("main").Info.Blocks, 3)
}

func TestBlockAt(t *testing.T) {
	a := run(t, "let a = 1;\nwhile (a) {\n  a = a - 1;\n}")
	unit, block := a.BlockAt(ast.Position{Line: 3, Column: 6})
	require.NotNil(t, unit)
	require.NotNil(t, block)
	assert.Equal(t, "main", unit.Info.ID)
	// header bb1, loop body bb2, exit bb3; the braces open region bb4
	assert.Equal(t, ir.BlockID(4), block.ID)
	assert.Equal(t, []ir.BlockID{4}, unit.Info.Blocks[2].Successors())

	unit, block = a.BlockAt(ast.Position{Line: 40, Column: 0})
	assert.Nil(t, unit)
	assert.Nil(t, block)
}

func TestUnreachableCode(t *testing.T) {
	a := run(t, "function f() {\n  return 1;\n  g();\n}")
	diags := a.Diagnostics()
	require.Equal(t, []string{errors.WarningUnreachable}, codes(diags))
	assert.Equal(t, 3, diags[0].Position.Line)
	assert.Equal(t, errors.Warning, diags[0].Level)
}

func TestImplicitReturnIsNotUnreachable(t *testing.T) {
	a := run(t, "function f(a) {\n  if (a) { return 1; } else { return 2; }\n}\nf(1);")
	assert.Empty(t, a.Diagnostics())
}
