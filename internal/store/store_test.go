package store

import (
	"path/filepath"
	"testing"

	"dbd/internal/ast"
	"dbd/internal/ir"
	"dbd/internal/lower"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

// let x = 1; function f() { return x; }
func sampleResult() *lower.Result {
	program := &ast.Program{Body: []ast.Statement{
		&ast.VariableDeclaration{Kind: ast.LET, Declarations: []*ast.VariableDeclarator{
			{ID: &ast.Identifier{Name: "x"}, Init: &ast.Literal{Kind: ast.NUMBER_LITERAL, Value: "1"}},
		}},
		&ast.FunctionDeclaration{Function: &ast.Function{
			ID: &ast.Identifier{Name: "f"},
			Body: &ast.BlockStatement{Body: []ast.Statement{
				&ast.ReturnStatement{Argument: &ast.Identifier{Name: "x"}},
			}},
		}},
	}}
	return lower.Transpile(program, lower.Options{FileName: "app.js"})
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Migrate())
}

func TestKey(t *testing.T) {
	source := []byte("let x = 1;")
	opts := lower.Options{FileName: "a.js", HostGlobals: []string{"window", "console"}}

	key := Key(source, opts)
	assert.Len(t, key, 64)
	assert.Equal(t, key, Key(source, lower.Options{FileName: "a.js", HostGlobals: []string{"window", "console"}}))
	assert.NotEqual(t, key, Key([]byte("let x = 2;"), opts))
	assert.NotEqual(t, key, Key(source, lower.Options{FileName: "b.js", HostGlobals: opts.HostGlobals}))
	assert.NotEqual(t, key, Key(source, lower.Options{FileName: "a.js", HostGlobals: opts.HostGlobals, OmitImplicitReturn: true}))
}

func TestKeyKeepsHostGlobalOrder(t *testing.T) {
	source := []byte("console.log(window);")
	forward := lower.Options{FileName: "a.js", HostGlobals: []string{"window", "console"}}
	backward := lower.Options{FileName: "a.js", HostGlobals: []string{"console", "window"}}

	assert.NotEqual(t, Key(source, forward), Key(source, backward))

	program := &ast.Program{}
	first := ir.Print(lower.Transpile(program, forward).Functions()...)
	second := ir.Print(lower.Transpile(program, backward).Functions()...)
	assert.NotEqual(t, first, second, "global order changes the lowered units")
}

func TestPutAndLoadResult(t *testing.T) {
	s := newTestStore(t)
	result := sampleResult()
	require.NoError(t, s.PutResult("h1", result))

	units, err := s.Units("h1")
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, "main", units[0].ID)
	assert.Equal(t, "0", units[1].ID)
	assert.Equal(t, ir.Print(result.Functions()...), ir.Print(units...))

	fn, err := s.Unit("h1", "0")
	require.NoError(t, err)
	require.NotNil(t, fn)
	assert.Equal(t, "f", fn.Definition.Name)

	blocks, err := s.Liveness("h1", "0")
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, []string{"x"}, blocks[0].LiveIn)
	assert.Empty(t, blocks[0].LiveOut)
}

func TestMissingUnit(t *testing.T) {
	s := newTestStore(t)

	fn, err := s.Unit("nope", "main")
	assert.NoError(t, err)
	assert.Nil(t, fn)

	units, err := s.Units("nope")
	assert.NoError(t, err)
	assert.Empty(t, units)

	blocks, err := s.Liveness("nope", "main")
	assert.NoError(t, err)
	assert.Empty(t, blocks)
}

func TestPutUnitReplaces(t *testing.T) {
	s := newTestStore(t)
	result := sampleResult()
	main := result.Unit("main").Info

	require.NoError(t, s.PutUnit("h", 0, main))
	require.NoError(t, s.PutUnit("h", 0, main))

	units, err := s.Units("h")
	require.NoError(t, err)
	assert.Len(t, units, 1)
}
