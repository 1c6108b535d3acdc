package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"dbd/internal/ir"
	"dbd/internal/lower"
	"dbd/internal/lva"
	"dbd/internal/output"
	"dbd/internal/parser"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const loopSource = "let x = 3;\nwhile (x) {\n  x = x - 1;\n}\nfunction f(a) { return a; }\n"

func writeSource(t *testing.T, dir, name, text string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

// execute runs the root command with fresh flag values and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	flagOut, flagPrint, flagLiveness, flagDB = "", false, false, ""
	flagFunction, flagFormat = "", "text"
	flagNoImplicitReturn = false
	errorHandled = false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func lowered(t *testing.T, text string) *lower.Result {
	t.Helper()
	program, errs, err := parser.ParseSource(context.Background(), "app.js", []byte(text))
	require.NoError(t, err)
	require.Empty(t, errs)
	return lower.Transpile(program, lower.Options{FileName: "app.js"})
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "500ns", formatDuration(500*time.Nanosecond))
	assert.Equal(t, "1.5μs", formatDuration(1500*time.Nanosecond))
	assert.Equal(t, "2.0ms", formatDuration(2*time.Millisecond))
	assert.Equal(t, "1.50s", formatDuration(1500*time.Millisecond))
	assert.Equal(t, "2.00min", formatDuration(2*time.Minute))
}

func TestReadUnitsByExtension(t *testing.T) {
	dir := t.TempDir()
	result := lowered(t, loopSource)
	_, err := output.NewWriter(dir, "app.js").Write(result)
	require.NoError(t, err)

	fromBinary, err := readUnits(filepath.Join(dir, "app_main.ir"))
	require.NoError(t, err)
	require.Len(t, fromBinary, 1)
	assert.Equal(t, ir.Print(result.Unit("main").Info), ir.Print(fromBinary...))

	fromJSON, err := readUnits(filepath.Join(dir, "app_0.json"))
	require.NoError(t, err)
	require.Len(t, fromJSON, 1)
	assert.Equal(t, ir.Print(result.Unit("0").Info), ir.Print(fromJSON...))

	dump := writeSource(t, dir, "app.dbd", ir.Print(result.Functions()...))
	fromDump, err := readUnits(dump)
	require.NoError(t, err)
	assert.Len(t, fromDump, 2)

	_, err = readUnits(filepath.Join(dir, "app_main.metadata"))
	assert.Error(t, err)
	_, err = readUnits(filepath.Join(dir, "missing.ir"))
	assert.Error(t, err)
}

func TestFormatLivenessText(t *testing.T) {
	result := lowered(t, "let a = 1;\nwhile (a) {\n  a = a - 1;\n}\n")
	unit := result.Unit("main")
	table := lva.Analyze(unit.Info, unit.References)

	var buf bytes.Buffer
	formatLivenessText(&buf, []unitLiveness{{ID: "main", Name: "main", Blocks: livenessRows(table)}})
	text := buf.String()
	assert.Contains(t, text, `function main "main"`)
	assert.Contains(t, text, "BLOCK")
	assert.Contains(t, text, "bb1")
	assert.Contains(t, text, "a")
}

func TestLowerPrint(t *testing.T) {
	path := writeSource(t, t.TempDir(), "app.js", loopSource)

	out, err := execute(t, "lower", "--print", "--liveness", path)
	require.NoError(t, err)
	assert.Contains(t, out, `function 0 "f" "app.js.f"`)
	assert.Contains(t, out, "; live-in:")
}

func TestLowerWritesFiles(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "app.js", loopSource)
	outDir := filepath.Join(dir, "out")

	out, err := execute(t, "lower", "--out", outDir, path)
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(outDir, "app_main.ir"))

	for _, name := range []string{"app_main.json", "app_main.ir", "app_main.metadata", "app_0.json", "app_0.ir", "app_0.metadata"} {
		assert.FileExists(t, filepath.Join(outDir, name))
	}
}

func TestLowerReportsSyntaxErrors(t *testing.T) {
	path := writeSource(t, t.TempDir(), "broken.js", "let x = ;")

	_, err := execute(t, "lower", "--print", path)
	require.Error(t, err)
	assert.True(t, errorHandled)
}

func TestLivenessUsesCache(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "app.js", loopSource)
	db := filepath.Join(dir, "cache", "units.db")

	_, err := execute(t, "lower", "--db", db, "--out", dir, path)
	require.NoError(t, err)
	require.FileExists(t, db)

	out, err := execute(t, "liveness", "--db", db, "--function", "main", path)
	require.NoError(t, err)
	assert.Contains(t, out, `function main "main"`)
	assert.Contains(t, out, "bb1")
	assert.NotContains(t, out, `function 0`)
}

func TestLivenessJSON(t *testing.T) {
	path := writeSource(t, t.TempDir(), "app.js", loopSource)

	out, err := execute(t, "liveness", "--format", "json", "--function", "0", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"function": "0"`)

	_, err = execute(t, "liveness", "--format", "yaml", path)
	assert.Error(t, err)

	_, err = execute(t, "liveness", "--function", "9", path)
	assert.Error(t, err)
}

func TestScriptCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "app.js", loopSource)
	risor := writeSource(t, dir, "count.risor", "len(functions)")

	out, err := execute(t, "script", path, risor)
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)
}
