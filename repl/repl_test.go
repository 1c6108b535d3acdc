package repl

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStartLowersEachLine(t *testing.T) {
	in := strings.NewReader("let x = 1;\n\n:liveness\nwhile (x) { x = 0; }\n")
	var out bytes.Buffer

	Start(in, &out)

	text := out.String()
	assert.Equal(t, 2, strings.Count(text, `function main "main"`))
	assert.Contains(t, text, "liveness on")
	assert.Contains(t, text, "; live-in:")
	assert.True(t, strings.HasSuffix(text, PROMPT+"\n"))
}

func TestStartReportsSyntaxErrors(t *testing.T) {
	var out bytes.Buffer
	Start(strings.NewReader("let x = ;\n"), &out)
	assert.Contains(t, out.String(), "D0200")
	assert.NotContains(t, out.String(), "function main")
}

func TestStartReportsSkippedConstructs(t *testing.T) {
	var out bytes.Buffer
	Start(strings.NewReader("class A {}\n"), &out)
	assert.Contains(t, out.String(), "skipped:")
}
