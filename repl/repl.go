// Package repl lowers JavaScript one line at a time and prints the IR.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"dbd/internal/errors"
	"dbd/internal/lower"
	"dbd/internal/output"
	"dbd/internal/parser"
)

const PROMPT = ">> "

// Start reads lines from in until EOF. Each line is lowered as a program of
// its own. ":liveness" toggles block annotations.
func Start(in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	liveness := false

	for {
		fmt.Fprint(out, PROMPT)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case ":liveness":
			liveness = !liveness
			fmt.Fprintf(out, "liveness %s\n", onOff(liveness))
			continue
		}

		eval(out, line, liveness)
	}
}

func eval(out io.Writer, line string, liveness bool) {
	program, syntaxErrors, err := parser.ParseSource(context.Background(), "repl.js", []byte(line))
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return
	}
	if len(syntaxErrors) > 0 {
		reporter := errors.NewErrorReporter("repl.js", line)
		for _, e := range syntaxErrors {
			fmt.Fprint(out, reporter.FormatError(e.Diagnostic()))
		}
		return
	}

	result := lower.Transpile(program, lower.Options{FileName: "repl.js"})
	for _, skipped := range result.Skipped {
		fmt.Fprintf(out, "skipped: %s\n", skipped)
	}
	for _, err := range result.Errors {
		fmt.Fprintf(out, "error: %v\n", err)
	}
	if err := output.Print(out, result, liveness); err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
