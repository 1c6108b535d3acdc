package errors

import (
	"fmt"
	"strings"

	"dbd/internal/ast"
	"github.com/fatih/color"
)

// ErrorLevel represents the severity of a diagnostic
type ErrorLevel string

const (
	Error   ErrorLevel = "error"
	Warning ErrorLevel = "warning"
	Note    ErrorLevel = "note"
	Help    ErrorLevel = "help"
)

// CompilerError is a structured diagnostic with optional suggestions
type CompilerError struct {
	Level       ErrorLevel
	Code        string
	Message     string
	Position    ast.Position // Column is 0-based
	Length      int
	Suggestions []Suggestion
	Notes       []string
	HelpText    string
}

// Suggestion is a suggested fix
type Suggestion struct {
	Message string
}

// ErrorReporter formats diagnostics against one source file
type ErrorReporter struct {
	filename string
	lines    []string
}

// NewErrorReporter creates a reporter for a file
func NewErrorReporter(filename, source string) *ErrorReporter {
	return &ErrorReporter{
		filename: filename,
		lines:    strings.Split(source, "\n"),
	}
}

// FormatError renders a diagnostic with a source excerpt and a caret marker
func (er *ErrorReporter) FormatError(err CompilerError) string {
	var result strings.Builder

	levelColor := levelColor(err.Level)
	bold := color.New(color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	if err.Code != "" {
		result.WriteString(fmt.Sprintf("%s[%s]: %s\n", levelColor(string(err.Level)), err.Code, err.Message))
	} else {
		result.WriteString(fmt.Sprintf("%s: %s\n", levelColor(string(err.Level)), err.Message))
	}

	width := lineNumberWidth(err.Position.Line)
	indent := strings.Repeat(" ", width)

	result.WriteString(fmt.Sprintf("%s %s %s:%d:%d\n",
		indent, dim("-->"), er.filename, err.Position.Line, err.Position.Column+1))
	result.WriteString(fmt.Sprintf("%s %s\n", indent, dim("│")))

	if err.Position.Line > 0 && err.Position.Line <= len(er.lines) {
		result.WriteString(fmt.Sprintf("%s %s %s\n",
			bold(fmt.Sprintf("%*d", width, err.Position.Line)),
			dim("│"),
			er.lines[err.Position.Line-1]))
		result.WriteString(fmt.Sprintf("%s %s %s\n",
			indent, dim("│"), marker(err.Position.Column, err.Length, err.Level)))
	}

	for i, suggestion := range err.Suggestions {
		cyan := color.New(color.FgCyan).SprintFunc()
		if i == 0 {
			result.WriteString(fmt.Sprintf("%s %s: %s\n", indent, cyan("help"), suggestion.Message))
		} else {
			result.WriteString(fmt.Sprintf("%s       %s\n", indent, suggestion.Message))
		}
	}

	for _, note := range err.Notes {
		blue := color.New(color.FgBlue).SprintFunc()
		result.WriteString(fmt.Sprintf("%s %s %s %s\n", indent, dim("│"), blue("note:"), note))
	}

	if err.HelpText != "" {
		green := color.New(color.FgGreen).SprintFunc()
		result.WriteString(fmt.Sprintf("%s %s %s %s\n", indent, dim("│"), green("help:"), err.HelpText))
	}

	result.WriteString("\n")
	return result.String()
}

func levelColor(level ErrorLevel) func(...interface{}) string {
	switch level {
	case Warning:
		return color.New(color.FgYellow, color.Bold).SprintFunc()
	case Note:
		return color.New(color.FgBlue, color.Bold).SprintFunc()
	case Help:
		return color.New(color.FgGreen, color.Bold).SprintFunc()
	default:
		return color.New(color.FgRed, color.Bold).SprintFunc()
	}
}

func marker(column, length int, level ErrorLevel) string {
	if length <= 0 {
		length = 1
	}
	c := color.New(color.FgRed, color.Bold).SprintFunc()
	if level == Warning {
		c = color.New(color.FgYellow, color.Bold).SprintFunc()
	}
	return strings.Repeat(" ", max(0, column)) + c(strings.Repeat("^", length))
}

// lineNumberWidth keeps at least three columns for visual alignment
func lineNumberWidth(line int) int {
	return max(3, len(fmt.Sprintf("%d", line)))
}
