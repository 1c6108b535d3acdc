package lsp

import (
	"dbd/internal/errors"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// convertDiagnostics maps reporter diagnostics onto LSP diagnostics. The
// result is never nil so a clean buffer clears earlier diagnostics.
func convertDiagnostics(diags []errors.CompilerError) []protocol.Diagnostic {
	out := make([]protocol.Diagnostic, 0, len(diags))

	for _, d := range diags {
		line := uint32(max(d.Position.Line-1, 0))
		start := uint32(max(d.Position.Column, 0))
		length := uint32(max(d.Length, 1))

		diagnostic := protocol.Diagnostic{
			Range: protocol.Range{
				Start: protocol.Position{Line: line, Character: start},
				End:   protocol.Position{Line: line, Character: start + length},
			},
			Severity: ptrSeverity(severity(d.Level)),
			Code:     &protocol.IntegerOrString{Value: d.Code},
			Source:   ptrString("dbd"),
			Message:  d.Message,
		}
		out = append(out, diagnostic)
	}

	return out
}

func severity(level errors.ErrorLevel) protocol.DiagnosticSeverity {
	switch level {
	case errors.Error:
		return protocol.DiagnosticSeverityError
	case errors.Warning:
		return protocol.DiagnosticSeverityWarning
	case errors.Note:
		return protocol.DiagnosticSeverityInformation
	default:
		return protocol.DiagnosticSeverityHint
	}
}

func ptrSeverity(s protocol.DiagnosticSeverity) *protocol.DiagnosticSeverity {
	return &s
}

func ptrString(s string) *string {
	return &s
}
