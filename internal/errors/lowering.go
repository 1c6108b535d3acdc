package errors

import (
	stderrors "errors"
	"fmt"

	"dbd/internal/ast"
)

// ErrInvariant is matched by every InvariantViolation through errors.Is.
var ErrInvariant = stderrors.New("lowering invariant violated")

// InvariantViolation is a programming error inside the lowering session. It
// must never be reachable from valid input; the session aborts the current
// function when one is raised.
type InvariantViolation struct {
	Code     string
	Message  string
	Function string
	Position ast.Position
}

func (e *InvariantViolation) Error() string {
	if e.Function != "" {
		return fmt.Sprintf("%s: %s (in %s at %s)", e.Code, e.Message, e.Function, e.Position)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *InvariantViolation) Is(target error) bool {
	return target == ErrInvariant
}

// Invariantf builds an InvariantViolation with a formatted message.
func Invariantf(code string, pos ast.Position, format string, args ...any) *InvariantViolation {
	return &InvariantViolation{Code: code, Message: fmt.Sprintf(format, args...), Position: pos}
}

// IsInvariant reports whether err is, or wraps, an invariant violation.
func IsInvariant(err error) bool {
	return stderrors.Is(err, ErrInvariant)
}

// Unsupported records a construct that lowering skipped.
type Unsupported struct {
	Code     string
	Kind     string
	Position ast.Position
	Detail   string
}

func (u Unsupported) String() string {
	if u.Detail != "" {
		return fmt.Sprintf("%s: unsupported %s at %s: %s", u.Code, u.Kind, u.Position, u.Detail)
	}
	return fmt.Sprintf("%s: unsupported %s at %s", u.Code, u.Kind, u.Position)
}

// Diagnostic renders the skip as a warning for the reporter.
func (u Unsupported) Diagnostic() CompilerError {
	err := CompilerError{
		Level:    Warning,
		Code:     u.Code,
		Message:  fmt.Sprintf("unsupported %s was skipped", u.Kind),
		Position: u.Position,
		Length:   1,
	}
	if u.Detail != "" {
		err.Notes = append(err.Notes, u.Detail)
	}
	return err
}

// Diagnostic renders the violation as an error for the reporter.
func (e *InvariantViolation) Diagnostic() CompilerError {
	return CompilerError{
		Level:    Error,
		Code:     e.Code,
		Message:  e.Message,
		Position: e.Position,
		Length:   1,
		HelpText: "this is an internal error in the lowering, please report it with the input file",
	}
}

// SyntaxError builds the diagnostic for a front end parse failure.
func SyntaxError(message string, pos ast.Position, length int) CompilerError {
	return CompilerError{
		Level:    Error,
		Code:     ErrorSyntax,
		Message:  message,
		Position: pos,
		Length:   length,
	}
}

// DeadStore builds the warning for a write that is never read.
func DeadStore(name string, pos ast.Position) CompilerError {
	return CompilerError{
		Level:    Warning,
		Code:     WarningDeadStore,
		Message:  fmt.Sprintf("value assigned to '%s' is never read", name),
		Position: pos,
		Length:   len(name),
		Suggestions: []Suggestion{
			{Message: fmt.Sprintf("remove the assignment to '%s'", name)},
		},
	}
}

// Unreachable builds the warning for code after a return, throw, break or
// continue.
func Unreachable(pos ast.Position, length int) CompilerError {
	return CompilerError{
		Level:    Warning,
		Code:     WarningUnreachable,
		Message:  "unreachable code",
		Position: pos,
		Length:   length,
		HelpText: "no path from the start of the function reaches this statement",
	}
}
