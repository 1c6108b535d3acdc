package errors

// Error codes for the dbd toolchain.
// These codes appear in reporter output, LSP diagnostics and logs so a
// message can be traced back to the stage that produced it.
//
// Error code ranges:
// D0001-D0099: Lowering invariant violations (fatal for the function)
// D0100-D0199: Unsupported input (skipped constructs)
// D0200-D0299: Front end / syntax errors
// D0300-D0399: Serialization errors
// D0800-D0899: Analysis facts surfaced as warnings

const (
	// D0001: Popping an empty scope stack
	ErrorScopeUnderflow = "D0001"

	// D0002: Appending an instruction to a terminated block
	ErrorTerminatedBlock = "D0002"

	// D0003: Referencing a builtin outside the catalog
	ErrorUnknownBuiltin = "D0003"

	// D0004: Setting a scope's @parent twice
	ErrorParentRelinked = "D0004"

	// D0005: Branching to a block that does not exist
	ErrorUnknownBlock = "D0005"

	// D0006: Scope stack left unbalanced at function exit
	ErrorUnbalancedScopes = "D0006"

	// D0100: Statement kind not lowered
	ErrorUnsupportedStatement = "D0100"

	// D0101: Expression kind not lowered
	ErrorUnsupportedExpression = "D0101"

	// D0102: Binding pattern not lowered (destructuring, defaults, rest)
	ErrorUnsupportedPattern = "D0102"

	// D0103: break/continue with no enclosing target
	ErrorNoJumpTarget = "D0103"

	// D0200: Source text did not parse
	ErrorSyntax = "D0200"

	// D0300: Malformed binary IR
	ErrorMalformedBinary = "D0300"

	// D0301: Malformed IR document
	ErrorMalformedDocument = "D0301"

	// W0800: Value written and never read
	WarningDeadStore = "W0800"

	// W0801: Statement no path from the entry reaches
	WarningUnreachable = "W0801"
)
