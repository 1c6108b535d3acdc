package ast

// NodeType is the ESTree kind name of a node.
type NodeType string

const (
	PROGRAM NodeType = "Program"

	// Statements
	BLOCK_STATEMENT       NodeType = "BlockStatement"
	EMPTY_STATEMENT       NodeType = "EmptyStatement"
	EXPRESSION_STATEMENT  NodeType = "ExpressionStatement"
	VARIABLE_DECLARATION  NodeType = "VariableDeclaration"
	VARIABLE_DECLARATOR   NodeType = "VariableDeclarator"
	FUNCTION_DECLARATION  NodeType = "FunctionDeclaration"
	RETURN_STATEMENT      NodeType = "ReturnStatement"
	IF_STATEMENT          NodeType = "IfStatement"
	WHILE_STATEMENT       NodeType = "WhileStatement"
	DO_WHILE_STATEMENT    NodeType = "DoWhileStatement"
	FOR_STATEMENT         NodeType = "ForStatement"
	FOR_IN_STATEMENT      NodeType = "ForInStatement"
	FOR_OF_STATEMENT      NodeType = "ForOfStatement"
	BREAK_STATEMENT       NodeType = "BreakStatement"
	CONTINUE_STATEMENT    NodeType = "ContinueStatement"
	LABELED_STATEMENT     NodeType = "LabeledStatement"
	SWITCH_STATEMENT      NodeType = "SwitchStatement"
	SWITCH_CASE           NodeType = "SwitchCase"
	THROW_STATEMENT       NodeType = "ThrowStatement"
	TRY_STATEMENT         NodeType = "TryStatement"
	CATCH_CLAUSE          NodeType = "CatchClause"
	UNSUPPORTED_STATEMENT NodeType = "UnsupportedStatement"

	// Expressions
	IDENTIFIER             NodeType = "Identifier"
	LITERAL                NodeType = "Literal"
	TEMPLATE_LITERAL       NodeType = "TemplateLiteral"
	ARRAY_EXPRESSION       NodeType = "ArrayExpression"
	OBJECT_EXPRESSION      NodeType = "ObjectExpression"
	PROPERTY               NodeType = "Property"
	FUNCTION_EXPRESSION    NodeType = "FunctionExpression"
	ARROW_FUNCTION         NodeType = "ArrowFunctionExpression"
	UNARY_EXPRESSION       NodeType = "UnaryExpression"
	UPDATE_EXPRESSION      NodeType = "UpdateExpression"
	BINARY_EXPRESSION      NodeType = "BinaryExpression"
	LOGICAL_EXPRESSION     NodeType = "LogicalExpression"
	ASSIGNMENT_EXPRESSION  NodeType = "AssignmentExpression"
	CONDITIONAL_EXPRESSION NodeType = "ConditionalExpression"
	CALL_EXPRESSION        NodeType = "CallExpression"
	NEW_EXPRESSION         NodeType = "NewExpression"
	MEMBER_EXPRESSION      NodeType = "MemberExpression"
	SEQUENCE_EXPRESSION    NodeType = "SequenceExpression"
	THIS_EXPRESSION        NodeType = "ThisExpression"
	UNSUPPORTED_EXPRESSION NodeType = "UnsupportedExpression"
)

// VariableKind is the declaration keyword of a VariableDeclaration.
type VariableKind string

const (
	VAR   VariableKind = "var"
	LET   VariableKind = "let"
	CONST VariableKind = "const"
)

// LiteralKind classifies the value of a Literal.
type LiteralKind string

const (
	NUMBER_LITERAL  LiteralKind = "number"
	STRING_LITERAL  LiteralKind = "string"
	BOOLEAN_LITERAL LiteralKind = "boolean"
	NULL_LITERAL    LiteralKind = "null"
	REGEXP_LITERAL  LiteralKind = "regexp"
	BIGINT_LITERAL  LiteralKind = "bigint"
)
