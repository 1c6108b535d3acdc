package ast

type Identifier struct {
	Pos    Position
	EndPos Position
	Name   string
}

// Literal keeps the raw source text; Value is the normalized text used for
// constant identity (string contents without quotes, "true", "null", ...).
type Literal struct {
	Pos    Position
	EndPos Position
	Kind   LiteralKind
	Value  string
	Raw    string
}

type TemplateLiteral struct {
	Pos         Position
	EndPos      Position
	Quasis      []string
	Expressions []Expression
}

type ArrayExpression struct {
	Pos    Position
	EndPos Position
	// Elements may contain nil for holes.
	Elements []Expression
}

type ObjectExpression struct {
	Pos        Position
	EndPos     Position
	Properties []*Property
}

type Property struct {
	Pos       Position
	EndPos    Position
	Key       Expression
	Value     Expression
	Computed  bool
	Shorthand bool
}

// KeyName returns the static property name, or "" when the key is computed.
func (p *Property) KeyName() string {
	if p.Computed {
		return ""
	}
	switch key := p.Key.(type) {
	case *Identifier:
		return key.Name
	case *Literal:
		return key.Value
	}
	return ""
}

type FunctionExpression struct {
	Pos      Position
	EndPos   Position
	Function *Function
}

type UnaryExpression struct {
	Pos      Position
	EndPos   Position
	Operator string
	Argument Expression
}

type UpdateExpression struct {
	Pos      Position
	EndPos   Position
	Operator string
	Prefix   bool
	Argument Expression
}

type BinaryExpression struct {
	Pos      Position
	EndPos   Position
	Operator string
	Left     Expression
	Right    Expression
}

type LogicalExpression struct {
	Pos      Position
	EndPos   Position
	Operator string
	Left     Expression
	Right    Expression
}

type AssignmentExpression struct {
	Pos      Position
	EndPos   Position
	Operator string
	Left     Expression
	Right    Expression
}

type ConditionalExpression struct {
	Pos        Position
	EndPos     Position
	Test       Expression
	Consequent Expression
	Alternate  Expression
}

type CallExpression struct {
	Pos       Position
	EndPos    Position
	Callee    Expression
	Arguments []Expression
}

type NewExpression struct {
	Pos       Position
	EndPos    Position
	Callee    Expression
	Arguments []Expression
}

type MemberExpression struct {
	Pos      Position
	EndPos   Position
	Object   Expression
	Property Expression
	Computed bool
}

// PropertyName returns the static member name, or "" for computed access.
func (m *MemberExpression) PropertyName() string {
	if m.Computed {
		return ""
	}
	if id, ok := m.Property.(*Identifier); ok {
		return id.Name
	}
	return ""
}

type SequenceExpression struct {
	Pos         Position
	EndPos      Position
	Expressions []Expression
}

type ThisExpression struct {
	Pos    Position
	EndPos Position
}

// UnsupportedExpression stands in for destructuring patterns, spread,
// yield, await, class expressions and anything else lowering skips.
type UnsupportedExpression struct {
	Pos    Position
	EndPos Position
	Kind   string
}

func (e *Identifier) NodePos() Position    { return e.Pos }
func (e *Identifier) NodeEndPos() Position { return e.EndPos }
func (*Identifier) NodeType() NodeType     { return IDENTIFIER }

func (e *Literal) NodePos() Position    { return e.Pos }
func (e *Literal) NodeEndPos() Position { return e.EndPos }
func (*Literal) NodeType() NodeType     { return LITERAL }

func (e *TemplateLiteral) NodePos() Position    { return e.Pos }
func (e *TemplateLiteral) NodeEndPos() Position { return e.EndPos }
func (*TemplateLiteral) NodeType() NodeType     { return TEMPLATE_LITERAL }

func (e *ArrayExpression) NodePos() Position    { return e.Pos }
func (e *ArrayExpression) NodeEndPos() Position { return e.EndPos }
func (*ArrayExpression) NodeType() NodeType     { return ARRAY_EXPRESSION }

func (e *ObjectExpression) NodePos() Position    { return e.Pos }
func (e *ObjectExpression) NodeEndPos() Position { return e.EndPos }
func (*ObjectExpression) NodeType() NodeType     { return OBJECT_EXPRESSION }

func (p *Property) NodePos() Position    { return p.Pos }
func (p *Property) NodeEndPos() Position { return p.EndPos }
func (*Property) NodeType() NodeType     { return PROPERTY }

func (e *FunctionExpression) NodePos() Position    { return e.Pos }
func (e *FunctionExpression) NodeEndPos() Position { return e.EndPos }
func (e *FunctionExpression) NodeType() NodeType   { return e.Function.NodeType() }

func (e *UnaryExpression) NodePos() Position    { return e.Pos }
func (e *UnaryExpression) NodeEndPos() Position { return e.EndPos }
func (*UnaryExpression) NodeType() NodeType     { return UNARY_EXPRESSION }

func (e *UpdateExpression) NodePos() Position    { return e.Pos }
func (e *UpdateExpression) NodeEndPos() Position { return e.EndPos }
func (*UpdateExpression) NodeType() NodeType     { return UPDATE_EXPRESSION }

func (e *BinaryExpression) NodePos() Position    { return e.Pos }
func (e *BinaryExpression) NodeEndPos() Position { return e.EndPos }
func (*BinaryExpression) NodeType() NodeType     { return BINARY_EXPRESSION }

func (e *LogicalExpression) NodePos() Position    { return e.Pos }
func (e *LogicalExpression) NodeEndPos() Position { return e.EndPos }
func (*LogicalExpression) NodeType() NodeType     { return LOGICAL_EXPRESSION }

func (e *AssignmentExpression) NodePos() Position    { return e.Pos }
func (e *AssignmentExpression) NodeEndPos() Position { return e.EndPos }
func (*AssignmentExpression) NodeType() NodeType     { return ASSIGNMENT_EXPRESSION }

func (e *ConditionalExpression) NodePos() Position    { return e.Pos }
func (e *ConditionalExpression) NodeEndPos() Position { return e.EndPos }
func (*ConditionalExpression) NodeType() NodeType     { return CONDITIONAL_EXPRESSION }

func (e *CallExpression) NodePos() Position    { return e.Pos }
func (e *CallExpression) NodeEndPos() Position { return e.EndPos }
func (*CallExpression) NodeType() NodeType     { return CALL_EXPRESSION }

func (e *NewExpression) NodePos() Position    { return e.Pos }
func (e *NewExpression) NodeEndPos() Position { return e.EndPos }
func (*NewExpression) NodeType() NodeType     { return NEW_EXPRESSION }

func (e *MemberExpression) NodePos() Position    { return e.Pos }
func (e *MemberExpression) NodeEndPos() Position { return e.EndPos }
func (*MemberExpression) NodeType() NodeType     { return MEMBER_EXPRESSION }

func (e *SequenceExpression) NodePos() Position    { return e.Pos }
func (e *SequenceExpression) NodeEndPos() Position { return e.EndPos }
func (*SequenceExpression) NodeType() NodeType     { return SEQUENCE_EXPRESSION }

func (e *ThisExpression) NodePos() Position    { return e.Pos }
func (e *ThisExpression) NodeEndPos() Position { return e.EndPos }
func (*ThisExpression) NodeType() NodeType     { return THIS_EXPRESSION }

func (e *UnsupportedExpression) NodePos() Position    { return e.Pos }
func (e *UnsupportedExpression) NodeEndPos() Position { return e.EndPos }
func (*UnsupportedExpression) NodeType() NodeType     { return UNSUPPORTED_EXPRESSION }

func (*Identifier) isExpression()            {}
func (*Literal) isExpression()               {}
func (*TemplateLiteral) isExpression()       {}
func (*ArrayExpression) isExpression()       {}
func (*ObjectExpression) isExpression()      {}
func (*FunctionExpression) isExpression()    {}
func (*UnaryExpression) isExpression()       {}
func (*UpdateExpression) isExpression()      {}
func (*BinaryExpression) isExpression()      {}
func (*LogicalExpression) isExpression()     {}
func (*AssignmentExpression) isExpression()  {}
func (*ConditionalExpression) isExpression() {}
func (*CallExpression) isExpression()        {}
func (*NewExpression) isExpression()         {}
func (*MemberExpression) isExpression()      {}
func (*SequenceExpression) isExpression()    {}
func (*ThisExpression) isExpression()        {}
func (*UnsupportedExpression) isExpression() {}
