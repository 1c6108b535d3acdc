package ast

type BlockStatement struct {
	Pos    Position
	EndPos Position
	Body   []Statement
}

type EmptyStatement struct {
	Pos    Position
	EndPos Position
}

type ExpressionStatement struct {
	Pos        Position
	EndPos     Position
	Expression Expression
}

type VariableDeclaration struct {
	Pos          Position
	EndPos       Position
	Kind         VariableKind
	Declarations []*VariableDeclarator
}

type VariableDeclarator struct {
	Pos    Position
	EndPos Position
	// ID is an Identifier for plain bindings; patterns arrive as
	// UnsupportedExpression.
	ID   Expression
	Init Expression
}

type FunctionDeclaration struct {
	Pos      Position
	EndPos   Position
	Function *Function
}

type ReturnStatement struct {
	Pos      Position
	EndPos   Position
	Argument Expression
}

type IfStatement struct {
	Pos        Position
	EndPos     Position
	Test       Expression
	Consequent Statement
	Alternate  Statement
}

type WhileStatement struct {
	Pos    Position
	EndPos Position
	Test   Expression
	Body   Statement
}

type DoWhileStatement struct {
	Pos    Position
	EndPos Position
	Body   Statement
	Test   Expression
}

type ForStatement struct {
	Pos    Position
	EndPos Position
	// Init is a *VariableDeclaration, an Expression or nil.
	Init   Node
	Test   Expression
	Update Expression
	Body   Statement
}

// ForInStatement covers both for-in and for-of loops.
type ForInStatement struct {
	Pos    Position
	EndPos Position
	// Left is a *VariableDeclaration or an assignment target Expression.
	Left  Node
	Right Expression
	Body  Statement
	Of    bool
}

type BreakStatement struct {
	Pos    Position
	EndPos Position
	Label  *Identifier
}

type ContinueStatement struct {
	Pos    Position
	EndPos Position
	Label  *Identifier
}

type LabeledStatement struct {
	Pos    Position
	EndPos Position
	Label  *Identifier
	Body   Statement
}

type SwitchStatement struct {
	Pos          Position
	EndPos       Position
	Discriminant Expression
	Cases        []*SwitchCase
}

type SwitchCase struct {
	Pos    Position
	EndPos Position
	// Test is nil for the default clause.
	Test       Expression
	Consequent []Statement
}

type ThrowStatement struct {
	Pos      Position
	EndPos   Position
	Argument Expression
}

type TryStatement struct {
	Pos       Position
	EndPos    Position
	Block     *BlockStatement
	Handler   *CatchClause
	Finalizer *BlockStatement
}

type CatchClause struct {
	Pos    Position
	EndPos Position
	Param  Expression
	Body   *BlockStatement
}

// UnsupportedStatement stands in for any statement kind lowering does not
// model (classes, imports, with, ...). Kind keeps the original type name.
type UnsupportedStatement struct {
	Pos    Position
	EndPos Position
	Kind   string
}

func (s *BlockStatement) NodePos() Position    { return s.Pos }
func (s *BlockStatement) NodeEndPos() Position { return s.EndPos }
func (*BlockStatement) NodeType() NodeType     { return BLOCK_STATEMENT }

func (s *EmptyStatement) NodePos() Position    { return s.Pos }
func (s *EmptyStatement) NodeEndPos() Position { return s.EndPos }
func (*EmptyStatement) NodeType() NodeType     { return EMPTY_STATEMENT }

func (s *ExpressionStatement) NodePos() Position    { return s.Pos }
func (s *ExpressionStatement) NodeEndPos() Position { return s.EndPos }
func (*ExpressionStatement) NodeType() NodeType     { return EXPRESSION_STATEMENT }

func (s *VariableDeclaration) NodePos() Position    { return s.Pos }
func (s *VariableDeclaration) NodeEndPos() Position { return s.EndPos }
func (*VariableDeclaration) NodeType() NodeType     { return VARIABLE_DECLARATION }

func (d *VariableDeclarator) NodePos() Position    { return d.Pos }
func (d *VariableDeclarator) NodeEndPos() Position { return d.EndPos }
func (*VariableDeclarator) NodeType() NodeType     { return VARIABLE_DECLARATOR }

func (s *FunctionDeclaration) NodePos() Position    { return s.Pos }
func (s *FunctionDeclaration) NodeEndPos() Position { return s.EndPos }
func (*FunctionDeclaration) NodeType() NodeType     { return FUNCTION_DECLARATION }

func (s *ReturnStatement) NodePos() Position    { return s.Pos }
func (s *ReturnStatement) NodeEndPos() Position { return s.EndPos }
func (*ReturnStatement) NodeType() NodeType     { return RETURN_STATEMENT }

func (s *IfStatement) NodePos() Position    { return s.Pos }
func (s *IfStatement) NodeEndPos() Position { return s.EndPos }
func (*IfStatement) NodeType() NodeType     { return IF_STATEMENT }

func (s *WhileStatement) NodePos() Position    { return s.Pos }
func (s *WhileStatement) NodeEndPos() Position { return s.EndPos }
func (*WhileStatement) NodeType() NodeType     { return WHILE_STATEMENT }

func (s *DoWhileStatement) NodePos() Position    { return s.Pos }
func (s *DoWhileStatement) NodeEndPos() Position { return s.EndPos }
func (*DoWhileStatement) NodeType() NodeType     { return DO_WHILE_STATEMENT }

func (s *ForStatement) NodePos() Position    { return s.Pos }
func (s *ForStatement) NodeEndPos() Position { return s.EndPos }
func (*ForStatement) NodeType() NodeType     { return FOR_STATEMENT }

func (s *ForInStatement) NodePos() Position    { return s.Pos }
func (s *ForInStatement) NodeEndPos() Position { return s.EndPos }
func (s *ForInStatement) NodeType() NodeType {
	if s.Of {
		return FOR_OF_STATEMENT
	}
	return FOR_IN_STATEMENT
}

func (s *BreakStatement) NodePos() Position    { return s.Pos }
func (s *BreakStatement) NodeEndPos() Position { return s.EndPos }
func (*BreakStatement) NodeType() NodeType     { return BREAK_STATEMENT }

func (s *ContinueStatement) NodePos() Position    { return s.Pos }
func (s *ContinueStatement) NodeEndPos() Position { return s.EndPos }
func (*ContinueStatement) NodeType() NodeType     { return CONTINUE_STATEMENT }

func (s *LabeledStatement) NodePos() Position    { return s.Pos }
func (s *LabeledStatement) NodeEndPos() Position { return s.EndPos }
func (*LabeledStatement) NodeType() NodeType     { return LABELED_STATEMENT }

func (s *SwitchStatement) NodePos() Position    { return s.Pos }
func (s *SwitchStatement) NodeEndPos() Position { return s.EndPos }
func (*SwitchStatement) NodeType() NodeType     { return SWITCH_STATEMENT }

func (c *SwitchCase) NodePos() Position    { return c.Pos }
func (c *SwitchCase) NodeEndPos() Position { return c.EndPos }
func (*SwitchCase) NodeType() NodeType     { return SWITCH_CASE }

func (s *ThrowStatement) NodePos() Position    { return s.Pos }
func (s *ThrowStatement) NodeEndPos() Position { return s.EndPos }
func (*ThrowStatement) NodeType() NodeType     { return THROW_STATEMENT }

func (s *TryStatement) NodePos() Position    { return s.Pos }
func (s *TryStatement) NodeEndPos() Position { return s.EndPos }
func (*TryStatement) NodeType() NodeType     { return TRY_STATEMENT }

func (c *CatchClause) NodePos() Position    { return c.Pos }
func (c *CatchClause) NodeEndPos() Position { return c.EndPos }
func (*CatchClause) NodeType() NodeType     { return CATCH_CLAUSE }

func (s *UnsupportedStatement) NodePos() Position    { return s.Pos }
func (s *UnsupportedStatement) NodeEndPos() Position { return s.EndPos }
func (*UnsupportedStatement) NodeType() NodeType     { return UNSUPPORTED_STATEMENT }

func (*BlockStatement) isStatement()       {}
func (*EmptyStatement) isStatement()       {}
func (*ExpressionStatement) isStatement()  {}
func (*VariableDeclaration) isStatement()  {}
func (*FunctionDeclaration) isStatement()  {}
func (*ReturnStatement) isStatement()      {}
func (*IfStatement) isStatement()          {}
func (*WhileStatement) isStatement()       {}
func (*DoWhileStatement) isStatement()     {}
func (*ForStatement) isStatement()         {}
func (*ForInStatement) isStatement()       {}
func (*BreakStatement) isStatement()       {}
func (*ContinueStatement) isStatement()    {}
func (*LabeledStatement) isStatement()     {}
func (*SwitchStatement) isStatement()      {}
func (*ThrowStatement) isStatement()       {}
func (*TryStatement) isStatement()         {}
func (*UnsupportedStatement) isStatement() {}
