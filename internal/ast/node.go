package ast

import "fmt"

// Position is a point in the source text. Line is 1-based, Column is 0-based
// (ESTree convention) and Offset is a byte offset.
type Position struct {
	Offset int
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Location is the span covered by a node.
type Location struct {
	Start Position
	End   Position
}

// Contains reports whether pos lies within the location, end inclusive.
func (l Location) Contains(pos Position) bool {
	if pos.Line < l.Start.Line || pos.Line > l.End.Line {
		return false
	}
	if pos.Line == l.Start.Line && pos.Column < l.Start.Column {
		return false
	}
	if pos.Line == l.End.Line && pos.Column > l.End.Column {
		return false
	}
	return true
}

type Node interface {
	NodePos() Position
	NodeEndPos() Position
	NodeType() NodeType
}

// LocOf returns the location spanned by n.
func LocOf(n Node) Location {
	return Location{Start: n.NodePos(), End: n.NodeEndPos()}
}

// Statement is the closed set of statement nodes. Lowering switches over it
// exhaustively; anything the front ends cannot map becomes an
// UnsupportedStatement.
type Statement interface {
	Node
	isStatement()
}

// Expression is the closed set of expression nodes.
type Expression interface {
	Node
	isExpression()
}

// Program is the root of a parsed source file.
type Program struct {
	Pos    Position
	EndPos Position
	Body   []Statement
}

func (p *Program) NodePos() Position    { return p.Pos }
func (p *Program) NodeEndPos() Position { return p.EndPos }
func (*Program) NodeType() NodeType     { return PROGRAM }

// Function is shared by declarations, function expressions and arrows.
type Function struct {
	Pos    Position
	EndPos Position
	ID     *Identifier
	Params []Expression
	// Body is nil for arrows with an expression body, which use ExprBody.
	Body      *BlockStatement
	ExprBody  Expression
	Arrow     bool
	Async     bool
	Generator bool
}

func (f *Function) NodePos() Position    { return f.Pos }
func (f *Function) NodeEndPos() Position { return f.EndPos }
func (f *Function) NodeType() NodeType {
	if f.Arrow {
		return ARROW_FUNCTION
	}
	return FUNCTION_EXPRESSION
}

// Name returns the declared name, or "" for anonymous functions.
func (f *Function) Name() string {
	if f.ID == nil {
		return ""
	}
	return f.ID.Name
}
