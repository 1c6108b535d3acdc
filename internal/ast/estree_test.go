package ast

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, doc string) *Program {
	t.Helper()
	program, err := DecodeESTree(strings.NewReader(doc))
	require.NoError(t, err)
	return program
}

func TestDecodeESTreeRejectsMalformedChildren(t *testing.T) {
	docs := map[string]struct {
		doc     string
		message string
	}{
		"expression is a number": {
			doc:     `{"type":"Program","body":[{"type":"ExpressionStatement","expression":7}]}`,
			message: "expression: node is not an object",
		},
		"consequent is a string": {
			doc: `{"type":"Program","body":[{"type":"IfStatement",
				"test":{"type":"Identifier","name":"c"},"consequent":"x"}]}`,
			message: "consequent: node is not an object",
		},
		"while without body": {
			doc: `{"type":"Program","body":[{"type":"WhileStatement",
				"test":{"type":"Identifier","name":"c"}}]}`,
			message: "missing body",
		},
		"null call argument": {
			doc: `{"type":"Program","body":[{"type":"ExpressionStatement","expression":
				{"type":"CallExpression","callee":{"type":"Identifier","name":"f"},"arguments":[null]}}]}`,
			message: "arguments[0] is null",
		},
		"label is not an identifier": {
			doc: `{"type":"Program","body":[{"type":"LabeledStatement",
				"label":{"type":"Literal","value":1},"body":{"type":"EmptyStatement"}}]}`,
			message: "expected an Identifier",
		},
		"body is not an array": {
			doc:     `{"type":"Program","body":{"type":"EmptyStatement"}}`,
			message: "body is not an array",
		},
		"malformed loc": {
			doc:     `{"type":"Program","body":[{"type":"EmptyStatement","loc":[1,2]}]}`,
			message: "EmptyStatement loc",
		},
	}
	for name, tc := range docs {
		t.Run(name, func(t *testing.T) {
			program, err := DecodeESTree(strings.NewReader(tc.doc))
			require.Error(t, err)
			assert.Nil(t, program)
			assert.Contains(t, err.Error(), tc.message)
		})
	}
}

func TestDecodeESTreeReportsEveryError(t *testing.T) {
	doc := `{"type":"Program","body":[
		{"type":"WhileStatement"},
		{"type":"ThrowStatement"}
	]}`
	_, err := DecodeESTree(strings.NewReader(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WhileStatement")
	assert.Contains(t, err.Error(), "ThrowStatement")
}

func TestDecodeESTreeKeepsOptionalChildren(t *testing.T) {
	program := decode(t, `{"type":"Program","body":[
		{"type":"IfStatement","test":{"type":"Identifier","name":"c"},
			"consequent":{"type":"EmptyStatement"},"alternate":null},
		{"type":"ReturnStatement","argument":null},
		{"type":"ExpressionStatement","expression":{"type":"ArrayExpression",
			"elements":[null,{"type":"Literal","value":1,"raw":"1"}]}}
	]}`)
	require.Len(t, program.Body, 3)

	ifStmt := program.Body[0].(*IfStatement)
	assert.Nil(t, ifStmt.Alternate)
	assert.Nil(t, program.Body[1].(*ReturnStatement).Argument)

	array := program.Body[2].(*ExpressionStatement).Expression.(*ArrayExpression)
	require.Len(t, array.Elements, 2)
	assert.Nil(t, array.Elements[0])
	assert.Equal(t, "1", array.Elements[1].(*Literal).Value)
}

func TestDecodeESTreeUnknownKindsAreUnsupported(t *testing.T) {
	program := decode(t, `{"type":"Program","body":[
		{"type":"ClassDeclaration"},
		{"type":"ExpressionStatement","expression":{"type":"YieldExpression"}}
	]}`)
	require.Len(t, program.Body, 2)
	assert.Equal(t, "ClassDeclaration", program.Body[0].(*UnsupportedStatement).Kind)
	assert.Equal(t, "YieldExpression", program.Body[1].(*ExpressionStatement).Expression.(*UnsupportedExpression).Kind)
}

func TestDecodeESTreeLocations(t *testing.T) {
	// espree: "range" plus "loc"
	program := decode(t, `{"type":"Program","range":[0,12],
		"loc":{"start":{"line":1,"column":0},"end":{"line":2,"column":3}},
		"body":[{"type":"ExpressionStatement","range":[10,12],
			"loc":{"start":{"line":2,"column":1},"end":{"line":2,"column":3}},
			"expression":{"type":"Identifier","name":"ab","range":[10,12],
				"loc":{"start":{"line":2,"column":1},"end":{"line":2,"column":3}}}}]}`)
	assert.Equal(t, Position{Offset: 0, Line: 1, Column: 0}, program.Pos)
	assert.Equal(t, Position{Offset: 12, Line: 2, Column: 3}, program.EndPos)

	id := program.Body[0].(*ExpressionStatement).Expression.(*Identifier)
	loc := LocOf(id)
	assert.Equal(t, Position{Offset: 10, Line: 2, Column: 1}, loc.Start)
	assert.Equal(t, Position{Offset: 12, Line: 2, Column: 3}, loc.End)

	// acorn: "start"/"end" offsets
	program = decode(t, `{"type":"Program","start":0,"end":4,
		"body":[{"type":"EmptyStatement","start":3,"end":4,
			"loc":{"start":{"line":1,"column":3},"end":{"line":1,"column":4}}}]}`)
	empty := program.Body[0].(*EmptyStatement)
	assert.Equal(t, Position{Offset: 3, Line: 1, Column: 3}, empty.Pos)
	assert.Equal(t, Position{Offset: 4, Line: 1, Column: 4}, empty.EndPos)
}

func TestDecodeESTreeRootMustBeProgram(t *testing.T) {
	_, err := DecodeESTree(strings.NewReader(`{"type":"ExpressionStatement"}`))
	assert.Error(t, err)
	_, err = DecodeESTree(strings.NewReader(`[1,2]`))
	assert.Error(t, err)
}
