package lower

import (
	"strings"
	"testing"

	"dbd/internal/ast"
	"dbd/internal/errors"
	"dbd/internal/ir"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AST construction helpers. Positions are left zero; lowering never depends
// on them.

func program(body ...ast.Statement) *ast.Program {
	return &ast.Program{Body: body}
}

func ident(name string) *ast.Identifier {
	return &ast.Identifier{Name: name}
}

func num(text string) *ast.Literal {
	return &ast.Literal{Kind: ast.NUMBER_LITERAL, Value: text, Raw: text}
}

func str(text string) *ast.Literal {
	return &ast.Literal{Kind: ast.STRING_LITERAL, Value: text, Raw: "'" + text + "'"}
}

func block(body ...ast.Statement) *ast.BlockStatement {
	return &ast.BlockStatement{Body: body}
}

func declare(kind ast.VariableKind, name string, init ast.Expression) *ast.VariableDeclaration {
	return &ast.VariableDeclaration{
		Kind:         kind,
		Declarations: []*ast.VariableDeclarator{{ID: ident(name), Init: init}},
	}
}

func exprStmt(e ast.Expression) *ast.ExpressionStatement {
	return &ast.ExpressionStatement{Expression: e}
}

func assign(name string, value ast.Expression) *ast.ExpressionStatement {
	return exprStmt(&ast.AssignmentExpression{Operator: "=", Left: ident(name), Right: value})
}

func call(callee ast.Expression, args ...ast.Expression) *ast.CallExpression {
	return &ast.CallExpression{Callee: callee, Arguments: args}
}

func fnNode(name string, params []string, body ...ast.Statement) *ast.Function {
	f := &ast.Function{Body: block(body...)}
	if name != "" {
		f.ID = ident(name)
	}
	for _, p := range params {
		f.Params = append(f.Params, ident(p))
	}
	return f
}

func funcDecl(name string, params []string, body ...ast.Statement) *ast.FunctionDeclaration {
	return &ast.FunctionDeclaration{Function: fnNode(name, params, body...)}
}

func ret(value ast.Expression) *ast.ReturnStatement {
	return &ast.ReturnStatement{Argument: value}
}

func nested(depth int, innermost ...ast.Statement) []ast.Statement {
	body := innermost
	for i := 0; i < depth; i++ {
		body = []ast.Statement{block(body...)}
	}
	return body
}

func transpile(t *testing.T, p *ast.Program) *Result {
	t.Helper()
	result := Transpile(p, Options{FileName: "test.js"})
	require.Empty(t, result.Errors)
	for _, u := range result.Units {
		require.NoError(t, ir.Validate(u.Info), "unit %s", u.Info.ID)
	}
	return result
}

func calls(fn *ir.FunctionInfo, name string) []*ir.Call {
	var out []*ir.Call
	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			if c, ok := inst.(*ir.Call); ok && c.Definition.Name == name {
				out = append(out, c)
			}
		}
	}
	return out
}

func TestNestedBlocksAddTwoBlocksEach(t *testing.T) {
	for n := 0; n <= 3; n++ {
		result := transpile(t, program(nested(n, declare(ast.LET, "x", num("1")))...))
		main := result.Unit("main")
		require.NotNil(t, main)
		assert.Len(t, main.Info.Blocks, 2*n+1, "depth %d", n)
	}
}

func TestEveryBlockHasAtMostOneTrailingTerminator(t *testing.T) {
	programs := map[string]*ast.Program{
		"return in block": program(funcDecl("f", nil,
			block(ret(num("1"))),
			exprStmt(ident("unreachable")),
		)),
		"while with break": program(&ast.WhileStatement{
			Test: ident("c"),
			Body: block(&ast.BreakStatement{}, exprStmt(ident("after"))),
		}),
		"if return both": program(funcDecl("g", []string{"a"},
			&ast.IfStatement{Test: ident("a"), Consequent: ret(num("1")), Alternate: ret(num("2"))},
		)),
		"throw in try": program(&ast.TryStatement{
			Block:   block(&ast.ThrowStatement{Argument: num("1")}),
			Handler: &ast.CatchClause{Param: ident("e"), Body: block(exprStmt(ident("e")))},
		}),
	}
	for name, p := range programs {
		t.Run(name, func(t *testing.T) {
			result := transpile(t, p)
			for _, u := range result.Units {
				for _, b := range u.Info.Blocks {
					for i, inst := range b.Instructions {
						if ir.IsTerminator(inst) {
							assert.Equal(t, len(b.Instructions)-1, i, "%s %s", u.Info.ID, b.ID)
						}
					}
				}
			}
		})
	}
}

func TestInnerScopeLinksToOuterScope(t *testing.T) {
	// { let x = 1; { let y = x; } }
	p := program(block(
		declare(ast.LET, "x", num("1")),
		block(declare(ast.LET, "y", ident("x"))),
	))
	main := transpile(t, p).Unit("main").Info

	links := calls(main, "#set-field# @parent")
	require.Len(t, links, 2)
	outer, inner := links[0], links[1]
	assert.Equal(t, outer.Arguments[0].ID(), inner.Arguments[1].ID())

	require.Len(t, main.Scopes, 3)
	global := main.Scopes[0]
	assert.Equal(t, ir.NoValue, global.Parent)
	assert.Equal(t, global.ID, main.Scopes[1].Parent)
	assert.Equal(t, main.Scopes[1].ID, main.Scopes[2].Parent)
	assert.Equal(t, main.Scopes[2].ID, inner.Arguments[0].ID())
}

func TestReadResolvesThroughParentLinks(t *testing.T) {
	p := program(block(
		declare(ast.LET, "x", num("1")),
		block(declare(ast.LET, "y", ident("x"))),
	))
	main := transpile(t, p).Unit("main").Info

	reads := calls(main, "#get-field# x")
	require.Len(t, reads, 1)
	hop, ok := reads[0].Arguments[0].(ir.Reference)
	require.True(t, ok)

	var parentRead *ir.Call
	for _, c := range calls(main, "#get-field# @parent") {
		if c.Result == hop.Identifier {
			parentRead = c
		}
	}
	require.NotNil(t, parentRead, "x is read one link up")
	assert.Equal(t, main.Scopes[2].ID, parentRead.Arguments[0].ID())
}

func TestLoweringIsDeterministic(t *testing.T) {
	build := func() *ast.Program {
		return program(
			declare(ast.LET, "total", num("0")),
			funcDecl("add", []string{"a", "b"}, ret(&ast.BinaryExpression{Operator: "+", Left: ident("a"), Right: ident("b")})),
			&ast.ForStatement{
				Init:   declare(ast.LET, "i", num("0")),
				Test:   &ast.BinaryExpression{Operator: "<", Left: ident("i"), Right: num("3")},
				Update: &ast.UpdateExpression{Operator: "++", Argument: ident("i")},
				Body:   block(assign("total", call(ident("add"), ident("total"), ident("i")))),
			},
		)
	}
	first := transpile(t, build())
	second := transpile(t, build())
	assert.Equal(t, ir.Print(first.Functions()...), ir.Print(second.Functions()...))
}

func TestFunctionDeclarationBecomesUnit(t *testing.T) {
	p := program(
		funcDecl("greet", []string{"name"}, ret(ident("name"))),
		exprStmt(call(ident("greet"), str("world"))),
	)
	result := transpile(t, p)
	require.Len(t, result.Units, 2)

	fn := result.Unit("0")
	require.NotNil(t, fn)
	assert.Equal(t, "greet", fn.Info.Definition.Name)
	assert.Equal(t, "test.js.greet", fn.Info.Definition.Signature)
	require.Len(t, fn.Info.Parameters, 2)
	assert.Equal(t, ir.ParentField, fn.Info.Parameters[0].Name)
	assert.Equal(t, "name", fn.Info.Parameters[1].Name)
	require.Len(t, fn.Info.Scopes, 1)
	assert.Equal(t, fn.Info.Parameters[0].Identifier, fn.Info.Scopes[0].Parent)

	direct := calls(result.Unit("main").Info, "greet")
	require.Len(t, direct, 1)
	args := direct[0].Arguments
	require.Len(t, args, 2)
	assert.Equal(t, result.Unit("main").Info.Scopes[0].ID, args[0].ID(), "caller scope is passed as @parent")
	_, isConstant := args[1].(ir.Constant)
	assert.True(t, isConstant)
}

func TestMissingArgumentsArePaddedWithNull(t *testing.T) {
	p := program(
		funcDecl("pair", []string{"a", "b"}, ret(ident("a"))),
		exprStmt(call(ident("pair"), num("1"))),
	)
	main := transpile(t, p).Unit("main").Info
	direct := calls(main, "pair")
	require.Len(t, direct, 1)
	require.Len(t, direct[0].Arguments, 3)
	last, ok := direct[0].Arguments[2].(ir.Constant)
	require.True(t, ok)
	assert.Equal(t, ir.NullConstant, last.Kind)
}

func TestNestedFunctionsAreNamedAfterTheirObject(t *testing.T) {
	p := program(funcDecl("outer", nil, funcDecl("inner", nil)))
	result := transpile(t, p)
	require.Len(t, result.Units, 3)

	inner := result.Unit("1")
	require.NotNil(t, inner)
	assert.True(t, strings.HasPrefix(inner.Info.Definition.Name, "outer__"), inner.Info.Definition.Name)
}

func TestImplicitReturn(t *testing.T) {
	p := program(exprStmt(num("1")))

	main := transpile(t, p).Unit("main").Info
	last := main.Blocks[len(main.Blocks)-1]
	r, ok := last.Terminator().(*ir.Return)
	require.True(t, ok)
	assert.Equal(t, ir.NullConstant, r.Value.(ir.Constant).Kind)

	open := Transpile(p, Options{FileName: "test.js", OmitImplicitReturn: true}).Unit("main").Info
	assert.False(t, open.Blocks[len(open.Blocks)-1].IsTerminated())
}

func TestIfElseShape(t *testing.T) {
	p := program(&ast.IfStatement{
		Test:       ident("c"),
		Consequent: assign("x", num("1")),
		Alternate:  assign("x", num("2")),
	})
	main := transpile(t, p).Unit("main").Info
	require.Len(t, main.Blocks, 4)

	cbr, ok := main.Blocks[0].Terminator().(*ir.ConditionalBranch)
	require.True(t, ok)
	assert.Equal(t, ir.BlockID(1), cbr.Consequent)
	assert.Equal(t, ir.BlockID(2), cbr.Alternate)
	assert.Equal(t, []ir.BlockID{3}, main.Blocks[1].Successors())
	assert.Equal(t, []ir.BlockID{3}, main.Blocks[2].Successors())
}

func TestWhileLoopBranchesBackToHeader(t *testing.T) {
	p := program(&ast.WhileStatement{Test: ident("c"), Body: assign("x", num("1"))})
	main := transpile(t, p).Unit("main").Info

	// bb0 -> header bb1 -> body bb2 | exit bb3
	require.Len(t, main.Blocks, 4)
	assert.Equal(t, []ir.BlockID{1}, main.Blocks[0].Successors())
	assert.Equal(t, []ir.BlockID{2, 3}, main.Blocks[1].Successors())
	assert.Equal(t, []ir.BlockID{1}, main.Blocks[2].Successors())
}

func TestBreakWithoutLoopIsSkipped(t *testing.T) {
	result := Transpile(program(&ast.BreakStatement{}), Options{FileName: "test.js"})
	assert.Empty(t, result.Errors)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, errors.ErrorNoJumpTarget, result.Skipped[0].Code)
}

func TestUnsupportedConstructsAreSkipped(t *testing.T) {
	p := program(
		&ast.UnsupportedStatement{Kind: "WithStatement"},
		exprStmt(&ast.UnsupportedExpression{Kind: "YieldExpression"}),
		&ast.VariableDeclaration{Kind: ast.LET, Declarations: []*ast.VariableDeclarator{
			{ID: &ast.UnsupportedExpression{Kind: "ObjectPattern"}, Init: num("1")},
		}},
	)
	result := transpile(t, p)
	require.Len(t, result.Skipped, 3)
	assert.Equal(t, errors.ErrorUnsupportedStatement, result.Skipped[0].Code)
	assert.Equal(t, "WithStatement", result.Skipped[0].Kind)
	assert.Equal(t, errors.ErrorUnsupportedExpression, result.Skipped[1].Code)
	assert.Equal(t, errors.ErrorUnsupportedPattern, result.Skipped[2].Code)
	assert.Len(t, result.Units, 1)
}

func TestLogicalExpressionJoinsBothPaths(t *testing.T) {
	p := program(declare(ast.LET, "v", &ast.LogicalExpression{Operator: "&&", Left: ident("a"), Right: ident("b")}))
	main := transpile(t, p).Unit("main").Info

	require.Len(t, main.Blocks, 3)
	cbr, ok := main.Blocks[0].Terminator().(*ir.ConditionalBranch)
	require.True(t, ok)
	assert.Equal(t, ir.BlockID(1), cbr.Consequent)
	assert.Equal(t, ir.BlockID(2), cbr.Alternate)
	assert.Len(t, calls(main, "#binary# &&"), 1)
}

func TestOccurrencesAreRecordedPerBlock(t *testing.T) {
	p := program(
		declare(ast.LET, "x", num("1")),
		&ast.WhileStatement{Test: ident("x"), Body: assign("x", num("2"))},
	)
	main := transpile(t, p).Unit("main")

	header := main.References[1]
	require.Len(t, header, 1)
	assert.Equal(t, "x", header[0].Symbol.Name)
	assert.Equal(t, ir.Read, header[0].Access)

	body := main.References[2]
	require.Len(t, body, 1)
	assert.Equal(t, ir.Write, body[0].Access)
	assert.Same(t, header[0].Symbol, body[0].Symbol)
}

func TestSwitchFallsThrough(t *testing.T) {
	p := program(&ast.SwitchStatement{
		Discriminant: ident("k"),
		Cases: []*ast.SwitchCase{
			{Test: num("1"), Consequent: []ast.Statement{assign("x", num("1"))}},
			{Test: num("2"), Consequent: []ast.Statement{assign("x", num("2")), &ast.BreakStatement{}}},
			{Consequent: []ast.Statement{assign("x", num("3"))}},
		},
	})
	main := transpile(t, p).Unit("main").Info

	// bb0 -> region entry bb1; case bodies bb2..bb4, exit bb5
	first := main.Blocks[2]
	assert.Equal(t, []ir.BlockID{3}, first.Successors(), "case 1 falls through to case 2")
	second := main.Blocks[3]
	assert.Equal(t, []ir.BlockID{5}, second.Successors(), "break leaves the switch")
	assert.Len(t, calls(main, "#binary# ==="), 2)
}

func TestNestedRecursionCallsItselfDirectly(t *testing.T) {
	// function outer() { function fact(n) { return fact(n); } return fact(3); }
	p := program(funcDecl("outer", nil,
		funcDecl("fact", []string{"n"}, ret(call(ident("fact"), ident("n")))),
		ret(call(ident("fact"), num("3"))),
	))
	result := transpile(t, p)
	require.Len(t, result.Units, 3)
	main, outer, fact := result.Unit("main").Info, result.Unit("0").Info, result.Unit("1").Info
	name := fact.Definition.Name

	self := calls(fact, name)
	require.Len(t, self, 1, "recursive call targets the unit")
	assert.Len(t, self[0].Arguments, 2)
	assert.Empty(t, calls(fact, "#call#"))
	assert.Empty(t, calls(fact, "#get-field# fact"))

	assert.Len(t, calls(outer, name), 1)
	assert.Len(t, calls(outer, "#set-field# fact"), 1)
	assert.Empty(t, calls(main, "#set-field# fact"), "fact is not a global")
}

func TestSiblingDeclaredLaterResolvesInEnclosingScope(t *testing.T) {
	// function outer() { function f() { return g(); } function g() { return 1; } return f(); }
	p := program(funcDecl("outer", nil,
		funcDecl("f", nil, ret(call(ident("g")))),
		funcDecl("g", nil, ret(num("1"))),
		ret(call(ident("f"))),
	))
	result := transpile(t, p)
	main, f := result.Unit("main").Info, result.Unit("1").Info

	reads := calls(f, "#get-field# g")
	require.Len(t, reads, 1)
	parents := calls(f, "#get-field# @parent")
	require.Len(t, parents, 1, "g is one link up, in outer's scope")
	assert.Equal(t, f.Scopes[0].ID, parents[0].Arguments[0].ID())
	hop, ok := reads[0].Arguments[0].(ir.Reference)
	require.True(t, ok)
	assert.Equal(t, parents[0].Result, hop.Identifier)

	assert.Empty(t, calls(main, "#set-field# g"))
	for _, occ := range result.Unit("main").References {
		for _, o := range occ {
			assert.NotEqual(t, "g", o.Symbol.Name)
		}
	}
}

func TestSurplusArgumentsAreEvaluatedButNotPassed(t *testing.T) {
	p := program(
		funcDecl("one", []string{"a"}, ret(ident("a"))),
		exprStmt(call(ident("one"), num("1"), call(ident("side")))),
	)
	main := transpile(t, p).Unit("main").Info

	direct := calls(main, "one")
	require.Len(t, direct, 1)
	assert.Len(t, direct[0].Arguments, 2)
	assert.Len(t, calls(main, "#call#"), 1, "side() still runs")
}

func TestNullishCoalescingTestsForNull(t *testing.T) {
	p := program(declare(ast.LET, "v", &ast.LogicalExpression{Operator: "??", Left: ident("a"), Right: num("0")}))
	main := transpile(t, p).Unit("main").Info

	require.Len(t, main.Blocks, 3)
	eq := calls(main, "#binary# ==")
	require.Len(t, eq, 1)
	null, ok := eq[0].Arguments[1].(ir.Constant)
	require.True(t, ok)
	assert.Equal(t, ir.NullConstant, null.Kind)

	cbr, ok := main.Blocks[0].Terminator().(*ir.ConditionalBranch)
	require.True(t, ok)
	assert.Equal(t, eq[0].Result, cbr.Condition.ID())
	assert.Equal(t, ir.BlockID(1), cbr.Consequent, "null goes to the right operand")
	assert.Equal(t, ir.BlockID(2), cbr.Alternate)
	assert.Len(t, calls(main, "#binary# ??"), 1)
}
