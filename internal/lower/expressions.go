package lower

import (
	"strconv"
	"strings"

	"dbd/internal/ast"
	"dbd/internal/errors"
	"dbd/internal/ir"
)

// expression lowers expr and returns the value holding its result. Skipped
// expressions evaluate to undefined.
func (l *lowerer) expression(expr ast.Expression) ir.Value {
	loc := ast.LocOf(expr)
	switch e := expr.(type) {
	case *ast.Identifier:
		return l.load(e)
	case *ast.Literal:
		return l.literal(e)
	case *ast.TemplateLiteral:
		return l.template(e)
	case *ast.ArrayExpression:
		return l.array(e)
	case *ast.ObjectExpression:
		return l.object(e)
	case *ast.FunctionExpression:
		object, _ := l.functionObject(e.Function, loc, nil)
		return object
	case *ast.UnaryExpression:
		argument := l.expression(e.Argument)
		def, ok := l.operator(ir.UnaryOp, e.Operator, e)
		if !ok {
			return l.undefined()
		}
		return l.call(nil, def, []ir.Value{argument}, loc)
	case *ast.UpdateExpression:
		return l.update(e)
	case *ast.BinaryExpression:
		left := l.expression(e.Left)
		right := l.expression(e.Right)
		def, ok := l.operator(ir.BinaryOp, e.Operator, e)
		if !ok {
			return l.undefined()
		}
		return l.call(nil, def, []ir.Value{left, right}, loc)
	case *ast.LogicalExpression:
		return l.logical(e)
	case *ast.AssignmentExpression:
		return l.assignment(e)
	case *ast.ConditionalExpression:
		return l.conditional(e)
	case *ast.CallExpression:
		return l.callExpression(e)
	case *ast.NewExpression:
		callee := l.expression(e.Callee)
		args := append([]ir.Value{callee}, l.arguments(e.Arguments)...)
		return l.call(nil, ir.Builtin(ir.Construct, ""), args, loc)
	case *ast.MemberExpression:
		object := l.expression(e.Object)
		if name := e.PropertyName(); name != "" {
			return l.getField(object, name, loc)
		}
		key := l.expression(e.Property)
		return l.call(nil, ir.Builtin(ir.GetIndex, ""), []ir.Value{object, key}, loc)
	case *ast.SequenceExpression:
		var last ir.Value = l.undefined()
		for _, child := range e.Expressions {
			last = l.expression(child)
		}
		return last
	case *ast.ThisExpression:
		return l.call(nil, ir.Builtin(ir.This, ""), nil, loc)
	case *ast.UnsupportedExpression:
		l.skip(errors.ErrorUnsupportedExpression, e, e.Kind)
		return l.undefined()
	}
	l.skip(errors.ErrorUnsupportedExpression, expr, string(expr.NodeType()))
	return l.undefined()
}

// operator returns the catalog entry for an operator, skipping the
// expression when the operator is unknown.
func (l *lowerer) operator(kind ir.BuiltinKind, op string, n ast.Node) (*ir.FunctionDefinition, bool) {
	name := "#binary# " + op
	if kind == ir.UnaryOp {
		name = "#unary# " + op
	}
	def, err := ir.LookupBuiltin(name)
	if err != nil {
		l.skip(errors.ErrorUnsupportedExpression, n, "operator "+op)
		return nil, false
	}
	return def, true
}

func (l *lowerer) literal(e *ast.Literal) ir.Constant {
	switch e.Kind {
	case ast.STRING_LITERAL:
		return l.scopes.Constant(ir.StringConstant, e.Value)
	case ast.BOOLEAN_LITERAL:
		return l.scopes.Constant(ir.BooleanConstant, e.Value)
	case ast.NULL_LITERAL:
		return l.null()
	case ast.REGEXP_LITERAL:
		return l.scopes.Constant(ir.RegExpConstant, e.Value)
	case ast.BIGINT_LITERAL:
		return l.scopes.Constant(ir.BigIntConstant, e.Value)
	}
	return l.scopes.Constant(ir.NumberConstant, e.Value)
}

// template concatenates the quasis and the interpolated values in source
// order with "#concat#".
func (l *lowerer) template(e *ast.TemplateLiteral) ir.Value {
	if len(e.Expressions) == 0 {
		return l.scopes.Constant(ir.StringConstant, strings.Join(e.Quasis, ""))
	}
	var parts []ir.Value
	for i, quasi := range e.Quasis {
		if quasi != "" {
			parts = append(parts, l.scopes.Constant(ir.StringConstant, quasi))
		}
		if i < len(e.Expressions) {
			parts = append(parts, l.expression(e.Expressions[i]))
		}
	}
	return l.call(nil, ir.Builtin(ir.Concat, ""), parts, ast.LocOf(e))
}

func (l *lowerer) array(e *ast.ArrayExpression) ir.Value {
	loc := ast.LocOf(e)
	array := l.call(nil, ir.Builtin(ir.NewArray, ""), nil, loc)
	for i, element := range e.Elements {
		if element == nil {
			continue
		}
		value := l.expression(element)
		index := l.scopes.Constant(ir.NumberConstant, strconv.Itoa(i))
		l.call(nil, ir.Builtin(ir.SetIndex, ""), []ir.Value{array, index, value}, ast.LocOf(element))
	}
	return array
}

func (l *lowerer) object(e *ast.ObjectExpression) ir.Value {
	object := l.call(nil, ir.Builtin(ir.NewObject, ""), nil, ast.LocOf(e))
	for _, p := range e.Properties {
		loc := ast.LocOf(p)
		if p.Key == nil {
			// spread and other non-property members
			l.expression(p.Value)
			continue
		}
		if name := p.KeyName(); name != "" {
			l.setField(object, name, l.expression(p.Value), loc)
			continue
		}
		key := l.expression(p.Key)
		value := l.expression(p.Value)
		l.call(nil, ir.Builtin(ir.SetIndex, ""), []ir.Value{object, key, value}, loc)
	}
	return object
}

// logical lowers && || ?? with short-circuit control flow. The right
// operand gets its own block; both paths meet in a join block where the
// result is combined with the operator's builtin. ?? branches on a loose
// comparison with null rather than on the left operand's truthiness.
func (l *lowerer) logical(e *ast.LogicalExpression) ir.Value {
	b := l.fn.builder
	loc := ast.LocOf(e)
	def, ok := l.operator(ir.BinaryOp, e.Operator, e)
	if !ok {
		return l.undefined()
	}
	left := l.expression(e.Left)

	right := b.CreateBlock(ast.LocOf(e.Right))
	join := b.CreateBlock(endOf(loc))
	switch e.Operator {
	case "&&":
		b.Append(ir.NewConditionalBranch(left, right, join, loc))
	case "??":
		eq, _ := l.operator(ir.BinaryOp, "==", e)
		nullish := l.call(nil, eq, []ir.Value{left, l.null()}, ast.LocOf(e.Left))
		b.Append(ir.NewConditionalBranch(nullish, right, join, loc))
	default:
		b.Append(ir.NewConditionalBranch(left, join, right, loc))
	}

	b.PushBlock(right)
	value := l.expression(e.Right)
	b.Branch(join, endOf(ast.LocOf(e.Right)))

	b.PushBlock(join)
	return l.call(nil, def, []ir.Value{left, value}, loc)
}

func (l *lowerer) conditional(e *ast.ConditionalExpression) ir.Value {
	b := l.fn.builder
	loc := ast.LocOf(e)
	test := l.expression(e.Test)

	consequent := b.CreateBlock(ast.LocOf(e.Consequent))
	alternate := b.CreateBlock(ast.LocOf(e.Alternate))
	join := b.CreateBlock(endOf(loc))
	b.Append(ir.NewConditionalBranch(test, consequent, alternate, ast.LocOf(e.Test)))

	b.PushBlock(consequent)
	yes := l.expression(e.Consequent)
	b.Branch(join, endOf(ast.LocOf(e.Consequent)))

	b.PushBlock(alternate)
	no := l.expression(e.Alternate)
	b.Branch(join, endOf(ast.LocOf(e.Alternate)))

	b.PushBlock(join)
	return l.call(nil, ir.Builtin(ir.Select, ""), []ir.Value{test, yes, no}, loc)
}

func (l *lowerer) arguments(args []ast.Expression) []ir.Value {
	values := make([]ir.Value, 0, len(args))
	for _, arg := range args {
		values = append(values, l.expression(arg))
	}
	return values
}

// callExpression calls known user functions directly, passing the current
// scope as "@parent" and exactly one operand per parameter, padding missing
// arguments with null. Method calls
// use "#call-method#" on the receiver; anything else goes through "#call#".
func (l *lowerer) callExpression(e *ast.CallExpression) ir.Value {
	loc := ast.LocOf(e)
	switch callee := e.Callee.(type) {
	case *ast.Identifier:
		if binding, ok := l.scopes.Resolve(callee.Name); ok {
			if fn, ok := l.userFuncs[binding.Symbol.ID]; ok {
				l.fn.builder.Record(ir.Occurrence{Symbol: binding.Symbol, Access: ir.Read, Loc: ast.LocOf(callee)})
				args := append([]ir.Value{l.currentScope()}, l.arguments(e.Arguments)...)
				// surplus arguments are evaluated but not passed
				if len(args) > fn.params {
					args = args[:fn.params]
				}
				for len(args) < fn.params {
					args = append(args, l.null())
				}
				return l.call(nil, fn.def, args, loc)
			}
		}
	case *ast.MemberExpression:
		receiver := l.expression(callee.Object)
		if name := callee.PropertyName(); name != "" {
			return l.call(receiver, ir.Builtin(ir.CallMethod, name), l.arguments(e.Arguments), loc)
		}
		key := l.expression(callee.Property)
		method := l.call(nil, ir.Builtin(ir.GetIndex, ""), []ir.Value{receiver, key}, ast.LocOf(callee))
		args := append([]ir.Value{method}, l.arguments(e.Arguments)...)
		return l.call(receiver, ir.Builtin(ir.CallDynamic, ""), args, loc)
	}
	target := l.expression(e.Callee)
	args := append([]ir.Value{target}, l.arguments(e.Arguments)...)
	return l.call(nil, ir.Builtin(ir.CallDynamic, ""), args, loc)
}

// lvalue is an evaluated assignment target: a variable, a named field or
// a computed index.
type lvalue struct {
	variable *ast.Identifier
	object   ir.Value
	field    string
	key      ir.Value
}

// target evaluates the object and key of an assignment target once.
func (l *lowerer) target(expr ast.Expression) (lvalue, bool) {
	switch e := expr.(type) {
	case *ast.Identifier:
		return lvalue{variable: e}, true
	case *ast.MemberExpression:
		object := l.expression(e.Object)
		if name := e.PropertyName(); name != "" {
			return lvalue{object: object, field: name}, true
		}
		return lvalue{object: object, key: l.expression(e.Property)}, true
	}
	return lvalue{}, false
}

func (l *lowerer) loadTarget(t lvalue, loc ast.Location) ir.Value {
	switch {
	case t.variable != nil:
		return l.load(t.variable)
	case t.field != "":
		return l.getField(t.object, t.field, loc)
	}
	return l.call(nil, ir.Builtin(ir.GetIndex, ""), []ir.Value{t.object, t.key}, loc)
}

func (l *lowerer) storeTarget(t lvalue, value ir.Value, loc ast.Location) {
	switch {
	case t.variable != nil:
		l.assign(t.variable, value)
	case t.field != "":
		l.setField(t.object, t.field, value, loc)
	default:
		l.call(nil, ir.Builtin(ir.SetIndex, ""), []ir.Value{t.object, t.key, value}, loc)
	}
}

// assignTo stores value into an assignment target expression.
func (l *lowerer) assignTo(expr ast.Expression, value ir.Value) {
	t, ok := l.target(expr)
	if !ok {
		l.skipPattern(expr)
		return
	}
	l.storeTarget(t, value, ast.LocOf(expr))
}

func (l *lowerer) assignment(e *ast.AssignmentExpression) ir.Value {
	loc := ast.LocOf(e)
	t, ok := l.target(e.Left)
	if !ok {
		l.skipPattern(e.Left)
		return l.expression(e.Right)
	}
	if e.Operator == "=" {
		value := l.expression(e.Right)
		l.storeTarget(t, value, ast.LocOf(e.Left))
		return value
	}

	def, ok := l.operator(ir.BinaryOp, strings.TrimSuffix(e.Operator, "="), e)
	if !ok {
		return l.expression(e.Right)
	}
	old := l.loadTarget(t, ast.LocOf(e.Left))
	right := l.expression(e.Right)
	value := l.call(nil, def, []ir.Value{old, right}, loc)
	l.storeTarget(t, value, ast.LocOf(e.Left))
	return value
}

// update lowers ++ and --. Prefix forms yield the new value, postfix forms
// the old one.
func (l *lowerer) update(e *ast.UpdateExpression) ir.Value {
	loc := ast.LocOf(e)
	t, ok := l.target(e.Argument)
	if !ok {
		l.skipPattern(e.Argument)
		return l.undefined()
	}
	op := "+"
	if e.Operator == "--" {
		op = "-"
	}
	old := l.loadTarget(t, ast.LocOf(e.Argument))
	one := l.scopes.Constant(ir.NumberConstant, "1")
	value := l.call(nil, ir.Builtin(ir.BinaryOp, op), []ir.Value{old, one}, loc)
	l.storeTarget(t, value, ast.LocOf(e.Argument))
	if e.Prefix {
		return value
	}
	return old
}
