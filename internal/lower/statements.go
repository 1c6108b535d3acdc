package lower

import (
	"fmt"

	"dbd/internal/ast"
	"dbd/internal/errors"
	"dbd/internal/ir"
	"dbd/internal/scope"
)

// statements lowers a statement list. Function declarations are hoisted:
// every name is declared before any body is lowered, then the objects are
// created and bound before the first statement runs.
func (l *lowerer) statements(list []ast.Statement) {
	var decls []*ast.FunctionDeclaration
	for _, stmt := range list {
		if decl, ok := stmt.(*ast.FunctionDeclaration); ok {
			decls = append(decls, decl)
		}
	}
	symbols := make([]*ir.Symbol, len(decls))
	current := l.scopes.Current()
	for i, decl := range decls {
		if name := decl.Function.Name(); name != "" {
			symbols[i] = l.scopes.Declare(current, name, decl.Function.ID.Pos)
		}
	}
	for i, decl := range decls {
		l.functionDeclaration(decl, symbols[i])
	}
	for _, stmt := range list {
		l.statement(stmt)
	}
}

// statement is the dispatcher. Every case returns with exactly one open
// current block, except that a terminator may close it; the next statement
// then starts in a fresh block.
func (l *lowerer) statement(stmt ast.Statement) {
	switch stmt.(type) {
	case *ast.FunctionDeclaration, *ast.EmptyStatement:
	default:
		l.fn.builder.Open(ast.LocOf(stmt))
	}

	switch s := stmt.(type) {
	case *ast.BlockStatement:
		l.blockStatement(s)
	case *ast.EmptyStatement:
	case *ast.ExpressionStatement:
		l.expression(s.Expression)
	case *ast.VariableDeclaration:
		l.variableDeclaration(s)
	case *ast.FunctionDeclaration:
		// hoisted by statements
	case *ast.ReturnStatement:
		l.returnStatement(s)
	case *ast.IfStatement:
		l.ifStatement(s)
	case *ast.WhileStatement:
		l.whileStatement(s)
	case *ast.DoWhileStatement:
		l.doWhileStatement(s)
	case *ast.ForStatement:
		l.forStatement(s)
	case *ast.ForInStatement:
		l.forInStatement(s)
	case *ast.BreakStatement:
		l.jump(s, s.Label, false)
	case *ast.ContinueStatement:
		l.jump(s, s.Label, true)
	case *ast.LabeledStatement:
		l.labeledStatement(s)
	case *ast.SwitchStatement:
		l.switchStatement(s)
	case *ast.ThrowStatement:
		l.throwStatement(s)
	case *ast.TryStatement:
		l.tryStatement(s)
	case *ast.UnsupportedStatement:
		l.skip(errors.ErrorUnsupportedStatement, s, s.Kind)
	default:
		l.skip(errors.ErrorUnsupportedStatement, stmt, string(stmt.NodeType()))
	}
}

// region lowers body into a fresh block entered by an unconditional branch,
// then continues in a fresh block that the body falls through to unless it
// ended in a terminator.
func (l *lowerer) region(loc ast.Location, body func()) {
	b := l.fn.builder
	entry := b.CreateBlock(loc)
	b.Branch(entry, loc)
	b.PushBlock(entry)

	body()

	end := endOf(loc)
	exit := b.CreateBlock(end)
	b.BranchIfOpen(exit, end)
	b.PushBlock(exit)
}

// withScope runs body with a new scope of the given kind pushed onto the
// stack and materialized in the current block.
func (l *lowerer) withScope(kind scope.Kind, loc ast.Location, body func()) {
	s := l.scopes.CreateScope(kind)
	l.scopes.Push(l.fn.builder, s, l.currentScope(), loc)
	body()
	if l.scopes.Current() != s {
		panic(errors.Invariantf(errors.ErrorUnbalancedScopes, loc.End, "%s scope %s not on top of the stack at its end", kind, s.ID))
	}
	l.scopes.Pop(loc.End)
}

func (l *lowerer) blockStatement(s *ast.BlockStatement) {
	loc := ast.LocOf(s)
	l.region(loc, func() {
		l.withScope(scope.Block, loc, func() {
			l.statements(s.Body)
		})
	})
}

// functionDeclaration lowers the function into its own unit and binds a
// function object to sym, the name hoisted into the current scope. Calls
// through sym are direct, including those in the function's own body.
func (l *lowerer) functionDeclaration(s *ast.FunctionDeclaration, sym *ir.Symbol) {
	loc := ast.LocOf(s)
	l.fn.builder.Open(loc)
	object, _ := l.functionObject(s.Function, loc, sym)
	if sym == nil {
		return
	}
	l.setField(l.currentScope(), sym.Name, object, loc)
}

// functionObject lowers f and creates the object standing for it. The
// object id is taken before the body is lowered; nested functions are named
// after it. A non-nil bind is registered as a direct call target.
func (l *lowerer) functionObject(f *ast.Function, loc ast.Location, bind *ir.Symbol) (ir.Reference, *userFunction) {
	object := l.scopes.CreateValueIdentifier()
	name := f.Name()
	if l.fn.parent != nil || name == "" {
		name = fmt.Sprintf("%s__%d", l.fn.unit.Info.Definition.Name, object)
	}
	def, params := l.lowerFunction(f, name, bind)
	l.fn.builder.Append(ir.NewCall(object, nil, ir.Builtin(ir.NewObject, ""), nil, loc))
	if def == nil {
		return ir.Reference{Identifier: object}, nil
	}
	return ir.Reference{Identifier: object}, &userFunction{def: def, params: params}
}

func (l *lowerer) variableDeclaration(s *ast.VariableDeclaration) {
	for _, d := range s.Declarations {
		id, ok := d.ID.(*ast.Identifier)
		if !ok {
			l.skipPattern(d.ID)
			continue
		}
		if s.Kind == ast.VAR && d.Init == nil {
			// declared by hoisting
			continue
		}

		var value ir.Value
		var fn *userFunction
		if d.Init != nil {
			value, fn = l.initializer(d.Init)
		} else {
			value = l.undefined()
		}

		var binding scope.Binding
		if s.Kind == ast.VAR {
			binding = l.resolve(id.Name, id.Pos)
		} else {
			current := l.scopes.Current()
			binding = scope.Binding{Symbol: l.scopes.Declare(current, id.Name, id.Pos), Scope: current}
		}
		l.store(binding, value, ast.LocOf(id))
		if fn != nil {
			l.userFuncs[binding.Symbol.ID] = *fn
		}
	}
}

// initializer lowers a declarator's initial value. Function initializers
// also report the function so calls through the binding are direct.
func (l *lowerer) initializer(init ast.Expression) (ir.Value, *userFunction) {
	if f, ok := init.(*ast.FunctionExpression); ok {
		return l.functionObject(f.Function, ast.LocOf(f), nil)
	}
	return l.expression(init), nil
}

// hoistVars declares the var bindings of a function body in target.
// Nested functions are not entered.
func (l *lowerer) hoistVars(list []ast.Statement, target *scope.Scope) {
	declare := func(decl *ast.VariableDeclaration) {
		if decl.Kind != ast.VAR {
			return
		}
		for _, d := range decl.Declarations {
			if id, ok := d.ID.(*ast.Identifier); ok {
				l.scopes.Declare(target, id.Name, id.Pos)
			}
		}
	}
	var visit func(ast.Statement)
	visit = func(stmt ast.Statement) {
		switch s := stmt.(type) {
		case *ast.VariableDeclaration:
			declare(s)
		case *ast.BlockStatement:
			for _, child := range s.Body {
				visit(child)
			}
		case *ast.IfStatement:
			visit(s.Consequent)
			if s.Alternate != nil {
				visit(s.Alternate)
			}
		case *ast.WhileStatement:
			visit(s.Body)
		case *ast.DoWhileStatement:
			visit(s.Body)
		case *ast.ForStatement:
			if decl, ok := s.Init.(*ast.VariableDeclaration); ok {
				declare(decl)
			}
			visit(s.Body)
		case *ast.ForInStatement:
			if decl, ok := s.Left.(*ast.VariableDeclaration); ok {
				declare(decl)
			}
			visit(s.Body)
		case *ast.LabeledStatement:
			visit(s.Body)
		case *ast.SwitchStatement:
			for _, c := range s.Cases {
				for _, child := range c.Consequent {
					visit(child)
				}
			}
		case *ast.TryStatement:
			visit(s.Block)
			if s.Handler != nil {
				visit(s.Handler.Body)
			}
			if s.Finalizer != nil {
				visit(s.Finalizer)
			}
		}
	}
	for _, stmt := range list {
		visit(stmt)
	}
}

func (l *lowerer) returnStatement(s *ast.ReturnStatement) {
	var value ir.Value
	if s.Argument != nil {
		value = l.expression(s.Argument)
	} else {
		value = l.undefined()
	}
	l.fn.builder.Append(ir.NewReturn(value, ast.LocOf(s)))
}

// throwStatement jumps to the innermost catch block of the function when
// there is one and leaves the function otherwise.
func (l *lowerer) throwStatement(s *ast.ThrowStatement) {
	value := l.expression(s.Argument)
	b := l.fn.builder
	if n := len(l.fn.handlers); n > 0 {
		b.Branch(l.fn.handlers[n-1], ast.LocOf(s))
		return
	}
	b.Append(ir.NewThrow(value, ast.LocOf(s)))
}

func endOf(loc ast.Location) ast.Location {
	return ast.Location{Start: loc.End, End: loc.End}
}
