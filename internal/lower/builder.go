package lower

import (
	"dbd/internal/ast"
	"dbd/internal/errors"
	"dbd/internal/ir"
	"dbd/internal/scope"
)

// Instruction helpers. Every semantic operation is a call; these wrap the
// catalog so lowering code reads as the operation it performs.

// call appends a call with a fresh result id and returns the result.
func (l *lowerer) call(receiver ir.Value, def *ir.FunctionDefinition, args []ir.Value, loc ast.Location) ir.Reference {
	result := l.scopes.CreateValueIdentifier()
	l.fn.builder.Append(ir.NewCall(result, receiver, def, args, loc))
	return ir.Reference{Identifier: result}
}

func (l *lowerer) setField(object ir.Value, name string, value ir.Value, loc ast.Location) {
	l.call(nil, ir.Builtin(ir.SetField, name), []ir.Value{object, value}, loc)
}

func (l *lowerer) getField(object ir.Value, name string, loc ast.Location) ir.Reference {
	return l.call(nil, ir.Builtin(ir.GetField, name), []ir.Value{object}, loc)
}

func (l *lowerer) null() ir.Constant {
	return l.scopes.Constant(ir.NullConstant, "null")
}

func (l *lowerer) undefined() ir.Constant {
	return l.scopes.Constant(ir.UndefinedConstant, "undefined")
}

func (l *lowerer) currentScope() ir.Reference {
	return ir.Reference{Identifier: l.scopes.Current().ID}
}

// holder returns the scope object hops @parent links above the current
// scope, emitting one "#get-field# @parent" per link.
func (l *lowerer) holder(hops int, loc ast.Location) ir.Value {
	var object ir.Value = l.currentScope()
	for i := 0; i < hops; i++ {
		object = l.getField(object, ir.ParentField, loc)
	}
	return object
}

// resolve finds the binding of name. Names bound nowhere are implicit
// globals and get declared in the global scope on first use.
func (l *lowerer) resolve(name string, pos ast.Position) scope.Binding {
	if binding, ok := l.scopes.Resolve(name); ok {
		return binding
	}
	global := l.scopes.Global()
	sym := l.scopes.Declare(global, name, pos)
	return scope.Binding{Symbol: sym, Scope: global, Hops: l.scopes.HopsTo(global)}
}

// load reads a variable and records the read.
func (l *lowerer) load(id *ast.Identifier) ir.Value {
	loc := ast.LocOf(id)
	binding := l.resolve(id.Name, id.Pos)
	value := l.getField(l.holder(binding.Hops, loc), id.Name, loc)
	l.fn.builder.Record(ir.Occurrence{Symbol: binding.Symbol, Access: ir.Read, Loc: loc})
	return value
}

// assign writes value to the variable named by id and records the write.
func (l *lowerer) assign(id *ast.Identifier, value ir.Value) {
	l.store(l.resolve(id.Name, id.Pos), value, ast.LocOf(id))
}

func (l *lowerer) store(binding scope.Binding, value ir.Value, loc ast.Location) {
	hops := l.scopes.HopsTo(binding.Scope)
	if hops < 0 {
		panic(errors.Invariantf(errors.ErrorUnbalancedScopes, loc.Start, "scope of %q is not on the stack", binding.Symbol.Name))
	}
	l.setField(l.holder(hops, loc), binding.Symbol.Name, value, loc)
	l.fn.builder.Record(ir.Occurrence{Symbol: binding.Symbol, Access: ir.Write, Loc: loc})
}
