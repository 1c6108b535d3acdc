// Package lower translates a JavaScript AST into block IR.
//
// One call to Transpile is one lowering session: it owns the scope stack,
// the value and symbol counters and the constant table, so lowering the
// same program twice yields identical numbering. The program becomes the
// unit "main"; every function met during the walk becomes a unit numbered
// 0, 1, 2, ... in traversal order.
package lower

import (
	"fmt"
	"strconv"

	"dbd/internal/ast"
	"dbd/internal/errors"
	"dbd/internal/ir"
	"dbd/internal/scope"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("dbd.lower")

// Options configures a lowering session.
type Options struct {
	// FileName names the source; it prefixes user function signatures and
	// is recorded in every FunctionInfo.
	FileName string
	// HostGlobals are extra global names the host environment defines,
	// such as "console" or "window". Each is bound to a fresh object.
	HostGlobals []string
	// OmitImplicitReturn leaves the last block of a function open instead
	// of closing it with "ret null".
	OmitImplicitReturn bool
}

// Unit is one lowered function together with the variable occurrences
// recorded while lowering it.
type Unit struct {
	Info       *ir.FunctionInfo
	References ir.ReferenceTable
}

// Result is the outcome of a session.
type Result struct {
	// Units holds main first, then functions in traversal order. Functions
	// aborted by an invariant violation are left out.
	Units []*Unit
	// Skipped lists the constructs lowering did not model.
	Skipped []errors.Unsupported
	// Errors holds one invariant violation per aborted function. Every
	// entry matches errors.ErrInvariant.
	Errors []error
}

// Unit returns the unit with the given id, or nil.
func (r *Result) Unit(id string) *Unit {
	for _, u := range r.Units {
		if u.Info.ID == id {
			return u
		}
	}
	return nil
}

// Functions returns the FunctionInfos of all units.
func (r *Result) Functions() []*ir.FunctionInfo {
	out := make([]*ir.FunctionInfo, 0, len(r.Units))
	for _, u := range r.Units {
		out = append(out, u.Info)
	}
	return out
}

// Transpile lowers program in a fresh session.
func Transpile(program *ast.Program, opts Options) *Result {
	s := newSession(opts)
	s.lowerProgram(program)
	return s.finish()
}

// userFunction is a function whose declaration is statically known, so calls
// through its binding can target it directly.
type userFunction struct {
	def    *ir.FunctionDefinition
	params int
}

type session struct {
	opts         Options
	scopes       *scope.Manager
	result       *Result
	nextFunction int
	userFuncs    map[ir.SymbolID]userFunction
	aborted      map[*Unit]bool
}

// function is the per-function lowering state.
type function struct {
	unit    *Unit
	builder *ir.FunctionBuilder
	// parent is the "@parent" parameter, nil for main.
	parent  *ir.Parameter
	targets jumpTargets
	// handlers are the catch blocks of the enclosing try statements.
	handlers []ir.BlockID
}

// lowerer carries the session and the function currently being lowered.
type lowerer struct {
	*session
	fn *function
}

func newSession(opts Options) *session {
	return &session{
		opts:      opts,
		scopes:    scope.NewManager(),
		result:    &Result{},
		userFuncs: map[ir.SymbolID]userFunction{},
	}
}

// finish drops the units whose lowering aborted and returns the result.
func (s *session) finish() *Result {
	units := s.result.Units[:0]
	for _, u := range s.result.Units {
		if !s.aborted[u] {
			units = append(units, u)
		}
	}
	s.result.Units = units
	return s.result
}

func (s *session) newUnit(id string, def *ir.FunctionDefinition) *function {
	info := ir.NewFunctionInfo(id, s.opts.FileName, def)
	builder := ir.NewFunctionBuilder(info)
	unit := &Unit{Info: info, References: builder.References()}
	s.result.Units = append(s.result.Units, unit)
	return &function{unit: unit, builder: builder}
}

// guard runs body and converts an invariant violation raised inside it into
// an error for the unit, restoring the scope stack.
func (s *session) guard(fn *function, body func()) (err error) {
	depth := s.scopes.Depth()
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		violation, ok := r.(*errors.InvariantViolation)
		if !ok {
			panic(r)
		}
		if violation.Function == "" {
			violation.Function = fn.unit.Info.Definition.Name
		}
		s.scopes.Truncate(depth)
		if s.aborted == nil {
			s.aborted = map[*Unit]bool{}
		}
		s.aborted[fn.unit] = true
		s.result.Errors = append(s.result.Errors, violation)
		log.Errorf("%s: aborted lowering of %s: %s", s.opts.FileName, fn.unit.Info.Definition.Name, violation)
		err = violation
	}()
	body()
	return nil
}

func (s *session) lowerProgram(program *ast.Program) {
	fn := s.newUnit("main", ir.UserFunction("main", s.opts.FileName))
	l := &lowerer{session: s, fn: fn}
	loc := ast.LocOf(program)

	_ = s.guard(fn, func() {
		b := fn.builder
		b.PushBlock(b.CreateBlock(loc))

		global := s.scopes.CreateScope(scope.Global)
		s.scopes.Push(b, global, nil, loc)
		l.declareGlobals(global, loc)

		l.hoistVars(program.Body, global)
		l.statements(program.Body)

		l.finishFunction(global, loc)
	})
}

// declareGlobals binds the well-known globals in the global scope. These
// writes are not recorded as occurrences.
func (l *lowerer) declareGlobals(global *scope.Scope, loc ast.Location) {
	self := ir.Reference{Identifier: global.ID}
	l.setField(self, "globalThis", self, loc)
	l.scopes.Declare(global, "globalThis", loc.Start)

	builtins := []struct {
		name  string
		value ir.Value
	}{
		{"NaN", l.scopes.Constant(ir.NumberConstant, "NaN")},
		{"Infinity", l.scopes.Constant(ir.NumberConstant, "Infinity")},
		{"undefined", l.undefined()},
	}
	for _, g := range builtins {
		l.scopes.Declare(global, g.name, loc.Start)
		l.setField(self, g.name, g.value, loc)
	}
	for _, name := range l.opts.HostGlobals {
		l.scopes.Declare(global, name, loc.Start)
		object := l.call(nil, ir.Builtin(ir.NewObject, ""), nil, loc)
		l.setField(self, name, object, loc)
	}
}

// lowerFunction lowers f into a new unit named name and returns the unit's
// definition, or nil when lowering aborted. When bind is set the definition
// is registered for it before the body is lowered, so recursive calls are
// direct.
func (l *lowerer) lowerFunction(f *ast.Function, name string, bind *ir.Symbol) (*ir.FunctionDefinition, int) {
	s := l.session
	id := strconv.Itoa(s.nextFunction)
	s.nextFunction++
	def := ir.UserFunction(name, s.opts.FileName)
	fn := s.newUnit(id, def)
	if bind != nil {
		s.userFuncs[bind.ID] = userFunction{def: def, params: len(f.Params) + 1}
	}
	inner := &lowerer{session: s, fn: fn}
	loc := ast.LocOf(f)

	err := s.guard(fn, func() {
		b := fn.builder
		b.PushBlock(b.CreateBlock(loc))

		parent := &ir.Parameter{Identifier: s.scopes.CreateValueIdentifier(), Name: ir.ParentField}
		fn.parent = parent
		fn.unit.Info.Parameters = append(fn.unit.Info.Parameters, parent)

		type boundParam struct {
			id    *ast.Identifier
			value ir.Parameter
		}
		var bound []boundParam
		for i, p := range f.Params {
			param := &ir.Parameter{Identifier: s.scopes.CreateValueIdentifier()}
			if ident, ok := p.(*ast.Identifier); ok {
				param.Name = ident.Name
				bound = append(bound, boundParam{id: ident, value: *param})
			} else {
				param.Name = fmt.Sprintf("@arg%d", i)
				inner.skipPattern(p)
			}
			fn.unit.Info.Parameters = append(fn.unit.Info.Parameters, param)
		}

		fnScope := s.scopes.CreateScope(scope.Function)
		s.scopes.Push(b, fnScope, *parent, loc)

		for _, p := range bound {
			sym := s.scopes.Declare(fnScope, p.id.Name, p.id.Pos)
			inner.store(scope.Binding{Symbol: sym, Scope: fnScope}, p.value, ast.LocOf(p.id))
		}

		if f.Body != nil {
			inner.hoistVars(f.Body.Body, fnScope)
			inner.statements(f.Body.Body)
		} else if f.ExprBody != nil {
			value := inner.expression(f.ExprBody)
			b.Append(ir.NewReturn(value, ast.LocOf(f.ExprBody)))
		}

		inner.finishFunction(fnScope, loc)
	})
	if err != nil {
		if bind != nil {
			delete(s.userFuncs, bind.ID)
		}
		return nil, 0
	}
	return def, len(f.Params) + 1
}

// finishFunction pops the function's scope, checks the stack is balanced and
// closes the last block.
func (l *lowerer) finishFunction(own *scope.Scope, loc ast.Location) {
	end := ast.Location{Start: loc.End, End: loc.End}
	if top := l.scopes.Current(); top != own {
		panic(errors.Invariantf(errors.ErrorUnbalancedScopes, loc.End, "scope stack unbalanced at end of %s", l.fn.unit.Info.Definition.Name))
	}
	l.scopes.Pop(loc.End)
	b := l.fn.builder
	if !l.opts.OmitImplicitReturn && !b.CurrentIsTerminated() {
		b.Append(ir.NewReturn(l.null(), end))
	}
}

// skip records a construct that is not lowered.
func (l *lowerer) skip(code string, n ast.Node, kind string) {
	u := errors.Unsupported{Code: code, Kind: kind, Position: n.NodePos()}
	l.result.Skipped = append(l.result.Skipped, u)
	log.Warningf("%s: %s", l.opts.FileName, u)
}

func (l *lowerer) skipPattern(n ast.Node) {
	kind := string(n.NodeType())
	if u, ok := n.(*ast.UnsupportedExpression); ok {
		kind = u.Kind
	}
	l.skip(errors.ErrorUnsupportedPattern, n, kind)
}
