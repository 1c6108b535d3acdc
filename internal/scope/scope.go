// Package scope tracks the lexical scopes of one lowering session and
// materializes them as IR objects.
//
// Every scope is an ordinary heap object in the IR: pushing a scope emits a
// "#new-object#" call for it followed by a "#set-field# @parent" call that
// links it to its enclosing environment. Variable lookups walk that chain
// with "#get-field# @parent" calls, so closure capture needs nothing beyond
// field access.
package scope

import (
	"fmt"
	"sort"

	"dbd/internal/ast"
	"dbd/internal/errors"
	"dbd/internal/ir"
)

// Kind is the kind of lexical region a scope belongs to.
type Kind int

const (
	Global Kind = iota
	Function
	Block
	Catch
)

func (k Kind) String() string {
	switch k {
	case Global:
		return "global"
	case Function:
		return "function"
	case Block:
		return "block"
	case Catch:
		return "catch"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Scope is one materialized lexical environment.
type Scope struct {
	// ID is the value of the scope object.
	ID   ir.ValueID
	Kind Kind
	// Parent is the enclosing scope on the stack, nil for the global scope.
	// It is set once, when the scope is pushed.
	Parent *Scope

	bindings map[string]*ir.Symbol
	linked   bool
}

// Lookup returns the binding declared directly in s.
func (s *Scope) Lookup(name string) (*ir.Symbol, bool) {
	sym, ok := s.bindings[name]
	return sym, ok
}

// Names returns the names bound in s, sorted.
func (s *Scope) Names() []string {
	names := make([]string, 0, len(s.bindings))
	for name := range s.bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Binding is the result of resolving a name against the scope stack.
type Binding struct {
	Symbol *ir.Symbol
	Scope  *Scope
	// Hops is the number of @parent links between the current scope and
	// the owning scope.
	Hops int
}

type constantKey struct {
	kind ir.ConstantKind
	text string
}

// Manager is the session-scoped scope stack together with the counters that
// must be unique across the session: value ids, symbol ids and constants.
// A Manager must not be shared between files.
type Manager struct {
	stack      []*Scope
	nextValue  ir.ValueID
	nextSymbol ir.SymbolID
	constants  map[constantKey]ir.Constant
}

// NewManager returns an empty manager whose first value id is 0.
func NewManager() *Manager {
	return &Manager{constants: map[constantKey]ir.Constant{}}
}

// CreateValueIdentifier returns the next unused value id.
func (m *Manager) CreateValueIdentifier() ir.ValueID {
	id := m.nextValue
	m.nextValue++
	return id
}

// CreateScope allocates a scope with a fresh value id and no parent yet.
func (m *Manager) CreateScope(kind Kind) *Scope {
	return &Scope{
		ID:       m.CreateValueIdentifier(),
		Kind:     kind,
		bindings: map[string]*ir.Symbol{},
	}
}

// Push makes s the current scope and materializes it in the current block
// of b: a "#new-object#" call producing s.ID, then, unless parent is nil, a
// "#set-field# @parent" call storing parent into it. parent is the enclosing
// scope object, or the "@parent" parameter for a function scope.
func (m *Manager) Push(b *ir.FunctionBuilder, s *Scope, parent ir.Value, loc ast.Location) {
	if s.linked {
		panic(errors.Invariantf(errors.ErrorParentRelinked, loc.Start, "scope %s is already linked", s.ID))
	}
	b.Append(ir.NewCall(s.ID, nil, ir.Builtin(ir.NewObject, ""), nil, loc))
	record := ir.ScopeRecord{ID: s.ID, Parent: ir.NoValue}
	if parent != nil {
		link := ir.NewCall(m.CreateValueIdentifier(), nil, ir.Builtin(ir.SetField, ir.ParentField),
			[]ir.Value{ir.Reference{Identifier: s.ID}, parent}, loc)
		b.Append(link)
		record.Parent = parent.ID()
	}
	b.DeclareScope(record)
	s.Parent = m.Current()
	s.linked = true
	m.stack = append(m.stack, s)
}

// Pop removes the current scope. Popping an empty stack is an invariant
// violation.
func (m *Manager) Pop(pos ast.Position) *Scope {
	if len(m.stack) == 0 {
		panic(errors.Invariantf(errors.ErrorScopeUnderflow, pos, "scope stack underflow"))
	}
	top := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return top
}

// Current returns the innermost scope, or nil when the stack is empty.
func (m *Manager) Current() *Scope {
	if len(m.stack) == 0 {
		return nil
	}
	return m.stack[len(m.stack)-1]
}

// Depth returns the number of scopes on the stack.
func (m *Manager) Depth() int {
	return len(m.stack)
}

// Truncate drops scopes until the stack has the given depth. It is used to
// restore the stack after a function aborted with an invariant violation.
func (m *Manager) Truncate(depth int) {
	if depth < len(m.stack) {
		m.stack = m.stack[:depth]
	}
}

// Global returns the outermost scope, or nil.
func (m *Manager) Global() *Scope {
	if len(m.stack) == 0 {
		return nil
	}
	return m.stack[0]
}

// FunctionScope returns the innermost function or global scope, which is
// where var declarations live.
func (m *Manager) FunctionScope() *Scope {
	for i := len(m.stack) - 1; i >= 0; i-- {
		if k := m.stack[i].Kind; k == Function || k == Global {
			return m.stack[i]
		}
	}
	return nil
}

// Declare binds name in s. Redeclaring a name in the same scope returns the
// existing symbol, as var does.
func (m *Manager) Declare(s *Scope, name string, pos ast.Position) *ir.Symbol {
	if sym, ok := s.bindings[name]; ok {
		return sym
	}
	sym := &ir.Symbol{ID: m.nextSymbol, Name: name, Decl: pos}
	m.nextSymbol++
	s.bindings[name] = sym
	return sym
}

// Resolve finds the innermost binding of name visible from the current
// scope.
func (m *Manager) Resolve(name string) (Binding, bool) {
	for i := len(m.stack) - 1; i >= 0; i-- {
		if sym, ok := m.stack[i].bindings[name]; ok {
			return Binding{Symbol: sym, Scope: m.stack[i], Hops: len(m.stack) - 1 - i}, true
		}
	}
	return Binding{}, false
}

// HopsTo returns the number of @parent links from the current scope to s,
// or -1 when s is not on the stack.
func (m *Manager) HopsTo(s *Scope) int {
	for i := len(m.stack) - 1; i >= 0; i-- {
		if m.stack[i] == s {
			return len(m.stack) - 1 - i
		}
	}
	return -1
}

// Constant returns the constant for a literal, allocating a value id the
// first time the literal is seen in the session.
func (m *Manager) Constant(kind ir.ConstantKind, text string) ir.Constant {
	key := constantKey{kind: kind, text: text}
	if c, ok := m.constants[key]; ok {
		return c
	}
	c := ir.Constant{Identifier: m.CreateValueIdentifier(), Kind: kind, Text: text}
	m.constants[key] = c
	return c
}
