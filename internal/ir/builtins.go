package ir

import (
	"fmt"
	"strings"

	"dbd/internal/ast"
	"dbd/internal/errors"
)

// FunctionDefinition is a call target: one of the builtins below or a user
// function. Builtins use their name as signature.
type FunctionDefinition struct {
	Name      string
	Signature string
}

// BuiltinKind enumerates the builtin catalog.
type BuiltinKind int

const (
	NotBuiltin BuiltinKind = iota
	NewObject
	NewArray
	SetField
	GetField
	SetIndex
	GetIndex
	BinaryOp
	UnaryOp
	CallDynamic
	CallMethod
	Construct
	Select
	MayThrow
	CaughtException
	IteratorNext
	Concat
	This
)

type builtinEntry struct {
	name string
	// qualified builtins carry a field name or an operator after the name.
	qualified bool
	operators map[string]bool
}

var binaryOperators = setOf(
	"==", "!=", "===", "!==", "<", "<=", ">", ">=",
	"<<", ">>", ">>>", "+", "-", "*", "/", "%", "**",
	"|", "^", "&", "in", "instanceof",
	"&&", "||", "??",
)

var unaryOperators = setOf("-", "+", "!", "~", "typeof", "void", "delete")

var catalog = map[BuiltinKind]builtinEntry{
	NewObject:       {name: "#new-object#"},
	NewArray:        {name: "#new-array#"},
	SetField:        {name: "#set-field#", qualified: true},
	GetField:        {name: "#get-field#", qualified: true},
	SetIndex:        {name: "#set-index#"},
	GetIndex:        {name: "#get-index#"},
	BinaryOp:        {name: "#binary#", qualified: true, operators: binaryOperators},
	UnaryOp:         {name: "#unary#", qualified: true, operators: unaryOperators},
	CallDynamic:     {name: "#call#"},
	CallMethod:      {name: "#call-method#", qualified: true},
	Construct:       {name: "#construct#"},
	Select:          {name: "#select#"},
	MayThrow:        {name: "#may-throw#"},
	CaughtException: {name: "#caught-exception#"},
	IteratorNext:    {name: "#iterator-next#"},
	Concat:          {name: "#concat#"},
	This:            {name: "#this#"},
}

var catalogByName = func() map[string]BuiltinKind {
	m := make(map[string]BuiltinKind, len(catalog))
	for kind, entry := range catalog {
		m[entry.name] = kind
	}
	return m
}()

func setOf(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, item := range items {
		m[item] = true
	}
	return m
}

// Builtin returns the definition for a catalog entry. Qualified builtins
// (fields, operators, methods) take the qualifier as second argument. Asking
// for anything outside the catalog is an invariant violation and panics with
// an *errors.InvariantViolation.
func Builtin(kind BuiltinKind, qualifier string) *FunctionDefinition {
	def, err := builtin(kind, qualifier)
	if err != nil {
		panic(errors.Invariantf(errors.ErrorUnknownBuiltin, ast.Position{}, "%v", err))
	}
	return def
}

func builtin(kind BuiltinKind, qualifier string) (*FunctionDefinition, error) {
	entry, ok := catalog[kind]
	if !ok {
		return nil, fmt.Errorf("builtin kind %d is not in the catalog", kind)
	}
	if !entry.qualified {
		if qualifier != "" {
			return nil, fmt.Errorf("builtin %s takes no qualifier, got %q", entry.name, qualifier)
		}
		return &FunctionDefinition{Name: entry.name, Signature: entry.name}, nil
	}
	if qualifier == "" {
		return nil, fmt.Errorf("builtin %s requires a qualifier", entry.name)
	}
	if entry.operators != nil && !entry.operators[qualifier] {
		return nil, fmt.Errorf("builtin %s has no operator %q", entry.name, qualifier)
	}
	name := entry.name + " " + qualifier
	return &FunctionDefinition{Name: name, Signature: name}, nil
}

// LookupBuiltin resolves a serialized builtin name such as
// "#get-field# x" back to its catalog entry.
func LookupBuiltin(name string) (*FunctionDefinition, error) {
	kind, qualifier, ok := splitBuiltinName(name)
	if !ok {
		return nil, errors.Invariantf(errors.ErrorUnknownBuiltin, ast.Position{}, "unknown builtin %q", name)
	}
	def, err := builtin(kind, qualifier)
	if err != nil {
		return nil, errors.Invariantf(errors.ErrorUnknownBuiltin, ast.Position{}, "%v", err)
	}
	return def, nil
}

func splitBuiltinName(name string) (BuiltinKind, string, bool) {
	if !strings.HasPrefix(name, "#") {
		return NotBuiltin, "", false
	}
	end := strings.Index(name[1:], "#")
	if end < 0 {
		return NotBuiltin, "", false
	}
	head := name[:end+2]
	kind, ok := catalogByName[head]
	if !ok {
		return NotBuiltin, "", false
	}
	qualifier := strings.TrimPrefix(name[len(head):], " ")
	return kind, qualifier, true
}

// IsBuiltin reports whether d names a catalog entry.
func (d *FunctionDefinition) IsBuiltin() bool {
	return d.BuiltinKind() != NotBuiltin
}

// BuiltinKind returns the catalog entry d names, or NotBuiltin.
func (d *FunctionDefinition) BuiltinKind() BuiltinKind {
	kind, _, _ := splitBuiltinName(d.Name)
	return kind
}

// Qualifier returns the field name or operator of a qualified builtin.
func (d *FunctionDefinition) Qualifier() string {
	_, qualifier, _ := splitBuiltinName(d.Name)
	return qualifier
}

// UserFunction creates the definition of a user function declared in file.
func UserFunction(name, fileName string) *FunctionDefinition {
	return &FunctionDefinition{Name: name, Signature: fileName + "." + name}
}

// ParentField is the scope field holding the enclosing scope.
const ParentField = "@parent"
