package ir

import (
	"fmt"
	"strconv"
	"strings"

	"dbd/internal/ast"
)

// IR types for the block-structured lowering of JavaScript functions.
// Control flow lives only in terminator instructions: a block's successors
// are whatever its last instruction branches to.

// BlockID indexes a block in its function's arena.
type BlockID int

// ValueID names a value within one lowering session. IDs are never reused.
type ValueID int

// NoValue marks an absent value, e.g. the parent of the global scope.
const NoValue ValueID = -1

func (id BlockID) String() string { return "bb" + strconv.Itoa(int(id)) }
func (id ValueID) String() string { return "%" + strconv.Itoa(int(id)) }

// FunctionInfo is the lowered form of a program or of one function.
type FunctionInfo struct {
	// ID is "main" for the program and the traversal index for functions.
	ID         string
	FileName   string
	Definition *FunctionDefinition
	Parameters []*Parameter
	Blocks     []*BasicBlock
	Scopes     []ScopeRecord
}

// NewFunctionInfo returns an empty FunctionInfo for the given definition.
func NewFunctionInfo(id, fileName string, def *FunctionDefinition) *FunctionInfo {
	return &FunctionInfo{
		ID:         id,
		FileName:   fileName,
		Definition: def,
		Parameters: []*Parameter{},
		Blocks:     []*BasicBlock{},
		Scopes:     []ScopeRecord{},
	}
}

// Block returns the block with the given id, or nil.
func (f *FunctionInfo) Block(id BlockID) *BasicBlock {
	if id < 0 || int(id) >= len(f.Blocks) {
		return nil
	}
	return f.Blocks[id]
}

// Parameter returns the parameter with the given value id, or nil.
func (f *FunctionInfo) Parameter(id ValueID) *Parameter {
	for _, p := range f.Parameters {
		if p.Identifier == id {
			return p
		}
	}
	return nil
}

// CalledFunctions lists the user functions called from f, in order of first
// call.
func (f *FunctionInfo) CalledFunctions() []*FunctionDefinition {
	seen := map[string]bool{}
	var out []*FunctionDefinition
	for _, block := range f.Blocks {
		for _, inst := range block.Instructions {
			call, ok := inst.(*Call)
			if !ok || call.Definition.IsBuiltin() || seen[call.Definition.Signature] {
				continue
			}
			seen[call.Definition.Signature] = true
			out = append(out, call.Definition)
		}
	}
	return out
}

// BasicBlock is a straight-line instruction sequence with at most one
// terminator, which is then its last instruction.
type BasicBlock struct {
	ID           BlockID
	Instructions []Instruction
	Loc          ast.Location
}

func newBasicBlock(id BlockID, loc ast.Location) *BasicBlock {
	return &BasicBlock{ID: id, Instructions: []Instruction{}, Loc: loc}
}

// NewBasicBlock creates an empty block; decoders use it to rebuild arenas.
func NewBasicBlock(id BlockID, loc ast.Location) *BasicBlock {
	return newBasicBlock(id, loc)
}

// Terminator returns the block's terminator, or nil while it is open.
func (b *BasicBlock) Terminator() Instruction {
	if len(b.Instructions) == 0 {
		return nil
	}
	last := b.Instructions[len(b.Instructions)-1]
	if !IsTerminator(last) {
		return nil
	}
	return last
}

// IsTerminated reports whether appending to b would be unreachable code.
func (b *BasicBlock) IsTerminated() bool {
	return b.Terminator() != nil
}

// Successors returns the targets of the block's terminator.
func (b *BasicBlock) Successors() []BlockID {
	return Successors(b.Terminator())
}

// ScopeRecord is the structural view of a materialized scope. Parent is the
// value the scope's @parent field was set to: an enclosing scope, the
// function's @parent parameter, or NoValue for the global scope.
type ScopeRecord struct {
	ID     ValueID
	Parent ValueID
}

// Value is an instruction operand.
type Value interface {
	ID() ValueID
	String() string
	isValue()
}

// Reference is the result of an earlier Call.
type Reference struct {
	Identifier ValueID
}

// Parameter is a function parameter. The first parameter of every function
// is "@parent", the enclosing scope at the call site.
type Parameter struct {
	Identifier ValueID
	Name       string
}

// ConstantKind is the type tag of a literal constant.
type ConstantKind string

const (
	NumberConstant    ConstantKind = "number"
	StringConstant    ConstantKind = "string"
	BooleanConstant   ConstantKind = "boolean"
	NullConstant      ConstantKind = "null"
	UndefinedConstant ConstantKind = "undefined"
	RegExpConstant    ConstantKind = "regexp"
	BigIntConstant    ConstantKind = "bigint"
)

// ParseConstantKind validates a textual constant kind.
func ParseConstantKind(s string) (ConstantKind, bool) {
	switch k := ConstantKind(s); k {
	case NumberConstant, StringConstant, BooleanConstant, NullConstant,
		UndefinedConstant, RegExpConstant, BigIntConstant:
		return k, true
	}
	return "", false
}

// Constant is a literal. Each distinct literal gets one ValueID per session.
type Constant struct {
	Identifier ValueID
	Kind       ConstantKind
	Text       string
}

func (r Reference) ID() ValueID { return r.Identifier }
func (p Parameter) ID() ValueID { return p.Identifier }
func (c Constant) ID() ValueID  { return c.Identifier }

func (r Reference) String() string { return r.Identifier.String() }
func (p Parameter) String() string { return "$" + strconv.Itoa(int(p.Identifier)) }
func (c Constant) String() string  { return "#" + strconv.Itoa(int(c.Identifier)) }

func (Reference) isValue() {}
func (Parameter) isValue() {}
func (Constant) isValue()  {}

// Instruction is the closed set of IR operations.
type Instruction interface {
	Location() ast.Location
	String() string
	isInstruction()
}

// Branch is an unconditional jump.
type Branch struct {
	Target BlockID
	Loc    ast.Location
}

// ConditionalBranch jumps to Consequent when Condition is truthy and to
// Alternate otherwise. It counts as a Branch for the single-terminator rule.
type ConditionalBranch struct {
	Condition  Value
	Consequent BlockID
	Alternate  BlockID
	Loc        ast.Location
}

// Call invokes a builtin or user function. Receiver may be nil.
type Call struct {
	Result     ValueID
	Receiver   Value
	Definition *FunctionDefinition
	Arguments  []Value
	Loc        ast.Location
}

// Return leaves the function with Value.
type Return struct {
	Value Value
	Loc   ast.Location
}

// Throw leaves the function exceptionally with Value.
type Throw struct {
	Value Value
	Loc   ast.Location
}

// NewBranch creates an unconditional branch.
func NewBranch(target BlockID, loc ast.Location) *Branch {
	return &Branch{Target: target, Loc: loc}
}

// NewConditionalBranch creates a two-way branch.
func NewConditionalBranch(condition Value, consequent, alternate BlockID, loc ast.Location) *ConditionalBranch {
	return &ConditionalBranch{Condition: condition, Consequent: consequent, Alternate: alternate, Loc: loc}
}

// NewCall creates a call. The argument slice is copied.
func NewCall(result ValueID, receiver Value, def *FunctionDefinition, args []Value, loc ast.Location) *Call {
	return &Call{
		Result:     result,
		Receiver:   receiver,
		Definition: def,
		Arguments:  append([]Value{}, args...),
		Loc:        loc,
	}
}

// NewReturn creates a return exit.
func NewReturn(value Value, loc ast.Location) *Return {
	return &Return{Value: value, Loc: loc}
}

// NewThrow creates a throw exit.
func NewThrow(value Value, loc ast.Location) *Throw {
	return &Throw{Value: value, Loc: loc}
}

func (i *Branch) Location() ast.Location            { return i.Loc }
func (i *ConditionalBranch) Location() ast.Location { return i.Loc }
func (i *Call) Location() ast.Location              { return i.Loc }
func (i *Return) Location() ast.Location            { return i.Loc }
func (i *Throw) Location() ast.Location             { return i.Loc }

func (*Branch) isInstruction()            {}
func (*ConditionalBranch) isInstruction() {}
func (*Call) isInstruction()              {}
func (*Return) isInstruction()            {}
func (*Throw) isInstruction()             {}

func (i *Branch) String() string { return "br " + i.Target.String() }

func (i *ConditionalBranch) String() string {
	return fmt.Sprintf("cbr %s %s %s", i.Condition, i.Consequent, i.Alternate)
}

func (i *Call) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s = call %s", i.Result, strconv.Quote(i.Definition.Name))
	if i.Receiver != nil {
		fmt.Fprintf(&sb, " on %s", i.Receiver)
	}
	sb.WriteString(" (")
	for n, arg := range i.Arguments {
		if n > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(arg.String())
	}
	sb.WriteString(")")
	return sb.String()
}

func (i *Return) String() string { return "ret " + i.Value.String() }
func (i *Throw) String() string  { return "throw " + i.Value.String() }

// IsTerminator reports whether inst ends a block.
func IsTerminator(inst Instruction) bool {
	switch inst.(type) {
	case *Branch, *ConditionalBranch, *Return, *Throw:
		return true
	}
	return false
}

// IsBranch reports whether inst is one of the branching terminators.
func IsBranch(inst Instruction) bool {
	switch inst.(type) {
	case *Branch, *ConditionalBranch:
		return true
	}
	return false
}

// Successors returns the blocks a terminator transfers control to.
func Successors(inst Instruction) []BlockID {
	switch t := inst.(type) {
	case *Branch:
		return []BlockID{t.Target}
	case *ConditionalBranch:
		if t.Consequent == t.Alternate {
			return []BlockID{t.Consequent}
		}
		return []BlockID{t.Consequent, t.Alternate}
	}
	return nil
}

// Operands returns the values an instruction reads, receiver first.
func Operands(inst Instruction) []Value {
	switch t := inst.(type) {
	case *ConditionalBranch:
		return []Value{t.Condition}
	case *Call:
		if t.Receiver == nil {
			return t.Arguments
		}
		return append([]Value{t.Receiver}, t.Arguments...)
	case *Return:
		return []Value{t.Value}
	case *Throw:
		return []Value{t.Value}
	}
	return nil
}
