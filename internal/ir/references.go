package ir

import "dbd/internal/ast"

// SymbolID identifies a resolved variable within one lowering session.
type SymbolID int

// Symbol is a resolved variable binding. Two occurrences of the same name
// that resolve to different declarations have different symbols.
type Symbol struct {
	ID   SymbolID
	Name string
	Decl ast.Position
}

// Access says whether an occurrence reads or writes its symbol.
type Access int

const (
	Read Access = iota + 1
	Write
)

func (a Access) String() string {
	if a == Write {
		return "write"
	}
	return "read"
}

// Occurrence is one read or write of a symbol, in evaluation order.
type Occurrence struct {
	Symbol *Symbol
	Access Access
	Loc    ast.Location
}

// ReferenceTable holds the occurrences recorded per block during lowering.
// It is the input of liveness analysis and is not part of the serialized IR.
type ReferenceTable map[BlockID][]Occurrence
