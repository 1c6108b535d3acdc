package lva

import (
	"sort"

	"dbd/internal/ir"
)

// Set is a set of variables keyed by symbol id.
type Set map[ir.SymbolID]*ir.Symbol

// NewSet returns a set holding the given symbols.
func NewSet(symbols ...*ir.Symbol) Set {
	s := Set{}
	for _, sym := range symbols {
		s.Add(sym)
	}
	return s
}

// Add inserts sym and reports whether it was missing.
func (s Set) Add(sym *ir.Symbol) bool {
	if _, ok := s[sym.ID]; ok {
		return false
	}
	s[sym.ID] = sym
	return true
}

func (s Set) Has(sym *ir.Symbol) bool {
	_, ok := s[sym.ID]
	return ok
}

func (s Set) Remove(sym *ir.Symbol) {
	delete(s, sym.ID)
}

func (s Set) Clone() Set {
	out := make(Set, len(s))
	for id, sym := range s {
		out[id] = sym
	}
	return out
}

// AddAll inserts every member of other and reports whether s grew.
func (s Set) AddAll(other Set) bool {
	grew := false
	for _, sym := range other {
		if s.Add(sym) {
			grew = true
		}
	}
	return grew
}

// Minus returns the members of s that are not in other.
func (s Set) Minus(other Set) Set {
	out := Set{}
	for id, sym := range s {
		if _, ok := other[id]; !ok {
			out[id] = sym
		}
	}
	return out
}

// Symbols returns the members ordered by symbol id.
func (s Set) Symbols() []*ir.Symbol {
	out := make([]*ir.Symbol, 0, len(s))
	for _, sym := range s {
		out = append(out, sym)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Names returns the member names ordered by symbol id.
func (s Set) Names() []string {
	symbols := s.Symbols()
	out := make([]string, len(symbols))
	for i, sym := range symbols {
		out[i] = sym.Name
	}
	return out
}
