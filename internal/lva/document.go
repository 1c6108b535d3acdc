package lva

import (
	"encoding/json"
	"fmt"

	"dbd/internal/ir"
)

// Document is the JSON form of a Table, written next to the IR files as
// <basename>_<id>.liveness.json.
type Document struct {
	Function string          `json:"function"`
	Blocks   []BlockDocument `json:"blocks"`
}

type BlockDocument struct {
	Block      int             `json:"block"`
	Gen        []string        `json:"gen"`
	Kill       []string        `json:"kill"`
	In         []string        `json:"in"`
	Out        []string        `json:"out"`
	DeadStores []StoreDocument `json:"deadStores,omitempty"`
}

type StoreDocument struct {
	Variable string `json:"variable"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
}

// ToDocument converts t for serialization. Set members are listed by name in
// declaration order.
func (t *Table) ToDocument() *Document {
	dead := t.DeadStores()
	doc := &Document{Function: t.Function, Blocks: make([]BlockDocument, 0, len(t.Blocks))}
	for _, lv := range t.Blocks {
		block := BlockDocument{
			Block: int(lv.Block),
			Gen:   lv.Gen.Names(),
			Kill:  lv.Kill.Names(),
			In:    lv.In.Names(),
			Out:   lv.Out.Names(),
		}
		for _, store := range dead[lv.Block] {
			block.DeadStores = append(block.DeadStores, StoreDocument{
				Variable: store.Symbol.Name,
				Line:     store.Loc.Start.Line,
				Column:   store.Loc.Start.Column,
			})
		}
		doc.Blocks = append(doc.Blocks, block)
	}
	return doc
}

// MarshalJSON renders t as an indented Document.
func (t *Table) MarshalJSON() ([]byte, error) {
	data, err := json.MarshalIndent(t.ToDocument(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal liveness of %s: %w", t.Function, err)
	}
	return data, nil
}

// LiveIn returns the names live on entry to block id.
func (d *Document) LiveIn(id ir.BlockID) []string {
	for _, b := range d.Blocks {
		if b.Block == int(id) {
			return b.In
		}
	}
	return nil
}
