// Package lva computes live variables over the blocks of a lowered function.
//
// The analysis is the classic backward dataflow problem. Each block gets
//
//	gen  = variables read before any write in the block
//	kill = variables written in the block
//	out  = union of in over the successors
//	in   = gen ∪ (out − kill)
//
// and the equations are solved with a worklist that holds block indices and
// a membership set, re-enqueueing the predecessors of every block whose in
// set grew.
package lva

import (
	"strings"

	"dbd/internal/ir"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("dbd.lva")

// LiveVariables is the dataflow state of one block.
type LiveVariables struct {
	Block ir.BlockID
	Gen   Set
	Kill  Set
	In    Set
	Out   Set
	// References are the block's occurrences in evaluation order.
	References []ir.Occurrence
}

func newLiveVariables(id ir.BlockID, refs []ir.Occurrence) *LiveVariables {
	lv := &LiveVariables{
		Block:      id,
		Gen:        Set{},
		Kill:       Set{},
		In:         Set{},
		Out:        Set{},
		References: refs,
	}
	for _, ref := range refs {
		switch ref.Access {
		case ir.Read:
			if !lv.Kill.Has(ref.Symbol) {
				lv.Gen.Add(ref.Symbol)
			}
		case ir.Write:
			lv.Kill.Add(ref.Symbol)
		}
	}
	return lv
}

// Table holds the solved liveness of one function, indexed by block id.
type Table struct {
	Function string
	Blocks   []*LiveVariables
	// Steps counts the worklist pops it took to reach the fixpoint.
	Steps int
}

// Block returns the liveness of the block with the given id, or nil.
func (t *Table) Block(id ir.BlockID) *LiveVariables {
	if id < 0 || int(id) >= len(t.Blocks) {
		return nil
	}
	return t.Blocks[id]
}

// Analyze solves liveness for fn using the occurrences recorded while it was
// lowered. Blocks without occurrences take part with empty gen and kill.
func Analyze(fn *ir.FunctionInfo, refs ir.ReferenceTable) *Table {
	t := &Table{Function: fn.ID, Blocks: make([]*LiveVariables, len(fn.Blocks))}
	for i, block := range fn.Blocks {
		t.Blocks[i] = newLiveVariables(block.ID, refs[block.ID])
	}

	preds := predecessors(fn)
	work := newWorklist(len(fn.Blocks))
	for i := range fn.Blocks {
		work.push(i)
	}
	for !work.empty() {
		i := work.pop()
		t.Steps++
		if t.propagate(fn.Blocks[i]) {
			for _, p := range preds[i] {
				work.push(int(p))
			}
		}
	}
	log.Debugf("liveness of %s solved in %d steps over %d blocks", fn.ID, t.Steps, len(fn.Blocks))
	return t
}

// propagate recomputes out and in for block and reports whether in grew.
func (t *Table) propagate(block *ir.BasicBlock) bool {
	lv := t.Blocks[block.ID]
	out := Set{}
	for _, succ := range block.Successors() {
		out.AddAll(t.Blocks[succ].In)
	}
	lv.Out = out

	grew := lv.In.AddAll(lv.Gen)
	if lv.In.AddAll(out.Minus(lv.Kill)) {
		grew = true
	}
	return grew
}

func predecessors(fn *ir.FunctionInfo) [][]ir.BlockID {
	preds := make([][]ir.BlockID, len(fn.Blocks))
	for _, block := range fn.Blocks {
		for _, succ := range block.Successors() {
			preds[succ] = append(preds[succ], block.ID)
		}
	}
	return preds
}

// worklist is a stack of block indices. A block is never queued twice.
type worklist struct {
	items  []int
	queued []bool
}

func newWorklist(n int) *worklist {
	return &worklist{items: make([]int, 0, n), queued: make([]bool, n)}
}

func (w *worklist) push(i int) {
	if w.queued[i] {
		return
	}
	w.queued[i] = true
	w.items = append(w.items, i)
}

func (w *worklist) pop() int {
	i := w.items[len(w.items)-1]
	w.items = w.items[:len(w.items)-1]
	w.queued[i] = false
	return i
}

func (w *worklist) empty() bool {
	return len(w.items) == 0
}

// DeadStores returns, for every block, the writes whose value no later read
// can observe: walking the block's occurrences backwards from out, a write to
// a variable that is not live at that point is dead.
func (t *Table) DeadStores() map[ir.BlockID][]ir.Occurrence {
	dead := map[ir.BlockID][]ir.Occurrence{}
	for _, lv := range t.Blocks {
		live := lv.Out.Clone()
		var found []ir.Occurrence
		for i := len(lv.References) - 1; i >= 0; i-- {
			ref := lv.References[i]
			switch ref.Access {
			case ir.Write:
				if !live.Has(ref.Symbol) {
					found = append(found, ref)
				}
				live.Remove(ref.Symbol)
			case ir.Read:
				live.Add(ref.Symbol)
			}
		}
		if len(found) == 0 {
			continue
		}
		// back to evaluation order
		for i, j := 0, len(found)-1; i < j; i, j = i+1, j-1 {
			found[i], found[j] = found[j], found[i]
		}
		dead[lv.Block] = found
	}
	return dead
}

// Annotations returns a printer callback listing each block's live-in and
// live-out variables.
func (t *Table) Annotations() func(ir.BlockID) []string {
	return func(id ir.BlockID) []string {
		lv := t.Block(id)
		if lv == nil {
			return nil
		}
		return []string{
			"live-in: " + strings.Join(lv.In.Names(), ", "),
			"live-out: " + strings.Join(lv.Out.Names(), ", "),
		}
	}
}
