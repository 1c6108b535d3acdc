package ir

import (
	"dbd/internal/ast"
	"dbd/internal/errors"
)

// FunctionBuilder is the block manager of one function: an arena of blocks
// indexed by BlockID plus the index of the block currently written to.
// Blocks left behind when another block is promoted are sealed and can no
// longer receive instructions.
type FunctionBuilder struct {
	info    *FunctionInfo
	current BlockID
	sealed  []bool
	refs    ReferenceTable
}

// NewFunctionBuilder starts building info. There is no current block until
// the first PushBlock.
func NewFunctionBuilder(info *FunctionInfo) *FunctionBuilder {
	return &FunctionBuilder{
		info:    info,
		current: -1,
		refs:    ReferenceTable{},
	}
}

// Info returns the function being built.
func (b *FunctionBuilder) Info() *FunctionInfo {
	return b.info
}

// CreateBlock appends a new empty block to the arena.
func (b *FunctionBuilder) CreateBlock(loc ast.Location) BlockID {
	id := BlockID(len(b.info.Blocks))
	b.info.Blocks = append(b.info.Blocks, newBasicBlock(id, loc))
	b.sealed = append(b.sealed, false)
	return id
}

// CurrentBlock returns the block instructions are appended to.
func (b *FunctionBuilder) CurrentBlock() BlockID {
	return b.current
}

// PushBlock makes id current and seals the previous current block.
func (b *FunctionBuilder) PushBlock(id BlockID) {
	if b.info.Block(id) == nil {
		b.fail(errors.ErrorUnknownBlock, ast.Position{}, "cannot promote unknown block %s", id)
	}
	if b.sealed[id] {
		b.fail(errors.ErrorTerminatedBlock, b.info.Blocks[id].Loc.Start, "block %s was already left and cannot be reopened", id)
	}
	if b.current >= 0 && b.current != id {
		b.sealed[b.current] = true
	}
	b.current = id
}

// IsTerminated reports whether the block ends in a terminator.
func (b *FunctionBuilder) IsTerminated(id BlockID) bool {
	block := b.info.Block(id)
	return block != nil && block.IsTerminated()
}

// CurrentIsTerminated is IsTerminated for the current block.
func (b *FunctionBuilder) CurrentIsTerminated() bool {
	return b.IsTerminated(b.current)
}

// Append adds inst to the current block. Appending after a terminator, or
// branching to a block outside the arena, is an invariant violation.
func (b *FunctionBuilder) Append(inst Instruction) {
	block := b.info.Block(b.current)
	if block == nil {
		b.fail(errors.ErrorUnknownBlock, inst.Location().Start, "no current block to append %q to", inst.String())
	}
	if block.IsTerminated() {
		b.fail(errors.ErrorTerminatedBlock, inst.Location().Start, "cannot append %q to terminated block %s", inst.String(), block.ID)
	}
	for _, target := range Successors(inst) {
		if b.info.Block(target) == nil {
			b.fail(errors.ErrorUnknownBlock, inst.Location().Start, "branch to unknown block %s", target)
		}
	}
	block.Instructions = append(block.Instructions, inst)
}

// Branch terminates the current block with a jump to target.
func (b *FunctionBuilder) Branch(target BlockID, loc ast.Location) {
	b.Append(NewBranch(target, loc))
}

// BranchIfOpen jumps to target unless the current block already terminated.
func (b *FunctionBuilder) BranchIfOpen(target BlockID, loc ast.Location) {
	if !b.CurrentIsTerminated() {
		b.Branch(target, loc)
	}
}

// Open ensures there is an open current block, starting a fresh block with
// no predecessor after a terminator. Statements following a return or a
// jump land there.
func (b *FunctionBuilder) Open(loc ast.Location) BlockID {
	if b.current < 0 || b.CurrentIsTerminated() {
		b.PushBlock(b.CreateBlock(loc))
	}
	return b.current
}

// DeclareScope records a materialized scope in the function's scope table.
func (b *FunctionBuilder) DeclareScope(record ScopeRecord) {
	for _, existing := range b.info.Scopes {
		if existing.ID == record.ID {
			b.fail(errors.ErrorParentRelinked, ast.Position{}, "scope %s already linked to %s", record.ID, existing.Parent)
		}
	}
	b.info.Scopes = append(b.info.Scopes, record)
}

// Record notes a variable occurrence in the current block.
func (b *FunctionBuilder) Record(ref Occurrence) {
	if b.current < 0 {
		return
	}
	b.refs[b.current] = append(b.refs[b.current], ref)
}

// References returns the occurrences recorded so far, keyed by block.
func (b *FunctionBuilder) References() ReferenceTable {
	return b.refs
}

func (b *FunctionBuilder) fail(code string, pos ast.Position, format string, args ...any) {
	violation := errors.Invariantf(code, pos, format, args...)
	if b.info.Definition != nil {
		violation.Function = b.info.Definition.Name
	}
	panic(violation)
}
