package ir

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Validate checks the structural invariants of a lowered function: dense
// block numbering, at most one terminator per block and only in last
// position, branch targets inside the arena, builtin names from the catalog
// and one scope record per scope. It returns all violations joined.
func Validate(fn *FunctionInfo) error {
	var errs []error
	for index, block := range fn.Blocks {
		if int(block.ID) != index {
			errs = append(errs, fmt.Errorf("block at index %d has id %s", index, block.ID))
		}
		for i, inst := range block.Instructions {
			if IsTerminator(inst) && i != len(block.Instructions)-1 {
				errs = append(errs, fmt.Errorf("%s: terminator %q is not the last instruction", block.ID, inst))
			}
			for _, target := range Successors(inst) {
				if fn.Block(target) == nil {
					errs = append(errs, fmt.Errorf("%s: branch to unknown block %s", block.ID, target))
				}
			}
			if call, ok := inst.(*Call); ok && strings.HasPrefix(call.Definition.Name, "#") {
				if _, err := LookupBuiltin(call.Definition.Name); err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", block.ID, err))
				}
			}
		}
	}
	seen := map[ValueID]bool{}
	for _, scope := range fn.Scopes {
		if seen[scope.ID] {
			errs = append(errs, fmt.Errorf("scope %s recorded twice", scope.ID))
		}
		seen[scope.ID] = true
	}
	return stderrors.Join(errs...)
}
