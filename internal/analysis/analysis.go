// Package analysis runs the whole pipeline over one source file: parse,
// lower every function, solve liveness per unit and collect diagnostics.
package analysis

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"sort"

	"dbd/internal/ast"
	"dbd/internal/errors"
	"dbd/internal/ir"
	"dbd/internal/lower"
	"dbd/internal/lva"
	"dbd/internal/parser"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("dbd.analysis")

// Analysis is the outcome of running the pipeline over one file.
type Analysis struct {
	Path        string
	Source      []byte
	Program     *ast.Program
	ParseErrors []parser.ParseError
	Result      *lower.Result
	// Tables maps unit ids to their solved liveness.
	Tables map[string]*lva.Table
}

// Run analyzes source as the contents of path. When opts.FileName is empty
// the base name of path is used. The error result reports failures of the
// front end itself; syntax errors end up in ParseErrors and lowering goes
// ahead on the recovered tree.
func Run(ctx context.Context, path string, source []byte, opts lower.Options) (*Analysis, error) {
	if opts.FileName == "" {
		opts.FileName = filepath.Base(path)
	}
	program, syntaxErrors, err := parser.Parse(ctx, path, source)
	if err != nil {
		return nil, err
	}
	a := FromProgram(program, opts)
	a.Path = path
	a.Source = source
	a.ParseErrors = syntaxErrors
	return a, nil
}

// FromProgram lowers and analyzes an already parsed program.
func FromProgram(program *ast.Program, opts lower.Options) *Analysis {
	result := lower.Transpile(program, opts)
	a := &Analysis{
		Path:    opts.FileName,
		Program: program,
		Result:  result,
		Tables:  make(map[string]*lva.Table, len(result.Units)),
	}
	for _, unit := range result.Units {
		a.Tables[unit.Info.ID] = lva.Analyze(unit.Info, unit.References)
	}
	log.Debugf("%s: %d units, %d skipped, %d errors", opts.FileName, len(result.Units), len(result.Skipped), len(result.Errors))
	return a
}

// Table returns the liveness of a unit, or nil.
func (a *Analysis) Table(id string) *lva.Table {
	return a.Tables[id]
}

// HasErrors reports whether the file failed to parse or a function was
// aborted during lowering.
func (a *Analysis) HasErrors() bool {
	return len(a.ParseErrors) > 0 || len(a.Result.Errors) > 0
}

// Diagnostics returns every diagnostic ordered by position: syntax errors,
// invariant violations, skipped constructs, dead stores and unreachable
// code.
func (a *Analysis) Diagnostics() []errors.CompilerError {
	var out []errors.CompilerError
	for _, e := range a.ParseErrors {
		out = append(out, e.Diagnostic())
	}
	for _, err := range a.Result.Errors {
		var violation *errors.InvariantViolation
		if stderrors.As(err, &violation) {
			out = append(out, violation.Diagnostic())
		}
	}
	for _, skipped := range a.Result.Skipped {
		out = append(out, skipped.Diagnostic())
	}
	out = append(out, a.deadStores()...)
	out = append(out, a.unreachable()...)

	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].Position, out[j].Position
		if pi.Line != pj.Line {
			return pi.Line < pj.Line
		}
		return pi.Column < pj.Column
	})
	return out
}

// deadStores warns about writes no path reads. Symbols that occur in more
// than one unit are left out: another function may read them.
func (a *Analysis) deadStores() []errors.CompilerError {
	units := map[ir.SymbolID]map[string]bool{}
	for _, unit := range a.Result.Units {
		for _, occs := range unit.References {
			for _, occ := range occs {
				if units[occ.Symbol.ID] == nil {
					units[occ.Symbol.ID] = map[string]bool{}
				}
				units[occ.Symbol.ID][unit.Info.ID] = true
			}
		}
	}

	var out []errors.CompilerError
	for _, unit := range a.Result.Units {
		dead := a.Tables[unit.Info.ID].DeadStores()
		for _, block := range unit.Info.Blocks {
			for _, occ := range dead[block.ID] {
				if len(units[occ.Symbol.ID]) > 1 {
					continue
				}
				out = append(out, errors.DeadStore(occ.Symbol.Name, occ.Loc.Start))
			}
		}
	}
	return out
}

// unreachable warns once per block no path from the entry reaches. Blocks
// holding only the implicit return carry no source and are not reported.
func (a *Analysis) unreachable() []errors.CompilerError {
	var out []errors.CompilerError
	for _, unit := range a.Result.Units {
		blocks := unit.Info.Blocks
		if len(blocks) == 0 {
			continue
		}
		seen := make([]bool, len(blocks))
		stack := []ir.BlockID{blocks[0].ID}
		seen[blocks[0].ID] = true
		for len(stack) > 0 {
			id := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, succ := range unit.Info.Block(id).Successors() {
				if int(succ) < len(seen) && !seen[succ] {
					seen[succ] = true
					stack = append(stack, succ)
				}
			}
		}

		for _, block := range blocks {
			if seen[block.ID] {
				continue
			}
			for _, inst := range block.Instructions {
				loc := inst.Location()
				if loc.Start.Line == 0 || loc.Start == loc.End || ir.IsBranch(inst) {
					continue
				}
				length := 1
				if loc.End.Line == loc.Start.Line {
					length = loc.End.Column - loc.Start.Column
				}
				out = append(out, errors.Unreachable(loc.Start, length))
				break
			}
		}
	}
	return out
}

// BlockAt finds the block holding the narrowest instruction that covers pos.
// It returns nil when no instruction does.
func (a *Analysis) BlockAt(pos ast.Position) (*lower.Unit, *ir.BasicBlock) {
	var (
		bestUnit  *lower.Unit
		bestBlock *ir.BasicBlock
		bestSpan  = -1
	)
	for _, unit := range a.Result.Units {
		for _, block := range unit.Info.Blocks {
			for _, inst := range block.Instructions {
				loc := inst.Location()
				if loc.Start.Line == 0 || !loc.Contains(pos) {
					continue
				}
				span := loc.End.Offset - loc.Start.Offset
				if bestSpan < 0 || span < bestSpan {
					bestUnit, bestBlock, bestSpan = unit, block, span
				}
			}
		}
	}
	return bestUnit, bestBlock
}
