// Package script runs Risor scripts against a lowered program.
//
// Scripts see a global "functions" list with one map per unit:
//
//	{"id": "main", "name": "main", "signature": "app.js.main",
//	 "params": ["@parent", ...],
//	 "blocks": [{"id": 0, "instructions": [...], "successors": [1],
//	             "live_in": [...], "live_out": [...], "dead_stores": [...]}]}
//
// plus the host functions successors(fn, block) and print_ir(fn), where fn
// is a unit id or one of the maps above.
package script

import (
	"context"
	"fmt"
	"os"

	"dbd/internal/lower"
	"dbd/internal/lva"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/object"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("dbd.script")

// Runtime evaluates scripts over the units of one lowering result.
type Runtime struct {
	units  []*lower.Unit
	tables map[string]*lva.Table
}

// NewRuntime solves liveness for every unit of result up front.
func NewRuntime(result *lower.Result) *Runtime {
	r := &Runtime{units: result.Units, tables: map[string]*lva.Table{}}
	for _, unit := range result.Units {
		r.tables[unit.Info.ID] = lva.Analyze(unit.Info, unit.References)
	}
	return r
}

// RunFile loads and evaluates the script at path.
func (r *Runtime) RunFile(ctx context.Context, path string) (any, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("script: loading %s: %w", path, err)
	}
	return r.eval(ctx, string(src), path)
}

// RunSource evaluates source and returns the value of its last expression
// converted to Go.
func (r *Runtime) RunSource(ctx context.Context, source string) (any, error) {
	return r.eval(ctx, source, "<inline>")
}

func (r *Runtime) eval(ctx context.Context, source, label string) (any, error) {
	var opts []risor.Option
	for name, val := range r.globals() {
		opts = append(opts, risor.WithGlobal(name, val))
	}
	log.Debugf("evaluating %s over %d units", label, len(r.units))
	result, err := risor.Eval(ctx, source, opts...)
	if err != nil {
		return nil, fmt.Errorf("script %s: %w", label, err)
	}
	if result == nil {
		return nil, nil
	}
	return result.Interface(), nil
}

func (r *Runtime) globals() map[string]any {
	functions := make([]object.Object, 0, len(r.units))
	for _, unit := range r.units {
		functions = append(functions, r.functionObject(unit))
	}
	return map[string]any{
		"functions":  object.NewList(functions),
		"successors": makeSuccessorsFn(r),
		"print_ir":   makePrintIRFn(r),
	}
}

// unit finds a unit by id.
func (r *Runtime) unit(id string) *lower.Unit {
	for _, u := range r.units {
		if u.Info.ID == id {
			return u
		}
	}
	return nil
}
