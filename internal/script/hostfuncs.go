package script

import (
	"context"

	"dbd/internal/ir"
	"dbd/internal/lower"

	"github.com/risor-io/risor/object"
)

func stringList(values []string) object.Object {
	items := make([]object.Object, len(values))
	for i, v := range values {
		items[i] = object.NewString(v)
	}
	return object.NewList(items)
}

func blockIDs(ids []ir.BlockID) object.Object {
	items := make([]object.Object, len(ids))
	for i, id := range ids {
		items[i] = object.NewInt(int64(id))
	}
	return object.NewList(items)
}

// functionObject converts a unit to the map scripts see.
func (r *Runtime) functionObject(unit *lower.Unit) object.Object {
	info := unit.Info
	table := r.tables[info.ID]
	dead := table.DeadStores()

	params := make([]string, len(info.Parameters))
	for i, p := range info.Parameters {
		params[i] = p.Name
	}

	blocks := make([]object.Object, 0, len(info.Blocks))
	for _, block := range info.Blocks {
		instructions := make([]string, len(block.Instructions))
		for i, inst := range block.Instructions {
			instructions[i] = inst.String()
		}
		var stores []string
		for _, occ := range dead[block.ID] {
			stores = append(stores, occ.Symbol.Name)
		}
		lv := table.Block(block.ID)
		blocks = append(blocks, object.NewMap(map[string]object.Object{
			"id":           object.NewInt(int64(block.ID)),
			"instructions": stringList(instructions),
			"successors":   blockIDs(block.Successors()),
			"live_in":      stringList(lv.In.Names()),
			"live_out":     stringList(lv.Out.Names()),
			"dead_stores":  stringList(stores),
		}))
	}

	return object.NewMap(map[string]object.Object{
		"id":        object.NewString(info.ID),
		"name":      object.NewString(info.Definition.Name),
		"signature": object.NewString(info.Definition.Signature),
		"params":    stringList(params),
		"blocks":    object.NewList(blocks),
	})
}

// unitArg resolves a function argument given as an id or a function map.
func (r *Runtime) unitArg(name string, arg object.Object) (*lower.Unit, *object.Error) {
	var id string
	switch v := arg.(type) {
	case *object.String:
		id = v.Value()
	case *object.Map:
		s, ok := v.Value()["id"].(*object.String)
		if !ok {
			return nil, object.Errorf("%s: function map has no string id", name)
		}
		id = s.Value()
	default:
		return nil, object.Errorf("%s: expected a function id or map, got %s", name, arg.Type())
	}
	unit := r.unit(id)
	if unit == nil {
		return nil, object.Errorf("%s: no function %q", name, id)
	}
	return unit, nil
}

// makeSuccessorsFn creates the "successors" host function.
//
// successors(fn, block) → list of block ids
func makeSuccessorsFn(r *Runtime) *object.Builtin {
	return object.NewBuiltin("successors", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("successors", 2, len(args))
		}
		unit, errObj := r.unitArg("successors", args[0])
		if errObj != nil {
			return errObj
		}
		id, ok := args[1].(*object.Int)
		if !ok {
			return object.Errorf("successors: block must be an int, got %s", args[1].Type())
		}
		block := unit.Info.Block(ir.BlockID(id.Value()))
		if block == nil {
			return object.Errorf("successors: function %s has no block %d", unit.Info.ID, id.Value())
		}
		return blockIDs(block.Successors())
	})
}

// makePrintIRFn creates the "print_ir" host function.
//
// print_ir(fn) → text dump annotated with liveness
func makePrintIRFn(r *Runtime) *object.Builtin {
	return object.NewBuiltin("print_ir", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("print_ir", 1, len(args))
		}
		unit, errObj := r.unitArg("print_ir", args[0])
		if errObj != nil {
			return errObj
		}
		printer := ir.NewPrinter().WithAnnotations(r.tables[unit.Info.ID].Annotations())
		return object.NewString(printer.Print(unit.Info))
	})
}
