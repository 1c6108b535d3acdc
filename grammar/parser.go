package grammar

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"dbd/internal/ast"
	"dbd/internal/ir"

	"github.com/alecthomas/participle/v2"
	"github.com/fatih/color"
)

func buildParser() (*participle.Parser[Dump], error) {
	return participle.Build[Dump](
		participle.Lexer(DumpLexer),
		participle.Unquote("String"),
		participle.Elide("Whitespace", "Comment"),
		participle.UseLookahead(2),
	)
}

// ParseFile reads and parses a text dump, reporting syntax errors to stderr.
func ParseFile(path string) ([]*ir.FunctionInfo, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	functions, err := ParseDump(path, string(source))
	if err != nil {
		ReportParseError(os.Stderr, string(source), err)
		return nil, err
	}
	return functions, nil
}

// ParseDump parses the text form of one or more functions back into IR.
// The result is validated like any other decoded IR.
func ParseDump(filename, source string) ([]*ir.FunctionInfo, error) {
	parser, err := buildParser()
	if err != nil {
		return nil, fmt.Errorf("failed to build parser: %w", err)
	}
	dump, err := parser.ParseString(filename, source)
	if err != nil {
		return nil, err
	}
	functions := make([]*ir.FunctionInfo, 0, len(dump.Functions))
	for _, fn := range dump.Functions {
		info, err := convertFunction(fn)
		if err != nil {
			return nil, fmt.Errorf("%s: function %s: %w", fn.Pos, fn.ID, err)
		}
		if err := ir.Validate(info); err != nil {
			return nil, fmt.Errorf("%s: function %s: %w", fn.Pos, fn.ID, err)
		}
		functions = append(functions, info)
	}
	return functions, nil
}

// ReportParseError prints a friendly caret-style parse error message.
func ReportParseError(w io.Writer, src string, err error) {
	red := color.New(color.FgRed)
	pe, ok := err.(participle.Error)
	if !ok {
		red.Fprintf(w, "Unexpected error: %s\n", err)
		return
	}

	pos := pe.Position()
	lines := strings.Split(src, "\n")
	if pos.Line <= 0 || pos.Line > len(lines) {
		red.Fprintf(w, "Syntax error at unknown location: %s\n", err)
		return
	}

	line := lines[pos.Line-1]
	caret := strings.Repeat(" ", max(pos.Column-1, 0)) + "^"

	red.Fprintf(w, "Syntax error in %s at line %d, column %d:\n", pos.Filename, pos.Line, pos.Column)
	fmt.Fprintln(w, line)
	color.New(color.FgHiRed).Fprintln(w, caret)
	fmt.Fprintf(w, "→ %s\n", pe.Message())
}

type converter struct {
	file   string
	params map[ir.ValueID]string
	consts map[ir.ValueID]ir.Constant
}

func convertFunction(fn *Function) (*ir.FunctionInfo, error) {
	info := ir.NewFunctionInfo(fn.ID, fn.File, &ir.FunctionDefinition{Name: fn.Name, Signature: fn.Signature})
	c := &converter{
		file:   fn.File,
		params: map[ir.ValueID]string{},
		consts: map[ir.ValueID]ir.Constant{},
	}

	for _, p := range fn.Params {
		id, err := number(p.ID, "$")
		if err != nil {
			return nil, err
		}
		c.params[ir.ValueID(id)] = p.Name
		info.Parameters = append(info.Parameters, &ir.Parameter{Identifier: ir.ValueID(id), Name: p.Name})
	}
	for _, k := range fn.Consts {
		id, err := number(k.ID, "#")
		if err != nil {
			return nil, err
		}
		kind, ok := ir.ParseConstantKind(k.Kind)
		if !ok {
			return nil, fmt.Errorf("%s: unknown constant kind %q", k.Pos, k.Kind)
		}
		c.consts[ir.ValueID(id)] = ir.Constant{Identifier: ir.ValueID(id), Kind: kind, Text: k.Text}
	}
	for _, s := range fn.Scopes {
		id, err := number(s.ID, "%")
		if err != nil {
			return nil, err
		}
		record := ir.ScopeRecord{ID: ir.ValueID(id), Parent: ir.NoValue}
		if s.Parent != "" {
			parent, err := number(s.Parent, "%")
			if err != nil {
				return nil, err
			}
			record.Parent = ir.ValueID(parent)
		}
		info.Scopes = append(info.Scopes, record)
	}

	for _, b := range fn.Blocks {
		id, err := number(b.Label, "bb")
		if err != nil {
			return nil, err
		}
		block := ir.NewBasicBlock(ir.BlockID(id), location(b.Loc))
		for _, inst := range b.Instructions {
			converted, err := c.instruction(inst)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", inst.Pos, err)
			}
			block.Instructions = append(block.Instructions, converted)
		}
		info.Blocks = append(info.Blocks, block)
	}
	return info, nil
}

func (c *converter) instruction(inst *Instruction) (ir.Instruction, error) {
	switch {
	case inst.Call != nil:
		call := inst.Call
		result, err := number(call.Result, "%")
		if err != nil {
			return nil, err
		}
		def, err := c.definition(call.Name)
		if err != nil {
			return nil, err
		}
		var receiver ir.Value
		if call.Receiver != nil {
			if receiver, err = c.operand(call.Receiver); err != nil {
				return nil, err
			}
		}
		args := make([]ir.Value, 0, len(call.Arguments))
		for _, a := range call.Arguments {
			v, err := c.operand(a)
			if err != nil {
				return nil, err
			}
			args = append(args, v)
		}
		return ir.NewCall(ir.ValueID(result), receiver, def, args, location(call.Loc)), nil

	case inst.Branch != nil:
		target, err := number(inst.Branch.Target, "bb")
		if err != nil {
			return nil, err
		}
		return ir.NewBranch(ir.BlockID(target), location(inst.Branch.Loc)), nil

	case inst.Conditional != nil:
		cbr := inst.Conditional
		cond, err := c.operand(cbr.Condition)
		if err != nil {
			return nil, err
		}
		consequent, err := number(cbr.Consequent, "bb")
		if err != nil {
			return nil, err
		}
		alternate, err := number(cbr.Alternate, "bb")
		if err != nil {
			return nil, err
		}
		return ir.NewConditionalBranch(cond, ir.BlockID(consequent), ir.BlockID(alternate), location(cbr.Loc)), nil

	case inst.Return != nil:
		v, err := c.operand(inst.Return.Value)
		if err != nil {
			return nil, err
		}
		return ir.NewReturn(v, location(inst.Return.Loc)), nil

	case inst.Throw != nil:
		v, err := c.operand(inst.Throw.Value)
		if err != nil {
			return nil, err
		}
		return ir.NewThrow(v, location(inst.Throw.Loc)), nil
	}
	return nil, fmt.Errorf("empty instruction")
}

// definition resolves a call target. Builtins must be in the catalog; any
// other name is a user function of the dumped file.
func (c *converter) definition(name string) (*ir.FunctionDefinition, error) {
	if strings.HasPrefix(name, "#") {
		return ir.LookupBuiltin(name)
	}
	return ir.UserFunction(name, c.file), nil
}

func (c *converter) operand(op *Operand) (ir.Value, error) {
	switch op.Text[0] {
	case '$':
		id, err := number(op.Text, "$")
		if err != nil {
			return nil, err
		}
		name, ok := c.params[ir.ValueID(id)]
		if !ok {
			return nil, fmt.Errorf("%s: undeclared parameter %s", op.Pos, op.Text)
		}
		return ir.Parameter{Identifier: ir.ValueID(id), Name: name}, nil
	case '#':
		id, err := number(op.Text, "#")
		if err != nil {
			return nil, err
		}
		constant, ok := c.consts[ir.ValueID(id)]
		if !ok {
			return nil, fmt.Errorf("%s: undeclared constant %s", op.Pos, op.Text)
		}
		return constant, nil
	}
	id, err := number(op.Text, "%")
	if err != nil {
		return nil, err
	}
	return ir.Reference{Identifier: ir.ValueID(id)}, nil
}

func number(token, prefix string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(token, prefix))
	if err != nil {
		return 0, fmt.Errorf("malformed name %q: %w", token, err)
	}
	return n, nil
}

func location(loc *Location) ast.Location {
	if loc == nil {
		return ast.Location{}
	}
	return ast.Location{
		Start: ast.Position{Line: loc.StartLine, Column: loc.StartColumn, Offset: loc.StartOffset},
		End:   ast.Position{Line: loc.EndLine, Column: loc.EndColumn, Offset: loc.EndOffset},
	}
}
