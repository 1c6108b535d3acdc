package ir

import (
	"fmt"
	"strconv"
	"strings"

	"dbd/internal/ast"
)

// Printer renders FunctionInfos as the text dump. The dump is parsed back by
// the grammar package, so any change here must be mirrored there.
type Printer struct {
	indent   int
	output   strings.Builder
	annotate func(BlockID) []string
}

// NewPrinter creates a new IR printer
func NewPrinter() *Printer {
	return &Printer{indent: 0}
}

// WithAnnotations sets a callback whose lines are printed as comments
// under each block header.
func (p *Printer) WithAnnotations(annotate func(BlockID) []string) *Printer {
	p.annotate = annotate
	return p
}

// Print returns the text dump of the given functions
func Print(functions ...*FunctionInfo) string {
	p := NewPrinter()
	return p.Print(functions...)
}

// Print renders the functions, separated by blank lines
func (p *Printer) Print(functions ...*FunctionInfo) string {
	p.output.Reset()
	for i, fn := range functions {
		if i > 0 {
			p.writeLine("")
		}
		p.printFunction(fn)
	}
	return p.output.String()
}

// Helper methods

func (p *Printer) writeIndent() {
	for i := 0; i < p.indent; i++ {
		p.output.WriteString("  ")
	}
}

func (p *Printer) writeLine(format string, args ...interface{}) {
	if format == "" {
		p.output.WriteString("\n")
		return
	}
	p.writeIndent()
	p.output.WriteString(fmt.Sprintf(format, args...))
	p.output.WriteString("\n")
}

func (p *Printer) printFunction(fn *FunctionInfo) {
	def := fn.Definition
	p.writeLine("function %s %s %s", fn.ID, strconv.Quote(def.Name), strconv.Quote(def.Signature))
	p.writeLine("file %s", strconv.Quote(fn.FileName))
	for _, param := range fn.Parameters {
		p.writeLine("param %s %s", param, strconv.Quote(param.Name))
	}
	for _, c := range Constants(fn) {
		p.writeLine("const %s %s %s", c, c.Kind, strconv.Quote(c.Text))
	}
	for _, scope := range fn.Scopes {
		if scope.Parent == NoValue {
			p.writeLine("scope %s parent none", scope.ID)
		} else {
			p.writeLine("scope %s parent %s", scope.ID, scope.Parent)
		}
	}
	for _, block := range fn.Blocks {
		p.printBasicBlock(block)
	}
	p.writeLine("end")
}

func (p *Printer) printBasicBlock(block *BasicBlock) {
	p.writeLine("%s %s {", block.ID, formatLocation(block.Loc))
	p.indent++
	if p.annotate != nil {
		for _, line := range p.annotate(block.ID) {
			p.writeLine("; %s", line)
		}
	}
	for _, inst := range block.Instructions {
		p.writeLine("%s %s", inst, formatLocation(inst.Location()))
	}
	p.indent--
	p.writeLine("}")
}

func formatLocation(loc ast.Location) string {
	return fmt.Sprintf("[%d:%d:%d-%d:%d:%d]",
		loc.Start.Line, loc.Start.Column, loc.Start.Offset,
		loc.End.Line, loc.End.Column, loc.End.Offset)
}

// Constants returns the distinct constants fn uses, in order of first use.
func Constants(fn *FunctionInfo) []Constant {
	seen := map[ValueID]bool{}
	var out []Constant
	for _, block := range fn.Blocks {
		for _, inst := range block.Instructions {
			for _, operand := range Operands(inst) {
				c, ok := operand.(Constant)
				if !ok || seen[c.Identifier] {
					continue
				}
				seen[c.Identifier] = true
				out = append(out, c)
			}
		}
	}
	return out
}
