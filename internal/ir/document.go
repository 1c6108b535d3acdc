package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"dbd/internal/ast"
	"dbd/internal/errors"
)

// Document is the JSON form of a FunctionInfo.
type Document struct {
	ID         string         `json:"id"`
	FileName   string         `json:"fileName"`
	Definition DefinitionDoc  `json:"definition"`
	Parameters []ParameterDoc `json:"parameters"`
	Scopes     []ScopeDoc     `json:"scopes"`
	Blocks     []BlockDoc     `json:"blocks"`
}

type DefinitionDoc struct {
	Name      string `json:"name"`
	Signature string `json:"signature"`
}

type ParameterDoc struct {
	ValueIndex int    `json:"valueIndex"`
	Name       string `json:"name"`
}

type ScopeDoc struct {
	ValueIndex int  `json:"valueIndex"`
	Parent     *int `json:"parent"`
}

type BlockDoc struct {
	Identifier   int              `json:"identifier"`
	Location     LocationDoc      `json:"location"`
	Instructions []InstructionDoc `json:"instructions"`
}

type LocationDoc struct {
	StartLine   int `json:"startLine"`
	StartColumn int `json:"startColumn"`
	StartOffset int `json:"startOffset"`
	EndLine     int `json:"endLine"`
	EndColumn   int `json:"endColumn"`
	EndOffset   int `json:"endOffset"`
}

type InstructionDoc struct {
	Type               string         `json:"type"`
	Target             *int           `json:"target,omitempty"`
	Condition          *ValueDoc      `json:"condition,omitempty"`
	Consequent         *int           `json:"consequent,omitempty"`
	Alternate          *int           `json:"alternate,omitempty"`
	ValueIndex         *int           `json:"valueIndex,omitempty"`
	Receiver           *ValueDoc      `json:"receiver,omitempty"`
	FunctionDefinition *DefinitionDoc `json:"functionDefinition,omitempty"`
	Arguments          []ValueDoc     `json:"arguments,omitempty"`
	Value              *ValueDoc      `json:"value,omitempty"`
	Location           LocationDoc    `json:"location"`
}

type ValueDoc struct {
	Type       string `json:"type"`
	ValueIndex int    `json:"valueIndex"`
	Name       string `json:"name,omitempty"`
	Kind       string `json:"kind,omitempty"`
	Text       string `json:"text,omitempty"`
}

const (
	branchDoc            = "branch"
	conditionalBranchDoc = "conditionalBranch"
	callDoc              = "call"
	returnDoc            = "return"
	throwDoc             = "throw"

	referenceDoc = "reference"
	parameterDoc = "parameter"
	constantDoc  = "constant"
)

// ToDocument converts fn to its JSON document form.
func ToDocument(fn *FunctionInfo) *Document {
	doc := &Document{
		ID:         fn.ID,
		FileName:   fn.FileName,
		Definition: DefinitionDoc{Name: fn.Definition.Name, Signature: fn.Definition.Signature},
		Parameters: []ParameterDoc{},
		Scopes:     []ScopeDoc{},
		Blocks:     []BlockDoc{},
	}
	for _, p := range fn.Parameters {
		doc.Parameters = append(doc.Parameters, ParameterDoc{ValueIndex: int(p.Identifier), Name: p.Name})
	}
	for _, s := range fn.Scopes {
		scope := ScopeDoc{ValueIndex: int(s.ID)}
		if s.Parent != NoValue {
			parent := int(s.Parent)
			scope.Parent = &parent
		}
		doc.Scopes = append(doc.Scopes, scope)
	}
	for _, b := range fn.Blocks {
		block := BlockDoc{Identifier: int(b.ID), Location: locationDoc(b.Loc), Instructions: []InstructionDoc{}}
		for _, inst := range b.Instructions {
			block.Instructions = append(block.Instructions, instructionDoc(inst))
		}
		doc.Blocks = append(doc.Blocks, block)
	}
	return doc
}

func instructionDoc(inst Instruction) InstructionDoc {
	doc := InstructionDoc{Location: locationDoc(inst.Location())}
	switch t := inst.(type) {
	case *Branch:
		doc.Type = branchDoc
		doc.Target = intPtr(int(t.Target))
	case *ConditionalBranch:
		doc.Type = conditionalBranchDoc
		doc.Condition = valueDoc(t.Condition)
		doc.Consequent = intPtr(int(t.Consequent))
		doc.Alternate = intPtr(int(t.Alternate))
	case *Call:
		doc.Type = callDoc
		doc.ValueIndex = intPtr(int(t.Result))
		if t.Receiver != nil {
			doc.Receiver = valueDoc(t.Receiver)
		}
		doc.FunctionDefinition = &DefinitionDoc{Name: t.Definition.Name, Signature: t.Definition.Signature}
		for _, arg := range t.Arguments {
			doc.Arguments = append(doc.Arguments, *valueDoc(arg))
		}
	case *Return:
		doc.Type = returnDoc
		doc.Value = valueDoc(t.Value)
	case *Throw:
		doc.Type = throwDoc
		doc.Value = valueDoc(t.Value)
	}
	return doc
}

func valueDoc(v Value) *ValueDoc {
	switch t := v.(type) {
	case Parameter:
		return &ValueDoc{Type: parameterDoc, ValueIndex: int(t.Identifier), Name: t.Name}
	case Constant:
		return &ValueDoc{Type: constantDoc, ValueIndex: int(t.Identifier), Kind: string(t.Kind), Text: t.Text}
	}
	return &ValueDoc{Type: referenceDoc, ValueIndex: int(v.ID())}
}

func locationDoc(loc ast.Location) LocationDoc {
	return LocationDoc{
		StartLine: loc.Start.Line, StartColumn: loc.Start.Column, StartOffset: loc.Start.Offset,
		EndLine: loc.End.Line, EndColumn: loc.End.Column, EndOffset: loc.End.Offset,
	}
}

func intPtr(i int) *int { return &i }

// MarshalDocument renders fn as indented JSON.
func MarshalDocument(fn *FunctionInfo) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ToDocument(fn)); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return buf.Bytes(), nil
}

// ReadDocument decodes a JSON document and rebuilds the FunctionInfo.
func ReadDocument(r io.Reader) (*FunctionInfo, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return FromDocument(&doc)
}

// FromDocument rebuilds a FunctionInfo and validates it.
func FromDocument(doc *Document) (*FunctionInfo, error) {
	fn := NewFunctionInfo(doc.ID, doc.FileName, &FunctionDefinition{Name: doc.Definition.Name, Signature: doc.Definition.Signature})
	for _, p := range doc.Parameters {
		fn.Parameters = append(fn.Parameters, &Parameter{Identifier: ValueID(p.ValueIndex), Name: p.Name})
	}
	for _, s := range doc.Scopes {
		record := ScopeRecord{ID: ValueID(s.ValueIndex), Parent: NoValue}
		if s.Parent != nil {
			record.Parent = ValueID(*s.Parent)
		}
		fn.Scopes = append(fn.Scopes, record)
	}
	for _, b := range doc.Blocks {
		block := NewBasicBlock(BlockID(b.Identifier), fromLocationDoc(b.Location))
		for _, i := range b.Instructions {
			inst, err := fromInstructionDoc(i)
			if err != nil {
				return nil, fmt.Errorf("block %d: %w", b.Identifier, err)
			}
			block.Instructions = append(block.Instructions, inst)
		}
		fn.Blocks = append(fn.Blocks, block)
	}
	if err := Validate(fn); err != nil {
		return nil, fmt.Errorf("%s: invalid document: %w", errors.ErrorMalformedDocument, err)
	}
	return fn, nil
}

func fromInstructionDoc(doc InstructionDoc) (Instruction, error) {
	loc := fromLocationDoc(doc.Location)
	switch doc.Type {
	case branchDoc:
		if doc.Target == nil {
			return nil, fmt.Errorf("branch without target")
		}
		return NewBranch(BlockID(*doc.Target), loc), nil
	case conditionalBranchDoc:
		if doc.Condition == nil || doc.Consequent == nil || doc.Alternate == nil {
			return nil, fmt.Errorf("conditional branch is incomplete")
		}
		cond, err := fromValueDoc(doc.Condition)
		if err != nil {
			return nil, err
		}
		return NewConditionalBranch(cond, BlockID(*doc.Consequent), BlockID(*doc.Alternate), loc), nil
	case callDoc:
		if doc.ValueIndex == nil || doc.FunctionDefinition == nil {
			return nil, fmt.Errorf("call without result or definition")
		}
		var receiver Value
		if doc.Receiver != nil {
			v, err := fromValueDoc(doc.Receiver)
			if err != nil {
				return nil, err
			}
			receiver = v
		}
		args := make([]Value, 0, len(doc.Arguments))
		for i := range doc.Arguments {
			v, err := fromValueDoc(&doc.Arguments[i])
			if err != nil {
				return nil, err
			}
			args = append(args, v)
		}
		def := &FunctionDefinition{Name: doc.FunctionDefinition.Name, Signature: doc.FunctionDefinition.Signature}
		return NewCall(ValueID(*doc.ValueIndex), receiver, def, args, loc), nil
	case returnDoc, throwDoc:
		if doc.Value == nil {
			return nil, fmt.Errorf("%s without value", doc.Type)
		}
		v, err := fromValueDoc(doc.Value)
		if err != nil {
			return nil, err
		}
		if doc.Type == returnDoc {
			return NewReturn(v, loc), nil
		}
		return NewThrow(v, loc), nil
	}
	return nil, fmt.Errorf("unknown instruction type %q", doc.Type)
}

func fromValueDoc(doc *ValueDoc) (Value, error) {
	id := ValueID(doc.ValueIndex)
	switch doc.Type {
	case referenceDoc:
		return Reference{Identifier: id}, nil
	case parameterDoc:
		return Parameter{Identifier: id, Name: doc.Name}, nil
	case constantDoc:
		kind, ok := ParseConstantKind(doc.Kind)
		if !ok {
			return nil, fmt.Errorf("unknown constant kind %q", doc.Kind)
		}
		return Constant{Identifier: id, Kind: kind, Text: doc.Text}, nil
	}
	return nil, fmt.Errorf("unknown value type %q", doc.Type)
}

func fromLocationDoc(doc LocationDoc) ast.Location {
	return ast.Location{
		Start: ast.Position{Line: doc.StartLine, Column: doc.StartColumn, Offset: doc.StartOffset},
		End:   ast.Position{Line: doc.EndLine, Column: doc.EndColumn, Offset: doc.EndOffset},
	}
}
