package ir

import (
	"bytes"
	"fmt"
	"io"

	"dbd/internal/ast"
	"dbd/internal/errors"
	"github.com/icza/bitio"
)

// Binary layout. Integers are written as unsigned varints in 7-bit groups
// with a continuation bit (signed ones zig-zag encoded first); tags use the
// fewest bits that hold them, so the stream is bit-packed rather than
// byte-aligned until the final flush.

var binaryMagic = []byte("DBDI")

const binaryVersion = 1

const (
	tagBranch uint64 = iota
	tagConditionalBranch
	tagCall
	tagReturn
	tagThrow
	tagBits = 3
)

const (
	valueReference uint64 = iota
	valueParameter
	valueConstant
	valueBits = 2
)

var constantKinds = []ConstantKind{
	NumberConstant, StringConstant, BooleanConstant, NullConstant,
	UndefinedConstant, RegExpConstant, BigIntConstant,
}

const constantKindBits = 3

// MarshalBinary encodes fn in the compact binary form.
func MarshalBinary(fn *FunctionInfo) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteBinary(&buf, fn); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteBinary encodes fn to w.
func WriteBinary(w io.Writer, fn *FunctionInfo) error {
	e := &binaryEncoder{w: bitio.NewWriter(w)}
	e.encode(fn)
	if e.w.TryError != nil {
		return fmt.Errorf("encode binary: %w", e.w.TryError)
	}
	if err := e.w.Close(); err != nil {
		return fmt.Errorf("encode binary: %w", err)
	}
	return nil
}

type binaryEncoder struct {
	w *bitio.Writer
}

func (e *binaryEncoder) encode(fn *FunctionInfo) {
	e.w.TryWrite(binaryMagic)
	e.w.TryWriteByte(binaryVersion)
	e.string(fn.ID)
	e.string(fn.FileName)
	e.definition(fn.Definition)

	e.uvarint(uint64(len(fn.Parameters)))
	for _, p := range fn.Parameters {
		e.varint(int64(p.Identifier))
		e.string(p.Name)
	}

	e.uvarint(uint64(len(fn.Scopes)))
	for _, s := range fn.Scopes {
		e.varint(int64(s.ID))
		e.w.TryWriteBool(s.Parent != NoValue)
		if s.Parent != NoValue {
			e.varint(int64(s.Parent))
		}
	}

	e.uvarint(uint64(len(fn.Blocks)))
	for _, b := range fn.Blocks {
		e.location(b.Loc)
		e.uvarint(uint64(len(b.Instructions)))
		for _, inst := range b.Instructions {
			e.instruction(inst)
		}
	}
}

func (e *binaryEncoder) instruction(inst Instruction) {
	switch t := inst.(type) {
	case *Branch:
		e.w.TryWriteBits(tagBranch, tagBits)
		e.uvarint(uint64(t.Target))
	case *ConditionalBranch:
		e.w.TryWriteBits(tagConditionalBranch, tagBits)
		e.value(t.Condition)
		e.uvarint(uint64(t.Consequent))
		e.uvarint(uint64(t.Alternate))
	case *Call:
		e.w.TryWriteBits(tagCall, tagBits)
		e.varint(int64(t.Result))
		e.w.TryWriteBool(t.Receiver != nil)
		if t.Receiver != nil {
			e.value(t.Receiver)
		}
		e.definition(t.Definition)
		e.uvarint(uint64(len(t.Arguments)))
		for _, arg := range t.Arguments {
			e.value(arg)
		}
	case *Return:
		e.w.TryWriteBits(tagReturn, tagBits)
		e.value(t.Value)
	case *Throw:
		e.w.TryWriteBits(tagThrow, tagBits)
		e.value(t.Value)
	}
	e.location(inst.Location())
}

func (e *binaryEncoder) value(v Value) {
	switch t := v.(type) {
	case Parameter:
		e.w.TryWriteBits(valueParameter, valueBits)
		e.varint(int64(t.Identifier))
		e.string(t.Name)
	case Constant:
		e.w.TryWriteBits(valueConstant, valueBits)
		e.varint(int64(t.Identifier))
		e.w.TryWriteBits(uint64(constantKindIndex(t.Kind)), constantKindBits)
		e.string(t.Text)
	default:
		e.w.TryWriteBits(valueReference, valueBits)
		e.varint(int64(v.ID()))
	}
}

// definition writes builtins as their catalog name only; user functions
// carry their signature.
func (e *binaryEncoder) definition(def *FunctionDefinition) {
	builtin := def.IsBuiltin()
	e.w.TryWriteBool(builtin)
	e.string(def.Name)
	if !builtin {
		e.string(def.Signature)
	}
}

func (e *binaryEncoder) location(loc ast.Location) {
	for _, n := range []int{loc.Start.Line, loc.Start.Column, loc.Start.Offset, loc.End.Line, loc.End.Column, loc.End.Offset} {
		e.uvarint(uint64(n))
	}
}

func (e *binaryEncoder) uvarint(n uint64) {
	for n >= 0x80 {
		e.w.TryWriteBits(n&0x7f|0x80, 8)
		n >>= 7
	}
	e.w.TryWriteBits(n, 8)
}

func (e *binaryEncoder) varint(n int64) {
	e.uvarint(uint64(n<<1) ^ uint64(n>>63))
}

func (e *binaryEncoder) string(s string) {
	e.uvarint(uint64(len(s)))
	e.w.TryWrite([]byte(s))
}

func constantKindIndex(kind ConstantKind) int {
	for i, k := range constantKinds {
		if k == kind {
			return i
		}
	}
	return 0
}

// UnmarshalBinary decodes the binary form and validates the result.
func UnmarshalBinary(data []byte) (*FunctionInfo, error) {
	return ReadBinary(bytes.NewReader(data))
}

// ReadBinary decodes one FunctionInfo from r.
func ReadBinary(r io.Reader) (*FunctionInfo, error) {
	d := &binaryDecoder{r: bitio.NewReader(r)}
	fn, err := d.decode()
	if err == nil && d.r.TryError != nil {
		err = d.r.TryError
	}
	if err != nil {
		return nil, fmt.Errorf("%s: decode binary: %w", errors.ErrorMalformedBinary, err)
	}
	if err := Validate(fn); err != nil {
		return nil, fmt.Errorf("%s: decode binary: %w", errors.ErrorMalformedBinary, err)
	}
	return fn, nil
}

type binaryDecoder struct {
	r *bitio.Reader
}

// maxCount bounds decoded lengths so corrupt input fails instead of
// allocating without limit.
const maxCount = 1 << 24

func (d *binaryDecoder) decode() (*FunctionInfo, error) {
	magic := make([]byte, len(binaryMagic))
	d.r.TryRead(magic)
	if d.r.TryError != nil {
		return nil, d.r.TryError
	}
	if !bytes.Equal(magic, binaryMagic) {
		return nil, fmt.Errorf("bad magic %q", magic)
	}
	if version := d.r.TryReadByte(); version != binaryVersion {
		return nil, fmt.Errorf("unsupported version %d", version)
	}
	id := d.string()
	fileName := d.string()
	def, err := d.definition()
	if err != nil {
		return nil, err
	}
	fn := NewFunctionInfo(id, fileName, def)

	for n := d.count(); n > 0 && d.r.TryError == nil; n-- {
		p := &Parameter{Identifier: ValueID(d.varint())}
		p.Name = d.string()
		fn.Parameters = append(fn.Parameters, p)
	}

	for n := d.count(); n > 0 && d.r.TryError == nil; n-- {
		record := ScopeRecord{ID: ValueID(d.varint()), Parent: NoValue}
		if d.r.TryReadBool() {
			record.Parent = ValueID(d.varint())
		}
		fn.Scopes = append(fn.Scopes, record)
	}

	blocks := d.count()
	for i := uint64(0); i < blocks && d.r.TryError == nil; i++ {
		block := NewBasicBlock(BlockID(i), d.location())
		for n := d.count(); n > 0 && d.r.TryError == nil; n-- {
			inst, err := d.instruction()
			if err != nil {
				return nil, fmt.Errorf("block %d: %w", i, err)
			}
			block.Instructions = append(block.Instructions, inst)
		}
		fn.Blocks = append(fn.Blocks, block)
	}
	return fn, d.r.TryError
}

func (d *binaryDecoder) instruction() (Instruction, error) {
	var inst Instruction
	switch tag := d.r.TryReadBits(tagBits); tag {
	case tagBranch:
		inst = &Branch{Target: BlockID(d.uvarint())}
	case tagConditionalBranch:
		cond, err := d.value()
		if err != nil {
			return nil, err
		}
		consequent := BlockID(d.uvarint())
		inst = &ConditionalBranch{Condition: cond, Consequent: consequent, Alternate: BlockID(d.uvarint())}
	case tagCall:
		call := &Call{Result: ValueID(d.varint()), Arguments: []Value{}}
		if d.r.TryReadBool() {
			receiver, err := d.value()
			if err != nil {
				return nil, err
			}
			call.Receiver = receiver
		}
		def, err := d.definition()
		if err != nil {
			return nil, err
		}
		call.Definition = def
		for n := d.count(); n > 0 && d.r.TryError == nil; n-- {
			arg, err := d.value()
			if err != nil {
				return nil, err
			}
			call.Arguments = append(call.Arguments, arg)
		}
		inst = call
	case tagReturn, tagThrow:
		v, err := d.value()
		if err != nil {
			return nil, err
		}
		if tag == tagReturn {
			inst = &Return{Value: v}
		} else {
			inst = &Throw{Value: v}
		}
	default:
		if d.r.TryError != nil {
			return nil, d.r.TryError
		}
		return nil, fmt.Errorf("unknown instruction tag %d", tag)
	}
	loc := d.location()
	switch t := inst.(type) {
	case *Branch:
		t.Loc = loc
	case *ConditionalBranch:
		t.Loc = loc
	case *Call:
		t.Loc = loc
	case *Return:
		t.Loc = loc
	case *Throw:
		t.Loc = loc
	}
	return inst, d.r.TryError
}

func (d *binaryDecoder) value() (Value, error) {
	switch kind := d.r.TryReadBits(valueBits); kind {
	case valueReference:
		return Reference{Identifier: ValueID(d.varint())}, d.r.TryError
	case valueParameter:
		id := ValueID(d.varint())
		return Parameter{Identifier: id, Name: d.string()}, d.r.TryError
	case valueConstant:
		id := ValueID(d.varint())
		index := d.r.TryReadBits(constantKindBits)
		if index >= uint64(len(constantKinds)) {
			return nil, fmt.Errorf("unknown constant kind %d", index)
		}
		return Constant{Identifier: id, Kind: constantKinds[index], Text: d.string()}, d.r.TryError
	default:
		if d.r.TryError != nil {
			return nil, d.r.TryError
		}
		return nil, fmt.Errorf("unknown value kind %d", kind)
	}
}

func (d *binaryDecoder) definition() (*FunctionDefinition, error) {
	builtin := d.r.TryReadBool()
	name := d.string()
	if d.r.TryError != nil {
		return nil, d.r.TryError
	}
	if builtin {
		return LookupBuiltin(name)
	}
	return &FunctionDefinition{Name: name, Signature: d.string()}, d.r.TryError
}

func (d *binaryDecoder) location() ast.Location {
	var n [6]int
	for i := range n {
		n[i] = int(d.uvarint())
	}
	return ast.Location{
		Start: ast.Position{Line: n[0], Column: n[1], Offset: n[2]},
		End:   ast.Position{Line: n[3], Column: n[4], Offset: n[5]},
	}
}

func (d *binaryDecoder) uvarint() uint64 {
	var n uint64
	for shift := uint(0); shift < 64; shift += 7 {
		b := d.r.TryReadBits(8)
		if d.r.TryError != nil {
			return 0
		}
		n |= (b & 0x7f) << shift
		if b&0x80 == 0 {
			return n
		}
	}
	d.r.TryError = fmt.Errorf("varint overflows 64 bits")
	return 0
}

func (d *binaryDecoder) varint() int64 {
	u := d.uvarint()
	return int64(u>>1) ^ -int64(u&1)
}

func (d *binaryDecoder) count() uint64 {
	n := d.uvarint()
	if n > maxCount {
		d.r.TryError = fmt.Errorf("length %d exceeds limit", n)
		return 0
	}
	return n
}

func (d *binaryDecoder) string() string {
	n := d.count()
	if n == 0 || d.r.TryError != nil {
		return ""
	}
	buf := make([]byte, n)
	d.r.TryRead(buf)
	return string(buf)
}
