package ir

import (
	"strings"
	"testing"

	"dbd/internal/ast"
	"dbd/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loc(line, col, offset int) ast.Location {
	return ast.Location{
		Start: ast.Position{Line: line, Column: col, Offset: offset},
		End:   ast.Position{Line: line, Column: col + 1, Offset: offset + 1},
	}
}

// sampleFunction builds a two block function with a scope, a parameter,
// a constant and every instruction kind.
func sampleFunction() *FunctionInfo {
	fn := NewFunctionInfo("0", "sample.js", UserFunction("f", "sample.js"))
	parent := &Parameter{Identifier: 1, Name: ParentField}
	fn.Parameters = append(fn.Parameters, parent)

	b := NewFunctionBuilder(fn)
	entry := b.CreateBlock(loc(1, 0, 0))
	b.PushBlock(entry)
	b.Append(NewCall(2, nil, Builtin(NewObject, ""), nil, loc(1, 0, 0)))
	b.Append(NewCall(3, nil, Builtin(SetField, ParentField), []Value{Reference{2}, *parent}, loc(1, 0, 0)))
	b.DeclareScope(ScopeRecord{ID: 2, Parent: 1})
	one := Constant{Identifier: 4, Kind: NumberConstant, Text: "1"}
	b.Append(NewCall(5, Reference{2}, Builtin(CallMethod, "m"), []Value{one}, loc(2, 2, 10)))

	then := b.CreateBlock(loc(3, 0, 20))
	other := b.CreateBlock(loc(4, 0, 30))
	b.Append(NewConditionalBranch(Reference{5}, then, other, loc(2, 2, 10)))

	b.PushBlock(then)
	b.Append(NewReturn(one, loc(3, 2, 22)))
	b.PushBlock(other)
	b.Append(NewThrow(Reference{5}, loc(4, 2, 32)))
	return fn
}

func TestBlockAndValueStrings(t *testing.T) {
	assert.Equal(t, "bb3", BlockID(3).String())
	assert.Equal(t, "%7", ValueID(7).String())
	assert.Equal(t, "$1", Parameter{Identifier: 1, Name: "@parent"}.String())
	assert.Equal(t, "#4", Constant{Identifier: 4}.String())
}

func TestInstructionStrings(t *testing.T) {
	call := NewCall(5, Reference{2}, Builtin(CallMethod, "m"), []Value{Constant{Identifier: 4}, Parameter{Identifier: 1}}, ast.Location{})
	assert.Equal(t, `%5 = call "#call-method# m" on %2 (#4, $1)`, call.String())
	assert.Equal(t, "br bb2", NewBranch(2, ast.Location{}).String())
	assert.Equal(t, "cbr %5 bb1 bb2", NewConditionalBranch(Reference{5}, 1, 2, ast.Location{}).String())
	assert.Equal(t, "ret #4", NewReturn(Constant{Identifier: 4}, ast.Location{}).String())
	assert.Equal(t, "throw %5", NewThrow(Reference{5}, ast.Location{}).String())
}

func TestNewCallCopiesArguments(t *testing.T) {
	args := []Value{Reference{1}}
	call := NewCall(2, nil, Builtin(Select, ""), args, ast.Location{})
	args[0] = Reference{9}
	assert.Equal(t, Reference{1}, call.Arguments[0])

	empty := NewCall(3, nil, Builtin(NewObject, ""), nil, ast.Location{})
	assert.NotNil(t, empty.Arguments)
}

func TestSuccessors(t *testing.T) {
	assert.Equal(t, []BlockID{1, 2}, Successors(NewConditionalBranch(Reference{0}, 1, 2, ast.Location{})))
	assert.Equal(t, []BlockID{1}, Successors(NewConditionalBranch(Reference{0}, 1, 1, ast.Location{})))
	assert.Nil(t, Successors(NewReturn(Reference{0}, ast.Location{})))
	assert.Nil(t, Successors(nil))
}

func TestBuiltinCatalog(t *testing.T) {
	def := Builtin(GetField, "x")
	assert.Equal(t, "#get-field# x", def.Name)
	assert.True(t, def.IsBuiltin())
	assert.Equal(t, GetField, def.BuiltinKind())
	assert.Equal(t, "x", def.Qualifier())

	binary := Builtin(BinaryOp, "===")
	assert.Equal(t, "#binary# ===", binary.Name)

	user := UserFunction("f", "a.js")
	assert.False(t, user.IsBuiltin())
	assert.Equal(t, "a.js.f", user.Signature)
}

func TestBuiltinOutsideCatalogPanics(t *testing.T) {
	tests := []struct {
		name      string
		kind      BuiltinKind
		qualifier string
	}{
		{"unknown kind", BuiltinKind(99), ""},
		{"not builtin", NotBuiltin, ""},
		{"missing qualifier", SetField, ""},
		{"unexpected qualifier", NewObject, "x"},
		{"unknown operator", BinaryOp, "<=>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				r := recover()
				require.NotNil(t, r, "expected a panic")
				err, ok := r.(error)
				require.True(t, ok)
				assert.True(t, errors.IsInvariant(err))
				assert.Contains(t, err.Error(), errors.ErrorUnknownBuiltin)
			}()
			Builtin(tt.kind, tt.qualifier)
		})
	}
}

func TestLookupBuiltin(t *testing.T) {
	def, err := LookupBuiltin("#get-field# @parent")
	require.NoError(t, err)
	assert.Equal(t, GetField, def.BuiltinKind())

	_, err = LookupBuiltin("#teleport#")
	assert.True(t, errors.IsInvariant(err))

	_, err = LookupBuiltin("#unary# ++")
	assert.Error(t, err)
}

func TestConstantsInFirstUseOrder(t *testing.T) {
	fn := sampleFunction()
	constants := Constants(fn)
	require.Len(t, constants, 1)
	assert.Equal(t, "1", constants[0].Text)
}

func TestCalledFunctions(t *testing.T) {
	fn := NewFunctionInfo("main", "a.js", &FunctionDefinition{Name: "main", Signature: "a.js.main"})
	b := NewFunctionBuilder(fn)
	b.PushBlock(b.CreateBlock(ast.Location{}))
	g := UserFunction("g", "a.js")
	b.Append(NewCall(0, nil, g, nil, ast.Location{}))
	b.Append(NewCall(1, nil, Builtin(NewObject, ""), nil, ast.Location{}))
	b.Append(NewCall(2, nil, UserFunction("g", "a.js"), nil, ast.Location{}))

	called := fn.CalledFunctions()
	require.Len(t, called, 1)
	assert.Equal(t, "a.js.g", called[0].Signature)
}

func TestPrintFormat(t *testing.T) {
	out := Print(sampleFunction())
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, `function 0 "f" "sample.js.f"`, lines[0])
	assert.Equal(t, `file "sample.js"`, lines[1])
	assert.Equal(t, `param $1 "@parent"`, lines[2])
	assert.Equal(t, `const #4 number "1"`, lines[3])
	assert.Equal(t, `scope %2 parent %1`, lines[4])
	assert.Equal(t, `bb0 [1:0:0-1:1:1] {`, lines[5])
	assert.Equal(t, `  %2 = call "#new-object#" () [1:0:0-1:1:1]`, lines[6])
	assert.Equal(t, "end", lines[len(lines)-1])
	assert.Contains(t, out, "  cbr %5 bb1 bb2 [2:2:10-2:3:11]\n")
	assert.Contains(t, out, "  throw %5 [4:2:32-4:3:33]\n")
}

func TestPrintAnnotations(t *testing.T) {
	p := NewPrinter().WithAnnotations(func(id BlockID) []string {
		return []string{"live-in: " + id.String()}
	})
	out := p.Print(sampleFunction())
	assert.Contains(t, out, "bb1 [3:0:20-3:1:21] {\n  ; live-in: bb1\n")
}
