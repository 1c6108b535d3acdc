package ir

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentRoundTrip(t *testing.T) {
	fn := sampleFunction()
	data, err := MarshalDocument(fn)
	require.NoError(t, err)

	decoded, err := ReadDocument(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, fn, decoded)

	again, err := MarshalDocument(decoded)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again))
}

func TestDocumentGlobalScopeHasNullParent(t *testing.T) {
	fn := NewFunctionInfo("main", "a.js", &FunctionDefinition{Name: "main", Signature: "a.js.main"})
	fn.Scopes = append(fn.Scopes, ScopeRecord{ID: 0, Parent: NoValue})
	data, err := MarshalDocument(fn)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"parent": null`)

	decoded, err := ReadDocument(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, NoValue, decoded.Scopes[0].Parent)
}

func TestDocumentRejectsInvalidIR(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"unknown instruction", `{"id":"main","fileName":"a.js","definition":{"name":"main"},"blocks":[{"identifier":0,"instructions":[{"type":"jump"}]}]}`},
		{"unknown target", `{"id":"main","fileName":"a.js","definition":{"name":"main"},"blocks":[{"identifier":0,"instructions":[{"type":"branch","target":4}]}]}`},
		{"unknown builtin", `{"id":"main","fileName":"a.js","definition":{"name":"main"},"blocks":[{"identifier":0,"instructions":[{"type":"call","valueIndex":0,"functionDefinition":{"name":"#warp#"}}]}]}`},
		{"bad constant", `{"id":"main","fileName":"a.js","definition":{"name":"main"},"blocks":[{"identifier":0,"instructions":[{"type":"return","value":{"type":"constant","kind":"complex"}}]}]}`},
		{"not json", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadDocument(bytes.NewReader([]byte(tt.json)))
			assert.Error(t, err)
		})
	}
}

func TestBinaryRoundTrip(t *testing.T) {
	fn := sampleFunction()
	data, err := MarshalBinary(fn)
	require.NoError(t, err)

	decoded, err := UnmarshalBinary(data)
	require.NoError(t, err)
	assert.Equal(t, fn, decoded)

	again, err := MarshalBinary(decoded)
	require.NoError(t, err)
	assert.Equal(t, data, again, "re-encoding must be byte identical")
}

func TestBinaryIsDeterministic(t *testing.T) {
	first, err := MarshalBinary(sampleFunction())
	require.NoError(t, err)
	second, err := MarshalBinary(sampleFunction())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBinaryRejectsCorruptInput(t *testing.T) {
	data, err := MarshalBinary(sampleFunction())
	require.NoError(t, err)

	_, err = UnmarshalBinary([]byte("XXXX"))
	assert.Error(t, err)

	_, err = UnmarshalBinary(data[:len(data)/2])
	assert.Error(t, err)

	bad := append([]byte{}, data...)
	bad[4] = 9
	_, err = UnmarshalBinary(bad)
	assert.ErrorContains(t, err, "unsupported version")
}
