package canonical

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal_SortsObjectKeys(t *testing.T) {
	out, err := Marshal(map[string]any{
		"zeta":  1,
		"alpha": 2,
		"mid":   3,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"mid":3,"zeta":1}`, string(out))
}

func TestMarshal_NestedStructures(t *testing.T) {
	out, err := Marshal(map[string]any{
		"b": map[string]any{"y": true, "x": nil},
		"a": []any{"first", "second", map[string]any{"k": 1.5}},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":["first","second",{"k":1.5}],"b":{"x":null,"y":true}}`, string(out))
}

func TestMarshal_NoHTMLEscaping(t *testing.T) {
	out, err := Marshal(map[string]any{"note": "a<b & c>d"})
	require.NoError(t, err)
	assert.Equal(t, `{"note":"a<b & c>d"}`, string(out))
}

func TestMarshal_NFCNormalization(t *testing.T) {
	// "é" as a single code point vs "e" + combining acute accent.
	composed, err := Marshal(map[string]any{"name": "café"})
	require.NoError(t, err)
	decomposed, err := Marshal(map[string]any{"name": "café"})
	require.NoError(t, err)
	assert.Equal(t, string(composed), string(decomposed))
}

func TestMarshal_UnsupportedType(t *testing.T) {
	_, err := Marshal(map[string]any{"ch": make(chan int)})
	assert.Error(t, err)
}

func TestHash_DeterministicAcrossKeyOrder(t *testing.T) {
	// Decoding distinct JSON documents with the same fields in different
	// order must yield the same digest.
	var a, b map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"type":"lab_result","value":120,"tags":["x","y"]}`), &a))
	require.NoError(t, json.Unmarshal([]byte(`{"tags":["x","y"],"value":120,"type":"lab_result"}`), &b))

	hashA, err := Hash(a)
	require.NoError(t, err)
	hashB, err := Hash(b)
	require.NoError(t, err)

	assert.Equal(t, hashA, hashB)
	assert.Len(t, hashA, 64)
}

func TestHash_RepeatedCallsStable(t *testing.T) {
	payload := map[string]any{"type": "lab_result", "value": float64(120)}
	first, err := Hash(payload)
	require.NoError(t, err)
	for range 10 {
		again, err := Hash(payload)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestHash_ArrayOrderSignificant(t *testing.T) {
	h1, err := Hash(map[string]any{"seq": []any{"a", "b"}})
	require.NoError(t, err)
	h2, err := Hash(map[string]any{"seq": []any{"b", "a"}})
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestHash_ValueChangesDigest(t *testing.T) {
	h1, err := Hash(map[string]any{"type": "lab_result", "value": float64(120)})
	require.NoError(t, err)
	h2, err := Hash(map[string]any{"type": "lab_result", "value": float64(999)})
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}
