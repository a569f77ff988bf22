package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripFence(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"a\":1}\n```":   `{"a":1}`,
		"```\n{\"a\":1}\n```":       `{"a":1}`,
		"  {\"a\":1}  ":             `{"a":1}`,
		"```{\"a\":1}```":           `{"a":1}`,
		"```JSON\n{\"a\":1}```\n\n": `{"a":1}`,
		"no fence here, just prose": "no fence here, just prose",
	}
	for in, want := range cases {
		assert.Equal(t, want, StripFence(in), "input %q", in)
	}
}

func TestExtractObject(t *testing.T) {
	obj, ok := ExtractObject(`Sure! Here is the result: {"summary":"uses {braces} and \"quotes\"","n":{"x":1}} Hope it helps {`)
	require.True(t, ok)
	assert.Equal(t, `{"summary":"uses {braces} and \"quotes\"","n":{"x":1}}`, obj)

	_, ok = ExtractObject("no json at all")
	assert.False(t, ok)

	// unterminated object falls back to the last closing brace
	obj, ok = ExtractObject(`{"a":{"b":1}`)
	require.True(t, ok)
	assert.Equal(t, `{"a":{"b":1}`, obj)
}

func TestDecodeModelJSON(t *testing.T) {
	var v struct {
		Score int `json:"score"`
	}
	require.NoError(t, decodeModelJSON("```json\nHere you go {\"score\": 87}\n```", &v))
	assert.Equal(t, 87, v.Score)

	assert.ErrorIs(t, decodeModelJSON("I cannot help with that.", &v), errNoJSONObject)
	assert.Error(t, decodeModelJSON(`{"score": "high"}`, &v))
}
