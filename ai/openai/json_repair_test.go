package openai

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "valid json untouched",
			input: `{"semantic_query": "translation", "is_relevant": true}`,
			want:  `{"semantic_query": "translation", "is_relevant": true}`,
		},
		{
			name:  "missing opening quote after brace",
			input: `{semantic_query": "translation"}`,
			want:  `{"semantic_query": "translation"}`,
		},
		{
			name:  "missing opening quote after comma",
			input: `{"a": 1, is_relevant": true}`,
			want:  `{"a": 1, "is_relevant": true}`,
		},
		{
			name:  "bare value not mistaken for key",
			input: `{"a": true, "b": null}`,
			want:  `{"a": true, "b": null}`,
		},
		{
			name:  "empty string",
			input: ``,
			want:  ``,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := repairJSON(tt.input)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRepairJSONProducesParseableOutput(t *testing.T) {
	repaired := repairJSON(`{queries": ["a", "b"], count": 2}`)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal([]byte(repaired), &parsed))
	assert.Contains(t, parsed, "queries")
	assert.Contains(t, parsed, "count")
}
