package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		text string
		want map[string]any
		ok   bool
	}{
		{
			name: "fenced block",
			text: "Here is the result:\n```json\n{\"revenue\": \"$12M\"}\n```\nHope that helps.",
			want: map[string]any{"revenue": "$12M"},
			ok:   true,
		},
		{
			name: "fence tag is case insensitive",
			text: "```JSON\n{\"a\": 1}\n```",
			want: map[string]any{"a": float64(1)},
			ok:   true,
		},
		{
			name: "bare object in prose",
			text: "The company profile is {\"employee_count\": \"85\"} based on public filings.",
			want: map[string]any{"employee_count": "85"},
			ok:   true,
		},
		{
			name: "braces inside string values",
			text: `{"reasoning": "uses {braces} and \"quotes\" freely", "ranking": "85"}`,
			want: map[string]any{"reasoning": `uses {braces} and "quotes" freely`, "ranking": "85"},
			ok:   true,
		},
		{
			name: "nested objects",
			text: `prefix {"outer": {"inner": "v"}} suffix`,
			want: map[string]any{"outer": map[string]any{"inner": "v"}},
			ok:   true,
		},
		{
			name: "unterminated fence falls back to brace scan",
			text: "```json\n{\"a\": \"b\"}",
			want: map[string]any{"a": "b"},
			ok:   true,
		},
		{
			name: "only first candidate is attempted",
			text: "```json\nnot json at all\n```\n{\"valid\": true}",
			ok:   false,
		},
		{
			name: "no json at all",
			text: "I could not find any information about this company.",
			ok:   false,
		},
		{
			name: "array is not an object",
			text: "```json\n[1, 2, 3]\n```",
			ok:   false,
		},
		{
			name: "unbalanced braces",
			text: `{"a": "b"`,
			ok:   false,
		},
		{
			name: "empty input",
			text: "",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSON(tt.text)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
