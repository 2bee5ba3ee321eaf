package pipeline

import (
	"encoding/json"
	"strings"
)

// ExtractJSON pulls a JSON object out of loosely structured stage output.
// It tries the first fenced ```json block, then the first balanced brace
// substring. Only the first candidate is attempted; if it fails to parse,
// the result is treated as "stage produced nothing". Never errors.
func ExtractJSON(text string) (map[string]any, bool) {
	candidate, ok := fencedBlock(text)
	if !ok {
		candidate, ok = braceSubstring(text)
	}
	if !ok {
		return nil, false
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
		return nil, false
	}
	return parsed, true
}

// fencedBlock returns the contents of the first ```json fence.
func fencedBlock(text string) (string, bool) {
	lower := strings.ToLower(text)
	start := strings.Index(lower, "```json")
	if start < 0 {
		return "", false
	}
	inner := text[start+len("```json"):]
	end := strings.Index(inner, "```")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(inner[:end]), true
}

// braceSubstring returns the first balanced {...} run, tracking string
// literals and escapes so braces inside values don't end the scan early.
func braceSubstring(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1], true
				}
			}
		}
	}
	return "", false
}
