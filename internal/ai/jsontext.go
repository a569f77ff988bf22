package ai

import (
	"encoding/json"
	"errors"
	"strings"
)

var errNoJSONObject = errors.New("ai: no JSON object in model output")

// StripFence removes a surrounding markdown code fence (```json ... ```).
func StripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// drop the language tag on the opening line
		if tag := strings.TrimSpace(s[:nl]); tag == "" || !strings.ContainsAny(tag, "{[\"") {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ExtractObject returns the first balanced top-level JSON object in s. Braces
// inside string literals are ignored. When the object never closes it falls
// back to the span between the first "{" and the last "}".
func ExtractObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	end := strings.LastIndexByte(s, '}')
	if end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// decodeModelJSON strips fences, isolates the JSON object and unmarshals it.
func decodeModelJSON(text string, dst any) error {
	cleaned := StripFence(text)
	obj, ok := ExtractObject(cleaned)
	if !ok {
		return errNoJSONObject
	}
	return json.Unmarshal([]byte(obj), dst)
}
