package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StripFences removes an optional markdown code fence around a payload.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		// drop the language tag line ("json", "JSON", ...)
		first := strings.TrimSpace(s[:idx])
		if len(first) <= 8 {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ExtractObject pulls the first balanced {...} span out of s, tolerating
// prose before and after. Falls back to the first-'{'-to-last-'}' slice when
// no balanced span closes.
func ExtractObject(s string) (string, bool) {
	s = StripFences(s)
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
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

// DecodeObject extracts the structured object from a model reply and decodes
// it into dst. It either succeeds or errors so the caller can run its single
// repair retry.
func DecodeObject(reply string, dst any) error {
	obj, ok := ExtractObject(reply)
	if !ok {
		return fmt.Errorf("llm: no JSON object in reply")
	}
	if err := json.Unmarshal([]byte(obj), dst); err != nil {
		return fmt.Errorf("llm: decoding reply object: %w", err)
	}
	return nil
}
