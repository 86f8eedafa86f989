package agents

import (
	"encoding/json"
	"strings"
)

// ExtractJSONObject returns the first balanced top-level {...} in text.
// Braces inside JSON strings, including escaped quotes, are ignored.
func ExtractJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	for start >= 0 {
		if end := matchBrace(text, start); end > start {
			return text[start : end+1], true
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

// matchBrace returns the index of the brace closing text[start], or -1.
func matchBrace(text string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
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
				return i
			}
		}
	}
	return -1
}

// decodeObject parses text as exactly one JSON object.
func decodeObject(text string) (map[string]any, bool) {
	var m map[string]any
	if err := json.Unmarshal([]byte(text), &m); err != nil || m == nil {
		return nil, false
	}
	return m, true
}

// ParseObject tries strict decoding, then the first balanced object.
func ParseObject(text string) (map[string]any, bool) {
	trimmed := strings.TrimSpace(text)
	if m, ok := decodeObject(trimmed); ok {
		return m, true
	}
	if candidate, ok := ExtractJSONObject(trimmed); ok {
		return decodeObject(candidate)
	}
	return nil, false
}

// parseKeyValues collects "key: value" lines. Keys are lowercased.
func parseKeyValues(text string) map[string]string {
	fields := make(map[string]string)
	for _, line := range strings.Split(text, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		fields[key] = strings.TrimSpace(value)
	}
	return fields
}

// ParseResponse turns a model reply into the role's Output and fills in
// any missing required keys.
func ParseResponse(role Role, text string) Output {
	if m, ok := ParseObject(text); ok {
		enhanced := enhance(role, m)
		return NewOutput(role, m, enhanced)
	}

	u := &Unparsed{role: role, Raw: text}
	if fields := parseKeyValues(text); len(fields) > 0 {
		u.Fields = fields
	}
	return u
}
