package adapters

import (
	"errors"
	"strings"
)

// ErrNoJSON is returned when an oracle response contains no JSON object.
var ErrNoJSON = errors.New("response contains no JSON object")

// ExtractJSONObject returns the first balanced JSON object in text.
// Markdown code fences and surrounding prose are ignored.
func ExtractJSONObject(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", ErrNoJSON
	}

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
				return text[start : i+1], nil
			}
		}
	}
	return "", errors.New("response contains an unterminated JSON object")
}
