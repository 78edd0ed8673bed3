package utils

import (
	"encoding/json"
	"errors"
	"strings"
)

var ErrNoJSON = errors.New("no JSON object in text")

// ExtractJSON decodes the first balanced JSON object or array found in text.
// Models often wrap JSON in prose or code fences.
func ExtractJSON(text string, v interface{}) error {
	text = strings.TrimSpace(text)
	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return ErrNoJSON
	}

	open := text[start]
	closeCh := byte('}')
	if open == '[' {
		closeCh = ']'
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case closeCh:
			depth--
			if depth == 0 {
				return json.Unmarshal([]byte(text[start:i+1]), v)
			}
		}
	}
	return ErrNoJSON
}
