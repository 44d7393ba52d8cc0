package ai

import (
	"strings"

	"github.com/pkg/errors"
)

// ExtractJSON pulls the first balanced JSON object out of a model response.
// Models wrap JSON in prose or markdown fences more often than not, so the
// scanner tracks brace depth and skips braces inside string literals.
func ExtractJSON(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", errors.New("no JSON object found in response")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
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
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}

	return "", errors.New("unbalanced JSON object in response")
}
