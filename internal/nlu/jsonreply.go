package nlu

import (
	"encoding/json"
	"strings"

	owlErrors "github.com/harunnryd/nightowl/internal/errors"
)

// decodeModelJSON unmarshals a model reply, tolerating code fences and prose
// around the first JSON object.
func decodeModelJSON(raw string, v interface{}) error {
	normalized := cleanModelJSON(raw)
	if normalized == "" {
		return owlErrors.InvalidModelOutput("empty model reply")
	}
	if err := json.Unmarshal([]byte(normalized), v); err == nil {
		return nil
	}

	extracted := extractFirstBalancedJSON(normalized, '{', '}')
	if extracted == "" {
		return owlErrors.InvalidModelOutput("no JSON object in model reply")
	}
	if err := json.Unmarshal([]byte(extracted), v); err != nil {
		return owlErrors.WrapWithCategory(err, "decode model reply", owlErrors.ErrInvalidModelOutput)
	}
	return nil
}

func cleanModelJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func extractFirstBalancedJSON(input string, open, close byte) string {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(input); i++ {
		ch := input[i]
		if inString {
			if escaped {
				escaped = false
				continue
			}
			if ch == '\\' {
				escaped = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case open:
			if depth == 0 {
				start = i
			}
			depth++
		case close:
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				return strings.TrimSpace(input[start : i+1])
			}
		}
	}
	return ""
}
