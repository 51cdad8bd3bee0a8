package workflow

import (
	"encoding/json"
	"strings"
)

// balancedSpans returns every top-level substring of s delimited by a
// balanced pair of open/close bytes, ordered from largest to smallest;
// spans nested inside another span are not returned separately. It ignores
// braces inside string literals so a quoted "}" in an LM response doesn't
// break the count.
func balancedSpans(s string, open, close byte) []string {
	var spans []string
	depth := 0
	start := -1
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
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
		case open:
			if depth == 0 {
				start = i
			}
			depth++
		case close:
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					spans = append(spans, s[start:i+1])
					start = -1
				}
			}
		}
	}

	// Largest first: when the text holds several top-level objects, the
	// biggest is the most likely payload.
	return sortByLenDesc(spans)
}

func sortByLenDesc(spans []string) []string {
	for i := 1; i < len(spans); i++ {
		j := i
		for j > 0 && len(spans[j-1]) < len(spans[j]) {
			spans[j-1], spans[j] = spans[j], spans[j-1]
			j--
		}
	}
	return spans
}

// extractObject parses the largest balanced `{...}` span in raw that
// unmarshals as a JSON object, trying progressively smaller candidates.
// If requiredKeys is non-empty, a candidate only counts if it contains at
// least one of them (case-insensitive, matching §4.11 node 8's "contains
// at least one of {why, how, what_if, so_what} keys" rule). Returns
// (nil, false) if nothing parses.
func extractObject(raw string, requiredKeys ...string) (map[string]interface{}, bool) {
	for _, span := range balancedSpans(raw, '{', '}') {
		var obj map[string]interface{}
		if err := json.Unmarshal([]byte(span), &obj); err != nil {
			continue
		}
		if len(requiredKeys) == 0 || hasAnyKey(obj, requiredKeys) {
			return obj, true
		}
	}
	return nil, false
}

// extractArray parses the largest balanced `[...]` span in raw that
// unmarshals into target, trying progressively smaller candidates.
func extractArray(raw string, target interface{}) bool {
	for _, span := range balancedSpans(raw, '[', ']') {
		if err := json.Unmarshal([]byte(span), target); err == nil {
			return true
		}
	}
	return false
}

func hasAnyKey(obj map[string]interface{}, keys []string) bool {
	for _, k := range keys {
		for objKey := range obj {
			if strings.EqualFold(objKey, k) {
				return true
			}
		}
	}
	return false
}
