package pipeline

import "strings"

const (
	jsonFence = "```json"
	fence     = "```"
)

// ExtractJSON pulls the JSON object out of a free-text model reply.
//
// Rules, in order:
//  1. trim surrounding whitespace and a leading byte-order mark;
//  2. if a fence tagged json exists take its body, else if any fence exists
//     take the body of the first one (an unclosed fence runs to the end);
//  3. if the result contains '{', keep the span from the first '{' to the
//     last '}'.
//
// Clean JSON passes through unchanged.
func ExtractJSON(text string) string {
	s := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), "\ufeff"))

	if i := strings.Index(s, jsonFence); i >= 0 {
		s = fenceBody(s[i+len(jsonFence):])
	} else if i := strings.Index(s, fence); i >= 0 {
		s = fenceBody(s[i+len(fence):])
	}

	if start := strings.Index(s, "{"); start >= 0 {
		end := strings.LastIndex(s, "}")
		if end < start {
			return s[start:]
		}
		s = s[start : end+1]
	}
	return s
}

func fenceBody(rest string) string {
	if j := strings.Index(rest, fence); j >= 0 {
		rest = rest[:j]
	}
	return strings.TrimSpace(rest)
}
