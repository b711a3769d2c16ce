package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ParseResult is either a decoded JSON object or a failure carrying the raw text.
type ParseResult struct {
	Parsed map[string]any
	Raw    string
	Err    error
	// Recovered is set when the object came from the balanced-brace fallback.
	Recovered bool
}

func (r ParseResult) OK() bool { return r.Err == nil && r.Parsed != nil }

var errNoObject = errors.New("no JSON object found")

// ParseResponse decodes a model response. It strips markdown fences and parses the
// whole text; failing that it parses the first balanced {...} span.
func ParseResponse(raw string) ParseResult {
	text := stripCodeFences(raw)
	var m map[string]any
	err := json.Unmarshal([]byte(text), &m)
	if err == nil && m != nil {
		return ParseResult{Parsed: m, Raw: raw}
	}

	span, ok := firstBalancedObject(raw)
	if !ok {
		if err == nil {
			err = errNoObject
		}
		return ParseResult{Raw: raw, Err: fmt.Errorf("%w: %v", errNoObject, err)}
	}
	var m2 map[string]any
	if err2 := json.Unmarshal([]byte(span), &m2); err2 != nil {
		return ParseResult{Raw: raw, Err: fmt.Errorf("decode recovered object: %w", err2)}
	}
	return ParseResult{Parsed: m2, Raw: raw, Recovered: true}
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// language tag such as json
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		if tag := strings.TrimSpace(s[:i]); !strings.ContainsAny(tag, "{[") {
			s = s[i+1:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// firstBalancedObject returns the first {...} span whose braces balance, ignoring
// braces inside JSON strings.
func firstBalancedObject(s string) (string, bool) {
	for start := strings.IndexByte(s, '{'); start >= 0; {
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
					return s[start : i+1], true
				}
			}
		}
		// unbalanced from this brace; try the next one
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}
