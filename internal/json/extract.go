// Package json extracts structured objects from model completions.
//
// Completions often wrap JSON in code fences or surround it with prose.
// Extraction proceeds in tiers, from strictest to most lenient:
//  1. strip a surrounding code fence (with optional language tag)
//  2. parse the remaining text as strict JSON
//  3. parse the first balanced brace-delimited substring
//
// When every tier fails the caller receives ErrNoJSON and applies its own
// default.
package json

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSON is returned when no tier yields a valid JSON object.
var ErrNoJSON = errors.New("no valid JSON object in response")

// Tier identifies which extraction step produced the object.
type Tier int

const (
	TierNone Tier = iota
	TierStrict
	TierBalanced
)

// String returns the string representation of the tier.
func (t Tier) String() string {
	switch t {
	case TierStrict:
		return "strict"
	case TierBalanced:
		return "balanced"
	default:
		return "none"
	}
}

// StripCodeFence removes a leading ``` fence (and its language tag, if any)
// and a trailing ``` fence. Text without fences is returned trimmed.
func StripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```")
		// The language tag runs to the end of the first line.
		if nl := strings.IndexByte(trimmed, '\n'); nl >= 0 {
			tag := strings.TrimSpace(trimmed[:nl])
			if !strings.ContainsAny(tag, "{[ ") {
				trimmed = trimmed[nl+1:]
			}
		} else if tag := leadingWord(trimmed); tag != "" && strings.IndexAny(trimmed[len(tag):], "{[") == 0 {
			trimmed = trimmed[len(tag):]
		}
	}
	trimmed = strings.TrimSpace(trimmed)
	if strings.HasSuffix(trimmed, "```") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, "```"))
	}
	return trimmed
}

func leadingWord(s string) string {
	end := strings.IndexAny(s, " \t{[")
	if end < 0 {
		return s
	}
	return s[:end]
}

// FirstBalancedObject returns the first substring that starts with '{' and
// ends at its matching '}'. Braces inside string literals are ignored.
func FirstBalancedObject(s string) (string, bool) {
	return scanObjects(s, func(string) bool { return true })
}

// scanObjects walks balanced brace-delimited substrings left to right and
// returns the first one accepted by keep.
func scanObjects(s string, keep func(string) bool) (string, bool) {
	for start := strings.IndexByte(s, '{'); start >= 0; {
		if end, ok := matchBrace(s, start); ok && keep(s[start:end+1]) {
			return s[start : end+1], true
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

func matchBrace(s string, start int) (int, bool) {
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
				return i, true
			}
		}
	}
	return 0, false
}

// Extract returns the JSON object text found in response and the tier that
// found it.
func Extract(response string) (string, Tier, error) {
	body := StripCodeFence(response)

	if isObject(body) {
		return body, TierStrict, nil
	}

	if candidate, ok := scanObjects(body, isObject); ok {
		return candidate, TierBalanced, nil
	}

	return "", TierNone, fmt.Errorf("%w: %q", ErrNoJSON, preview(response))
}

func isObject(s string) bool {
	var obj map[string]json.RawMessage
	return json.Unmarshal([]byte(s), &obj) == nil
}

func preview(s string) string {
	if len(s) > 100 {
		return s[:100] + "..."
	}
	return s
}

// ExtractJSONFromResponse extracts and decodes a JSON object from a model
// response into T.
func ExtractJSONFromResponse[T any](response string) (T, Tier, error) {
	var result T
	raw, tier, err := Extract(response)
	if err != nil {
		return result, TierNone, err
	}
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return result, TierNone, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return result, tier, nil
}
