// Package parse provides string parsing utilities for CLI commands.
package parse

import (
	"encoding/json"
	"fmt"
	"strings"
)

// KeyValue parses a "key:value" or "key=value" string.
// If delimiters are provided, uses the first one found; otherwise defaults to '='.
// Returns the key, value, and a boolean indicating success.
func KeyValue(s string, delimiters ...rune) (key, value string, ok bool) {
	if len(delimiters) == 0 {
		delimiters = []rune{'='}
	}

	for i, c := range s {
		for _, d := range delimiters {
			if c == d {
				return s[:i], s[i+1:], true
			}
		}
	}
	return "", "", false
}

// Value interprets s as JSON when it parses as JSON and as a plain string
// otherwise, so "42" is a number, "true" a boolean and "cedar" a string.
func Value(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}

// Properties turns "key=value" assignments into a property map. Values
// are interpreted by Value.
func Properties(assignments []string) (map[string]any, error) {
	props := make(map[string]any, len(assignments))
	for _, a := range assignments {
		key, value, ok := KeyValue(a)
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid assignment %q: expected key=value", a)
		}
		props[strings.TrimSpace(key)] = Value(value)
	}
	return props, nil
}
