// Package jsonx isolates JSON objects embedded in free-form model output.
package jsonx

import (
	"encoding/json"
	"errors"
)

// ErrNoJSON is returned when the input holds no balanced, parseable JSON object.
var ErrNoJSON = errors.New("no valid JSON object found in response")

// ExtractObject returns the first top-level balanced {...} span of s.
//
// The scan tracks brace depth, whether it is inside a string literal, and whether the
// previous string character was a backslash. Braces inside strings do not count.
// Only the first balanced object is considered: if it is not valid JSON the scan does
// not resume, and ErrNoJSON is returned.
func ExtractObject(s string) (json.RawMessage, error) {
	depth := 0
	start := -1
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		ch := s[i]
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
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				span := s[start : i+1]
				if !json.Valid([]byte(span)) {
					return nil, ErrNoJSON
				}
				return json.RawMessage(span), nil
			}
		}
	}
	return nil, ErrNoJSON
}

// Extract parses the first embedded object into a generic map.
func Extract(s string) (map[string]any, error) {
	raw, err := ExtractObject(s)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, ErrNoJSON
	}
	return out, nil
}

// Decode unmarshals the first embedded object into v.
func Decode(s string, v any) error {
	raw, err := ExtractObject(s)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
