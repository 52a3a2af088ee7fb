package docstore

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Matches reports whether d satisfies every entry of f.
func Matches(d Doc, f Filter) bool {
	for path, want := range f {
		if !matchPath(map[string]any(d), strings.Split(path, "."), normalize(want)) {
			return false
		}
	}
	return true
}

func matchPath(cur any, parts []string, want any) bool {
	if len(parts) == 0 {
		if reflect.DeepEqual(normalize(cur), want) {
			return true
		}
		if arr, ok := cur.([]any); ok {
			for _, el := range arr {
				if reflect.DeepEqual(normalize(el), want) {
					return true
				}
			}
		}
		return false
	}
	switch v := cur.(type) {
	case map[string]any:
		next, ok := v[parts[0]]
		if !ok {
			return false
		}
		return matchPath(next, parts[1:], want)
	case Doc:
		return matchPath(map[string]any(v), parts, want)
	case []any:
		for _, el := range v {
			if matchPath(el, parts, want) {
				return true
			}
		}
	}
	return false
}

// normalize maps Go values onto their decoded-JSON shape (float64 numbers, []any, map[string]any).
func normalize(v any) any {
	switch x := v.(type) {
	case nil, string, bool, float64:
		return x
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case float32:
		return float64(x)
	case Doc:
		return normalize(map[string]any(x))
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, el := range x {
			out[k] = normalize(el)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, el := range x {
			out[i] = normalize(el)
		}
		return out
	default:
		raw, err := json.Marshal(x)
		if err != nil {
			return x
		}
		var out any
		if err := json.Unmarshal(raw, &out); err != nil {
			return x
		}
		return out
	}
}

// apply mutates d in place.
func apply(d Doc, mut Mutation) error {
	for path, val := range mut.Set {
		parent, leaf, err := walk(d, path)
		if err != nil {
			return err
		}
		parent[leaf] = normalize(val)
	}
	for path, delta := range mut.Inc {
		parent, leaf, err := walk(d, path)
		if err != nil {
			return err
		}
		cur := 0.0
		switch n := parent[leaf].(type) {
		case nil:
		case float64:
			cur = n
		default:
			return fmt.Errorf("cannot increment non-numeric field %q", path)
		}
		parent[leaf] = cur + delta
	}
	return nil
}

// walk returns the object holding the last segment of path, creating missing objects on the way.
func walk(d Doc, path string) (map[string]any, string, error) {
	parts := strings.Split(path, ".")
	cur := map[string]any(d)
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p]
		if !ok || next == nil {
			m := map[string]any{}
			cur[p] = m
			cur = m
			continue
		}
		m, ok := next.(map[string]any)
		if !ok {
			return nil, "", fmt.Errorf("field %q in path %q is not an object", p, path)
		}
		cur = m
	}
	return cur, parts[len(parts)-1], nil
}
