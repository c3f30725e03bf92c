package envelope

import (
	"encoding/json"
	"strconv"
	"strings"
)

// MaxDepth bounds how deeply DeepParse descends into nested values and re-parsed strings.
const MaxDepth = 64

// DeepParse walks a generic JSON value and replaces every string that itself parses as
// JSON with its parsed form, recursively. Numeric-looking strings are kept as strings so
// identifiers such as "0042" survive untouched.
//
// DeepParse is idempotent for values nested less than MaxDepth levels deep.
func DeepParse(value any) any {
	return deepParse(value, 0)
}

func deepParse(value any, depth int) any {
	if depth >= MaxDepth {
		return value
	}

	switch typed := value.(type) {
	case string:
		parsed, ok := parseJSONString(typed)
		if !ok {
			return typed
		}
		return deepParse(parsed, depth+1)
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = deepParse(item, depth+1)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, v := range typed {
			out[k] = deepParse(v, depth+1)
		}
		return out
	default:
		return value
	}
}

// parseJSONString reports whether s is a JSON document other than a bare number.
func parseJSONString(s string) (any, bool) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || isNumeric(trimmed) {
		return nil, false
	}

	var out any
	if err := json.Unmarshal([]byte(trimmed), &out); err != nil {
		return nil, false
	}
	return out, true
}

func isNumeric(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// unwrapObject parses raw JSON into an object, following any layers where the document is
// a string holding more JSON.
func unwrapObject(raw []byte) (map[string]any, error) {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, err
	}

	for depth := 0; depth < MaxDepth; depth++ {
		switch typed := value.(type) {
		case map[string]any:
			return typed, nil
		case string:
			var next any
			if err := json.Unmarshal([]byte(typed), &next); err != nil {
				return nil, errNotObject
			}
			value = next
		default:
			return nil, errNotObject
		}
	}
	return nil, errTooDeep
}
