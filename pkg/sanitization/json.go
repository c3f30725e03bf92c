package sanitization

import (
	"encoding/json"
	"fmt"
)

// SanitizeJSON recursively sanitizes a JSON document for logging.
//
// It returns compact JSON with sensitive fields masked while preserving structure.
func SanitizeJSON(jsonBytes []byte) string {
	if len(jsonBytes) == 0 {
		return "(empty)"
	}

	var data any
	if err := json.Unmarshal(jsonBytes, &data); err != nil {
		return fmt.Sprintf("(malformed JSON: %s)", SanitizeLogString(err.Error()))
	}

	out, err := json.Marshal(sanitizeJSONValue(data))
	if err != nil {
		return "(error marshaling sanitized JSON)"
	}
	return string(out)
}

func sanitizeJSONValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return sanitizeJSONObject(v)
	case []any:
		result := make([]any, len(v))
		for i := range v {
			result[i] = sanitizeJSONValue(v[i])
		}
		return result
	default:
		return sanitizeValue(v)
	}
}

func sanitizeJSONObject(obj map[string]any) map[string]any {
	result := make(map[string]any, len(obj))
	for key, value := range obj {
		// SNS envelopes carry the payload as a JSON string in "Message".
		if key == "Message" || key == "body" {
			if s, ok := value.(string); ok {
				var inner any
				if err := json.Unmarshal([]byte(s), &inner); err == nil {
					if encoded, err := json.Marshal(sanitizeJSONValue(inner)); err == nil {
						result[key] = string(encoded)
						continue
					}
				}
			}
		}

		switch sv := SanitizeFieldValue(key, value).(type) {
		case map[string]any:
			result[key] = sanitizeJSONObject(sv)
		case []any:
			result[key] = sanitizeJSONValue(sv)
		default:
			result[key] = sv
		}
	}
	return result
}
