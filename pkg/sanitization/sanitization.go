// Package sanitization keeps queue data safe to write to logs.
package sanitization

import (
	"fmt"
	"strings"
)

const redactedValue = "[REDACTED]"

const truncationMarker = "...(truncated)"

// SanitizationType defines how to sanitize a field.
type SanitizationType int

const (
	FullyRedact SanitizationType = iota
	PartialMask
)

// SensitiveFields defines fields that require explicit sanitization behavior.
//
// Keys are lowercased field names.
var SensitiveFields = map[string]SanitizationType{
	"receipt_handle":  PartialMask,
	"receipthandle":   PartialMask,
	"ack_token":       PartialMask,
	"account_id":      PartialMask,
	"aws_account_id":  PartialMask,
	"access_key_id":   PartialMask,
	"aws_access_key":  PartialMask,
	"secret_key":      FullyRedact,
	"aws_secret_key":  FullyRedact,
	"session_token":   FullyRedact,
	"password":        FullyRedact,
	"authorization":   FullyRedact,
	"x-amz-signature": FullyRedact,
}

var blockedSubstrings = []string{
	"secret",
	"token",
	"password",
	"credential",
	"authorization",
}

// SanitizeLogString removes control characters that could enable log forging.
func SanitizeLogString(value string) string {
	if value == "" {
		return value
	}
	value = strings.ReplaceAll(value, "\r", "")
	value = strings.ReplaceAll(value, "\n", "")
	return value
}

// SanitizeFieldValue sanitizes a field value based on its key name.
func SanitizeFieldValue(key string, value any) any {
	keyLower := strings.ToLower(strings.TrimSpace(key))
	if keyLower == "" {
		return sanitizeValue(value)
	}

	if typ, ok := SensitiveFields[keyLower]; ok {
		if typ == PartialMask {
			return maskValue(value)
		}
		return redactedValue
	}

	for _, substr := range blockedSubstrings {
		if strings.Contains(keyLower, substr) {
			return redactedValue
		}
	}

	return sanitizeValue(value)
}

// Truncate shortens value to at most limit bytes, ending in a marker when cut.
func Truncate(value string, limit int) string {
	if limit <= 0 || len(value) <= limit {
		return value
	}
	if limit <= len(truncationMarker) {
		return strings.ToValidUTF8(value[:limit], "")
	}
	return strings.ToValidUTF8(value[:limit-len(truncationMarker)], "") + truncationMarker
}

func sanitizeValue(value any) any {
	switch typed := value.(type) {
	case nil:
		return nil
	case string:
		return SanitizeLogString(typed)
	case []byte:
		return SanitizeLogString(string(typed))
	case bool, int, int32, int64, float64:
		return typed
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, v := range typed {
			out[k] = SanitizeFieldValue(k, v)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i := range typed {
			out[i] = sanitizeValue(typed[i])
		}
		return out
	case error:
		return SanitizeLogString(typed.Error())
	default:
		return SanitizeLogString(fmt.Sprintf("%v", typed))
	}
}

func maskValue(value any) string {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return redactedValue
	}

	s = strings.TrimSpace(s)
	if len(s) < 8 {
		return redactedValue
	}
	return "..." + s[len(s)-4:]
}
