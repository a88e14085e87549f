// Package attrs reads slog-style key/value attribute slices
// ([key1, value1, key2, value2, ...]) so the same slice can feed a log line
// and an audit event.
package attrs

import "fmt"

// ExtractString returns the string value stored under key, or "".
func ExtractString(attrs []any, key string) string {
	for i := 0; i < len(attrs)-1; i += 2 {
		k, ok := attrs[i].(string)
		if !ok || k != key {
			continue
		}
		switch v := attrs[i+1].(type) {
		case string:
			return v
		case fmt.Stringer:
			return v.String()
		}
	}
	return ""
}

// ToMap flattens the pairs into strings, skipping skip keys and non-string keys.
// Later duplicates win.
func ToMap(attrs []any, skip ...string) map[string]string {
	out := make(map[string]string, len(attrs)/2)
	for i := 0; i < len(attrs)-1; i += 2 {
		k, ok := attrs[i].(string)
		if !ok || contains(skip, k) {
			continue
		}
		out[k] = fmt.Sprint(attrs[i+1])
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
