// Package clients provides shared plumbing for the broker and market data
// API clients: the adapter registry, request throttling, and defensive
// payload field extraction.
//
// Broker APIs disagree about numeric encoding. The same field arrives as a
// JSON number from one vendor and a quoted string from another, sometimes
// varying between endpoints of a single vendor. Transformers therefore work
// on map[string]interface{} payloads through the helpers below instead of
// rigid struct tags.
package clients

import (
	"fmt"
	"strconv"
)

// GetString extracts a string field, converting non-string scalars.
func GetString(m map[string]interface{}, key string) string {
	if val, exists := m[key]; exists {
		if str, ok := val.(string); ok {
			return str
		}
		if val == nil {
			return ""
		}
		return fmt.Sprintf("%v", val)
	}
	return ""
}

// GetFloat64 extracts a numeric field, tolerating string-encoded numbers.
func GetFloat64(m map[string]interface{}, key string) float64 {
	if val, exists := m[key]; exists {
		return Float64Value(val)
	}
	return 0.0
}

// Float64Value converts a scalar of any JSON numeric shape to float64.
// Unparseable values become 0.
func Float64Value(val interface{}) float64 {
	switch v := val.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		return 0.0
	default:
		return 0.0
	}
}

// Snippet truncates a response body for error messages and logs.
func Snippet(body []byte) string {
	const max = 500
	s := string(body)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

// GetMap extracts a nested object field. Missing or mistyped fields return nil.
func GetMap(m map[string]interface{}, key string) map[string]interface{} {
	if val, exists := m[key]; exists {
		if nested, ok := val.(map[string]interface{}); ok {
			return nested
		}
	}
	return nil
}

// GetSlice extracts an array field. Missing or mistyped fields return nil.
func GetSlice(m map[string]interface{}, key string) []interface{} {
	if val, exists := m[key]; exists {
		if arr, ok := val.([]interface{}); ok {
			return arr
		}
	}
	return nil
}
