// Package mapsafe reads typed values from loosely typed parameter maps, such
// as processor parameters decoded from YAML or JSON.
package mapsafe

import (
	"math"
	"time"
)

// Get retrieves a typed value from a map[string]any.
// Numbers convert between integer and float forms when no precision is lost,
// and durations parse from strings like "30s". If the key is missing or the
// value cannot be converted, it returns the default value.
func Get[T any](m map[string]any, key string, defaultValue T) T {
	val, ok := m[key]
	if !ok || val == nil {
		return defaultValue
	}
	if v, ok := val.(T); ok {
		return v
	}

	switch any(defaultValue).(type) {
	case int:
		if n, ok := number(val); ok && n == math.Trunc(n) {
			return any(int(n)).(T)
		}
	case float64:
		if n, ok := number(val); ok {
			return any(n).(T)
		}
	case time.Duration:
		if s, ok := val.(string); ok {
			if d, err := time.ParseDuration(s); err == nil {
				return any(d).(T)
			}
		}
	}
	return defaultValue
}

func number(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}
