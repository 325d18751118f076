// Package values converts loosely typed configuration values.
// TOML decodes integers as int64, environment overrides arrive as strings,
// and in-memory stores hold whatever was set; these helpers accept all three.
package values

import (
	"strconv"
	"strings"
	"time"
)

// String returns v as a string, or "".
func String(v any) string {
	s, _ := v.(string)
	return s
}

// Int converts v to an int, or 0.
func Int(v any) int {
	switch x := v.(type) {
	case int:
		return x
	case int64:
		return int(x)
	case float64:
		return int(x)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// Float converts v to a float64, or 0.
func Float(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// Bool converts v to a bool, or false.
func Bool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		return err == nil && b
	default:
		return false
	}
}

// Duration converts v to a time.Duration. Strings are parsed with
// time.ParseDuration; bare integers are seconds.
func Duration(v any) time.Duration {
	switch x := v.(type) {
	case time.Duration:
		return x
	case string:
		d, err := time.ParseDuration(strings.TrimSpace(x))
		if err != nil {
			return 0
		}
		return d
	case int, int64:
		return time.Duration(Int(x)) * time.Second
	default:
		return 0
	}
}
