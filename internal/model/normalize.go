package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// CleanString converts a loosely typed document value to a string.
// nil becomes "", strings pass through, everything else is formatted.
func CleanString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case json.Number:
		return s.String()
	case float64:
		if s == math.Trunc(s) && !math.IsInf(s, 0) {
			return strconv.FormatFloat(s, 'f', -1, 64)
		}
		return strconv.FormatFloat(s, 'g', -1, 64)
	default:
		return fmt.Sprint(s)
	}
}

// TrimmedString is CleanString followed by whitespace trimming.
func TrimmedString(v any) string {
	return strings.TrimSpace(CleanString(v))
}

// NonNegativeInt converts a loosely typed numeric value to an int64 >= 0.
// Non-numeric values (including numeric strings) and NaN become 0,
// fractions are floored and negatives clamp to 0.
func NonNegativeInt(v any) int64 {
	var f float64
	switch n := v.(type) {
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		if n < 0 {
			return 0
		}
		return n
	case float32:
		f = float64(n)
	case float64:
		f = n
	case json.Number:
		if i, err := n.Int64(); err == nil {
			if i < 0 {
				return 0
			}
			return i
		}
		parsed, err := n.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || f <= 0 {
		return 0
	}
	if f >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(math.Floor(f))
}

// Bool reports whether v is the boolean true. Anything else is false.
func Bool(v any) bool {
	b, ok := v.(bool)
	return ok && b
}
