package asset

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// text renders scalar values as trimmed strings. Containers and nil give "".
func text(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// toInt coerces numbers and numeric strings, truncating fractions toward zero.
func toInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int32:
		return int(t), true
	case int64:
		return int(t), true
	case float32:
		return floatToInt(float64(t))
	case float64:
		return floatToInt(t)
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return int(n), true
		}
		if f, err := t.Float64(); err == nil {
			return floatToInt(f)
		}
		return 0, false
	case string:
		s := strings.TrimSpace(t)
		if n, err := strconv.Atoi(s); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return floatToInt(f)
		}
		return 0, false
	default:
		return 0, false
	}
}

func floatToInt(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	f = math.Trunc(f)
	if f >= math.MaxInt {
		return math.MaxInt, true
	}
	if f <= math.MinInt {
		return math.MinInt, true
	}
	return int(f), true
}

func intOr(v any, def int) int {
	if n, ok := toInt(v); ok {
		return n
	}
	return def
}

func boolOr(v any, def bool) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "y", "1":
			return true
		case "false", "no", "n", "0":
			return false
		}
		return def
	case nil:
		return def
	}
	if n, ok := toInt(v); ok {
		return n != 0
	}
	return def
}

func clampInt(n, lo, hi int) int {
	return max(lo, min(n, hi))
}

func clampFloat(f, lo, hi float64) float64 {
	return math.Max(lo, math.Min(f, hi))
}
