package filter

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Gattoajatooo/back-sparta-sub007/internal/domain"
)

func invalidValue(raw domain.FilterClause, format string, args ...any) error {
	return fmt.Errorf("%w: filter %s/%s: %s", domain.ErrValidation, raw.Field, raw.Operator, fmt.Sprintf(format, args...))
}

// stringValues flattens a clause value into trimmed, non-empty strings. A plain
// string is split on commas so "a,b" and ["a","b"] are equivalent.
func stringValues(v any) []string {
	var out []string
	appendOne := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}

	switch val := v.(type) {
	case nil:
	case string:
		for _, part := range strings.Split(val, ",") {
			appendOne(part)
		}
	case []string:
		for _, s := range val {
			appendOne(s)
		}
	case []any:
		for _, item := range val {
			out = append(out, stringValues(item)...)
		}
	case json.Number:
		appendOne(val.String())
	case float64:
		appendOne(strconv.FormatFloat(val, 'f', -1, 64))
	case int:
		appendOne(strconv.Itoa(val))
	case int64:
		appendOne(strconv.FormatInt(val, 10))
	case bool:
		appendOne(strconv.FormatBool(val))
	default:
		appendOne(fmt.Sprint(val))
	}

	return out
}

func numberValue(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(val, ",", ".")), 64)
		return f, err == nil
	case []any:
		if len(val) == 1 {
			return numberValue(val[0])
		}
	}
	return 0, false
}

// rangeValue accepts [lo, hi], {"min":lo,"max":hi} or {"from":lo,"to":hi}. The
// result is ordered so lo <= hi.
func rangeValue(v any) (float64, float64, bool) {
	var lo, hi float64
	var okLo, okHi bool

	switch val := v.(type) {
	case []any:
		if len(val) != 2 {
			return 0, 0, false
		}
		lo, okLo = numberValue(val[0])
		hi, okHi = numberValue(val[1])
	case []float64:
		if len(val) != 2 {
			return 0, 0, false
		}
		lo, hi, okLo, okHi = val[0], val[1], true, true
	case map[string]any:
		lo, okLo = firstNumber(val, "min", "from", "start")
		hi, okHi = firstNumber(val, "max", "to", "end")
	default:
		return 0, 0, false
	}

	if !okLo || !okHi {
		return 0, 0, false
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo, hi, true
}

func firstNumber(m map[string]any, keys ...string) (float64, bool) {
	for _, key := range keys {
		if raw, ok := m[key]; ok {
			return numberValue(raw)
		}
	}
	return 0, false
}
