package state

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ToSequence returns v as a slice, or an empty slice when v is not one.
func ToSequence(v any) []any {
	switch s := v.(type) {
	case []any:
		return s
	case []string:
		out := make([]any, len(s))
		for i, x := range s {
			out[i] = x
		}
		return out
	case []map[string]any:
		out := make([]any, len(s))
		for i, x := range s {
			out[i] = x
		}
		return out
	default:
		return []any{}
	}
}

// ToFiniteNumber returns v as a float64 when it is a finite number, or
// fallback otherwise. Strings are not parsed.
func ToFiniteNumber(v any, fallback float64) float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return fallback
		}
		f = parsed
	default:
		return fallback
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fallback
	}
	return f
}

// ToText returns v when it is a string, or fallback otherwise.
func ToText(v any, fallback string) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fallback
}

// toObject returns v as a JSON object, or nil.
func toObject(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// toTimestamp is looser than ToFiniteNumber: numeric strings count.
func toTimestamp(v any) (int64, bool) {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		v = f
	}
	f := ToFiniteNumber(v, math.NaN())
	// float64(math.MaxInt64) rounds up to 2^63, which overflows int64.
	if math.IsNaN(f) || f >= 1<<63 || f < -(1<<63) {
		return 0, false
	}
	return int64(f), true
}

// toWeeks truncates a finite interval and rejects anything not positive.
func toWeeks(v any, fallback int) int {
	f := ToFiniteNumber(v, float64(fallback))
	if f > math.MaxInt32 {
		return fallback
	}
	w := int(f)
	if w <= 0 {
		return fallback
	}
	return w
}

// toStart keeps a non-empty string start date.
func toStart(v any) *string {
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	return &s
}
