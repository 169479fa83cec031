package state

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToSequence(t *testing.T) {
	assert.Equal(t, []any{1.0, "a"}, ToSequence([]any{1.0, "a"}))
	assert.Equal(t, []any{"x", "y"}, ToSequence([]string{"x", "y"}))
	assert.Equal(t, []any{}, ToSequence(nil))
	assert.Equal(t, []any{}, ToSequence("not a list"))
	assert.Equal(t, []any{}, ToSequence(map[string]any{"0": 1}))
}

func TestToFiniteNumber(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want float64
	}{
		{"float", 3.5, 3.5},
		{"int", 4, 4},
		{"int64", int64(9), 9},
		{"json number", json.Number("12"), 12},
		{"bad json number", json.Number("x"), -1},
		{"nan", math.NaN(), -1},
		{"inf", math.Inf(1), -1},
		{"string", "12", -1},
		{"nil", nil, -1},
		{"bool", true, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToFiniteNumber(tt.in, -1))
		})
	}
}

func TestToText(t *testing.T) {
	assert.Equal(t, "abc", ToText("abc", "x"))
	assert.Equal(t, "", ToText("", "x"))
	assert.Equal(t, "x", ToText(5, "x"))
	assert.Equal(t, "x", ToText(nil, "x"))
}

func TestToTimestamp(t *testing.T) {
	ts, ok := toTimestamp(1700000000000.0)
	assert.True(t, ok)
	assert.Equal(t, int64(1700000000000), ts)

	ts, ok = toTimestamp(" 42 ")
	assert.True(t, ok)
	assert.Equal(t, int64(42), ts)

	ts, ok = toTimestamp(12.9)
	assert.True(t, ok)
	assert.Equal(t, int64(12), ts)

	for _, bad := range []any{nil, "", "soon", true, math.Inf(-1), 1e300, float64(math.MaxInt64), "9223372036854775807"} {
		_, ok := toTimestamp(bad)
		assert.False(t, ok, "%v", bad)
	}

	ts, ok = toTimestamp(float64(math.MinInt64))
	assert.True(t, ok)
	assert.Equal(t, int64(math.MinInt64), ts)
}

func TestNormalizeEntry_TimestampAtInt64EdgeFallsBackToNow(t *testing.T) {
	now := time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)
	var raw any
	require.NoError(t, json.Unmarshal([]byte(`{"ts":9223372036854775807,"site":"Right Arm"}`), &raw))

	e := NormalizeEntry(raw, now)

	assert.Equal(t, now.UnixMilli(), e.TS)
	assert.Equal(t, "Right Arm", e.Site)
}

func TestToWeeks(t *testing.T) {
	assert.Equal(t, 4, toWeeks(4.0, 8))
	assert.Equal(t, 2, toWeeks(2.7, 8))
	assert.Equal(t, 8, toWeeks(0.0, 8))
	assert.Equal(t, 8, toWeeks(-3.0, 8))
	assert.Equal(t, 8, toWeeks(0.5, 8))
	assert.Equal(t, 8, toWeeks("4", 8))
	assert.Equal(t, 8, toWeeks(1e12, 8))
}
