package state

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consequentlyvaluable/InjectionBuddy/internal/zone"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestNormalizeEntry(t *testing.T) {
	e := NormalizeEntry(map[string]any{"ts": 100.0, "site": "Left Arm", "dose": "150mg"}, testNow)
	assert.Equal(t, HistoryEntry{TS: 100, Site: "Left Arm", Dose: "150mg"}, e)

	e = NormalizeEntry(map[string]any{"site": 3, "dose": nil}, testNow)
	assert.Equal(t, HistoryEntry{TS: testNow.UnixMilli(), Site: "", Dose: ""}, e)

	e = NormalizeEntry("garbage", testNow)
	assert.Equal(t, HistoryEntry{TS: testNow.UnixMilli()}, e)

	e = NormalizeEntry(nil, testNow)
	assert.Equal(t, testNow.UnixMilli(), e.TS)
}

func TestNormalizeState_Defaults(t *testing.T) {
	for _, raw := range []any{nil, map[string]any{}, []any{1, 2}, "text", 42.0} {
		d := NormalizeState(raw, testNow)
		assert.Nil(t, d.Injection.Start)
		assert.Equal(t, DefaultInterval, d.Injection.Interval)
		assert.Equal(t, "", d.Injection.Dose)
		assert.NotNil(t, d.Injection.History)
		assert.Empty(t, d.Injection.History)
		assert.Equal(t, zone.All(), d.Injection.Zones)
		assert.Equal(t, CurrentSchemaVersion, d.SchemaVersion)
	}
}

func TestNormalizeState_ShapedInput(t *testing.T) {
	raw := decode(t, `{
		"injection": {
			"start": "2024-01-01",
			"interval": 4,
			"dose": "150mg",
			"history": [
				{"ts": 300, "site": "Left Arm", "dose": "a"},
				{"ts": 100, "site": "Right Arm", "dose": "b"},
				{"ts": 200, "site": "Free text"}
			],
			"zones": ["Left Arm", "Bogus", 7, "Right Stomach"]
		},
		"schemaVersion": 2
	}`)
	d := NormalizeState(raw, testNow)

	require.NotNil(t, d.Injection.Start)
	assert.Equal(t, "2024-01-01", *d.Injection.Start)
	assert.Equal(t, 4, d.Injection.Interval)
	assert.Equal(t, "150mg", d.Injection.Dose)
	assert.Equal(t, []HistoryEntry{
		{TS: 100, Site: "Right Arm", Dose: "b"},
		{TS: 200, Site: "Free text", Dose: ""},
		{TS: 300, Site: "Left Arm", Dose: "a"},
	}, d.Injection.History)
	assert.Equal(t, []string{"Left Arm", "Right Stomach"}, d.Injection.Zones)
	assert.Equal(t, CurrentSchemaVersion, d.SchemaVersion)
}

func TestNormalizeState_FalsyStartAndBadInterval(t *testing.T) {
	d := NormalizeState(decode(t, `{"injection":{"start":"","interval":-2}}`), testNow)
	assert.Nil(t, d.Injection.Start)
	assert.Equal(t, 8, d.Injection.Interval)

	d = NormalizeState(decode(t, `{"injection":{"start":false,"interval":"12"}}`), testNow)
	assert.Nil(t, d.Injection.Start)
	assert.Equal(t, 8, d.Injection.Interval)
}

func TestNormalizeState_ZonesSelfHeal(t *testing.T) {
	for _, zones := range []string{`[]`, `["nope"]`, `"Right Arm"`, `null`} {
		d := NormalizeState(decode(t, `{"injection":{"zones":`+zones+`}}`), testNow)
		assert.Equal(t, zone.All(), d.Injection.Zones, zones)
	}
}

func TestNormalizeState_StableSort(t *testing.T) {
	raw := decode(t, `{"injection":{"history":[
		{"ts": 5, "site": "first"},
		{"ts": 1, "site": "x"},
		{"ts": 5, "site": "second"}
	]}}`)
	d := NormalizeState(raw, testNow)
	require.Len(t, d.Injection.History, 3)
	assert.Equal(t, "first", d.Injection.History[1].Site)
	assert.Equal(t, "second", d.Injection.History[2].Site)
}

func TestNormalizeState_Idempotent(t *testing.T) {
	inputs := []any{
		nil,
		map[string]any{},
		[]any{},
		decode(t, `{"injection": {"history": [{"ts": 3}, {"site": "Left Arm"}, {"ts": 1, "dose": "x"}]}}`),
		decode(t, `{"injection": {"start": "2024-02-02", "interval": 0, "zones": ["Left Arm", "Left Arm"]}}`),
		decode(t, `{"injection": 5}`),
	}
	for i, in := range inputs {
		once := NormalizeState(in, testNow)
		twice := NormalizeState(once, testNow)
		assert.Equal(t, once, twice, "input %d", i)

		// The same must hold once the document round-trips through JSON.
		b, err := json.Marshal(once)
		require.NoError(t, err)
		again := NormalizeState(decode(t, string(b)), testNow.Add(time.Hour))
		assert.Equal(t, once, again, "input %d via json", i)
	}
}

func TestNormalizeState_SortInvariant(t *testing.T) {
	raw := decode(t, `{"injection":{"history":[
		{"ts": 9}, {"ts": 2}, {"ts": "7"}, {"ts": 4}, {}, {"ts": -1}
	]}}`)
	h := NormalizeState(raw, testNow).Injection.History
	for i := 0; i+1 < len(h); i++ {
		assert.LessOrEqual(t, h[i].TS, h[i+1].TS)
	}
}

func TestNormalize_TypedDoesNotAlias(t *testing.T) {
	start := "2024-05-05"
	in := Document{Injection: InjectionProfile{
		Start:   &start,
		History: []HistoryEntry{{TS: 2}, {TS: 1}},
		Zones:   []string{"Left Arm"},
	}}
	out := Normalize(in)
	assert.Equal(t, int64(2), in.Injection.History[0].TS, "input must not be reordered")
	assert.Equal(t, int64(1), out.Injection.History[0].TS)

	out.Injection.Zones[0] = "changed"
	*out.Injection.Start = "changed"
	assert.Equal(t, "Left Arm", in.Injection.Zones[0])
	assert.Equal(t, "2024-05-05", start)
}

func TestFresh(t *testing.T) {
	d := Fresh()
	assert.Empty(t, d.Injection.History)
	assert.Equal(t, zone.All(), d.Injection.Zones)
	assert.Equal(t, DefaultInterval, d.Injection.Interval)
}

func TestHasEntryOn(t *testing.T) {
	p := InjectionProfile{History: []HistoryEntry{
		{TS: time.Date(2024, 1, 5, 23, 30, 0, 0, time.UTC).UnixMilli()},
	}}
	assert.True(t, p.HasEntryOn(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), time.UTC))
	assert.False(t, p.HasEntryOn(time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC), time.UTC))

	east := time.FixedZone("UTC+2", 2*3600)
	assert.True(t, p.HasEntryOn(time.Date(2024, 1, 6, 9, 0, 0, 0, east), east))
}

func TestClone(t *testing.T) {
	start := "2024-01-01"
	d := Document{Injection: InjectionProfile{Start: &start, History: []HistoryEntry{{TS: 1}}, Zones: []string{"Left Arm"}}}
	c := d.Clone()
	c.Injection.History[0].TS = 9
	c.Injection.Zones[0] = "x"
	*c.Injection.Start = "x"
	assert.Equal(t, int64(1), d.Injection.History[0].TS)
	assert.Equal(t, "Left Arm", d.Injection.Zones[0])
	assert.Equal(t, "2024-01-01", *d.Injection.Start)
}
