package state

import (
	"sort"
	"time"

	"github.com/consequentlyvaluable/InjectionBuddy/internal/zone"
)

// NormalizeEntry coerces a raw history record. It never fails: a missing or
// non-numeric ts becomes now, and non-string site/dose become "".
func NormalizeEntry(raw any, now time.Time) HistoryEntry {
	obj := toObject(raw)
	ts, ok := toTimestamp(obj["ts"])
	if !ok {
		ts = EpochMillis(now)
	}
	return HistoryEntry{
		TS:   ts,
		Site: ToText(obj["site"], ""),
		Dose: ToText(obj["dose"], ""),
	}
}

// NormalizeState coerces raw into a valid Document. raw is usually the
// result of decoding JSON into an any; typed Documents are accepted too.
func NormalizeState(raw any, now time.Time) Document {
	switch d := raw.(type) {
	case Document:
		return Normalize(d)
	case *Document:
		if d == nil {
			break
		}
		return Normalize(*d)
	}

	root := toObject(raw)
	inj := toObject(root["injection"])

	rawHistory := ToSequence(inj["history"])
	history := make([]HistoryEntry, 0, len(rawHistory))
	for _, h := range rawHistory {
		history = append(history, NormalizeEntry(h, now))
	}

	rawZones := ToSequence(inj["zones"])
	zones := make([]string, 0, len(rawZones))
	for _, z := range rawZones {
		if s, ok := z.(string); ok {
			zones = append(zones, s)
		}
	}

	return Normalize(Document{
		Injection: InjectionProfile{
			Start:    toStart(inj["start"]),
			Interval: toWeeks(inj["interval"], DefaultInterval),
			Dose:     ToText(inj["dose"], ""),
			History:  history,
			Zones:    zones,
		},
	})
}

// Normalize re-applies document invariants to a typed document. The result
// shares no slices with d.
func Normalize(d Document) Document {
	p := d.Injection
	out := InjectionProfile{
		Interval: p.Interval,
		Dose:     p.Dose,
	}
	if p.Start != nil && *p.Start != "" {
		s := *p.Start
		out.Start = &s
	}
	if out.Interval <= 0 {
		out.Interval = DefaultInterval
	}

	out.History = make([]HistoryEntry, len(p.History))
	copy(out.History, p.History)
	SortHistory(out.History)

	out.Zones = zone.Filter(p.Zones)
	if len(out.Zones) == 0 {
		out.Zones = zone.All()
	}

	return Document{Injection: out, SchemaVersion: CurrentSchemaVersion}
}

// SortHistory stably sorts entries ascending by timestamp in place.
func SortHistory(h []HistoryEntry) {
	sort.SliceStable(h, func(i, j int) bool { return h[i].TS < h[j].TS })
}

// Fresh returns the document created on first load: empty history and every
// zone enabled.
func Fresh() Document {
	return Normalize(Document{})
}
