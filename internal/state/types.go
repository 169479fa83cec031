package state

import (
	"time"
)

// Schema versions.
// 4 - two independently tracked profiles keyed by medication name
// 5 - single injection profile
const (
	LegacyTwoTrackVersion = 4
	CurrentSchemaVersion  = 5
)

// DefaultInterval is the reminder interval in weeks used when none is set.
const DefaultInterval = 8

// HistoryEntry is one logged injection.
// Site may be a label outside the zone catalog; that is resolved later, not
// rejected here.
type HistoryEntry struct {
	TS   int64  `json:"ts"`
	Site string `json:"site"`
	Dose string `json:"dose"`
}

// Time returns the entry timestamp as a time.Time.
func (e HistoryEntry) Time() time.Time {
	return time.UnixMilli(e.TS)
}

// InjectionProfile is the single mutable aggregate of the tracker.
type InjectionProfile struct {
	// Start is an ISO date (YYYY-MM-DD) anchoring the reminder schedule.
	Start    *string        `json:"start"`
	Interval int            `json:"interval"`
	Dose     string         `json:"dose"`
	History  []HistoryEntry `json:"history"`
	Zones    []string       `json:"zones"`
}

// Document is the persisted state of one installation.
type Document struct {
	Injection     InjectionProfile `json:"injection"`
	SchemaVersion int              `json:"schemaVersion"`
}

// EpochMillis converts t to the millisecond timestamps stored in history.
func EpochMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// StartDate returns the profile start date, or "" when unset.
func (p InjectionProfile) StartDate() string {
	if p.Start == nil {
		return ""
	}
	return *p.Start
}

// ZoneEnabled reports whether label is in the enabled rotation set.
func (p InjectionProfile) ZoneEnabled(label string) bool {
	for _, z := range p.Zones {
		if z == label {
			return true
		}
	}
	return false
}

// HasEntryOn reports whether any history entry falls on the same calendar
// day as t in loc.
func (p InjectionProfile) HasEntryOn(t time.Time, loc *time.Location) bool {
	day := DayKey(t, loc)
	for _, h := range p.History {
		if DayKey(h.Time(), loc) == day {
			return true
		}
	}
	return false
}

// DayKey formats t as the local calendar day used for same-day comparisons.
func DayKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(time.DateOnly)
}

// Clone returns a deep copy of d.
func (d Document) Clone() Document {
	out := d
	if d.Injection.Start != nil {
		s := *d.Injection.Start
		out.Injection.Start = &s
	}
	if d.Injection.History != nil {
		out.Injection.History = append([]HistoryEntry(nil), d.Injection.History...)
	}
	if d.Injection.Zones != nil {
		out.Injection.Zones = append([]string(nil), d.Injection.Zones...)
	}
	return out
}
