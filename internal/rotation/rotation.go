// Package rotation derives site-rotation hints from injection history.
package rotation

import (
	"sort"

	"github.com/consequentlyvaluable/InjectionBuddy/internal/state"
)

// Usage summarizes the current rotation cycle over the enabled zones.
type Usage struct {
	// Used holds the enabled zones seen since the cycle started, newest
	// first.
	Used []string `json:"used"`
	// FullCycle is true once every enabled zone appears in Used.
	FullCycle bool `json:"fullCycle"`
	// OldestAvailable is the least recently used zone of a full cycle.
	OldestAvailable string `json:"oldestAvailable,omitempty"`
}

// IsUsed reports whether z was used in the current cycle.
func (u Usage) IsUsed(z string) bool {
	for _, s := range u.Used {
		if s == z {
			return true
		}
	}
	return false
}

func newestFirst(history []state.HistoryEntry) []state.HistoryEntry {
	out := make([]state.HistoryEntry, len(history))
	copy(out, history)
	sort.SliceStable(out, func(i, j int) bool { return out[i].TS > out[j].TS })
	return out
}

// LatestBySite maps every site with history to its most recent timestamp.
func LatestBySite(doc state.Document) map[string]int64 {
	latest := map[string]int64{}
	for _, h := range newestFirst(doc.Injection.History) {
		if h.Site == "" {
			continue
		}
		if _, ok := latest[h.Site]; !ok {
			latest[h.Site] = h.TS
		}
	}
	return latest
}

// Compute walks history newest first, collecting enabled zones until all of
// them have been seen.
func Compute(doc state.Document) Usage {
	enabled := doc.Injection.Zones
	if len(enabled) == 0 {
		return Usage{}
	}

	var u Usage
	seen := map[string]bool{}
	for _, h := range newestFirst(doc.Injection.History) {
		if h.Site == "" || !doc.Injection.ZoneEnabled(h.Site) || seen[h.Site] {
			continue
		}
		seen[h.Site] = true
		u.Used = append(u.Used, h.Site)
		if len(u.Used) == len(enabled) {
			u.FullCycle = true
			u.OldestAvailable = h.Site
			break
		}
	}
	return u
}

// Suggest returns the next zone to use: the first enabled zone not used in
// the current cycle, or the oldest one once the cycle is complete. It
// returns "" when no zone is enabled.
func Suggest(doc state.Document) string {
	u := Compute(doc)
	if u.FullCycle {
		return u.OldestAvailable
	}
	for _, z := range doc.Injection.Zones {
		if !u.IsUsed(z) {
			return z
		}
	}
	return ""
}
