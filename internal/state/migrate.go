package state

import (
	"time"

	"github.com/consequentlyvaluable/InjectionBuddy/internal/zone"
)

// Migration rewrites a raw document from schema From to From+1.
// Apply must be pure and must accept any output of the previous step.
type Migration struct {
	From  int
	Apply func(raw map[string]any, now time.Time) map[string]any
}

// migrations is the upgrade chain, ordered by From.
var migrations = []Migration{
	{From: LegacyTwoTrackVersion, Apply: migrateV4ToV5},
}

// legacyProfiles lists the two-track profile keys in merge precedence order,
// with the interval each defaulted to.
var legacyProfiles = []struct {
	key      string
	interval int
}{
	{key: "skyrizi", interval: 8},
	{key: "repatha", interval: 2},
}

// DetectVersion classifies a raw document. A document whose injection value
// is an object is current; anything else, including a null or scalar
// injection, is treated as the two-track shape.
func DetectVersion(raw any) int {
	if toObject(toObject(raw)["injection"]) != nil {
		return CurrentSchemaVersion
	}
	return LegacyTwoTrackVersion
}

// Upgrade walks raw through the migration chain from its detected version
// and normalizes the result.
func Upgrade(raw any, now time.Time) Document {
	switch raw.(type) {
	case Document, *Document:
		return NormalizeState(raw, now)
	}
	obj := toObject(raw)
	if obj == nil {
		obj = map[string]any{}
	}
	version := DetectVersion(obj)
	for _, m := range migrations {
		if m.From != version {
			continue
		}
		obj = m.Apply(obj, now)
		version = m.From + 1
	}
	return NormalizeState(obj, now)
}

// ConvertLegacy merges a two-track document into a single profile.
func ConvertLegacy(raw any, now time.Time) Document {
	obj := toObject(raw)
	if obj == nil {
		obj = map[string]any{}
	}
	return NormalizeState(migrateV4ToV5(obj, now), now)
}

type legacyProfile struct {
	start    *string
	interval int
	dose     string
	history  []HistoryEntry
	zones    []string
}

func readLegacyProfile(raw any, defaultInterval int, now time.Time) legacyProfile {
	src := toObject(raw)

	rawHistory := ToSequence(src["history"])
	history := make([]HistoryEntry, 0, len(rawHistory))
	for _, h := range rawHistory {
		history = append(history, NormalizeEntry(h, now))
	}

	var zones []string
	for _, z := range ToSequence(src["zones"]) {
		if s, ok := z.(string); ok && zone.Contains(s) {
			zones = append(zones, s)
		}
	}
	if len(zones) == 0 {
		zones = zone.All()
	}

	return legacyProfile{
		start:    toStart(src["start"]),
		interval: toWeeks(src["interval"], defaultInterval),
		dose:     ToText(src["dose"], ""),
		history:  history,
		zones:    zones,
	}
}

func migrateV4ToV5(raw map[string]any, now time.Time) map[string]any {
	var (
		start    *string
		interval int
		dose     string
		history  []HistoryEntry
		zones    []string
		seen     = map[string]bool{}
	)
	for _, lp := range legacyProfiles {
		p := readLegacyProfile(raw[lp.key], lp.interval, now)
		if start == nil {
			start = p.start
		}
		if interval == 0 {
			interval = p.interval
		}
		if dose == "" {
			dose = p.dose
		}
		history = append(history, p.history...)
		for _, z := range p.zones {
			if !seen[z] {
				seen[z] = true
				zones = append(zones, z)
			}
		}
	}
	SortHistory(history)
	if interval == 0 {
		interval = DefaultInterval
	}

	rawHistory := make([]any, len(history))
	for i, h := range history {
		rawHistory[i] = map[string]any{"ts": h.TS, "site": h.Site, "dose": h.Dose}
	}
	rawZones := make([]any, len(zones))
	for i, z := range zones {
		rawZones[i] = z
	}

	injection := map[string]any{
		"interval": interval,
		"dose":     dose,
		"history":  rawHistory,
		"zones":    rawZones,
	}
	if start != nil {
		injection["start"] = *start
	}
	return map[string]any{
		"injection":     injection,
		"schemaVersion": CurrentSchemaVersion,
	}
}
