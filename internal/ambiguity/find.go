package ambiguity

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/consequentlyvaluable/InjectionBuddy/internal/state"
	"github.com/consequentlyvaluable/InjectionBuddy/internal/zone"
)

// Ambiguity is one history entry with an unrecognized site.
type Ambiguity struct {
	Index int    `json:"index"`
	Site  string `json:"site"`
}

// Group is every queued history index carrying the same unknown label.
type Group struct {
	Label   string `json:"label"`
	Indexes []int  `json:"indexes"`
}

// IsValidSite reports whether site is enabled in p or is a catalog zone.
func IsValidSite(p state.InjectionProfile, site string) bool {
	return p.ZoneEnabled(site) || zone.Contains(site)
}

// Find scans history once and returns every entry whose non-empty site is
// not valid, in history order.
func Find(doc state.Document) []Ambiguity {
	var out []Ambiguity
	for i, h := range doc.Injection.History {
		if h.Site == "" {
			continue
		}
		if !IsValidSite(doc.Injection, h.Site) {
			out = append(out, Ambiguity{Index: i, Site: h.Site})
		}
	}
	return out
}

// GroupByLabel groups ambiguities by literal site, ordered by first
// appearance.
func GroupByLabel(ambs []Ambiguity) []Group {
	var groups []Group
	pos := map[string]int{}
	for _, a := range ambs {
		i, ok := pos[a.Site]
		if !ok {
			i = len(groups)
			pos[a.Site] = i
			groups = append(groups, Group{Label: a.Site})
		}
		groups[i].Indexes = append(groups[i].Indexes, a.Index)
	}
	return groups
}

var suggestionRules = []struct {
	needle   string
	fragment string
}{
	{needle: "right thigh", fragment: "Right Thigh"},
	{needle: "left thigh", fragment: "Left Thigh"},
	{needle: "thigh", fragment: "Thigh"},
	{needle: "arm", fragment: "Arm"},
	{needle: "stomach", fragment: "Stomach"},
}

// SuggestedSubzones ranks catalog zones that label most likely meant. The
// first matching rule wins; with no match the whole catalog is returned.
func SuggestedSubzones(label string) []string {
	folded := cases.Fold().String(label)
	for _, r := range suggestionRules {
		if strings.Contains(folded, r.needle) {
			return zone.Matching(r.fragment)
		}
	}
	return zone.All()
}
