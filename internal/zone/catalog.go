package zone

import "strings"

// Region groups zones for display and suggestion ranking.
type Region string

const (
	RegionArms       Region = "Arms"
	RegionStomach    Region = "Stomach"
	RegionRightThigh Region = "Right Thigh"
	RegionLeftThigh  Region = "Left Thigh"
)

// Group is one region together with its zones in catalog order.
type Group struct {
	Region Region
	Zones  []string
}

var thighSubzones = []string{
	"Upper Outer",
	"Middle Outer",
	"Lower Outer",
	"Upper Inner",
	"Middle Inner",
	"Lower Inner",
}

// catalog is built once at init and never mutated.
var (
	catalog []string
	members map[string]struct{}
	groups  []Group
)

func init() {
	groups = []Group{
		{Region: RegionArms, Zones: []string{"Right Arm", "Left Arm"}},
		{Region: RegionStomach, Zones: []string{"Left Stomach", "Right Stomach"}},
		{Region: RegionRightThigh, Zones: thighZones("Right Thigh")},
		{Region: RegionLeftThigh, Zones: thighZones("Left Thigh")},
	}

	members = make(map[string]struct{})
	for _, g := range groups {
		for _, z := range g.Zones {
			if _, dup := members[z]; dup {
				continue
			}
			members[z] = struct{}{}
			catalog = append(catalog, z)
		}
	}
}

func thighZones(side string) []string {
	out := make([]string, 0, len(thighSubzones))
	for _, sub := range thighSubzones {
		out = append(out, side+" - "+sub)
	}
	return out
}

// All returns every valid zone label in catalog order.
func All() []string {
	out := make([]string, len(catalog))
	copy(out, catalog)
	return out
}

// Len returns the number of zones in the catalog.
func Len() int { return len(catalog) }

// Contains reports whether label is a catalog zone. Matching is exact.
func Contains(label string) bool {
	_, ok := members[label]
	return ok
}

// Groups returns the regions with their zones, in catalog order.
func Groups() []Group {
	out := make([]Group, len(groups))
	for i, g := range groups {
		zones := make([]string, len(g.Zones))
		copy(zones, g.Zones)
		out[i] = Group{Region: g.Region, Zones: zones}
	}
	return out
}

// InRegion returns the zones of region r, or nil for an unknown region.
func InRegion(r Region) []string {
	for _, g := range groups {
		if g.Region == r {
			out := make([]string, len(g.Zones))
			copy(out, g.Zones)
			return out
		}
	}
	return nil
}

// Matching returns the catalog zones whose label contains fragment,
// preserving catalog order. Matching is case-sensitive.
func Matching(fragment string) []string {
	var out []string
	for _, z := range catalog {
		if strings.Contains(z, fragment) {
			out = append(out, z)
		}
	}
	return out
}

// Filter returns the members of labels that are catalog zones, in input
// order. Duplicates are kept.
func Filter(labels []string) []string {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if Contains(l) {
			out = append(out, l)
		}
	}
	return out
}
