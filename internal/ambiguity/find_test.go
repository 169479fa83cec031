package ambiguity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/consequentlyvaluable/InjectionBuddy/internal/state"
	"github.com/consequentlyvaluable/InjectionBuddy/internal/zone"
)

func docWithSites(sites ...string) state.Document {
	doc := state.Fresh()
	for i, s := range sites {
		doc.Injection.History = append(doc.Injection.History, state.HistoryEntry{
			TS:   int64(i+1) * 1000,
			Site: s,
			Dose: "150mg",
		})
	}
	return doc
}

func TestFind(t *testing.T) {
	doc := docWithSites("Right Thigh", "Right Arm", "", "Right Thigh", "belly")

	got := Find(doc)

	assert.Equal(t, []Ambiguity{
		{Index: 0, Site: "Right Thigh"},
		{Index: 3, Site: "Right Thigh"},
		{Index: 4, Site: "belly"},
	}, got)
}

func TestFind_CatalogZoneDisabledIsValid(t *testing.T) {
	doc := docWithSites("Left Arm")
	doc.Injection.Zones = []string{"Right Arm"}

	assert.Empty(t, Find(doc))
}

func TestGroupByLabel(t *testing.T) {
	doc := docWithSites("Right Thigh", "Right Arm", "belly", "Right Thigh")

	groups := GroupByLabel(Find(doc))

	assert.Equal(t, []Group{
		{Label: "Right Thigh", Indexes: []int{0, 3}},
		{Label: "belly", Indexes: []int{2}},
	}, groups)
}

func TestGroupByLabel_Empty(t *testing.T) {
	assert.Nil(t, GroupByLabel(nil))
}

func TestSuggestedSubzones(t *testing.T) {
	tests := []struct {
		label string
		want  []string
	}{
		{label: "Right Thigh", want: zone.Matching("Right Thigh")},
		{label: "RIGHT THIGH upper", want: zone.Matching("Right Thigh")},
		{label: "left thigh", want: zone.Matching("Left Thigh")},
		{label: "thigh", want: zone.Matching("Thigh")},
		{label: "upper arm", want: []string{"Right Arm", "Left Arm"}},
		{label: "Stomach", want: []string{"Left Stomach", "Right Stomach"}},
		{label: "belly", want: zone.All()},
		{label: "", want: zone.All()},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, SuggestedSubzones(tt.label))
		})
	}
}

func TestSuggestedSubzones_RightThighBeatsThigh(t *testing.T) {
	got := SuggestedSubzones("right thigh")

	assert.Len(t, got, 6)
	for _, z := range got {
		assert.Contains(t, z, "Right Thigh")
	}
}
