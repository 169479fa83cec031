package harness

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/consequentlyvaluable/InjectionBuddy/internal/ambiguity"
	"github.com/consequentlyvaluable/InjectionBuddy/internal/state"
	"github.com/consequentlyvaluable/InjectionBuddy/internal/tracker"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

func historySites(doc state.Document) []string {
	sites := make([]string, len(doc.Injection.History))
	for i, h := range doc.Injection.History {
		sites[i] = h.Site
	}
	return sites
}

func assertHistorySites(doc state.Document, a Assertion) error {
	got := historySites(doc)
	if !slices.Equal(got, a.Sites) {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprint(a.Sites), Actual: fmt.Sprint(got)}
	}
	return nil
}

func assertHistoryCount(doc state.Document, a Assertion) error {
	if n := len(doc.Injection.History); n != a.Count {
		return &AssertionError{Type: a.Type, Expected: strconv.Itoa(a.Count), Actual: strconv.Itoa(n)}
	}
	return nil
}

// assertProfile checks the profile fields named in Expect (subset match).
func assertProfile(doc state.Document, a Assertion) error {
	p := doc.Injection
	actual := map[string]string{
		"start":    p.StartDate(),
		"interval": strconv.Itoa(p.Interval),
		"dose":     p.Dose,
	}
	for field, want := range a.Expect {
		got, ok := actual[field]
		if !ok {
			return fmt.Errorf("%s: unknown profile field %q", a.Type, field)
		}
		if got != want {
			return &AssertionError{
				Type:     a.Type + "." + field,
				Expected: strconv.Quote(want),
				Actual:   strconv.Quote(got),
			}
		}
	}
	return nil
}

func assertZones(doc state.Document, a Assertion) error {
	if !slices.Equal(doc.Injection.Zones, a.Zones) {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprint(a.Zones), Actual: fmt.Sprint(doc.Injection.Zones)}
	}
	return nil
}

func assertNoAmbiguities(doc state.Document, a Assertion) error {
	if found := ambiguity.Find(doc); len(found) > 0 {
		labels := make([]string, 0, len(found))
		for _, g := range ambiguity.GroupByLabel(found) {
			labels = append(labels, g.Label)
		}
		return &AssertionError{Type: a.Type, Expected: "no unknown sites", Actual: fmt.Sprint(labels)}
	}
	return nil
}

func assertSuggest(t *tracker.Tracker, a Assertion) error {
	if got := t.Suggest(); got != a.Zone {
		return &AssertionError{Type: a.Type, Expected: strconv.Quote(a.Zone), Actual: strconv.Quote(got)}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the tracker's current
// document. Returns a slice of error messages for failed assertions.
func EvaluateAssertions(t *tracker.Tracker, assertions []Assertion) []string {
	var errors []string
	doc := t.Snapshot()

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertHistorySites:
			err = assertHistorySites(doc, assertion)
		case AssertHistoryCount:
			err = assertHistoryCount(doc, assertion)
		case AssertProfile:
			err = assertProfile(doc, assertion)
		case AssertZones:
			err = assertZones(doc, assertion)
		case AssertNoAmbiguities:
			err = assertNoAmbiguities(doc, assertion)
		case AssertSuggest:
			err = assertSuggest(t, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
