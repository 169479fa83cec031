package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/consequentlyvaluable/InjectionBuddy/internal/ambiguity"
	"github.com/consequentlyvaluable/InjectionBuddy/internal/calendar"
	"github.com/consequentlyvaluable/InjectionBuddy/internal/rotation"
)

// Status is the JSON payload of the status command.
type Status struct {
	Start         string   `json:"start,omitempty"`
	Interval      int      `json:"interval"`
	Dose          string   `json:"dose"`
	Entries       int      `json:"entries"`
	LastInjection string   `json:"last_injection,omitempty"`
	LastSite      string   `json:"last_site,omitempty"`
	NextDue       string   `json:"next_due,omitempty"`
	Suggested     string   `json:"suggested,omitempty"`
	EnabledZones  int      `json:"enabled_zones"`
	CycleUsed     int      `json:"cycle_used"`
	Unresolved    []string `json:"unresolved,omitempty"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the profile, the next due date and the suggested site",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(rootOpts, cmd)
		},
	}
}

func runStatus(opts *RootOptions, cmd *cobra.Command) error {
	a, err := openApp(opts, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	doc := a.tracker.Snapshot()
	p := doc.Injection
	loc := a.tracker.Location()
	now := a.tracker.Now()

	st := Status{
		Start:        p.StartDate(),
		Interval:     p.Interval,
		Dose:         p.Dose,
		Entries:      len(p.History),
		Suggested:    rotation.Suggest(doc),
		EnabledZones: len(p.Zones),
		CycleUsed:    len(rotation.Compute(doc).Used),
	}
	if n := len(p.History); n > 0 {
		last := p.History[n-1]
		st.LastInjection = formatDay(last.TS, loc)
		st.LastSite = last.Site
	}
	if start, err := calendar.ParseStart(p, loc); err == nil {
		today := time.Date(now.In(loc).Year(), now.In(loc).Month(), now.In(loc).Day(), 0, 0, 0, 0, loc)
		for _, o := range calendar.Occurrences(start, p.Interval, now, loc) {
			if !o.Before(today) {
				st.NextDue = o.Format(time.DateOnly)
				break
			}
		}
	}
	for _, g := range ambiguity.GroupByLabel(ambiguity.Find(doc)) {
		st.Unresolved = append(st.Unresolved, g.Label)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Start:      %s\n", orDash(st.Start))
	fmt.Fprintf(&b, "Interval:   %d weeks\n", st.Interval)
	fmt.Fprintf(&b, "Dose:       %s\n", orDash(st.Dose))
	fmt.Fprintf(&b, "Entries:    %d\n", st.Entries)
	if st.LastInjection != "" {
		fmt.Fprintf(&b, "Last:       %s (%s)\n", st.LastInjection, st.LastSite)
	}
	fmt.Fprintf(&b, "Next due:   %s\n", orDash(st.NextDue))
	fmt.Fprintf(&b, "Rotation:   %d/%d zones used this cycle\n", st.CycleUsed, st.EnabledZones)
	fmt.Fprintf(&b, "Suggested:  %s", orDash(st.Suggested))
	if len(st.Unresolved) > 0 {
		fmt.Fprintf(&b, "\nUnresolved: %s (run 'injtrack resolve')", strings.Join(st.Unresolved, ", "))
	}
	return a.formatter.Emit(st, b.String())
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}
