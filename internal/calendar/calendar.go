// Package calendar computes the injection schedule and renders it as an
// iCalendar document with a reminder alarm on every occurrence.
package calendar

import (
	"errors"
	"fmt"
	"io"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/consequentlyvaluable/InjectionBuddy/internal/state"
)

const (
	// ProductID identifies the generating application.
	ProductID = "-//Injection Tracker//EN"
	// EventDuration is the length of every scheduled block.
	EventDuration = 10 * time.Minute
	// AlarmTrigger fires the reminder one day before the event.
	AlarmTrigger     = "-PT1440M"
	alarmDescription = "Injection Reminder"
)

var (
	// ErrNoStartDate is returned when the profile has no start date.
	ErrNoStartDate = errors.New("calendar: start date is not set")
	// ErrInvalidStartDate is returned when the start date is not YYYY-MM-DD.
	ErrInvalidStartDate = errors.New("calendar: start date is not a valid date")
)

// Horizon returns the last instant an occurrence may fall on: local
// midnight one year after now.
func Horizon(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	n := now.In(loc)
	return time.Date(n.Year()+1, n.Month(), n.Day(), 0, 0, 0, 0, loc)
}

// Occurrences returns start, start+interval weeks, ... up to and including
// Horizon(now). A non-positive interval is treated as the default.
func Occurrences(start time.Time, intervalWeeks int, now time.Time, loc *time.Location) []time.Time {
	if intervalWeeks <= 0 {
		intervalWeeks = state.DefaultInterval
	}
	end := Horizon(now, loc)

	var out []time.Time
	for cur := start; !cur.After(end); cur = cur.AddDate(0, 0, 7*intervalWeeks) {
		out = append(out, cur)
	}
	return out
}

// ParseStart reads the profile start date as midnight in loc.
func ParseStart(p state.InjectionProfile, loc *time.Location) (time.Time, error) {
	if p.Start == nil || *p.Start == "" {
		return time.Time{}, ErrNoStartDate
	}
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(time.DateOnly, *p.Start, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidStartDate, *p.Start)
	}
	return t, nil
}

// Options configures Write.
type Options struct {
	// Location is the user's time zone; nil means time.Local.
	Location *time.Location
	// UIDs generates event UIDs; nil means UUIDv7Generator.
	UIDs UIDGenerator
}

// Summary returns the event title for a dose.
func Summary(dose string) string {
	if dose == "" {
		return "Injection"
	}
	return "Injection — " + dose
}

// Build assembles the calendar for p. It returns the calendar together with
// the occurrence times it contains.
func Build(p state.InjectionProfile, now time.Time, opts Options) (*ics.Calendar, []time.Time, error) {
	start, err := ParseStart(p, opts.Location)
	if err != nil {
		return nil, nil, err
	}
	uids := opts.UIDs
	if uids == nil {
		uids = UUIDv7Generator{}
	}

	cal := ics.NewCalendar()
	cal.SetProductId(ProductID)

	occurrences := Occurrences(start, p.Interval, now, opts.Location)
	summary := Summary(p.Dose)
	for _, at := range occurrences {
		event := cal.AddEvent(uids.Generate())
		event.SetDtStampTime(now)
		event.SetStartAt(at)
		event.SetEndAt(at.Add(EventDuration))
		event.SetSummary(summary)

		alarm := event.AddAlarm()
		alarm.SetAction(ics.ActionDisplay)
		alarm.SetTrigger(AlarmTrigger)
		alarm.SetProperty(ics.ComponentPropertyDescription, alarmDescription)
	}
	return cal, occurrences, nil
}

// Write renders the schedule of p to w and returns the number of events.
func Write(w io.Writer, p state.InjectionProfile, now time.Time, opts Options) (int, error) {
	cal, occurrences, err := Build(p, now, opts)
	if err != nil {
		return 0, err
	}
	if _, err := io.WriteString(w, cal.Serialize()); err != nil {
		return 0, fmt.Errorf("write calendar: %w", err)
	}
	return len(occurrences), nil
}
