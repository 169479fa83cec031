package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/consequentlyvaluable/InjectionBuddy/internal/calendar"
)

// ScheduleOptions holds flags for the schedule command.
type ScheduleOptions struct {
	*RootOptions
	Output string
	List   bool
}

// NewScheduleCommand creates the schedule command.
func NewScheduleCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScheduleOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Export the next year of injections as an iCalendar file",
		Long: `Compute every injection from the start date at the profile interval up to
one year from today and write them as 10-minute calendar events, each with a
reminder one day before.

Example:
  injtrack schedule -o injection-schedule.ics
  injtrack schedule --list`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchedule(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "-", "output file (- for stdout)")
	cmd.Flags().BoolVarP(&opts.List, "list", "l", false, "print the dates instead of iCalendar data")

	return cmd
}

func runSchedule(opts *ScheduleOptions, cmd *cobra.Command) error {
	a, err := openApp(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	profile := a.tracker.Snapshot().Injection
	now := a.tracker.Now()
	loc := a.tracker.Location()

	if opts.List {
		start, err := calendar.ParseStart(profile, loc)
		if err != nil {
			return scheduleError(a, err)
		}
		var dates []string
		for _, o := range calendar.Occurrences(start, profile.Interval, now, loc) {
			dates = append(dates, o.Format(time.DateOnly))
		}
		return a.formatter.Emit(dates, strings.Join(dates, "\n"))
	}

	calOpts := calendar.Options{Location: loc, UIDs: a.uids}
	write := func(w io.Writer) error {
		_, err := calendar.Write(w, profile, now, calOpts)
		return err
	}
	if opts.Output == "-" {
		if err := write(cmd.OutOrStdout()); err != nil {
			return scheduleError(a, err)
		}
		return nil
	}
	if _, err := calendar.ParseStart(profile, loc); err != nil {
		return scheduleError(a, err)
	}
	if err := writeFile(opts.Output, write); err != nil {
		return a.formatter.Fail(ErrCodeIO, "failed to write calendar", err)
	}
	return a.formatter.Emit(map[string]string{"path": opts.Output}, fmt.Sprintf("Wrote schedule to %s", opts.Output))
}

func scheduleError(a *app, err error) error {
	if errors.Is(err, calendar.ErrNoStartDate) || errors.Is(err, calendar.ErrInvalidStartDate) {
		return a.formatter.Fail(ErrCodeInvalidInput,
			"set a start date first: injtrack set start YYYY-MM-DD", err)
	}
	return a.formatter.Fail(ErrCodeIO, "failed to write calendar", err)
}
