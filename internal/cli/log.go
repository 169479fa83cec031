package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/consequentlyvaluable/InjectionBuddy/internal/state"
	"github.com/consequentlyvaluable/InjectionBuddy/internal/tracker"
)

// LogOptions holds flags for the log command.
type LogOptions struct {
	*RootOptions
	Force bool
}

// LogResult is the JSON payload of the log command.
type LogResult struct {
	Entry state.HistoryEntry `json:"entry"`
	Date  string             `json:"date"`
	Next  string             `json:"next,omitempty"`
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log <site>",
		Short: "Log an injection now",
		Long: `Record an injection at the current time on an enabled zone, using the
profile dose.

A second injection on the same calendar day is refused unless --force is
given.

Example:
  injtrack log "Right Arm"
  injtrack log Left Thigh - Upper Outer --force`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(opts, strings.Join(args, " "), cmd)
		},
	}

	cmd.Flags().BoolVarP(&opts.Force, "force", "f", false, "log even if an injection is already recorded today")

	return cmd
}

func runLog(opts *LogOptions, site string, cmd *cobra.Command) error {
	a, err := openApp(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	entry, err := a.tracker.LogNow(a.ctx, site, opts.Force)
	switch {
	case errors.Is(err, tracker.ErrNoSiteSelected):
		return a.formatter.Fail(ErrCodeInvalidInput,
			fmt.Sprintf("%q is not an enabled zone (see 'injtrack zones')", site), err)
	case errors.Is(err, tracker.ErrAlreadyLoggedToday):
		return a.formatter.Fail(ErrCodeConflict,
			"an injection is already logged today; use --force to log another", err)
	case err != nil:
		return a.formatter.Fail(ErrCodeGeneric, "failed to log injection", err)
	}

	res := LogResult{
		Entry: entry,
		Date:  state.DayKey(entry.Time(), a.tracker.Location()),
		Next:  a.tracker.Suggest(),
	}
	text := fmt.Sprintf("Logged %s on %s", entry.Site, res.Date)
	if entry.Dose != "" {
		text += " (" + entry.Dose + ")"
	}
	if res.Next != "" {
		text += "\nNext suggested site: " + res.Next
	}
	return a.formatter.Emit(res, text)
}

func formatDay(ts int64, loc *time.Location) string {
	if ts == 0 {
		return "—"
	}
	return state.DayKey(time.UnixMilli(ts), loc)
}
