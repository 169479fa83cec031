package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// NewSetCommand creates the set command with start, interval and dose
// subcommands.
func NewSetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change the injection profile",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "start <YYYY-MM-DD|none>",
		Short: "Set the date of the first scheduled injection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date := args[0]
			if strings.EqualFold(date, "none") {
				date = ""
			}
			return runSet(rootOpts, cmd, "start", date, func(a *app) error {
				return a.tracker.SetStart(a.ctx, date)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "interval <weeks>",
		Short: "Set the number of weeks between injections",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			weeks, err := strconv.Atoi(args[0])
			if err != nil {
				weeks = 0
			}
			return runSet(rootOpts, cmd, "interval", weeks, func(a *app) error {
				return a.tracker.SetInterval(a.ctx, weeks)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "dose <dose>",
		Short: "Set the dose recorded with each injection",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dose := strings.Join(args, " ")
			return runSet(rootOpts, cmd, "dose", dose, func(a *app) error {
				return a.tracker.SetDose(a.ctx, dose)
			})
		},
	})

	return cmd
}

func runSet(opts *RootOptions, cmd *cobra.Command, field string, value any, apply func(*app) error) error {
	a, err := openApp(opts, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := apply(a); err != nil {
		return a.formatter.Fail(ErrCodeInvalidInput, fmt.Sprintf("invalid %s", field), err)
	}
	text := fmt.Sprintf("%s set to %v", field, value)
	if value == "" {
		text = fmt.Sprintf("%s cleared", field)
	}
	return a.formatter.Emit(map[string]any{field: value}, text)
}
