package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/consequentlyvaluable/InjectionBuddy/internal/state"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Limit int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List logged injections, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 0, "show at most n entries (0 for all)")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	a, err := openApp(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	history := a.tracker.Snapshot().Injection.History
	newest := make([]state.HistoryEntry, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		newest = append(newest, history[i])
		if opts.Limit > 0 && len(newest) == opts.Limit {
			break
		}
	}

	if len(newest) == 0 {
		return a.formatter.Emit(newest, "No injections logged yet.")
	}
	var b strings.Builder
	loc := a.tracker.Location()
	for i, h := range newest {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s  %s", formatDay(h.TS, loc), h.Site)
		if h.Dose != "" {
			fmt.Fprintf(&b, "  %s", h.Dose)
		}
	}
	return a.formatter.Emit(newest, b.String())
}
