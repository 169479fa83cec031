package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/consequentlyvaluable/InjectionBuddy/internal/rotation"
	"github.com/consequentlyvaluable/InjectionBuddy/internal/zone"
)

// ZoneStatus describes one catalog zone.
type ZoneStatus struct {
	Zone     string `json:"zone"`
	Region   string `json:"region"`
	Enabled  bool   `json:"enabled"`
	Used     bool   `json:"used"`
	LastUsed string `json:"last_used,omitempty"`
}

// NewZonesCommand creates the zones command and its toggle subcommand.
func NewZonesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "zones",
		Short: "List zones with rotation state",
		Long: `List every zone by region. Enabled zones are marked [x]; a * marks zones
already used in the current rotation cycle.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runZones(rootOpts, cmd)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "toggle <zone>",
		Short: "Enable or disable a zone in the rotation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToggleZone(rootOpts, strings.Join(args, " "), cmd)
		},
	})

	return cmd
}

func runZones(opts *RootOptions, cmd *cobra.Command) error {
	a, err := openApp(opts, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	doc := a.tracker.Snapshot()
	usage := rotation.Compute(doc)
	latest := rotation.LatestBySite(doc)
	loc := a.tracker.Location()

	var statuses []ZoneStatus
	var b strings.Builder
	for gi, g := range zone.Groups() {
		if gi > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s\n", g.Region)
		for _, z := range g.Zones {
			st := ZoneStatus{
				Zone:    z,
				Region:  string(g.Region),
				Enabled: doc.Injection.ZoneEnabled(z),
				Used:    usage.IsUsed(z),
			}
			if ts, ok := latest[z]; ok {
				st.LastUsed = formatDay(ts, loc)
			}
			statuses = append(statuses, st)

			mark := " "
			if st.Enabled {
				mark = "x"
			}
			used := " "
			if st.Used {
				used = "*"
			}
			fmt.Fprintf(&b, "  [%s]%s %-28s %s\n", mark, used, z, st.LastUsed)
		}
	}
	if next := rotation.Suggest(doc); next != "" {
		fmt.Fprintf(&b, "\nNext suggested site: %s", next)
	}
	return a.formatter.Emit(statuses, strings.TrimRight(b.String(), "\n"))
}

func runToggleZone(opts *RootOptions, z string, cmd *cobra.Command) error {
	a, err := openApp(opts, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	enabled, err := a.tracker.ToggleZone(a.ctx, z)
	if err != nil {
		return a.formatter.Fail(ErrCodeInvalidInput, fmt.Sprintf("unknown zone %q", z), err)
	}
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	return a.formatter.Emit(map[string]any{"zone": z, "enabled": enabled}, fmt.Sprintf("%s %s", z, state))
}
