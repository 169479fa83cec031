package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/consequentlyvaluable/InjectionBuddy/internal/ambiguity"
	"github.com/consequentlyvaluable/InjectionBuddy/internal/tracker"
	"github.com/consequentlyvaluable/InjectionBuddy/internal/zone"
)

// ResolveOptions holds flags shared by resolve and import.
type ResolveOptions struct {
	*RootOptions
	Mappings []string // label=zone pairs; when set, resolution is non-interactive
}

// ResolveResult is the JSON payload of a resolution run.
type ResolveResult struct {
	Changed   int      `json:"changed"`
	Remaining []string `json:"remaining,omitempty"`
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Map unknown site labels in history to zones",
		Long: `Walk every history site label that is not a known zone and assign it one.

Interactively, each label is shown with suggested zones. Answer with a
number or a zone name to fix every entry carrying the label, add " once" to
fix only the next entry, "s" to skip the label or "q" to skip the rest.

With --map the answers are given up front and unmapped labels are skipped.

Example:
  injtrack resolve
  injtrack resolve --map "Right Thigh=Right Thigh - Upper Outer" --map "belly=Left Stomach"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(opts, cmd)
		},
	}

	addMapFlag(cmd, opts)

	return cmd
}

func addMapFlag(cmd *cobra.Command, opts *ResolveOptions) {
	cmd.Flags().StringArrayVarP(&opts.Mappings, "map", "m", nil, "resolve label=zone without prompting (repeatable)")
}

func runResolve(opts *ResolveOptions, cmd *cobra.Command) error {
	a, err := openApp(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	mapping, err := parseMappings(opts.Mappings)
	if err != nil {
		return a.formatter.Fail(ErrCodeInvalidInput, "invalid --map value", err)
	}

	res, err := resolveAll(a, mapping, cmd.InOrStdin())
	if err != nil {
		return a.formatter.Fail(ErrCodeGeneric, "resolution failed", err)
	}
	return a.formatter.Emit(res, resolveSummary(res))
}

func resolveSummary(res ResolveResult) string {
	text := fmt.Sprintf("Updated %d entries.", res.Changed)
	if len(res.Remaining) > 0 {
		text += fmt.Sprintf(" Unresolved labels: %s", strings.Join(res.Remaining, ", "))
	}
	return text
}

// parseMappings reads label=zone pairs. Zones must be in the catalog.
func parseMappings(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		label, z, ok := strings.Cut(p, "=")
		label, z = strings.TrimSpace(label), strings.TrimSpace(z)
		if !ok || label == "" {
			return nil, fmt.Errorf("%q: want label=zone", p)
		}
		if !zone.Contains(z) {
			return nil, fmt.Errorf("%q: %w", z, ambiguity.ErrUnknownZone)
		}
		out[label] = z
	}
	return out, nil
}

// resolveAll drives the tracker session to completion, either from mapping
// or by prompting on in.
func resolveAll(a *app, mapping map[string]string, in io.Reader) (ResolveResult, error) {
	r := a.tracker.Resolve(a.ctx)

	var err error
	if mapping != nil {
		err = resolveMapped(a.ctx, r, mapping)
	} else {
		err = resolveInteractive(a.ctx, r, in, a.promptWriter())
	}
	if err != nil {
		return ResolveResult{}, err
	}

	res := ResolveResult{Changed: r.Changed()}
	for _, g := range ambiguity.GroupByLabel(ambiguity.Find(a.tracker.Snapshot())) {
		res.Remaining = append(res.Remaining, g.Label)
	}
	return res, nil
}

func (a *app) promptWriter() io.Writer {
	if a.formatter.Format == "json" {
		return a.formatter.GetErrWriter()
	}
	return a.formatter.Writer
}

func resolveMapped(ctx context.Context, r *tracker.Resolution, mapping map[string]string) error {
	for {
		p, ok := r.Current()
		if !ok {
			return nil
		}
		if z, found := mapping[p.Label]; found {
			if err := r.Choose(ctx, z, ambiguity.ApplyAll); err != nil {
				return err
			}
			continue
		}
		if err := r.Skip(ctx); err != nil {
			return err
		}
	}
}

func resolveInteractive(ctx context.Context, r *tracker.Resolution, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	quit := false
	for {
		p, ok := r.Current()
		if !ok {
			return nil
		}
		if quit {
			if err := r.Skip(ctx); err != nil {
				return err
			}
			continue
		}

		printPrompt(out, p)
		if !scanner.Scan() {
			quit = true
			continue
		}
		answer := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(answer) {
		case "s", "skip":
			if err := r.Skip(ctx); err != nil {
				return err
			}
			continue
		case "q", "quit":
			quit = true
			continue
		}

		choice, mode := parseAnswer(answer, p.Suggestions)
		err := r.Choose(ctx, choice, mode)
		if errors.Is(err, ambiguity.ErrUnknownZone) {
			fmt.Fprintf(out, "%q is not a zone, try again.\n", answer)
			continue
		}
		if err != nil {
			return err
		}
	}
}

func printPrompt(out io.Writer, p tracker.Prompt) {
	noun := "entries"
	if len(p.Indexes) == 1 {
		noun = "entry"
	}
	fmt.Fprintf(out, "Unknown site %q (%d %s)\n", p.Label, len(p.Indexes), noun)
	for i, z := range p.Suggestions {
		fmt.Fprintf(out, "  %2d) %s\n", i+1, z)
	}
	fmt.Fprint(out, "Choose a number or zone (\"<choice> once\" for one entry, s to skip, q to stop): ")
}

// parseAnswer turns "3", "3 once" or a zone name into a zone and mode.
func parseAnswer(answer string, suggestions []string) (string, ambiguity.Mode) {
	mode := ambiguity.ApplyAll
	if rest, ok := strings.CutSuffix(answer, " once"); ok {
		answer, mode = strings.TrimSpace(rest), ambiguity.ApplyOne
	}
	if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(suggestions) {
		return suggestions[n-1], mode
	}
	return answer, mode
}
