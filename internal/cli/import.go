package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	ResolveOptions
	NoResolve bool
}

// ImportSummary is the JSON payload of the import command.
type ImportSummary struct {
	Added     int            `json:"added"`
	Skipped   int            `json:"skipped"`
	Ambiguous int            `json:"ambiguous"`
	Resolved  *ResolveResult `json:"resolved,omitempty"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{ResolveOptions: ResolveOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "import <file.csv|->",
		Short: "Merge history from a Date,Site,Dose CSV file",
		Long: `Merge injection history from CSV. The header row is optional; dates may be
YYYY-MM-DD, D/M/YY or D/M/YYYY.

A row is dropped when history already has an entry on the same calendar
day. Site labels that are not zones are resolved afterwards, interactively
or with --map, unless --no-resolve is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args[0], cmd)
		},
	}

	addMapFlag(cmd, &opts.ResolveOptions)
	cmd.Flags().BoolVar(&opts.NoResolve, "no-resolve", false, "do not resolve unknown site labels")

	return cmd
}

func runImport(opts *ImportOptions, path string, cmd *cobra.Command) error {
	a, err := openApp(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	mapping, err := parseMappings(opts.Mappings)
	if err != nil {
		return a.formatter.Fail(ErrCodeInvalidInput, "invalid --map value", err)
	}

	var in io.Reader = cmd.InOrStdin()
	fromStdin := path == "-"
	if !fromStdin {
		f, err := os.Open(path)
		if err != nil {
			return a.formatter.Fail(ErrCodeNotFound, fmt.Sprintf("cannot open %s", path), err)
		}
		defer f.Close()
		in = f
	}

	res := <-a.tracker.Import(a.ctx, in)
	if res.Err != nil {
		return a.formatter.Fail(ErrCodeIO, "failed to import history", res.Err)
	}
	summary := ImportSummary{Added: res.Added, Skipped: res.Skipped, Ambiguous: res.Ambiguous}
	a.formatter.VerboseLog("Merged %d rows, skipped %d", res.Added, res.Skipped)

	interactive := mapping == nil && !fromStdin
	if res.Ambiguous > 0 && !opts.NoResolve && (mapping != nil || interactive) {
		resolved, err := resolveAll(a, mapping, cmd.InOrStdin())
		if err != nil {
			return a.formatter.Fail(ErrCodeGeneric, "resolution failed", err)
		}
		summary.Resolved = &resolved
	}

	text := fmt.Sprintf("Imported %d entries, skipped %d already logged on the same day.", summary.Added, summary.Skipped)
	switch {
	case summary.Resolved != nil:
		text += "\n" + resolveSummary(*summary.Resolved)
	case summary.Ambiguous > 0:
		text += fmt.Sprintf("\n%d unknown site labels; run 'injtrack resolve'.", summary.Ambiguous)
	}
	return a.formatter.Emit(summary, text)
}
