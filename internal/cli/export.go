package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// DefaultExportFile is where clear writes its safety export.
const DefaultExportFile = "injection-history.csv"

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Output string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write history as Date,Site,Dose CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "-", "output file (- for stdout)")

	return cmd
}

func runExport(opts *ExportOptions, cmd *cobra.Command) error {
	a, err := openApp(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if opts.Output == "-" {
		if err := a.tracker.Export(cmd.OutOrStdout()); err != nil {
			return a.formatter.Fail(ErrCodeIO, "failed to export history", err)
		}
		return nil
	}
	err = writeFile(opts.Output, a.tracker.Export)
	if err != nil {
		return a.formatter.Fail(ErrCodeIO, "failed to export history", err)
	}
	n := len(a.tracker.Snapshot().Injection.History)
	return a.formatter.Emit(map[string]any{"path": opts.Output, "entries": n},
		fmt.Sprintf("Exported %d entries to %s", n, opts.Output))
}

// writeFile creates path and fills it with write. A partial file is removed
// on failure.
func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// ClearOptions holds flags for the clear command.
type ClearOptions struct {
	*RootOptions
	Output string
	Yes    bool
}

// NewClearCommand creates the clear command.
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ClearOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Export history to CSV, then delete it",
		Long: `Export the full history to a CSV file and then empty it.

The export always happens first. Without --yes nothing is deleted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClear(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", DefaultExportFile, "file receiving the export")
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "confirm deleting the history")

	return cmd
}

func runClear(opts *ClearOptions, cmd *cobra.Command) error {
	a, err := openApp(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if !opts.Yes {
		if err := writeFile(opts.Output, a.tracker.Export); err != nil {
			return a.formatter.Fail(ErrCodeIO, "failed to export history", err)
		}
		return a.formatter.Fail(ErrCodeConflict,
			fmt.Sprintf("history exported to %s; re-run with --yes to delete it", opts.Output), nil)
	}

	var cleared int
	err = writeFile(opts.Output, func(w io.Writer) error {
		var clearErr error
		cleared, clearErr = a.tracker.ClearHistory(a.ctx, w)
		return clearErr
	})
	if err != nil {
		return a.formatter.Fail(ErrCodeIO, "history not cleared", err)
	}
	return a.formatter.Emit(map[string]any{"path": opts.Output, "cleared": cleared},
		fmt.Sprintf("Exported %d entries to %s and cleared history.", cleared, opts.Output))
}
