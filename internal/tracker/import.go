package tracker

import (
	"context"
	"io"

	"github.com/consequentlyvaluable/InjectionBuddy/internal/ambiguity"
	"github.com/consequentlyvaluable/InjectionBuddy/internal/csvio"
	"github.com/consequentlyvaluable/InjectionBuddy/internal/observability"
	"github.com/consequentlyvaluable/InjectionBuddy/internal/state"
)

// ImportResult reports one CSV import.
type ImportResult struct {
	csvio.MergeResult
	// Ambiguous is the number of distinct unknown site labels left in the
	// document after the merge.
	Ambiguous int   `json:"ambiguous"`
	Err       error `json:"-"`
}

// Import reads CSV history from r in the background and merges it into the
// document in one step. The returned channel yields exactly one result and is
// then closed. The merge is skipped if ctx is done before it starts.
func (t *Tracker) Import(ctx context.Context, r io.Reader) <-chan ImportResult {
	out := make(chan ImportResult, 1)
	go func() {
		defer close(out)
		out <- t.importCSV(ctx, r)
	}()
	return out
}

// ImportSync is Import for callers that want to block.
func (t *Tracker) ImportSync(ctx context.Context, r io.Reader) ImportResult {
	return <-t.Import(ctx, r)
}

func (t *Tracker) importCSV(ctx context.Context, r io.Reader) ImportResult {
	rows, err := csvio.Parse(r, t.now(), t.loc)
	if err != nil {
		return ImportResult{Err: err}
	}
	if err := ctx.Err(); err != nil {
		return ImportResult{Err: err}
	}

	var res ImportResult
	err = t.update(ctx, func(doc *state.Document) error {
		doc.Injection.History, res.MergeResult = csvio.Merge(doc.Injection.History, rows, t.loc)
		res.Ambiguous = len(ambiguity.GroupByLabel(ambiguity.Find(*doc)))
		return nil
	})
	if err != nil {
		return ImportResult{Err: err}
	}
	observability.RecordImport(res.Added, res.Skipped)
	t.logger.Info("imported history", "added", res.Added, "skipped", res.Skipped, "ambiguous", res.Ambiguous)
	return res
}
