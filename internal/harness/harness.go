package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/consequentlyvaluable/InjectionBuddy/internal/ambiguity"
	"github.com/consequentlyvaluable/InjectionBuddy/internal/kv/memory"
	"github.com/consequentlyvaluable/InjectionBuddy/internal/state"
	"github.com/consequentlyvaluable/InjectionBuddy/internal/store"
	"github.com/consequentlyvaluable/InjectionBuddy/internal/testutil"
	"github.com/consequentlyvaluable/InjectionBuddy/internal/tracker"
)

// TraceEvent records the outcome of one step.
type TraceEvent struct {
	Seq     int    `json:"seq"`
	Op      string `json:"op"`
	Outcome string `json:"outcome"`
}

// Result is the outcome of running a scenario.
type Result struct {
	Pass   bool           `json:"pass"`
	Errors []string       `json:"errors,omitempty"`
	Trace  []TraceEvent   `json:"trace"`
	Final  state.Document `json:"final"`
}

// NewResult returns a passing result with no trace.
func NewResult() *Result {
	return &Result{Pass: true, Trace: []TraceEvent{}}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(msg string) {
	r.Pass = false
	r.Errors = append(r.Errors, msg)
}

func (r *Result) record(op, outcome string) {
	r.Trace = append(r.Trace, TraceEvent{Seq: len(r.Trace) + 1, Op: op, Outcome: outcome})
}

// errorNames maps expect_error values to tracker errors.
var errorNames = map[string]error{
	"no_site_selected":     tracker.ErrNoSiteSelected,
	"already_logged_today": tracker.ErrAlreadyLoggedToday,
	"invalid_start":        tracker.ErrInvalidStart,
	"invalid_interval":     tracker.ErrInvalidInterval,
	"unknown_zone":         tracker.ErrUnknownZone,
	"unknown_resolution":   ambiguity.ErrUnknownZone,
	"no_pending_choice":    ambiguity.ErrNoPendingChoice,
}

// Harness drives one tracker over an in-memory backend.
type Harness struct {
	backend *memory.Store
	store   *store.Store
	tracker *tracker.Tracker
	clock   *testutil.FixedClock
	loc     *time.Location
	logger  *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory backend on a fixed clock, so
// results are reproducible. Step failures that were not expected and failed
// assertions are reported in Result.Errors; the returned error is reserved
// for scenarios that cannot be set up.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	now := DefaultNow
	if scenario.Now != "" {
		parsed, err := time.Parse(time.RFC3339, scenario.Now)
		if err != nil {
			return nil, fmt.Errorf("now: %w", err)
		}
		now = parsed
	}
	loc := time.UTC
	if scenario.Timezone != "" {
		l, err := time.LoadLocation(scenario.Timezone)
		if err != nil {
			return nil, fmt.Errorf("timezone: %w", err)
		}
		loc = l
	}

	h := &Harness{
		backend: memory.New(),
		clock:   testutil.NewFixedClock(now),
		loc:     loc,
		logger:  testutil.DiscardLogger(),
	}
	h.store = store.New(h.backend,
		store.WithClock(h.clock.Now),
		store.WithLogger(h.logger),
	)
	if scenario.Seed != "" {
		if err := h.backend.Set(ctx, h.store.Key(), []byte(scenario.Seed)); err != nil {
			return nil, fmt.Errorf("seed: %w", err)
		}
	}
	h.open(ctx)

	result := NewResult()
	for i, step := range scenario.Steps {
		outcome, err := h.execute(ctx, step)
		if msg := checkError(step, err); msg != "" {
			result.AddError(fmt.Sprintf("steps[%d] %s: %s", i, step.Op, msg))
		}
		if err != nil {
			outcome = "error: " + err.Error()
		}
		result.record(step.Op, outcome)
	}

	result.Final = h.tracker.Snapshot()
	for _, msg := range EvaluateAssertions(h.tracker, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) open(ctx context.Context) {
	h.tracker = tracker.Open(ctx, h.store,
		tracker.WithClock(h.clock.Now),
		tracker.WithLocation(h.loc),
		tracker.WithLogger(h.logger),
	)
}

// checkError compares a step error with the step's expect_error.
func checkError(step Step, err error) string {
	if step.ExpectError == "" {
		if err != nil {
			return "unexpected error: " + err.Error()
		}
		return ""
	}
	want, ok := errorNames[step.ExpectError]
	if !ok {
		return fmt.Sprintf("unknown expect_error %q", step.ExpectError)
	}
	if !errors.Is(err, want) {
		return fmt.Sprintf("expected %s, got %v", step.ExpectError, err)
	}
	return ""
}

func (h *Harness) execute(ctx context.Context, step Step) (string, error) {
	t := h.tracker
	switch step.Op {
	case OpLog:
		entry, err := t.LogNow(ctx, step.Site, step.Force)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("logged %s at %d", entry.Site, entry.TS), nil

	case OpAdvance:
		d, err := time.ParseDuration(step.Duration)
		if err != nil {
			return "", err
		}
		h.clock.Advance(d)
		return "now " + h.clock.Now().In(h.loc).Format(time.RFC3339), nil

	case OpSetStart:
		if err := t.SetStart(ctx, step.Value); err != nil {
			return "", err
		}
		return "start " + orNone(step.Value), nil

	case OpSetInterval:
		weeks, err := strconv.Atoi(strings.TrimSpace(step.Value))
		if err != nil {
			return "", fmt.Errorf("%w: %q", tracker.ErrInvalidInterval, step.Value)
		}
		if err := t.SetInterval(ctx, weeks); err != nil {
			return "", err
		}
		return fmt.Sprintf("interval %d", weeks), nil

	case OpSetDose:
		if err := t.SetDose(ctx, step.Value); err != nil {
			return "", err
		}
		return "dose " + orNone(step.Value), nil

	case OpToggleZone:
		enabled, err := t.ToggleZone(ctx, step.Zone)
		if err != nil {
			return "", err
		}
		if enabled {
			return "enabled " + step.Zone, nil
		}
		return "disabled " + step.Zone, nil

	case OpImport:
		res := t.ImportSync(ctx, strings.NewReader(step.CSV))
		if res.Err != nil {
			return "", res.Err
		}
		got := map[string]int{"added": res.Added, "skipped": res.Skipped, "ambiguous": res.Ambiguous}
		for k, want := range step.Expect {
			if got[k] != want {
				return "", fmt.Errorf("import %s: expected %d, got %d", k, want, got[k])
			}
		}
		return fmt.Sprintf("added %d skipped %d ambiguous %d", res.Added, res.Skipped, res.Ambiguous), nil

	case OpResolve:
		return h.resolve(ctx, step.Answers)

	case OpClearHistory:
		var buf bytes.Buffer
		n, err := t.ClearHistory(ctx, &buf)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("cleared %d", n), nil

	case OpReload:
		h.open(ctx)
		return fmt.Sprintf("reloaded %d entries", len(h.tracker.Snapshot().Injection.History)), nil
	}
	return "", fmt.Errorf("unknown op %q", step.Op)
}

// resolve feeds answers to the tracker's resolution session in order.
func (h *Harness) resolve(ctx context.Context, answers []Answer) (string, error) {
	r := h.tracker.Resolve(ctx)
	for i, a := range answers {
		prompt, ok := r.Current()
		if !ok {
			return "", fmt.Errorf("answers[%d]: %w", i, ambiguity.ErrNoPendingChoice)
		}
		if a.Label != "" && prompt.Label != a.Label {
			return "", fmt.Errorf("answers[%d]: asked %q, expected %q", i, prompt.Label, a.Label)
		}
		var err error
		switch {
		case a.Skip:
			err = r.Skip(ctx)
		case a.Mode == "one":
			err = r.Choose(ctx, a.Choose, ambiguity.ApplyOne)
		default:
			err = r.Choose(ctx, a.Choose, ambiguity.ApplyAll)
		}
		if err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("changed %d pending %d %s", r.Changed(), r.Pending(), r.Phase()), nil
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
