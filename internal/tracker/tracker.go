package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/consequentlyvaluable/InjectionBuddy/internal/ambiguity"
	"github.com/consequentlyvaluable/InjectionBuddy/internal/csvio"
	"github.com/consequentlyvaluable/InjectionBuddy/internal/rotation"
	"github.com/consequentlyvaluable/InjectionBuddy/internal/state"
	"github.com/consequentlyvaluable/InjectionBuddy/internal/store"
	"github.com/consequentlyvaluable/InjectionBuddy/internal/zone"
)

var (
	// ErrNoSiteSelected is returned by LogNow without an enabled site.
	ErrNoSiteSelected = errors.New("no injection site selected")
	// ErrAlreadyLoggedToday is returned by LogNow when today already has an
	// entry and the caller did not force the log.
	ErrAlreadyLoggedToday = errors.New("an injection is already logged today")
	// ErrInvalidStart is returned for start dates that are not YYYY-MM-DD.
	ErrInvalidStart = errors.New("start date must be YYYY-MM-DD")
	// ErrInvalidInterval is returned for non-positive intervals.
	ErrInvalidInterval = errors.New("interval must be a positive number of weeks")
	// ErrUnknownZone is returned when toggling a label outside the catalog.
	ErrUnknownZone = errors.New("zone is not in the catalog")
)

// Tracker serializes access to the document held by a store.
type Tracker struct {
	mu      sync.Mutex
	store   *store.Store
	doc     state.Document
	now     func() time.Time
	loc     *time.Location
	logger  *slog.Logger
	session *Resolution
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock sets the time source used for new entries and day checks.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// WithLocation sets the time zone that defines a calendar day.
func WithLocation(loc *time.Location) Option {
	return func(t *Tracker) {
		if loc != nil {
			t.loc = loc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// Open loads the document from st and returns a tracker owning it.
func Open(ctx context.Context, st *store.Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:  st,
		now:    time.Now,
		loc:    time.Local,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.doc = st.Load(ctx)
	return t
}

// Snapshot returns a copy of the current document.
func (t *Tracker) Snapshot() state.Document {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.doc.Clone()
}

// Location returns the time zone used for calendar days.
func (t *Tracker) Location() *time.Location { return t.loc }

// Now returns the tracker clock reading.
func (t *Tracker) Now() time.Time { return t.now() }

// update applies fn to a copy of the document and persists the result. The
// document is unchanged when fn fails.
func (t *Tracker) update(ctx context.Context, fn func(doc *state.Document) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.updateLocked(ctx, fn)
}

func (t *Tracker) updateLocked(ctx context.Context, fn func(doc *state.Document) error) error {
	next := t.doc.Clone()
	if err := fn(&next); err != nil {
		return err
	}
	t.doc = t.store.Save(ctx, next)
	t.refreshSessionLocked(ctx)
	return nil
}

// refreshSessionLocked re-indexes an open resolution after the document was
// replaced and possibly re-sorted.
func (t *Tracker) refreshSessionLocked(ctx context.Context) {
	if t.session != nil && t.session.inner.Phase() == ambiguity.AwaitingChoice {
		_ = t.session.drive(ctx, func(s *ambiguity.Session) error {
			s.Enqueue()
			return nil
		})
	}
}

// LogNow appends an entry for site stamped with the current time and the
// profile dose. A second entry on the same day needs force.
func (t *Tracker) LogNow(ctx context.Context, site string, force bool) (state.HistoryEntry, error) {
	var entry state.HistoryEntry
	err := t.update(ctx, func(doc *state.Document) error {
		if site == "" || !doc.Injection.ZoneEnabled(site) {
			return ErrNoSiteSelected
		}
		now := t.now()
		if !force && doc.Injection.HasEntryOn(now, t.loc) {
			return ErrAlreadyLoggedToday
		}
		entry = state.HistoryEntry{
			TS:   state.EpochMillis(now),
			Site: site,
			Dose: doc.Injection.Dose,
		}
		doc.Injection.History = append(doc.Injection.History, entry)
		return nil
	})
	if err != nil {
		return state.HistoryEntry{}, err
	}
	t.logger.Debug("logged injection", "site", site, "ts", entry.TS)
	return entry, nil
}

// SetStart sets the schedule start date. An empty date clears it.
func (t *Tracker) SetStart(ctx context.Context, date string) error {
	if date != "" {
		if _, err := time.Parse(time.DateOnly, date); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidStart, date)
		}
	}
	return t.update(ctx, func(doc *state.Document) error {
		if date == "" {
			doc.Injection.Start = nil
			return nil
		}
		doc.Injection.Start = &date
		return nil
	})
}

// SetInterval sets the number of weeks between injections.
func (t *Tracker) SetInterval(ctx context.Context, weeks int) error {
	if weeks <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidInterval, weeks)
	}
	return t.update(ctx, func(doc *state.Document) error {
		doc.Injection.Interval = weeks
		return nil
	})
}

// SetDose sets the dose recorded on future entries.
func (t *Tracker) SetDose(ctx context.Context, dose string) error {
	return t.update(ctx, func(doc *state.Document) error {
		doc.Injection.Dose = dose
		return nil
	})
}

// ToggleZone flips whether z is in the rotation and reports the new state.
// Disabling the last zone re-enables the whole catalog.
func (t *Tracker) ToggleZone(ctx context.Context, z string) (bool, error) {
	if !zone.Contains(z) {
		return false, fmt.Errorf("%w: %q", ErrUnknownZone, z)
	}
	var enabled bool
	err := t.update(ctx, func(doc *state.Document) error {
		if doc.Injection.ZoneEnabled(z) {
			kept := doc.Injection.Zones[:0]
			for _, existing := range doc.Injection.Zones {
				if existing != z {
					kept = append(kept, existing)
				}
			}
			doc.Injection.Zones = kept
			return nil
		}
		doc.Injection.Zones = append(doc.Injection.Zones, z)
		return nil
	})
	if err != nil {
		return false, err
	}
	t.mu.Lock()
	enabled = t.doc.Injection.ZoneEnabled(z)
	t.mu.Unlock()
	return enabled, nil
}

// Export writes the history as CSV.
func (t *Tracker) Export(w io.Writer) error {
	doc := t.Snapshot()
	return csvio.Export(w, doc.Injection.History, t.loc)
}

// ClearHistory exports the history to w and then empties it. Nothing is
// cleared when the export fails.
func (t *Tracker) ClearHistory(ctx context.Context, w io.Writer) (int, error) {
	var cleared int
	err := t.update(ctx, func(doc *state.Document) error {
		if err := csvio.Export(w, doc.Injection.History, t.loc); err != nil {
			return fmt.Errorf("export before clear: %w", err)
		}
		cleared = len(doc.Injection.History)
		doc.Injection.History = nil
		return nil
	})
	if err != nil {
		return 0, err
	}
	t.logger.Info("cleared history", "entries", cleared)
	return cleared, nil
}

// Suggest returns the next zone in the rotation.
func (t *Tracker) Suggest() string {
	return rotation.Suggest(t.Snapshot())
}

// Restore replaces the document with the backup copy. It reports false when
// no readable backup exists.
func (t *Tracker) Restore(ctx context.Context) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	doc, ok := t.store.Rollback(ctx)
	if !ok {
		return false
	}
	t.doc = doc
	t.refreshSessionLocked(ctx)
	return true
}
