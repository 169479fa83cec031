package tracker

import (
	"context"

	"github.com/consequentlyvaluable/InjectionBuddy/internal/ambiguity"
	"github.com/consequentlyvaluable/InjectionBuddy/internal/state"
)

// Resolution is the tracker's ambiguity session. Its methods take the
// tracker lock, so it may be driven from any goroutine.
type Resolution struct {
	t     *Tracker
	inner *ambiguity.Session
	// ctx belongs to the call currently driving inner and is used when the
	// session flushes. It is only set while the tracker lock is held.
	ctx context.Context
}

// drive runs fn against the session with ctx as the flush context. Callers
// hold the tracker lock.
func (r *Resolution) drive(ctx context.Context, fn func(*ambiguity.Session) error) error {
	r.ctx = ctx
	defer func() { r.ctx = nil }()
	return fn(r.inner)
}

func (r *Resolution) flush(doc state.Document) state.Document {
	ctx := r.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return r.t.store.Save(ctx, doc)
}

// Prompt is the question put to the operator for one ambiguous label.
type Prompt struct {
	ambiguity.Group
	Suggestions []string `json:"suggestions"`
}

// Resolve scans the document for unknown site labels and returns the
// session answering them. While a session is awaiting a choice the same
// session is returned with any new labels appended to its queue.
func (t *Tracker) Resolve(ctx context.Context) *Resolution {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.session == nil || t.session.inner.Phase() == ambiguity.Done {
		r := &Resolution{t: t}
		r.inner = ambiguity.NewSession(&t.doc, r.flush)
		t.session = r
	}
	_ = t.session.drive(ctx, func(s *ambiguity.Session) error {
		s.Enqueue()
		return nil
	})
	return t.session
}

// Phase returns the session state.
func (r *Resolution) Phase() ambiguity.Phase {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()
	return r.inner.Phase()
}

// Pending returns the number of labels still to answer.
func (r *Resolution) Pending() int {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()
	return r.inner.Pending()
}

// Changed returns how many entries have been rewritten.
func (r *Resolution) Changed() int {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()
	return r.inner.Changed()
}

// Current returns the label awaiting a choice along with ranked
// suggestions.
func (r *Resolution) Current() (Prompt, bool) {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()
	g, ok := r.inner.Current()
	if !ok {
		return Prompt{}, false
	}
	return Prompt{Group: g, Suggestions: ambiguity.SuggestedSubzones(g.Label)}, true
}

// Choose answers the current label with z.
// The document is saved with ctx when this answer drains the queue.
func (r *Resolution) Choose(ctx context.Context, z string, mode ambiguity.Mode) error {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()
	return r.drive(ctx, func(s *ambiguity.Session) error { return s.Choose(z, mode) })
}

// Skip leaves the current label unresolved.
func (r *Resolution) Skip(ctx context.Context) error {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()
	return r.drive(ctx, func(s *ambiguity.Session) error { return s.Skip() })
}
