package ambiguity

import (
	"errors"
	"fmt"

	"github.com/consequentlyvaluable/InjectionBuddy/internal/observability"
	"github.com/consequentlyvaluable/InjectionBuddy/internal/state"
	"github.com/consequentlyvaluable/InjectionBuddy/internal/zone"
)

// Phase is the resolution workflow state.
type Phase int

const (
	Idle Phase = iota
	AwaitingChoice
	Done
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case AwaitingChoice:
		return "awaiting-choice"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Mode selects how far a choice is applied.
type Mode int

const (
	// ApplyAll rewrites every queued entry carrying the label.
	ApplyAll Mode = iota
	// ApplyOne rewrites only the first queued entry.
	ApplyOne
)

func (m Mode) String() string {
	if m == ApplyOne {
		return "one"
	}
	return "all"
}

var (
	// ErrUnknownZone is returned when a choice is not a catalog zone.
	ErrUnknownZone = errors.New("ambiguity: zone is not in the catalog")
	// ErrNoPendingChoice is returned by Choose and Skip outside AwaitingChoice.
	ErrNoPendingChoice = errors.New("ambiguity: no group awaiting a choice")
)

// FlushFunc persists a resolved document and returns the stored form.
type FlushFunc func(doc state.Document) state.Document

// Session resolves the ambiguity groups of one document. It mutates the
// document it was created with and is not safe for concurrent use; callers
// serialize access (the tracker holds its lock around every call).
type Session struct {
	doc     *state.Document
	flush   FlushFunc
	phase   Phase
	current *Group
	queue   []Group
	changed int
}

// NewSession returns an Idle session over doc. A nil flush only normalizes
// the document when the queue drains.
func NewSession(doc *state.Document, flush FlushFunc) *Session {
	if flush == nil {
		flush = state.Normalize
	}
	return &Session{doc: doc, flush: flush}
}

// Phase returns the current workflow state.
func (s *Session) Phase() Phase { return s.phase }

// Current returns the group awaiting a choice.
func (s *Session) Current() (Group, bool) {
	if s.phase != AwaitingChoice || s.current == nil {
		return Group{}, false
	}
	return cloneGroup(*s.current), true
}

// Pending returns the number of groups still to be answered, the current one
// included.
func (s *Session) Pending() int {
	n := len(s.queue)
	if s.current != nil {
		n++
	}
	return n
}

// Changed returns how many entries the session has rewritten so far.
func (s *Session) Changed() int { return s.changed }

// Enqueue rescans the document and queues every group whose label is not
// already pending. Indexes of pending groups are refreshed from the same scan
// so they stay valid after the document was re-sorted. It returns the
// number of groups added; an Idle or Done session with new work moves to
// AwaitingChoice.
func (s *Session) Enqueue() int {
	found := GroupByLabel(Find(*s.doc))
	byLabel := make(map[string][]int, len(found))
	for _, g := range found {
		byLabel[g.Label] = g.Indexes
	}

	pending := map[string]bool{}
	if s.current != nil {
		pending[s.current.Label] = true
		s.current.Indexes = byLabel[s.current.Label]
	}
	kept := s.queue[:0]
	for _, g := range s.queue {
		pending[g.Label] = true
		g.Indexes = byLabel[g.Label]
		if len(g.Indexes) > 0 {
			kept = append(kept, g)
		}
	}
	s.queue = kept

	added := 0
	for _, g := range found {
		if pending[g.Label] {
			continue
		}
		pending[g.Label] = true
		s.queue = append(s.queue, g)
		added++
	}

	if s.current != nil && len(s.current.Indexes) == 0 {
		s.current = nil
	}
	if s.current == nil {
		s.advance()
	}
	return added
}

// Choose assigns z to the current group. An invalid zone leaves the session
// unchanged.
func (s *Session) Choose(z string, mode Mode) error {
	if s.phase != AwaitingChoice || s.current == nil {
		return ErrNoPendingChoice
	}
	if !zone.Contains(z) {
		return fmt.Errorf("%w: %q", ErrUnknownZone, z)
	}

	g := s.current
	s.current = nil
	history := s.doc.Injection.History

	switch mode {
	case ApplyOne:
		rest := g.Indexes
		for len(rest) > 0 {
			i := rest[0]
			rest = rest[1:]
			if s.rewrite(history, i, g.Label, z) {
				break
			}
		}
		if len(rest) > 0 {
			s.queue = append([]Group{{Label: g.Label, Indexes: rest}}, s.queue...)
		}
	default:
		for _, i := range g.Indexes {
			s.rewrite(history, i, g.Label, z)
		}
	}
	observability.RecordResolution(mode.String())

	s.advance()
	return nil
}

// Skip leaves the current group unresolved and moves on.
func (s *Session) Skip() error {
	if s.phase != AwaitingChoice || s.current == nil {
		return ErrNoPendingChoice
	}
	s.current = nil
	observability.RecordResolution("skip")
	s.advance()
	return nil
}

// rewrite sets history[i] to z if it still carries label.
func (s *Session) rewrite(history []state.HistoryEntry, i int, label, z string) bool {
	if i < 0 || i >= len(history) || history[i].Site != label {
		return false
	}
	history[i].Site = z
	s.changed++
	return true
}

func (s *Session) advance() {
	if len(s.queue) > 0 {
		next := s.queue[0]
		s.queue = s.queue[1:]
		s.current = &next
		s.phase = AwaitingChoice
		return
	}
	if s.phase == AwaitingChoice {
		*s.doc = s.flush(*s.doc)
		s.phase = Done
	}
}

func cloneGroup(g Group) Group {
	out := Group{Label: g.Label, Indexes: make([]int, len(g.Indexes))}
	copy(out.Indexes, g.Indexes)
	return out
}
