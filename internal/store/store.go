package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/consequentlyvaluable/InjectionBuddy/internal/kv"
	"github.com/consequentlyvaluable/InjectionBuddy/internal/observability"
	"github.com/consequentlyvaluable/InjectionBuddy/internal/state"
)

const (
	// DefaultKey is the primary blob key.
	DefaultKey = "inj-track"
	// BackupSuffix derives the backup key from the primary key.
	BackupSuffix = ".bak"
)

// Store loads and saves the tracker document through a kv backend.
type Store struct {
	backend kv.Backend
	key     string
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithKey overrides the primary key.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithClock overrides the time source used for defaulted timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger for degraded backend operations.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns a Store over backend.
func New(backend kv.Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		key:     DefaultKey,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the primary key.
func (s *Store) Key() string { return s.key }

// BackupKey returns the key holding the previous primary blob.
func (s *Store) BackupKey() string { return s.key + BackupSuffix }

// Load returns the persisted document, recovering from a corrupt primary via
// the backup and from both via a fresh document. It always succeeds.
func (s *Store) Load(ctx context.Context) state.Document {
	now := s.now()

	raw, obj := s.readObject(ctx, s.key)
	source := observability.SourcePrimary
	if obj == nil {
		raw, obj = s.readObject(ctx, s.BackupKey())
		source = observability.SourceBackup
	}
	if obj == nil {
		fresh := state.Fresh()
		raw = s.encode(fresh)
		obj = fresh
		source = observability.SourceFresh
	}
	observability.RecordLoad(source)
	s.logger.Debug("document loaded", "key", s.key, "source", source)

	if raw != nil {
		s.write(ctx, s.BackupKey(), raw)
	}

	doc := state.Upgrade(obj, now)
	if b := s.encode(doc); b != nil {
		s.write(ctx, s.key, b)
	}
	return doc
}

// Save normalizes next and persists it, first moving the current primary
// into the backup slot. It returns the normalized document, which callers
// should use from then on.
func (s *Store) Save(ctx context.Context, next state.Document) state.Document {
	if current := s.read(ctx, s.key); len(current) > 0 {
		s.write(ctx, s.BackupKey(), current)
	}
	doc := state.Normalize(next)
	if b := s.encode(doc); b != nil {
		s.write(ctx, s.key, b)
	}
	observability.RecordSave()
	return doc
}

// Rollback makes the backup blob primary again. The primary it replaces
// becomes the new backup, so calling Rollback twice returns to the start.
// It reports false when the backup is missing or unusable.
func (s *Store) Rollback(ctx context.Context) (state.Document, bool) {
	_, obj := s.readObject(ctx, s.BackupKey())
	if obj == nil {
		return state.Document{}, false
	}
	return s.Save(ctx, state.Upgrade(obj, s.now())), true
}

// readObject reads key and returns its bytes and decoded value when the
// value is a JSON object.
func (s *Store) readObject(ctx context.Context, key string) ([]byte, any) {
	raw := s.read(ctx, key)
	if len(raw) == 0 {
		return nil, nil
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		s.logger.Warn("discarding unparseable document", "key", key, "error", err)
		return nil, nil
	}
	return raw, obj
}

func (s *Store) read(ctx context.Context, key string) []byte {
	b, err := s.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.logger.Warn("storage read failed", "key", key, "error", err)
			observability.RecordBackendFailure("read")
		}
		return nil
	}
	return b
}

func (s *Store) write(ctx context.Context, key string, value []byte) {
	if err := s.backend.Set(ctx, key, value); err != nil {
		s.logger.Warn("storage write skipped", "key", key, "error", err)
		observability.RecordBackendFailure("write")
	}
}

func (s *Store) encode(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("encode document", "error", err)
		return nil
	}
	return b
}
