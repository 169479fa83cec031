package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consequentlyvaluable/InjectionBuddy/internal/kv"
	"github.com/consequentlyvaluable/InjectionBuddy/internal/kv/memory"
	"github.com/consequentlyvaluable/InjectionBuddy/internal/state"
	"github.com/consequentlyvaluable/InjectionBuddy/internal/testutil"
	"github.com/consequentlyvaluable/InjectionBuddy/internal/zone"
)

var errDenied = errors.New("storage denied")

// flakyBackend wraps a memory store and fails reads or writes on demand.
type flakyBackend struct {
	*memory.Store
	failGet bool
	failSet bool
	sets    []string
}

func newFlaky() *flakyBackend { return &flakyBackend{Store: memory.New()} }

func (f *flakyBackend) Get(ctx context.Context, key string) ([]byte, error) {
	if f.failGet {
		return nil, errDenied
	}
	return f.Store.Get(ctx, key)
}

func (f *flakyBackend) Set(ctx context.Context, key string, value []byte) error {
	f.sets = append(f.sets, key)
	if f.failSet {
		return errDenied
	}
	return f.Store.Set(ctx, key, value)
}

func newTestStore(t *testing.T, b kv.Backend) *Store {
	t.Helper()
	clock := testutil.NewFixedClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	quiet := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	return New(b, WithClock(clock.Now), WithLogger(quiet))
}

func raw(t *testing.T, b kv.Backend, key string) []byte {
	t.Helper()
	v, err := b.Get(context.Background(), key)
	require.NoError(t, err)
	return v
}

func sampleDoc() state.Document {
	start := "2024-01-01"
	return state.Document{Injection: state.InjectionProfile{
		Start:    &start,
		Interval: 8,
		Dose:     "150mg",
		History: []state.HistoryEntry{
			{TS: 1706745600000, Site: "Left Arm", Dose: "150mg"},
			{TS: 1704067200000, Site: "Right Arm", Dose: "150mg"},
		},
		Zones: []string{"Right Arm", "Left Arm"},
	}}
}

func TestKeys(t *testing.T) {
	s := New(memory.New())
	assert.Equal(t, "inj-track", s.Key())
	assert.Equal(t, "inj-track.bak", s.BackupKey())

	s = New(memory.New(), WithKey("custom"))
	assert.Equal(t, "custom.bak", s.BackupKey())
}

func TestLoad_FirstRunCreatesFreshDocument(t *testing.T) {
	b := memory.New()
	s := newTestStore(t, b)

	doc := s.Load(context.Background())
	assert.Empty(t, doc.Injection.History)
	assert.Equal(t, zone.All(), doc.Injection.Zones)
	assert.Equal(t, state.CurrentSchemaVersion, doc.SchemaVersion)

	// Both slots are written on first load.
	assert.NotEmpty(t, raw(t, b, s.Key()))
	assert.NotEmpty(t, raw(t, b, s.BackupKey()))
}

func TestSaveThenLoad_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, memory.New())

	saved := s.Save(ctx, sampleDoc())
	assert.Equal(t, state.Normalize(sampleDoc()), saved)

	loaded := s.Load(ctx)
	assert.Equal(t, saved, loaded)
}

func TestSave_MovesPrimaryToBackup(t *testing.T) {
	ctx := context.Background()
	b := memory.New()
	s := newTestStore(t, b)

	first := s.Save(ctx, sampleDoc())
	firstBlob := raw(t, b, s.Key())

	next := first.Clone()
	next.Injection.Dose = "300mg"
	s.Save(ctx, next)

	assert.Equal(t, firstBlob, raw(t, b, s.BackupKey()), "backup holds the previous primary verbatim")

	var primary state.Document
	require.NoError(t, json.Unmarshal(raw(t, b, s.Key()), &primary))
	assert.Equal(t, "300mg", primary.Injection.Dose)
}

func TestSave_WritesBackupBeforePrimary(t *testing.T) {
	ctx := context.Background()
	b := newFlaky()
	s := newTestStore(t, b)
	s.Save(ctx, sampleDoc())
	b.sets = nil

	s.Save(ctx, sampleDoc())
	assert.Equal(t, []string{"inj-track.bak", "inj-track"}, b.sets)
}

func TestLoad_CorruptPrimaryRecoversFromBackup(t *testing.T) {
	ctx := context.Background()
	b := memory.New()
	s := newTestStore(t, b)

	good := s.Save(ctx, sampleDoc())
	s.Save(ctx, good) // backup now holds a valid copy of good
	require.NoError(t, b.Set(ctx, s.Key(), []byte("{not json")))

	loaded := s.Load(ctx)
	assert.Equal(t, good, loaded)

	// The recovered document was rewritten as primary.
	var primary state.Document
	require.NoError(t, json.Unmarshal(raw(t, b, s.Key()), &primary))
	assert.Equal(t, good, primary)
}

func TestLoad_NonObjectPrimaryFallsBack(t *testing.T) {
	ctx := context.Background()
	for _, bad := range []string{`null`, `[]`, `42`, `"text"`} {
		b := memory.New()
		s := newTestStore(t, b)
		good := s.Save(ctx, sampleDoc())
		require.NoError(t, b.Set(ctx, s.BackupKey(), raw(t, b, s.Key())))
		require.NoError(t, b.Set(ctx, s.Key(), []byte(bad)))

		assert.Equal(t, good, s.Load(ctx), "primary %s", bad)
	}
}

func TestLoad_BothCorruptYieldsFresh(t *testing.T) {
	ctx := context.Background()
	b := memory.New()
	require.NoError(t, b.Set(ctx, "inj-track", []byte("garbage")))
	require.NoError(t, b.Set(ctx, "inj-track.bak", []byte("also garbage")))
	s := newTestStore(t, b)

	doc := s.Load(ctx)
	assert.Equal(t, state.Fresh(), doc)
}

func TestLoad_SnapshotsWhatWasRead(t *testing.T) {
	ctx := context.Background()
	b := memory.New()
	oddButParseable := []byte(`{"injection":{"interval":-1,"zones":["nope"]}}`)
	require.NoError(t, b.Set(ctx, "inj-track", oddButParseable))
	s := newTestStore(t, b)

	doc := s.Load(ctx)
	assert.Equal(t, 8, doc.Injection.Interval)
	assert.Equal(t, oddButParseable, raw(t, b, s.BackupKey()))
}

func TestLoad_BackupTrailsByOneCycle(t *testing.T) {
	ctx := context.Background()
	b := memory.New()
	s := newTestStore(t, b)

	s.Save(ctx, sampleDoc())
	before := raw(t, b, s.Key())
	s.Load(ctx)
	assert.Equal(t, before, raw(t, b, s.BackupKey()))
}

func TestLoad_UpgradesLegacyDocument(t *testing.T) {
	ctx := context.Background()
	b := memory.New()
	legacy := []byte(`{
		"skyrizi": {"history": [{"ts": 100, "site": "Right Arm"}], "zones": ["Right Arm"]},
		"repatha": {"history": [{"ts": 50, "site": "Left Arm"}], "zones": ["Left Arm"]}
	}`)
	require.NoError(t, b.Set(ctx, "inj-track", legacy))
	s := newTestStore(t, b)

	doc := s.Load(ctx)
	require.Len(t, doc.Injection.History, 2)
	assert.Equal(t, int64(50), doc.Injection.History[0].TS)
	assert.Equal(t, int64(100), doc.Injection.History[1].TS)
	assert.ElementsMatch(t, []string{"Right Arm", "Left Arm"}, doc.Injection.Zones)

	// Legacy blob is kept as the backup; primary is now current schema.
	assert.Equal(t, legacy, raw(t, b, s.BackupKey()))
	var primary map[string]any
	require.NoError(t, json.Unmarshal(raw(t, b, s.Key()), &primary))
	assert.Contains(t, primary, "injection")
	assert.EqualValues(t, state.CurrentSchemaVersion, primary["schemaVersion"])
}

func TestLoad_ReadFailureDegradesToFresh(t *testing.T) {
	b := newFlaky()
	b.failGet = true
	s := newTestStore(t, b)

	assert.NotPanics(t, func() {
		doc := s.Load(context.Background())
		assert.Equal(t, state.Fresh(), doc)
	})
}

func TestSave_WriteFailureIsSkipped(t *testing.T) {
	b := newFlaky()
	b.failSet = true
	s := newTestStore(t, b)

	doc := s.Save(context.Background(), sampleDoc())
	assert.Equal(t, state.Normalize(sampleDoc()), doc, "in-memory result stays authoritative")

	_, err := b.Store.Get(context.Background(), s.Key())
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func TestRollback(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, memory.New())

	_, ok := s.Rollback(ctx)
	assert.False(t, ok)

	first := s.Save(ctx, sampleDoc())
	second := first.Clone()
	second.Injection.History = nil
	second = s.Save(ctx, second)

	restored, ok := s.Rollback(ctx)
	require.True(t, ok)
	assert.Equal(t, first, restored)

	again, ok := s.Rollback(ctx)
	require.True(t, ok)
	assert.Equal(t, second, again)
	assert.Equal(t, second, s.Load(ctx))
}

func TestSave_PrimaryBlobGolden(t *testing.T) {
	b := memory.New()
	s := newTestStore(t, b)
	s.Save(context.Background(), sampleDoc())

	testutil.AssertGolden(t, "primary_blob", raw(t, b, s.Key()))
}
