package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consequentlyvaluable/InjectionBuddy/internal/kv/core"
)

// createTestStore opens a store in a fresh temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	v, err := s.schemaVersion()
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, v)
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/test.db")
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	assert.NoError(t, s.Close())
}

func TestPragma_JournalMode(t *testing.T) {
	s := createTestStore(t)
	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
}

func TestPragma_BusyTimeout(t *testing.T) {
	s := createTestStore(t)
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
}

func TestStore_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	assert.Equal(t, core.DriverSQLite, s.Driver())

	_, err := s.Get(ctx, "inj-track")
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, s.Set(ctx, "inj-track", []byte("one")))
	require.NoError(t, s.Set(ctx, "inj-track", []byte("two")))

	got, err := s.Get(ctx, "inj-track")
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))

	var rows int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM kv_entries`).Scan(&rows))
	assert.Equal(t, 1, rows)

	require.NoError(t, s.Delete(ctx, "inj-track"))
	_, err = s.Get(ctx, "inj-track")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestStore_EmptyValue(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.NoError(t, s.Set(ctx, "k", nil))
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_UpdatedAt(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	require.NoError(t, s.Set(ctx, "k", []byte("v")))
	var updated int64
	require.NoError(t, s.db.QueryRow(`SELECT updated_at FROM kv_entries WHERE key = 'k'`).Scan(&updated))
	assert.Equal(t, fixed.UnixMilli(), updated)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Set(ctx, "k", []byte("durable")))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	got, err := s2.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "durable", string(got))
}
