package infra

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/focusd/droid_mon/internal/domain"
)

// newTestHistory creates an encrypted history store in a temp directory.
func newTestHistory(t *testing.T) (*HistoryStore, string, []byte) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "history.db")
	key, err := GenerateKey()
	require.NoError(t, err)

	store, err := NewHistoryStore(dbPath, key)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, dbPath, key
}

func attempt(id, pkg string, outcome domain.KillOutcome, at time.Time) domain.KillResult {
	return domain.KillResult{
		ID:         id,
		Package:    pkg,
		Outcome:    outcome,
		LastStatus: domain.StatusDone,
		StartedAt:  at,
		DurationMs: 1200,
	}
}

func TestHistoryStore_RecordAndRecent(t *testing.T) {
	store, _, _ := newTestHistory(t)
	base := time.UnixMilli(1_700_000_000_000)

	require.NoError(t, store.Record(attempt("a", "com.first", domain.OutcomeStopped, base)))
	require.NoError(t, store.Record(attempt("b", "com.second", domain.OutcomeTimedOut, base.Add(time.Second))))
	require.NoError(t, store.Record(attempt("c", "com.third", domain.OutcomeNavigationFailed, base.Add(2*time.Second))))

	recent, err := store.Recent(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "c", recent[0].ID)
	assert.Equal(t, "b", recent[1].ID)
	assert.Equal(t, domain.OutcomeTimedOut, recent[1].Outcome)
	assert.Equal(t, domain.StatusDone, recent[1].LastStatus)
	assert.True(t, base.Add(time.Second).Equal(recent[1].StartedAt))
	assert.Equal(t, int64(1200), recent[1].DurationMs)
}

func TestHistoryStore_RecordReplacesSameID(t *testing.T) {
	store, _, _ := newTestHistory(t)
	now := time.Now()

	require.NoError(t, store.Record(attempt("a", "com.first", domain.OutcomeTimedOut, now)))
	require.NoError(t, store.Record(attempt("a", "com.first", domain.OutcomeStopped, now)))

	recent, err := store.Recent(0)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, domain.OutcomeStopped, recent[0].Outcome)
}

func TestHistoryStore_Encryption(t *testing.T) {
	t.Run("file does not contain plaintext", func(t *testing.T) {
		store, dbPath, _ := newTestHistory(t)
		require.NoError(t, store.Record(attempt("a", "com.secret.game", domain.OutcomeStopped, time.Now())))
		store.Close()

		raw, err := os.ReadFile(dbPath)
		require.NoError(t, err)
		assert.NotContains(t, string(raw), "com.secret.game")
	})

	t.Run("wrong key fails to open", func(t *testing.T) {
		store, dbPath, _ := newTestHistory(t)
		require.NoError(t, store.Record(attempt("a", "com.first", domain.OutcomeStopped, time.Now())))
		store.Close()

		other, _ := GenerateKey()
		_, err := NewHistoryStore(dbPath, other)
		assert.Error(t, err)
	})

	t.Run("correct key reads data", func(t *testing.T) {
		store, dbPath, key := newTestHistory(t)
		require.NoError(t, store.Record(attempt("a", "com.first", domain.OutcomeStopped, time.Now())))
		store.Close()

		reopened, err := NewHistoryStore(dbPath, key)
		require.NoError(t, err)
		defer reopened.Close()

		recent, err := reopened.Recent(10)
		require.NoError(t, err)
		assert.Len(t, recent, 1)
		assert.Equal(t, dbPath, reopened.Path())
	})
}

func TestOpenHistory_CreatesKey(t *testing.T) {
	dir := t.TempDir()
	provider := NewHistoryKeyFile(filepath.Join(dir, ".history.key"))

	store, err := OpenHistory(filepath.Join(dir, "history.db"), provider)
	require.NoError(t, err)
	defer store.Close()

	assert.True(t, provider.KeyExists())
}

func TestOpenHistory_SetsAsideDatabaseWithoutKey(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "history.db")

	old, err := OpenHistory(dbPath, NewHistoryKeyFile(filepath.Join(dir, "old.key")))
	require.NoError(t, err)
	require.NoError(t, old.Record(attempt("a1", "com.example.game", domain.OutcomeStopped, time.Now())))
	require.NoError(t, old.Close())

	store, err := OpenHistory(dbPath, NewHistoryKeyFile(filepath.Join(dir, "history.key")))
	require.NoError(t, err)
	defer store.Close()

	recent, err := store.Recent(10)
	require.NoError(t, err)
	assert.Empty(t, recent)

	orphans, err := filepath.Glob(dbPath + ".orphaned-*")
	require.NoError(t, err)
	assert.Len(t, orphans, 1)
}
