package statusstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Roenbaeck/hls-relay/internal/session"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "status.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPutGet_RoundTrips(t *testing.T) {
	store := openTestStore(t)

	snap := session.Snapshot{StreamKey: "alpha", SessionID: "alpha_1", Finalized: true}
	require.NoError(t, store.Put(snap))

	got, ok, err := store.Get("alpha_1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "alpha", got.StreamKey)
	assert.True(t, got.Finalized)
}

func TestGet_MissingSessionReturnsNotFound(t *testing.T) {
	store := openTestStore(t)
	_, ok, err := store.Get("does-not-exist")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPut_OverwritesPriorRecordForSameSession(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Put(session.Snapshot{SessionID: "s1", PeriodIndex: 0}))
	require.NoError(t, store.Put(session.Snapshot{SessionID: "s1", PeriodIndex: 3}))

	got, ok, err := store.Get("s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, got.PeriodIndex)
}

func TestList_ReturnsMostRecentlyPersistedFirst(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Put(session.Snapshot{SessionID: "first"}))
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, store.Put(session.Snapshot{SessionID: "second"}))
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, store.Put(session.Snapshot{SessionID: "third"}))

	list, err := store.List()
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "third", list[0].SessionID)
	assert.Equal(t, "first", list[2].SessionID)
}

func TestDeleteOlderThan_RemovesOnlyStaleRecords(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Put(session.Snapshot{SessionID: "old"}))
	cutoff := time.Now()
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, store.Put(session.Snapshot{SessionID: "new"}))

	n, err := store.DeleteOlderThan(cutoff)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, ok, err := store.Get("old")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = store.Get("new")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDeleteOlderThan_NothingToDeleteReturnsZero(t *testing.T) {
	store := openTestStore(t)
	n, err := store.DeleteOlderThan(time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
