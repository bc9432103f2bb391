package segstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilename_ExtensionByType(t *testing.T) {
	assert.Equal(t, "p0_segment_000000.mp4", Filename(0, 0, true))
	assert.Equal(t, "p2_segment_000042.m4s", Filename(2, 42, false))
}

func TestWrite_PersistsBodyAndReturnsFilename(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	filename, err := store.Write(0, 1, false, []byte("segment-body"))
	require.NoError(t, err)
	assert.Equal(t, "p0_segment_000001.m4s", filename)

	data, err := os.ReadFile(filepath.Join(dir, filename))
	require.NoError(t, err)
	assert.Equal(t, "segment-body", string(data))
}

func TestWrite_LeavesNoTempFileOnSuccess(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	filename, err := store.Write(0, 0, true, []byte("init"))
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, filename+".tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestPath_ResolvesWithinDir(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	path, err := store.Path("p0_segment_000000.mp4")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "p0_segment_000000.mp4"), path)

	_, err = store.Path("../escape.mp4")
	assert.Error(t, err)
}

func TestNew_CreatesDirIfMissing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "session")
	store, err := New(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, store.Dir())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
