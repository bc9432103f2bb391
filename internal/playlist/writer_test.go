package playlist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteHeader_IsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "playlist.m3u8")
	w := New(path)

	require.NoError(t, w.WriteHeader(0, "init_0.mp4"))
	require.NoError(t, w.WriteHeader(5, "init_should_not_appear.mp4"))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	body := string(data)
	assert.Contains(t, body, "#EXTM3U")
	assert.Contains(t, body, "#EXT-X-VERSION:7")
	assert.Contains(t, body, "#EXT-X-TARGETDURATION:2")
	assert.Contains(t, body, "#EXT-X-MEDIA-SEQUENCE:0")
	assert.Contains(t, body, "#EXT-X-PLAYLIST-TYPE:EVENT")
	assert.Contains(t, body, `#EXT-X-MAP:URI="init_0.mp4"`)
	assert.NotContains(t, body, "init_should_not_appear.mp4")
	assert.True(t, w.HeaderWritten())
}

func TestAppendMedia_FormatsDurationAndDiscontinuity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "playlist.m3u8")
	w := New(path)
	require.NoError(t, w.WriteHeader(0, "init_0.mp4"))
	require.NoError(t, w.AppendMedia("seg_000000.m4s", 1.998667, false))
	require.NoError(t, w.AppendMedia("seg_000001.m4s", 2.0, true))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	body := string(data)
	assert.Contains(t, body, "#EXTINF:1.998667,\nseg_000000.m4s")
	assert.Contains(t, body, "#EXT-X-DISCONTINUITY\n#EXTINF:2.000000,\nseg_000001.m4s")
}

func TestAppendNewPeriod_WritesDiscontinuityAndMap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "playlist.m3u8")
	w := New(path)
	require.NoError(t, w.WriteHeader(0, "init_0.mp4"))
	require.NoError(t, w.AppendNewPeriod("init_1.mp4"))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "#EXT-X-DISCONTINUITY\n#EXT-X-MAP:URI=\"init_1.mp4\"")
}

func TestAppendEndlist_IsIdempotentAndTerminal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "playlist.m3u8")
	w := New(path)
	require.NoError(t, w.WriteHeader(0, "init_0.mp4"))
	require.NoError(t, w.AppendEndlist())
	require.NoError(t, w.AppendEndlist())
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	count := 0
	body := string(data)
	for i := 0; i+len("#EXT-X-ENDLIST") <= len(body); i++ {
		if body[i:i+len("#EXT-X-ENDLIST")] == "#EXT-X-ENDLIST" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestAppendMedia_AfterHeaderWritesFileInSubdirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "playlist.m3u8")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	w := New(path)
	require.NoError(t, w.WriteHeader(0, "init_0.mp4"))
	require.NoError(t, w.AppendMedia("seg.m4s", 2, false))
	require.NoError(t, w.Close())

	_, err := os.Stat(path)
	require.NoError(t, err)
}
