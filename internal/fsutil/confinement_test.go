package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSafeIdentifier(t *testing.T) {
	cases := map[string]bool{
		"":                false,
		"abc123":          true,
		"abc_123-xyz":     true,
		"../etc/passwd":   false,
		"a/b":             false,
		"a.b":             false,
		"with space":      false,
		strings200("a"):   true,
	}
	for in, want := range cases {
		assert.Equal(t, want, IsSafeIdentifier(in), "input %q", in)
	}
}

func strings200(s string) string {
	out := ""
	for i := 0; i < 200; i++ {
		out += s
	}
	return out
}

func TestConfineRelPath_RejectsTraversal(t *testing.T) {
	root := t.TempDir()

	_, err := ConfineRelPath(root, "../escape")
	assert.Error(t, err)

	_, err = ConfineRelPath(root, "..")
	assert.Error(t, err)

	_, err = ConfineRelPath(root, "nested\\..\\escape")
	assert.Error(t, err)
}

func TestConfineRelPath_RejectsAbsolute(t *testing.T) {
	root := t.TempDir()
	_, err := ConfineRelPath(root, "/etc/passwd")
	assert.Error(t, err)
}

func TestConfineRelPath_AllowsNestedRelative(t *testing.T) {
	root := t.TempDir()
	path, err := ConfineRelPath(root, "segment_000001.m4s")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "segment_000001.m4s"), path)
}

func TestConfineRelPath_RejectsSymlinkEscape(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("x"), 0o644))

	link := filepath.Join(root, "escape")
	require.NoError(t, os.Symlink(outside, link))

	_, err := ConfineRelPath(root, filepath.Join("escape", "secret.txt"))
	assert.Error(t, err)
}
