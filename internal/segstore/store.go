// Package segstore persists segment bodies under a per-session directory
// with deterministic, collision-free filenames (spec.md §4.1).
package segstore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Roenbaeck/hls-relay/internal/fsutil"
)

// Store writes segment bodies into dir. It never mutates or deletes a file
// once written.
type Store struct {
	dir string
}

// New returns a Store rooted at dir, creating it if necessary.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the session directory this store writes into.
func (s *Store) Dir() string {
	return s.dir
}

// Filename builds the deterministic on-disk name for a segment, per
// spec.md §4.1: p<period>_segment_<sequence:06d>.<ext>.
func Filename(period, sequence int, isInit bool) string {
	ext := "m4s"
	if isInit {
		ext = "mp4"
	}
	return fmt.Sprintf("p%d_segment_%06d.%s", period, sequence, ext)
}

// Write persists body under the deterministic filename for (period,
// sequence, isInit) and returns that filename. Errors are the caller's to
// surface as a 500-class response; no partial file is left on a write
// failure.
func (s *Store) Write(period, sequence int, isInit bool, body []byte) (string, error) {
	filename := Filename(period, sequence, isInit)
	path, err := fsutil.ConfineRelPath(s.dir, filename)
	if err != nil {
		return "", fmt.Errorf("confine segment path: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("write segment body: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("finalize segment file: %w", err)
	}
	return filename, nil
}

// Path resolves filename to its confined absolute path within this
// session's directory, for the loopback read side.
func (s *Store) Path(filename string) (string, error) {
	return fsutil.ConfineRelPath(s.dir, filename)
}
