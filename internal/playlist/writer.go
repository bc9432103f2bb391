// Package playlist appends tag lines to a per-session HLS event playlist,
// enforcing header-once and endlist-once discipline (spec.md §4.2).
//
// Writer is not internally synchronized: callers (the session state
// machine) serialize all access through their own lock, per spec.md §5.
package playlist

import (
	"fmt"
	"os"
)

const (
	targetDuration = 2
	playlistHeader = "#EXTM3U\n" +
		"#EXT-X-VERSION:7\n" +
		"#EXT-X-TARGETDURATION:2\n"
)

// Writer appends lines to a single .m3u8 file.
type Writer struct {
	path           string
	file           *os.File
	headerWritten  bool
	endlistWritten bool
}

// New returns a Writer for the given playlist path. The file is not created
// until WriteHeader is called.
func New(path string) *Writer {
	return &Writer{path: path}
}

func (w *Writer) openAppend() error {
	if w.file != nil {
		return nil
	}
	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	w.file = f
	return nil
}

func (w *Writer) writeString(s string) error {
	if err := w.openAppend(); err != nil {
		return err
	}
	_, err := w.file.WriteString(s)
	return err
}

// WriteHeader truncates/creates the playlist file and writes the fixed
// preamble plus the first #EXT-X-MAP line. Callable at most once per
// session; subsequent calls are a no-op returning nil, matching the
// idempotent style of the rest of the state machine.
func (w *Writer) WriteHeader(firstSequence int, firstInitFilename string) error {
	if w.headerWritten {
		return nil
	}
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create playlist: %w", err)
	}
	defer f.Close()

	body := playlistHeader +
		fmt.Sprintf("#EXT-X-MEDIA-SEQUENCE:%d\n", firstSequence) +
		"#EXT-X-PLAYLIST-TYPE:EVENT\n" +
		fmt.Sprintf("#EXT-X-MAP:URI=\"%s\"\n", firstInitFilename)

	if _, err := f.WriteString(body); err != nil {
		return fmt.Errorf("write playlist header: %w", err)
	}
	w.headerWritten = true
	return nil
}

// AppendNewPeriod appends a discontinuity marker followed by a new
// #EXT-X-MAP line. Called for every init segment after the first within a
// session.
func (w *Writer) AppendNewPeriod(initFilename string) error {
	return w.writeString("#EXT-X-DISCONTINUITY\n" +
		fmt.Sprintf("#EXT-X-MAP:URI=\"%s\"\n", initFilename))
}

// AppendMedia appends a media entry, optionally preceded by a discontinuity
// marker. duration is formatted with exactly six fractional digits.
func (w *Writer) AppendMedia(filename string, duration float64, withDiscontinuity bool) error {
	var line string
	if withDiscontinuity {
		line = "#EXT-X-DISCONTINUITY\n"
	}
	line += fmt.Sprintf("#EXTINF:%.6f,\n%s\n", duration, filename)
	return w.writeString(line)
}

// AppendEndlist appends the terminal tag. Callable at most once per session.
func (w *Writer) AppendEndlist() error {
	if w.endlistWritten {
		return nil
	}
	if err := w.writeString("#EXT-X-ENDLIST\n"); err != nil {
		return err
	}
	w.endlistWritten = true
	return nil
}

// HeaderWritten reports whether WriteHeader has already run.
func (w *Writer) HeaderWritten() bool {
	return w.headerWritten
}

// Close releases the underlying file handle, if one is open.
func (w *Writer) Close() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
