// Package session implements the per-stream state machine (spec.md §4.3):
// pending-queue, ordered-write cursor, gap/skip logic, period counter,
// finalization, stall detection, and uploader-process supervision.
package session

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Roenbaeck/hls-relay/internal/config"
	"github.com/Roenbaeck/hls-relay/internal/playlist"
	"github.com/Roenbaeck/hls-relay/internal/relayerr"
	"github.com/Roenbaeck/hls-relay/internal/segstore"
)

// SegmentType distinguishes the three admit kinds named in spec.md §6.
type SegmentType int

const (
	Media SegmentType = iota
	Initialization
	Finalization
)

// Uploader is the subset of UploaderSupervisor behavior the session state
// machine depends on (spec.md §4.4). Session accepts this as an interface
// so it never needs to know about process management or command lines.
type Uploader interface {
	// Start spawns the child for target. startIndex nil means "live edge"
	// (no explicit -live_start_index argument); non-nil means replay from
	// that index.
	Start(ctx context.Context, target string, startIndex *int) error
	// Running reports whether the child is believed to still be alive.
	Running() bool
	// Exited reports whether the child has exited, along with the exit
	// detail.
	Exited() (happened bool, code int, signal string)
	// Stop signals graceful termination, waiting up to the supervisor's
	// configured deadline before killing; idempotent.
	Stop(ctx context.Context)
	// Logs returns the most recent lines of merged stdout/stderr output,
	// oldest first, for operator inspection via relayctl.
	Logs() []string
}

// UploaderFactory builds a fresh Uploader for a newly (re)started child.
type UploaderFactory func(sessionID, streamKey string) Uploader

// Event is a bounded history entry for observability (spec.md data model).
type Event struct {
	Time    time.Time      `json:"time"`
	Reason  relayerr.Reason `json:"reason"`
	Message string         `json:"message"`
}

type pendingSegment struct {
	filename      string
	duration      float64
	discontinuity bool
}

type durationSample struct {
	at      time.Time
	seconds float64
}

// AdmitRequest mirrors the fields IngestEndpoint extracts from the request
// headers and body (spec.md §4.6).
type AdmitRequest struct {
	SegmentType   SegmentType
	Discontinuity bool
	Duration      float64
	Sequence      int
	Body          []byte
	Target        string
}

// AdmitOutcome reports what admit actually did, for the HTTP layer's
// response and for metrics.
type AdmitOutcome int

const (
	OutcomeAccepted AdmitOutcome = iota
	OutcomeStale
	OutcomeRejectedFinalized
)

// AdmitResult is returned by Admit.
type AdmitResult struct {
	Outcome AdmitOutcome
}

// Session is the per-stream state machine. All exported mutating methods
// serialize through mu (spec.md §5 session_lock); background tasks take the
// same lock only briefly.
type Session struct {
	streamKey string
	sessionID string
	dir       string

	store  *segstore.Store
	writer *playlist.Writer

	cfg             config.Config
	uploaderFactory UploaderFactory
	onFinalize      func(*Session)
	onEvent         func(streamKey, sessionID string, ev Event)

	mu sync.Mutex

	pending     map[int]pendingSegment
	finalAwait  bool // final-marker sentinel seen but not yet drained past

	lastWrittenSequence int
	mapWritten          bool
	periodIndex         int
	writtenMediaCount   int

	gapWaitSequence int // -1 when unarmed
	gapWaitStart    time.Time
	forceDiscontinuity bool // set after a gap-skip, consumed by the next write

	lastUploadTime          time.Time
	lastPlaylistAdvanceTime time.Time

	finalized bool

	uploader Uploader
	target   string

	events          []Event
	uploadDurations []durationSample

	bgCtx    context.Context
	bgCancel context.CancelFunc
	bg       *errgroup.Group
	stallOn  sync.Once

	createdAt time.Time
}

// StreamKey returns the caller-supplied stream identifier.
func (s *Session) StreamKey() string { return s.streamKey }

// SessionID returns the stream_key_timestamp identifier (on-disk dir name).
func (s *Session) SessionID() string { return s.sessionID }

// Dir returns the session's on-disk directory.
func (s *Session) Dir() string { return s.dir }

// IsFinalized reports the one-way finalized flag.
func (s *Session) IsFinalized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finalized
}

// RotationInfo exposes the minimal read-only state the registry needs to
// decide whether an arriving init requires rotation (spec.md §4.5).
type RotationInfo struct {
	Finalized           bool
	MapWritten          bool
	LastWrittenSequence int
}

// Rotation returns a consistent snapshot of the fields that drive the
// registry's rotation decision.
func (s *Session) Rotation() RotationInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return RotationInfo{
		Finalized:           s.finalized,
		MapWritten:          s.mapWritten,
		LastWrittenSequence: s.lastWrittenSequence,
	}
}
