// Package registry maps stream keys to active sessions and implements
// rotation: replacing a session when a later initialization segment's
// declared sequence indicates the encoder reset its counters, or when the
// mapped session is already finalized (spec.md §4.5).
package registry

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Roenbaeck/hls-relay/internal/config"
	"github.com/Roenbaeck/hls-relay/internal/log"
	"github.com/Roenbaeck/hls-relay/internal/relayerr"
	"github.com/Roenbaeck/hls-relay/internal/session"
)

// Registry owns the stream_key -> *session.Session mapping. The registry
// lock (mu) is held only long enough to read or swap that mapping; all
// other work happens outside it, per spec.md §5.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*session.Session

	cfg             config.Config
	baseDir         string
	uploaderFactory session.UploaderFactory
	onEvent         func(streamKey, sessionID string, ev session.Event)
	logger          zerolog.Logger

	lastSessionBase string
	lastSessionSeq  int
}

// New returns an empty Registry rooted at baseDir.
func New(cfg config.Config, baseDir string, uploaderFactory session.UploaderFactory, onEvent func(streamKey, sessionID string, ev session.Event)) *Registry {
	return &Registry{
		sessions:        make(map[string]*session.Session),
		cfg:             cfg,
		baseDir:         baseDir,
		uploaderFactory: uploaderFactory,
		onEvent:         onEvent,
		logger:          log.WithComponent("registry"),
	}
}

// Admit routes an uploaded segment to the session for streamKey, creating
// one on first contact, and rotating to a fresh one when required.
func (r *Registry) Admit(ctx context.Context, streamKey string, req session.AdmitRequest) (session.AdmitResult, error) {
	target, retiring, err := r.resolve(streamKey, req)
	if err != nil {
		return session.AdmitResult{}, err
	}

	if retiring != nil {
		retiring.Finalize(ctx, relayerr.RSessionRotated)
		waitCtx, cancel := context.WithTimeout(ctx, time.Second)
		retiring.Wait(waitCtx)
		cancel()
	}

	return target.Admit(ctx, req)
}

// resolve returns the session that should receive req, creating or
// rotating under the registry lock, and the previous session to retire
// (nil if none).
func (r *Registry) resolve(streamKey string, req session.AdmitRequest) (*session.Session, *session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.sessions[streamKey]
	if !ok {
		sess, err := r.newSessionLocked(streamKey)
		if err != nil {
			return nil, nil, err
		}
		return sess, nil, nil
	}

	if req.SegmentType != session.Initialization {
		return existing, nil, nil
	}

	info := existing.Rotation()
	reset := req.Sequence <= info.LastWrittenSequence && info.MapWritten
	if !info.Finalized && !reset {
		return existing, nil, nil
	}

	sess, err := r.newSessionLocked(streamKey)
	if err != nil {
		return nil, nil, err
	}
	r.logger.Info().
		Str("event", "session.rotated").
		Str("stream_key", streamKey).
		Str("previous_session_id", existing.SessionID()).
		Str("session_id", sess.SessionID()).
		Bool("previous_finalized", info.Finalized).
		Msg("rotating to a new session")
	return sess, existing, nil
}

// newSessionLocked creates and maps a fresh session. Assumes mu held.
func (r *Registry) newSessionLocked(streamKey string) (*session.Session, error) {
	sessionID := r.nextSessionIDLocked(streamKey)
	dir := filepath.Join(r.baseDir, sessionID)

	sess, err := session.New(streamKey, sessionID, dir, r.cfg, r.uploaderFactory, r.remove, r.onEvent)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	r.sessions[streamKey] = sess
	return sess, nil
}

// nextSessionIDLocked forms a session_id as stream_key plus a wall-clock
// timestamp (spec.md §3). Uniqueness for the process lifetime is required
// (spec.md §3): if a rotation lands within the same second as the previous
// one, a disambiguating suffix is appended. Assumes mu held.
func (r *Registry) nextSessionIDLocked(streamKey string) string {
	base := streamKey + "_" + time.Now().Format("20060102_150405")
	if base == r.lastSessionBase {
		r.lastSessionSeq++
		return fmt.Sprintf("%s_%d", base, r.lastSessionSeq)
	}
	r.lastSessionBase = base
	r.lastSessionSeq = 0
	return base
}

// remove drops streamKey's mapping if, and only if, it still points at
// sess — guarding against a finalize callback racing a rotation that has
// already replaced the mapping (spec.md §4.3).
func (r *Registry) remove(sess *session.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.sessions[sess.StreamKey()]; ok && cur.SessionID() == sess.SessionID() {
		delete(r.sessions, sess.StreamKey())
	}
}

// Get returns the currently mapped session for streamKey, if any.
func (r *Registry) Get(streamKey string) (*session.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[streamKey]
	return sess, ok
}

// List returns a snapshot of every active session, for the status page and
// relayctl.
func (r *Registry) List() []session.Snapshot {
	r.mu.Lock()
	sessions := make([]*session.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	out := make([]session.Snapshot, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Snapshot())
	}
	return out
}

// ForceFinalize finalizes the session mapped to streamKey, if any, for
// operator use via relayctl.
func (r *Registry) ForceFinalize(ctx context.Context, streamKey string) error {
	sess, ok := r.Get(streamKey)
	if !ok {
		return fmt.Errorf("no active session for stream key %q", streamKey)
	}
	sess.Finalize(ctx, relayerr.RFinalized)
	return nil
}

// UploaderLogs returns the recent uploader output for streamKey's active
// session, for operator use via relayctl.
func (r *Registry) UploaderLogs(streamKey string) ([]string, error) {
	sess, ok := r.Get(streamKey)
	if !ok {
		return nil, fmt.Errorf("no active session for stream key %q", streamKey)
	}
	return sess.UploaderLogs(), nil
}
