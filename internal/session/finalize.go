package session

import (
	"context"
	"time"

	"github.com/Roenbaeck/hls-relay/internal/relayerr"
)

// finalizeLockedCore performs the one-way transition to finalized: appends
// ENDLIST, records the event, and detaches the uploader handle so the
// caller can stop it without holding mu. Assumes mu held. Returns nil if
// the session was already finalized (no-op).
func (s *Session) finalizeLockedCore(reason relayerr.Reason) Uploader {
	if s.finalized {
		return nil
	}
	s.finalized = true
	if err := s.writer.AppendEndlist(); err != nil {
		s.recordEventLocked(relayerr.RWriteFailed, "endlist append failed: "+err.Error())
	}
	s.recordEventLocked(reason, "session finalized")
	u := s.uploader
	s.uploader = nil
	return u
}

// completeFinalization stops the detached uploader (if any), cancels the
// background context so the stall watcher exits, and notifies the registry.
// Must be called without mu held.
func (s *Session) completeFinalization(ctx context.Context, u Uploader) {
	if u != nil {
		u.Stop(ctx)
	}
	s.bgCancel()
	if s.onFinalize != nil {
		s.onFinalize(s)
	}
}

// Finalize is the externally-triggered finalize path: used by the registry
// when retiring a session during rotation and for an operator
// force-finalize. Idempotent.
func (s *Session) Finalize(ctx context.Context, reason relayerr.Reason) {
	s.mu.Lock()
	u := s.finalizeLockedCore(reason)
	s.mu.Unlock()
	if u == nil {
		return
	}
	s.completeFinalization(ctx, u)
}

// Wait blocks until the session's background goroutines (currently just the
// stall watcher) have exited, or ctx is done, whichever first. Best-effort:
// callers (registry retire) bound this with a short deadline.
func (s *Session) Wait(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		_ = s.bg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// ensureStallWatcher lazily starts the background stall-detection goroutine.
// Idempotent: safe to call on every admit.
func (s *Session) ensureStallWatcher() {
	s.stallOn.Do(func() {
		s.bg.Go(func() error {
			s.runStallWatcher()
			return nil
		})
	})
}

func (s *Session) runStallWatcher() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-s.bgCtx.Done():
			return
		case <-ticker.C:
			if s.checkStallTick() {
				return
			}
		}
	}
}

// checkStallTick evaluates whether the session has gone silent past
// MISSING_SEGMENT_TIMEOUT — no admit received, or the playlist cursor
// stuck behind a permanent gap — and finalizes it if so (spec.md §4.7).
// Returns true once the watcher should stop (finalized by any means).
func (s *Session) checkStallTick() bool {
	s.mu.Lock()
	if s.finalized {
		s.mu.Unlock()
		return true
	}
	timeout := s.cfg.MissingSegmentTimeout
	stalled := timeout > 0 && (time.Since(s.lastUploadTime) > timeout || time.Since(s.lastPlaylistAdvanceTime) > timeout)
	var u Uploader
	if stalled {
		u = s.finalizeLockedCore(relayerr.RStalled)
	}
	s.mu.Unlock()

	if !stalled {
		return false
	}
	if u != nil {
		u.Stop(context.Background())
	}
	if s.onFinalize != nil {
		s.onFinalize(s)
	}
	return true
}
