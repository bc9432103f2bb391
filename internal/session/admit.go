package session

import (
	"context"
	"fmt"
	"time"

	"github.com/Roenbaeck/hls-relay/internal/config"
	"github.com/Roenbaeck/hls-relay/internal/relayerr"
)

// Admit processes one uploaded segment end to end: persist the body,
// update the state machine under the session lock, then — outside the
// lock — start, restart, or stop the uploader child as the policy in
// spec.md §4.4 dictates.
func (s *Session) Admit(ctx context.Context, req AdmitRequest) (AdmitResult, error) {
	isInit := req.SegmentType == Initialization

	s.mu.Lock()
	period := s.periodIndex
	if isInit && s.mapWritten {
		// A later init opens the next period; name it after that period.
		period++
	}
	s.mu.Unlock()

	var filename string
	if req.SegmentType != Finalization {
		uploadStart := time.Now()
		fn, err := s.store.Write(period, req.Sequence, isInit, req.Body)
		if err != nil {
			return AdmitResult{}, fmt.Errorf("persist segment: %w", err)
		}
		filename = fn
		s.mu.Lock()
		s.recordUploadSampleLocked(time.Since(uploadStart).Seconds())
		s.mu.Unlock()
	}

	s.mu.Lock()
	if s.finalized {
		s.mu.Unlock()
		return AdmitResult{Outcome: OutcomeRejectedFinalized}, nil
	}
	s.lastUploadTime = time.Now()

	switch req.SegmentType {
	case Initialization:
		s.admitInitLocked(filename, req.Sequence)
	case Media:
		if req.Sequence <= s.lastWrittenSequence {
			s.recordEventLocked(relayerr.RStaleSegment, "stale sequence "+itoa(req.Sequence))
			s.mu.Unlock()
			return AdmitResult{Outcome: OutcomeStale}, nil
		}
		s.pending[req.Sequence] = pendingSegment{
			filename:      filename,
			duration:      req.Duration,
			discontinuity: req.Discontinuity,
		}
	case Finalization:
		s.finalAwait = true
	}

	s.drainLocked()

	var finalizedUploader Uploader
	if s.finalAwait && s.pendingDrainedLocked() {
		finalizedUploader = s.finalizeLockedCore(relayerr.RFinalized)
	}

	var plan uploaderPlan
	if finalizedUploader == nil && !s.finalized {
		plan = s.planUploaderLocked(req.Target)
	}
	s.mu.Unlock()

	if finalizedUploader != nil {
		s.completeFinalization(ctx, finalizedUploader)
		return AdmitResult{Outcome: OutcomeAccepted}, nil
	}

	s.applyUploaderPlan(ctx, plan)
	s.ensureStallWatcher()
	return AdmitResult{Outcome: OutcomeAccepted}, nil
}

// admitInitLocked handles an initialization segment: either the session's
// first (writing the playlist header) or a later one (a same-session period
// switch, spec.md §4.5 — never a rotation, which the registry handles by
// creating a new session entirely). Assumes mu held.
func (s *Session) admitInitLocked(filename string, sequence int) {
	if !s.mapWritten {
		if err := s.writer.WriteHeader(sequence, filename); err != nil {
			s.recordEventLocked(relayerr.RWriteFailed, "header write failed: "+err.Error())
			return
		}
		s.mapWritten = true
		s.lastWrittenSequence = sequence - 1
		return
	}

	s.periodIndex++
	if err := s.writer.AppendNewPeriod(filename); err != nil {
		s.recordEventLocked(relayerr.RWriteFailed, "new period append failed: "+err.Error())
		return
	}
	s.recordEventLocked(relayerr.RNewPeriod, fmt.Sprintf("period %d", s.periodIndex))
}

// pendingDrainedLocked reports whether the pending queue has been fully
// written out — the condition under which a finalize request (Finalization
// marker) may actually take effect. Assumes mu held.
func (s *Session) pendingDrainedLocked() bool {
	return len(s.pending) == 0
}

type uploaderAction int

const (
	actionNone uploaderAction = iota
	actionStart
	actionRestart
)

type uploaderPlan struct {
	action     uploaderAction
	target     string
	startIndex *int
	stopOld    Uploader
}

// planUploaderLocked evaluates the uploader policy (spec.md §4.4): start
// at playlist index 0 once SEGMENTS_BEFORE_RELAY media segments have been
// written, restart at the live edge if the child has exited, and apply
// TARGET_MISMATCH_POLICY when an admit presents a different target than
// the running child. Assumes mu held; never blocks.
func (s *Session) planUploaderLocked(target string) uploaderPlan {
	if s.uploader == nil {
		if s.target == "" {
			s.target = target
		}
		if s.writtenMediaCount < s.cfg.SegmentsBeforeRelay {
			return uploaderPlan{action: actionNone}
		}
		startAtZero := 0
		return uploaderPlan{action: actionStart, target: s.target, startIndex: &startAtZero}
	}

	if target != "" && s.target != "" && target != s.target {
		if s.cfg.TargetMismatchPolicy != config.TargetMismatchRestart {
			s.recordEventLocked(relayerr.RUnsupportedTarget, "target mismatch ignored: "+target)
			return uploaderPlan{action: actionNone}
		}
		old := s.uploader
		s.uploader = nil
		s.target = target
		return uploaderPlan{action: actionRestart, target: target, stopOld: old}
	}

	if happened, code, sig := s.uploader.Exited(); happened {
		s.recordEventLocked(relayerr.RUploaderExited, fmt.Sprintf("exit code=%d signal=%q", code, sig))
		s.uploader = nil
		return uploaderPlan{action: actionRestart, target: s.target}
	}

	return uploaderPlan{action: actionNone}
}

// applyUploaderPlan executes what planUploaderLocked decided, outside the
// session lock: stopping a superseded child (a blocking, up-to-5s
// operation) and spawning the new one.
func (s *Session) applyUploaderPlan(ctx context.Context, plan uploaderPlan) {
	if plan.stopOld != nil {
		plan.stopOld.Stop(ctx)
	}
	switch plan.action {
	case actionStart:
		u := s.uploaderFactory(s.sessionID, s.streamKey)
		if err := u.Start(ctx, plan.target, plan.startIndex); err != nil {
			s.mu.Lock()
			s.recordEventLocked(relayerr.RWriteFailed, "uploader start failed: "+err.Error())
			s.mu.Unlock()
			return
		}
		s.mu.Lock()
		s.uploader = u
		s.recordEventLocked(relayerr.RUploaderStarted, "uploader started for "+plan.target)
		s.mu.Unlock()
	case actionRestart:
		u := s.uploaderFactory(s.sessionID, s.streamKey)
		if err := u.Start(ctx, plan.target, plan.startIndex); err != nil {
			s.mu.Lock()
			s.recordEventLocked(relayerr.RWriteFailed, "uploader restart failed: "+err.Error())
			s.mu.Unlock()
			return
		}
		s.mu.Lock()
		s.uploader = u
		s.recordEventLocked(relayerr.RUploaderRestarted, "uploader restarted for "+plan.target)
		s.mu.Unlock()
	case actionNone:
	}
}
