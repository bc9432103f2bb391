package session

import (
	"time"

	"github.com/Roenbaeck/hls-relay/internal/relayerr"
)

// recordEventLocked appends a bounded history entry. Assumes mu held.
func (s *Session) recordEventLocked(reason relayerr.Reason, message string) {
	ev := Event{Time: time.Now(), Reason: reason, Message: message}
	s.events = append(s.events, ev)
	if max := s.cfg.MaxEventHistory; max > 0 && len(s.events) > max {
		s.events = s.events[len(s.events)-max:]
	}
	if s.onEvent != nil {
		s.onEvent(s.streamKey, s.sessionID, ev)
	}
}

// Events returns a copy of the bounded event history.
func (s *Session) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// UploaderLogs returns the current uploader's recent output lines, or nil
// if no uploader has started yet.
func (s *Session) UploaderLogs() []string {
	s.mu.Lock()
	u := s.uploader
	s.mu.Unlock()
	if u == nil {
		return nil
	}
	return u.Logs()
}

// recordUploadSampleLocked records an upload-duration observation and
// trims samples outside the utilization window. Assumes mu held.
func (s *Session) recordUploadSampleLocked(seconds float64) {
	now := time.Now()
	s.uploadDurations = append(s.uploadDurations, durationSample{at: now, seconds: seconds})
	s.trimUploadSamplesLocked(now)
}

func (s *Session) trimUploadSamplesLocked(now time.Time) {
	window := s.cfg.UploadUtilWindow
	if window <= 0 {
		return
	}
	cutoff := now.Add(-window)
	i := 0
	for i < len(s.uploadDurations) && s.uploadDurations[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		s.uploadDurations = s.uploadDurations[i:]
	}
}

// UploadUtilization returns the sum of upload durations observed within the
// configured rolling window, divided by the window length: the fraction of
// wall-clock time spent writing segment bodies to disk.
func (s *Session) UploadUtilization() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.trimUploadSamplesLocked(now)
	window := s.cfg.UploadUtilWindow
	if window <= 0 || len(s.uploadDurations) == 0 {
		return 0
	}
	var total float64
	for _, d := range s.uploadDurations {
		total += d.seconds
	}
	return total / window.Seconds()
}
