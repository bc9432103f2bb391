package session

import (
	"time"

	"github.com/Roenbaeck/hls-relay/internal/relayerr"
)

// drainLocked writes every contiguous pending media segment starting at
// last_written_sequence+1, matching spec.md §4.3's ordered-write cursor. On
// a gap (the next sequence not yet present) it arms gap_wait; if the gap is
// still open after GAP_SKIP_TIMEOUT, it skips forward to the lowest
// higher-numbered pending sequence, marking that write as a discontinuity.
// Assumes mu held.
func (s *Session) drainLocked() {
	for {
		next := s.lastWrittenSequence + 1
		if seg, ok := s.pending[next]; ok {
			delete(s.pending, next)
			withDisc := seg.discontinuity || s.forceDiscontinuity
			s.forceDiscontinuity = false
			s.writeMediaLocked(next, seg, withDisc)
			continue
		}

		if len(s.pending) == 0 {
			return
		}

		if s.gapWaitSequence != next {
			s.gapWaitSequence = next
			s.gapWaitStart = time.Now()
			s.recordEventLocked(relayerr.RGapArmed, "gap armed at sequence "+itoa(next))
			return
		}

		if time.Since(s.gapWaitStart) < s.cfg.GapSkipTimeout {
			return
		}

		skipTo, ok := s.lowestPendingAboveLocked(next)
		if !ok {
			return
		}
		s.recordEventLocked(relayerr.RGapSkipped, "skipped sequences "+itoa(next)+"-"+itoa(skipTo-1))
		s.lastWrittenSequence = skipTo - 1
		s.gapWaitSequence = -1
		s.forceDiscontinuity = true
	}
}

// lowestPendingAboveLocked returns the smallest pending sequence number
// strictly greater than the given one, for gap-skip target selection.
// Assumes mu held.
func (s *Session) lowestPendingAboveLocked(above int) (int, bool) {
	found := false
	min := 0
	for seq := range s.pending {
		if seq <= above {
			continue
		}
		if !found || seq < min {
			min = seq
			found = true
		}
	}
	return min, found
}

// writeMediaLocked appends one media entry to the playlist and advances the
// write cursor. Assumes mu held.
func (s *Session) writeMediaLocked(seq int, seg pendingSegment, withDiscontinuity bool) {
	if err := s.writer.AppendMedia(seg.filename, seg.duration, withDiscontinuity); err != nil {
		s.recordEventLocked(relayerr.RWriteFailed, "media append failed: "+err.Error())
		return
	}
	s.lastWrittenSequence = seq
	s.writtenMediaCount++
	s.lastPlaylistAdvanceTime = time.Now()
	if s.gapWaitSequence == seq {
		s.gapWaitSequence = -1
	}
}

func itoa(n int) string {
	if n < 0 {
		return "-" + itoa(-n)
	}
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
