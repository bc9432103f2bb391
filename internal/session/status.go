package session

import "time"

// Snapshot is a read-only view of session state for the status page and
// the relayctl CLI; never mutated by callers.
type Snapshot struct {
	StreamKey           string    `json:"stream_key"`
	SessionID           string    `json:"session_id"`
	Dir                 string    `json:"dir"`
	Finalized           bool      `json:"finalized"`
	PeriodIndex         int       `json:"period_index"`
	WrittenMediaCount   int       `json:"written_media_count"`
	LastWrittenSequence int       `json:"last_written_sequence"`
	PendingCount        int       `json:"pending_count"`
	GapArmed            bool      `json:"gap_armed"`
	Target              string    `json:"target"`
	UploaderRunning     bool      `json:"uploader_running"`
	UploadUtilization   float64   `json:"upload_utilization"`
	CreatedAt           time.Time `json:"created_at"`
	LastUploadTime      time.Time `json:"last_upload_time"`
	Events              []Event   `json:"events"`
}

// Snapshot returns a consistent point-in-time view of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	running := s.uploader != nil && s.uploader.Running()
	snap := Snapshot{
		StreamKey:           s.streamKey,
		SessionID:           s.sessionID,
		Dir:                 s.dir,
		Finalized:           s.finalized,
		PeriodIndex:         s.periodIndex,
		WrittenMediaCount:   s.writtenMediaCount,
		LastWrittenSequence: s.lastWrittenSequence,
		PendingCount:        len(s.pending),
		GapArmed:            s.gapWaitSequence >= 0,
		Target:              s.target,
		UploaderRunning:     running,
		CreatedAt:           s.createdAt,
		LastUploadTime:      s.lastUploadTime,
		Events:              append([]Event(nil), s.events...),
	}
	s.mu.Unlock()
	snap.UploadUtilization = s.UploadUtilization()
	return snap
}
