package httpapi

import (
	"io"
	"net/http"
	"strconv"

	"github.com/Roenbaeck/hls-relay/internal/fsutil"
	"github.com/Roenbaeck/hls-relay/internal/log"
	"github.com/Roenbaeck/hls-relay/internal/metrics"
	"github.com/Roenbaeck/hls-relay/internal/relayerr"
	"github.com/Roenbaeck/hls-relay/internal/session"
)

// Header names the ingest side reads, per spec.md §4.6.
const (
	headerSegmentType   = "Segment-Type"
	headerSequence      = "Sequence"
	headerDuration      = "Duration"
	headerDiscontinuity = "Discontinuity"
	headerTarget        = "Target"
	headerStreamKey     = "Stream-Key"
)

const maxSegmentBodyBytes = 64 << 20 // 64MiB, generous for a single fMP4 segment

func (s *Server) handleUploadSegment(w http.ResponseWriter, r *http.Request) {
	logger := log.FromContext(r.Context())

	streamKey := r.Header.Get(headerStreamKey)
	if !fsutil.IsSafeIdentifier(streamKey) {
		metrics.RecordReject(string(relayerr.RBadRequest))
		respondError(w, r, http.StatusBadRequest, "bad_request", "missing or invalid "+headerStreamKey)
		return
	}

	segType, err := parseSegmentType(r.Header.Get(headerSegmentType))
	if err != nil {
		metrics.RecordReject(string(relayerr.RBadRequest))
		respondError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	req := session.AdmitRequest{
		SegmentType: segType,
		Target:      r.Header.Get(headerTarget),
	}

	if segType != session.Finalization {
		seq, err := strconv.Atoi(r.Header.Get(headerSequence))
		if err != nil {
			metrics.RecordReject(string(relayerr.RBadRequest))
			respondError(w, r, http.StatusBadRequest, "bad_request", "invalid "+headerSequence)
			return
		}
		req.Sequence = seq

		if segType == session.Media {
			dur, err := strconv.ParseFloat(r.Header.Get(headerDuration), 64)
			if err != nil || dur <= 0 {
				metrics.RecordReject(string(relayerr.RZeroDuration))
				respondError(w, r, http.StatusBadRequest, "bad_request", "invalid or zero "+headerDuration)
				return
			}
			req.Duration = dur
			req.Discontinuity = r.Header.Get(headerDiscontinuity) == "true"
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxSegmentBodyBytes+1))
		if err != nil {
			respondError(w, r, http.StatusBadRequest, "bad_request", "failed to read body")
			return
		}
		if len(body) > maxSegmentBodyBytes {
			respondError(w, r, http.StatusRequestEntityTooLarge, "bad_request", "segment body too large")
			return
		}
		req.Body = body
	}

	result, err := s.registry.Admit(r.Context(), streamKey, req)
	if err != nil {
		logger.Error().Str("event", "ingest.admit_failed").Err(err).Msg("admit failed")
		metrics.RecordReject(string(relayerr.RWriteFailed))
		respondError(w, r, http.StatusInternalServerError, "write_failed", "failed to admit segment")
		return
	}

	metrics.RecordAdmit(segmentTypeLabel(segType))

	switch result.Outcome {
	case session.OutcomeAccepted:
		w.WriteHeader(http.StatusNoContent)
	case session.OutcomeStale:
		w.WriteHeader(http.StatusOK) // accepted-but-ignored: already-seen sequence
	case session.OutcomeRejectedFinalized:
		respondError(w, r, http.StatusGone, "finalized", "session already finalized")
	}
}

func parseSegmentType(v string) (session.SegmentType, error) {
	switch v {
	case "Initialization":
		return session.Initialization, nil
	case "Media":
		return session.Media, nil
	case "Finalization":
		return session.Finalization, nil
	default:
		return 0, errInvalidSegmentType(v)
	}
}

type errInvalidSegmentType string

func (e errInvalidSegmentType) Error() string {
	return "invalid " + headerSegmentType + ": " + string(e)
}

func segmentTypeLabel(t session.SegmentType) string {
	switch t {
	case session.Initialization:
		return "init"
	case session.Media:
		return "media"
	case session.Finalization:
		return "final"
	default:
		return "unknown"
	}
}
