// Package metrics provides Prometheus metrics for the relay's ingest,
// playlist, and uploader subsystems.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SegmentsAdmittedTotal counts admitted segments by type (init/media/final).
	SegmentsAdmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hls_relay_segments_admitted_total",
		Help: "Total number of segments admitted, by segment type.",
	}, []string{"type"})

	// SegmentsRejectedTotal counts rejected admits by reason.
	SegmentsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hls_relay_segments_rejected_total",
		Help: "Total number of rejected admits, by reason.",
	}, []string{"reason"})

	// GapSkipsTotal counts gap-skip events.
	GapSkipsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hls_relay_gap_skips_total",
		Help: "Total number of gap-skip events across all sessions.",
	})

	// SessionsRotatedTotal counts session rotations.
	SessionsRotatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hls_relay_sessions_rotated_total",
		Help: "Total number of session rotations.",
	})

	// SessionsFinalizedTotal counts finalizations, by reason.
	SessionsFinalizedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hls_relay_sessions_finalized_total",
		Help: "Total number of session finalizations, by reason.",
	}, []string{"reason"})

	// UploaderRestartsTotal counts uploader restarts.
	UploaderRestartsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hls_relay_uploader_restarts_total",
		Help: "Total number of uploader child restarts across all sessions.",
	})

	// ActiveSessions tracks the number of currently mapped sessions.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hls_relay_active_sessions",
		Help: "Current number of sessions mapped in the registry.",
	})

	// SegmentWriteDuration observes how long a segment body write takes.
	SegmentWriteDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hls_relay_segment_write_duration_seconds",
		Help:    "Time spent writing a segment body to disk.",
		Buckets: prometheus.DefBuckets,
	}, []string{"type"})
)

// RecordAdmit increments the admitted-segment counter for segType.
func RecordAdmit(segType string) {
	SegmentsAdmittedTotal.WithLabelValues(segType).Inc()
}

// RecordReject increments the rejected-admit counter for reason.
func RecordReject(reason string) {
	SegmentsRejectedTotal.WithLabelValues(reason).Inc()
}

// RecordFinalized increments the finalization counter for reason.
func RecordFinalized(reason string) {
	SessionsFinalizedTotal.WithLabelValues(reason).Inc()
}

// ObserveSegmentWrite records how long writing a segment body of segType took.
func ObserveSegmentWrite(segType string, seconds float64) {
	SegmentWriteDuration.WithLabelValues(segType).Observe(seconds)
}
