package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordAdmit_IncrementsLabeledCounter(t *testing.T) {
	before := testutil.ToFloat64(SegmentsAdmittedTotal.WithLabelValues("media"))
	RecordAdmit("media")
	after := testutil.ToFloat64(SegmentsAdmittedTotal.WithLabelValues("media"))
	assert.Equal(t, before+1, after)
}

func TestRecordReject_IncrementsLabeledCounter(t *testing.T) {
	before := testutil.ToFloat64(SegmentsRejectedTotal.WithLabelValues("bad_request"))
	RecordReject("bad_request")
	after := testutil.ToFloat64(SegmentsRejectedTotal.WithLabelValues("bad_request"))
	assert.Equal(t, before+1, after)
}

func TestRecordFinalized_IncrementsLabeledCounter(t *testing.T) {
	before := testutil.ToFloat64(SessionsFinalizedTotal.WithLabelValues("stalled"))
	RecordFinalized("stalled")
	after := testutil.ToFloat64(SessionsFinalizedTotal.WithLabelValues("stalled"))
	assert.Equal(t, before+1, after)
}

func TestObserveSegmentWrite_DoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() { ObserveSegmentWrite("init", 0.05) })
}
