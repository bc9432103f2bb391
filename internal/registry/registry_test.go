package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Roenbaeck/hls-relay/internal/config"
	"github.com/Roenbaeck/hls-relay/internal/session"
)

type noopUploader struct{}

func (noopUploader) Start(context.Context, string, *int) error       { return nil }
func (noopUploader) Running() bool                                   { return false }
func (noopUploader) Exited() (bool, int, string)                     { return false, 0, "" }
func (noopUploader) Stop(context.Context)                            {}
func (noopUploader) Logs() []string                                  { return nil }

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	cfg := config.Defaults()
	cfg.SegmentsBeforeRelay = 100 // keep the uploader from starting in these tests
	return New(cfg, t.TempDir(), func(string, string) session.Uploader { return noopUploader{} }, func(string, string, session.Event) {})
}

func TestAdmit_CreatesSessionOnFirstContact(t *testing.T) {
	reg := testRegistry(t)
	ctx := context.Background()

	res, err := reg.Admit(ctx, "alpha", session.AdmitRequest{SegmentType: session.Initialization, Sequence: 0, Body: []byte("init")})
	require.NoError(t, err)
	assert.Equal(t, session.OutcomeAccepted, res.Outcome)

	sess, ok := reg.Get("alpha")
	require.True(t, ok)
	assert.Equal(t, "alpha", sess.StreamKey())
}

func TestAdmit_NonInitSegmentsRouteToExistingSession(t *testing.T) {
	reg := testRegistry(t)
	ctx := context.Background()

	_, err := reg.Admit(ctx, "alpha", session.AdmitRequest{SegmentType: session.Initialization, Sequence: 0, Body: []byte("init")})
	require.NoError(t, err)
	first, _ := reg.Get("alpha")

	_, err = reg.Admit(ctx, "alpha", session.AdmitRequest{SegmentType: session.Media, Sequence: 0, Duration: 2, Body: []byte("a")})
	require.NoError(t, err)

	second, _ := reg.Get("alpha")
	assert.Equal(t, first.SessionID(), second.SessionID())
}

func TestAdmit_SecondInitOnFreshSessionIsAPeriodSwitchNotRotation(t *testing.T) {
	reg := testRegistry(t)
	ctx := context.Background()

	_, err := reg.Admit(ctx, "alpha", session.AdmitRequest{SegmentType: session.Initialization, Sequence: 0, Body: []byte("init")})
	require.NoError(t, err)
	first, _ := reg.Get("alpha")

	// No media has been written yet (lastWrittenSequence == -1, unchanged),
	// so this second init is not a reset and must not rotate.
	_, err = reg.Admit(ctx, "alpha", session.AdmitRequest{SegmentType: session.Initialization, Sequence: 0, Body: []byte("init2")})
	require.NoError(t, err)

	second, _ := reg.Get("alpha")
	assert.Equal(t, first.SessionID(), second.SessionID())
}

func TestAdmit_EncoderResetTriggersRotation(t *testing.T) {
	reg := testRegistry(t)
	ctx := context.Background()

	_, err := reg.Admit(ctx, "alpha", session.AdmitRequest{SegmentType: session.Initialization, Sequence: 0, Body: []byte("init")})
	require.NoError(t, err)
	_, err = reg.Admit(ctx, "alpha", session.AdmitRequest{SegmentType: session.Media, Sequence: 0, Duration: 2, Body: []byte("a")})
	require.NoError(t, err)

	first, _ := reg.Get("alpha")
	assert.Equal(t, 0, first.Rotation().LastWrittenSequence)

	// A fresh init whose sequence is <= what's already been written, with
	// the map already written, means the encoder reset its own counters.
	_, err = reg.Admit(ctx, "alpha", session.AdmitRequest{SegmentType: session.Initialization, Sequence: 0, Body: []byte("init-reset")})
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, time.Second)
	first.Wait(waitCtx)
	cancel()

	second, _ := reg.Get("alpha")
	assert.NotEqual(t, first.SessionID(), second.SessionID(), "encoder reset must rotate to a fresh session")
}

func TestAdmit_FinalizedSessionRotatesOnNextInit(t *testing.T) {
	reg := testRegistry(t)
	ctx := context.Background()

	_, err := reg.Admit(ctx, "alpha", session.AdmitRequest{SegmentType: session.Initialization, Sequence: 0, Body: []byte("init")})
	require.NoError(t, err)
	first, _ := reg.Get("alpha")
	first.Finalize(ctx, "manual_test_finalize")

	waitCtx, cancel := context.WithTimeout(ctx, time.Second)
	first.Wait(waitCtx)
	cancel()

	_, err = reg.Admit(ctx, "alpha", session.AdmitRequest{SegmentType: session.Initialization, Sequence: 0, Body: []byte("init2")})
	require.NoError(t, err)

	second, ok := reg.Get("alpha")
	require.True(t, ok)
	assert.NotEqual(t, first.SessionID(), second.SessionID())
}

func TestList_ReturnsSnapshotsForAllStreams(t *testing.T) {
	reg := testRegistry(t)
	ctx := context.Background()

	_, err := reg.Admit(ctx, "alpha", session.AdmitRequest{SegmentType: session.Initialization, Sequence: 0, Body: []byte("init")})
	require.NoError(t, err)
	_, err = reg.Admit(ctx, "beta", session.AdmitRequest{SegmentType: session.Initialization, Sequence: 0, Body: []byte("init")})
	require.NoError(t, err)

	snaps := reg.List()
	assert.Len(t, snaps, 2)
}

func TestForceFinalize_UnknownStreamKeyErrors(t *testing.T) {
	reg := testRegistry(t)
	err := reg.ForceFinalize(context.Background(), "nonexistent")
	assert.Error(t, err)
}

func TestForceFinalize_FinalizesKnownSession(t *testing.T) {
	reg := testRegistry(t)
	ctx := context.Background()
	_, err := reg.Admit(ctx, "alpha", session.AdmitRequest{SegmentType: session.Initialization, Sequence: 0, Body: []byte("init")})
	require.NoError(t, err)

	require.NoError(t, reg.ForceFinalize(ctx, "alpha"))

	sess, ok := reg.Get("alpha")
	require.True(t, ok)
	assert.True(t, sess.IsFinalized())
}

func TestUploaderLogs_UnknownStreamKeyErrors(t *testing.T) {
	reg := testRegistry(t)
	_, err := reg.UploaderLogs("nonexistent")
	assert.Error(t, err)
}
