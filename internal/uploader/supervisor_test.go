package uploader

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Roenbaeck/hls-relay/internal/config"
)

// writeFakeUploaderScript writes a shell script that ignores its arguments
// and either sleeps or exits immediately, standing in for ffmpeg so these
// tests don't depend on a real ffmpeg binary being installed.
func writeFakeUploaderScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-uploader.sh")
	script := "#!/bin/sh\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func testConfig(bin string) config.Config {
	cfg := config.Defaults()
	cfg.UploaderBinPath = bin
	cfg.UploaderGracefulWait = 200 * time.Millisecond
	return cfg
}

func TestSupervisor_StartRunningStop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	bin := writeFakeUploaderScript(t, "sleep 30")
	sup := New(testConfig(bin), zerolog.New(io.Discard), "sess1", "stream1", t.TempDir())

	require.NoError(t, sup.Start(context.Background(), "youtube", nil))
	assert.Eventually(t, sup.Running, time.Second, 10*time.Millisecond)

	sup.Stop(context.Background())
	assert.False(t, sup.Running())

	happened, _, _ := sup.Exited()
	assert.True(t, happened)
}

func TestSupervisor_Exited_ReportsNonZeroExit(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	bin := writeFakeUploaderScript(t, "exit 3")
	sup := New(testConfig(bin), zerolog.New(io.Discard), "sess2", "stream2", t.TempDir())

	require.NoError(t, sup.Start(context.Background(), "twitch", nil))

	require.Eventually(t, func() bool {
		happened, _, _ := sup.Exited()
		return happened
	}, time.Second, 10*time.Millisecond)

	happened, code, _ := sup.Exited()
	assert.True(t, happened)
	assert.Equal(t, 3, code)
	assert.False(t, sup.Running())
}

func TestSupervisor_Stop_IsIdempotentAfterExit(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	bin := writeFakeUploaderScript(t, "exit 0")
	sup := New(testConfig(bin), zerolog.New(io.Discard), "sess3", "stream3", t.TempDir())
	require.NoError(t, sup.Start(context.Background(), "youtube", nil))

	require.Eventually(t, func() bool {
		happened, _, _ := sup.Exited()
		return happened
	}, time.Second, 10*time.Millisecond)

	sup.Stop(context.Background())
	sup.Stop(context.Background())
}

func TestSupervisor_Logs_CapturesOutput(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	bin := writeFakeUploaderScript(t, "echo hello-from-uploader")
	sup := New(testConfig(bin), zerolog.New(io.Discard), "sess4", "stream4", t.TempDir())
	require.NoError(t, sup.Start(context.Background(), "youtube", nil))

	require.Eventually(t, func() bool {
		happened, _, _ := sup.Exited()
		return happened
	}, time.Second, 10*time.Millisecond)
	sup.Stop(context.Background())

	assert.Contains(t, sup.Logs(), "hello-from-uploader")
}

func TestSupervisor_Start_RejectsUnsupportedTarget(t *testing.T) {
	sup := New(testConfig("sh"), zerolog.New(io.Discard), "sess5", "stream5", t.TempDir())
	err := sup.Start(context.Background(), "facebook", nil)
	assert.Error(t, err)
	assert.False(t, sup.Running())
}
