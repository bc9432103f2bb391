// Package uploader supervises the per-session ffmpeg child that relays a
// local event playlist to a platform ingest (an HLS upload for youtube, an
// RTMP push for twitch; spec.md §4.4): command
// construction, process spawn, merged stdout/stderr log pump, and
// graceful-then-forced termination.
package uploader

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Roenbaeck/hls-relay/internal/config"
)

// Supervisor implements session.Uploader for one child process lifetime.
// A new Supervisor is created for every Start — it is not reused across
// restarts, matching the teacher's per-handle process map in
// infrastructure/media/ffmpeg, simplified to one process per instance
// since each session owns exactly one uploader child at a time.
type Supervisor struct {
	cfg       config.Config
	logger    zerolog.Logger
	sessionID string
	streamKey string
	dir       string

	mu         sync.Mutex
	cmd        *exec.Cmd
	started    bool
	exited     bool
	exitCode   int
	exitSignal string
	pumpDone   chan struct{}
	logLines   []string
}

// maxLogLines bounds the in-memory tail of uploader output kept for
// relayctl's log inspection, so a long-running stream can't grow this
// unbounded.
const maxLogLines = 200

// New returns a Supervisor for sessionID/streamKey. dir is the session's
// segment directory, kept for parity with the rest of the session wiring
// even though the child now pulls its playlist over the loopback HTTP
// surface rather than reading it from disk directly.
func New(cfg config.Config, logger zerolog.Logger, sessionID, streamKey, dir string) *Supervisor {
	return &Supervisor{
		cfg:       cfg,
		logger:    logger.With().Str("session_id", sessionID).Str("stream_key", streamKey).Logger(),
		sessionID: sessionID,
		streamKey: streamKey,
		dir:       dir,
	}
}

// Start spawns the ffmpeg child. Spawning is fast (cmd.Start does not wait
// for exit), so this is safe to call while the session lock is held.
func (u *Supervisor) Start(ctx context.Context, target string, startIndex *int) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	playlistURL := fmt.Sprintf("http://%s/segments/%s/playlist.m3u8", u.cfg.LoopbackAddr, u.sessionID)
	args, err := buildArgs(playlistURL, u.streamKey, target, startIndex)
	if err != nil {
		return err
	}

	bin := u.cfg.UploaderBinPath
	cmd := exec.CommandContext(context.Background(), bin, args...) // #nosec G204 -- bin/args built from validated config + internal target parser

	r, w, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("create log pipe: %w", err)
	}
	cmd.Stdout = w
	cmd.Stderr = w

	if err := cmd.Start(); err != nil {
		_ = r.Close()
		_ = w.Close()
		return fmt.Errorf("start uploader: %w", err)
	}
	_ = w.Close()

	u.cmd = cmd
	u.started = true
	u.exited = false
	u.pumpDone = make(chan struct{})
	go u.pumpLog(r)
	go u.awaitExit(cmd)

	u.logger.Info().
		Str("event", "uploader.spawned").
		Int("pid", cmd.Process.Pid).
		Str("target", target).
		Msg("uploader process started")
	return nil
}

func (u *Supervisor) pumpLog(r *os.File) {
	defer close(u.pumpDone)
	defer r.Close()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		u.logger.Debug().Str("event", "uploader.output").Msg(line)
		u.appendLogLine(line)
	}
}

func (u *Supervisor) appendLogLine(line string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.logLines = append(u.logLines, line)
	if overflow := len(u.logLines) - maxLogLines; overflow > 0 {
		u.logLines = u.logLines[overflow:]
	}
}

// Logs returns the most recent lines of merged stdout/stderr output.
func (u *Supervisor) Logs() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.logLines...)
}

func (u *Supervisor) awaitExit(cmd *exec.Cmd) {
	err := cmd.Wait()
	u.mu.Lock()
	defer u.mu.Unlock()
	u.exited = true
	u.exitCode = cmd.ProcessState.ExitCode()
	u.exitSignal = ""
	if err != nil {
		if ws, ok := cmd.ProcessState.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			u.exitSignal = ws.Signal().String()
		}
	}
}

// Running reports whether the child is believed to still be alive.
func (u *Supervisor) Running() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.started && !u.exited
}

// Exited reports the most recently observed exit, if any.
func (u *Supervisor) Exited() (bool, int, string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.exited, u.exitCode, u.exitSignal
}

// Stop signals graceful termination (SIGTERM) and waits up to
// UploaderGracefulWait before sending SIGKILL. Idempotent: a second call
// after the child has already exited is a no-op.
func (u *Supervisor) Stop(ctx context.Context) {
	u.mu.Lock()
	cmd := u.cmd
	alreadyExited := u.exited
	pumpDone := u.pumpDone
	u.mu.Unlock()

	if cmd == nil || alreadyExited {
		return
	}

	_ = cmd.Process.Signal(syscall.SIGTERM)

	deadline := u.cfg.UploaderGracefulWait
	if deadline <= 0 {
		deadline = 5 * time.Second
	}

	timer := time.NewTimer(deadline)
	defer timer.Stop()
	select {
	case <-u.exitSignalled():
	case <-timer.C:
		u.logger.Warn().Str("event", "uploader.kill_timeout").Msg("graceful shutdown timed out, sending SIGKILL")
		_ = cmd.Process.Kill()
		<-u.exitSignalled()
	}

	if pumpDone != nil {
		<-pumpDone
	}
}

// exitSignalled returns a channel that closes once awaitExit has recorded
// the child's exit, polling briefly since awaitExit has no dedicated
// notification channel of its own.
func (u *Supervisor) exitSignalled() <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			u.mu.Lock()
			exited := u.exited
			u.mu.Unlock()
			if exited {
				return
			}
			time.Sleep(20 * time.Millisecond)
		}
	}()
	return done
}
