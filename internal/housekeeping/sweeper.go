// Package housekeeping runs a scheduled sweep that removes already
// -finalized sessions' on-disk directories past a retention window. It
// never touches a live session's directory or playlist — there is no
// retention window on the append-only playlist of an active stream
// (spec.md §1 Non-goals).
package housekeeping

import (
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/Roenbaeck/hls-relay/internal/registry"
	"github.com/Roenbaeck/hls-relay/internal/statusstore"
)

// Sweeper periodically deletes finalized session directories older than
// Retention, and statusstore records last persisted before the same cutoff.
type Sweeper struct {
	registry  *registry.Registry
	store     *statusstore.Store
	baseDir   string
	retention time.Duration
	logger    zerolog.Logger

	cron *cron.Cron
}

// New returns a Sweeper that has not yet started.
func New(reg *registry.Registry, store *statusstore.Store, baseDir string, retention time.Duration, logger zerolog.Logger) *Sweeper {
	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
	return &Sweeper{
		registry:  reg,
		store:     store,
		baseDir:   baseDir,
		retention: retention,
		logger:    logger,
		cron:      c,
	}
}

// Start registers the sweep on schedule and starts the cron scheduler.
func (s *Sweeper) Start(schedule string) error {
	_, err := s.cron.AddFunc(schedule, s.sweepOnce)
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the scheduler, waiting for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// sweepOnce removes every directory under baseDir whose modification time
// is older than the retention window and which does not belong to a session
// still mapped in the registry. Mapped sessions are never considered,
// regardless of age.
func (s *Sweeper) sweepOnce() {
	cutoff := time.Now().Add(-s.retention)

	snapshots := s.registry.List()
	live := make(map[string]bool, len(snapshots))
	for _, snap := range snapshots {
		live[snap.SessionID] = true
	}

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		s.logger.Warn().Str("event", "housekeeping.scan_failed").Err(err).Msg("failed to list segment base dir")
		return
	}

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() || live[entry.Name()] {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		dir := filepath.Join(s.baseDir, entry.Name())
		if err := os.RemoveAll(dir); err != nil {
			s.logger.Warn().Str("event", "housekeeping.remove_failed").Str("dir", dir).Err(err).Msg("failed to remove finalized session directory")
			continue
		}
		removed++
	}

	if s.store != nil {
		if n, err := s.store.DeleteOlderThan(cutoff); err != nil {
			s.logger.Warn().Str("event", "housekeeping.store_prune_failed").Err(err).Msg("failed to prune status store")
		} else if n > 0 {
			s.logger.Debug().Str("event", "housekeeping.store_pruned").Int("count", n).Msg("pruned stale status records")
		}
	}

	if removed > 0 {
		s.logger.Info().Str("event", "housekeeping.swept").Int("removed", removed).Msg("removed finalized session directories")
	}
}
