// Command relayd runs the live HLS relay daemon: it accepts uploaded
// fMP4 segments over HTTP, assembles a per-stream event playlist, and
// supervises an ffmpeg child that republishes the playlist to the target
// platform's ingest (HLS upload for youtube, RTMP for twitch).
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/Roenbaeck/hls-relay/internal/config"
	"github.com/Roenbaeck/hls-relay/internal/housekeeping"
	"github.com/Roenbaeck/hls-relay/internal/httpapi"
	"github.com/Roenbaeck/hls-relay/internal/log"
	"github.com/Roenbaeck/hls-relay/internal/metrics"
	"github.com/Roenbaeck/hls-relay/internal/registry"
	"github.com/Roenbaeck/hls-relay/internal/relayerr"
	"github.com/Roenbaeck/hls-relay/internal/session"
	"github.com/Roenbaeck/hls-relay/internal/statusstore"
	"github.com/Roenbaeck/hls-relay/internal/uploader"
)

var version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	log.Configure(log.Config{Level: "info", Service: "hls-relay", Version: version})
	logger := log.WithComponent("daemon")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Str("event", "config.load_failed").Msg("failed to load configuration")
	}
	log.Configure(log.Config{Level: cfg.LogLevel, Service: "hls-relay", Version: version})
	logger = log.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(cfg.BaseSegmentsDir, 0o755); err != nil {
		logger.Fatal().Err(err).Str("event", "startup.segments_dir_failed").Msg("cannot create segments directory")
	}

	store, err := statusstore.Open(cfg.StatusDBPath)
	if err != nil {
		logger.Fatal().Err(err).Str("event", "startup.statusstore_failed").Msg("cannot open status store")
	}
	defer store.Close()

	uploaderLogger := log.WithComponent("uploader")
	uploaderFactory := func(sessionID, streamKey string) session.Uploader {
		return uploader.New(cfg, uploaderLogger, sessionID, streamKey,
			fmt.Sprintf("%s/%s", cfg.BaseSegmentsDir, sessionID))
	}

	var reg *registry.Registry
	onEvent := func(streamKey, sessionID string, ev session.Event) {
		switch ev.Reason {
		case relayerr.RGapSkipped:
			metrics.GapSkipsTotal.Inc()
		case relayerr.RSessionRotated:
			metrics.SessionsRotatedTotal.Inc()
		case relayerr.RUploaderRestarted:
			metrics.UploaderRestartsTotal.Inc()
		case relayerr.RFinalized, relayerr.RStalled:
			metrics.RecordFinalized(string(ev.Reason))
		}
		// onEvent runs with the session's lock held, so the snapshot (which
		// takes that lock) is persisted from a separate goroutine.
		go func() {
			if sess, ok := reg.Get(streamKey); ok {
				if err := store.Put(sess.Snapshot()); err != nil {
					logger.Warn().Err(err).Str("event", "statusstore.put_failed").Str("session_id", sessionID).Msg("failed to persist session snapshot")
				}
			}
		}()
	}

	reg = registry.New(cfg, cfg.BaseSegmentsDir, uploaderFactory, onEvent)

	sweeper := housekeeping.New(reg, store, cfg.BaseSegmentsDir, cfg.FinalizedRetention, log.WithComponent("housekeeping"))
	if err := sweeper.Start(cfg.HousekeepingCronSchedule); err != nil {
		logger.Fatal().Err(err).Str("event", "startup.housekeeping_failed").Msg("cannot start housekeeping sweep")
	}
	defer sweeper.Stop()

	api := httpapi.New(cfg, reg, cfg.BaseSegmentsDir)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())

	servers := []*http.Server{
		{Addr: cfg.ListenAddr, Handler: api.IngestRouter()},
		{Addr: cfg.LoopbackAddr, Handler: api.LoopbackRouter()},
		{Addr: cfg.StatusAddr, Handler: api.StatusRouter()},
		{Addr: cfg.MetricsAddr, Handler: metricsMux},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		srv := srv
		g.Go(func() error {
			logger.Info().Str("event", "server.listening").Str("addr", srv.Addr).Msg("http server starting")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("server on %s: %w", srv.Addr, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn().Err(err).Str("event", "server.shutdown_failed").Str("addr", srv.Addr).Msg("graceful shutdown failed")
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Str("event", "daemon.exited_with_error").Msg("relayd exiting")
		os.Exit(1)
	}
	logger.Info().Str("event", "daemon.exited").Msg("relayd exiting cleanly")
}
