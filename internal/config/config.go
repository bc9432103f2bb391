package config

import (
	"fmt"
	"os"
	"time"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"

	"github.com/Roenbaeck/hls-relay/internal/log"
)

// TargetMismatchPolicy controls what happens when an admit presents a
// different uploader target than the one the running uploader was started
// with (spec.md §9, Open Question).
type TargetMismatchPolicy string

const (
	// TargetMismatchReject ignores the mismatched target for uploader-policy
	// purposes; the running uploader keeps relaying to its original target.
	TargetMismatchReject TargetMismatchPolicy = "reject"
	// TargetMismatchRestart tears down the running uploader and restarts it
	// against the newly observed target, at the live edge.
	TargetMismatchRestart TargetMismatchPolicy = "restart"
)

// Config holds every tunable named in spec.md §6, plus the ambient stack
// knobs (listen addresses, auth, logging).
type Config struct {
	ListenAddr      string `yaml:"listenAddr"`
	LoopbackAddr    string `yaml:"loopbackAddr"`
	StatusAddr      string `yaml:"statusAddr"`
	MetricsAddr     string `yaml:"metricsAddr"`
	BasicAuthUser   string `yaml:"-"`
	BasicAuthPass   string `yaml:"-"`
	BaseSegmentsDir string `yaml:"baseSegmentsDir"`
	StatusDBPath    string `yaml:"statusDBPath"`

	SegmentsBeforeRelay   int           `yaml:"segmentsBeforeRelay"`
	MissingSegmentTimeout time.Duration `yaml:"missingSegmentTimeout"`
	GapSkipTimeout        time.Duration `yaml:"gapSkipTimeout"`
	UploadUtilWindow      time.Duration `yaml:"uploadUtilWindow"`
	MaxEventHistory       int           `yaml:"maxEventHistory"`

	TargetMismatchPolicy TargetMismatchPolicy `yaml:"targetMismatchPolicy"`

	UploaderBinPath          string        `yaml:"uploaderBinPath"`
	UploaderGracefulWait     time.Duration `yaml:"uploaderGracefulWait"`
	FinalizedRetention       time.Duration `yaml:"finalizedRetention"`
	HousekeepingCronSchedule string        `yaml:"housekeepingCronSchedule"`

	LogLevel string `yaml:"logLevel"`
}

// fileOverlay is the subset of Config that may be supplied via YAML file;
// basic-auth credentials are deliberately excluded from the on-disk
// representation (env-only, matching the teacher's secret-handling stance).
type fileOverlay struct {
	ListenAddr               string        `yaml:"listenAddr"`
	LoopbackAddr             string        `yaml:"loopbackAddr"`
	StatusAddr               string        `yaml:"statusAddr"`
	MetricsAddr              string        `yaml:"metricsAddr"`
	BaseSegmentsDir          string        `yaml:"baseSegmentsDir"`
	StatusDBPath             string        `yaml:"statusDBPath"`
	SegmentsBeforeRelay      int           `yaml:"segmentsBeforeRelay"`
	MissingSegmentTimeout    time.Duration `yaml:"missingSegmentTimeout"`
	GapSkipTimeout           time.Duration `yaml:"gapSkipTimeout"`
	UploadUtilWindow         time.Duration `yaml:"uploadUtilWindow"`
	MaxEventHistory          int           `yaml:"maxEventHistory"`
	TargetMismatchPolicy     string        `yaml:"targetMismatchPolicy"`
	UploaderBinPath          string        `yaml:"uploaderBinPath"`
	UploaderGracefulWait     time.Duration `yaml:"uploaderGracefulWait"`
	FinalizedRetention       time.Duration `yaml:"finalizedRetention"`
	HousekeepingCronSchedule string        `yaml:"housekeepingCronSchedule"`
	LogLevel                 string        `yaml:"logLevel"`
}

// Defaults returns the spec-mandated defaults (spec.md §6).
func Defaults() Config {
	return Config{
		ListenAddr:               ":8080",
		LoopbackAddr:             "127.0.0.1:8081",
		StatusAddr:               ":8082",
		MetricsAddr:              ":9090",
		BasicAuthUser:            "",
		BasicAuthPass:            "",
		BaseSegmentsDir:          "segments",
		StatusDBPath:             "segments/.status.badger",
		SegmentsBeforeRelay:      3,
		MissingSegmentTimeout:    60 * time.Second,
		GapSkipTimeout:           10 * time.Second,
		UploadUtilWindow:         60 * time.Second,
		MaxEventHistory:          20,
		TargetMismatchPolicy:     TargetMismatchReject,
		UploaderBinPath:          "ffmpeg",
		UploaderGracefulWait:     5 * time.Second,
		FinalizedRetention:       24 * time.Hour,
		HousekeepingCronSchedule: "@every 10m",
		LogLevel:                 "info",
	}
}

// Load builds the effective Config with ENV > file > defaults precedence,
// matching the teacher's config.NewLoader(path, version).Load() shape.
func Load(filePath string) (Config, error) {
	cfg := Defaults()

	if filePath != "" {
		if overlay, err := loadFile(filePath); err == nil {
			applyOverlay(&cfg, overlay)
		} else if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("load config file %s: %w", filePath, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func loadFile(path string) (*fileOverlay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var overlay fileOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return &overlay, nil
}

func applyOverlay(cfg *Config, o *fileOverlay) {
	if o.ListenAddr != "" {
		cfg.ListenAddr = o.ListenAddr
	}
	if o.LoopbackAddr != "" {
		cfg.LoopbackAddr = o.LoopbackAddr
	}
	if o.StatusAddr != "" {
		cfg.StatusAddr = o.StatusAddr
	}
	if o.MetricsAddr != "" {
		cfg.MetricsAddr = o.MetricsAddr
	}
	if o.BaseSegmentsDir != "" {
		cfg.BaseSegmentsDir = o.BaseSegmentsDir
	}
	if o.StatusDBPath != "" {
		cfg.StatusDBPath = o.StatusDBPath
	}
	if o.SegmentsBeforeRelay > 0 {
		cfg.SegmentsBeforeRelay = o.SegmentsBeforeRelay
	}
	if o.MissingSegmentTimeout > 0 {
		cfg.MissingSegmentTimeout = o.MissingSegmentTimeout
	}
	if o.GapSkipTimeout > 0 {
		cfg.GapSkipTimeout = o.GapSkipTimeout
	}
	if o.UploadUtilWindow > 0 {
		cfg.UploadUtilWindow = o.UploadUtilWindow
	}
	if o.MaxEventHistory > 0 {
		cfg.MaxEventHistory = o.MaxEventHistory
	}
	if o.TargetMismatchPolicy != "" {
		cfg.TargetMismatchPolicy = TargetMismatchPolicy(o.TargetMismatchPolicy)
	}
	if o.UploaderBinPath != "" {
		cfg.UploaderBinPath = o.UploaderBinPath
	}
	if o.UploaderGracefulWait > 0 {
		cfg.UploaderGracefulWait = o.UploaderGracefulWait
	}
	if o.FinalizedRetention > 0 {
		cfg.FinalizedRetention = o.FinalizedRetention
	}
	if o.HousekeepingCronSchedule != "" {
		cfg.HousekeepingCronSchedule = o.HousekeepingCronSchedule
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
}

func applyEnv(cfg *Config) {
	cfg.ListenAddr = ParseString("RELAY_LISTEN_ADDR", cfg.ListenAddr)
	cfg.LoopbackAddr = ParseString("RELAY_LOOPBACK_ADDR", cfg.LoopbackAddr)
	cfg.StatusAddr = ParseString("RELAY_STATUS_ADDR", cfg.StatusAddr)
	cfg.MetricsAddr = ParseString("RELAY_METRICS_ADDR", cfg.MetricsAddr)
	cfg.BasicAuthUser = ParseString("RELAY_AUTH_USERNAME", cfg.BasicAuthUser)
	cfg.BasicAuthPass = ParseString("RELAY_AUTH_PASSWORD", cfg.BasicAuthPass)
	cfg.BaseSegmentsDir = ParseString("RELAY_BASE_SEGMENTS_DIR", cfg.BaseSegmentsDir)
	cfg.StatusDBPath = ParseString("RELAY_STATUS_DB_PATH", cfg.StatusDBPath)
	cfg.SegmentsBeforeRelay = ParseInt("RELAY_SEGMENTS_BEFORE_RELAY", cfg.SegmentsBeforeRelay)
	cfg.MissingSegmentTimeout = ParseDuration("RELAY_MISSING_SEGMENT_TIMEOUT", cfg.MissingSegmentTimeout)
	cfg.GapSkipTimeout = ParseDuration("RELAY_GAP_SKIP_TIMEOUT", cfg.GapSkipTimeout)
	cfg.UploadUtilWindow = ParseDuration("RELAY_UPLOAD_UTIL_WINDOW", cfg.UploadUtilWindow)
	cfg.MaxEventHistory = ParseInt("RELAY_MAX_EVENT_HISTORY", cfg.MaxEventHistory)
	if v := ParseString("RELAY_TARGET_MISMATCH_POLICY", string(cfg.TargetMismatchPolicy)); v != "" {
		cfg.TargetMismatchPolicy = TargetMismatchPolicy(v)
	}
	cfg.UploaderBinPath = ParseString("RELAY_UPLOADER_BIN", cfg.UploaderBinPath)
	cfg.UploaderGracefulWait = ParseDuration("RELAY_UPLOADER_GRACEFUL_WAIT", cfg.UploaderGracefulWait)
	cfg.FinalizedRetention = ParseDuration("RELAY_FINALIZED_RETENTION", cfg.FinalizedRetention)
	cfg.HousekeepingCronSchedule = ParseString("RELAY_HOUSEKEEPING_CRON", cfg.HousekeepingCronSchedule)
	cfg.LogLevel = ParseString("RELAY_LOG_LEVEL", cfg.LogLevel)
}

// PersistSnapshot atomically writes the effective config to path as YAML,
// so an operator (or a future restart) can see exactly what was applied.
// Uses renameio to avoid a torn write if the process is killed mid-save,
// the same mechanism the teacher uses for UI-saved config persistence.
func PersistSnapshot(path string, cfg Config) error {
	overlay := fileOverlay{
		ListenAddr:               cfg.ListenAddr,
		LoopbackAddr:             cfg.LoopbackAddr,
		StatusAddr:               cfg.StatusAddr,
		MetricsAddr:              cfg.MetricsAddr,
		BaseSegmentsDir:          cfg.BaseSegmentsDir,
		StatusDBPath:             cfg.StatusDBPath,
		SegmentsBeforeRelay:      cfg.SegmentsBeforeRelay,
		MissingSegmentTimeout:    cfg.MissingSegmentTimeout,
		GapSkipTimeout:           cfg.GapSkipTimeout,
		UploadUtilWindow:         cfg.UploadUtilWindow,
		MaxEventHistory:          cfg.MaxEventHistory,
		TargetMismatchPolicy:     string(cfg.TargetMismatchPolicy),
		UploaderBinPath:          cfg.UploaderBinPath,
		UploaderGracefulWait:     cfg.UploaderGracefulWait,
		FinalizedRetention:       cfg.FinalizedRetention,
		HousekeepingCronSchedule: cfg.HousekeepingCronSchedule,
		LogLevel:                 cfg.LogLevel,
	}

	data, err := yaml.Marshal(overlay)
	if err != nil {
		return fmt.Errorf("marshal config snapshot: %w", err)
	}

	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		log.L().Warn().Err(err).Str("path", path).Msg("failed to persist config snapshot")
		return err
	}
	return nil
}
