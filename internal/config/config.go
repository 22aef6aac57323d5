package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/genricoloni/overlay/internal/domain"
	"go.uber.org/zap"
)

const (
	defaultOutputDir    = "~/Videos/overlay"
	defaultRecordFile   = "output.avi"
	defaultFrameRate    = 20
	defaultQuality      = 95
	defaultPlayer       = "spotify"
	defaultPollInterval = time.Second
)

// AppConfig holds application configuration
type AppConfig struct {
	logger       *zap.Logger
	outputDir    string
	displayIndex int
	player       string
	pollInterval time.Duration
	recording    domain.RecordingConfig
}

// NewAppConfig reads the configuration from environment variables, falling back
// to defaults. The recording resolution defaults to the detected screen size.
func NewAppConfig(logger *zap.Logger, res *domain.ScreenResolution) *AppConfig {
	outputDir := expandPath(envOr("OVERLAY_OUTPUT_DIR", defaultOutputDir))

	recordFile := envOr("OVERLAY_RECORD_FILE", defaultRecordFile)
	if !filepath.IsAbs(recordFile) {
		recordFile = filepath.Join(outputDir, recordFile)
	}

	recording := domain.RecordingConfig{
		OutputPath: recordFile,
		Resolution: domain.ScreenResolution{
			Width:  envInt(logger, "OVERLAY_RECORD_WIDTH", res.Width, MinDimension, MaxDimension),
			Height: envInt(logger, "OVERLAY_RECORD_HEIGHT", res.Height, MinDimension, MaxDimension),
		},
		FrameRate: envInt(logger, "OVERLAY_RECORD_FPS", defaultFrameRate, domain.MinFrameRate, domain.MaxFrameRate),
		Quality:   envInt(logger, "OVERLAY_RECORD_QUALITY", defaultQuality, domain.MinQuality, domain.MaxQuality),
	}

	pollInterval := defaultPollInterval
	if raw := os.Getenv("OVERLAY_POLL_INTERVAL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			logger.Warn("Invalid poll interval, using default",
				zap.String("value", raw),
				zap.Duration("default", defaultPollInterval))
		} else {
			pollInterval = d
		}
	}

	cfg := &AppConfig{
		logger:       logger,
		outputDir:    outputDir,
		displayIndex: envInt(logger, "OVERLAY_DISPLAY", 0, 0, 15),
		player:       envOr("OVERLAY_PLAYER", defaultPlayer),
		pollInterval: pollInterval,
		recording:    recording,
	}

	logger.Info("Configuration loaded",
		zap.String("outputDir", cfg.outputDir),
		zap.Int("display", cfg.displayIndex),
		zap.String("player", cfg.player),
		zap.Duration("pollInterval", cfg.pollInterval),
		zap.String("recordFile", recording.OutputPath),
		zap.Stringer("resolution", recording.Resolution),
		zap.Int("fps", recording.FrameRate),
		zap.Int("quality", recording.Quality))

	return cfg
}

// GetOutputDir returns the directory for recordings and artwork
func (c *AppConfig) GetOutputDir() string {
	return c.outputDir
}

// GetDisplayIndex returns the display captured by the recorder
func (c *AppConfig) GetDisplayIndex() int {
	return c.displayIndex
}

// GetPreferredPlayer returns the MPRIS player to prefer
func (c *AppConfig) GetPreferredPlayer() string {
	return c.player
}

// GetPollInterval returns how often the media player is polled
func (c *AppConfig) GetPollInterval() time.Duration {
	return c.pollInterval
}

// GetDefaultRecording returns the recording configuration loaded at startup
func (c *AppConfig) GetDefaultRecording() domain.RecordingConfig {
	return c.recording
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envInt parses an integer variable. Missing, malformed or out-of-range values
// fall back to def.
func envInt(logger *zap.Logger, key string, def, lo, hi int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < lo || v > hi {
		logger.Warn("Invalid integer setting, using default",
			zap.String("key", key),
			zap.String("value", raw),
			zap.Int("default", def))
		return def
	}
	return v
}

// expandPath expands environment variables and a leading ~
func expandPath(p string) string {
	p = os.ExpandEnv(p)
	if len(p) > 0 && p[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			p = filepath.Join(home, p[1:])
		}
	}
	return p
}
