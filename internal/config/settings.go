package config

import (
	"fmt"
	"sync/atomic"

	"github.com/genricoloni/overlay/internal/domain"
	"go.uber.org/zap"
)

// Resolution bounds accepted by the settings store
const (
	MinDimension = 100
	MaxDimension = 10000
)

// RecordingSettings is the runtime store for the recording configuration.
// Readers get whole snapshots; a running session keeps the copy it started with.
type RecordingSettings struct {
	logger  *zap.Logger
	current atomic.Pointer[domain.RecordingConfig]
}

// NewRecordingSettings seeds the store with the startup configuration
func NewRecordingSettings(logger *zap.Logger, cfg domain.Config) *RecordingSettings {
	s := &RecordingSettings{logger: logger}
	initial := cfg.GetDefaultRecording()
	s.current.Store(&initial)
	return s
}

// Get returns the current configuration
func (s *RecordingSettings) Get() domain.RecordingConfig {
	return *s.current.Load()
}

// Set validates and replaces the configuration
func (s *RecordingSettings) Set(cfg domain.RecordingConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if w, h := cfg.Resolution.Width, cfg.Resolution.Height; w < MinDimension || w > MaxDimension || h < MinDimension || h > MaxDimension {
		return fmt.Errorf("%w: resolution %s outside %d-%d", domain.ErrInvalidConfig, cfg.Resolution, MinDimension, MaxDimension)
	}

	s.current.Store(&cfg)

	s.logger.Info("Recording configuration updated",
		zap.String("path", cfg.OutputPath),
		zap.Stringer("resolution", cfg.Resolution),
		zap.Int("fps", cfg.FrameRate),
		zap.Int("quality", cfg.Quality))
	return nil
}
