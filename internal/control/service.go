package control

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/genricoloni/overlay/internal/domain"
	"github.com/genricoloni/overlay/internal/monitor"
	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"
)

const (
	// BusName is the well-known name the daemon owns on the session bus
	BusName = "io.github.genricoloni.Overlay"
	// ObjectPath is where the Service is exported
	ObjectPath = dbus.ObjectPath("/io/github/genricoloni/Overlay")
	// Interface is the D-Bus interface implemented by Service
	Interface = "io.github.genricoloni.Overlay"

	errorPrefix = Interface + ".Error."

	// stopTimeout bounds how long StopRecording waits for the file to be finalized
	stopTimeout = 10 * time.Second
	callTimeout = 5 * time.Second
)

// NowPlayingSource provides the latest now-playing snapshot
type NowPlayingSource interface {
	NowPlaying() domain.NowPlaying
}

// Service is the object exported on the session bus. Every exported method
// returning *dbus.Error becomes a D-Bus method.
type Service struct {
	logger     *zap.Logger
	recorder   domain.Recorder
	settings   domain.SettingsStore
	timer      domain.Stopwatch
	player     domain.PlayerController
	nowPlaying NowPlayingSource
}

// NewService creates the control surface over the daemon's components
func NewService(
	logger *zap.Logger,
	rec domain.Recorder,
	settings domain.SettingsStore,
	timer domain.Stopwatch,
	player domain.PlayerController,
	np NowPlayingSource,
) *Service {
	return &Service{
		logger:     logger,
		recorder:   rec,
		settings:   settings,
		timer:      timer,
		player:     player,
		nowPlaying: np,
	}
}

// StartRecording begins a session with the current recording configuration
func (s *Service) StartRecording() *dbus.Error {
	return s.toDBusError("StartRecording", s.recorder.Start(context.Background()))
}

// StopRecording ends the active session and waits for the file to be written
func (s *Service) StopRecording() *dbus.Error {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	return s.toDBusError("StopRecording", s.recorder.Stop(ctx))
}

// ToggleRecording starts or stops recording and returns the resulting state
func (s *Service) ToggleRecording() (string, *dbus.Error) {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	state, err := s.recorder.Toggle(ctx)
	return wireState(state), s.toDBusError("ToggleRecording", err)
}

// RecordingState returns "idle", "recording" or "stopping"
func (s *Service) RecordingState() (string, *dbus.Error) {
	return wireState(s.recorder.State()), nil
}

func wireState(state domain.RecorderState) string {
	return strings.ToLower(string(state))
}

// RecordingSession describes the active session; id is empty when idle
func (s *Service) RecordingSession() (id, path string, frames uint64, seconds float64, dbusErr *dbus.Error) {
	info, ok := s.recorder.Current()
	if !ok {
		return "", "", 0, 0, nil
	}
	return info.ID, info.Config.OutputPath, info.Frames, time.Since(info.StartedAt).Seconds(), nil
}

// GetRecordingConfig returns the configuration the next session will use
func (s *Service) GetRecordingConfig() (path string, width, height, fps, quality int32, dbusErr *dbus.Error) {
	cfg := s.settings.Get()
	return cfg.OutputPath,
		int32(cfg.Resolution.Width),
		int32(cfg.Resolution.Height),
		int32(cfg.FrameRate),
		int32(cfg.Quality),
		nil
}

// SetRecordingConfig replaces the configuration for future sessions.
// A session in progress keeps the settings it started with.
func (s *Service) SetRecordingConfig(path string, width, height, fps, quality int32) *dbus.Error {
	cfg := domain.RecordingConfig{
		OutputPath: path,
		Resolution: domain.ScreenResolution{Width: int(width), Height: int(height)},
		FrameRate:  int(fps),
		Quality:    int(quality),
	}
	return s.toDBusError("SetRecordingConfig", s.settings.Set(cfg))
}

// TimerStart resumes the game timer
func (s *Service) TimerStart() *dbus.Error {
	s.timer.Start()
	return nil
}

// TimerPause pauses the game timer
func (s *Service) TimerPause() *dbus.Error {
	s.timer.Pause()
	return nil
}

// TimerReset stops the game timer and sets it back to zero
func (s *Service) TimerReset() *dbus.Error {
	s.timer.Reset()
	return nil
}

// TimerElapsed returns the elapsed time as HH:MM:SS and in seconds
func (s *Service) TimerElapsed() (formatted string, seconds float64, running bool, dbusErr *dbus.Error) {
	return s.timer.String(), s.timer.Elapsed().Seconds(), s.timer.Running(), nil
}

// PlayPause toggles playback on the active media player
func (s *Service) PlayPause() *dbus.Error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	return s.toDBusError("PlayPause", s.player.PlayPause(ctx))
}

// Next skips to the next track on the active media player
func (s *Service) Next() *dbus.Error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	return s.toDBusError("Next", s.player.Next(ctx))
}

// NowPlaying returns the current track; thumbnail is an absolute path or empty
func (s *Service) NowPlaying() (
	title string,
	artists []string,
	album, status string,
	positionMs, lengthMs int64,
	thumbnail string,
	dbusErr *dbus.Error,
) {
	np := s.nowPlaying.NowPlaying()
	if np.Artists == nil {
		np.Artists = []string{}
	}
	return np.Title,
		np.Artists,
		np.Album,
		string(np.Status),
		np.Position.Milliseconds(),
		np.Length.Milliseconds(),
		np.Thumbnail,
		nil
}

// NowPlayingLabels returns the track and artist lines shortened for the widget
func (s *Service) NowPlayingLabels() (track, artist string, dbusErr *dbus.Error) {
	np := s.nowPlaying.NowPlaying()
	return monitor.TrackLabel(np), monitor.ArtistLabel(np), nil
}

// toDBusError maps domain errors to named D-Bus errors
func (s *Service) toDBusError(method string, err error) *dbus.Error {
	if err == nil {
		return nil
	}

	name := errorPrefix + "Failed"
	switch {
	case errors.Is(err, domain.ErrAlreadyRecording):
		name = errorPrefix + "AlreadyRecording"
	case errors.Is(err, domain.ErrInvalidConfig):
		name = errorPrefix + "InvalidConfig"
	case errors.Is(err, domain.ErrSinkOpen):
		name = errorPrefix + "SinkOpen"
	case errors.Is(err, domain.ErrPlayerUnavailable):
		name = errorPrefix + "PlayerUnavailable"
	}

	s.logger.Warn("Control call failed",
		zap.String("method", method),
		zap.String("error_name", name),
		zap.Error(err))

	return dbus.NewError(name, []interface{}{err.Error()})
}
