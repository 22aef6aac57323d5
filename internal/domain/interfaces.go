package domain

import (
	"context"
	"time"
)

// FrameSource produces one still image of the display on demand
//
//go:generate mockgen -destination=mocks/domain_mock.go -package=mocks github.com/genricoloni/overlay/internal/domain FrameSource,Sink,SinkOpener,SettingsStore,Fetcher,Thumbnailer,Notifier
type FrameSource interface {
	// Capture grabs the display and returns it scaled to res.
	// Errors wrap ErrCaptureUnavailable.
	Capture(res ScreenResolution) (Frame, error)
}

// Sink appends frames to a video file
type Sink interface {
	// WriteFrame appends one frame. Frames must arrive with increasing Seq.
	WriteFrame(frame Frame) error

	// Frames returns the number of frames accepted so far
	Frames() uint64

	// Close finalizes the container and releases the file.
	// It is safe to call more than once.
	Close() error
}

// SinkOpener creates a Sink for a recording configuration
type SinkOpener interface {
	// Open creates or truncates cfg.OutputPath. Errors wrap ErrSinkOpen.
	Open(cfg RecordingConfig) (Sink, error)
}

// SettingsStore holds the recording configuration used by the next session
type SettingsStore interface {
	// Get returns a consistent snapshot
	Get() RecordingConfig

	// Set validates and replaces the configuration
	Set(cfg RecordingConfig) error
}

// Recorder controls recording sessions
type Recorder interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Toggle(ctx context.Context) (RecorderState, error)
	State() RecorderState
	Current() (SessionInfo, bool)
	Events() <-chan SessionEvent
}

// Monitor defines the interface for watching the active media player
type Monitor interface {
	// Start begins monitoring for media events.
	// It blocks until the context is cancelled or an error occurs.
	Start(ctx context.Context) error

	// Stop gracefully stops the monitor
	Stop(ctx context.Context) error

	// Events returns a read-only channel that emits NowPlaying
	// whenever the player state changes
	Events() <-chan NowPlaying
}

// PlayerController sends playback commands to the active media player
type PlayerController interface {
	PlayPause(ctx context.Context) error
	Next(ctx context.Context) error
}

// Fetcher defines the interface for retrieving album artwork
type Fetcher interface {
	// Fetch downloads or reads image data from a URL or local path
	// Returns the raw image bytes or an error
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Thumbnailer renders album art for display
type Thumbnailer interface {
	// Render turns raw image data into a thumbnail file and returns its path
	Render(ctx context.Context, imgData []byte) (string, error)
}

// Notifier shows a desktop notification
type Notifier interface {
	Notify(ctx context.Context, title, body string) error
}

// Stopwatch is the game session timer
type Stopwatch interface {
	Start()
	Pause()
	Reset()
	Running() bool
	Elapsed() time.Duration
	String() string
}

// Config defines the interface for application configuration
type Config interface {
	// GetOutputDir returns the directory for recordings and artwork
	GetOutputDir() string

	// GetDisplayIndex returns the display captured by the recorder
	GetDisplayIndex() int

	// GetPreferredPlayer returns the MPRIS player suffix to prefer (e.g. "spotify")
	GetPreferredPlayer() string

	// GetPollInterval returns how often the media player is polled
	GetPollInterval() time.Duration

	// GetDefaultRecording returns the recording configuration loaded at startup
	GetDefaultRecording() RecordingConfig
}
